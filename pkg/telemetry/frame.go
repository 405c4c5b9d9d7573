package telemetry

import (
	"github.com/spf13/cast"
)

// Frame is one raw per-tick snapshot from the simulator: field name to
// scalar, array of scalars (indexed by car slot) or nested mapping.
// No field is guaranteed to exist or to have the expected type; every read
// goes through the accessors below which collapse any failure into the
// caller supplied default.
type Frame map[string]any

// Get returns the raw value or def when the key is absent or the frame is nil.
func (f Frame) Get(key string, def any) any {
	if f == nil {
		return def
	}
	if v, ok := f[key]; ok && v != nil {
		return v
	}
	return def
}

// Has reports whether the key is present with a non-nil value.
func (f Frame) Has(key string) bool {
	if f == nil {
		return false
	}
	v, ok := f[key]
	return ok && v != nil
}

func (f Frame) Float(key string, def float64) float64 {
	return ToFloat(f.Get(key, nil), def)
}

func (f Frame) Int(key string, def int) int {
	return ToInt(f.Get(key, nil), def)
}

func (f Frame) String(key, def string) string {
	if v, err := cast.ToStringE(f.Get(key, nil)); err == nil && v != "" {
		return v
	}
	return def
}

func (f Frame) Bool(key string, def bool) bool {
	if v, err := cast.ToBoolE(f.Get(key, nil)); err == nil {
		return v
	}
	return def
}

// Map returns a nested mapping or nil.
func (f Frame) Map(key string) Frame {
	switch v := f.Get(key, nil).(type) {
	case Frame:
		return v
	case map[string]any:
		return Frame(v)
	default:
		return nil
	}
}

// Slice returns an array field as raw values or nil.
func (f Frame) Slice(key string) []any {
	if v, ok := f.Get(key, nil).([]any); ok {
		return v
	}
	return nil
}

// Maps returns an array of nested mappings, skipping entries of other shapes.
func (f Frame) Maps(key string) []Frame {
	raw := f.Slice(key)
	if raw == nil {
		return nil
	}
	ret := make([]Frame, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case Frame:
			ret = append(ret, v)
		case map[string]any:
			ret = append(ret, Frame(v))
		}
	}
	return ret
}

// Floats returns a per-slot array coerced to float64. The second return value
// marks slots whose value was present and numeric; failed slots hold def.
func (f Frame) Floats(key string, def float64) ([]float64, []bool) {
	raw := f.Slice(key)
	if raw == nil {
		return nil, nil
	}
	vals := make([]float64, len(raw))
	valid := make([]bool, len(raw))
	for i, item := range raw {
		if item == nil {
			vals[i] = def
			continue
		}
		v, err := cast.ToFloat64E(item)
		if err != nil {
			vals[i] = def
			continue
		}
		vals[i] = v
		valid[i] = true
	}
	return vals, valid
}

// Ints returns a per-slot array coerced to int; failed slots hold def.
func (f Frame) Ints(key string, def int) []int {
	raw := f.Slice(key)
	if raw == nil {
		return nil
	}
	ret := make([]int, len(raw))
	for i, item := range raw {
		ret[i] = ToInt(item, def)
	}
	return ret
}

// Bools returns a per-slot array coerced to bool; failed slots hold def.
func (f Frame) Bools(key string, def bool) []bool {
	raw := f.Slice(key)
	if raw == nil {
		return nil
	}
	ret := make([]bool, len(raw))
	for i, item := range raw {
		if item == nil {
			ret[i] = def
			continue
		}
		if v, err := cast.ToBoolE(item); err == nil {
			ret[i] = v
		} else {
			ret[i] = def
		}
	}
	return ret
}

// FloatAt reads one slot of an array field.
func (f Frame) FloatAt(key string, idx int, def float64) float64 {
	raw := f.Slice(key)
	if raw == nil || idx < 0 || idx >= len(raw) {
		return def
	}
	return ToFloat(raw[idx], def)
}

// IntAt reads one slot of an array field.
func (f Frame) IntAt(key string, idx int, def int) int {
	raw := f.Slice(key)
	if raw == nil || idx < 0 || idx >= len(raw) {
		return def
	}
	return ToInt(raw[idx], def)
}

// ToFloat coerces any scalar into a float64, falling back to def.
func ToFloat(val any, def float64) float64 {
	if val == nil {
		return def
	}
	if v, err := cast.ToFloat64E(val); err == nil {
		return v
	}
	return def
}

// ToInt coerces any scalar into an int, falling back to def.
// Floats are truncated like an int conversion would.
func ToInt(val any, def int) int {
	if val == nil {
		return def
	}
	if v, err := cast.ToFloat64E(val); err == nil {
		return int(v)
	}
	return def
}
