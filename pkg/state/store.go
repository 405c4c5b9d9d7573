package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ohler55/ojg/oj"

	"github.com/pitwall-live/telemetry-bridge-go/log"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/telemetry"
)

const snapshotVersion = 1

// Snapshot is the durable state shared by the stint tracker and the usage
// estimator. It is written on every pit transition so that a process restart
// mid-session does not lose history.
type Snapshot struct {
	StintStart        map[int]int
	InPit             map[int]bool
	StintHistory      map[int][]int
	CumulativeCarLaps float64
	PrevLapPcts       []float64
	EmaUsage          *float64
}

func NewSnapshot() *Snapshot {
	return &Snapshot{
		StintStart:   make(map[int]int),
		InPit:        make(map[int]bool),
		StintHistory: make(map[int][]int),
	}
}

// Store persists Snapshots as a small versioned key-value document.
// Writes are atomic (write temp, then rename) and the previous version is
// kept as <path>.bak.
type Store struct {
	path string
	l    *log.Logger
}

type StoreOption func(*Store)

func WithStoreLogger(l *log.Logger) StoreOption {
	return func(s *Store) {
		s.l = l
	}
}

func NewStore(path string, opts ...StoreOption) *Store {
	ret := &Store{path: path, l: log.Default().Named("state")}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (s *Store) Path() string { return s.path }

// Save writes the snapshot. An error is reported but never fatal to the
// caller's tick; in-memory state stays authoritative.
func (s *Store) Save(snap *Snapshot) error {
	doc := map[string]any{
		"version":             snapshotVersion,
		"current_stint_start": slotKeys(snap.StintStart),
		"in_pit":              slotKeys(snap.InPit),
		"stint_history":       slotKeys(snap.StintHistory),
		"cumulative_car_laps": snap.CumulativeCarLaps,
		"prev_lap_pcts":       snap.PrevLapPcts,
	}
	if snap.EmaUsage != nil {
		doc["ema_usage"] = *snap.EmaUsage
	}
	data, err := oj.Marshal(doc, 2)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write state: %w", err)
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close state: %w", err)
	}
	// keep one backup of the prior version
	if _, err = os.Stat(s.path); err == nil {
		if err = os.Rename(s.path, s.path+".bak"); err != nil {
			s.l.Warn("could not rotate state backup", log.ErrorField(err))
		}
	}
	if err = os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// Load reads the snapshot if present and readable. A missing file yields an
// empty snapshot; a corrupt file is logged and also yields an empty snapshot.
// Loaded values win over defaults, merged by slot index.
func (s *Store) Load() *Snapshot {
	ret := NewSnapshot()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.l.Warn("could not read state file",
				log.String("path", s.path), log.ErrorField(err))
		}
		return ret
	}
	parsed, err := oj.Parse(data)
	if err != nil {
		s.l.Warn("state file is corrupt, starting fresh",
			log.String("path", s.path), log.ErrorField(err))
		return ret
	}
	doc, ok := parsed.(map[string]any)
	if !ok {
		s.l.Warn("state file has unexpected shape, starting fresh",
			log.String("path", s.path))
		return ret
	}
	frame := telemetry.Frame(doc)

	for slot, v := range frame.Map("current_stint_start") {
		if idx, err := strconv.Atoi(slot); err == nil {
			ret.StintStart[idx] = telemetry.ToInt(v, 0)
		}
	}
	for slot, v := range frame.Map("in_pit") {
		if idx, err := strconv.Atoi(slot); err == nil {
			if b, isBool := v.(bool); isBool {
				ret.InPit[idx] = b
			}
		}
	}
	for slot, v := range frame.Map("stint_history") {
		idx, err := strconv.Atoi(slot)
		if err != nil {
			continue
		}
		raw, isSlice := v.([]any)
		if !isSlice {
			continue
		}
		hist := make([]int, 0, len(raw))
		for _, item := range raw {
			hist = append(hist, telemetry.ToInt(item, 0))
		}
		ret.StintHistory[idx] = hist
	}
	ret.CumulativeCarLaps = frame.Float("cumulative_car_laps", 0)
	if raw := frame.Slice("prev_lap_pcts"); raw != nil {
		ret.PrevLapPcts = make([]float64, len(raw))
		for i, item := range raw {
			ret.PrevLapPcts[i] = telemetry.ToFloat(item, 0)
		}
	}
	if frame.Has("ema_usage") {
		ema := frame.Float("ema_usage", 0)
		ret.EmaUsage = &ema
	}
	return ret
}

func slotKeys[T any](in map[int]T) map[string]any {
	ret := make(map[string]any, len(in))
	for slot, v := range in {
		ret[strconv.Itoa(slot)] = v
	}
	return ret
}
