package fuel

import (
	"gonum.org/v1/gonum/stat"
)

const (
	defaultMaxSamples = 20
	// fuel fraction readings at or below this are treated as sensor noise
	fuelPctNoiseFloor = 0.01
)

// Model estimates the reference car's fuel burn per lap and tank capacity
// via delta sampling between ticks.
type Model struct {
	lastFuel     *float64
	lastLap      *int
	samples      []float64
	perLap       *float64
	tankCapacity *float64
	maxSamples   int
}

type ModelOption func(*Model)

func WithMaxSamples(n int) ModelOption {
	return func(m *Model) {
		m.maxSamples = n
	}
}

func NewModel(opts ...ModelOption) *Model {
	ret := &Model{maxSamples: defaultMaxSamples}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Update feeds the current tick's readings. fuelPct is nil when the fraction
// reading is unavailable this tick. A refuel produces a non-positive fuel
// delta and is silently discarded; the reference values still advance.
func (m *Model) Update(lap int, fuelLevel float64, fuelPct *float64) {
	if fuelPct != nil && *fuelPct > fuelPctNoiseFloor {
		if capacity := fuelLevel / *fuelPct; capacity > 0 {
			m.tankCapacity = &capacity
		}
	}

	if m.lastFuel != nil && m.lastLap != nil {
		lapDelta := lap - *m.lastLap
		fuelDelta := *m.lastFuel - fuelLevel
		if lapDelta > 0 && fuelDelta > 0 {
			m.samples = append(m.samples, fuelDelta/float64(lapDelta))
			if len(m.samples) > m.maxSamples {
				m.samples = m.samples[1:]
			}
			mean := stat.Mean(m.samples, nil)
			m.perLap = &mean
		}
	}

	m.lastFuel = &fuelLevel
	m.lastLap = &lap
}

// PerLap returns the mean burn per lap over the sample window.
func (m *Model) PerLap() (float64, bool) {
	if m.perLap == nil {
		return 0, false
	}
	return *m.perLap, true
}

// TankCapacity returns the estimated tank size in the fuel level's unit.
func (m *Model) TankCapacity() (float64, bool) {
	if m.tankCapacity == nil {
		return 0, false
	}
	return *m.tankCapacity, true
}

func (m *Model) SampleCount() int { return len(m.samples) }
