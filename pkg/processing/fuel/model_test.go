package fuel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(v float64) *float64 { return &v }

func TestModel_PerLap(t *testing.T) {
	m := NewModel()

	_, ok := m.PerLap()
	assert.False(t, ok, "no estimate before the first delta")

	m.Update(10, 50.0, nil)
	_, ok = m.PerLap()
	assert.False(t, ok, "a single reading yields no estimate")

	m.Update(11, 47.0, nil)
	perLap, ok := m.PerLap()
	assert.True(t, ok)
	assert.InDelta(t, 3.0, perLap, 1e-9)

	// two laps in one delta
	m.Update(13, 43.0, nil)
	perLap, _ = m.PerLap()
	assert.InDelta(t, 2.5, perLap, 1e-9)
}

func TestModel_RefuelDiscarded(t *testing.T) {
	m := NewModel()
	m.Update(10, 50.0, nil)
	m.Update(11, 47.0, nil)

	// refuel: fuel goes up, no sample; the reference values still advance
	m.Update(12, 80.0, nil)
	assert.Equal(t, 1, m.SampleCount())

	m.Update(13, 77.0, nil)
	perLap, ok := m.PerLap()
	assert.True(t, ok)
	assert.InDelta(t, 3.0, perLap, 1e-9)
	assert.Equal(t, 2, m.SampleCount())
}

func TestModel_SameLapNoSample(t *testing.T) {
	m := NewModel()
	m.Update(10, 50.0, nil)
	m.Update(10, 49.8, nil)
	assert.Equal(t, 0, m.SampleCount())
}

func TestModel_TankCapacity(t *testing.T) {
	m := NewModel()

	_, ok := m.TankCapacity()
	assert.False(t, ok)

	m.Update(10, 45.0, ptr(0.75))
	tank, ok := m.TankCapacity()
	assert.True(t, ok)
	assert.InDelta(t, 60.0, tank, 1e-9)

	// fraction readings at the noise floor are ignored
	m.Update(11, 44.0, ptr(0.005))
	tank, _ = m.TankCapacity()
	assert.InDelta(t, 60.0, tank, 1e-9)
}

func TestModel_SampleWindow(t *testing.T) {
	m := NewModel(WithMaxSamples(3))
	fuelVal := 100.0
	m.Update(0, fuelVal, nil)
	burns := []float64{5.0, 5.0, 5.0, 2.0}
	for i, burn := range burns {
		fuelVal -= burn
		m.Update(i+1, fuelVal, nil)
	}
	assert.Equal(t, 3, m.SampleCount())
	perLap, _ := m.PerLap()
	assert.InDelta(t, 4.0, perLap, 1e-9, "oldest sample evicted")
}
