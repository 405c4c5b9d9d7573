//nolint:funlen // ok for tests
package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pitwall-live/telemetry-bridge-go/pkg/config"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/model"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/processing/fuel"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/processing/stint"
)

func ptr(v float64) *float64 { return &v }

// fuelModelWith builds a model reporting the given burn rate and tank size.
func fuelModelWith(perLap, tank float64) *fuel.Model {
	m := fuel.NewModel()
	m.Update(10, tank, ptr(1.0))
	m.Update(11, tank-perLap, nil)
	return m
}

func TestStrategy_NotApplicable(t *testing.T) {
	e := NewEngine()
	tuning := config.DefaultTuning()

	tests := []struct {
		name string
		in   Input
		car  Car
	}{
		{
			name: "timed session",
			in:   Input{SessionType: model.SessionPractice, TotalLapsEst: 50},
			car:  Car{Idx: 1},
		},
		{
			name: "reference car itself",
			in:   Input{SessionType: model.SessionRace, MyIdx: 1, TotalLapsEst: 50},
			car:  Car{Idx: 1},
		},
		{
			name: "no race length estimate",
			in:   Input{SessionType: model.SessionRace, TotalLapsEst: 0},
			car:  Car{Idx: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txt, cls := e.strategy(&tt.in, &tt.car, tuning)
			assert.Equal(t, "-", txt)
			assert.Equal(t, "equal", cls)
		})
	}
}

func TestStrategy_EqualWithoutData(t *testing.T) {
	// neither car has fuel or stint data: both project one stop on the
	// default stint length
	e := NewEngine()
	in := &Input{
		SessionType:  model.SessionRace,
		MyIdx:        0,
		MyLaps:       10,
		TotalLapsEst: 50,
	}
	txt, cls := e.strategy(in, &Car{Idx: 1, Laps: 10}, config.DefaultTuning())
	assert.Equal(t, "EQUAL", txt)
	assert.Equal(t, "equal", cls)
}

func TestStrategy_ShortStintingRivalLags(t *testing.T) {
	tracker := stint.NewTracker()
	tracker.Restore(map[int]int{1: 2}, nil, map[int][]int{1: {10, 10}})
	e := NewEngine(WithStintTracker(tracker))

	in := &Input{
		SessionType:  model.SessionRace,
		MyIdx:        0,
		MyLaps:       10,
		TotalLapsEst: 50,
	}
	// reference: default 30-lap stints, 1 stop to go.
	// rival: 10-lap stints, 8 laps into the current one, 4 stops to go.
	txt, cls := e.strategy(in, &Car{Idx: 1, Laps: 10}, config.DefaultTuning())
	assert.Equal(t, "+150s", txt)
	assert.Equal(t, "lead", cls)
}

func TestStrategy_ShortStintingReferenceLeadsRival(t *testing.T) {
	tracker := stint.NewTracker()
	tracker.Restore(map[int]int{0: 2}, nil, map[int][]int{0: {10, 10}})
	e := NewEngine(WithStintTracker(tracker))

	in := &Input{
		SessionType:  model.SessionRace,
		MyIdx:        0,
		MyLaps:       10,
		TotalLapsEst: 50,
	}
	// reference: 10-lap stints, 8 laps in, 4 stops to go.
	// rival inherits the reference full stint fresh out of the pits: 3 stops.
	txt, cls := e.strategy(in, &Car{Idx: 1, Laps: 10}, config.DefaultTuning())
	assert.Equal(t, "-50s", txt)
	assert.Equal(t, "lag", cls)
}

func TestStrategy_InProgressStintBoundsRivalCapability(t *testing.T) {
	// the rival has no completed stint yet but is 20 laps into the current
	// one; that bounds its stint capability without revealing the tank state,
	// so the capability counts as its remaining range
	tracker := stint.NewTracker()
	tracker.Restore(map[int]int{1: 0}, nil, nil)
	e := NewEngine(
		WithStintTracker(tracker),
		WithFuelModel(fuelModelWith(2.0, 60.0)))

	in := &Input{
		SessionType:  model.SessionRace,
		MyIdx:        0,
		MyLaps:       20,
		FuelLevel:    20.0,
		TotalLapsEst: 50,
	}
	// reference: 30-lap tank range, 10 laps of fuel left, 1 stop to go.
	// rival: 20-lap capability covering 20 of the 30 laps left, 1 stop.
	txt, cls := e.strategy(in, &Car{Idx: 1, Laps: 20}, config.DefaultTuning())
	assert.Equal(t, "EQUAL", txt)
	assert.Equal(t, "equal", cls)
}

func TestStopsNeeded(t *testing.T) {
	tests := []struct {
		name      string
		lapsLeft  float64
		remaining float64
		fullStint float64
		want      int
	}{
		{name: "reaches the flag on the tank", lapsLeft: 10, remaining: 12, fullStint: 30, want: 0},
		{name: "one stop", lapsLeft: 40, remaining: 15, fullStint: 30, want: 1},
		{name: "boundary rounds up", lapsLeft: 46, remaining: 15, fullStint: 30, want: 2},
		{name: "no stint length known", lapsLeft: 40, remaining: 0, fullStint: 0, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want,
				stopsNeeded(tt.lapsLeft, tt.remaining, tt.fullStint))
		})
	}
}
