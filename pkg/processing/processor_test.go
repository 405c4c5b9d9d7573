//nolint:funlen // ok for tests
package processing

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pitwall-live/telemetry-bridge-go/pkg/state"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/telemetry"
)

func sampleFrame() telemetry.Frame {
	return telemetry.Frame{
		"DriverInfo": map[string]any{
			"DriverCarIdx":        int64(0),
			"DriverCarEstLapTime": 100.0,
			"Drivers": []any{
				map[string]any{
					"CarIdx": int64(0), "UserName": "Me",
					"CarNumberRaw": "11", "CarScreenName": "BMW M4 GT3",
				},
				map[string]any{
					"CarIdx": int64(1), "UserName": "Rival",
					"CarNumberRaw": "22", "CarScreenName": "Ferrari 296 GT3",
				},
				map[string]any{
					"CarIdx": int64(2), "UserName": "Watcher",
					"IsSpectator": true,
				},
			},
		},
		"SessionInfo": map[string]any{
			"WeekendInfo": map[string]any{
				"TrackDisplayName": "Monza",
				"TrackConfigName":  "Grand Prix",
			},
			"Sessions": []any{
				map[string]any{
					"SessionType": "Race",
					"Weather":     map[string]any{"Rain": int64(0)},
					"ResultsPositions": []any{
						map[string]any{
							"CarIdx": int64(0), "Position": int64(1),
							"FastestTime": 95.5, "LastTime": 96.0,
							"LapsComplete": int64(10),
						},
						map[string]any{
							"CarIdx": int64(1), "Position": int64(2),
							"FastestTime": 96.5, "LastTime": 97.0,
							"LapsComplete": int64(10),
						},
					},
				},
			},
		},
		"SessionNum":                 int64(0),
		"SessionTimeRemain":          1000.0,
		"AirTemp":                    22.456,
		"TrackTemp":                  31.0,
		"TrackTempCrew":              33.333,
		"FuelLevel":                  40.0,
		"FuelLevelPct":               0.5,
		"PlayerCarTeamIncidentCount": int64(3),
		"CarIdxLapCompleted":         []any{int64(10), int64(10), int64(0)},
		"CarIdxOnPitRoad":            []any{false, false, false},
		"CarIdxLapDistPct":           []any{0.5, 0.6, 0.0},
		"CarIdxPosition":             []any{int64(1), int64(2), int64(0)},
		"CarIdxBestLapTime":          []any{95.5, 96.5, 0.0},
		"CarIdxLastLapTime":          []any{96.0, 97.0, 0.0},
	}
}

func TestProcessor_UnusableFrame(t *testing.T) {
	p := NewProcessor()
	assert.Nil(t, p.Process(telemetry.Frame{}), "no driver info")
	assert.Nil(t, p.Process(nil))
}

func TestProcessor_FullTick(t *testing.T) {
	p := NewProcessor()
	snap := p.Process(sampleFrame())

	assert.NotNil(t, snap)
	assert.True(t, snap.Connected)
	assert.Equal(t, "RACE", snap.SessionType)
	assert.Equal(t, "Monza (Grand Prix)", snap.TrackName)
	assert.Equal(t, "00:16:40", snap.SessionTimer)

	assert.InDelta(t, 22.46, snap.Weather.Air, 1e-9)
	assert.InDelta(t, 33.33, snap.Weather.Track, 1e-9, "crew reading wins")
	assert.Equal(t, 0, snap.Weather.Rain)
	assert.Equal(t, "DRY", snap.Weather.Status)

	assert.InDelta(t, 40.0, snap.MyCar.Fuel, 1e-9)
	assert.Equal(t, 3, snap.MyCar.Incidents)
	assert.Equal(t, "OK", snap.MyCar.Strat, "enough fuel for the time left")

	// 20 laps estimated, 10 done, 3.0 l/lap fallback, 40 l on board
	assert.NotNil(t, snap.FuelNeeded)
	assert.InDelta(t, 0.0, *snap.FuelNeeded, 1e-9)

	assert.Len(t, snap.Grid, 2, "spectator filtered out")
	assert.Equal(t, "Me", snap.Grid[0].Name)
	assert.True(t, snap.Grid[0].IsMe)
	assert.Equal(t, "LDR", snap.Grid[0].Gap)
	assert.Equal(t, "bmw", snap.Grid[0].CarLogo)
	assert.Equal(t, "Rival", snap.Grid[1].Name)
	assert.Equal(t, "+40.0", snap.Grid[1].Gap)
	assert.Equal(t, "1:36.500", snap.Grid[1].BestLap)

	assert.NotNil(t, snap.UsagePercent)
	assert.NotEmpty(t, snap.UsageLabel)
	assert.NotNil(t, snap.UsageDebug)
}

func TestProcessor_LowFuelStrategyHint(t *testing.T) {
	frame := sampleFrame()
	frame["FuelLevel"] = 10.0
	delete(frame, "FuelLevelPct")

	p := NewProcessor()
	snap := p.Process(frame)

	// 10 laps to go at 3.2 l/lap needs 32 l, 10 on board
	assert.Equal(t, "-22.0", snap.MyCar.Strat)
}

func TestProcessor_AbsentPitArrayLeavesStintStateAlone(t *testing.T) {
	p := NewProcessor()
	frame := sampleFrame()
	delete(frame, "CarIdxOnPitRoad")

	snap := p.Process(frame)
	assert.NotNil(t, snap, "the tick still produces a snapshot")
	assert.Equal(t, "10", snap.Grid[0].Stint,
		"stint column falls back to laps completed")
}

func TestProcessor_PersistAndRestore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stint_state.json")

	p := NewProcessor(WithStore(state.NewStore(path)))
	p.Process(sampleFrame())

	// pit entry four laps later
	frame := sampleFrame()
	frame["CarIdxOnPitRoad"] = []any{false, true, false}
	frame["CarIdxLapCompleted"] = []any{int64(14), int64(14), int64(0)}
	p.Process(frame)

	restored := state.NewStore(path).Load()
	assert.Equal(t, []int{4}, restored.StintHistory[1],
		"completed stint survives the process")
	assert.True(t, restored.InPit[1])
	assert.Positive(t, restored.CumulativeCarLaps)

	// a fresh processor picks the history back up
	p2 := NewProcessor(WithStore(state.NewStore(path)))
	snap := p2.Process(sampleFrame())
	assert.Equal(t, "4", snap.Grid[1].StintPrev)
}
