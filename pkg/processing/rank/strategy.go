package rank

import (
	"fmt"
	"math"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"github.com/pitwall-live/telemetry-bridge-go/pkg/config"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/model"
)

// a rival's in-progress stint must exceed this many laps before it can serve
// as its full-stint estimate
const minUsableInProgressStint = 5

// strategy compares the pit-stop-count projection of a rival against the
// reference car. Race sessions only, never for the reference car itself.
// The displayed value is the stop-count difference scaled by the average
// pit-stop time loss.
func (e *Engine) strategy(in *Input, car *Car, tuning config.Tuning) (txt, cls string) {
	if in.SessionType != model.SessionRace ||
		car.Idx == in.MyIdx ||
		in.TotalLapsEst <= 0 {
		return "-", "equal"
	}

	myStops, myFullStint := e.referenceStops(in, tuning)
	rivStops := e.rivalStops(in, car, myFullStint)

	diffStops := rivStops - myStops
	if diffStops == 0 {
		return "EQUAL", "equal"
	}
	secondsDiff := float64(diffStops) * tuning.AvgPitLossSeconds
	if secondsDiff > 0 {
		return fmt.Sprintf("+%.0fs", secondsDiff), "lead"
	}
	return fmt.Sprintf("%.0fs", secondsDiff), "lag"
}

// referenceStops projects the reference car's remaining stops. The fuel
// model drives the estimate when it has data (remaining laps from the tank
// level, full stint from tank capacity); stint history is the fallback.
func (e *Engine) referenceStops(in *Input, tuning config.Tuning) (stops int, fullStint float64) {
	myLapsLeft := math.Max(0, in.TotalLapsEst-float64(in.MyLaps))

	var remaining float64
	fullStint = 0

	if perLap, ok := e.fuel.PerLap(); ok && perLap > 0.0001 {
		remaining = in.FuelLevel / perLap
		if tank, hasTank := e.fuel.TankCapacity(); hasTank && tank > 0 {
			fullStint = tank / perLap
		}
	}

	if fullStint < 1 {
		if mean, ok := histMean(e.tracker.History(in.MyIdx)); ok {
			fullStint = mean
		} else {
			fullStint = tuning.DefaultStintLaps
		}
		currStint := float64(in.MyLaps - e.tracker.StartLap(in.MyIdx, in.MyLaps))
		remaining = math.Max(0.0, fullStint-currStint)
	}

	return stopsNeeded(myLapsLeft, remaining, fullStint), fullStint
}

// rivalStops projects a rival's remaining stops from its own stint history,
// falling back to its in-progress stint length and finally to the reference
// car's estimate.
func (e *Engine) rivalStops(in *Input, car *Car, refFullStint float64) int {
	lapsLeft := math.Max(0, in.TotalLapsEst-float64(car.Laps))
	currStint := float64(car.Laps - e.tracker.StartLap(car.Idx, car.Laps))

	var full, remaining float64
	switch {
	case len(e.tracker.History(car.Idx)) > 0:
		full, _ = histMean(e.tracker.History(car.Idx))
		remaining = math.Max(0.0, full-currStint)
	case currStint > minUsableInProgressStint:
		// the in-progress stint only bounds the rival's stint capability;
		// how far into the tank it is remains unknown, so the capability
		// counts as the remaining range
		full = currStint
		remaining = full
	default:
		full = refFullStint
		remaining = math.Max(0.0, full-currStint)
	}

	return stopsNeeded(lapsLeft, remaining, full)
}

func stopsNeeded(lapsLeft, remaining, fullStint float64) int {
	need := lapsLeft - remaining
	if need <= 0 || fullStint <= 0 {
		return 0
	}
	return int(math.Ceil(need / fullStint))
}

func histMean(hist []int) (float64, bool) {
	if len(hist) == 0 {
		return 0, false
	}
	vals := lo.Map(hist, func(v, _ int) float64 { return float64(v) })
	return stat.Mean(vals, nil), true
}
