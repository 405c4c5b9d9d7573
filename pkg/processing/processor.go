package processing

import (
	"fmt"
	"math"
	"time"

	"github.com/pitwall-live/telemetry-bridge-go/log"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/config"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/model"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/processing/fuel"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/processing/rank"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/processing/stint"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/processing/usage"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/state"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/telemetry"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/utils"
)

// session time remaining values at or above this are "unlimited" and suppress
// the fuel-to-go strategy hint
const unlimitedSessionRemain = 36000.0

// defaults when the simulator does not provide an estimate
const (
	defaultAvgLapTime = 100.0
)

// Processor owns all mutable pipeline state and runs the per-tick sequence:
// stint tracking, fuel model, usage estimation, ranking, snapshot assembly.
// It is driven exclusively by the polling loop; no locking happens here.
type Processor struct {
	store   *state.Store
	tracker *stint.Tracker
	fuel    *fuel.Model
	usage   *usage.Estimator
	engine  *rank.Engine
	tuning  *config.TuningProvider
	l       *log.Logger
	now     func() time.Time
}

type ProcessorOption func(*Processor)

func WithStore(store *state.Store) ProcessorOption {
	return func(p *Processor) {
		p.store = store
	}
}

func WithTuning(tuning *config.TuningProvider) ProcessorOption {
	return func(p *Processor) {
		p.tuning = tuning
	}
}

func WithLogger(l *log.Logger) ProcessorOption {
	return func(p *Processor) {
		p.l = l
	}
}

func WithTickPeriod(period time.Duration) ProcessorOption {
	return func(p *Processor) {
		p.usage = usage.NewEstimator(period)
	}
}

func WithClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) {
		p.now = now
	}
}

func NewProcessor(opts ...ProcessorOption) *Processor {
	ret := &Processor{
		fuel:  fuel.NewModel(),
		usage: usage.NewEstimator(500 * time.Millisecond),
		l:     log.Default().Named("processing"),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.tuning == nil {
		ret.tuning = config.NewTuningProvider("", ret.l)
	}
	ret.tracker = stint.NewTracker(
		stint.WithLogger(ret.l),
		stint.WithPersistHook(ret.persist))
	ret.engine = rank.NewEngine(
		rank.WithStintTracker(ret.tracker),
		rank.WithFuelModel(ret.fuel),
		rank.WithEngineLogger(ret.l))
	ret.restore()
	return ret
}

// restore merges the durable snapshot into the fresh state; persisted values
// win over defaults.
func (p *Processor) restore() {
	if p.store == nil {
		return
	}
	snap := p.store.Load()
	p.tracker.Restore(snap.StintStart, snap.InPit, snap.StintHistory)
	p.usage.Restore(snap.CumulativeCarLaps, snap.PrevLapPcts, snap.EmaUsage)
}

// persist writes the durable snapshot. A failed write is logged and the
// in-memory state continues without persistence for that event.
func (p *Processor) persist() {
	if p.store == nil {
		return
	}
	snap := state.NewSnapshot()
	snap.StintStart, snap.InPit, snap.StintHistory = p.tracker.Export()
	snap.CumulativeCarLaps, snap.PrevLapPcts, snap.EmaUsage = p.usage.Export()
	if err := p.store.Save(snap); err != nil {
		p.l.Warn("could not persist state", log.ErrorField(err))
	}
}

// Process runs one tick. Returns nil when the frame is unusable
// (no DriverInfo); the loop then just sleeps until the next tick.
//
//nolint:funlen // the tick sequence reads top to bottom by design
func (p *Processor) Process(frame telemetry.Frame) *model.Snapshot {
	driverInfo := frame.Map(telemetry.KeyDriverInfo)
	if driverInfo == nil {
		return nil
	}
	tuning := p.tuning.Current()

	// stint state machine (skips on absent arrays)
	p.tracker.Process(
		frame.Bools(telemetry.KeyCarIdxOnPitRoad, false),
		frame.Ints(telemetry.KeyCarIdxLapCompleted, 0))

	// fuel model for the reference car
	myIdx := driverInfo.Int("DriverCarIdx", 0)
	fuelNow := frame.Float(telemetry.KeyFuelLevel, 0)
	var fuelPct *float64
	if frame.Has(telemetry.KeyFuelLevelPct) {
		v := frame.Float(telemetry.KeyFuelLevelPct, 0)
		fuelPct = &v
	}
	p.fuel.Update(
		frame.IntAt(telemetry.KeyCarIdxLapCompleted, myIdx, 0),
		fuelNow, fuelPct)

	// session context
	sessionRemain := frame.Float(telemetry.KeySessionTimeRemain, 0)
	sessionType := sessionTypeOf(frame)
	avgLapTime := defaultAvgLapTime
	if est := driverInfo.Float("DriverCarEstLapTime", 0); est > 0 {
		avgLapTime = est
	}
	results := officialResults(frame)
	totalLapsEst := float64(results.leaderLaps) + sessionRemain/avgLapTime

	// usage estimator
	trackTemp := frame.Float(telemetry.KeyTrackTempCrew,
		frame.Float(telemetry.KeyTrackTemp, 0))
	raining := isRaining(frame)
	pcts, valid := frame.Floats(telemetry.KeyCarIdxLapDistPct, 0)
	usageRes := p.usage.Update(pcts, valid, trackTemp, raining, tuning)

	// ranking & strategy
	gridInput := p.buildGridInput(
		frame, driverInfo, results, sessionType, myIdx, fuelNow, totalLapsEst)
	grid := p.engine.BuildGrid(gridInput, tuning)

	// reference car strategy hint and fuel to finish
	myLaps := frame.IntAt(telemetry.KeyCarIdxLapCompleted, myIdx, 0)
	fuelNeeded := fuelToFinish(totalLapsEst, myLaps, fuelNow, p.fuel, tuning)

	strat := "OK"
	if sessionRemain < unlimitedSessionRemain {
		lapsRemaining := sessionRemain / avgLapTime
		if need := lapsRemaining*tuning.AvgFuelPerLap - fuelNow; need > 0 {
			strat = fmt.Sprintf("-%.1f", need)
		}
	}

	return &model.Snapshot{
		Connected:    true,
		Timestamp:    float64(p.now().UnixNano()) / float64(time.Second),
		SessionType:  string(sessionType),
		TrackName:    trackNameOf(frame),
		SessionTimer: utils.FormatSessionTimer(sessionRemain),
		Weather: model.Weather{
			Air:    round2(frame.Float(telemetry.KeyAirTemp, 0)),
			Track:  round2(trackTemp),
			Rain:   boolToInt(raining),
			Status: weatherStatus(raining),
		},
		MyCar: model.MyCar{
			Fuel:       math.Round(fuelNow*10) / 10,
			Strat:      strat,
			Incidents:  frame.Int(telemetry.KeyIncidents, 0),
			IncLimit:   tuning.IncidentLimit,
			FuelNeeded: fuelNeeded,
		},
		Grid:         grid,
		UsagePercent: usageRes.Percent,
		UsageLabel:   usageRes.Label,
		UsageDebug:   &usageRes.Debug,
		FuelNeeded:   fuelNeeded,
	}
}

// buildGridInput collects the per-car raw values for the ranking engine,
// filtering out spectators and invalid slots.
//
//nolint:whitespace // can't make the linters happy
func (p *Processor) buildGridInput(
	frame, driverInfo telemetry.Frame, results resultInfo,
	sessionType model.SessionType, myIdx int, fuelNow, totalLapsEst float64,
) *rank.Input {
	cars := make([]rank.Car, 0)
	for _, d := range driverInfo.Maps("Drivers") {
		idx := d.Int("CarIdx", -1)
		if idx < 0 || d.Bool("IsSpectator", false) {
			continue
		}

		pos := 999
		if v := frame.IntAt(telemetry.KeyCarIdxPosition, idx, 0); v > 0 {
			pos = v
		}

		off, hasOff := results.byIdx[idx]
		best, last, laps := 0.0, 0.0, 0
		if hasOff {
			best, last, laps = off.best, off.last, off.laps
		}
		if best <= 0 {
			best = frame.FloatAt(telemetry.KeyCarIdxBestLapTime, idx, 0)
		}
		if last <= 0 {
			last = frame.FloatAt(telemetry.KeyCarIdxLastLapTime, idx, 0)
		}
		if !hasOff {
			laps = frame.IntAt(telemetry.KeyCarIdxLapCompleted, idx, 0)
		}

		cars = append(cars, rank.Car{
			Idx:           idx,
			Name:          d.String("UserName", "-"),
			Num:           d.String("CarNumberRaw", "-"),
			CarScreenName: d.String("CarScreenName", ""),
			Pos:           pos,
			Pct:           frame.FloatAt(telemetry.KeyCarIdxLapDistPct, idx, 0),
			Laps:          laps,
			Best:          best,
			Last:          last,
		})
	}

	// without official results the session best comes from the live arrays
	p1Best := results.p1Best
	if p1Best >= sentinelBest {
		for i := range cars {
			if cars[i].Best > 0 && cars[i].Best < p1Best {
				p1Best = cars[i].Best
			}
		}
	}

	return &rank.Input{
		SessionType:  sessionType,
		MyIdx:        myIdx,
		MyLaps:       frame.IntAt(telemetry.KeyCarIdxLapCompleted, myIdx, 0),
		FuelLevel:    fuelNow,
		LeaderLaps:   results.leaderLaps,
		P1Best:       p1Best,
		TotalLapsEst: totalLapsEst,
		Cars:         cars,
	}
}

// fuelToFinish estimates the additional fuel required to reach the end of
// the race, using the fuel model's burn rate when available.
//
//nolint:whitespace // can't make the linters happy
func fuelToFinish(
	totalLapsEst float64, myLaps int, fuelNow float64,
	fuelModel *fuel.Model, tuning config.Tuning,
) *float64 {
	if totalLapsEst <= 0 {
		return nil
	}
	lapsToFinish := math.Max(0.0, totalLapsEst-float64(myLaps))
	perLap, ok := fuelModel.PerLap()
	if !ok || perLap <= 0 {
		perLap = 3.0
	}
	need := lapsToFinish*perLap - fuelNow
	if need < 0 {
		need = 0.0
	}
	need = math.Round(need*10) / 10
	return &need
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func weatherStatus(raining bool) string {
	if raining {
		return "WET"
	}
	return "DRY"
}
