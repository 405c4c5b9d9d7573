package rank

import (
	"fmt"
	"sort"

	"github.com/pitwall-live/telemetry-bridge-go/log"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/config"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/model"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/processing/fuel"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/processing/stint"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/utils"
)

// cars with no valid best time sort behind everything else
const sentinelSortVal = 99999.0

// Car is the per-slot input of one grid row.
type Car struct {
	Idx           int
	Name          string
	Num           string
	CarScreenName string
	Pos           int     // reported race position, 999 when unknown
	Pct           float64 // lap distance fraction, 0..1
	Laps          int     // laps completed
	Best          float64 // best lap time, <=0 when none
	Last          float64 // last lap time, <=0 when none
}

// Input is the session context for one tick's grid computation.
type Input struct {
	SessionType  model.SessionType
	MyIdx        int
	MyLaps       int
	FuelLevel    float64
	LeaderLaps   int
	P1Best       float64 // session best lap time, <=0 when none
	TotalLapsEst float64 // estimated total race laps
	Cars         []Car
}

// Engine computes position/gap/interval and the comparative pit-stop
// projection for every active car, per tick.
type Engine struct {
	tracker *stint.Tracker
	fuel    *fuel.Model
	l       *log.Logger
}

type EngineOption func(*Engine)

func WithStintTracker(t *stint.Tracker) EngineOption {
	return func(e *Engine) {
		e.tracker = t
	}
}

func WithFuelModel(m *fuel.Model) EngineOption {
	return func(e *Engine) {
		e.fuel = m
	}
}

func WithEngineLogger(l *log.Logger) EngineOption {
	return func(e *Engine) {
		e.l = l
	}
}

func NewEngine(opts ...EngineOption) *Engine {
	ret := &Engine{
		tracker: stint.NewTracker(),
		fuel:    fuel.NewModel(),
		l:       log.Default().Named("rank"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// BuildGrid computes the ranked car table. A failure in one car's
// computation yields a placeholder row for that car only.
func (e *Engine) BuildGrid(in *Input, tuning config.Tuning) []model.GridEntry {
	rows := make([]model.GridEntry, 0, len(in.Cars))
	for i := range in.Cars {
		rows = append(rows, e.buildRow(in, &in.Cars[i], tuning))
	}

	if in.SessionType == model.SessionRace {
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].Pos < rows[j].Pos
		})
	} else {
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].SortVal < rows[j].SortVal
		})
	}

	e.applyIntervals(rows, in.SessionType)
	return rows
}

func (e *Engine) buildRow(in *Input, car *Car, tuning config.Tuning) (row model.GridEntry) {
	defer func() {
		if r := recover(); r != nil {
			e.l.Warn("car row computation failed",
				log.Int("carIdx", car.Idx), log.Any("reason", r))
			row = placeholderRow(car)
		}
	}()

	gap, sortVal := e.gap(in, car)
	stratTxt, stratCls := e.strategy(in, car, tuning)
	s1, s2, s3 := e.stintDisplay(car)

	return model.GridEntry{
		Pos:        car.Pos,
		Name:       car.Name,
		Num:        car.Num,
		IsMe:       car.Idx == in.MyIdx,
		ClassName:  "GT3",
		CarLogo:    utils.BrandLogo(car.CarScreenName),
		Flag:       "es",
		LastLap:    utils.FormatLapTime(car.Last),
		BestLap:    utils.FormatLapTime(car.Best),
		Gap:        gap,
		SortVal:    sortVal,
		Stint:      s1,
		StintPrev:  s2,
		StintPrev2: s3,
		StratTxt:   stratTxt,
		StratCls:   stratCls,
	}
}

// gap returns the display gap and the numeric sort key.
//
// Race sessions rank by reported position: the leader shows "LDR", cars N
// laps down show "+N L" (sort key N*1000 so full-lap deficits sort below any
// partial-lap gap), others a track-fraction percentage. Timed sessions rank
// by best lap vs the session best.
func (e *Engine) gap(in *Input, car *Car) (string, float64) {
	if in.SessionType == model.SessionRace {
		lapsDown := in.LeaderLaps - car.Laps
		switch {
		case car.Pos == 1:
			return "LDR", 0.0
		case lapsDown > 0:
			return fmt.Sprintf("+%d L", lapsDown), float64(lapsDown) * 1000.0
		default:
			gapVal := (1.0 - car.Pct) * 100.0
			return fmt.Sprintf("+%.1f", gapVal), gapVal
		}
	}

	switch {
	case car.Best <= 0:
		return "--", sentinelSortVal
	case car.Best == in.P1Best:
		return "-", car.Best
	default:
		return fmt.Sprintf("+%.3f", car.Best-in.P1Best), car.Best
	}
}

// applyIntervals fills each row's interval vs the immediately preceding car
// as the absolute difference of adjacent sort keys.
func (e *Engine) applyIntervals(rows []model.GridEntry, sessionType model.SessionType) {
	for i := range rows {
		if i == 0 {
			rows[i].Interval = "-"
			continue
		}
		val := rows[i].SortVal - rows[i-1].SortVal
		if val < 0 {
			val = -val
		}
		if sessionType == model.SessionRace {
			rows[i].Interval = fmt.Sprintf("+%.1f", val)
		} else if val < 5000 {
			rows[i].Interval = fmt.Sprintf("+%.3f", val)
		} else {
			rows[i].Interval = "--"
		}
	}
}

// stintDisplay returns the current in-progress stint length and the two most
// recently completed stint lengths, most recent first.
func (e *Engine) stintDisplay(car *Car) (s1, s2, s3 string) {
	s1 = fmt.Sprintf("%d", car.Laps-e.tracker.StartLap(car.Idx, 0))
	s2, s3 = "-", "-"
	hist := e.tracker.History(car.Idx)
	if len(hist) >= 1 {
		s2 = fmt.Sprintf("%d", hist[len(hist)-1])
	}
	if len(hist) >= 2 {
		s3 = fmt.Sprintf("%d", hist[len(hist)-2])
	}
	return s1, s2, s3
}

func placeholderRow(car *Car) model.GridEntry {
	return model.GridEntry{
		Pos:        999,
		Name:       car.Name,
		Num:        car.Num,
		ClassName:  "GT3",
		CarLogo:    "iracing",
		Flag:       "es",
		Gap:        "-",
		SortVal:    sentinelSortVal,
		Stint:      "-",
		StintPrev:  "-",
		StintPrev2: "-",
		StratTxt:   "-",
		StratCls:   "equal",
	}
}
