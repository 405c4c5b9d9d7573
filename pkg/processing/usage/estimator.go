package usage

import (
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/pitwall-live/telemetry-bridge-go/pkg/config"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/model"
)

// Estimator maintains the synthetic 0..100 wear/activity proxy: an
// activity accumulator weighted by track temperature, blended with an
// instantaneous rate signal and smoothed with an EMA. The externally
// visible percent/label only change once per publish interval.
type Estimator struct {
	tickPeriod time.Duration

	cumulative  float64
	prevPcts    []float64
	ema         *float64
	lastPublish time.Time
	sentPercent *int
	sentLabel   string

	now func() time.Time
}

type EstimatorOption func(*Estimator)

// WithClock replaces the wall clock, used by tests to drive the publish gate.
func WithClock(now func() time.Time) EstimatorOption {
	return func(e *Estimator) {
		e.now = now
	}
}

func NewEstimator(tickPeriod time.Duration, opts ...EstimatorOption) *Estimator {
	ret := &Estimator{tickPeriod: tickPeriod, now: time.Now}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Restore merges persisted estimator state. Loaded values win over defaults.
func (e *Estimator) Restore(cumulative float64, prevPcts []float64, ema *float64) {
	if cumulative > e.cumulative {
		e.cumulative = cumulative
	}
	if len(prevPcts) > 0 {
		e.prevPcts = slices.Clone(prevPcts)
	}
	if ema != nil {
		v := *ema
		e.ema = &v
	}
}

// Export returns the persisted portion of the estimator state.
func (e *Estimator) Export() (cumulative float64, prevPcts []float64, ema *float64) {
	return e.cumulative, slices.Clone(e.prevPcts), e.ema
}

// Result is the per-tick outcome. Percent/Label are the rate-limited
// externally visible values; Debug carries the raw signals.
type Result struct {
	Percent *int
	Label   string
	Debug   model.UsageDebug
}

// Update advances the estimator by one tick. lapDistPct/valid are the raw
// per-slot lap distance fractions (either 0..1 or 0..100 scale; detected via
// the median of valid readings). A malformed or absent array contributes a
// zero delta; the accumulator never decreases.
//
//nolint:funlen // single pass over the estimation pipeline
func (e *Estimator) Update(
	lapDistPct []float64, valid []bool, trackTemp float64, raining bool,
	tuning config.Tuning,
) Result {
	delta := e.lapDelta(lapDistPct, valid)
	e.cumulative += delta

	dt := e.tickPeriod.Seconds()
	if dt <= 0 {
		dt = 0.0001
	}
	lapsPerMin := delta / dt * 60.0

	rawHist := historySignal(e.cumulative*tuning.ActivityGain, trackTemp, raining, tuning)
	rawRate := clampPercent(lapsPerMin / tuning.RateScale * 100.0)
	combined := clampPercent(tuning.WeightHistory*rawHist + tuning.WeightRate*rawRate)

	alpha := 0.12
	if tuning.Tau > 0 {
		alpha = 1.0 - math.Exp(-dt/tuning.Tau)
	}
	if e.ema == nil {
		e.ema = &combined
	} else {
		next := alpha*combined + (1.0-alpha)**e.ema
		e.ema = &next
	}

	computed := int(math.Round(clampPercent(*e.ema)))

	nowTS := e.now()
	if e.sentPercent == nil ||
		nowTS.Sub(e.lastPublish) >= tuning.PublishInterval() {
		p := computed
		e.sentPercent = &p
		e.sentLabel = Label(computed)
		e.lastPublish = nowTS
	}

	return Result{
		Percent: e.sentPercent,
		Label:   e.sentLabel,
		Debug: model.UsageDebug{
			Delta:             delta,
			CumulativeCarLaps: e.cumulative,
			LapsPerMinTotal:   round4(lapsPerMin),
			RawPercentHistory: round3(rawHist),
			RawPercentRate:    round3(rawRate),
			CombinedRaw:       round3(combined),
			EmaUsage:          round3(*e.ema),
			ComputedPercent:   computed,
			Tuning: model.UsageTuning{
				ActivityGain: tuning.ActivityGain,
				Tau:          tuning.Tau,
				RateScale:    tuning.RateScale,
				Weights:      [2]float64{tuning.WeightHistory, tuning.WeightRate},
			},
		},
	}
}

// lapDelta sums the fractional lap progress of all slots since the previous
// tick, normalized to laps. Handles both 0..1 and 0..100 feeds and treats a
// negative per-slot delta as a lap wrap (contributes the current fraction).
func (e *Estimator) lapDelta(cur []float64, valid []bool) float64 {
	if len(cur) == 0 {
		return 0.0
	}
	if len(valid) < len(cur) {
		padded := make([]bool, len(cur))
		copy(padded, valid)
		if valid == nil {
			for i := range padded {
				padded[i] = true
			}
		}
		valid = padded
	}

	// detect scale: median of the valid readings <= 1.0 means 0..1 feed
	validVals := make([]float64, 0, len(cur))
	for i := range cur {
		if valid[i] {
			validVals = append(validVals, cur[i])
		}
	}
	scale := 1.0
	if len(validVals) > 0 {
		slices.Sort(validVals)
		if stat.Quantile(0.5, stat.Empirical, validVals, nil) <= 1.0 {
			scale = 100.0
		}
	}

	norm := make([]float64, len(cur))
	for i := range cur {
		if valid[i] {
			norm[i] = cur[i] * scale
		}
	}

	prev := e.prevPcts
	if prev == nil {
		prev = make([]float64, len(norm))
	}

	delta := 0.0
	n := min(len(norm), len(prev))
	for i := 0; i < n; i++ {
		if !valid[i] {
			continue
		}
		d := (norm[i] - prev[i]) / 100.0
		if d < 0 {
			// wrap / reset: count the current fraction instead
			d = norm[i] / 100.0
		}
		if d > 0 {
			delta += d
		}
	}
	// slots that appeared this tick contribute their full current fraction
	for i := n; i < len(norm); i++ {
		if valid[i] && norm[i] > 0 {
			delta += norm[i] / 100.0
		}
	}

	e.prevPcts = norm
	return delta
}

// historySignal maps the accumulated activity through the temperature band
// weighting. Rain halves the result (RainFactor).
func historySignal(activity, trackTemp float64, raining bool, tuning config.Tuning) float64 {
	rawActivity := math.Min(100.0, activity)
	tempFactor := 0.0
	if tuning.TempHigh > tuning.TempLow {
		tempFactor = (trackTemp - tuning.TempLow) / (tuning.TempHigh - tuning.TempLow)
		tempFactor = math.Max(0.0, math.Min(1.0, tempFactor))
	}
	raw := 0.6*rawActivity + 0.4*(rawActivity*(0.5+0.5*tempFactor))
	if raining {
		raw *= tuning.RainFactor
	}
	return clampPercent(raw)
}

// Label maps a percent value to its display label (inclusive upper bounds).
func Label(percent int) string {
	switch {
	case percent <= 20:
		return "low"
	case percent <= 50:
		return "moderate"
	case percent <= 80:
		return "high"
	default:
		return "very high"
	}
}

func clampPercent(v float64) float64 {
	return math.Max(0.0, math.Min(100.0, v))
}

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
