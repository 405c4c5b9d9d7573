package config

import (
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/pitwall-live/telemetry-bridge-go/log"
)

// Tuning holds the estimator and strategy coefficients. The values carry no
// documented physical meaning; they are race-engineering knobs and may be
// adjusted mid-session via the tuning profile.
type Tuning struct {
	// usage estimator
	ActivityGain   float64 `yaml:"activityGain"`   // amplifies the cumulative activity term
	Tau            float64 `yaml:"tau"`            // EMA time constant in seconds
	RateScale      float64 `yaml:"rateScale"`      // laps/min mapped to 100% at this value
	WeightHistory  float64 `yaml:"weightHistory"`  // weight of the accumulated activity signal
	WeightRate     float64 `yaml:"weightRate"`     // weight of the instantaneous rate signal
	TempLow        float64 `yaml:"tempLow"`        // °C mapped to temp factor 0
	TempHigh       float64 `yaml:"tempHigh"`       // °C mapped to temp factor 1
	RainFactor     float64 `yaml:"rainFactor"`     // multiplier applied while raining
	PublishSeconds float64 `yaml:"publishSeconds"` // seconds between visible usage updates

	// strategy
	AvgPitLossSeconds float64 `yaml:"avgPitLossSeconds"` // time lost per pit stop
	DefaultStintLaps  float64 `yaml:"defaultStintLaps"`  // stint length when no data exists
	AvgFuelPerLap     float64 `yaml:"avgFuelPerLap"`     // fallback consumption, liters
	IncidentLimit     int     `yaml:"incidentLimit"`     // incident limit shown to consumers
}

func DefaultTuning() Tuning {
	return Tuning{
		ActivityGain:      2.5,
		Tau:               4.0,
		RateScale:         2.0,
		WeightHistory:     0.6,
		WeightRate:        0.4,
		TempLow:           15.0,
		TempHigh:          55.0,
		RainFactor:        0.5,
		PublishSeconds:    180,
		AvgPitLossSeconds: 50.0,
		DefaultStintLaps:  30.0,
		AvgFuelPerLap:     3.2,
		IncidentLimit:     0,
	}
}

func (t Tuning) PublishInterval() time.Duration {
	return time.Duration(t.PublishSeconds * float64(time.Second))
}

// TuningProvider serves the current tuning profile to the polling loop and
// reloads it when the backing file changes. Current() is safe for concurrent
// use; the watcher goroutine is the only writer besides Reload.
type TuningProvider struct {
	mu      sync.RWMutex
	current Tuning
	path    string
	l       *log.Logger
	watcher *fsnotify.Watcher
}

func NewTuningProvider(path string, l *log.Logger) *TuningProvider {
	ret := &TuningProvider{current: DefaultTuning(), path: path, l: l}
	if path != "" {
		ret.Reload()
	}
	return ret
}

func (p *TuningProvider) Current() Tuning {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Reload reads the profile file on top of the defaults. A missing or
// malformed file keeps the previous values.
func (p *TuningProvider) Reload() {
	data, err := os.ReadFile(p.path)
	if err != nil {
		p.l.Warn("could not read tuning profile",
			log.String("path", p.path), log.ErrorField(err))
		return
	}
	next := DefaultTuning()
	if err := yaml.Unmarshal(data, &next); err != nil {
		p.l.Warn("could not parse tuning profile",
			log.String("path", p.path), log.ErrorField(err))
		return
	}
	p.mu.Lock()
	p.current = next
	p.mu.Unlock()
	p.l.Info("tuning profile loaded", log.String("path", p.path))
}

// Watch reloads the profile whenever the file is written. Returns immediately;
// the watcher lives until Close is called.
func (p *TuningProvider) Watch() error {
	if p.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(p.path); err != nil {
		watcher.Close()
		return err
	}
	p.watcher = watcher
	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) {
					p.Reload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				p.l.Warn("tuning profile watcher", log.ErrorField(err))
			}
		}
	}()
	return nil
}

func (p *TuningProvider) Close() {
	if p.watcher != nil {
		p.watcher.Close()
	}
}
