package stint

import (
	"slices"

	"github.com/pitwall-live/telemetry-bridge-go/log"
)

const (
	// stints at or below this length are treated as pit-flag blips
	minStintLaps = 3
	// bounded rolling history of completed stint lengths
	maxHistory = 5
)

// Record tracks the pit/stint state of one car slot.
type Record struct {
	StartLap int
	InPit    bool
	History  []int
}

// Tracker runs the per-slot ON_TRACK/IN_PIT state machine and accumulates
// completed stint lengths. All mutations happen on the polling loop.
type Tracker struct {
	records map[int]*Record
	persist func()
	l       *log.Logger
}

type TrackerOption func(*Tracker)

// WithPersistHook registers a callback invoked synchronously after every
// state-changing event (slot creation, pit entry, pit exit).
func WithPersistHook(hook func()) TrackerOption {
	return func(t *Tracker) {
		t.persist = hook
	}
}

func WithLogger(l *log.Logger) TrackerOption {
	return func(t *Tracker) {
		t.l = l
	}
}

func NewTracker(opts ...TrackerOption) *Tracker {
	ret := &Tracker{
		records: make(map[int]*Record),
		persist: func() {},
		l:       log.Default().Named("stint"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Restore merges a persisted snapshot into the tracker. Existing persisted
// values win over the fresh empty state.
func (t *Tracker) Restore(start map[int]int, inPit map[int]bool, history map[int][]int) {
	for slot, lap := range start {
		t.record(slot, lap).StartLap = lap
	}
	for slot, flag := range inPit {
		t.record(slot, 0).InPit = flag
	}
	for slot, hist := range history {
		if len(hist) > maxHistory {
			hist = hist[len(hist)-maxHistory:]
		}
		t.record(slot, 0).History = slices.Clone(hist)
	}
}

func (t *Tracker) record(slot, startLap int) *Record {
	rec, ok := t.records[slot]
	if !ok {
		rec = &Record{StartLap: startLap}
		t.records[slot] = rec
	}
	return rec
}

// Process advances the state machine for every slot present in both arrays.
// Absent or empty arrays skip the tick entirely: no mutation, no persistence.
func (t *Tracker) Process(onPit []bool, laps []int) {
	if len(onPit) == 0 || len(laps) == 0 {
		return
	}
	n := min(len(onPit), len(laps))
	for slot := 0; slot < n; slot++ {
		currLap := laps[slot]
		rec, ok := t.records[slot]
		if !ok {
			// first sight of this slot: ON_TRACK, stint starts now
			rec = &Record{StartLap: currLap}
			t.records[slot] = rec
			t.persist()
		}

		switch {
		case onPit[slot] && !rec.InPit:
			stintLen := currLap - rec.StartLap
			if stintLen > minStintLaps {
				rec.History = append(rec.History, stintLen)
				if len(rec.History) > maxHistory {
					rec.History = rec.History[1:]
				}
				t.l.Debug("stint completed",
					log.Int("slot", slot), log.Int("laps", stintLen))
			}
			rec.InPit = true
			t.persist()
		case !onPit[slot] && rec.InPit:
			rec.StartLap = currLap
			rec.InPit = false
			t.persist()
		}
	}
}

// History returns the completed stint lengths of a slot, oldest first.
func (t *Tracker) History(slot int) []int {
	if rec, ok := t.records[slot]; ok {
		return rec.History
	}
	return nil
}

// StartLap returns the lap the current stint started on, or def for an
// unseen slot.
func (t *Tracker) StartLap(slot, def int) int {
	if rec, ok := t.records[slot]; ok {
		return rec.StartLap
	}
	return def
}

// CurrentStint returns the lap count of the in-progress stint.
func (t *Tracker) CurrentStint(slot, currLap int) int {
	if rec, ok := t.records[slot]; ok {
		return currLap - rec.StartLap
	}
	return 0
}

func (t *Tracker) InPit(slot int) bool {
	if rec, ok := t.records[slot]; ok {
		return rec.InPit
	}
	return false
}

// Export copies the tracker state into the per-slot maps of the durable
// snapshot.
func (t *Tracker) Export() (start map[int]int, inPit map[int]bool, history map[int][]int) {
	start = make(map[int]int, len(t.records))
	inPit = make(map[int]bool, len(t.records))
	history = make(map[int][]int, len(t.records))
	for slot, rec := range t.records {
		start[slot] = rec.StartLap
		inPit[slot] = rec.InPit
		history[slot] = slices.Clone(rec.History)
	}
	return start, inPit, history
}
