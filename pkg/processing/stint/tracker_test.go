//nolint:funlen // ok for tests
package stint

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestTracker_Process(t *testing.T) {
	type step struct {
		onPit []bool
		laps  []int
	}
	tests := []struct {
		name        string
		steps       []step
		wantHistory map[int][]int
		wantInPit   map[int]bool
	}{
		{
			name: "pit entry after long stint records history",
			steps: []step{
				{onPit: []bool{false}, laps: []int{0}},
				{onPit: []bool{true}, laps: []int{12}},
			},
			wantHistory: map[int][]int{0: {12}},
			wantInPit:   map[int]bool{0: true},
		},
		{
			name: "short stint is treated as a pit-flag blip",
			steps: []step{
				{onPit: []bool{false}, laps: []int{0}},
				{onPit: []bool{true}, laps: []int{3}},
			},
			wantHistory: map[int][]int{0: nil},
			wantInPit:   map[int]bool{0: true},
		},
		{
			name: "pit exit resets the stint start",
			steps: []step{
				{onPit: []bool{false}, laps: []int{0}},
				{onPit: []bool{true}, laps: []int{10}},
				{onPit: []bool{false}, laps: []int{11}},
				{onPit: []bool{true}, laps: []int{19}},
			},
			wantHistory: map[int][]int{0: {10, 8}},
			wantInPit:   map[int]bool{0: true},
		},
		{
			name: "empty arrays skip the tick entirely",
			steps: []step{
				{onPit: []bool{false, false}, laps: []int{0, 0}},
				{onPit: nil, laps: nil},
				{onPit: []bool{true, false}, laps: []int{9, 9}},
			},
			wantHistory: map[int][]int{0: {9}, 1: nil},
			wantInPit:   map[int]bool{0: true, 1: false},
		},
		{
			name: "slots beyond the shorter array are ignored",
			steps: []step{
				{onPit: []bool{false, false}, laps: []int{0}},
				{onPit: []bool{true}, laps: []int{8, 8}},
			},
			wantHistory: map[int][]int{0: {8}},
			wantInPit:   map[int]bool{0: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker()
			for _, s := range tt.steps {
				tr.Process(s.onPit, s.laps)
			}
			for slot, want := range tt.wantHistory {
				if diff := cmp.Diff(want, tr.History(slot)); diff != "" {
					t.Errorf("history slot %d: %s", slot, diff)
				}
			}
			for slot, want := range tt.wantInPit {
				assert.Equal(t, want, tr.InPit(slot), "inPit slot %d", slot)
			}
		})
	}
}

func TestTracker_HistoryEviction(t *testing.T) {
	tr := NewTracker()
	lap := 0
	tr.Process([]bool{false}, []int{lap})
	// seven stints of increasing length, only the last five survive
	for i := 0; i < 7; i++ {
		lap += 10 + i
		tr.Process([]bool{true}, []int{lap})
		tr.Process([]bool{false}, []int{lap})
	}
	if diff := cmp.Diff([]int{12, 13, 14, 15, 16}, tr.History(0)); diff != "" {
		t.Errorf("history not correct: %s", diff)
	}
}

func TestTracker_PersistHook(t *testing.T) {
	calls := 0
	tr := NewTracker(WithPersistHook(func() { calls++ }))

	tr.Process([]bool{false}, []int{0})
	assert.Equal(t, 1, calls, "slot creation persists")

	tr.Process([]bool{false}, []int{1})
	assert.Equal(t, 1, calls, "steady state does not persist")

	tr.Process([]bool{true}, []int{10})
	assert.Equal(t, 2, calls, "pit entry persists")

	tr.Process([]bool{false}, []int{11})
	assert.Equal(t, 3, calls, "pit exit persists")
}

func TestTracker_RestoreExport(t *testing.T) {
	tr := NewTracker()
	tr.Restore(
		map[int]int{2: 14},
		map[int]bool{2: true},
		map[int][]int{2: {8, 9, 10, 11, 12, 13}})

	// oversized history is clipped to the most recent entries
	if diff := cmp.Diff([]int{9, 10, 11, 12, 13}, tr.History(2)); diff != "" {
		t.Errorf("restored history not correct: %s", diff)
	}
	assert.Equal(t, 14, tr.StartLap(2, 0))
	assert.True(t, tr.InPit(2))

	start, inPit, history := tr.Export()
	assert.Equal(t, map[int]int{2: 14}, start)
	assert.Equal(t, map[int]bool{2: true}, inPit)
	if diff := cmp.Diff(map[int][]int{2: {9, 10, 11, 12, 13}}, history); diff != "" {
		t.Errorf("exported history not correct: %s", diff)
	}
}

func TestTracker_CurrentStint(t *testing.T) {
	tr := NewTracker()
	tr.Process([]bool{false}, []int{5})
	assert.Equal(t, 7, tr.CurrentStint(0, 12))
	assert.Equal(t, 0, tr.CurrentStint(1, 12), "unseen slot")
}
