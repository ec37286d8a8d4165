package formation

import (
	"maps"
	"slices"

	"github.com/ivlev/formation2video/internal/timeline"
)

// Snapshot is an immutable capture of a state at an integer count.
type Snapshot struct {
	T             int              `json:"t" yaml:"t"`
	FormationKind Kind             `json:"formationKind" yaml:"formationKind"`
	IDs           []string         `json:"ids" yaml:"ids"`
	Separation    float64          `json:"separation" yaml:"separation"`
	Positions     map[string]Point `json:"positions" yaml:"positions"`
}

// Capture copies the current layout of s. Ids are the placed dancers.
func Capture(s State, t int) Snapshot {
	l := s.layoutRef()
	ids := slices.Sorted(maps.Keys(l.positions))
	if ids == nil {
		ids = []string{}
	}
	return Snapshot{
		T:             t,
		FormationKind: s.Kind(),
		IDs:           ids,
		Separation:    l.separation,
		Positions:     maps.Clone(l.positions),
	}
}

// BuildSnapshots replays tl on a copy of initial and returns one snapshot
// per count from 0 to tl.TotalCounts. Before capturing count t, every event
// stamped at or before t has been applied, in timeline order.
func BuildSnapshots(initial State, tl timeline.Timeline) []Snapshot {
	snaps, _ := Replay(initial, tl)
	return snaps
}

// Replay is BuildSnapshots that also reports what each event did.
// outcomes[i] belongs to tl.Events[i]; events stamped after the last
// count are never applied and stay Ignored.
func Replay(initial State, tl timeline.Timeline) ([]Snapshot, []Outcome) {
	total := max(0, tl.TotalCounts)
	state := initial.Clone()
	snaps := make([]Snapshot, 0, total+1)
	outcomes := make([]Outcome, len(tl.Events))

	next := 0
	for t := 0; t <= total; t++ {
		for next < len(tl.Events) && tl.Events[next].T <= t {
			outcomes[next] = Apply(state, tl.Events[next])
			next++
		}
		snaps = append(snaps, Capture(state, t))
	}
	return snaps, outcomes
}
