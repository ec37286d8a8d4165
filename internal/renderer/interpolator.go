package renderer

import (
	"maps"
	"math"
	"slices"

	"github.com/ivlev/formation2video/internal/formation"
	"github.com/ivlev/formation2video/internal/timeline"
)

// Frame is a formation layout at a fractional count, ready to be drawn
type Frame struct {
	T             float64                    `json:"t"`
	FormationKind formation.Kind             `json:"formationKind"`
	IDs           []string                   `json:"ids"`
	Separation    float64                    `json:"separation"`
	Positions     map[string]formation.Point `json:"positions"`
}

// Interpolate blends two adjacent snapshots. alpha is clamped to [0, 1].
// An id present in only one snapshot holds that snapshot's position.
func Interpolate(a, b formation.Snapshot, alpha float64) Frame {
	alpha = clamp01(alpha)

	ids := slices.Concat(a.IDs, b.IDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	if ids == nil {
		ids = []string{}
	}

	positions := make(map[string]formation.Point, len(ids))
	for _, id := range ids {
		pa, okA := a.Positions[id]
		pb, okB := b.Positions[id]
		switch {
		case !okA && !okB:
			continue
		case !okB:
			pb = pa
		case !okA:
			pa = pb
		}
		positions[id] = formation.Point{
			X: lerp(pa.X, pb.X, alpha),
			Y: lerp(pa.Y, pb.Y, alpha),
		}
	}

	kind := a.FormationKind
	if kind == "" {
		kind = b.FormationKind
	}
	return Frame{
		T:             float64(a.T) + alpha,
		FormationKind: kind,
		IDs:           ids,
		Separation:    lerp(a.Separation, b.Separation, alpha),
		Positions:     positions,
	}
}

// FrameAt returns the frame at continuous count tf, clamped to the snapshot
// range. snapshots[i] must be the capture at count i.
func FrameAt(snapshots []formation.Snapshot, tf float64) Frame {
	if len(snapshots) == 0 {
		return Frame{IDs: []string{}, Positions: map[string]formation.Point{}}
	}
	total := len(snapshots) - 1
	if math.IsNaN(tf) {
		tf = 0
	}
	tf = math.Max(0, math.Min(float64(total), tf))

	lo := int(math.Floor(tf))
	hi := min(lo+1, total)
	return Interpolate(snapshots[lo], snapshots[hi], tf-float64(lo))
}

// Table is the immutable snapshot table of one payload. It serves both
// integer scrubbing (At) and continuous playback (FrameAt).
type Table struct {
	snapshots []formation.Snapshot
}

// NewTable replays tl from initial and keeps the resulting snapshots.
func NewTable(initial formation.State, tl timeline.Timeline) *Table {
	return &Table{snapshots: formation.BuildSnapshots(initial, tl)}
}

// TotalCounts is the last count of the table.
func (t *Table) TotalCounts() int {
	return max(0, len(t.snapshots)-1)
}

// Snapshots returns a copy of the snapshot slice.
func (t *Table) Snapshots() []formation.Snapshot {
	return slices.Clone(t.snapshots)
}

// At returns the frame at an integer count, clamped to the table.
func (t *Table) At(count int) Frame {
	return FrameAt(t.snapshots, float64(count))
}

// FrameAt returns the interpolated frame at continuous count tf.
func (t *Table) FrameAt(tf float64) Frame {
	return FrameAt(t.snapshots, tf)
}

// Clone returns a deep copy of the frame.
func (f Frame) Clone() Frame {
	f.IDs = slices.Clone(f.IDs)
	f.Positions = maps.Clone(f.Positions)
	return f
}

// lerp performs linear interpolation between a and b
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clamp01(t float64) float64 {
	if math.IsNaN(t) {
		return 0
	}
	return math.Max(0, math.Min(1, t))
}
