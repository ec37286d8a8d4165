// Package formation holds the formation state machine: one state variant
// per formation kind, the event applier and the snapshot builder.
package formation

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/ivlev/formation2video/internal/payload"
)

// Kind names a formation topology.
type Kind string

const (
	KindCircle         Kind = "circle"
	KindLine           Kind = "line"
	KindTwoLinesFacing Kind = "twoLinesFacing"
)

const (
	DefaultSeparation  = 0.8
	DefaultRadius      = 0.85
	MinSeparation      = 0.25
	MaxSeparation      = 1.4
	SeparationStep     = 0.1
	MoveStepX          = 0.14
	MaxOffsetX         = 1.2
	DefaultLineID      = "line"
	defaultAngleOffset = -1.5707963267948966 // -pi/2, first dancer at the top
)

// ErrUnsupportedFormation is returned by New for kinds the state machine
// cannot replay (for example "couple").
var ErrUnsupportedFormation = errors.New("unsupported formation kind")

// Supported reports whether the state machine handles kind.
func Supported(kind string) bool {
	switch Kind(kind) {
	case KindCircle, KindLine, KindTwoLinesFacing:
		return true
	}
	return false
}

// Point is a position in formation space; both axes roughly span [-1.4, 1.4].
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// State is the live, mutable formation. It is implemented by *Circle, *Line
// and *TwoLinesFacing only.
type State interface {
	Kind() Kind
	IDs() []string
	Position(id string) (Point, bool)
	Separation() float64
	Clone() State

	derive()
	layoutRef() *layout
}

// New builds the initial state for a payload from its topology.
func New(p *payload.Payload) (State, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: no payload", ErrUnsupportedFormation)
	}
	kind := p.Meta.FormationKind.String()
	switch Kind(kind) {
	case KindCircle:
		return newCircle(p.Topology.Circle), nil
	case KindLine:
		return newLine(p.Topology.Line), nil
	case KindTwoLinesFacing:
		return newTwoLinesFacing(p.Topology.TwoLines), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormation, kind)
}

// layout is the derived part shared by every variant.
type layout struct {
	ids        []string
	positions  map[string]Point
	separation float64
}

func newLayout() layout {
	return layout{
		ids:        []string{},
		positions:  map[string]Point{},
		separation: DefaultSeparation,
	}
}

func (l *layout) IDs() []string { return slices.Clone(l.ids) }

func (l *layout) Position(id string) (Point, bool) {
	p, ok := l.positions[id]
	return p, ok
}

func (l *layout) Separation() float64 { return l.separation }

func (l *layout) layoutRef() *layout { return l }

func (l *layout) clone() layout {
	return layout{
		ids:        slices.Clone(l.ids),
		positions:  maps.Clone(l.positions),
		separation: l.separation,
	}
}

// swapPositions is the legacy fallback for swaps that no ordering can
// express. Any later re-derivation discards it.
func (l *layout) swapPositions(a, b string) Outcome {
	if a == b {
		return Ignored
	}
	pa, okA := l.positions[a]
	pb, okB := l.positions[b]
	if !okA || !okB {
		return Ignored
	}
	l.positions[a], l.positions[b] = pb, pa
	return SwappedPositionsOnly
}

// shiftX moves targets sideways in place without touching any ordering.
func (l *layout) shiftX(targets []string, dx float64) Outcome {
	out := Ignored
	for _, id := range targets {
		p, ok := l.positions[id]
		if !ok {
			continue
		}
		p.X = clamp(p.X+dx, -MaxOffsetX, MaxOffsetX)
		l.positions[id] = p
		out = Applied
	}
	return out
}

// spread places n dancers evenly across x in [-1, 1]; one dancer sits at 0.
func spread(n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{0}
	}
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = -1 + 2*float64(i)/float64(n-1)
	}
	return xs
}

// uniqueSlots drops repeated ids, keeping the first occurrence.
func uniqueSlots(slots []string) []string {
	seen := make(map[string]bool, len(slots))
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func sortedUnique(ids ...[]string) []string {
	var all []string
	for _, xs := range ids {
		all = append(all, xs...)
	}
	out := uniqueSlots(all)
	slices.Sort(out)
	return out
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
