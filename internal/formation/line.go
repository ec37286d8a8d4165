package formation

import (
	"slices"

	"github.com/ivlev/formation2video/internal/payload"
	"github.com/ivlev/formation2video/internal/timeline"
)

// Line spreads its order across a single row at y = 0.
type Line struct {
	layout
	LineID string
	Order  []string
}

func newLine(topo payload.LineTopology) *Line {
	l := &Line{layout: newLayout(), Order: []string{}}
	if len(topo.Lines) > 0 {
		first := topo.Lines[0]
		l.LineID = first.ID.String()
		if l.LineID == "" {
			l.LineID = DefaultLineID
		}
		l.Order = uniqueSlots(payload.InitialSlots(first.Orders))
	}
	l.derive()
	return l
}

func (l *Line) Kind() Kind { return KindLine }

func (l *Line) Clone() State {
	return &Line{
		layout: l.layout.clone(),
		LineID: l.LineID,
		Order:  slices.Clone(l.Order),
	}
}

func (l *Line) derive() {
	xs := spread(len(l.Order))
	l.positions = make(map[string]Point, len(l.Order))
	for i, id := range l.Order {
		l.positions[id] = Point{X: xs[i]}
	}
	l.ids = sortedUnique(l.Order)
}

func (l *Line) apply(ev timeline.Event) Outcome {
	switch ev.NormalizedKind() {
	case timeline.KindProgress:
		if len(l.Order) == 0 {
			return Ignored
		}
		l.Order = rotateForward(l.Order, ev.DeltaValue())
		l.derive()
		return Applied

	case timeline.KindSwapPlaces:
		if ev.A == "" || ev.B == "" {
			return Ignored
		}
		if swapInOrder(l.Order, ev.A, ev.B) {
			l.derive()
			return SwappedInOrder
		}
		return l.swapPositions(ev.A, ev.B)

	case timeline.KindMove:
		return l.shift(ev)
	}
	return Ignored
}

// shift handles a formation-frame move for the row-based variants.
func (l *layout) shift(ev timeline.Event) Outcome {
	if ev.Frame != timeline.FrameFormation {
		return Ignored
	}
	dx := sideStep(ev.Dir)
	if dx == 0 {
		return Ignored
	}
	return l.shiftX(resolveWho(ev.Who, l.ids), dx)
}
