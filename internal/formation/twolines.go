package formation

import (
	"slices"

	"github.com/ivlev/formation2video/internal/payload"
	"github.com/ivlev/formation2video/internal/timeline"
)

// Row is one named line of a two-lines formation.
type Row struct {
	ID    string
	Order []string
}

// TwoLinesFacing places the top row at y = +separation and the bottom row
// at y = -separation. Rows other than top and bottom are tracked (progress
// rotates them) but not placed.
type TwoLinesFacing struct {
	layout
	TopID    string
	BottomID string
	Rows     []Row
}

func newTwoLinesFacing(topo payload.TwoLinesTopology) *TwoLinesFacing {
	s := &TwoLinesFacing{
		layout:   newLayout(),
		TopID:    topo.Facing.A.String(),
		BottomID: topo.Facing.B.String(),
		Rows:     []Row{},
	}
	if s.TopID == "" && len(topo.Lines) > 0 {
		s.TopID = topo.Lines[0].ID.String()
	}
	if s.BottomID == "" && len(topo.Lines) > 1 {
		s.BottomID = topo.Lines[1].ID.String()
	}

	for _, line := range topo.Lines {
		id := line.ID.String()
		if id == "" {
			continue
		}
		order := uniqueSlots(payload.InitialSlots(line.Orders))
		if i := s.rowIndex(id); i >= 0 {
			s.Rows[i].Order = order
			continue
		}
		s.Rows = append(s.Rows, Row{ID: id, Order: order})
	}
	s.derive()
	return s
}

func (s *TwoLinesFacing) Kind() Kind { return KindTwoLinesFacing }

func (s *TwoLinesFacing) Clone() State {
	rows := make([]Row, len(s.Rows))
	for i, r := range s.Rows {
		rows[i] = Row{ID: r.ID, Order: slices.Clone(r.Order)}
	}
	return &TwoLinesFacing{
		layout:   s.layout.clone(),
		TopID:    s.TopID,
		BottomID: s.BottomID,
		Rows:     rows,
	}
}

// Row returns the order of the row with the given id.
func (s *TwoLinesFacing) Row(id string) []string {
	if i := s.rowIndex(id); i >= 0 {
		return slices.Clone(s.Rows[i].Order)
	}
	return nil
}

func (s *TwoLinesFacing) rowIndex(id string) int {
	return slices.IndexFunc(s.Rows, func(r Row) bool { return r.ID == id })
}

func (s *TwoLinesFacing) derive() {
	top := s.Row(s.TopID)
	bottom := s.Row(s.BottomID)
	s.positions = make(map[string]Point, len(top)+len(bottom))
	for i, x := range spread(len(top)) {
		s.positions[top[i]] = Point{X: x, Y: s.separation}
	}
	for i, x := range spread(len(bottom)) {
		s.positions[bottom[i]] = Point{X: x, Y: -s.separation}
	}
	s.ids = sortedUnique(top, bottom)
}

func (s *TwoLinesFacing) apply(ev timeline.Event) Outcome {
	switch ev.NormalizedKind() {
	case timeline.KindApproach:
		s.separation = clamp(s.separation-SeparationStep, MinSeparation, MaxSeparation)
		s.derive()
		return Applied

	case timeline.KindRetreat:
		s.separation = clamp(s.separation+SeparationStep, MinSeparation, MaxSeparation)
		s.derive()
		return Applied

	case timeline.KindProgress:
		delta := ev.DeltaValue()
		for i := range s.Rows {
			s.Rows[i].Order = rotateForward(s.Rows[i].Order, delta)
		}
		s.derive()
		return Applied

	case timeline.KindSwapPlaces:
		if ev.A == "" || ev.B == "" {
			return Ignored
		}
		for i := range s.Rows {
			if swapInOrder(s.Rows[i].Order, ev.A, ev.B) {
				s.derive()
				return SwappedInOrder
			}
		}
		return s.swapPositions(ev.A, ev.B)

	case timeline.KindMove:
		return s.shift(ev)
	}
	return Ignored
}
