package formation

import (
	"math"
	"slices"

	"github.com/ivlev/formation2video/internal/payload"
	"github.com/ivlev/formation2video/internal/timeline"
)

// Circle places its order evenly around a ring, starting at AngleOffset.
type Circle struct {
	layout
	Order       []string
	Radius      float64
	AngleOffset float64
}

func newCircle(topo payload.CircleTopology) *Circle {
	c := &Circle{
		layout:      newLayout(),
		Order:       uniqueSlots(payload.InitialSlots(topo.Orders)),
		Radius:      DefaultRadius,
		AngleOffset: defaultAngleOffset,
	}
	c.derive()
	return c
}

func (c *Circle) Kind() Kind { return KindCircle }

func (c *Circle) Clone() State {
	return &Circle{
		layout:      c.layout.clone(),
		Order:       slices.Clone(c.Order),
		Radius:      c.Radius,
		AngleOffset: c.AngleOffset,
	}
}

func (c *Circle) derive() {
	n := len(c.Order)
	c.positions = make(map[string]Point, n)
	for k, id := range c.Order {
		angle := c.AngleOffset + 2*math.Pi*float64(k)/float64(max(1, n))
		c.positions[id] = Point{X: math.Cos(angle) * c.Radius, Y: math.Sin(angle) * c.Radius}
	}
	c.ids = sortedUnique(c.Order)
}

func (c *Circle) apply(ev timeline.Event) Outcome {
	switch ev.NormalizedKind() {
	case timeline.KindProgress:
		if len(c.Order) == 0 {
			return Ignored
		}
		c.Order = rotateForward(c.Order, ev.DeltaValue())
		c.derive()
		return Applied

	case timeline.KindSwapPlaces:
		if ev.A == "" || ev.B == "" {
			return Ignored
		}
		next := slices.Clone(c.Order)
		if !swapInOrder(next, ev.A, ev.B) {
			return c.swapPositions(ev.A, ev.B)
		}
		if ev.PreserveOrder && !isCyclicEquivalent(c.Order, next) {
			return Rejected
		}
		c.Order = next
		c.derive()
		return SwappedInOrder

	case timeline.KindMove:
		if ev.Frame != timeline.FrameFormation || len(c.Order) == 0 {
			return Ignored
		}
		step := ringStep(ev.Dir)
		if step == 0 {
			return Ignored
		}
		targets := resolveWho(ev.Who, c.ids)
		var next []string
		if len(targets) == 0 || len(targets) == len(c.Order) {
			next = rotateForward(c.Order, step)
		} else {
			next = rotateTargets(c.Order, targets, step)
		}
		if ev.PreserveOrder && !isCyclicEquivalent(c.Order, next) {
			return Rejected
		}
		if slices.Equal(c.Order, next) {
			return Ignored
		}
		c.Order = next
		c.derive()
		return Applied
	}
	return Ignored
}
