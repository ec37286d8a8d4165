package timeline

import (
	"math"

	"github.com/ivlev/formation2video/internal/payload"
)

// Compile flattens figures, steps and primitives into a time-stamped event
// list. Each step first advances the running count by its beats, then stamps
// its primitives with the new count.
func Compile(p *payload.Payload) Timeline {
	tl := Timeline{Events: []Event{}}
	if p == nil {
		return tl
	}

	t := 0
	for _, fig := range p.Figures {
		for _, step := range fig.Steps {
			t = advance(t, step.Beats)
			for _, prim := range step.Primitives {
				who := prim.Who
				if who == "" {
					who = step.Who
				}
				tl.Events = append(tl.Events, Event{
					T:             t,
					Kind:          prim.Kind.String(),
					A:             prim.A.String(),
					B:             prim.B.String(),
					Delta:         prim.Delta.String(),
					Dir:           prim.Dir.String(),
					Frame:         prim.Frame.String(),
					Who:           who.String(),
					PreserveOrder: IsTruthy(prim.PreserveOrder.String()),
				})
			}
		}
	}
	tl.TotalCounts = t
	return tl
}

// MaxCounts caps a single step and the whole timeline. Replay keeps one
// snapshot per count, so larger beats values saturate here instead of
// overflowing int.
const MaxCounts = 1 << 16

// AsCount converts a beats attribute to whole counts. Non-numeric,
// non-finite and non-positive values count as 0; values above MaxCounts
// count as MaxCounts.
func AsCount(beats payload.Text) int {
	n, ok := beats.Float()
	if !ok || n <= 0 {
		return 0
	}
	return int(math.Min(math.Round(n), MaxCounts))
}

// advance adds the beats of one step to t, saturating at MaxCounts.
func advance(t int, beats payload.Text) int {
	return min(t+AsCount(beats), MaxCounts)
}

// FigureBounds returns the cumulative count at which each figure ends.
func FigureBounds(p *payload.Payload) []int {
	if p == nil {
		return nil
	}
	bounds := make([]int, 0, len(p.Figures))
	t := 0
	for _, fig := range p.Figures {
		for _, step := range fig.Steps {
			t = advance(t, step.Beats)
		}
		bounds = append(bounds, t)
	}
	return bounds
}
