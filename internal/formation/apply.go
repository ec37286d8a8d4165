package formation

import (
	"slices"
	"strings"
	"unicode"

	"github.com/ivlev/formation2video/internal/timeline"
)

// Outcome tags what an event did to the state.
type Outcome int

const (
	// Ignored: unknown kind, missing arguments, or nothing to act on.
	Ignored Outcome = iota
	// Applied: the structure (or, for row moves, the positions) changed.
	Applied
	// Rejected: the preserve-order guard refused the change.
	Rejected
	// SwappedInOrder: a swap exchanged two slots of an ordering.
	SwappedInOrder
	// SwappedPositionsOnly: no ordering held both ids, so the derived
	// positions were exchanged directly.
	SwappedPositionsOnly
)

func (o Outcome) String() string {
	switch o {
	case Ignored:
		return "ignored"
	case Applied:
		return "applied"
	case Rejected:
		return "rejected"
	case SwappedInOrder:
		return "swapped-in-order"
	case SwappedPositionsOnly:
		return "swapped-positions-only"
	}
	return "unknown"
}

// Apply runs one event against s in place.
func Apply(s State, ev timeline.Event) Outcome {
	switch st := s.(type) {
	case *Circle:
		return st.apply(ev)
	case *Line:
		return st.apply(ev)
	case *TwoLinesFacing:
		return st.apply(ev)
	}
	return Ignored
}

// rotateForward returns a copy where every id has advanced delta slots:
// [A B C] by 1 gives [C A B].
func rotateForward(order []string, delta int) []string {
	n := len(order)
	if n == 0 {
		return []string{}
	}
	d := ((delta % n) + n) % n
	out := make([]string, n)
	for i, id := range order {
		out[(i+d)%n] = id
	}
	return out
}

// swapInOrder exchanges a and b in place when both are present.
func swapInOrder(order []string, a, b string) bool {
	ia := slices.Index(order, a)
	ib := slices.Index(order, b)
	if ia < 0 || ib < 0 || ia == ib {
		return false
	}
	order[ia], order[ib] = order[ib], order[ia]
	return true
}

// isCyclicEquivalent reports whether b is a rotation of a.
func isCyclicEquivalent(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	start := slices.Index(b, a[0])
	if start < 0 {
		return false
	}
	n := len(a)
	for i := range a {
		if a[i] != b[(start+i)%n] {
			return false
		}
	}
	return true
}

// rotateTargets moves only the targeted ids around the ring: each targeted
// id takes the slot of the next targeted id in the rotation direction.
// Untargeted slots keep their ids. With every id targeted this equals
// rotateForward by step.
func rotateTargets(order, targets []string, step int) []string {
	out := slices.Clone(order)
	var idx []int
	for i, id := range order {
		if slices.Contains(targets, id) {
			idx = append(idx, i)
		}
	}
	n := len(idx)
	if n < 2 || step == 0 {
		return out
	}
	for i := range idx {
		if step > 0 {
			out[idx[(i+1)%n]] = order[idx[i]]
		} else {
			out[idx[(i-1+n)%n]] = order[idx[i]]
		}
	}
	return out
}

// WhoTokens splits a who attribute on whitespace, ',', '|' or '/'.
func WhoTokens(who string) []string {
	return strings.FieldsFunc(who, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == '|' || r == '/'
	})
}

// resolveWho turns a who attribute into known ids; "all" expands to every id.
func resolveWho(who string, ids []string) []string {
	tokens := WhoTokens(who)
	var out []string
	add := func(id string) {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	for _, tok := range tokens {
		if tok == "all" {
			for _, id := range ids {
				add(id)
			}
			continue
		}
		if slices.Contains(ids, tok) {
			add(tok)
		}
	}
	return out
}

// ringStep maps a move direction to a circle rotation step.
func ringStep(dir string) int {
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "counterclockwise", "ccw":
		return 1
	case "clockwise", "cw":
		return -1
	}
	return 0
}

// sideStep maps a move direction to an x offset for row formations.
func sideStep(dir string) float64 {
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "left", "counterclockwise", "ccw", "west":
		return -MoveStepX
	case "right", "clockwise", "cw", "east":
		return MoveStepX
	}
	return 0
}
