package lint

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ivlev/formation2video/internal/formation"
	"github.com/ivlev/formation2video/internal/payload"
	"github.com/ivlev/formation2video/internal/timeline"
)

// Issue codes of the geometry checker.
const (
	CodeMissingFormationKind = "missing_formation_kind"
	CodeUnsupportedFormation = "unsupported_formation"
	CodeMissingPrimitiveKind = "missing_primitive_kind"
	CodeBadApproachRetreat   = "bad_formation_for_approach_retreat"
	CodeCircleOrderViolation = "circle_order_violation"
	CodeUnknownDancer        = "unknown_dancer"
	CodeDuplicateSlot        = "duplicate_slot"
)

// GeometryChecker validates the formation kind, the topology and the
// primitives against each other.
type GeometryChecker struct{}

func NewGeometryChecker() *GeometryChecker { return &GeometryChecker{} }

func (g *GeometryChecker) Name() string { return "geometry" }

func (g *GeometryChecker) Check(p *payload.Payload) []Issue {
	if p == nil {
		return nil
	}
	var issues []Issue
	add := func(code, format string, args ...any) {
		issues = append(issues, Issue{Code: code, Message: fmt.Sprintf(format, args...)})
	}

	kind := p.Meta.FormationKind.String()
	switch {
	case kind == "":
		add(CodeMissingFormationKind, "meta.formationKind is required")
	case !formation.Supported(kind):
		add(CodeUnsupportedFormation, "formation kind %q cannot be animated", kind)
	}

	for _, dup := range duplicateSlots(p) {
		add(CodeDuplicateSlot, "slot %q appears more than once in %s", dup.slot, dup.where)
	}

	var ids []string
	if s, err := formation.New(p); err == nil {
		ids = append(s.IDs(), declaredSlots(p)...)
	}
	reported := map[string]bool{}
	unknown := func(token, attr string) {
		if len(ids) == 0 || token == "all" || slices.Contains(ids, token) || reported[token] {
			return
		}
		reported[token] = true
		add(CodeUnknownDancer, "%s %q is not a dancer of the initial formation", attr, token)
	}

	hasPreserveOrder, hasCrossing := false, false
	for fi, fig := range p.Figures {
		for si, step := range fig.Steps {
			for _, prim := range step.Primitives {
				pk := prim.Kind.String()
				if pk == "" {
					add(CodeMissingPrimitiveKind, "figure %d step %d: primitive has no kind", fi+1, si+1)
					continue
				}
				lk := strings.ToLower(pk)
				switch lk {
				case timeline.KindApproach, timeline.KindRetreat:
					if kind != string(formation.KindTwoLinesFacing) {
						add(CodeBadApproachRetreat, "primitive %s requires twoLinesFacing, formation is %q", pk, kind)
					}
				}
				if timeline.IsTruthy(prim.PreserveOrder.String()) {
					hasPreserveOrder = true
				}
				switch lk {
				case "pass", "weave", timeline.KindSwapPlaces:
					hasCrossing = true
				}

				who := prim.Who
				if who == "" {
					who = step.Who
				}
				for _, tok := range formation.WhoTokens(who.String()) {
					unknown(tok, "who")
				}
				if prim.A != "" {
					unknown(prim.A.String(), "a")
				}
				if prim.B != "" {
					unknown(prim.B.String(), "b")
				}
			}
		}
	}

	if kind == string(formation.KindCircle) && hasPreserveOrder && hasCrossing {
		add(CodeCircleOrderViolation, "circle uses preserveOrder together with pass, weave or swapPlaces")
	}
	return issues
}

// declaredSlots lists the initial slots of every row of every topology,
// including rows beyond the two a twoLinesFacing state lays out.
func declaredSlots(p *payload.Payload) []string {
	out := payload.InitialSlots(p.Topology.Circle.Orders)
	for _, l := range p.Topology.Line.Lines {
		out = append(out, payload.InitialSlots(l.Orders)...)
	}
	for _, l := range p.Topology.TwoLines.Lines {
		out = append(out, payload.InitialSlots(l.Orders)...)
	}
	return out
}

type duplicate struct {
	slot  string
	where string
}

// duplicateSlots inspects the initial ordering of every topology entry.
func duplicateSlots(p *payload.Payload) []duplicate {
	var out []duplicate
	scan := func(where string, orders []payload.Order) {
		seen := map[string]bool{}
		for _, s := range payload.InitialSlots(orders) {
			if seen[s] {
				out = append(out, duplicate{slot: s, where: where})
				continue
			}
			seen[s] = true
		}
	}
	scan("circle", p.Topology.Circle.Orders)
	for i, l := range p.Topology.Line.Lines {
		scan(lineName("line", i, l), l.Orders)
	}
	for i, l := range p.Topology.TwoLines.Lines {
		scan(lineName("twoLines", i, l), l.Orders)
	}
	return out
}

func lineName(prefix string, i int, l payload.LineDef) string {
	if l.ID != "" {
		return fmt.Sprintf("%s line %q", prefix, l.ID)
	}
	return fmt.Sprintf("%s line %d", prefix, i+1)
}
