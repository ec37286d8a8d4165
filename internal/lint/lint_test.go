package lint

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ivlev/formation2video/internal/payload"
)

func mustDecode(t *testing.T, doc string) *payload.Payload {
	t.Helper()
	p, err := payload.Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return p
}

func codes(t *testing.T, c Checker, doc string) []string {
	t.Helper()
	return Codes(c.Check(mustDecode(t, doc)))
}

func TestCheckerRegistry(t *testing.T) {
	tests := []struct {
		variant string
		want    string
		wantErr bool
	}{
		{"geometry", "geometry", false},
		{"", "geometry", false}, // default
		{"timing", "timing", false},
		{"schema", "schema", false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.variant, func(t *testing.T) {
			c, err := NewChecker(tt.variant)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewChecker(%q) error = %v, wantErr %v", tt.variant, err, tt.wantErr)
			}
			if !tt.wantErr && c.Name() != tt.want {
				t.Errorf("NewChecker(%q) = %s, want %s", tt.variant, c.Name(), tt.want)
			}
		})
	}

	var names []string
	for _, c := range All() {
		names = append(names, c.Name())
	}
	if diff := cmp.Diff([]string{"schema", "geometry", "timing"}, names); diff != "" {
		t.Errorf("All() mismatch (-want +got):\n%s", diff)
	}
}

func TestGeometryChecker(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want []string
	}{
		{
			name: "clean circle",
			doc: `{"meta": {"formationKind": "circle"},
			  "figures": [{"steps": [{"beats": 4, "primitives": [{"kind": "progress", "who": "all", "delta": 1}]}]}],
			  "topology": {"circle": {"orders": [{"slots": ["A", "B", "C"]}]}}}`,
			want: []string{},
		},
		{
			name: "missing formation kind",
			doc:  `{"meta": {}, "figures": []}`,
			want: []string{CodeMissingFormationKind},
		},
		{
			name: "couple",
			doc:  `{"meta": {"formationKind": "couple"}, "figures": []}`,
			want: []string{CodeUnsupportedFormation},
		},
		{
			name: "primitive without kind",
			doc: `{"meta": {"formationKind": "line"},
			  "figures": [{"steps": [{"beats": 2, "primitives": [{"who": "A"}]}]}],
			  "topology": {"line": {"lines": [{"orders": [{"slots": ["A", "B"]}]}]}}}`,
			want: []string{CodeMissingPrimitiveKind},
		},
		{
			name: "approach in a line",
			doc: `{"meta": {"formationKind": "line"},
			  "figures": [{"steps": [{"beats": 2, "primitives": [{"kind": "approach"}]}]}],
			  "topology": {"line": {"lines": [{"orders": [{"slots": ["A", "B"]}]}]}}}`,
			want: []string{CodeBadApproachRetreat},
		},
		{
			name: "capitalized retreat in a circle",
			doc: `{"meta": {"formationKind": "circle"},
			  "figures": [{"steps": [{"beats": 2, "primitives": [{"kind": "Retreat"}]}]}],
			  "topology": {"circle": {"orders": [{"slots": ["A", "B"]}]}}}`,
			want: []string{CodeBadApproachRetreat},
		},
		{
			name: "capitalized swap with preserve order in a circle",
			doc: `{"meta": {"formationKind": "circle"},
			  "figures": [{"steps": [{"beats": 2, "primitives": [{"kind": "SwapPlaces", "a": "A", "b": "B", "preserveOrder": "true"}]}]}],
			  "topology": {"circle": {"orders": [{"slots": ["A", "B", "C"]}]}}}`,
			want: []string{CodeCircleOrderViolation},
		},
		{
			name: "third row dancers are known",
			doc: `{"meta": {"formationKind": "twoLinesFacing"},
			  "figures": [{"steps": [{"beats": 2, "primitives": [{"kind": "swapPlaces", "a": "C", "b": "D"}, {"kind": "move", "frame": "formation", "who": "E"}]}]}],
			  "topology": {"twoLines": {"lines": [
			    {"id": "M", "orders": [{"slots": ["A"]}]},
			    {"id": "W", "orders": [{"slots": ["B"]}]},
			    {"id": "X", "orders": [{"slots": ["C", "D", "E"]}]}]}}}`,
			want: []string{},
		},
		{
			name: "approach in two lines",
			doc: `{"meta": {"formationKind": "twoLinesFacing"},
			  "figures": [{"steps": [{"beats": 2, "primitives": [{"kind": "approach"}, {"kind": "retreat"}]}]}],
			  "topology": {"twoLines": {"lines": [{"id": "M", "orders": [{"slots": ["A"]}]}, {"id": "W", "orders": [{"slots": ["B"]}]}]}}}`,
			want: []string{},
		},
		{
			name: "preserve order with a crossing in a circle",
			doc: `{"meta": {"formationKind": "circle"},
			  "figures": [{"steps": [
			    {"beats": 2, "primitives": [{"kind": "swapPlaces", "a": "A", "b": "B", "preserveOrder": "true"}]},
			    {"beats": 2, "primitives": [{"kind": "pass", "a": "B", "b": "C"}]}]}],
			  "topology": {"circle": {"orders": [{"slots": ["A", "B", "C"]}]}}}`,
			want: []string{CodeCircleOrderViolation},
		},
		{
			name: "unknown dancers",
			doc: `{"meta": {"formationKind": "line"},
			  "figures": [{"steps": [{"beats": 2, "who": "A, Z", "primitives": [{"kind": "swapPlaces", "a": "A", "b": "Q"}]}]}],
			  "topology": {"line": {"lines": [{"orders": [{"slots": ["A", "B"]}]}]}}}`,
			want: []string{CodeUnknownDancer},
		},
		{
			name: "duplicate slot",
			doc: `{"meta": {"formationKind": "circle"}, "figures": [],
			  "topology": {"circle": {"orders": [{"slots": ["A", "B", "A"]}]}}}`,
			want: []string{CodeDuplicateSlot},
		},
	}

	g := NewGeometryChecker()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, codes(t, g, tt.doc)); diff != "" {
				t.Errorf("codes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGeometryUnknownDancerReportedOnce(t *testing.T) {
	p := mustDecode(t, `{"meta": {"formationKind": "line"},
	  "figures": [{"steps": [{"beats": 2, "primitives": [{"kind": "move", "who": "Z"}, {"kind": "move", "who": "Z"}]}]}],
	  "topology": {"line": {"lines": [{"orders": [{"slots": ["A", "B"]}]}]}}}`)
	issues := NewGeometryChecker().Check(p)
	if got := Counts(issues)[CodeUnknownDancer]; got != 1 {
		t.Errorf("Expected one unknown_dancer issue, got %d: %v", got, issues)
	}
}

func TestParseMeter(t *testing.T) {
	tests := []struct {
		raw    string
		ok     bool
		bar    int
		legacy bool
	}{
		{"3/4", true, 3, false},
		{" 7/8 ", true, 7, false},
		{"2+2+3/8", true, 3, false},
		{"9/16", true, 4, true},
		{"4", false, 0, false},
		{"/4", false, 0, false},
		{"3/4/4", false, 0, false},
		{"0/4", false, 0, false},
		{"3/x", false, 0, false},
		{"2++3/8", false, 0, false},
	}
	for _, tt := range tests {
		m, ok := ParseMeter(tt.raw)
		if ok != tt.ok {
			t.Errorf("ParseMeter(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
			continue
		}
		if ok && (m.BarLength != tt.bar || m.NineSixteen != tt.legacy) {
			t.Errorf("ParseMeter(%q) = bar %d legacy %v, want %d %v", tt.raw, m.BarLength, m.NineSixteen, tt.bar, tt.legacy)
		}
	}
}

func TestMeterAligns(t *testing.T) {
	m, _ := ParseMeter("9/16")
	for total, want := range map[int]bool{0: true, 4: true, 6: true, 8: true, 3: false} {
		if got := m.Aligns(total); got != want {
			t.Errorf("9/16 Aligns(%d) = %v, want %v", total, got, want)
		}
	}
	m, _ = ParseMeter("3/4")
	if m.Aligns(4) || !m.Aligns(6) {
		t.Error("3/4 should align on multiples of 3 only")
	}
}

func TestTimingChecker(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want []string
	}{
		{
			name: "on meter",
			doc: `{"meta": {"meter": "3/4"}, "figures": [
			  {"steps": [{"beats": 3}, {"beats": 3}]}]}`,
			want: []string{},
		},
		{
			name: "no meter",
			doc:  `{"meta": {}, "figures": [{"steps": [{"beats": 5}]}]}`,
			want: []string{},
		},
		{
			name: "bad meter",
			doc:  `{"meta": {"meter": "three/four"}, "figures": [{"steps": [{"beats": 5}]}]}`,
			want: []string{CodeBadMeterFormat},
		},
		{
			name: "off meter",
			doc: `{"meta": {"meter": "2/4"}, "figures": [
			  {"name": "Walk", "steps": [{"beats": 3}]}]}`,
			want: []string{CodeOffMeterFigure},
		},
		{
			name: "additive",
			doc: `{"meta": {"meter": "2+2+3/8"}, "figures": [
			  {"steps": [{"beats": 1}, {"beats": 2}]}, {"steps": [{"beats": 4}]}]}`,
			want: []string{CodeOffMeterFigure},
		},
		{
			name: "primitives without counts",
			doc: `{"meta": {"meter": "2/4"}, "figures": [
			  {"steps": [{"beats": "0", "primitives": [{"kind": "progress"}]}, {"beats": 2}]}]}`,
			want: []string{CodeZeroBeats},
		},
	}

	c := NewTimingChecker()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, codes(t, c, tt.doc)); diff != "" {
				t.Errorf("codes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSchemaChecker(t *testing.T) {
	c := NewSchemaChecker()

	ok := `{"meta": {"formationKind": "line", "tempoBpm": 120}, "figures": [
	  {"id": "f1", "steps": [{"beats": "4", "primitives": [{"kind": "progress", "delta": -1}]}]}],
	  "topology": {"line": {"lines": [{"orders": [{"phase": "initial", "slots": ["A", "B"]}]}]}}}`
	if issues := c.Check(mustDecode(t, ok)); len(issues) != 0 {
		t.Errorf("Expected a valid document, got %v", issues)
	}

	bad := `{"meta": {"formationKind": 3}, "figures": [{"steps": [{"primitives": [{"who": "A"}]}]}]}`
	issues := c.Check(mustDecode(t, bad))
	if len(issues) < 2 {
		t.Fatalf("Expected at least two violations, got %v", issues)
	}
	for _, i := range issues {
		if i.Code != CodeSchemaViolation {
			t.Errorf("Unexpected code %q", i.Code)
		}
	}

	if issues := c.Check(mustDecode(t, `{"meta": {}}`)); len(issues) != 1 {
		t.Errorf("Expected missing figures to be reported once, got %v", issues)
	}
	if issues := c.Check(&payload.Payload{}); issues != nil {
		t.Errorf("Expected no findings without a raw document, got %v", issues)
	}
}

func TestRun(t *testing.T) {
	p := mustDecode(t, `{"meta": {"meter": "2/4"}, "figures": [{"steps": [{"beats": 3}]}]}`)
	got := Codes(Run(p, All()...))
	want := []string{CodeMissingFormationKind, CodeOffMeterFigure}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Run mismatch (-want +got):\n%s", diff)
	}
}
