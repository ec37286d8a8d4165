package trace

import (
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ivlev/formation2video/internal/formation"
	"github.com/ivlev/formation2video/internal/payload"
)

const lineDoc = `{"meta": {"formationKind": "line"},
  "figures": [{"steps": [
    {"beats": 4, "primitives": [{"kind": "progress", "delta": "1"}]},
    {"beats": 2, "primitives": [{"kind": "swapPlaces", "a": "A", "b": "Z"}, {"kind": "move", "frame": "formation", "dir": "right", "who": "B"}]}
  ]}],
  "topology": {"line": {"lines": [{"id": "L", "orders": [{"phase": "initial", "slots": ["A", "B", "C"]}]}]}}}`

func build(t *testing.T, doc string) *Document {
	t.Helper()
	p, err := payload.Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	d, err := Build("kolo.json", p)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return d
}

func TestBuild(t *testing.T) {
	d := build(t, lineDoc)

	if d.Source != "kolo.json" || d.FormationKind != "line" {
		t.Errorf("Unexpected header: %+v", d)
	}
	if d.TotalCounts != 6 || d.EventCount != 3 {
		t.Errorf("Expected 6 counts and 3 events, got %d and %d", d.TotalCounts, d.EventCount)
	}
	if len(d.Snapshots) != 7 {
		t.Fatalf("Expected 7 snapshots, got %d", len(d.Snapshots))
	}
	if diff := cmp.Diff(map[string]int{"applied": 2, "ignored": 1}, d.Outcomes); diff != "" {
		t.Errorf("Outcomes mismatch (-want +got):\n%s", diff)
	}

	want := map[string]formation.Point{"C": {X: -1}, "A": {X: 0}, "B": {X: 1.14}}
	if diff := cmp.Diff(want, d.Snapshots[6].Positions); diff != "" {
		t.Errorf("Final positions mismatch (-want +got):\n%s", diff)
	}
	if len(d.TraceHash) != 64 {
		t.Errorf("Expected a hex sha256, got %q", d.TraceHash)
	}
}

func TestHashStability(t *testing.T) {
	a := build(t, lineDoc)
	b := build(t, lineDoc)
	if a.TraceHash != b.TraceHash {
		t.Fatalf("Hash is not stable: %s vs %s", a.TraceHash, b.TraceHash)
	}

	changed := build(t, strings.Replace(lineDoc, `"delta": "1"`, `"delta": "2"`, 1))
	if changed.TraceHash == a.TraceHash {
		t.Error("Expected the hash to change with the event list")
	}

	// The source label is not part of the hash.
	p, _ := payload.Decode([]byte(lineDoc))
	other, err := Build("elsewhere.json", p)
	if err != nil {
		t.Fatal(err)
	}
	if other.TraceHash != a.TraceHash {
		t.Error("Expected the source label to leave the hash alone")
	}
}

func TestBuildUnsupported(t *testing.T) {
	p, _ := payload.Decode([]byte(`{"meta": {"formationKind": "couple"}}`))
	if _, err := Build("couple.json", p); !errors.Is(err, formation.ErrUnsupportedFormation) {
		t.Errorf("Expected ErrUnsupportedFormation, got %v", err)
	}
}

func TestWriteRead(t *testing.T) {
	d := build(t, lineDoc)
	dir := t.TempDir()

	for _, name := range []string{"trace.json", "trace.yaml", "trace.json.zst", "nested/trace.yml.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := Write(path, d); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
			got, err := Read(path)
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			if diff := cmp.Diff(d, got); diff != "" {
				t.Errorf("Document mismatch (-want +got):\n%s", diff)
			}
			if err := Verify(got); err != nil {
				t.Errorf("Verify failed: %v", err)
			}
		})
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	d := build(t, lineDoc)
	d.Snapshots[2].Separation = 0.9
	if err := Verify(d); err == nil {
		t.Error("Expected a hash mismatch")
	}
}

func TestCanonicalJSON(t *testing.T) {
	v := struct {
		B int     `json:"b"`
		A float64 `json:"a"`
		C []int   `json:"c"`
	}{B: 1, A: 0.5, C: []int{3, 1}}

	got, err := canonicalJSON(v)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"a":0.5,"b":1,"c":[3,1]}` {
		t.Errorf("Unexpected canonical form: %s", got)
	}
}

func TestR6(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.1234564, 0.123456},
		{0.1234566, 0.123457},
		{-1e-9, 0},
		{1.4, 1.4},
	}
	for _, tt := range tests {
		got := r6(tt.in)
		if got != tt.want {
			t.Errorf("r6(%v) = %v, want %v", tt.in, got, tt.want)
		}
		if math.Signbit(got) && got == 0 {
			t.Errorf("r6(%v) returned negative zero", tt.in)
		}
	}
}

func TestSummary(t *testing.T) {
	d := build(t, lineDoc)
	s := d.Summary()
	for _, want := range []string{"kolo.json", "kind=line", "counts=6", "events=3", "applied=2", "ignored=1", "hash=" + d.TraceHash} {
		if !strings.Contains(s, want) {
			t.Errorf("Summary %q lacks %q", s, want)
		}
	}
}
