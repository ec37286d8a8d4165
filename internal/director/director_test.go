package director

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ivlev/formation2video/internal/payload"
	"github.com/ivlev/formation2video/internal/timeline"
)

const twoFigures = `{
  "meta": {"formationKind": "circle", "title": "Kolo", "tempoBpm": 120},
  "figures": [
    {"name": "Walk", "steps": [{"beats": 4}]},
    {"id": "f2", "steps": [{"beats": "3"}]}
  ],
  "topology": {"circle": {"orders": [{"slots": ["A", "B"]}]}}
}`

func decode(t *testing.T, doc string) *payload.Payload {
	t.Helper()
	p, err := payload.Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return p
}

func TestDirector(t *testing.T) {
	director := NewDirector()
	p := decode(t, twoFigures)

	scenario, err := director.GenerateScenario(p, timeline.Compile(p), "kolo.json")
	if err != nil {
		t.Fatalf("GenerateScenario failed: %v", err)
	}

	if scenario.Version != "1.0" {
		t.Errorf("Expected version 1.0, got %s", scenario.Version)
	}
	if len(scenario.Clips) != 1 {
		t.Fatalf("Expected 1 clip, got %d", len(scenario.Clips))
	}

	clip := scenario.Clips[0]
	if clip.Input != "kolo.json" || clip.Title != "Kolo" || clip.FormationKind != "circle" {
		t.Errorf("Unexpected clip header: %+v", clip)
	}
	if clip.SecondsPerCount != 0.5 {
		t.Errorf("Expected 0.5s per count at 120 bpm, got %v", clip.SecondsPerCount)
	}
	if clip.Duration != 5.5 {
		t.Errorf("Expected duration 5.5, got %v", clip.Duration)
	}

	want := []Keyframe{
		{Time: 0, Count: 0, Focus: FocusIntro},
		{Time: 1, Count: 0, Focus: "Walk"},
		{Time: 3, Count: 4, Focus: "f2"},
		{Time: 4.5, Count: 7, Focus: FocusOutro},
		{Time: 5.5, Count: 7, Focus: FocusEnd},
	}
	if diff := cmp.Diff(want, clip.Keyframes); diff != "" {
		t.Errorf("Keyframes mismatch (-want +got):\n%s", diff)
	}

	if _, err := director.GenerateScenario(nil, timeline.Timeline{}, "x"); err == nil {
		t.Error("Expected an error for a nil payload")
	}
}

func TestPlanClipWithoutFigures(t *testing.T) {
	d := NewDirector()
	p := decode(t, `{"meta": {"formationKind": "line"}}`)
	clip := d.PlanClip(3, "empty.json", p, timeline.Compile(p))

	if clip.ID != 3 || clip.TotalCounts != 0 {
		t.Errorf("Unexpected clip: %+v", clip)
	}
	if clip.Duration != d.Intro+d.Outro {
		t.Errorf("Expected intro plus outro, got %v", clip.Duration)
	}
	if got := CountAt(clip.Keyframes, clip.Duration/2); got != 0 {
		t.Errorf("Expected count 0 throughout, got %v", got)
	}
}

func TestSecondsPerCount(t *testing.T) {
	tests := []struct {
		name     string
		meta     string
		useTempo bool
		want     float64
	}{
		{"no tempo", `{}`, true, 0.5},
		{"slow tempo clamps", `{"tempoBpm": 20}`, true, 1.5},
		{"fast tempo clamps", `{"tempoBpm": "600"}`, true, 0.2},
		{"tempo ignored", `{"tempoBpm": 120}`, false, 0.25},
		{"bad tempo", `{"tempoBpm": "allegro"}`, true, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDirector()
			d.UseTempo = tt.useTempo
			if !tt.useTempo {
				d.CountsPerSecond = 4
			}
			p := decode(t, `{"meta": `+tt.meta+`}`)
			if got := d.SecondsPerCount(p); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCountAt(t *testing.T) {
	p := decode(t, twoFigures)
	clip := NewDirector().PlanClip(1, "kolo.json", p, timeline.Compile(p))

	tests := []struct {
		seconds, want float64
	}{
		{-1, 0},
		{0.5, 0},
		{1, 0},
		{2, 2},
		{3, 4},
		{4, 6},
		{5, 7},
		{10, 7},
	}
	for _, tt := range tests {
		if got := CountAt(clip.Keyframes, tt.seconds); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("CountAt(%v) = %v, want %v", tt.seconds, got, tt.want)
		}
	}

	prev := 0.0
	for s := 0.0; s <= clip.Duration+0.5; s += 0.01 {
		got := CountAt(clip.Keyframes, s)
		if got < prev {
			t.Fatalf("CountAt is not monotonic at %v: %v < %v", s, got, prev)
		}
		prev = got
	}

	if CountAt(nil, 3) != 0 {
		t.Error("Expected 0 for no keyframes")
	}
}

func TestFocusAt(t *testing.T) {
	p := decode(t, twoFigures)
	clip := NewDirector().PlanClip(1, "kolo.json", p, timeline.Compile(p))

	for seconds, want := range map[float64]string{0.2: FocusIntro, 1.5: "Walk", 3: "f2", 5: FocusOutro, 9: FocusEnd} {
		if got := FocusAt(clip.Keyframes, seconds); got != want {
			t.Errorf("FocusAt(%v) = %q, want %q", seconds, got, want)
		}
	}
}

func TestClipScaled(t *testing.T) {
	p := decode(t, twoFigures)
	clip := NewDirector().PlanClip(1, "kolo.json", p, timeline.Compile(p))
	scaled := clip.Scaled(11)

	if scaled.Duration != 11 || scaled.SecondsPerCount != 1 {
		t.Errorf("Unexpected scaled clip: duration=%v spc=%v", scaled.Duration, scaled.SecondsPerCount)
	}
	if scaled.Keyframes[2].Time != 6 {
		t.Errorf("Expected the second figure at 6s, got %v", scaled.Keyframes[2].Time)
	}
	if clip.Keyframes[2].Time != 3 {
		t.Error("Scaled must not modify the original clip")
	}

	s := &Scenario{Clips: []Clip{clip, scaled}}
	if got := s.TotalDuration(0.5); got != 16 {
		t.Errorf("Expected total 16, got %v", got)
	}
}

func TestScenarioWriteRead(t *testing.T) {
	p := decode(t, twoFigures)
	scenario, err := NewDirector().GenerateScenario(p, timeline.Compile(p), "kolo.json")
	if err != nil {
		t.Fatal(err)
	}

	tmpFile := filepath.Join(t.TempDir(), "nested", "scenario.yaml")
	if err := WriteScenario(scenario, tmpFile); err != nil {
		t.Fatalf("WriteScenario failed: %v", err)
	}

	readScenario, err := ReadScenario(tmpFile)
	if err != nil {
		t.Fatalf("ReadScenario failed: %v", err)
	}
	if diff := cmp.Diff(scenario, readScenario); diff != "" {
		t.Errorf("Scenario mismatch (-want +got):\n%s", diff)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(bad, []byte("clips: [[["), 0644)
	if _, err := ReadScenario(bad); err == nil {
		t.Error("Expected a parse error")
	}

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	os.WriteFile(empty, []byte("version: \"1.0\"\nclips:\n  - id: 1\n    duration: 4\n"), 0644)
	if _, err := ReadScenario(empty); err == nil {
		t.Error("Expected an error for a clip without keyframes")
	}
}

func TestGenerateScenarioPath(t *testing.T) {
	path := GenerateScenarioPath()

	if !strings.Contains(path, "scenario_") {
		t.Errorf("Path should contain 'scenario_': %s", path)
	}
	if filepath.Dir(path) != ScenariosDir {
		t.Errorf("Path should be in %s: %s", ScenariosDir, path)
	}
}

func TestFindLatestScenario(t *testing.T) {
	t.Chdir(t.TempDir())

	if _, err := FindLatestScenario(); err == nil {
		t.Error("Expected an error without a scenarios directory")
	}

	os.MkdirAll(ScenariosDir, 0755)
	files := []string{
		filepath.Join(ScenariosDir, "scenario_2026-02-12_10-00-00.yaml"),
		filepath.Join(ScenariosDir, "scenario_2026-02-13_01-00-00.yaml"),
		filepath.Join(ScenariosDir, "scenario_2026-02-11_15-30-00.yaml"),
	}
	for i, f := range files {
		os.WriteFile(f, []byte("version: \"1.0\"\n"), 0644)
		modTime := time.Now().Add(time.Duration(i) * time.Hour)
		os.Chtimes(f, modTime, modTime)
	}

	latest, err := FindLatestScenario()
	if err != nil {
		t.Fatalf("FindLatestScenario failed: %v", err)
	}
	if latest != files[len(files)-1] {
		t.Errorf("Expected latest to be %s, got %s", files[len(files)-1], latest)
	}
}
