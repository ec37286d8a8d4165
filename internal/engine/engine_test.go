package engine

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ivlev/formation2video/internal/config"
	"github.com/ivlev/formation2video/internal/director"
	"github.com/ivlev/formation2video/internal/effects"
	"github.com/ivlev/formation2video/internal/formation"
	"github.com/ivlev/formation2video/internal/payload"
	"github.com/ivlev/formation2video/internal/renderer"
	"github.com/ivlev/formation2video/internal/source"
	"github.com/ivlev/formation2video/internal/timeline"
	"github.com/ivlev/formation2video/internal/video"
)

const walkLine = `{"meta": {"title": "Walk", "tempoBpm": 120, "formationKind": "line"},
  "figures": [{"name": "Progress", "steps": [{"beats": 4, "primitives": [{"kind": "progress", "delta": 1}]}]}],
  "topology": {"line": {"lines": [{"orders": [{"slots": ["A", "B", "C"]}]}]}}}`

const couple = `{"meta": {"title": "Pair", "formationKind": "couple"}}`

type memorySource struct{ dances []source.Dance }

func (s *memorySource) DanceCount() int          { return len(s.dances) }
func (s *memorySource) Dance(i int) source.Dance { return s.dances[i] }
func (s *memorySource) Close() error             { return nil }

func newSource(t *testing.T, docs ...string) *memorySource {
	t.Helper()
	src := &memorySource{}
	for i, doc := range docs {
		p, err := payload.Decode([]byte(doc))
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		name := p.Meta.Title.String()
		src.dances = append(src.dances, source.Dance{Path: name + ".json", Index: i, Name: name, Payload: p})
	}
	return src
}

// fakeEncoder drains every segment in memory and keeps the first and last frame.
type fakeEncoder struct {
	frames   []int
	params   []config.SegmentParams
	first    []*image.RGBA
	last     []*image.RGBA
	segments []string
	concat   config.Config
}

func (e *fakeEncoder) EncodeSegment(ctx context.Context, frames video.FrameSource, path string, params config.SegmentParams, encoderName string, quality int) error {
	n := 0
	var first, last *image.RGBA
	for {
		img, err := frames.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		cp := image.NewRGBA(img.Rect)
		copy(cp.Pix, img.Pix)
		if first == nil {
			first = cp
		}
		last = cp
		frames.Release(img)
		n++
	}
	e.frames = append(e.frames, n)
	e.params = append(e.params, params)
	e.first = append(e.first, first)
	e.last = append(e.last, last)
	return nil
}

func (e *fakeEncoder) Concatenate(ctx context.Context, segments []string, final, tmpDir string, cfg config.Config) error {
	e.segments = segments
	e.concat = cfg
	return nil
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default(3)
	cfg.Width, cfg.Height = 64, 36
	cfg.FPS = 10
	cfg.OutputVideo = filepath.Join(t.TempDir(), "out.mp4")
	return cfg
}

func expectedFrame(t *testing.T, cfg *config.Config, doc string, count float64) *image.RGBA {
	t.Helper()
	p, err := payload.Decode([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	s, err := formation.New(p)
	if err != nil {
		t.Fatal(err)
	}
	r := renderer.NewRasterizer(cfg.Width, cfg.Height)
	r.Title = p.Meta.Title.String()
	return r.Render(renderer.NewTable(s, timeline.Compile(p)).FrameAt(count))
}

func TestRunRendersEveryFrameInOrder(t *testing.T) {
	cfg := testConfig(t)
	enc := &fakeEncoder{}
	project := NewVideoProject(cfg, newSource(t, couple, walkLine), enc, &effects.NoneEffect{})

	if err := project.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// 1s интро + 4 счёта по 0.5s + 1s аутро = 4s при 10 FPS
	if diff := cmp.Diff([]int{40}, enc.frames); diff != "" {
		t.Errorf("frame counts mismatch (-want +got):\n%s", diff)
	}
	if len(enc.segments) != 1 {
		t.Fatalf("Expected one segment, the couple dance must be skipped, got %v", enc.segments)
	}
	if diff := cmp.Diff([]float64{4}, enc.concat.ClipDurations); diff != "" {
		t.Errorf("clip durations mismatch (-want +got):\n%s", diff)
	}
	if enc.params[0].Title != "Walk" || enc.params[0].Duration != 4 {
		t.Errorf("Unexpected segment params %+v", enc.params[0])
	}

	if !bytes.Equal(enc.first[0].Pix, expectedFrame(t, cfg, walkLine, 0).Pix) {
		t.Error("First frame must show the initial layout")
	}
	if !bytes.Equal(enc.last[0].Pix, expectedFrame(t, cfg, walkLine, 4).Pix) {
		t.Error("Last frame must show the final layout")
	}
}

func TestRunManyClipsWithTransitions(t *testing.T) {
	cfg := testConfig(t)
	cfg.Workers = 2
	enc := &fakeEncoder{}
	project := NewVideoProject(cfg, newSource(t, walkLine, walkLine, walkLine), enc, &effects.DefaultEffect{})

	if err := project.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if diff := cmp.Diff([]int{40, 40, 40}, enc.frames); diff != "" {
		t.Errorf("frame counts mismatch (-want +got):\n%s", diff)
	}
	// Три клипа по 4s минус два перехода по 0.5s
	if math.Abs(enc.concat.TotalDuration-11) > 1e-9 {
		t.Errorf("Expected total 11s, got %v", enc.concat.TotalDuration)
	}
	if enc.params[2].ClipIndex != 2 || enc.params[2].Filter == "" {
		t.Errorf("Expected the fade filter on clip 3, got %+v", enc.params[2])
	}
}

func TestRunFitsAudio(t *testing.T) {
	cfg := testConfig(t)
	cfg.AudioPath = "music.mp3"
	enc := &fakeEncoder{}
	project := NewVideoProject(cfg, newSource(t, walkLine, walkLine), enc, &effects.NoneEffect{})
	project.AudioDuration = func(ctx context.Context, path string) (float64, error) { return 15.5, nil }

	if err := project.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// (15.5 + 0.5) / 2 = 8s на клип
	if diff := cmp.Diff([]int{80, 80}, enc.frames); diff != "" {
		t.Errorf("frame counts mismatch (-want +got):\n%s", diff)
	}
	if math.Abs(enc.concat.TotalDuration-15.5) > 1e-9 {
		t.Errorf("Expected the audio length, got %v", enc.concat.TotalDuration)
	}
}

func TestRunNothingSupported(t *testing.T) {
	project := NewVideoProject(testConfig(t), newSource(t, couple), &fakeEncoder{}, &effects.NoneEffect{})
	if err := project.Run(context.Background()); err == nil {
		t.Error("Expected an error when no dance can be animated")
	}
}

func TestRunGenerateScenario(t *testing.T) {
	cfg := testConfig(t)
	cfg.GenerateScenario = true
	cfg.ScenarioOutput = filepath.Join(t.TempDir(), "plan", "scenario.yaml")
	enc := &fakeEncoder{}
	project := NewVideoProject(cfg, newSource(t, walkLine), enc, nil)

	if err := project.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(enc.frames) != 0 {
		t.Error("Scenario generation must not encode")
	}

	scenario, err := director.ReadScenario(cfg.ScenarioOutput)
	if err != nil {
		t.Fatalf("ReadScenario failed: %v", err)
	}
	if len(scenario.Clips) != 1 || scenario.Clips[0].TotalCounts != 4 || scenario.Clips[0].Duration != 4 {
		t.Errorf("Unexpected scenario %+v", scenario)
	}

	// Отредактированный сценарий: клип вдвое длиннее
	scenario.Clips[0] = scenario.Clips[0].Scaled(8)
	if err := director.WriteScenario(scenario, cfg.ScenarioOutput); err != nil {
		t.Fatal(err)
	}
	cfg.GenerateScenario = false
	cfg.ScenarioInput = cfg.ScenarioOutput
	project = NewVideoProject(cfg, newSource(t, walkLine), enc, &effects.NoneEffect{})
	if err := project.Run(context.Background()); err != nil {
		t.Fatalf("Run with scenario failed: %v", err)
	}
	if diff := cmp.Diff([]int{80}, enc.frames); diff != "" {
		t.Errorf("frame counts mismatch (-want +got):\n%s", diff)
	}
	if _, ok := project.Effect.(*effects.ScenarioEffect); !ok {
		t.Errorf("Expected the scenario effect, got %T", project.Effect)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	project := NewVideoProject(testConfig(t), newSource(t, walkLine), &fakeEncoder{}, &effects.NoneEffect{})
	if err := project.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestFitDurations(t *testing.T) {
	tests := []struct {
		name      string
		durations []float64
		target    float64
		fade      float64
		want      []float64
	}{
		{"natural length", []float64{4.01, 2.96}, 0, 0.5, []float64{4, 2.96}},
		{"stretch to audio", []float64{2, 2}, 7.5, 0.5, []float64{4, 4}},
		{"single clip", []float64{3}, 6, 0.5, []float64{6}},
		{"empty", nil, 10, 0.5, []float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FitDurations(tt.durations, tt.target, tt.fade, 25)
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
				t.Errorf("FitDurations mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFrameCount(t *testing.T) {
	for _, tt := range []struct {
		duration float64
		fps      int
		want     int
	}{
		{4, 30, 120},
		{5.5, 30, 165},
		{0.04, 25, 1},
		{0, 30, 0},
		{-1, 30, 0},
	} {
		if got := FrameCount(tt.duration, tt.fps); got != tt.want {
			t.Errorf("FrameCount(%v, %d) = %d, want %d", tt.duration, tt.fps, got, tt.want)
		}
	}
}
