package engine

import (
	"context"
	"fmt"
	"image"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/ivlev/formation2video/internal/config"
	"github.com/ivlev/formation2video/internal/director"
	"github.com/ivlev/formation2video/internal/effects"
	"github.com/ivlev/formation2video/internal/formation"
	"github.com/ivlev/formation2video/internal/renderer"
	"github.com/ivlev/formation2video/internal/source"
	"github.com/ivlev/formation2video/internal/style"
	"github.com/ivlev/formation2video/internal/system"
	"github.com/ivlev/formation2video/internal/timeline"
	"github.com/ivlev/formation2video/internal/video"
)

type VideoProject struct {
	Config   *config.Config
	Source   source.Source
	Encoder  video.VideoEncoder
	Effect   effects.Effect
	Director *director.Director
	Pool     *system.ImagePool

	// AudioDuration probes the length of Config.AudioPath.
	AudioDuration func(ctx context.Context, path string) (float64, error)

	tempDir string
}

// plannedClip is a dance that can be animated, with its playback plan.
type plannedClip struct {
	Dance source.Dance
	Table *renderer.Table
	Clip  director.Clip
	Badge image.Image
}

func NewVideoProject(cfg *config.Config, src source.Source, ve video.VideoEncoder, eff effects.Effect) *VideoProject {
	d := director.NewDirector()
	d.CountsPerSecond = cfg.CountsPerSecond
	d.MinCountDur = cfg.MinCountDur
	d.MaxCountDur = cfg.MaxCountDur
	d.UseTempo = cfg.UseTempo
	d.Intro = cfg.IntroDuration
	d.Outro = cfg.OutroDuration

	return &VideoProject{
		Config:        cfg,
		Source:        src,
		Encoder:       ve,
		Effect:        eff,
		Director:      d,
		Pool:          system.NewImagePool(),
		AudioDuration: system.GetAudioDuration,
	}
}

func (p *VideoProject) Run(ctx context.Context) error {
	startTime := time.Now()

	clips, err := p.plan()
	if err != nil {
		return err
	}

	// Обработка сценариев
	if p.Config.GenerateScenario {
		return p.writeScenario(clips)
	}
	if p.Config.ScenarioInput != "" {
		if err := p.applyScenario(clips); err != nil {
			return err
		}
	}

	if err := p.fitDurations(ctx, clips); err != nil {
		return err
	}

	p.tempDir, err = os.MkdirTemp("", "formation2video_")
	if err != nil {
		return err
	}
	defer os.RemoveAll(p.tempDir)

	fmt.Println("--- [PROJECT: FORMATION ENGINE] ---")
	fmt.Printf("%s Источник: %s | Танцев: %d\n", style.InfoPrefix, p.Config.InputPath, len(clips))
	fmt.Printf("%s Разрешение: %dx%d @ %d FPS | Воркеров: %d\n", style.InfoPrefix, p.Config.Width, p.Config.Height, p.Config.FPS, p.Config.Workers)
	fmt.Println("-----------------------------")

	renderStart := time.Now()
	segments := make([]string, len(clips))
	totalFrames := 0
	for i, c := range clips {
		segPath := filepath.Join(p.tempDir, fmt.Sprintf("s%d.mp4", i))
		n, err := p.encodeClip(ctx, i, c, segPath)
		if err != nil {
			return fmt.Errorf("клип %d (%s): %w", i+1, c.Dance.Name, err)
		}
		segments[i] = segPath
		totalFrames += n
		fmt.Printf("%s Ready: %d/%d (%s, %d кадров)\n", style.ArrowPrefix, i+1, len(clips), c.Dance.Name, n)
	}
	renderTime := time.Since(renderStart)

	fmt.Println(style.InfoPrefix, "Сборка финального видео (с эффектами переходов)...")
	concatStart := time.Now()
	if err := p.Encoder.Concatenate(ctx, segments, p.Config.OutputVideo, p.tempDir, *p.Config); err != nil {
		return fmt.Errorf("ошибка сборки финального видео: %w", err)
	}
	concatTime := time.Since(concatStart)

	if p.Config.ShowStats {
		p.report(len(clips), totalFrames, time.Since(startTime), renderTime, concatTime)
	}
	return nil
}

// plan loads every dance, drops the ones the state machine cannot animate
// and lays out a clip for each of the rest.
func (p *VideoProject) plan() ([]plannedClip, error) {
	count := p.Source.DanceCount()
	if count == 0 {
		return nil, fmt.Errorf("источник не содержит танцев")
	}

	var clips []plannedClip
	for i := 0; i < count; i++ {
		d := p.Source.Dance(i)
		initial, err := formation.New(d.Payload)
		if err != nil {
			log.Printf("%s Пропуск %s: %v", style.WarningPrefix, d.Name, err)
			continue
		}
		tl := timeline.Compile(d.Payload)
		planned := p.Director.PlanClip(len(clips)+1, d.Path, d.Payload, tl)
		if planned.Duration <= 0 {
			log.Printf("%s Пропуск %s: нулевая длительность клипа", style.WarningPrefix, d.Name)
			continue
		}
		c := plannedClip{
			Dance: d,
			Table: renderer.NewTable(initial, tl),
			Clip:  planned,
		}
		if p.Config.BadgeURL != "" {
			badge, err := renderer.NewBadge(renderer.CardURL(p.Config.BadgeURL, d.Name), p.Config.BadgeSize)
			if err != nil {
				log.Printf("%s QR-бейдж для %s не создан: %v", style.WarningPrefix, d.Name, err)
			} else {
				c.Badge = badge
			}
		}
		clips = append(clips, c)
	}
	if len(clips) == 0 {
		return nil, fmt.Errorf("ни один из %d танцев не поддерживается (circle, line, twoLinesFacing)", count)
	}
	return clips, nil
}

func (p *VideoProject) scenario(clips []plannedClip) *director.Scenario {
	s := &director.Scenario{Version: director.ScenarioVersion}
	for _, c := range clips {
		s.Clips = append(s.Clips, c.Clip)
	}
	return s
}

func (p *VideoProject) writeScenario(clips []plannedClip) error {
	fmt.Println(style.InfoPrefix, "Режим генерации сценария...")
	outputPath := p.Config.ScenarioOutput
	if outputPath == "" {
		outputPath = director.GenerateScenarioPath()
	}
	if err := director.WriteScenario(p.scenario(clips), outputPath); err != nil {
		return err
	}
	fmt.Printf("%s Успех! Сценарий сохранен: %s\n", style.SuccessPrefix, outputPath)
	return nil
}

// applyScenario replaces the planned timing with a hand-edited scenario.
// Clips are matched by position.
func (p *VideoProject) applyScenario(clips []plannedClip) error {
	scenario, err := director.ReadScenario(p.Config.ScenarioInput)
	if err != nil {
		return fmt.Errorf("ошибка чтения сценария: %w", err)
	}
	if len(scenario.Clips) != len(clips) {
		log.Printf("%s В сценарии %d клипов, танцев %d: лишнее игнорируется", style.WarningPrefix, len(scenario.Clips), len(clips))
	}
	for i := range clips {
		if i < len(scenario.Clips) {
			clips[i].Clip = scenario.Clips[i]
		}
	}
	p.Effect = effects.NewScenarioEffect(scenario)
	fmt.Printf("%s Используется сценарий: %s\n", style.InfoPrefix, p.Config.ScenarioInput)
	return nil
}

// fitDurations aligns clip durations to whole frames, stretches them to the
// audio track when there is one and shortens the transition if a clip is
// too short for it.
func (p *VideoProject) fitDurations(ctx context.Context, clips []plannedClip) error {
	cfg := p.Config
	if cfg.AudioPath != "" && cfg.TotalDuration <= 0 && p.AudioDuration != nil {
		d, err := p.AudioDuration(ctx, cfg.AudioPath)
		if err != nil {
			return fmt.Errorf("длительность аудио: %w", err)
		}
		cfg.TotalDuration = d
		fmt.Printf("%s Длительность аудио: %.2fs\n", style.InfoPrefix, d)
	}

	durations := make([]float64, len(clips))
	for i, c := range clips {
		durations[i] = c.Clip.Duration
	}

	minDur := math.Inf(1)
	for _, d := range durations {
		minDur = math.Min(minDur, d)
	}
	if len(clips) > 1 && cfg.FadeDuration >= minDur {
		cfg.FadeDuration = minDur / 2
		fmt.Printf("%s Переход уменьшен до %.2fs из-за короткого клипа\n", style.WarningPrefix, cfg.FadeDuration)
	}

	overlap := cfg.FadeDuration
	if cfg.TransitionType == "" || cfg.TransitionType == "none" {
		overlap = 0
	}
	durations = FitDurations(durations, cfg.TotalDuration, overlap, cfg.FPS)
	if cfg.TotalDuration > 0 {
		fmt.Printf("%s Клипы масштабированы под аудио: %.2fs\n", style.InfoPrefix, cfg.TotalDuration)
	}

	total := 0.0
	for i := range clips {
		clips[i].Clip = clips[i].Clip.Scaled(durations[i])
		total += durations[i]
	}
	if len(clips) > 1 {
		total -= float64(len(clips)-1) * overlap
	}
	cfg.ClipDurations = durations
	cfg.TotalDuration = total
	return nil
}

// FitDurations scales durations so that, after fade overlaps, the video lasts
// target seconds (target <= 0 keeps the natural length), and rounds each one
// to whole frames.
func FitDurations(durations []float64, target, fade float64, fps int) []float64 {
	out := make([]float64, len(durations))
	copy(out, durations)

	if target > 0 {
		sum := 0.0
		for _, d := range out {
			sum += d
		}
		want := target
		if len(out) > 1 {
			want += float64(len(out)-1) * fade
		}
		if sum > 0 {
			scale := want / sum
			for i := range out {
				out[i] *= scale
			}
		}
	}

	// Выравниваем по кадрам для стабильности xfade
	if fps > 0 {
		for i, d := range out {
			out[i] = math.Round(d*float64(fps)) / float64(fps)
		}
	}
	return out
}

func (p *VideoProject) encodeClip(ctx context.Context, i int, c plannedClip, segPath string) (int, error) {
	cfg := p.Config
	params := cfg.Segment(i, c.Clip.Duration, c.Clip.Title)
	if p.Effect != nil {
		params.Filter = p.Effect.GenerateFilter(params)
	}

	newRasterizer := func() *renderer.Rasterizer {
		r := renderer.NewRasterizer(cfg.Width, cfg.Height)
		r.Labels = cfg.Labels
		r.Title = c.Clip.Title
		r.Badge = c.Badge
		return r
	}

	frames := newClipFrames(ctx, c, cfg.FPS, cfg.Width, cfg.Height, cfg.Workers, p.Pool, newRasterizer)
	defer frames.Close()

	if err := p.Encoder.EncodeSegment(ctx, frames, segPath, params, cfg.VideoEncoder, cfg.Quality); err != nil {
		return 0, err
	}
	return frames.next, nil
}

func (p *VideoProject) report(clips, frames int, total, render, concat time.Duration) {
	fps := float64(frames) / total.Seconds()
	allocs, reuses := p.Pool.Stats()

	fmt.Printf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"Rendering + Encoding: %.2fs\n"+
			"Concatenation: %.2fs\n"+
			"Frames: %d (buffers allocated %d, reused %d)\n"+
			"Effective FPS: %.2f\n"+
			"----------------------------\n",
		p.Config.BuildVersion, total.Seconds(), render.Seconds(), concat.Seconds(), frames, allocs, reuses, fps,
	)

	// Логирование в файл
	logEntry := fmt.Sprintf("[%s] Build: %s | Input: %s | Clips: %d | Frames: %d | Total: %.2fs | Render: %.2fs | FPS: %.2f\n",
		time.Now().Format("2006-01-02 15:04:05"),
		p.Config.BuildVersion,
		filepath.Base(p.Config.InputPath),
		clips,
		frames,
		total.Seconds(),
		render.Seconds(),
		fps,
	)
	f, err := os.OpenFile("benchmark.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Printf("%s Не удалось записать benchmark.log: %v\n", style.WarningPrefix, err)
		return
	}
	defer f.Close()
	f.WriteString(logEntry)
}
