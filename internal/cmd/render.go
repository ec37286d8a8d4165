package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivlev/formation2video/internal/config"
	"github.com/ivlev/formation2video/internal/director"
	"github.com/ivlev/formation2video/internal/effects"
	"github.com/ivlev/formation2video/internal/engine"
	"github.com/ivlev/formation2video/internal/payload"
	"github.com/ivlev/formation2video/internal/source"
	"github.com/ivlev/formation2video/internal/style"
	"github.com/ivlev/formation2video/internal/system"
	"github.com/ivlev/formation2video/internal/video"
)

// Рабочие директории по умолчанию
const (
	payloadsDir = "input/payloads"
	audioDir    = "input/audio"
	outputDir   = "output"
)

// renderFlags mirrors the config keys exposed on the command line.
type renderFlags struct {
	output          string
	width, height   int
	fps, workers    int
	countsPerSecond float64
	useTempo        bool
	intro, outro    float64
	fade            float64
	transition      string
	effect          string
	encoder         string
	preset          string
	quality         int
	audio           string
	background      string
	labels          bool
	badgeURL        string
	scenario        string
	scenarioOut     string
	genScenario     bool
	stats           bool

	autoAudio bool
}

func (f *renderFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.output, "output", "o", "", "Путь к видео (если пусто, генерируется автоматически в output/)")
	fs.IntVar(&f.width, "width", 1280, "Ширина")
	fs.IntVar(&f.height, "height", 720, "Высота")
	fs.IntVar(&f.fps, "fps", 30, "FPS")
	fs.IntVar(&f.workers, "workers", 0, "Потоки рендеринга (0 - по ресурсам машины)")
	fs.Float64Var(&f.countsPerSecond, "counts-per-second", 2, "Счетов в секунду, если в payload нет темпа")
	fs.BoolVar(&f.useTempo, "use-tempo", true, "Брать длительность счета из meta.tempoBpm")
	fs.Float64Var(&f.intro, "intro", 1, "Пауза на начальной расстановке (сек)")
	fs.Float64Var(&f.outro, "outro", 1, "Пауза на финальной расстановке (сек)")
	fs.Float64Var(&f.fade, "fade", 0.5, "Длительность перехода (сек)")
	fs.StringVar(&f.transition, "transition", "fade", "Тип перехода xfade: fade, wipeleft, slideup, dissolve, none")
	fs.StringVar(&f.effect, "effect", "fade", "Эффект клипа: fade, zoom, none, scenario")
	fs.StringVar(&f.encoder, "encoder", "auto", "H.264 кодировщик (auto - лучший доступный)")
	fs.StringVar(&f.preset, "preset", "", "Пресет формата: 16:9, 9:16 (Shorts/TikTok), 4:5 (Instagram), 1:1")
	fs.IntVar(&f.quality, "quality", 0, "Качество видео (0 - авто, x264: CRF 1-51, VideoToolbox: битрейт = Q*100кбит/с)")
	fs.StringVar(&f.audio, "audio", "", "Путь к аудио (по умолчанию: самый свежий файл в input/audio/)")
	fs.BoolVar(&f.autoAudio, "auto-audio", true, "Искать аудио в input/audio/, если --audio не задан")
	fs.StringVar(&f.background, "background-audio", "", "Фоновая музыка, зацикливается под видео")
	fs.BoolVar(&f.labels, "labels", true, "Подписывать танцоров")
	fs.StringVar(&f.badgeURL, "badge-url", "", "Шаблон ссылки для QR-бейджа, {stem} заменяется именем карточки")
	fs.StringVar(&f.scenario, "scenario", "", "Готовый сценарий (YAML)")
	fs.StringVar(&f.scenarioOut, "scenario-output", "", "Куда сохранить сгенерированный сценарий")
	fs.BoolVar(&f.genScenario, "generate-scenario", false, "Только сгенерировать сценарий, без рендера")
	fs.BoolVar(&f.stats, "stats", false, "Показать статистику и записать benchmark.log")
}

// apply copies the flags the user actually set onto cfg.
func (f *renderFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	set := func(name string, fn func()) {
		if changed(name) {
			fn()
		}
	}
	set("output", func() { cfg.OutputVideo = f.output })
	set("width", func() { cfg.Width = f.width })
	set("height", func() { cfg.Height = f.height })
	set("fps", func() { cfg.FPS = f.fps })
	set("workers", func() { cfg.Workers = max(1, f.workers) })
	set("counts-per-second", func() { cfg.CountsPerSecond = f.countsPerSecond })
	set("use-tempo", func() { cfg.UseTempo = f.useTempo })
	set("intro", func() { cfg.IntroDuration = f.intro })
	set("outro", func() { cfg.OutroDuration = f.outro })
	set("fade", func() { cfg.FadeDuration = f.fade })
	set("transition", func() { cfg.TransitionType = f.transition })
	set("effect", func() { cfg.Effect = f.effect })
	set("encoder", func() { cfg.VideoEncoder = f.encoder })
	set("preset", func() { cfg.Preset = f.preset })
	set("quality", func() { cfg.Quality = f.quality })
	set("audio", func() { cfg.AudioPath = f.audio })
	set("background-audio", func() { cfg.BackgroundAudio = f.background })
	set("labels", func() { cfg.Labels = f.labels })
	set("badge-url", func() { cfg.BadgeURL = f.badgeURL })
	set("scenario", func() { cfg.ScenarioInput = f.scenario })
	set("scenario-output", func() { cfg.ScenarioOutput = f.scenarioOut })
	set("generate-scenario", func() { cfg.GenerateScenario = f.genScenario })
	set("stats", func() { cfg.ShowStats = f.stats })
}

var renderOpts renderFlags

var renderCmd = &cobra.Command{
	Use:     "render [input]",
	GroupID: GroupRender,
	Short:   "Render payloads into an MP4",
	Long: `Render one payload file or a directory of payloads into a video.

Without an input the newest payload in input/payloads is used. Each dance
becomes one clip; clips are joined with the configured xfade transition.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	renderOpts.register(renderCmd)
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	// Увеличиваем лимиты системы (для macOS/Linux)
	system.InitResourceLimits()

	for _, d := range []string{payloadsDir, audioDir, outputDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}

	cfg, err := loadConfig(cmd, &renderOpts, system.GetBestH264Encoder)
	if err != nil {
		return err
	}
	if err := resolveInputs(cfg, args, renderOpts.autoAudio); err != nil {
		return err
	}
	if cfg.VideoEncoder != "libx264" {
		fmt.Printf("%s Кодировщик: %s (качество %d)\n", style.InfoPrefix, cfg.VideoEncoder, cfg.Quality)
	}

	eff, err := pickEffect(cfg)
	if err != nil {
		return err
	}

	src, err := source.NewPayloadSource(cfg.InputPath, payload.NewCache())
	if err != nil {
		return fmt.Errorf("ошибка инициализации источника: %w", err)
	}
	defer src.Close()

	project := engine.NewVideoProject(cfg, src, &video.FFmpegEncoder{}, eff)
	if err := project.Run(cmd.Context()); err != nil {
		return fmt.Errorf("ошибка проекта: %w", err)
	}

	if !cfg.GenerateScenario {
		fmt.Printf("%s Успех! Результат: %s\n", style.SuccessPrefix, cfg.OutputVideo)
	}
	return nil
}

// resolveInputs fills in the input payload, the audio track and the output
// name the user left empty.
func resolveInputs(cfg *config.Config, args []string, autoAudio bool) error {
	if len(args) > 0 {
		cfg.InputPath = args[0]
	}
	if cfg.InputPath == "" {
		latest, err := system.FindLatestPayload(payloadsDir)
		if err != nil {
			return fmt.Errorf("%w. Положите payload в %s/", err, payloadsDir)
		}
		cfg.InputPath = latest
		fmt.Printf("%s Выбран файл: %s\n", style.InfoPrefix, cfg.InputPath)
	}

	if cfg.AudioPath == "" && autoAudio {
		if latest, err := system.FindLatestAudio(audioDir); err == nil {
			cfg.AudioPath = latest
			fmt.Printf("%s Выбрано аудио: %s\n", style.InfoPrefix, cfg.AudioPath)
		}
	}

	if cfg.OutputVideo == "" {
		cfg.OutputVideo = outputName(cfg.InputPath, time.Now())
	}
	return nil
}

// outputName is output/<input stem>_<timestamp>.mp4 with spaces replaced.
func outputName(input string, now time.Time) string {
	stem := payload.Stem(input)
	clean := strings.ReplaceAll(stem, " ", "_")
	return filepath.Join(outputDir, fmt.Sprintf("%s_%s.mp4", clean, now.Format("2006-01-02_15-04-05")))
}

// pickEffect builds the configured clip effect. The scenario effect needs a
// scenario file; without --scenario the newest one in scenarios/ is used and
// the engine swaps the effect in once the file is read.
func pickEffect(cfg *config.Config) (effects.Effect, error) {
	if cfg.Effect != "scenario" {
		return effects.NewEffect(cfg.Effect, nil)
	}
	if cfg.ScenarioInput == "" && !cfg.GenerateScenario {
		latest, err := director.FindLatestScenario()
		if err != nil {
			return nil, fmt.Errorf("эффект scenario: %w", err)
		}
		cfg.ScenarioInput = latest
	}
	return effects.NewEffect("fade", nil)
}
