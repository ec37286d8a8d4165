package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FORMATION2VIDEO_"

type Config struct {
	InputPath   string `yaml:"input" env:"INPUT"`
	OutputVideo string `yaml:"output" env:"OUTPUT"`
	Width       int    `yaml:"width" env:"WIDTH"`
	Height      int    `yaml:"height" env:"HEIGHT"`
	FPS         int    `yaml:"fps" env:"FPS"`
	Workers     int    `yaml:"workers" env:"WORKERS"`

	// Тайминг: сколько секунд видео занимает один счёт
	CountsPerSecond float64 `yaml:"counts_per_second" env:"COUNTS_PER_SECOND"`
	MinCountDur     float64 `yaml:"min_count_duration" env:"MIN_COUNT_DURATION"`
	MaxCountDur     float64 `yaml:"max_count_duration" env:"MAX_COUNT_DURATION"`
	UseTempo        bool    `yaml:"use_tempo" env:"USE_TEMPO"`
	IntroDuration   float64 `yaml:"intro" env:"INTRO"`
	OutroDuration   float64 `yaml:"outro" env:"OUTRO"`

	FadeDuration   float64 `yaml:"fade" env:"FADE"`
	TransitionType string  `yaml:"transition" env:"TRANSITION"`
	Effect         string  `yaml:"effect" env:"EFFECT"`
	VideoEncoder   string  `yaml:"encoder" env:"ENCODER"` // "auto" picks the best H.264 encoder
	Preset         string  `yaml:"preset" env:"PRESET"`
	Quality        int     `yaml:"quality" env:"QUALITY"`
	AudioPath      string  `yaml:"audio" env:"AUDIO"`

	BackgroundAudio  string  `yaml:"background_audio" env:"BACKGROUND_AUDIO"`
	BackgroundVolume float64 `yaml:"background_volume" env:"BACKGROUND_VOLUME"`

	Labels    bool   `yaml:"labels" env:"LABELS"`
	BadgeURL  string `yaml:"badge_url" env:"BADGE_URL"`
	BadgeSize int    `yaml:"badge_size" env:"BADGE_SIZE"`

	ScenarioInput    string `yaml:"scenario" env:"SCENARIO"`
	ScenarioOutput   string `yaml:"scenario_output" env:"SCENARIO_OUTPUT"`
	GenerateScenario bool   `yaml:"generate_scenario" env:"GENERATE_SCENARIO"`

	Debug        bool   `yaml:"debug" env:"DEBUG"`
	ShowStats    bool   `yaml:"stats" env:"STATS"`
	BuildVersion string `yaml:"-"`

	// Длительности клипов, заполняются движком после планирования
	ClipDurations []float64 `yaml:"-"`
	TotalDuration float64   `yaml:"-"`
}

// SegmentParams describes one encoded clip.
type SegmentParams struct {
	Width, Height int
	FPS           int
	Duration      float64
	FadeDuration  float64
	OutroDuration float64
	ClipIndex     int
	Title         string
	Debug         bool
	Filter        string
}

// Default returns the built-in configuration. workers is the render pool
// size, usually system.RecommendedWorkers().
func Default(workers int) *Config {
	return &Config{
		Width:            1280,
		Height:           720,
		FPS:              30,
		Workers:          max(1, workers),
		CountsPerSecond:  2,
		MinCountDur:      0.2,
		MaxCountDur:      1.5,
		UseTempo:         true,
		IntroDuration:    1.0,
		OutroDuration:    1.0,
		FadeDuration:     0.5,
		TransitionType:   "fade",
		Effect:           "fade",
		VideoEncoder:     "auto",
		BackgroundVolume: 0.3,
		Labels:           true,
		BadgeSize:        144,
	}
}

// LoadFile overlays the YAML file at path onto cfg. Keys absent from the
// file keep their current values.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays FORMATION2VIDEO_* environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ApplyPreset switches the resolution to a named aspect preset.
func (c *Config) ApplyPreset(preset string) error {
	switch preset {
	case "":
		return nil
	case "16:9":
		c.Width, c.Height = 1280, 720
	case "9:16":
		c.Width, c.Height = 720, 1280
	case "4:5":
		c.Width, c.Height = 1080, 1350
	case "1:1":
		c.Width, c.Height = 1080, 1080
	default:
		return fmt.Errorf("unknown preset %q (16:9, 9:16, 4:5, 1:1)", preset)
	}
	c.Preset = preset
	return nil
}

// DefaultQuality is the quality used when none is configured.
func DefaultQuality(encoder string) int {
	switch encoder {
	case "h264_videotoolbox":
		return 75 // Хорошее качество для VideoToolbox
	case "h264_nvenc":
		return 28 // Эквивалент CRF для NVENC
	default:
		return 23 // Стандартный CRF для x264
	}
}

// ResolveEncoder replaces "auto" with the detected encoder and fills in a
// default quality.
func (c *Config) ResolveEncoder(detect func() (string, string)) {
	if c.VideoEncoder == "" || c.VideoEncoder == "auto" {
		c.VideoEncoder, _ = detect()
	}
	if c.Quality <= 0 {
		c.Quality = DefaultQuality(c.VideoEncoder)
	}
}

// Validate rejects settings the renderer cannot work with.
func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid resolution %dx%d", c.Width, c.Height)
	}
	if c.Width%2 != 0 || c.Height%2 != 0 {
		return fmt.Errorf("resolution %dx%d must be even for yuv420p", c.Width, c.Height)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("invalid fps %d", c.FPS)
	}
	if c.CountsPerSecond <= 0 {
		return fmt.Errorf("counts per second must be positive, got %g", c.CountsPerSecond)
	}
	if c.MinCountDur > c.MaxCountDur {
		return fmt.Errorf("min count duration %g exceeds max %g", c.MinCountDur, c.MaxCountDur)
	}
	if c.FadeDuration < 0 || c.IntroDuration < 0 || c.OutroDuration < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}

// Segment returns the encoding parameters of clip i.
func (c *Config) Segment(i int, duration float64, title string) SegmentParams {
	return SegmentParams{
		Width:         c.Width,
		Height:        c.Height,
		FPS:           c.FPS,
		Duration:      duration,
		FadeDuration:  c.FadeDuration,
		OutroDuration: c.OutroDuration,
		ClipIndex:     i,
		Title:         title,
		Debug:         c.Debug,
	}
}
