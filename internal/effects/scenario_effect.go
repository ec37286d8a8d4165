package effects

import (
	"github.com/ivlev/formation2video/internal/config"
	"github.com/ivlev/formation2video/internal/director"
	"github.com/ivlev/formation2video/internal/renderer"
)

// ScenarioEffect captions every figure with its name, timed by the clip
// keyframes of a scenario.
type ScenarioEffect struct {
	Scenario *director.Scenario
	FontSize int
}

// NewScenarioEffect creates a new ScenarioEffect
func NewScenarioEffect(scenario *director.Scenario) *ScenarioEffect {
	return &ScenarioEffect{Scenario: scenario}
}

// GenerateFilter generates the FFmpeg filter for one clip of the scenario
func (e *ScenarioEffect) GenerateFilter(p config.SegmentParams) string {
	if e.Scenario == nil || p.ClipIndex >= len(e.Scenario.Clips) {
		return (&DefaultEffect{}).GenerateFilter(p)
	}

	// Масштабируем ключевые кадры под реальную длительность (рассчитанную движком)
	clip := e.Scenario.Clips[p.ClipIndex].Scaled(p.Duration)

	captions := renderer.GenerateCaptionFilter(clip.Keyframes, e.FontSize)
	var counter string
	if p.Debug {
		counter = renderer.GenerateCountFilter(clip.Keyframes)
	}
	return join((&DefaultEffect{}).GenerateFilter(withoutDebug(p)), captions, counter, debugFilter(p))
}

func withoutDebug(p config.SegmentParams) config.SegmentParams {
	p.Debug = false
	return p
}
