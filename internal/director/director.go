package director

import (
	"fmt"
	"math"

	"github.com/ivlev/formation2video/internal/payload"
	"github.com/ivlev/formation2video/internal/timeline"
)

// ScenarioVersion is written into every generated scenario.
const ScenarioVersion = "1.0"

// Focus labels of the holds around the figures.
const (
	FocusIntro = "intro"
	FocusOutro = "outro"
	FocusEnd   = "end"
)

// Director plans how long each count stays on screen
type Director struct {
	CountsPerSecond float64 // Used when the payload has no usable tempo
	MinCountDur     float64 // Minimum seconds per count
	MaxCountDur     float64 // Maximum seconds per count
	UseTempo        bool    // Derive the count length from meta.tempoBpm
	Intro           float64 // Hold on the initial layout (seconds)
	Outro           float64 // Hold on the final layout (seconds)
}

// NewDirector creates a new Director with default settings
func NewDirector() *Director {
	return &Director{
		CountsPerSecond: 2,
		MinCountDur:     0.2,
		MaxCountDur:     1.5,
		UseTempo:        true,
		Intro:           1.0,
		Outro:           1.0,
	}
}

// GenerateScenario creates a single-clip scenario for one payload
func (d *Director) GenerateScenario(p *payload.Payload, tl timeline.Timeline, input string) (*Scenario, error) {
	if p == nil {
		return nil, fmt.Errorf("no payload for %s", input)
	}
	return &Scenario{
		Version: ScenarioVersion,
		Clips:   []Clip{d.PlanClip(1, input, p, tl)},
	}, nil
}

// PlanClip lays out the keyframes of one clip: an intro hold, one keyframe
// at the start of every figure, the end of the counts and the outro hold.
func (d *Director) PlanClip(id int, input string, p *payload.Payload, tl timeline.Timeline) Clip {
	spc := d.SecondsPerCount(p)
	total := max(0, tl.TotalCounts)

	keyframes := []Keyframe{{Time: 0, Count: 0, Focus: FocusIntro}}
	start := 0
	for i, bound := range timeline.FigureBounds(p) {
		keyframes = append(keyframes, Keyframe{
			Time:  d.Intro + float64(start)*spc,
			Count: float64(start),
			Focus: figureFocus(p, i),
		})
		start = bound
	}

	countsEnd := d.Intro + float64(total)*spc
	keyframes = append(keyframes,
		Keyframe{Time: countsEnd, Count: float64(total), Focus: FocusOutro},
		Keyframe{Time: countsEnd + d.Outro, Count: float64(total), Focus: FocusEnd},
	)

	return Clip{
		ID:              id,
		Input:           input,
		Title:           p.Meta.Title.String(),
		FormationKind:   p.Meta.FormationKind.String(),
		TotalCounts:     total,
		SecondsPerCount: spc,
		Duration:        countsEnd + d.Outro,
		Keyframes:       keyframes,
	}
}

// SecondsPerCount derives the on-screen length of one count.
func (d *Director) SecondsPerCount(p *payload.Payload) float64 {
	spc := 0.0
	if d.UseTempo && p != nil {
		if bpm, ok := p.Meta.TempoBpm.Float(); ok && bpm > 0 {
			spc = 60 / bpm
		}
	}
	if spc == 0 {
		cps := d.CountsPerSecond
		if cps <= 0 {
			cps = 1
		}
		spc = 1 / cps
	}
	return clamp(spc, d.MinCountDur, d.MaxCountDur)
}

func figureFocus(p *payload.Payload, i int) string {
	if label := p.Figures[i].Label(); label != "" {
		return label
	}
	return fmt.Sprintf("figure_%d", i+1)
}

func clamp(v, lo, hi float64) float64 {
	if hi > 0 {
		v = math.Min(v, hi)
	}
	return math.Max(v, lo)
}
