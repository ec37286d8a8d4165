package effects

import (
	"fmt"
	"strings"

	"github.com/ivlev/formation2video/internal/config"
	"github.com/ivlev/formation2video/internal/director"
	"github.com/ivlev/formation2video/internal/system"
)

// Effect builds the ffmpeg -vf chain applied to one rendered clip. An empty
// string means the frames are encoded as they are.
type Effect interface {
	GenerateFilter(params config.SegmentParams) string
}

// NewEffect returns the effect registered under name. The scenario is only
// used by "scenario" and may be nil otherwise.
func NewEffect(name string, scenario *director.Scenario) (Effect, error) {
	switch strings.ToLower(name) {
	case "fade", "":
		return &DefaultEffect{}, nil
	case "zoom":
		return &ZoomEffect{Speed: 0.0015}, nil
	case "none":
		return &NoneEffect{}, nil
	case "scenario":
		if scenario == nil {
			return nil, fmt.Errorf("effect scenario requires a scenario")
		}
		return NewScenarioEffect(scenario), nil
	default:
		return nil, fmt.Errorf("unknown effect: %s", name)
	}
}

// NoneEffect leaves the frames untouched.
type NoneEffect struct{}

func (e *NoneEffect) GenerateFilter(p config.SegmentParams) string { return debugFilter(p) }

// DefaultEffect fades each clip in from and out to black.
type DefaultEffect struct{}

func (e *DefaultEffect) GenerateFilter(p config.SegmentParams) string {
	d := fadeLength(p)
	if d <= 0 {
		return debugFilter(p)
	}
	filter := fmt.Sprintf("fade=t=in:st=0:d=%.3f,fade=t=out:st=%.3f:d=%.3f", d, p.Duration-d, d)
	return join(filter, debugFilter(p))
}

// ZoomEffect pushes slowly into the middle of the floor and returns to 1:1
// before the outro, so the final layout is always shown whole.
type ZoomEffect struct {
	Speed float64 // zoom increment per frame
}

func (e *ZoomEffect) GenerateFilter(p config.SegmentParams) string {
	fFPS := float64(p.FPS)
	fTotal := p.Duration * fFPS
	fOutro := p.OutroDuration * fFPS
	fActive := fTotal - p.FadeDuration*fFPS
	if fActive <= 0 {
		fActive = fTotal
	}

	zSpeed := e.Speed
	if zSpeed <= 0 {
		zSpeed = 0.001
	}

	// Пик зума: половина активного времени до аутро, но не больше 1.3
	onPeak := 0.3 / zSpeed
	if span := fActive - fOutro; span > 0 && onPeak > span/2 {
		onPeak = span / 2
	}
	actualPeak := 1.0 + zSpeed*onPeak

	// outroStart - момент, когда начинаем возвращаться к 1:1
	outroStart := fActive - fOutro
	if outroStart < onPeak {
		outroStart = onPeak
	}

	zFormula := fmt.Sprintf("if(lte(on,%f),1.0+(%f*on),if(lte(on,%f),%f,if(lte(on,%f),%f-(%f-1.0)*(on-%f)/(%f-%f),1.0)))",
		onPeak, zSpeed, outroStart, actualPeak, fActive, actualPeak, actualPeak, outroStart, fActive, outroStart)

	// Входной поток уже покадровый, поэтому d=1: один выходной кадр на входной
	zoomFilter := fmt.Sprintf("zoompan=z='%s':d=1:s=%dx%d:x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':fps=%d",
		zFormula, p.Width, p.Height, p.FPS)
	return join(zoomFilter, debugFilter(p))
}

func fadeLength(p config.SegmentParams) float64 {
	d := p.FadeDuration
	if d > p.Duration/2 {
		d = p.Duration / 2
	}
	return d
}

func debugFilter(p config.SegmentParams) string {
	if !p.Debug || !system.CheckFilterSupport("drawtext") {
		return ""
	}
	return fmt.Sprintf("drawtext=text='Clip %d | Time %%{pts\\:hms}':x=10:y=h-th-40:fontsize=20:fontcolor=yellow:box=1:boxcolor=black@0.5", p.ClipIndex+1)
}

func join(filters ...string) string {
	var parts []string
	for _, f := range filters {
		if f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, ",")
}
