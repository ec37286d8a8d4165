package lint

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ivlev/formation2video/internal/payload"
	"github.com/ivlev/formation2video/internal/timeline"
)

// Issue codes of the timing checker.
const (
	CodeBadMeterFormat = "bad_meter_format"
	CodeZeroBeats      = "zero_beats"
	CodeOffMeterFigure = "off_meter_figure"
)

// Meter is a parsed time signature: "3/4", or additive "2+2+3/8".
type Meter struct {
	Raw         string
	Groups      []int
	Denominator int
	// BarLength is the number of counts in one bar. Additive meters count
	// one per group; 9/16 is counted in four.
	BarLength int
	Additive  bool
	// NineSixteen marks 9/16, which older exports also phrase in half bars.
	NineSixteen bool
}

// ParseMeter parses N/D or A+B+.../D with positive integer parts.
func ParseMeter(raw string) (Meter, bool) {
	s := strings.TrimSpace(raw)
	num, den, ok := strings.Cut(s, "/")
	if !ok || strings.Contains(den, "/") || strings.TrimSpace(num) == "" {
		return Meter{}, false
	}
	d, ok := positiveInt(den)
	if !ok {
		return Meter{}, false
	}

	m := Meter{Raw: raw, Denominator: d}
	total := 0
	for _, tok := range strings.Split(num, "+") {
		v, ok := positiveInt(tok)
		if !ok {
			return Meter{}, false
		}
		m.Groups = append(m.Groups, v)
		total += v
	}

	m.Additive = len(m.Groups) > 1
	m.NineSixteen = !m.Additive && total == 9 && d == 16
	switch {
	case m.Additive:
		m.BarLength = len(m.Groups)
	case m.NineSixteen:
		m.BarLength = 4
	default:
		m.BarLength = total
	}
	return m, true
}

// Aligns reports whether a figure of total counts fills whole bars.
func (m Meter) Aligns(total int) bool {
	if m.BarLength <= 0 {
		return false
	}
	if total%m.BarLength == 0 {
		return true
	}
	return m.NineSixteen && total%2 == 0
}

func positiveInt(s string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// TimingChecker validates step counts against meta.meter.
type TimingChecker struct{}

func NewTimingChecker() *TimingChecker { return &TimingChecker{} }

func (c *TimingChecker) Name() string { return "timing" }

func (c *TimingChecker) Check(p *payload.Payload) []Issue {
	if p == nil {
		return nil
	}
	var issues []Issue
	add := func(code, format string, args ...any) {
		issues = append(issues, Issue{Code: code, Message: fmt.Sprintf(format, args...)})
	}

	for fi, fig := range p.Figures {
		for si, step := range fig.Steps {
			if len(step.Primitives) > 0 && timeline.AsCount(step.Beats) == 0 {
				add(CodeZeroBeats, "figure %q step %d has primitives but no counts (beats=%q)",
					figureName(fig, fi), si+1, step.Beats.String())
			}
		}
	}

	raw := p.Meta.Meter.String()
	if strings.TrimSpace(raw) == "" {
		return issues
	}
	meter, ok := ParseMeter(raw)
	if !ok {
		add(CodeBadMeterFormat, "meter %q must be N/D or additive A+B+.../D", raw)
		return issues
	}

	for fi, fig := range p.Figures {
		total := 0
		for _, step := range fig.Steps {
			total += timeline.AsCount(step.Beats)
		}
		// Additive bars count one per group, so every partial sum already
		// lands on a group boundary and only the total needs checking.
		if !meter.Aligns(total) {
			add(CodeOffMeterFigure, "figure %q has %d counts, bar length of %s is %d",
				figureName(fig, fi), total, meter.Raw, meter.BarLength)
		}
	}
	return issues
}

func figureName(f payload.Figure, i int) string {
	if l := f.Label(); l != "" {
		return l
	}
	return fmt.Sprintf("figure_%d", i+1)
}
