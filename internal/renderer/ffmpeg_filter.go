package renderer

import (
	"fmt"
	"strings"

	"github.com/ivlev/formation2video/internal/director"
)

// GenerateCaptionFilter creates a chain of FFmpeg drawtext filters that show
// the name of each figure while it plays. Intro and outro holds get no caption.
func GenerateCaptionFilter(keyframes []director.Keyframe, fontSize int) string {
	if len(keyframes) < 2 {
		return ""
	}
	if fontSize <= 0 {
		fontSize = 28
	}

	var parts []string
	for i := 0; i < len(keyframes)-1; i++ {
		kf := keyframes[i]
		end := keyframes[i+1].Time
		if !isFigureFocus(kf.Focus) || end <= kf.Time {
			continue
		}
		// Окно активности подписи: между началом фигуры и следующим ключевым кадром
		parts = append(parts, fmt.Sprintf(
			"drawtext=text='%s':x=(w-text_w)/2:y=h-text_h-24:fontsize=%d:fontcolor=black:box=1:boxcolor=white@0.6:enable='between(t,%.3f,%.3f)'",
			escapeDrawtext(kf.Focus), fontSize, kf.Time, end))
	}
	return strings.Join(parts, ",")
}

// GenerateCountFilter overlays the running count for debugging. The count is
// linear between keyframes, so the expression is piecewise like the keyframes.
func GenerateCountFilter(keyframes []director.Keyframe) string {
	if len(keyframes) == 0 {
		return ""
	}
	return fmt.Sprintf("drawtext=text='count %%{eif\\:%s\\:d}':x=10:y=h-th-10:fontsize=20:fontcolor=yellow:box=1:boxcolor=black@0.5",
		buildCountExpression(keyframes))
}

// buildCountExpression creates a piecewise count(t) expression for FFmpeg
func buildCountExpression(keyframes []director.Keyframe) string {
	if len(keyframes) == 1 {
		return fmt.Sprintf("%.6f", keyframes[0].Count)
	}

	expr := ""
	open := 0
	for i := 0; i < len(keyframes)-1; i++ {
		start, end := keyframes[i], keyframes[i+1]
		if end.Time <= start.Time {
			continue
		}
		// if(lte(t,end),startCount+(t-start)/(end-start)*(endCount-startCount),...)
		expr += fmt.Sprintf("if(lte(t\\,%.6f)\\,%.6f+(t-%.6f)/%.6f*%.6f\\,",
			end.Time, start.Count, start.Time, end.Time-start.Time, end.Count-start.Count)
		open++
	}

	// Close all if statements and add the final count
	expr += fmt.Sprintf("%.6f", keyframes[len(keyframes)-1].Count)
	expr += strings.Repeat(")", open)
	return expr
}

func isFigureFocus(focus string) bool {
	switch focus {
	case "", director.FocusIntro, director.FocusOutro, director.FocusEnd:
		return false
	}
	return true
}

var drawtextEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, "’",
	`:`, `\:`,
	`%`, `\%`,
)

func escapeDrawtext(s string) string {
	return drawtextEscaper.Replace(s)
}
