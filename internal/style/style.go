// Package style renders the status prefixes and emphasis used on the
// terminal. lipgloss drops the colors when stdout is not a TTY, so the
// prefixes stay readable in logs and pipes.
package style

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	colorInfo   = lipgloss.AdaptiveColor{Light: "#399ee6", Dark: "#59c2ff"}
	colorPass   = lipgloss.AdaptiveColor{Light: "#86b300", Dark: "#aad94c"}
	colorWarn   = lipgloss.AdaptiveColor{Light: "#f2ae49", Dark: "#ffb454"}
	colorFail   = lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#8a9199", Dark: "#6c7380"}
	colorAccent = lipgloss.AdaptiveColor{Light: "#a37acc", Dark: "#d2a6ff"}
)

var (
	Bold    = lipgloss.NewStyle().Bold(true)
	Dim     = lipgloss.NewStyle().Foreground(colorMuted)
	Pass    = lipgloss.NewStyle().Bold(true).Foreground(colorPass)
	Fail    = lipgloss.NewStyle().Bold(true).Foreground(colorFail)
	Warn    = lipgloss.NewStyle().Foreground(colorWarn)
	Heading = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
)

// Status prefixes
var (
	InfoPrefix    = lipgloss.NewStyle().Foreground(colorInfo).Render("[*]")
	WarningPrefix = Warn.Render("[!]")
	ArrowPrefix   = Dim.Render("[>]")
	SuccessPrefix = Pass.Render("[+++]")
	ErrorPrefix   = Fail.Render("[-]")
)

// Verdict renders OK or FAIL after a short tag, as in "GEO OK".
func Verdict(tag string, ok bool) string {
	if ok {
		return Bold.Render(tag) + " " + Pass.Render("OK")
	}
	return Bold.Render(tag) + " " + Fail.Render("FAIL")
}
