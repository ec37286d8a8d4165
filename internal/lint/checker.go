// Package lint reports structural problems in export-json payloads before
// they reach the state machine. Checkers never fail: every finding becomes
// an Issue and the caller decides what is fatal.
package lint

import (
	"fmt"
	"sort"

	"github.com/ivlev/formation2video/internal/payload"
)

// Issue is one finding, identified by a stable machine-readable code.
type Issue struct {
	Code    string `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
}

func (i Issue) String() string { return i.Code + ": " + i.Message }

// Checker is the interface for lint strategies
type Checker interface {
	Name() string
	Check(p *payload.Payload) []Issue
}

// NewChecker returns the checker for variant; "" means geometry.
func NewChecker(variant string) (Checker, error) {
	switch variant {
	case "geometry", "":
		return NewGeometryChecker(), nil
	case "timing":
		return NewTimingChecker(), nil
	case "schema":
		return NewSchemaChecker(), nil
	default:
		return nil, fmt.Errorf("unknown lint variant: %s", variant)
	}
}

// All returns every checker in a fixed order.
func All() []Checker {
	return []Checker{NewSchemaChecker(), NewGeometryChecker(), NewTimingChecker()}
}

// Run applies each checker to p and concatenates the findings.
func Run(p *payload.Payload, checkers ...Checker) []Issue {
	var out []Issue
	for _, c := range checkers {
		out = append(out, c.Check(p)...)
	}
	return out
}

// Counts groups issues by code.
func Counts(issues []Issue) map[string]int {
	out := map[string]int{}
	for _, i := range issues {
		out[i.Code]++
	}
	return out
}

// Codes returns the distinct codes of issues, sorted.
func Codes(issues []Issue) []string {
	counts := Counts(issues)
	out := make([]string, 0, len(counts))
	for c := range counts {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
