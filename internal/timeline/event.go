package timeline

import (
	"strconv"
	"strings"
)

// Primitive kinds understood by the formation state machine. Kinds are
// matched case-insensitively; anything else is carried along and ignored.
const (
	KindApproach   = "approach"
	KindRetreat    = "retreat"
	KindProgress   = "progress"
	KindSwapPlaces = "swapplaces"
	KindMove       = "move"
)

// FrameFormation is the only move frame the state machine acts on.
const FrameFormation = "formation"

// Event is one primitive stamped with the count at which it takes effect.
type Event struct {
	T             int    `json:"t" yaml:"t"`
	Kind          string `json:"kind" yaml:"kind"`
	A             string `json:"a" yaml:"a"`
	B             string `json:"b" yaml:"b"`
	Delta         string `json:"delta" yaml:"delta"`
	Dir           string `json:"dir" yaml:"dir"`
	Frame         string `json:"frame" yaml:"frame"`
	Who           string `json:"who" yaml:"who"`
	PreserveOrder bool   `json:"preserveOrder" yaml:"preserveOrder"`
}

// NormalizedKind is the lower-cased kind used for dispatch.
func (e Event) NormalizedKind() string {
	return strings.ToLower(strings.TrimSpace(e.Kind))
}

// DeltaValue parses the signed integer delta; anything unparseable is 0.
func (e Event) DeltaValue() int {
	return ParseDelta(e.Delta)
}

// ParseDelta reads a leading signed integer ("2", "-1", "3 slots"), or 0.
func ParseDelta(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// IsTruthy reports whether an attribute value means "true".
func IsTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// Timeline is the compiled, immutable event list of a payload.
type Timeline struct {
	Events      []Event `json:"events" yaml:"events"`
	TotalCounts int     `json:"totalCounts" yaml:"totalCounts"`
}
