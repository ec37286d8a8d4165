package director

// Scenario is the playback plan of a whole video: one clip per dance
type Scenario struct {
	Version string `yaml:"version"`
	Clips   []Clip `yaml:"clips"`
}

// Clip maps the video time of one payload onto its count timeline
type Clip struct {
	ID              int        `yaml:"id"`
	Input           string     `yaml:"input"`
	Title           string     `yaml:"title,omitempty"`
	FormationKind   string     `yaml:"formation_kind"`
	TotalCounts     int        `yaml:"total_counts"`
	SecondsPerCount float64    `yaml:"seconds_per_count"`
	Duration        float64    `yaml:"duration"` // Total duration in seconds
	Keyframes       []Keyframe `yaml:"keyframes"`
}

// Keyframe pins a count to a moment of the clip
type Keyframe struct {
	Time  float64 `yaml:"time"`  // Time offset in seconds
	Count float64 `yaml:"count"` // Count shown at that time
	Focus string  `yaml:"focus"` // Figure (or intro/outro) starting here
}

// CountAt maps a clip time in seconds to a fractional count. Counts advance
// linearly between keyframes and hold outside them.
func CountAt(keyframes []Keyframe, seconds float64) float64 {
	if len(keyframes) == 0 {
		return 0
	}
	if seconds <= keyframes[0].Time {
		return keyframes[0].Count
	}
	last := keyframes[len(keyframes)-1]
	if seconds >= last.Time {
		return last.Count
	}

	for i := 0; i < len(keyframes)-1; i++ {
		prev, next := keyframes[i], keyframes[i+1]
		if seconds < prev.Time || seconds >= next.Time {
			continue
		}
		span := next.Time - prev.Time
		if span <= 0 {
			return next.Count
		}
		return prev.Count + (next.Count-prev.Count)*(seconds-prev.Time)/span
	}
	return last.Count
}

// FocusAt returns the focus of the last keyframe at or before seconds.
func FocusAt(keyframes []Keyframe, seconds float64) string {
	focus := ""
	for _, kf := range keyframes {
		if kf.Time > seconds {
			break
		}
		focus = kf.Focus
	}
	return focus
}

// Scaled returns a copy of the clip stretched to the given duration.
func (c Clip) Scaled(duration float64) Clip {
	if c.Duration <= 0 || duration <= 0 {
		return c
	}
	scale := duration / c.Duration
	out := c
	out.Duration = duration
	out.SecondsPerCount *= scale
	out.Keyframes = make([]Keyframe, len(c.Keyframes))
	for i, kf := range c.Keyframes {
		kf.Time *= scale
		out.Keyframes[i] = kf
	}
	return out
}

// TotalDuration sums clip durations minus the overlap of fade transitions.
func (s *Scenario) TotalDuration(fade float64) float64 {
	total := 0.0
	for _, c := range s.Clips {
		total += c.Duration
	}
	if len(s.Clips) > 1 {
		total -= float64(len(s.Clips)-1) * fade
	}
	return total
}
