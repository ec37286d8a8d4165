// Package trace replays a payload into a deterministic document whose hash
// changes whenever the event list or any snapshot changes.
package trace

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/ivlev/formation2video/internal/formation"
	"github.com/ivlev/formation2video/internal/payload"
	"github.com/ivlev/formation2video/internal/timeline"
)

// Snapshot is a formation snapshot with coordinates rounded to 6 decimals.
type Snapshot struct {
	T             int                        `json:"t" yaml:"t"`
	FormationKind string                     `json:"formationKind" yaml:"formationKind"`
	Separation    float64                    `json:"separation" yaml:"separation"`
	Positions     map[string]formation.Point `json:"positions" yaml:"positions"`
}

type Document struct {
	Source        string           `json:"source" yaml:"source"`
	FormationKind string           `json:"formationKind" yaml:"formationKind"`
	TotalCounts   int              `json:"totalCounts" yaml:"totalCounts"`
	EventCount    int              `json:"eventCount" yaml:"eventCount"`
	TraceHash     string           `json:"traceHash" yaml:"traceHash"`
	Outcomes      map[string]int   `json:"outcomes" yaml:"outcomes"`
	Events        []timeline.Event `json:"events" yaml:"events"`
	Snapshots     []Snapshot       `json:"snapshots" yaml:"snapshots"`
}

// Build replays p and returns its trace document.
func Build(source string, p *payload.Payload) (*Document, error) {
	initial, err := formation.New(p)
	if err != nil {
		return nil, fmt.Errorf("trace %s: %w", source, err)
	}
	tl := timeline.Compile(p)
	snaps, outcomes := formation.Replay(initial, tl)

	doc := &Document{
		Source:        source,
		FormationKind: string(initial.Kind()),
		TotalCounts:   tl.TotalCounts,
		EventCount:    len(tl.Events),
		Outcomes:      map[string]int{},
		Events:        tl.Events,
		Snapshots:     make([]Snapshot, len(snaps)),
	}
	for _, o := range outcomes {
		doc.Outcomes[o.String()]++
	}
	for i, s := range snaps {
		doc.Snapshots[i] = roundSnapshot(s)
	}

	doc.TraceHash, err = Hash(doc)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Hash is the hex SHA-256 of the canonical JSON of the replay: formation
// kind, events, snapshots and total counts, with object keys sorted.
func Hash(doc *Document) (string, error) {
	events, snaps := doc.Events, doc.Snapshots
	if events == nil {
		events = []timeline.Event{}
	}
	if snaps == nil {
		snaps = []Snapshot{}
	}
	body, err := canonicalJSON(map[string]any{
		"formationKind": doc.FormationKind,
		"events":        events,
		"snapshots":     snaps,
		"totalCounts":   doc.TotalCounts,
	})
	if err != nil {
		return "", fmt.Errorf("canonical json: %w", err)
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), nil
}

// Verify recomputes the hash of a document read back from disk.
func Verify(doc *Document) error {
	got, err := Hash(doc)
	if err != nil {
		return err
	}
	if got != doc.TraceHash {
		return fmt.Errorf("trace hash mismatch: recorded %s, computed %s", doc.TraceHash, got)
	}
	return nil
}

// Summary is the one-line report printed by the trace command.
func (d *Document) Summary() string {
	keys := make([]string, 0, len(d.Outcomes))
	for k := range d.Outcomes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b bytes.Buffer
	fmt.Fprintf(&b, "%s: kind=%s counts=%d events=%d", d.Source, d.FormationKind, d.TotalCounts, d.EventCount)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%d", k, d.Outcomes[k])
	}
	fmt.Fprintf(&b, " hash=%s", d.TraceHash)
	return b.String()
}

// canonicalJSON marshals v with every object's keys sorted and no spaces.
// Struct fields are re-keyed through a generic decode; json.Number keeps
// the original number text.
func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

func roundSnapshot(s formation.Snapshot) Snapshot {
	out := Snapshot{
		T:             s.T,
		FormationKind: string(s.FormationKind),
		Separation:    r6(s.Separation),
		Positions:     make(map[string]formation.Point, len(s.Positions)),
	}
	for id, p := range s.Positions {
		out.Positions[id] = formation.Point{X: r6(p.X), Y: r6(p.Y)}
	}
	return out
}

func r6(v float64) float64 {
	r := math.Round(v*1e6) / 1e6
	if r == 0 {
		return 0 // no negative zero in the canonical form
	}
	return r
}
