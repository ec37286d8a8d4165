package director

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// WriteScenario stores scenario as YAML, creating the parent directory.
func WriteScenario(scenario *Scenario, path string) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(scenario); err != nil {
		return fmt.Errorf("encode scenario: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// ReadScenario loads a scenario written by WriteScenario, possibly edited
// by hand. Clips without keyframes cannot be played back.
func ReadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	for i, c := range scenario.Clips {
		if len(c.Keyframes) == 0 {
			return nil, fmt.Errorf("scenario %s: clip %d has no keyframes", path, i+1)
		}
	}
	return &scenario, nil
}
