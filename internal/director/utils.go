package director

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/ivlev/formation2video/internal/system"
)

// ScenariosDir is where generated scenarios are kept.
const ScenariosDir = "scenarios"

var scenarioExtensions = []string{".yaml", ".yml"}

// GenerateScenarioPath creates a timestamped scenario filename
func GenerateScenarioPath() string {
	return filepath.Join(ScenariosDir, "scenario_"+time.Now().Format("2006-01-02_15-04-05")+".yaml")
}

// FindLatestScenario returns the most recently modified scenario in ScenariosDir.
func FindLatestScenario() (string, error) {
	path, err := system.FindLatestFile(ScenariosDir, scenarioExtensions)
	if err != nil {
		return "", fmt.Errorf("сценарий не найден: %w", err)
	}
	return path, nil
}
