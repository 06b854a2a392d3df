package scenario

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads a scenario from a YAML file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing scenario YAML: %w", err)
	}

	applyDefaults(&sc)
	return &sc, nil
}

// LoadProject loads a scenario from a project directory. It looks for
// scenario.yaml in the given directory.
func LoadProject(projectDir string) (*Scenario, error) {
	return Load(filepath.Join(projectDir, "scenario.yaml"))
}

func applyDefaults(sc *Scenario) {
	if sc.TickRate == 0 {
		sc.TickRate = 60
	}
	if sc.Seed.A == 0 && sc.Seed.B == 0 {
		sc.Seed = SeedDef{A: 1, B: 2}
	}
	for i := range sc.Lots {
		l := &sc.Lots[i]
		if l.ResidentSpots == 0 && l.OpenSpots == 0 {
			l.ResidentSpots = 1
			l.OpenSpots = 1
		}
		if l.Residents == 0 {
			l.Residents = 1
		}
	}
}
