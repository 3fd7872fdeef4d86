package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/gatekeep/gatekeep/game"
)

// parseTuning decodes policy tuning YAML over the stock defaults, with strict
// field checking so typos cause errors instead of silently keeping defaults.
func parseTuning(data []byte) (game.Tuning, error) {
	tuning := game.DefaultTuning()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&tuning); err != nil {
		return game.Tuning{}, fmt.Errorf("parse tuning: %w", err)
	}
	if tuning.SafetyMargin < 0 {
		return game.Tuning{}, fmt.Errorf("safety_margin must be >= 0, got %v", tuning.SafetyMargin)
	}
	if tuning.MarginPhaseFraction < 0 || tuning.MarginPhaseFraction > 1 {
		return game.Tuning{}, fmt.Errorf("margin_phase_fraction must be in [0,1], got %v", tuning.MarginPhaseFraction)
	}
	if tuning.FillerSlack < 0 {
		return game.Tuning{}, fmt.Errorf("filler_slack must be >= 0, got %v", tuning.FillerSlack)
	}
	if tuning.CapPressureFraction < 0 || tuning.CapPressureFraction > 1 {
		return game.Tuning{}, fmt.Errorf("cap_pressure_fraction must be in [0,1], got %v", tuning.CapPressureFraction)
	}
	return tuning, nil
}

// loadTuning reads the tuning file named by the --tuning flag.
func loadTuning(path string) game.Tuning {
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Fatalf("Failed to read tuning file: %v", err)
	}
	tuning, err := parseTuning(data)
	if err != nil {
		logrus.Fatalf("Failed to parse tuning file %s: %v", path, err)
	}
	return tuning
}
