package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/arashi-labs/hybridcat/internal/rank"
)

// CLIConfig is an optional on-disk config file (hybridcat.yaml by
// default) providing defaults for the provider/model/snapshot flags and
// the ranker weights.
type CLIConfig struct {
	Provider string       `yaml:"provider,omitempty"`
	Model    string       `yaml:"model,omitempty"`
	Snapshot string       `yaml:"snapshot,omitempty"`
	Weights  rank.Weights `yaml:"weights,omitempty"`
}

var (
	configPath      string
	configWeights   rank.Weights
	configHasWeight bool
)

// loadCLIConfig reads path if it exists. Its values act as flag
// defaults: the root command's pre-run hook applies them after cobra has
// parsed the command line, skipping any flag set there explicitly. A
// missing file is not an error: the built-in flag defaults stand.
func loadCLIConfig(path string) (CLIConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return CLIConfig{}, nil
	}
	if err != nil {
		return CLIConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg CLIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func applyCLIConfig(cfg CLIConfig) {
	if cfg.Provider != "" {
		provider = cfg.Provider
	}
	if cfg.Model != "" {
		model = cfg.Model
	}
	if cfg.Snapshot != "" {
		snapshot = cfg.Snapshot
	}
	if cfg.Weights != (rank.Weights{}) {
		configWeights = cfg.Weights
		configHasWeight = true
	}
}
