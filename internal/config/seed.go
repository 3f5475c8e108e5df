package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedTarget is one target entry from the YAML seed file. Field
// semantics match the POST /api/targets payload; zero interval/timeout
// fall back to the configured defaults.
type SeedTarget struct {
	Name              string   `yaml:"name"`
	URL               string   `yaml:"url"`
	IntervalSeconds   int      `yaml:"interval_seconds"`
	TimeoutSeconds    int      `yaml:"timeout_seconds"`
	ExpectedSubstring string   `yaml:"expected_substring"`
	ExpectedJSONKeys  []string `yaml:"expected_json_keys"`
	MaxLatencyMS      int      `yaml:"max_latency_ms"`
}

type seedFile struct {
	Targets []SeedTarget `yaml:"targets"`
}

// LoadSeedFile reads and parses the YAML targets file at path.
func LoadSeedFile(path string) ([]SeedTarget, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeedTargets(data)
}

// ParseSeedTargets parses seed file content. An empty targets list is
// valid and returns an empty slice.
func ParseSeedTargets(data []byte) ([]SeedTarget, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return f.Targets, nil
}
