package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseSeedTargets(t *testing.T) {
	data := []byte(`
targets:
  - name: API
    url: https://api.example.com/health
    interval_seconds: 30
    timeout_seconds: 5
    expected_substring: ok
    expected_json_keys: [status, data.items.0.id]
    max_latency_ms: 500
  - name: Site
    url: https://example.com
`)
	seeds, err := ParseSeedTargets(data)
	if err != nil {
		t.Fatalf("ParseSeedTargets: %v", err)
	}
	if len(seeds) != 2 {
		t.Fatalf("len = %d, want 2", len(seeds))
	}
	first := seeds[0]
	if first.Name != "API" || first.IntervalSeconds != 30 || first.TimeoutSeconds != 5 {
		t.Fatalf("first = %+v", first)
	}
	if len(first.ExpectedJSONKeys) != 2 || first.ExpectedJSONKeys[1] != "data.items.0.id" {
		t.Fatalf("ExpectedJSONKeys = %v", first.ExpectedJSONKeys)
	}
	if first.MaxLatencyMS != 500 {
		t.Fatalf("MaxLatencyMS = %d, want 500", first.MaxLatencyMS)
	}
	second := seeds[1]
	if second.IntervalSeconds != 0 || second.TimeoutSeconds != 0 {
		t.Fatalf("second should leave defaults to the control plane: %+v", second)
	}
}

func TestParseSeedTargetsEmptyList(t *testing.T) {
	seeds, err := ParseSeedTargets([]byte("targets: []\n"))
	if err != nil {
		t.Fatalf("ParseSeedTargets: %v", err)
	}
	if len(seeds) != 0 {
		t.Fatalf("len = %d, want 0", len(seeds))
	}
}

func TestParseSeedTargetsRejectsBadYAML(t *testing.T) {
	if _, err := ParseSeedTargets([]byte("targets: [\n")); err == nil {
		t.Fatal("want parse error")
	}
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.yaml")
	content := "targets:\n  - name: API\n    url: https://api.example.com\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	seeds, err := LoadSeedFile(path)
	if err != nil {
		t.Fatalf("LoadSeedFile: %v", err)
	}
	if len(seeds) != 1 || seeds[0].URL != "https://api.example.com" {
		t.Fatalf("seeds = %+v", seeds)
	}

	if _, err := LoadSeedFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("want error for missing file")
	}
}
