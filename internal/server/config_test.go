package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/iwvelando/nitrogen-response/pkg/constants"
)

func TestLoadConfigDefaultsWhenMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Address != constants.DefaultServerAddress {
		t.Fatalf("expected default address, got %q", cfg.Address)
	}
	if cfg.DatasetSizeBytes() != constants.DefaultMaxDatasetSizeBytes {
		t.Fatalf("expected default dataset size limit, got %d", cfg.DatasetSizeBytes())
	}
	if cfg.ArtifactURLPrefix != constants.DefaultArtifactURLPrefix {
		t.Fatalf("expected default artifact prefix, got %q", cfg.ArtifactURLPrefix)
	}
	if cfg.Logging.Level != "" || cfg.Logging.Format != "" || cfg.Logging.OutputFile != "" {
		t.Fatalf("expected empty logging defaults, got %+v", cfg.Logging)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server-config.yaml")
	contents := []byte(`address: 127.0.0.1:9000
maxDatasetSize: 2M
artifactURLPrefix: charts
logging:
  level: debug
  format: console
`)
	if err := os.WriteFile(path, contents, 0600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Address != "127.0.0.1:9000" {
		t.Fatalf("expected address override, got %s", cfg.Address)
	}
	if cfg.DatasetSizeBytes() != 2*1024*1024 {
		t.Fatalf("expected dataset size override, got %d", cfg.DatasetSizeBytes())
	}
	if cfg.ArtifactURLPrefix != "/charts/" {
		t.Fatalf("expected normalized artifact prefix, got %q", cfg.ArtifactURLPrefix)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Fatalf("unexpected logging config %+v", cfg.Logging)
	}
}

func TestLoadConfigInvalidSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("maxDatasetSize: invalid"), 0600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for invalid size but got nil")
	}
}

func TestSetDatasetSizeBytes(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	cfg.SetDatasetSizeBytes(4096)
	if cfg.DatasetSizeBytes() != 4096 || cfg.MaxDatasetSize != "4096" {
		t.Fatalf("expected override to 4096, got %d (%s)", cfg.DatasetSizeBytes(), cfg.MaxDatasetSize)
	}

	cfg.SetDatasetSizeBytes(0)
	if cfg.DatasetSizeBytes() != 4096 {
		t.Fatalf("non-positive override should be ignored, got %d", cfg.DatasetSizeBytes())
	}
}

func TestParseSize(t *testing.T) {
	tests := map[string]int64{
		"":          constants.DefaultMaxDatasetSizeBytes,
		"1024":      1024,
		"512b":      512,
		"256K":      256 * 1024,
		"64m":       64 * 1024 * 1024,
		"3MB":       3 * 1024 * 1024,
		"2G":        2 * 1024 * 1024 * 1024,
		"  4096   ": 4096,
	}

	for input, expected := range tests {
		got, err := ParseSize(input)
		if err != nil {
			t.Fatalf("ParseSize(%q) returned error: %v", input, err)
		}
		if got != expected {
			t.Fatalf("ParseSize(%q) = %d, expected %d", input, got, expected)
		}
	}

	for _, input := range []string{"1TB", "abc", "99999999999999G"} {
		if _, err := ParseSize(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}
