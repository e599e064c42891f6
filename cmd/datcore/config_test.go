package main

import (
	"os"
	"path/filepath"
	"testing"

	"go-simpler.org/env"
)

func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), env.Map{})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg != (Config{}) {
		t.Fatalf("missing file should give the zero config: %+v", cfg)
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
shapes_file: /srv/shapes.yaml
alignment: 0x10
log_level: debug
server_address: 127.0.0.1:9000
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfig(path, env.Map{
		"DATCORE_LOG_LEVEL": "error",
		"DATCORE_BACKUP":    "true",
	})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ShapesFile != "/srv/shapes.yaml" || cfg.Alignment != 0x10 || cfg.ServerAddress != "127.0.0.1:9000" {
		t.Fatalf("file values mismatch: %+v", cfg)
	}
	if cfg.LogLevel != "error" {
		t.Fatalf("environment overrides the file: log level %q", cfg.LogLevel)
	}
	if !cfg.Backup {
		t.Fatalf("DATCORE_BACKUP not applied")
	}
}

func TestLoadConfigBadYAML(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("alignment: [nope"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfig(path, env.Map{}); err == nil {
		t.Fatalf("bad yaml should fail")
	}
}

func TestLoadConfigBadEnv(t *testing.T) {
	t.Parallel()
	if _, err := LoadConfig("", env.Map{"DATCORE_ALIGNMENT": "wide"}); err == nil {
		t.Fatalf("bad environment value should fail")
	}
}
