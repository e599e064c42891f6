package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"go-simpler.org/env"
	"gopkg.in/yaml.v3"
)

// Config is the datcore configuration file (~/.config/datcore/config.yaml).
// DATCORE_* environment variables override the file; explicit flags override both.
type Config struct {
	ShapesFile    string `yaml:"shapes_file" env:"DATCORE_SHAPES_FILE"`
	Alignment     int    `yaml:"alignment" env:"DATCORE_ALIGNMENT"`
	ExpectedTag   string `yaml:"expected_tag" env:"DATCORE_EXPECTED_TAG"`
	LogLevel      string `yaml:"log_level" env:"DATCORE_LOG_LEVEL"`
	LogFormat     string `yaml:"log_format" env:"DATCORE_LOG_FORMAT"`
	ServerAddress string `yaml:"server_address" env:"DATCORE_SERVER_ADDRESS"`
	Backup        bool   `yaml:"backup" env:"DATCORE_BACKUP"`
}

func configPath() string {
	if configFile != "" {
		return configFile
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "datcore", "config.yaml")
}

// LoadConfig reads the config file, then applies environment overrides. A missing
// file is not an error.
func LoadConfig(path string, source env.Source) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	opts := &env.Options{}
	if source != nil {
		opts.Source = source
	}
	if err := env.Load(&cfg, opts); err != nil {
		return cfg, fmt.Errorf("environment: %w", err)
	}
	return cfg, nil
}

// applyConfig fills flag variables from the config when the flag was not given.
func applyConfig(c *cli.Command, cfg Config) {
	if cfg.ShapesFile != "" && !c.IsSet("shapes") {
		shapesFile = cfg.ShapesFile
	}
	if cfg.Alignment > 0 && !c.IsSet("alignment") {
		alignment = int64(cfg.Alignment)
	}
	if cfg.ExpectedTag != "" && !c.IsSet("tag") {
		expectedTag = cfg.ExpectedTag
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
	if cfg.Backup && !c.IsSet("backup") {
		backup = true
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}
