package main

import "github.com/urfave/cli/v3"

var (
	configFile  string
	shapesFile  string
	alignment   int64
	expectedTag string
	backup      bool
	jsonOutput  bool
	logLevel    string
	logFormat   string
	debug       bool
)

func containerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml (default: $XDG_CONFIG_HOME/datcore/config.yaml)",
			Sources:     cli.EnvVars("DATCORE_CONFIG"),
			Destination: &configFile,
		},
		&cli.StringFlag{
			Name:        "shapes",
			Usage:       "YAML file of record shapes used to identify records",
			Destination: &shapesFile,
		},
		&cli.Int64Flag{
			Name:        "alignment",
			Usage:       "resize alignment unit in bytes",
			Value:       0x20,
			Destination: &alignment,
		},
		&cli.StringFlag{
			Name:        "tag",
			Usage:       "require this 4-character type tag",
			Destination: &expectedTag,
		},
		&cli.BoolFlag{
			Name:        "backup",
			Usage:       "keep the previous file as <file>.bak when saving",
			Destination: &backup,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "print machine-readable JSON",
			Destination: &jsonOutput,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "warn",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func outputFlag(dst *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "output",
		Aliases:     []string{"o"},
		Usage:       "write the edited container here instead of in place",
		Destination: dst,
	}
}
