package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/DRGN-DRC/Melee-Modding-Wizard-sub000/internal/logger"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "datcore",
		Usage: "Inspect and edit relocatable DAT containers",
		Flags: append(containerFlags(), loggingFlags()...),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg, err := LoadConfig(configPath(), nil)
			if err != nil {
				return ctx, cli.Exit(fmt.Sprintf("error: config: %v", err), 1)
			}
			applyConfig(cmd, cfg)
			ctx = withConfig(ctx, cfg)

			level := logger.ParseLevel(logLevel)
			if debug {
				level = slog.LevelDebug
			}
			return logger.WithContext(ctx, logger.ForFormat(logFormat, os.Stderr, level)), nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			inspectCmd(),
			recordsCmd(),
			labelsCmd(),
			getCmd(),
			readCmd(),
			writeCmd(),
			resizeCmd(),
			verifyCmd(),
			shellCmd(),
			serveCmd(),
			versionCmd(),
		},
	}
}

type configKey struct{}

func withConfig(ctx context.Context, cfg Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

func configFrom(ctx context.Context) Config {
	cfg, _ := ctx.Value(configKey{}).(Config)
	return cfg
}
