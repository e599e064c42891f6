package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/DRGN-DRC/Melee-Modding-Wizard-sub000/internal/datfile"
	"github.com/DRGN-DRC/Melee-Modding-Wizard-sub000/internal/logger"
	"github.com/DRGN-DRC/Melee-Modding-Wizard-sub000/internal/session"
	"github.com/DRGN-DRC/Melee-Modding-Wizard-sub000/pkg/dat"
)

// loadOptions turns the global flags into container options.
func loadOptions(ctx context.Context) ([]dat.Option, error) {
	log := logger.FromContext(ctx)
	opts := []dat.Option{
		dat.WithLogger(log),
		dat.WithAlignment(int(alignment)),
		dat.WithExpectedTag(expectedTag),
	}
	if shapesFile != "" {
		reg, err := dat.LoadShapesFile(shapesFile)
		if err != nil {
			return nil, fmt.Errorf("shapes: %w", err)
		}
		log.Debug("loaded record shapes", "file", shapesFile, "count", reg.Len())
		opts = append(opts, dat.WithRegistry(reg))
	}
	return opts, nil
}

// fileArg returns the first positional argument or a usage error.
func fileArg(cmd *cli.Command) (string, error) {
	path := cmd.Args().First()
	if path == "" {
		return "", cli.Exit(fmt.Sprintf("error: %s requires a DAT file argument", cmd.Name), 1)
	}
	return path, nil
}

func openContainer(ctx context.Context, path string) (*dat.Container, error) {
	opts, err := loadOptions(ctx)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	c, err := datfile.Load(path, opts...)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("error: open: %v", err), 1)
	}
	return c, nil
}

func openSession(ctx context.Context, path string) (*session.Session, error) {
	opts, err := loadOptions(ctx)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	s, err := session.Open(session.Config{
		Path:    path,
		Backup:  backup,
		Logger:  logger.FromContext(ctx),
		Options: opts,
	})
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("error: open: %v", err), 1)
	}
	return s, nil
}

// saveContainer writes c to output, or back to path when output is empty.
func saveContainer(ctx context.Context, c *dat.Container, path, output string) error {
	dst := path
	if output != "" {
		dst = output
	}
	if err := datfile.Save(dst, c, datfile.SaveOptions{Backup: backup && dst == path}); err != nil {
		return cli.Exit(fmt.Sprintf("error: save: %v", err), 1)
	}
	logger.FromContext(ctx).Info("saved container", "path", dst, "size", c.Len())
	return nil
}
