package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func resizeCmd() *cli.Command {
	var (
		remove bool
		output string
		dryRun bool
	)
	return &cli.Command{
		Name:  "resize",
		Usage: "Grow or shrink the record owning an offset and fix up every pointer",
		ArgsUsage: "<file.dat> <offset> <delta>\n" +
			"   datcore resize --remove <file.dat> <record offset>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "remove", Usage: "delete the whole record starting at offset", Destination: &remove},
			&cli.BoolFlag{Name: "dry-run", Usage: "apply the resize and report it without saving", Destination: &dryRun},
			outputFlag(&output),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path, err := fileArg(cmd)
			if err != nil {
				return err
			}
			off, err := parseOffset(cmd.Args().Get(1))
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			var delta int
			if !remove {
				if delta, err = parseDelta(cmd.Args().Get(2)); err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
			}

			c, err := openContainer(ctx, path)
			if err != nil {
				return err
			}
			if remove {
				err = c.RemoveRecord(off)
			} else {
				err = c.Resize(off, delta)
			}
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if len(c.Changes()) == 0 {
				_, _ = fmt.Fprintln(cmd.Root().Writer, "nothing to do")
				return nil
			}
			printChanges(cmd, c.Changes())
			if dryRun {
				return nil
			}
			return saveContainer(ctx, c, path, output)
		},
	}
}
