package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/DRGN-DRC/Melee-Modding-Wizard-sub000/pkg/dat"
)

func verifyCmd() *cli.Command {
	var quiet bool
	return &cli.Command{
		Name:      "verify",
		Usage:     "Check pointer integrity and record layout; exits non-zero on errors",
		ArgsUsage: "<file.dat>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "hide info-level findings", Destination: &quiet},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path, err := fileArg(cmd)
			if err != nil {
				return err
			}
			c, err := openContainer(ctx, path)
			if err != nil {
				return err
			}
			// Identify everything first so typed records are part of the check.
			_ = c.Records()
			issues := c.Verify()

			w := cmd.Root().Writer
			if jsonOutput {
				if err := printJSON(w, issues); err != nil {
					return err
				}
			} else {
				for _, is := range issues {
					if quiet && is.Severity == dat.SeverityInfo {
						continue
					}
					_, _ = fmt.Fprintln(w, is.String())
				}
			}
			if dat.HasErrors(issues) {
				return cli.Exit("verify: container has errors", 2)
			}
			if !jsonOutput {
				_, _ = fmt.Fprintln(w, "ok")
			}
			return nil
		},
	}
}
