package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func getCmd() *cli.Command {
	var typeName string
	return &cli.Command{
		Name:      "get",
		Usage:     "Show one record by offset or node label",
		ArgsUsage: "<file.dat> <offset|label>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Usage: "require the record to validate as this shape", Destination: &typeName},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path, err := fileArg(cmd)
			if err != nil {
				return err
			}
			if cmd.Args().Len() < 2 {
				return cli.Exit("error: get requires an offset or label", 1)
			}
			c, err := openContainer(ctx, path)
			if err != nil {
				return err
			}
			r, err := resolveRecord(c, cmd.Args().Get(1))
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if typeName != "" {
				typed, ok := c.GetAs(r.Offset(), typeName)
				if !ok {
					return cli.Exit(fmt.Sprintf("error: record at %#x is not a %s", r.Offset(), typeName), 1)
				}
				r = typed
			}
			if jsonOutput {
				v, err := viewRecord(r, true)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				return printJSON(cmd.Root().Writer, v)
			}
			return printRecord(cmd.Root().Writer, r)
		},
	}
}
