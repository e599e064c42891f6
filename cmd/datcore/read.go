package main

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/urfave/cli/v3"
)

func readCmd() *cli.Command {
	var length int64
	return &cli.Command{
		Name:      "read",
		Usage:     "Hex-dump bytes at a data-relative offset",
		ArgsUsage: "<file.dat> <offset>",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:        "length",
				Aliases:     []string{"n"},
				Usage:       "byte count (default: the rest of the record at offset)",
				Destination: &length,
			},
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
			c, err := openContainer(ctx, path)
			if err != nil {
				return err
			}
			n := int(length)
			if n <= 0 {
				owner, ok := c.OwnerOf(off)
				if !ok {
					return cli.Exit(fmt.Sprintf("error: offset %#x is outside the container", off), 1)
				}
				n = owner + c.LengthOf(owner) - off
			}
			b, err := c.ReadAt(off, n)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if jsonOutput {
				return printJSON(cmd.Root().Writer, map[string]any{"offset": off, "hex": hex.EncodeToString(b)})
			}
			hexdump(cmd.Root().Writer, off, b)
			return nil
		},
	}
}
