package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/DRGN-DRC/Melee-Modding-Wizard-sub000/pkg/dat"
)

func writeCmd() *cli.Command {
	var (
		field   string
		pointer bool
		output  string
		dryRun  bool
	)
	return &cli.Command{
		Name:  "write",
		Usage: "Overwrite bytes, a shape field or a pointer, then save",
		ArgsUsage: "<file.dat> <offset> <hex bytes>\n" +
			"   datcore write --field <name> <file.dat> <record offset> <value>\n" +
			"   datcore write --pointer <file.dat> <location> <target>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "field", Usage: "set this field of the typed record at offset", Destination: &field},
			&cli.BoolFlag{Name: "pointer", Usage: "store a pointer and update the relocation table", Destination: &pointer},
			&cli.BoolFlag{Name: "dry-run", Usage: "apply the edit and report it without saving", Destination: &dryRun},
			outputFlag(&output),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path, err := fileArg(cmd)
			if err != nil {
				return err
			}
			if cmd.Args().Len() < 3 {
				return cli.Exit("error: write requires an offset and a value", 1)
			}
			off, err := parseOffset(cmd.Args().Get(1))
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			value := strings.Join(cmd.Args().Slice()[2:], "")

			c, err := openContainer(ctx, path)
			if err != nil {
				return err
			}
			if err := applyWrite(c, off, value, field, pointer); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			printChanges(cmd, c.Changes())
			if dryRun {
				return nil
			}
			return saveContainer(ctx, c, path, output)
		},
	}
}

func applyWrite(c *dat.Container, off int, value, field string, pointer bool) error {
	switch {
	case pointer:
		target, err := parseOffset(value)
		if err != nil {
			return err
		}
		return c.SetPointer(off, target)
	case field != "":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			if n, perr := strconv.ParseInt(value, 0, 64); perr == nil {
				v = float64(n)
			} else {
				return fmt.Errorf("invalid value %q", value)
			}
		}
		r, err := c.Get(off)
		if err != nil {
			return err
		}
		return r.SetField(field, v)
	default:
		b, err := hex.DecodeString(strings.ReplaceAll(strings.TrimPrefix(value, "0x"), " ", ""))
		if err != nil {
			return fmt.Errorf("invalid hex %q: %w", value, err)
		}
		return c.WriteAt(off, b)
	}
}

func printChanges(cmd *cli.Command, changes []dat.Change) {
	w := cmd.Root().Writer
	if jsonOutput {
		_ = printJSON(w, changes)
		return
	}
	for _, ch := range changes {
		_, _ = fmt.Fprintf(w, "%s: %s\n", ch.Kind, ch.Description)
	}
}
