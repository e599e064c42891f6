package main

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/DRGN-DRC/Melee-Modding-Wizard-sub000/pkg/dat"
)

func recordsCmd() *cli.Command {
	var (
		typeFilter  string
		orphansOnly bool
	)
	return &cli.Command{
		Name:      "records",
		Usage:     "List every record in the data region and extension data",
		ArgsUsage: "<file.dat>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Usage: "only records identified as this shape (or \"untyped\")", Destination: &typeFilter},
			&cli.BoolFlag{Name: "orphans", Usage: "only records unreachable from the node tables", Destination: &orphansOnly},
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
			views, err := listRecords(c, typeFilter, orphansOnly)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if jsonOutput {
				return printJSON(cmd.Root().Writer, views)
			}
			printRecordTable(cmd.Root().Writer, views)
			return nil
		},
	}
}

func listRecords(c *dat.Container, typeFilter string, orphansOnly bool) ([]recordView, error) {
	views := []recordView{}
	for _, r := range c.Records() {
		v, err := viewRecord(r, false)
		if err != nil {
			return nil, err
		}
		if typeFilter != "" && v.Type != typeFilter {
			continue
		}
		if orphansOnly && !v.Orphan {
			continue
		}
		views = append(views, v)
	}
	return views, nil
}

func printRecordTable(w io.Writer, views []recordView) {
	_, _ = fmt.Fprintf(w, "%-10s %-10s %-24s %s\n", "OFFSET", "LENGTH", "TYPE", "ORPHAN")
	for _, v := range views {
		orphan := ""
		if v.Orphan {
			orphan = "yes"
		}
		_, _ = fmt.Fprintf(w, "%#-10x %#-10x %-24s %s\n", v.Offset, v.Length, v.Type, orphan)
	}
	_, _ = fmt.Fprintf(w, "%d records\n", len(views))
}
