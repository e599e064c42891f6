package main

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/DRGN-DRC/Melee-Modding-Wizard-sub000/pkg/dat"
)

type nodeView struct {
	Table  string `json:"table"`
	Index  int    `json:"index"`
	Offset int    `json:"offset"`
	Label  string `json:"label"`
	Kind   string `json:"kind"`
}

func labelsCmd() *cli.Command {
	var kind string
	return &cli.Command{
		Name:      "labels",
		Usage:     "List the root and alias node tables",
		ArgsUsage: "<file.dat>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "kind", Usage: "only \"root\" or \"label\" entries", Destination: &kind},
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
			views := listNodes(c, kind)
			if jsonOutput {
				return printJSON(cmd.Root().Writer, views)
			}
			printNodeTable(cmd.Root().Writer, views)
			return nil
		},
	}
}

func listNodes(c *dat.Container, kind string) []nodeView {
	views := []nodeView{}
	for _, n := range c.Nodes() {
		if kind != "" && n.Kind.String() != kind {
			continue
		}
		views = append(views, nodeView{
			Table:  n.Table.String(),
			Index:  n.Index,
			Offset: n.Offset,
			Label:  n.Label,
			Kind:   n.Kind.String(),
		})
	}
	return views
}

func printNodeTable(w io.Writer, views []nodeView) {
	_, _ = fmt.Fprintf(w, "%-6s %-5s %-10s %-6s %s\n", "TABLE", "ROW", "OFFSET", "KIND", "LABEL")
	for _, v := range views {
		_, _ = fmt.Fprintf(w, "%-6s %-5d %#-10x %-6s %s\n", v.Table, v.Index, v.Offset, v.Kind, v.Label)
	}
}
