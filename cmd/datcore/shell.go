package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/urfave/cli/v3"

	"github.com/DRGN-DRC/Melee-Modding-Wizard-sub000/internal/session"
	"github.com/DRGN-DRC/Melee-Modding-Wizard-sub000/pkg/dat"
)

var errQuit = errors.New("quit")

func shellCmd() *cli.Command {
	return &cli.Command{
		Name:      "shell",
		Usage:     "Interactive editing session over one DAT file",
		ArgsUsage: "<file.dat>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path, err := fileArg(cmd)
			if err != nil {
				return err
			}
			sess, err := openSession(ctx, path)
			if err != nil {
				return err
			}
			sh := &shell{sess: sess, w: cmd.Root().Writer, prompt: true}
			return sh.run(ctx, os.Stdin)
		},
	}
}

type shell struct {
	sess   *session.Session
	w      io.Writer
	prompt bool
}

type shellCommand struct {
	usage string
	args  int // minimum argument count
	run   func(sh *shell, c *dat.Container, args []string) error
	edit  bool
}

var shellCommands = map[string]shellCommand{
	"header": {usage: "header", run: (*shell).header},
	"records": {usage: "records [type]", run: func(sh *shell, c *dat.Container, args []string) error {
		typeFilter := ""
		if len(args) > 0 {
			typeFilter = args[0]
		}
		views, err := listRecords(c, typeFilter, false)
		if err != nil {
			return err
		}
		printRecordTable(sh.w, views)
		return nil
	}},
	"orphans": {usage: "orphans", run: func(sh *shell, c *dat.Container, _ []string) error {
		views, err := listRecords(c, "", true)
		if err != nil {
			return err
		}
		printRecordTable(sh.w, views)
		return nil
	}},
	"labels": {usage: "labels", run: func(sh *shell, c *dat.Container, _ []string) error {
		printNodeTable(sh.w, listNodes(c, ""))
		return nil
	}},
	"get": {usage: "get <offset|label>", args: 1, run: func(sh *shell, c *dat.Container, args []string) error {
		r, err := resolveRecord(c, args[0])
		if err != nil {
			return err
		}
		return printRecord(sh.w, r)
	}},
	"read": {usage: "read <offset> <length>", args: 2, run: func(sh *shell, c *dat.Container, args []string) error {
		off, err := parseOffset(args[0])
		if err != nil {
			return err
		}
		n, err := parseOffset(args[1])
		if err != nil {
			return err
		}
		b, err := c.ReadAt(off, n)
		if err != nil {
			return err
		}
		hexdump(sh.w, off, b)
		return nil
	}},
	"hint": {usage: "hint <offset> <type>", args: 2, run: func(sh *shell, c *dat.Container, args []string) error {
		off, err := parseOffset(args[0])
		if err != nil {
			return err
		}
		c.Hint(off, args[1])
		r, err := c.Get(off)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(sh.w, "%#x is %s\n", off, r.TypeName())
		return nil
	}},
	"write": {usage: "write <offset> <hex>", args: 2, edit: true, run: func(sh *shell, c *dat.Container, args []string) error {
		off, err := parseOffset(args[0])
		if err != nil {
			return err
		}
		return applyWrite(c, off, strings.Join(args[1:], ""), "", false)
	}},
	"set": {usage: "set <offset> <field> <value>", args: 3, edit: true, run: func(sh *shell, c *dat.Container, args []string) error {
		off, err := parseOffset(args[0])
		if err != nil {
			return err
		}
		return applyWrite(c, off, args[2], args[1], false)
	}},
	"pointer": {usage: "pointer <location> <target>", args: 2, edit: true, run: func(sh *shell, c *dat.Container, args []string) error {
		off, err := parseOffset(args[0])
		if err != nil {
			return err
		}
		return applyWrite(c, off, args[1], "", true)
	}},
	"resize": {usage: "resize <offset> <delta>", args: 2, edit: true, run: func(sh *shell, c *dat.Container, args []string) error {
		off, err := parseOffset(args[0])
		if err != nil {
			return err
		}
		delta, err := parseDelta(args[1])
		if err != nil {
			return err
		}
		return c.Resize(off, delta)
	}},
	"remove": {usage: "remove <offset>", args: 1, edit: true, run: func(sh *shell, c *dat.Container, args []string) error {
		off, err := parseOffset(args[0])
		if err != nil {
			return err
		}
		return c.RemoveRecord(off)
	}},
	"verify": {usage: "verify", run: func(sh *shell, c *dat.Container, _ []string) error {
		issues := c.Verify()
		for _, is := range issues {
			_, _ = fmt.Fprintln(sh.w, is.String())
		}
		if !dat.HasErrors(issues) {
			_, _ = fmt.Fprintln(sh.w, "ok")
		}
		return nil
	}},
	"changes": {usage: "changes", run: func(sh *shell, c *dat.Container, _ []string) error {
		for _, ch := range c.Changes() {
			_, _ = fmt.Fprintf(sh.w, "%s  %-7s %s\n", ch.ID.String()[:8], ch.Kind, ch.Description)
		}
		return nil
	}},
}

func (sh *shell) header(c *dat.Container, _ []string) error {
	printInspect(sh.w, summarize(c, sh.sess.Path()))
	return nil
}

func (sh *shell) run(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if sh.prompt {
			_, _ = fmt.Fprint(sh.w, "dat> ")
		}
		if !sc.Scan() {
			break
		}
		args, err := shellquote.Split(sc.Text())
		if err != nil {
			_, _ = fmt.Fprintf(sh.w, "error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		if err := sh.exec(args); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			_, _ = fmt.Fprintf(sh.w, "error: %v\n", err)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if sh.sess.Dirty() {
		_, _ = fmt.Fprintln(sh.w, "warning: unsaved edits discarded")
	}
	return nil
}

func (sh *shell) exec(args []string) error {
	name, rest := args[0], args[1:]
	switch name {
	case "help", "?":
		sh.help()
		return nil
	case "quit", "exit":
		if sh.sess.Dirty() {
			return errors.New("unsaved edits; run save, or quit! to discard them")
		}
		return errQuit
	case "quit!":
		return errQuit
	case "save":
		if len(rest) > 0 {
			return sh.sess.SaveAs(rest[0])
		}
		if err := sh.sess.Save(); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(sh.w, "saved %s\n", sh.sess.Path())
		return nil
	}

	cmd, ok := shellCommands[name]
	if !ok {
		return fmt.Errorf("unknown command %q (try help)", name)
	}
	if len(rest) < cmd.args {
		return fmt.Errorf("usage: %s", cmd.usage)
	}
	run := func(c *dat.Container) error { return cmd.run(sh, c, rest) }
	if !cmd.edit {
		return sh.sess.View(run)
	}
	return sh.sess.Update(func(c *dat.Container) error {
		before := len(c.Changes())
		if err := run(c); err != nil {
			return err
		}
		for _, ch := range c.Changes()[before:] {
			_, _ = fmt.Fprintln(sh.w, ch.Description)
		}
		return nil
	})
}

func (sh *shell) help() {
	names := make([]string, 0, len(shellCommands))
	for name := range shellCommands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, _ = fmt.Fprintf(sh.w, "  %s\n", shellCommands[name].usage)
	}
	_, _ = fmt.Fprintln(sh.w, "  save [path]\n  quit | quit!")
}
