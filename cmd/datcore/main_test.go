package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"
)

// runApp drives the CLI end to end. The commands share package-level flag
// variables, so callers must not run in parallel.
func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	jsonOutput, backup, debug = false, false, false
	shapesFile, expectedTag = "", ""

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	app.ExitErrHandler = func(context.Context, *cli.Command, error) {}
	cfg := filepath.Join(t.TempDir(), "missing.yaml")
	err := app.Run(context.Background(), append([]string{"datcore", "--config", cfg, "--log-level", "error"}, args...))
	return out.String(), err
}

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli.dat")
	if err := os.WriteFile(path, shellImage(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return b
}

func TestInspectJSON(t *testing.T) {
	path := writeImage(t)
	out, err := runApp(t, "--json", "inspect", path)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}

	var v inspectView
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode inspect output: %v\n%s", err, out)
	}
	if v.Tag != "DAT0" || v.Records != 3 || v.Roots != 1 || v.Labels != 1 || v.Orphans != 0 {
		t.Fatalf("inspect view mismatch: %+v", v)
	}
}

func TestResizeThenVerify(t *testing.T) {
	path := writeImage(t)
	out, err := runApp(t, "resize", path, "0x20", "0x20")
	if err != nil {
		t.Fatalf("resize: %v", err)
	}
	if !strings.Contains(out, "grown by 0x20 bytes") {
		t.Fatalf("resize output mismatch:\n%s", out)
	}
	if got := len(readFile(t, path)); got != len(shellImage())+0x20 {
		t.Fatalf("saved size mismatch: got %#x want %#x", got, len(shellImage())+0x20)
	}

	out, err = runApp(t, "verify", path)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !strings.Contains(out, "ok") {
		t.Fatalf("verify output mismatch:\n%s", out)
	}
}

func TestResizeDryRunLeavesFile(t *testing.T) {
	path := writeImage(t)
	if _, err := runApp(t, "resize", "--dry-run", path, "0x40", "0x20"); err != nil {
		t.Fatalf("resize: %v", err)
	}
	if !bytes.Equal(readFile(t, path), shellImage()) {
		t.Fatalf("dry run modified the file")
	}
}

func TestRemoveToOutput(t *testing.T) {
	path := writeImage(t)
	dst := filepath.Join(t.TempDir(), "out.dat")
	if _, err := runApp(t, "resize", "--remove", "-o", dst, path, "0x20"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	out, err := runApp(t, "labels", dst)
	if err != nil {
		t.Fatalf("labels: %v", err)
	}
	if strings.Contains(out, "joint_0") || !strings.Contains(out, "scene_data") {
		t.Fatalf("labels after removal mismatch:\n%s", out)
	}
}

func TestGetMissingLabel(t *testing.T) {
	path := writeImage(t)
	if _, err := runApp(t, "get", path, "no_such_label"); err == nil {
		t.Fatalf("get of a missing label should fail")
	}
}
