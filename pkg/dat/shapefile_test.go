package dat_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DRGN-DRC/Melee-Modding-Wizard-sub000/pkg/dat"
)

const jointShapesYAML = `
shapes:
  - name: mesh
    size: 0x10
    fields:
      - {name: count, offset: 0x00, kind: u32, min: 1, max: 16}
  - name: joint
    priority: 10
    size: 0x20
    max_padding: 0
    fields:
      - {name: child, offset: 0x00, kind: pointer, hint: joint}
      - {name: flags, offset: 0x04, kind: u16}
      - {name: scale, offset: 0x08, kind: f32, min: 0.5, max: 10}
      - {name: mesh, offset: 0x0C, kind: pointer, hint: mesh}
`

func TestLoadShapes(t *testing.T) {
	t.Parallel()
	reg, err := dat.LoadShapes(strings.NewReader(jointShapesYAML))
	if err != nil {
		t.Fatalf("load shapes: %v", err)
	}
	if reg.Len() != 2 {
		t.Fatalf("registry size mismatch: got %d want 2", reg.Len())
	}

	joint := reg.Lookup("joint")
	if joint == nil {
		t.Fatalf("joint shape missing")
	}
	if joint.Size != 0x20 {
		t.Fatalf("joint size mismatch: got %#x want 0x20", joint.Size)
	}
	if joint.MaxPadding == nil || *joint.MaxPadding != 0 {
		t.Fatalf("explicit max_padding 0 should be kept: %v", joint.MaxPadding)
	}

	scale, ok := joint.Field("scale")
	if !ok {
		t.Fatalf("scale field missing")
	}
	if scale.Kind != dat.FieldF32 {
		t.Fatalf("scale kind mismatch: got %s want %s", scale.Kind, dat.FieldF32)
	}
	if scale.Min == nil || *scale.Min != 0.5 {
		t.Fatalf("scale min mismatch: %v", scale.Min)
	}

	c := load(t, jointImage(), dat.WithRegistry(reg))
	if got := get(t, c, 0x00).TypeName(); got != "joint" {
		t.Fatalf("record 0 type: got %s want joint", got)
	}
}

func TestLoadShapesErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"unknown key":    "shapes:\n  - name: a\n    size: 4\n    colour: red\n",
		"bad kind":       "shapes:\n  - name: a\n    size: 4\n    fields: [{name: x, kind: u64}]\n",
		"duplicate name": "shapes:\n  - {name: a, size: 4}\n  - {name: a, size: 8}\n",
		"not yaml":       "shapes: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := dat.LoadShapes(strings.NewReader(doc)); err == nil {
				t.Fatalf("load should fail")
			}
		})
	}
}

func TestLoadShapesEmpty(t *testing.T) {
	t.Parallel()
	reg, err := dat.LoadShapes(strings.NewReader(""))
	if err != nil {
		t.Fatalf("load shapes: %v", err)
	}
	if reg.Len() != 0 {
		t.Fatalf("empty document should give an empty registry: %d shapes", reg.Len())
	}
}

func TestLoadShapesFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "shapes.yaml")
	if err := os.WriteFile(path, []byte(jointShapesYAML), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	reg, err := dat.LoadShapesFile(path)
	if err != nil {
		t.Fatalf("load shapes file: %v", err)
	}
	if reg.Len() != 2 {
		t.Fatalf("registry size mismatch: got %d want 2", reg.Len())
	}

	_, err = dat.LoadShapesFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing file: got %v want %v", err, os.ErrNotExist)
	}
}

func TestExampleShapesFile(t *testing.T) {
	t.Parallel()
	reg, err := dat.LoadShapesFile(filepath.Join("..", "..", "configs", "shapes.example.yaml"))
	if err != nil {
		t.Fatalf("load example shapes: %v", err)
	}
	if reg.Len() == 0 {
		t.Fatalf("example shapes file is empty")
	}
}
