package dat_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/DRGN-DRC/Melee-Modding-Wizard-sub000/internal/dattest"
	"github.com/DRGN-DRC/Melee-Modding-Wizard-sub000/pkg/dat"
)

func bound(v float64) *float64 { return &v }

func jointShapes(t *testing.T) *dat.Registry {
	t.Helper()
	reg, err := dat.NewRegistry(
		&dat.Shape{
			Name: "mesh",
			Size: 0x10,
			Fields: []dat.Field{
				{Name: "count", Offset: 0x00, Kind: dat.FieldU32, Min: bound(1), Max: bound(16)},
			},
		},
		&dat.Shape{
			Name:     "joint",
			Priority: 10,
			Size:     0x20,
			Fields: []dat.Field{
				{Name: "child", Offset: 0x00, Kind: dat.FieldPointer, Hint: "joint"},
				{Name: "flags", Offset: 0x04, Kind: dat.FieldU16},
				{Name: "scale", Offset: 0x08, Kind: dat.FieldF32, Min: bound(0.5), Max: bound(10)},
				{Name: "mesh", Offset: 0x0C, Kind: dat.FieldPointer, Hint: "mesh"},
			},
		},
	)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

// jointImage holds joint 0x00 with child joint 0x20 and mesh 0x40.
func jointImage() []byte {
	return dattest.New(0x60).
		Pointer(0x00, 0x20).
		Put32(0x04, 0x00030000).
		Put32(0x08, 0x3F800000). // 1.0
		Pointer(0x0C, 0x40).
		Put32(0x28, 0x40000000). // 2.0
		Put32(0x40, 3).
		Root(0x00, "root_joint").
		Alias(0x40, "mesh_0").
		Bytes()
}

func get(t *testing.T, c *dat.Container, off int) *dat.Record {
	t.Helper()
	r, err := c.Get(off)
	if err != nil {
		t.Fatalf("get %#x: %v", off, err)
	}
	return r
}

func TestRegistryOrder(t *testing.T) {
	t.Parallel()
	reg := jointShapes(t)

	if reg.Len() != 2 {
		t.Fatalf("registry size mismatch: got %d want 2", reg.Len())
	}
	shapes := reg.Shapes()
	if shapes[0].Name != "joint" || shapes[1].Name != "mesh" {
		t.Fatalf("higher priority first: got %s, %s", shapes[0].Name, shapes[1].Name)
	}
	if reg.Lookup("bone") != nil {
		t.Fatalf("Lookup(bone) should be nil")
	}

	invalid := []*dat.Shape{
		{Name: "mesh", Size: 4},
		{Name: "bad_kind", Size: 4, Fields: []dat.Field{{Name: "x", Kind: "u64"}}},
		{Name: "too_small", Size: 2, Fields: []dat.Field{{Name: "x", Kind: dat.FieldU32}}},
		{Name: "odd_ptr", Size: 8, Fields: []dat.Field{{Name: "p", Offset: 2, Kind: dat.FieldPointer}}},
		{Name: "", Size: 4},
	}
	for _, s := range invalid {
		if err := reg.Register(s); err == nil {
			t.Errorf("Register(%q) should fail", s.Name)
		}
	}
}

func TestIdentify(t *testing.T) {
	t.Parallel()
	c := load(t, jointImage(), dat.WithRegistry(jointShapes(t)))

	var names []string
	for _, r := range c.Records() {
		names = append(names, r.TypeName())
		if r.Kind() != dat.KindTyped {
			t.Errorf("record %#x kind: got %s want typed", r.Offset(), r.Kind())
		}
	}
	if want := []string{"joint", "joint", "mesh"}; !slices.Equal(names, want) {
		t.Fatalf("identified types mismatch: got %v want %v", names, want)
	}

	root := get(t, c, 0x00)
	fields := []struct {
		name string
		want float64
	}{
		{"scale", 1.0},
		{"flags", 3},
		{"child", 0x20},
	}
	for _, tc := range fields {
		if v, err := root.Field(tc.name); err != nil || v != tc.want {
			t.Errorf("Field(%s) = (%v, %v), want %v", tc.name, v, err, tc.want)
		}
	}

	if kids, err := root.Children(); err != nil || len(kids) != 2 {
		t.Fatalf("children = (%+v, %v), want 2 entries", kids, err)
	}
	if orphan, err := root.Orphan(); err != nil || orphan {
		t.Fatalf("root orphan = (%v, %v), want false", orphan, err)
	}
	if _, err := root.Field("length"); !errors.Is(err, dat.ErrUnknownField) {
		t.Fatalf("unknown field: got %v want %v", err, dat.ErrUnknownField)
	}
}

func TestIdentifyWithoutRegistry(t *testing.T) {
	t.Parallel()
	c := load(t, jointImage())

	r := get(t, c, 0x00)
	if r.Kind() != dat.KindUntyped || r.TypeName() != "untyped" || r.Len() != 0x20 {
		t.Fatalf("record mismatch: kind %s type %s len %#x", r.Kind(), r.TypeName(), r.Len())
	}

	words, err := r.Words()
	if err != nil {
		t.Fatalf("words: %v", err)
	}
	if len(words) != 8 {
		t.Fatalf("word count mismatch: got %d want 8", len(words))
	}
	if want := (dat.Word{Offset: 0x00, Value: 0x20, Pointer: true}); words[0] != want {
		t.Fatalf("word 0 mismatch: got %+v want %+v", words[0], want)
	}
	if want := (dat.Word{Offset: 0x04, Value: 0x00030000}); words[1] != want {
		t.Fatalf("word 1 mismatch: got %+v want %+v", words[1], want)
	}
	if !words[3].Pointer {
		t.Fatalf("word 3 should be a pointer")
	}

	if _, err := r.Field("scale"); !errors.Is(err, dat.ErrUnknownField) {
		t.Fatalf("field on untyped record: got %v want %v", err, dat.ErrUnknownField)
	}
}

func TestGetAs(t *testing.T) {
	t.Parallel()
	c := load(t, jointImage(), dat.WithRegistry(jointShapes(t)))

	r, ok := c.GetAs(0x40, "mesh")
	if !ok || r.TypeName() != "mesh" {
		t.Fatalf("GetAs(0x40, mesh) failed")
	}

	tests := []struct {
		off  int
		typ  string
		desc string
	}{
		{0x40, "joint", "mesh bytes do not validate as a joint"},
		{0x20, "mesh", "joint bytes do not validate as a mesh"},
		{0x20, "bone", "unknown types are absent"},
		{0x1000, "joint", "out of range"},
	}
	for _, tc := range tests {
		if _, ok := c.GetAs(tc.off, tc.typ); ok {
			t.Errorf("GetAs(%#x, %s) should fail: %s", tc.off, tc.typ, tc.desc)
		}
	}
}

func TestGetByLabel(t *testing.T) {
	t.Parallel()
	c := load(t, jointImage(), dat.WithRegistry(jointShapes(t)))

	r, ok := c.GetByLabel("mesh_0")
	if !ok || r.Offset() != 0x40 || r.TypeName() != "mesh" {
		t.Fatalf("GetByLabel(mesh_0) = (%v, %v)", r, ok)
	}
	if _, ok := c.GetByLabel("nope"); ok {
		t.Fatalf("GetByLabel(nope) should fail")
	}
}

func TestHintIsValidated(t *testing.T) {
	t.Parallel()
	c := load(t, jointImage(), dat.WithRegistry(jointShapes(t)))

	c.Hint(0x40, "joint")
	if got := get(t, c, 0x40).TypeName(); got != "mesh" {
		t.Fatalf("a failing hint falls back to identification: got %s", got)
	}

	c.Hint(0x20, "bone")
	if got := get(t, c, 0x20).TypeName(); got != "joint" {
		t.Fatalf("unknown hint: got %s want joint", got)
	}
}

func TestGetOutOfRange(t *testing.T) {
	t.Parallel()
	c := load(t, jointImage())

	for _, off := range []int{-1, c.Sections().Total} {
		if _, err := c.Get(off); !errors.Is(err, dat.ErrOutOfRange) {
			t.Errorf("Get(%#x): got %v want %v", off, err, dat.ErrOutOfRange)
		}
	}

	r := get(t, c, 0x24)
	if r.Kind() != dat.KindUntyped || r.Len() != 0x1C {
		t.Fatalf("interior record mismatch: kind %s len %#x", r.Kind(), r.Len())
	}
}

func TestSetField(t *testing.T) {
	t.Parallel()
	c := load(t, jointImage(), dat.WithRegistry(jointShapes(t)))
	r := get(t, c, 0x00)

	if err := r.SetField("scale", 3); err != nil {
		t.Fatalf("set scale: %v", err)
	}
	if f, err := c.Float32At(0x08); err != nil || f != 3.0 {
		t.Fatalf("scale bytes = (%v, %v), want 3", f, err)
	}

	if err := r.SetField("flags", 0xFFFF); err != nil {
		t.Fatalf("set flags: %v", err)
	}
	if v, err := c.Uint16At(0x04); err != nil || v != 0xFFFF {
		t.Fatalf("flags bytes = (%#x, %v), want 0xffff", v, err)
	}

	rejected := []struct {
		name string
		v    float64
		want error
	}{
		{"scale", 20, dat.ErrFieldRange},
		{"child", 0, dat.ErrReadOnly},
		{"nope", 1, dat.ErrUnknownField},
	}
	for _, tc := range rejected {
		if err := r.SetField(tc.name, tc.v); !errors.Is(err, tc.want) {
			t.Errorf("SetField(%s, %v): got %v want %v", tc.name, tc.v, err, tc.want)
		}
	}

	changes := c.Changes()
	if len(changes) != 2 {
		t.Fatalf("change count mismatch: got %d want 2", len(changes))
	}
	if ch := changes[0]; ch.Kind != dat.ChangeField || ch.Description != "joint at offset 0x0: scale set to 3" {
		t.Fatalf("change mismatch: %+v", ch)
	}
	if r.Stale() {
		t.Fatalf("field writes keep records valid")
	}
	if _, ok := c.GetAs(0x00, "joint"); !ok {
		t.Fatalf("an in-range field write keeps the record a joint")
	}
}

func TestWriteRevalidatesShape(t *testing.T) {
	t.Parallel()
	c := load(t, jointImage(), dat.WithRegistry(jointShapes(t)))
	if _, ok := c.GetAs(0x00, "joint"); !ok {
		t.Fatalf("GetAs(0, joint) failed before the write")
	}

	// 100.0 is outside the joint scale range.
	if err := c.WriteAt(0x08, []byte{0x42, 0xC8, 0x00, 0x00}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, ok := c.GetAs(0x00, "joint"); ok {
		t.Fatalf("GetAs(0, joint) should fail once scale is out of range")
	}
	if got := get(t, c, 0x00).TypeName(); got == "joint" {
		t.Fatalf("record still identified as a joint")
	}

	// A zero count breaks the mesh; restoring it makes the record a mesh again.
	if got := get(t, c, 0x40).TypeName(); got != "mesh" {
		t.Fatalf("record 0x40: got %s want mesh", got)
	}
	if err := c.WriteAt(0x40, []byte{0, 0, 0, 0}); err != nil {
		t.Fatalf("write count: %v", err)
	}
	if got := get(t, c, 0x40).TypeName(); got != "untyped" {
		t.Fatalf("record 0x40 with zero count: got %s want untyped", got)
	}
	if err := c.WriteAt(0x40, []byte{0, 0, 0, 5}); err != nil {
		t.Fatalf("write count: %v", err)
	}
	if got := get(t, c, 0x40).TypeName(); got != "mesh" {
		t.Fatalf("record 0x40 with count 5: got %s want mesh", got)
	}
}

func TestTypesSurviveResize(t *testing.T) {
	t.Parallel()
	c := load(t, jointImage(), dat.WithRegistry(jointShapes(t)))
	_ = c.Records()

	if err := c.Resize(0x20, 0x20); err != nil {
		t.Fatalf("resize: %v", err)
	}

	if got := get(t, c, 0x60).TypeName(); got != "mesh" {
		t.Fatalf("moved mesh: got %s", got)
	}
	root := get(t, c, 0x00)
	if root.TypeName() != "joint" {
		t.Fatalf("root: got %s want joint", root.TypeName())
	}
	if target, err := root.Field("mesh"); err != nil || target != 0x60 {
		t.Fatalf("mesh field = (%#x, %v), want 0x60", int(target), err)
	}
}

func TestVerifyReportsBrokenShape(t *testing.T) {
	t.Parallel()
	c := load(t, jointImage(), dat.WithRegistry(jointShapes(t)))
	_ = c.Records()
	if issues := c.Verify(); dat.HasErrors(issues) {
		t.Fatalf("verify before the write: %v", issues)
	}

	// 100.0 is outside the joint scale range.
	if err := c.WriteAt(0x08, []byte{0x42, 0xC8, 0x00, 0x00}); err != nil {
		t.Fatalf("write: %v", err)
	}

	issues := c.Verify()
	want := dat.Issue{Severity: dat.SeverityError, Offset: 0x00, Message: "record no longer matches shape joint"}
	if !slices.Contains(issues, want) {
		t.Fatalf("missing issue %v in %v", want, issues)
	}
}

func TestOrphans(t *testing.T) {
	t.Parallel()
	// 0x40 and 0x50 point at each other; nothing reachable points at either.
	c := load(t, dattest.New(0x60).
		Pointer(0x40, 0x50).
		Pointer(0x50, 0x40).
		Root(0x00, "root").
		Bytes())

	if got := c.Orphans(); !slices.Equal(got, []int{0x40, 0x50}) {
		t.Fatalf("orphans mismatch: got %#x want [0x40 0x50]", got)
	}
	r := get(t, c, 0x40)
	if orphan, err := r.Orphan(); err != nil || !orphan {
		t.Fatalf("Orphan() = (%v, %v), want true", orphan, err)
	}
	if err := r.WriteAt(0x04, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("orphans remain editable: %v", err)
	}

	var infos int
	for _, is := range c.Verify() {
		if is.Severity == dat.SeverityInfo {
			infos++
		}
	}
	if infos != 2 {
		t.Fatalf("info issues mismatch: got %d want 2", infos)
	}
}
