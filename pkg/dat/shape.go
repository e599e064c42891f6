package dat

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

// FieldKind is the encoding of a shape field.
type FieldKind string

const (
	FieldU8      FieldKind = "u8"
	FieldS8      FieldKind = "s8"
	FieldU16     FieldKind = "u16"
	FieldS16     FieldKind = "s16"
	FieldU32     FieldKind = "u32"
	FieldS32     FieldKind = "s32"
	FieldF32     FieldKind = "f32"
	FieldPointer FieldKind = "pointer"
)

// Size returns the encoded size of the kind, or 0 for an unknown kind.
func (k FieldKind) Size() int {
	switch k {
	case FieldU8, FieldS8:
		return 1
	case FieldU16, FieldS16:
		return 2
	case FieldU32, FieldS32, FieldF32, FieldPointer:
		return 4
	}
	return 0
}

// Field is one fixed-offset field of a shape. Min and Max bound numeric values;
// pointer fields may require a non-null target and may carry a type hint for the
// record they point at.
type Field struct {
	Name    string    `yaml:"name"`
	Offset  int       `yaml:"offset"`
	Kind    FieldKind `yaml:"kind"`
	Min     *float64  `yaml:"min,omitempty"`
	Max     *float64  `yaml:"max,omitempty"`
	NonNull bool      `yaml:"nonnull,omitempty"`
	Hint    string    `yaml:"hint,omitempty"`
}

func (f *Field) decode(b []byte) float64 {
	p := b[f.Offset:]
	switch f.Kind {
	case FieldU8:
		return float64(p[0])
	case FieldS8:
		return float64(int8(p[0]))
	case FieldU16:
		return float64(binary.BigEndian.Uint16(p))
	case FieldS16:
		return float64(int16(binary.BigEndian.Uint16(p)))
	case FieldU32, FieldPointer:
		return float64(binary.BigEndian.Uint32(p))
	case FieldS32:
		return float64(int32(binary.BigEndian.Uint32(p)))
	case FieldF32:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(p)))
	}
	return 0
}

func (f *Field) encode(b []byte, v float64) {
	p := b[f.Offset:]
	switch f.Kind {
	case FieldU8:
		p[0] = uint8(v)
	case FieldS8:
		p[0] = uint8(int8(v))
	case FieldU16:
		binary.BigEndian.PutUint16(p, uint16(v))
	case FieldS16:
		binary.BigEndian.PutUint16(p, uint16(int16(v)))
	case FieldU32, FieldPointer:
		binary.BigEndian.PutUint32(p, uint32(v))
	case FieldS32:
		binary.BigEndian.PutUint32(p, uint32(int32(v)))
	case FieldF32:
		binary.BigEndian.PutUint32(p, math.Float32bits(float32(v)))
	}
}

func (f *Field) inRange(v float64) bool {
	if math.IsNaN(v) && (f.Min != nil || f.Max != nil) {
		return false
	}
	if f.Min != nil && v < *f.Min {
		return false
	}
	if f.Max != nil && v > *f.Max {
		return false
	}
	return true
}

// Shape describes a record type: a fixed-size head of fields, an optional
// variable tail of fixed-size elements, and the padding tolerated after them.
type Shape struct {
	Name       string  `yaml:"name"`
	Priority   int     `yaml:"priority"`
	Size       int     `yaml:"size"`
	Tail       int     `yaml:"tail,omitempty"`
	MaxPadding *int    `yaml:"max_padding,omitempty"`
	Fields     []Field `yaml:"fields"`

	// Check is an optional extra predicate over the record bytes.
	Check func(b []byte) bool `yaml:"-"`
}

func (s *Shape) maxPadding() int {
	if s.MaxPadding != nil {
		return *s.MaxPadding
	}
	return DefaultMaxPadding
}

// Field returns the named field.
func (s *Shape) Field(name string) (*Field, bool) {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i], true
		}
	}
	return nil, false
}

// TailCount returns the number of tail elements in a record of the given length.
func (s *Shape) TailCount(length int) int {
	if s.Tail <= 0 || length <= s.Size {
		return 0
	}
	return (length - s.Size) / s.Tail
}

func (s *Shape) validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("dat: shape without a name")
	}
	if s.Size <= 0 {
		return fmt.Errorf("dat: shape %s: size must be positive", s.Name)
	}
	if s.Tail < 0 || s.maxPadding() < 0 {
		return fmt.Errorf("dat: shape %s: negative tail or padding", s.Name)
	}
	seen := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		if f.Kind.Size() == 0 {
			return fmt.Errorf("dat: shape %s: field %s has unknown kind %q", s.Name, f.Name, f.Kind)
		}
		if f.Offset < 0 || f.Offset+f.Kind.Size() > s.Size {
			return fmt.Errorf("dat: shape %s: field %s at %#x does not fit in %#x bytes", s.Name, f.Name, f.Offset, s.Size)
		}
		if f.Kind == FieldPointer && f.Offset%pointerSize != 0 {
			return fmt.Errorf("dat: shape %s: pointer field %s is not 4-byte aligned", s.Name, f.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("dat: shape %s: duplicate field %s", s.Name, f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

// fits reports whether a record of the given derived length can hold the shape.
func (s *Shape) fits(length int) bool {
	if length < s.Size {
		return false
	}
	extra := length - s.Size
	if s.Tail > 0 {
		extra %= s.Tail
	}
	return extra <= s.maxPadding()
}

// match validates record bytes. ptrs holds the record-relative offsets of
// relocation entries inside the record; isStart reports record-start membership.
func (s *Shape) match(b []byte, ptrs []int, isStart func(int) bool) bool {
	for _, rel := range ptrs {
		if rel >= s.Size {
			continue
		}
		f := s.fieldAt(rel)
		if f == nil || f.Kind != FieldPointer {
			return false
		}
	}
	for i := range s.Fields {
		f := &s.Fields[i]
		v := f.decode(b)
		if f.Kind == FieldPointer {
			relocated := slices.Contains(ptrs, f.Offset)
			if v == 0 {
				if f.NonNull {
					return false
				}
				continue
			}
			if !relocated || !isStart(int(v)) {
				return false
			}
			continue
		}
		if !f.inRange(v) {
			return false
		}
	}
	if s.Check != nil && !s.Check(b) {
		return false
	}
	return true
}

func (s *Shape) fieldAt(off int) *Field {
	for i := range s.Fields {
		if s.Fields[i].Offset == off {
			return &s.Fields[i]
		}
	}
	return nil
}

// Registry is an ordered list of shapes. Identification tries higher priorities
// first and registration order within a priority; the first match wins.
type Registry struct {
	shapes []*Shape
	byName map[string]*Shape
}

// NewRegistry returns a registry holding the given shapes.
func NewRegistry(shapes ...*Shape) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Shape)}
	for _, s := range shapes {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register validates and adds a shape.
func (r *Registry) Register(s *Shape) error {
	if s == nil {
		return errors.New("dat: nil shape")
	}
	if err := s.validate(); err != nil {
		return err
	}
	if r.byName == nil {
		r.byName = make(map[string]*Shape)
	}
	if _, ok := r.byName[s.Name]; ok {
		return fmt.Errorf("dat: shape %s already registered", s.Name)
	}
	i := len(r.shapes)
	for i > 0 && r.shapes[i-1].Priority < s.Priority {
		i--
	}
	r.shapes = slices.Insert(r.shapes, i, s)
	r.byName[s.Name] = s
	return nil
}

// Lookup returns the shape registered under name.
func (r *Registry) Lookup(name string) *Shape {
	if r == nil {
		return nil
	}
	return r.byName[name]
}

// Shapes returns the shapes in identification order.
func (r *Registry) Shapes() []*Shape {
	if r == nil {
		return nil
	}
	return slices.Clone(r.shapes)
}

// Len returns the number of registered shapes.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.shapes)
}
