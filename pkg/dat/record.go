package dat

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// Kind distinguishes identified records from raw byte blocks.
type Kind uint8

const (
	KindUntyped Kind = iota
	KindTyped
)

func (k Kind) String() string {
	if k == KindTyped {
		return "typed"
	}
	return "untyped"
}

type slotState uint8

const (
	slotUnresolved slotState = iota // hint only
	slotTyped
	slotUntyped
)

// slot is one record-cache entry. Identification replaces it in place. A demoted
// hint was a typed record before an edit and must validate again before use.
type slot struct {
	state   slotState
	hint    string
	demoted bool
	rec     *Record
}

// Record is a view of one record. It stays valid until the container's generation
// changes; after that every accessor returns ErrStaleRecord.
type Record struct {
	c      *Container
	gen    uint64
	offset int
	length int
	shape  *Shape
}

// Word is one 4-byte slot of an untyped record's field layout.
type Word struct {
	Offset  int // record-relative
	Value   uint32
	Pointer bool
}

// Get returns the record starting at off, identifying it on first access.
func (c *Container) Get(off int) (*Record, error) {
	if off < 0 || off >= c.Sections().Total {
		return nil, fmt.Errorf("%w: %#x", ErrOutOfRange, off)
	}
	if sl, ok := c.slots[off]; ok {
		switch sl.state {
		case slotTyped, slotUntyped:
			return sl.rec, nil
		case slotUnresolved:
			if shape := c.registry.Lookup(sl.hint); shape != nil {
				if r, ok := c.tryShape(off, shape); ok {
					c.materialize(off, r)
					return r, nil
				}
			}
			if sl.demoted {
				c.log.Warn("record no longer matches its shape", "offset", off, "type", sl.hint)
			} else {
				c.log.Debug("discarding type hint", "offset", off, "hint", sl.hint)
			}
			delete(c.slots, off)
		}
	}
	return c.identify(off), nil
}

// GetAs returns the record at off only if it validates as typeName.
func (c *Container) GetAs(off int, typeName string) (*Record, bool) {
	r, err := c.Get(off)
	if err == nil && r.shape != nil && r.shape.Name == typeName {
		return r, true
	}
	shape := c.registry.Lookup(typeName)
	if err != nil || shape == nil {
		return nil, false
	}
	if r.shape != nil {
		// Already identified as something else.
		c.log.Debug("type mismatch", "err", &RecordTypeMismatchError{Offset: off, Type: typeName})
		return nil, false
	}
	typed, ok := c.tryShape(off, shape)
	if !ok {
		c.log.Debug("type mismatch", "err", &RecordTypeMismatchError{Offset: off, Type: typeName})
		return nil, false
	}
	c.materialize(off, typed)
	return typed, true
}

// Hint records that the record at off is expected to be of type typeName. The hint
// is validated on the next Get; a failing hint is discarded.
func (c *Container) Hint(off int, typeName string) {
	if sl, ok := c.slots[off]; ok && sl.state != slotUnresolved {
		return
	}
	c.slots[off] = &slot{state: slotUnresolved, hint: typeName}
}

// forgetRange drops the identification of every record overlapping [off, off+n)
// after its bytes changed. Typed records keep their shape as a demoted hint.
func (c *Container) forgetRange(off, n int) {
	owner, ok := c.OwnerOf(off)
	if !ok {
		return
	}
	starts := c.recordStarts()
	for i := sort.SearchInts(starts, owner); i < len(starts) && starts[i] < off+n; i++ {
		sl, ok := c.slots[starts[i]]
		if !ok {
			continue
		}
		switch sl.state {
		case slotTyped:
			c.slots[starts[i]] = &slot{state: slotUnresolved, hint: sl.rec.shape.Name, demoted: true}
		case slotUntyped:
			delete(c.slots, starts[i])
		}
	}
}

// Records identifies and returns every record in the data region and extension
// data, in offset order.
func (c *Container) Records() []*Record {
	s := c.Sections()
	var out []*Record
	for _, off := range c.RecordStartOffsets() {
		if !s.InData(off) && !s.InExtension(off) {
			continue
		}
		r, err := c.Get(off)
		if err != nil {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (c *Container) identify(off int) *Record {
	s := c.Sections()
	if !c.IsRecordStart(off) {
		c.log.Warn("serving untyped block", "err", &UnresolvedPointerError{Location: -1, Target: off})
	} else if s.InData(off) || s.InExtension(off) {
		for _, shape := range c.registry.Shapes() {
			if r, ok := c.tryShape(off, shape); ok {
				c.materialize(off, r)
				return r
			}
		}
	}
	r := &Record{c: c, gen: c.gen, offset: off, length: c.LengthOf(off)}
	c.slots[off] = &slot{state: slotUntyped, rec: r}
	c.noteOrphan(r)
	return r
}

func (c *Container) tryShape(off int, shape *Shape) (*Record, bool) {
	s := c.Sections()
	length := c.LengthOf(off)
	if !s.Writable(off, length) || !shape.fits(length) {
		return nil, false
	}
	b, err := c.view(off, length)
	if err != nil {
		return nil, false
	}
	var rel []int
	for _, p := range c.pointersIn(off, off+length) {
		rel = append(rel, p.Location-off)
	}
	if !shape.match(b, rel, c.IsRecordStart) {
		return nil, false
	}
	return &Record{c: c, gen: c.gen, offset: off, length: length, shape: shape}, true
}

// materialize caches a typed record and seeds hints for the children its shape
// knows the type of.
func (c *Container) materialize(off int, r *Record) {
	c.slots[off] = &slot{state: slotTyped, rec: r}
	b, _ := c.view(off, r.length)
	for i := range r.shape.Fields {
		f := &r.shape.Fields[i]
		if f.Kind != FieldPointer || f.Hint == "" {
			continue
		}
		if target := int(binary.BigEndian.Uint32(b[f.Offset:])); target != 0 {
			c.Hint(target, f.Hint)
		}
	}
	c.noteOrphan(r)
}

func (c *Container) noteOrphan(r *Record) {
	s := c.Sections()
	if !s.InData(r.offset) && !s.InExtension(r.offset) {
		return
	}
	if c.isOrphan(r.offset) {
		c.log.Info("orphan record", "offset", r.offset, "length", r.length, "type", r.TypeName())
	}
}

func (r *Record) check() error {
	if r.gen != r.c.gen {
		return fmt.Errorf("%w: record at %#x from generation %d, container is at %d", ErrStaleRecord, r.offset, r.gen, r.c.gen)
	}
	return nil
}

// Offset returns the record's data-relative start.
func (r *Record) Offset() int { return r.offset }

// Len returns the derived length, trailing padding included.
func (r *Record) Len() int { return r.length }

// Kind reports whether the record was identified as a registered shape.
func (r *Record) Kind() Kind {
	if r.shape != nil {
		return KindTyped
	}
	return KindUntyped
}

// Shape returns the identified shape, or nil for an untyped block.
func (r *Record) Shape() *Shape { return r.shape }

// TypeName returns the shape name, or "untyped".
func (r *Record) TypeName() string {
	if r.shape != nil {
		return r.shape.Name
	}
	return "untyped"
}

// Stale reports whether a resize or pointer change has invalidated the record.
func (r *Record) Stale() bool { return r.check() != nil }

// Bytes returns a copy of the record's bytes.
func (r *Record) Bytes() ([]byte, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	return r.c.ReadAt(r.offset, r.length)
}

// WriteAt overwrites bytes at a record-relative offset.
func (r *Record) WriteAt(rel int, p []byte) error {
	if err := r.check(); err != nil {
		return err
	}
	if rel < 0 || rel+len(p) > r.length {
		return fmt.Errorf("%w: [%#x, %#x) in record of %#x bytes", ErrOutOfRange, rel, rel+len(p), r.length)
	}
	return r.c.WriteAt(r.offset+rel, p)
}

// Parents returns the locations of relocation entries that target the record.
func (r *Record) Parents() ([]int, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	return r.c.pointersTo(r.offset), nil
}

// Children returns the relocation entries located inside the record.
func (r *Record) Children() ([]Pointer, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	return r.c.pointersIn(r.offset, r.offset+r.length), nil
}

// Orphan reports whether the record is unreachable from the node tables.
func (r *Record) Orphan() (bool, error) {
	if err := r.check(); err != nil {
		return false, err
	}
	return r.c.isOrphan(r.offset), nil
}

// Words decodes the record as 4-byte words, marking relocated ones as pointers.
// This is the field layout of an untyped block.
func (r *Record) Words() ([]Word, error) {
	b, err := r.Bytes()
	if err != nil {
		return nil, err
	}
	ptrs := make(map[int]struct{})
	for _, p := range r.c.pointersIn(r.offset, r.offset+r.length) {
		ptrs[p.Location-r.offset] = struct{}{}
	}
	words := make([]Word, 0, len(b)/4)
	for rel := 0; rel+4 <= len(b); rel += 4 {
		_, isPtr := ptrs[rel]
		words = append(words, Word{Offset: rel, Value: binary.BigEndian.Uint32(b[rel:]), Pointer: isPtr})
	}
	return words, nil
}

// Field returns a typed record's field value. Pointer fields return the target.
func (r *Record) Field(name string) (float64, error) {
	f, err := r.field(name)
	if err != nil {
		return 0, err
	}
	b, err := r.c.view(r.offset, r.length)
	if err != nil {
		return 0, err
	}
	return f.decode(b), nil
}

// SetField writes a numeric field of a typed record. The value must satisfy the
// field's range. Pointer fields are changed with Container.SetPointer.
func (r *Record) SetField(name string, v float64) error {
	f, err := r.field(name)
	if err != nil {
		return err
	}
	if f.Kind == FieldPointer {
		return fmt.Errorf("%w: %s.%s is a pointer field", ErrReadOnly, r.shape.Name, name)
	}
	if !f.inRange(v) {
		return fmt.Errorf("%w: %s.%s = %v", ErrFieldRange, r.shape.Name, name, v)
	}
	buf := make([]byte, r.shape.Size)
	f.encode(buf, v)
	p := buf[f.Offset : f.Offset+f.Kind.Size()]
	if err := r.c.checkWrite(r.offset+f.Offset, len(p)); err != nil {
		return err
	}
	dst, _ := r.c.view(r.offset+f.Offset, len(p))
	copy(dst, p)
	r.c.forgetRange(r.offset+f.Offset, len(p))
	r.c.record(Change{
		Kind:        ChangeField,
		Offset:      r.offset + f.Offset,
		Length:      len(p),
		Description: fmt.Sprintf("%s at offset %#x: %s set to %v", r.shape.Name, r.offset, name, v),
	})
	return nil
}

func (r *Record) field(name string) (*Field, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	if r.shape == nil {
		return nil, fmt.Errorf("%w: %s on untyped record at %#x", ErrUnknownField, name, r.offset)
	}
	f, ok := r.shape.Field(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, r.shape.Name, name)
	}
	return f, nil
}
