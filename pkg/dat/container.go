package dat

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/DRGN-DRC/Melee-Modding-Wizard-sub000/internal/logger"
)

// Container owns the bytes of one DAT file and the state decoded from them.
//
// The data region and extension data are held as byte slices and edited in place.
// The header, relocation table, node rows and string pool are kept both as their
// stored bytes and as logical state; the stored bytes are reused by Bytes until a
// mutation marks that section dirty.
type Container struct {
	hdr  Header
	data []byte
	ext  []byte

	relocs []Pointer // table order
	nodes  []Node    // root rows, then alias rows
	pool   []byte

	rawHeader []byte
	rawReloc  []byte
	rawNodes  []byte

	headerDirty bool
	relocDirty  bool
	nodesDirty  bool
	poolDirty   bool

	// derived, rebuilt lazily; nil when stale
	starts  []int
	locs    []int
	tables  []byte
	reached map[int]struct{}

	slots map[int]*slot
	gen   uint64

	registry  *Registry
	log       logger.Logger
	alignment int
	hook      func(Change)
	clock     func() time.Time
	changes   []Change
}

// Load decodes buf into a Container. The container keeps its own copy of the bytes.
func Load(buf []byte, opts ...Option) (*Container, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if len(buf) < HeaderSize {
		return nil, malformed("buffer of %#x bytes is shorter than the header", len(buf))
	}
	hdr, ok := decodeHeader(buf[:HeaderSize])
	if !ok {
		return nil, malformed("cannot decode header")
	}
	if !hdr.validTag() {
		return nil, malformed("type tag %q is not printable", hdr.Tag[:])
	}
	if !hdr.matchesTag(o.expectedTag) {
		return nil, malformed("type tag %q, want %q", hdr.TagString(), o.expectedTag)
	}

	body := uint64(len(buf) - HeaderSize)
	if hdr.FileSize < HeaderSize || uint64(hdr.FileSize)-HeaderSize > body {
		return nil, malformed("file size %#x exceeds buffer of %#x bytes", hdr.FileSize, len(buf))
	}
	fileEnd := uint64(hdr.FileSize) - HeaderSize

	relocStart := uint64(hdr.DataSize)
	if relocStart > fileEnd {
		return nil, malformed("data size %#x exceeds file size %#x", hdr.DataSize, hdr.FileSize)
	}
	relocEnd, err := sectionEnd("relocation table", relocStart, hdr.RelocCount, relocEntrySize, fileEnd)
	if err != nil {
		return nil, err
	}
	rootEnd, err := sectionEnd("root node table", relocEnd, hdr.RootCount, nodeEntrySize, fileEnd)
	if err != nil {
		return nil, err
	}
	aliasEnd, err := sectionEnd("alias node table", rootEnd, hdr.AliasCount, nodeEntrySize, fileEnd)
	if err != nil {
		return nil, err
	}
	if body > math.MaxInt32 {
		return nil, malformed("buffer of %#x bytes exceeds the 32-bit offset space", len(buf))
	}

	b := buf[HeaderSize:]
	c := &Container{
		hdr:       hdr,
		data:      bytes.Clone(b[:relocStart]),
		ext:       bytes.Clone(b[fileEnd:]),
		pool:      bytes.Clone(b[aliasEnd:fileEnd]),
		rawHeader: bytes.Clone(buf[:HeaderSize]),
		rawReloc:  bytes.Clone(b[relocStart:relocEnd]),
		rawNodes:  bytes.Clone(b[relocEnd:aliasEnd]),
		slots:     make(map[int]*slot),
		registry:  o.registry,
		log:       o.log,
		alignment: o.alignment,
		hook:      o.hook,
		clock:     o.clock,
	}
	if c.data == nil {
		c.data = []byte{}
	}
	if c.ext == nil {
		c.ext = []byte{}
	}

	// Node rows first: section boundaries depend on both tables being sized.
	if err := c.decodeNodes(); err != nil {
		return nil, err
	}
	if err := c.decodeRelocs(); err != nil {
		return nil, err
	}

	// Populate the start set (which reports unresolved pointers) and run the
	// reachability sweep once up front.
	c.recordStarts()
	if orphans := c.Orphans(); len(orphans) > 0 {
		c.log.Debug("container has unreachable records", "count", len(orphans))
	}
	return c, nil
}

func sectionEnd(name string, start uint64, count uint32, size, limit uint64) (uint64, error) {
	end := start + uint64(count)*size
	if end < start || end > limit {
		return 0, malformed("%s of %d entries at %#x runs past the string pool start limit %#x", name, count, start, limit)
	}
	return end, nil
}

func (c *Container) decodeRelocs() error {
	n := len(c.rawReloc) / relocEntrySize
	c.relocs = make([]Pointer, n)
	for i := range c.relocs {
		loc := int(binary.BigEndian.Uint32(c.rawReloc[i*relocEntrySize:]))
		c.relocs[i] = Pointer{Location: loc, Source: SourceReloc}
	}
	s := c.Sections()
	for i := range c.relocs {
		p := &c.relocs[i]
		if !s.Writable(p.Location, pointerSize) {
			return malformed("relocation entry %d points at %#x, outside the data region and extension data", i, p.Location)
		}
		if p.Location%pointerSize != 0 {
			// Extension data moves with the string pool, so its pointers can end up
			// unaligned in files written by this package.
			c.log.Warn("unaligned relocation entry", "index", i, "location", p.Location)
		}
		tgt, _ := c.Uint32At(p.Location)
		p.Target = int(tgt)
	}
	return nil
}

// Sections returns the current data-relative section boundaries.
func (c *Container) Sections() Sections {
	var s Sections
	s.RelocStart = len(c.data)
	s.RelocEnd = s.RelocStart + relocEntrySize*len(c.relocs)
	s.RootStart = s.RelocEnd
	s.AliasStart = s.RootStart + nodeEntrySize*c.countNodes(TableRoot)
	s.PoolStart = s.AliasStart + nodeEntrySize*c.countNodes(TableAlias)
	s.NominalEnd = s.PoolStart + len(c.pool)
	s.Total = s.NominalEnd + len(c.ext)
	return s
}

// Header returns the header as it would be encoded for the current state.
func (c *Container) Header() Header {
	s := c.Sections()
	h := c.hdr
	h.FileSize = uint32(HeaderSize + s.NominalEnd)
	h.DataSize = uint32(s.RelocStart)
	h.RelocCount = uint32(len(c.relocs))
	h.RootCount = uint32(c.countNodes(TableRoot))
	h.AliasCount = uint32(c.countNodes(TableAlias))
	return h
}

// Generation is bumped by every mutation that moves offsets or changes the
// relocation table. Records from an older generation are stale.
func (c *Container) Generation() uint64 {
	return c.gen
}

// Len returns the size of the serialized container, header included.
func (c *Container) Len() int {
	return HeaderSize + c.Sections().Total
}

// Bytes serializes the container. Clean sections are emitted from their stored
// bytes; dirty ones are re-encoded from the logical state.
func (c *Container) Bytes() []byte {
	out := make([]byte, 0, c.Len())
	out = append(out, c.headerBytes()...)
	out = append(out, c.data...)
	out = append(out, c.tableBytes()...)
	out = append(out, c.ext...)
	return out
}

// Dirty reports whether any of the header, relocation table, node rows or string
// pool need re-encoding.
func (c *Container) Dirty() bool {
	return c.headerDirty || c.relocDirty || c.nodesDirty || c.poolDirty
}

func (c *Container) headerBytes() []byte {
	if !c.headerDirty {
		return c.rawHeader
	}
	var buf [HeaderSize]byte
	encodeHeader(buf[:], c.Header())
	return buf[:]
}

// tableBytes returns relocation table, node rows and string pool as one block.
func (c *Container) tableBytes() []byte {
	if c.tables != nil {
		return c.tables
	}
	out := make([]byte, 0, relocEntrySize*len(c.relocs)+nodeEntrySize*len(c.nodes)+len(c.pool))
	if c.relocDirty {
		var w [relocEntrySize]byte
		for _, p := range c.relocs {
			binary.BigEndian.PutUint32(w[:], uint32(p.Location))
			out = append(out, w[:]...)
		}
	} else {
		out = append(out, c.rawReloc...)
	}
	if c.nodesDirty {
		var w [nodeEntrySize]byte
		for _, n := range c.nodes {
			binary.BigEndian.PutUint32(w[0:4], uint32(n.Offset))
			binary.BigEndian.PutUint32(w[4:8], n.stringOffset)
			out = append(out, w[:]...)
		}
	} else {
		out = append(out, c.rawNodes...)
	}
	out = append(out, c.pool...)
	c.tables = out
	return out
}

// invalidate drops every derived structure and bumps the generation.
func (c *Container) invalidate() {
	c.gen++
	c.starts = nil
	c.locs = nil
	c.tables = nil
	c.reached = nil
	clear(c.slots)
}

// ReadAt returns a copy of n bytes at data-relative offset off. The range must lie
// inside one section.
func (c *Container) ReadAt(off, n int) ([]byte, error) {
	b, err := c.view(off, n)
	if err != nil {
		return nil, err
	}
	return bytes.Clone(b), nil
}

// view returns the live bytes for [off, off+n).
func (c *Container) view(off, n int) ([]byte, error) {
	s := c.Sections()
	if off < 0 || n < 0 || off+n > s.Total {
		return nil, fmt.Errorf("%w: [%#x, %#x) in container of %#x bytes", ErrOutOfRange, off, off+n, s.Total)
	}
	switch {
	case off+n <= s.RelocStart:
		return c.data[off : off+n], nil
	case off >= s.NominalEnd:
		base := off - s.NominalEnd
		return c.ext[base : base+n], nil
	case off >= s.RelocStart && off+n <= s.NominalEnd:
		base := off - s.RelocStart
		return c.tableBytes()[base : base+n], nil
	}
	return nil, fmt.Errorf("%w: [%#x, %#x) crosses a section boundary", ErrOutOfRange, off, off+n)
}

// Uint8At reads one byte.
func (c *Container) Uint8At(off int) (uint8, error) {
	b, err := c.view(off, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Uint16At reads a big-endian uint16.
func (c *Container) Uint16At(off int) (uint16, error) {
	b, err := c.view(off, 2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// Uint32At reads a big-endian uint32.
func (c *Container) Uint32At(off int) (uint32, error) {
	b, err := c.view(off, 4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// Float32At reads a big-endian IEEE-754 float.
func (c *Container) Float32At(off int) (float32, error) {
	u, err := c.Uint32At(off)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(u), nil
}

// WriteAt overwrites bytes in the data region or extension data. The write may not
// touch a pointer location; use SetPointer for those.
func (c *Container) WriteAt(off int, p []byte) error {
	if err := c.checkWrite(off, len(p)); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	dst, _ := c.view(off, len(p))
	copy(dst, p)
	c.forgetRange(off, len(p))
	c.record(Change{
		Kind:        ChangeWrite,
		Offset:      off,
		Length:      len(p),
		Description: fmt.Sprintf("wrote %#x bytes at offset %#x", len(p), off),
	})
	return nil
}

func (c *Container) checkWrite(off, n int) error {
	s := c.Sections()
	if off < 0 || off+n > s.Total {
		return fmt.Errorf("%w: [%#x, %#x)", ErrOutOfRange, off, off+n)
	}
	if !s.Writable(off, n) {
		return fmt.Errorf("%w: [%#x, %#x)", ErrReadOnly, off, off+n)
	}
	if loc, ok := c.pointerIn(off-pointerSize+1, off+n); ok {
		return fmt.Errorf("%w: pointer at %#x", ErrPointerOverlap, loc)
	}
	return nil
}

// putUint32 writes without change tracking. Callers have validated the range.
func (c *Container) putUint32(off int, v uint32) {
	if b, err := c.view(off, 4); err == nil {
		binary.BigEndian.PutUint32(b, v)
	}
}

// SetPointer stores target at location and keeps the relocation table in step:
// an existing entry is updated, otherwise one is appended. target must be 0 or a
// record start.
func (c *Container) SetPointer(location, target int) error {
	s := c.Sections()
	if !s.Writable(location, pointerSize) {
		return fmt.Errorf("%w: pointer location %#x", ErrReadOnly, location)
	}
	if location%pointerSize != 0 {
		return fmt.Errorf("%w: pointer location %#x is not 4-byte aligned", ErrOutOfRange, location)
	}
	if target != 0 && !c.IsRecordStart(target) {
		return &UnresolvedPointerError{Location: location, Target: target}
	}

	idx := slices.IndexFunc(c.relocs, func(p Pointer) bool { return p.Location == location })
	if idx < 0 {
		if loc, ok := c.pointerIn(location-pointerSize+1, location+pointerSize); ok {
			return fmt.Errorf("%w: pointer at %#x", ErrPointerOverlap, loc)
		}
	}

	if idx >= 0 {
		c.relocs[idx].Target = target
		c.relocs[idx].Nulled = false
		c.putUint32(location, uint32(target))
	} else {
		// The relocation table grows by one entry, which moves the extension data.
		oldEnd := s.NominalEnd
		c.relocs = append(c.relocs, Pointer{Location: location, Target: target, Source: SourceReloc})
		c.relocDirty = true
		c.headerDirty = true
		c.shiftExtension(oldEnd)
		c.writePointers()
	}
	c.invalidate()
	c.record(Change{
		Kind:        ChangePointer,
		Offset:      location,
		Length:      pointerSize,
		Description: fmt.Sprintf("pointer at offset %#x set to %#x", location, target),
	})
	return nil
}

// shiftExtension moves every extension offset after the table block changed size
// and returns the distance moved. oldEnd is the nominal end before the change, in
// the current coordinate space. Pointer values are not rewritten; see writePointers.
func (c *Container) shiftExtension(oldEnd int) int {
	c.tables = nil
	d := c.Sections().NominalEnd - oldEnd
	if d == 0 {
		return 0
	}
	for i := range c.relocs {
		p := &c.relocs[i]
		if p.Location >= oldEnd {
			p.Location += d
		}
		if p.Target >= oldEnd {
			p.Target += d
		}
	}
	for i := range c.nodes {
		if c.nodes[i].Offset >= oldEnd {
			c.nodes[i].Offset += d
			c.nodesDirty = true
		}
	}
	c.relocDirty = true
	c.locs = nil
	c.starts = nil
	return d
}

// writePointers stores every relocation target at its location.
func (c *Container) writePointers() {
	for _, p := range c.relocs {
		c.putUint32(p.Location, uint32(p.Target))
	}
}
