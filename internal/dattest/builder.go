// Package dattest builds DAT container images for tests.
package dattest

import (
	"encoding/binary"
)

// Ref is a pointer or node offset. Ext offsets are relative to the start of the
// extension data and are resolved when the image is built.
type Ref struct {
	Off int
	Ext bool
}

// D is a data-region reference.
func D(off int) Ref { return Ref{Off: off} }

// E is an extension-data reference.
func E(off int) Ref { return Ref{Off: off, Ext: true} }

type pointer struct {
	loc, target Ref
}

type node struct {
	at    Ref
	label string
}

// Builder assembles a container image: data region, relocation table, root and alias
// node tables, string pool and extension data.
type Builder struct {
	Tag      string
	Reserved [8]byte

	data     []byte
	ext      []byte
	pointers []pointer
	roots    []node
	aliases  []node
}

// New returns a builder with a zeroed data region of dataSize bytes.
func New(dataSize int) *Builder {
	return &Builder{Tag: "DAT0", data: make([]byte, dataSize)}
}

// Ext appends n zero bytes of extension data.
func (b *Builder) Ext(n int) *Builder {
	b.ext = append(b.ext, make([]byte, n)...)
	return b
}

// Put32 stores v in the data region.
func (b *Builder) Put32(off int, v uint32) *Builder {
	binary.BigEndian.PutUint32(b.data[off:], v)
	return b
}

// Fill sets data bytes [off, off+n) to v.
func (b *Builder) Fill(off, n int, v byte) *Builder {
	for i := off; i < off+n; i++ {
		b.data[i] = v
	}
	return b
}

// Pointer adds a relocation entry at loc holding target.
func (b *Builder) Pointer(loc, target int) *Builder {
	return b.PointerRef(D(loc), D(target))
}

// PointerRef adds a relocation entry whose location or target may be in extension data.
func (b *Builder) PointerRef(loc, target Ref) *Builder {
	b.pointers = append(b.pointers, pointer{loc: loc, target: target})
	return b
}

// Root adds a root node row.
func (b *Builder) Root(off int, label string) *Builder {
	b.roots = append(b.roots, node{at: D(off), label: label})
	return b
}

// RootRef adds a root node row that may target extension data.
func (b *Builder) RootRef(at Ref, label string) *Builder {
	b.roots = append(b.roots, node{at: at, label: label})
	return b
}

// Alias adds an alias node row.
func (b *Builder) Alias(off int, label string) *Builder {
	b.aliases = append(b.aliases, node{at: D(off), label: label})
	return b
}

// NominalEnd returns the data-relative end of the string pool, where extension
// data starts.
func (b *Builder) NominalEnd() int {
	return len(b.data) + 4*len(b.pointers) + 8*(len(b.roots)+len(b.aliases)) + len(b.pool())
}

func (b *Builder) pool() []byte {
	var pool []byte
	for _, n := range append(append([]node(nil), b.roots...), b.aliases...) {
		pool = append(pool, n.label...)
		pool = append(pool, 0)
	}
	return pool
}

func (b *Builder) resolve(r Ref) int {
	if r.Ext {
		return b.NominalEnd() + r.Off
	}
	return r.Off
}

// Bytes encodes the image.
func (b *Builder) Bytes() []byte {
	data := append([]byte(nil), b.data...)
	ext := append([]byte(nil), b.ext...)
	end := b.NominalEnd()

	put := func(loc Ref, v uint32) {
		if loc.Ext {
			binary.BigEndian.PutUint32(ext[loc.Off:], v)
			return
		}
		binary.BigEndian.PutUint32(data[loc.Off:], v)
	}

	out := make([]byte, 0x20, 0x20+end+len(ext))
	binary.BigEndian.PutUint32(out[0x00:], uint32(0x20+end))
	binary.BigEndian.PutUint32(out[0x04:], uint32(len(data)))
	binary.BigEndian.PutUint32(out[0x08:], uint32(len(b.pointers)))
	binary.BigEndian.PutUint32(out[0x0C:], uint32(len(b.roots)))
	binary.BigEndian.PutUint32(out[0x10:], uint32(len(b.aliases)))
	copy(out[0x14:0x18], b.Tag)
	copy(out[0x18:0x20], b.Reserved[:])

	var table []byte
	var w [8]byte
	for _, p := range b.pointers {
		put(p.loc, uint32(b.resolve(p.target)))
		binary.BigEndian.PutUint32(w[:4], uint32(b.resolve(p.loc)))
		table = append(table, w[:4]...)
	}
	var strOff uint32
	for _, n := range append(append([]node(nil), b.roots...), b.aliases...) {
		binary.BigEndian.PutUint32(w[0:4], uint32(b.resolve(n.at)))
		binary.BigEndian.PutUint32(w[4:8], strOff)
		table = append(table, w[:]...)
		strOff += uint32(len(n.label) + 1)
	}

	out = append(out, data...)
	out = append(out, table...)
	out = append(out, b.pool()...)
	out = append(out, ext...)
	return out
}
