// Package dat implements the relocatable DAT container used by scene, model and
// data archives.
//
// A container is a data region of records that refer to each other through
// data-relative pointers, followed by a relocation table listing every pointer
// location, a root node table and an alias node table of named entry points, and a
// string pool holding the node labels. Anything past the nominal file end is
// extension data and is kept addressable.
//
// The package decodes such a buffer into a record graph without knowing its shape in
// advance, lets callers read and overwrite record bytes and fields, and grows or
// shrinks records while keeping every pointer, table and header field consistent.
// It relies on one heuristic: a pointer always targets the start of a record, so a
// record ends where the next known record begins.
//
// A Container is not safe for concurrent use. Hosts serialize edits.
package dat

// Container layout constants. These are fixed by the format.
const (
	// HeaderSize is the size of the fixed header preceding the data region.
	// All other offsets in a container are relative to the end of the header.
	HeaderSize = 0x20

	// DefaultAlignment is the unit resize deltas are rounded to.
	DefaultAlignment = 0x20

	// DefaultMaxPadding is the trailing padding a shape tolerates past its declared size.
	DefaultMaxPadding = 0x1F

	pointerSize    = 4
	relocEntrySize = 4
	nodeEntrySize  = 8
)
