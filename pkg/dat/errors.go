package dat

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedHeader   = errors.New("dat: malformed header")
	ErrUnresolvedPointer = errors.New("dat: unresolved pointer")
	ErrTypeMismatch      = errors.New("dat: record type mismatch")
	ErrResizeBounds      = errors.New("dat: resize out of bounds")
	ErrOutOfRange        = errors.New("dat: offset out of range")
	ErrStaleRecord       = errors.New("dat: stale record")
	ErrReadOnly          = errors.New("dat: offset is not in a writable section")
	ErrPointerOverlap    = errors.New("dat: write overlaps a pointer location")
	ErrUnknownField      = errors.New("dat: unknown field")
	ErrFieldRange        = errors.New("dat: field value out of range")
)

// MalformedHeaderError reports header counts or offsets that are inconsistent with
// the buffer. It is fatal to Load.
type MalformedHeaderError struct {
	Reason string
}

func (e *MalformedHeaderError) Error() string {
	return "dat: malformed header: " + e.Reason
}

func (e *MalformedHeaderError) Unwrap() error {
	return ErrMalformedHeader
}

func malformed(format string, args ...any) error {
	return &MalformedHeaderError{Reason: fmt.Sprintf(format, args...)}
}

// UnresolvedPointerError reports a pointer whose target is not a known record start.
// The engine logs it and falls back to an untyped block.
type UnresolvedPointerError struct {
	Location int // -1 when the target was requested directly
	Target   int
}

func (e *UnresolvedPointerError) Error() string {
	if e.Location < 0 {
		return fmt.Sprintf("dat: offset %#x is not a record start", e.Target)
	}
	return fmt.Sprintf("dat: pointer at %#x targets %#x, which is not a record start", e.Location, e.Target)
}

func (e *UnresolvedPointerError) Unwrap() error {
	return ErrUnresolvedPointer
}

// RecordTypeMismatchError reports that the bytes at an offset do not validate as the
// requested type. GetAs expresses it as an absence.
type RecordTypeMismatchError struct {
	Offset int
	Type   string
}

func (e *RecordTypeMismatchError) Error() string {
	return fmt.Sprintf("dat: record at %#x is not a %s", e.Offset, e.Type)
}

func (e *RecordTypeMismatchError) Unwrap() error {
	return ErrTypeMismatch
}

// ResizeBoundsError is returned by Resize before any mutation happens.
type ResizeBoundsError struct {
	Offset int
	Delta  int
	Reason string
}

func (e *ResizeBoundsError) Error() string {
	return fmt.Sprintf("dat: cannot resize at %#x by %d: %s", e.Offset, e.Delta, e.Reason)
}

func (e *ResizeBoundsError) Unwrap() error {
	return ErrResizeBounds
}
