package dat

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// ChangeKind names the mutation a Change describes.
type ChangeKind string

const (
	ChangeWrite   ChangeKind = "write"
	ChangeField   ChangeKind = "field"
	ChangePointer ChangeKind = "pointer"
	ChangeResize  ChangeKind = "resize"
)

// Change is one entry of the container's change log.
type Change struct {
	ID          uuid.UUID  `json:"id"`
	Time        time.Time  `json:"time"`
	Kind        ChangeKind `json:"kind"`
	Offset      int        `json:"offset"`
	Length      int        `json:"length,omitempty"`
	Delta       int        `json:"delta,omitempty"`
	Nulled      int        `json:"nulled,omitempty"`
	Dropped     int        `json:"dropped,omitempty"`
	Description string     `json:"description"`
}

func (c *Container) record(ch Change) {
	ch.ID = uuid.New()
	ch.Time = c.clock()
	c.changes = append(c.changes, ch)
	c.log.Debug("container changed", "kind", ch.Kind, "change", ch.Description)
	if c.hook != nil {
		c.hook(ch)
	}
}

// Changes returns the change log, oldest first.
func (c *Container) Changes() []Change {
	return slices.Clone(c.changes)
}

// ClearChanges empties the change log, typically after the host saved the file.
func (c *Container) ClearChanges() {
	c.changes = nil
}
