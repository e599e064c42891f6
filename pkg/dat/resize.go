package dat

import (
	"fmt"
	"slices"
)

// resizePlan is a validated resize. Building it has no side effects.
type resizePlan struct {
	owner     int
	ownerLen  int
	edit      int // insertion point, or start of the removed span
	n         int // signed byte count
	inData    bool
	requested int
}

// shift maps a pre-edit offset to its post-edit value. It reports false for
// offsets inside a removed span.
func (p resizePlan) shift(x int) (int, bool) {
	if p.n > 0 {
		if x >= p.edit {
			return x + p.n, true
		}
		return x, true
	}
	lo, hi := p.edit, p.edit-p.n
	switch {
	case x >= hi:
		return x + p.n, true
	case x >= lo:
		return x, false
	}
	return x, true
}

// Resize grows or shrinks the record owning offset at by delta bytes.
//
// Growth inserts zero bytes at the end of the record; shrinking removes bytes from
// the end. delta is rounded to the container's alignment unit: up for growth, down
// (with a warning) for shrinking. Every relocation entry, pointer value, node
// offset and header field is adjusted. Pointers into a removed span are nulled,
// relocation entries located inside it are deleted, and node entries targeting it
// are dropped along with their labels.
//
// Validation happens before any mutation; a *ResizeBoundsError leaves the container
// unchanged. Records obtained before the call are stale afterwards.
func (c *Container) Resize(at, delta int) error {
	n := c.alignDelta(delta)
	if n == 0 {
		if delta != 0 {
			c.log.Warn("resize rounded to zero, nothing to do", "offset", at, "delta", delta, "alignment", c.alignment)
		}
		return nil
	}
	return c.resize(at, n, delta)
}

// RemoveRecord deletes the whole record starting at off. The removal is exact and
// not rounded to the alignment unit.
func (c *Container) RemoveRecord(off int) error {
	if !c.IsRecordStart(off) {
		return &ResizeBoundsError{Offset: off, Reason: "offset is not a record start"}
	}
	length := c.LengthOf(off)
	if length == 0 {
		return nil
	}
	if c.alignment > 1 && length%c.alignment != 0 {
		c.log.Warn("removing record whose length is not aligned", "offset", off, "length", length, "alignment", c.alignment)
	}
	return c.resize(off, -length, -length)
}

func (c *Container) alignDelta(delta int) int {
	unit := c.alignment
	if unit <= 1 || delta == 0 {
		return delta
	}
	if delta > 0 {
		n := (delta + unit - 1) / unit * unit
		if n != delta {
			c.log.Debug("growth rounded up to alignment", "requested", delta, "applied", n, "alignment", unit)
		}
		return n
	}
	m := -delta / unit * unit
	if m != -delta {
		c.log.Warn("shrink rounded down to alignment", "requested", -delta, "applied", m, "alignment", unit)
	}
	return -m
}

func (c *Container) resize(at, n, requested int) error {
	p, err := c.planResize(at, n, requested)
	if err != nil {
		return err
	}
	c.applyResize(p)
	return nil
}

func (c *Container) planResize(at, n, requested int) (resizePlan, error) {
	s := c.Sections()
	p := resizePlan{n: n, requested: requested, inData: s.InData(at)}
	if !p.inData && !s.InExtension(at) {
		return p, &ResizeBoundsError{Offset: at, Delta: requested, Reason: "offset is not in the data region or extension data"}
	}
	owner, ok := c.OwnerOf(at)
	if !ok {
		return p, &ResizeBoundsError{Offset: at, Delta: requested, Reason: "no record owns the offset"}
	}
	p.owner = owner
	p.ownerLen = c.LengthOf(owner)
	end := owner + p.ownerLen

	limit := s.Total
	if p.inData {
		limit = s.RelocStart
	}
	if end > limit {
		return p, &ResizeBoundsError{Offset: at, Delta: requested, Reason: "record straddles the relocation table"}
	}

	if n > 0 {
		p.edit = end
		return p, nil
	}
	if -n > p.ownerLen {
		return p, &ResizeBoundsError{
			Offset: at,
			Delta:  requested,
			Reason: fmt.Sprintf("shrink of %#x exceeds record length %#x", -n, p.ownerLen),
		}
	}
	p.edit = end + n
	return p, nil
}

func (c *Container) applyResize(p resizePlan) {
	old := c.Sections()

	// Surviving typed records are re-hinted at their new offsets. The resized record
	// itself is identified from scratch.
	hints := make(map[int]slot)
	for off, sl := range c.slots {
		hint := slot{state: slotUnresolved, hint: sl.hint, demoted: sl.demoted}
		if sl.state == slotTyped {
			hint.hint, hint.demoted = sl.rec.shape.Name, true
		}
		if hint.hint == "" || off == p.owner {
			continue
		}
		if to, ok := p.shift(off); ok {
			hints[to] = hint
		}
	}

	relocs := make([]Pointer, 0, len(c.relocs))
	var nulled, dropped int
	for _, ptr := range c.relocs {
		loc, ok := p.shift(ptr.Location)
		if !ok {
			dropped++
			continue
		}
		if ptr.Nulled {
			relocs = append(relocs, Pointer{Location: loc, Source: SourceReloc, Nulled: true})
			continue
		}
		tgt, ok := p.shift(ptr.Target)
		if !ok {
			relocs = append(relocs, Pointer{Location: loc, Source: SourceReloc, Nulled: true})
			nulled++
			continue
		}
		relocs = append(relocs, Pointer{Location: loc, Target: tgt, Source: SourceReloc})
	}

	nodes := make([]Node, 0, len(c.nodes))
	for _, nd := range c.nodes {
		off, ok := p.shift(nd.Offset)
		if !ok {
			c.log.Info("dropping node entry for removed record", "label", nd.Label, "offset", nd.Offset)
			continue
		}
		nd.Offset = off
		nodes = append(nodes, nd)
	}
	droppedNodes := len(c.nodes) - len(nodes)

	if p.inData {
		c.data = splice(c.data, p.edit, p.n)
	} else {
		c.ext = splice(c.ext, p.edit-old.NominalEnd, p.n)
	}
	c.relocs = relocs
	c.nodes = nodes
	if droppedNodes > 0 {
		c.reindexNodes()
		c.rebuildPool()
	}
	c.headerDirty = true
	c.relocDirty = true
	c.nodesDirty = true

	// Dropped entries shrink the table block, which moves the extension data.
	extBase := old.NominalEnd
	if p.inData {
		extBase += p.n
	}
	if d := c.shiftExtension(extBase); d != 0 {
		moved := make(map[int]slot, len(hints))
		for off, hint := range hints {
			if off >= extBase {
				off += d
			}
			moved[off] = hint
		}
		hints = moved
	}
	c.writePointers()

	c.invalidate()
	for off, hint := range hints {
		c.slots[off] = &hint
	}

	ch := Change{
		Kind:    ChangeResize,
		Offset:  p.owner,
		Length:  p.ownerLen + p.n,
		Delta:   p.n,
		Nulled:  nulled,
		Dropped: dropped + droppedNodes,
	}
	switch {
	case p.n > 0:
		ch.Description = fmt.Sprintf("record at offset %#x grown by %#x bytes", p.owner, p.n)
	case -p.n == p.ownerLen:
		ch.Description = fmt.Sprintf("record at offset %#x removed (%#x bytes)", p.owner, -p.n)
	default:
		ch.Description = fmt.Sprintf("record at offset %#x shrunk by %#x bytes", p.owner, -p.n)
	}
	if nulled > 0 {
		ch.Description += fmt.Sprintf(", %d pointers nulled", nulled)
	}
	c.record(ch)
}

func splice(b []byte, at, n int) []byte {
	if n > 0 {
		return slices.Insert(b, at, make([]byte, n)...)
	}
	return slices.Delete(b, at, at-n)
}
