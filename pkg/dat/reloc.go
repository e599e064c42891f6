package dat

import (
	"slices"
	"sort"
)

// Source identifies where a pointer was decoded from.
type Source uint8

const (
	SourceReloc Source = iota
	SourceRootTable
	SourceAliasTable
)

func (s Source) String() string {
	switch s {
	case SourceReloc:
		return "reloc"
	case SourceRootTable:
		return "root"
	case SourceAliasTable:
		return "alias"
	default:
		return "unknown"
	}
}

func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Pointer is a (location, target) pair, both data-relative. Nulled marks an entry
// whose target was removed: the stored word is 0 but it references nothing.
type Pointer struct {
	Location int    `json:"location"`
	Target   int    `json:"target"`
	Source   Source `json:"source"`
	Nulled   bool   `json:"nulled,omitempty"`
}

// Relocations returns the relocation table entries in table order.
func (c *Container) Relocations() []Pointer {
	return slices.Clone(c.relocs)
}

// Pointers decodes every pointer-equivalent in the container: the relocation table
// entries, plus one entry per node-table row whose location is the row itself.
func (c *Container) Pointers() []Pointer {
	s := c.Sections()
	out := make([]Pointer, 0, len(c.relocs)+len(c.nodes))
	out = append(out, c.relocs...)
	for _, n := range c.nodes {
		p := Pointer{Target: n.Offset}
		switch n.Table {
		case TableRoot:
			p.Location = s.RootStart + n.Index*nodeEntrySize
			p.Source = SourceRootTable
		case TableAlias:
			p.Location = s.AliasStart + n.Index*nodeEntrySize
			p.Source = SourceAliasTable
		}
		out = append(out, p)
	}
	return out
}

// RecordStartOffsets returns the sorted, de-duplicated set of offsets a record may
// begin at: every resolvable pointer target, every node offset, and the starts of
// the data region, relocation table, both node tables and string pool. The start of
// extension data is included when extension data exists.
func (c *Container) RecordStartOffsets() []int {
	return slices.Clone(c.recordStarts())
}

func (c *Container) recordStarts() []int {
	if c.starts != nil {
		return c.starts
	}
	s := c.Sections()
	starts := make([]int, 0, len(c.relocs)+len(c.nodes)+6)
	starts = append(starts, 0, s.RelocStart, s.RootStart, s.AliasStart, s.PoolStart)
	if len(c.ext) > 0 {
		starts = append(starts, s.NominalEnd)
	}
	for _, p := range c.relocs {
		if p.Nulled {
			continue
		}
		if p.Target < 0 || p.Target >= s.Total {
			err := &UnresolvedPointerError{Location: p.Location, Target: p.Target}
			c.log.Warn("ignoring unresolved pointer", "err", err)
			continue
		}
		starts = append(starts, p.Target)
	}
	for _, n := range c.nodes {
		if n.Offset < 0 || n.Offset >= s.Total {
			c.log.Warn("ignoring node with out-of-range offset", "label", n.Label, "offset", n.Offset)
			continue
		}
		starts = append(starts, n.Offset)
	}
	slices.Sort(starts)
	c.starts = slices.Compact(starts)
	return c.starts
}

// IsRecordStart reports whether off is in the record-start set.
func (c *Container) IsRecordStart(off int) bool {
	_, ok := slices.BinarySearch(c.recordStarts(), off)
	return ok
}

// LengthOf returns the distance from off to the next record start, or to the end of
// the container when no start follows. Pointers never target the interior of a
// record, so this is the record's length including trailing padding.
func (c *Container) LengthOf(off int) int {
	starts := c.recordStarts()
	total := c.Sections().Total
	if off < 0 || off >= total {
		return 0
	}
	i := sort.SearchInts(starts, off+1)
	if i < len(starts) {
		return starts[i] - off
	}
	return total - off
}

// OwnerOf returns the start of the record whose byte range contains loc.
func (c *Container) OwnerOf(loc int) (int, bool) {
	if loc < 0 || loc >= c.Sections().Total {
		return 0, false
	}
	starts := c.recordStarts()
	i := sort.SearchInts(starts, loc+1) - 1
	if i < 0 {
		return 0, false
	}
	return starts[i], true
}

// sortedLocations returns relocation locations in ascending order.
func (c *Container) sortedLocations() []int {
	if c.locs != nil {
		return c.locs
	}
	locs := make([]int, len(c.relocs))
	for i, p := range c.relocs {
		locs[i] = p.Location
	}
	slices.Sort(locs)
	c.locs = locs
	return locs
}

// pointerIn returns the first relocation location in [lo, hi).
func (c *Container) pointerIn(lo, hi int) (int, bool) {
	locs := c.sortedLocations()
	i := sort.SearchInts(locs, lo)
	if i < len(locs) && locs[i] < hi {
		return locs[i], true
	}
	return 0, false
}

// pointersIn returns relocation entries whose location lies in [lo, hi), sorted by
// location.
func (c *Container) pointersIn(lo, hi int) []Pointer {
	var out []Pointer
	for _, p := range c.relocs {
		if p.Location >= lo && p.Location < hi {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b Pointer) int { return a.Location - b.Location })
	return out
}

// pointersTo returns the locations of live relocation entries targeting off.
func (c *Container) pointersTo(off int) []int {
	var out []int
	for _, p := range c.relocs {
		if p.Target == off && !p.Nulled {
			out = append(out, p.Location)
		}
	}
	slices.Sort(out)
	return out
}
