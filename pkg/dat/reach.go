package dat

// sweep marks every record start reachable from the node tables by following
// relocation entries depth-first. It runs after load and lazily after each change
// to offsets or the relocation table.
func (c *Container) sweep() map[int]struct{} {
	if c.reached != nil {
		return c.reached
	}
	total := c.Sections().Total
	children := make(map[int][]int)
	for _, p := range c.relocs {
		if p.Nulled {
			continue
		}
		if owner, ok := c.OwnerOf(p.Location); ok {
			children[owner] = append(children[owner], p.Target)
		}
	}

	reached := make(map[int]struct{})
	stack := make([]int, 0, len(c.nodes))
	for _, n := range c.nodes {
		stack = append(stack, n.Offset)
	}
	for len(stack) > 0 {
		off := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if off < 0 || off >= total {
			continue
		}
		if _, seen := reached[off]; seen {
			continue
		}
		reached[off] = struct{}{}
		stack = append(stack, children[off]...)
	}
	c.reached = reached
	return reached
}

func (c *Container) isOrphan(off int) bool {
	_, ok := c.sweep()[off]
	return !ok
}

// Orphans returns the record starts in the data region and extension data that no
// path from the node tables reaches. Orphans remain editable.
func (c *Container) Orphans() []int {
	s := c.Sections()
	reached := c.sweep()
	var out []int
	for _, off := range c.recordStarts() {
		if !s.InData(off) && !s.InExtension(off) {
			continue
		}
		if _, ok := reached[off]; !ok {
			out = append(out, off)
		}
	}
	return out
}
