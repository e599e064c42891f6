package dat

import (
	"bytes"
	"encoding/binary"
)

// Table identifies one of the two node tables.
type Table uint8

const (
	TableRoot Table = iota
	TableAlias
)

func (t Table) String() string {
	if t == TableAlias {
		return "alias"
	}
	return "root"
}

// NodeKind classifies a node entry.
type NodeKind uint8

const (
	// NodeRoot is a structural root: no relocation entry targets its record, so the
	// node is the only path into that part of the graph.
	NodeRoot NodeKind = iota
	// NodeLabel is a bookmark for a record that some data-region pointer already
	// reaches.
	NodeLabel
)

func (k NodeKind) String() string {
	if k == NodeLabel {
		return "label"
	}
	return "root"
}

// Node is one row of a node table.
type Node struct {
	Table  Table
	Index  int // row within its table
	Offset int
	Label  string
	Kind   NodeKind

	stringOffset uint32
}

func (c *Container) decodeNodes() error {
	rows := len(c.rawNodes) / nodeEntrySize
	roots := int(c.hdr.RootCount)
	c.nodes = make([]Node, 0, rows)
	for i := 0; i < rows; i++ {
		row := c.rawNodes[i*nodeEntrySize:]
		n := Node{
			Table:        TableRoot,
			Index:        i,
			Offset:       int(binary.BigEndian.Uint32(row[0:4])),
			stringOffset: binary.BigEndian.Uint32(row[4:8]),
		}
		if i >= roots {
			n.Table = TableAlias
			n.Index = i - roots
		}
		if uint64(n.stringOffset) >= uint64(len(c.pool)) {
			return malformed("%s node %d label offset %#x is outside the string pool of %#x bytes",
				n.Table, n.Index, n.stringOffset, len(c.pool))
		}
		label := c.pool[n.stringOffset:]
		if end := bytes.IndexByte(label, 0); end >= 0 {
			label = label[:end]
		}
		n.Label = string(label)
		c.nodes = append(c.nodes, n)
	}
	return nil
}

func (c *Container) countNodes(t Table) int {
	n := 0
	for i := range c.nodes {
		if c.nodes[i].Table == t {
			n++
		}
	}
	return n
}

// Nodes returns root rows then alias rows, each classified as root or label. Only
// live pointers stored in the data region make a node a label.
func (c *Container) Nodes() []Node {
	s := c.Sections()
	targeted := make(map[int]struct{}, len(c.relocs))
	for _, p := range c.relocs {
		if p.Nulled || !s.InData(p.Location) {
			continue
		}
		targeted[p.Target] = struct{}{}
	}
	out := make([]Node, len(c.nodes))
	for i, n := range c.nodes {
		n.Kind = NodeRoot
		if _, ok := targeted[n.Offset]; ok {
			n.Kind = NodeLabel
		}
		out[i] = n
	}
	return out
}

// Roots returns the node entries classified as structural roots.
func (c *Container) Roots() []Node {
	return c.nodesOfKind(NodeRoot)
}

// Labels returns the node entries classified as labels.
func (c *Container) Labels() []Node {
	return c.nodesOfKind(NodeLabel)
}

func (c *Container) nodesOfKind(k NodeKind) []Node {
	var out []Node
	for _, n := range c.Nodes() {
		if n.Kind == k {
			out = append(out, n)
		}
	}
	return out
}

// FindLabel returns the first node entry with the given label.
func (c *Container) FindLabel(name string) (Node, bool) {
	for _, n := range c.Nodes() {
		if n.Label == name {
			return n, true
		}
	}
	return Node{}, false
}

// GetByLabel resolves a node label to its record. Absent labels are common and
// reported as false rather than as an error.
func (c *Container) GetByLabel(name string) (*Record, bool) {
	n, ok := c.FindLabel(name)
	if !ok {
		return nil, false
	}
	r, err := c.Get(n.Offset)
	if err != nil {
		return nil, false
	}
	return r, true
}

// rebuildPool re-encodes the string pool from the labels in table order and
// reassigns every row's string offset.
func (c *Container) rebuildPool() {
	var pool []byte
	for i := range c.nodes {
		c.nodes[i].stringOffset = uint32(len(pool))
		pool = append(pool, c.nodes[i].Label...)
		pool = append(pool, 0)
	}
	if pool == nil {
		pool = []byte{}
	}
	c.pool = pool
	c.poolDirty = true
	c.nodesDirty = true
	c.tables = nil
}

// reindexNodes renumbers rows after some were dropped.
func (c *Container) reindexNodes() {
	var root, alias int
	for i := range c.nodes {
		switch c.nodes[i].Table {
		case TableRoot:
			c.nodes[i].Index = root
			root++
		case TableAlias:
			c.nodes[i].Index = alias
			alias++
		}
	}
}
