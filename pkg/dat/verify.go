package dat

import (
	"cmp"
	"fmt"
	"slices"
)

// Severity ranks a verification issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue is one finding of Verify.
type Issue struct {
	Severity Severity `json:"severity"`
	Offset   int      `json:"offset"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s at %#x: %s", i.Severity, i.Offset, i.Message)
}

// Verify checks the container's structural invariants and returns the findings in
// offset order. A container fresh from Load or from a successful mutation has no
// error-level issues; WriteAt can still break a typed record's shape, which shows up
// here.
func (c *Container) Verify() []Issue {
	s := c.Sections()
	var issues []Issue
	add := func(sev Severity, off int, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Offset: off, Message: fmt.Sprintf(format, args...)})
	}

	if s.RelocStart%pointerSize != 0 {
		add(SeverityWarning, s.RelocStart, "data region size %#x is not 4-byte aligned", s.RelocStart)
	}

	for i, p := range c.relocs {
		if !s.Writable(p.Location, pointerSize) {
			add(SeverityError, p.Location, "relocation entry %d is outside the data region and extension data", i)
			continue
		}
		if p.Location%pointerSize != 0 {
			add(SeverityWarning, p.Location, "relocation entry %d is not 4-byte aligned", i)
		}
		if v, err := c.Uint32At(p.Location); err != nil || int(v) != p.Target {
			add(SeverityError, p.Location, "stored pointer %#x does not match relocation target %#x", v, p.Target)
		}
		if p.Target < 0 || p.Target >= s.Total {
			add(SeverityError, p.Location, "pointer target %#x is outside the container", p.Target)
		}
	}

	locs := c.sortedLocations()
	for i := 1; i < len(locs); i++ {
		switch d := locs[i] - locs[i-1]; {
		case d == 0:
			add(SeverityError, locs[i], "duplicate relocation entry")
		case d < pointerSize:
			add(SeverityError, locs[i], "pointer overlaps the pointer at %#x", locs[i-1])
		}
	}

	for _, n := range c.nodes {
		if n.Offset < 0 || n.Offset >= s.Total {
			add(SeverityError, n.Offset, "%s node %d (%q) is outside the container", n.Table, n.Index, n.Label)
		}
	}

	for off, sl := range c.slots {
		var shape *Shape
		switch {
		case sl.state == slotTyped:
			shape = sl.rec.shape
		case sl.demoted:
			shape = c.registry.Lookup(sl.hint)
		}
		if shape == nil {
			continue
		}
		if _, ok := c.tryShape(off, shape); !ok {
			add(SeverityError, off, "record no longer matches shape %s", shape.Name)
		}
	}

	for _, off := range c.Orphans() {
		add(SeverityInfo, off, "record is not reachable from the node tables")
	}

	slices.SortStableFunc(issues, func(a, b Issue) int {
		return cmp.Compare(a.Offset, b.Offset)
	})
	return issues
}

// HasErrors reports whether any issue is error-level.
func HasErrors(issues []Issue) bool {
	return slices.ContainsFunc(issues, func(i Issue) bool { return i.Severity == SeverityError })
}
