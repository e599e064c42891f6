package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/DRGN-DRC/Melee-Modding-Wizard-sub000/pkg/dat"
)

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func section(w io.Writer, title string) {
	line := strings.Repeat("-", len(title)+8)
	_, _ = fmt.Fprintf(w, "\n%s\n--- %s ---\n%s\n", line, title, line)
}

func row(w io.Writer, label, value string) {
	if value == "" {
		return
	}
	_, _ = fmt.Fprintf(w, "%-20s %s\n", label+":", value)
}

func hexRow(w io.Writer, label string, v int) {
	row(w, label, fmt.Sprintf("%#x (%d)", v, v))
}

// hexdump prints b as 16-byte lines addressed from base.
func hexdump(w io.Writer, base int, b []byte) {
	for i := 0; i < len(b); i += 16 {
		end := min(i+16, len(b))
		var hexPart, ascii strings.Builder
		for j := i; j < i+16; j++ {
			if j < end {
				fmt.Fprintf(&hexPart, "%02x ", b[j])
				if b[j] >= 0x20 && b[j] < 0x7F {
					ascii.WriteByte(b[j])
				} else {
					ascii.WriteByte('.')
				}
			} else {
				hexPart.WriteString("   ")
			}
			if j == i+7 {
				hexPart.WriteByte(' ')
			}
		}
		_, _ = fmt.Fprintf(w, "%08x  %s |%s|\n", base+i, hexPart.String(), ascii.String())
	}
}

// parseOffset accepts decimal, 0x-prefixed hex or 0o-prefixed octal.
func parseOffset(s string) (int, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid offset %q", s)
	}
	if v < 0 || v > 1<<32-1 {
		return 0, fmt.Errorf("offset %q out of range", s)
	}
	return int(v), nil
}

// parseDelta is parseOffset for signed values.
func parseDelta(s string) (int, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid delta %q", s)
	}
	if v < -(1<<31) || v > 1<<31-1 {
		return 0, fmt.Errorf("delta %q out of range", s)
	}
	return int(v), nil
}

// resolveRecord accepts an offset or a node label.
func resolveRecord(c *dat.Container, arg string) (*dat.Record, error) {
	if off, err := parseOffset(arg); err == nil {
		return c.Get(off)
	}
	r, ok := c.GetByLabel(arg)
	if !ok {
		return nil, fmt.Errorf("no record or label %q", arg)
	}
	return r, nil
}

type recordView struct {
	Offset   int                `json:"offset"`
	Length   int                `json:"length"`
	Type     string             `json:"type"`
	Orphan   bool               `json:"orphan"`
	Parents  []int              `json:"parents,omitempty"`
	Children []dat.Pointer      `json:"children,omitempty"`
	Fields   map[string]float64 `json:"fields,omitempty"`
}

func viewRecord(r *dat.Record, detail bool) (recordView, error) {
	orphan, err := r.Orphan()
	if err != nil {
		return recordView{}, err
	}
	v := recordView{Offset: r.Offset(), Length: r.Len(), Type: r.TypeName(), Orphan: orphan}
	if !detail {
		return v, nil
	}
	if v.Parents, err = r.Parents(); err != nil {
		return v, err
	}
	if v.Children, err = r.Children(); err != nil {
		return v, err
	}
	if shape := r.Shape(); shape != nil {
		v.Fields = make(map[string]float64, len(shape.Fields))
		for _, f := range shape.Fields {
			if v.Fields[f.Name], err = r.Field(f.Name); err != nil {
				return v, err
			}
		}
	}
	return v, nil
}

func printRecord(w io.Writer, r *dat.Record) error {
	v, err := viewRecord(r, true)
	if err != nil {
		return err
	}
	section(w, fmt.Sprintf("Record %#x", v.Offset))
	hexRow(w, "offset", v.Offset)
	hexRow(w, "length", v.Length)
	row(w, "type", v.Type)
	row(w, "orphan", strconv.FormatBool(v.Orphan))
	for _, p := range v.Parents {
		row(w, "parent", fmt.Sprintf("%#x", p))
	}
	for _, p := range v.Children {
		if p.Nulled {
			row(w, "pointer", fmt.Sprintf("+%#x -> null", p.Location-v.Offset))
			continue
		}
		row(w, "pointer", fmt.Sprintf("+%#x -> %#x", p.Location-v.Offset, p.Target))
	}
	if shape := r.Shape(); shape != nil {
		for _, f := range shape.Fields {
			row(w, f.Name, strconv.FormatFloat(v.Fields[f.Name], 'g', -1, 64))
		}
		return nil
	}
	words, err := r.Words()
	if err != nil {
		return err
	}
	for _, wd := range words {
		mark := ""
		if wd.Pointer {
			mark = " *"
		}
		_, _ = fmt.Fprintf(w, "  +%04x  %08x%s\n", wd.Offset, wd.Value, mark)
	}
	return nil
}
