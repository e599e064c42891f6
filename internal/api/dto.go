package api

import (
	"encoding/hex"

	"github.com/DRGN-DRC/Melee-Modding-Wizard-sub000/pkg/dat"
)

type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

type SectionsResp struct {
	RelocStart int `json:"reloc_start"`
	RelocEnd   int `json:"reloc_end"`
	RootStart  int `json:"root_start"`
	AliasStart int `json:"alias_start"`
	PoolStart  int `json:"pool_start"`
	NominalEnd int `json:"nominal_end"`
	Total      int `json:"total"`
}

type HeaderResp struct {
	Tag        string       `json:"tag"`
	FileSize   uint32       `json:"file_size"`
	DataSize   uint32       `json:"data_size"`
	RelocCount uint32       `json:"reloc_count"`
	RootCount  uint32       `json:"root_count"`
	AliasCount uint32       `json:"alias_count"`
	Sections   SectionsResp `json:"sections"`
	Generation uint64       `json:"generation"`
	Dirty      bool         `json:"dirty"`
}

type RecordSummary struct {
	Offset int    `json:"offset"`
	Length int    `json:"length"`
	Type   string `json:"type"`
	Kind   string `json:"kind"`
	Orphan bool   `json:"orphan"`
}

type PointerResp struct {
	Location int    `json:"location"`
	Target   int    `json:"target"`
	Source   string `json:"source"`
	Nulled   bool   `json:"nulled,omitempty"`
}

type WordResp struct {
	Offset  int    `json:"offset"`
	Value   uint32 `json:"value"`
	Pointer bool   `json:"pointer,omitempty"`
}

type RecordDetail struct {
	RecordSummary
	Parents  []int              `json:"parents"`
	Children []PointerResp      `json:"children"`
	Fields   map[string]float64 `json:"fields,omitempty"`
	Words    []WordResp         `json:"words,omitempty"`
	Data     string             `json:"data"`
}

type NodeResp struct {
	Table  string `json:"table"`
	Index  int    `json:"index"`
	Offset int    `json:"offset"`
	Label  string `json:"label"`
	Kind   string `json:"kind"`
}

type WriteBytesReq struct {
	At  int    `json:"at"` // record-relative
	Hex string `json:"hex"`
}

type SetFieldReq struct {
	Value *float64 `json:"value"`
}

type ResizeReq struct {
	Delta *int `json:"delta"`
}

type ChangesResp struct {
	Changes []dat.Change `json:"changes"`
	Dirty   bool         `json:"dirty"`
}

type VerifyResp struct {
	OK     bool        `json:"ok"`
	Issues []dat.Issue `json:"issues"`
}

func headerResp(c *dat.Container) HeaderResp {
	h := c.Header()
	s := c.Sections()
	return HeaderResp{
		Tag:        h.TagString(),
		FileSize:   h.FileSize,
		DataSize:   h.DataSize,
		RelocCount: h.RelocCount,
		RootCount:  h.RootCount,
		AliasCount: h.AliasCount,
		Sections: SectionsResp{
			RelocStart: s.RelocStart,
			RelocEnd:   s.RelocEnd,
			RootStart:  s.RootStart,
			AliasStart: s.AliasStart,
			PoolStart:  s.PoolStart,
			NominalEnd: s.NominalEnd,
			Total:      s.Total,
		},
		Generation: c.Generation(),
		Dirty:      c.Dirty(),
	}
}

func recordSummary(r *dat.Record) RecordSummary {
	orphan, _ := r.Orphan()
	return RecordSummary{
		Offset: r.Offset(),
		Length: r.Len(),
		Type:   r.TypeName(),
		Kind:   r.Kind().String(),
		Orphan: orphan,
	}
}

func recordDetail(r *dat.Record) (RecordDetail, error) {
	d := RecordDetail{RecordSummary: recordSummary(r)}

	parents, err := r.Parents()
	if err != nil {
		return d, err
	}
	d.Parents = append([]int{}, parents...)

	children, err := r.Children()
	if err != nil {
		return d, err
	}
	d.Children = make([]PointerResp, 0, len(children))
	for _, p := range children {
		d.Children = append(d.Children, pointerResp(p))
	}

	if shape := r.Shape(); shape != nil {
		d.Fields = make(map[string]float64, len(shape.Fields))
		for _, f := range shape.Fields {
			v, err := r.Field(f.Name)
			if err != nil {
				return d, err
			}
			d.Fields[f.Name] = v
		}
	} else {
		words, err := r.Words()
		if err != nil {
			return d, err
		}
		for _, w := range words {
			d.Words = append(d.Words, WordResp{Offset: w.Offset, Value: w.Value, Pointer: w.Pointer})
		}
	}

	b, err := r.Bytes()
	if err != nil {
		return d, err
	}
	d.Data = hex.EncodeToString(b)
	return d, nil
}

func pointerResp(p dat.Pointer) PointerResp {
	return PointerResp{Location: p.Location, Target: p.Target, Source: p.Source.String(), Nulled: p.Nulled}
}

func nodeResp(n dat.Node) NodeResp {
	return NodeResp{
		Table:  n.Table.String(),
		Index:  n.Index,
		Offset: n.Offset,
		Label:  n.Label,
		Kind:   n.Kind.String(),
	}
}
