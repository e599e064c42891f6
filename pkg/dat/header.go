package dat

import (
	"encoding/binary"
	"strings"
)

// Header is the fixed 0x20-byte container header. All fields are big-endian on disk.
type Header struct {
	FileSize   uint32 // nominal size including the header, excluding extension data
	DataSize   uint32 // relocation table start, data-relative
	RelocCount uint32
	RootCount  uint32
	AliasCount uint32
	Tag        [4]byte
	Reserved   [8]byte
}

// TagString returns the type tag as a string.
func (h *Header) TagString() string {
	return string(h.Tag[:])
}

func (h *Header) validTag() bool {
	for _, b := range h.Tag {
		if b < 0x20 || b > 0x7E {
			return false
		}
	}
	return true
}

func (h *Header) matchesTag(want string) bool {
	if want == "" {
		return true
	}
	return strings.EqualFold(h.TagString(), want)
}

func decodeHeader(b []byte) (Header, bool) {
	if len(b) < HeaderSize {
		return Header{}, false
	}
	h := Header{
		FileSize:   binary.BigEndian.Uint32(b[0x00:0x04]),
		DataSize:   binary.BigEndian.Uint32(b[0x04:0x08]),
		RelocCount: binary.BigEndian.Uint32(b[0x08:0x0C]),
		RootCount:  binary.BigEndian.Uint32(b[0x0C:0x10]),
		AliasCount: binary.BigEndian.Uint32(b[0x10:0x14]),
	}
	copy(h.Tag[:], b[0x14:0x18])
	copy(h.Reserved[:], b[0x18:0x20])
	return h, true
}

func encodeHeader(dst []byte, h Header) bool {
	if len(dst) < HeaderSize {
		return false
	}
	binary.BigEndian.PutUint32(dst[0x00:0x04], h.FileSize)
	binary.BigEndian.PutUint32(dst[0x04:0x08], h.DataSize)
	binary.BigEndian.PutUint32(dst[0x08:0x0C], h.RelocCount)
	binary.BigEndian.PutUint32(dst[0x0C:0x10], h.RootCount)
	binary.BigEndian.PutUint32(dst[0x10:0x14], h.AliasCount)
	copy(dst[0x14:0x18], h.Tag[:])
	copy(dst[0x18:0x20], h.Reserved[:])
	return true
}

// Sections holds the data-relative section boundaries of a container.
// They are derived from the container state on every call.
type Sections struct {
	RelocStart int // end of the data region
	RelocEnd   int
	RootStart  int
	AliasStart int
	PoolStart  int
	NominalEnd int // end of the string pool; extension data follows
	Total      int
}

// InData reports whether off lies in the data region.
func (s Sections) InData(off int) bool {
	return off >= 0 && off < s.RelocStart
}

// InExtension reports whether off lies in the extension data.
func (s Sections) InExtension(off int) bool {
	return off >= s.NominalEnd && off < s.Total
}

// Writable reports whether [off, off+n) lies entirely inside the data region or
// entirely inside the extension data.
func (s Sections) Writable(off, n int) bool {
	if n < 0 || off < 0 {
		return false
	}
	if off+n <= s.RelocStart {
		return true
	}
	return off >= s.NominalEnd && off+n <= s.Total
}
