package landmark

import (
	"bytes"
	"fmt"
)

// leadLen is the number of leading magic bytes compared by Verify.
const leadLen = 2

// MagicScan locates a free-floating binary magic, such as the header of a
// compressed stream, that is expected to start on an aligned boundary.
//
// Some firmware revisions place the stream one byte before the boundary.
// That position is kept as an explicit secondary candidate (Shift) rather
// than relaxing the alignment rule: an aligned occurrence always wins.
type MagicScan struct {
	Name  string
	Magic []byte
	Align int
	Shift int
}

// MagicMatch is the result of a MagicScan.
type MagicMatch struct {
	Offset int

	// Shifted is true when the match came from the secondary candidate
	// at an aligned boundary plus Shift.
	Shifted bool
}

// Scan walks every occurrence of the magic at or after cursor. The first
// aligned occurrence is returned. If there is none, the first occurrence
// sitting at an aligned boundary plus Shift is returned instead.
func (m MagicScan) Scan(img []byte, cursor int) (MagicMatch, error) {
	if cursor < 0 {
		cursor = 0
	}

	fallback := -1
	var seen []int
	for i := cursor; i < len(img); {
		idx := bytes.Index(img[i:], m.Magic)
		if idx == -1 {
			break
		}

		idx += i
		if m.aligned(idx) {
			return MagicMatch{Offset: idx}, nil
		}

		if fallback == -1 && m.Shift != 0 && idx-m.Shift >= 0 && m.aligned(idx-m.Shift) {
			fallback = idx
		}

		if len(seen) < 8 {
			seen = append(seen, idx)
		}

		i = idx + len(m.Magic)
	}

	if fallback != -1 {
		return MagicMatch{Offset: fallback, Shifted: true}, nil
	}

	detail := fmt.Sprintf("no occurrence aligned to %d bytes after 0x%x", m.Align, cursor)
	if len(seen) > 0 {
		detail += fmt.Sprintf(", unaligned occurrences at %#x", seen)
	}

	return MagicMatch{}, &NotFoundError{
		Landmark:   m.Name,
		Candidates: [][]byte{m.Magic},
		Detail:     detail,
	}
}

// Verify checks an offset that was derived from another landmark. The
// offset is accepted when the leading magic bytes are found there, and
// offset+Shift is tried when they are not.
func (m MagicScan) Verify(img []byte, off int) (MagicMatch, error) {
	if m.hasLead(img, off) {
		return MagicMatch{Offset: off}, nil
	}

	if m.Shift != 0 && m.hasLead(img, off+m.Shift) {
		return MagicMatch{Offset: off + m.Shift, Shifted: true}, nil
	}

	return MagicMatch{}, &NotFoundError{
		Landmark:   m.Name,
		Candidates: [][]byte{m.lead()},
		Detail: fmt.Sprintf("expected magic at 0x%x or 0x%x, found %s",
			off, off+m.Shift, peek(img, off, leadLen)),
	}
}

func (m MagicScan) aligned(off int) bool {
	if m.Align <= 1 {
		return true
	}

	return off%m.Align == 0
}

func (m MagicScan) lead() []byte {
	if len(m.Magic) < leadLen {
		return m.Magic
	}

	return m.Magic[:leadLen]
}

func (m MagicScan) hasLead(img []byte, off int) bool {
	lead := m.lead()
	if off < 0 || off+len(lead) > len(img) {
		return false
	}

	return bytes.Equal(img[off:off+len(lead)], lead)
}

// AlignDown rounds off down to a multiple of align, which must be a power
// of two.
func AlignDown(off int, align int) int {
	return off &^ (align - 1)
}

func peek(img []byte, off int, n int) string {
	if off < 0 || off >= len(img) {
		return "nothing (out of bounds)"
	}

	end := off + n
	if end > len(img) {
		end = len(img)
	}

	return fmt.Sprintf("0x%x", img[off:end])
}
