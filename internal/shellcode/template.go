// Package shellcode holds machine code templates with fixed-width
// placeholder slots, and relocates them for a specific target.
//
// A Template never changes after it is built. Relocate copies the code
// and fills every slot in the copy, so relocating twice with the same
// inputs yields the same bytes.
package shellcode

import (
	"bytes"
	"fmt"

	"github.com/nccgroup/asafw/internal/target"
)

// Kind says what a placeholder slot is filled with.
type Kind int

const (
	// Address slots hold a little-endian symbol address.
	Address Kind = iota

	// Host slots hold the four bytes of an IPv4 callback address.
	Host

	// Port slots hold a callback port in network byte order.
	Port
)

func (k Kind) String() string {
	switch k {
	case Address:
		return "address"
	case Host:
		return "host"
	case Port:
		return "port"
	default:
		return fmt.Sprintf("unknown (%d)", int(k))
	}
}

// Placeholder declares one slot in a template.
type Placeholder struct {
	Name    string
	Pattern []byte
	Kind    Kind

	// Symbols, Mask and Absolute only apply to Address slots.
	Symbols target.Alias
	Mask    uint64

	// Absolute slots hold a wired address that is used as is. Other
	// address slots are relative to the executable's image base.
	Absolute bool
}

func (o Placeholder) width() (int, error) {
	switch o.Kind {
	case Address:
		if len(o.Pattern) != 4 && len(o.Pattern) != 8 {
			return 0, fmt.Errorf("address slot %q must be 4 or 8 bytes, got %d",
				o.Name, len(o.Pattern))
		}

		return len(o.Pattern), nil
	case Host:
		return 4, nil
	case Port:
		return 2, nil
	default:
		return 0, fmt.Errorf("slot %q has unsupported kind %s", o.Name, o.Kind)
	}
}

// Slot is a placeholder bound to its offset in a template.
type Slot struct {
	Placeholder
	Offset int
}

type Template struct {
	name  string
	arch  int
	code  []byte
	slots []Slot
}

// NewTemplate validates the placeholders against code and returns an
// immutable template. Every pattern must have the width its kind requires
// and must occur exactly once in code. Slots may not overlap.
func NewTemplate(name string, arch int, code []byte, placeholders ...Placeholder) (*Template, error) {
	t := &Template{
		name: name,
		arch: arch,
		code: append([]byte(nil), code...),
	}

	for _, p := range placeholders {
		width, err := p.width()
		if err != nil {
			return nil, fmt.Errorf("template %s - %w", name, err)
		}

		if len(p.Pattern) != width {
			return nil, fmt.Errorf("template %s: %s slot %q must be %d bytes, got %d",
				name, p.Kind, p.Name, width, len(p.Pattern))
		}

		if p.Kind == Address && len(p.Symbols) == 0 {
			return nil, fmt.Errorf("template %s: address slot %q has no symbols", name, p.Name)
		}

		if n := bytes.Count(t.code, p.Pattern); n != 1 {
			return nil, fmt.Errorf("template %s: pattern 0x%x of slot %q occurs %d times, expected once",
				name, p.Pattern, p.Name, n)
		}

		off := bytes.Index(t.code, p.Pattern)
		for _, other := range t.slots {
			if off < other.Offset+len(other.Pattern) && other.Offset < off+width {
				return nil, fmt.Errorf("template %s: slot %q overlaps slot %q",
					name, p.Name, other.Name)
			}
		}

		p.Pattern = append([]byte(nil), p.Pattern...)
		p.Symbols = append(target.Alias(nil), p.Symbols...)

		t.slots = append(t.slots, Slot{
			Placeholder: p,
			Offset:      off,
		})
	}

	return t, nil
}

// MustTemplate is like NewTemplate but panics on error. It is meant for
// package-level template definitions.
func MustTemplate(name string, arch int, code []byte, placeholders ...Placeholder) *Template {
	t, err := NewTemplate(name, arch, code, placeholders...)
	if err != nil {
		panic(err)
	}

	return t
}

func (o *Template) Name() string {
	return o.name
}

func (o *Template) Arch() int {
	return o.arch
}

func (o *Template) Len() int {
	return len(o.code)
}

// Code returns a copy of the unrelocated code.
func (o *Template) Code() []byte {
	return append([]byte(nil), o.code...)
}

// Slots returns a copy of the template's slots in declaration order.
func (o *Template) Slots() []Slot {
	return append([]Slot(nil), o.slots...)
}
