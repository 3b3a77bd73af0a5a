package shellcode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"

	"golang.org/x/crypto/cryptobyte"

	"github.com/nccgroup/asafw/internal/target"
)

var (
	ErrOverflow = errors.New("value does not fit slot")
	ErrArch     = errors.New("unsupported architecture")
	ErrHost     = errors.New("callback host is not an IPv4 address")
)

// Params are the per-invocation inputs of a relocation.
type Params struct {
	Host netip.Addr
	Port uint16

	// Slide is added to image-base-relative addresses when the target
	// runs with ASLR enabled. It is ignored otherwise.
	Slide uint64
}

// Payload is a relocated template.
type Payload struct {
	Template string
	Code     []byte
	Values   []Value
}

// Value records what was written into one slot.
type Value struct {
	Slot   string
	Offset int
	Symbol string
	Value  uint64
}

// Relocate fills every slot of t for tgt. It does not modify t.
//
// Every slot is processed even after a failure, so the returned error
// carries each slot that could not be filled together with a
// *target.UnresolvedError listing all missing symbols.
func Relocate(t *Template, tgt target.Target, p Params) (Payload, error) {
	if t.arch != tgt.Arch {
		return Payload{}, fmt.Errorf("template %s is for %d-bit targets, %s is %d-bit",
			t.name, t.arch, tgt.Firmware, tgt.Arch)
	}

	out := t.Code()
	payload := Payload{Template: t.name}
	resolver := target.NewResolver(tgt.Addresses)
	var slotErrs []error

	for _, slot := range t.slots {
		var enc []byte
		var value Value
		var err error

		switch slot.Kind {
		case Address:
			addr, symbol, ok := resolveAddress(resolver, slot, tgt, p)
			if !ok {
				continue
			}

			enc, err = encodeAddress(slot, addr)
			value = Value{Symbol: symbol, Value: addr}
		case Host:
			enc, err = encodeHost(p.Host)
			if err == nil {
				value.Value = uint64(binary.BigEndian.Uint32(enc))
			}
		case Port:
			enc, err = encodePort(p.Port)
			value.Value = uint64(p.Port)
		default:
			err = fmt.Errorf("unsupported slot kind %s", slot.Kind)
		}

		if err != nil {
			slotErrs = append(slotErrs, fmt.Errorf("failed to fill slot %q - %w", slot.Name, err))
			continue
		}

		copy(out[slot.Offset:], enc)

		value.Slot = slot.Name
		value.Offset = slot.Offset
		payload.Values = append(payload.Values, value)
	}

	err := resolver.Err()
	if err != nil {
		slotErrs = append(slotErrs, err)
	}

	if len(slotErrs) > 0 {
		return Payload{}, errors.Join(slotErrs...)
	}

	if len(out) != t.Len() {
		return Payload{}, fmt.Errorf("payload length drifted from %d to %d bytes", t.Len(), len(out))
	}

	payload.Code = out

	return payload, nil
}

func resolveAddress(r *target.Resolver, slot Slot, tgt target.Target, p Params) (uint64, string, bool) {
	addr, symbol, ok := r.Resolve(slot.Symbols, slot.Mask)
	if !ok {
		return 0, "", false
	}

	if !slot.Absolute {
		addr += tgt.Base()
		if tgt.ASLR {
			addr += p.Slide
		}
	}

	return addr, symbol, true
}

func encodeAddress(slot Slot, addr uint64) ([]byte, error) {
	enc := make([]byte, len(slot.Pattern))

	switch len(enc) {
	case 4:
		if addr > 0xffffffff {
			return nil, &OverflowError{Slot: slot.Name, Value: addr, Width: 4}
		}

		binary.LittleEndian.PutUint32(enc, uint32(addr))
	case 8:
		binary.LittleEndian.PutUint64(enc, addr)
	default:
		return nil, fmt.Errorf("unsupported address width %d", len(enc))
	}

	return enc, nil
}

func encodeHost(host netip.Addr) ([]byte, error) {
	host = host.Unmap()
	if !host.Is4() {
		return nil, fmt.Errorf("%w: %q", ErrHost, host)
	}

	var b cryptobyte.Builder
	b.AddBytes(host.AsSlice())

	return b.Bytes()
}

func encodePort(port uint16) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddUint16(port)

	return b.Bytes()
}

// OverflowError reports an address that is too large for its slot.
type OverflowError struct {
	Slot  string
	Value uint64
	Width int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("%s: 0x%x in %d-byte slot %q", ErrOverflow, e.Value, e.Width, e.Slot)
}

func (e *OverflowError) Is(err error) bool {
	return err == ErrOverflow
}

// ArchError reports a target architecture without a template.
type ArchError struct {
	Arch int
}

func (e *ArchError) Error() string {
	return fmt.Sprintf("%s: %d-bit", ErrArch, e.Arch)
}

func (e *ArchError) Is(err error) bool {
	return err == ErrArch
}
