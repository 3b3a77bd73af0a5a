// Package asm decodes x86 machine code found at patch sites and in
// relocated payloads.
package asm

import (
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

const (
	SkipSyntax  Syntax = ""
	ATTSyntax   Syntax = "att"
	GoSyntax    Syntax = "go"
	IntelSyntax Syntax = "intel"
)

type Syntax string

type Decoder struct {
	bits          int
	disassemblyFn func(inst x86asm.Inst, pc uint64) string
}

func NewDecoder(bits int, syntax Syntax) (*Decoder, error) {
	if bits != 16 && bits != 32 && bits != 64 {
		return nil, fmt.Errorf("unsupported x86 mode: %d bits", bits)
	}

	var disassemblyFn func(inst x86asm.Inst, pc uint64) string
	switch syntax {
	case SkipSyntax:
		// Do nothing.
	case ATTSyntax:
		disassemblyFn = func(inst x86asm.Inst, pc uint64) string {
			return x86asm.GNUSyntax(inst, pc, nil)
		}
	case GoSyntax:
		disassemblyFn = func(inst x86asm.Inst, pc uint64) string {
			return x86asm.GoSyntax(inst, pc, nil)
		}
	case IntelSyntax:
		disassemblyFn = func(inst x86asm.Inst, pc uint64) string {
			return x86asm.IntelSyntax(inst, pc, nil)
		}
	default:
		return nil, fmt.Errorf("unsupported syntax type for x86: %s", syntax)
	}

	return &Decoder{
		bits:          bits,
		disassemblyFn: disassemblyFn,
	}, nil
}

type Inst struct {
	Raw    []byte
	Hex    string
	Len    int
	Offset int
	Dis    string
	Inst   x86asm.Inst
}

// DecodeFirst decodes the instruction at the start of code. pc is the
// address of code[0] and only affects how relative operands are printed.
func (o *Decoder) DecodeFirst(code []byte, pc uint64) (Inst, error) {
	x86Inst, err := x86asm.Decode(code, o.bits)
	if err != nil {
		return Inst{}, err
	}

	var disassembly string
	if o.disassemblyFn != nil {
		disassembly = o.disassemblyFn(x86Inst, pc)
	}

	return Inst{
		Raw:  code[:x86Inst.Len],
		Hex:  fmt.Sprintf("%x", code[:x86Inst.Len]),
		Len:  x86Inst.Len,
		Dis:  disassembly,
		Inst: x86Inst,
	}, nil
}

// DecodeAll decodes code until it is exhausted and fails on the first
// invalid instruction.
func (o *Decoder) DecodeAll(code []byte, pc uint64, onDecodeFn func(Inst)) error {
	index := 0
	for {
		if isDone(code, index) {
			return nil
		}

		inst, err := o.DecodeFirst(code[index:], pc+uint64(index))
		if err != nil {
			return fmt.Errorf("failed to decode instruction at 0x%x - %w - remaining data: 0x%x",
				index, err, code[index:])
		}

		inst.Offset = index

		onDecodeFn(inst)

		index += inst.Len
	}
}

// Listing renders up to max instructions of code, one per line, as
// "offset: hex  disassembly". Bytes that do not decode are shown as
// single-byte data and decoding resumes after them. Payloads carry
// embedded data, so a strict decode would stop early. max <= 0 means no
// limit.
func (o *Decoder) Listing(code []byte, pc uint64, max int) []string {
	var lines []string

	index := 0
	for !isDone(code, index) && (max <= 0 || len(lines) < max) {
		inst, err := o.DecodeFirst(code[index:], pc+uint64(index))
		if err != nil {
			lines = append(lines, fmt.Sprintf("%04x: %-20x .byte 0x%02x", index, code[index:index+1], code[index]))
			index++
			continue
		}

		lines = append(lines, fmt.Sprintf("%04x: %-20s %s", index, inst.Hex, inst.Dis))
		index += inst.Len
	}

	return lines
}

// Describe returns a one-line Intel syntax description of the instruction
// at off in img, for use in error messages.
func Describe(img []byte, off int, bits int) string {
	if off < 0 || off >= len(img) {
		return "out of bounds"
	}

	d, err := NewDecoder(bits, IntelSyntax)
	if err != nil {
		return err.Error()
	}

	inst, err := d.DecodeFirst(img[off:], uint64(off))
	if err != nil {
		return fmt.Sprintf("undecodable (0x%02x) - %s", img[off], err)
	}

	return fmt.Sprintf("%s (%s)", inst.Dis, inst.Hex)
}

func isDone(code []byte, index int) bool {
	return index > len(code)-1
}
