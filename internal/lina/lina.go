// Package lina patches the main ASA executable and its monitor.
package lina

import (
	"errors"
	"fmt"
	"log"

	"github.com/nccgroup/asafw/internal/asm"
	"github.com/nccgroup/asafw/internal/shellcode"
	"github.com/nccgroup/asafw/internal/splice"
	"github.com/nccgroup/asafw/internal/target"
)

const (
	// InjectionSymbol is the routine replaced by the debug shell. It runs
	// when a user authenticates over SSH.
	InjectionSymbol = "aaa_admin_authenticate"

	// SignatureCheckSymbol is the conditional jump taken after the monitor
	// verifies the executable's signature.
	SignatureCheckSymbol = "jz_after_code_sign_verify_signature_image"

	// SafetyCeiling bounds the size of any injected payload. The smallest
	// known injection site is much larger, so a bigger payload means the
	// template is broken.
	SafetyCeiling = 1000

	opJZ  byte = 0x74
	opJMP byte = 0xeb
)

var (
	ErrPayloadTooLarge  = errors.New("payload too large")
	ErrUnexpectedOpcode = errors.New("unexpected opcode")
	ErrNoImageBase      = errors.New("target has no executable image base")
)

// Injector patches executables. Log receives progress messages and may be
// nil. Verbose adds a disassembly of the relocated payload.
type Injector struct {
	Log     *log.Logger
	Verbose bool
}

func (o Injector) logf(format string, args ...interface{}) {
	if o.Log != nil {
		o.Log.Printf(format, args...)
	}
}

// Injection is the result of InjectDebugShell.
type Injection struct {
	Patched []byte
	Payload shellcode.Payload
	Offset  int

	// End is the offset right after the payload.
	End int
}

// InjectDebugShell overwrites the injection routine in lina with a debug
// shell relocated for tgt.
func (o Injector) InjectDebugShell(lina []byte, tgt target.Target, params shellcode.Params) (Injection, error) {
	// Addresses are both relative to the image base and file offsets in
	// the executable, which only holds when the base is known.
	if !tgt.HasRecordedBase() {
		return Injection{}, fmt.Errorf("%w: %s would be patched at the wrong offset", ErrNoImageBase, InjectionSymbol)
	}

	addr, err := target.Lookup(tgt.Addresses, InjectionSymbol)
	if err != nil {
		return Injection{}, err
	}

	off := int(addr)
	o.logf("Installing debug shell at 0x%x", off)

	if off < 0 || off >= len(lina) {
		return Injection{}, &splice.BoundsError{Region: splice.Region{Start: off}, Size: len(lina)}
	}

	tmpl, err := shellcode.ForArch(tgt.Arch)
	if err != nil {
		return Injection{}, err
	}

	payload, err := shellcode.Relocate(tmpl, tgt, params)
	if err != nil {
		return Injection{}, fmt.Errorf("target not completely supported yet - %w", err)
	}

	for _, v := range payload.Values {
		if v.Symbol != "" {
			o.logf("Resolved %s to %s = 0x%x", v.Slot, v.Symbol, v.Value)
		}
	}

	size := len(payload.Code)
	if size > SafetyCeiling {
		return Injection{}, &PayloadTooLargeError{Size: size, Limit: SafetyCeiling, Reason: "safety ceiling"}
	}

	avail, source := AvailableRegion(lina, off, InjectionSymbol)
	if size > avail {
		return Injection{}, &PayloadTooLargeError{Size: size, Limit: avail, Reason: source}
	}

	out, err := splice.Overwrite(lina, splice.Region{Start: off, Length: size}, payload.Code)
	if err != nil {
		return Injection{}, fmt.Errorf("failed to inject debug shell - %w", err)
	}

	o.logf("Patched lina offset: 0x%x with len = %d bytes (DEBUG SHELL)", off, size)

	if o.Verbose {
		o.preview(payload, tgt.Arch, uint64(off))
	}

	return Injection{
		Patched: out,
		Payload: payload,
		Offset:  off,
		End:     off + size,
	}, nil
}

func (o Injector) preview(payload shellcode.Payload, arch int, pc uint64) {
	d, err := asm.NewDecoder(arch, asm.IntelSyntax)
	if err != nil {
		o.logf("Cannot disassemble payload - %s", err)
		return
	}

	for _, line := range d.Listing(payload.Code, pc, 24) {
		o.logf("  %s", line)
	}
}

// NeedsMonitorPatch reports whether tgt ships a monitor that verifies the
// executable's signature before running it.
func NeedsMonitorPatch(tgt target.Target) bool {
	return tgt.IsVirtual()
}

// PatchSignatureCheck turns the conditional jump after the monitor's
// signature check into an unconditional one.
func (o Injector) PatchSignatureCheck(monitor []byte, tgt target.Target) ([]byte, error) {
	addr, err := target.Lookup(tgt.MonitorAddresses, SignatureCheckSymbol)
	if err != nil {
		return nil, err
	}

	off := int(addr)
	o.logf("Patching lina signature check at 0x%x", off)

	if off < 0 || off >= len(monitor) {
		return nil, &splice.BoundsError{Region: splice.Region{Start: off, Length: 1}, Size: len(monitor)}
	}

	if monitor[off] != opJZ {
		return nil, &UnexpectedOpcodeError{
			Offset: off,
			Want:   opJZ,
			Got:    monitor[off],
			Disasm: asm.Describe(monitor, off, tgt.Arch),
		}
	}

	out, err := splice.Overwrite(monitor, splice.Region{Start: off, Length: 1}, []byte{opJMP})
	if err != nil {
		return nil, fmt.Errorf("failed to patch signature check - %w", err)
	}

	o.logf("Patched lina_monitor offset: 0x%x with len = 1 bytes (SIGN CHECK)", off)

	if o.Verbose {
		o.logf("  %s -> %s", asm.Describe(monitor, off, tgt.Arch), asm.Describe(out, off, tgt.Arch))
	}

	return out, nil
}

// PayloadTooLargeError reports a payload that does not fit where it is
// injected.
type PayloadTooLargeError struct {
	Size   int
	Limit  int
	Reason string
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("%s: %d bytes exceeds %s of %d bytes", ErrPayloadTooLarge, e.Size, e.Reason, e.Limit)
}

func (e *PayloadTooLargeError) Is(err error) bool {
	return err == ErrPayloadTooLarge
}

// UnexpectedOpcodeError reports a patch site that does not hold the
// instruction it is expected to.
type UnexpectedOpcodeError struct {
	Offset int
	Want   byte
	Got    byte
	Disasm string
}

func (e *UnexpectedOpcodeError) Error() string {
	return fmt.Sprintf("%s at 0x%x: expected 0x%02x, found 0x%02x (%s)",
		ErrUnexpectedOpcode, e.Offset, e.Want, e.Got, e.Disasm)
}

func (e *UnexpectedOpcodeError) Is(err error) bool {
	return err == ErrUnexpectedOpcode
}
