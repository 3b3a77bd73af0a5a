package firmware

import (
	"bytes"
	"errors"
	"fmt"
	"log"

	"github.com/nccgroup/asafw/internal/landmark"
	"github.com/nccgroup/asafw/internal/splice"
)

// Patch is a kernel command line rewrite.
type Patch int

const (
	NoPatch Patch = iota

	// Root makes the kernel start /bin/sh instead of init.
	Root

	// Unroot restores the stock command line.
	Unroot

	// DisableASLR boots the kernel with norandmaps.
	DisableASLR
)

func (p Patch) String() string {
	switch p {
	case NoPatch:
		return "none"
	case Root:
		return "root"
	case Unroot:
		return "unroot"
	case DisableASLR:
		return "disable-aslr"
	default:
		return fmt.Sprintf("unknown (%d)", int(p))
	}
}

const (
	stockCmdline  = "quiet loglevel=0 auto"
	rootCmdline   = "rdinit=/bin/sh"
	noASLRCmdline = "norandmaps auto"
)

// Patched is the landmark for command lines written by Root or
// DisableASLR.
var Patched = landmark.Strings("patched kernel command line", false,
	pad(rootCmdline, len(stockCmdline)),
	pad(noASLRCmdline, len(stockCmdline)))

var ErrConflictingPatches = errors.New("conflicting command line patches")

// SelectPatch picks the single patch to apply for a set of requested
// flags. Disabling ASLR and rooting rewrite the same bytes, so disabling
// ASLR wins. Unrooting cannot be combined with anything.
func SelectPatch(root, unroot, noASLR bool) (Patch, error) {
	switch {
	case unroot && (root || noASLR):
		return NoPatch, fmt.Errorf("%w: unroot cannot be combined with root or noaslr", ErrConflictingPatches)
	case unroot:
		return Unroot, nil
	case noASLR:
		return DisableASLR, nil
	case root:
		return Root, nil
	default:
		return NoPatch, nil
	}
}

func pad(s string, n int) string {
	for len(s) < n {
		s += " "
	}

	return s
}

// Patcher runs firmware operations. Log receives progress messages and
// may be nil.
type Patcher struct {
	Log *log.Logger
}

func (o Patcher) logf(format string, args ...interface{}) {
	if o.Log != nil {
		o.Log.Printf(format, args...)
	}
}

// Unpacked holds the regions extracted from a firmware image.
type Unpacked struct {
	Layout Layout
	Initrd []byte
	Kernel []byte
}

// Unpack extracts the compressed filesystem and the kernel from img.
func (o Patcher) Unpack(img []byte) (*Unpacked, error) {
	layout, err := o.locate(img)
	if err != nil {
		return nil, err
	}

	layout, err = LocateKernel(img, layout)
	if err != nil {
		return nil, err
	}

	if layout.Is64Bit {
		o.logf("Probably handling a 64-bit firmware...")
	}

	o.logf("Kernel at 0x%x (0x%x bytes)", layout.Kernel.Start, layout.Kernel.Length)

	initrd, err := splice.Extract(img, layout.Gzip)
	if err != nil {
		return nil, fmt.Errorf("failed to extract gzip - %w", err)
	}

	kernel, err := splice.Extract(img, layout.Kernel)
	if err != nil {
		return nil, fmt.Errorf("failed to extract kernel - %w", err)
	}

	return &Unpacked{
		Layout: layout,
		Initrd: initrd,
		Kernel: kernel,
	}, nil
}

// Repack replaces the compressed filesystem in img with gz. gz may not be
// bigger than the filesystem it replaces.
func (o Patcher) Repack(img []byte, gz []byte) ([]byte, error) {
	layout, err := o.locate(img)
	if err != nil {
		return nil, err
	}

	o.logf("New gzip size: 0x%x bytes", len(gz))

	if !bytes.HasPrefix(gz, GzipMagic.Magic) {
		o.logf("Warning: replacement does not start with a gzip header")
	}

	out, err := splice.Shrink(img, layout.Gzip, layout.GzipSize, gz)
	if err != nil {
		return nil, fmt.Errorf("failed to repack - %w", err)
	}

	return out, nil
}

// PatchCmdline applies p to the kernel command line of img. Only the
// located occurrence is rewritten.
func (o Patcher) PatchCmdline(img []byte, p Patch) ([]byte, error) {
	var lm landmark.Landmark
	var replacement string

	switch p {
	case Root:
		lm, replacement = Cmdline, rootCmdline
	case DisableASLR:
		lm, replacement = Cmdline, noASLRCmdline
	case Unroot:
		lm, replacement = Patched, stockCmdline
	case NoPatch:
		return img, nil
	default:
		return nil, fmt.Errorf("unsupported command line patch: %s", p)
	}

	m, err := landmark.Locate(img, lm)
	if err != nil {
		return nil, err
	}

	if n := landmark.Count(img, m.Pattern); n > 1 {
		o.logf("Warning: %q occurs %d times, only patching the one at 0x%x", m.Pattern, n, m.Offset)
	}

	if m.Index > 0 {
		o.logf("Warning: using alternative command line %q", m.Pattern)
	}

	out, err := splice.Overwrite(img,
		splice.Region{Start: m.Offset, Length: len(m.Pattern)},
		[]byte(pad(replacement, len(m.Pattern))))
	if err != nil {
		return nil, fmt.Errorf("failed to %s - %w", p, err)
	}

	o.logf("%s: patched command line at 0x%x", p, m.Offset)

	return out, nil
}

func (o Patcher) locate(img []byte) (Layout, error) {
	layout, err := Locate(img)
	if err != nil {
		return Layout{}, err
	}

	if layout.Cmdline.Index > 0 {
		o.logf("Warning: Could not find kernel command line, used alternative %q", layout.Cmdline.Pattern)
	}

	o.logf("Old gzip size: 0x%x bytes", layout.Gzip.Length)

	switch {
	case layout.GzipFromMarker && layout.GzipShifted:
		o.logf("Found gzip one byte before rootfs.img boundary at 0x%x", layout.Gzip.Start)
	case layout.GzipFromMarker:
		o.logf("Found gzip from rootfs.img at 0x%x", layout.Gzip.Start)
	case layout.GzipShifted:
		o.logf("Warning: Could not find rootfs.img string, assuming gzip one byte before boundary at 0x%x", layout.Gzip.Start)
	default:
		o.logf("Warning: Could not find rootfs.img string, assuming good gzip magic at 0x%x", layout.Gzip.Start)
	}

	return layout, nil
}
