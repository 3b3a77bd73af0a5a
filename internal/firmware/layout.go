// Package firmware unpacks, repacks and patches monolithic ASA firmware
// images.
//
// The container format is undocumented. Every region is found through
// literal landmarks relative to the kernel command line that sits near
// the end of the image, and every rewrite keeps the image length intact.
package firmware

import (
	"fmt"

	"github.com/nccgroup/asafw/internal/landmark"
	"github.com/nccgroup/asafw/internal/splice"
)

const (
	// The compressed filesystem size sits right before the command line,
	// and the kernel size right before that.
	gzipSizeDelta   = 4
	kernelSizeDelta = 8

	gzipAlign   = 16
	kernelAlign = 256
)

var (
	// Older firmware (8.0.x) spells the command line differently.
	Cmdline = landmark.Strings("kernel command line", true,
		"quiet loglevel=0 auto",
		"auto quiet loglevel=0")

	// RootfsMarker is the file name stored in the gzip header of the
	// compressed filesystem.
	RootfsMarker = landmark.Strings("rootfs marker", false, "rootfs.img")

	GzipMagic = landmark.MagicScan{
		Name:  "gzip stream",
		Magic: []byte{0x1f, 0x8b, 0x08},
		Align: gzipAlign,
		Shift: -1,
	}

	// 64-bit firmware only carries the second banner.
	BootBanner = landmark.Strings("kernel boot banner", false,
		"Direct booting from",
		"Use a boot loader")
)

// Layout is the set of regions discovered in a firmware image.
type Layout struct {
	Cmdline landmark.Match

	GzipSize   splice.SizeField
	KernelSize splice.SizeField

	// Gzip covers the compressed filesystem as recorded by GzipSize.
	Gzip           splice.Region
	GzipFromMarker bool
	GzipShifted    bool

	// Kernel is only set by LocateKernel.
	Kernel    splice.Region
	Banner    landmark.Match
	Is64Bit   bool
	HasKernel bool
}

// Locate finds the command line, the two size fields and the compressed
// filesystem.
func Locate(img []byte) (Layout, error) {
	var layout Layout

	cmdline, err := landmark.Locate(img, Cmdline)
	if err != nil {
		return Layout{}, err
	}

	layout.Cmdline = cmdline
	layout.GzipSize = splice.SizeField{Offset: cmdline.Offset - gzipSizeDelta}
	layout.KernelSize = splice.SizeField{Offset: cmdline.Offset - kernelSizeDelta}

	gzipSize, err := layout.GzipSize.Read(img)
	if err != nil {
		return Layout{}, fmt.Errorf("failed to read gzip size before command line at 0x%x - %w",
			cmdline.Offset, err)
	}

	gzip, err := locateGzip(img)
	if err != nil {
		return Layout{}, err
	}

	layout.Gzip = splice.Region{Start: gzip.Offset, Length: int(gzipSize)}
	layout.GzipFromMarker = gzip.fromMarker
	layout.GzipShifted = gzip.Shifted

	err = layout.Gzip.Check(len(img))
	if err != nil {
		return Layout{}, fmt.Errorf("recorded gzip size 0x%x does not fit the image - %w", gzipSize, err)
	}

	return layout, nil
}

type gzipMatch struct {
	landmark.MagicMatch
	fromMarker bool
}

// locateGzip derives the start of the compressed filesystem from the
// rootfs marker when present, and falls back to an aligned magic scan.
func locateGzip(img []byte) (gzipMatch, error) {
	marker, err := landmark.Locate(img, RootfsMarker)
	if err == nil {
		m, err := GzipMagic.Verify(img, landmark.AlignDown(marker.Offset, gzipAlign))
		if err != nil {
			return gzipMatch{}, fmt.Errorf("rootfs marker at 0x%x does not follow a gzip header - %w",
				marker.Offset, err)
		}

		return gzipMatch{MagicMatch: m, fromMarker: true}, nil
	}

	m, err := GzipMagic.Scan(img, 0)
	if err != nil {
		return gzipMatch{}, err
	}

	return gzipMatch{MagicMatch: m}, nil
}

// LocateKernel finds the kernel image using the boot banner and the kernel
// size field of layout.
func LocateKernel(img []byte, layout Layout) (Layout, error) {
	banner, err := landmark.Locate(img, BootBanner)
	if err != nil {
		return Layout{}, err
	}

	kernelSize, err := layout.KernelSize.Read(img)
	if err != nil {
		return Layout{}, fmt.Errorf("failed to read kernel size - %w", err)
	}

	layout.Banner = banner
	layout.Is64Bit = banner.Index == 1
	layout.Kernel = splice.Region{
		Start:  landmark.AlignDown(banner.Offset, kernelAlign),
		Length: int(kernelSize),
	}
	layout.HasKernel = true

	err = layout.Kernel.Check(len(img))
	if err != nil {
		return Layout{}, fmt.Errorf("recorded kernel size 0x%x does not fit the image - %w", kernelSize, err)
	}

	return layout, nil
}
