// Package splice rewrites regions of an image without ever changing the
// image's total length.
//
// Offsets inside the firmware images handled here are found by heuristics
// relative to other landmarks, some of them searched from the end of the
// image. Any change in length would silently move those landmarks, so
// every operation in this package returns a new buffer of exactly the
// input length or an error.
package splice

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrSizeMismatch = errors.New("replacement size mismatch")
	ErrWouldGrow    = errors.New("replacement would grow region")
	ErrOutOfBounds  = errors.New("region out of bounds")
	ErrLengthDrift  = errors.New("output length differs from input length")
)

// Region is a span of bytes in an image.
type Region struct {
	Start  int
	Length int
}

func (r Region) End() int {
	return r.Start + r.Length
}

func (r Region) String() string {
	return fmt.Sprintf("[0x%x, 0x%x)", r.Start, r.End())
}

// Check returns an error if r does not fit in an image of the given size.
func (r Region) Check(size int) error {
	if r.Start < 0 || r.Length < 0 || r.End() > size {
		return &BoundsError{Region: r, Size: size}
	}

	return nil
}

// Overlaps reports whether r and o have any bytes in common.
func (r Region) Overlaps(o Region) bool {
	return r.Start < o.End() && o.Start < r.End()
}

// SizeField is a little-endian uint32 embedded in an image that records the
// length of an adjacent region.
type SizeField struct {
	Offset int
}

const sizeFieldLen = 4

func (f SizeField) Region() Region {
	return Region{Start: f.Offset, Length: sizeFieldLen}
}

// Read returns the value of the size field in img.
func (f SizeField) Read(img []byte) (uint32, error) {
	if err := f.Region().Check(len(img)); err != nil {
		return 0, fmt.Errorf("failed to read size field - %w", err)
	}

	return binary.LittleEndian.Uint32(img[f.Offset:]), nil
}

func (f SizeField) put(img []byte, v uint32) {
	binary.LittleEndian.PutUint32(img[f.Offset:], v)
}

// Extract returns a copy of the bytes of img covered by r.
func Extract(img []byte, r Region) ([]byte, error) {
	if err := r.Check(len(img)); err != nil {
		return nil, err
	}

	out := make([]byte, r.Length)
	copy(out, img[r.Start:r.End()])

	return out, nil
}

// Overwrite returns a copy of img with r replaced by data. The length of
// data must equal r.Length exactly; nothing is truncated or padded.
func Overwrite(img []byte, r Region, data []byte) ([]byte, error) {
	if err := r.Check(len(img)); err != nil {
		return nil, err
	}

	if len(data) != r.Length {
		return nil, &SizeMismatchError{Region: r, Got: len(data)}
	}

	out := clone(img)
	copy(out[r.Start:], data)

	return out, checkLength(img, out)
}

// Shrink returns a copy of img with data written at the start of r and
// field rewritten to len(data).
//
// The bytes between the end of data and the end of r keep their original
// values. Consumers only read the first field-value bytes of the region,
// so the old tail is left in place as filler. data may not be longer than
// r.
func Shrink(img []byte, r Region, field SizeField, data []byte) ([]byte, error) {
	if err := r.Check(len(img)); err != nil {
		return nil, err
	}

	if err := field.Region().Check(len(img)); err != nil {
		return nil, fmt.Errorf("size field - %w", err)
	}

	if r.Overlaps(field.Region()) {
		return nil, fmt.Errorf("%w: region %s overlaps size field at 0x%x",
			ErrOutOfBounds, r, field.Offset)
	}

	if len(data) > r.Length {
		return nil, &WouldGrowError{Region: r, Got: len(data)}
	}

	out := clone(img)
	copy(out[r.Start:], data)
	field.put(out, uint32(len(data)))

	return out, checkLength(img, out)
}

func clone(img []byte) []byte {
	out := make([]byte, len(img))
	copy(out, img)

	return out
}

func checkLength(in, out []byte) error {
	if len(in) != len(out) {
		return fmt.Errorf("%w: got %d bytes, expected %d", ErrLengthDrift, len(out), len(in))
	}

	return nil
}

// BoundsError reports a region that does not fit in its image.
type BoundsError struct {
	Region Region
	Size   int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("%s: region %s in image of 0x%x bytes", ErrOutOfBounds, e.Region, e.Size)
}

func (e *BoundsError) Is(err error) bool {
	return err == ErrOutOfBounds
}

// SizeMismatchError reports an exact overwrite whose data does not have
// the same length as the region.
type SizeMismatchError struct {
	Region Region
	Got    int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("%s: region %s holds %d bytes, got %d", ErrSizeMismatch, e.Region, e.Region.Length, e.Got)
}

func (e *SizeMismatchError) Is(err error) bool {
	return err == ErrSizeMismatch
}

// WouldGrowError reports replacement data that is larger than the region
// it replaces.
type WouldGrowError struct {
	Region Region
	Got    int
}

func (e *WouldGrowError) Error() string {
	return fmt.Sprintf("%s: replacement is bigger than the original (0x%x > 0x%x)", ErrWouldGrow, e.Got, e.Region.Length)
}

func (e *WouldGrowError) Is(err error) bool {
	return err == ErrWouldGrow
}
