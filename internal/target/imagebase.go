package target

const (
	ImageBase32    uint64 = 0x8048000
	ImageBase64    uint64 = 0x400000
	ImageBase64PIE uint64 = 0x555555554000
)

// DefaultImageBase returns the load address the main executable uses when
// the database does not record one. 32-bit executables are never
// position-independent. 64-bit ones load at the gdb default PIE base when
// ASLR is enabled.
func DefaultImageBase(arch int, aslr bool) uint64 {
	switch {
	case arch == 32:
		return ImageBase32
	case aslr:
		return ImageBase64PIE
	default:
		return ImageBase64
	}
}
