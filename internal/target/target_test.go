package target

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSymbolTableResolve(t *testing.T) {
	table := SymbolTable{
		"socks_proxy_server_start": 0x1234,
		"aaa_admin_authenticate":   0xffffffff00c0ffee,
	}

	tests := []struct {
		Name     string
		Alias    Alias
		Mask     uint64
		WantAddr uint64
		WantName string
		WantOK   bool
	}{
		{
			Name:     "fallback alias",
			Alias:    Alias{"start_loopback_proxy", "socks_proxy_server_start"},
			Mask:     ^uint64(0),
			WantAddr: 0x1234,
			WantName: "socks_proxy_server_start",
			WantOK:   true,
		},
		{
			Name:     "masked",
			Alias:    Alias{"aaa_admin_authenticate"},
			Mask:     0xffffffff,
			WantAddr: 0x00c0ffee,
			WantName: "aaa_admin_authenticate",
			WantOK:   true,
		},
		{
			Name:  "missing",
			Alias: Alias{"nope", "also_nope"},
			Mask:  ^uint64(0),
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			addr, name, ok := table.Resolve(test.Alias, test.Mask)
			if addr != test.WantAddr || name != test.WantName || ok != test.WantOK {
				t.Fatalf("Resolve(): got (%#x, %q, %t), expected (%#x, %q, %t)",
					addr, name, ok, test.WantAddr, test.WantName, test.WantOK)
			}
		})
	}
}

func TestResolverCollectsEveryMiss(t *testing.T) {
	r := NewResolver(SymbolTable{"present": 1})

	r.Resolve(Alias{"a", "b"}, ^uint64(0))
	r.Resolve(Alias{"present"}, ^uint64(0))
	r.Resolve(Alias{"c"}, ^uint64(0))

	err := r.Err()
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("got error %v, expected ErrUnresolved", err)
	}

	var ue *UnresolvedError
	if !errors.As(err, &ue) {
		t.Fatalf("got error %T, expected *UnresolvedError", err)
	}

	if diff := cmp.Diff([]string{"a|b", "c"}, ue.Missing); diff != "" {
		t.Fatalf("Missing: (-want, +got)\n%s", diff)
	}

	const want = "unresolved symbols: a|b, c"
	if err.Error() != want {
		t.Fatalf("Error(): got %q, expected %q", err.Error(), want)
	}
}

func TestResolverNoMiss(t *testing.T) {
	r := NewResolver(SymbolTable{"present": 1})

	addr, name, ok := r.Resolve(Alias{"present"}, ^uint64(0))
	if !ok || addr != 1 || name != "present" {
		t.Fatalf("Resolve(): got (%#x, %t)", addr, ok)
	}

	if err := r.Err(); err != nil {
		t.Fatalf("Err(): %v", err)
	}
}

func TestBase(t *testing.T) {
	tests := []struct {
		Name   string
		Target Target
		Want   uint64
	}{
		{
			Name:   "recorded lina base",
			Target: Target{Arch: 64, ASLR: true, ImageBase: 0x1000, LinaImageBase: 0x555555554000},
			Want:   0x555555554000,
		},
		{
			Name:   "generic base",
			Target: Target{Arch: 32, ImageBase: 0x8050000},
			Want:   0x8050000,
		},
		{
			Name:   "32-bit default",
			Target: Target{Arch: 32, ASLR: true},
			Want:   0x8048000,
		},
		{
			Name:   "64-bit aslr default",
			Target: Target{Arch: 64, ASLR: true},
			Want:   0x555555554000,
		},
		{
			Name:   "64-bit no aslr default",
			Target: Target{Arch: 64},
			Want:   0x400000,
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			if got := test.Target.Base(); got != test.Want {
				t.Fatalf("Base(): got %#x, expected %#x", got, test.Want)
			}
		})
	}
}

const jsonDB = `[
  {
    "fw": "asa924-k8.bin",
    "version": "9.2.4",
    "arch": 32,
    "ASLR": false,
    "imagebase": 134512640,
    "lina_imagebase": 134512640,
    "exploit_mitigations": {"nx": true},
    "addresses": {"aaa_admin_authenticate": 4096, "socks_proxy_server_start": 8192}
  },
  {
    "fw": "asav962-7.qcow2",
    "version": "9.6.2.7",
    "arch": 64,
    "ASLR": true,
    "lina_imagebase": 93824992231424,
    "addresses": {"aaa_admin_authenticate": 16384},
    "lm_addresses": {"jz_after_code_sign_verify_signature_image": 14692}
  }
]`

const tomlDBText = `
[[target]]
fw = "asa924-k8.bin"
version = "9.2.4"
arch = 32
ASLR = false
imagebase = 0x8048000
lina_imagebase = 0x8048000

[target.addresses]
aaa_admin_authenticate = 0x1000
socks_proxy_server_start = 0x2000

[[target]]
fw = "asav962-7.qcow2"
version = "9.6.2.7"
arch = 64
ASLR = true
lina_imagebase = 0x555555554000

[target.addresses]
aaa_admin_authenticate = 0x4000

[target.lm_addresses]
jz_after_code_sign_verify_signature_image = 0x3964
`

var wantTargets = []Target{
	{
		Firmware:      "asa924-k8.bin",
		Version:       "9.2.4",
		Arch:          32,
		ImageBase:     0x8048000,
		LinaImageBase: 0x8048000,
		Addresses: SymbolTable{
			"aaa_admin_authenticate":   0x1000,
			"socks_proxy_server_start": 0x2000,
		},
	},
	{
		Firmware:      "asav962-7.qcow2",
		Version:       "9.6.2.7",
		Arch:          64,
		ASLR:          true,
		LinaImageBase: 0x555555554000,
		Addresses: SymbolTable{
			"aaa_admin_authenticate": 0x4000,
		},
		MonitorAddresses: SymbolTable{
			"jz_after_code_sign_verify_signature_image": 0x3964,
		},
	},
}

func TestLoad(t *testing.T) {
	tests := []struct {
		Name string
		File string
		Data string
	}{
		{Name: "json", File: "targets.json", Data: jsonDB},
		{Name: "toml", File: "targets.toml", Data: tomlDBText},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), test.File)
			err := os.WriteFile(path, []byte(test.Data), 0o600)
			if err != nil {
				t.Fatal(err)
			}

			db, err := Load(path)
			if err != nil {
				t.Fatalf("Load(): %v", err)
			}

			if diff := cmp.Diff(wantTargets, db.Targets); diff != "" {
				t.Fatalf("Load(): (-want, +got)\n%s", diff)
			}

			if db.Path != path {
				t.Fatalf("Path: got %q, expected %q", db.Path, path)
			}
		})
	}
}

func TestLoadRejectsUnknownFormats(t *testing.T) {
	for _, ext := range []string{".pickle", ".yaml", ""} {
		_, err := Parse(ext, []byte("x"))
		if err == nil {
			t.Errorf("Parse(%q): expected an error", ext)
		}
	}
}

func TestDBLookup(t *testing.T) {
	db := &DB{Targets: wantTargets}

	tgt, i, err := db.Find("asav962-7.qcow2")
	if err != nil {
		t.Fatal(err)
	}

	if i != 1 || tgt.Firmware != "asav962-7.qcow2" {
		t.Fatalf("Find(): got index %d target %s", i, tgt.Firmware)
	}

	_, _, err = db.Find("asa1000.bin")
	if !errors.Is(err, ErrNoTarget) {
		t.Fatalf("Find(): got error %v, expected ErrNoTarget", err)
	}

	at, err := db.At(0)
	if err != nil {
		t.Fatal(err)
	}

	if at.Firmware != "asa924-k8.bin" {
		t.Fatalf("At(0): got %s", at.Firmware)
	}

	for _, bad := range []int{-1, 2} {
		_, err = db.At(bad)
		if !errors.Is(err, ErrNoTarget) {
			t.Fatalf("At(%d): got error %v, expected ErrNoTarget", bad, err)
		}
	}
}

func TestLookup(t *testing.T) {
	addr, err := Lookup(SymbolTable{"x": 5}, "x")
	if err != nil || addr != 5 {
		t.Fatalf("Lookup(): got (%d, %v)", addr, err)
	}

	_, err = Lookup(SymbolTable{}, "aaa_admin_authenticate")
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("Lookup(): got error %v, expected ErrUnresolved", err)
	}
}
