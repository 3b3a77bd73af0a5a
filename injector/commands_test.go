package main

import (
	"bytes"
	"errors"
	"log"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nccgroup/asafw/internal/shellcode"
	"github.com/nccgroup/asafw/internal/target"
)

const testDB = `[
  {
    "fw": "asa924-k8.bin",
    "version": "9.2.4",
    "arch": 32,
    "ASLR": false,
    "lina_imagebase": 134512640,
    "addresses": {
      "aaa_admin_authenticate": 256,
      "socks_proxy_server_start": 8192
    }
  },
  {
    "fw": "asav962-7.qcow2",
    "version": "9.6.2.7",
    "arch": 64,
    "ASLR": true,
    "lina_imagebase": 93824992231424,
    "addresses": {
      "aaa_admin_authenticate": 512,
      "start_loopback_proxy": 4096
    },
    "lm_addresses": {
      "jz_after_code_sign_verify_signature_image": 16
    }
  }
]`

func writeTestFile(t *testing.T, dir string, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)

	err := os.WriteFile(path, data, 0o600)
	if err != nil {
		t.Fatal(err)
	}

	return path
}

func runRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	logs := &bytes.Buffer{}
	out := &bytes.Buffer{}

	root := newRootCommand(log.New(logs, "[lina] ", 0), out)
	root.SetArgs(args)
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()

	return out.String(), logs.String(), err
}

func TestInject(t *testing.T) {
	dir := t.TempDir()
	db := writeTestFile(t, dir, "targets.json", []byte(testDB))
	linaIn := writeTestFile(t, dir, "lina", bytes.Repeat([]byte{0x90}, 0x1000))
	linaOut := filepath.Join(dir, "lina.patched")

	_, logs, err := runRoot(t, "inject", "-d", db, "-f", linaIn, "-o", linaOut,
		"-b", "asa924-k8.bin", "-c", "10.1.2.3", "-p", "8080")
	if err != nil {
		t.Fatalf("%v\n%s", err, logs)
	}

	patched, err := os.ReadFile(linaOut)
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := target.Parse(".json", []byte(testDB))
	if err != nil {
		t.Fatal(err)
	}

	want, err := shellcode.Relocate(shellcode.DebugShell32, parsed.Targets[0], shellcode.Params{
		Host: netip.MustParseAddr("10.1.2.3"),
		Port: 8080,
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(patched) != 0x1000 {
		t.Fatalf("got %d bytes, expected %d", len(patched), 0x1000)
	}

	if !bytes.Equal(patched[0x100:0x100+len(want.Code)], want.Code) {
		t.Fatal("payload not found at the injection site")
	}

	if !strings.Contains(logs, "Using index: 0 for asa924-k8.bin") {
		t.Fatalf("missing target selection in log:\n%s", logs)
	}
}

func TestInjectVirtualNeedsMonitor(t *testing.T) {
	dir := t.TempDir()
	db := writeTestFile(t, dir, "targets.json", []byte(testDB))
	linaIn := writeTestFile(t, dir, "lina", make([]byte, 0x1000))

	_, _, err := runRoot(t, "inject", "-d", db, "-f", linaIn, "-o", filepath.Join(dir, "out"), "-i", "1")
	if err == nil || !strings.Contains(err.Error(), "'-F' and '-O'") {
		t.Fatalf("got error %v, expected a request for lina_monitor", err)
	}
}

func TestInjectVirtual(t *testing.T) {
	dir := t.TempDir()
	db := writeTestFile(t, dir, "targets.json", []byte(testDB))
	linaIn := writeTestFile(t, dir, "lina", make([]byte, 0x1000))

	monitor := make([]byte, 0x100)
	monitor[0x10] = 0x74
	monitorIn := writeTestFile(t, dir, "lina_monitor", monitor)
	monitorOut := filepath.Join(dir, "lina_monitor.patched")

	_, logs, err := runRoot(t, "inject", "-d", db, "-i", "1",
		"-f", linaIn, "-o", filepath.Join(dir, "lina.patched"),
		"-F", monitorIn, "-O", monitorOut)
	if err != nil {
		t.Fatalf("%v\n%s", err, logs)
	}

	patched, err := os.ReadFile(monitorOut)
	if err != nil {
		t.Fatal(err)
	}

	if patched[0x10] != 0xeb {
		t.Fatalf("got 0x%02x at the signature check, expected 0xeb", patched[0x10])
	}
}

func TestInjectVirtualWritesNothingOnFailure(t *testing.T) {
	const noProxyDB = `[
  {
    "fw": "asav962-7.qcow2",
    "arch": 64,
    "ASLR": true,
    "lina_imagebase": 93824992231424,
    "addresses": {"aaa_admin_authenticate": 512},
    "lm_addresses": {"jz_after_code_sign_verify_signature_image": 16}
  }
]`

	dir := t.TempDir()
	db := writeTestFile(t, dir, "targets.json", []byte(noProxyDB))
	linaIn := writeTestFile(t, dir, "lina", make([]byte, 0x1000))

	monitor := make([]byte, 0x100)
	monitor[0x10] = 0x74
	monitorIn := writeTestFile(t, dir, "lina_monitor", monitor)

	linaOut := filepath.Join(dir, "lina.patched")
	monitorOut := filepath.Join(dir, "lina_monitor.patched")

	_, _, err := runRoot(t, "inject", "-d", db, "-i", "0",
		"-f", linaIn, "-o", linaOut,
		"-F", monitorIn, "-O", monitorOut)
	if !errors.Is(err, target.ErrUnresolved) {
		t.Fatalf("got error %v, expected ErrUnresolved", err)
	}

	for _, out := range []string{monitorOut, linaOut} {
		_, statErr := os.Stat(out)
		if !errors.Is(statErr, os.ErrNotExist) {
			t.Errorf("%s written despite the error", filepath.Base(out))
		}
	}
}

func TestInjectBadParams(t *testing.T) {
	dir := t.TempDir()
	db := writeTestFile(t, dir, "targets.json", []byte(testDB))
	linaIn := writeTestFile(t, dir, "lina", make([]byte, 0x1000))
	linaOut := filepath.Join(dir, "out")

	tests := []struct {
		Name string
		Args []string
	}{
		{Name: "bad host", Args: []string{"-c", "not-an-ip"}},
		{Name: "ipv6 host", Args: []string{"-c", "::1"}},
		{Name: "port zero", Args: []string{"-p", "0"}},
		{Name: "port too big", Args: []string{"-p", "70000"}},
		{Name: "bad index", Args: []string{"-i", "7"}},
		{Name: "unknown firmware", Args: []string{"-b", "asa999-k8.bin"}},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			args := append([]string{"inject", "-d", db, "-f", linaIn, "-o", linaOut}, test.Args...)

			_, _, err := runRoot(t, args...)
			if err == nil {
				t.Fatal("expected an error")
			}

			_, statErr := os.Stat(linaOut)
			if !errors.Is(statErr, os.ErrNotExist) {
				t.Fatal("output written despite the error")
			}
		})
	}
}

func TestSelectTarget(t *testing.T) {
	db, err := target.Parse(".json", []byte(testDB))
	if err != nil {
		t.Fatal(err)
	}

	logger := log.New(&bytes.Buffer{}, "", 0)

	tests := []struct {
		Name      string
		Index     int
		BinName   string
		LinaPath  string
		WantIndex int
		WantErr   bool
	}{
		{Name: "index", Index: 1, WantIndex: 1},
		{Name: "index wins", Index: 0, BinName: "asav962-7.qcow2", WantIndex: 0},
		{Name: "bin name", Index: -1, BinName: "asav962-7.qcow2", WantIndex: 1},
		{Name: "guessed", Index: -1, LinaPath: "/tmp/_asa924-k8.bin.extracted/asa/bin/lina", WantIndex: 0},
		{Name: "bad index", Index: 2, WantErr: true},
		{Name: "cannot guess", Index: -1, LinaPath: "/tmp/lina", WantErr: true},
		{Name: "unknown", Index: -1, BinName: "asa100-k8.bin", WantErr: true},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			tgt, index, err := selectTarget(db, test.Index, test.BinName, test.LinaPath, logger)
			if test.WantErr {
				if err == nil {
					t.Fatalf("expected an error, got target %s", tgt)
				}
				return
			}

			if err != nil {
				t.Fatal(err)
			}

			if index != test.WantIndex || tgt.Firmware != db.Targets[test.WantIndex].Firmware {
				t.Fatalf("got %d (%s), expected %d", index, tgt.Firmware, test.WantIndex)
			}
		})
	}
}

func TestTargets(t *testing.T) {
	dir := t.TempDir()
	db := writeTestFile(t, dir, "targets.json", []byte(testDB))

	out, _, err := runRoot(t, "targets", "-d", db)
	if err != nil {
		t.Fatal(err)
	}

	var got [][]string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		got = append(got, strings.Fields(line))
	}

	want := [][]string{
		{"INDEX", "FIRMWARE", "VERSION", "ARCH", "ASLR", "BASE"},
		{"0", "asa924-k8.bin", "9.2.4", "32", "false", "0x8048000"},
		{"1", "asav962-7.qcow2", "9.6.2.7", "64", "true", "0x555555554000"},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("targets mismatch (-want +got):\n%s", diff)
	}
}
