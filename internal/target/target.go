// Package target describes the firmware revisions that payloads can be
// built for, and resolves the symbols each revision exposes.
package target

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnresolved = errors.New("unresolved symbols")

// Target is one firmware revision from the target database.
//
// Addresses are offsets of routines in the main executable relative to its
// image base. MonitorAddresses are file offsets in the monitor executable
// that only 64-bit virtual appliances ship.
type Target struct {
	Firmware         string      `json:"fw" toml:"fw"`
	Version          string      `json:"version" toml:"version"`
	Arch             int         `json:"arch" toml:"arch"`
	ASLR             bool        `json:"ASLR" toml:"ASLR"`
	ImageBase        uint64      `json:"imagebase" toml:"imagebase"`
	LinaImageBase    uint64      `json:"lina_imagebase" toml:"lina_imagebase"`
	Addresses        SymbolTable `json:"addresses" toml:"addresses"`
	MonitorAddresses SymbolTable `json:"lm_addresses" toml:"lm_addresses"`
}

// Base returns the load address of the main executable. The recorded
// executable base wins over the generic one, which wins over the default
// for the target's architecture.
func (o Target) Base() uint64 {
	switch {
	case o.LinaImageBase != 0:
		return o.LinaImageBase
	case o.ImageBase != 0:
		return o.ImageBase
	default:
		return DefaultImageBase(o.Arch, o.ASLR)
	}
}

// HasRecordedBase reports whether the database carries a load address
// for the main executable rather than a guessed one.
func (o Target) HasRecordedBase() bool {
	return o.LinaImageBase != 0
}

// IsVirtual reports whether the target is a virtual appliance image.
func (o Target) IsVirtual() bool {
	return strings.HasPrefix(o.Firmware, "asav")
}

func (o Target) String() string {
	return fmt.Sprintf("%s (%d-bit, aslr: %t)", o.Firmware, o.Arch, o.ASLR)
}

// SymbolTable maps symbol names to addresses.
type SymbolTable map[string]uint64

// Alias is an ordered list of names a symbol has carried across firmware
// revisions. A single-element Alias is a plain symbol name.
type Alias []string

func (o Alias) String() string {
	return strings.Join(o, "|")
}

// Resolve returns the masked address of the first name in alias that is
// present in the table, along with that name.
func (o SymbolTable) Resolve(alias Alias, mask uint64) (uint64, string, bool) {
	for _, name := range alias {
		addr, ok := o[name]
		if ok {
			return addr & mask, name, true
		}
	}

	return 0, "", false
}

// Resolver resolves any number of aliases against a table and remembers
// every one that could not be resolved, so that all missing symbols can
// be reported at once.
type Resolver struct {
	Table   SymbolTable
	missing []string
}

func NewResolver(table SymbolTable) *Resolver {
	return &Resolver{Table: table}
}

// Resolve is SymbolTable.Resolve, with misses recorded for Err.
func (o *Resolver) Resolve(alias Alias, mask uint64) (uint64, string, bool) {
	addr, name, ok := o.Table.Resolve(alias, mask)
	if !ok {
		o.missing = append(o.missing, alias.String())
	}

	return addr, name, ok
}

// Err returns an *UnresolvedError listing every alias that failed to
// resolve so far, or nil.
func (o *Resolver) Err() error {
	if len(o.missing) == 0 {
		return nil
	}

	return &UnresolvedError{Missing: append([]string(nil), o.missing...)}
}

// UnresolvedError lists symbols that a target does not provide.
type UnresolvedError struct {
	Missing []string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnresolved, strings.Join(e.Missing, ", "))
}

func (e *UnresolvedError) Is(err error) bool {
	return err == ErrUnresolved
}

// Lookup returns a single named address from table, wrapping a miss in an
// *UnresolvedError.
func Lookup(table SymbolTable, name string) (uint64, error) {
	r := NewResolver(table)

	addr, _, _ := r.Resolve(Alias{name}, ^uint64(0))

	return addr, r.Err()
}
