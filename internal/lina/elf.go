package lina

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
)

// Symbol is a function found in an ELF symbol table.
type Symbol struct {
	Name     string
	Location uint64
	Size     uint64
}

// FindSymbol looks up a function in the static, then the dynamic, symbol
// table of an ELF image. Location is a file offset.
func FindSymbol(img []byte, name string) (Symbol, error) {
	elfFile, err := elf.NewFile(bytes.NewReader(img))
	if err != nil {
		return Symbol{}, err
	}
	defer elfFile.Close()

	text := elfFile.Section(".text")
	if text == nil {
		return Symbol{}, fmt.Errorf("elf is missing .text section")
	}

	for _, lookup := range []func() ([]elf.Symbol, error){elfFile.Symbols, elfFile.DynamicSymbols} {
		syms, err := lookup()
		if err != nil {
			if errors.Is(err, elf.ErrNoSymbols) {
				continue
			}

			return Symbol{}, err
		}

		for _, sym := range syms {
			if sym.Name != name {
				continue
			}

			if sym.Value < text.Addr || sym.Value >= text.Addr+text.Size {
				return Symbol{}, fmt.Errorf("symbol %q at 0x%x is outside .text", name, sym.Value)
			}

			// fn symbol VA - .text VA + .text offset
			return Symbol{
				Name:     sym.Name,
				Location: sym.Value - text.Addr + text.Offset,
				Size:     sym.Size,
			}, nil
		}
	}

	return Symbol{}, fmt.Errorf("failed to find symbol: %q", name)
}

// AvailableRegion returns how many bytes may be overwritten at off. When
// img is an ELF whose symbol table places name at off, that is the
// symbol's size. Otherwise it is the distance to the end of img.
func AvailableRegion(img []byte, off int, name string) (int, string) {
	if off < 0 || off > len(img) {
		return 0, "out of bounds"
	}

	sym, err := FindSymbol(img, name)
	if err == nil && sym.Size > 0 && sym.Location == uint64(off) {
		return int(sym.Size), "elf symbol size"
	}

	return len(img) - off, "end of file"
}
