// Package imagefile reads and writes whole firmware and executable images.
package imagefile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/edsrzf/mmap-go"
)

// Read maps the file at path read-only and returns a private copy of its
// contents. The mapping is released before Read returns, so the caller
// owns the buffer and the file may be replaced afterwards.
func Read(path string) ([]byte, error) {
	file, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s - %w", path, err)
	}

	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}

	// Empty files cannot be mapped.
	if info.Size() == 0 {
		return []byte{}, nil
	}

	fmap, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to map %s - %w", path, err)
	}
	defer fmap.Unmap()

	data := make([]byte, len(fmap))
	copy(data, fmap)

	return data, nil
}

// WriteFile writes data to a temporary file next to path, syncs it and
// renames it over path. A failure at any step leaves path untouched.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file for %s - %w", path, err)
	}

	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	_, err = tmp.Write(data)
	if err != nil {
		return fmt.Errorf("failed to write %s - %w", tmpPath, err)
	}

	err = tmp.Sync()
	if err != nil {
		return fmt.Errorf("failed to sync %s - %w", tmpPath, err)
	}

	err = tmp.Chmod(perm)
	if err != nil {
		return fmt.Errorf("failed to set mode of %s - %w", tmpPath, err)
	}

	err = tmp.Close()
	if err != nil {
		return fmt.Errorf("failed to close %s - %w", tmpPath, err)
	}

	err = os.Rename(tmpPath, path)
	if err != nil {
		return fmt.Errorf("failed to rename %s to %s - %w", tmpPath, path, err)
	}

	success = true

	return nil
}

// DerivedName inserts suffix between the extension-less part of path and
// its extension, so "asa924-k8.bin" with "-rooted" becomes
// "asa924-k8-rooted.bin".
func DerivedName(path string, suffix string) string {
	ext := filepath.Ext(path)

	return strings.TrimSuffix(path, ext) + suffix + ext
}

// Sibling replaces the extension of path with suffix, so "asa924-k8.bin"
// with "-vmlinuz" becomes "asa924-k8-vmlinuz".
func Sibling(path string, suffix string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + suffix
}
