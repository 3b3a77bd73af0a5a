package target

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

var ErrNoTarget = errors.New("no such target")

// DB is a read-only snapshot of a target database.
type DB struct {
	Path    string
	Targets []Target
}

type tomlDB struct {
	Target []Target `toml:"target"`
}

// Load reads a target database. The format is chosen by file extension:
// ".json" holds a top-level array of targets and ".toml" holds a
// [[target]] array.
func Load(path string) (*DB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read target database - %w", err)
	}

	db, err := Parse(filepath.Ext(path), data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse target database %q - %w", path, err)
	}

	db.Path = path

	return db, nil
}

// Parse decodes a target database in the format named by ext.
func Parse(ext string, data []byte) (*DB, error) {
	db := &DB{}

	switch strings.ToLower(ext) {
	case ".json":
		err := json.Unmarshal(data, &db.Targets)
		if err != nil {
			return nil, err
		}
	case ".toml":
		var file tomlDB
		err := toml.Unmarshal(data, &file)
		if err != nil {
			return nil, err
		}

		db.Targets = file.Target
	case ".pickle":
		return nil, errors.New("pickle databases are not supported, convert it to json first")
	default:
		return nil, fmt.Errorf("cannot decide database format from extension %q", ext)
	}

	return db, nil
}

// At returns the target at index.
func (o *DB) At(index int) (Target, error) {
	if index < 0 || index >= len(o.Targets) {
		return Target{}, fmt.Errorf("%w: bad target index %d (database has %d targets)",
			ErrNoTarget, index, len(o.Targets))
	}

	return o.Targets[index], nil
}

// Index returns the position of the first target whose firmware
// identifier is fw.
func (o *DB) Index(fw string) (int, bool) {
	for i, t := range o.Targets {
		if t.Firmware == fw {
			return i, true
		}
	}

	return -1, false
}

// Find returns the target whose firmware identifier is fw and its index.
func (o *DB) Find(fw string) (Target, int, error) {
	i, ok := o.Index(fw)
	if !ok {
		return Target{}, -1, fmt.Errorf("%w: no target matching %q", ErrNoTarget, fw)
	}

	return o.Targets[i], i, nil
}
