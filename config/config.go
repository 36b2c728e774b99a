// Package config loads roseasm.toml, the assembler's project configuration:
// the instruction alignment it assumes, the blob capacity budget to enforce,
// and the opcode-catalogue version it was built against.
//
// Modeled directly on manifest.Load/FindAndLoad: same TOML library, same
// "read, unmarshal, default, resolve path" shape, same find-upward helper
// for running roseasm from a subdirectory of a project.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the parsed contents of roseasm.toml.
type Config struct {
	Assembler AssemblerConfig `toml:"assembler"`
	Blob      BlobConfig      `toml:"blob"`
	Store     StoreConfig     `toml:"store"`

	// Dir is the directory containing roseasm.toml, set at load time.
	Dir string `toml:"-"`
}

// AssemblerConfig controls layout behavior.
type AssemblerConfig struct {
	// MinAlign overrides ir.InstrMinAlign when nonzero. Changing this from
	// the catalogue's built-in value produces bytecode no stock runtime can
	// read; it exists for cross-checking the layout algorithm against
	// alternate alignments in tests.
	MinAlign int `toml:"min-align"`

	// CatalogueVersion records which opcode catalogue version this project
	// was authored against. Assemble stamps its output with this value so
	// a mismatched runtime can refuse to load it (asm.Stamp).
	CatalogueVersion uint32 `toml:"catalogue-version"`
}

// BlobConfig bounds the auxiliary blob's capacity.
type BlobConfig struct {
	// CapacityBytes caps the auxiliary blob's size; 0 means unbounded.
	CapacityBytes int `toml:"capacity-bytes"`
}

// StoreConfig points at the dedup cache database.
type StoreConfig struct {
	// Path is the sqlite database file backing package store's dedup cache.
	// Empty disables persistent dedup (store.Open still works against an
	// in-memory database).
	Path string `toml:"path"`
}

// defaultCatalogueVersion mirrors asm.CatalogueVersion; duplicated here
// rather than imported so config has no dependency on asm (config is
// loaded before any program exists).
const defaultCatalogueVersion = 1

// Load parses roseasm.toml from dir.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, "roseasm.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: cannot read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("config: cannot resolve path %s: %w", dir, err)
	}

	if c.Assembler.MinAlign == 0 {
		c.Assembler.MinAlign = 8
	}
	if c.Assembler.CatalogueVersion == 0 {
		c.Assembler.CatalogueVersion = defaultCatalogueVersion
	}

	return &c, nil
}

// FindAndLoad walks up from startDir looking for roseasm.toml, the same
// upward-search manifest.FindAndLoad performs for maggie.toml. Returns nil,
// nil if no config file is found anywhere above startDir.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "roseasm.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// Default returns the configuration roseasm uses when no roseasm.toml is
// present: built-in alignment, unbounded blob, no persistent store.
func Default() *Config {
	return &Config{
		Assembler: AssemblerConfig{MinAlign: 8, CatalogueVersion: defaultCatalogueVersion},
	}
}
