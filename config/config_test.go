package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "roseasm.toml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write roseasm.toml: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[blob]
capacity-bytes = 4096
`)
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Assembler.MinAlign != 8 {
		t.Fatalf("expected default min-align 8, got %d", c.Assembler.MinAlign)
	}
	if c.Assembler.CatalogueVersion != defaultCatalogueVersion {
		t.Fatalf("expected default catalogue version, got %d", c.Assembler.CatalogueVersion)
	}
	if c.Blob.CapacityBytes != 4096 {
		t.Fatalf("expected capacity-bytes 4096, got %d", c.Blob.CapacityBytes)
	}
}

func TestLoadExplicitValues(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[assembler]
min-align = 16
catalogue-version = 3

[store]
path = "dedup.sqlite"
`)
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Assembler.MinAlign != 16 {
		t.Fatalf("expected min-align 16, got %d", c.Assembler.MinAlign)
	}
	if c.Assembler.CatalogueVersion != 3 {
		t.Fatalf("expected catalogue-version 3, got %d", c.Assembler.CatalogueVersion)
	}
	if c.Store.Path != "dedup.sqlite" {
		t.Fatalf("expected store path, got %q", c.Store.Path)
	}
}

func TestFindAndLoadWalksUpward(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "")
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	c, err := FindAndLoad(sub)
	if err != nil {
		t.Fatalf("find and load: %v", err)
	}
	if c == nil {
		t.Fatalf("expected to find roseasm.toml above %s", sub)
	}
	want, err := filepath.Abs(root)
	if err != nil {
		t.Fatalf("abs: %v", err)
	}
	if c.Dir != want {
		t.Fatalf("expected dir %s, got %s", want, c.Dir)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	c, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != nil {
		t.Fatalf("expected nil config when no roseasm.toml exists")
	}
}

func TestMissingFile(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatalf("expected error loading from a directory with no roseasm.toml")
	}
}
