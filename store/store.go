// Package store persists a program dedup cache: a content-addressed
// table keyed by canon.ProgramHash, holding the already-assembled
// bytecode and blob so a multi-invocation compile driver can reuse an
// assembled program across runs instead of reassembling it.
//
// Modeled on lib/runtime/persistence.go's database/sql + SQLite shape
// (open, set a busy timeout, create-table-if-not-exists, mutex-guarded
// Save/Load), swapping the cgo sqlite3 driver for modernc.org/sqlite's
// pure-Go one and JSON-blob rows for a bytecode-blob schema.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Lookup when no entry exists for a given hash.
var ErrNotFound = errors.New("store: program not found")

// Entry is one dedup-cache row: an assembled program's bytecode and the
// auxiliary blob bytes it referenced at assembly time.
type Entry struct {
	ProgramHash uint64
	Bytecode    []byte
	Blob        []byte
}

// Store is a SQLite-backed cache of assembled programs, keyed by
// canon.ProgramHash. Safe for concurrent use.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if necessary) a dedup cache database at path. Pass
// ":memory:" for a private in-process cache with no on-disk file.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		program_hash INTEGER PRIMARY KEY,
		bytecode     BLOB NOT NULL,
		blob_offset  BLOB
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: creating table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put inserts or replaces the cache entry for e.ProgramHash. Called after a
// successful asm.Assemble, so that a later compile run with an equivalent
// program (same hash) can skip reassembly. A nil e.Blob is stored as NULL.
func (s *Store) Put(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// SQLite's INTEGER primary key is signed 64-bit; ProgramHash is an
	// unsigned fold (ir.HashCombine), so it round-trips through the same
	// bit pattern without needing a wider column type.
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO programs (program_hash, bytecode, blob_offset) VALUES (?, ?, ?)",
		int64(e.ProgramHash), e.Bytecode, e.Blob,
	)
	if err != nil {
		return fmt.Errorf("store: put %d: %w", e.ProgramHash, err)
	}
	return nil
}

// Lookup returns the cached entry for programHash, or ErrNotFound.
func (s *Store) Lookup(programHash uint64) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var bytecode, blb []byte
	err := s.db.QueryRow(
		"SELECT bytecode, blob_offset FROM programs WHERE program_hash = ?",
		int64(programHash),
	).Scan(&bytecode, &blb)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("store: lookup %d: %w", programHash, err)
	}
	return Entry{ProgramHash: programHash, Bytecode: bytecode, Blob: blb}, nil
}

// Has reports whether an entry exists for programHash, without fetching
// its payload.
func (s *Store) Has(programHash uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	err := s.db.QueryRow("SELECT 1 FROM programs WHERE program_hash = ?", int64(programHash)).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("store: has %d: %w", programHash, err)
	}
	return true, nil
}

// Count returns the number of distinct programs currently cached.
func (s *Store) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM programs").Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}
