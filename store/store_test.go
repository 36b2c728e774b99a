package store

import "testing"

func TestPutLookupRoundTrip(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	e := Entry{ProgramHash: 0xdeadbeef, Bytecode: []byte{1, 2, 3}, Blob: []byte{4, 5}}
	if err := s.Put(e); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Lookup(e.ProgramHash)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if string(got.Bytecode) != string(e.Bytecode) || string(got.Blob) != string(e.Blob) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, e)
	}
}

func TestLookupNotFound(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if _, err := s.Lookup(12345); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHasAndCount(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if has, err := s.Has(1); err != nil || has {
		t.Fatalf("expected Has(1) false before insert, got %v err=%v", has, err)
	}

	if err := s.Put(Entry{ProgramHash: 1, Bytecode: []byte{9}, Blob: nil}); err != nil {
		t.Fatalf("put: %v", err)
	}

	if has, err := s.Has(1); err != nil || !has {
		t.Fatalf("expected Has(1) true after insert, got %v err=%v", has, err)
	}

	n, err := s.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected count 1, got %d", n)
	}
}

func TestPutReplacesExistingEntry(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if err := s.Put(Entry{ProgramHash: 7, Bytecode: []byte{1}}); err != nil {
		t.Fatalf("put 1: %v", err)
	}
	if err := s.Put(Entry{ProgramHash: 7, Bytecode: []byte{2}}); err != nil {
		t.Fatalf("put 2: %v", err)
	}

	got, err := s.Lookup(7)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(got.Bytecode) != 1 || got.Bytecode[0] != 2 {
		t.Fatalf("expected replaced bytecode [2], got %v", got.Bytecode)
	}

	n, err := s.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected count 1 after replace, got %d", n)
	}
}
