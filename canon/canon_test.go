package canon

import (
	"testing"

	"github.com/redflare/roseasm/asm"
	"github.com/redflare/roseasm/blob"
	"github.com/redflare/roseasm/ir"
	"github.com/redflare/roseasm/program"
)

// Two independently constructed programs with the same shape are
// equivalent, hash identically, and assemble to identical bytes.
func TestEquivalenceUnderDifferentPointers(t *testing.T) {
	build := func() *program.Program {
		p := program.New()
		n := ir.NewNode(&ir.CheckOnlyEod{Target: p.End()})
		if err := p.AddBeforeEnd(n); err != nil {
			t.Fatalf("add_before_end: %v", err)
		}
		return p
	}

	p, q := build(), build()

	if !Equivalent(p, q) {
		t.Fatalf("expected independently built identical-shape programs to be equivalent")
	}
	if ProgramHash(p) != ProgramHash(q) {
		t.Fatalf("expected equivalent programs to hash identically")
	}

	blobP, blobQ := blob.New(0), blob.New(0)
	resP, err := asm.Assemble(p, blobP, asm.Options{})
	if err != nil {
		t.Fatalf("assemble p: %v", err)
	}
	resQ, err := asm.Assemble(q, blobQ, asm.Options{})
	if err != nil {
		t.Fatalf("assemble q: %v", err)
	}
	if string(resP.Bytes) != string(resQ.Bytes) {
		t.Fatalf("expected equivalent programs to assemble to identical bytes:\n%x\n%x", resP.Bytes, resQ.Bytes)
	}
}

// Property 3: hashing the same program twice yields the same value.
// Independence from instruction memory addresses is exercised by
// TestEquivalenceUnderDifferentPointers and TestEquivalentImpliesEqualHash.
func TestHashIsStableAcrossCalls(t *testing.T) {
	p := program.New()
	_ = p.AddBeforeEnd(ir.NewNode(&ir.Report{OnMatch: 5, OffsetAdjust: 3}))

	h1 := ProgramHash(p)
	h2 := ProgramHash(p)
	if h1 != h2 {
		t.Fatalf("expected stable hash across repeated calls, got %d and %d", h1, h2)
	}
}

// Property 4: equivalent implies equal hash (the converse need not hold).
func TestEquivalentImpliesEqualHash(t *testing.T) {
	p := program.New()
	_ = p.AddBeforeEnd(ir.NewNode(&ir.Report{OnMatch: 1, OffsetAdjust: 0}))

	q := program.New()
	_ = q.AddBeforeEnd(ir.NewNode(&ir.Report{OnMatch: 1, OffsetAdjust: 0}))

	if !Equivalent(p, q) {
		t.Fatalf("expected p and q to be equivalent")
	}
	if ProgramHash(p) != ProgramHash(q) {
		t.Fatalf("equivalence must imply equal hash")
	}
}

func TestNotEquivalentDifferentInstructionCount(t *testing.T) {
	p := program.New()
	q := program.New()
	_ = q.AddBeforeEnd(ir.NewNode(&ir.Report{OnMatch: 1}))

	if Equivalent(p, q) {
		t.Fatalf("programs with different instruction counts must not be equivalent")
	}
}

func TestNotEquivalentDifferentScalarFields(t *testing.T) {
	p := program.New()
	_ = p.AddBeforeEnd(ir.NewNode(&ir.Report{OnMatch: 1, OffsetAdjust: 0}))

	q := program.New()
	_ = q.AddBeforeEnd(ir.NewNode(&ir.Report{OnMatch: 2, OffsetAdjust: 0}))

	if Equivalent(p, q) {
		t.Fatalf("programs differing in a non-target scalar field must not be equivalent")
	}
}
