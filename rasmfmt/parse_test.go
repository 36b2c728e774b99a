package rasmfmt

import (
	"testing"

	"github.com/redflare/roseasm/ir"
)

func TestParseMinimalProgram(t *testing.T) {
	p, err := ParseProgram("")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Len() != 1 || !p.Empty() {
		t.Fatalf("expected an empty program (just END), got len=%d", p.Len())
	}
}

func TestParseForwardBranchToEnd(t *testing.T) {
	p, err := ParseProgram(`CHECK_BOUNDS min=10 max=100 target=END`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Len() != 2 {
		t.Fatalf("expected 2 instructions, got %d", p.Len())
	}
	cb, ok := p.At(0).Instr.(*ir.CheckBounds)
	if !ok {
		t.Fatalf("expected CHECK_BOUNDS at index 0, got %T", p.At(0).Instr)
	}
	if cb.Min != 10 || cb.Max != 100 || cb.Target != p.End() {
		t.Fatalf("unexpected CHECK_BOUNDS fields: %+v", cb)
	}
}

func TestParseLabelForwardReference(t *testing.T) {
	src := `
CHECK_BYTE byte=65 offset=0 target=skip
REPORT on_match=1 offset_adjust=0
skip:
FINAL_REPORT on_match=2
`
	p, err := ParseProgram(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Len() != 4 {
		t.Fatalf("expected 4 instructions (3 + END), got %d", p.Len())
	}
	cb := p.At(0).Instr.(*ir.CheckByte)
	if cb.Target != p.At(2) {
		t.Fatalf("expected CHECK_BYTE to target the FINAL_REPORT node, got a different node")
	}
	if _, ok := p.At(2).Instr.(*ir.FinalReport); !ok {
		t.Fatalf("expected FINAL_REPORT at index 2, got %T", p.At(2).Instr)
	}
}

func TestParseSparseIterSharing(t *testing.T) {
	src := `
begin:
SPARSE_ITER_BEGIN num_keys=16 jump=3:hit,7:hit fallback=END
hit:
REPORT on_match=9 offset_adjust=0
next:
SPARSE_ITER_NEXT begin=begin fallback=END
`
	p, err := ParseProgram(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	begin := p.At(0).Instr.(*ir.SparseIterBegin)
	if len(begin.Jump) != 2 || begin.Jump[0].KeyIndex != 3 || begin.Jump[1].KeyIndex != 7 {
		t.Fatalf("jump table not parsed correctly: %+v", begin.Jump)
	}
	if begin.Fallback != p.End() {
		t.Fatalf("expected fallback to resolve to END")
	}
	next := p.At(2).Instr.(*ir.SparseIterNext)
	if next.Begin != p.At(0) {
		t.Fatalf("expected SPARSE_ITER_NEXT to reference the BEGIN node")
	}
}

func TestParseUndefinedLabelError(t *testing.T) {
	if _, err := ParseProgram("CHECK_BOUNDS min=1 max=2 target=nowhere"); err == nil {
		t.Fatalf("expected error for undefined label")
	}
}

func TestParseSelfTargetingLabelError(t *testing.T) {
	src := `
loop:
CHECK_BYTE byte=1 offset=0 target=loop
`
	if _, err := ParseProgram(src); err == nil {
		t.Fatalf("expected error: an instruction cannot target itself")
	}
}

func TestParseUnknownOpcodeError(t *testing.T) {
	if _, err := ParseProgram("NOT_A_REAL_OPCODE foo=1"); err == nil {
		t.Fatalf("expected error for unsupported opcode")
	}
}
