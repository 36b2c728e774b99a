package asm

import (
	"bytes"
	"testing"

	"github.com/redflare/roseasm/blob"
	"github.com/redflare/roseasm/ir"
	"github.com/redflare/roseasm/program"
)

// A minimal program assembles to exactly one END record.
func TestAssembleEmptyProgram(t *testing.T) {
	p := program.New()
	res, err := Assemble(p, blob.New(0), Options{})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if res.TotalLength != ir.InstrMinAlign {
		t.Fatalf("expected total length %d, got %d", ir.InstrMinAlign, res.TotalLength)
	}
	want := make([]byte, ir.InstrMinAlign)
	want[0] = byte(ir.OpEnd)
	if !bytes.Equal(res.Bytes, want) {
		t.Fatalf("expected END record padded with zeros, got % x", res.Bytes)
	}
	if off, ok := res.Offsets[p.End()]; !ok || off != 0 {
		t.Fatalf("expected END at offset 0, got %d (ok=%v)", off, ok)
	}
}

// A REPORT record assembles with its fields verbatim.
func TestAssembleReportRecord(t *testing.T) {
	p := program.New()
	r := ir.NewNode(&ir.Report{OnMatch: 42, OffsetAdjust: -1})
	if err := p.AddBeforeEnd(r); err != nil {
		t.Fatalf("add report: %v", err)
	}
	res, err := Assemble(p, blob.New(0), Options{})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	rOff := res.Offsets[r]
	if rOff != 0 {
		t.Fatalf("expected report at offset 0, got %d", rOff)
	}
	if res.Bytes[rOff] != byte(ir.OpReport) {
		t.Fatalf("expected opcode byte OpReport, got %d", res.Bytes[rOff])
	}
	gotOnMatch := uint32(res.Bytes[rOff+1]) | uint32(res.Bytes[rOff+2])<<8 |
		uint32(res.Bytes[rOff+3])<<16 | uint32(res.Bytes[rOff+4])<<24
	if gotOnMatch != 42 {
		t.Fatalf("expected onmatch=42, got %d", gotOnMatch)
	}
	gotAdjust := int32(res.Bytes[rOff+5]) | int32(res.Bytes[rOff+6])<<8 |
		int32(res.Bytes[rOff+7])<<16 | int32(res.Bytes[rOff+8])<<24
	if gotAdjust != -1 {
		t.Fatalf("expected offset_adjust=-1, got %d", gotAdjust)
	}

	endOff := res.Offsets[p.End()]
	if endOff%uint32(ir.InstrMinAlign) != 0 {
		t.Fatalf("expected END offset aligned to %d, got %d", ir.InstrMinAlign, endOff)
	}
}

// CHECK_BOUNDS targeting END resolves to END's actual offset.
func TestAssembleCheckBoundsTarget(t *testing.T) {
	p := program.New()
	cb := ir.NewNode(&ir.CheckBounds{Min: 10, Max: 100, Target: p.End()})
	if err := p.AddBeforeEnd(cb); err != nil {
		t.Fatalf("add check_bounds: %v", err)
	}
	res, err := Assemble(p, blob.New(0), Options{})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	cbOff := res.Offsets[cb]
	endOff := res.Offsets[p.End()]
	gotTarget := uint32(res.Bytes[cbOff+9]) | uint32(res.Bytes[cbOff+10])<<8 |
		uint32(res.Bytes[cbOff+11])<<16 | uint32(res.Bytes[cbOff+12])<<24
	if gotTarget != endOff {
		t.Fatalf("expected resolved target %d, got %d", endOff, gotTarget)
	}
}

// Two independently-built equivalent programs lay out and assemble to
// identical bytecode, despite having entirely distinct *ir.Node pointers.
func TestAssembleEquivalentProgramsMatch(t *testing.T) {
	buildOne := func() *program.Program {
		p := program.New()
		n := ir.NewNode(&ir.CheckOnlyEod{Target: p.End()})
		if err := p.AddBeforeEnd(n); err != nil {
			t.Fatalf("add: %v", err)
		}
		return p
	}
	a := buildOne()
	b := buildOne()

	resA, err := Assemble(a, blob.New(0), Options{})
	if err != nil {
		t.Fatalf("assemble a: %v", err)
	}
	resB, err := Assemble(b, blob.New(0), Options{})
	if err != nil {
		t.Fatalf("assemble b: %v", err)
	}
	if !bytes.Equal(resA.Bytes, resB.Bytes) {
		t.Fatalf("expected equivalent programs to assemble identically:\na=% x\nb=% x", resA.Bytes, resB.Bytes)
	}
}

// A SPARSE_ITER_BEGIN/NEXT pair shares one blob payload through a real
// Assemble call.
func TestAssembleSparseIterSharing(t *testing.T) {
	p := program.New()
	target := ir.NewNode(&ir.Report{OnMatch: 7})
	if err := p.AddBeforeEnd(target); err != nil {
		t.Fatalf("add target: %v", err)
	}
	begin := ir.NewNode(&ir.SparseIterBegin{
		NumKeys:  4,
		Jump:     []ir.SparseEdge{{KeyIndex: 2, Target: target}},
		Fallback: p.End(),
	})
	if err := p.AddBeforeEnd(begin); err != nil {
		t.Fatalf("add begin: %v", err)
	}
	next := ir.NewNode(&ir.SparseIterNext{Begin: begin, Fallback: p.End()})
	if err := p.AddBeforeEnd(next); err != nil {
		t.Fatalf("add next: %v", err)
	}

	blb := blob.New(0)
	res, err := Assemble(p, blb, Options{})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	beginOff := res.Offsets[begin]
	nextOff := res.Offsets[next]
	beginIterOff := res.Bytes[beginOff+5 : beginOff+9]
	beginJumpOff := res.Bytes[beginOff+9 : beginOff+13]
	nextIterOff := res.Bytes[nextOff+1 : nextOff+5]
	nextJumpOff := res.Bytes[nextOff+5 : nextOff+9]

	if !bytes.Equal(beginIterOff, nextIterOff) {
		t.Fatalf("expected NEXT to reuse BEGIN's iterator offset: begin=% x next=% x", beginIterOff, nextIterOff)
	}
	if !bytes.Equal(beginJumpOff, nextJumpOff) {
		t.Fatalf("expected NEXT to reuse BEGIN's jump-table offset: begin=% x next=% x", beginJumpOff, nextJumpOff)
	}
	if blb.Len() == 0 {
		t.Fatalf("expected blob to contain the iterator's side payload")
	}
}

// Every record's offset must be a multiple of ir.InstrMinAlign, and any gap
// introduced by alignment must be zero-padded.
func TestAssembleAlignmentAndPadding(t *testing.T) {
	p := program.New()
	// CHECK_NOT_HANDLED is a 1-byte record; following it with anything
	// forces alignment padding before the next record.
	if err := p.AddBeforeEnd(ir.NewNode(ir.CheckNotHandled{})); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := p.AddBeforeEnd(ir.NewNode(&ir.Report{OnMatch: 1})); err != nil {
		t.Fatalf("add: %v", err)
	}

	res, err := Assemble(p, blob.New(0), Options{})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	for _, n := range p.Nodes() {
		off := res.Offsets[n]
		if off%uint32(ir.InstrMinAlign) != 0 {
			t.Fatalf("instruction %s at unaligned offset %d", n.Opcode(), off)
		}
	}

	checkOff := res.Offsets[p.At(0)]
	reportOff := res.Offsets[p.At(1)]
	for i := int(checkOff) + 1; i < int(reportOff); i++ {
		if res.Bytes[i] != 0 {
			t.Fatalf("expected zero padding at byte %d, got %d", i, res.Bytes[i])
		}
	}
}

// Layout assigns offsets without touching the blob or requiring emission,
// which is what canon.Equivalent relies on to compare two programs cheaply.
func TestLayoutIsEmitFree(t *testing.T) {
	p := program.New()
	if err := p.AddBeforeEnd(ir.NewNode(&ir.Report{OnMatch: 1})); err != nil {
		t.Fatalf("add: %v", err)
	}
	offsets, total, err := Layout(p, Options{})
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if len(offsets) != p.Len() {
		t.Fatalf("expected an offset for every instruction, got %d for %d", len(offsets), p.Len())
	}
	if total%ir.InstrMinAlign != 0 {
		t.Fatalf("expected total length aligned to %d, got %d", ir.InstrMinAlign, total)
	}
}

func TestDisassembleRoundTrip(t *testing.T) {
	p := program.New()
	if err := p.AddBeforeEnd(ir.NewNode(&ir.Report{OnMatch: 42, OffsetAdjust: -1})); err != nil {
		t.Fatalf("add: %v", err)
	}
	res, err := Assemble(p, blob.New(0), Options{})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	out := Disassemble(res.Bytes)
	if !bytes.Contains([]byte(out), []byte("REPORT")) {
		t.Fatalf("expected disassembly to mention REPORT, got:\n%s", out)
	}
	if !bytes.Contains([]byte(out), []byte("END")) {
		t.Fatalf("expected disassembly to mention END, got:\n%s", out)
	}
}

// Options.MinAlign must actually change the computed layout, not just
// round-trip through config parsing.
func TestLayoutHonorsMinAlignOption(t *testing.T) {
	p := program.New()
	r := ir.NewNode(&ir.Report{OnMatch: 1})
	if err := p.AddBeforeEnd(r); err != nil {
		t.Fatalf("add: %v", err)
	}

	defaultOffsets, defaultTotal, err := Layout(p, Options{})
	if err != nil {
		t.Fatalf("layout default: %v", err)
	}

	wideOffsets, wideTotal, err := Layout(p, Options{MinAlign: 64})
	if err != nil {
		t.Fatalf("layout min-align 64: %v", err)
	}

	if defaultTotal%64 == 0 {
		t.Fatalf("test setup invalid: default total %d already 64-aligned", defaultTotal)
	}
	if wideTotal%64 != 0 {
		t.Fatalf("expected total length aligned to 64, got %d", wideTotal)
	}
	if wideOffsets[p.End()] == defaultOffsets[p.End()] {
		t.Fatalf("expected END offset to move under a wider alignment, stayed at %d", wideOffsets[p.End()])
	}
}

// Options.CatalogueVersion must actually land in the stamped Result, not
// just round-trip through config parsing.
func TestAssembleHonorsCatalogueVersionOption(t *testing.T) {
	p := program.New()
	res, err := Assemble(p, blob.New(0), Options{CatalogueVersion: 7})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if res.Stamp.CatalogueVersion != 7 {
		t.Fatalf("expected stamped catalogue version 7, got %d", res.Stamp.CatalogueVersion)
	}

	defaultRes, err := Assemble(p, blob.New(0), Options{})
	if err != nil {
		t.Fatalf("assemble default: %v", err)
	}
	if defaultRes.Stamp.CatalogueVersion != CatalogueVersion {
		t.Fatalf("expected default stamped catalogue version %d, got %d", CatalogueVersion, defaultRes.Stamp.CatalogueVersion)
	}
}
