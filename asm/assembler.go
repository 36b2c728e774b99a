// Package asm implements a two-pass assembler: it lays out a program's
// instructions as aligned, contiguous byte offsets, then emits
// the packed bytecode, resolving every target field into an offset and
// appending side payloads to the auxiliary blob.
//
// Grounded on compiler/codegen.go's builder-driven emission and
// vm/bytecode.go's BytecodeReader/Disassemble pair for the debug-dump
// side.
package asm

import (
	"fmt"
	"hash/crc32"

	"github.com/redflare/roseasm/blob"
	"github.com/redflare/roseasm/ir"
	"github.com/redflare/roseasm/program"
)

// ErrDuplicateInstruction is a structural error: the same *ir.Node appears
// twice in a program's instruction list.
var ErrDuplicateInstruction = fmt.Errorf("asm: duplicate instruction in program")

// ErrLayoutOverflow is a resource error: an instruction's record would run
// past the computed buffer size.
var ErrLayoutOverflow = fmt.Errorf("asm: layout overflow")

func alignUp(n, to int) int {
	if to <= 1 {
		return n
	}
	return (n + to - 1) / to * to
}

// Options configures layout and emission behavior. The zero value lays out
// at ir.InstrMinAlign and stamps output with CatalogueVersion, matching
// config.Default()'s assembler settings.
type Options struct {
	// MinAlign overrides ir.InstrMinAlign when nonzero. cmd/roseasm fills
	// this from roseasm.toml's [assembler] min-align as read by config.Load.
	MinAlign int

	// CatalogueVersion overrides CatalogueVersion when nonzero, recorded in
	// Result.Stamp so a mismatched runtime can refuse to load the output.
	// cmd/roseasm fills this from roseasm.toml's [assembler]
	// catalogue-version as read by config.Load.
	CatalogueVersion uint32
}

func (o Options) minAlign() int {
	if o.MinAlign != 0 {
		return o.MinAlign
	}
	return ir.InstrMinAlign
}

func (o Options) catalogueVersion() uint32 {
	if o.CatalogueVersion != 0 {
		return o.CatalogueVersion
	}
	return CatalogueVersion
}

// Layout runs pass 1: it assigns each instruction in p a byte offset equal
// to the running total aligned up to opts' alignment (ir.InstrMinAlign when
// opts.MinAlign is zero), and returns the resulting offset map together
// with the total packed size (also alignment-rounded, so the emitted
// buffer's length is itself a multiple of that alignment). It performs no
// emission and touches no blob, so it is also what canon.Equivalent uses to
// compare two programs' layouts without assembling either.
func Layout(p *program.Program, opts Options) (ir.OffsetMap, int, error) {
	align := opts.minAlign()
	nodes := p.Nodes()
	offsets := make(ir.OffsetMap, len(nodes))
	running := 0
	for _, n := range nodes {
		if _, dup := offsets[n]; dup {
			return nil, 0, ErrDuplicateInstruction
		}
		off := alignUp(running, align)
		offsets[n] = uint32(off)
		running = off + n.ByteLength()
	}
	return offsets, alignUp(running, align), nil
}

// Stamp is a lightweight version/integrity header a caller may prepend to
// an assembled program.
type Stamp struct {
	CatalogueVersion uint32
	BodyCRC32        uint32
}

// Result is the output of Assemble: the packed bytecode, its length, the
// offset map pass 1 produced (useful for tests and tooling), and an
// integrity Stamp over the body.
type Result struct {
	Bytes       []byte
	TotalLength int
	Offsets     ir.OffsetMap
	Stamp       Stamp
}

// CatalogueVersion is bumped whenever the opcode catalogue's wire layout
// changes in a way that is not backward compatible.
const CatalogueVersion = 1

// Assemble runs pass 1 (Layout) then pass 2: it allocates a zero-filled
// buffer of the computed size, walks p again, and emits each
// instruction's packed record at its assigned offset, resolving targets
// through the offset map and appending side payloads to blb. Gaps between
// records (alignment padding) are left zero. opts' CatalogueVersion (or
// CatalogueVersion when opts.CatalogueVersion is zero) is recorded in
// Result.Stamp.
func Assemble(p *program.Program, blb *blob.Blob, opts Options) (Result, error) {
	offsets, total, err := Layout(p, opts)
	if err != nil {
		return Result{}, err
	}

	buf := make([]byte, total)
	for _, n := range p.Nodes() {
		off := int(offsets[n])
		length := n.ByteLength()
		if off+length > len(buf) {
			return Result{}, fmt.Errorf("%w: instruction %s at %d needs %d bytes, buffer is %d",
				ErrLayoutOverflow, n.Opcode(), off, length, len(buf))
		}
		if err := n.Emit(buf[off:off+length], blb, offsets); err != nil {
			return Result{}, err
		}
	}

	return Result{
		Bytes:       buf,
		TotalLength: len(buf),
		Offsets:     offsets,
		Stamp: Stamp{
			CatalogueVersion: opts.catalogueVersion(),
			BodyCRC32:        crc32.ChecksumIEEE(buf),
		},
	}, nil
}
