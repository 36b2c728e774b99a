// Package canon implements program-level hashing and equivalence: folding
// each instruction's structural hash into a whole program digest, and
// comparing two programs instruction-by-instruction under their own
// layouts so pointer identity never leaks into the result.
//
// Grounded on compiler/hash's NormalizeMethod+Serialize+sha256 pipeline:
// that package turns an AST into a canonical byte form and hashes it to
// deduplicate methods across versions; this package does the same job
// one level down, over assembled Rose programs, reusing ir.Node's own
// Hash/Equiv instead of a separate serializer.
package canon

import (
	"github.com/redflare/roseasm/asm"
	"github.com/redflare/roseasm/ir"
	"github.com/redflare/roseasm/program"
)

// ProgramHash folds every instruction's Hash(), in program order, into a
// single digest via ir.HashCombine. Two equivalent programs always
// produce the same ProgramHash: Hash excludes target fields, and the
// fold order is positional, not pointer-dependent, so retargeting an
// instruction to an equivalent but distinct node never changes the
// digest.
func ProgramHash(p *program.Program) uint64 {
	var acc uint64
	for _, n := range p.Nodes() {
		acc = ir.HashCombine(acc, n.Hash())
	}
	return acc
}

// Equivalent reports whether p and q are the same program up to target
// identity: same instruction count, and each pair of instructions at the
// same position is ir.Node.Equiv under p's and q's own layouts. Layout is
// computed fresh for both programs and never mutates them or appends to
// any blob, so Equivalent is safe to call before either program is
// assembled for real.
func Equivalent(p, q *program.Program) bool {
	if p.Len() != q.Len() {
		return false
	}
	pOffsets, _, err := asm.Layout(p, asm.Options{})
	if err != nil {
		return false
	}
	qOffsets, _, err := asm.Layout(q, asm.Options{})
	if err != nil {
		return false
	}
	pNodes, qNodes := p.Nodes(), q.Nodes()
	for i := range pNodes {
		if !pNodes[i].Equiv(qNodes[i], pOffsets, qOffsets) {
			return false
		}
	}
	return true
}
