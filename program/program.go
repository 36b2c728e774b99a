// Package program implements an owned, ordered sequence of instructions
// always terminated by a single END sentinel, with mutation operations
// that keep every cross-reference inside the program valid.
//
// Modeled on vm/bytecode.go's BytecodeBuilder/Label forward-reference
// patching, generalized from raw offsets into an owned node arena with
// pointer-identity handles.
package program

import (
	"errors"
	"fmt"

	"github.com/redflare/roseasm/ir"
)

// ErrInsertAtEnd is returned when pos is the one-past-the-last position or
// beyond: insertion must target an existing element (possibly END itself).
var ErrInsertAtEnd = errors.New("program: pos is the end iterator or past it")

// ErrConsumed is returned by any operation on a Program that has already
// been spliced into another (add_block/insert-block consume their source).
var ErrConsumed = errors.New("program: operation on a consumed program")

// ErrForeignTarget is returned when a spliced block contains a target that
// resolves to neither the block's own instructions nor the splice point's
// successor.
var ErrForeignTarget = errors.New("program: block contains a target outside the block")

// ErrReplaceEnd is returned by Replace when asked to replace the
// terminating END, which would violate the END invariant.
var ErrReplaceEnd = errors.New("program: cannot replace the terminating END")

// Program is an owned, ordered list of *ir.Node, always ending in an END
// instruction.
type Program struct {
	nodes    []*ir.Node
	consumed bool
}

// New returns a program containing only its implicit END instruction.
func New() *Program {
	end := ir.NewNode(ir.End{})
	_ = end.Claim()
	return &Program{nodes: []*ir.Node{end}}
}

// Len returns the number of instructions, including END.
func (p *Program) Len() int { return len(p.nodes) }

// Empty reports whether the program contains only its END instruction.
func (p *Program) Empty() bool { return len(p.nodes) == 1 }

// At returns the instruction at index i.
func (p *Program) At(i int) *ir.Node { return p.nodes[i] }

// End returns the program's terminating END instruction.
func (p *Program) End() *ir.Node { return p.nodes[len(p.nodes)-1] }

// Nodes returns a snapshot of the program's instructions in order. The
// backing array is a copy; mutating it does not affect the program.
func (p *Program) Nodes() []*ir.Node {
	out := make([]*ir.Node, len(p.nodes))
	copy(out, p.nodes)
	return out
}

// Reversed returns a snapshot of the program's instructions in reverse
// order.
func (p *Program) Reversed() []*ir.Node {
	out := make([]*ir.Node, len(p.nodes))
	for i, n := range p.nodes {
		out[len(p.nodes)-1-i] = n
	}
	return out
}

func (p *Program) contains(n *ir.Node) bool {
	for _, x := range p.nodes {
		if x == n {
			return true
		}
	}
	return false
}

// validateTargets requires every target of n to already be present in p.
func (p *Program) validateTargets(n *ir.Node) error {
	for _, t := range n.Targets() {
		if !p.contains(t) {
			return fmt.Errorf("program: %s instruction targets a node outside the program", n.Opcode())
		}
	}
	return nil
}

// InsertBefore inserts n before the instruction currently at pos. pos must
// name an existing element — it may be the END's own index, which is how
// AddBeforeEnd is implemented — but not the one-past-the-last position.
// n must not already belong to a program, and every target it carries
// must already resolve inside this program.
func (p *Program) InsertBefore(pos int, n *ir.Node) error {
	if p.consumed {
		return ErrConsumed
	}
	if pos < 0 || pos > len(p.nodes)-1 {
		return ErrInsertAtEnd
	}
	if err := n.Claim(); err != nil {
		return err
	}
	if err := p.validateTargets(n); err != nil {
		n.Release()
		return err
	}
	p.nodes = append(p.nodes[:pos:pos], append([]*ir.Node{n}, p.nodes[pos:]...)...)
	return nil
}

// AddBeforeEnd inserts n immediately before the terminating END. Shorthand
// for InsertBefore(end, n).
func (p *Program) AddBeforeEnd(n *ir.Node) error {
	if p.consumed {
		return ErrConsumed
	}
	return p.InsertBefore(len(p.nodes)-1, n)
}

// InsertBlockBefore splices block into p before pos, dropping block's
// trailing END. Every target inside block that pointed at block's own END
// is rewritten to point at the instruction currently at pos (the
// successor); every other target inside block must already be internal to
// block. block is consumed by a successful call.
func (p *Program) InsertBlockBefore(pos int, block *Program) error {
	if p.consumed {
		return ErrConsumed
	}
	if block.consumed {
		return ErrConsumed
	}
	if block == p {
		return errors.New("program: cannot splice a program into itself")
	}
	if pos < 0 || pos > len(p.nodes)-1 {
		return ErrInsertAtEnd
	}

	blockEnd := block.nodes[len(block.nodes)-1]
	body := block.nodes[:len(block.nodes)-1]
	successor := p.nodes[pos]

	for _, bn := range body {
		bn.RewriteTarget(blockEnd, successor)
	}

	bodySet := make(map[*ir.Node]bool, len(body))
	for _, bn := range body {
		bodySet[bn] = true
	}
	for _, bn := range body {
		for _, t := range bn.Targets() {
			if t == successor || bodySet[t] {
				continue
			}
			return ErrForeignTarget
		}
	}

	for _, bn := range body {
		bn.Release()
		if err := bn.Claim(); err != nil {
			return err
		}
	}
	blockEnd.Release()

	rest := append([]*ir.Node(nil), body...)
	p.nodes = append(p.nodes[:pos:pos], append(rest, p.nodes[pos:]...)...)

	block.nodes = nil
	block.consumed = true
	return nil
}

// AddBeforeEndBlock splices block in immediately before the terminating
// END.
func (p *Program) AddBeforeEndBlock(block *Program) error {
	if p.consumed {
		return ErrConsumed
	}
	return p.InsertBlockBefore(len(p.nodes)-1, block)
}

// AddBlock appends block, replacing p's current END. Every target in p
// that pointed at the old END is rewritten to point at block's first
// instruction; block's own END becomes p's new terminator. block is
// consumed by a successful call.
func (p *Program) AddBlock(block *Program) error {
	if p.consumed {
		return ErrConsumed
	}
	if block.consumed {
		return ErrConsumed
	}
	if block == p {
		return errors.New("program: cannot append a program to itself")
	}
	if len(block.nodes) == 0 {
		return errors.New("program: empty block")
	}

	oldEnd := p.End()
	incoming := block.nodes
	first := incoming[0]

	for _, pn := range p.nodes {
		pn.RewriteTarget(oldEnd, first)
	}
	oldEnd.Release()

	for _, bn := range incoming {
		bn.Release()
		if err := bn.Claim(); err != nil {
			return err
		}
	}

	p.nodes = append(p.nodes[:len(p.nodes)-1:len(p.nodes)-1], incoming...)

	block.nodes = nil
	block.consumed = true
	return nil
}

// Replace swaps the instruction at pos for n, rewriting every target in
// the program that pointed at the old instruction to point at n instead.
// Replacing the terminating END is refused, preserving the END invariant.
func (p *Program) Replace(pos int, n *ir.Node) error {
	if p.consumed {
		return ErrConsumed
	}
	if pos < 0 || pos >= len(p.nodes) {
		return fmt.Errorf("program: index %d out of range", pos)
	}
	if pos == len(p.nodes)-1 {
		return ErrReplaceEnd
	}
	old := p.nodes[pos]
	if err := n.Claim(); err != nil {
		return err
	}
	if err := p.validateTargets(n); err != nil {
		n.Release()
		return err
	}

	p.nodes[pos] = n
	for _, pn := range p.nodes {
		pn.RewriteTarget(old, n)
	}
	old.Release()
	return nil
}
