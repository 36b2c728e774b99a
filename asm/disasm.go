package asm

import (
	"fmt"
	"strings"

	"github.com/redflare/roseasm/ir"
)

// DisassembleInstruction renders the single record at byte offset pos in
// bc as a human-readable line and returns the offset of the next record.
// An unknown opcode or a truncated record is returned as an error; this
// never panics on malformed input, matching the debug-tooling posture of
// vm/bytecode.go's DisassembleInstruction (callers there trust well-formed
// bytecode; here we additionally guard against a corrupt stream since
// this sees externally-assembled buffers too).
func DisassembleInstruction(bc []byte, pos int) (string, int, error) {
	if pos >= len(bc) {
		return "", pos, fmt.Errorf("asm: disassemble: offset %d past end of buffer (len %d)", pos, len(bc))
	}
	op := ir.OpCode(bc[pos])
	length, ok := ir.ByteLengthOf(op)
	if !ok {
		return "", pos, fmt.Errorf("asm: disassemble: unknown opcode %d at offset %d", bc[pos], pos)
	}
	if pos+length > len(bc) {
		return "", pos, fmt.Errorf("asm: disassemble: %s at %d needs %d bytes, buffer has %d", op, pos, length, len(bc)-pos)
	}
	line := fmt.Sprintf("%06d  %-20s % x", pos, op.Name(), bc[pos+1:pos+length])
	next := pos + length
	if op != ir.OpEnd {
		next = alignUp(next, ir.InstrMinAlign)
	}
	return line, next, nil
}

// Disassemble renders every record in bc, one per line, stopping at the
// first END record or at the end of the buffer.
func Disassemble(bc []byte) string {
	var b strings.Builder
	pos := 0
	for pos < len(bc) {
		line, next, err := DisassembleInstruction(bc, pos)
		if err != nil {
			fmt.Fprintf(&b, "%06d  <error: %v>\n", pos, err)
			break
		}
		b.WriteString(line)
		b.WriteByte('\n')
		if ir.OpCode(bc[pos]) == ir.OpEnd {
			break
		}
		pos = next
	}
	return b.String()
}
