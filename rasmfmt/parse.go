// Package rasmfmt implements a small, line-based textual assembly notation
// used by the roseasm CLI and by asm's txtar test fixtures to build
// an *ir.Node program without a real Rose graph.
//
// This is deliberately not the full opcode catalogue — it covers the
// checks, reports, and sparse-iterator family that exercise the hardest
// parts of the assembler. Real program graphs are built by an upstream
// compiler pass; this parser stands in for that in tests and demos.
//
// Grammar, one instruction or label per line:
//
//	# comment
//	L1:                     label bound to the NEXT instruction line
//	OPCODE key=value ...    instruction, args in any order
//
// A target-valued arg names a label defined anywhere else in the file (its
// line may come before or after the referencing line), or the literal
// "END" for the program's own terminator. Labels are resolved by building
// each referenced line's instruction on demand, in dependency order, and
// inserting it into the program at the position matching its own line
// number once every one of its own dependencies already exists — so a
// SPARSE_ITER_NEXT can name a SPARSE_ITER_BEGIN that appears earlier in the
// file, and a check can still branch to a label defined later. Only a
// genuine cycle (an instruction that is, directly or indirectly, its own
// dependency) is rejected.
package rasmfmt

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/redflare/roseasm/ir"
	"github.com/redflare/roseasm/program"
)

type sourceLine struct {
	lineNo int
	labels []string
	op     string
	args   map[string]string
}

// parseSource splits src into label declarations and instruction lines.
func parseSource(src string) ([]sourceLine, error) {
	var (
		lines      []sourceLine
		pendingLbl []string
	)
	sc := bufio.NewScanner(strings.NewReader(src))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		if strings.HasSuffix(raw, ":") && !strings.Contains(raw, " ") {
			pendingLbl = append(pendingLbl, strings.TrimSuffix(raw, ":"))
			continue
		}
		fields := strings.Fields(raw)
		args := make(map[string]string, len(fields)-1)
		for _, f := range fields[1:] {
			kv := strings.SplitN(f, "=", 2)
			if len(kv) != 2 {
				return nil, fmt.Errorf("parse: line %d: malformed arg %q", lineNo, f)
			}
			args[kv[0]] = kv[1]
		}
		lines = append(lines, sourceLine{lineNo: lineNo, labels: pendingLbl, op: fields[0], args: args})
		pendingLbl = nil
	}
	if len(pendingLbl) > 0 {
		return nil, fmt.Errorf("parse: trailing label(s) %v with no following instruction", pendingLbl)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func reqU32(args map[string]string, key string, lineNo int) (uint32, error) {
	s, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("parse: line %d: missing required arg %q", lineNo, key)
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parse: line %d: arg %q: %w", lineNo, key, err)
	}
	return uint32(v), nil
}

func optU32(args map[string]string, key string) uint32 {
	v, _ := strconv.ParseUint(args[key], 10, 32)
	return uint32(v)
}

func optI32(args map[string]string, key string) int32 {
	v, _ := strconv.ParseInt(args[key], 10, 32)
	return int32(v)
}

func optU64(args map[string]string, key string) uint64 {
	v, _ := strconv.ParseUint(args[key], 10, 64)
	return v
}

// ParseProgram parses src into a fully-linked *program.Program.
func ParseProgram(src string) (*program.Program, error) {
	lines, err := parseSource(src)
	if err != nil {
		return nil, err
	}

	labelLine := make(map[string]int, len(lines))
	for i, ln := range lines {
		for _, lbl := range ln.labels {
			labelLine[lbl] = i
		}
	}

	p := program.New()
	nodes := make([]*ir.Node, len(lines))
	building := make([]bool, len(lines))

	// order tracks, in final-array order, the file-line index each
	// already-inserted node came from. A node is always inserted at the
	// position matching how many already-inserted nodes have a smaller
	// line index, so the finished program ends up ordered by line number
	// regardless of the order instructions were actually built in.
	var order []int

	insertAt := func(lineIdx int, node *ir.Node) error {
		pos := 0
		for _, oi := range order {
			if oi < lineIdx {
				pos++
			}
		}
		if err := p.InsertBefore(pos, node); err != nil {
			return err
		}
		order = append(order[:pos:pos], append([]int{lineIdx}, order[pos:]...)...)
		return nil
	}

	var ensure func(lineIdx int) (*ir.Node, error)

	resolveTarget := func(name string, lineNo int) (*ir.Node, error) {
		if name == "END" {
			return p.End(), nil
		}
		j, ok := labelLine[name]
		if !ok {
			return nil, fmt.Errorf("parse: line %d: undefined label %q", lineNo, name)
		}
		return ensure(j)
	}

	ensure = func(lineIdx int) (*ir.Node, error) {
		if nodes[lineIdx] != nil {
			return nodes[lineIdx], nil
		}
		if building[lineIdx] {
			return nil, fmt.Errorf("parse: line %d: label cycle involving this instruction", lines[lineIdx].lineNo)
		}
		building[lineIdx] = true
		node, err := buildInstruction(lines[lineIdx], resolveTarget)
		building[lineIdx] = false
		if err != nil {
			return nil, err
		}
		if err := insertAt(lineIdx, node); err != nil {
			return nil, fmt.Errorf("parse: line %d: %w", lines[lineIdx].lineNo, err)
		}
		nodes[lineIdx] = node
		return node, nil
	}

	for i := range lines {
		if _, err := ensure(i); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func buildInstruction(ln sourceLine, target func(name string, lineNo int) (*ir.Node, error)) (*ir.Node, error) {
	tgt := func(key string) (*ir.Node, error) {
		name, ok := ln.args[key]
		if !ok {
			return nil, fmt.Errorf("parse: line %d: missing required target arg %q", ln.lineNo, key)
		}
		return target(name, ln.lineNo)
	}

	switch ln.op {
	case "CATCH_UP":
		return ir.NewNode(ir.CatchUp{}), nil
	case "CATCH_UP_MPV":
		return ir.NewNode(ir.CatchUpMpv{}), nil
	case "SOM_ZERO":
		return ir.NewNode(ir.SomZero{}), nil
	case "SOM_FROM_REPORT":
		return ir.NewNode(ir.SomFromReport{}), nil

	case "CHECK_ONLY_EOD":
		t, err := tgt("target")
		if err != nil {
			return nil, err
		}
		return ir.NewNode(&ir.CheckOnlyEod{Target: t}), nil

	case "CHECK_BOUNDS":
		t, err := tgt("target")
		if err != nil {
			return nil, err
		}
		min, err := reqU32(ln.args, "min", ln.lineNo)
		if err != nil {
			return nil, err
		}
		max, err := reqU32(ln.args, "max", ln.lineNo)
		if err != nil {
			return nil, err
		}
		return ir.NewNode(&ir.CheckBounds{Min: min, Max: max, Target: t}), nil

	case "CHECK_BYTE":
		t, err := tgt("target")
		if err != nil {
			return nil, err
		}
		return ir.NewNode(&ir.CheckByte{
			Byte:   byte(optU32(ln.args, "byte")),
			Offset: optI32(ln.args, "offset"),
			Target: t,
		}), nil

	case "CHECK_GROUPS":
		t, err := tgt("target")
		if err != nil {
			return nil, err
		}
		return ir.NewNode(&ir.CheckGroups{Groups: optU64(ln.args, "groups"), Target: t}), nil

	case "CHECK_EXHAUSTED":
		t, err := tgt("target")
		if err != nil {
			return nil, err
		}
		ekey, err := reqU32(ln.args, "ekey", ln.lineNo)
		if err != nil {
			return nil, err
		}
		return ir.NewNode(&ir.CheckExhausted{EKey: ekey, Target: t}), nil

	case "SET_STATE":
		idx, err := reqU32(ln.args, "index", ln.lineNo)
		if err != nil {
			return nil, err
		}
		return ir.NewNode(&ir.SetState{Index: idx}), nil

	case "SET_GROUPS":
		return ir.NewNode(&ir.SetGroups{Groups: optU64(ln.args, "groups")}), nil

	case "DEDUPE":
		t, err := tgt("target")
		if err != nil {
			return nil, err
		}
		dkey, err := reqU32(ln.args, "dkey", ln.lineNo)
		if err != nil {
			return nil, err
		}
		return ir.NewNode(&ir.Dedupe{DKey: dkey, Offset: optI32(ln.args, "offset"), Target: t}), nil

	case "DEDUPE_AND_REPORT":
		t, err := tgt("target")
		if err != nil {
			return nil, err
		}
		dkey, err := reqU32(ln.args, "dkey", ln.lineNo)
		if err != nil {
			return nil, err
		}
		onMatch, err := reqU32(ln.args, "on_match", ln.lineNo)
		if err != nil {
			return nil, err
		}
		return ir.NewNode(&ir.DedupeAndReport{
			DKey: dkey, OnMatch: onMatch, OffsetAdjust: optI32(ln.args, "offset_adjust"), Target: t,
		}), nil

	case "REPORT":
		onMatch, err := reqU32(ln.args, "on_match", ln.lineNo)
		if err != nil {
			return nil, err
		}
		return ir.NewNode(&ir.Report{OnMatch: onMatch, OffsetAdjust: optI32(ln.args, "offset_adjust")}), nil

	case "REPORT_EXHAUST":
		onMatch, err := reqU32(ln.args, "on_match", ln.lineNo)
		if err != nil {
			return nil, err
		}
		ekey, err := reqU32(ln.args, "ekey", ln.lineNo)
		if err != nil {
			return nil, err
		}
		return ir.NewNode(&ir.ReportExhaust{OnMatch: onMatch, OffsetAdjust: optI32(ln.args, "offset_adjust"), EKey: ekey}), nil

	case "REPORT_SOM":
		onMatch, err := reqU32(ln.args, "on_match", ln.lineNo)
		if err != nil {
			return nil, err
		}
		return ir.NewNode(&ir.ReportSom{OnMatch: onMatch, OffsetAdjust: optI32(ln.args, "offset_adjust")}), nil

	case "FINAL_REPORT":
		onMatch, err := reqU32(ln.args, "on_match", ln.lineNo)
		if err != nil {
			return nil, err
		}
		return ir.NewNode(&ir.FinalReport{OnMatch: onMatch}), nil

	case "SPARSE_ITER_ANY":
		t, err := tgt("target")
		if err != nil {
			return nil, err
		}
		numKeys, err := reqU32(ln.args, "num_keys", ln.lineNo)
		if err != nil {
			return nil, err
		}
		return ir.NewNode(&ir.SparseIterAny{NumKeys: numKeys, Target: t}), nil

	case "SPARSE_ITER_BEGIN":
		fb, err := tgt("fallback")
		if err != nil {
			return nil, err
		}
		numKeys, err := reqU32(ln.args, "num_keys", ln.lineNo)
		if err != nil {
			return nil, err
		}
		jump, err := parseJumpTable(ln.args["jump"], ln.lineNo, target)
		if err != nil {
			return nil, err
		}
		return ir.NewNode(&ir.SparseIterBegin{NumKeys: numKeys, Jump: jump, Fallback: fb}), nil

	case "SPARSE_ITER_NEXT":
		begin, err := tgt("begin")
		if err != nil {
			return nil, err
		}
		fb, err := tgt("fallback")
		if err != nil {
			return nil, err
		}
		return ir.NewNode(&ir.SparseIterNext{Begin: begin, Fallback: fb}), nil

	default:
		return nil, fmt.Errorf("parse: line %d: unsupported opcode %q", ln.lineNo, ln.op)
	}
}

// parseJumpTable parses a jump table spec like "3:L1,7:L2" into
// SparseEdge entries, in the order they appear in spec (not sorted).
func parseJumpTable(spec string, lineNo int, target func(string, int) (*ir.Node, error)) ([]ir.SparseEdge, error) {
	if spec == "" {
		return nil, nil
	}
	parts := strings.Split(spec, ",")
	edges := make([]ir.SparseEdge, 0, len(parts))
	for _, part := range parts {
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("parse: line %d: malformed jump entry %q", lineNo, part)
		}
		key, err := strconv.ParseUint(kv[0], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("parse: line %d: jump key %q: %w", lineNo, kv[0], err)
		}
		t, err := target(kv[1], lineNo)
		if err != nil {
			return nil, err
		}
		edges = append(edges, ir.SparseEdge{KeyIndex: uint32(key), Target: t})
	}
	return edges, nil
}
