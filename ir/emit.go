package ir

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/redflare/roseasm/blob"
)

// ByteLength returns the packed record length for n's opcode. This is
// constant per opcode.
func (n *Node) ByteLength() int {
	info, ok := catalogue[n.Opcode()]
	if !ok {
		panic(fmt.Sprintf("ir: ByteLength: opcode %s has no catalogue entry", n.Opcode()))
	}
	return info.ByteLength
}

// ByteLengthOf returns the catalogue's packed record length for op,
// without needing a Node. Used by disassembly tooling that only has raw
// bytes and an opcode byte to work from.
func ByteLengthOf(op OpCode) (int, bool) {
	info, ok := catalogue[op]
	return info.ByteLength, ok
}

// ErrDanglingTarget is returned by Emit when a target field refers to a
// Node absent from the offset map — i.e. not part of the program being
// assembled.
type ErrDanglingTarget struct {
	From OpCode
}

func (e *ErrDanglingTarget) Error() string {
	return fmt.Sprintf("ir: dangling target from %s instruction", e.From)
}

func putU8(dst []byte, v uint8) { dst[0] = v }
func putU32(dst []byte, v uint32) { binary.LittleEndian.PutUint32(dst, v) }
func putI32(dst []byte, v int32) { binary.LittleEndian.PutUint32(dst, uint32(v)) }
func putU64(dst []byte, v uint64) { binary.LittleEndian.PutUint64(dst, v) }

// target resolves t's offset via offsets, or returns ErrDanglingTarget.
func (n *Node) target(t *Node, offsets OffsetMap) (uint32, error) {
	off, ok := offsets[t]
	if !ok {
		return 0, &ErrDanglingTarget{From: n.Opcode()}
	}
	return off, nil
}

// Emit writes n's packed record into dest (which must be exactly
// n.ByteLength() bytes), resolving target fields through offsets and
// appending side payloads (sparse-iterator bit-vectors and jump tables) to
// blb.
func (n *Node) Emit(dest []byte, blb *blob.Blob, offsets OffsetMap) error {
	if len(dest) != n.ByteLength() {
		panic("ir: Emit: dest is not sized to ByteLength()")
	}
	putU8(dest, byte(n.Opcode()))

	switch v := n.Instr.(type) {
	case CatchUp, CatchUpMpv, SomFromReport, SomZero, EnginesEod, SuffixesEod,
		MatcherEod, CheckNotHandled, End:
		// opcode byte only

	case *CheckOnlyEod:
		return n.emitTarget(dest[1:], v.Target, offsets)
	case *CheckLookaround:
		return n.emitTarget(dest[1:], v.Target, offsets)

	case *CheckBounds:
		putU32(dest[1:], v.Min)
		putU32(dest[5:], v.Max)
		return n.emitTarget(dest[9:], v.Target, offsets)

	case *CheckLitEarly:
		putU32(dest[1:], v.MinLen)
		return n.emitTarget(dest[5:], v.Target, offsets)

	case *CheckMinLength:
		putU64(dest[1:], v.MinLen)
		putI32(dest[9:], v.EndAdj)
		return n.emitTarget(dest[13:], v.Target, offsets)

	case *CheckByte:
		putU8(dest[1:], v.Byte)
		putI32(dest[2:], v.Offset)
		return n.emitTarget(dest[6:], v.Target, offsets)

	case *CheckInfix:
		putU32(dest[1:], v.QueueID)
		putU32(dest[5:], v.Lag)
		return n.emitTarget(dest[9:], v.Target, offsets)

	case *CheckPrefix:
		putU32(dest[1:], v.QueueID)
		putU32(dest[5:], v.Lag)
		return n.emitTarget(dest[9:], v.Target, offsets)

	case *CheckMask:
		putU64(dest[1:], v.And)
		putU64(dest[9:], v.Cmp)
		putU64(dest[17:], v.NegMask)
		putI32(dest[25:], v.Offset)
		return n.emitTarget(dest[29:], v.Target, offsets)

	case *CheckMask32:
		copy(dest[1:33], v.And[:])
		copy(dest[33:65], v.Cmp[:])
		putU32(dest[65:], v.NegMask)
		putI32(dest[69:], v.Offset)
		return n.emitTarget(dest[73:], v.Target, offsets)

	case *CheckGroups:
		putU64(dest[1:], v.Groups)
		return n.emitTarget(dest[9:], v.Target, offsets)

	case *CheckExhausted:
		putU32(dest[1:], v.EKey)
		return n.emitTarget(dest[5:], v.Target, offsets)

	case *CheckState:
		putU32(dest[1:], v.Index)
		return n.emitTarget(dest[5:], v.Target, offsets)

	case *SetState:
		putU32(dest[1:], v.Index)

	case *SetGroups:
		putU64(dest[1:], v.Groups)

	case *SquashGroups:
		putU64(dest[1:], v.Groups)

	case *AnchoredDelay:
		putU32(dest[1:], v.QueueID)
		putU32(dest[5:], v.Lag)

	case *PushDelayed:
		putU32(dest[1:], v.QueueID)
		putU32(dest[5:], v.Delay)

	case *RecordAnchored:
		putU32(dest[1:], v.ID)

	case *SomAdjust:
		putU32(dest[1:], v.Distance)

	case *SomLeftfix:
		putU32(dest[1:], v.QueueID)
		putU32(dest[5:], v.Lag)

	case *TriggerInfix:
		putU32(dest[1:], v.QueueID)
		putU32(dest[5:], v.EventID)
		putU8(dest[9:], v.Cancel)

	case *TriggerSuffix:
		putU32(dest[1:], v.QueueID)
		putU32(dest[5:], v.EventID)

	case *Dedupe:
		putU32(dest[1:], v.DKey)
		putI32(dest[5:], v.Offset)
		return n.emitTarget(dest[9:], v.Target, offsets)

	case *DedupeSom:
		putU32(dest[1:], v.DKey)
		putI32(dest[5:], v.Offset)
		return n.emitTarget(dest[9:], v.Target, offsets)

	case *DedupeAndReport:
		putU32(dest[1:], v.DKey)
		putU32(dest[5:], v.OnMatch)
		putI32(dest[9:], v.OffsetAdjust)
		return n.emitTarget(dest[13:], v.Target, offsets)

	case *ReportChain:
		putU32(dest[1:], v.EventID)

	case *Report:
		putU32(dest[1:], v.OnMatch)
		putI32(dest[5:], v.OffsetAdjust)

	case *ReportExhaust:
		putU32(dest[1:], v.OnMatch)
		putI32(dest[5:], v.OffsetAdjust)
		putU32(dest[9:], v.EKey)

	case *ReportSom:
		putU32(dest[1:], v.OnMatch)
		putI32(dest[5:], v.OffsetAdjust)

	case *ReportSomInt:
		putU32(dest[1:], v.OnMatch)
		putI32(dest[5:], v.OffsetAdjust)

	case *ReportSomAware:
		putU32(dest[1:], v.OnMatch)
		putI32(dest[5:], v.OffsetAdjust)
		putU32(dest[9:], v.SomDistance)

	case *ReportSomExhaust:
		putU32(dest[1:], v.OnMatch)
		putI32(dest[5:], v.OffsetAdjust)
		putU32(dest[9:], v.EKey)

	case *FinalReport:
		putU32(dest[1:], v.OnMatch)

	case *SparseIterBegin:
		iterOff, jumpOff, err := v.emitPayload(blb, offsets)
		if err != nil {
			return err
		}
		putU32(dest[1:], v.NumKeys)
		putU32(dest[5:], iterOff)
		putU32(dest[9:], jumpOff)
		return n.emitTarget(dest[13:], v.Fallback, offsets)

	case *SparseIterNext:
		begin, ok := v.Begin.Instr.(*SparseIterBegin)
		if !ok || !begin.emitted {
			return fmt.Errorf("ir: SPARSE_ITER_NEXT refers to a SPARSE_ITER_BEGIN that has not been emitted yet")
		}
		putU32(dest[1:], begin.iterOffset)
		putU32(dest[5:], begin.jumpOffset)
		return n.emitTarget(dest[9:], v.Fallback, offsets)

	case *SparseIterAny:
		bitmapOff, err := blb.WriteBitmap(encodeBitmap(nil, v.NumKeys), 8)
		if err != nil {
			return err
		}
		putU32(dest[1:], v.NumKeys)
		putU32(dest[5:], bitmapOff)
		return n.emitTarget(dest[9:], v.Target, offsets)

	default:
		panic("ir: Emit: unhandled instruction type")
	}
	return nil
}

func (n *Node) emitTarget(dest []byte, t *Node, offsets OffsetMap) error {
	off, err := n.target(t, offsets)
	if err != nil {
		return err
	}
	putU32(dest, off)
	return nil
}

// emitPayload interns v's bit-vector and jump table into blb exactly once,
// recording the resulting offsets so a companion SPARSE_ITER_NEXT can
// reuse them instead of re-emitting its own copy.
func (v *SparseIterBegin) emitPayload(blb *blob.Blob, offsets OffsetMap) (iterOff, jumpOff uint32, err error) {
	if v.emitted {
		return v.iterOffset, v.jumpOffset, nil
	}

	iterOff, err = blb.WriteBitmap(encodeBitmap(v.Jump, v.NumKeys), 8)
	if err != nil {
		return 0, 0, err
	}

	sorted := append([]SparseEdge(nil), v.Jump...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].KeyIndex < sorted[j].KeyIndex })
	pairs := make([][2]uint32, len(sorted))
	for i, e := range sorted {
		off, rerr := targetOffset(e.Target, offsets)
		if rerr != nil {
			return 0, 0, rerr
		}
		pairs[i] = [2]uint32{e.KeyIndex, off}
	}
	jumpOff, err = blb.WriteU32Pairs(pairs, 8)
	if err != nil {
		return 0, 0, err
	}

	v.iterOffset, v.jumpOffset, v.emitted = iterOff, jumpOff, true
	return iterOff, jumpOff, nil
}

func targetOffset(t *Node, offsets OffsetMap) (uint32, error) {
	off, ok := offsets[t]
	if !ok {
		return 0, &ErrDanglingTarget{From: OpSparseIterBegin}
	}
	return off, nil
}

// encodeBitmap is a minimal in-package stand-in for a real multibit
// encoder: it sets one bit per key index present in jump, packed
// LSB-first. Callers that already have an encoded bit-vector can
// construct SparseIterBegin directly with a jump table whose KeyIndex
// set matches the bits they computed.
func encodeBitmap(jump []SparseEdge, numKeys uint32) []byte {
	nbytes := (numKeys + 7) / 8
	if nbytes == 0 {
		nbytes = 1
	}
	bits := make([]byte, nbytes)
	for _, e := range jump {
		if e.KeyIndex < numKeys {
			bits[e.KeyIndex/8] |= 1 << (e.KeyIndex % 8)
		}
	}
	return bits
}
