package ir

import (
	"encoding/binary"
	"hash/fnv"
)

// Hash returns a structural hash over n's opcode and every non-target
// payload field. Target fields are deliberately excluded: two
// instructions that differ only in the identity of their targets must
// hash identically, since equivalence discriminates targets by offset,
// not by hash.
func (n *Node) Hash() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	writeU8 := func(v uint8) { h.Write([]byte{v}) }
	writeU32 := func(v uint32) { binary.LittleEndian.PutUint32(buf[:4], v); h.Write(buf[:4]) }
	writeI32 := func(v int32) { writeU32(uint32(v)) }
	writeU64 := func(v uint64) { binary.LittleEndian.PutUint64(buf[:8], v); h.Write(buf[:8]) }
	writeBytes := func(b []byte) { h.Write(b) }

	writeU8(byte(n.Opcode()))

	switch v := n.Instr.(type) {
	case CatchUp, CatchUpMpv, SomFromReport, SomZero, EnginesEod, SuffixesEod,
		MatcherEod, CheckNotHandled, End:
		// no payload

	case *CheckOnlyEod, *CheckLookaround:
		// target only, nothing else to hash

	case *CheckBounds:
		writeU32(v.Min)
		writeU32(v.Max)

	case *CheckLitEarly:
		writeU32(v.MinLen)

	case *CheckMinLength:
		writeU64(v.MinLen)
		writeI32(v.EndAdj)

	case *CheckByte:
		writeU8(v.Byte)
		writeI32(v.Offset)

	case *CheckInfix:
		writeU32(v.QueueID)
		writeU32(v.Lag)

	case *CheckPrefix:
		writeU32(v.QueueID)
		writeU32(v.Lag)

	case *CheckMask:
		writeU64(v.And)
		writeU64(v.Cmp)
		writeU64(v.NegMask)
		writeI32(v.Offset)

	case *CheckMask32:
		writeBytes(v.And[:])
		writeBytes(v.Cmp[:])
		writeU32(v.NegMask)
		writeI32(v.Offset)

	case *CheckGroups:
		writeU64(v.Groups)

	case *CheckExhausted:
		writeU32(v.EKey)

	case *CheckState:
		writeU32(v.Index)

	case *SetState:
		writeU32(v.Index)

	case *SetGroups:
		writeU64(v.Groups)

	case *SquashGroups:
		writeU64(v.Groups)

	case *AnchoredDelay:
		writeU32(v.QueueID)
		writeU32(v.Lag)

	case *PushDelayed:
		writeU32(v.QueueID)
		writeU32(v.Delay)

	case *RecordAnchored:
		writeU32(v.ID)

	case *SomAdjust:
		writeU32(v.Distance)

	case *SomLeftfix:
		writeU32(v.QueueID)
		writeU32(v.Lag)

	case *TriggerInfix:
		writeU32(v.QueueID)
		writeU32(v.EventID)
		writeU8(v.Cancel)

	case *TriggerSuffix:
		writeU32(v.QueueID)
		writeU32(v.EventID)

	case *Dedupe:
		writeU32(v.DKey)
		writeI32(v.Offset)

	case *DedupeSom:
		writeU32(v.DKey)
		writeI32(v.Offset)

	case *DedupeAndReport:
		writeU32(v.DKey)
		writeU32(v.OnMatch)
		writeI32(v.OffsetAdjust)

	case *ReportChain:
		writeU32(v.EventID)

	case *Report:
		writeU32(v.OnMatch)
		writeI32(v.OffsetAdjust)

	case *ReportExhaust:
		writeU32(v.OnMatch)
		writeI32(v.OffsetAdjust)
		writeU32(v.EKey)

	case *ReportSom:
		writeU32(v.OnMatch)
		writeI32(v.OffsetAdjust)

	case *ReportSomInt:
		writeU32(v.OnMatch)
		writeI32(v.OffsetAdjust)

	case *ReportSomAware:
		writeU32(v.OnMatch)
		writeI32(v.OffsetAdjust)
		writeU32(v.SomDistance)

	case *ReportSomExhaust:
		writeU32(v.OnMatch)
		writeI32(v.OffsetAdjust)
		writeU32(v.EKey)

	case *FinalReport:
		writeU32(v.OnMatch)

	case *SparseIterBegin:
		writeU32(v.NumKeys)
		writeU32(uint32(len(v.Jump)))
		for _, e := range v.Jump {
			writeU32(e.KeyIndex)
		}

	case *SparseIterNext:
		// no non-target payload: Begin and Fallback are both targets

	case *SparseIterAny:
		writeU32(v.NumKeys)

	default:
		panic("ir: Hash: unhandled instruction type")
	}

	return h.Sum64()
}

// hashCombine folds h2 into acc using the Boost-style mixing function, so
// that program hashing is order sensitive but not dependent on
// instruction memory addresses.
func hashCombine(acc, h2 uint64) uint64 {
	const magic = 0x9e3779b97f4a7c15 // 64-bit analogue of Boost's 0x9e3779b9
	acc ^= h2 + magic + (acc << 6) + (acc >> 2)
	return acc
}

// HashCombine is exported for use by canon.ProgramHash, which folds each
// instruction's Hash() into a running accumulator in program order.
func HashCombine(acc, h2 uint64) uint64 { return hashCombine(acc, h2) }
