package ir

// resolve looks up a target's assigned offset. A nil target (only valid for
// instructions with no target field) resolves to itself as "no offset";
// callers never compare targets for opcodes that don't have one.
func resolve(offsets OffsetMap, n *Node) (uint32, bool) {
	if n == nil {
		return 0, false
	}
	off, ok := offsets[n]
	return off, ok
}

// Equiv reports whether n and other are equivalent: same opcode, identical
// non-target fields, and every target field resolves to the same offset in
// their respective (already laid-out) programs. This is a non-structural
// equivalence relation: two IR instructions with different target
// pointers can still be equivalent if those pointers resolve to the same
// byte offset.
//
// Emission-state fields (the offsets a SPARSE_ITER_BEGIN records for its
// own blob payload once emitted) are never consulted here: Equiv is
// defined purely over pre-emission IR shape plus the caller-supplied
// offset maps.
func (n *Node) Equiv(other *Node, selfOffsets, otherOffsets OffsetMap) bool {
	if n.Opcode() != other.Opcode() {
		return false
	}

	sameTarget := func(a, b *Node) bool {
		aOff, aOk := resolve(selfOffsets, a)
		bOff, bOk := resolve(otherOffsets, b)
		if aOk != bOk {
			return false
		}
		if !aOk {
			return a == nil && b == nil
		}
		return aOff == bOff
	}

	switch a := n.Instr.(type) {
	case CatchUp, CatchUpMpv, SomFromReport, SomZero, EnginesEod, SuffixesEod,
		MatcherEod, CheckNotHandled, End:
		return true

	case *CheckOnlyEod:
		b := other.Instr.(*CheckOnlyEod)
		return sameTarget(a.Target, b.Target)

	case *CheckLookaround:
		b := other.Instr.(*CheckLookaround)
		return sameTarget(a.Target, b.Target)

	case *CheckBounds:
		b := other.Instr.(*CheckBounds)
		return a.Min == b.Min && a.Max == b.Max && sameTarget(a.Target, b.Target)

	case *CheckLitEarly:
		b := other.Instr.(*CheckLitEarly)
		return a.MinLen == b.MinLen && sameTarget(a.Target, b.Target)

	case *CheckMinLength:
		b := other.Instr.(*CheckMinLength)
		return a.MinLen == b.MinLen && a.EndAdj == b.EndAdj && sameTarget(a.Target, b.Target)

	case *CheckByte:
		b := other.Instr.(*CheckByte)
		return a.Byte == b.Byte && a.Offset == b.Offset && sameTarget(a.Target, b.Target)

	case *CheckInfix:
		b := other.Instr.(*CheckInfix)
		return a.QueueID == b.QueueID && a.Lag == b.Lag && sameTarget(a.Target, b.Target)

	case *CheckPrefix:
		b := other.Instr.(*CheckPrefix)
		return a.QueueID == b.QueueID && a.Lag == b.Lag && sameTarget(a.Target, b.Target)

	case *CheckMask:
		b := other.Instr.(*CheckMask)
		return a.And == b.And && a.Cmp == b.Cmp && a.NegMask == b.NegMask &&
			a.Offset == b.Offset && sameTarget(a.Target, b.Target)

	case *CheckMask32:
		b := other.Instr.(*CheckMask32)
		return a.And == b.And && a.Cmp == b.Cmp && a.NegMask == b.NegMask &&
			a.Offset == b.Offset && sameTarget(a.Target, b.Target)

	case *CheckGroups:
		b := other.Instr.(*CheckGroups)
		return a.Groups == b.Groups && sameTarget(a.Target, b.Target)

	case *CheckExhausted:
		b := other.Instr.(*CheckExhausted)
		return a.EKey == b.EKey && sameTarget(a.Target, b.Target)

	case *CheckState:
		b := other.Instr.(*CheckState)
		return a.Index == b.Index && sameTarget(a.Target, b.Target)

	case *SetState:
		b := other.Instr.(*SetState)
		return a.Index == b.Index

	case *SetGroups:
		b := other.Instr.(*SetGroups)
		return a.Groups == b.Groups

	case *SquashGroups:
		b := other.Instr.(*SquashGroups)
		return a.Groups == b.Groups

	case *AnchoredDelay:
		b := other.Instr.(*AnchoredDelay)
		return a.QueueID == b.QueueID && a.Lag == b.Lag

	case *PushDelayed:
		b := other.Instr.(*PushDelayed)
		return a.QueueID == b.QueueID && a.Delay == b.Delay

	case *RecordAnchored:
		b := other.Instr.(*RecordAnchored)
		return a.ID == b.ID

	case *SomAdjust:
		b := other.Instr.(*SomAdjust)
		return a.Distance == b.Distance

	case *SomLeftfix:
		b := other.Instr.(*SomLeftfix)
		return a.QueueID == b.QueueID && a.Lag == b.Lag

	case *TriggerInfix:
		b := other.Instr.(*TriggerInfix)
		return a.QueueID == b.QueueID && a.EventID == b.EventID && a.Cancel == b.Cancel

	case *TriggerSuffix:
		b := other.Instr.(*TriggerSuffix)
		return a.QueueID == b.QueueID && a.EventID == b.EventID

	case *Dedupe:
		b := other.Instr.(*Dedupe)
		return a.DKey == b.DKey && a.Offset == b.Offset && sameTarget(a.Target, b.Target)

	case *DedupeSom:
		b := other.Instr.(*DedupeSom)
		return a.DKey == b.DKey && a.Offset == b.Offset && sameTarget(a.Target, b.Target)

	case *DedupeAndReport:
		b := other.Instr.(*DedupeAndReport)
		return a.DKey == b.DKey && a.OnMatch == b.OnMatch &&
			a.OffsetAdjust == b.OffsetAdjust && sameTarget(a.Target, b.Target)

	case *ReportChain:
		b := other.Instr.(*ReportChain)
		return a.EventID == b.EventID

	case *Report:
		b := other.Instr.(*Report)
		return a.OnMatch == b.OnMatch && a.OffsetAdjust == b.OffsetAdjust

	case *ReportExhaust:
		b := other.Instr.(*ReportExhaust)
		return a.OnMatch == b.OnMatch && a.OffsetAdjust == b.OffsetAdjust && a.EKey == b.EKey

	case *ReportSom:
		b := other.Instr.(*ReportSom)
		return a.OnMatch == b.OnMatch && a.OffsetAdjust == b.OffsetAdjust

	case *ReportSomInt:
		b := other.Instr.(*ReportSomInt)
		return a.OnMatch == b.OnMatch && a.OffsetAdjust == b.OffsetAdjust

	case *ReportSomAware:
		b := other.Instr.(*ReportSomAware)
		return a.OnMatch == b.OnMatch && a.OffsetAdjust == b.OffsetAdjust && a.SomDistance == b.SomDistance

	case *ReportSomExhaust:
		b := other.Instr.(*ReportSomExhaust)
		return a.OnMatch == b.OnMatch && a.OffsetAdjust == b.OffsetAdjust && a.EKey == b.EKey

	case *FinalReport:
		b := other.Instr.(*FinalReport)
		return a.OnMatch == b.OnMatch

	case *SparseIterBegin:
		b := other.Instr.(*SparseIterBegin)
		if a.NumKeys != b.NumKeys || len(a.Jump) != len(b.Jump) {
			return false
		}
		if !sameTarget(a.Fallback, b.Fallback) {
			return false
		}
		for i := range a.Jump {
			if a.Jump[i].KeyIndex != b.Jump[i].KeyIndex {
				return false
			}
			if !sameTarget(a.Jump[i].Target, b.Jump[i].Target) {
				return false
			}
		}
		return true

	case *SparseIterNext:
		b := other.Instr.(*SparseIterNext)
		return sameTarget(a.Begin, b.Begin) && sameTarget(a.Fallback, b.Fallback)

	case *SparseIterAny:
		b := other.Instr.(*SparseIterAny)
		return a.NumKeys == b.NumKeys && sameTarget(a.Target, b.Target)

	default:
		panic("ir: Equiv: unhandled instruction type")
	}
}
