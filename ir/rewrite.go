package ir

// RewriteTarget replaces every target field of n that currently points at
// old with new. Instructions with no target fields are no-ops. Program
// calls this on every node during a structural mutation; a target field
// is never mutated from outside Program.
func (n *Node) RewriteTarget(old, new *Node) {
	fix := func(t *Node) *Node {
		if t == old {
			return new
		}
		return t
	}

	switch v := n.Instr.(type) {
	case *CheckOnlyEod:
		v.Target = fix(v.Target)
	case *CheckLookaround:
		v.Target = fix(v.Target)
	case *CheckBounds:
		v.Target = fix(v.Target)
	case *CheckLitEarly:
		v.Target = fix(v.Target)
	case *CheckMinLength:
		v.Target = fix(v.Target)
	case *CheckByte:
		v.Target = fix(v.Target)
	case *CheckInfix:
		v.Target = fix(v.Target)
	case *CheckPrefix:
		v.Target = fix(v.Target)
	case *CheckMask:
		v.Target = fix(v.Target)
	case *CheckMask32:
		v.Target = fix(v.Target)
	case *CheckGroups:
		v.Target = fix(v.Target)
	case *CheckExhausted:
		v.Target = fix(v.Target)
	case *CheckState:
		v.Target = fix(v.Target)
	case *Dedupe:
		v.Target = fix(v.Target)
	case *DedupeSom:
		v.Target = fix(v.Target)
	case *DedupeAndReport:
		v.Target = fix(v.Target)
	case *SparseIterAny:
		v.Target = fix(v.Target)

	case *SparseIterBegin:
		v.Fallback = fix(v.Fallback)
		for i := range v.Jump {
			v.Jump[i].Target = fix(v.Jump[i].Target)
		}

	case *SparseIterNext:
		// A NEXT rewrites both its own fallback and, when the program is
		// restructured such that its companion BEGIN moves to a new Node,
		// its BEGIN reference.
		v.Fallback = fix(v.Fallback)
		v.Begin = fix(v.Begin)

	case CatchUp, CatchUpMpv, SomFromReport, SomZero, EnginesEod, SuffixesEod,
		MatcherEod, CheckNotHandled, End,
		*SetState, *SetGroups, *SquashGroups, *AnchoredDelay, *PushDelayed,
		*RecordAnchored, *SomAdjust, *SomLeftfix, *TriggerInfix, *TriggerSuffix,
		*ReportChain, *Report, *ReportExhaust, *ReportSom, *ReportSomInt,
		*ReportSomAware, *ReportSomExhaust, *FinalReport:
		// no target fields

	default:
		panic("ir: RewriteTarget: unhandled instruction type")
	}
}

// Targets returns every target Node this instruction currently refers to
// (nil entries omitted). Used by Program's target-closure checks on
// insertion and block splicing.
func (n *Node) Targets() []*Node {
	var out []*Node
	add := func(t *Node) {
		if t != nil {
			out = append(out, t)
		}
	}

	switch v := n.Instr.(type) {
	case *CheckOnlyEod:
		add(v.Target)
	case *CheckLookaround:
		add(v.Target)
	case *CheckBounds:
		add(v.Target)
	case *CheckLitEarly:
		add(v.Target)
	case *CheckMinLength:
		add(v.Target)
	case *CheckByte:
		add(v.Target)
	case *CheckInfix:
		add(v.Target)
	case *CheckPrefix:
		add(v.Target)
	case *CheckMask:
		add(v.Target)
	case *CheckMask32:
		add(v.Target)
	case *CheckGroups:
		add(v.Target)
	case *CheckExhausted:
		add(v.Target)
	case *CheckState:
		add(v.Target)
	case *Dedupe:
		add(v.Target)
	case *DedupeSom:
		add(v.Target)
	case *DedupeAndReport:
		add(v.Target)
	case *SparseIterAny:
		add(v.Target)
	case *SparseIterBegin:
		add(v.Fallback)
		for _, e := range v.Jump {
			add(e.Target)
		}
	case *SparseIterNext:
		add(v.Fallback)
		add(v.Begin)
	}
	return out
}
