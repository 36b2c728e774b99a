// Package snapshot renders a program's pre-emission IR shape as a canonical
// CBOR document: one record per instruction, with target fields translated
// to integer indices into the record list instead of *ir.Node pointers.
//
// This is purely a debugging/golden-fixture format — it is never consumed
// by the assembler and carries no wire-format guarantees beyond "decodes
// back to the same record list it was encoded from". Modeled on
// vm/dist/wire.go's cbor.CanonicalEncOptions() pattern: one shared EncMode,
// Marshal/Unmarshal pairs per document type.
package snapshot

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/redflare/roseasm/ir"
	"github.com/redflare/roseasm/program"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// noTarget is the sentinel Record.Target/Fallback/Begin value meaning "this
// instruction has no such field" — distinct from a real index, which is
// always >= 0.
const noTarget = -1

// Edge mirrors ir.SparseEdge with Target translated to a record index.
type Edge struct {
	KeyIndex uint32 `cbor:"key_index"`
	Target   int32  `cbor:"target"`
}

// Record is the canonical per-instruction document. Every opcode populates
// only the fields relevant to it; the rest carry their zero value (or
// noTarget, for Target/Fallback/Begin), matching
// compiler/hash/serialize.go's "union of all possible fields" tolerance for
// a debug/golden format rather than a packed wire format.
type Record struct {
	Op OpName `cbor:"op"`

	Target   int32 `cbor:"target"`
	Fallback int32 `cbor:"fallback"`
	Begin    int32 `cbor:"begin"`

	Min          uint32 `cbor:"min,omitempty"`
	Max          uint32 `cbor:"max,omitempty"`
	MinLen       uint64 `cbor:"min_len,omitempty"`
	EndAdj       int32  `cbor:"end_adj,omitempty"`
	Byte         byte   `cbor:"byte,omitempty"`
	Offset       int32  `cbor:"offset,omitempty"`
	QueueID      uint32 `cbor:"queue_id,omitempty"`
	Lag          uint32 `cbor:"lag,omitempty"`
	And          []byte `cbor:"and_mask,omitempty"`
	Cmp          []byte `cbor:"cmp_mask,omitempty"`
	NegMask      uint64 `cbor:"neg_mask,omitempty"`
	Groups       uint64 `cbor:"groups,omitempty"`
	EKey         uint32 `cbor:"ekey,omitempty"`
	Index        uint32 `cbor:"index,omitempty"`
	ID           uint32 `cbor:"id,omitempty"`
	Distance     uint32 `cbor:"distance,omitempty"`
	EventID      uint32 `cbor:"event_id,omitempty"`
	Cancel       byte   `cbor:"cancel,omitempty"`
	DKey         uint32 `cbor:"dkey,omitempty"`
	OnMatch      uint32 `cbor:"on_match,omitempty"`
	OffsetAdjust int32  `cbor:"offset_adjust,omitempty"`
	SomDistance  uint32 `cbor:"som_distance,omitempty"`
	NumKeys      uint32 `cbor:"num_keys,omitempty"`
	Jump         []Edge `cbor:"jump,omitempty"`
}

// OpName is ir.OpCode's catalogue name, carried as a string so the document
// is self-describing without importing ir's numeric encoding.
type OpName string

// Snapshot is the canonical document for a whole program: its instructions
// in order, target fields resolved to indices into this slice.
type Snapshot struct {
	Instructions []Record `cbor:"instructions"`
}

// Capture builds a Snapshot of p. Every *ir.Node target is translated to
// its position in p.Nodes(); a dangling target (one outside p) is a
// structural error, same diagnosis ir.Emit gives at assembly time.
func Capture(p *program.Program) (*Snapshot, error) {
	nodes := p.Nodes()
	index := make(map[*ir.Node]int32, len(nodes))
	for i, n := range nodes {
		index[n] = int32(i)
	}

	resolve := func(t *ir.Node) (int32, error) {
		if t == nil {
			return noTarget, nil
		}
		i, ok := index[t]
		if !ok {
			return 0, fmt.Errorf("snapshot: dangling target outside program")
		}
		return i, nil
	}

	recs := make([]Record, len(nodes))
	for i, n := range nodes {
		rec, err := captureOne(n, resolve)
		if err != nil {
			return nil, fmt.Errorf("snapshot: instruction %d: %w", i, err)
		}
		recs[i] = rec
	}
	return &Snapshot{Instructions: recs}, nil
}

func captureOne(n *ir.Node, resolve func(*ir.Node) (int32, error)) (Record, error) {
	rec := Record{Op: OpName(n.Opcode().Name()), Target: noTarget, Fallback: noTarget, Begin: noTarget}

	target := func(t *ir.Node) error {
		off, err := resolve(t)
		rec.Target = off
		return err
	}

	switch v := n.Instr.(type) {
	case ir.CatchUp, ir.CatchUpMpv, ir.SomFromReport, ir.SomZero, ir.EnginesEod,
		ir.SuffixesEod, ir.MatcherEod, ir.CheckNotHandled, ir.End:
		// no payload

	case *ir.CheckOnlyEod:
		return rec, target(v.Target)
	case *ir.CheckLookaround:
		return rec, target(v.Target)

	case *ir.CheckBounds:
		rec.Min, rec.Max = v.Min, v.Max
		return rec, target(v.Target)

	case *ir.CheckLitEarly:
		rec.MinLen = uint64(v.MinLen)
		return rec, target(v.Target)

	case *ir.CheckMinLength:
		rec.MinLen, rec.EndAdj = v.MinLen, v.EndAdj
		return rec, target(v.Target)

	case *ir.CheckByte:
		rec.Byte, rec.Offset = v.Byte, v.Offset
		return rec, target(v.Target)

	case *ir.CheckInfix:
		rec.QueueID, rec.Lag = v.QueueID, v.Lag
		return rec, target(v.Target)

	case *ir.CheckPrefix:
		rec.QueueID, rec.Lag = v.QueueID, v.Lag
		return rec, target(v.Target)

	case *ir.CheckMask:
		rec.And = u64le(v.And)
		rec.Cmp = u64le(v.Cmp)
		rec.NegMask, rec.Offset = v.NegMask, v.Offset
		return rec, target(v.Target)

	case *ir.CheckMask32:
		rec.And = append([]byte(nil), v.And[:]...)
		rec.Cmp = append([]byte(nil), v.Cmp[:]...)
		rec.NegMask, rec.Offset = uint64(v.NegMask), v.Offset
		return rec, target(v.Target)

	case *ir.CheckGroups:
		rec.Groups = v.Groups
		return rec, target(v.Target)

	case *ir.CheckExhausted:
		rec.EKey = v.EKey
		return rec, target(v.Target)

	case *ir.CheckState:
		rec.Index = v.Index
		return rec, target(v.Target)

	case *ir.SetState:
		rec.Index = v.Index

	case *ir.SetGroups:
		rec.Groups = v.Groups

	case *ir.SquashGroups:
		rec.Groups = v.Groups

	case *ir.AnchoredDelay:
		rec.QueueID, rec.Lag = v.QueueID, v.Lag

	case *ir.PushDelayed:
		rec.QueueID, rec.Lag = v.QueueID, v.Delay

	case *ir.RecordAnchored:
		rec.ID = v.ID

	case *ir.SomAdjust:
		rec.Distance = v.Distance

	case *ir.SomLeftfix:
		rec.QueueID, rec.Lag = v.QueueID, v.Lag

	case *ir.TriggerInfix:
		rec.QueueID, rec.EventID, rec.Cancel = v.QueueID, v.EventID, v.Cancel

	case *ir.TriggerSuffix:
		rec.QueueID, rec.EventID = v.QueueID, v.EventID

	case *ir.Dedupe:
		rec.DKey, rec.Offset = v.DKey, v.Offset
		return rec, target(v.Target)

	case *ir.DedupeSom:
		rec.DKey, rec.Offset = v.DKey, v.Offset
		return rec, target(v.Target)

	case *ir.DedupeAndReport:
		rec.DKey, rec.OnMatch, rec.OffsetAdjust = v.DKey, v.OnMatch, v.OffsetAdjust
		return rec, target(v.Target)

	case *ir.ReportChain:
		rec.EventID = v.EventID

	case *ir.Report:
		rec.OnMatch, rec.OffsetAdjust = v.OnMatch, v.OffsetAdjust

	case *ir.ReportExhaust:
		rec.OnMatch, rec.OffsetAdjust, rec.EKey = v.OnMatch, v.OffsetAdjust, v.EKey

	case *ir.ReportSom:
		rec.OnMatch, rec.OffsetAdjust = v.OnMatch, v.OffsetAdjust

	case *ir.ReportSomInt:
		rec.OnMatch, rec.OffsetAdjust = v.OnMatch, v.OffsetAdjust

	case *ir.ReportSomAware:
		rec.OnMatch, rec.OffsetAdjust, rec.SomDistance = v.OnMatch, v.OffsetAdjust, v.SomDistance

	case *ir.ReportSomExhaust:
		rec.OnMatch, rec.OffsetAdjust, rec.EKey = v.OnMatch, v.OffsetAdjust, v.EKey

	case *ir.FinalReport:
		rec.OnMatch = v.OnMatch

	case *ir.SparseIterBegin:
		rec.NumKeys = v.NumKeys
		fallbackOff, err := resolve(v.Fallback)
		if err != nil {
			return rec, err
		}
		rec.Fallback = fallbackOff
		rec.Jump = make([]Edge, len(v.Jump))
		for i, e := range v.Jump {
			off, err := resolve(e.Target)
			if err != nil {
				return rec, err
			}
			rec.Jump[i] = Edge{KeyIndex: e.KeyIndex, Target: off}
		}
		return rec, nil

	case *ir.SparseIterNext:
		beginOff, err := resolve(v.Begin)
		if err != nil {
			return rec, err
		}
		fallbackOff, err := resolve(v.Fallback)
		if err != nil {
			return rec, err
		}
		rec.Begin, rec.Fallback = beginOff, fallbackOff
		return rec, nil

	case *ir.SparseIterAny:
		rec.NumKeys = v.NumKeys
		return rec, target(v.Target)

	default:
		return rec, fmt.Errorf("unhandled instruction type %T", v)
	}
	return rec, nil
}

func u64le(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

// Marshal serializes a Snapshot to canonical CBOR bytes.
func Marshal(s *Snapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// Unmarshal deserializes a Snapshot from canonical CBOR bytes.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal: %w", err)
	}
	return &s, nil
}
