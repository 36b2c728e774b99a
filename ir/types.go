package ir

import "errors"

// Node is the owned wrapper that gives an instruction identity inside a
// program. A Node's address is its identity: target fields hold *Node
// pointers, so "two targets are the same" is ordinary Go pointer equality
// while the program is in IR form, and is replaced by offset comparison
// once a program is laid out (see Equiv).
//
// A Node belongs to exactly one Program for its lifetime; Program is the
// only code that constructs, splices, or discards Nodes structurally.
type Node struct {
	Instr Instr
	owned bool
}

// NewNode wraps an instruction value in a fresh, program-less Node.
func NewNode(i Instr) *Node { return &Node{Instr: i} }

// ErrAlreadyOwned is returned by Claim when a Node is already owned by a
// program. Moving an instruction into a second program is a structural
// error: an instruction belongs to exactly one program at a time.
var ErrAlreadyOwned = errors.New("ir: node already belongs to a program")

// Claim marks n as owned, failing if it is already owned by another
// program. Package program is the only intended caller.
func (n *Node) Claim() error {
	if n.owned {
		return ErrAlreadyOwned
	}
	n.owned = true
	return nil
}

// Release marks n as unowned, e.g. because the program holding it spliced
// it elsewhere or discarded it.
func (n *Node) Release() { n.owned = false }

// Owned reports whether some program currently owns n.
func (n *Node) Owned() bool { return n.owned }

func (n *Node) Opcode() OpCode { return n.Instr.Opcode() }

// OffsetMap records each Node's assigned byte offset within an assembled
// program. It is produced by the assembler's layout pass (asm.Layout) and
// consumed by Emit and Equiv.
type OffsetMap map[*Node]uint32

// Instr is the tagged-variant instruction payload. Every opcode in the
// catalogue has exactly one concrete Go type implementing Instr.
//
// The operations a payload must support (ByteLength, structural hash,
// offset-based equivalence, target rewriting, and emission) are NOT
// methods on Instr: they are implemented once, as type switches, in
// hash.go, equiv.go, rewrite.go, and emit.go. This mirrors
// compiler/hash's Serialize(HNode) - a single visitor per concern instead
// of per-type boilerplate.
type Instr interface {
	Opcode() OpCode
}

// SparseEdge is one entry of a SPARSE_ITER_BEGIN jump table: the iterator
// visits keys in ascending index order and branches to Target when it
// lands on KeyIndex.
type SparseEdge struct {
	KeyIndex uint32
	Target   *Node
}

// --- No-operand instructions -------------------------------------------

type CatchUp struct{}
type CatchUpMpv struct{}
type SomFromReport struct{}
type SomZero struct{}
type EnginesEod struct{}
type SuffixesEod struct{}
type MatcherEod struct{}
type CheckNotHandled struct{}
type End struct{}

func (CatchUp) Opcode() OpCode         { return OpCatchUp }
func (CatchUpMpv) Opcode() OpCode      { return OpCatchUpMpv }
func (SomFromReport) Opcode() OpCode   { return OpSomFromReport }
func (SomZero) Opcode() OpCode         { return OpSomZero }
func (EnginesEod) Opcode() OpCode      { return OpEnginesEod }
func (SuffixesEod) Opcode() OpCode     { return OpSuffixesEod }
func (MatcherEod) Opcode() OpCode      { return OpMatcherEod }
func (CheckNotHandled) Opcode() OpCode { return OpCheckNotHandled }
func (End) Opcode() OpCode             { return OpEnd }

// --- Target-only checks --------------------------------------------------

// CheckOnlyEod branches to Target unless the current position is EOD.
type CheckOnlyEod struct{ Target *Node }

// CheckLookaround branches to Target if the lookaround assertion fails.
type CheckLookaround struct{ Target *Node }

func (*CheckOnlyEod) Opcode() OpCode     { return OpCheckOnlyEod }
func (*CheckLookaround) Opcode() OpCode  { return OpCheckLookaround }

// --- Bounded / scalar checks ---------------------------------------------

// CheckBounds branches to Target unless Min <= (distance from SOM) <= Max.
type CheckBounds struct {
	Min, Max uint32
	Target   *Node
}

// CheckLitEarly branches to Target if the match starts before MinLen bytes
// have been seen.
type CheckLitEarly struct {
	MinLen uint32
	Target *Node
}

// CheckMinLength branches to Target unless the match is at least MinLen
// bytes long, measured with EndAdj applied to the end offset.
type CheckMinLength struct {
	MinLen uint64
	EndAdj int32
	Target *Node
}

// CheckByte branches to Target unless the byte at Offset (relative to the
// current position) equals Byte.
type CheckByte struct {
	Byte   byte
	Offset int32
	Target *Node
}

// CheckInfix/CheckPrefix branch to Target unless the named sub-engine
// (identified by QueueID, delayed by Lag) is alive/matching.
type CheckInfix struct {
	QueueID uint32
	Lag     uint32
	Target  *Node
}
type CheckPrefix struct {
	QueueID uint32
	Lag     uint32
	Target  *Node
}

func (*CheckBounds) Opcode() OpCode    { return OpCheckBounds }
func (*CheckLitEarly) Opcode() OpCode  { return OpCheckLitEarly }
func (*CheckMinLength) Opcode() OpCode { return OpCheckMinLength }
func (*CheckByte) Opcode() OpCode      { return OpCheckByte }
func (*CheckInfix) Opcode() OpCode     { return OpCheckInfix }
func (*CheckPrefix) Opcode() OpCode    { return OpCheckPrefix }

// --- Mask checks ----------------------------------------------------------

// CheckMask branches to Target unless ((byte-at-Offset & And) ^ NegMask) == Cmp,
// tested over an 8-byte window.
type CheckMask struct {
	And, Cmp uint64
	NegMask  uint64
	Offset   int32
	Target   *Node
}

// CheckMask32 is CheckMask's 32-byte-window sibling. The two masks are
// emitted inline in the record, never through the blob.
type CheckMask32 struct {
	And, Cmp [32]byte
	NegMask  uint32
	Offset   int32
	Target   *Node
}

func (*CheckMask) Opcode() OpCode   { return OpCheckMask }
func (*CheckMask32) Opcode() OpCode { return OpCheckMask32 }

// --- Group / state checks -------------------------------------------------

// CheckGroups fails (falls through without branching; groups gate whether
// later rose instructions run at all) unless Groups intersects the live
// group mask. Modeled with a Target for the "not live" branch, matching
// the other CHECK_* instructions' shape.
type CheckGroups struct {
	Groups uint64
	Target *Node
}

// CheckExhausted branches to Target if EKey's exhaustion bit is set.
type CheckExhausted struct {
	EKey   uint32
	Target *Node
}

// CheckState branches to Target unless bit Index is set in the multi-bit
// state vector.
type CheckState struct {
	Index  uint32
	Target *Node
}

// SetState sets bit Index in the multibit state vector.
type SetState struct{ Index uint32 }

// SetGroups ORs Groups into the live rose-group bitmap.
type SetGroups struct{ Groups uint64 }

// SquashGroups ANDs Groups into the live rose-group bitmap, clearing bits.
type SquashGroups struct{ Groups uint64 }

func (*CheckGroups) Opcode() OpCode    { return OpCheckGroups }
func (*CheckExhausted) Opcode() OpCode { return OpCheckExhausted }
func (*CheckState) Opcode() OpCode     { return OpCheckState }
func (*SetState) Opcode() OpCode       { return OpSetState }
func (*SetGroups) Opcode() OpCode      { return OpSetGroups }
func (*SquashGroups) Opcode() OpCode   { return OpSquashGroups }

// --- Queue / SOM / trigger instructions -----------------------------------

// AnchoredDelay delays processing of anchored matches on QueueID by Lag.
type AnchoredDelay struct {
	QueueID uint32
	Lag     uint32
}

// PushDelayed queues a literal match on QueueID for Delay bytes.
type PushDelayed struct {
	QueueID uint32
	Delay   uint32
}

// RecordAnchored records an anchored-table match identified by ID.
type RecordAnchored struct{ ID uint32 }

// SomAdjust adjusts the running start-of-match by a fixed Distance.
type SomAdjust struct{ Distance uint32 }

// SomLeftfix derives start-of-match from a leftfix sub-engine's state.
type SomLeftfix struct {
	QueueID uint32
	Lag     uint32
}

// TriggerInfix/TriggerSuffix fire an event into a sub-engine's queue.
type TriggerInfix struct {
	QueueID uint32
	EventID uint32
	Cancel  byte
}
type TriggerSuffix struct {
	QueueID uint32
	EventID uint32
}

func (*AnchoredDelay) Opcode() OpCode   { return OpAnchoredDelay }
func (*PushDelayed) Opcode() OpCode     { return OpPushDelayed }
func (*RecordAnchored) Opcode() OpCode  { return OpRecordAnchored }
func (*SomAdjust) Opcode() OpCode       { return OpSomAdjust }
func (*SomLeftfix) Opcode() OpCode      { return OpSomLeftfix }
func (*TriggerInfix) Opcode() OpCode    { return OpTriggerInfix }
func (*TriggerSuffix) Opcode() OpCode   { return OpTriggerSuffix }

// --- Dedupe / report family ------------------------------------------------

// Dedupe/DedupeSom branch to Target when the candidate match at DKey/Offset
// has already been reported (and so should be suppressed).
type Dedupe struct {
	DKey   uint32
	Offset int32
	Target *Node
}
type DedupeSom struct {
	DKey   uint32
	Offset int32
	Target *Node
}

// DedupeAndReport combines a dedupe check with the report it guards,
// branching to Target on suppression.
type DedupeAndReport struct {
	DKey         uint32
	OnMatch      uint32
	OffsetAdjust int32
	Target       *Node
}

// ReportChain fires a chained-report event into EventID's queue.
type ReportChain struct{ EventID uint32 }

// Report is the plain, non-deduped, non-SOM, non-exhausting report.
type Report struct {
	OnMatch      uint32
	OffsetAdjust int32
}

// ReportExhaust additionally marks EKey exhausted once fired.
type ReportExhaust struct {
	OnMatch      uint32
	OffsetAdjust int32
	EKey         uint32
}

// ReportSom additionally reports the tracked start-of-match.
type ReportSom struct {
	OnMatch      uint32
	OffsetAdjust int32
}

// ReportSomInt reports SOM as an internal (non-user-visible) match, used
// to feed dependent engines.
type ReportSomInt struct {
	OnMatch      uint32
	OffsetAdjust int32
}

// ReportSomAware reports SOM computed relative to SomDistance.
type ReportSomAware struct {
	OnMatch      uint32
	OffsetAdjust int32
	SomDistance  uint32
}

// ReportSomExhaust reports SOM and marks EKey exhausted.
type ReportSomExhaust struct {
	OnMatch      uint32
	OffsetAdjust int32
	EKey         uint32
}

// FinalReport is the terminal report emitted once scanning is fully done.
type FinalReport struct{ OnMatch uint32 }

func (*Dedupe) Opcode() OpCode           { return OpDedupe }
func (*DedupeSom) Opcode() OpCode        { return OpDedupeSom }
func (*DedupeAndReport) Opcode() OpCode  { return OpDedupeAndReport }
func (*ReportChain) Opcode() OpCode      { return OpReportChain }
func (*Report) Opcode() OpCode           { return OpReport }
func (*ReportExhaust) Opcode() OpCode    { return OpReportExhaust }
func (*ReportSom) Opcode() OpCode        { return OpReportSom }
func (*ReportSomInt) Opcode() OpCode     { return OpReportSomInt }
func (*ReportSomAware) Opcode() OpCode   { return OpReportSomAware }
func (*ReportSomExhaust) Opcode() OpCode { return OpReportSomExhaust }
func (*FinalReport) Opcode() OpCode      { return OpFinalReport }

// --- Sparse iterator family -------------------------------------------------

// SparseIterBegin starts a sparse-iterator scan over NumKeys possible key
// indices, branching via Jump for the keys that are set and to Fallback
// when the iterator is exhausted. On assembly it interns its bit-vector
// and jump table in the blob; a companion SparseIterNext reuses those
// offsets (see asm.Assemble).
type SparseIterBegin struct {
	NumKeys  uint32
	Jump     []SparseEdge
	Fallback *Node

	// Emission state, set the first time Emit runs and reused by a
	// companion SparseIterNext. Never consulted by Equiv.
	emitted    bool
	iterOffset uint32
	jumpOffset uint32
}

// SparseIterNext resumes the scan started by the SparseIterBegin at Begin,
// sharing its blob payload.
type SparseIterNext struct {
	Begin    *Node
	Fallback *Node
}

// SparseIterAny branches to Target if any key in the iterator is set,
// without advancing a cursor.
type SparseIterAny struct {
	NumKeys uint32
	Target  *Node
}

func (*SparseIterBegin) Opcode() OpCode { return OpSparseIterBegin }
func (*SparseIterNext) Opcode() OpCode  { return OpSparseIterNext }
func (*SparseIterAny) Opcode() OpCode   { return OpSparseIterAny }
