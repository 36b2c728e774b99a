// Package ir defines the Rose program instruction set: the opcode
// catalogue, the tagged-variant instruction values, and the owned node
// wrapper that gives instructions identity inside a program.
package ir

import "fmt"

// OpCode identifies an instruction's kind. It is emitted as the first byte
// of every packed record.
type OpCode uint8

const (
	OpAnchoredDelay OpCode = iota
	OpCheckLitEarly
	OpCheckGroups
	OpCheckOnlyEod
	OpCheckBounds
	OpCheckNotHandled
	OpCheckLookaround
	OpCheckMask
	OpCheckMask32
	OpCheckByte
	OpCheckInfix
	OpCheckPrefix
	OpPushDelayed
	OpRecordAnchored
	OpCatchUp
	OpCatchUpMpv
	OpSomAdjust
	OpSomLeftfix
	OpSomFromReport
	OpSomZero
	OpTriggerInfix
	OpTriggerSuffix
	OpDedupe
	OpDedupeSom
	OpReportChain
	OpReportSomInt
	OpReportSomAware
	OpReport
	OpReportExhaust
	OpReportSom
	OpReportSomExhaust
	OpDedupeAndReport
	OpFinalReport
	OpCheckExhausted
	OpCheckMinLength
	OpSetState
	OpSetGroups
	OpSquashGroups
	OpCheckState
	OpSparseIterBegin
	OpSparseIterNext
	OpSparseIterAny
	OpEnginesEod
	OpSuffixesEod
	OpMatcherEod
	OpEnd
)

// InstrMinAlign is the byte alignment every instruction record is padded
// to. Offsets handed to target fields and blob writes are always multiples
// of this. Every catalogue entry's MinAlign currently equals this constant;
// the field exists on OpCodeInfo rather than being hardcoded at call sites
// so a future opcode needing a different alignment only touches the table.
const InstrMinAlign = 8

// OpCodeInfo is the catalogue entry for one opcode: its textual name, the
// length of its packed record including the leading opcode byte, and the
// alignment its record's start offset must satisfy.
type OpCodeInfo struct {
	Name       string
	ByteLength int
	MinAlign   int
}

var catalogue = map[OpCode]OpCodeInfo{
	OpAnchoredDelay:    {"ANCHORED_DELAY", 1 + 4 + 4, InstrMinAlign},
	OpCheckLitEarly:    {"CHECK_LIT_EARLY", 1 + 4 + 4, InstrMinAlign},
	OpCheckGroups:      {"CHECK_GROUPS", 1 + 8 + 4, InstrMinAlign},
	OpCheckOnlyEod:     {"CHECK_ONLY_EOD", 1 + 4, InstrMinAlign},
	OpCheckBounds:      {"CHECK_BOUNDS", 1 + 4 + 4 + 4, InstrMinAlign},
	OpCheckNotHandled:  {"CHECK_NOT_HANDLED", 1, InstrMinAlign},
	OpCheckLookaround:  {"CHECK_LOOKAROUND", 1 + 4, InstrMinAlign},
	OpCheckMask:        {"CHECK_MASK", 1 + 8 + 8 + 8 + 4 + 4, InstrMinAlign},
	OpCheckMask32:      {"CHECK_MASK_32", 1 + 32 + 32 + 4 + 4 + 4, InstrMinAlign},
	OpCheckByte:        {"CHECK_BYTE", 1 + 1 + 4 + 4, InstrMinAlign},
	OpCheckInfix:       {"CHECK_INFIX", 1 + 4 + 4 + 4, InstrMinAlign},
	OpCheckPrefix:      {"CHECK_PREFIX", 1 + 4 + 4 + 4, InstrMinAlign},
	OpPushDelayed:      {"PUSH_DELAYED", 1 + 4 + 4, InstrMinAlign},
	OpRecordAnchored:   {"RECORD_ANCHORED", 1 + 4, InstrMinAlign},
	OpCatchUp:          {"CATCH_UP", 1, InstrMinAlign},
	OpCatchUpMpv:       {"CATCH_UP_MPV", 1, InstrMinAlign},
	OpSomAdjust:        {"SOM_ADJUST", 1 + 4, InstrMinAlign},
	OpSomLeftfix:       {"SOM_LEFTFIX", 1 + 4 + 4, InstrMinAlign},
	OpSomFromReport:    {"SOM_FROM_REPORT", 1, InstrMinAlign},
	OpSomZero:          {"SOM_ZERO", 1, InstrMinAlign},
	OpTriggerInfix:     {"TRIGGER_INFIX", 1 + 4 + 4 + 1, InstrMinAlign},
	OpTriggerSuffix:    {"TRIGGER_SUFFIX", 1 + 4 + 4, InstrMinAlign},
	OpDedupe:           {"DEDUPE", 1 + 4 + 4 + 4, InstrMinAlign},
	OpDedupeSom:        {"DEDUPE_SOM", 1 + 4 + 4 + 4, InstrMinAlign},
	OpReportChain:      {"REPORT_CHAIN", 1 + 4, InstrMinAlign},
	OpReportSomInt:     {"REPORT_SOM_INT", 1 + 4 + 4, InstrMinAlign},
	OpReportSomAware:   {"REPORT_SOM_AWARE", 1 + 4 + 4 + 4, InstrMinAlign},
	OpReport:           {"REPORT", 1 + 4 + 4, InstrMinAlign},
	OpReportExhaust:    {"REPORT_EXHAUST", 1 + 4 + 4 + 4, InstrMinAlign},
	OpReportSom:        {"REPORT_SOM", 1 + 4 + 4, InstrMinAlign},
	OpReportSomExhaust: {"REPORT_SOM_EXHAUST", 1 + 4 + 4 + 4, InstrMinAlign},
	OpDedupeAndReport:  {"DEDUPE_AND_REPORT", 1 + 4 + 4 + 4 + 4, InstrMinAlign},
	OpFinalReport:      {"FINAL_REPORT", 1 + 4, InstrMinAlign},
	OpCheckExhausted:   {"CHECK_EXHAUSTED", 1 + 4 + 4, InstrMinAlign},
	OpCheckMinLength:   {"CHECK_MIN_LENGTH", 1 + 8 + 4 + 4, InstrMinAlign},
	OpSetState:         {"SET_STATE", 1 + 4, InstrMinAlign},
	OpSetGroups:        {"SET_GROUPS", 1 + 8, InstrMinAlign},
	OpSquashGroups:     {"SQUASH_GROUPS", 1 + 8, InstrMinAlign},
	OpCheckState:       {"CHECK_STATE", 1 + 4 + 4, InstrMinAlign},
	OpSparseIterBegin:  {"SPARSE_ITER_BEGIN", 1 + 4 + 4 + 4 + 4, InstrMinAlign},
	OpSparseIterNext:   {"SPARSE_ITER_NEXT", 1 + 4 + 4 + 4, InstrMinAlign},
	OpSparseIterAny:    {"SPARSE_ITER_ANY", 1 + 4 + 4 + 4, InstrMinAlign},
	OpEnginesEod:       {"ENGINES_EOD", 1, InstrMinAlign},
	OpSuffixesEod:      {"SUFFIXES_EOD", 1, InstrMinAlign},
	OpMatcherEod:       {"MATCHER_EOD", 1, InstrMinAlign},
	OpEnd:              {"END", 1, InstrMinAlign},
}

// Info returns op's catalogue entry, or a zero-value placeholder with a
// synthesized Name for an unknown value (there should be none, since
// OpCode is a closed enumeration).
func (op OpCode) Info() OpCodeInfo {
	if info, ok := catalogue[op]; ok {
		return info
	}
	return OpCodeInfo{Name: fmt.Sprintf("OPCODE_%d", byte(op))}
}

// Name returns the catalogue name for op.
func (op OpCode) Name() string { return op.Info().Name }

func (op OpCode) String() string { return op.Name() }
