package encode

import "github.com/davetcode/zwreec/internal/ir"

// shape is the instruction form an Op encodes to, mirroring the four-way
// OpcodeForm split the teacher's zmachine/opcode.go decodes
// (long/short/variable/extended) - minus extended, which v1-v8 story
// files this compiler emits never need (no save/restore/log_shift/
// set_true_colour instruction is ever lowered).
type shape int

const (
	shape0OP shape = iota
	shape1OP
	shape2OP // a nominally-2OP opcode, always encoded via the variable-form
	// byte layout (spec.md's codegen is explicitly not optimized for size,
	// so there is no reason to special-case the compact long form).
	shapeVAR
)

// desc describes how one ir.Op encodes: its form, its opcode number within
// that form (read directly off the case numbers in the teacher's
// zmachine.go instruction switch), whether it writes a trailing store
// byte, and whether it's followed by a branch.
type desc struct {
	shape  shape
	number uint8
	store  bool
	branch bool
}

// opcodes is the complete Op -> desc table for the subset of the
// instruction set internal/lower ever emits. OpPrintLiteral, OpPrintPaddr,
// OpJump and OpLabel are handled separately in encode.go since they carry
// payload (inline Z-string bytes, a StringID, a jump label) instead of an
// ordinary Operands list.
var opcodes = map[ir.Op]desc{
	ir.OpRtrue:   {shape0OP, 0, false, false},
	ir.OpNewline: {shape0OP, 11, false, false},
	ir.OpQuit:    {shape0OP, 10, false, false},

	ir.OpJZ:      {shape1OP, 0, false, true},
	ir.OpInc:     {shape1OP, 5, false, false},
	ir.OpDec:     {shape1OP, 6, false, false},
	ir.OpCall1N:  {shape1OP, 15, false, false},
	ir.OpRet:     {shape1OP, 11, false, false},

	ir.OpJE:    {shape2OP, 1, false, true},
	ir.OpJL:    {shape2OP, 2, false, true},
	ir.OpJG:    {shape2OP, 3, false, true},
	ir.OpOr:    {shape2OP, 8, true, false},
	ir.OpAnd:   {shape2OP, 9, true, false},
	ir.OpStore: {shape2OP, 13, false, false},
	ir.OpLoadB: {shape2OP, 16, true, false},
	ir.OpAdd:   {shape2OP, 20, true, false},
	ir.OpSub:   {shape2OP, 21, true, false},
	ir.OpMul:   {shape2OP, 22, true, false},
	ir.OpDiv:   {shape2OP, 23, true, false},
	ir.OpMod:   {shape2OP, 24, true, false},

	ir.OpCallVS:      {shapeVAR, 0, true, false},
	ir.OpStoreB:      {shapeVAR, 2, false, false},
	ir.OpPrintChar:   {shapeVAR, 5, false, false},
	ir.OpPrintNum:    {shapeVAR, 6, false, false},
	ir.OpRandom:      {shapeVAR, 7, true, false},
	ir.OpPush:        {shapeVAR, 8, false, false},
	ir.OpPull:        {shapeVAR, 9, false, false},
	ir.OpSetTextStyle: {shapeVAR, 17, false, false},
	ir.OpReadChar:    {shapeVAR, 22, true, false},
}

// effectiveOperands prepends the packed address of instr.Callee, when set,
// to instr.Operands - see ir.Instr.Callee's doc comment. A direct call
// (Callee != "") carries only its arguments in Operands; an indirect call
// carries the routine value itself as Operands[0] already.
func effectiveOperands(instr ir.Instr) []ir.Operand {
	if instr.Callee == "" {
		return instr.Operands
	}
	out := make([]ir.Operand, 0, len(instr.Operands)+1)
	out = append(out, ir.RoutineAddr(instr.Callee))
	out = append(out, instr.Operands...)
	return out
}
