package lower

import (
	"github.com/davetcode/zwreec/internal/ir"
)

// Concatenation helper routines, emitted at most once per compilation
// (spec.md §4.5: "the compiler generates calls to a built-in helper
// routine R_concat (emitted once) that prints its arguments in
// sequence"). A string-typed value is always the address of a
// NUL-terminated ASCII run; these routines build that run incrementally
// into the shared ir.AddrConcatBuffer scratch region, each returning the
// address of the NUL terminator it wrote, which is where the next call in
// the chain starts writing, so calls can be chained left to right.
//
// Every helper here takes (value, cursor) in that argument order - value
// first, cursor second - because passage routines have 0 locals
// themselves (spec.md §4.5) and so thread the cursor through the single
// expression stack slot: the cursor pushed by the previous link in the
// chain is already on the stack when the next value is pushed on top of
// it, so "most recently pushed" (the value) naturally becomes the first
// popped call argument.
const (
	rAppendRaw  = "R_concat_append_raw"
	rAppendNum  = "R_concat_append_num"
	rAppendBool = "R_concat_append_bool"
	rPrintCStr  = "R_print_cstr"
)

func localVar(n uint8) ir.Var { return ir.Var{Kind: ir.VarLocal, Num: n} }

// concatHelperRoutines returns the fixed bodies of the concatenation
// append helpers, built once regardless of how many concatenations the
// story uses. trueID/falseID are the RawStrings ids of the literal "true"
// and "false" text, interned by the caller before this is built.
// printCStrRoutine is not included here: lowerPrint calls it for any
// string-typed print, concatenated or not, so it's registered
// unconditionally by Lower alongside randomRangeRoutine rather than only
// when usedConcat is set.
func concatHelperRoutines(trueID, falseID int) []ir.Routine {
	return []ir.Routine{
		appendRawRoutine(),
		appendNumRoutine(),
		appendBoolRoutine(trueID, falseID),
	}
}

// R_concat_append_raw(value, cursor): copies the NUL-terminated run at
// value to cursor, returns the address of the copied NUL.
func appendRawRoutine() ir.Routine {
	value, cursor, ch := localVar(1), localVar(2), localVar(3)
	return ir.Routine{
		Name:   rAppendRaw,
		Locals: 3,
		Body: []ir.Instr{
			{Op: ir.OpLabel, LabelName: "loop"},
			{Op: ir.OpLoadB, Operands: []ir.Operand{ir.VarOperand(value), ir.Const(0)}, Store: &ch},
			{Op: ir.OpStoreB, Operands: []ir.Operand{ir.VarOperand(cursor), ir.Const(0), ir.VarOperand(ch)}},
			{Op: ir.OpJZ, Operands: []ir.Operand{ir.VarOperand(ch)}, Label: "done", Sense: ir.BranchOnTrue},
			{Op: ir.OpInc, Operands: []ir.Operand{ir.Const(uint16(cursor.Num))}},
			{Op: ir.OpInc, Operands: []ir.Operand{ir.Const(uint16(value.Num))}},
			{Op: ir.OpJump, Label: "loop"},
			{Op: ir.OpLabel, LabelName: "done"},
			{Op: ir.OpRet, Operands: []ir.Operand{ir.VarOperand(cursor)}},
		},
	}
}

// R_concat_append_bool(value, cursor): appends "true" or "false".
func appendBoolRoutine(trueID, falseID int) ir.Routine {
	value, cursor := localVar(1), localVar(2)
	return ir.Routine{
		Name:   rAppendBool,
		Locals: 2,
		Body: []ir.Instr{
			{Op: ir.OpJZ, Operands: []ir.Operand{ir.VarOperand(value)}, Label: "false_case", Sense: ir.BranchOnTrue},
			{Op: ir.OpCallVS, Callee: rAppendRaw, Operands: []ir.Operand{ir.RawStringAddr(trueID), ir.VarOperand(cursor)}, Store: &cursor},
			{Op: ir.OpJump, Label: "end"},
			{Op: ir.OpLabel, LabelName: "false_case"},
			{Op: ir.OpCallVS, Callee: rAppendRaw, Operands: []ir.Operand{ir.RawStringAddr(falseID), ir.VarOperand(cursor)}, Store: &cursor},
			{Op: ir.OpLabel, LabelName: "end"},
			{Op: ir.OpRet, Operands: []ir.Operand{ir.VarOperand(cursor)}},
		},
	}
}

// R_concat_append_num(value, cursor): appends value's decimal textual
// form, handling the sign and zero specially, via a standard
// divide-by-ten digit extraction pushed to the stack and popped back in
// reverse order.
func appendNumRoutine() ir.Routine {
	value, cursor, count, digit := localVar(1), localVar(2), localVar(3), localVar(4)
	return ir.Routine{
		Name:   rAppendNum,
		Locals: 4,
		Body: []ir.Instr{
			{Op: ir.OpJG, Operands: []ir.Operand{ir.VarOperand(value), ir.Const(0)}, Label: "extract", Sense: ir.BranchOnTrue},
			{Op: ir.OpJL, Operands: []ir.Operand{ir.VarOperand(value), ir.Const(0)}, Label: "negative", Sense: ir.BranchOnTrue},
			// value == 0
			{Op: ir.OpStoreB, Operands: []ir.Operand{ir.VarOperand(cursor), ir.Const(0), ir.Const('0')}},
			{Op: ir.OpInc, Operands: []ir.Operand{ir.Const(uint16(cursor.Num))}},
			{Op: ir.OpJump, Label: "terminate"},

			{Op: ir.OpLabel, LabelName: "negative"},
			{Op: ir.OpStoreB, Operands: []ir.Operand{ir.VarOperand(cursor), ir.Const(0), ir.Const('-')}},
			{Op: ir.OpInc, Operands: []ir.Operand{ir.Const(uint16(cursor.Num))}},
			{Op: ir.OpSub, Operands: []ir.Operand{ir.Const(0), ir.VarOperand(value)}, Store: &value},

			{Op: ir.OpLabel, LabelName: "extract"},
			{Op: ir.OpLabel, LabelName: "digit_loop"},
			{Op: ir.OpMod, Operands: []ir.Operand{ir.VarOperand(value), ir.Const(10)}, Store: &digit},
			{Op: ir.OpPush, Operands: []ir.Operand{ir.VarOperand(digit)}},
			{Op: ir.OpInc, Operands: []ir.Operand{ir.Const(uint16(count.Num))}},
			{Op: ir.OpDiv, Operands: []ir.Operand{ir.VarOperand(value), ir.Const(10)}, Store: &value},
			{Op: ir.OpJG, Operands: []ir.Operand{ir.VarOperand(value), ir.Const(0)}, Label: "digit_loop", Sense: ir.BranchOnTrue},

			{Op: ir.OpLabel, LabelName: "emit_loop"},
			{Op: ir.OpJZ, Operands: []ir.Operand{ir.VarOperand(count)}, Label: "terminate", Sense: ir.BranchOnTrue},
			{Op: ir.OpPull, Operands: []ir.Operand{ir.Const(uint16(digit.Num))}},
			{Op: ir.OpAdd, Operands: []ir.Operand{ir.VarOperand(digit), ir.Const('0')}, Store: &digit},
			{Op: ir.OpStoreB, Operands: []ir.Operand{ir.VarOperand(cursor), ir.Const(0), ir.VarOperand(digit)}},
			{Op: ir.OpInc, Operands: []ir.Operand{ir.Const(uint16(cursor.Num))}},
			{Op: ir.OpDec, Operands: []ir.Operand{ir.Const(uint16(count.Num))}},
			{Op: ir.OpJump, Label: "emit_loop"},

			{Op: ir.OpLabel, LabelName: "terminate"},
			{Op: ir.OpStoreB, Operands: []ir.Operand{ir.VarOperand(cursor), ir.Const(0), ir.Const(0)}},
			{Op: ir.OpRet, Operands: []ir.Operand{ir.VarOperand(cursor)}},
		},
	}
}

// R_print_cstr(addr): prints the NUL-terminated ASCII run at addr one
// character at a time, the uniform way every string-typed value
// (literal or concatenated) is rendered.
func printCStrRoutine() ir.Routine {
	addr, ch := localVar(1), localVar(2)
	return ir.Routine{
		Name:   rPrintCStr,
		Locals: 2,
		Body: []ir.Instr{
			{Op: ir.OpLabel, LabelName: "loop"},
			{Op: ir.OpLoadB, Operands: []ir.Operand{ir.VarOperand(addr), ir.Const(0)}, Store: &ch},
			{Op: ir.OpJZ, Operands: []ir.Operand{ir.VarOperand(ch)}, Label: "done", Sense: ir.BranchOnTrue},
			{Op: ir.OpPrintChar, Operands: []ir.Operand{ir.VarOperand(ch)}},
			{Op: ir.OpInc, Operands: []ir.Operand{ir.Const(uint16(addr.Num))}},
			{Op: ir.OpJump, Label: "loop"},
			{Op: ir.OpLabel, LabelName: "done"},
			{Op: ir.OpRtrue},
		},
	}
}
