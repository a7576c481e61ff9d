package lower

import "github.com/davetcode/zwreec/internal/ir"

const rRandomRange = "R_random_range"

// R_random_range(hi, lo): spec.md §4.3 / SPEC_FULL.md §6.3 state that
// `random(lo, hi)` with `lo > hi` swaps at runtime, so a hi < lo argument
// pair is swapped here before the width is computed - the result is
// always a value uniformly drawn from the inclusive range between the
// two arguments, regardless of which one the caller passed first.
func randomRangeRoutine() ir.Routine {
	hi, lo, width, r, tmp := localVar(1), localVar(2), localVar(3), localVar(4), localVar(5)
	return ir.Routine{
		Name:   rRandomRange,
		Locals: 5,
		Body: []ir.Instr{
			{Op: ir.OpJG, Operands: []ir.Operand{ir.VarOperand(hi), ir.VarOperand(lo)}, Label: "ordered", Sense: ir.BranchOnTrue},
			{Op: ir.OpStore, Operands: []ir.Operand{ir.Const(uint16(tmp.Num)), ir.VarOperand(hi)}},
			{Op: ir.OpStore, Operands: []ir.Operand{ir.Const(uint16(hi.Num)), ir.VarOperand(lo)}},
			{Op: ir.OpStore, Operands: []ir.Operand{ir.Const(uint16(lo.Num)), ir.VarOperand(tmp)}},
			{Op: ir.OpLabel, LabelName: "ordered"},
			{Op: ir.OpSub, Operands: []ir.Operand{ir.VarOperand(hi), ir.VarOperand(lo)}, Store: &width},
			{Op: ir.OpAdd, Operands: []ir.Operand{ir.VarOperand(width), ir.Const(1)}, Store: &width},
			{Op: ir.OpRandom, Operands: []ir.Operand{ir.VarOperand(width)}, Store: &r},
			{Op: ir.OpAdd, Operands: []ir.Operand{ir.VarOperand(r), ir.VarOperand(lo)}, Store: &r},
			{Op: ir.OpSub, Operands: []ir.Operand{ir.VarOperand(r), ir.Const(1)}, Store: &r},
			{Op: ir.OpRet, Operands: []ir.Operand{ir.VarOperand(r)}},
		},
	}
}
