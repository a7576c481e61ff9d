package lower

import (
	"strconv"

	"github.com/davetcode/zwreec/internal/diag"
	"github.com/davetcode/zwreec/internal/ir"
	"github.com/davetcode/zwreec/internal/script"
)

// lowerExpr lowers e so that, once run, its result is left pushed on the
// expression stack (spec.md §4.5: "each subexpression result goes into
// the routine's single store-variable slot"). Every result - int, bool,
// or a string's raw address - is pushed uniformly; callers pop it with
// ir.VarOperand(ir.Scratch).
func (lw *lowerer) lowerExpr(e script.Expr) []ir.Instr {
	switch v := e.(type) {
	case script.IntExpr:
		return []ir.Instr{{Op: ir.OpPush, Operands: []ir.Operand{ir.Const(uint16(v.Value))}}}

	case script.BoolExpr:
		n := uint16(0)
		if v.Value {
			n = 1
		}
		return []ir.Instr{{Op: ir.OpPush, Operands: []ir.Operand{ir.Const(n)}}}

	case script.StrExpr:
		id := lw.module.InternRaw(v.Value)
		return []ir.Instr{{Op: ir.OpPush, Operands: []ir.Operand{ir.RawStringAddr(id)}}}

	case script.VarExpr:
		g := ir.Var{Kind: ir.VarGlobal, Num: lw.module.GlobalFor(v.Name)}
		return []ir.Instr{{Op: ir.OpPush, Operands: []ir.Operand{ir.VarOperand(g)}}}

	case script.UnExpr:
		return lw.lowerUnary(v)

	case script.RandomExpr:
		return lw.lowerRandom(v)

	case script.BinExpr:
		return lw.lowerBin(v)

	default:
		return []ir.Instr{{Op: ir.OpPush, Operands: []ir.Operand{ir.Const(0)}}}
	}
}

func (lw *lowerer) lowerUnary(v script.UnExpr) []ir.Instr {
	instrs := lw.lowerExpr(v.Operand)
	switch v.Op {
	case script.OpNot:
		trueLbl, endLbl := lw.newLabel("not_t"), lw.newLabel("not_e")
		instrs = append(instrs,
			ir.Instr{Op: ir.OpJZ, Operands: []ir.Operand{ir.VarOperand(ir.Scratch)}, Label: trueLbl, Sense: ir.BranchOnTrue},
			ir.Instr{Op: ir.OpPush, Operands: []ir.Operand{ir.Const(0)}},
			ir.Instr{Op: ir.OpJump, Label: endLbl},
			ir.Instr{Op: ir.OpLabel, LabelName: trueLbl},
			ir.Instr{Op: ir.OpPush, Operands: []ir.Operand{ir.Const(1)}},
			ir.Instr{Op: ir.OpLabel, LabelName: endLbl},
		)
		return instrs
	default: // OpNeg
		result := ir.Scratch
		instrs = append(instrs, ir.Instr{
			Op:       ir.OpSub,
			Operands: []ir.Operand{ir.Const(0), ir.VarOperand(ir.Scratch)},
			Store:    &result,
		})
		return instrs
	}
}

// pushBoth lowers right then left, leaving ..., right, left on the
// stack - left on top, so a two-pop operand list [Scratch, Scratch]
// evaluates to (operand0=left, operand1=right), matching the textual
// order non-commutative opcodes (SUB, DIV, the comparisons) need.
func (lw *lowerer) pushBoth(left, right script.Expr) []ir.Instr {
	instrs := lw.lowerExpr(right)
	instrs = append(instrs, lw.lowerExpr(left)...)
	return instrs
}

func (lw *lowerer) lowerBin(v script.BinExpr) []ir.Instr {
	switch v.Op {
	case script.OpAdd:
		leftT := exprType(v.Left, lw.types, lw.diags)
		rightT := exprType(v.Right, lw.types, lw.diags)
		if leftT == TString || rightT == TString {
			return lw.lowerConcat(v)
		}
		return lw.binaryArith(ir.OpAdd, v.Left, v.Right)

	case script.OpSub:
		return lw.binaryArith(ir.OpSub, v.Left, v.Right)
	case script.OpMul:
		return lw.binaryArith(ir.OpMul, v.Left, v.Right)
	case script.OpDiv:
		return lw.binaryArith(ir.OpDiv, v.Left, v.Right)
	case script.OpAnd:
		return lw.binaryArith(ir.OpAnd, v.Left, v.Right)
	case script.OpOr:
		return lw.binaryArith(ir.OpOr, v.Left, v.Right)

	case script.OpEq:
		return lw.compare(ir.OpJE, false, v.Left, v.Right)
	case script.OpNeq:
		return lw.compare(ir.OpJE, true, v.Left, v.Right)
	case script.OpLt:
		return lw.compare(ir.OpJL, false, v.Left, v.Right)
	case script.OpGt:
		return lw.compare(ir.OpJG, false, v.Left, v.Right)
	case script.OpLte:
		return lw.compare(ir.OpJG, true, v.Left, v.Right)
	case script.OpGte:
		return lw.compare(ir.OpJL, true, v.Left, v.Right)

	default:
		return lw.binaryArith(ir.OpAdd, v.Left, v.Right)
	}
}

func (lw *lowerer) binaryArith(op ir.Op, left, right script.Expr) []ir.Instr {
	instrs := lw.pushBoth(left, right)
	result := ir.Scratch
	instrs = append(instrs, ir.Instr{
		Op:       op,
		Operands: []ir.Operand{ir.VarOperand(ir.Scratch), ir.VarOperand(ir.Scratch)},
		Store:    &result,
	})
	return instrs
}

// compare lowers a comparison to a 0/1 push via zop, a two-operand
// branch instruction whose Sense is always BranchOnTrue; invert swaps
// which branch outcome pushes 1 so a single opcode (JE/JL/JG) covers
// both a comparison and its negation (e.g. JE covers both == and !=).
func (lw *lowerer) compare(zop ir.Op, invert bool, left, right script.Expr) []ir.Instr {
	instrs := lw.pushBoth(left, right)
	trueLbl, endLbl := lw.newLabel("cmp_t"), lw.newLabel("cmp_e")
	instrs = append(instrs, ir.Instr{
		Op:       zop,
		Operands: []ir.Operand{ir.VarOperand(ir.Scratch), ir.VarOperand(ir.Scratch)},
		Label:    trueLbl,
		Sense:    ir.BranchOnTrue,
	})
	taken, untaken := uint16(1), uint16(0)
	if invert {
		taken, untaken = 0, 1
	}
	instrs = append(instrs,
		ir.Instr{Op: ir.OpPush, Operands: []ir.Operand{ir.Const(untaken)}},
		ir.Instr{Op: ir.OpJump, Label: endLbl},
		ir.Instr{Op: ir.OpLabel, LabelName: trueLbl},
		ir.Instr{Op: ir.OpPush, Operands: []ir.Operand{ir.Const(taken)}},
		ir.Instr{Op: ir.OpLabel, LabelName: endLbl},
	)
	return instrs
}

func (lw *lowerer) lowerRandom(v script.RandomExpr) []ir.Instr {
	instrs := lw.lowerExpr(v.Lo)
	instrs = append(instrs, lw.lowerExpr(v.Hi)...)
	result := ir.Scratch
	instrs = append(instrs, ir.Instr{
		Op:       ir.OpCallVS,
		Callee:   rRandomRange,
		Operands: []ir.Operand{ir.VarOperand(ir.Scratch), ir.VarOperand(ir.Scratch)},
		Store:    &result,
	})
	return instrs
}

// lowerConcat lowers a string-typed "+" chain by flattening it into its
// operands (spec.md §4.5 / §6.5 supplement) and threading a cursor
// through the shared ConcatBuffer via the append-helper routines,
// pushing the buffer's base address as the final result. A
// constant-foldable operand is rendered to text at lower-time instead of
// calling the numeric/boolean append helper at runtime.
func (lw *lowerer) lowerConcat(v script.BinExpr) []ir.Instr {
	lw.usedConcat = true
	parts := flattenConcat(v, lw.types, lw.diags)

	var instrs []ir.Instr
	instrs = append(instrs, ir.Instr{Op: ir.OpPush, Operands: []ir.Operand{ir.AddrOperand(ir.AddrConcatBuffer)}})

	for _, part := range parts {
		cursor := ir.Scratch
		switch p := part.(type) {
		case script.IntExpr:
			id := lw.module.InternRaw(strconv.FormatInt(p.Value, 10))
			instrs = append(instrs, ir.Instr{Op: ir.OpPush, Operands: []ir.Operand{ir.RawStringAddr(id)}})
			instrs = append(instrs, ir.Instr{
				Op: ir.OpCallVS, Callee: rAppendRaw,
				Operands: []ir.Operand{ir.VarOperand(ir.Scratch), ir.VarOperand(ir.Scratch)},
				Store:    &cursor,
			})
		case script.BoolExpr:
			text := "false"
			if p.Value {
				text = "true"
			}
			id := lw.module.InternRaw(text)
			instrs = append(instrs, ir.Instr{Op: ir.OpPush, Operands: []ir.Operand{ir.RawStringAddr(id)}})
			instrs = append(instrs, ir.Instr{
				Op: ir.OpCallVS, Callee: rAppendRaw,
				Operands: []ir.Operand{ir.VarOperand(ir.Scratch), ir.VarOperand(ir.Scratch)},
				Store:    &cursor,
			})
		case script.StrExpr:
			id := lw.module.InternRaw(p.Value)
			instrs = append(instrs, ir.Instr{Op: ir.OpPush, Operands: []ir.Operand{ir.RawStringAddr(id)}})
			instrs = append(instrs, ir.Instr{
				Op: ir.OpCallVS, Callee: rAppendRaw,
				Operands: []ir.Operand{ir.VarOperand(ir.Scratch), ir.VarOperand(ir.Scratch)},
				Store:    &cursor,
			})
		default:
			t := exprType(part, lw.types, lw.diags)
			instrs = append(instrs, lw.lowerExpr(part)...)
			callee := rAppendNum
			if t == TBool {
				callee = rAppendBool
			} else if t == TString {
				callee = rAppendRaw
			}
			instrs = append(instrs, ir.Instr{
				Op: ir.OpCallVS, Callee: callee,
				Operands: []ir.Operand{ir.VarOperand(ir.Scratch), ir.VarOperand(ir.Scratch)},
				Store:    &cursor,
			})
		}
	}

	// Discard the final cursor; the chain's value is the buffer's start,
	// not where writing stopped.
	discard := lw.discardGlobal()
	instrs = append(instrs, ir.Instr{Op: ir.OpPull, Operands: []ir.Operand{ir.Const(uint16(ir.VarNumber(discard)))}})
	instrs = append(instrs, ir.Instr{Op: ir.OpPush, Operands: []ir.Operand{ir.AddrOperand(ir.AddrConcatBuffer)}})
	return instrs
}

// isConstFoldable reports whether e is a literal or a chain of "+" over
// literals - the only shape spec.md §9 permits a `set`'s string-valued
// RHS to take ("a `set $v to a + b` where both are strings is compiled
// only if both are compile-time constants (folded); otherwise it is a
// TypeError"). A variable, a random() call, or any other non-literal
// operand makes the whole chain non-foldable, since folding happens at
// lower time rather than by emitting runtime append calls.
func isConstFoldable(e script.Expr) bool {
	switch v := e.(type) {
	case script.IntExpr, script.BoolExpr, script.StrExpr:
		return true
	case script.BinExpr:
		return v.Op == script.OpAdd && isConstFoldable(v.Left) && isConstFoldable(v.Right)
	default:
		return false
	}
}

// flattenConcat collects the left-to-right operand list of a chain of
// "+" whose static type is string, stopping at any operand that is
// itself not a string-typed "+" (spec.md §4.5's concatenation lowering).
func flattenConcat(e script.Expr, types map[string]Type, diags *diag.Bag) []script.Expr {
	bin, ok := e.(script.BinExpr)
	if !ok || bin.Op != script.OpAdd {
		return []script.Expr{e}
	}
	if exprType(e, types, diags) != TString {
		return []script.Expr{e}
	}
	left := flattenConcat(bin.Left, types, diags)
	right := flattenConcat(bin.Right, types, diags)
	return append(left, right...)
}
