// Package lower turns a parsed story (internal/story) into an
// internal/ir.Module: one routine per passage plus the synthesized
// entry point and concatenation helpers, per spec.md §4.5.
package lower

import (
	"fmt"

	"github.com/davetcode/zwreec/internal/diag"
	"github.com/davetcode/zwreec/internal/ir"
	"github.com/davetcode/zwreec/internal/script"
	"github.com/davetcode/zwreec/internal/story"
	"github.com/davetcode/zwreec/internal/token"
)

// linkEntry is one entry in a passage's link table, in presentation
// order (spec.md §4.5: "one link table per passage; order of declaration
// is the presented order").
type linkEntry struct {
	Target string
}

type lowerer struct {
	module *ir.Module
	types  map[string]Type
	diags  *diag.Bag
	file   string

	labelN     int
	usedConcat bool

	links      []linkEntry
	styleStack []uint16
}

func (lw *lowerer) newLabel(prefix string) string {
	lw.labelN++
	return fmt.Sprintf("%s_%d", prefix, lw.labelN)
}

// Lower runs static type inference over the whole story and then builds
// one ir.Routine per passage, plus the synthesized entry point and (if
// any concatenation was used) the concat helper routines.
func Lower(passages []story.Passage, file string) (*ir.Module, *diag.Bag) {
	types, diags := inferVarTypes(passages, file)

	module := ir.NewModule()
	lw := &lowerer{module: module, types: types, diags: diags, file: file}

	for _, p := range passages {
		module.Routines = append(module.Routines, lw.lowerPassage(p))
	}

	module.Routines = append(module.Routines, printCStrRoutine())
	if lw.usedConcat {
		trueID := module.InternRaw("true")
		falseID := module.InternRaw("false")
		module.Routines = append(module.Routines, concatHelperRoutines(trueID, falseID)...)
	}
	module.Routines = append(module.Routines, randomRangeRoutine())
	module.Routines = append(module.Routines, lw.mainRoutine())

	return module, diags
}

// reserved globals used by the link-dispatch outer loop (spec.md §4.5's
// "read-input + jump-to-selected-target epilogue" and the synthesized
// entry point's "outer read loop"), distinct from any story variable.
func (lw *lowerer) nextRoutineGlobal() ir.Var {
	return ir.Var{Kind: ir.VarGlobal, Num: lw.module.ReservedGlobal("__next_routine")}
}

func (lw *lowerer) inputKeyGlobal() ir.Var {
	return ir.Var{Kind: ir.VarGlobal, Num: lw.module.ReservedGlobal("__input_key")}
}

// discardGlobal is a landing spot for a stack value a caller needs to pop
// but has no further use for (e.g. concat.go's final write cursor once the
// buffer's base address, not its end, is the chain's result).
func (lw *lowerer) discardGlobal() ir.Var {
	return ir.Var{Kind: ir.VarGlobal, Num: lw.module.ReservedGlobal("__discard")}
}

// mainRoutine is the synthesized entry point: it starts at R_Start and,
// after each passage returns, calls whatever routine the link-dispatch
// epilogue left in the next-routine global, until a passage clears it,
// then quits. Each passage routine is responsible for leaving the
// global either cleared (its own lowerPassage no-links path) or set to
// a new target (its link-dispatch epilogue) before returning - this is
// what "the dispatch epilogue prevents unbounded recursion by deferring
// to the outer read loop" (spec.md §4.5) means in practice: the loop
// itself never has to guess whether a transition happened.
func (lw *lowerer) mainRoutine() ir.Routine {
	next := lw.nextRoutineGlobal()
	discard := ir.Scratch
	return ir.Routine{
		Name: "R_Main",
		Body: []ir.Instr{
			{Op: ir.OpStore, Operands: []ir.Operand{ir.Const(uint16(ir.VarNumber(next))), ir.RoutineAddr("R_Start")}},
			{Op: ir.OpLabel, LabelName: "main_loop"},
			{Op: ir.OpJZ, Operands: []ir.Operand{ir.VarOperand(next)}, Label: "main_end", Sense: ir.BranchOnTrue},
			{Op: ir.OpCallVS, Operands: []ir.Operand{ir.VarOperand(next)}, Store: &discard},
			{Op: ir.OpJump, Label: "main_loop"},
			{Op: ir.OpLabel, LabelName: "main_end"},
			{Op: ir.OpQuit},
		},
	}
}

// lowerPassage lowers one passage to its routine. Per spec.md §4.5 every
// passage routine has 0 declared locals; all intermediate values live on
// the shared expression stack slot or in reserved globals.
func (lw *lowerer) lowerPassage(p story.Passage) ir.Routine {
	lw.links = nil
	body := lw.lowerBody(p.Body)

	if len(lw.links) > 0 {
		body = append(body, lw.linkDispatchEpilogue()...)
	} else {
		next := lw.nextRoutineGlobal()
		body = append(body,
			ir.Instr{Op: ir.OpStore, Operands: []ir.Operand{ir.Const(uint16(ir.VarNumber(next))), ir.Const(0)}},
			ir.Instr{Op: ir.OpRtrue},
		)
	}

	return ir.Routine{Name: "R_" + p.Name, Locals: 0, Body: body}
}

// linkDispatchEpilogue reads one keypress and, if it names a presented
// link, stores that link's target routine address into the next-routine
// global and returns; on an unrecognized key it reads again.
func (lw *lowerer) linkDispatchEpilogue() []ir.Instr {
	next := lw.nextRoutineGlobal()
	key := lw.inputKeyGlobal()
	loopLbl := lw.newLabel("links_read")
	doneLbl := lw.newLabel("links_done")

	var instrs []ir.Instr
	instrs = append(instrs,
		ir.Instr{Op: ir.OpLabel, LabelName: loopLbl},
		ir.Instr{Op: ir.OpReadChar, Operands: []ir.Operand{ir.Const(1)}, Store: &key},
	)

	selectLbl := make([]string, len(lw.links))
	for i := range lw.links {
		selectLbl[i] = lw.newLabel("links_sel")
		instrs = append(instrs, ir.Instr{
			Op:       ir.OpJE,
			Operands: []ir.Operand{ir.VarOperand(key), ir.Const(uint16('1' + i))},
			Label:    selectLbl[i],
			Sense:    ir.BranchOnTrue,
		})
	}
	instrs = append(instrs, ir.Instr{Op: ir.OpJump, Label: loopLbl})

	for i, link := range lw.links {
		instrs = append(instrs,
			ir.Instr{Op: ir.OpLabel, LabelName: selectLbl[i]},
			ir.Instr{Op: ir.OpStore, Operands: []ir.Operand{ir.Const(uint16(ir.VarNumber(next))), ir.RoutineAddr("R_" + link.Target)}},
			ir.Instr{Op: ir.OpJump, Label: doneLbl},
		)
	}
	instrs = append(instrs,
		ir.Instr{Op: ir.OpLabel, LabelName: doneLbl},
		ir.Instr{Op: ir.OpRtrue},
	)
	return instrs
}

// lowerBody lowers a sequence of body nodes in source order.
func (lw *lowerer) lowerBody(nodes []story.BodyNode) []ir.Instr {
	var instrs []ir.Instr
	for _, n := range nodes {
		switch v := n.(type) {
		case story.TextNode:
			id := lw.module.Intern(v.Value)
			instrs = append(instrs, ir.Instr{Op: ir.OpPrintPaddr, StringID: id})

		case story.StyledNode:
			instrs = append(instrs, lw.lowerStyled(v)...)

		case story.LinkNode:
			instrs = append(instrs, lw.lowerLink(v)...)

		case story.MacroNode:
			instrs = append(instrs, lw.lowerStmt(v.Stmt)...)

		case story.IfNode:
			instrs = append(instrs, lw.lowerIf(v)...)
		}
	}
	return instrs
}

func styleMask(kind token.StyleKind) uint16 {
	switch kind {
	case token.Bold:
		return 2
	case token.Italic:
		return 4
	case token.Mono:
		return 8
	default:
		return 0
	}
}

func (lw *lowerer) lowerStyled(v story.StyledNode) []ir.Instr {
	top := uint16(0)
	if len(lw.styleStack) > 0 {
		top = lw.styleStack[len(lw.styleStack)-1]
	}
	combined := top | styleMask(v.Kind)
	lw.styleStack = append(lw.styleStack, combined)

	instrs := []ir.Instr{{Op: ir.OpSetTextStyle, Operands: []ir.Operand{ir.Const(combined)}}}
	instrs = append(instrs, lw.lowerBody(v.Children)...)

	lw.styleStack = lw.styleStack[:len(lw.styleStack)-1]
	restore := uint16(0)
	if len(lw.styleStack) > 0 {
		restore = lw.styleStack[len(lw.styleStack)-1]
	}
	instrs = append(instrs, ir.Instr{Op: ir.OpSetTextStyle, Operands: []ir.Operand{ir.Const(restore)}})
	return instrs
}

// lowerLink prints a numbered marker and the label, and registers the
// target in this passage's link table (spec.md §9 Open Question 3: style
// formatting inside the label is emitted around the label's content).
func (lw *lowerer) lowerLink(v story.LinkNode) []ir.Instr {
	idx := len(lw.links) + 1
	lw.links = append(lw.links, linkEntry{Target: v.Target})

	marker := lw.module.Intern(fmt.Sprintf("[%d] ", idx))
	instrs := []ir.Instr{{Op: ir.OpPrintPaddr, StringID: marker}}
	instrs = append(instrs, lw.lowerBody(v.Label)...)
	nl := lw.module.Intern("\n")
	instrs = append(instrs, ir.Instr{Op: ir.OpPrintPaddr, StringID: nl})
	return instrs
}

func (lw *lowerer) lowerIf(v story.IfNode) []ir.Instr {
	elseLbl := lw.newLabel("if_else")
	endLbl := lw.newLabel("if_end")

	instrs := lw.lowerExpr(v.Cond)
	instrs = append(instrs, ir.Instr{Op: ir.OpJZ, Operands: []ir.Operand{ir.VarOperand(ir.Scratch)}, Label: elseLbl, Sense: ir.BranchOnTrue})
	instrs = append(instrs, lw.lowerBody(v.Then)...)
	instrs = append(instrs, ir.Instr{Op: ir.OpJump, Label: endLbl})
	instrs = append(instrs, ir.Instr{Op: ir.OpLabel, LabelName: elseLbl})
	instrs = append(instrs, lw.lowerBody(v.Else)...)
	instrs = append(instrs, ir.Instr{Op: ir.OpLabel, LabelName: endLbl})
	return instrs
}

func (lw *lowerer) lowerStmt(s script.Stmt) []ir.Instr {
	switch s.Kind {
	case script.StmtSet:
		if bin, ok := s.Value.(script.BinExpr); ok && bin.Op == script.OpAdd {
			if exprType(s.Value, lw.types, lw.diags) == TString && !isConstFoldable(bin) {
				lw.diags.Add(diag.AtSpan(diag.KindType, bin.Span(),
					"set %q to a string concatenation requires both operands to be compile-time "+
						"constants - the Z-Machine back end has no runtime string heap, so a "+
						"non-constant concatenation can only be printed, not assigned", s.Var))
			}
		}
		g := ir.Var{Kind: ir.VarGlobal, Num: lw.module.GlobalFor(s.Var)}
		instrs := lw.lowerExpr(s.Value)
		instrs = append(instrs, ir.Instr{Op: ir.OpStore, Operands: []ir.Operand{ir.Const(uint16(ir.VarNumber(g))), ir.VarOperand(ir.Scratch)}})
		return instrs

	case script.StmtPrint:
		return lw.lowerPrint(s.Value)

	case script.StmtPrintShorthand:
		return lw.lowerPrint(script.VarExpr{Name: s.Var})

	case script.StmtPrintLiteral:
		text := ""
		if lit, ok := s.Value.(script.StrExpr); ok {
			text = lit.Value
		}
		return []ir.Instr{{Op: ir.OpPrintLiteral, Literal: text}}

	case script.StmtDisplay:
		return []ir.Instr{{Op: ir.OpCall1N, Callee: "R_" + s.Passage}}

	default:
		return nil
	}
}

// lowerPrint dispatches on e's static type, per spec.md §4.5: integers
// print with print_num, strings (literal or concatenated, both
// represented as a raw-string address) via R_print_cstr, and booleans
// branch at runtime between the literal "true"/"false" text.
func (lw *lowerer) lowerPrint(e script.Expr) []ir.Instr {
	t := exprType(e, lw.types, lw.diags)
	instrs := lw.lowerExpr(e)

	switch t {
	case TInt:
		return append(instrs, ir.Instr{Op: ir.OpPrintNum, Operands: []ir.Operand{ir.VarOperand(ir.Scratch)}})

	case TString:
		discard := ir.Scratch
		return append(instrs, ir.Instr{Op: ir.OpCallVS, Callee: rPrintCStr, Operands: []ir.Operand{ir.VarOperand(ir.Scratch)}, Store: &discard})

	default: // TBool
		falseLbl, endLbl := lw.newLabel("pb_false"), lw.newLabel("pb_end")
		instrs = append(instrs, ir.Instr{Op: ir.OpJZ, Operands: []ir.Operand{ir.VarOperand(ir.Scratch)}, Label: falseLbl, Sense: ir.BranchOnTrue})
		instrs = append(instrs,
			ir.Instr{Op: ir.OpPrintLiteral, Literal: "true"},
			ir.Instr{Op: ir.OpJump, Label: endLbl},
			ir.Instr{Op: ir.OpLabel, LabelName: falseLbl},
			ir.Instr{Op: ir.OpPrintLiteral, Literal: "false"},
			ir.Instr{Op: ir.OpLabel, LabelName: endLbl},
		)
		return instrs
	}
}
