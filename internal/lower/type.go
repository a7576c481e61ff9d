package lower

import (
	"github.com/davetcode/zwreec/internal/diag"
	"github.com/davetcode/zwreec/internal/script"
	"github.com/davetcode/zwreec/internal/story"
)

// Type is a variable or expression's static storage kind, spec.md §4.3:
// "Variables are dynamically typed in the source but statically typed in
// the IR: the first assignment to a variable fixes its storage kind."
type Type int

const (
	TInt Type = iota
	TBool
	TString
)

func (t Type) String() string {
	switch t {
	case TInt:
		return "int"
	case TBool:
		return "bool"
	case TString:
		return "string"
	default:
		return "?"
	}
}

// inferVarTypes walks every <<set>> in source order across the whole
// story and fixes each variable's storage kind at its first assignment;
// a later assignment of a different kind promotes it to string (spec.md
// §4.3), since string is the only kind every other kind can always
// coerce into (via its decimal or "true"/"false" textual form).
func inferVarTypes(passages []story.Passage, file string) (map[string]Type, *diag.Bag) {
	types := make(map[string]Type)
	diags := &diag.Bag{}

	var walk func(nodes []story.BodyNode)
	walk = func(nodes []story.BodyNode) {
		for _, n := range nodes {
			switch v := n.(type) {
			case story.StyledNode:
				walk(v.Children)
			case story.LinkNode:
				walk(v.Label)
			case story.IfNode:
				exprType(v.Cond, types, diags)
				walk(v.Then)
				walk(v.Else)
			case story.MacroNode:
				switch v.Stmt.Kind {
				case script.StmtSet:
					valType := exprType(v.Stmt.Value, types, diags)
					if existing, seen := types[v.Stmt.Var]; !seen {
						types[v.Stmt.Var] = valType
					} else if existing != valType {
						types[v.Stmt.Var] = TString
					}
				case script.StmtPrint:
					exprType(v.Stmt.Value, types, diags)
				case script.StmtPrintShorthand:
					if _, seen := types[v.Stmt.Var]; !seen {
						types[v.Stmt.Var] = TInt // "unassigned reads yield integer 0"
					}
				}
			}
		}
	}

	for _, p := range passages {
		walk(p.Body)
	}

	return types, diags
}

// exprType computes e's static type, recording a KindType diagnostic for
// spec.md §4.3's "comparison between differing primary types is a
// compile-time error."
func exprType(e script.Expr, types map[string]Type, diags *diag.Bag) Type {
	switch v := e.(type) {
	case nil:
		return TInt

	case script.IntExpr:
		return TInt
	case script.BoolExpr:
		return TBool
	case script.StrExpr:
		return TString
	case script.VarExpr:
		if t, ok := types[v.Name]; ok {
			return t
		}
		return TInt

	case script.UnExpr:
		operand := exprType(v.Operand, types, diags)
		switch v.Op {
		case script.OpNot:
			return TBool
		default: // OpNeg
			_ = operand
			return TInt
		}

	case script.RandomExpr:
		exprType(v.Lo, types, diags)
		exprType(v.Hi, types, diags)
		return TInt

	case script.BinExpr:
		left := exprType(v.Left, types, diags)
		right := exprType(v.Right, types, diags)
		switch v.Op {
		case script.OpAdd:
			if left == TString || right == TString {
				return TString
			}
			return TInt
		case script.OpSub, script.OpMul, script.OpDiv:
			return TInt
		case script.OpAnd, script.OpOr:
			return TBool
		default: // comparisons
			if left != right {
				diags.Add(diag.AtSpan(diag.KindType, v.Span(),
					"comparison between differing types %s and %s", left, right))
			}
			return TBool
		}

	default:
		return TInt
	}
}
