// Package script implements the embedded scripting sublanguage used
// inside "<<...>>" macros: its expression/statement grammar (spec.md
// §4.3) and the recursive-descent parser that builds it. The AST types
// below are concrete structs per variant - the same flat-struct style the
// teacher uses for Object/DictionaryEntry/Opcode rather than a generic
// tagged-union container.
package script

import "github.com/davetcode/zwreec/internal/token"

// Expr is any node of spec.md §3's Expr variant: Int, Bool, Str, Var, Bin,
// Un, or the single permitted Call ("random").
type Expr interface {
	Span() token.SourceSpan
	exprNode()
}

type base struct {
	span token.SourceSpan
}

func (b base) Span() token.SourceSpan { return b.span }

type IntExpr struct {
	base
	Value int64
}

type BoolExpr struct {
	base
	Value bool
}

type StrExpr struct {
	base
	Value string
}

type VarExpr struct {
	base
	Name string
}

// BinOp enumerates the binary operators of spec.md §3/§4.3.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpEq // == or "is"
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpAnd
	OpOr
)

func (op BinOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	default:
		return "?"
	}
}

type BinExpr struct {
	base
	Op          BinOp
	Left, Right Expr
}

// UnOp enumerates the unary operators: "not" and unary minus.
type UnOp int

const (
	OpNot UnOp = iota
	OpNeg
)

type UnExpr struct {
	base
	Op      UnOp
	Operand Expr
}

// RandomExpr is the sole permitted function call form, spec.md §3:
// `Call("random", [Expr, Expr])`.
type RandomExpr struct {
	base
	Lo, Hi Expr
}

func (IntExpr) exprNode()    {}
func (BoolExpr) exprNode()   {}
func (StrExpr) exprNode()    {}
func (VarExpr) exprNode()    {}
func (BinExpr) exprNode()    {}
func (UnExpr) exprNode()     {}
func (RandomExpr) exprNode() {}
