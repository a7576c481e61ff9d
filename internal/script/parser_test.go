package script

import (
	"testing"

	"github.com/davetcode/zwreec/internal/lexer"
	"github.com/davetcode/zwreec/internal/token"
)

// macroTokens lexes a single passage whose body is exactly one macro and
// returns the tokens strictly between MacroOpen and MacroClose.
func macroTokens(t *testing.T, macro string) []token.Token {
	t.Helper()
	toks, bag := lexer.Lex("t.tw", []byte("::Start\n"+macro+"\n"))
	if bag.HasErrors() {
		t.Fatalf("unexpected lex errors: %v", bag.Errors())
	}
	var start, end int
	for i, tk := range toks {
		if tk.Kind == token.MacroOpen {
			start = i + 1
		}
		if tk.Kind == token.MacroClose {
			end = i
			break
		}
	}
	return toks[start:end]
}

func TestParseExprPrecedence(t *testing.T) {
	toks := macroTokens(t, "<<print 1 + 2 * 3>>")
	stmt, bag := ParseMacroBody(toks, "t.tw")
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Errors())
	}
	bin, ok := stmt.Value.(BinExpr)
	if !ok || bin.Op != OpAdd {
		t.Fatalf("expected top-level +, got %#v", stmt.Value)
	}
	rhs, ok := bin.Right.(BinExpr)
	if !ok || rhs.Op != OpMul {
		t.Fatalf("expected 2*3 nested under +, got %#v", bin.Right)
	}
}

func TestParseExprOrAndNot(t *testing.T) {
	toks := macroTokens(t, "<<print true and not false or true>>")
	stmt, bag := ParseMacroBody(toks, "t.tw")
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Errors())
	}
	top, ok := stmt.Value.(BinExpr)
	if !ok || top.Op != OpOr {
		t.Fatalf("expected top-level or, got %#v", stmt.Value)
	}
	left, ok := top.Left.(BinExpr)
	if !ok || left.Op != OpAnd {
		t.Fatalf("expected 'and' nested under 'or', got %#v", top.Left)
	}
	if _, ok := left.Right.(UnExpr); !ok {
		t.Fatalf("expected 'not false' nested under 'and', got %#v", left.Right)
	}
}

func TestParseExprIsSynonymForEq(t *testing.T) {
	toks := macroTokens(t, "<<print $x is 5>>")
	stmt, bag := ParseMacroBody(toks, "t.tw")
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Errors())
	}
	bin, ok := stmt.Value.(BinExpr)
	if !ok || bin.Op != OpEq {
		t.Fatalf("expected 'is' to parse as ==, got %#v", stmt.Value)
	}
}

func TestParseExprParens(t *testing.T) {
	toks := macroTokens(t, "<<print (1 + 2) * 3>>")
	stmt, bag := ParseMacroBody(toks, "t.tw")
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Errors())
	}
	bin, ok := stmt.Value.(BinExpr)
	if !ok || bin.Op != OpMul {
		t.Fatalf("expected top-level *, got %#v", stmt.Value)
	}
	if _, ok := bin.Left.(BinExpr); !ok {
		t.Fatalf("expected (1+2) nested under *, got %#v", bin.Left)
	}
}

func TestParseExprUnaryMinus(t *testing.T) {
	toks := macroTokens(t, "<<print -5 + 1>>")
	stmt, bag := ParseMacroBody(toks, "t.tw")
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Errors())
	}
	bin, ok := stmt.Value.(BinExpr)
	if !ok || bin.Op != OpAdd {
		t.Fatalf("expected top-level +, got %#v", stmt.Value)
	}
	un, ok := bin.Left.(UnExpr)
	if !ok || un.Op != OpNeg {
		t.Fatalf("expected unary minus on left operand, got %#v", bin.Left)
	}
}

func TestParseRandom(t *testing.T) {
	toks := macroTokens(t, "<<print random(1, 10)>>")
	stmt, bag := ParseMacroBody(toks, "t.tw")
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Errors())
	}
	rnd, ok := stmt.Value.(RandomExpr)
	if !ok {
		t.Fatalf("expected RandomExpr, got %#v", stmt.Value)
	}
	lo, ok := rnd.Lo.(IntExpr)
	if !ok || lo.Value != 1 {
		t.Fatalf("expected lo=1, got %#v", rnd.Lo)
	}
	hi, ok := rnd.Hi.(IntExpr)
	if !ok || hi.Value != 10 {
		t.Fatalf("expected hi=10, got %#v", rnd.Hi)
	}
}

func TestParseExprTrailingGarbageErrors(t *testing.T) {
	toks := macroTokens(t, "<<print 1 2>>")
	_, bag := ParseMacroBody(toks, "t.tw")
	if !bag.HasErrors() {
		t.Fatal("expected a parse error for trailing tokens after the expression")
	}
}

func TestParseExprUnclosedParenErrors(t *testing.T) {
	toks := macroTokens(t, "<<print (1 + 2>>")
	_, bag := ParseMacroBody(toks, "t.tw")
	if !bag.HasErrors() {
		t.Fatal("expected a parse error for an unclosed paren")
	}
}
