package script

import (
	"testing"

	"github.com/davetcode/zwreec/internal/token"
)

func TestParseMacroBodySet(t *testing.T) {
	toks := macroTokens(t, "<<set $x to 5 + 1>>")
	stmt, bag := ParseMacroBody(toks, "t.tw")
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Errors())
	}
	if stmt.Kind != StmtSet || stmt.Var != "x" {
		t.Fatalf("expected StmtSet{Var: x}, got %#v", stmt)
	}
	if _, ok := stmt.Value.(BinExpr); !ok {
		t.Fatalf("expected BinExpr value, got %#v", stmt.Value)
	}
}

func TestParseMacroBodySetMissingTo(t *testing.T) {
	toks := macroTokens(t, "<<set $x 5>>")
	_, bag := ParseMacroBody(toks, "t.tw")
	if !bag.HasErrors() {
		t.Fatal("expected a parse error for a missing 'to'")
	}
}

func TestParseMacroBodyDisplayBareWord(t *testing.T) {
	toks := macroTokens(t, "<<display Kitchen>>")
	stmt, bag := ParseMacroBody(toks, "t.tw")
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Errors())
	}
	if stmt.Kind != StmtDisplay || stmt.Passage != "Kitchen" {
		t.Fatalf("expected StmtDisplay{Passage: Kitchen}, got %#v", stmt)
	}
}

func TestParseMacroBodyDisplayQuoted(t *testing.T) {
	toks := macroTokens(t, `<<display "The Kitchen">>`)
	stmt, bag := ParseMacroBody(toks, "t.tw")
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Errors())
	}
	if stmt.Kind != StmtDisplay || stmt.Passage != "The Kitchen" {
		t.Fatalf("expected StmtDisplay{Passage: \"The Kitchen\"}, got %#v", stmt)
	}
}

func TestParseMacroBodyIf(t *testing.T) {
	toks := macroTokens(t, "<<if $x > 0>>")
	stmt, bag := ParseMacroBody(toks, "t.tw")
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Errors())
	}
	if stmt.Kind != StmtIf {
		t.Fatalf("expected StmtIf, got %#v", stmt)
	}
	bin, ok := stmt.Cond.(BinExpr)
	if !ok || bin.Op != OpGt {
		t.Fatalf("expected condition $x > 0, got %#v", stmt.Cond)
	}
}

func TestParseMacroBodyElseEndif(t *testing.T) {
	els := macroTokens(t, "<<else>>")
	stmt, bag := ParseMacroBody(els, "t.tw")
	if bag.HasErrors() || stmt.Kind != StmtElse {
		t.Fatalf("expected StmtElse, got %#v (errs %v)", stmt, bag.Errors())
	}

	end := macroTokens(t, "<<endif>>")
	stmt, bag = ParseMacroBody(end, "t.tw")
	if bag.HasErrors() || stmt.Kind != StmtEndif {
		t.Fatalf("expected StmtEndif, got %#v (errs %v)", stmt, bag.Errors())
	}
}

func TestParseMacroBodyPrintShorthand(t *testing.T) {
	toks := macroTokens(t, "<<$score>>")
	stmt, bag := ParseMacroBody(toks, "t.tw")
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Errors())
	}
	if stmt.Kind != StmtPrintShorthand || stmt.Var != "score" {
		t.Fatalf("expected StmtPrintShorthand{Var: score}, got %#v", stmt)
	}
}

func TestParseMacroBodyPrintLiteralShorthand(t *testing.T) {
	toks := macroTokens(t, `<<"hello">>`)
	stmt, bag := ParseMacroBody(toks, "t.tw")
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Errors())
	}
	if stmt.Kind != StmtPrintLiteral {
		t.Fatalf("expected StmtPrintLiteral, got %#v", stmt)
	}
	str, ok := stmt.Value.(StrExpr)
	if !ok || str.Value != "hello" {
		t.Fatalf("expected literal \"hello\", got %#v", stmt.Value)
	}
}

func TestParseMacroBodyBareIdent(t *testing.T) {
	toks := macroTokens(t, "<<Kitchen>>")
	stmt, bag := ParseMacroBody(toks, "t.tw")
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Errors())
	}
	if stmt.Kind != StmtBareIdent || stmt.Ident != "Kitchen" {
		t.Fatalf("expected StmtBareIdent{Ident: Kitchen}, got %#v", stmt)
	}
}

func TestParseMacroBodyEmpty(t *testing.T) {
	_, bag := ParseMacroBody([]token.Token{}, "t.tw")
	if !bag.HasErrors() {
		t.Fatal("expected a parse error for an empty macro body")
	}
}
