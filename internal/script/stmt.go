package script

import (
	"github.com/davetcode/zwreec/internal/diag"
	"github.com/davetcode/zwreec/internal/token"
)

// StmtKind tags the variant carried by a Stmt. A <<...>> macro resolves to
// exactly one of these forms (spec.md §4.3); If/Else/Endif are reported as
// their own sentinel kinds because their bodies are ordinary passage
// content living between macro invocations rather than inside this one -
// the story parser is what stitches Cond/Then/Else/Endif into story.IfNode.
type StmtKind int

const (
	StmtSet StmtKind = iota
	StmtPrint
	StmtDisplay
	StmtIf
	StmtElse
	StmtEndif
	StmtPrintShorthand
	StmtPrintLiteral
	StmtBareIdent
)

// Stmt is the parsed form of one macro's body (the tokens strictly
// between MacroOpen and MacroClose). Not every field is populated for
// every Kind; see the ParseMacroBody doc comment for which.
type Stmt struct {
	Kind    StmtKind
	Span    token.SourceSpan
	Var     string // StmtSet, StmtPrintShorthand
	Value   Expr   // StmtSet, StmtPrint
	Cond    Expr   // StmtIf
	Passage string // StmtDisplay
	Ident   string // StmtBareIdent, the raw identifier text
}

// ParseMacroBody classifies and parses the token stream of a single macro
// body per spec.md §4.3/§6.2:
//
//	<<set $var to Expr>>     -> StmtSet{Var, Value}
//	<<print Expr>>           -> StmtPrint{Value}
//	<<display "Name">>       -> StmtDisplay{Passage}
//	<<if Expr>>              -> StmtIf{Cond}
//	<<else>>                 -> StmtElse
//	<<endif>>                -> StmtEndif
//	<<$var>>                 -> StmtPrintShorthand{Var}
//	<<"literal">>             -> StmtPrintLiteral{Value}
//	<<Identifier>>           -> StmtBareIdent{Ident} (resolved by the story
//	                             parser per spec.md §9 Open Question 1:
//	                             a bare name matching a passage is Display,
//	                             otherwise it is a resolve error)
//
// toks must not include the surrounding MacroOpen/MacroClose tokens.
func ParseMacroBody(toks []token.Token, file string) (Stmt, *diag.Bag) {
	diags := &diag.Bag{}

	if len(toks) == 0 {
		return Stmt{}, emptyMacroError(file, diags)
	}

	first := toks[0]
	switch {
	case first.Kind == token.Keyword && first.Text == "set":
		return parseSet(toks, file, diags)

	case first.Kind == token.Keyword && first.Text == "print":
		expr, sub := ParseExpr(toks[1:], file)
		mergeDiags(diags, sub)
		return Stmt{Kind: StmtPrint, Span: spanOf(toks), Value: expr}, diags

	case first.Kind == token.Keyword && first.Text == "display":
		return parseDisplay(toks, file, diags)

	case first.Kind == token.Keyword && first.Text == "if":
		cond, sub := ParseExpr(toks[1:], file)
		mergeDiags(diags, sub)
		return Stmt{Kind: StmtIf, Span: spanOf(toks), Cond: cond}, diags

	case first.Kind == token.Keyword && first.Text == "else" && len(toks) == 1:
		return Stmt{Kind: StmtElse, Span: spanOf(toks)}, diags

	case first.Kind == token.Keyword && first.Text == "endif" && len(toks) == 1:
		return Stmt{Kind: StmtEndif, Span: spanOf(toks)}, diags

	case first.Kind == token.Variable && len(toks) == 1:
		return Stmt{Kind: StmtPrintShorthand, Span: spanOf(toks), Var: first.Name}, diags

	case first.Kind == token.StrLit && len(toks) == 1:
		return Stmt{Kind: StmtPrintLiteral, Span: spanOf(toks), Value: StrExpr{base: base{first.Span}, Value: first.Text}}, diags

	case first.Kind == token.Ident && len(toks) == 1:
		return Stmt{Kind: StmtBareIdent, Span: spanOf(toks), Ident: first.Text}, diags

	default:
		diags.Add(diag.AtSpan(diag.KindParse, spanOf(toks), "unrecognized macro form starting with %s", first))
		return Stmt{Kind: StmtBareIdent, Span: spanOf(toks)}, diags
	}
}

func parseSet(toks []token.Token, file string, diags *diag.Bag) (Stmt, *diag.Bag) {
	// toks[0] is "set".
	if len(toks) < 2 || toks[1].Kind != token.Variable {
		diags.Add(diag.AtSpan(diag.KindParse, spanOf(toks), "expected a $variable after 'set'"))
		return Stmt{Kind: StmtSet, Span: spanOf(toks)}, diags
	}
	varName := toks[1].Name

	if len(toks) < 3 || toks[2].Kind != token.Keyword || toks[2].Text != "to" {
		diags.Add(diag.AtSpan(diag.KindParse, spanOf(toks), "expected 'to' after 'set $%s'", varName))
		return Stmt{Kind: StmtSet, Span: spanOf(toks), Var: varName}, diags
	}

	value, sub := ParseExpr(toks[3:], file)
	mergeDiags(diags, sub)
	return Stmt{Kind: StmtSet, Span: spanOf(toks), Var: varName, Value: value}, diags
}

// parseDisplay accepts a bare identifier, a single-quoted string, or a
// double-quoted string interchangeably as the passage name, per spec.md
// §6.2's "display accepts a bare word or either quote style".
func parseDisplay(toks []token.Token, file string, diags *diag.Bag) (Stmt, *diag.Bag) {
	if len(toks) != 2 {
		diags.Add(diag.AtSpan(diag.KindParse, spanOf(toks), "expected a single passage name after 'display'"))
		return Stmt{Kind: StmtDisplay, Span: spanOf(toks)}, diags
	}
	name := toks[1]
	switch name.Kind {
	case token.StrLit:
		return Stmt{Kind: StmtDisplay, Span: spanOf(toks), Passage: name.Text}, diags
	case token.Ident, token.Keyword:
		return Stmt{Kind: StmtDisplay, Span: spanOf(toks), Passage: name.Text}, diags
	default:
		diags.Add(diag.AtSpan(diag.KindParse, name.Span, "expected a passage name, got %s", name))
		return Stmt{Kind: StmtDisplay, Span: spanOf(toks)}, diags
	}
}

func emptyMacroError(file string, diags *diag.Bag) *diag.Bag {
	diags.Add(diag.AtSpan(diag.KindParse, token.SourceSpan{File: file}, "empty macro body"))
	return diags
}

func spanOf(toks []token.Token) token.SourceSpan {
	if len(toks) == 0 {
		return token.SourceSpan{}
	}
	span := toks[0].Span
	for _, t := range toks[1:] {
		span = span.Union(t.Span)
	}
	return span
}

func mergeDiags(into, from *diag.Bag) {
	for _, d := range from.Errors() {
		into.Add(d)
	}
	for _, d := range from.Warnings() {
		into.Add(d)
	}
}
