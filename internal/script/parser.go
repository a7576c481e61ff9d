package script

import (
	"github.com/davetcode/zwreec/internal/diag"
	"github.com/davetcode/zwreec/internal/token"
)

// parser is a recursive-descent parser over a single macro body's token
// stream (the tokens between MacroOpen and MacroClose, exclusive), using
// the precedence ladder from spec.md §4.3:
//
//	or < and < not < comparison < additive < multiplicative < unary-minus < primary
type parser struct {
	toks  []token.Token
	pos   int
	file  string
	diags *diag.Bag
}

// ParseExpr parses toks as a single complete expression. Any tokens left
// over after a full expression is parsed are a ParseError.
func ParseExpr(toks []token.Token, file string) (Expr, *diag.Bag) {
	p := &parser{toks: toks, file: file, diags: &diag.Bag{}}
	expr := p.parseOr()
	if p.pos != len(p.toks) {
		p.errorf(p.cur().Span, "unexpected token %s after expression", p.cur())
	}
	return expr, p.diags
}

func (p *parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		if len(p.toks) > 0 {
			last := p.toks[len(p.toks)-1]
			return token.Token{Kind: token.Eof, Span: token.SourceSpan{File: p.file, Offset: last.Span.End()}}
		}
		return token.Token{Kind: token.Eof, Span: token.SourceSpan{File: p.file}}
	}
	return p.toks[p.pos]
}

func (p *parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) errorf(span token.SourceSpan, format string, args ...interface{}) {
	p.diags.Add(diag.AtSpan(diag.KindParse, span, format, args...))
}

func (p *parser) isOp(sym string) bool {
	t := p.cur()
	return t.Kind == token.Op && t.Text == sym
}

func (p *parser) isKeyword(kw string) bool {
	t := p.cur()
	return t.Kind == token.Keyword && t.Text == kw
}

func (p *parser) parseOr() Expr {
	left := p.parseAnd()
	for p.isKeyword("or") {
		opSpan := p.advance().Span
		right := p.parseAnd()
		left = BinExpr{base: base{left.Span().Union(right.Span()).Union(opSpan)}, Op: OpOr, Left: left, Right: right}
	}
	return left
}

func (p *parser) parseAnd() Expr {
	left := p.parseNot()
	for p.isKeyword("and") {
		opSpan := p.advance().Span
		right := p.parseNot()
		left = BinExpr{base: base{left.Span().Union(right.Span()).Union(opSpan)}, Op: OpAnd, Left: left, Right: right}
	}
	return left
}

func (p *parser) parseNot() Expr {
	if p.isKeyword("not") {
		opSpan := p.advance().Span
		operand := p.parseNot()
		return UnExpr{base: base{opSpan.Union(operand.Span())}, Op: OpNot, Operand: operand}
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() Expr {
	left := p.parseAdditive()

	op, ok := p.comparisonOp()
	if !ok {
		return left
	}
	opSpan := p.advance().Span
	right := p.parseAdditive()
	return BinExpr{base: base{left.Span().Union(right.Span()).Union(opSpan)}, Op: op, Left: left, Right: right}
}

func (p *parser) comparisonOp() (BinOp, bool) {
	t := p.cur()
	if t.Kind == token.Keyword && t.Text == "is" {
		return OpEq, true
	}
	if t.Kind != token.Op {
		return 0, false
	}
	switch t.Text {
	case "==":
		return OpEq, true
	case "!=":
		return OpNeq, true
	case "<":
		return OpLt, true
	case "<=":
		return OpLte, true
	case ">":
		return OpGt, true
	case ">=":
		return OpGte, true
	}
	return 0, false
}

func (p *parser) parseAdditive() Expr {
	left := p.parseMultiplicative()
	for p.isOp("+") || p.isOp("-") {
		op := OpAdd
		if p.cur().Text == "-" {
			op = OpSub
		}
		opSpan := p.advance().Span
		right := p.parseMultiplicative()
		left = BinExpr{base: base{left.Span().Union(right.Span()).Union(opSpan)}, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *parser) parseMultiplicative() Expr {
	left := p.parseUnaryMinus()
	for p.isOp("*") || p.isOp("/") {
		op := OpMul
		if p.cur().Text == "/" {
			op = OpDiv
		}
		opSpan := p.advance().Span
		right := p.parseUnaryMinus()
		left = BinExpr{base: base{left.Span().Union(right.Span()).Union(opSpan)}, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *parser) parseUnaryMinus() Expr {
	if p.isOp("-") {
		opSpan := p.advance().Span
		operand := p.parseUnaryMinus()
		return UnExpr{base: base{opSpan.Union(operand.Span())}, Op: OpNeg, Operand: operand}
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() Expr {
	t := p.cur()
	switch {
	case t.Kind == token.IntLit:
		p.advance()
		return IntExpr{base: base{t.Span}, Value: t.Int}

	case t.Kind == token.StrLit:
		p.advance()
		return StrExpr{base: base{t.Span}, Value: t.Text}

	case t.Kind == token.Keyword && t.Text == "true":
		p.advance()
		return BoolExpr{base: base{t.Span}, Value: true}

	case t.Kind == token.Keyword && t.Text == "false":
		p.advance()
		return BoolExpr{base: base{t.Span}, Value: false}

	case t.Kind == token.Variable:
		p.advance()
		return VarExpr{base: base{t.Span}, Name: t.Name}

	case t.Kind == token.Keyword && t.Text == "random":
		return p.parseRandom()

	case t.Kind == token.Op && t.Text == "(":
		p.advance()
		inner := p.parseOr()
		if !p.isOp(")") {
			p.errorf(p.cur().Span, "expected ')' after expression")
			return inner
		}
		closeSpan := p.advance().Span
		return withSpan(inner, t.Span.Union(closeSpan))

	default:
		p.errorf(t.Span, "malformed expression: unexpected token %s", t)
		p.advance()
		return IntExpr{base: base{t.Span}, Value: 0}
	}
}

// withSpan rewraps e with span s, used only so a parenthesized expression
// reports the full "(...)" span rather than its inner span.
func withSpan(e Expr, s token.SourceSpan) Expr {
	switch v := e.(type) {
	case IntExpr:
		v.span = s
		return v
	case BoolExpr:
		v.span = s
		return v
	case StrExpr:
		v.span = s
		return v
	case VarExpr:
		v.span = s
		return v
	case BinExpr:
		v.span = s
		return v
	case UnExpr:
		v.span = s
		return v
	case RandomExpr:
		v.span = s
		return v
	default:
		return e
	}
}

func (p *parser) parseRandom() Expr {
	start := p.advance().Span // consume 'random'
	if !p.isOp("(") {
		p.errorf(p.cur().Span, "expected '(' after random")
		return IntExpr{base: base{start}, Value: 0}
	}
	p.advance()
	lo := p.parseOr()
	if !p.isOp(",") {
		p.errorf(p.cur().Span, "expected ',' in random(lo, hi)")
		return RandomExpr{base: base{start}, Lo: lo, Hi: lo}
	}
	p.advance()
	hi := p.parseOr()
	if !p.isOp(")") {
		p.errorf(p.cur().Span, "expected ')' after random(lo, hi)")
		return RandomExpr{base: base{start.Union(hi.Span())}, Lo: lo, Hi: hi}
	}
	closeSpan := p.advance().Span
	return RandomExpr{base: base{start.Union(closeSpan)}, Lo: lo, Hi: hi}
}
