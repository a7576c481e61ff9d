package story

import (
	"github.com/davetcode/zwreec/internal/diag"
	"github.com/davetcode/zwreec/internal/script"
	"github.com/davetcode/zwreec/internal/token"
)

// Parse partitions toks by PassageHeader (spec.md §4.4) and builds each
// passage's body by structural matching of the prose/style/link/macro
// tokens the lexer produced. It also enforces spec.md §3's "exactly one
// Start passage" invariant and runs the post-parse warning passes of
// spec.md §7 (unreachable passages, unread variables).
func Parse(toks []token.Token, file string) ([]Passage, *diag.Bag) {
	diags := &diag.Bag{}

	names := collectPassageNames(toks)

	p := &parser{toks: toks, file: file, diags: diags, names: names}
	var passages []Passage
	for p.cur().Kind != token.Eof {
		if p.cur().Kind != token.PassageHeader {
			// Tokens before the first "::" header are not valid story
			// content; this only happens on malformed input the lexer
			// otherwise accepted (e.g. leading prose with no passage).
			p.errorf(p.cur().Span, "content outside of any passage")
			p.advance()
			continue
		}
		passages = append(passages, p.parsePassage())
	}

	validateStartPassage(passages, file, diags)
	validateLinkTargets(passages, diags)
	checkReachability(passages, diags)
	checkUnusedVariables(passages, diags)

	return passages, diags
}

type parser struct {
	toks  []token.Token
	pos   int
	file  string
	diags *diag.Bag
	names map[string]bool

	inLink bool
}

func (p *parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Kind: token.Eof}
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

func collectPassageNames(toks []token.Token) map[string]bool {
	names := make(map[string]bool)
	for _, t := range toks {
		if t.Kind == token.PassageHeader {
			names[t.Name] = true
		}
	}
	return names
}

func (p *parser) parsePassage() Passage {
	header := p.advance() // PassageHeader
	body, _, _ := p.parseBodyUntil()
	return Passage{Name: header.Name, Tags: header.Tags, Body: body, Span: header.Span}
}

// parseBodyUntil parses body nodes until it reaches a passage boundary,
// EOF, an unmatched <<else>>, or an unmatched <<endif>>. It returns which
// of the latter two stopped it (both false at EOF/passage boundary) so
// parseIf can tell a real <<else>>/<<endif>> from running off the end.
func (p *parser) parseBodyUntil() ([]BodyNode, bool, bool) {
	var nodes []BodyNode
	for {
		t := p.cur()
		switch t.Kind {
		case token.Eof, token.PassageHeader:
			return nodes, false, false

		case token.Text:
			p.advance()
			nodes = append(nodes, TextNode{nodeBase{t.Span}, t.Text})

		case token.StyleOpen:
			nodes = append(nodes, p.parseStyled())

		case token.StyleClose:
			p.errorf(t.Span, "unexpected closing %s style with no matching open", t.Style)
			p.advance()

		case token.LinkOpen:
			nodes = append(nodes, p.parseLink())

		case token.MacroOpen:
			node, sawElse, sawEndif, done := p.parseMacro()
			if sawElse || sawEndif {
				return nodes, sawElse, sawEndif
			}
			if done {
				nodes = append(nodes, node)
			}

		default:
			p.errorf(t.Span, "unexpected token %s in passage body", t)
			p.advance()
		}
	}
}

func (p *parser) parseStyled() BodyNode {
	open := p.advance() // StyleOpen
	kind := open.Style

	var children []BodyNode
	for {
		t := p.cur()
		switch t.Kind {
		case token.Eof, token.PassageHeader:
			p.errorf(open.Span, "%s style opened but never closed", kind)
			return StyledNode{nodeBase{open.Span}, kind, children}

		case token.StyleClose:
			if t.Style != kind {
				p.errorf(t.Span, "mismatched style close: expected %s, got %s", kind, t.Style)
				p.advance()
				continue
			}
			closeSpan := t.Span
			p.advance()
			return StyledNode{nodeBase{open.Span.Union(closeSpan)}, kind, children}

		case token.Text:
			p.advance()
			children = append(children, TextNode{nodeBase{t.Span}, t.Text})

		case token.StyleOpen:
			children = append(children, p.parseStyled())

		case token.LinkOpen:
			children = append(children, p.parseLink())

		case token.MacroOpen:
			node, sawElse, sawEndif, done := p.parseMacro()
			if sawElse || sawEndif {
				// An if/else/endif straddling a style boundary is
				// malformed; report it and stop this style span here.
				p.errorf(t.Span, "if/else/endif may not cross a style boundary")
				return StyledNode{nodeBase{open.Span}, kind, children}
			}
			if done {
				children = append(children, node)
			}

		default:
			p.errorf(t.Span, "unexpected token %s inside %s style", t, kind)
			p.advance()
		}
	}
}

func (p *parser) parseLink() BodyNode {
	open := p.advance() // LinkOpen
	if p.inLink {
		p.errorf(open.Span, "links may not nest links")
	}
	wasInLink := p.inLink
	p.inLink = true
	defer func() { p.inLink = wasInLink }()

	first, sawMid := p.parseLinkSegment()

	if sawMid {
		second, _ := p.parseLinkSegment()
		// "label|target" form.
		return LinkNode{nodeBase{open.Span}, first, flattenText(second)}
	}
	// "[[Target]]" short form: the target text is also the label.
	return LinkNode{nodeBase{open.Span}, first, flattenText(first)}
}

// parseLinkSegment parses body nodes (text and style spans only - link
// nesting is rejected above) up to LinkMid or LinkClose, returning
// whether it stopped at LinkMid.
func (p *parser) parseLinkSegment() ([]BodyNode, bool) {
	var nodes []BodyNode
	for {
		t := p.cur()
		switch t.Kind {
		case token.LinkClose:
			p.advance()
			return nodes, false

		case token.LinkMid:
			p.advance()
			return nodes, true

		case token.Eof, token.PassageHeader:
			p.errorf(t.Span, "link opened but never closed")
			return nodes, false

		case token.Text:
			p.advance()
			nodes = append(nodes, TextNode{nodeBase{t.Span}, t.Text})

		case token.StyleOpen:
			nodes = append(nodes, p.parseStyled())

		case token.LinkOpen:
			nodes = append(nodes, p.parseLink())

		default:
			p.errorf(t.Span, "unexpected token %s inside link", t)
			p.advance()
		}
	}
}

// flattenText renders a label's plain text for use as a link target, per
// the "[[Target]]" short form where the label text doubles as the target.
func flattenText(nodes []BodyNode) string {
	var out string
	for _, n := range nodes {
		switch v := n.(type) {
		case TextNode:
			out += v.Value
		case StyledNode:
			out += flattenText(v.Children)
		}
	}
	return out
}

// parseMacro consumes one "<<...>>" macro, dispatching on its parsed
// Stmt.Kind. For StmtIf it recurses to collect Then/Else and returns a
// fully-built IfNode with done=true. For StmtElse/StmtEndif it reports
// which boundary it hit instead of returning a node (the caller is
// either the top-level body loop or an enclosing parseIf, both of which
// need to know). Bare identifiers are resolved against known passage
// names here, per spec.md §9 Open Question 1.
func (p *parser) parseMacro() (node BodyNode, sawElse, sawEndif, done bool) {
	open := p.advance() // MacroOpen
	start := p.pos
	for p.cur().Kind != token.MacroClose && p.cur().Kind != token.Eof && p.cur().Kind != token.PassageHeader {
		p.advance()
	}
	body := p.toks[start:p.pos]
	if p.cur().Kind == token.MacroClose {
		p.advance()
	} else {
		p.errorf(open.Span, "macro opened but never closed")
	}

	stmt, sub := script.ParseMacroBody(body, p.file)
	for _, d := range sub.Errors() {
		p.diags.Add(d)
	}
	for _, d := range sub.Warnings() {
		p.diags.Add(d)
	}

	switch stmt.Kind {
	case script.StmtElse:
		return nil, true, false, false
	case script.StmtEndif:
		return nil, false, true, false
	case script.StmtIf:
		return p.parseIf(open, stmt), false, false, true
	case script.StmtBareIdent:
		if p.names[stmt.Ident] {
			stmt.Kind = script.StmtDisplay
			stmt.Passage = stmt.Ident
		} else {
			p.diags.Add(diag.AtSpan(diag.KindResolve, stmt.Span, "unknown macro or passage reference %q", stmt.Ident))
		}
		return MacroNode{nodeBase{stmt.Span}, stmt}, false, false, true
	default:
		return MacroNode{nodeBase{stmt.Span}, stmt}, false, false, true
	}
}

func (p *parser) parseIf(open token.Token, ifStmt script.Stmt) BodyNode {
	thenBody, sawElse, sawEndif := p.parseBodyUntil()

	var elseBody []BodyNode
	if sawElse {
		elseBody, _, sawEndif = p.parseBodyUntil()
	}
	if !sawEndif {
		p.errorf(open.Span, "if opened but never closed with endif")
	}

	return IfNode{nodeBase{open.Span}, ifStmt.Cond, thenBody, elseBody}
}
