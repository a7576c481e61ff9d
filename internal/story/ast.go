// Package story implements the story-level parser described in spec.md
// §4.4: it partitions a token stream by PassageHeader into passages and
// builds each passage's body by structural matching of prose, style,
// link, and macro tokens, deferring to internal/script for the embedded
// expression sublanguage.
package story

import (
	"github.com/davetcode/zwreec/internal/script"
	"github.com/davetcode/zwreec/internal/token"
)

// Passage is spec.md §3's Passage: a named, textual node and the unit of
// navigation and code generation (one routine per passage).
type Passage struct {
	Name string
	Tags []string
	Body []BodyNode
	Span token.SourceSpan
}

// BodyNode is any node of spec.md §3's BodyNode variant.
type BodyNode interface {
	Span() token.SourceSpan
	bodyNode()
}

type nodeBase struct {
	span token.SourceSpan
}

func (n nodeBase) Span() token.SourceSpan { return n.span }

type TextNode struct {
	nodeBase
	Value string
}

// StyledNode wraps Children in kind, matching spec.md's "Styled regions
// may not nest the same style" invariant. The lexer upholds it: '' and //
// are toggles, so a second delimiter always closes the open span, and a
// {{{ span runs to the next }}} without nesting. It is not representable
// structurally since nesting two *different* styles is legal - e.g. bold
// containing italic.
type StyledNode struct {
	nodeBase
	Kind     token.StyleKind
	Children []BodyNode
}

// LinkNode is spec.md's Link{label, target}. In the "[[Target]]" short
// form, Label holds the parsed link text and Target is that same text
// flattened to a plain string.
type LinkNode struct {
	nodeBase
	Label  []BodyNode
	Target string
}

// MacroNode wraps one parsed macro invocation. Only Set/Print/Display/
// PrintShorthand/PrintLiteral carry through directly from script.Stmt;
// If is represented by IfNode below since its Then/Else arms are story
// body nodes that script.Stmt cannot reference without an import cycle.
type MacroNode struct {
	nodeBase
	Stmt script.Stmt
}

// IfNode is spec.md's If(Expr, Vec<BodyNode>, Option<Vec<BodyNode>>),
// built by the story parser once the matching <<else>>/<<endif>> tokens
// are found.
type IfNode struct {
	nodeBase
	Cond script.Expr
	Then []BodyNode
	Else []BodyNode // nil if no <<else>> was present
}

func (TextNode) bodyNode()   {}
func (StyledNode) bodyNode() {}
func (LinkNode) bodyNode()   {}
func (MacroNode) bodyNode()  {}
func (IfNode) bodyNode()     {}
