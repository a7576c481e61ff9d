// Package token defines the lexical tokens produced by the Twee lexer and
// the source-position bookkeeping carried alongside every token and AST
// node through the rest of the pipeline.
package token

import "fmt"

// SourceSpan locates a run of bytes within a single input file. It is
// carried by every token and AST node purely for diagnostics; it never
// influences code generation.
type SourceSpan struct {
	File   string
	Offset int
	Length int
}

func (s SourceSpan) String() string {
	return fmt.Sprintf("%s:%d", s.File, s.Offset)
}

// End returns the (exclusive) byte offset one past the span.
func (s SourceSpan) End() int {
	return s.Offset + s.Length
}

// Union returns the smallest span covering both s and other. Both spans
// must refer to the same file.
func (s SourceSpan) Union(other SourceSpan) SourceSpan {
	start := s.Offset
	if other.Offset < start {
		start = other.Offset
	}
	end := s.End()
	if other.End() > end {
		end = other.End()
	}
	return SourceSpan{File: s.File, Offset: start, Length: end - start}
}

// Kind tags the variant carried by a Token.
type Kind int

const (
	PassageHeader Kind = iota
	Text
	StyleOpen
	StyleClose
	LinkOpen
	LinkMid
	LinkClose
	MacroOpen
	MacroClose
	Keyword
	Ident
	Variable
	IntLit
	StrLit
	BoolLit
	Op
	Newline
	Eof
)

func (k Kind) String() string {
	switch k {
	case PassageHeader:
		return "PassageHeader"
	case Text:
		return "Text"
	case StyleOpen:
		return "StyleOpen"
	case StyleClose:
		return "StyleClose"
	case LinkOpen:
		return "LinkOpen"
	case LinkMid:
		return "LinkMid"
	case LinkClose:
		return "LinkClose"
	case MacroOpen:
		return "MacroOpen"
	case MacroClose:
		return "MacroClose"
	case Keyword:
		return "Keyword"
	case Ident:
		return "Ident"
	case Variable:
		return "Variable"
	case IntLit:
		return "IntLit"
	case StrLit:
		return "StrLit"
	case BoolLit:
		return "BoolLit"
	case Op:
		return "Op"
	case Newline:
		return "Newline"
	case Eof:
		return "Eof"
	default:
		return "Unknown"
	}
}

// StyleKind distinguishes the three prose style spans this lexer
// recognizes. spec.md §3's Token variant names a fourth kind, underline,
// alongside bold/italic/mono, but no lexical syntax for it appears
// anywhere in spec.md §4.2/§6.2 or the sample corpus - there is no
// delimiter pair to scan for - so it's omitted here rather than wired to
// a syntax that doesn't exist.
type StyleKind int

const (
	Bold StyleKind = iota
	Italic
	Mono
)

func (s StyleKind) String() string {
	switch s {
	case Bold:
		return "bold"
	case Italic:
		return "italic"
	case Mono:
		return "mono"
	default:
		return "unknown"
	}
}

// Token is a single lexical unit. Rather than a closed interface variant
// (which would force a type switch everywhere a token is inspected), the
// lexer produces a single struct tagged by Kind with the payload fields
// relevant to that kind populated - the same flat-struct-over-the-wire
// shape the teacher's Opcode/Operand pair uses for decoded instructions.
type Token struct {
	Kind  Kind
	Span  SourceSpan
	Text  string    // Text, Ident, Keyword, Op, StrLit payload
	Name  string     // PassageHeader name, Variable name (without '$')
	Tags  []string   // PassageHeader tags
	Style StyleKind  // StyleOpen/StyleClose payload
	Int   int64      // IntLit payload
	Bool  bool       // BoolLit payload
}

func (t Token) String() string {
	switch t.Kind {
	case PassageHeader:
		return fmt.Sprintf("PassageHeader(%s, %v)", t.Name, t.Tags)
	case Ident, Keyword, Op, Text, StrLit:
		return fmt.Sprintf("%s(%q)", t.Kind, t.Text)
	case Variable:
		return fmt.Sprintf("Variable($%s)", t.Name)
	case IntLit:
		return fmt.Sprintf("IntLit(%d)", t.Int)
	case BoolLit:
		return fmt.Sprintf("BoolLit(%v)", t.Bool)
	case StyleOpen, StyleClose:
		return fmt.Sprintf("%s(%s)", t.Kind, t.Style)
	default:
		return t.Kind.String()
	}
}
