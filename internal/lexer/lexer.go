// Package lexer implements the stateful Twee scanner described in
// spec.md §4.2: a small finite state machine (modeled, per spec.md §9
// Design Notes, as explicit Go functions rather than an ambiguous
// grammar) that produces context-sensitive tokens - prose/style/link
// tokens outside a macro, script tokens inside one.
package lexer

import (
	"strings"
	"unicode/utf8"

	"github.com/davetcode/zwreec/internal/diag"
	"github.com/davetcode/zwreec/internal/token"
)

// keywords is the fixed reserved-word set of the script sublanguage
// (spec.md §4.2): "set to print display if else endif and or not is true
// false random".
var keywords = map[string]bool{
	"set": true, "to": true, "print": true, "display": true,
	"if": true, "else": true, "endif": true,
	"and": true, "or": true, "not": true, "is": true,
	"true": true, "false": true, "random": true,
}

// Lexer holds the state of one Lex call. Lex always scans src from its
// first byte in a single forward pass; it cannot be resumed from a saved
// token.SourceSpan, and comments and styles are recognized by fixed
// lookahead rather than by backtracking.
type Lexer struct {
	file string
	src  []byte
	pos  int

	tokens []token.Token
	diags  diag.Bag

	activeStyle map[token.StyleKind]bool
}

// Lex tokenizes the entirety of src (named file for diagnostics) and
// returns every token plus any lex diagnostics recorded along the way.
func Lex(file string, src []byte) ([]token.Token, *diag.Bag) {
	l := &Lexer{
		file:        file,
		src:         src,
		activeStyle: make(map[token.StyleKind]bool),
	}
	l.run()
	return l.tokens, &l.diags
}

func (l *Lexer) run() {
	for l.pos < len(l.src) {
		if l.atLineStart() && l.hasPrefixAt(l.pos, "::") {
			l.lexPassageHeader()
			continue
		}
		l.lexBodyRun()
	}
	l.emit(token.Token{Kind: token.Eof, Span: l.spanAt(l.pos, 0)})
}

func (l *Lexer) spanAt(offset, length int) token.SourceSpan {
	return token.SourceSpan{File: l.file, Offset: offset, Length: length}
}

func (l *Lexer) emit(t token.Token) {
	l.tokens = append(l.tokens, t)
}

func (l *Lexer) atLineStart() bool {
	return l.pos == 0 || l.src[l.pos-1] == '\n'
}

func (l *Lexer) hasPrefixAt(pos int, s string) bool {
	end := pos + len(s)
	if end > len(l.src) {
		end = len(l.src)
	}
	return strings.HasPrefix(string(l.src[pos:end]), s)
}

func (l *Lexer) peekByte() (byte, bool) {
	if l.pos >= len(l.src) {
		return 0, false
	}
	return l.src[l.pos], true
}

func (l *Lexer) errorf(start int, kind diag.Kind, format string, args ...interface{}) {
	l.diags.Add(diag.AtSpan(kind, l.spanAt(start, l.pos-start), format, args...))
}

// lexPassageHeader handles "a line beginning with :: ... the header ends
// at newline and yields PassageHeader(name, tags) where tags follow
// [tag tag] if present" (spec.md §4.2).
func (l *Lexer) lexPassageHeader() {
	start := l.pos
	l.pos += 2 // skip "::"

	lineEnd := l.pos
	for lineEnd < len(l.src) && l.src[lineEnd] != '\n' {
		lineEnd++
	}
	line := strings.TrimSpace(string(l.src[l.pos:lineEnd]))
	l.pos = lineEnd
	if l.pos < len(l.src) {
		l.pos++ // consume the newline
	}

	name := line
	var tags []string
	if idx := strings.IndexByte(line, '['); idx >= 0 {
		closeIdx := strings.IndexByte(line[idx:], ']')
		if closeIdx < 0 {
			l.errorf(start, diag.KindLex, "invalid passage header: unterminated tag list")
			return
		}
		name = strings.TrimSpace(line[:idx])
		tagBody := line[idx+1 : idx+closeIdx]
		for _, tag := range strings.Fields(tagBody) {
			tags = append(tags, tag)
		}
	}

	if name == "" {
		l.errorf(start, diag.KindLex, "invalid passage header: missing name")
		return
	}

	// A new passage resets which styles are "open" - spans never cross a
	// passage boundary.
	l.activeStyle = make(map[token.StyleKind]bool)

	l.emit(token.Token{Kind: token.PassageHeader, Span: l.spanAt(start, l.pos-start), Name: name, Tags: tags})
}

// lexBodyRun consumes prose until the next passage header (at a line
// start) or EOF, dispatching into styles/links/macros/comments as it
// encounters their opening delimiters.
func (l *Lexer) lexBodyRun() {
	var textStart = l.pos
	var buf strings.Builder

	flush := func() {
		if buf.Len() > 0 {
			l.emit(token.Token{Kind: token.Text, Span: l.spanAt(textStart, l.pos-textStart), Text: buf.String()})
			buf.Reset()
		}
	}

	for l.pos < len(l.src) {
		if l.atLineStart() && l.hasPrefixAt(l.pos, "::") {
			break
		}

		switch {
		case l.hasPrefixAt(l.pos, "/%"):
			flush()
			l.lexComment()
			textStart = l.pos

		case l.hasPrefixAt(l.pos, "''"):
			flush()
			l.lexStyleToggle(token.Bold, "''")
			textStart = l.pos

		case l.hasPrefixAt(l.pos, "//"):
			flush()
			l.lexStyleToggle(token.Italic, "//")
			textStart = l.pos

		case l.hasPrefixAt(l.pos, "{{{"):
			flush()
			l.lexMono()
			textStart = l.pos

		case l.hasPrefixAt(l.pos, "[["):
			flush()
			l.lexLink()
			textStart = l.pos

		case l.hasPrefixAt(l.pos, "<<"):
			flush()
			l.lexMacro()
			textStart = l.pos

		default:
			r, size := utf8.DecodeRune(l.src[l.pos:])
			buf.WriteRune(r)
			l.pos += size
		}
	}

	// A passage body's trailing line breaks separate it from the next
	// passage; they are not part of its text.
	if s := strings.TrimRight(buf.String(), "\n"); s != "" {
		l.emit(token.Token{Kind: token.Text, Span: l.spanAt(textStart, len(s)), Text: s})
	}
}

// lexComment consumes "/% ... %/", which "may span lines" and is
// "stripped before parsing" (spec.md §6.2) - no token is emitted.
func (l *Lexer) lexComment() {
	start := l.pos
	l.pos += 2 // skip "/%"
	for l.pos < len(l.src) {
		if l.hasPrefixAt(l.pos, "%/") {
			l.pos += 2
			return
		}
		l.pos++
	}
	l.errorf(start, diag.KindLex, "unterminated comment")
}

// lexStyleToggle handles the toggling '' and // delimiters: the first
// occurrence opens the span, the second (later) closes it.
func (l *Lexer) lexStyleToggle(kind token.StyleKind, delim string) {
	start := l.pos
	l.pos += len(delim)
	span := l.spanAt(start, l.pos-start)

	if l.activeStyle[kind] {
		l.activeStyle[kind] = false
		l.emit(token.Token{Kind: token.StyleClose, Span: span, Style: kind})
	} else {
		l.activeStyle[kind] = true
		l.emit(token.Token{Kind: token.StyleOpen, Span: span, Style: kind})
	}
}

// lexMono handles "{{{...}}}", which is not a toggle: each occurrence is
// a complete span, "closing required on same or later line" (spec.md
// §4.2) - i.e. somewhere later in the same passage body, not necessarily
// the same text line.
func (l *Lexer) lexMono() {
	start := l.pos
	l.pos += 3 // skip "{{{"
	l.emit(token.Token{Kind: token.StyleOpen, Span: l.spanAt(start, 3), Style: token.Mono})

	bodyStart := l.pos
	for l.pos < len(l.src) {
		if l.atLineStart() && l.hasPrefixAt(l.pos, "::") {
			break
		}
		if l.hasPrefixAt(l.pos, "}}}") {
			if l.pos > bodyStart {
				l.emit(token.Token{Kind: token.Text, Span: l.spanAt(bodyStart, l.pos-bodyStart), Text: string(l.src[bodyStart:l.pos])})
			}
			closeStart := l.pos
			l.pos += 3
			l.emit(token.Token{Kind: token.StyleClose, Span: l.spanAt(closeStart, 3), Style: token.Mono})
			return
		}
		l.pos++
	}
	l.errorf(start, diag.KindLex, "unterminated monospace span")
}

// lexLink handles "[[Label|Target]]" or "[[Target]]" (spec.md §6.2),
// recursing into lexLinkSegment for the label/target text so that style
// markup inside a link label is honored per spec.md §9 Open Question 3.
func (l *Lexer) lexLink() {
	start := l.pos
	l.pos += 2
	l.emit(token.Token{Kind: token.LinkOpen, Span: l.spanAt(start, 2)})

	sawMid := l.lexLinkSegment()
	if sawMid {
		l.lexLinkSegment()
	}
}

// lexLinkSegment consumes text (with style markup) up to "|" or "]]" and
// emits the appropriate boundary token. It returns true if it stopped at
// "|" (meaning a target segment follows).
func (l *Lexer) lexLinkSegment() bool {
	segStart := l.pos
	var buf strings.Builder
	textStart := l.pos

	flush := func() {
		if buf.Len() > 0 {
			l.emit(token.Token{Kind: token.Text, Span: l.spanAt(textStart, l.pos-textStart), Text: buf.String()})
			buf.Reset()
		}
	}

	for l.pos < len(l.src) {
		switch {
		case l.hasPrefixAt(l.pos, "]]"):
			flush()
			closeStart := l.pos
			l.pos += 2
			l.emit(token.Token{Kind: token.LinkClose, Span: l.spanAt(closeStart, 2)})
			return false

		case l.hasPrefixAt(l.pos, "|"):
			flush()
			midStart := l.pos
			l.pos++
			l.emit(token.Token{Kind: token.LinkMid, Span: l.spanAt(midStart, 1)})
			return true

		case l.hasPrefixAt(l.pos, "''"):
			flush()
			l.lexStyleToggle(token.Bold, "''")
			textStart = l.pos

		case l.hasPrefixAt(l.pos, "//"):
			flush()
			l.lexStyleToggle(token.Italic, "//")
			textStart = l.pos

		case l.hasPrefixAt(l.pos, "[["):
			// A "[[" inside a link label still tokenizes as a nested
			// link; the story parser is what rejects the nesting
			// (spec.md §3), keeping the lexer itself context-free here.
			flush()
			l.lexLink()
			textStart = l.pos

		case l.src[l.pos] == '\n':
			flush()
			l.errorf(segStart, diag.KindLex, "unterminated link")
			return false

		default:
			r, size := utf8.DecodeRune(l.src[l.pos:])
			buf.WriteRune(r)
			l.pos += size
		}
	}

	flush()
	l.errorf(segStart, diag.KindLex, "unterminated link")
	return false
}

// lexMacro handles "<<...>>": "whitespace-separated script tokens until
// >>" (spec.md §4.2).
func (l *Lexer) lexMacro() {
	start := l.pos
	l.pos += 2
	l.emit(token.Token{Kind: token.MacroOpen, Span: l.spanAt(start, 2)})

	for l.pos < len(l.src) {
		l.skipMacroWhitespace()
		if l.pos >= len(l.src) {
			break
		}
		if l.hasPrefixAt(l.pos, ">>") {
			closeStart := l.pos
			l.pos += 2
			l.emit(token.Token{Kind: token.MacroClose, Span: l.spanAt(closeStart, 2)})
			return
		}

		if !l.lexScriptToken() {
			return // error already recorded
		}
	}

	l.errorf(start, diag.KindLex, "unterminated macro")
}

func (l *Lexer) skipMacroWhitespace() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			l.pos++
			continue
		}
		break
	}
}

var macroOps = []string{"==", "!=", "<=", ">=", "<", ">", "+", "-", "*", "/", "(", ")", ","}

// lexScriptToken lexes a single token of the embedded scripting
// sublanguage (spec.md §4.3) and reports whether lexing may continue.
func (l *Lexer) lexScriptToken() bool {
	start := l.pos
	c, _ := l.peekByte()

	switch {
	case c == '$':
		l.pos++
		nameStart := l.pos
		for l.pos < len(l.src) && isIdentByte(l.src[l.pos]) {
			l.pos++
		}
		if l.pos == nameStart {
			l.errorf(start, diag.KindLex, "expected variable name after '$'")
			return false
		}
		l.emit(token.Token{Kind: token.Variable, Span: l.spanAt(start, l.pos-start), Name: string(l.src[nameStart:l.pos])})
		return true

	case c == '\'' || c == '"':
		return l.lexScriptString(c)

	case isDigit(c):
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
		var v int64
		for _, d := range l.src[start:l.pos] {
			v = v*10 + int64(d-'0')
		}
		l.emit(token.Token{Kind: token.IntLit, Span: l.spanAt(start, l.pos-start), Int: v})
		return true

	case isIdentStart(c):
		for l.pos < len(l.src) && isIdentByte(l.src[l.pos]) {
			l.pos++
		}
		text := string(l.src[start:l.pos])
		if keywords[text] {
			l.emit(token.Token{Kind: token.Keyword, Span: l.spanAt(start, l.pos-start), Text: text})
		} else {
			l.emit(token.Token{Kind: token.Ident, Span: l.spanAt(start, l.pos-start), Text: text})
		}
		return true

	default:
		for _, op := range macroOps {
			if l.hasPrefixAt(l.pos, op) {
				l.pos += len(op)
				l.emit(token.Token{Kind: token.Op, Span: l.spanAt(start, l.pos-start), Text: op})
				return true
			}
		}
		l.errorf(start, diag.KindLex, "illegal character %q in macro", string(c))
		l.pos++
		return true
	}
}

func (l *Lexer) lexScriptString(quote byte) bool {
	start := l.pos
	l.pos++ // skip opening quote
	var buf strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == quote {
			l.pos++
			l.emit(token.Token{Kind: token.StrLit, Span: l.spanAt(start, l.pos-start), Text: buf.String()})
			return true
		}
		if c == '\n' {
			break
		}
		buf.WriteByte(c)
		l.pos++
	}
	l.errorf(start, diag.KindLex, "unterminated string literal")
	return false
}

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isIdentByte(c byte) bool  { return isIdentStart(c) || isDigit(c) }
