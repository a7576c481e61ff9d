// Package diag implements the unified source-position diagnostic layer
// described in spec.md §7: the six error kinds, a Bag that accumulates
// multiple front-end diagnostics before the driver aborts, and a renderer
// that styles diagnostics for a terminal.
package diag

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/davetcode/zwreec/internal/token"
)

// Kind enumerates the error categories named in spec.md §7. Warnings use
// KindWarning and never change the process exit status.
type Kind int

const (
	KindLex Kind = iota
	KindParse
	KindResolve
	KindType
	KindEncode
	KindIO
	KindWarning
)

func (k Kind) String() string {
	switch k {
	case KindLex:
		return "lex error"
	case KindParse:
		return "parse error"
	case KindResolve:
		return "resolve error"
	case KindType:
		return "type error"
	case KindEncode:
		return "encode error"
	case KindIO:
		return "I/O error"
	case KindWarning:
		return "warning"
	default:
		return "error"
	}
}

// Diagnostic is a single user-visible message, optionally anchored to a
// source span.
type Diagnostic struct {
	Kind    Kind
	Span    *token.SourceSpan
	Message string
}

func (d Diagnostic) Error() string {
	if d.Span != nil {
		return fmt.Sprintf("%s: %s: %s", d.Span, d.Kind, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Kind, d.Message)
}

// IsFatal reports whether this diagnostic should affect the exit code.
func (d Diagnostic) IsFatal() bool {
	return d.Kind != KindWarning
}

func New(kind Kind, span *token.SourceSpan, format string, args ...interface{}) Diagnostic {
	return Diagnostic{Kind: kind, Span: span, Message: fmt.Sprintf(format, args...)}
}

func AtSpan(kind Kind, span token.SourceSpan, format string, args ...interface{}) Diagnostic {
	s := span
	return New(kind, &s, format, args...)
}

// Bag accumulates diagnostics across the lex/parse/resolve stages of
// spec.md §7's policy: "the driver collects multiple lex/parse/resolve
// errors before aborting ... but stops before lowering once any have been
// recorded. Lowering and encoding abort on the first error." FirstOnly
// switches the bag into that second mode once parsing has finished.
type Bag struct {
	merr      *multierror.Error
	warnings  []Diagnostic
	FirstOnly bool
}

// Add records a diagnostic. Fatal diagnostics are folded into the
// underlying multierror; warnings are kept separately since they never
// affect control flow or exit status.
func (b *Bag) Add(d Diagnostic) {
	if !d.IsFatal() {
		b.warnings = append(b.warnings, d)
		return
	}
	b.merr = multierror.Append(b.merr, d)
}

// HasErrors reports whether any fatal diagnostic has been recorded.
func (b *Bag) HasErrors() bool {
	return b.merr.ErrorOrNil() != nil
}

// ShouldStop reports whether the caller should stop accumulating and
// return now - true as soon as there's one error in FirstOnly mode, never
// otherwise (the caller decides when to stop between stages).
func (b *Bag) ShouldStop() bool {
	return b.FirstOnly && b.HasErrors()
}

// Errors returns the accumulated fatal diagnostics in the order recorded.
func (b *Bag) Errors() []Diagnostic {
	if b.merr == nil {
		return nil
	}
	out := make([]Diagnostic, 0, len(b.merr.Errors))
	for _, err := range b.merr.Errors {
		if d, ok := err.(Diagnostic); ok {
			out = append(out, d)
		}
	}
	return out
}

// Warnings returns the accumulated warnings in the order recorded.
func (b *Bag) Warnings() []Diagnostic {
	return b.warnings
}

// Err returns a single error combining every fatal diagnostic, or nil.
func (b *Bag) Err() error {
	return b.merr.ErrorOrNil()
}
