// Package compiler sequences the whole pipeline - lex, parse, lower,
// encode, assemble - and implements spec.md §7's diagnostic policy: the
// driver collects every lex/parse/resolve diagnostic before deciding
// whether to continue, but lowering and image assembly abort on the
// first error. Grounded on the teacher's own single synchronous call
// chain (LoadRom -> LoadCore -> run); there is no concurrency anywhere
// in this package, per spec.md §5.
package compiler

import (
	"fmt"

	"github.com/davetcode/zwreec/internal/diag"
	"github.com/davetcode/zwreec/internal/image"
	"github.com/davetcode/zwreec/internal/ir"
	"github.com/davetcode/zwreec/internal/lexer"
	"github.com/davetcode/zwreec/internal/lower"
	"github.com/davetcode/zwreec/internal/story"
	"github.com/davetcode/zwreec/internal/zstring"
)

// Result is everything a successful compilation produces.
type Result struct {
	Image []byte
	Diags *diag.Bag // warnings accumulated even on success
}

// Compile runs the full pipeline over src (named file for diagnostic
// spans) and returns the assembled v8 story file bytes. serial is the
// 6-byte ASCII stamp written at header offset 0x12 (spec.md §4.7: "serial
// is a compile-time ASCII date stamp"); callers pass a fixed value for
// reproducible test output and DefaultSerial() otherwise.
//
// On failure the returned Bag holds every diagnostic collected before
// the pipeline stopped, and the returned error is non-nil - callers
// render the bag's errors (internal/diag.RenderAll) and exit with the
// compilation-error status, whatever the errors' Kind.
func Compile(file string, src []byte, serial [6]byte) (*Result, error) {
	bag := &diag.Bag{}

	toks, lexBag := lexer.Lex(file, src)
	mergeInto(bag, lexBag)

	passages, storyBag := story.Parse(toks, file)
	mergeInto(bag, storyBag)

	// spec.md §7: "collects multiple lex/parse/resolve errors before
	// aborting ... but stops before lowering once any have been
	// recorded."
	if bag.HasErrors() {
		return &Result{Diags: bag}, fmt.Errorf("compilation failed with %d error(s)", len(bag.Errors()))
	}

	// "Lowering and encoding abort on the first error": only the first
	// lowering error is kept, and image assembly stops at its first
	// failure.
	bag.FirstOnly = true

	module, lowerBag := lower.Lower(passages, file)
	if lowerBag.HasErrors() {
		first := lowerBag.Errors()[0]
		bag.Add(first)
		return &Result{Diags: bag}, fmt.Errorf("compilation failed: %s", first.Message)
	}
	mergeInto(bag, lowerBag)

	img, err := assembleImage(module, serial)
	if err != nil {
		bag.Add(diag.New(diag.KindEncode, nil, "%v", err))
		return &Result{Diags: bag}, err
	}

	return &Result{Image: img, Diags: bag}, nil
}

func assembleImage(module *ir.Module, serial [6]byte) ([]byte, error) {
	return image.Assemble(module, &zstring.Default, serial)
}

// mergeInto copies every diagnostic src has accumulated into dst,
// preserving fatal/warning classification - the two bags come from
// independent stage calls (lexer.Lex, story.Parse, lower.Lower each
// build their own), so the driver's single combined bag is assembled by
// hand rather than threaded as one shared value through every stage.
func mergeInto(dst, src *diag.Bag) {
	for _, d := range src.Errors() {
		dst.Add(d)
	}
	for _, d := range src.Warnings() {
		dst.Add(d)
	}
}
