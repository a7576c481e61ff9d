package lower

import (
	"testing"

	"github.com/davetcode/zwreec/internal/diag"
	"github.com/davetcode/zwreec/internal/ir"
	"github.com/davetcode/zwreec/internal/lexer"
	"github.com/davetcode/zwreec/internal/story"
)

func lowerSrc(t *testing.T, src string) *ir.Module {
	t.Helper()
	toks, lexBag := lexer.Lex("t.tw", []byte(src))
	if lexBag.HasErrors() {
		t.Fatalf("unexpected lex errors: %v", lexBag.Errors())
	}
	passages, storyBag := story.Parse(toks, "t.tw")
	if storyBag.HasErrors() {
		t.Fatalf("unexpected story errors: %v", storyBag.Errors())
	}
	module, lowerBag := Lower(passages, "t.tw")
	if lowerBag.HasErrors() {
		t.Fatalf("unexpected lower errors: %v", lowerBag.Errors())
	}
	return module
}

func routine(t *testing.T, m *ir.Module, name string) ir.Routine {
	t.Helper()
	for _, r := range m.Routines {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("no routine named %s, have: %#v", name, m.Routines)
	return ir.Routine{}
}

func TestLowerSimplePassage(t *testing.T) {
	m := lowerSrc(t, "::Start\nHello world\n")
	r := routine(t, m, "R_Start")
	if r.Locals != 0 {
		t.Fatalf("expected 0 locals, got %d", r.Locals)
	}
	if len(r.Body) == 0 || r.Body[0].Op != ir.OpPrintPaddr {
		t.Fatalf("expected a leading print_paddr, got %#v", r.Body)
	}
	if len(m.Strings) != 1 || m.Strings[0].Value != "Hello world" {
		t.Fatalf("expected one interned string, got %#v", m.Strings)
	}
}

func TestLowerIfElse(t *testing.T) {
	m := lowerSrc(t, "::Start\n<<set $x to 1>><<if $x > 0>>pos<<else>>neg<<endif>>\n")
	r := routine(t, m, "R_Start")

	var sawJZ, sawJump bool
	for _, instr := range r.Body {
		if instr.Op == ir.OpJZ {
			sawJZ = true
		}
		if instr.Op == ir.OpJump {
			sawJump = true
		}
	}
	if !sawJZ || !sawJump {
		t.Fatalf("expected an if/else to lower to a JZ + JUMP pair, got %#v", r.Body)
	}
}

func TestLowerLinkRegistersTargetAndEpilogue(t *testing.T) {
	m := lowerSrc(t, "::Start\nGo [[there|Other]]\n::Other\nThere!\n")
	r := routine(t, m, "R_Start")

	var sawReadChar, sawStoreRoutineAddr bool
	for _, instr := range r.Body {
		if instr.Op == ir.OpReadChar {
			sawReadChar = true
		}
		if instr.Op == ir.OpStore {
			for _, op := range instr.Operands {
				if op.Kind == ir.OperandAddr && op.Name == "routine:R_Other" {
					sawStoreRoutineAddr = true
				}
			}
		}
	}
	if !sawReadChar {
		t.Fatalf("expected a read_char in the link dispatch epilogue, got %#v", r.Body)
	}
	if !sawStoreRoutineAddr {
		t.Fatalf("expected the Other link to store a routine address for R_Other, got %#v", r.Body)
	}
}

func TestLowerSetPrintInt(t *testing.T) {
	m := lowerSrc(t, "::Start\n<<set $x to 41>><<print $x + 1>>\n")
	r := routine(t, m, "R_Start")
	var sawPrintNum bool
	for _, instr := range r.Body {
		if instr.Op == ir.OpPrintNum {
			sawPrintNum = true
		}
	}
	if !sawPrintNum {
		t.Fatalf("expected print_num for an int-typed print, got %#v", r.Body)
	}
}

func TestLowerSetPrintBool(t *testing.T) {
	m := lowerSrc(t, "::Start\n<<set $flag to true>><<print $flag>>\n")
	r := routine(t, m, "R_Start")
	var sawJZ bool
	for _, instr := range r.Body {
		if instr.Op == ir.OpJZ {
			sawJZ = true
		}
	}
	if !sawJZ {
		t.Fatalf("expected a runtime branch for a bool-typed print, got %#v", r.Body)
	}
}

func TestLowerSetPrintString(t *testing.T) {
	m := lowerSrc(t, `::Start
<<set $name to "Ren">><<print $name>>
`)
	r := routine(t, m, "R_Start")
	var sawPrintCStr bool
	for _, instr := range r.Body {
		if instr.Op == ir.OpCallVS && instr.Callee == rPrintCStr {
			sawPrintCStr = true
		}
	}
	if !sawPrintCStr {
		t.Fatalf("expected a call to R_print_cstr for a string-typed print, got %#v", r.Body)
	}
}

func TestLowerConcatenationEmitsHelpers(t *testing.T) {
	// spec.md §9 only permits a non-constant "+" chain to be printed, not
	// assigned with <<set>> - see TestLowerSetNonFoldableConcatIsTypeError.
	m := lowerSrc(t, `::Start
<<set $n to 3>><<print "count: " + $n>>
`)
	if routineByName(m, rAppendRaw) == nil {
		t.Fatal("expected R_concat_append_raw to be emitted once concatenation is used")
	}
	if routineByName(m, rAppendNum) == nil {
		t.Fatal("expected R_concat_append_num to be emitted once concatenation is used")
	}
	r := routine(t, m, "R_Start")
	var sawAppendCall bool
	for _, instr := range r.Body {
		if instr.Op == ir.OpCallVS && (instr.Callee == rAppendRaw || instr.Callee == rAppendNum) {
			sawAppendCall = true
		}
	}
	if !sawAppendCall {
		t.Fatalf("expected a concat-append call in R_Start, got %#v", r.Body)
	}
}

// spec.md §9: "A `set $v to a + b` where both are strings is compiled
// only if both are compile-time constants (folded); otherwise it is a
// TypeError ... This is a deliberate simplification, not an omission."
func TestLowerSetNonFoldableConcatIsTypeError(t *testing.T) {
	toks, lexBag := lexer.Lex("t.tw", []byte("::Start\n<<set $a to \"foo\">><<set $b to \"bar\">><<set $c to $a + $b>>\n"))
	if lexBag.HasErrors() {
		t.Fatalf("unexpected lex errors: %v", lexBag.Errors())
	}
	passages, storyBag := story.Parse(toks, "t.tw")
	if storyBag.HasErrors() {
		t.Fatalf("unexpected story errors: %v", storyBag.Errors())
	}
	_, lowerBag := Lower(passages, "t.tw")
	if !lowerBag.HasErrors() {
		t.Fatal("expected a TypeError lowering a non-constant string concatenation in a set")
	}
	for _, d := range lowerBag.Errors() {
		if d.Kind == diag.KindType {
			return
		}
	}
	t.Fatalf("expected a KindType diagnostic, got: %v", lowerBag.Errors())
}

// A <<set>> whose "+" operands are all compile-time constants still
// folds and compiles cleanly - only a non-constant concatenation is
// disallowed.
func TestLowerSetFoldableConcatCompiles(t *testing.T) {
	lowerSrc(t, "::Start\n<<set $c to \"foo\" + \"bar\">>\n")
}

func TestLowerNoConcatenationOmitsHelpers(t *testing.T) {
	m := lowerSrc(t, "::Start\n<<set $x to 1>>\n")
	if routineByName(m, rAppendRaw) != nil {
		t.Fatal("expected R_concat_append_raw to be omitted when concatenation is never used")
	}
}

// spec.md §4.3: "random(lo, hi) ... if lo > hi they are swapped at
// runtime." R_random_range takes (hi, lo) in that order, so it must
// swap its two locals whenever the first argument is not greater than
// the second, rather than clamping to a degenerate width.
func TestRandomRangeRoutineSwapsOutOfOrderBounds(t *testing.T) {
	r := randomRangeRoutine()
	var sawSwapBranch bool
	for _, instr := range r.Body {
		if instr.Op == ir.OpJG && instr.Label == "ordered" {
			sawSwapBranch = true
		}
	}
	if !sawSwapBranch {
		t.Fatalf("expected a JG branch guarding the swap, got %#v", r.Body)
	}
	if r.Locals < 5 {
		t.Fatalf("expected at least 5 locals (hi, lo, width, r, tmp), got %d", r.Locals)
	}
}

func routineByName(m *ir.Module, name string) *ir.Routine {
	for i := range m.Routines {
		if m.Routines[i].Name == name {
			return &m.Routines[i]
		}
	}
	return nil
}

func TestLowerMainRoutineCallsStart(t *testing.T) {
	m := lowerSrc(t, "::Start\nHello\n")
	r := routine(t, m, "R_Main")
	var sawStoreStartAddr, sawQuit bool
	for _, instr := range r.Body {
		if instr.Op == ir.OpStore {
			for _, op := range instr.Operands {
				if op.Kind == ir.OperandAddr && op.Name == "routine:R_Start" {
					sawStoreStartAddr = true
				}
			}
		}
		if instr.Op == ir.OpQuit {
			sawQuit = true
		}
	}
	if !sawStoreStartAddr {
		t.Fatalf("expected R_Main to seed the next-routine global with R_Start, got %#v", r.Body)
	}
	if !sawQuit {
		t.Fatalf("expected R_Main to quit once no routine remains, got %#v", r.Body)
	}
}
