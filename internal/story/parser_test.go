package story

import (
	"testing"

	"github.com/davetcode/zwreec/internal/diag"
	"github.com/davetcode/zwreec/internal/lexer"
	"github.com/davetcode/zwreec/internal/script"
)

func parseSrc(t *testing.T, src string) ([]Passage, *diag.Bag) {
	t.Helper()
	toks, lexBag := lexer.Lex("t.tw", []byte(src))
	if lexBag.HasErrors() {
		t.Fatalf("unexpected lex errors: %v", lexBag.Errors())
	}
	return Parse(toks, "t.tw")
}

func TestParseSimplePassage(t *testing.T) {
	passages, bag := parseSrc(t, "::Start\nHello world\n")
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Errors())
	}
	if len(passages) != 1 || passages[0].Name != "Start" {
		t.Fatalf("unexpected passages: %#v", passages)
	}
	if len(passages[0].Body) != 1 {
		t.Fatalf("expected one text node, got %#v", passages[0].Body)
	}
	text, ok := passages[0].Body[0].(TextNode)
	if !ok || text.Value != "Hello world" {
		t.Fatalf("unexpected body node: %#v", passages[0].Body[0])
	}
}

func TestParseStyledSpan(t *testing.T) {
	passages, bag := parseSrc(t, "::Start\n''bold text''\n")
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Errors())
	}
	styled, ok := passages[0].Body[0].(StyledNode)
	if !ok {
		t.Fatalf("expected StyledNode, got %#v", passages[0].Body[0])
	}
	text, ok := styled.Children[0].(TextNode)
	if !ok || text.Value != "bold text" {
		t.Fatalf("unexpected styled content: %#v", styled.Children)
	}
}

func TestParseLinkWithLabel(t *testing.T) {
	passages, bag := parseSrc(t, "::Start\n[[Go there|Other]]\n::Other\nEnd\n")
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Errors())
	}
	link, ok := passages[0].Body[0].(LinkNode)
	if !ok || link.Target != "Other" {
		t.Fatalf("expected link to Other, got %#v", passages[0].Body[0])
	}
}

func TestParseLinkShortForm(t *testing.T) {
	passages, bag := parseSrc(t, "::Start\n[[Other]]\n::Other\nEnd\n")
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Errors())
	}
	link, ok := passages[0].Body[0].(LinkNode)
	if !ok || link.Target != "Other" {
		t.Fatalf("expected link target Other, got %#v", passages[0].Body[0])
	}
}

func TestParseIfElseEndif(t *testing.T) {
	passages, bag := parseSrc(t, "::Start\n<<if $x > 0>>pos<<else>>neg<<endif>>\n")
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Errors())
	}
	ifNode, ok := passages[0].Body[0].(IfNode)
	if !ok {
		t.Fatalf("expected IfNode, got %#v", passages[0].Body[0])
	}
	if len(ifNode.Then) != 1 || len(ifNode.Else) != 1 {
		t.Fatalf("expected one node in each branch, got then=%v else=%v", ifNode.Then, ifNode.Else)
	}
}

func TestParseIfWithoutEndifErrors(t *testing.T) {
	_, bag := parseSrc(t, "::Start\n<<if $x > 0>>pos\n")
	if !bag.HasErrors() {
		t.Fatal("expected an error for if without endif")
	}
}

func TestParseMismatchedStyleErrors(t *testing.T) {
	// ''bold //italic'' end// crosses style boundaries.
	_, bag := parseSrc(t, "::Start\n''bold //italic''end//\n")
	if !bag.HasErrors() {
		t.Fatal("expected an error for crossing style spans")
	}
}

func TestParseLinkNestingErrors(t *testing.T) {
	_, bag := parseSrc(t, "::Start\n[[outer [[inner]] more|Target]]\n::Target\nEnd\n")
	if !bag.HasErrors() {
		t.Fatal("expected an error for nested links")
	}
}

func TestParseRequiresExactlyOneStart(t *testing.T) {
	_, bag := parseSrc(t, "::NotStart\nHello\n")
	if !bag.HasErrors() {
		t.Fatal("expected a resolve error for a missing Start passage")
	}
}

func TestParseDuplicateStartErrors(t *testing.T) {
	_, bag := parseSrc(t, "::Start\nA\n::Start\nB\n")
	if !bag.HasErrors() {
		t.Fatal("expected a resolve error for duplicate Start passages")
	}
}

func TestParseUnreachablePassageWarns(t *testing.T) {
	passages, bag := parseSrc(t, "::Start\nHello\n::Orphan\nNobody links here\n")
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Errors())
	}
	if len(passages) != 2 {
		t.Fatalf("expected 2 passages, got %d", len(passages))
	}
	found := false
	for _, w := range bag.Warnings() {
		if w.Kind == diag.KindWarning {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a warning for the unreachable Orphan passage")
	}
}

func TestParseUnusedVariableWarns(t *testing.T) {
	_, bag := parseSrc(t, "::Start\n<<set $unused to 1>>Hello\n")
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Errors())
	}
	if len(bag.Warnings()) == 0 {
		t.Fatal("expected a warning for the unused variable")
	}
}

func TestParseDisplayMacroBareIdent(t *testing.T) {
	passages, bag := parseSrc(t, "::Start\n<<Kitchen>>\n::Kitchen\nRoom\n")
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Errors())
	}
	macro, ok := passages[0].Body[0].(MacroNode)
	if !ok || macro.Stmt.Kind != script.StmtDisplay || macro.Stmt.Passage != "Kitchen" {
		t.Fatalf("expected Display(Kitchen), got %#v", passages[0].Body[0])
	}
}

func TestParseUnknownBareIdentErrors(t *testing.T) {
	_, bag := parseSrc(t, "::Start\n<<nonexistentMacro>>\n")
	if !bag.HasErrors() {
		t.Fatal("expected a resolve error for an unknown bare macro identifier")
	}
}
