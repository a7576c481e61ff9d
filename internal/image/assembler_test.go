package image

import (
	"fmt"
	"testing"

	"github.com/davetcode/zwreec/internal/ir"
	"github.com/davetcode/zwreec/internal/lexer"
	"github.com/davetcode/zwreec/internal/lower"
	"github.com/davetcode/zwreec/internal/story"
	"github.com/davetcode/zwreec/internal/zstring"
)

var testSerial = [6]byte{'2', '6', '0', '7', '3', '0'}

func moduleFromSrc(t *testing.T, src string) *ir.Module {
	t.Helper()
	toks, lexBag := lexer.Lex("t.tw", []byte(src))
	if lexBag.HasErrors() {
		t.Fatalf("unexpected lex errors: %v", lexBag.Errors())
	}
	passages, storyBag := story.Parse(toks, "t.tw")
	if storyBag.HasErrors() {
		t.Fatalf("unexpected story errors: %v", storyBag.Errors())
	}
	m, lowerBag := lower.Lower(passages, "t.tw")
	if lowerBag.HasErrors() {
		t.Fatalf("unexpected lower errors: %v", lowerBag.Errors())
	}
	return m
}

func TestAssembleMinimalStoryHeader(t *testing.T) {
	m := moduleFromSrc(t, "::Start\nHello\n")
	buf, err := Assemble(m, &zstring.Default, testSerial)
	if err != nil {
		t.Fatalf("Assemble error: %v", err)
	}
	if len(buf) < headerSize {
		t.Fatalf("image too short: %d bytes", len(buf))
	}
	if buf[offVersion] != 8 {
		t.Fatalf("expected version byte 8, got %d", buf[offVersion])
	}
	if len(buf)%8 != 0 {
		t.Fatalf("expected total image length to be a multiple of the v8 packing factor, got %d", len(buf))
	}
}

func TestAssembleFileLengthAndChecksum(t *testing.T) {
	m := moduleFromSrc(t, "::Start\nHello\n")
	buf, err := Assemble(m, &zstring.Default, testSerial)
	if err != nil {
		t.Fatalf("Assemble error: %v", err)
	}

	declaredLen := int(uint16(buf[offFileLength])<<8|uint16(buf[offFileLength+1])) * fileLengthDivisor
	if declaredLen != len(buf) {
		t.Fatalf("file length field says %d bytes, image is %d bytes", declaredLen, len(buf))
	}

	var want uint16
	for _, b := range buf[headerSize:] {
		want += uint16(b)
	}
	got := uint16(buf[offChecksum])<<8 | uint16(buf[offChecksum+1])
	if got != want {
		t.Fatalf("checksum field = %#x, want %#x", got, want)
	}
}

func TestAssembleEntryPCSkipsLocalsByte(t *testing.T) {
	m := moduleFromSrc(t, "::Start\nHello\n")
	buf, err := Assemble(m, &zstring.Default, testSerial)
	if err != nil {
		t.Fatalf("Assemble error: %v", err)
	}
	pc := int(uint16(buf[offInitialPC])<<8 | uint16(buf[offInitialPC+1]))

	var mainRoutine *ir.Routine
	for i := range m.Routines {
		if m.Routines[i].Name == "R_Main" {
			mainRoutine = &m.Routines[i]
		}
	}
	if mainRoutine == nil {
		t.Fatal("module has no R_Main routine")
	}
	highMemMark := int(uint16(buf[offHighMemoryMark])<<8 | uint16(buf[offHighMemoryMark+1]))
	if pc < highMemMark {
		t.Fatalf("entry PC %d falls before the routines section start %d", pc, highMemMark)
	}
	if (pc-1)%routineAlign != 0 || buf[pc-1] != mainRoutine.Locals {
		t.Fatalf("entry PC %d is not one byte past R_Main's aligned locals-count byte", pc)
	}
}

func TestAssembleDictionaryAndObjectTableArePresent(t *testing.T) {
	m := moduleFromSrc(t, "::Start\nHello\n")
	buf, err := Assemble(m, &zstring.Default, testSerial)
	if err != nil {
		t.Fatalf("Assemble error: %v", err)
	}

	objBase := int(uint16(buf[offObjectTableBase])<<8 | uint16(buf[offObjectTableBase+1]))
	dictBase := int(uint16(buf[offDictionaryBase])<<8 | uint16(buf[offDictionaryBase+1]))
	if objBase == 0 || dictBase == 0 {
		t.Fatalf("expected non-zero object table (%d) and dictionary (%d) bases", objBase, dictBase)
	}

	propertyPtr := int(uint16(buf[objBase+propertyDefaultsSize+12])<<8 | uint16(buf[objBase+propertyDefaultsSize+13]))
	if buf[propertyPtr] != 0 {
		t.Fatalf("expected the dummy object's short name length byte to be 0, got %d", buf[propertyPtr])
	}
}

func TestAssembleRejectsGlobalOverflow(t *testing.T) {
	m := ir.NewModule()
	for i := 0; i < 250; i++ {
		m.Globals[fmt.Sprintf("v%d", i)] = uint8(i)
	}
	m.Routines = []ir.Routine{{Name: "R_Main", Body: []ir.Instr{{Op: ir.OpQuit}}}}
	_, err := Assemble(m, &zstring.Default, testSerial)
	if err == nil {
		t.Fatal("expected an overflow error for more than 240 globals")
	}
}
