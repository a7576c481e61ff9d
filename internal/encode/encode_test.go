package encode

import (
	"testing"

	"github.com/davetcode/zwreec/internal/ir"
	"github.com/davetcode/zwreec/internal/zstring"
)

func encodeOne(t *testing.T, r ir.Routine) Routine {
	t.Helper()
	table := zstring.NewUnicodeTable()
	er, err := encodeRoutine(r, &zstring.Default, table)
	if err != nil {
		t.Fatalf("encodeRoutine error: %v", err)
	}
	return er
}

func TestEncodeSimpleArithmetic(t *testing.T) {
	result := ir.Scratch
	r := ir.Routine{
		Name: "R_Test",
		Body: []ir.Instr{
			{Op: ir.OpAdd, Operands: []ir.Operand{ir.Const(1), ir.Const(2)}, Store: &result},
			{Op: ir.OpRtrue},
		},
	}
	er := encodeOne(t, r)

	// locals byte, then 2OP:20 (ADD) via variable form: opcode 0xD4,
	// type byte 0x5F (both operands smallConstant, remaining 2 slots
	// omitted), two operand bytes, one store byte.
	want := []byte{0, 0xD4, 0x5F, 1, 2, 0}
	if len(er.Code) < len(want) {
		t.Fatalf("Code too short: %#v", er.Code)
	}
	for i, b := range want {
		if er.Code[i] != b {
			t.Fatalf("byte %d = %#x, want %#x (full: %#v)", i, er.Code[i], b, er.Code)
		}
	}
	if er.Code[len(want)] != 0xB0 { // 0OP:0 RTRUE
		t.Fatalf("expected RTRUE (0xB0) after ADD, got %#x", er.Code[len(want)])
	}
}

func TestEncodeBranchResolvesLabel(t *testing.T) {
	r := ir.Routine{
		Name: "R_Test",
		Body: []ir.Instr{
			{Op: ir.OpJZ, Operands: []ir.Operand{ir.VarOperand(ir.Scratch)}, Label: "end", Sense: ir.BranchOnTrue},
			{Op: ir.OpPrintLiteral, Literal: "x"},
			{Op: ir.OpLabel, LabelName: "end"},
			{Op: ir.OpRtrue},
		},
	}
	er := encodeOne(t, r)

	// locals byte + JZ (1OP:0, variable operand, 1 byte) + 2 branch bytes
	if er.Code[1] != 0x80|(0b10<<4)|0 {
		t.Fatalf("expected JZ opcode byte, got %#x", er.Code[1])
	}
	branchHi, branchLo := er.Code[3], er.Code[4]
	if branchHi&0x80 == 0 {
		t.Fatalf("expected branch-on-true sense bit set, got %#x", branchHi)
	}
	offset := int16(uint16(branchHi&0x3F)<<8 | uint16(branchLo))
	if offset <= 0 {
		t.Fatalf("expected a positive forward branch offset, got %d", offset)
	}
}

func TestEncodeRoutineAddrProducesReloc(t *testing.T) {
	discard := ir.Scratch
	r := ir.Routine{
		Name: "R_Test",
		Body: []ir.Instr{
			{Op: ir.OpCallVS, Callee: "R_Other", Store: &discard},
			{Op: ir.OpRtrue},
		},
	}
	er := encodeOne(t, r)

	if len(er.Relocs) != 1 {
		t.Fatalf("expected exactly 1 reloc, got %#v", er.Relocs)
	}
	rl := er.Relocs[0]
	if rl.Kind != RelocPackedRoutine || rl.Symbol != "routine:R_Other" {
		t.Fatalf("expected a packed routine reloc for R_Other, got %#v", rl)
	}
	if er.Code[rl.Offset] != 0 || er.Code[rl.Offset+1] != 0 {
		t.Fatalf("expected the reloc slot to still hold its zero placeholder, got %#v", er.Code)
	}
}

func TestEncodePrintPaddrProducesStringReloc(t *testing.T) {
	r := ir.Routine{
		Name: "R_Test",
		Body: []ir.Instr{
			{Op: ir.OpPrintPaddr, StringID: 3},
			{Op: ir.OpRtrue},
		},
	}
	er := encodeOne(t, r)

	if len(er.Relocs) != 1 || er.Relocs[0].Kind != RelocPackedString || er.Relocs[0].Symbol != "str:3" {
		t.Fatalf("expected a packed string reloc for str:3, got %#v", er.Relocs)
	}
}

func TestEncodeRawStringAddrIsByteReloc(t *testing.T) {
	r := ir.Routine{
		Name: "R_Test",
		Body: []ir.Instr{
			{Op: ir.OpPush, Operands: []ir.Operand{ir.RawStringAddr(2)}},
			{Op: ir.OpRtrue},
		},
	}
	er := encodeOne(t, r)

	if len(er.Relocs) != 1 || er.Relocs[0].Kind != RelocByteAddr || er.Relocs[0].Symbol != "raw:2" {
		t.Fatalf("expected a byte-address reloc for raw:2, got %#v", er.Relocs)
	}
}

func TestEncodeLargeConstantUsesTwoBytes(t *testing.T) {
	r := ir.Routine{
		Name: "R_Test",
		Body: []ir.Instr{
			{Op: ir.OpPush, Operands: []ir.Operand{ir.Const(1000)}},
			{Op: ir.OpRtrue},
		},
	}
	er := encodeOne(t, r)
	// locals byte, opcode byte, type byte, 2 operand bytes, then RTRUE.
	if er.Code[5] != 0xB0 {
		t.Fatalf("expected a 2-byte large constant operand before RTRUE, got %#v", er.Code)
	}
	if uint16(er.Code[3])<<8|uint16(er.Code[4]) != 1000 {
		t.Fatalf("expected operand bytes to encode 1000, got %#v", er.Code)
	}
}

func TestEncodeModulePropagatesRoutineNames(t *testing.T) {
	m := ir.NewModule()
	m.Routines = []ir.Routine{
		{Name: "R_Start", Body: []ir.Instr{{Op: ir.OpRtrue}}},
	}
	routines, err := Module(m, &zstring.Default, zstring.NewUnicodeTable())
	if err != nil {
		t.Fatalf("Module error: %v", err)
	}
	if len(routines) != 1 || routines[0].Name != "R_Start" {
		t.Fatalf("expected one routine named R_Start, got %#v", routines)
	}
}
