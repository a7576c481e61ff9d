// Package encode turns a lowered internal/ir.Module into per-routine Z-code
// bytes, mirroring the teacher's zmachine/opcode.go ParseOpcode /
// parseVariableOperands in reverse: given an ir.Instr this package picks
// the operand types, packs the opcode byte, and appends any trailing store
// or branch bytes those opcode decode functions expect. Symbolic addresses
// (a routine's packed address, a raw string's byte address, the shared
// concat buffer) can't be resolved yet - that depends on the final layout
// internal/image computes - so every reference to one becomes a
// placeholder largeConstant plus a Reloc for internal/image's Patching
// phase to fill in.
package encode

import (
	"fmt"
	"strings"

	"github.com/davetcode/zwreec/internal/ir"
	"github.com/davetcode/zwreec/internal/zstring"
)

// RelocKind says how internal/image must resolve a Reloc's Symbol into a
// 16-bit value before patching it into a routine's code.
type RelocKind int

const (
	// RelocPackedRoutine resolves "routine:NAME" to NAME's packed address.
	RelocPackedRoutine RelocKind = iota
	// RelocPackedString resolves "str:N" to Module.Strings[N]'s packed
	// address.
	RelocPackedString
	// RelocByteAddr resolves "raw:N" or "ConcatBuffer" to an absolute byte
	// address - these are memcpy sources/destinations, never packed.
	RelocByteAddr
)

// Reloc is one unresolved 2-byte operand slot within a Routine's Code,
// recorded at encode time and patched by internal/image once every
// routine, string, and buffer has a final address.
type Reloc struct {
	Offset int // byte offset into Code of the 2-byte slot to patch
	Kind   RelocKind
	Symbol string
}

// Routine is one routine's encoded bytes: a leading locals-count byte
// (spec.md targets v8, a v5+ format, so unlike v3/v4 there are no default
// local values following it) and its instruction stream.
type Routine struct {
	Name   string
	Code   []byte
	Relocs []Reloc
}

// Module encodes every routine in m. alphabets and table are the same ones
// used to encode the Module's interned strings, needed here only for
// OpPrintLiteral's inline Z-string bytes.
func Module(m *ir.Module, alphabets *zstring.Alphabets, table *zstring.UnicodeTable) ([]Routine, error) {
	out := make([]Routine, 0, len(m.Routines))
	for _, r := range m.Routines {
		er, err := encodeRoutine(r, alphabets, table)
		if err != nil {
			return nil, fmt.Errorf("encoding routine %s: %w", r.Name, err)
		}
		out = append(out, er)
	}
	return out, nil
}

func encodeRoutine(r ir.Routine, alphabets *zstring.Alphabets, table *zstring.UnicodeTable) (Routine, error) {
	labelOffset, err := resolveLabels(r, alphabets, table)
	if err != nil {
		return Routine{}, err
	}

	code := []byte{r.Locals}
	var relocs []Reloc
	offset := 0
	for _, instr := range r.Body {
		if instr.Op == ir.OpLabel {
			continue
		}
		b, rs, err := emitInstr(instr, offset, labelOffset, alphabets, table)
		if err != nil {
			return Routine{}, err
		}
		for _, rl := range rs {
			rl.Offset += len(code)
			relocs = append(relocs, rl)
		}
		code = append(code, b...)
		offset += len(b)
	}
	return Routine{Name: r.Name, Code: code, Relocs: relocs}, nil
}

// resolveLabels walks r.Body once to record each OpLabel's byte offset
// within the instruction stream (the locals-count header excluded, since
// branch/jump deltas only depend on relative position). Sizes never
// depend on a label's resolved value - every branch and jump slot is a
// fixed 2 bytes regardless of the actual offset - so a single forward pass
// with unresolved labels (any placeholder map) yields exactly the same
// instruction lengths as the real emit pass that follows.
func resolveLabels(r ir.Routine, alphabets *zstring.Alphabets, table *zstring.UnicodeTable) (map[string]int, error) {
	labelOffset := map[string]int{}
	offset := 0
	empty := map[string]int{}
	for _, instr := range r.Body {
		if instr.Op == ir.OpLabel {
			labelOffset[instr.LabelName] = offset
			continue
		}
		b, _, err := emitInstr(instr, 0, empty, alphabets, table)
		if err != nil {
			return nil, err
		}
		offset += len(b)
	}
	return labelOffset, nil
}

func emitInstr(instr ir.Instr, pcAtStart int, labelOffset map[string]int, alphabets *zstring.Alphabets, table *zstring.UnicodeTable) ([]byte, []Reloc, error) {
	switch instr.Op {
	case ir.OpPrintLiteral:
		zbytes, err := zstring.Encode(instr.Literal, alphabets, table)
		if err != nil {
			return nil, nil, fmt.Errorf("encoding print_literal %q: %w", instr.Literal, err)
		}
		return append([]byte{0xB2}, zbytes...), nil, nil // 0OP:2 PRINT

	case ir.OpPrintPaddr:
		buf := []byte{0x80 | 13, 0, 0} // 1OP:13, large-constant operand
		reloc := Reloc{Offset: 1, Kind: RelocPackedString, Symbol: fmt.Sprintf("str:%d", instr.StringID)}
		return buf, []Reloc{reloc}, nil

	case ir.OpJump:
		buf := []byte{0x80 | 12, 0, 0} // 1OP:12, large-constant operand
		pcAfter := pcAtStart + len(buf)
		off := relOffset(labelOffset, instr.Label, pcAfter)
		buf[1], buf[2] = byte(off>>8), byte(off)
		return buf, nil, nil
	}

	d, ok := opcodes[instr.Op]
	if !ok {
		return nil, nil, fmt.Errorf("encode: no opcode mapping for %v", instr.Op)
	}

	switch d.shape {
	case shape0OP:
		return []byte{0x80 | 0x30 | d.number}, nil, nil

	case shape1OP:
		return emit1OP(d, instr, pcAtStart, labelOffset)

	default: // shape2OP, shapeVAR
		return emitVarForm(d, instr, pcAtStart, labelOffset)
	}
}

func emit1OP(d desc, instr ir.Instr, pcAtStart int, labelOffset map[string]int) ([]byte, []Reloc, error) {
	operands := effectiveOperands(instr)
	if len(operands) != 1 {
		return nil, nil, fmt.Errorf("encode: 1OP opcode %d wants exactly 1 operand, got %d", d.number, len(operands))
	}
	vtype, reloc, opBytes := encodeOperand(operands[0])
	buf := append([]byte{0x80 | (vtype << 4) | d.number}, opBytes...)

	var relocs []Reloc
	if reloc != nil {
		reloc.Offset += 1
		relocs = append(relocs, *reloc)
	}
	if d.store {
		buf = append(buf, byte(ir.VarNumber(*instr.Store)))
	}
	if d.branch {
		buf = appendBranch(buf, instr, pcAtStart, labelOffset)
	}
	return buf, relocs, nil
}

func emitVarForm(d desc, instr ir.Instr, pcAtStart int, labelOffset map[string]int) ([]byte, []Reloc, error) {
	operands := effectiveOperands(instr)
	if len(operands) > 4 {
		return nil, nil, fmt.Errorf("encode: opcode %d takes at most 4 operands, got %d", d.number, len(operands))
	}

	var typeByte byte
	var operandBytes []byte
	var relocs []Reloc
	for i, op := range operands {
		vtype, reloc, opBytes := encodeOperand(op)
		typeByte |= vtype << uint(2*(3-i))
		if reloc != nil {
			reloc.Offset += 2 + len(operandBytes)
			relocs = append(relocs, *reloc)
		}
		operandBytes = append(operandBytes, opBytes...)
	}
	for i := len(operands); i < 4; i++ {
		typeByte |= 0b11 << uint(2*(3-i)) // omitted
	}

	base := byte(0xC0)
	if d.shape == shapeVAR {
		base = 0xE0
	}
	buf := append([]byte{base | d.number, typeByte}, operandBytes...)

	if d.store {
		buf = append(buf, byte(ir.VarNumber(*instr.Store)))
	}
	if d.branch {
		buf = appendBranch(buf, instr, pcAtStart, labelOffset)
	}
	return buf, relocs, nil
}

// appendBranch appends the always-two-byte branch form (spec.md's codegen
// is explicitly not size-optimized, so the compact single-byte form is
// never used) and fills in the 14-bit signed offset, mirroring
// handleBranch's decode arithmetic in reverse.
func appendBranch(buf []byte, instr ir.Instr, pcAtStart int, labelOffset map[string]int) []byte {
	buf = append(buf, 0, 0)
	pcAfter := pcAtStart + len(buf)
	off := relOffset(labelOffset, instr.Label, pcAfter)

	sense := byte(0)
	if instr.Sense == ir.BranchOnTrue {
		sense = 1
	}
	lo14 := uint16(off) & 0x3FFF
	buf[len(buf)-2] = (sense << 7) | byte((lo14>>8)&0x3F)
	buf[len(buf)-1] = byte(lo14)
	return buf
}

// relOffset computes the branch/jump delta handleBranch's decode side
// expects: destination = pcAfter + offset - 2, so offset = target - pcAfter
// + 2. An unresolved label (only possible during resolveLabels' sizing
// pass) contributes 0, which doesn't affect the byte count that pass cares
// about.
func relOffset(labelOffset map[string]int, label string, pcAfter int) int16 {
	target, ok := labelOffset[label]
	if !ok {
		return 0
	}
	return int16(target + 2 - pcAfter)
}

func encodeOperand(op ir.Operand) (vtype byte, reloc *Reloc, bytes []byte) {
	switch op.Kind {
	case ir.OperandVar:
		return 0b10, nil, []byte{byte(ir.VarNumber(op.Var))}
	case ir.OperandAddr:
		return 0b00, &Reloc{Kind: classifyAddr(op.Name), Symbol: op.Name}, []byte{0, 0}
	default: // OperandConst
		if op.Const <= 0xFF {
			return 0b01, nil, []byte{byte(op.Const)}
		}
		return 0b00, nil, []byte{byte(op.Const >> 8), byte(op.Const)}
	}
}

func classifyAddr(name string) RelocKind {
	if strings.HasPrefix(name, "routine:") {
		return RelocPackedRoutine
	}
	return RelocByteAddr // "raw:N" or ir.AddrConcatBuffer
}
