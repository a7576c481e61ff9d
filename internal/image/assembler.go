// Package image assembles a lowered, encoded internal/ir.Module into a
// complete Z-Machine v8 story file, per spec.md §4.7's two-pass layout:
// Sizing computes every section's address, Emitting copies bytes into a
// single buffer at those addresses, Patching resolves the symbolic
// relocations internal/encode left behind, and Checksumming fills in the
// two fields that depend on the finished buffer. The object-table and
// dictionary byte shapes are grounded on the teacher's zobject.GetObject
// and (inverted) internal/dictionary.WriteDictionary; header fields
// mirror zcore.LoadCore's own offsets.
package image

import (
	"fmt"

	"github.com/davetcode/zwreec/internal/dictionary"
	"github.com/davetcode/zwreec/internal/encode"
	"github.com/davetcode/zwreec/internal/ir"
	"github.com/davetcode/zwreec/internal/zstring"
)

// State names one step of spec.md §4.7's layout state machine.
type State int

const (
	StateSizing State = iota
	StateEmitting
	StatePatching
	StateChecksumming
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSizing:
		return "Sizing"
	case StateEmitting:
		return "Emitting"
	case StatePatching:
		return "Patching"
	case StateChecksumming:
		return "Checksumming"
	case StateDone:
		return "Done"
	default:
		return "Failed"
	}
}

// layout is every address the Sizing phase computes, threaded into the
// Emitting, Patching and header-writing steps that follow it.
type layout struct {
	globalsOffset         int
	concatBufferOffset    int
	objectTableOffset     int
	dummyObjectOffset     int
	dummyPropTableOffset  int
	dictionaryOffset      int
	abbreviationsOffset   int
	extensionTableOffset  int
	unicodeTableOffset    int
	rawStringOffset       map[int]int
	routineOffset         map[string]int
	stringOffset          map[int]int
	routinesOffset        int
	staticMemoryBase      int
	entryPC               int
	total                 int
}

// Assembler runs the layout state machine over one Module. It is not
// reused across compilations - a fresh Assembler per image, matching
// spec.md §5's "no shared mutable state between components."
type Assembler struct {
	State State
	Err   error

	module    *ir.Module
	alphabets *zstring.Alphabets
	serial    [6]byte

	table    *zstring.UnicodeTable
	routines []encode.Routine
	rawBytes [][]byte
	strBytes [][]byte
	l        layout
	buf      []byte
}

// Assemble runs every phase in order and returns the finished story file
// bytes, or the diagnostic recorded when a phase fails.
func Assemble(module *ir.Module, alphabets *zstring.Alphabets, serial [6]byte) ([]byte, error) {
	a := &Assembler{module: module, alphabets: alphabets, serial: serial}
	for a.State != StateDone && a.State != StateFailed {
		switch a.State {
		case StateSizing:
			a.size()
		case StateEmitting:
			a.emit()
		case StatePatching:
			a.patch()
		case StateChecksumming:
			a.checksum()
		}
	}
	if a.State == StateFailed {
		return nil, a.Err
	}
	return a.buf, nil
}

// zEncodedStrings returns every string internal/encode ever runs through
// zstring.Encode: the interned static strings (passage text, link
// labels/markers) and OpPrintLiteral's inline literal text - the only two
// sources of a Z-character-encoded string. A string-typed variable's
// value, by contrast, is always a RawStrings byte run (concat.go), copied
// verbatim rather than Z-encoded, so it needs no Unicode table entry.
func zEncodedStrings(m *ir.Module) []string {
	out := make([]string, 0, len(m.Strings))
	for _, lit := range m.Strings {
		out = append(out, lit.Value)
	}
	for _, r := range m.Routines {
		for _, instr := range r.Body {
			if instr.Op == ir.OpPrintLiteral {
				out = append(out, instr.Literal)
			}
		}
	}
	return out
}

func (a *Assembler) fail(format string, args ...interface{}) {
	a.Err = fmt.Errorf(format, args...)
	a.State = StateFailed
}

// size computes every section's address (spec.md §4.7 Pass 1). Every
// routine and string's final byte length is already fixed by
// internal/encode/internal/zstring (relocation slots are placeholders of
// known size, not variable-length), so one forward walk over the module
// fully determines the layout - there is no relaxation loop.
func (a *Assembler) size() {
	if a.module.GlobalCount() > globalsCount {
		a.fail("encode: %d global variables exceeds the 240-slot table", a.module.GlobalCount())
		return
	}

	var err error
	a.table, err = zstring.CollectUnicodeTable(a.alphabets, zEncodedStrings(a.module))
	if err != nil {
		a.fail("encode: %v", err)
		return
	}

	a.routines, err = encode.Module(a.module, a.alphabets, a.table)
	if err != nil {
		a.fail("encode: %v", err)
		return
	}

	a.rawBytes = make([][]byte, len(a.module.RawStrings))
	for _, lit := range a.module.RawStrings {
		a.rawBytes[lit.ID] = append([]byte(lit.Value), 0) // NUL-terminated ASCII run
	}

	a.strBytes = make([][]byte, len(a.module.Strings))
	for _, lit := range a.module.Strings {
		zb, err := zstring.Encode(lit.Value, a.alphabets, a.table)
		if err != nil {
			a.fail("encode: string %d: %v", lit.ID, err)
			return
		}
		a.strBytes[lit.ID] = zb
	}

	l := layout{rawStringOffset: map[int]int{}, routineOffset: map[string]int{}, stringOffset: map[int]int{}}

	offset := headerSize
	l.globalsOffset = offset
	offset += globalsSize

	l.concatBufferOffset = offset
	offset += concatBufferSize

	l.objectTableOffset = offset
	l.staticMemoryBase = offset
	offset += propertyDefaultsSize
	l.dummyObjectOffset = offset
	offset += objectEntrySize
	l.dummyPropTableOffset = offset
	offset += dummyPropertyTableSize

	l.dictionaryOffset = offset
	offset += len(dictionary.WriteDictionary())

	l.abbreviationsOffset = offset
	offset += abbreviationTableSize

	if a.table.Len() > 0 {
		l.unicodeTableOffset = offset
		offset += 1 + a.table.Len()*2
		l.extensionTableOffset = offset
		offset += 2 * 4 // word0 count, word1/word2 mouse (unused), word3 unicode table addr
	}

	for _, lit := range a.module.RawStrings {
		l.rawStringOffset[lit.ID] = offset
		offset += len(a.rawBytes[lit.ID])
	}

	offset = align(offset, routineAlign)
	l.routinesOffset = offset
	for _, r := range a.routines {
		if len(r.Code) > 0xFFFF {
			a.fail("encode: routine %s exceeds 64KB", r.Name)
			return
		}
		offset = align(offset, routineAlign)
		l.routineOffset[r.Name] = offset
		offset += len(r.Code)
	}

	offset = align(offset, stringAlign)
	for _, lit := range a.module.Strings {
		offset = align(offset, stringAlign)
		l.stringOffset[lit.ID] = offset
		offset += len(a.strBytes[lit.ID])
	}

	// Pad the final length to a multiple of the v8 packing factor so the
	// file-length header field (stored value x 8) reconstructs the exact
	// byte count spec.md's "header validity" invariant requires.
	l.total = align(offset, fileLengthDivisor)
	if l.total > 0xFFFF {
		a.fail("encode: image size %d bytes exceeds the 16-bit addressable range", l.total)
		return
	}

	mainOffset, ok := l.routineOffset["R_Main"]
	if !ok {
		a.fail("encode: module has no R_Main entry routine")
		return
	}
	l.entryPC = mainOffset + 1 // skip the locals-count byte; v8 runs from a raw PC, not a call

	a.l = l
	a.State = StateEmitting
}

// emit copies every section into a[total]byte buffer at the addresses
// size computed, leaving every Reloc slot as the zero placeholder
// internal/encode already left there (spec.md §4.7 Pass 2, first half).
func (a *Assembler) emit() {
	buf := make([]byte, a.l.total)

	writeHeader(buf, a.serial, a.l)

	copy(buf[a.l.dummyObjectOffset+12:a.l.dummyObjectOffset+14], be16(uint16(a.l.dummyPropTableOffset)))
	copy(buf[a.l.dummyPropTableOffset:], []byte{0x00, 0x00}) // zero-length short name, empty property list

	copy(buf[a.l.dictionaryOffset:], dictionary.WriteDictionary())

	if a.table.Len() > 0 {
		writeUnicodeSections(buf, a.l, a.table)
	}

	for _, lit := range a.module.RawStrings {
		copy(buf[a.l.rawStringOffset[lit.ID]:], a.rawBytes[lit.ID])
	}
	for _, r := range a.routines {
		copy(buf[a.l.routineOffset[r.Name]:], r.Code)
	}
	for _, lit := range a.module.Strings {
		copy(buf[a.l.stringOffset[lit.ID]:], a.strBytes[lit.ID])
	}

	a.buf = buf
	a.State = StatePatching
}

func be16(v uint16) []byte { return []byte{byte(v >> 8), byte(v)} }

// writeUnicodeSections writes the Unicode translation table and the
// 4-word header extension table pointing at it, mirroring zcore's own
// parseUnicodeTranslationTable layout in reverse (count byte, then N
// ZSCII-155-ordered code-point words).
func writeUnicodeSections(buf []byte, l layout, table *zstring.UnicodeTable) {
	entries := table.Entries()
	buf[l.unicodeTableOffset] = byte(len(entries))
	for i, r := range entries {
		copy(buf[l.unicodeTableOffset+1+i*2:], be16(uint16(r)))
	}

	copy(buf[l.extensionTableOffset:], be16(3)) // 3 further words follow
	copy(buf[l.extensionTableOffset+2:], be16(0))
	copy(buf[l.extensionTableOffset+4:], be16(0))
	copy(buf[l.extensionTableOffset+6:], be16(uint16(l.unicodeTableOffset)))
}

// patch resolves every Reloc internal/encode recorded against the final
// addresses size computed (spec.md §4.7 Pass 2, second half).
func (a *Assembler) patch() {
	for _, r := range a.routines {
		base := a.l.routineOffset[r.Name]
		for _, rl := range r.Relocs {
			addr, err := a.resolve(rl)
			if err != nil {
				a.fail("patching %s: %v", r.Name, err)
				return
			}
			copy(a.buf[base+rl.Offset:], be16(addr))
		}
	}
	a.State = StateChecksumming
}

func (a *Assembler) resolve(rl encode.Reloc) (uint16, error) {
	switch rl.Kind {
	case encode.RelocPackedRoutine:
		name := rl.Symbol[len("routine:"):]
		addr, ok := a.l.routineOffset[name]
		if !ok {
			return 0, fmt.Errorf("no such routine %q", name)
		}
		return uint16(addr / routineAlign), nil

	case encode.RelocPackedString:
		var id int
		if _, err := fmt.Sscanf(rl.Symbol, "str:%d", &id); err != nil {
			return 0, fmt.Errorf("malformed string reloc symbol %q", rl.Symbol)
		}
		addr, ok := a.l.stringOffset[id]
		if !ok {
			return 0, fmt.Errorf("no such string %d", id)
		}
		return uint16(addr / stringAlign), nil

	default: // RelocByteAddr
		if rl.Symbol == ir.AddrConcatBuffer {
			return uint16(a.l.concatBufferOffset), nil
		}
		var id int
		if _, err := fmt.Sscanf(rl.Symbol, "raw:%d", &id); err != nil {
			return 0, fmt.Errorf("malformed byte-address reloc symbol %q", rl.Symbol)
		}
		addr, ok := a.l.rawStringOffset[id]
		if !ok {
			return 0, fmt.Errorf("no such raw string %d", id)
		}
		return uint16(addr), nil
	}
}

// checksum fills in the file-length and checksum header fields once the
// buffer is complete, then finishes the state machine.
func (a *Assembler) checksum() {
	writeChecksumAndLength(a.buf)
	a.State = StateDone
}
