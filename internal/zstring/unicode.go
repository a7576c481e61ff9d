package zstring

import (
	"fmt"
	"sort"
)

// firstUnicodeZscii and lastUnicodeZscii bound the extended ZSCII range a
// header-extension Unicode translation table may assign codes in, per
// the Z-Machine Standard. The teacher's zstring/unicode.go default table
// (DefaultUnicodeTranslationTable) lives entirely inside this range.
const (
	firstUnicodeZscii = 155
	lastUnicodeZscii  = 251
)

// UnicodeTable is the per-compilation Unicode translation table written
// into the story file's header extension (spec.md §4.1): "Code points
// above the ZSCII range map via the Unicode translation table in the
// header extension, filled with code points from the input that exceed
// 0x9B." Unlike the teacher's fixed DefaultUnicodeTranslationTable (which
// only covers a handful of Western European accented letters), this one
// is built fresh per story from the exact set of non-ASCII runes the
// source actually uses, so arbitrary Unicode input is supported, not just
// the teacher's default 69 code points.
type UnicodeTable struct {
	codeOf map[rune]uint8
	runes  []rune
}

// NewUnicodeTable returns an empty table.
func NewUnicodeTable() *UnicodeTable {
	return &UnicodeTable{codeOf: make(map[rune]uint8)}
}

// CollectUnicodeTable scans every string a story will print and assigns
// each distinct non-ASCII, non-alphabet rune a stable ZSCII code in
// source-first-encountered order, matching the "global stability" texture
// spec.md requires of variable index assignment (§3 invariants) applied
// here to Unicode code points instead.
func CollectUnicodeTable(alphabets *Alphabets, strs []string) (*UnicodeTable, error) {
	t := NewUnicodeTable()
	for _, s := range strs {
		for _, r := range s {
			if needsUnicodeTable(alphabets, r) {
				if _, err := t.add(r); err != nil {
					return nil, err
				}
			}
		}
	}
	return t, nil
}

// needsUnicodeTable reports whether r requires a Unicode-table entry to
// be representable: anything not ASCII space/newline, not in one of the
// three alphabets, and not a plain printable ASCII byte (those are
// encodable as direct ZSCII escapes without a table entry).
func needsUnicodeTable(alphabets *Alphabets, r rune) bool {
	if r == ' ' || r == '\n' {
		return false
	}
	if r > 0 && r < 256 {
		b := byte(r)
		if _, _, ok := alphabets.locate(b); ok {
			return false
		}
		if b >= 32 && b <= 126 {
			return false
		}
	}
	return true
}

func (t *UnicodeTable) add(r rune) (uint8, error) {
	if c, ok := t.codeOf[r]; ok {
		return c, nil
	}
	code := firstUnicodeZscii + len(t.runes)
	if code > lastUnicodeZscii {
		return 0, fmt.Errorf("unicode translation table overflow: more than %d distinct extended code points", lastUnicodeZscii-firstUnicodeZscii+1)
	}
	t.codeOf[r] = uint8(code)
	t.runes = append(t.runes, r)
	return uint8(code), nil
}

// Lookup returns the ZSCII code assigned to r, if any.
func (t *UnicodeTable) Lookup(r rune) (uint8, bool) {
	c, ok := t.codeOf[r]
	return c, ok
}

// Entries returns the table's code points in assignment order - the order
// the header extension's Unicode translation table must list them in.
func (t *UnicodeTable) Entries() []rune {
	out := make([]rune, len(t.runes))
	copy(out, t.runes)
	return out
}

// Len reports the number of distinct extended code points in the table.
func (t *UnicodeTable) Len() int {
	return len(t.runes)
}

// sortedKeys returns the table's code points in ascending order,
// independent of map order.
func (t *UnicodeTable) sortedKeys() []rune {
	keys := make([]rune, 0, len(t.codeOf))
	for r := range t.codeOf {
		keys = append(keys, r)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
