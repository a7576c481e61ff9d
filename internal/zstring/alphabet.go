// Package zstring implements the ZSCII/Z-character encoder described in
// spec.md §4.1. It is the write-side mirror of the teacher's zstring
// package (github.com/davetcode/goz/zstring), which only ever decodes;
// the alphabet tables and packing rules here are the same ones that
// package's Decode reads, just run in the opposite direction.
package zstring

// Alphabets holds the three 26/25-entry Z-character tables used to map
// source characters to Z-characters. Custom (v5+) alphabets are not
// supported: spec.md targets v8 only and the default tables are the ones
// a v8 story uses unless it opts into a custom alphabet table, which this
// compiler never emits.
type Alphabets struct {
	A0 [26]byte
	A1 [26]byte
	A2 [25]byte
}

// Default is the Z-Machine Standard's default alphabet set (A0 lowercase,
// A1 uppercase, A2 digits/punctuation/newline) - lifted directly from the
// teacher's a0_default/a1_default/a2_v2_default tables in its (now
// superseded) root-level zstring.go.
var Default = Alphabets{
	A0: [26]byte{'a', 'b', 'c', 'd', 'e', 'f', 'g', 'h', 'i', 'j', 'k', 'l', 'm', 'n', 'o', 'p', 'q', 'r', 's', 't', 'u', 'v', 'w', 'x', 'y', 'z'},
	A1: [26]byte{'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H', 'I', 'J', 'K', 'L', 'M', 'N', 'O', 'P', 'Q', 'R', 'S', 'T', 'U', 'V', 'W', 'X', 'Y', 'Z'},
	A2: [25]byte{'\n', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9', '.', ',', '!', '?', '_', '#', '\'', '"', '/', '\\', '-', ':', '(', ')'},
}

// index returns (position, true) if b appears in the table.
func index(table []byte, b byte) (int, bool) {
	for i, c := range table {
		if c == b {
			return i, true
		}
	}
	return 0, false
}

// locate finds which alphabet (if any) contains the ASCII byte b, and its
// zero-based index within that alphabet's table.
func (a *Alphabets) locate(b byte) (alphabet int, idx int, ok bool) {
	if i, found := index(a.A0[:], b); found {
		return 0, i, true
	}
	if i, found := index(a.A1[:], b); found {
		return 1, i, true
	}
	if i, found := index(a.A2[:], b); found {
		return 2, i, true
	}
	return 0, 0, false
}
