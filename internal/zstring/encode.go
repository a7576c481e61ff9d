package zstring

import (
	"fmt"
)

// shiftA1 and shiftA2 are the Z-character codes that select alphabet A1 or
// A2 for exactly the following character (v3+ semantics - no shift-lock,
// matching the teacher's zstring.ReadZString case 4/5 "Shift 1/2 in v3+").
const (
	shiftA1    = 4
	shiftA2    = 5
	escapeCode = 6 // zchar 6 on A2 introduces a 10-bit ZSCII escape
)

// paddingZchar fills out a string to a whole number of Z-character triples.
// spec.md §4.1: "Strings are padded to a whole number of words with
// A0-shift (5) filler."
const paddingZchar = 5

// Encode converts s into a sequence of 16-bit Z-Machine string words,
// packed three Z-characters per word with the top bit of the final word
// set. table must already contain an entry for every rune in s that
// needs2 one (see CollectUnicodeTable); Encode never mutates it.
//
// Control characters outside the Z-Machine's legal set (anything other
// than '\n' and printable text) are rejected with an error, and the
// function is otherwise pure and deterministic per spec.md §4.1.
func Encode(s string, alphabets *Alphabets, table *UnicodeTable) ([]byte, error) {
	zchars, err := encodeZchars(s, alphabets, table)
	if err != nil {
		return nil, err
	}

	for len(zchars)%3 != 0 {
		zchars = append(zchars, paddingZchar)
	}

	out := make([]byte, 0, len(zchars)/3*2)
	for i := 0; i < len(zchars); i += 3 {
		word := uint16(zchars[i])<<10 | uint16(zchars[i+1])<<5 | uint16(zchars[i+2])
		if i+3 >= len(zchars) {
			word |= 0x8000
		}
		out = append(out, byte(word>>8), byte(word))
	}
	return out, nil
}

func encodeZchars(s string, alphabets *Alphabets, table *UnicodeTable) ([]byte, error) {
	var zchars []byte

	for _, r := range s {
		switch {
		case r == ' ':
			zchars = append(zchars, 0)

		case r == '\n':
			zchars = append(zchars, shiftA2, 7+0) // a2_v2_default[0] == '\n'

		case r >= 0 && r < 32:
			return nil, fmt.Errorf("illegal control character %U in story text", r)

		case r == 127:
			return nil, fmt.Errorf("illegal control character %U in story text", r)

		case r >= 32 && r < 127:
			b := byte(r)
			if alphabet, idx, ok := alphabets.locate(b); ok {
				switch alphabet {
				case 0:
					zchars = append(zchars, byte(idx+6))
				case 1:
					zchars = append(zchars, shiftA1, byte(idx+6))
				case 2:
					zchars = append(zchars, shiftA2, byte(idx+7))
				}
				continue
			}
			// Plain printable ASCII outside all three alphabets: escape
			// with its ZSCII code directly (ZSCII 32-126 mirrors ASCII).
			zchars = append(zchars, escapeZscii(uint16(b))...)

		default:
			code, ok := table.Lookup(r)
			if !ok {
				return nil, fmt.Errorf("code point %U has no assigned Unicode translation table entry", r)
			}
			zchars = append(zchars, escapeZscii(uint16(code))...)
		}
	}

	return zchars, nil
}

// escapeZscii emits the three Z-characters for a 10-bit ZSCII escape:
// shift to A2, the escape marker (6), then the high and low 5-bit halves.
func escapeZscii(code uint16) []byte {
	return []byte{shiftA2, escapeCode, byte((code >> 5) & 0b11111), byte(code & 0b11111)}
}
