// Package dictionary writes the empty dictionary table spec.md §6.2/§4.7
// calls for ("empty dictionary"), mirroring the teacher's own
// dictionary.ParseDictionary header layout in reverse: n (separator count),
// the separator list itself, entry length, entry count - with the entry
// count fixed at zero and no entries following.
package dictionary

// entryLength is the per-entry byte count a v4+ reader expects (6 bytes of
// encoded word plus no data bytes), matching ParseDictionary's
// `encodedWordLength := 6` branch for version > 3. Since this table holds
// zero entries the value only needs to be a number a reader could use to
// stride over entries that don't exist.
const entryLength = 6

// WriteDictionary returns the bytes of an empty dictionary table: no input
// (word-separator) codes, and zero entries.
func WriteDictionary() []byte {
	return []byte{
		0,            // n: number of input codes
		entryLength,  // entry length
		0, 0,         // entry count (big-endian int16), zero
	}
}
