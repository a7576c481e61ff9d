package image

// Byte layout constants for the v8 story file internal/image assembles,
// grounded on the teacher's zcore.LoadCore field offsets and
// zobject.GetObject's v4+ entry shape (spec.md §4.7).
const (
	// headerSize is the fixed 64-byte header region (zcore's 0x00-0x40).
	headerSize = 0x40

	// globalsCount/globalsSize are the 240 two-byte global variable slots
	// (spec.md §4.7: "globals table (480 bytes, 240 x 2)").
	globalsCount = 240
	globalsSize  = globalsCount * 2

	// concatBufferSize is the shared scratch region internal/lower/concat.go
	// writes into at runtime; it must live in writable (dynamic) memory, so
	// it's placed before the object table rather than alongside the other
	// read-only sections. 256 bytes comfortably covers any one concatenated
	// value this compiler ever assembles (int/bool renderings are short,
	// and spec.md doesn't bound string literal length beyond that).
	concatBufferSize = 256

	// Object table: property-defaults table (63 words, zobject's
	// `objectTableBase + 63*2` offset to the first entry) followed by a
	// single dummy object's v4+ 14-byte entry (spec.md "minimal: property
	// defaults + a single dummy object").
	propertyDefaultsSize = 63 * 2
	objectEntrySize      = 14
	dummyPropertyTableSize = 2 // zero-length short name + zero-length property list terminator

	// abbreviationSlots/abbreviationTableSize: a present-but-empty
	// abbreviations table (spec.md "empty, all zero entries but present").
	// 96 is the standard's fixed abbreviation-slot count for every version
	// that has one at all (3 sets of 32 word-address entries), independent
	// of how many - zero, here - are ever referenced by a FindAbbreviation
	// lookup.
	abbreviationSlots    = 96
	abbreviationTableSize = abbreviationSlots * 2

	// routineAlign/stringAlign: v8's packed-address factor is 8 (zmachine's
	// packedAddress: "case z.Core.Version == 8: return 8 * originalAddress"),
	// so every routine and every static string must start on an 8-byte
	// boundary for its packed address to round-trip.
	routineAlign = 8
	stringAlign  = 8
)

func align(addr, to int) int {
	rem := addr % to
	if rem == 0 {
		return addr
	}
	return addr + (to - rem)
}
