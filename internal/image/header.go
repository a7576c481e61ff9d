package image

import "encoding/binary"

// Header field byte offsets, read directly off zcore.LoadCore's parsing
// (internal/image is the write side of exactly what that function reads).
const (
	offVersion               = 0x00
	offFlags1                = 0x01
	offRelease                = 0x02
	offHighMemoryMark         = 0x04 // "paged memory base" in zcore
	offInitialPC              = 0x06 // "first instruction"
	offDictionaryBase         = 0x08
	offObjectTableBase        = 0x0a
	offGlobalVariableBase     = 0x0c
	offStaticMemoryBase       = 0x0e
	offSerial                 = 0x12 // 6 bytes, unparsed by zcore but reserved
	offAbbreviationTableBase  = 0x18
	offFileLength             = 0x1a
	offChecksum               = 0x1c
	offInterpreterNumber      = 0x1e
	offInterpreterVersion     = 0x1f
	offScreenHeightLines      = 0x20
	offScreenWidthChars       = 0x21
	offScreenWidthUnits       = 0x22
	offScreenHeightUnits      = 0x24
	offFontHeight             = 0x26
	offFontWidth              = 0x27
	offExtensionTableBaseAddr = 0x36

	versionByte = 8 // spec.md §4.7: "version byte = 8"

	// fileLengthDivisor is v8's file-length packing factor (zcore's
	// FileLength: "case default: divisor = 8").
	fileLengthDivisor = 8
)

// writeHeader fills in buf[0:headerSize] with every field spec.md §4.7
// names, given the addresses the Sizing phase already computed. Checksum
// and the file-length field are left for the Checksumming phase, since
// they depend on the complete buffer.
func writeHeader(buf []byte, serial [6]byte, l layout) {
	buf[offVersion] = versionByte

	// Screen/interpreter flags mirror zcore.LoadCore's own v4+ branch
	// (colour, bold, italic, split-screen; no pictures/fixed-width/timed
	// input claimed).
	buf[offFlags1] = 0b0010_1101

	binary.BigEndian.PutUint16(buf[offRelease:], 1) // spec.md: "release number is 1"
	binary.BigEndian.PutUint16(buf[offHighMemoryMark:], uint16(l.routinesOffset))
	binary.BigEndian.PutUint16(buf[offInitialPC:], uint16(l.entryPC))
	binary.BigEndian.PutUint16(buf[offDictionaryBase:], uint16(l.dictionaryOffset))
	binary.BigEndian.PutUint16(buf[offObjectTableBase:], uint16(l.objectTableOffset))
	binary.BigEndian.PutUint16(buf[offGlobalVariableBase:], uint16(l.globalsOffset))
	binary.BigEndian.PutUint16(buf[offStaticMemoryBase:], uint16(l.staticMemoryBase))
	copy(buf[offSerial:offSerial+6], serial[:])
	binary.BigEndian.PutUint16(buf[offAbbreviationTableBase:], uint16(l.abbreviationsOffset))

	buf[offInterpreterNumber] = 0x6 // IBM PC, matching zcore.LoadCore's own choice
	buf[offInterpreterVersion] = 0x1

	buf[offScreenHeightLines] = 25
	buf[offScreenWidthChars] = 80
	binary.BigEndian.PutUint16(buf[offScreenWidthUnits:], 80)
	binary.BigEndian.PutUint16(buf[offScreenHeightUnits:], 25)
	buf[offFontHeight] = 1
	buf[offFontWidth] = 1

	if l.extensionTableOffset != 0 {
		binary.BigEndian.PutUint16(buf[offExtensionTableBaseAddr:], uint16(l.extensionTableOffset))
	}
}

// writeChecksumAndLength fills in the two fields that depend on the
// complete assembled image, per spec.md §4.7: "file length and checksum
// filled last (checksum = sum of all bytes from 0x40 onward, mod
// 0x10000)".
func writeChecksumAndLength(buf []byte) {
	binary.BigEndian.PutUint16(buf[offFileLength:], uint16(len(buf)/fileLengthDivisor))

	var sum uint16
	for _, b := range buf[headerSize:] {
		sum += uint16(b)
	}
	binary.BigEndian.PutUint16(buf[offChecksum:], sum)
}
