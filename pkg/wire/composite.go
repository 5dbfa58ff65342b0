package wire

import "github.com/OpenCyphal/nunavut/pkg/errs"

// DelimiterHeaderBits is the width of the delimited-composite length
// header: a 4-byte little-endian unsigned integer giving the payload
// length in bytes.
const DelimiterHeaderBits = 32

// WriteDelimiterHeader writes the 4-byte little-endian payload length at
// offsetBit.
func WriteDelimiterHeader(buf []byte, bufBitLen, offsetBit int, payloadBytes uint32) error {
	return SetU(buf, bufBitLen, offsetBit, uint64(payloadBytes), DelimiterHeaderBits)
}

// ReadDelimiterHeader reads the payload length. A header claiming more
// bytes than remain in the input buffer is errs.BadDelimiterHeader only
// for the outermost type; nested delimited fields instead rely on the
// implicit truncation/zero-extension rule and are validated by the
// caller, not here.
func ReadDelimiterHeader(buf []byte, bufBitLen, offsetBit int, remainingBytesAfterHeader int) (uint32, error) {
	length := uint32(GetU(buf, bufBitLen, offsetBit, DelimiterHeaderBits))
	if int(length) > remainingBytesAfterHeader {
		return 0, errs.New(errs.BadDelimiterHeader,
			"delimiter header claims %d bytes, only %d remain", length, remainingBytesAfterHeader)
	}
	return length, nil
}

// UnionTagBitWidth returns the minimum unsigned bit width needed to index
// optionCount options, rounded up to a byte boundary. It is computed
// independently of dsdl.Composite.TagBitWidth, and the two must agree;
// nothing compares them at run time.
func UnionTagBitWidth(optionCount int) int {
	bits := 0
	for v := optionCount - 1; v > 0; v >>= 1 {
		bits++
	}
	if bits == 0 {
		bits = 1
	}
	return ((bits + 7) / 8) * 8
}

// WriteUnionTag writes the 0-based option index as the union's tag field.
func WriteUnionTag(buf []byte, bufBitLen, offsetBit int, optionIndex, optionCount int) error {
	width := UnionTagBitWidth(optionCount)
	return SetU(buf, bufBitLen, offsetBit, uint64(optionIndex), width)
}

// ReadUnionTag reads the tag and validates it against optionCount,
// failing with errs.InvalidTag without touching any payload bytes.
func ReadUnionTag(buf []byte, bufBitLen, offsetBit int, optionCount int) (int, error) {
	width := UnionTagBitWidth(optionCount)
	tag := int(GetU(buf, bufBitLen, offsetBit, width))
	if tag >= optionCount {
		return 0, errs.New(errs.InvalidTag, "tag %d exceeds option count %d", tag, optionCount)
	}
	return tag, nil
}

// RequireBits reports errs.BufferTooSmall when a sealed field requires
// more bits than the buffer has remaining.
func RequireBits(bufBitLen, offsetBit, needed int) error {
	if offsetBit+needed > bufBitLen {
		return errs.New(errs.BufferTooSmall,
			"sealed field needs %d bits at offset %d, buffer has %d", needed, offsetBit, bufBitLen)
	}
	return nil
}
