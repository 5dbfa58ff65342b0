package wire

import (
	"math"
	"testing"

	"github.com/OpenCyphal/nunavut/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// S1: a single sealed uint8 field named value, 1 -> 0x01.
func TestScenarioS1(t *testing.T) {
	buf := make([]byte, 1)
	require.NoError(t, SetU(buf, 8, 0, 1, 8))
	assert.Equal(t, []byte{0x01}, buf)
	assert.Equal(t, uint64(1), GetU(buf, 8, 0, 8))
}

// P1: round trip for arbitrary (width, offset, value) within a generously
// sized buffer.
func TestRoundTripUnsigned(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		width := rapid.IntRange(1, 64).Draw(rt, "width")
		offset := rapid.IntRange(0, 64).Draw(rt, "offset")
		bufBits := offset + width
		buf := make([]byte, (bufBits+7)/8)
		var value uint64
		if width == 64 {
			value = rapid.Uint64().Draw(rt, "value")
		} else {
			value = rapid.Uint64Range(0, (uint64(1)<<uint(width))-1).Draw(rt, "value")
		}
		require.NoError(rt, SetU(buf, bufBits, offset, value, width))
		assert.Equal(rt, value, GetU(buf, bufBits, offset, width))
	})
}

func TestRoundTripSigned(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		width := rapid.IntRange(2, 64).Draw(rt, "width")
		offset := rapid.IntRange(0, 64).Draw(rt, "offset")
		bufBits := offset + width
		buf := make([]byte, (bufBits+7)/8)
		var value int64
		if width == 64 {
			value = int64(rapid.Uint64().Draw(rt, "value"))
		} else {
			max := int64(1)<<uint(width-1) - 1
			min := -(int64(1) << uint(width-1))
			value = rapid.Int64Range(min, max).Draw(rt, "value")
		}
		require.NoError(rt, SetI(buf, bufBits, offset, value, width))
		assert.Equal(rt, value, GetI(buf, bufBits, offset, width))
	})
}

func TestSetUBufferTooSmall(t *testing.T) {
	buf := make([]byte, 1)
	err := SetU(buf, 4, 0, 1, 8)
	assert.True(t, errs.Is(err, errs.BufferTooSmall))
}

// P4: implicit zero extension — reading past bufBitLen yields 0, and a
// narrower buffer than a field's width zero-extends the missing bits.
func TestImplicitZeroExtension(t *testing.T) {
	buf := []byte{0xFF}
	// Only 4 of the 8 bits are "valid"; reading 8 bits should zero-extend
	// the top 4.
	got := GetU(buf, 4, 0, 8)
	assert.Equal(t, uint64(0x0F), got)
}

func TestGetPastBufBitLenIsZero(t *testing.T) {
	buf := []byte{0xFF}
	assert.Equal(t, uint64(0), GetU(buf, 4, 4, 8))
}

// P5: saturation clamps to range.
func TestSaturateUnsigned(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		width := rapid.IntRange(1, 63).Draw(rt, "width")
		value := rapid.Uint64().Draw(rt, "value")
		max := (uint64(1) << uint(width)) - 1
		got := SaturateUnsigned(value, width)
		assert.LessOrEqual(rt, got, max)
		if value <= max {
			assert.Equal(rt, value, got)
		} else {
			assert.Equal(rt, max, got)
		}
	})
}

func TestSaturateSigned(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		width := rapid.IntRange(2, 63).Draw(rt, "width")
		value := rapid.Int64Range(math.MinInt32, math.MaxInt32).Draw(rt, "value")
		max := int64(1)<<uint(width-1) - 1
		min := -(int64(1) << uint(width-1))
		got := SaturateSigned(value, width)
		assert.True(rt, got >= min && got <= max)
	})
}

func TestCopyBitsUnaligned(t *testing.T) {
	src := []byte{0b10110101}
	dst := make([]byte, 2)
	CopyBits(dst, 3, 5, src, 1)
	// bits [1,6) of src = 0b1101 0 (reading LSB-first from bit1..bit5)
	for i := 0; i < 5; i++ {
		assert.Equal(t, GetBit(src, 8, 1+i), GetBit(dst, 16, 3+i), "bit %d", i)
	}
}
