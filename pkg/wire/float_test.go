package wire

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestF32F64RoundTrip(t *testing.T) {
	buf32 := make([]byte, 4)
	require.NoError(t, SetF32(buf32, 32, 0, 1.5))
	assert.Equal(t, float32(1.5), GetF32(buf32, 32, 0))

	buf64 := make([]byte, 8)
	require.NoError(t, SetF64(buf64, 64, 0, 3.14159265358979))
	assert.Equal(t, 3.14159265358979, GetF64(buf64, 64, 0))
}

// S5 / P6: 1e9 saturates to +65504; +Inf round-trips to +Inf.
func TestScenarioS5Float16Saturation(t *testing.T) {
	buf := make([]byte, 2)
	require.NoError(t, SetF16(buf, 16, 0, 1e9))
	assert.Equal(t, float32(65504.0), GetF16(buf, 16, 0))

	require.NoError(t, SetF16(buf, 16, 0, float32(math.Inf(1))))
	got := GetF16(buf, 16, 0)
	assert.True(t, math.IsInf(float64(got), 1))
}

func TestFloat16NegativeSaturation(t *testing.T) {
	buf := make([]byte, 2)
	require.NoError(t, SetF16(buf, 16, 0, -1e9))
	assert.Equal(t, float32(-65504.0), GetF16(buf, 16, 0))
}

func TestFloat16NaNPreservesSign(t *testing.T) {
	buf := make([]byte, 2)
	neg := float32(math.Copysign(math.NaN(), -1))
	require.NoError(t, SetF16(buf, 16, 0, neg))
	got := GetF16(buf, 16, 0)
	assert.True(t, math.IsNaN(float64(got)))
	assert.True(t, math.Signbit(float64(got)))
}

func TestFloat16ExactValues(t *testing.T) {
	cases := []float32{0, 1, -1, 0.5, 2, -2, 100, 1234.5}
	buf := make([]byte, 2)
	for _, f := range cases {
		require.NoError(t, SetF16(buf, 16, 0, f))
		assert.InDelta(t, float64(f), float64(GetF16(buf, 16, 0)), 1.0, "value %v", f)
	}
}

// P6: for every finite f within half range, unpack(pack(f)) stays within
// one ULP-ish tolerance of f, and values above 65504 saturate rather than
// going infinite.
func TestFloat16RoundTripProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := float32(rapid.Float64Range(-70000, 70000).Draw(rt, "f"))
		buf := make([]byte, 2)
		require.NoError(rt, SetF16(buf, 16, 0, f))
		got := GetF16(buf, 16, 0)

		if math.Abs(float64(f)) > 65504 {
			assert.Equal(rt, float32(65504*sign(f)), got)
			return
		}
		// Within half precision's representable resolution near the
		// magnitude of f; half has ~3 significant decimal digits near
		// values of this size, so a relative tolerance is appropriate.
		tol := math.Max(math.Ldexp(1, -24), math.Abs(float64(f))*0.001)
		assert.InDelta(rt, float64(f), float64(got), tol)
	})
}

func sign(f float32) float32 {
	if f < 0 {
		return -1
	}
	return 1
}
