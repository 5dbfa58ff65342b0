package language

import (
	"testing"

	"github.com/OpenCyphal/nunavut/pkg/config"
	"github.com/OpenCyphal/nunavut/pkg/dsdl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRegistryLookupRejectsUnknownTag(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup("c", false)
	require.NoError(t, err)

	_, err = r.Lookup("rust", false)
	require.Error(t, err)
}

func TestMangleReservedWordsGetStropped(t *testing.T) {
	c := newC()
	assert.Equal(t, "_struct", c.Mangle("struct", ContextField))
	assert.Equal(t, "value", c.Mangle("value", ContextField))
}

// P8: mangle(mangle(x)) == mangle(x) for every identifier, reserved or not.
func TestMangleIdempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		sym := rapid.StringMatching(`[a-zA-Z_][a-zA-Z0-9_]{0,20}`).Draw(rt, "sym")
		for _, lang := range []Language{newC(), newCPP()} {
			once := lang.Mangle(sym, ContextField)
			twice := lang.Mangle(once, ContextField)
			assert.Equal(rt, once, twice, "lang %s sym %q", lang.Tag(), sym)
		}
	})
}

func TestNativeTypeWidening(t *testing.T) {
	c := newC()
	assert.Equal(t, "uint8_t", c.NativeType(dsdl.Primitive{Kind: dsdl.UnsignedInt, BitWidth: 7}))
	assert.Equal(t, "uint16_t", c.NativeType(dsdl.Primitive{Kind: dsdl.UnsignedInt, BitWidth: 9}))
	assert.Equal(t, "int64_t", c.NativeType(dsdl.Primitive{Kind: dsdl.SignedInt, BitWidth: 40}))
}

func TestCPPNativeTypePrefixesStd(t *testing.T) {
	cpp := newCPP()
	assert.Equal(t, "std::uint8_t", cpp.NativeType(dsdl.Primitive{Kind: dsdl.UnsignedInt, BitWidth: 8}))
}

func TestFullReferenceAndHeaderGuard(t *testing.T) {
	c := newC()
	entity := dsdl.Composite{FullName: "uavcan.primitive.Empty", Version: dsdl.Version{Major: 1, Minor: 0}}
	assert.Equal(t, "uavcan_primitive_Empty_1_0", c.FullReference(entity))
	assert.Equal(t, "UAVCAN_PRIMITIVE_EMPTY_1_0_INCLUDED", c.HeaderGuard(entity))
}

func TestCPPOptionsDefaultsAndOverride(t *testing.T) {
	cpp := newCPP()
	s := config.New()
	opts, err := cpp.Options(s)
	require.NoError(t, err)
	assert.True(t, opts.StdVariant)
	assert.Equal(t, "implicit", opts.CtorConvention)

	require.NoError(t, s.LoadLayer("x", []byte(`
language:
  options:
    ctor_convention: uses-leading-allocator
`)))
	s.Finalize()
	opts, err = cpp.Options(s)
	require.NoError(t, err)
	assert.Equal(t, "uses-leading-allocator", opts.CtorConvention)
}

func TestCPPOptionsRejectsInvalidCtorConvention(t *testing.T) {
	cpp := newCPP()
	s := config.New()
	require.NoError(t, s.LoadLayer("x", []byte(`
language:
  options:
    ctor_convention: nonsense
`)))
	s.Finalize()
	_, err := cpp.Options(s)
	require.Error(t, err)
}

func TestFloat32ValueFormatting(t *testing.T) {
	c := newC()
	lit, err := c.NativeValue(dsdl.Primitive{Kind: dsdl.Float, BitWidth: 32}, 1.5)
	require.NoError(t, err)
	assert.Equal(t, "1.5f", lit)
}
