package depend

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/OpenCyphal/nunavut/pkg/dsdl"
	"github.com/OpenCyphal/nunavut/pkg/dsdl/fixture"
	"github.com/OpenCyphal/nunavut/pkg/language"
	"github.com/OpenCyphal/nunavut/pkg/resolve"
	"github.com/OpenCyphal/nunavut/pkg/support"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTree(t *testing.T) *resolve.Tree {
	t.Helper()
	empty := dsdl.Composite{FullName: "ns.Empty", ShortName: "Empty", Version: dsdl.Version{Major: 1, Minor: 0}}
	reg := language.NewRegistry()
	c, err := reg.Lookup("c", false)
	require.NoError(t, err)
	tree, err := resolve.Resolve(fixture.New(empty), nil, c, ".h")
	require.NoError(t, err)
	return tree
}

func TestParseSupportPolicy(t *testing.T) {
	p, err := ParseSupportPolicy("only")
	require.NoError(t, err)
	assert.Equal(t, SupportOnly, p)

	p, err = ParseSupportPolicy("")
	require.NoError(t, err)
	assert.Equal(t, SupportAsNeeded, p)

	_, err = ParseSupportPolicy("bogus")
	assert.Error(t, err)
}

func TestOutputsHonorsSupportPolicy(t *testing.T) {
	tree := buildTree(t)
	opts := Options{OutputRoot: "/out", SupportFiles: []string{"/support/serialization.h"}}

	opts.SupportPolicy = SupportOnly
	out := Outputs(tree, opts)
	assert.Len(t, out, 1)

	opts.SupportPolicy = SupportNever
	out = Outputs(tree, opts)
	assert.Len(t, out, 1)

	opts.SupportPolicy = SupportAsNeeded
	out = Outputs(tree, opts)
	assert.Len(t, out, 2)
}

func TestOutputsPlacesSupportFilesUnderSupportDirName(t *testing.T) {
	tree := buildTree(t)
	opts := Options{
		OutputRoot:    "/out",
		SupportFiles:  []string{"serialization.h"},
		SupportPolicy: SupportOnly,
	}
	out := Outputs(tree, opts)
	require.Len(t, out, 1)
	assert.Equal(t, abs(filepath.Join("/out", support.DirName, "serialization.h")), out[0])
}

func TestInputsIsDeterministicUnderRootReordering(t *testing.T) {
	tree := buildTree(t)
	opts := Options{TemplateFiles: []string{"/tmpl/b.tmpl", "/tmpl/a.tmpl"}}
	a := Inputs([]string{"/roots/x", "/roots/y"}, tree, opts)
	b := Inputs([]string{"/roots/y", "/roots/x"}, tree, opts)
	assert.Equal(t, a, b)
}

func TestManifestRoundTripsBothFormats(t *testing.T) {
	tree := buildTree(t)
	opts := Options{OutputRoot: "/out", SupportPolicy: SupportAsNeeded}
	m := BuildManifest([]string{"/roots"}, tree, opts, map[string]string{"target_language": "c"})

	for _, f := range []Format{FormatCompact, FormatPretty} {
		enc, err := Encode(m, f)
		require.NoError(t, err)
		var decoded Manifest
		require.NoError(t, json.Unmarshal(enc, &decoded))
		assert.Equal(t, m, decoded)
	}
}

func TestManifestOmitsConfigurationWhenNil(t *testing.T) {
	tree := buildTree(t)
	m := BuildManifest([]string{"/roots"}, tree, Options{OutputRoot: "/out"}, nil)
	enc, err := Encode(m, FormatCompact)
	require.NoError(t, err)
	assert.NotContains(t, string(enc), "configuration")
}
