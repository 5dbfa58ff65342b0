package driver

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenCyphal/nunavut/pkg/config"
	"github.com/OpenCyphal/nunavut/pkg/depend"
	"github.com/OpenCyphal/nunavut/pkg/dsdl"
	"github.com/OpenCyphal/nunavut/pkg/dsdl/fixture"
	"github.com/OpenCyphal/nunavut/pkg/language"
)

// s1Composite is scenario S1 of spec.md §8: a single sealed structure
// with one uint8 field named "value".
func s1Composite() dsdl.Composite {
	return dsdl.Composite{
		FullName:    "demo.Value",
		ShortName:   "Value",
		Version:     dsdl.Version{Major: 1, Minor: 0},
		Kind:        dsdl.Structure,
		ExtentBytes: 1,
		Fields: []dsdl.Field{
			{Name: "value", Type: dsdl.Primitive{Kind: dsdl.UnsignedInt, BitWidth: 8}},
		},
	}
}

func writeTemplate(t *testing.T, dir string) string {
	t.Helper()
	name := "struct.tmpl"
	content := "{{.Type.ShortName}}:{{.Type.Composite.ExtentBytes}}"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	return name
}

func baseOptions(t *testing.T, overrides ...config.Override) (Options, *config.Store) {
	t.Helper()
	reg := language.NewRegistry()
	lang, err := reg.Lookup("c", false)
	require.NoError(t, err)

	tmplDir := t.TempDir()
	tmplName := writeTemplate(t, tmplDir)
	outdir := t.TempDir()

	store, err := config.Resolve(config.BuildOptions{Language: "c", CLIOverrides: overrides})
	require.NoError(t, err)

	return Options{
		Lookup:         fixture.New(s1Composite()),
		Language:       lang,
		OutputRoot:     outdir,
		OutputExtension: ".h",
		TemplateSearch: []string{tmplDir},
		TemplateName:   tmplName,
		SupportPolicy:  depend.SupportAsNeeded,
		Jobs:           2,
	}, store
}

func TestRunRendersAndEmitsSupport(t *testing.T) {
	opts, store := baseOptions(t)
	result, err := Run(store, opts)
	require.NoError(t, err)
	require.NotEmpty(t, result.Written)

	var sawHeader, sawSupport bool
	for _, w := range result.Written {
		data, rerr := os.ReadFile(w)
		require.NoError(t, rerr)
		if string(data) == "Value:1\n" {
			sawHeader = true
		}
		if filepath.Base(filepath.Dir(w)) == "_nunavut_support" {
			sawSupport = true
		}
	}
	assert.True(t, sawHeader, "expected the rendered composite header among written files")
	assert.True(t, sawSupport, "expected support files under the shared support directory")
}

// TestRunAppliesPostProcessChain covers the license-header and
// trailing-newline stages actually landing in a rendered per-type file,
// not just running in isolation against pkg/postprocess's own tests.
func TestRunAppliesPostProcessChain(t *testing.T) {
	opts, store := baseOptions(t, config.Override{Path: "post_processors.license_header.text", Value: "// Copyright Example\n"})

	result, err := Run(store, opts)
	require.NoError(t, err)

	var found bool
	for _, w := range result.Written {
		if filepath.Base(filepath.Dir(w)) == "_nunavut_support" {
			continue
		}
		data, rerr := os.ReadFile(w)
		require.NoError(t, rerr)
		content := string(data)
		if content == "// Copyright Example\nValue:1\n" {
			found = true
		}
		assert.True(t, len(content) > 0 && content[len(content)-1] == '\n', "expected a single trailing newline in %s", w)
	}
	assert.True(t, found, "expected the license header to be prepended to the rendered file")
}

// TestRunIsIdempotent covers P2: fixed inputs and configuration produce
// byte-identical outputs across two successive runs.
func TestRunIsIdempotent(t *testing.T) {
	opts, store := baseOptions(t)
	first, err := Run(store, opts)
	require.NoError(t, err)

	firstContents := make(map[string][]byte, len(first.Written))
	for _, w := range first.Written {
		data1, err := os.ReadFile(w)
		require.NoError(t, err)
		firstContents[w] = data1
	}

	store2, err := config.Resolve(config.BuildOptions{Language: "c"})
	require.NoError(t, err)
	second, err := Run(store2, opts)
	require.NoError(t, err)

	require.Equal(t, len(first.Written), len(second.Written))
	for _, w := range second.Written {
		data2, err := os.ReadFile(w)
		require.NoError(t, err)
		assert.Equal(t, firstContents[w], data2)
	}
}

// TestDryRunOutputsMatchWetRun covers P3/S6: outputs(...) equals the set
// of files actually written in a non-dry-run.
func TestDryRunOutputsMatchWetRun(t *testing.T) {
	wetOpts, wetStore := baseOptions(t)
	wetResult, err := Run(wetStore, wetOpts)
	require.NoError(t, err)

	dryOpts, dryStore := baseOptions(t)
	dryOpts.DryRun = true
	dryResult, err := Run(dryStore, dryOpts)
	require.NoError(t, err)
	require.NotNil(t, dryResult.Manifest)

	assert.Equal(t, len(wetResult.Written), len(dryResult.Manifest.Outputs))

	// Each run has its own output root, so compare paths relative to it.
	var wetRel, dryRel []string
	for _, w := range wetResult.Written {
		rel, err := filepath.Rel(wetOpts.OutputRoot, w)
		require.NoError(t, err)
		wetRel = append(wetRel, rel)
	}
	for _, o := range dryResult.Manifest.Outputs {
		rel, err := filepath.Rel(dryOpts.OutputRoot, o)
		require.NoError(t, err)
		dryRel = append(dryRel, rel)
	}
	assert.ElementsMatch(t, wetRel, dryRel)
}

func TestRunWritesManifestWhenRequested(t *testing.T) {
	opts, store := baseOptions(t)
	manifestPath := filepath.Join(t.TempDir(), "manifest.json")
	opts.ManifestPath = manifestPath
	opts.ManifestFormat = depend.FormatPretty

	_, err := Run(store, opts)
	require.NoError(t, err)

	data, err := os.ReadFile(manifestPath)
	require.NoError(t, err)
	var m depend.Manifest
	require.NoError(t, json.Unmarshal(data, &m))
	assert.NotEmpty(t, m.Outputs)
}

func TestSupportOnlyPolicySkipsPerTypeRendering(t *testing.T) {
	opts, store := baseOptions(t)
	opts.SupportPolicy = depend.SupportOnly

	result, err := Run(store, opts)
	require.NoError(t, err)
	for _, w := range result.Written {
		assert.Equal(t, "_nunavut_support", filepath.Base(filepath.Dir(w)))
	}
}

func TestSupportNeverPolicySkipsSupportEmission(t *testing.T) {
	opts, store := baseOptions(t)
	opts.SupportPolicy = depend.SupportNever

	result, err := Run(store, opts)
	require.NoError(t, err)
	require.NotEmpty(t, result.Written)
	for _, w := range result.Written {
		assert.NotEqual(t, "_nunavut_support", filepath.Base(filepath.Dir(w)))
	}
}

func TestRunFailsOnMissingTemplate(t *testing.T) {
	opts, store := baseOptions(t)
	opts.TemplateName = "does-not-exist.tmpl"

	_, err := Run(store, opts)
	require.Error(t, err)
}
