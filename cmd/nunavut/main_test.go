package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/OpenCyphal/nunavut/pkg/language"
)

// S1 of spec.md §8: a single sealed structure with one uint8 field named
// "value" must round-trip through the full CLI pipeline end to end.
const s1DSDL = `{
  "composites": [
    {
      "full_name": "demo.Value",
      "short_name": "Value",
      "major": 1,
      "minor": 0,
      "kind": "structure",
      "fields": [
        {"name": "value", "primitive_kind": "uint", "bit_width": 8}
      ],
      "extent_bytes": 1,
      "delimited": false
    }
  ]
}`

func writeDSDL(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "demo.json"), []byte(s1DSDL), 0o644))
}

func baseFlags(t *testing.T, lookupDir, outdir string) *flags {
	t.Helper()
	return &flags{
		targetLanguage:  "c",
		outdir:          outdir,
		lookupDirs:      []string{lookupDir},
		generateSupport: "as-needed",
		targetEndianness: "any",
		listFormat:      "json",
		jobs:            1,
	}
}

func TestRunGenerateWritesHeaderAndSupport(t *testing.T) {
	lookupDir := t.TempDir()
	writeDSDL(t, lookupDir)
	outdir := t.TempDir()

	f := baseFlags(t, lookupDir, outdir)
	err := runGenerate(f, nil)
	require.NoError(t, err)

	entries, err := os.ReadDir(outdir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	var sawSupportDir bool
	for _, e := range entries {
		if e.IsDir() {
			sawSupportDir = true
		}
	}
	require.True(t, sawSupportDir, "expected the shared support directory under outdir")
}

func TestRunGenerateDryRunListsOutputsMatchingWetRun(t *testing.T) {
	lookupDir := t.TempDir()
	writeDSDL(t, lookupDir)

	wetDir := t.TempDir()
	fWet := baseFlags(t, lookupDir, wetDir)
	require.NoError(t, runGenerate(fWet, nil))

	var wetFiles []string
	require.NoError(t, filepath.Walk(wetDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			wetFiles = append(wetFiles, p)
		}
		return nil
	}))

	dryDir := t.TempDir()
	listPath := filepath.Join(t.TempDir(), "outputs.json")
	fDry := baseFlags(t, lookupDir, dryDir)
	fDry.listOutputs = true
	fDry.listToFile = listPath
	require.NoError(t, runGenerate(fDry, nil))

	data, err := os.ReadFile(listPath)
	require.NoError(t, err)
	var manifest struct {
		Outputs []string `json:"outputs"`
	}
	require.NoError(t, json.Unmarshal(data, &manifest))
	require.Len(t, manifest.Outputs, len(wetFiles))
}

func TestBuildConfigAppliesCLIOverrides(t *testing.T) {
	f := &flags{
		targetLanguage:   "cpp",
		generateSupport:  "only",
		targetEndianness: "little",
		languageStandard: "cpp20",
	}
	reg := language.NewRegistry()
	lang, err := reg.Lookup("cpp", false)
	require.NoError(t, err)

	store, err := buildConfig(f, lang)
	require.NoError(t, err)

	v, err := store.GetString("generate_support")
	require.NoError(t, err)
	require.Equal(t, "only", v)

	std, err := store.GetString("language.standard")
	require.NoError(t, err)
	require.Equal(t, "cpp20", std)
}

func TestResolveTemplatesDefaultsToEmbeddedWhenUnset(t *testing.T) {
	reg := language.NewRegistry()
	lang, err := reg.Lookup("c", false)
	require.NoError(t, err)

	paths, name, cleanup, err := resolveTemplates(&flags{}, lang)
	require.NoError(t, err)
	defer cleanup()
	require.Equal(t, "composite.h.tmpl", name)
	require.Len(t, paths, 1)

	_, statErr := os.Stat(filepath.Join(paths[0], name))
	require.NoError(t, statErr)
}
