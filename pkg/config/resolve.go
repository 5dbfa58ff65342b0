package config

import _ "embed"

//go:embed sheets/defaults.yaml
var defaultsSheet []byte

//go:embed sheets/c.yaml
var cSheet []byte

//go:embed sheets/cpp.yaml
var cppSheet []byte

// languageSheets maps a target-language tag to its built-in sheet: one
// layer of defaults per supported language.
var languageSheets = map[string][]byte{
	"c":   cSheet,
	"cpp": cppSheet,
}

// BuildOptions drives Resolve.
type BuildOptions struct {
	// Language is the selected target-language tag ("c", "cpp").
	Language string
	// UserFiles are --configuration paths, applied in CLI order.
	UserFiles []string
	// CLIOverrides are dotted-path=value pairs built from CLI flags,
	// applied last and highest priority, in the given order (last writer
	// wins within this layer).
	CLIOverrides []Override
}

// Override is a single dotted-path=value setting taken from a CLI flag.
type Override struct {
	Path  string
	Value string
}

// Resolve builds a finalized Store following the layer order: built-in
// defaults, the selected language's sheet, each user file in order,
// then CLI overrides.
func Resolve(opts BuildOptions) (*Store, error) {
	s := New()
	if err := s.LoadLayer("<builtin-defaults>", defaultsSheet); err != nil {
		return nil, err
	}
	if sheet, ok := languageSheets[opts.Language]; ok {
		if err := s.LoadLayer("<builtin-"+opts.Language+">", sheet); err != nil {
			return nil, err
		}
	}
	for _, f := range opts.UserFiles {
		if err := s.LoadLayerFile(f); err != nil {
			return nil, err
		}
	}
	for _, o := range opts.CLIOverrides {
		s.SetString(o.Path, o.Value)
	}
	s.Finalize()
	return s, nil
}
