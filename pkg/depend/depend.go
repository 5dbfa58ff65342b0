// Package depend implements a pure dependency-analyzer query API over an
// already-resolved pkg/resolve.Tree: inputs, outputs, and a serialized
// manifest of the two. Every function here is read-only with respect to
// the filesystem — dry-run safety is a load-bearing invariant, so
// nothing in this package may touch the filesystem for writing.
package depend

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/OpenCyphal/nunavut/pkg/errs"
	"github.com/OpenCyphal/nunavut/pkg/resolve"
	"github.com/OpenCyphal/nunavut/pkg/support"
)

// SupportPolicy mirrors the generate_support configuration key.
type SupportPolicy int

const (
	SupportAsNeeded SupportPolicy = iota
	SupportOnly
	SupportNever
)

// ParseSupportPolicy recovers a SupportPolicy from its config-sheet
// spelling.
func ParseSupportPolicy(s string) (SupportPolicy, error) {
	switch s {
	case "as-needed", "":
		return SupportAsNeeded, nil
	case "only":
		return SupportOnly, nil
	case "never":
		return SupportNever, nil
	default:
		return SupportAsNeeded, errs.New(errs.ConfigType, "invalid generate_support value %q", s)
	}
}

// Options parameterizes Inputs/Outputs/Manifest. TemplateFiles and
// SupportFiles are supplied by the caller (pkg/tmplenv and pkg/support
// respectively own the actual search paths); depend only orders and
// unions them.
type Options struct {
	OutputRoot    string
	TemplateFiles []string
	SupportFiles  []string
	SupportPolicy SupportPolicy
	ConfigFiles   []string // user configuration files contributing to this run
}

// Inputs returns every file whose contents influence a generated byte:
// DSDL source files (recovered from the resolved tree), template files,
// static support files, and the user configuration files layered in.
// Order is a stable, deterministically sorted set so two invocations with
// identical configuration always report byte-identical output.
//
// SupportFiles are embedded (go:embed) at build time rather than read
// from disk at generation time, so they have no path on disk; like every
// other entry, each embedded relative name is made absolute against the
// working directory, so these entries do not name files the run reads.
func Inputs(roots []string, tree *resolve.Tree, opts Options) []string {
	set := make(map[string]bool)
	for _, r := range roots {
		set[abs(r)] = true
	}
	for _, k := range sortedByFullNameAndVersion(tree) {
		set[abs(tree.ByFullNameAndVersion[k].Composite.FullName)] = true
	}
	for _, f := range opts.TemplateFiles {
		set[abs(f)] = true
	}
	for _, f := range opts.SupportFiles {
		set[abs(f)] = true
	}
	for _, f := range opts.ConfigFiles {
		set[abs(f)] = true
	}
	return sortedSet(set)
}

// Outputs returns every file the generator would write, honoring the
// generate_support policy.
func Outputs(tree *resolve.Tree, opts Options) []string {
	set := make(map[string]bool)
	if opts.SupportPolicy != SupportOnly {
		for _, k := range sortedByFullNameAndVersion(tree) {
			rt := tree.ByFullNameAndVersion[k]
			set[abs(filepath.Join(opts.OutputRoot, rt.OutputPath))] = true
		}
	}
	if opts.SupportPolicy != SupportNever {
		for _, f := range opts.SupportFiles {
			// Matches pkg/support.Emit exactly: every support file lands
			// under the single shared support.DirName directory, at its
			// embedded relative path (preserved, not flattened). A dry
			// run's reported outputs must equal what a wet run actually
			// writes, so this has to agree with Emit's destination.
			set[abs(filepath.Join(opts.OutputRoot, support.DirName, f))] = true
		}
	}
	return sortedSet(set)
}

// Manifest is the structured {inputs, outputs, configuration?} document,
// stable under reordering of input arguments because Inputs and Outputs
// both return sorted sets.
type Manifest struct {
	Inputs        []string          `json:"inputs"`
	Outputs       []string          `json:"outputs"`
	Configuration map[string]string `json:"configuration,omitempty"`
}

// BuildManifest assembles a Manifest. configuration is nil unless the
// caller opted into including the resolved configuration snapshot
// (--list-configuration).
func BuildManifest(roots []string, tree *resolve.Tree, opts Options, configuration map[string]string) Manifest {
	return Manifest{
		Inputs:        Inputs(roots, tree, opts),
		Outputs:       Outputs(tree, opts),
		Configuration: configuration,
	}
}

// Format selects the manifest's JSON rendering.
type Format int

const (
	FormatCompact Format = iota
	FormatPretty
)

// Encode serializes m per format. Both formats round-trip: json.Unmarshal
// of either output into a Manifest reproduces the original value.
func Encode(m Manifest, format Format) ([]byte, error) {
	var (
		out []byte
		err error
	)
	if format == FormatPretty {
		out, err = json.MarshalIndent(m, "", "  ")
	} else {
		out, err = json.Marshal(m)
	}
	if err != nil {
		return nil, errs.Wrap(errs.IoError, err, "encoding manifest")
	}
	return out, nil
}

// ContentHash returns the hex SHA-256 digest of path's contents, so
// callers (e.g. an external build system consuming a manifest) can
// detect whether a named input actually changed between two runs
// without re-running the generator.
func ContentHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errs.Wrap(errs.IoError, err, "hashing %s", path)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func sortedByFullNameAndVersion(tree *resolve.Tree) []string {
	keys := make([]string, 0, len(tree.ByFullNameAndVersion))
	for k := range tree.ByFullNameAndVersion {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func abs(p string) string {
	a, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return a
}
