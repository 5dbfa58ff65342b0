// Package tmplenv implements the per-language template environment: a
// search path over one or more directories (later paths override
// earlier same-named templates), a fixed catalog of filters and tests
// bound into every template's FuncMap, and read-only access to the
// resolved namespace tree and configuration store from within a
// template.
//
// Rendering is parse-then-execute over text/template, the same shape as
// a generic Renderer walking an embedded template tree — a sandboxed,
// pluggable template engine is a larger feature this generator doesn't
// need, so text/template plus a closed FuncMap is the right scope.
package tmplenv

import (
	"bytes"
	"os"
	"path/filepath"
	"text/template"

	"github.com/OpenCyphal/nunavut/pkg/config"
	"github.com/OpenCyphal/nunavut/pkg/dsdl"
	"github.com/OpenCyphal/nunavut/pkg/errs"
	"github.com/OpenCyphal/nunavut/pkg/language"
	"github.com/OpenCyphal/nunavut/pkg/resolve"
)

// Environment owns the search path, the shared FuncMap, and read-only
// handles to the resolved tree and configuration used by context-exposing
// filters (full_reference, needs_std).
type Environment struct {
	searchPath []string
	lang       language.Language
	tree       *resolve.Tree
	store      *config.Store
}

// New builds an Environment. searchPath is ordered least-specific first;
// a template found in a later directory overrides a same-named template
// from an earlier one.
func New(searchPath []string, lang language.Language, tree *resolve.Tree, store *config.Store) *Environment {
	return &Environment{searchPath: searchPath, lang: lang, tree: tree, store: store}
}

// Resolve locates name on the search path, returning the path from the
// most specific (last-listed) directory that contains it.
func (e *Environment) Resolve(name string) (string, error) {
	var found string
	for _, dir := range e.searchPath {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			found = candidate
		}
	}
	if found == "" {
		return "", errs.New(errs.TemplateError, "template %q not found on search path", name)
	}
	return found, nil
}

// TemplateContext is the read-only value exposed to templates as ".",
// alongside the composite being rendered.
type TemplateContext struct {
	Type   *resolve.ResolvedType
	Tree   *resolve.Tree
	Config *config.Store
}

// Render resolves name on the search path, parses it, and executes it
// against the given composite. Parse and execute errors are both reported
// as errs.TemplateError; text/template's own error already carries the
// offending template name and line number, which this wraps rather than
// discards. Render never partially writes: its result is buffered in
// memory and only returned to the caller on success.
func (e *Environment) Render(name string, rt *resolve.ResolvedType) ([]byte, error) {
	path, err := e.Resolve(name)
	if err != nil {
		return nil, err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.IoError, err, "reading template %s", path)
	}

	tmpl, err := template.New(name).Funcs(e.funcMap()).Parse(string(src))
	if err != nil {
		return nil, errs.Wrap(errs.TemplateError, err, "parsing template %s", name)
	}

	var buf bytes.Buffer
	ctx := TemplateContext{Type: rt, Tree: e.tree, Config: e.store}
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return nil, errs.Wrap(errs.TemplateError, err, "executing template %s", name)
	}
	return buf.Bytes(), nil
}

// funcMap builds the fixed filter/test catalog exposed to templates.
func (e *Environment) funcMap() template.FuncMap {
	return template.FuncMap{
		"mangle": func(sym string) string {
			return e.lang.Mangle(sym, language.ContextField)
		},
		"literal": func(p dsdl.Primitive, value interface{}) (string, error) {
			return e.lang.NativeValue(p, value)
		},
		"include": func(c dsdl.Composite) string {
			return e.lang.IncludeFor(c)
		},
		"full_reference": func(c dsdl.Composite) string {
			return e.lang.FullReference(c)
		},
		"align_up":   alignUp,
		"align_down": alignDown,
		"is_aligned": func(bitOffset, alignment int) bool { return alignDown(bitOffset, alignment) == bitOffset },
		"bytes": func(bitWidth int) int {
			return (bitWidth + 7) / 8
		},
		"needs_std": func(standard string) (bool, error) {
			current, err := e.store.GetString("language.standard")
			if err != nil {
				return false, err
			}
			return current == standard, nil
		},
		"is_serializing":   func(direction string) bool { return direction == "serialize" },
		"is_deserializing": func(direction string) bool { return direction == "deserialize" },
	}
}

// alignUp rounds bitOffset up to the next multiple of alignment.
func alignUp(bitOffset, alignment int) int {
	if alignment <= 0 {
		return bitOffset
	}
	rem := bitOffset % alignment
	if rem == 0 {
		return bitOffset
	}
	return bitOffset + (alignment - rem)
}

// alignDown rounds bitOffset down to the previous multiple of alignment.
func alignDown(bitOffset, alignment int) int {
	if alignment <= 0 {
		return bitOffset
	}
	return bitOffset - (bitOffset % alignment)
}
