// Package defaults embeds the generator's built-in per-language templates
// and extracts them to a real directory on demand. pkg/tmplenv's search
// path is filesystem-based, so a CLI caller that hasn't been given a
// --template-dir still needs a real path on disk to hand to
// tmplenv.New; Extract produces one by copying the embedded defaults
// out to a temporary directory, the same embed-FS-plus-copy-out shape
// pkg/support uses for its runtime sources.
package defaults

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/OpenCyphal/nunavut/pkg/errs"
)

//go:embed templates/c/*.tmpl
var cTemplates embed.FS

//go:embed templates/cpp/*.tmpl
var cppTemplates embed.FS

func treeFor(languageTag string) (fs.FS, string, error) {
	switch languageTag {
	case "c":
		return cTemplates, "templates/c", nil
	case "cpp":
		return cppTemplates, "templates/cpp", nil
	default:
		return nil, "", errs.New(errs.UnknownLanguage, "no default templates for language %q", languageTag)
	}
}

// TemplateName is the single template every composite renders against for
// languageTag, matching the name Extract writes it out under.
func TemplateName(languageTag string) (string, error) {
	switch languageTag {
	case "c":
		return "composite.h.tmpl", nil
	case "cpp":
		return "composite.hpp.tmpl", nil
	default:
		return "", errs.New(errs.UnknownLanguage, "no default template name for language %q", languageTag)
	}
}

// Extract copies languageTag's embedded default templates into a fresh
// temporary directory and returns its path. The caller owns cleanup.
func Extract(languageTag string) (string, error) {
	tree, prefix, err := treeFor(languageTag)
	if err != nil {
		return "", err
	}
	dir, err := os.MkdirTemp("", "nunavut-templates-"+languageTag+"-")
	if err != nil {
		return "", errs.Wrap(errs.IoError, err, "creating default template directory")
	}
	err = fs.WalkDir(tree, prefix, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := fs.ReadFile(tree, p)
		if err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(dir, filepath.Base(p)), data, 0o644)
	})
	if err != nil {
		return "", errs.Wrap(errs.IoError, err, "extracting default templates for %q", languageTag)
	}
	return dir, nil
}
