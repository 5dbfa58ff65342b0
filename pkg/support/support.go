// Package support implements the support-library emitter: it copies the
// embedded C/C++ runtime sources that realize the wire-format contract
// out to a single shared directory per output root, honoring the
// generate_support policy and re-emitting idempotently byte for byte.
//
// Uses the standard //go:embed FS + fs.WalkDir copy-out pattern for
// distributing a static runtime library alongside generated headers.
package support

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/OpenCyphal/nunavut/pkg/errs"
)

//go:embed runtime/c/*
var cRuntime embed.FS

//go:embed runtime/cpp/*
var cppRuntime embed.FS

// DirName is the fixed subdirectory name every generated header includes
// against, shared across every type emitted into the same output root.
const DirName = "_nunavut_support"

// runtimeFor maps a language tag to its embedded runtime tree.
func runtimeFor(languageTag string) (fs.FS, string, error) {
	switch languageTag {
	case "c":
		return cRuntime, "runtime/c", nil
	case "cpp":
		return cppRuntime, "runtime/cpp", nil
	default:
		return nil, "", errs.New(errs.UnknownLanguage, "no support runtime for language %q", languageTag)
	}
}

// Files lists the support files (embedded names only, not yet joined to
// an output root) for languageTag, sorted by fs.WalkDir's deterministic
// lexicographic order.
func Files(languageTag string) ([]string, error) {
	runtime, prefix, err := runtimeFor(languageTag)
	if err != nil {
		return nil, err
	}
	var names []string
	err = fs.WalkDir(runtime, prefix, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, rerr := filepath.Rel(prefix, p)
		if rerr != nil {
			return rerr
		}
		names = append(names, rel)
		return nil
	})
	if err != nil {
		return nil, errs.Wrap(errs.IoError, err, "listing support runtime for %s", languageTag)
	}
	return names, nil
}

// Emit writes languageTag's runtime sources under outputRoot/DirName,
// using the same temp-file-then-rename write every generated type header
// uses, so a killed or interrupted run never leaves a partially written
// support file. Re-running Emit with the same languageTag and outputRoot
// produces byte-identical files.
func Emit(outputRoot, languageTag string) ([]string, error) {
	runtime, prefix, err := runtimeFor(languageTag)
	if err != nil {
		return nil, err
	}
	supportDir := filepath.Join(outputRoot, DirName)
	if err := os.MkdirAll(supportDir, 0o755); err != nil {
		return nil, errs.Wrap(errs.IoError, err, "creating support directory %s", supportDir)
	}

	var written []string
	err = fs.WalkDir(runtime, prefix, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, rerr := filepath.Rel(prefix, p)
		if rerr != nil {
			return rerr
		}
		data, rerr := fs.ReadFile(runtime, p)
		if rerr != nil {
			return rerr
		}
		dest := filepath.Join(supportDir, filepath.FromSlash(rel))
		if derr := os.MkdirAll(filepath.Dir(dest), 0o755); derr != nil {
			return derr
		}
		if werr := writeAtomic(dest, data); werr != nil {
			return werr
		}
		written = append(written, dest)
		return nil
	})
	if err != nil {
		return nil, errs.Wrap(errs.IoError, err, "emitting support runtime for %s", languageTag)
	}
	return written, nil
}

// writeAtomic writes data to a temp file in dest's directory, then
// renames it into place — the same write discipline the driver uses for
// generated type headers, so a support file is never observed
// half-written.
func writeAtomic(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".tmp-support-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, dest)
}

// IncludePath returns the include/import spelling a generated header uses
// to reach a support file, relative to the output root.
func IncludePath(file string) string {
	return path.Join(DirName, filepath.ToSlash(file))
}
