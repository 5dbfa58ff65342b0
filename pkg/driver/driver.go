// Package driver implements the generation driver: the seven-stage
// pipeline (Configure, Resolve, Plan, Render, Support, Post-process,
// Manifest) that ties every other package together into a single
// generator run.
//
// Stages execute in strict order; any stage failing aborts the whole run
// and its error is returned as that stage produced it. Per-composite
// rendering runs on a bounded worker pool (sync.WaitGroup plus a
// buffered-channel semaphore) so a run over a large namespace doesn't
// serialize on template I/O.
package driver

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/OpenCyphal/nunavut/pkg/config"
	"github.com/OpenCyphal/nunavut/pkg/depend"
	"github.com/OpenCyphal/nunavut/pkg/dsdl"
	"github.com/OpenCyphal/nunavut/pkg/errs"
	"github.com/OpenCyphal/nunavut/pkg/language"
	"github.com/OpenCyphal/nunavut/pkg/logging"
	"github.com/OpenCyphal/nunavut/pkg/postprocess"
	"github.com/OpenCyphal/nunavut/pkg/resolve"
	"github.com/OpenCyphal/nunavut/pkg/support"
	"github.com/OpenCyphal/nunavut/pkg/tmplenv"
)

// Options configures one generator run. It mirrors the CLI's flag set;
// cmd/nunavut is responsible for turning flags into this struct.
type Options struct {
	Roots             []string
	Lookup            dsdl.Reader
	Language          language.Language
	OutputRoot        string
	OutputExtension   string
	TemplateSearch    []string
	TemplateName      string // the single template used for every composite (§4.E scope)
	SupportPolicy     depend.SupportPolicy
	DryRun            bool
	ManifestPath      string // empty disables step 7
	ManifestFormat    depend.Format
	IncludeConfigInManifest bool
	Jobs              int // bounded worker-pool width for Render; 0 means sequential
	Logger            logging.Logger
}

// Result summarizes a completed (or dry) run.
type Result struct {
	Tree     *resolve.Tree
	Written  []string
	Manifest *depend.Manifest
}

// Run executes the seven-stage pipeline in order. Each stage can only
// begin once the previous one has completed for every unit of work; a
// failure partway through Render leaves every already-written file in
// place (each write is atomic) but does not advance to Support,
// Post-process, or Manifest.
func Run(store *config.Store, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NoOp()
	}

	// 1. Configure. Language option validation runs here, not lazily at
	// render time, so a bad "language.options" key in a user layer fails
	// the run before any file is touched (C++ checks that section; C has
	// no options and does not read it).
	if !store.Finalized() {
		store.Finalize()
	}
	if _, err := opts.Language.Options(store); err != nil {
		return nil, err
	}
	logger.Debug("configuration finalized")

	// 2. Resolve.
	tree, err := resolve.Resolve(opts.Lookup, opts.Roots, opts.Language, opts.OutputExtension)
	if err != nil {
		return nil, err
	}
	logger.Info("resolved %d types", len(tree.ByFullNameAndVersion))

	// 3. Plan.
	supportFiles, err := support.Files(opts.Language.Tag())
	if err != nil {
		return nil, err
	}
	dependOpts := depend.Options{
		OutputRoot:    opts.OutputRoot,
		TemplateFiles: opts.TemplateSearch,
		SupportFiles:  supportFiles,
		SupportPolicy: opts.SupportPolicy,
	}
	outputs := depend.Outputs(tree, dependOpts)
	logger.Debug("planned %d output files", len(outputs))

	result := &Result{Tree: tree}

	if opts.DryRun {
		var configSnapshot map[string]string
		if opts.IncludeConfigInManifest {
			configSnapshot = snapshotConfig(store)
		}
		m := depend.BuildManifest(opts.Roots, tree, dependOpts, configSnapshot)
		result.Manifest = &m
		return result, nil
	}

	// 4. Render and 6. Post-process. Each file's post-processor chain
	// (license header, trailing newline, clang-format) runs inline on
	// its rendered bytes before the atomic write, so post-processing is
	// folded into this step for per-file ordering but still precedes
	// step 5/7 for the run overall. generate_support=only means the
	// outputs contain exactly the support-library files, so per-type
	// rendering is skipped entirely to keep this step's writes matching
	// depend.Outputs.
	if opts.SupportPolicy != depend.SupportOnly {
		env := tmplenv.New(opts.TemplateSearch, opts.Language, tree, store)
		chain := postprocess.DefaultChain()
		written, err := renderAll(tree, opts, env, chain, store, logger)
		if err != nil {
			return nil, err
		}
		result.Written = append(result.Written, written...)
	}

	// 5. Support.
	if opts.SupportPolicy != depend.SupportNever {
		supportWritten, err := support.Emit(opts.OutputRoot, opts.Language.Tag())
		if err != nil {
			return nil, err
		}
		result.Written = append(result.Written, supportWritten...)
	}

	// 7. Manifest.
	if opts.ManifestPath != "" {
		var configSnapshot map[string]string
		if opts.IncludeConfigInManifest {
			configSnapshot = snapshotConfig(store)
		}
		m := depend.BuildManifest(opts.Roots, tree, dependOpts, configSnapshot)
		enc, err := depend.Encode(m, opts.ManifestFormat)
		if err != nil {
			return nil, err
		}
		if err := writeAtomic(opts.ManifestPath, enc); err != nil {
			return nil, err
		}
		result.Manifest = &m
	}

	return result, nil
}

// renderJob is one unit of concurrent work: one composite, rendered and
// post-processed, then atomically written.
type renderJob struct {
	rt *resolve.ResolvedType
}

func renderAll(tree *resolve.Tree, opts Options, env *tmplenv.Environment, chain *postprocess.Chain, store *config.Store, logger logging.Logger) ([]string, error) {
	jobs := collectJobs(tree)

	jobCount := opts.Jobs
	if jobCount <= 0 {
		jobCount = 1
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		written   []string
		firstErr  error
		sem       = make(chan struct{}, jobCount)
	)

	for _, job := range jobs {
		wg.Add(1)
		go func(j renderJob) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			mu.Lock()
			if firstErr != nil {
				mu.Unlock()
				return
			}
			mu.Unlock()

			dest, err := renderOne(env, chain, j.rt, opts, store)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			written = append(written, dest)
		}(job)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	logger.Info("rendered %d files", len(written))
	return sortedCopy(written), nil
}

func collectJobs(tree *resolve.Tree) []renderJob {
	keys := make([]string, 0, len(tree.ByFullNameAndVersion))
	for k := range tree.ByFullNameAndVersion {
		keys = append(keys, k)
	}
	sortStrings(keys)
	jobs := make([]renderJob, 0, len(keys))
	for _, k := range keys {
		jobs = append(jobs, renderJob{rt: tree.ByFullNameAndVersion[k]})
	}
	return jobs
}

func renderOne(env *tmplenv.Environment, chain *postprocess.Chain, rt *resolve.ResolvedType, opts Options, store *config.Store) (string, error) {
	rendered, err := env.Render(opts.TemplateName, rt)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(opts.OutputRoot, rt.OutputPath)
	processed, err := chain.Run(dest, rendered, store)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", errs.Wrap(errs.IoError, err, "creating output directory for %s", dest)
	}
	if err := writeAtomic(dest, processed); err != nil {
		return "", err
	}
	return dest, nil
}

func writeAtomic(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(errs.IoError, err, "creating directory %s", dir)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-nunavut-*")
	if err != nil {
		return errs.Wrap(errs.IoError, err, "creating temp file in %s", dir)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errs.Wrap(errs.IoError, err, "writing %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errs.Wrap(errs.IoError, err, "closing %s", tmpName)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return errs.Wrap(errs.IoError, err, "renaming %s to %s", tmpName, dest)
	}
	return nil
}

func snapshotConfig(store *config.Store) map[string]string {
	out := make(map[string]string)
	for _, k := range store.Keys() {
		if v, err := store.GetString(k); err == nil {
			out[k] = v
		}
	}
	return out
}

func sortedCopy(ss []string) []string {
	out := append([]string(nil), ss...)
	sortStrings(out)
	return out
}

func sortStrings(ss []string) {
	for i := 1; i < len(ss); i++ {
		for j := i; j > 0 && ss[j-1] > ss[j]; j-- {
			ss[j-1], ss[j] = ss[j], ss[j-1]
		}
	}
}
