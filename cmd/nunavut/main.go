// Command nunavut is the code generator's CLI: it wires pkg/config,
// pkg/language, pkg/resolve, pkg/depend, pkg/tmplenv, pkg/driver, and
// pkg/support together behind one flag set.
//
// A cobra root command carries one subcommand that does the real work, a
// styled ui.BuildOutput narrates the pipeline stages, and logging stays
// silent unless --verbose is passed.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenCyphal/nunavut/pkg/config"
	"github.com/OpenCyphal/nunavut/pkg/depend"
	"github.com/OpenCyphal/nunavut/pkg/driver"
	"github.com/OpenCyphal/nunavut/pkg/dsdl/jsonreader"
	"github.com/OpenCyphal/nunavut/pkg/errs"
	"github.com/OpenCyphal/nunavut/pkg/language"
	"github.com/OpenCyphal/nunavut/pkg/logging"
	"github.com/OpenCyphal/nunavut/pkg/tmplenv/defaults"
	"github.com/OpenCyphal/nunavut/pkg/ui"
)

var version = "1.0.0"

// flags mirrors the §6 CLI surface directly; generateCmd's RunE turns it
// into config.BuildOptions + driver.Options.
type flags struct {
	targetLanguage      string
	languageStandard    string
	outdir              string
	lookupDirs          []string
	configurationFiles  []string
	outputExtension     string
	generateSupport     string
	includeExperimental bool
	targetEndianness    string
	listInputs          bool
	listOutputs         bool
	listConfiguration   bool
	listFormat          string
	listToFile          string
	dryRun              bool
	omitDependencies    bool
	templateDir         string
	jobs                int
	verbose             bool
}

func main() {
	root := &cobra.Command{
		Use:          "nunavut",
		Short:        "nunavut - a DSDL code generator",
		Version:      version,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			ui.PrintHelp(version)
		},
	}
	root.SetHelpFunc(func(cmd *cobra.Command, args []string) { ui.PrintHelp(version) })

	root.AddCommand(generateCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(int(errs.ExitIO))
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of nunavut",
		Run: func(cmd *cobra.Command, args []string) {
			ui.PrintVersionInfo(version)
		},
	}
}

func generateCmd() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:   "generate [dsdl-files...]",
		Short: "Resolve a DSDL namespace and generate target-language code",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(f, args)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.targetLanguage, "target-language", "", "target language tag (c, cpp)")
	fs.StringVar(&f.languageStandard, "language-standard", "", "language standard within the target")
	fs.StringVar(&f.outdir, "outdir", "", "output root directory")
	fs.StringArrayVar(&f.lookupDirs, "lookup-dir", nil, "additional DSDL lookup root (repeatable)")
	fs.StringArrayVar(&f.configurationFiles, "configuration", nil, "user configuration layer file, applied in order (repeatable)")
	fs.StringVar(&f.outputExtension, "output-extension", "", "override the default output file extension")
	fs.StringVar(&f.generateSupport, "generate-support", "as-needed", "support-library policy: only, never, as-needed")
	fs.BoolVar(&f.includeExperimental, "include-experimental-languages", false, "unlock languages marked experimental")
	fs.StringVar(&f.targetEndianness, "target-endianness", "any", "any, little, or big")
	fs.BoolVar(&f.listInputs, "list-inputs", false, "print the input file closure and exit")
	fs.BoolVar(&f.listOutputs, "list-outputs", false, "print the output file set and exit")
	fs.BoolVar(&f.listConfiguration, "list-configuration", false, "include the finalized configuration in list output")
	fs.StringVar(&f.listFormat, "list-format", "json", "json or json-pretty")
	fs.StringVar(&f.listToFile, "list-to-file", "", "write list/manifest output to this path instead of stdout")
	fs.BoolVar(&f.dryRun, "dry-run", false, "plan without rendering")
	fs.BoolVar(&f.omitDependencies, "omit-dependencies", false, "generate only the named types, not their transitive closure")
	fs.StringVar(&f.templateDir, "template-dir", "", "template search directory (repeatable via os.PathListSeparator); defaults to the built-in templates")
	fs.IntVar(&f.jobs, "jobs", 1, "bounded worker-pool width for rendering")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "enable debug logging")

	cmd.MarkFlagRequired("target-language")
	cmd.MarkFlagRequired("outdir")

	return cmd
}

func runGenerate(f *flags, dsdlFiles []string) error {
	logger, sync, err := buildLogger(f.verbose)
	if err != nil {
		return exitWith(err)
	}
	defer sync()

	buildUI := ui.NewBuildOutput()
	buildUI.PrintHeader(version)

	registry := language.NewRegistry()
	lang, err := registry.Lookup(f.targetLanguage, f.includeExperimental)
	if err != nil {
		buildUI.PrintError(err.Error())
		return exitWith(err)
	}

	store, err := buildConfig(f, lang)
	if err != nil {
		buildUI.PrintError(err.Error())
		return exitWith(err)
	}

	outputExtension := f.outputExtension
	if outputExtension == "" {
		outputExtension, err = store.GetStringOr("language.output_extension", "")
		if err != nil {
			buildUI.PrintError(err.Error())
			return exitWith(err)
		}
	}

	supportPolicy, err := depend.ParseSupportPolicy(f.generateSupport)
	if err != nil {
		buildUI.PrintError(err.Error())
		return exitWith(err)
	}

	templateSearch, templateName, cleanup, err := resolveTemplates(f, lang)
	if err != nil {
		buildUI.PrintError(err.Error())
		return exitWith(err)
	}
	defer cleanup()

	roots := append(append([]string{}, f.lookupDirs...), dsdlFiles...)

	opts := driver.Options{
		Roots:           roots,
		Lookup:          jsonreader.New(),
		Language:        lang,
		OutputRoot:      f.outdir,
		OutputExtension: outputExtension,
		TemplateSearch:  templateSearch,
		TemplateName:    templateName,
		SupportPolicy:   supportPolicy,
		DryRun:          f.dryRun || f.listInputs || f.listOutputs,
		Jobs:            f.jobs,
		Logger:          logger,
	}

	if f.listToFile != "" {
		opts.ManifestPath = f.listToFile
	}
	opts.ManifestFormat = depend.FormatCompact
	if strings.EqualFold(f.listFormat, "json-pretty") {
		opts.ManifestFormat = depend.FormatPretty
	}
	opts.IncludeConfigInManifest = f.listConfiguration

	result, err := driver.Run(store, opts)
	if err != nil {
		buildUI.PrintError(err.Error())
		buildUI.PrintSummary(false, err.Error())
		return exitWith(err)
	}

	if f.listInputs || f.listOutputs || f.dryRun {
		return printListing(f, result, opts)
	}

	for _, w := range result.Written {
		buildUI.PrintFileStart("dsdl", w)
	}
	buildUI.PrintSummary(true, "")
	return nil
}

func buildLogger(verbose bool) (logging.Logger, func() error, error) {
	if !verbose {
		return logging.NoOp(), func() error { return nil }, nil
	}
	return logging.NewZap(true)
}

func buildConfig(f *flags, lang language.Language) (*config.Store, error) {
	var overrides []config.Override
	overrides = append(overrides, config.Override{Path: "generate_support", Value: f.generateSupport})
	overrides = append(overrides, config.Override{Path: "target_endianness", Value: f.targetEndianness})
	overrides = append(overrides, config.Override{Path: "omit_dependencies", Value: boolString(f.omitDependencies)})
	overrides = append(overrides, config.Override{Path: "include_experimental_languages", Value: boolString(f.includeExperimental)})
	if f.outputExtension != "" {
		overrides = append(overrides, config.Override{Path: "output_extension", Value: f.outputExtension})
	}
	if f.languageStandard != "" {
		overrides = append(overrides, config.Override{Path: "language.standard", Value: f.languageStandard})
	}

	return config.Resolve(config.BuildOptions{
		Language:     f.targetLanguage,
		UserFiles:    f.configurationFiles,
		CLIOverrides: overrides,
	})
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// resolveTemplates returns the search path and template name to render
// every composite with. If the user didn't pass --template-dir, the
// built-in defaults are extracted to a temporary directory; cleanup
// removes that directory (a no-op when the user supplied their own).
func resolveTemplates(f *flags, lang language.Language) (searchPath []string, templateName string, cleanup func(), err error) {
	if f.templateDir != "" {
		name, nameErr := defaults.TemplateName(lang.Tag())
		if nameErr != nil {
			return nil, "", func() {}, nameErr
		}
		return strings.Split(f.templateDir, string(os.PathListSeparator)), name, func() {}, nil
	}

	dir, extractErr := defaults.Extract(lang.Tag())
	if extractErr != nil {
		return nil, "", func() {}, extractErr
	}
	name, nameErr := defaults.TemplateName(lang.Tag())
	if nameErr != nil {
		os.RemoveAll(dir)
		return nil, "", func() {}, nameErr
	}
	return []string{dir}, name, func() { os.RemoveAll(dir) }, nil
}

// printListing renders the §4.D manifest, restricted to whichever of
// --list-inputs/--list-outputs the caller asked for; with neither flag
// (a plain --dry-run) the full {inputs, outputs, configuration?} document
// is emitted.
func printListing(f *flags, result *driver.Result, opts driver.Options) error {
	if result.Manifest == nil {
		return nil
	}

	m := *result.Manifest
	if f.listInputs && !f.listOutputs {
		m.Outputs = nil
	} else if f.listOutputs && !f.listInputs {
		m.Inputs = nil
	}

	enc, err := depend.Encode(m, opts.ManifestFormat)
	if err != nil {
		return exitWith(err)
	}
	return writeListing(f, enc)
}

func writeListing(f *flags, enc []byte) error {
	if f.listToFile != "" {
		return os.WriteFile(f.listToFile, enc, 0o644)
	}
	fmt.Println(string(enc))
	return nil
}

func exitWith(err error) error {
	os.Exit(int(errs.ExitCodeOf(err)))
	return err
}
