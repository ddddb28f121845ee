package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"go.jacobcolvin.com/codeannotations/annotation"
	"go.jacobcolvin.com/codeannotations/annotation/models"
)

type modelsOptions struct {
	modelsFile   string
	safelistPath string
	seedSafelist bool
	listLocal    bool
	lint         bool
	report       bool
	coverage     bool
}

func (o modelsOptions) searches() bool {
	return o.lint || o.report || o.coverage
}

func newModelsCmd() *cobra.Command {
	opts := modelsOptions{modelsFile: "models.yaml"}

	cmd := &cobra.Command{
		Use:   "models",
		Short: "Find annotations in the docstrings of data models",
		Long: `models reads a list of data models, with their docstrings and ancestors,
and checks that each one is either annotated or listed in the safelist.
Local models without annotations lower the coverage, which can be checked
against coverage_target.`,
		Args: cobra.NoArgs,
	}

	cfg := newAnnotationConfig(cmd)

	flags := cmd.Flags()
	flags.StringVarP(&opts.modelsFile, "models-file", "m", opts.modelsFile, "YAML list of models to check")
	flags.StringVar(&opts.safelistPath, "safelist-path", opts.safelistPath,
		"safelist file, overriding safelist_path")
	flags.BoolVar(&opts.seedSafelist, "seed-safelist", false,
		"write an initial safelist with every non-local model")
	flags.BoolVar(&opts.listLocal, "list-local", false, "list local models that require annotations")
	flags.BoolVar(&opts.lint, "lint", false, "check choices and groups")
	flags.BoolVar(&opts.report, "report", false, "write a report file")
	flags.BoolVar(&opts.coverage, "coverage", false, "check coverage against coverage_target")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return runModels(cmd.OutOrStdout(), cfg, opts)
	}

	return cmd
}

func runModels(w io.Writer, cfg *annotation.Config, opts modelsOptions) error {
	if !opts.searches() && !opts.seedSafelist && !opts.listLocal {
		return fmt.Errorf("%w: no actions specified, use one or more of "+
			"--seed-safelist, --list-local, --lint, --report or --coverage", annotation.ErrInvalidOption)
	}

	start := time.Now()

	settings, err := cfg.Load()
	if err != nil {
		return err
	}

	if opts.coverage && settings.CoverageTarget == 0 {
		return fmt.Errorf("%w: add coverage_target to %s before running --coverage",
			annotation.ErrInvalidOption, cfg.ConfigFile)
	}

	ms, err := models.LoadModels(opts.modelsFile)
	if err != nil {
		return err
	}

	safelistPath := opts.safelistPath
	if safelistPath == "" {
		safelistPath = settings.SafelistPath
	}

	if safelistPath == "" {
		safelistPath = models.DefaultSafelistPath
	}

	if opts.seedSafelist {
		n, err := models.SeedSafelist(safelistPath, ms)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "Found %d non-local models requiring annotations. Added them to safelist.\n", n)
		fmt.Fprintf(w, "Successfully created safelist file %q.\n", safelistPath)
		fmt.Fprintln(w, "Now, you need to:")
		fmt.Fprintln(w, "  1) Make sure that any un-annotated models in the safelist are annotated, and")
		fmt.Fprintln(w, "  2) Annotate any LOCAL models (see --list-local).")
	}

	if opts.listLocal {
		printLocal(w, models.ListLocal(ms))
	}

	if !opts.searches() {
		return nil
	}

	safelist, err := models.LoadSafelist(safelistPath)
	if err != nil {
		return err
	}

	res := models.NewSearcher(settings.NewLinter()).Search(ms, safelist)

	if opts.lint {
		fmt.Fprintln(w, "Performing linting checks...")

		if !res.OK() {
			printViolations(w, res.Violations)

			return fmt.Errorf("%w: %d errors", annotation.ErrLintFailed, len(res.Violations))
		}

		fmt.Fprintln(w, "Linting passed without errors.")
	}

	if opts.coverage {
		err := checkCoverage(w, res.Coverage, settings.CoverageTarget)
		if err != nil {
			return err
		}

		fmt.Fprintln(w, "Coverage passed without errors.")
	}

	if opts.report {
		err := writeReport(w, settings.ReportPath, res.Report())
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "Search found %d annotations in %s.\n",
		len(res.Records), time.Since(start).Round(time.Millisecond))

	return nil
}

func printLocal(w io.Writer, ids []string) {
	if len(ids) == 0 {
		fmt.Fprintln(w, "No local models requiring annotations.")

		return
	}

	fmt.Fprintf(w, "Listing %d local models requiring annotations:\n", len(ids))

	for _, id := range ids {
		fmt.Fprintf(w, "    %s\n", id)
	}
}

func checkCoverage(w io.Writer, cov models.Coverage, target float64) error {
	fmt.Fprintf(w, "Found %d local models.\n", cov.Total)
	fmt.Fprintf(w, "Found %d local models with annotations.\n", cov.Covered)
	fmt.Fprintf(w, "Coverage is %.1f%%\n", cov.Percent())

	err := cov.Check(target)
	if err == nil {
		return nil
	}

	if len(cov.Uncovered) > 0 {
		fmt.Fprintf(w, "Coverage found %d uncovered models:\n", len(cov.Uncovered))

		for _, id := range cov.Uncovered {
			fmt.Fprintf(w, "    %s\n", id)
		}
	}

	fmt.Fprintf(w, "Coverage threshold not met! Needed %.1f, actually %.1f!\n", target, cov.Percent())

	return err
}
