package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"go.jacobcolvin.com/codeannotations/annotation"
	"go.jacobcolvin.com/codeannotations/watch"
)

type staticOptions struct {
	lint   bool
	report bool
	watch  bool
}

func newStaticCmd() *cobra.Command {
	opts := staticOptions{lint: true, report: true}

	cmd := &cobra.Command{
		Use:   "static",
		Short: "Find annotations by scanning source files",
		Long: `static scans every file under the source path whose extension is
configured, lints the annotations it finds and writes a report.

The report is not written when linting fails.`,
		Args: cobra.NoArgs,
	}

	cfg := newAnnotationConfig(cmd)

	cmd.Flags().BoolVar(&opts.lint, "lint", opts.lint, "check choices and groups")
	cmd.Flags().BoolVar(&opts.report, "report", opts.report, "write a report file")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", opts.watch,
		"search again whenever a source file changes")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return runStatic(cmd.Context(), cmd.OutOrStdout(), cfg, opts)
	}

	return cmd
}

func runStatic(ctx context.Context, w io.Writer, cfg *annotation.Config, opts staticOptions) error {
	settings, err := cfg.Load()
	if err != nil {
		return err
	}

	err = searchStatic(ctx, w, settings, opts)
	if !opts.watch {
		return err
	}

	if err != nil && !errors.Is(err, annotation.ErrLintFailed) {
		return err
	}

	return watchStatic(ctx, w, settings, opts)
}

// searchStatic runs one search of the source path.
func searchStatic(ctx context.Context, w io.Writer, settings *annotation.Settings, opts staticOptions) error {
	start := time.Now()

	files, err := annotation.FindFiles(ctx, settings.SourcePath, settings.Extensions)
	if err != nil {
		return err
	}

	res, err := settings.NewLinter().Run(ctx, files)
	if err != nil {
		return err
	}

	if opts.lint {
		fmt.Fprintln(w, "Performing linting checks...")

		if !res.OK() {
			printViolations(w, res.Violations)

			return res.Err()
		}

		fmt.Fprintln(w, "Linting passed without errors.")
	} else {
		for _, v := range res.Violations {
			if v.Kind == annotation.KindReadFailure {
				slog.Warn(v.Message, slog.String("file", v.File))
			}
		}
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

func watchStatic(ctx context.Context, w io.Writer, settings *annotation.Settings, opts staticOptions) error {
	root := settings.SourcePath
	keep := func(path string) bool {
		_, ok := settings.Extensions.Lookup(path)

		return ok
	}

	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("%w: %w", annotation.ErrReadInput, err)
	}

	if !info.IsDir() {
		name := filepath.Base(root)
		root = filepath.Dir(root)
		keep = func(path string) bool { return path == name }
	}

	// Reports written below the source root must not trigger another search.
	watcher, err := watch.New(root, watch.WithFilter(keep), watch.WithIgnore(settings.ReportPath))
	if err != nil {
		return err
	}

	defer func() {
		closeErr := watcher.Close()
		if closeErr != nil {
			slog.Warn("close watcher", slog.Any("err", closeErr))
		}
	}()

	fmt.Fprintf(w, "Watching %s for changes...\n", root)

	return watcher.Run(ctx, func(ctx context.Context, changed []string) error {
		slog.Info("searching again", slog.Any("changed", changed))

		err := searchStatic(ctx, w, settings, opts)
		if ctx.Err() != nil {
			return nil
		}

		if err != nil && !errors.Is(err, annotation.ErrLintFailed) {
			return err
		}

		return nil
	})
}

func printViolations(w io.Writer, violations []annotation.Violation) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Search failed due to linting errors!")
	fmt.Fprintf(w, "%d errors:\n", len(violations))
	fmt.Fprintln(w, "---------------------------------")

	for _, v := range violations {
		fmt.Fprintln(w, v.String())
	}
}

func writeReport(w io.Writer, dir string, rep *annotation.Report) error {
	fmt.Fprintln(w, "Writing report...")

	path, err := annotation.WriteReport(dir, rep, time.Now())
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Report written to %s.\n", path)

	return nil
}
