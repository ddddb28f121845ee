// Package main provides the CLI entry point for annotations, a tool that
// finds structured annotations in code comments, lints them against a
// configured schema and writes YAML reports.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"go.jacobcolvin.com/codeannotations/annotation"
	"go.jacobcolvin.com/codeannotations/annotation/lang"
	"go.jacobcolvin.com/codeannotations/log"
	"go.jacobcolvin.com/codeannotations/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	logCfg := log.NewConfigFor(os.Stderr)

	rootCmd := &cobra.Command{
		Use:   "annotations",
		Short: "Find and lint structured annotations in code comments",
		Long: `annotations searches source files for annotation tokens configured in an
.annotations file, checks their choices and groups, and writes a report of
everything it found.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			h, err := logCfg.NewHandler(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			slog.SetDefault(slog.New(h))

			return nil
		},
	}

	logCfg.RegisterFlags(rootCmd.PersistentFlags())

	completionErr := logCfg.RegisterCompletions(rootCmd)
	if completionErr != nil {
		fmt.Fprintf(os.Stderr, "register completions: %v\n", completionErr)
	}

	rootCmd.AddCommand(
		newStaticCmd(),
		newModelsCmd(),
		newReportSchemaCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

// newAnnotationConfig returns an [annotation.Config] for the built-in
// grammars, with its flags registered on cmd.
func newAnnotationConfig(cmd *cobra.Command) *annotation.Config {
	cfg := annotation.NewConfig(lang.DefaultRegistry())
	cfg.RegisterFlags(cmd.Flags())

	completionErr := cfg.RegisterCompletions(cmd)
	if completionErr != nil {
		fmt.Fprintf(os.Stderr, "register completions: %v\n", completionErr)
	}

	return cfg
}

func newReportSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report-schema",
		Short: "Print the JSON Schema of report files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeReportSchema(cmd.OutOrStdout())
		},
	}
}

func writeReportSchema(w io.Writer) error {
	out, err := json.MarshalIndent(annotation.ReportSchema(), "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %w", annotation.ErrWriteOutput, err)
	}

	out = append(out, '\n')

	_, err = w.Write(out)
	if err != nil {
		return fmt.Errorf("%w: %w", annotation.ErrWriteOutput, err)
	}

	return nil
}

func newVersionCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()

			if !asJSON {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), info.String())

				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			return enc.Encode(info)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")

	return cmd
}
