package annotation

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
)

// File is one source file queued for linting.
type File struct {
	// Grammar locates the comments of the file.
	Grammar Grammar
	// Err is set when the file could not be read. The file is then reported
	// as a violation instead of being scanned.
	Err  error
	Path string
	Text string
}

// FileResult holds everything found in one file. Results are produced by a
// single worker and never shared until they are merged.
type FileResult struct {
	Assembly   *Assembly
	Path       string
	Violations []Violation
}

// Result is the merged outcome of a lint run.
type Result struct {
	Files      []*FileResult
	Violations []Violation
	Records    []Record
}

// OK reports whether the run found no violations.
func (r *Result) OK() bool {
	return len(r.Violations) == 0
}

// Err returns an error wrapping [ErrLintFailed] when the run found
// violations.
func (r *Result) Err() error {
	if r.OK() {
		return nil
	}

	return fmt.Errorf("%w: %d errors", ErrLintFailed, len(r.Violations))
}

// Report groups the records of the run by file.
func (r *Result) Report() *Report {
	rep := NewReport()
	rep.Add(r.Records...)

	return rep
}

// Linter extracts, groups, and validates annotations.
//
// Create instances with [NewLinter].
type Linter struct {
	schema    *Schema
	extractor *Extractor
	workers   int
}

// LintOption configures a [Linter].
type LintOption func(*Linter)

// WithWorkers bounds the number of files scanned concurrently. Values below
// one select [runtime.GOMAXPROCS].
func WithWorkers(n int) LintOption {
	return func(l *Linter) {
		l.workers = n
	}
}

// NewLinter creates a [Linter] for schema.
func NewLinter(schema *Schema, opts ...LintOption) *Linter {
	l := &Linter{
		schema:    schema,
		extractor: NewExtractor(schema),
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.workers < 1 {
		l.workers = runtime.GOMAXPROCS(0)
	}

	return l
}

// Schema returns the schema of the linter.
func (l *Linter) Schema() *Schema {
	return l.schema
}

// ScanFile extracts and checks the annotations of one file.
func (l *Linter) ScanFile(f File) *FileResult {
	if f.Err != nil {
		return &FileResult{
			Path:     f.Path,
			Assembly: AssembleGroups(l.schema, nil),
			Violations: []Violation{{
				File:    f.Path,
				Kind:    KindReadFailure,
				Message: fmt.Sprintf("could not read file: %v", f.Err),
			}},
		}
	}

	anns := l.extractor.ExtractText(f.Grammar, f.Path, f.Text)
	asm, vs := l.Check(anns)

	slog.Debug("scanned file",
		slog.String("file", f.Path),
		slog.String("grammar", f.Grammar.Name()),
		slog.Int("annotations", len(anns)),
		slog.Int("violations", len(vs)),
	)

	return &FileResult{Path: f.Path, Assembly: asm, Violations: vs}
}

// Check groups the annotations of one file (or one object) and validates
// them. Violations are ordered by line, then by discovery.
//
// Every invalid choice value, every duplicated group member, and every
// missing non-optional member produces its own violation. Missing members
// are only reported for instances without duplicates, since a duplicate
// already means the instance is malformed.
func (l *Linter) Check(anns []Annotation) (*Assembly, []Violation) {
	asm := AssembleGroups(l.schema, anns)

	var vs []Violation

	for i := range asm.Annotations {
		a := &asm.Annotations[i]

		def, ok := l.schema.Def(a.Token)
		if !ok {
			continue
		}

		vs = append(vs, CheckChoices(def, a)...)
	}

	for _, gi := range asm.Instances {
		for _, dup := range gi.Duplicates {
			first := gi.Members[slices.IndexFunc(gi.Members, func(m *Annotation) bool {
				return m.Token == dup.Token
			})]

			vs = append(vs, newViolation(dup, KindDuplicateToken,
				"found duplicate annotation '%s' in group %q (first seen on line %d)",
				dup.Token, gi.Def.ID, first.Line))
		}

		if len(gi.Duplicates) > 0 {
			continue
		}

		for _, def := range gi.Missing() {
			vs = append(vs, newViolation(gi.Members[0], KindMissingToken,
				"missing non-optional annotation: '%s'", def.Token))
		}
	}

	slices.SortStableFunc(vs, func(a, b Violation) int {
		return a.Line - b.Line
	})

	return asm, vs
}

// Run scans files on a bounded pool of workers and merges the results in
// the order of files.
//
// When ctx is canceled no new files are dispatched. Run then returns the
// merged results of the files that finished, together with the context's
// error.
func (l *Linter) Run(ctx context.Context, files []File) (*Result, error) {
	results := make([]*FileResult, len(files))

	var g errgroup.Group

	g.SetLimit(l.workers)

	for i, f := range files {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			results[i] = l.ScanFile(f)

			return nil
		})
	}

	waitErr := g.Wait()

	res := l.merge(results)

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("lint canceled: %w", err)
	}

	if waitErr != nil {
		return res, waitErr
	}

	return res, nil
}

func (l *Linter) merge(results []*FileResult) *Result {
	res := &Result{}
	norm := NewNormalizer()

	for _, fr := range results {
		if fr == nil {
			continue
		}

		res.Files = append(res.Files, fr)
		res.Violations = append(res.Violations, fr.Violations...)
		res.Records = append(res.Records, norm.Records(fr.Assembly)...)
	}

	return res
}
