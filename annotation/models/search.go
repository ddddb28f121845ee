package models

import (
	"fmt"
	"log/slog"
	"strings"

	"go.jacobcolvin.com/codeannotations/annotation"
)

// FoundBy is the FoundBy value of annotations extracted from docstrings.
const FoundBy = "model"

// Result is the outcome of [Searcher.Search].
type Result struct {
	Violations []annotation.Violation
	Records    []annotation.Record
	Coverage   Coverage
}

// OK reports whether the search found no violations.
func (r *Result) OK() bool {
	return len(r.Violations) == 0
}

// Report groups the records by file.
func (r *Result) Report() *annotation.Report {
	rep := annotation.NewReport()
	rep.Add(r.Records...)

	return rep
}

// Searcher finds and lints the annotations of models.
type Searcher struct {
	linter    *annotation.Linter
	extractor *annotation.Extractor
}

// NewSearcher creates a [Searcher] that lints with linter.
func NewSearcher(linter *annotation.Linter) *Searcher {
	return &Searcher{
		linter:    linter,
		extractor: annotation.NewExtractor(linter.Schema()),
	}
}

// Search extracts the annotations of every model, in the order given.
//
// A model's annotations come from its own docstring and the docstrings of
// its ancestors. A model without any is looked up in the safelist. The
// following are violations:
//
//   - an annotated model that is also safelisted,
//   - a safelisted model whose safelist entry is empty, and
//   - a non-local model that is neither annotated nor safelisted.
//
// Unannotated local models are not violations; they lower [Coverage].
// The annotations of each model are then grouped and checked like the
// annotations of one source file. A nil safelist is treated as empty.
func (s *Searcher) Search(models []Model, safelist *Safelist) *Result {
	if safelist == nil {
		safelist = &Safelist{}
	}

	schema := s.linter.Schema()
	byID := make(map[string]*Model, len(models))

	for i := range models {
		byID[models[i].ID] = &models[i]
	}

	res := &Result{}
	norm := annotation.NewNormalizer()

	for i := range models {
		m := &models[i]
		anns := s.docstringAnnotations(m, byID)

		switch {
		case len(anns) > 0:
			if safelist.Has(m.ID) {
				res.Violations = append(res.Violations, modelViolation(m,
					"%s is annotated, but also in the safelist.", m.ID))
			}

		case safelist.Has(m.ID):
			anns = safelist.Annotations(schema, m.ID)
			if len(anns) == 0 {
				res.Violations = append(res.Violations, modelViolation(m,
					"%s is in the safelist but has no annotations!", m.ID))
			}

		case m.Local:
			slog.Info(m.ID+" has no annotations", slog.String("model", m.ID))

		default:
			res.Violations = append(res.Violations, modelViolation(m,
				"%s is not annotated and not in the safelist!", m.ID))
		}

		if m.Local {
			res.Coverage.add(m.ID, len(anns) > 0)
		}

		asm, vs := s.linter.Check(anns)
		res.Violations = append(res.Violations, vs...)
		res.Records = append(res.Records, norm.Records(asm)...)
	}

	return res
}

// docstringAnnotations extracts the annotations of m and its ancestors, in
// that order. Ancestors that are not among the models are skipped.
func (s *Searcher) docstringAnnotations(m *Model, byID map[string]*Model) []annotation.Annotation {
	chain := []*Model{m}

	for _, id := range m.Ancestors {
		if a, ok := byID[id]; ok {
			chain = append(chain, a)
		} else {
			slog.Debug("unknown ancestor",
				slog.String("model", m.ID),
				slog.String("ancestor", id),
			)
		}
	}

	var anns []annotation.Annotation

	for _, obj := range chain {
		if obj.Docstring == "" || !s.linter.Schema().Mentions(obj.Docstring) {
			continue
		}

		c := annotation.RawComment{
			File:      obj.File,
			Text:      obj.Docstring,
			StartLine: obj.Line,
			EndLine:   obj.Line + strings.Count(obj.Docstring, "\n"),
			Block:     true,
		}

		full := strings.TrimSpace(obj.Docstring)

		for _, a := range s.extractor.Extract(FoundBy, c) {
			a.Extra = map[string]string{
				annotation.ExtraObjectID:    m.ID,
				annotation.ExtraFullComment: full,
			}

			anns = append(anns, a)
		}
	}

	return anns
}

func modelViolation(m *Model, format string, args ...any) annotation.Violation {
	return annotation.Violation{
		Object:  m.ID,
		Kind:    annotation.KindCoverage,
		Message: fmt.Sprintf(format, args...),
	}
}

// Coverage counts the local models that carry annotations.
type Coverage struct {
	// Uncovered holds the IDs of local models without annotations.
	Uncovered []string
	Total     int
	Covered   int
}

func (c *Coverage) add(id string, covered bool) {
	c.Total++

	if covered {
		c.Covered++

		return
	}

	c.Uncovered = append(c.Uncovered, id)
}

// Percent returns the covered share of local models, from 0 to 100. With
// no local models coverage is 100.
func (c Coverage) Percent() float64 {
	if c.Total == 0 {
		return 100
	}

	return float64(c.Covered) / float64(c.Total) * 100
}

// Check returns an error wrapping [ErrCoverage] when the coverage, rounded
// to one decimal, is below target.
func (c Coverage) Check(target float64) error {
	pct := c.Percent()

	if roundTenth(pct) < target {
		return fmt.Errorf("%w: needed %.1f, actually %.1f", ErrCoverage, target, pct)
	}

	return nil
}

func roundTenth(f float64) float64 {
	return float64(int64(f*10+0.5)) / 10
}
