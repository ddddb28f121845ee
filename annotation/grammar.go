package annotation

import (
	"fmt"
	"iter"
	"regexp"
	"slices"
	"sort"
	"strings"
)

// RawComment is a contiguous comment span found in source text.
//
// Text holds the comment body with the delimiters removed. Coalesced
// single-line comments are joined with newlines, one line per source line,
// so line offsets within Text map directly onto source lines.
type RawComment struct {
	File      string
	Text      string
	StartLine int
	EndLine   int
	// Block is true for delimited comments (/* */, """ """), whose lines may
	// carry a decorative "*" gutter.
	Block bool
}

// Grammar locates comments in the source text of one language.
//
// Implementations must be safe for concurrent use; a single Grammar value
// is shared by every worker scanning files of its language.
type Grammar interface {
	// Name identifies the grammar in configuration and in the found_by
	// field of report records.
	Name() string

	// Comments returns the comments of text in source order. The sequence
	// is lazy and finite.
	Comments(file, text string) iter.Seq[RawComment]
}

// BlockPair holds the opening and closing delimiters of a block comment.
type BlockPair struct {
	Open  string
	Close string
}

// CommentSyntax describes the comment delimiters of a language.
type CommentSyntax struct {
	LineMarkers []string
	BlockPairs  []BlockPair
}

// RegexGrammar is a [Grammar] that finds comments with a regular expression
// built from a [CommentSyntax].
//
// It does not tokenize the language. A comment marker inside a string
// literal is treated as the start of a real comment, so annotation-like text
// in string literals is reported as an annotation.
type RegexGrammar struct {
	re     *regexp.Regexp
	name   string
	syntax CommentSyntax
	// kinds maps each capture group (by index) to its alternative:
	// markers for line comments, "" for block comments.
	kinds []string
}

// NewRegexGrammar creates a [RegexGrammar] named name. Block pairs are tried
// before line markers, so "/*" is never mistaken for a "/" marker. It panics
// if syntax declares no delimiters.
func NewRegexGrammar(name string, syntax CommentSyntax) *RegexGrammar {
	if !slices.ContainsFunc(syntax.LineMarkers, func(m string) bool { return m != "" }) && len(syntax.BlockPairs) == 0 {
		panic(fmt.Sprintf("annotation: grammar %q declares no comment delimiters", name))
	}

	var (
		alts  []string
		kinds []string
	)

	for _, bp := range syntax.BlockPairs {
		alts = append(alts, fmt.Sprintf(`(?s:%s(.*?)%s)`, regexp.QuoteMeta(bp.Open), regexp.QuoteMeta(bp.Close)))
		kinds = append(kinds, "")
	}

	// Longer markers first so that "--" wins over "-" style prefixes.
	markers := slices.Clone(syntax.LineMarkers)
	sort.SliceStable(markers, func(i, j int) bool { return len(markers[i]) > len(markers[j]) })

	for _, m := range markers {
		if m == "" {
			continue
		}

		alts = append(alts, fmt.Sprintf(`%s([^\n]*)`, regexp.QuoteMeta(m)))
		kinds = append(kinds, m)
	}

	return &RegexGrammar{
		name:   name,
		syntax: syntax,
		re:     regexp.MustCompile(strings.Join(alts, "|")),
		kinds:  kinds,
	}
}

// Name implements [Grammar].
func (g *RegexGrammar) Name() string {
	return g.name
}

// Syntax returns the delimiters the grammar was built from.
func (g *RegexGrammar) Syntax() CommentSyntax {
	return g.syntax
}

// Comments implements [Grammar].
//
// Full-line comments that use the same marker are coalesced into one span
// when only whitespace (including blank lines) separates them. Trailing
// comments that follow code on the same line are always a span of their own.
func (g *RegexGrammar) Comments(file, text string) iter.Seq[RawComment] {
	return func(yield func(RawComment) bool) {
		idx := newLineIndex(text)

		var (
			pending       *RawComment
			pendingMarker string
			pendingEnd    int // byte offset just past the pending comment
		)

		flush := func() bool {
			if pending == nil {
				return true
			}

			c := *pending
			pending = nil

			return yield(c)
		}

		pos := 0
		for pos < len(text) {
			loc := g.re.FindStringSubmatchIndex(text[pos:])
			if loc == nil {
				break
			}

			start, end := pos+loc[0], pos+loc[1]
			pos = end

			kind, content := g.matched(text[start-loc[0]:], loc)
			startLine := idx.lineOf(start)

			if kind == "" {
				if !flush() {
					return
				}

				c := RawComment{
					File:      file,
					Text:      content,
					StartLine: startLine,
					EndLine:   idx.lineOf(max(end-1, start)),
					Block:     true,
				}
				if !yield(c) {
					return
				}

				continue
			}

			fullLine := strings.TrimSpace(text[idx.lineStart(startLine):start]) == ""

			if fullLine && pending != nil && pendingMarker == kind &&
				strings.TrimSpace(text[pendingEnd:start]) == "" {
				gap := startLine - pending.EndLine
				pending.Text += strings.Repeat("\n", gap) + content
				pending.EndLine = startLine
				pendingEnd = end

				continue
			}

			if !flush() {
				return
			}

			c := RawComment{
				File:      file,
				Text:      content,
				StartLine: startLine,
				EndLine:   startLine,
			}

			if !fullLine {
				if !yield(c) {
					return
				}

				continue
			}

			pending = &c
			pendingMarker = kind
			pendingEnd = end
		}

		flush()
	}
}

// matched returns the kind and content of the alternative that produced
// loc. The submatch offsets in loc are relative to base.
func (g *RegexGrammar) matched(base string, loc []int) (string, string) {
	for i, kind := range g.kinds {
		s, e := loc[2*(i+1)], loc[2*(i+1)+1]
		if s >= 0 {
			return kind, base[s:e]
		}
	}

	return "", ""
}

// lineIndex converts byte offsets to 1-based line numbers.
type lineIndex struct {
	newlines []int
}

func newLineIndex(text string) lineIndex {
	var nl []int

	for i := range len(text) {
		if text[i] == '\n' {
			nl = append(nl, i)
		}
	}

	return lineIndex{newlines: nl}
}

func (li lineIndex) lineOf(offset int) int {
	return sort.SearchInts(li.newlines, offset) + 1
}

// lineStart returns the byte offset of the first character of line.
func (li lineIndex) lineStart(line int) int {
	if line <= 1 {
		return 0
	}

	return li.newlines[line-2] + 1
}

// Registry maps grammar names (as used in the "extensions" configuration
// key) to [Grammar] implementations.
type Registry map[string]Grammar

// Add registers grammars under their [Grammar.Name].
func (r Registry) Add(grammars ...Grammar) {
	for _, g := range grammars {
		r[g.Name()] = g
	}
}

// Names returns the registered grammar names, sorted.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// ExtensionTable maps file name extensions (without the leading dot) to
// the [Grammar] that scans them.
type ExtensionTable map[string]Grammar

// Lookup returns the grammar for path's extension.
func (t ExtensionTable) Lookup(path string) (Grammar, bool) {
	g, ok := t[fileExtension(path)]

	return g, ok
}

// Table builds an [ExtensionTable] from the "extensions" configuration,
// which maps grammar names to file extensions.
func (r Registry) Table(extensions map[string][]string) (ExtensionTable, error) {
	names := make([]string, 0, len(extensions))
	for name := range extensions {
		names = append(names, name)
	}

	slices.Sort(names)

	table := make(ExtensionTable)

	for _, name := range names {
		g, ok := r[name]
		if !ok {
			return nil, fmt.Errorf("%w: not all configured extensions could be loaded: unknown grammar %q (known: %s)",
				ErrInvalidOption, name, strings.Join(r.Names(), ", "))
		}

		for _, ext := range extensions[name] {
			ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
			if prev, exists := table[ext]; exists && prev.Name() != name {
				return nil, fmt.Errorf("%w: file extension %q is configured for both %q and %q",
					ErrInvalidOption, ext, prev.Name(), name)
			}

			table[ext] = g
		}
	}

	return table, nil
}

func fileExtension(path string) string {
	base := path
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}

	i := strings.LastIndexByte(base, '.')
	if i <= 0 {
		return ""
	}

	return base[i+1:]
}
