package annotation

import (
	"encoding/json"
	"slices"
	"strings"
	"unicode"
)

// Data is the data following an annotation token: free text for free-form
// tokens, or a list of values for choice tokens.
type Data struct {
	Text    string
	Choices []string
	List    bool
}

// TextData returns free-form [Data].
func TextData(text string) Data {
	return Data{Text: text}
}

// ListData returns list [Data]. The result is a list even when no values
// are given.
func ListData(values ...string) Data {
	return Data{Choices: append([]string{}, values...), List: true}
}

// String returns the text, or the values joined by ", " for lists.
func (d Data) String() string {
	if d.List {
		return strings.Join(d.Choices, ", ")
	}

	return d.Text
}

// Contains reports whether a list contains value.
func (d Data) Contains(value string) bool {
	return d.List && slices.Contains(d.Choices, value)
}

// MarshalJSON encodes lists as arrays and text as a string.
func (d Data) MarshalJSON() ([]byte, error) {
	if d.List {
		return json.Marshal(d.Choices)
	}

	return json.Marshal(d.Text)
}

// MarshalYAML encodes lists as sequences and text as a string.
func (d Data) MarshalYAML() (any, error) {
	if d.List {
		return d.Choices, nil
	}

	return d.Text, nil
}

// Keys of [Annotation.Extra].
const (
	// ExtraObjectID identifies the annotated object when annotations are
	// found outside of source comments.
	ExtraObjectID = "object_id"
	// ExtraFullComment holds the complete comment an annotation came from.
	ExtraFullComment = "full_comment"
)

// Annotation is a token and its data, extracted from a comment.
type Annotation struct {
	Extra   map[string]string
	Token   string
	File    string
	FoundBy string
	Data    Data
	// Line is the first line of the comment span the annotation was found
	// in, not the line of the token itself.
	Line int
	// EndLine is the last line of the comment span.
	EndLine int
}

// Extractor finds registered annotation tokens inside comments.
// It is stateless and safe for concurrent use.
type Extractor struct {
	schema *Schema
}

// NewExtractor creates an [Extractor] for the tokens in schema.
func NewExtractor(schema *Schema) *Extractor {
	return &Extractor{schema: schema}
}

// Extract returns the annotations in one comment, in order.
//
// A line starts an annotation when, after leading whitespace and block
// comment gutters are removed, it begins with a registered token. The rest
// of that line, plus every following continuation line, is the data. A
// continuation line is indented at least two columns deeper than the token
// and does not itself start with a token. Blank lines are kept only when a
// continuation line follows them. Continuation lines are dedented by the
// indentation of the first continuation line.
//
// Data of choice tokens is split on commas and whitespace into a list.
// Unregistered tokens are ignored.
func (e *Extractor) Extract(foundBy string, c RawComment) []Annotation {
	lines := commentLines(c)

	var anns []Annotation

	for i := 0; i < len(lines); {
		indent, rest := splitIndent(lines[i])

		token, ok := e.schema.MatchToken(rest)
		if !ok {
			i++

			continue
		}

		body := []string{strings.TrimSpace(rest[len(token):])}
		blanks := 0
		contIndent := -1

		j := i + 1
		for ; j < len(lines); j++ {
			line := lines[j]
			if strings.TrimSpace(line) == "" {
				blanks++

				continue
			}

			ind, r := splitIndent(line)
			if ind < indent+2 {
				break
			}

			if _, isToken := e.schema.MatchToken(r); isToken {
				break
			}

			if contIndent < 0 {
				contIndent = ind
			}

			for ; blanks > 0; blanks-- {
				body = append(body, "")
			}

			body = append(body, strings.TrimRight(line[min(ind, contIndent):], " \t"))
		}

		anns = append(anns, e.annotation(foundBy, c, token, strings.TrimSpace(strings.Join(body, "\n"))))

		i = j
	}

	return anns
}

func (e *Extractor) annotation(foundBy string, c RawComment, token, data string) Annotation {
	a := Annotation{
		Token:   token,
		File:    c.File,
		FoundBy: foundBy,
		Line:    c.StartLine,
		EndLine: c.EndLine,
		Data:    TextData(data),
	}

	if def, ok := e.schema.Def(token); ok && def.HasChoices() {
		a.Data = ListData(SplitChoices(data)...)
	}

	return a
}

// SplitChoices splits choice data on commas and/or whitespace.
func SplitChoices(data string) []string {
	return strings.FieldsFunc(data, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

// ExtractText runs the grammar's comment locator over text and extracts
// every annotation, in source order. Text without any registered token is
// skipped without running the locator.
func (e *Extractor) ExtractText(g Grammar, file, text string) []Annotation {
	if !e.schema.Mentions(text) {
		return nil
	}

	var anns []Annotation

	for c := range g.Comments(file, text) {
		anns = append(anns, e.Extract(g.Name(), c)...)
	}

	return anns
}

// commentLines splits a comment into lines, dropping carriage returns and
// the "*" gutter of block comments.
func commentLines(c RawComment) []string {
	lines := strings.Split(c.Text, "\n")

	for i, line := range lines {
		line = strings.TrimRight(line, "\r")
		if c.Block {
			line = stripGutter(line)
		}

		lines[i] = line
	}

	return lines
}

// stripGutter removes a leading run of "*" (as in "/**" or " * text") and
// replaces it with spaces, so columns are preserved.
func stripGutter(line string) string {
	indent, rest := splitIndent(line)

	n := len(rest) - len(strings.TrimLeft(rest, "*"))
	if n == 0 || (n < len(rest) && rest[n] != ' ' && rest[n] != '\t') {
		return line
	}

	return line[:indent] + strings.Repeat(" ", n) + rest[n:]
}

// splitIndent returns the number of leading blank bytes and the remainder.
func splitIndent(line string) (int, string) {
	rest := strings.TrimLeft(line, " \t")

	return len(line) - len(rest), rest
}
