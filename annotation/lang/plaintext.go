package lang

import (
	"iter"
	"strings"

	"go.jacobcolvin.com/codeannotations/annotation"
)

// Plaintext is a grammar for files without comment syntax. Every non-blank
// line is a comment span of its own, so data cannot continue onto the next
// line, but annotations on consecutive lines still form groups.
type Plaintext struct{}

// Name implements [annotation.Grammar].
func (Plaintext) Name() string {
	return NamePlaintext
}

// Comments implements [annotation.Grammar].
func (Plaintext) Comments(file, text string) iter.Seq[annotation.RawComment] {
	return func(yield func(annotation.RawComment) bool) {
		n := 0

		for line := range strings.Lines(text) {
			n++

			line = strings.TrimRight(line, "\r\n")
			if strings.TrimSpace(line) == "" {
				continue
			}

			c := annotation.RawComment{
				File:      file,
				Text:      line,
				StartLine: n,
				EndLine:   n,
			}

			if !yield(c) {
				return
			}
		}
	}
}
