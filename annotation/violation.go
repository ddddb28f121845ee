package annotation

import (
	"fmt"
	"strconv"
)

// ViolationKind classifies a [Violation].
type ViolationKind string

// Violation kinds.
const (
	KindInvalidChoice   ViolationKind = "invalid-choice"
	KindDuplicateChoice ViolationKind = "duplicate-choice"
	KindMissingChoice   ViolationKind = "missing-choice"
	KindDuplicateToken  ViolationKind = "duplicate-token"
	KindMissingToken    ViolationKind = "missing-token"
	KindReadFailure     ViolationKind = "read-failure"
	// KindCoverage is used by callers that report model coverage problems,
	// such as a safelisted model without annotations.
	KindCoverage ViolationKind = "coverage"
)

// Violation is one lint failure. Violations are values and are never
// modified after creation.
type Violation struct {
	File string
	// Object identifies the annotated object (e.g. a model ID) for
	// annotations that do not come from a scanned source file. When set, it
	// replaces the line number in [Violation.String].
	Object  string
	Kind    ViolationKind
	Message string
	Line    int
}

// String formats the violation as "file::line: message".
func (v Violation) String() string {
	if v.File == "" {
		return v.Message
	}

	loc := strconv.Itoa(v.Line)
	if v.Object != "" {
		loc = v.Object
	}

	return fmt.Sprintf("%s::%s: %s", v.File, loc, v.Message)
}

func newViolation(a *Annotation, kind ViolationKind, format string, args ...any) Violation {
	v := Violation{
		File:    a.File,
		Line:    a.Line,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}

	if id, ok := a.Extra[ExtraObjectID]; ok {
		v.Object = id
	}

	return v
}
