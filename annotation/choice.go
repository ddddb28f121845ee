package annotation

import "strings"

// CheckChoices validates the values of a choice annotation against def.
//
// Each value that is not an allowed choice produces its own violation. A
// value repeated within the annotation, and an annotation with no values at
// all, are violations too. Annotations of tokens without choices always
// pass.
func CheckChoices(def *Def, a *Annotation) []Violation {
	if def == nil || !def.HasChoices() {
		return nil
	}

	allowed := formatChoices(def.Choices)

	values := a.Data.Choices
	if !a.Data.List {
		values = SplitChoices(a.Data.Text)
	}

	if len(values) == 0 {
		return []Violation{
			newViolation(a, KindMissingChoice, "No choices found for %q. Expected one of %s.", def.Token, allowed),
		}
	}

	var (
		vs   []Violation
		seen = make(map[string]bool, len(values))
	)

	for _, value := range values {
		switch {
		case !def.Allows(value):
			vs = append(vs, newViolation(a, KindInvalidChoice,
				"%q is not a valid choice for %q. Expected one of %s.", value, def.Token, allowed))

		case seen[value]:
			vs = append(vs, newViolation(a, KindDuplicateChoice,
				"%q is already present in this annotation.", value))

		default:
			seen[value] = true
		}
	}

	return vs
}

func formatChoices(choices []string) string {
	return "[" + strings.Join(choices, ", ") + "]"
}
