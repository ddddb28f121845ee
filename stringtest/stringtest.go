package stringtest

import "strings"

// Input dedents a multi-line string literal so test inputs can be indented
// along with the surrounding code.
//
// One leading newline and the trailing newline (with any indentation after
// it) are removed. The indentation common to all non-blank lines is then
// stripped, and whitespace-only lines become empty.
//
// Example:
//
//	src := stringtest.Input(`
//		# .. pii: name
//		def f(): pass
//	`) // -> "# .. pii: name\ndef f(): pass"
func Input(s string) string {
	s = strings.TrimPrefix(s, "\n")

	if i := strings.LastIndexByte(s, '\n'); i >= 0 && strings.TrimSpace(s[i+1:]) == "" {
		s = s[:i]
	}

	lines := strings.Split(s, "\n")

	var (
		prefix string
		found  bool
	)

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		lead := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if !found {
			prefix = lead
			found = true

			continue
		}

		prefix = commonPrefix(prefix, lead)
	}

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""

			continue
		}

		lines[i] = strings.TrimPrefix(line, prefix)
	}

	return strings.Join(lines, "\n")
}

func commonPrefix(a, b string) string {
	n := min(len(a), len(b))

	i := 0
	for i < n && a[i] == b[i] {
		i++
	}

	return a[:i]
}

// JoinLF joins lines with "\n", e.g. to spell out expected output one line
// per argument.
func JoinLF(lines ...string) string {
	return strings.Join(lines, "\n")
}

// JoinCRLF joins lines with "\r\n", for inputs that use Windows line
// endings.
func JoinCRLF(lines ...string) string {
	return strings.Join(lines, "\r\n")
}
