package annotation_test

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/codeannotations/annotation"
	"go.jacobcolvin.com/codeannotations/stringtest"
)

const jsSchema = `
pii_group:
  - ".. pii::":
  - ".. pii_types::":
      choices: [id, name, other]
  - ".. pii_retirement::":
      choices: [retained, local_api, consumer_api]
`

func jsFile(path, text string) annotation.File {
	return annotation.File{
		Path:    path,
		Text:    text,
		Grammar: annotation.NewRegexGrammar("javascript", jsSyntax),
	}
}

func pyFile(path, text string) annotation.File {
	return annotation.File{
		Path:    path,
		Text:    text,
		Grammar: annotation.NewRegexGrammar("python", pySyntax),
	}
}

func TestLinterRunEndToEnd(t *testing.T) {
	t.Parallel()

	linter := annotation.NewLinter(mustSchema(t, jsSchema))

	t.Run("complete group", func(t *testing.T) {
		t.Parallel()

		src := "/* .. pii:: A */\n// .. pii_types:: id, name\n// .. pii_retirement:: local_api"

		res, err := linter.Run(t.Context(), []annotation.File{jsFile("example.js", src)})
		require.NoError(t, err)
		assert.True(t, res.OK())
		require.NoError(t, res.Err())

		want := []annotation.Record{
			{
				FoundBy:    "javascript",
				Filename:   "example.js",
				LineNumber: 1,
				Token:      ".. pii::",
				Data:       annotation.TextData("A"),
				GroupID:    1,
			},
			{
				FoundBy:    "javascript",
				Filename:   "example.js",
				LineNumber: 2,
				Token:      ".. pii_types::",
				Data:       annotation.ListData("id", "name"),
				GroupID:    1,
			},
			{
				FoundBy:    "javascript",
				Filename:   "example.js",
				LineNumber: 2,
				Token:      ".. pii_retirement::",
				Data:       annotation.ListData("local_api"),
				GroupID:    1,
			},
		}
		assert.Equal(t, want, res.Records)
	})

	t.Run("invalid choice", func(t *testing.T) {
		t.Parallel()

		src := "/* .. pii:: A */\n// .. pii_types:: id, name\n// .. pii_retirement:: unknown_policy"

		res, err := linter.Run(t.Context(), []annotation.File{jsFile("example.js", src)})
		require.NoError(t, err)
		require.Len(t, res.Violations, 1)

		v := res.Violations[0]
		assert.Equal(t, annotation.KindInvalidChoice, v.Kind)
		assert.Equal(t, "example.js", v.File)
		assert.Equal(t, 2, v.Line)
		assert.Contains(t, v.Message, `"unknown_policy"`)
		assert.Contains(t, v.Message, "[retained, local_api, consumer_api]")

		require.ErrorIs(t, res.Err(), annotation.ErrLintFailed)
	})
}

func TestLinterCheck(t *testing.T) {
	t.Parallel()

	linter := annotation.NewLinter(mustSchema(t, piiSchema))

	tcs := map[string]struct {
		input string
		want  []string
	}{
		"complete without optional member": {
			input: `
				# .. pii: name
				# .. pii_types: name
			`,
		},
		"one violation per missing member": {
			input: `
				# .. pii_retirement: retained
			`,
			want: []string{
				"f.py::1: missing non-optional annotation: '.. pii:'",
				"f.py::1: missing non-optional annotation: '.. pii_types:'",
			},
		},
		"missing member of partial group": {
			input: `
				# .. pii: name
				# .. pii_retirement: retained
			`,
			want: []string{
				"f.py::1: missing non-optional annotation: '.. pii_types:'",
			},
		},
		"duplicate member": {
			input: `
				# .. pii: a
				# .. pii: b
				# .. pii_types: id
			`,
			want: []string{
				`f.py::1: found duplicate annotation '.. pii:' in group "pii_group" (first seen on line 1)`,
			},
		},
		"members split by code": {
			input: `
				# .. pii: a
				x = 1
				# .. pii_types: id
			`,
			want: []string{
				"f.py::1: missing non-optional annotation: '.. pii_types:'",
				"f.py::3: missing non-optional annotation: '.. pii:'",
			},
		},
		"violations ordered by line": {
			input: `
				# .. pii_types: id
				x = 1
				# .. ignored: bogus
			`,
			want: []string{
				"f.py::1: missing non-optional annotation: '.. pii:'",
				`f.py::3: "bogus" is not a valid choice for ".. ignored:". Expected one of [irrelevant, terrible, silly-silly].`,
			},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			fr := linter.ScanFile(pyFile("f.py", stringtest.Input(tc.input)))

			var got []string
			for _, v := range fr.Violations {
				got = append(got, v.String())
			}

			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLinterOrderIndependence(t *testing.T) {
	t.Parallel()

	linter := annotation.NewLinter(mustSchema(t, piiSchema))

	a := pyFile("a.py", stringtest.Input(`
		# .. pii: name
		# .. pii_types: name
		# .. pii_retirement: retained
	`))
	b := pyFile("b.py", stringtest.Input(`
		# .. pii_retirement: retained
		# .. pii: name
		# .. pii_types: name
	`))

	res, err := linter.Run(t.Context(), []annotation.File{a, b})
	require.NoError(t, err)
	require.True(t, res.OK())

	require.Len(t, res.Files, 2)

	members := func(fr *annotation.FileResult) []string {
		require.Len(t, fr.Assembly.Instances, 1)

		var tokens []string
		for _, m := range fr.Assembly.Instances[0].Members {
			tokens = append(tokens, m.Token+"="+m.Data.String())
		}

		slices.Sort(tokens)

		return tokens
	}

	assert.Equal(t, members(res.Files[0]), members(res.Files[1]))

	ids := make([]int, 0, len(res.Records))
	for _, r := range res.Records {
		ids = append(ids, r.GroupID)
	}

	assert.Equal(t, []int{1, 1, 1, 2, 2, 2}, ids)
}

func TestLinterRunDeterministic(t *testing.T) {
	t.Parallel()

	schema := mustSchema(t, piiSchema)

	files := make([]annotation.File, 0, 40)
	for i := range 40 {
		src := fmt.Sprintf("# .. pii: user %d\n# .. pii_types: id\nx = %d\n# .. no_pii: %d\n", i, i, i)
		if i%7 == 0 {
			src += "# .. pii_types: bogus\n"
		}

		files = append(files, pyFile(fmt.Sprintf("f%02d.py", i), src))
	}

	serial, err := annotation.NewLinter(schema, annotation.WithWorkers(1)).Run(t.Context(), files)
	require.NoError(t, err)

	parallel, err := annotation.NewLinter(schema, annotation.WithWorkers(8)).Run(t.Context(), files)
	require.NoError(t, err)

	again, err := annotation.NewLinter(schema, annotation.WithWorkers(8)).Run(t.Context(), files)
	require.NoError(t, err)

	assert.Equal(t, serial.Records, parallel.Records)
	assert.Equal(t, serial.Violations, parallel.Violations)
	assert.Equal(t, parallel.Records, again.Records)
	assert.Len(t, serial.Records, 40*3+6)
	assert.Len(t, serial.Violations, 6*2)
}

func TestLinterRunReadFailure(t *testing.T) {
	t.Parallel()

	linter := annotation.NewLinter(mustSchema(t, piiSchema))

	files := []annotation.File{
		{Path: "gone.py", Err: fs.ErrNotExist},
		pyFile("ok.py", "# .. no_pii:\n"),
	}

	res, err := linter.Run(t.Context(), files)
	require.NoError(t, err)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, annotation.KindReadFailure, res.Violations[0].Kind)
	assert.Equal(t, "gone.py", res.Violations[0].File)
	assert.Contains(t, res.Violations[0].Message, "file does not exist")

	require.Len(t, res.Records, 1)
	assert.Equal(t, "ok.py", res.Records[0].Filename)
}

func TestLinterRunCanceled(t *testing.T) {
	t.Parallel()

	linter := annotation.NewLinter(mustSchema(t, piiSchema))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	res, err := linter.Run(ctx, []annotation.File{pyFile("a.py", "# .. no_pii:\n")})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Empty(t, res.Files)
}
