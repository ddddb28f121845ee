package annotation_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/codeannotations/annotation"
	"go.jacobcolvin.com/codeannotations/stringtest"
)

const fileConfig = `
source_path: src
report_path: out
safelist_path: safelist.yaml
coverage_target: 50
annotations:
  ".. no_pii:":
  pii_group:
    - ".. pii:":
    - ".. pii_types:":
        choices: [id, name]
extensions:
  python: [py]
`

func testRegistry() annotation.Registry {
	r := make(annotation.Registry)
	r.Add(
		annotation.NewRegexGrammar("python", pySyntax),
		annotation.NewRegexGrammar("javascript", jsSyntax),
	)

	return r
}

func TestParseFileConfig(t *testing.T) {
	t.Parallel()

	fc, err := annotation.ParseFileConfig([]byte(stringtest.Input(fileConfig)))
	require.NoError(t, err)

	assert.Equal(t, "src", fc.SourcePath)
	assert.Equal(t, "out", fc.ReportPath)
	assert.Equal(t, "safelist.yaml", fc.SafelistPath)
	assert.InDelta(t, 50.0, fc.CoverageTarget, 0.001)
	assert.Equal(t, map[string][]string{"python": {"py"}}, fc.Extensions)
	require.Len(t, fc.Annotations, 2)
	assert.Equal(t, ".. no_pii:", fc.Annotations[0].Key)
	assert.Equal(t, "pii_group", fc.Annotations[1].Key)
}

func TestParseFileConfigErrors(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input string
		msg   string
	}{
		"missing annotations": {
			input: `
				extensions:
				  python: [py]
			`,
			msg: "annotations is required",
		},
		"missing extensions": {
			input: `
				annotations:
				  ".. pii:":
			`,
			msg: "extensions is required",
		},
		"empty extension list": {
			input: `
				annotations:
				  ".. pii:":
				extensions:
				  python: []
			`,
			msg: "extensions[python] must not be empty",
		},
		"coverage out of range": {
			input: `
				coverage_target: 150
				annotations:
				  ".. pii:":
				extensions:
				  python: [py]
			`,
			msg: "coverage_target failed lte=100",
		},
		"not yaml": {
			input: `
				annotations: [
			`,
			msg: "parse config",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := annotation.ParseFileConfig([]byte(stringtest.Input(tc.input)))
			require.ErrorIs(t, err, annotation.ErrInvalidOption)
			assert.ErrorContains(t, err, tc.msg)
		})
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".annotations")
	require.NoError(t, os.WriteFile(path, []byte(stringtest.Input(content)), 0o644))

	return path
}

func TestConfigLoad(t *testing.T) {
	t.Parallel()

	t.Run("file values", func(t *testing.T) {
		t.Parallel()

		cfg := annotation.NewConfig(testRegistry())
		cfg.ConfigFile = writeConfig(t, fileConfig)

		s, err := cfg.Load()
		require.NoError(t, err)

		assert.Equal(t, "src", s.SourcePath)
		assert.Equal(t, "out", s.ReportPath)
		assert.Equal(t, "safelist.yaml", s.SafelistPath)
		assert.InDelta(t, 50.0, s.CoverageTarget, 0.001)
		assert.Equal(t, []string{".. no_pii:", ".. pii:", ".. pii_types:"}, s.Schema.Tokens())

		g, ok := s.Extensions.Lookup("mod.py")
		require.True(t, ok)
		assert.Equal(t, "python", g.Name())

		_, ok = s.Extensions.Lookup("mod.js")
		assert.False(t, ok)

		assert.NotNil(t, s.NewLinter())
	})

	t.Run("flags override file", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, fileConfig)

		cfg := annotation.NewConfig(testRegistry())
		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		cfg.RegisterFlags(flags)

		require.NoError(t, flags.Parse([]string{
			"--config-file", path,
			"--source-path", "other",
			"--report-path", "elsewhere",
			"-j", "3",
		}))

		s, err := cfg.Load()
		require.NoError(t, err)
		assert.Equal(t, "other", s.SourcePath)
		assert.Equal(t, "elsewhere", s.ReportPath)
		assert.Equal(t, 3, s.Workers)
	})

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		cfg := annotation.NewConfig(testRegistry())
		cfg.ConfigFile = writeConfig(t, `
			annotations:
			  ".. pii:":
			extensions:
			  python: [py]
		`)

		s, err := cfg.Load()
		require.NoError(t, err)
		assert.Equal(t, annotation.DefaultSourcePath, s.SourcePath)
		assert.Equal(t, annotation.DefaultReportPath, s.ReportPath)
	})

	t.Run("unknown grammar", func(t *testing.T) {
		t.Parallel()

		cfg := annotation.NewConfig(testRegistry())
		cfg.ConfigFile = writeConfig(t, `
			annotations:
			  ".. pii:":
			extensions:
			  cobol: [cbl]
		`)

		_, err := cfg.Load()
		require.ErrorIs(t, err, annotation.ErrInvalidOption)
	})

	t.Run("schema error", func(t *testing.T) {
		t.Parallel()

		cfg := annotation.NewConfig(testRegistry())
		cfg.ConfigFile = writeConfig(t, `
			annotations:
			  grp:
			    - ".. pii:":
			extensions:
			  python: [py]
		`)

		_, err := cfg.Load()
		require.ErrorIs(t, err, annotation.ErrSchema)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		cfg := annotation.NewConfig(testRegistry())
		cfg.ConfigFile = filepath.Join(t.TempDir(), "nope")

		_, err := cfg.Load()
		require.ErrorIs(t, err, annotation.ErrReadInput)
	})
}

func TestConfigRegisterCompletions(t *testing.T) {
	t.Parallel()

	cfg := annotation.NewConfig(testRegistry())
	cmd := &cobra.Command{Use: "test"}
	cfg.RegisterFlags(cmd.Flags())

	require.NoError(t, cfg.RegisterCompletions(cmd))

	flag := cmd.Flags().Lookup("config-file")
	require.NotNil(t, flag)
	assert.Equal(t, annotation.DefaultConfigFile, flag.DefValue)
}
