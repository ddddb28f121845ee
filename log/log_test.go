package log_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/codeannotations/log"
)

func TestParse(t *testing.T) {
	t.Parallel()

	levels := map[string]log.Level{
		"error":   log.LevelError,
		"warn":    log.LevelWarn,
		"warning": log.LevelWarn,
		"INFO":    log.LevelInfo,
		"Debug":   log.LevelDebug,
	}

	for in, want := range levels {
		got, err := log.ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	formats := map[string]log.Format{
		"json":   log.FormatJSON,
		"LOGFMT": log.FormatLogfmt,
		"text":   log.FormatText,
	}

	for in, want := range formats {
		got, err := log.ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := log.ParseLevel("trace")
	require.ErrorIs(t, err, log.ErrUnknownLogLevel)

	_, err = log.ParseFormat("xml")
	require.ErrorIs(t, err, log.ErrUnknownLogFormat)
}

func TestNewHandler(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		check  func(t *testing.T, out string)
		format log.Format
	}{
		"json": {
			format: log.FormatJSON,
			check: func(t *testing.T, out string) {
				t.Helper()

				var entry map[string]any
				require.NoError(t, json.Unmarshal([]byte(out), &entry))
				assert.Equal(t, "scanned file", entry["msg"])
				assert.Equal(t, "WARN", entry["level"])
				assert.Equal(t, "app/user.py", entry["file"])
				assert.InDelta(t, 3.0, entry["annotations"], 0)
			},
		},
		"logfmt": {
			format: log.FormatLogfmt,
			check: func(t *testing.T, out string) {
				t.Helper()

				assert.Contains(t, out, "level=WARN")
				assert.Contains(t, out, `msg="scanned file"`)
				assert.Contains(t, out, "file=app/user.py")
				assert.Contains(t, out, "annotations=3")
			},
		},
		"text": {
			format: log.FormatText,
			check: func(t *testing.T, out string) {
				t.Helper()

				assert.Contains(t, out, "WARN")
				assert.Contains(t, out, "scanned file")
				assert.Contains(t, out, "file=app/user.py")
			},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			logger := slog.New(log.NewHandler(&buf, log.LevelWarn, tc.format))
			logger.Info("dropped")
			logger.Warn("scanned file",
				slog.String("file", "app/user.py"),
				slog.Int("annotations", 3))

			assert.NotContains(t, buf.String(), "dropped")
			tc.check(t, buf.String())
		})
	}
}

func TestNewHandlerFromStrings(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		level, format string
		err           bool
	}{
		"valid":          {level: "debug", format: "json"},
		"invalid level":  {level: "loud", format: "json", err: true},
		"invalid format": {level: "info", format: "yaml", err: true},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			h, err := log.NewHandlerFromStrings(&buf, tc.level, tc.format)
			if tc.err {
				require.ErrorIs(t, err, log.ErrInvalidArgument)
				assert.Nil(t, h)

				return
			}

			require.NoError(t, err)
			slog.New(h).Debug("walking source tree")
			assert.Contains(t, buf.String(), "walking source tree")
		})
	}
}

func TestConfigFlags(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		cfg := log.NewConfig()
		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		cfg.RegisterFlags(flags)

		assert.Equal(t, "info", flags.Lookup("log-level").DefValue)
		assert.Equal(t, "text", flags.Lookup("log-format").DefValue)
	})

	t.Run("preset values become defaults", func(t *testing.T) {
		t.Parallel()

		cfg := log.NewConfig()
		cfg.Format = string(log.FormatLogfmt)

		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		cfg.RegisterFlags(flags)

		assert.Equal(t, "logfmt", flags.Lookup("log-format").DefValue)

		require.NoError(t, flags.Parse([]string{"--log-level", "debug"}))
		assert.Equal(t, "debug", cfg.Level)

		var buf bytes.Buffer

		h, err := cfg.NewHandler(&buf)
		require.NoError(t, err)
		slog.New(h).Debug("x")
		assert.Contains(t, buf.String(), "level=DEBUG")
	})

	t.Run("logfmt when not a terminal", func(t *testing.T) {
		t.Parallel()

		f, err := os.Create(filepath.Join(t.TempDir(), "log"))
		require.NoError(t, err)
		t.Cleanup(func() { assert.NoError(t, f.Close()) })

		for _, cfg := range []*log.Config{log.NewConfigFor(f), log.NewConfigFor(nil)} {
			flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
			cfg.RegisterFlags(flags)

			assert.Equal(t, "logfmt", flags.Lookup("log-format").DefValue)
			assert.Equal(t, "info", cfg.Level)
		}
	})

	t.Run("completions", func(t *testing.T) {
		t.Parallel()

		cfg := log.NewConfig()
		cmd := &cobra.Command{Use: "test"}
		cfg.RegisterFlags(cmd.Flags())
		require.NoError(t, cfg.RegisterCompletions(cmd))

		for flag, want := range map[string][]string{
			"log-level":  log.GetAllLevelStrings(),
			"log-format": log.GetAllFormatStrings(),
		} {
			fn, ok := cmd.GetFlagCompletionFunc(flag)
			require.True(t, ok, flag)

			values, directive := fn(cmd, nil, "")
			assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)
			assert.Equal(t, want, values)
		}
	})
}
