package log

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

// Flags holds the CLI flag names used by [Config].
type Flags struct {
	Level  string
	Format string
}

// NewConfig creates a [Config] that registers these flag names.
func (f Flags) NewConfig() *Config {
	return &Config{Flags: f}
}

// Config holds the log level and format chosen on the command line.
//
// The values held when [Config.RegisterFlags] runs become the flag
// defaults, so a caller can preset them (see [NewConfigFor]).
type Config struct {
	Level  string
	Format string
	Flags  Flags
}

// NewConfig returns a [Config] using the "log-level" and "log-format"
// flags, with no values preset.
func NewConfig() *Config {
	return Flags{Level: "log-level", Format: "log-format"}.NewConfig()
}

// NewConfigFor returns a [Config] whose default format suits the log
// destination: colored text when out is a terminal, logfmt otherwise.
func NewConfigFor(out *os.File) *Config {
	c := NewConfig()
	c.Format = string(defaultFormat(out != nil && term.IsTerminal(int(out.Fd()))))

	return c
}

func defaultFormat(terminal bool) Format {
	if terminal {
		return FormatText
	}

	return FormatLogfmt
}

// RegisterFlags adds the level and format flags to flags. Unset values
// default to "info" and "text".
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	if c.Level == "" {
		c.Level = string(LevelInfo)
	}

	if c.Format == "" {
		c.Format = string(FormatText)
	}

	flags.StringVar(&c.Level, c.Flags.Level, c.Level,
		fmt.Sprintf("log level, one of: %s", GetAllLevelStrings()))
	flags.StringVar(&c.Format, c.Flags.Format, c.Format,
		fmt.Sprintf("log format, one of: %s", GetAllFormatStrings()))
}

// RegisterCompletions completes the level and format flags of cmd with
// their accepted values.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	for flag, values := range map[string][]string{
		c.Flags.Level:  GetAllLevelStrings(),
		c.Flags.Format: GetAllFormatStrings(),
	} {
		err := cmd.RegisterFlagCompletionFunc(flag,
			cobra.FixedCompletions(values, cobra.ShellCompDirectiveNoFileComp))
		if err != nil {
			return fmt.Errorf("registering %s completion: %w", flag, err)
		}
	}

	return nil
}

// NewHandler creates a [Handler] writing to w from the configured level and
// format.
func (c *Config) NewHandler(w io.Writer) (Handler, error) {
	return NewHandlerFromStrings(w, c.Level, c.Format)
}
