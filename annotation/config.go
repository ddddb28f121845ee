package annotation

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Defaults applied when neither the configuration file nor a flag sets a
// value.
const (
	DefaultConfigFile = ".annotations"
	DefaultSourcePath = "."
	DefaultReportPath = "reports"
)

// FileConfig is the content of a configuration file.
//
// Example:
//
//	source_path: src
//	report_path: reports
//	coverage_target: 50
//	annotations:
//	  ".. no_pii:":
//	  pii_group:
//	    - ".. pii:":
//	    - ".. pii_types:":
//	        choices: [id, name]
//	extensions:
//	  python: [py]
type FileConfig struct {
	Extensions     map[string][]string `validate:"required,dive,keys,required,endkeys,min=1,dive,required" yaml:"extensions"`
	SourcePath     string              `yaml:"source_path"`
	ReportPath     string              `yaml:"report_path"`
	SafelistPath   string              `yaml:"safelist_path"`
	Annotations    yaml.MapSlice       `validate:"required"                                                yaml:"annotations"`
	CoverageTarget float64             `validate:"gte=0,lte=100"                                           yaml:"coverage_target"`
}

var fileConfigValidator = newFileConfigValidator()

func newFileConfigValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	return v
}

// ParseFileConfig decodes and validates a configuration file.
func ParseFileConfig(data []byte) (*FileConfig, error) {
	fc := &FileConfig{}

	err := yaml.UnmarshalWithOptions(data, fc, yaml.UseOrderedMap())
	if err != nil {
		return nil, fmt.Errorf("%w: parse config: %w", ErrInvalidOption, err)
	}

	err = fileConfigValidator.Struct(fc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOption, validationError(err))
	}

	return fc, nil
}

// validationError rewrites validator errors as one readable error per
// failed field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "FileConfig.")

		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must not be empty", field))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value()))
		}
	}

	return errors.New(strings.Join(msgs, "; "))
}

// Settings is a loaded and validated configuration.
type Settings struct {
	Schema         *Schema
	Extensions     ExtensionTable
	SourcePath     string
	ReportPath     string
	SafelistPath   string
	CoverageTarget float64
	Workers        int
}

// NewLinter creates a [Linter] for these settings.
func (s *Settings) NewLinter() *Linter {
	return NewLinter(s.Schema, WithWorkers(s.Workers))
}

// Flags holds CLI flag names for annotation configuration, allowing callers
// to customize flag names while keeping sensible defaults.
type Flags struct {
	ConfigFile string
	SourcePath string
	ReportPath string
	Workers    string
}

// Config holds CLI flag values for annotation configuration.
//
// Create instances with [NewConfig] and register CLI flags with
// [Config.RegisterFlags]. Use [Config.Load] to read the configuration file
// and apply flag overrides.
type Config struct {
	Flags      Flags
	Registry   Registry
	ConfigFile string
	SourcePath string
	ReportPath string
	Workers    int
}

// NewConfig returns a new [Config] with default flag names.
func NewConfig(registry Registry) *Config {
	f := Flags{
		ConfigFile: "config-file",
		SourcePath: "source-path",
		ReportPath: "report-path",
		Workers:    "workers",
	}

	return &Config{
		Flags:      f,
		Registry:   registry,
		ConfigFile: DefaultConfigFile,
	}
}

// RegisterFlags adds annotation flags to the given [*pflag.FlagSet].
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&c.ConfigFile, c.Flags.ConfigFile, "c", c.ConfigFile,
		"path to the annotation configuration file")
	flags.StringVar(&c.SourcePath, c.Flags.SourcePath, c.SourcePath,
		"file or directory to search, overriding source_path")
	flags.StringVar(&c.ReportPath, c.Flags.ReportPath, c.ReportPath,
		"directory to write reports to, overriding report_path")
	flags.IntVarP(&c.Workers, c.Flags.Workers, "j", c.Workers,
		"number of files scanned concurrently (0 for one per CPU)")
}

// RegisterCompletions registers shell completions for annotation flags on
// cmd.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	err := cmd.RegisterFlagCompletionFunc(c.Flags.ConfigFile,
		func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		})
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.ConfigFile, err)
	}

	for _, flag := range []string{c.Flags.SourcePath, c.Flags.ReportPath} {
		err := cmd.RegisterFlagCompletionFunc(flag,
			func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
				return nil, cobra.ShellCompDirectiveFilterDirs
			})
		if err != nil {
			return fmt.Errorf("registering %s completion: %w", flag, err)
		}
	}

	err = cmd.RegisterFlagCompletionFunc(c.Flags.Workers, cobra.NoFileCompletions)
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.Workers, err)
	}

	return nil
}

// Load reads the configuration file, builds the schema and extension
// table, and applies flag overrides.
func (c *Config) Load() (*Settings, error) {
	data, err := os.ReadFile(c.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadInput, err)
	}

	fc, err := ParseFileConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.ConfigFile, err)
	}

	return c.Settings(fc)
}

// Settings builds [Settings] from an already parsed file, applying flag
// overrides.
func (c *Config) Settings(fc *FileConfig) (*Settings, error) {
	schema, err := SchemaFromMapSlice(fc.Annotations)
	if err != nil {
		return nil, err
	}

	table, err := c.Registry.Table(fc.Extensions)
	if err != nil {
		return nil, err
	}

	s := &Settings{
		Schema:         schema,
		Extensions:     table,
		SourcePath:     firstNonEmpty(c.SourcePath, fc.SourcePath, DefaultSourcePath),
		ReportPath:     firstNonEmpty(c.ReportPath, fc.ReportPath, DefaultReportPath),
		SafelistPath:   fc.SafelistPath,
		CoverageTarget: fc.CoverageTarget,
		Workers:        c.Workers,
	}

	return s, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
