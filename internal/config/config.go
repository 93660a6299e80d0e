package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/solarstat-cli/internal/table"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SOLARSTAT"

// Global configuration structure.
type Global struct {
	// Column roles
	TimestampColumn     string            `mapstructure:"timestamp_column" yaml:"timestamp_column" validate:"required"`
	WindDirectionColumn string            `mapstructure:"wind_direction_column" yaml:"wind_direction_column" validate:"required"`
	WindSpeedColumn     string            `mapstructure:"wind_speed_column" yaml:"wind_speed_column" validate:"required"`
	Variables           []string          `mapstructure:"variables" yaml:"variables"`
	CriticalColumns     []string          `mapstructure:"critical_columns" yaml:"critical_columns"`
	ClampColumns        []string          `mapstructure:"clamp_columns" yaml:"clamp_columns"`
	ExpectedTypes       []string          `mapstructure:"expected_types" yaml:"expected_types" validate:"dive,contains=="`

	// Analysis
	ZThreshold float64 `mapstructure:"z_threshold" yaml:"z_threshold" validate:"gt=0"`
	Delimiter  string  `mapstructure:"delimiter" yaml:"delimiter"`
	MaxRows    int     `mapstructure:"max_rows" yaml:"max_rows" validate:"gte=0"`
	SampleRows int     `mapstructure:"sample_rows" yaml:"sample_rows" validate:"gte=0"`

	// Runtime
	LogLevel      string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat     string `mapstructure:"log_format" yaml:"log_format" validate:"oneof=text json"`
	MetricsAddr   string `mapstructure:"metrics_addr" yaml:"metrics_addr" validate:"omitempty,hostname_port|startswith=:"`
	WatchSchedule string `mapstructure:"watch_schedule" yaml:"watch_schedule"`
	OutputDir     string `mapstructure:"output_dir" yaml:"output_dir"`
}

// Keys lists every configuration key in display order.
var Keys = []string{
	"timestamp_column", "wind_direction_column", "wind_speed_column", "variables",
	"critical_columns", "clamp_columns", "expected_types",
	"z_threshold", "delimiter", "max_rows", "sample_rows",
	"log_level", "log_format", "metrics_addr", "watch_schedule", "output_dir",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("timestamp_column", "Timestamp")
	v.SetDefault("wind_direction_column", "WD")
	v.SetDefault("wind_speed_column", "WS")
	v.SetDefault("variables", []string{"GHI", "DNI", "DHI", "Tamb"})
	v.SetDefault("critical_columns", []string{})
	v.SetDefault("clamp_columns", []string{"GHI", "DNI", "DHI"})
	v.SetDefault("expected_types", []string{})
	v.SetDefault("z_threshold", 3.0)
	v.SetDefault("delimiter", "")
	v.SetDefault("max_rows", 0)
	v.SetDefault("sample_rows", 5)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("metrics_addr", ":9464")
	v.SetDefault("watch_schedule", "")
	v.SetDefault("output_dir", "")
}

// DefaultPath returns ~/.solarstat/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".solarstat", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.solarstat/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
// A .env file in the working directory is read first when present; it never
// overrides variables that are already set.
func Load(cfgFile string) (*Global, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, ".solarstat"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	return decode(v)
}

// Defaults returns the built-in configuration, ignoring files and environment.
func Defaults() (*Global, error) {
	v := viper.New()
	setDefaults(v)
	return decode(v)
}

func decode(v *viper.Viper) (*Global, error) {
	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.Variables = splitList(c.Variables)
	c.CriticalColumns = splitList(c.CriticalColumns)
	c.ClampColumns = splitList(c.ClampColumns)
	c.ExpectedTypes = splitList(c.ExpectedTypes)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// splitList expands comma-separated entries, which is how list values arrive
// from environment variables.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and that every expected type names a
// known kind.
func (c *Global) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s fails %q (value %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Schema(); err != nil {
		return fmt.Errorf("invalid config: expected_types: %w", err)
	}
	if _, err := ParseDelimiter(c.Delimiter); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Schema parses ExpectedTypes, ordering the timestamp column first and then
// the configured variables.
func (c *Global) Schema() (table.Schema, error) {
	types, err := ParseTypes(c.ExpectedTypes)
	if err != nil {
		return nil, err
	}
	order := append([]string{c.TimestampColumn}, c.Variables...)
	return table.ParseSchema(types, order)
}

// ParseTypes turns "column=kind" entries into a map. Column names keep their
// case.
func ParseTypes(specs []string) (map[string]string, error) {
	out := make(map[string]string, len(specs))
	for _, spec := range specs {
		name, kind, ok := strings.Cut(spec, "=")
		name, kind = strings.TrimSpace(name), strings.TrimSpace(kind)
		if !ok || name == "" || kind == "" {
			return nil, fmt.Errorf("type spec %q: want column=kind", spec)
		}
		out[name] = kind
	}
	return out, nil
}

// ParseDelimiter turns a configured delimiter into a rune. Empty means sniff
// (0); "\t" and "tab" both mean a tab.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case `\t`, "tab":
		return '\t', nil
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, fmt.Errorf("delimiter %q must be a single character", s)
	}
	return r[0], nil
}

// DelimiterRune returns the configured delimiter, or 0 to sniff it.
func (c *Global) DelimiterRune() rune {
	r, _ := ParseDelimiter(c.Delimiter)
	return r
}
