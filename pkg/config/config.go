// Package config provides hierarchical configuration management.
// Priority: defaults < system < user < project < .env < environment < flags
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	mferrors "github.com/mesflow/mesflow/pkg/errors"
	"github.com/mesflow/mesflow/pkg/events"
	"github.com/mesflow/mesflow/pkg/ingest"
	"github.com/mesflow/mesflow/pkg/ingest/sources"
	"github.com/mesflow/mesflow/pkg/jobcode"
	"github.com/mesflow/mesflow/pkg/logging"
	"github.com/mesflow/mesflow/pkg/numeric"
	"github.com/mesflow/mesflow/pkg/quality"
	"github.com/mesflow/mesflow/pkg/telemetry"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MESFLOW_"

// Config holds all mesflow configuration.
type Config struct {
	Version int `yaml:"version"`

	Input      InputConfig        `yaml:"input"`
	Columns    ingest.Schema      `yaml:"columns"`
	JobCode    JobCodeConfig      `yaml:"jobcode"`
	Numeric    NumericConfig      `yaml:"numeric"`
	Filter     quality.Thresholds `yaml:"filter"`
	Timestamps TimestampConfig    `yaml:"timestamps"`
	Routes     RoutesConfig       `yaml:"routes"`
	Logging    logging.Config     `yaml:"logging"`
	Telemetry  telemetry.Config   `yaml:"telemetry"`
	S3         sources.S3Config   `yaml:"s3"`
}

// InputConfig controls how the export file is read.
type InputConfig struct {
	// Delimiter forces the CSV separator; empty sniffs it.
	Delimiter string `yaml:"delimiter" validate:"omitempty,max=4"`
	// Sheet selects the XLSX worksheet; empty picks the first.
	Sheet string `yaml:"sheet"`
}

// JobCodeConfig controls job code decomposition.
type JobCodeConfig struct {
	Separator  string `yaml:"separator" validate:"required"`
	Unassigned string `yaml:"unassigned" validate:"required"`
	Unknown    string `yaml:"unknown" validate:"required"`
}

// NumericConfig selects the separator policy.
type NumericConfig struct {
	Policy numeric.Policy `yaml:"policy"`
}

// TimestampConfig controls timestamp parsing.
type TimestampConfig struct {
	// Timezone applies to timestamps without an offset (IANA name).
	Timezone string `yaml:"timezone" validate:"required"`
	// DateOrder is auto, dmy or mdy.
	DateOrder string `yaml:"date_order" validate:"omitempty,oneof=auto dmy mdy"`
}

// RoutesConfig describes the process definition used for gap checks.
type RoutesConfig struct {
	Expected []string `yaml:"expected,omitempty"`
}

// Default returns the default configuration.
func Default() *Config {
	d := jobcode.Default()
	return &Config{
		Version: 1,
		Columns: ingest.DefaultSchema(),
		JobCode: JobCodeConfig{
			Separator:  d.Separator,
			Unassigned: d.Unassigned,
			Unknown:    d.Unknown,
		},
		Numeric:    NumericConfig{Policy: numeric.PolicyAuto},
		Filter:     quality.DefaultThresholds(),
		Timestamps: TimestampConfig{Timezone: "UTC", DateOrder: string(events.DateOrderAuto)},
		Logging:    logging.DefaultConfig(),
		Telemetry:  telemetry.DefaultConfig(),
		S3:         sources.S3Config{DownloadTimeout: 5 * time.Minute},
	}
}

// Loader reads the configuration layers.
type Loader struct {
	// Paths are YAML files applied in order; missing files are skipped.
	Paths []string
	// EnvFiles are dotenv files; real environment variables win over them.
	EnvFiles []string
	// LookupEnv reads the environment; nil uses os.LookupEnv.
	LookupEnv func(string) (string, bool)

	explicit string
}

// NewLoader returns a Loader for the standard locations. explicit, when
// non-empty, is applied last and must exist.
func NewLoader(explicit string) *Loader {
	l := &Loader{EnvFiles: []string{".env"}}
	if runtime.GOOS != "windows" {
		l.Paths = append(l.Paths, "/etc/mesflow/config.yaml")
	}
	if home, err := os.UserHomeDir(); err == nil {
		l.Paths = append(l.Paths, filepath.Join(home, ".mesflow", "config.yaml"))
	}
	if cwd, err := os.Getwd(); err == nil {
		l.Paths = append(l.Paths, filepath.Join(cwd, ".mesflow.yaml"))
	}
	if explicit != "" {
		l.Paths = append(l.Paths, explicit)
		l.explicit = explicit
	}
	return l
}

// Load merges every layer over the defaults and validates the result. It
// returns the files that were applied.
func (l *Loader) Load() (*Config, []string, error) {
	cfg := Default()
	var loaded []string

	for _, path := range l.Paths {
		if err := loadFile(cfg, path); err != nil {
			if mferrors.IsCode(err, mferrors.CodeFileNotFound) && path != l.explicit {
				continue
			}
			return nil, loaded, err
		}
		loaded = append(loaded, path)
	}

	env, err := l.environment()
	if err != nil {
		return nil, loaded, err
	}
	if err := applyEnv(cfg, env); err != nil {
		return nil, loaded, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, loaded, err
	}
	return cfg, loaded, nil
}

// loadFile decodes path over cfg; keys absent from the file keep their
// current value.
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return mferrors.FileNotFound(path)
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return mferrors.InvalidConfig(path, err)
	}
	return nil
}

// environment returns a lookup over dotenv files and the process
// environment.
func (l *Loader) environment() (func(string) (string, bool), error) {
	dotenv := make(map[string]string)
	for _, f := range l.EnvFiles {
		vals, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, mferrors.InvalidConfig(f, err)
		}
		for k, v := range vals {
			dotenv[k] = v
		}
	}

	lookup := l.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}, nil
}

func applyEnv(cfg *Config, env func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := env(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *float64) error {
		v, ok := env(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return mferrors.InvalidConfig(EnvPrefix+name, err)
		}
		*dst = f
		return nil
	}

	str("DELIMITER", &cfg.Input.Delimiter)
	str("SHEET", &cfg.Input.Sheet)
	str("JOB_SEPARATOR", &cfg.JobCode.Separator)
	str("TIMEZONE", &cfg.Timestamps.Timezone)
	str("DATE_ORDER", &cfg.Timestamps.DateOrder)
	str("LOG_LEVEL", &cfg.Logging.Level)
	str("LOG_FORMAT", &cfg.Logging.Format)
	str("S3_REGION", &cfg.S3.Region)
	str("S3_ENDPOINT", &cfg.S3.Endpoint)

	if v, ok := env(EnvPrefix + "NUMERIC_POLICY"); ok && v != "" {
		p, err := numeric.ParsePolicy(v)
		if err != nil {
			return mferrors.InvalidConfig(EnvPrefix+"NUMERIC_POLICY", err)
		}
		cfg.Numeric.Policy = p
	}
	if err := num("MAX_RATE", &cfg.Filter.MaxPlausibleRate); err != nil {
		return err
	}
	if err := num("MIN_LENGTH", &cfg.Filter.MinLength); err != nil {
		return err
	}
	if v, ok := env(EnvPrefix + "EXPECTED_ROUTE"); ok && v != "" {
		cfg.Routes.Expected = SplitList(v)
	}
	if v, ok := env(EnvPrefix + "OTLP_ENDPOINT"); ok && v != "" {
		cfg.Telemetry.Enabled = true
		cfg.Telemetry.Endpoint = v
	}
	return nil
}

// SplitList splits a comma-separated list, trimming blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return mferrors.InvalidConfig(verrs[0].Namespace(), err)
		}
		return mferrors.InvalidConfig("config", err)
	}
	if _, err := c.Location(); err != nil {
		return mferrors.InvalidConfig("timestamps.timezone", err)
	}
	if _, err := c.DelimiterRune(); err != nil {
		return mferrors.InvalidConfig("input.delimiter", err)
	}
	return nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timestamps.Timezone)
}

// DelimiterRune returns the forced delimiter, or 0 to sniff. "tab" and
// "\t" name the tab character.
func (c *Config) DelimiterRune() (rune, error) {
	switch d := c.Input.Delimiter; d {
	case "":
		return 0, nil
	case "tab", `\t`:
		return '\t', nil
	default:
		if utf8.RuneCountInString(d) != 1 {
			return 0, fmt.Errorf("delimiter %q must be a single character", d)
		}
		r, _ := utf8.DecodeRuneInString(d)
		return r, nil
	}
}

// EventOptions builds the Event Model Builder options.
func (c *Config) EventOptions() (events.Options, error) {
	loc, err := c.Location()
	if err != nil {
		return events.Options{}, mferrors.InvalidConfig("timestamps.timezone", err)
	}
	order, err := events.ParseDateOrder(c.Timestamps.DateOrder)
	if err != nil {
		return events.Options{}, mferrors.InvalidConfig("timestamps.date_order", err)
	}
	return events.Options{
		Decomposer: jobcode.Decomposer{
			Separator:  c.JobCode.Separator,
			Unassigned: c.JobCode.Unassigned,
			Unknown:    c.JobCode.Unknown,
		},
		Numeric:    numeric.Normalizer{Policy: c.Numeric.Policy},
		Thresholds: c.Filter,
		DateOrder:  order,
		Location:   loc,
	}, nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
