// Package config layers the engine settings: built-in defaults, environment
// (optionally read from .env files) and a YAML project file.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable the engine reads.
const EnvPrefix = "PDFANNOTATOR_"

// Config holds all configurable settings.
type Config struct {
	Author string `yaml:"author"`

	// Addr is the listen address of the HTTP server.
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	// RecordsPath is the JSON or YAML file records persist to. DatabaseURL,
	// when set, selects the Postgres repository instead.
	RecordsPath string `yaml:"records_path"`
	DatabaseURL string `yaml:"database_url"`

	ImageDPI      int     `yaml:"image_dpi"`
	DebounceMS    int     `yaml:"debounce_ms"`
	PointerLength float64 `yaml:"pointer_length"`
	PointerWidth  float64 `yaml:"pointer_width"`

	// DefaultSignature and DefaultStamp are image files used when a
	// signature or stamp tool is activated without a payload.
	DefaultSignature string `yaml:"default_signature"`
	DefaultStamp     string `yaml:"default_stamp"`

	LogLevel string `yaml:"log_level"`
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	return Config{
		Author:         "unknown",
		Addr:           ":8080",
		AllowedOrigins: []string{"*"},
		RecordsPath:    "annotations.json",
		ImageDPI:       120,
		DebounceMS:     100,
		PointerLength:  10,
		PointerWidth:   10,
		LogLevel:       "info",
	}
}

// LoadFile reads a YAML config file. Returns nil (no error) if the file is
// absent.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// LoadEnv reads PDFANNOTATOR_* variables from the process environment,
// falling back to the given .env files. Missing files are skipped.
func LoadEnv(files ...string) (*Config, error) {
	vars := map[string]string{}
	for _, f := range files {
		m, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, &ParseError{Path: f, Err: err}
		}
		for k, v := range m {
			vars[k] = v
		}
	}
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			return v
		}
		return vars[EnvPrefix+key]
	}

	cfg := &Config{
		Author:           lookup("AUTHOR"),
		Addr:             lookup("ADDR"),
		RecordsPath:      lookup("RECORDS_PATH"),
		DatabaseURL:      lookup("DATABASE_URL"),
		DefaultSignature: lookup("DEFAULT_SIGNATURE"),
		DefaultStamp:     lookup("DEFAULT_STAMP"),
		LogLevel:         lookup("LOG_LEVEL"),
	}
	if origins := lookup("ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	var err error
	if cfg.ImageDPI, err = atoi(lookup("IMAGE_DPI")); err != nil {
		return nil, errors.Wrap(err, EnvPrefix+"IMAGE_DPI")
	}
	if cfg.DebounceMS, err = atoi(lookup("DEBOUNCE_MS")); err != nil {
		return nil, errors.Wrap(err, EnvPrefix+"DEBOUNCE_MS")
	}
	if cfg.PointerLength, err = atof(lookup("POINTER_LENGTH")); err != nil {
		return nil, errors.Wrap(err, EnvPrefix+"POINTER_LENGTH")
	}
	if cfg.PointerWidth, err = atof(lookup("POINTER_WIDTH")); err != nil {
		return nil, errors.Wrap(err, EnvPrefix+"POINTER_WIDTH")
	}
	return cfg, nil
}

func atoi(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func atof(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// Load merges the environment and the project file at path over the
// defaults, project taking precedence.
func Load(path string, envFiles ...string) (Config, error) {
	env, err := LoadEnv(envFiles...)
	if err != nil {
		return Config{}, err
	}
	project, err := LoadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Merge(env, project), nil
}

// Merge combines env and project configs, with project taking precedence.
// Missing keys fall back to env, then defaults.
func Merge(env, project *Config) Config {
	result := Defaults()
	for _, layer := range []*Config{env, project} {
		if layer != nil {
			result.apply(layer)
		}
	}
	return result
}

func (c *Config) apply(o *Config) {
	if o.Author != "" {
		c.Author = o.Author
	}
	if o.Addr != "" {
		c.Addr = o.Addr
	}
	if len(o.AllowedOrigins) > 0 {
		c.AllowedOrigins = o.AllowedOrigins
	}
	if o.RecordsPath != "" {
		c.RecordsPath = o.RecordsPath
	}
	if o.DatabaseURL != "" {
		c.DatabaseURL = o.DatabaseURL
	}
	if o.ImageDPI > 0 {
		c.ImageDPI = o.ImageDPI
	}
	if o.DebounceMS > 0 {
		c.DebounceMS = o.DebounceMS
	}
	if o.PointerLength > 0 {
		c.PointerLength = o.PointerLength
	}
	if o.PointerWidth > 0 {
		c.PointerWidth = o.PointerWidth
	}
	if o.DefaultSignature != "" {
		c.DefaultSignature = o.DefaultSignature
	}
	if o.DefaultStamp != "" {
		c.DefaultStamp = o.DefaultStamp
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
