// Package config holds the process-wide parse defaults and the loader for
// configuration files.
//
// Files may be YAML (.yaml, .yml) or CUE (.cue). CUE files are unified with
// an embedded closed schema before decoding, so unknown fields fail in both
// formats. Every loaded configuration is checked with go-playground/validator.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/roach88/atemporal/internal/canon"
)

//go:embed schema.cue
var schemaCUE string

// DefaultCacheSize is the in-process memo bound when none is configured.
const DefaultCacheSize = 1024

// Config is the set of process-wide parse defaults.
type Config struct {
	// DefaultTimeZone applies when a call sets no zone. Empty means inputs
	// keep their embedded zone, or UTC.
	DefaultTimeZone string `yaml:"defaultTimeZone" validate:"omitempty,zone"`

	// DefaultCalendar applies when a call sets no calendar.
	DefaultCalendar string `yaml:"defaultCalendar" validate:"omitempty,calendar"`

	// Strict turns recoverable issues into validation failures.
	Strict bool `yaml:"strict"`

	// CacheSize bounds the in-process memo. Zero disables it.
	CacheSize int `yaml:"cacheSize" validate:"gte=0,lte=1000000"`

	// CacheTTL expires memo entries. Zero keeps them until evicted.
	CacheTTL time.Duration `yaml:"cacheTTL" validate:"gte=0"`

	// RetryOnFailure lets a failed parse fall through to the next-ranked
	// strategy.
	RetryOnFailure bool `yaml:"retryOnFailure"`

	// Database is the path of the persistent parse cache. Empty disables it.
	Database string `yaml:"database"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{CacheSize: DefaultCacheSize}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("zone", func(fl validator.FieldLevel) bool {
		return canon.ValidZone(fl.Field().String())
	})
	_ = v.RegisterValidation("calendar", func(fl validator.FieldLevel) bool {
		_, err := canon.ParseCalendar(fl.Field().String())
		return err == nil
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		return name
	})
	return v
}

// Validate checks every field and reports all failures together.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("config: %w", err)
	}
	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, &FieldError{Field: fe.Field(), Rule: fe.Tag(), Value: fe.Value()})
	}
	return errors.Join(errs...)
}

// FieldError describes one invalid configuration field.
type FieldError struct {
	Field string
	Rule  string
	Value any
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("config: %s: value %v fails %q", e.Field, e.Value, e.Rule)
}

// Load reads, decodes and validates the configuration file at path. Fields
// the file leaves out keep their Default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		cfg, err = decodeYAML(data)
	case ".cue":
		cfg, err = decodeCUE(path, data)
	default:
		return Config{}, fmt.Errorf("config: unsupported file extension %q", ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(data []byte) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	return cfg, nil
}

// decodeCUE unifies the file with #Config and decodes the concrete result.
// JSON is a YAML subset, so the exported value goes through decodeYAML.
func decodeCUE(path string, data []byte) (Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return Config{}, err
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Config{}, err
	}

	js, err := unified.MarshalJSON()
	if err != nil {
		return Config{}, err
	}
	return decodeYAML(js)
}
