// Package config loads and validates benchunit run configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Report formats accepted by report_format.
var ReportFormats = []string{"markdown", "table", "json", "csv", "scsv"}

// Config controls which points a run verifies and how.
type Config struct {
	Include      []string            `yaml:"include"`
	Exclude      []string            `yaml:"exclude"`
	Params       map[string][]string `yaml:"params"`
	Forks        int                 `yaml:"forks" validate:"gte=0"`
	Threads      int                 `yaml:"threads" validate:"gte=1"`
	Invocations  int                 `yaml:"invocations" validate:"gte=1"`
	InProcess    bool                `yaml:"in_process"`
	Parallel     int                 `yaml:"parallel" validate:"gte=1"`
	ReportFormat string              `yaml:"report_format" validate:"omitempty,oneof=markdown table json csv scsv"`
	ReportFile   string              `yaml:"report_file"`
	Timeout      time.Duration       `yaml:"timeout" validate:"gte=0"`
}

// Default returns the configuration used when no file is given.
// Forks is 0, meaning each unit's declared fork count applies.
func Default() Config {
	return Config{
		Threads:     1,
		Invocations: 2,
		Parallel:    1,
		Timeout:     10 * time.Minute,
	}
}

// Load reads a YAML file on top of Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Parse decodes YAML on top of Default. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}

	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field and returns all problems joined.
func (c Config) Validate() error {
	var errs []error

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}

		for _, fe := range verrs {
			errs = append(errs, fieldError(fe))
		}
	}

	for _, p := range c.Include {
		if err := checkPattern("include", p); err != nil {
			errs = append(errs, err)
		}
	}

	for _, p := range c.Exclude {
		if err := checkPattern("exclude", p); err != nil {
			errs = append(errs, err)
		}
	}

	for name, values := range c.Params {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, fmt.Errorf(
				"invalid param name: '%s'. It must not be blank", name))

			continue
		}

		if len(values) == 0 {
			errs = append(errs, fmt.Errorf(
				"invalid param %s: at least one value is required", name))
		}
	}

	return errors.Join(errs...)
}

// IncludePatterns compiles Include. Call Validate first.
func (c Config) IncludePatterns() ([]*regexp.Regexp, error) {
	return compile(c.Include)
}

// ExcludePatterns compiles Exclude. Call Validate first.
func (c Config) ExcludePatterns() ([]*regexp.Regexp, error) {
	return compile(c.Exclude)
}

func compile(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))

	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", p, err)
		}

		out = append(out, re)
	}

	return out, nil
}

func checkPattern(kind, p string) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("invalid %s pattern: '%s'. Pattern must not be blank", kind, p)
	}

	if _, err := regexp.Compile(p); err != nil {
		return fmt.Errorf("invalid %s pattern: '%s': %w", kind, p, err)
	}

	return nil
}

func fieldError(fe validator.FieldError) error {
	name := yamlName(fe.StructField())

	switch fe.Tag() {
	case "oneof":
		return fmt.Errorf("invalid %s: '%v'. Accepted values: %s",
			name, fe.Value(), strings.Join(ReportFormats, ", "))
	case "gte":
		if fe.Param() == "1" {
			return fmt.Errorf("invalid %s: '%v'. Expected a positive integer", name, fe.Value())
		}

		return fmt.Errorf("invalid %s: '%v'. Expected a non-negative value", name, fe.Value())
	default:
		return fmt.Errorf("invalid %s: '%v' failed %s", name, fe.Value(), fe.Tag())
	}
}

func yamlName(field string) string {
	switch field {
	case "ReportFormat":
		return "report_format"
	case "ReportFile":
		return "report_file"
	case "InProcess":
		return "in_process"
	default:
		return strings.ToLower(field)
	}
}
