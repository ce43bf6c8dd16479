// Package config loads the settings of the deppy-fd command line.
//
// Values come from DEPPY_FD_* environment variables (with defaults), are
// then overridden by an optional YAML file, and are finally validated.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/operator-framework/deppy-fd/pkg/cp/search"
)

type Config struct {
	Search    SearchConfig    `yaml:"search"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// SearchConfig tunes the search loop. Empty selectors leave the choice to
// the command.
type SearchConfig struct {
	VarSelector   string        `yaml:"varSelector"   env:"DEPPY_FD_SEARCH_VAR_SELECTOR"                     validate:"omitempty,oneof=input firstfail"`
	ValueSelector string        `yaml:"valueSelector" env:"DEPPY_FD_SEARCH_VALUE_SELECTOR"                   validate:"omitempty,oneof=min max mid"`
	SolutionLimit int64         `yaml:"solutionLimit" env:"DEPPY_FD_SEARCH_SOLUTION_LIMIT" envDefault:"0"    validate:"gte=0"`
	NodeLimit     int64         `yaml:"nodeLimit"     env:"DEPPY_FD_SEARCH_NODE_LIMIT"     envDefault:"0"    validate:"gte=0"`
	FailLimit     int64         `yaml:"failLimit"     env:"DEPPY_FD_SEARCH_FAIL_LIMIT"     envDefault:"0"    validate:"gte=0"`
	TimeLimit     time.Duration `yaml:"timeLimit"     env:"DEPPY_FD_SEARCH_TIME_LIMIT"     envDefault:"0s"   validate:"gte=0"`
}

type LogConfig struct {
	// Verbosity is the highest logr V-level that is printed.
	Verbosity int    `yaml:"verbosity" env:"DEPPY_FD_LOG_VERBOSITY" envDefault:"0"    validate:"gte=0,lte=4"`
	Format    string `yaml:"format"    env:"DEPPY_FD_LOG_FORMAT"    envDefault:"text" validate:"oneof=text json"`
}

type TelemetryConfig struct {
	Trace      bool   `yaml:"trace"   env:"DEPPY_FD_TRACE"`
	Metrics    bool   `yaml:"metrics" env:"DEPPY_FD_METRICS"`
	// SATBackend selects the oracle used by solve --verify.
	SATBackend string `yaml:"satBackend" env:"DEPPY_FD_SAT_BACKEND" envDefault:"gini" validate:"oneof=gini gophersat"`
}

var validate = validator.New()

// Load returns the configuration read from the environment and, when path
// is not empty, from the YAML file at path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every field that violates its constraint.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return err
	}
	errs := make([]error, len(fields))
	for i, f := range fields {
		errs[i] = fmt.Errorf("invalid %s: %v fails %s", f.Namespace(), f.Value(), f.Tag())
	}
	return errors.Join(errs...)
}

// Options converts the search settings into search options.
func (c SearchConfig) Options() []search.Option {
	opts := []search.Option{
		search.WithSolutionLimit(c.SolutionLimit),
		search.WithNodeLimit(c.NodeLimit),
		search.WithFailLimit(c.FailLimit),
		search.WithTimeLimit(c.TimeLimit),
	}
	switch c.VarSelector {
	case "input":
		opts = append(opts, search.WithVarSelector(search.InputOrder))
	case "firstfail":
		opts = append(opts, search.WithVarSelector(search.FirstFail))
	}
	switch c.ValueSelector {
	case "min":
		opts = append(opts, search.WithValueSelector(search.Min))
	case "max":
		opts = append(opts, search.WithValueSelector(search.Max))
	case "mid":
		opts = append(opts, search.WithValueSelector(search.Mid))
	}
	return opts
}
