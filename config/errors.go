package config

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched by errors.Is on every ConfigError.
var (
	ErrMissing = errors.New("missing configuration value")
	ErrInvalid = errors.New("invalid configuration value")
)

// ConfigError names the offending key and tells the operator how to fix it.
//
//nolint:revive // config.ConfigError reads better at call sites than config.Error
type ConfigError struct {
	Field  string // dotted key, e.g. "cache.redis.host"
	Reason string
	Hint   string
	kind   error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("config: ")
	b.WriteString(e.Field)
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Hint != "" {
		b.WriteString(" (")
		b.WriteString(e.Hint)
		b.WriteString(")")
	}
	return b.String()
}

// Unwrap returns ErrMissing or ErrInvalid.
func (e *ConfigError) Unwrap() error { return e.kind }

// NewMissingFieldError reports a required key without a value, naming both the
// environment variable and the YAML path that can supply it.
func NewMissingFieldError(field, envVar, yamlPath string) *ConfigError {
	return &ConfigError{
		Field:  field,
		Reason: "required",
		Hint:   fmt.Sprintf("set %s or %s in config.yaml", envVar, yamlPath),
		kind:   ErrMissing,
	}
}

// NewInvalidFieldError reports an out-of-range or unknown value.
func NewInvalidFieldError(field, reason string, validOptions []string) *ConfigError {
	err := &ConfigError{Field: field, Reason: reason, kind: ErrInvalid}
	if len(validOptions) > 0 {
		err.Hint = "one of: " + strings.Join(validOptions, ", ")
	}
	return err
}
