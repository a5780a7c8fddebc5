package config

import (
	"errors"
	"fmt"
)

// ConfigurationError is the single error kind surfaced by resolvers.
// Missing required variables, malformed values, and policy violations all
// use it; the message distinguishes them.
type ConfigurationError struct {
	// Variable is the environment variable at fault, when one can be named.
	Variable string
	// Reason is a human-readable description of what is wrong.
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Variable != "" {
		return fmt.Sprintf("configuration error: %s (%s)", e.Reason, e.Variable)
	}
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// NewConfigurationError builds a ConfigurationError with a formatted reason.
// Sibling resolvers (pkg/secrets) use it so every misconfiguration surfaces
// as the same kind.
func NewConfigurationError(variable, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{
		Variable: variable,
		Reason:   fmt.Sprintf(format, args...),
	}
}

func newConfigError(variable, format string, args ...interface{}) *ConfigurationError {
	return NewConfigurationError(variable, format, args...)
}

// IsConfigurationError reports whether err is (or wraps) a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
