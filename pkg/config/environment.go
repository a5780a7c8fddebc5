package config

import (
	"fmt"
	"strings"

	"github.com/netra-io/netra-config/pkg/env"
)

// Environment names a deployment environment.
type Environment string

const (
	Development Environment = "development"
	Testing     Environment = "testing"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Environments lists every known deployment environment.
var Environments = []Environment{Development, Testing, Staging, Production}

// ParseEnvironment validates an environment name.
func ParseEnvironment(name string) (Environment, error) {
	switch Environment(strings.ToLower(strings.TrimSpace(name))) {
	case Development:
		return Development, nil
	case Testing:
		return Testing, nil
	case Staging:
		return Staging, nil
	case Production:
		return Production, nil
	default:
		return "", fmt.Errorf("unknown environment %q (must be development, testing, staging, or production)", name)
	}
}

// CurrentEnvironment reads ENVIRONMENT through the accessor,
// defaulting to development.
func CurrentEnvironment(a env.Accessor) Environment {
	parsed, err := ParseEnvironment(env.GetDefault(a, "ENVIRONMENT", string(Development)))
	if err != nil {
		return Development
	}
	return parsed
}

// IsLenient reports whether missing configuration is tolerated. Development
// and testing default or return empty; staging and production fail fast.
func (e Environment) IsLenient() bool {
	return e == Development || e == Testing
}

// Suffix returns the environment name in the form used for suffixed
// variable lookups such as JWT_SECRET_STAGING.
func (e Environment) Suffix() string {
	return strings.ToUpper(string(e))
}

func (e Environment) String() string {
	return string(e)
}
