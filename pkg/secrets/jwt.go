package secrets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/netra-io/netra-config/pkg/config"
	"github.com/netra-io/netra-config/pkg/env"
	"github.com/netra-io/netra-config/pkg/observability"
)

// Environment variable names tried, in precedence order.
const (
	VarJWTSecretPrefix = "JWT_SECRET_" // JWT_SECRET_STAGING etc.
	VarJWTSecretKey    = "JWT_SECRET_KEY"
	VarJWTSecret       = "JWT_SECRET" // legacy
)

// MinSecretLength is the minimum acceptable secret length in every
// environment.
const MinSecretLength = 32

// derivationSeed is the stable input for derived development secrets.
// Not a secret: derived values exist only to unblock local iteration.
const derivationSeed = "netra_%s_jwt_key"

// denySubstrings flags known placeholder and incident-remediation values
// that must never sign production tokens.
var denySubstrings = []string{
	"emergency",
	"fallback",
	"changeme",
	"placeholder",
	"insecure",
	"test-secret",
	"dummy",
}

// ManagerOptions customizes a Manager. Any field may be left nil.
type ManagerOptions struct {
	// Provider is consulted in staging/production when no environment
	// variable qualifies, before resolution fails.
	Provider Provider
	Logger   *observability.Logger
	Metrics  *observability.Metrics
}

// Manager resolves the JWT signing secret for one deployment environment.
// It is the single authority on secret acceptability: Resolve and any
// startup validator both go through Acceptable, so they cannot disagree.
type Manager struct {
	env         env.Accessor
	environment config.Environment
	provider    Provider
	logger      *observability.Logger
	metrics     *observability.Metrics
}

// NewManager creates a secret resolver for the given environment.
func NewManager(accessor env.Accessor, environment config.Environment, opts *ManagerOptions) *Manager {
	if opts == nil {
		opts = &ManagerOptions{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	return &Manager{
		env:         accessor,
		environment: environment,
		provider:    opts.Provider,
		logger:      logger.WithField("environment", string(environment)),
		metrics:     opts.Metrics,
	}
}

// DerivedSecret returns the deterministic secret synthesized for lenient
// environments: hex(sha256("netra_<env>_jwt_key")). Stable across restarts,
// 64 characters, and recognizable so strict environments can reject it.
func DerivedSecret(environment config.Environment) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf(derivationSeed, environment)))
	return hex.EncodeToString(sum[:])
}

// Acceptable reports whether a secret may sign tokens in this manager's
// environment. This is the one place the policy lives.
func (m *Manager) Acceptable(secret string) error {
	if len(secret) < MinSecretLength {
		return config.NewConfigurationError("", "JWT secret shorter than %d characters", MinSecretLength)
	}

	lowered := strings.ToLower(secret)
	for _, deny := range denySubstrings {
		if strings.Contains(lowered, deny) {
			return config.NewConfigurationError("", "JWT secret matches known-insecure pattern %q", deny)
		}
	}

	if !m.environment.IsLenient() {
		for _, environment := range config.Environments {
			if secret == DerivedSecret(environment) {
				return config.NewConfigurationError("", "derived development secret not acceptable in %s", m.environment)
			}
		}
	}

	return nil
}

// chain returns the candidate variable names in precedence order.
func (m *Manager) chain() []string {
	return []string{
		VarJWTSecretPrefix + m.environment.Suffix(),
		VarJWTSecretKey,
		VarJWTSecret,
	}
}

// Resolve selects the JWT signing secret. The first present variable whose
// value passes Acceptable wins. When none qualifies: development and
// testing synthesize the deterministic derived secret; staging and
// production consult the external provider if configured, then fail naming
// the environment-specific variable.
func (m *Manager) Resolve(ctx context.Context) (string, error) {
	for _, name := range m.chain() {
		value, ok := m.env.Lookup(name)
		if !ok || value == "" {
			continue
		}
		if err := m.Acceptable(value); err != nil {
			m.logger.WithFields(map[string]interface{}{
				"variable": name,
				"reason":   err.Error(),
			}).Warn("JWT secret candidate rejected")
			m.metrics.RecordSecretResolution(sourceLabel(name, m.environment), "rejected")
			continue
		}
		m.metrics.RecordSecretResolution(sourceLabel(name, m.environment), "success")
		return value, nil
	}

	if m.environment.IsLenient() {
		m.logger.Info("no JWT secret configured, using deterministic derived secret")
		m.metrics.RecordSecretResolution("derived", "success")
		return DerivedSecret(m.environment), nil
	}

	if m.provider != nil {
		secret, err := m.provider.FetchSecret(ctx, "jwt-secret-"+string(m.environment))
		if err != nil {
			m.logger.WithError(err).Warn("secret provider lookup failed")
			m.metrics.RecordSecretResolution("provider", "error")
		} else if err := m.Acceptable(secret); err != nil {
			m.logger.WithError(err).Warn("secret provider returned unacceptable secret")
			m.metrics.RecordSecretResolution("provider", "rejected")
		} else {
			m.metrics.RecordSecretResolution("provider", "success")
			return secret, nil
		}
	}

	m.metrics.RecordSecretResolution("none", "error")
	variable := VarJWTSecretPrefix + m.environment.Suffix()
	return "", config.NewConfigurationError(variable, "no acceptable JWT secret configured for %s", m.environment)
}

// Validate resolves the secret and proves it can sign and verify a token.
// Startup validators call this instead of re-implementing the policy.
func (m *Manager) Validate(ctx context.Context) error {
	secret, err := m.Resolve(ctx)
	if err != nil {
		return err
	}
	return VerifySigningRoundTrip(secret)
}

func sourceLabel(variable string, environment config.Environment) string {
	switch variable {
	case VarJWTSecretPrefix + environment.Suffix():
		return "environment_specific"
	case VarJWTSecretKey:
		return "shared_key"
	case VarJWTSecret:
		return "legacy"
	default:
		return "unknown"
	}
}
