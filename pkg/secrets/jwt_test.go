package secrets

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netra-io/netra-config/pkg/config"
	"github.com/netra-io/netra-config/pkg/env"
)

const strongSecret = "a-sufficiently-long-signing-secret-0123456789"

func newTestSecretManager(t *testing.T, environment config.Environment, vars map[string]string, opts *ManagerOptions) (*Manager, *env.Isolated) {
	t.Helper()

	accessor := env.NewIsolated(nil)
	for k, v := range vars {
		accessor.Set(k, v)
	}
	return NewManager(accessor, environment, opts), accessor
}

func TestDerivedSecret_Properties(t *testing.T) {
	derived := DerivedSecret(config.Development)

	assert.GreaterOrEqual(t, len(derived), MinSecretLength)
	assert.Equal(t, derived, DerivedSecret(config.Development), "derived secret must be stable")
	assert.NotEqual(t, derived, DerivedSecret(config.Testing), "derived secrets differ per environment")
}

func TestResolve_PrecedenceOrder(t *testing.T) {
	envSpecific := strongSecret + "-staging"
	shared := strongSecret + "-shared"
	legacy := strongSecret + "-legacy"

	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{
			name: "environment-specific wins",
			vars: map[string]string{
				"JWT_SECRET_STAGING": envSpecific,
				"JWT_SECRET_KEY":     shared,
				"JWT_SECRET":         legacy,
			},
			want: envSpecific,
		},
		{
			name: "shared key beats legacy",
			vars: map[string]string{
				"JWT_SECRET_KEY": shared,
				"JWT_SECRET":     legacy,
			},
			want: shared,
		},
		{
			name: "legacy as last resort",
			vars: map[string]string{
				"JWT_SECRET": legacy,
			},
			want: legacy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager, _ := newTestSecretManager(t, config.Staging, tt.vars, nil)

			got, err := manager.Resolve(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_SkipsUnacceptableCandidates(t *testing.T) {
	manager, _ := newTestSecretManager(t, config.Staging, map[string]string{
		"JWT_SECRET_STAGING": "too-short",
		"JWT_SECRET_KEY":     strongSecret,
	}, nil)

	got, err := manager.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, strongSecret, got)
}

func TestResolve_ShortSecretRejectedEverywhere(t *testing.T) {
	short := strings.Repeat("x", MinSecretLength-1)

	for _, environment := range config.Environments {
		t.Run(string(environment), func(t *testing.T) {
			manager, _ := newTestSecretManager(t, environment, map[string]string{
				"JWT_SECRET": short,
			}, nil)

			got, err := manager.Resolve(context.Background())
			if environment.IsLenient() {
				// The short value is skipped; the derived fallback applies.
				require.NoError(t, err)
				assert.Equal(t, DerivedSecret(environment), got)
			} else {
				require.Error(t, err)
			}
			assert.NotEqual(t, short, got)
		})
	}
}

func TestResolve_DenylistedSecrets(t *testing.T) {
	for _, value := range []string{
		"emergency-signing-secret-padded-to-length-000",
		"staging-fallback-secret-padded-to-length-0000",
		"changeme-changeme-changeme-changeme-changeme",
	} {
		manager, _ := newTestSecretManager(t, config.Production, map[string]string{
			"JWT_SECRET_PRODUCTION": value,
		}, nil)

		_, err := manager.Resolve(context.Background())
		require.Error(t, err, "denylisted value %q must not resolve", value)
		assert.True(t, config.IsConfigurationError(err))
	}
}

func TestResolve_DerivedFallbackInLenientEnvironments(t *testing.T) {
	for _, environment := range []config.Environment{config.Development, config.Testing} {
		t.Run(string(environment), func(t *testing.T) {
			manager, _ := newTestSecretManager(t, environment, nil, nil)

			first, err := manager.Resolve(context.Background())
			require.NoError(t, err)
			assert.Equal(t, DerivedSecret(environment), first)
			assert.GreaterOrEqual(t, len(first), MinSecretLength)

			// Stable across repeated calls
			second, err := manager.Resolve(context.Background())
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}

func TestResolve_StrictFailureNamesVariable(t *testing.T) {
	manager, _ := newTestSecretManager(t, config.Staging, nil, nil)

	_, err := manager.Resolve(context.Background())
	require.Error(t, err)
	assert.True(t, config.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "JWT_SECRET_STAGING")
}

func TestResolve_DerivedSecretRejectedInStrictEnvironments(t *testing.T) {
	// A derived development secret leaking into staging config must not win.
	manager, _ := newTestSecretManager(t, config.Staging, map[string]string{
		"JWT_SECRET_STAGING": DerivedSecret(config.Development),
	}, nil)

	_, err := manager.Resolve(context.Background())
	require.Error(t, err)
}

func TestResolve_FreshAfterMutation(t *testing.T) {
	first := strongSecret + "-one"
	second := strongSecret + "-two"

	manager, accessor := newTestSecretManager(t, config.Staging, map[string]string{
		"JWT_SECRET_STAGING": first,
	}, nil)

	got, err := manager.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, got)

	accessor.Set("JWT_SECRET_STAGING", second)
	got, err = manager.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

type staticProvider struct {
	secret string
	err    error
	calls  int
}

func (p *staticProvider) FetchSecret(ctx context.Context, name string) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.secret, nil
}

func TestResolve_ProviderFallbackInStaging(t *testing.T) {
	provider := &staticProvider{secret: strongSecret + "-from-provider"}
	manager, _ := newTestSecretManager(t, config.Staging, nil, &ManagerOptions{Provider: provider})

	got, err := manager.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, provider.secret, got)
	assert.Equal(t, 1, provider.calls)
}

func TestResolve_ProviderNotConsultedWhenVariableQualifies(t *testing.T) {
	provider := &staticProvider{secret: strongSecret + "-from-provider"}
	manager, _ := newTestSecretManager(t, config.Staging, map[string]string{
		"JWT_SECRET_STAGING": strongSecret,
	}, &ManagerOptions{Provider: provider})

	got, err := manager.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, strongSecret, got)
	assert.Zero(t, provider.calls)
}

func TestResolve_ProviderSecretStillSubjectToPolicy(t *testing.T) {
	provider := &staticProvider{secret: "short"}
	manager, _ := newTestSecretManager(t, config.Production, nil, &ManagerOptions{Provider: provider})

	_, err := manager.Resolve(context.Background())
	require.Error(t, err)
}

func TestResolve_ProviderErrorSurfacesAsConfigError(t *testing.T) {
	provider := &staticProvider{err: fmt.Errorf("secret manager unreachable")}
	manager, _ := newTestSecretManager(t, config.Production, nil, &ManagerOptions{Provider: provider})

	_, err := manager.Resolve(context.Background())
	require.Error(t, err)
	assert.True(t, config.IsConfigurationError(err))
}

func TestAcceptable_SingleAuthority(t *testing.T) {
	// The resolver and the startup validator share one policy: whatever
	// Resolve hands out must itself be Acceptable.
	for _, environment := range config.Environments {
		vars := map[string]string{}
		if !environment.IsLenient() {
			vars["JWT_SECRET_"+environment.Suffix()] = strongSecret
		}
		manager, _ := newTestSecretManager(t, environment, vars, nil)

		secret, err := manager.Resolve(context.Background())
		require.NoError(t, err, "environment %s", environment)
		assert.NoError(t, manager.Acceptable(secret), "Resolve output must pass Acceptable in %s", environment)
	}
}

func TestValidate_ResolvesAndSigns(t *testing.T) {
	manager, _ := newTestSecretManager(t, config.Development, nil, nil)
	assert.NoError(t, manager.Validate(context.Background()))
}
