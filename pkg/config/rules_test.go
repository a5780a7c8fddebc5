package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRules(t *testing.T) {
	rules := DefaultRules()

	tests := []struct {
		environment    Environment
		requireSSL     bool
		allowLocalhost bool
	}{
		{Development, false, true},
		{Testing, false, true},
		{Staging, true, false},
		{Production, true, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.environment), func(t *testing.T) {
			got := rules.For(tt.environment)
			assert.Equal(t, tt.requireSSL, got.RequireSSL)
			assert.Equal(t, tt.allowLocalhost, got.AllowLocalhost)
		})
	}
}

func TestRules_UnknownEnvironmentGetsStrictest(t *testing.T) {
	got := DefaultRules().For(Environment("unknown"))
	assert.True(t, got.RequireSSL)
	assert.False(t, got.AllowLocalhost)
}

func TestRules_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"staging:\n  require_ssl: false\n  allow_localhost: true\n",
	), 0644))

	rules := DefaultRules()
	require.NoError(t, rules.LoadFile(path))

	// Overridden environment
	staging := rules.For(Staging)
	assert.False(t, staging.RequireSSL)
	assert.True(t, staging.AllowLocalhost)

	// Untouched environments keep defaults
	production := rules.For(Production)
	assert.True(t, production.RequireSSL)
}

func TestRules_LoadFileErrors(t *testing.T) {
	rules := DefaultRules()

	t.Run("missing file", func(t *testing.T) {
		assert.Error(t, rules.LoadFile(filepath.Join(t.TempDir(), "absent.yaml")))
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		require.NoError(t, os.WriteFile(path, []byte("staging: [not a mapping"), 0644))
		assert.Error(t, rules.LoadFile(path))
	})

	t.Run("unknown environment name", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		require.NoError(t, os.WriteFile(path, []byte("prod:\n  require_ssl: true\n"), 0644))
		assert.Error(t, rules.LoadFile(path))
	})

	t.Run("failed load keeps previous rules", func(t *testing.T) {
		fresh := DefaultRules()
		path := filepath.Join(t.TempDir(), "rules.yaml")
		require.NoError(t, os.WriteFile(path, []byte("bogus: {}"), 0644))
		require.Error(t, fresh.LoadFile(path))
		assert.True(t, fresh.For(Staging).RequireSSL)
	})
}

func TestWatchRules_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"staging:\n  require_ssl: true\n  allow_localhost: false\n",
	), 0644))

	rules := DefaultRules()
	watcher, err := WatchRules(rules, path, nil, nil)
	require.NoError(t, err)
	defer watcher.Close()

	assert.True(t, rules.For(Staging).RequireSSL)

	require.NoError(t, os.WriteFile(path, []byte(
		"staging:\n  require_ssl: false\n  allow_localhost: true\n",
	), 0644))

	// Reload is asynchronous; poll briefly.
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if !rules.For(Staging).RequireSSL {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("rules were not reloaded after file change")
}

func TestWatchRules_MissingFile(t *testing.T) {
	_, err := WatchRules(DefaultRules(), filepath.Join(t.TempDir(), "absent.yaml"), nil, nil)
	assert.Error(t, err)
}
