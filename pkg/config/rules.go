package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/netra-io/netra-config/pkg/observability"
)

// PolicyRules captures the per-environment connection policy.
type PolicyRules struct {
	// RequireSSL requires an SSL mode on PostgreSQL URLs. Cloud SQL
	// Unix-socket paths are exempt because the proxy encrypts the link.
	RequireSSL bool `yaml:"require_ssl"`
	// AllowLocalhost permits localhost database hosts.
	AllowLocalhost bool `yaml:"allow_localhost"`
}

func defaultPolicyRules() map[Environment]PolicyRules {
	return map[Environment]PolicyRules{
		Development: {RequireSSL: false, AllowLocalhost: true},
		Testing:     {RequireSSL: false, AllowLocalhost: true},
		Staging:     {RequireSSL: true, AllowLocalhost: false},
		Production:  {RequireSSL: true, AllowLocalhost: false},
	}
}

// Rules holds the policy table. The built-in defaults can be overridden per
// environment from a YAML file, and reloaded while running.
type Rules struct {
	mu    sync.RWMutex
	rules map[Environment]PolicyRules
}

// DefaultRules returns the built-in policy table.
func DefaultRules() *Rules {
	return &Rules{rules: defaultPolicyRules()}
}

// For returns the policy for an environment. Unknown environments get the
// production policy, the strictest one.
func (r *Rules) For(environment Environment) PolicyRules {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rules, ok := r.rules[environment]; ok {
		return rules
	}
	return r.rules[Production]
}

// LoadFile merges per-environment overrides from a YAML file over the
// built-in defaults. The file maps environment names to policy fields:
//
//	staging:
//	  require_ssl: true
//	  allow_localhost: false
func (r *Rules) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read rules file: %w", err)
	}

	var overrides map[string]PolicyRules
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}

	merged := defaultPolicyRules()
	for name, rules := range overrides {
		environment, err := ParseEnvironment(name)
		if err != nil {
			return fmt.Errorf("invalid rules file %s: %w", path, err)
		}
		merged[environment] = rules
	}

	r.mu.Lock()
	r.rules = merged
	r.mu.Unlock()
	return nil
}

// RulesWatcher reloads a rules file whenever it changes on disk.
type RulesWatcher struct {
	rules   *Rules
	path    string
	watcher *fsnotify.Watcher
	logger  *observability.Logger
	metrics *observability.Metrics
	done    chan struct{}
}

// WatchRules loads the rules file and starts watching it for changes.
// The watch covers the containing directory because editors and config
// mounts replace the file instead of writing in place.
func WatchRules(rules *Rules, path string, logger *observability.Logger, metrics *observability.Metrics) (*RulesWatcher, error) {
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	if err := rules.LoadFile(path); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	w := &RulesWatcher{
		rules:   rules,
		path:    path,
		watcher: watcher,
		logger:  logger,
		metrics: metrics,
		done:    make(chan struct{}),
	}

	go w.run()
	return w, nil
}

func (w *RulesWatcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if err := w.rules.LoadFile(w.path); err != nil {
				w.logger.WithError(err).Warn("policy rules reload failed, keeping previous rules")
				w.metrics.RecordRulesReload("error")
				continue
			}
			w.logger.WithField("path", w.path).Info("policy rules reloaded")
			w.metrics.RecordRulesReload("success")

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("rules watcher error")

		case <-w.done:
			return
		}
	}
}

// Close stops watching.
func (w *RulesWatcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
