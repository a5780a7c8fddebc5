package env

import (
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Accessor abstracts environment variable state so resolvers never touch
// os.Environ directly. Implementations must be safe for concurrent use.
type Accessor interface {
	// Lookup returns the value for key and whether it is present.
	Lookup(key string) (string, bool)

	// Set assigns key to value.
	Set(key, value string)

	// Unset removes key.
	Unset(key string)

	// Snapshot returns a copy of the current variable state.
	Snapshot() map[string]string

	// Generation returns a counter that increases on every mutation.
	// Callers use it to invalidate anything derived from a prior state.
	Generation() uint64
}

// processAccessor reads and writes the real process environment.
type processAccessor struct {
	generation atomic.Uint64
}

var process = &processAccessor{}

// Process returns the accessor backed by the real process environment.
// All binaries share the same instance.
func Process() Accessor {
	return process
}

func (p *processAccessor) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

func (p *processAccessor) Set(key, value string) {
	os.Setenv(key, value)
	p.generation.Add(1)
}

func (p *processAccessor) Unset(key string) {
	os.Unsetenv(key)
	p.generation.Add(1)
}

func (p *processAccessor) Snapshot() map[string]string {
	environ := os.Environ()
	snapshot := make(map[string]string, len(environ))
	for _, kv := range environ {
		if idx := strings.IndexByte(kv, '='); idx >= 0 {
			snapshot[kv[:idx]] = kv[idx+1:]
		}
	}
	return snapshot
}

func (p *processAccessor) Generation() uint64 {
	return p.generation.Load()
}

// Isolated is an in-memory accessor with optional fallthrough to a parent.
// Tests use it to sandbox variable state without monkeypatching the process
// environment, so parallel tests cannot interfere with each other.
type Isolated struct {
	mu         sync.RWMutex
	values     map[string]string
	deleted    map[string]struct{}
	parent     Accessor
	generation atomic.Uint64
}

// NewIsolated creates an empty isolated accessor. If parent is non-nil,
// lookups fall through to it for keys not set or unset locally.
func NewIsolated(parent Accessor) *Isolated {
	return &Isolated{
		values:  make(map[string]string),
		deleted: make(map[string]struct{}),
		parent:  parent,
	}
}

func (e *Isolated) Lookup(key string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if value, ok := e.values[key]; ok {
		return value, true
	}
	if _, ok := e.deleted[key]; ok {
		return "", false
	}
	if e.parent != nil {
		return e.parent.Lookup(key)
	}
	return "", false
}

func (e *Isolated) Set(key, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.values[key] = value
	delete(e.deleted, key)
	e.generation.Add(1)
}

func (e *Isolated) Unset(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.values, key)
	e.deleted[key] = struct{}{}
	e.generation.Add(1)
}

func (e *Isolated) Snapshot() map[string]string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snapshot := make(map[string]string)
	if e.parent != nil {
		for k, v := range e.parent.Snapshot() {
			snapshot[k] = v
		}
	}
	for k := range e.deleted {
		delete(snapshot, k)
	}
	for k, v := range e.values {
		snapshot[k] = v
	}
	return snapshot
}

func (e *Isolated) Generation() uint64 {
	gen := e.generation.Load()
	if e.parent != nil {
		gen += e.parent.Generation()
	}
	return gen
}

// Scope captures the accessor's local state so it can be restored later.
type Scope struct {
	id           string
	env          *Isolated
	savedValues  map[string]string
	savedDeleted map[string]struct{}
	exited       bool
}

// EnterScope saves the current local overrides. Mutations made after
// EnterScope are discarded when the scope exits.
func (e *Isolated) EnterScope() *Scope {
	e.mu.Lock()
	defer e.mu.Unlock()

	savedValues := make(map[string]string, len(e.values))
	for k, v := range e.values {
		savedValues[k] = v
	}
	savedDeleted := make(map[string]struct{}, len(e.deleted))
	for k := range e.deleted {
		savedDeleted[k] = struct{}{}
	}

	return &Scope{
		id:           uuid.New().String(),
		env:          e,
		savedValues:  savedValues,
		savedDeleted: savedDeleted,
	}
}

// ID returns the scope's unique identifier, useful in test failure output.
func (s *Scope) ID() string {
	return s.id
}

// Exit restores the state captured by EnterScope. Exiting twice is a no-op.
func (s *Scope) Exit() {
	s.env.mu.Lock()
	defer s.env.mu.Unlock()

	if s.exited {
		return
	}
	s.exited = true

	s.env.values = s.savedValues
	s.env.deleted = s.savedDeleted
	s.env.generation.Add(1)
}
