// Package env provides an injectable accessor over environment variable state.
//
// # Overview
//
// Configuration resolvers read variables through an Accessor instead of
// os.Getenv so that tests can sandbox variable state. Two implementations
// are provided:
//
//   - Process(): backed by the real process environment.
//   - NewIsolated(parent): an in-memory overlay with scoped push/pop
//     semantics for test isolation.
//
// # Usage Example
//
// Production code reads through the process accessor:
//
//	accessor := env.Process()
//	host := env.GetDefault(accessor, "POSTGRES_HOST", "localhost")
//
// Tests sandbox their mutations:
//
//	accessor := env.NewIsolated(nil)
//	scope := accessor.EnterScope()
//	defer scope.Exit()
//	accessor.Set("POSTGRES_HOST", "test-db")
//
// # Related Packages
//
//   - pkg/config: resolves database configuration through an Accessor
//   - pkg/secrets: resolves JWT secrets through an Accessor
package env
