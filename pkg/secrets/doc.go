// Package secrets selects the JWT signing secret for a deployment
// environment.
//
// # Precedence
//
// For environment E the chain is JWT_SECRET_<E>, then JWT_SECRET_KEY, then
// the legacy JWT_SECRET. The first present value that passes the
// acceptability policy wins. Values shorter than 32 characters or matching
// known placeholder patterns are rejected everywhere.
//
// When nothing qualifies, development and testing synthesize a
// deterministic derived secret so local iteration is never blocked; staging
// and production consult the optional external Provider and otherwise fail
// with a ConfigurationError naming the missing variable.
//
// Manager.Acceptable is the single authority on whether a secret may sign
// tokens in an environment. Resolution and startup validation both defer to
// it, so a generated development fallback can never pass one check and fail
// another.
//
// # Related Packages
//
//   - pkg/config: supplies the environment model and error kind
//   - pkg/env: the injected variable accessor
package secrets
