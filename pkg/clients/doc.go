// Package clients opens connections to the backends described by resolved
// configuration: PostgreSQL (sqlite in testing), Redis, and the ClickHouse
// HTTP interface.
//
// Every constructor validates or pings before returning, so a successful
// return means the resolved configuration actually reaches the backend.
//
// # Related Packages
//
//   - pkg/config: produces the configuration these clients consume
//   - pkg/observability: health-checks the clients once constructed
package clients
