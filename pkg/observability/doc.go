// Package observability provides logging, metrics, and health checking for
// the configuration resolution layer.
//
// # Components
//
//   - Logger: structured JSON logging built on stdlib slog
//   - Metrics: Prometheus counters and gauges under the netra_config_ prefix
//   - HealthChecker: liveness/readiness probes over the backends reachable
//     with the resolved configuration (PostgreSQL, Redis, ClickHouse)
//
// # Usage Example
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//
//	checker := observability.NewHealthChecker(db, redisClient, probe)
//	http.HandleFunc("/healthz", checker.Liveness)
//	http.HandleFunc("/readyz", checker.Readiness)
//
// # Related Packages
//
//   - pkg/config: records resolution outcomes through Metrics
//   - pkg/secrets: records secret resolution outcomes through Metrics
package observability
