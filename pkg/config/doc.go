// Package config resolves and validates database connection parameters for
// the Netra backend from environment variables.
//
// # Overview
//
// A Manager is constructed once per process for one deployment environment
// (development, testing, staging, production) and reads variables through an
// injected env.Accessor. Each resolution is independent and recomputed from
// the current variable state.
//
// Policy differs by environment: staging and production fail fast on missing
// configuration, require SSL, and reject localhost hosts; development and
// testing tolerate absence and default leniently. Cloud SQL Unix-socket
// paths (/cloudsql/...) are exempt from SSL checks.
//
// # Variables
//
//	ENVIRONMENT
//	DATABASE_URL, POSTGRES_HOST/PORT/USER/PASSWORD/DB
//	REDIS_URL, REDIS_HOST/PORT/DB/PASSWORD/SSL
//	CLICKHOUSE_HOST/PORT/USER/PASSWORD/DATABASE
//
// # Usage Example
//
//	accessor := env.Process()
//	manager := config.NewManager(accessor, config.CurrentEnvironment(accessor), nil)
//
//	dbURL, err := manager.DatabaseURL()
//	if err != nil {
//		log.Fatal(err)
//	}
//	report := manager.Populate(ctx)
//
// # Related Packages
//
//   - pkg/env: the injected variable accessor
//   - pkg/clients: opens connections from resolved configuration
//   - pkg/secrets: the JWT secret counterpart of this resolver
package config
