package config

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"github.com/netra-io/netra-config/pkg/env"
	"github.com/netra-io/netra-config/pkg/observability"
)

// Environment variable names consumed by the resolver.
const (
	VarDatabaseURL      = "DATABASE_URL"
	VarPostgresHost     = "POSTGRES_HOST"
	VarPostgresPort     = "POSTGRES_PORT"
	VarPostgresUser     = "POSTGRES_USER"
	VarPostgresPassword = "POSTGRES_PASSWORD"
	VarPostgresDB       = "POSTGRES_DB"

	VarRedisURL      = "REDIS_URL"
	VarRedisHost     = "REDIS_HOST"
	VarRedisPort     = "REDIS_PORT"
	VarRedisDB       = "REDIS_DB"
	VarRedisPassword = "REDIS_PASSWORD"
	VarRedisSSL      = "REDIS_SSL"

	VarClickHouseHost     = "CLICKHOUSE_HOST"
	VarClickHousePort     = "CLICKHOUSE_PORT"
	VarClickHouseUser     = "CLICKHOUSE_USER"
	VarClickHousePassword = "CLICKHOUSE_PASSWORD"
	VarClickHouseDatabase = "CLICKHOUSE_DATABASE"
)

const (
	defaultPostgresPort   = "5432"
	defaultRedisPort      = 6379
	defaultClickHousePort = 9000

	// cloudSQLPrefix marks Cloud SQL Unix-socket paths. The proxy encrypts
	// these connections, so sslmode checks do not apply.
	cloudSQLPrefix = "/cloudsql/"
)

const (
	memoSize = 64
	memoTTL  = time.Minute
)

// RedisConfig holds resolved Redis connection parameters.
type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	DB       int    `json:"db"`
	Password string `json:"-"`
	SSL      bool   `json:"ssl"`
}

// Addr returns the host:port address for client construction.
func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprintf("%d", c.Port))
}

// ClickHouseConfig holds resolved ClickHouse connection parameters.
type ClickHouseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"-"`
	Database string `json:"database"`
}

// PostgresStatus reports the resolved PostgreSQL URL and whether it passed
// validation.
type PostgresStatus struct {
	URL   string `json:"url"`
	Valid bool   `json:"valid"`
}

// DatabaseConfigReport aggregates every resolved backend. A nil section
// means resolution for that backend failed or produced nothing.
type DatabaseConfigReport struct {
	PostgreSQL *PostgresStatus   `json:"postgresql,omitempty"`
	Redis      *RedisConfig      `json:"redis,omitempty"`
	ClickHouse *ClickHouseConfig `json:"clickhouse,omitempty"`
}

type memoKey struct {
	property   string
	generation uint64
}

// ManagerOptions customizes a Manager. Any field may be left nil.
type ManagerOptions struct {
	Rules   *Rules
	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// Manager resolves database connection parameters for one deployment
// environment from an environment accessor. Construct one per process and
// inject it; there is no package-level singleton.
type Manager struct {
	env         env.Accessor
	environment Environment
	rules       *Rules
	logger      *observability.Logger
	metrics     *observability.Metrics
	memo        *lru.LRU[memoKey, string]
}

// NewManager creates a resolver for the given environment.
func NewManager(accessor env.Accessor, environment Environment, opts *ManagerOptions) *Manager {
	if opts == nil {
		opts = &ManagerOptions{}
	}
	rules := opts.Rules
	if rules == nil {
		rules = DefaultRules()
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	return &Manager{
		env:         accessor,
		environment: environment,
		rules:       rules,
		logger:      logger.WithField("environment", string(environment)),
		metrics:     opts.Metrics,
		memo:        lru.NewLRU[memoKey, string](memoSize, nil, memoTTL),
	}
}

// Environment returns the deployment environment this manager resolves for.
func (m *Manager) Environment() Environment {
	return m.environment
}

// DatabaseURL resolves the PostgreSQL connection URL. DATABASE_URL wins when
// set; otherwise the URL is composed from the POSTGRES_* variables. In
// staging and production missing host/user/db is a ConfigurationError; in
// development and testing it yields an empty URL and no error.
func (m *Manager) DatabaseURL() (string, error) {
	key := memoKey{property: "database_url", generation: m.env.Generation()}
	if cached, ok := m.memo.Get(key); ok {
		return cached, nil
	}

	resolved, err := m.resolveDatabaseURL()
	if err != nil {
		m.metrics.RecordResolution("database_url", "error")
		return "", err
	}

	m.memo.Add(key, resolved)
	m.metrics.RecordResolution("database_url", "success")
	return resolved, nil
}

func (m *Manager) resolveDatabaseURL() (string, error) {
	if direct, ok := m.env.Lookup(VarDatabaseURL); ok && direct != "" {
		return direct, nil
	}

	host := env.Get(m.env, VarPostgresHost)
	user := env.Get(m.env, VarPostgresUser)
	password := env.Get(m.env, VarPostgresPassword)
	database := env.Get(m.env, VarPostgresDB)
	port := env.GetDefault(m.env, VarPostgresPort, defaultPostgresPort)

	if missing := firstMissing(map[string]string{
		VarPostgresHost: host,
		VarPostgresUser: user,
		VarPostgresDB:   database,
	}); missing != "" {
		if m.environment.IsLenient() {
			m.logger.WithField("variable", missing).Debug("postgres configuration absent, resolving to empty")
			return "", nil
		}
		return "", newConfigError(missing, "%s environment requires %s", m.environment, missing)
	}

	var userInfo *url.Userinfo
	if password != "" {
		userInfo = url.UserPassword(user, password)
	} else {
		userInfo = url.User(user)
	}

	u := &url.URL{
		Scheme: "postgresql",
		User:   userInfo,
		Path:   "/" + database,
	}

	query := url.Values{}
	if strings.HasPrefix(host, "/") {
		// Cloud SQL Unix socket: host moves into the query string.
		query.Set("host", host)
	} else {
		u.Host = net.JoinHostPort(host, port)
	}

	if m.rules.For(m.environment).RequireSSL && !strings.HasPrefix(host, "/") {
		query.Set("sslmode", "require")
	}
	u.RawQuery = query.Encode()

	return u.String(), nil
}

// firstMissing returns the name of the first empty variable in a stable
// order, or "" when all are present.
func firstMissing(vars map[string]string) string {
	for _, name := range []string{
		VarPostgresHost, VarPostgresUser, VarPostgresDB,
		VarClickHouseHost, VarClickHouseUser, VarClickHouseDatabase,
	} {
		if value, ok := vars[name]; ok && value == "" {
			return name
		}
	}
	return ""
}

// ValidateDatabaseConfig checks the resolved PostgreSQL URL against the
// environment's policy: known scheme, SSL when required (Cloud SQL socket
// paths exempt), and no localhost where disallowed.
func (m *Manager) ValidateDatabaseConfig() error {
	raw, err := m.DatabaseURL()
	if err != nil {
		m.metrics.RecordValidationFailure("database_url", "missing")
		return err
	}
	if raw == "" {
		m.metrics.RecordValidationFailure("database_url", "missing")
		return newConfigError(VarDatabaseURL, "no database configuration resolved")
	}

	u, err := url.Parse(raw)
	if err != nil {
		m.metrics.RecordValidationFailure("database_url", "parse")
		return newConfigError(VarDatabaseURL, "database URL does not parse: %v", err)
	}

	switch u.Scheme {
	case "postgres", "postgresql":
		// postgres family
	case "sqlite", "sqlite3", "file":
		if m.environment != Testing {
			m.metrics.RecordValidationFailure("database_url", "scheme")
			return newConfigError(VarDatabaseURL, "sqlite is only permitted in the testing environment")
		}
		return nil
	default:
		m.metrics.RecordValidationFailure("database_url", "scheme")
		return newConfigError(VarDatabaseURL, "unrecognized database scheme %q", u.Scheme)
	}

	rules := m.rules.For(m.environment)
	query := u.Query()
	cloudSQL := strings.HasPrefix(query.Get("host"), cloudSQLPrefix)

	if rules.RequireSSL && !cloudSQL {
		switch query.Get("sslmode") {
		case "require", "verify-ca", "verify-full":
			// acceptable
		case "":
			m.metrics.RecordValidationFailure("database_url", "ssl")
			return newConfigError(VarDatabaseURL, "%s requires sslmode on database connections", m.environment)
		default:
			m.metrics.RecordValidationFailure("database_url", "ssl")
			return newConfigError(VarDatabaseURL, "sslmode %q does not satisfy the %s SSL policy", query.Get("sslmode"), m.environment)
		}
	}

	if !rules.AllowLocalhost && isLocalhost(u.Hostname()) {
		m.metrics.RecordValidationFailure("database_url", "localhost")
		return newConfigError(VarDatabaseURL, "localhost database host not allowed in %s", m.environment)
	}

	return nil
}

// DatabaseConfigValid reports whether validation passes.
func (m *Manager) DatabaseConfigValid() bool {
	return m.ValidateDatabaseConfig() == nil
}

func isLocalhost(hostname string) bool {
	switch strings.ToLower(hostname) {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// RedisConfig resolves Redis connection parameters. REDIS_URL wins when set;
// otherwise REDIS_* variables apply with defaults (localhost:6379, db 0,
// no SSL).
func (m *Manager) RedisConfig() (RedisConfig, error) {
	if rawURL, ok := m.env.Lookup(VarRedisURL); ok && rawURL != "" {
		opts, err := redis.ParseURL(rawURL)
		if err != nil {
			m.metrics.RecordResolution("redis", "error")
			return RedisConfig{}, newConfigError(VarRedisURL, "redis URL does not parse: %v", err)
		}

		host, portStr, err := net.SplitHostPort(opts.Addr)
		if err != nil {
			host = opts.Addr
			portStr = fmt.Sprintf("%d", defaultRedisPort)
		}
		port := defaultRedisPort
		fmt.Sscanf(portStr, "%d", &port)

		m.metrics.RecordResolution("redis", "success")
		return RedisConfig{
			Host:     host,
			Port:     port,
			DB:       opts.DB,
			Password: opts.Password,
			SSL:      opts.TLSConfig != nil,
		}, nil
	}

	cfg := RedisConfig{
		Host:     env.GetDefault(m.env, VarRedisHost, "localhost"),
		Port:     env.GetInt(m.env, VarRedisPort, defaultRedisPort),
		DB:       env.GetInt(m.env, VarRedisDB, 0),
		Password: env.Get(m.env, VarRedisPassword),
		SSL:      env.GetBool(m.env, VarRedisSSL, false),
	}
	m.metrics.RecordResolution("redis", "success")
	return cfg, nil
}

// ClickHouseConfig resolves ClickHouse connection parameters. Staging and
// production require explicit host, user, and database; development and
// testing default to localhost/default with a warning.
func (m *Manager) ClickHouseConfig() (ClickHouseConfig, error) {
	host := env.Get(m.env, VarClickHouseHost)
	user := env.Get(m.env, VarClickHouseUser)
	database := env.Get(m.env, VarClickHouseDatabase)

	if missing := firstMissing(map[string]string{
		VarClickHouseHost:     host,
		VarClickHouseUser:     user,
		VarClickHouseDatabase: database,
	}); missing != "" {
		if !m.environment.IsLenient() {
			m.metrics.RecordResolution("clickhouse", "error")
			return ClickHouseConfig{}, newConfigError(missing, "%s environment requires %s", m.environment, missing)
		}
		m.logger.WithField("variable", missing).Warn("clickhouse configuration absent, using development defaults")
		if host == "" {
			host = "localhost"
		}
		if user == "" {
			user = "default"
		}
		if database == "" {
			database = "default"
		}
	}

	cfg := ClickHouseConfig{
		Host:     host,
		Port:     env.GetInt(m.env, VarClickHousePort, defaultClickHousePort),
		User:     user,
		Password: env.Get(m.env, VarClickHousePassword),
		Database: database,
	}
	m.metrics.RecordResolution("clickhouse", "success")
	return cfg, nil
}

// Populate aggregates every backend config into one report. It never fails:
// resolution errors are logged, counted, and leave the section nil so a
// misconfigured cache cannot take down process startup. The sharp edge is
// that real misconfiguration shows up only in logs and metrics.
func (m *Manager) Populate(ctx context.Context) DatabaseConfigReport {
	var report DatabaseConfigReport

	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		dbURL, err := m.DatabaseURL()
		if err != nil {
			m.logger.WithError(err).Warn("postgresql config population failed")
			m.metrics.RecordPopulateError("postgresql")
			return nil
		}
		if dbURL == "" {
			return nil
		}
		report.PostgreSQL = &PostgresStatus{
			URL:   dbURL,
			Valid: m.DatabaseConfigValid(),
		}
		return nil
	})

	g.Go(func() error {
		cfg, err := m.RedisConfig()
		if err != nil {
			m.logger.WithError(err).Warn("redis config population failed")
			m.metrics.RecordPopulateError("redis")
			return nil
		}
		report.Redis = &cfg
		return nil
	})

	g.Go(func() error {
		cfg, err := m.ClickHouseConfig()
		if err != nil {
			m.logger.WithError(err).Warn("clickhouse config population failed")
			m.metrics.RecordPopulateError("clickhouse")
			return nil
		}
		report.ClickHouse = &cfg
		return nil
	})

	g.Wait()
	return report
}
