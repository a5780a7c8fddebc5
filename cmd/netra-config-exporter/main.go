package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/netra-io/netra-config/pkg/clients"
	"github.com/netra-io/netra-config/pkg/config"
	"github.com/netra-io/netra-config/pkg/env"
	"github.com/netra-io/netra-config/pkg/observability"
	"github.com/netra-io/netra-config/pkg/secrets"
)

var (
	listenAddr         = flag.String("listen", ":9090", "Address to serve health and metrics on")
	environmentName    = flag.String("environment", getEnv("ENVIRONMENT", "development"), "Deployment environment")
	rulesFile          = flag.String("rules", getEnv("NETRA_CONFIG_RULES", ""), "Optional YAML policy rules file, watched for changes")
	revalidateSchedule = flag.String("revalidate-schedule", "@every 1m", "Cron schedule for configuration revalidation")
	probeBackends      = flag.Bool("probe-backends", false, "Connect to resolved backends and expose their health on /readyz")
	logLevel           = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
)

// Exposes the resolved configuration state of one environment over HTTP:
// /healthz, /readyz, /configz, and Prometheus metrics on /metrics.
func main() {
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(*logLevel); err == nil {
		logger.SetLevel(level)
	}

	accessor := env.Process()

	environment, err := config.ParseEnvironment(*environmentName)
	if err != nil {
		logger.Fatalf("Invalid environment: %v", err)
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	resolverLogger := observability.NewLogger(observability.ParseLogLevel(*logLevel), os.Stdout)

	rules := config.DefaultRules()
	var rulesWatcher *config.RulesWatcher
	if *rulesFile != "" {
		rulesWatcher, err = config.WatchRules(rules, *rulesFile, resolverLogger, metrics)
		if err != nil {
			logger.Fatalf("Failed to watch rules file: %v", err)
		}
		logger.Infof("Watching policy rules file %s", *rulesFile)
	}

	manager := config.NewManager(accessor, environment, &config.ManagerOptions{
		Rules:   rules,
		Logger:  resolverLogger,
		Metrics: metrics,
	})
	secretManager := secrets.NewManager(accessor, environment, &secrets.ManagerOptions{
		Logger:  resolverLogger,
		Metrics: metrics,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checker := buildHealthChecker(ctx, manager, logger)

	revalidate := func() {
		defer observability.RecoverPanic(resolverLogger, "revalidation job")

		metrics.SetConfigValid("database_url", manager.ValidateDatabaseConfig() == nil)

		_, redisErr := manager.RedisConfig()
		metrics.SetConfigValid("redis", redisErr == nil)

		_, chErr := manager.ClickHouseConfig()
		metrics.SetConfigValid("clickhouse", chErr == nil)

		metrics.SetConfigValid("jwt_secret", secretManager.Validate(ctx) == nil)
	}
	revalidate()

	c := cron.New()
	if _, err := c.AddFunc(*revalidateSchedule, revalidate); err != nil {
		logger.Fatalf("Failed to schedule revalidation: %v", err)
	}
	c.Start()

	router := mux.NewRouter()
	router.HandleFunc("/healthz", checker.Liveness).Methods(http.MethodGet)
	router.HandleFunc("/readyz", checker.Readiness).Methods(http.MethodGet)
	router.HandleFunc("/configz", func(w http.ResponseWriter, r *http.Request) {
		report := manager.Populate(r.Context())
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(report)
	}).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	server := &http.Server{
		Addr:         *listenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Serving configuration status for %s on %s", environment, *listenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	shutdown := observability.NewShutdownManager(resolverLogger, server, 30*time.Second)
	shutdown.Register(func(ctx context.Context) error {
		select {
		case <-c.Stop().Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if rulesWatcher != nil {
		shutdown.Register(func(ctx context.Context) error {
			return rulesWatcher.Close()
		})
	}

	if err := shutdown.Wait(); err != nil {
		logger.Errorf("Shutdown finished with errors: %v", err)
	}
	logger.Info("Exporter stopped")
}

// buildHealthChecker connects to whatever backends the resolved config can
// reach. Probing is opt-in: validation-only deployments run without any
// backend access.
func buildHealthChecker(ctx context.Context, manager *config.Manager, logger *logrus.Logger) *observability.HealthChecker {
	if !*probeBackends {
		return observability.NewHealthChecker(nil, nil, nil)
	}

	db, err := clients.OpenPostgres(ctx, manager, nil)
	if err != nil {
		logger.Warnf("PostgreSQL not reachable, excluded from readiness: %v", err)
		db = nil
	}

	var redisClient *redis.Client
	if redisCfg, err := manager.RedisConfig(); err != nil {
		logger.Warnf("Redis config unresolved, excluded from readiness: %v", err)
	} else if redisClient, err = clients.NewRedisClient(ctx, redisCfg); err != nil {
		logger.Warnf("Redis not reachable, excluded from readiness: %v", err)
		redisClient = nil
	}

	return observability.NewHealthChecker(db, redisClient, clickhouseProbe(manager, logger))
}

func clickhouseProbe(manager *config.Manager, logger *logrus.Logger) observability.ProbeFunc {
	chCfg, err := manager.ClickHouseConfig()
	if err != nil {
		logger.Warnf("ClickHouse config unresolved, excluded from readiness: %v", err)
		return nil
	}
	pinger := clients.NewClickHousePinger(chCfg)
	return pinger.Ping
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
