package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/netra-io/netra-config/pkg/config"
	"github.com/netra-io/netra-config/pkg/env"
	"github.com/netra-io/netra-config/pkg/secrets"
)

// Config holds the CLI configuration
type Config struct {
	Environment     string
	RulesFile       string
	SecretManager   string
	OutputJSON      bool
	SkipSecretCheck bool
	LogLevel        string
	Timeout         time.Duration
}

// Validates the full configuration surface for one environment and prints a
// report. Exits non-zero when anything fails validation.
func main() {
	cliConfig := parseFlags()
	logger := setupLogger(cliConfig.LogLevel)

	accessor := env.Process()

	environment, err := config.ParseEnvironment(cliConfig.Environment)
	if err != nil {
		logger.Fatalf("Invalid environment: %v", err)
	}

	rules := config.DefaultRules()
	if cliConfig.RulesFile != "" {
		if err := rules.LoadFile(cliConfig.RulesFile); err != nil {
			logger.Fatalf("Failed to load rules file: %v", err)
		}
		logger.Infof("Loaded policy rules from %s", cliConfig.RulesFile)
	}

	manager := config.NewManager(accessor, environment, &config.ManagerOptions{Rules: rules})

	ctx, cancel := context.WithTimeout(context.Background(), cliConfig.Timeout)
	defer cancel()

	failed := false

	// Database configuration
	if err := manager.ValidateDatabaseConfig(); err != nil {
		logger.Errorf("PostgreSQL configuration invalid: %v", err)
		failed = true
	} else {
		logger.Info("PostgreSQL configuration valid")
	}

	report := manager.Populate(ctx)

	// JWT secret
	if !cliConfig.SkipSecretCheck {
		secretOpts := &secrets.ManagerOptions{}
		if cliConfig.SecretManager != "" {
			secretOpts.Provider = secrets.NewHTTPProvider(cliConfig.SecretManager, os.Getenv("SECRET_MANAGER_TOKEN"))
		}
		secretManager := secrets.NewManager(accessor, environment, secretOpts)

		if err := secretManager.Validate(ctx); err != nil {
			logger.Errorf("JWT secret resolution failed: %v", err)
			failed = true
		} else {
			logger.Info("JWT secret resolved and verified")
		}
	}

	if cliConfig.OutputJSON {
		encoded, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			logger.Fatalf("Failed to encode report: %v", err)
		}
		fmt.Println(string(encoded))
	} else {
		printReport(report)
	}

	if failed {
		os.Exit(1)
	}
}

func parseFlags() *Config {
	cliConfig := &Config{}

	flag.StringVar(&cliConfig.Environment, "environment", getEnv("ENVIRONMENT", "development"), "Deployment environment to validate (development, testing, staging, production)")
	flag.StringVar(&cliConfig.RulesFile, "rules", getEnv("NETRA_CONFIG_RULES", ""), "Optional YAML policy rules override file")
	flag.StringVar(&cliConfig.SecretManager, "secret-manager", getEnv("SECRET_MANAGER_URL", ""), "Optional secret manager base URL consulted in staging/production")
	flag.BoolVar(&cliConfig.OutputJSON, "json", false, "Print the report as JSON")
	flag.BoolVar(&cliConfig.SkipSecretCheck, "skip-secret", false, "Skip JWT secret resolution")
	flag.StringVar(&cliConfig.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.DurationVar(&cliConfig.Timeout, "timeout", 30*time.Second, "Overall timeout")

	flag.Parse()

	return cliConfig
}

func setupLogger(logLevel string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

func printReport(report config.DatabaseConfigReport) {
	if report.PostgreSQL != nil {
		fmt.Printf("postgresql: url=%s valid=%v\n", report.PostgreSQL.URL, report.PostgreSQL.Valid)
	} else {
		fmt.Println("postgresql: not configured")
	}
	if report.Redis != nil {
		fmt.Printf("redis: %s db=%d ssl=%v\n", report.Redis.Addr(), report.Redis.DB, report.Redis.SSL)
	} else {
		fmt.Println("redis: not configured")
	}
	if report.ClickHouse != nil {
		fmt.Printf("clickhouse: %s:%d user=%s database=%s\n", report.ClickHouse.Host, report.ClickHouse.Port, report.ClickHouse.User, report.ClickHouse.Database)
	} else {
		fmt.Println("clickhouse: not configured")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
