package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/robfig/cron/v3"
)

const (
	StorageBackendPostgres = "postgres"
	StorageBackendDynamoDB = "dynamodb"
	StorageBackendMemory   = "memory"

	PublisherHTTP = "http"
	PublisherLog  = "log"
)

// Environment variable prefixes read on top of the defaults.
var envPrefixes = []string{
	"POSTGRES_", "DYNAMODB_", "STORAGE_", "SCHEDULER_", "SYNC_", "GET_", "PURGE_",
	"GATEWAY_", "SNAPSHOT_", "REPORTING_", "LOG_", "HTTP_",
}

// In all cases the default behavior should be for the docker compose setup
var defaults = map[string]interface{}{
	"storage_backend": StorageBackendPostgres,

	"postgres_address":  "localhost",
	"postgres_port":     "5433",
	"postgres_db":       "postgres",
	"postgres_username": "postgres",
	"postgres_password": "testpassword",

	"dynamodb_region":   "us-east-1",
	"dynamodb_table":    "transaction_sync",
	"dynamodb_endpoint": "",

	"scheduler_timezone": "UTC",

	"sync_cron":               "*/1 * * * *",
	"sync_lease_timeout":      "60s",
	"sync_lease_refresh":      "20s",
	"sync_page_size":          50,
	"sync_max_pages_per_tick": 1,

	"get_cron":          "@every 30s",
	"get_lease_timeout": "30s",
	"get_lease_refresh": "10s",
	"get_max_pages":     3,

	"purge_cron":          "@hourly",
	"purge_lease_timeout": "5m",
	"purge_lease_refresh": "1m",

	"snapshot_default_ttl": "720h",

	"gateway_base_url":    "",
	"gateway_api_token":   "",
	"gateway_wallet_id":   "",
	"gateway_timeout":     "30s",
	"gateway_max_retries": 3,

	"reporting_publisher":   PublisherHTTP,
	"reporting_url":         "",
	"reporting_timeout":     "10s",
	"reporting_max_retries": 5,

	"log_level": "info",
	"http_port": "9446",
}

// JobConfig holds the schedule and lease settings of one scheduled job.
type JobConfig struct {
	Cron         string
	LeaseTimeout time.Duration
	LeaseRefresh time.Duration
}

type Config struct {
	StorageBackend string

	PostgresAddress  string
	PostgresPort     string
	PostgresDB       string
	PostgresUsername string
	PostgresPassword string

	DynamoDBRegion   string
	DynamoDBTable    string
	DynamoDBEndpoint string

	SchedulerTimezone string

	Sync                JobConfig
	SyncPageSize        int
	SyncMaxPagesPerTick int

	Get         JobConfig
	GetMaxPages int

	Purge JobConfig

	SnapshotDefaultTTL time.Duration

	GatewayBaseURL    string
	GatewayAPIToken   string
	GatewayWalletID   string
	GatewayTimeout    time.Duration
	GatewayMaxRetries int

	ReportingPublisher  string
	ReportingURL        string
	ReportingTimeout    time.Duration
	ReportingMaxRetries int

	LogLevel string
	HTTPPort string
}

func ProcessEnvironmentVariables() (*Config, error) {
	// A missing .env file is fine, the process environment is used as is.
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	for _, prefix := range envPrefixes {
		if err := k.Load(env.Provider(prefix, ".", strings.ToLower), nil); err != nil {
			return nil, fmt.Errorf("failed to load %s* variables: %w", prefix, err)
		}
	}

	return fromKoanf(k), nil
}

func fromKoanf(k *koanf.Koanf) *Config {
	job := func(name string) JobConfig {
		return JobConfig{
			Cron:         k.String(name + "_cron"),
			LeaseTimeout: k.Duration(name + "_lease_timeout"),
			LeaseRefresh: k.Duration(name + "_lease_refresh"),
		}
	}

	return &Config{
		StorageBackend: strings.ToLower(k.String("storage_backend")),

		PostgresAddress:  k.String("postgres_address"),
		PostgresPort:     k.String("postgres_port"),
		PostgresDB:       k.String("postgres_db"),
		PostgresUsername: k.String("postgres_username"),
		PostgresPassword: k.String("postgres_password"),

		DynamoDBRegion:   k.String("dynamodb_region"),
		DynamoDBTable:    k.String("dynamodb_table"),
		DynamoDBEndpoint: k.String("dynamodb_endpoint"),

		SchedulerTimezone: k.String("scheduler_timezone"),

		Sync:                job("sync"),
		SyncPageSize:        k.Int("sync_page_size"),
		SyncMaxPagesPerTick: k.Int("sync_max_pages_per_tick"),

		Get:         job("get"),
		GetMaxPages: k.Int("get_max_pages"),

		Purge: job("purge"),

		SnapshotDefaultTTL: k.Duration("snapshot_default_ttl"),

		GatewayBaseURL:    strings.TrimRight(k.String("gateway_base_url"), "/"),
		GatewayAPIToken:   k.String("gateway_api_token"),
		GatewayWalletID:   k.String("gateway_wallet_id"),
		GatewayTimeout:    k.Duration("gateway_timeout"),
		GatewayMaxRetries: k.Int("gateway_max_retries"),

		ReportingPublisher:  strings.ToLower(k.String("reporting_publisher")),
		ReportingURL:        k.String("reporting_url"),
		ReportingTimeout:    k.Duration("reporting_timeout"),
		ReportingMaxRetries: k.Int("reporting_max_retries"),

		LogLevel: k.String("log_level"),
		HTTPPort: k.String("http_port"),
	}
}

// PostgresConnectionString builds the lib/pq connection URL.
func (c *Config) PostgresConnectionString() string {
	return "postgres://" + c.PostgresUsername + ":" +
		c.PostgresPassword + "@" + c.PostgresAddress + ":" +
		c.PostgresPort + "/" + c.PostgresDB + "?sslmode=disable"
}

// Location returns the time zone used for cron schedules and for "today".
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.SchedulerTimezone)
}

// Secrets returns the credential values that must never reach a log line or error string.
func (c *Config) Secrets() []string {
	var secrets []string
	for _, s := range []string{c.GatewayAPIToken, c.GatewayWalletID, c.PostgresPassword} {
		if s != "" {
			secrets = append(secrets, s)
		}
	}
	return secrets
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.StorageBackend {
	case StorageBackendPostgres, StorageBackendDynamoDB, StorageBackendMemory:
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND %q is not one of postgres, dynamodb, memory", c.StorageBackend))
	}
	if c.StorageBackend == StorageBackendDynamoDB && c.DynamoDBTable == "" {
		errs = append(errs, errors.New("DYNAMODB_TABLE is required for the dynamodb backend"))
	}

	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("SCHEDULER_TIMEZONE: %w", err))
	}

	for name, job := range map[string]JobConfig{"SYNC": c.Sync, "GET": c.Get, "PURGE": c.Purge} {
		if _, err := cron.ParseStandard(job.Cron); err != nil {
			errs = append(errs, fmt.Errorf("%s_CRON %q: %w", name, job.Cron, err))
		}
		if job.LeaseTimeout <= 0 {
			errs = append(errs, fmt.Errorf("%s_LEASE_TIMEOUT must be positive", name))
		}
		if job.LeaseRefresh <= 0 || job.LeaseRefresh >= job.LeaseTimeout {
			errs = append(errs, fmt.Errorf("%s_LEASE_REFRESH must be positive and shorter than %s_LEASE_TIMEOUT", name, name))
		}
	}

	if c.SyncPageSize <= 0 {
		errs = append(errs, errors.New("SYNC_PAGE_SIZE must be positive"))
	}
	if c.SyncMaxPagesPerTick <= 0 {
		errs = append(errs, errors.New("SYNC_MAX_PAGES_PER_TICK must be positive"))
	}
	if c.GetMaxPages <= 0 {
		errs = append(errs, errors.New("GET_MAX_PAGES must be positive"))
	}
	if c.SnapshotDefaultTTL <= 0 {
		errs = append(errs, errors.New("SNAPSHOT_DEFAULT_TTL must be positive"))
	}

	if c.GatewayBaseURL == "" {
		errs = append(errs, errors.New("GATEWAY_BASE_URL is required"))
	}
	if c.GatewayAPIToken == "" {
		errs = append(errs, errors.New("GATEWAY_API_TOKEN is required"))
	}
	if c.GatewayTimeout <= 0 {
		errs = append(errs, errors.New("GATEWAY_TIMEOUT must be positive"))
	}
	if c.GatewayMaxRetries < 0 {
		errs = append(errs, errors.New("GATEWAY_MAX_RETRIES must not be negative"))
	}

	if c.ReportingMaxRetries < 0 {
		errs = append(errs, errors.New("REPORTING_MAX_RETRIES must not be negative"))
	}

	switch c.ReportingPublisher {
	case PublisherHTTP:
		if c.ReportingURL == "" {
			errs = append(errs, errors.New("REPORTING_URL is required for the http publisher"))
		}
	case PublisherLog:
	default:
		errs = append(errs, fmt.Errorf("REPORTING_PUBLISHER %q is not one of http, log", c.ReportingPublisher))
	}

	return errors.Join(errs...)
}
