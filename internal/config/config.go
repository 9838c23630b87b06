package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// API server configuration
	API APIConfig

	// Chain RPC configuration
	Chains ChainsConfig

	// Balance sync configuration
	Sync SyncConfig

	// Logging configuration
	Log LogConfig
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"cryptopp"`
	Password        string        `envconfig:"DB_PASSWORD" default:"cryptopp"`
	Name            string        `envconfig:"DB_NAME" default:"cryptopp"`
	SSLMode         string        `envconfig:"DB_SSL_MODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// APIConfig holds API server settings
type APIConfig struct {
	Host            string        `envconfig:"API_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"API_PORT" default:"8081"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitRPS    int           `envconfig:"API_RATE_LIMIT_RPS" default:"100"`
	CacheTTL        time.Duration `envconfig:"API_CACHE_TTL" default:"30s"`
}

// ChainsConfig holds RPC endpoint settings shared by every chain client.
// RPCOverrides replaces the registry default endpoint for a chain key, e.g.
// CHAIN_RPC_OVERRIDES="ethereum:https://eth.example.com,polygon:https://poly.example.com".
type ChainsConfig struct {
	RPCOverrides   map[string]string `envconfig:"CHAIN_RPC_OVERRIDES"`
	RequestTimeout time.Duration     `envconfig:"CHAIN_REQUEST_TIMEOUT" default:"15s"`
	MaxRetries     int               `envconfig:"CHAIN_MAX_RETRIES" default:"3"`
	RetryDelay     time.Duration     `envconfig:"CHAIN_RETRY_DELAY" default:"1s"`
}

// SyncConfig holds balance-sync settings
type SyncConfig struct {
	// WalletWorkers bounds concurrent wallet syncs within one ingest batch
	WalletWorkers int `envconfig:"SYNC_WALLET_WORKERS" default:"4"`

	// TokenWorkers bounds concurrent balanceOf calls for a single wallet
	TokenWorkers int `envconfig:"SYNC_TOKEN_WORKERS" default:"4"`

	// RefreshIfOlderThan controls when a known wallet's stored balance is
	// considered stale and refreshed on resync. Zero keeps the stored
	// balance forever (first write wins).
	RefreshIfOlderThan time.Duration `envconfig:"SYNC_REFRESH_IF_OLDER_THAN" default:"0"`

	// Refresher (cmd/syncer) settings
	MetricsPort  int           `envconfig:"SYNC_METRICS_PORT" default:"8080"`
	PollInterval time.Duration `envconfig:"SYNC_POLL_INTERVAL" default:"15m"`
	RefreshBatch int           `envconfig:"SYNC_REFRESH_BATCH" default:"50"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
