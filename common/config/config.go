// Package config provides centralized configuration management for all ChainTrace services.
package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	globalConfig *Config
	once         sync.Once
)

// Config is the master configuration struct containing all service configs and shared infrastructure.
type Config struct {
	// Service-specific configurations
	Detect  DetectConfig  `mapstructure:"detect"`
	Explain ExplainConfig `mapstructure:"explain"`
	Anchor  AnchorConfig  `mapstructure:"anchor"`

	// Shared infrastructure configurations
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	OpenSearch OpenSearchConfig `mapstructure:"opensearch"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// DetectConfig holds detection service configuration.
type DetectConfig struct {
	Server    ServerConfig    `mapstructure:"server"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Artifact  ArtifactConfig  `mapstructure:"artifact"`
	Privacy   PrivacyConfig   `mapstructure:"privacy"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	PreRules  PreRulesConfig  `mapstructure:"pre_rules"`
	Integrity IntegrityConfig `mapstructure:"integrity"`
}

// PipelineConfig holds ensemble scoring pipeline settings.
type PipelineConfig struct {
	// RecordTimeout is the overall per-record processing deadline.
	RecordTimeout time.Duration `mapstructure:"record_timeout"`
	// DetectorTimeout is the independent per-detector scoring deadline.
	DetectorTimeout time.Duration `mapstructure:"detector_timeout"`
	// EnsembleTimeout caps total ensemble wall-clock time; detectors still
	// running when it expires are recorded unavailable.
	EnsembleTimeout time.Duration `mapstructure:"ensemble_timeout"`
	// MaxPayloadBytes limits a single telemetry submission.
	MaxPayloadBytes int `mapstructure:"max_payload_bytes"`
}

// ArtifactConfig locates the versioned model artifact.
type ArtifactConfig struct {
	Path    string `mapstructure:"path"`
	Version string `mapstructure:"version"`
}

// PrivacyConfig holds the privacy codec collaborator endpoint.
type PrivacyConfig struct {
	URL     string        `mapstructure:"url"`
	Enabled bool          `mapstructure:"enabled"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ArchiveConfig holds telemetry archive settings (OpenSearch index).
type ArchiveConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// PreRulesConfig holds rule-based pre-classification entries used by the
// severity fallback path.
type PreRulesConfig struct {
	Rules []PreRule `mapstructure:"rules"`
}

// PreRule maps a record predicate to an out-of-band severity.
type PreRule struct {
	DataType string  `mapstructure:"data_type"`
	Field    string  `mapstructure:"field"`
	Op       string  `mapstructure:"op"` // gt, lt, eq
	Value    float64 `mapstructure:"value"`
	Severity string  `mapstructure:"severity"`
}

// IntegrityConfig holds the HMAC secret for record digests.
type IntegrityConfig struct {
	Secret string `mapstructure:"secret"`
}

// ExplainConfig holds explanation service configuration.
type ExplainConfig struct {
	Server   ServerConfig   `mapstructure:"server"`
	Artifact ArtifactConfig `mapstructure:"artifact"`
	Cache    CacheConfig    `mapstructure:"cache"`
	// Timeout bounds one attribution computation.
	Timeout time.Duration `mapstructure:"timeout"`
}

// CacheConfig holds explanation cache settings.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// AnchorConfig holds ledger anchoring service configuration.
type AnchorConfig struct {
	Server ServerConfig `mapstructure:"server"`
	Ledger LedgerConfig `mapstructure:"ledger"`
	Retry  RetryConfig  `mapstructure:"retry"`
}

// LedgerConfig holds the external ledger collaborator endpoint and
// confirmation policy.
type LedgerConfig struct {
	URL            string        `mapstructure:"url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Confirmations  int           `mapstructure:"confirmations"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`
}

// RetryConfig holds pending-anchor retry scheduling.
type RetryConfig struct {
	CheckInterval time.Duration `mapstructure:"check_interval"`
	BaseBackoff   time.Duration `mapstructure:"base_backoff"`
	MaxBackoff    time.Duration `mapstructure:"max_backoff"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	// URL is the postgres connection string. When empty, services fall back
	// to the in-memory repository (development / tests only).
	URL            string `mapstructure:"url"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

// OpenSearchConfig holds OpenSearch connection settings for the telemetry archive.
type OpenSearchConfig struct {
	URL             string `mapstructure:"url"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	TLSSkipVerify   bool   `mapstructure:"tls_skip_verify"`
	IndexPrefix     string `mapstructure:"index_prefix"`
	ShardCount      int    `mapstructure:"shard_count"`
	ReplicaCount    int    `mapstructure:"replica_count"`
	RefreshInterval string `mapstructure:"refresh_interval"`
	RetentionDays   int    `mapstructure:"retention_days"`
}

// NATSConfig holds NATS message broker configuration.
type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	Enabled       bool          `mapstructure:"enabled"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	URL        string `mapstructure:"url"`
	Enabled    bool   `mapstructure:"enabled"`
	MaxRetries int    `mapstructure:"max_retries"`
	PoolSize   int    `mapstructure:"pool_size"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MustLoad loads the configuration and panics on error.
// This initializes the global singleton.
func MustLoad(serviceName string) {
	once.Do(func() {
		cfg, err := Load(serviceName)
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
		globalConfig = cfg
	})
}

// GetConfig returns the global configuration singleton.
// Panics if MustLoad has not been called first.
func GetConfig() *Config {
	if globalConfig == nil {
		panic("config not initialized - call MustLoad first")
	}
	return globalConfig
}

// Load reads configuration from $CHAINTRACE_CONFIG_DIR/config.yaml and
// environment variables. All services load the same config.yaml; the
// serviceName selects which section they care about.
func Load(serviceName string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	configDir := os.Getenv("CHAINTRACE_CONFIG_DIR")
	if configDir == "" {
		configDir = "/etc/chaintrace"
	}

	configPath := fmt.Sprintf("%s/config.yaml", configDir)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Environment variables override with no prefix.
	v.SetEnvPrefix("")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Config file is optional; defaults and env vars suffice.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// Detect service defaults
	v.SetDefault("detect.server.port", 8081)
	v.SetDefault("detect.server.read_timeout", "15s")
	v.SetDefault("detect.server.write_timeout", "15s")
	v.SetDefault("detect.server.idle_timeout", "60s")
	v.SetDefault("detect.pipeline.record_timeout", "5s")
	v.SetDefault("detect.pipeline.detector_timeout", "1s")
	v.SetDefault("detect.pipeline.ensemble_timeout", "2s")
	v.SetDefault("detect.pipeline.max_payload_bytes", 1048576)
	v.SetDefault("detect.artifact.path", "/var/lib/chaintrace/models/current.json")
	v.SetDefault("detect.artifact.version", "")
	v.SetDefault("detect.privacy.enabled", false)
	v.SetDefault("detect.privacy.url", "http://privacy-codec:8090")
	v.SetDefault("detect.privacy.timeout", "3s")
	v.SetDefault("detect.archive.enabled", true)
	v.SetDefault("detect.integrity.secret", "change-this-in-production")

	// Explain service defaults
	v.SetDefault("explain.server.port", 8082)
	v.SetDefault("explain.server.read_timeout", "15s")
	v.SetDefault("explain.server.write_timeout", "15s")
	v.SetDefault("explain.server.idle_timeout", "60s")
	v.SetDefault("explain.artifact.path", "/var/lib/chaintrace/models/current.json")
	v.SetDefault("explain.cache.enabled", true)
	v.SetDefault("explain.cache.ttl", "1h")
	v.SetDefault("explain.timeout", "10s")

	// Anchor service defaults
	v.SetDefault("anchor.server.port", 8083)
	v.SetDefault("anchor.server.read_timeout", "15s")
	v.SetDefault("anchor.server.write_timeout", "15s")
	v.SetDefault("anchor.server.idle_timeout", "60s")
	v.SetDefault("anchor.ledger.url", "http://ledger-gateway:7051")
	v.SetDefault("anchor.ledger.timeout", "5s")
	v.SetDefault("anchor.ledger.confirmations", 2)
	v.SetDefault("anchor.ledger.poll_interval", "2s")
	v.SetDefault("anchor.ledger.confirm_timeout", "30s")
	v.SetDefault("anchor.retry.check_interval", "30s")
	v.SetDefault("anchor.retry.base_backoff", "10s")
	v.SetDefault("anchor.retry.max_backoff", "10m")
	v.SetDefault("anchor.retry.max_attempts", 10)

	// Server defaults (port varies by service, so no default here)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")

	// Database defaults
	v.SetDefault("database.url", "")
	v.SetDefault("database.migrations_path", "migrations")

	// OpenSearch defaults
	v.SetDefault("opensearch.url", "https://localhost:9200")
	v.SetDefault("opensearch.username", "admin")
	v.SetDefault("opensearch.password", "admin")
	v.SetDefault("opensearch.tls_skip_verify", true)
	v.SetDefault("opensearch.index_prefix", "chaintrace-telemetry")
	v.SetDefault("opensearch.shard_count", 1)
	v.SetDefault("opensearch.replica_count", 0)
	v.SetDefault("opensearch.refresh_interval", "5s")
	v.SetDefault("opensearch.retention_days", 90)

	// NATS defaults
	v.SetDefault("nats.url", "nats://nats:4222")
	v.SetDefault("nats.enabled", true)
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("nats.reconnect_wait", "2s")

	// Redis defaults
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 10)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
