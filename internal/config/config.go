package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	minJWTSecretLength     = 32
	minUniqueCharsInSecret = 16
	// A full batch is one multi-row INSERT: 12 bind parameters per event
	// against the Postgres limit of 65535.
	maxAuditBatchSize = 5000

	errPortRequiredFmt         = "PORT must be set"
	errJWTSecretRequiredFmt    = "JWT_SECRET must be set"
	errJWTSecretMinLengthFmt   = "JWT_SECRET must be at least %d characters"
	errJWTSecretLowEntropyFmt  = "JWT_SECRET has insufficient entropy (appears non-random). Use a cryptographically secure random string."
	errDBConnsFmt              = "DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)"
	errRedisURLSchemeFmt       = "REDIS_URL must use redis:// or rediss://, got %q"
	errCacheTTLFmt             = "PRINCIPAL_CACHE_TTL must be positive, got %s"
	errAuditBatchSizeFmt       = "AUDIT_BATCH_SIZE must be between 1 and %d, got %d"
	errAuditFlushIntervalFmt   = "AUDIT_FLUSH_INTERVAL must be positive, got %s"
	errAuditBufferFmt          = "AUDIT_BUFFER must be positive, got %d"
	errAuditRegionRequiredFmt  = "AUDIT_S3_REGION must be set when AUDIT_S3_BUCKET is set"
	errRateLimitFmt            = "RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"
	errLogLevelFmt             = "LOG_LEVEL must be one of debug, info, warn, error, got %q"
	errLogFormatFmt            = "LOG_FORMAT must be json or text, got %q"
	errParseEnvironmentFmt     = "parse environment: %w"
	errInvalidConfigurationFmt = "invalid configuration: %w"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Policy    PolicyConfig
	Audit     AuditConfig
	Telemetry TelemetryConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	Profiling       bool          `env:"ENABLE_PROFILING"`
}

// DatabaseConfig describes the role store. An empty Host disables it.
type DatabaseConfig struct {
	Host     string `env:"DB_HOST"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	Database string `env:"DB_NAME" envDefault:"authz"`
	User     string `env:"DB_USER" envDefault:"authz_app"`
	Password string `env:"DB_PASSWORD"`
	SSLMode  string `env:"DB_SSL_MODE" envDefault:"disable"`
	MaxConns int    `env:"DB_MAX_CONNS" envDefault:"10"`
	MinConns int    `env:"DB_MIN_CONNS" envDefault:"2"`
}

// RedisConfig enables the shared principal cache when URL is set
type RedisConfig struct {
	URL string `env:"REDIS_URL"`
}

type JWTConfig struct {
	Secret string        `env:"JWT_SECRET,required,notEmpty"`
	Issuer string        `env:"JWT_ISSUER"`
	Expiry time.Duration `env:"JWT_EXPIRY" envDefault:"1h"`
}

type PolicyConfig struct {
	File     string        `env:"POLICY_FILE"`
	CacheTTL time.Duration `env:"PRINCIPAL_CACHE_TTL" envDefault:"5m"`
}

type AuditConfig struct {
	Bucket        string        `env:"AUDIT_S3_BUCKET"`
	Region        string        `env:"AUDIT_S3_REGION" envDefault:"us-east-1"`
	Prefix        string        `env:"AUDIT_S3_PREFIX" envDefault:"audit"`
	BatchSize     int           `env:"AUDIT_BATCH_SIZE" envDefault:"100"`
	FlushInterval time.Duration `env:"AUDIT_FLUSH_INTERVAL" envDefault:"5s"`
	Buffer        int           `env:"AUDIT_BUFFER" envDefault:"1024"`
}

type TelemetryConfig struct {
	Endpoint string `env:"OTEL_ENDPOINT"`
}

type RateLimitConfig struct {
	RPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"50"`
	Burst int     `env:"RATE_LIMIT_BURST" envDefault:"100"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads the configuration from the environment and validates it
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf(errParseEnvironmentFmt, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf(errInvalidConfigurationFmt, err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf(errPortRequiredFmt)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf(errJWTSecretRequiredFmt)
	}

	if len(c.JWT.Secret) < minJWTSecretLength {
		return fmt.Errorf(errJWTSecretMinLengthFmt, minJWTSecretLength)
	}

	if !hasMinimumEntropy(c.JWT.Secret) {
		return fmt.Errorf(errJWTSecretLowEntropyFmt)
	}

	if c.Database.Enabled() && c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf(errDBConnsFmt, c.Database.MinConns, c.Database.MaxConns)
	}

	if c.Redis.URL != "" {
		u, err := url.Parse(c.Redis.URL)
		if err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
			return fmt.Errorf(errRedisURLSchemeFmt, c.Redis.URL)
		}
	}

	if c.Policy.CacheTTL <= 0 {
		return fmt.Errorf(errCacheTTLFmt, c.Policy.CacheTTL)
	}

	if c.Audit.BatchSize < 1 || c.Audit.BatchSize > maxAuditBatchSize {
		return fmt.Errorf(errAuditBatchSizeFmt, maxAuditBatchSize, c.Audit.BatchSize)
	}

	if c.Audit.FlushInterval <= 0 {
		return fmt.Errorf(errAuditFlushIntervalFmt, c.Audit.FlushInterval)
	}

	if c.Audit.Buffer < 1 {
		return fmt.Errorf(errAuditBufferFmt, c.Audit.Buffer)
	}

	if c.Audit.ArchiveEnabled() && c.Audit.Region == "" {
		return fmt.Errorf(errAuditRegionRequiredFmt)
	}

	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1 {
		return fmt.Errorf(errRateLimitFmt)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf(errLogLevelFmt, c.Log.Level)
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf(errLogFormatFmt, c.Log.Format)
	}

	return nil
}

func hasMinimumEntropy(secret string) bool {
	charCounts := make(map[rune]int)
	for _, char := range secret {
		charCounts[char]++
	}
	return len(charCounts) >= minUniqueCharsInSecret
}

// Enabled reports whether a database host is configured
func (c *DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// ArchiveEnabled reports whether audit batches are archived to S3
func (c *AuditConfig) ArchiveEnabled() bool {
	return c.Bucket != ""
}
