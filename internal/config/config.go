package config

import "time"

// Config is the root configuration for an ARES market data instance.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Cache    CacheConfig    `yaml:"cache"`
	Database DBConfig       `yaml:"database"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Poller   PollerConfig   `yaml:"poller"`
	Server   ServerConfig   `yaml:"server"`
}

// ProviderConfig holds market data provider settings.
type ProviderConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"` // Sent verbatim as the Authorization header
	Timeout time.Duration `yaml:"timeout"`
}

// Cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
	CacheBackendNone   = "none"
)

// CacheConfig holds snapshot cache settings.
type CacheConfig struct {
	Backend         string        `yaml:"backend"` // memory, redis or none
	TTL             time.Duration `yaml:"ttl"`
	MaxEntries      int           `yaml:"max_entries"` // memory backend only
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	ReadThrough     bool          `yaml:"read_through"`
	Redis           RedisConfig   `yaml:"redis"`
}

// RedisConfig holds the Redis connection for the redis cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// DBConfig holds the PostgreSQL connection for the snapshot archive.
type DBConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// ArchiveConfig holds snapshot archive batch writer settings.
type ArchiveConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// PollerConfig holds snapshot poller settings.
type PollerConfig struct {
	Markets     []string      `yaml:"markets"`
	Interval    time.Duration `yaml:"interval"`
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ServerConfig holds the health and metrics HTTP server settings.
type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPath string `yaml:"metrics_path"`
}
