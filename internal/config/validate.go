package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Provider.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("provider.base_url must be an absolute http(s) URL, got %q", c.Provider.BaseURL)
	}
	if c.Provider.Timeout <= 0 {
		return errors.New("provider.timeout must be > 0")
	}

	if err := c.Cache.validate(); err != nil {
		return err
	}

	if c.Database.Enabled {
		if err := c.Database.validate("database"); err != nil {
			return err
		}
		if c.Archive.BatchSize < 1 {
			return errors.New("archive.batch_size must be >= 1")
		}
		if c.Archive.FlushInterval <= 0 {
			return errors.New("archive.flush_interval must be > 0")
		}
	}

	for i, id := range c.Poller.Markets {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("poller.markets[%d] must not be empty", i)
		}
	}
	if c.Poller.Interval <= 0 {
		return errors.New("poller.interval must be > 0")
	}
	if c.Poller.Concurrency < 1 {
		return errors.New("poller.concurrency must be >= 1")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if !strings.HasPrefix(c.Server.MetricsPath, "/") {
		return fmt.Errorf("server.metrics_path must start with /, got %q", c.Server.MetricsPath)
	}

	return nil
}

func (c *CacheConfig) validate() error {
	switch c.Backend {
	case CacheBackendMemory:
		if c.MaxEntries < 1 {
			return errors.New("cache.max_entries must be >= 1")
		}
	case CacheBackendRedis:
		if c.Redis.Addr == "" {
			return errors.New("cache.redis.addr is required")
		}
	case CacheBackendNone:
		if c.ReadThrough {
			return errors.New("cache.read_through requires a cache backend")
		}
		return nil
	default:
		return fmt.Errorf("cache.backend must be one of memory, redis, none, got %q", c.Backend)
	}
	if c.TTL < 0 {
		return errors.New("cache.ttl must be >= 0")
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
