package state

import (
	"fmt"
	"strings"
	"time"
)

// Supported storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
)

// Config selects and tunes the session backend.
type Config struct {
	Driver string `yaml:"driver" envconfig:"STORAGE_DRIVER"`
	// SessionTTL expires untouched sessions. Only the redis driver enforces it.
	SessionTTL time.Duration `yaml:"session_ttl" envconfig:"SESSION_TTL"`
	SQLitePath string        `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds connection settings for the redis driver.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
}

// Normalize fills defaults and validates the driver selection.
func (c *Config) Normalize() error {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	if c.Driver == "" {
		c.Driver = DriverMemory
	}
	switch c.Driver {
	case DriverMemory, DriverPostgres:
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			c.SQLitePath = "data/sessions.db"
		}
	case DriverRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			c.Redis.Addr = "localhost:6379"
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Driver)
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("session_ttl must not be negative")
	}
	return nil
}
