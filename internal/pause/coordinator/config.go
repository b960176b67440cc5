package coordinator

import "time"

// Config controls batch sizing and per-call timeouts.
type Config struct {
	BatchSize     int
	WindowTimeout time.Duration
	LockKey       string
	LockTTL       time.Duration
}

func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		WindowTimeout: 30 * time.Second,
		LockKey:       "revroute:pause_batch:lock",
		LockTTL:       10 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.WindowTimeout <= 0 {
		c.WindowTimeout = defaults.WindowTimeout
	}
	if c.LockKey == "" {
		c.LockKey = defaults.LockKey
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	return c
}
