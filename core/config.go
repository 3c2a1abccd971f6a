package core

import (
	"os"
	"time"

	yaml "github.com/goccy/go-yaml"
)

// Config mirrors dispatch.yaml and carries the tuning knobs of the
// front-ends. Zero values fall back to defaults.
type Config struct {
	// WorkerWakeMS is the serial worker's periodic wake interval in
	// milliseconds. The worker mostly sleeps on the engine; the periodic
	// wake only bounds how long a signal-less dispose can go unnoticed.
	WorkerWakeMS int `yaml:"worker_wake_ms"` // 3600000 (1h) by default

	// PoolWorkerWakeMS is the pool workers' wake interval in milliseconds.
	PoolWorkerWakeMS int `yaml:"pool_worker_wake_ms"` // 1000 by default

	// PoolSize is the default pool worker count. 0 selects the hardware
	// concurrency hint.
	PoolSize int `yaml:"pool_size"`

	// HistoryCapacity bounds the per-queue execution history ring.
	HistoryCapacity int `yaml:"history_capacity"` // 100 by default
}

// DefaultConfig returns the built-in tuning values.
func DefaultConfig() Config {
	return Config{
		WorkerWakeMS:     3600000,
		PoolWorkerWakeMS: 1000,
		PoolSize:         0,
		HistoryCapacity:  defaultHistoryCapacity,
	}
}

// LoadConfig reads YAML and overrides defaults; empty path = defaults only.
// A missing or malformed file falls back to defaults for the affected keys.
func LoadConfig(path string) Config {
	cfg := DefaultConfig()

	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	_ = yaml.Unmarshal(data, &cfg)

	// sanity clamps
	if cfg.WorkerWakeMS <= 0 {
		cfg.WorkerWakeMS = DefaultConfig().WorkerWakeMS
	}
	if cfg.PoolWorkerWakeMS <= 0 {
		cfg.PoolWorkerWakeMS = DefaultConfig().PoolWorkerWakeMS
	}
	if cfg.PoolSize < 0 {
		cfg.PoolSize = 0
	}
	if cfg.HistoryCapacity <= 0 {
		cfg.HistoryCapacity = defaultHistoryCapacity
	}

	return cfg
}

func (c Config) workerWake() time.Duration {
	return time.Duration(c.WorkerWakeMS) * time.Millisecond
}

func (c Config) poolWorkerWake() time.Duration {
	return time.Duration(c.PoolWorkerWakeMS) * time.Millisecond
}
