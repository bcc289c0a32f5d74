package main

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/pavanmanishd/slabpool/internal/logutil"
)

// PoolConfig shapes the pool under test.
type PoolConfig struct {
	BlockSize         int    `toml:"block-size"`
	MaxBlocks         int    `toml:"max-blocks"`
	StaticBlocks      int    `toml:"static-blocks"`
	HalfFullThreshold int    `toml:"half-full-threshold"` // 0 selects block-size / 2
	MemoryLimit       uint64 `toml:"memory-limit"`        // bytes; 0 is unlimited
}

// LoadConfig shapes the generated traffic.
type LoadConfig struct {
	Producers     int `toml:"producers"`
	Consumers     int `toml:"consumers"`
	Operations    int `toml:"operations"` // allocations per producer
	QueueCapacity int `toml:"queue-capacity"`
}

// Config is the poolstress configuration file.
type Config struct {
	Pool PoolConfig        `toml:"pool"`
	Load LoadConfig        `toml:"load"`
	Log  logutil.LogConfig `toml:"log"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Pool: PoolConfig{
			BlockSize:    64,
			MaxBlocks:    8,
			StaticBlocks: 2,
		},
		Load: LoadConfig{
			Producers:     4,
			Consumers:     4,
			Operations:    100000,
			QueueCapacity: 1024,
		},
		Log: logutil.DefaultLogConfig(),
	}
}

// LoadConfigFile overlays the TOML file at path onto the defaults.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, nil
}

// Validate checks that the configuration describes a runnable stress test.
func (c *Config) Validate() error {
	var errs []error
	if c.Pool.BlockSize < 1 {
		errs = append(errs, fmt.Errorf("pool.block-size must be positive, got %d", c.Pool.BlockSize))
	}
	if c.Pool.MaxBlocks < 1 {
		errs = append(errs, fmt.Errorf("pool.max-blocks must be positive, got %d", c.Pool.MaxBlocks))
	}
	if c.Pool.StaticBlocks < 1 || c.Pool.StaticBlocks > c.Pool.MaxBlocks {
		errs = append(errs, fmt.Errorf("pool.static-blocks must be in [1, %d], got %d",
			c.Pool.MaxBlocks, c.Pool.StaticBlocks))
	}
	if c.Pool.HalfFullThreshold < 0 {
		errs = append(errs, fmt.Errorf("pool.half-full-threshold must not be negative, got %d",
			c.Pool.HalfFullThreshold))
	}
	if c.Load.Producers < 1 || c.Load.Consumers < 1 {
		errs = append(errs, fmt.Errorf("load needs at least one producer and one consumer, got %d/%d",
			c.Load.Producers, c.Load.Consumers))
	}
	if c.Load.Operations < 1 {
		errs = append(errs, fmt.Errorf("load.operations must be positive, got %d", c.Load.Operations))
	}
	if c.Load.QueueCapacity < 1 {
		errs = append(errs, fmt.Errorf("load.queue-capacity must be positive, got %d", c.Load.QueueCapacity))
	}
	return errors.Join(errs...)
}
