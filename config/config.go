// Package config loads the settings shared by the allocator, accumulators,
// block storage and logging.
package config

import (
	"bytes"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/tchajed/durable/alloc"
	"github.com/tchajed/durable/durable"
	"github.com/tchajed/durable/logging"
)

// Store kinds.
const (
	StoreMem     = "mem"
	StoreDir     = "dir"
	StoreLevelDB = "leveldb"
)

type AllocConfig struct {
	MaxPooledBytes int    `yaml:"max_pooled_bytes"`
	LimitBytes     int64  `yaml:"limit_bytes"`
	Name           string `yaml:"name"`
}

type StoreConfig struct {
	// Kind is one of mem, dir or leveldb.
	Kind string `yaml:"kind"`
	// Path is the directory for dir and leveldb stores.
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type Config struct {
	Buffer durable.Options `yaml:"buffer"`
	Alloc  AllocConfig     `yaml:"alloc"`
	Store  StoreConfig     `yaml:"store"`
	Log    LogConfig       `yaml:"log"`
}

// Defaults is an in-memory store with standard buffer sizes.
func Defaults() Config {
	return Config{
		Buffer: durable.DefaultOptions(),
		Alloc: AllocConfig{
			MaxPooledBytes: alloc.DefaultMaxPooledBytes,
			Name:           "default",
		},
		Store: StoreConfig{Kind: StoreMem},
		Log:   LogConfig{Level: "info"},
	}
}

// Parse decodes YAML over Defaults and validates the result. Unknown fields
// are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Defaults()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// an empty document keeps the defaults
	if err := dec.Decode(&cfg); err != nil && len(bytes.TrimSpace(data)) > 0 {
		return Config{}, errors.Wrap(err, "config: decode")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadYAML reads and parses the file at path, then applies environment
// overrides with the given prefix (see ApplyEnv).
func LoadYAML(path string, envPrefix string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config: read %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config: %s", path)
	}
	cfg.ApplyEnv(envPrefix)
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from PREFIX_STORE_KIND, PREFIX_STORE_PATH and
// PREFIX_LOG_LEVEL when they are set.
func (c *Config) ApplyEnv(prefix string) {
	if prefix == "" {
		return
	}
	for name, field := range map[string]*string{
		"_STORE_KIND": &c.Store.Kind,
		"_STORE_PATH": &c.Store.Path,
		"_LOG_LEVEL":  &c.Log.Level,
	} {
		if v, ok := os.LookupEnv(prefix + name); ok {
			*field = v
		}
	}
}

// Marshal encodes c as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func (c Config) Validate() error {
	if err := c.Buffer.Validate(); err != nil {
		return err
	}
	if c.Alloc.LimitBytes < 0 {
		return errors.Errorf("config: negative alloc limit %d", c.Alloc.LimitBytes)
	}
	switch c.Store.Kind {
	case StoreMem:
	case StoreDir, StoreLevelDB:
		if c.Store.Path == "" {
			return errors.Errorf("config: %s store needs a path", c.Store.Kind)
		}
	default:
		return errors.Errorf("config: unknown store kind %q", c.Store.Kind)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "config: log level")
	}
	return nil
}

func (c Config) BufferOptions() durable.Options {
	return c.Buffer
}

func (c Config) NewPool() *alloc.Pool {
	return alloc.NewPool(alloc.PoolConfig{
		MaxPooledBytes: c.Alloc.MaxPooledBytes,
		LimitBytes:     c.Alloc.LimitBytes,
		Name:           c.Alloc.Name,
	})
}

// LogLevel is the configured level, or info if it does not parse.
func (c Config) LogLevel() slog.Level {
	l, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}
