// Package config loads pitradio settings from YAML or TOML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Namespace     string        `yaml:"namespace" toml:"namespace"`
	Listen        string        `yaml:"listen" toml:"listen"`
	RecordCodec   string        `yaml:"record_codec" toml:"record_codec"`
	TTL           time.Duration `yaml:"ttl" toml:"ttl"`
	MaxFrameBytes int           `yaml:"max_frame_bytes" toml:"max_frame_bytes"`
	Disabled      bool          `yaml:"disabled" toml:"disabled"`

	Log      LogConfig      `yaml:"log" toml:"log"`
	Provider ProviderConfig `yaml:"provider" toml:"provider"`
	SeqStore SeqStoreConfig `yaml:"seq_store" toml:"seq_store"`
	Hooks    HooksConfig    `yaml:"hooks" toml:"hooks"`
	Kafka    KafkaConfig    `yaml:"kafka" toml:"kafka"`
}

type LogConfig struct {
	Backend string `yaml:"backend" toml:"backend"` // zap | logrus | slog | zerolog
	Level   string `yaml:"level" toml:"level"`
}

type ProviderConfig struct {
	Kind      string          `yaml:"kind" toml:"kind"` // ristretto | bigcache | redis | badger
	Ristretto RistrettoConfig `yaml:"ristretto" toml:"ristretto"`
	Bigcache  BigcacheConfig  `yaml:"bigcache" toml:"bigcache"`
	Redis     RedisConfig     `yaml:"redis" toml:"redis"`
	Badger    BadgerConfig    `yaml:"badger" toml:"badger"`
}

type RistrettoConfig struct {
	NumCounters int64 `yaml:"num_counters" toml:"num_counters"`
	MaxCost     int64 `yaml:"max_cost" toml:"max_cost"`
	BufferItems int64 `yaml:"buffer_items" toml:"buffer_items"`
	Metrics     bool  `yaml:"metrics" toml:"metrics"`
}

type BigcacheConfig struct {
	LifeWindow         time.Duration `yaml:"life_window" toml:"life_window"`
	CleanWindow        time.Duration `yaml:"clean_window" toml:"clean_window"`
	MaxEntriesInWindow int           `yaml:"max_entries_in_window" toml:"max_entries_in_window"`
	MaxEntrySize       int           `yaml:"max_entry_size" toml:"max_entry_size"`
	HardMaxCacheSizeMB int           `yaml:"hard_max_cache_size_mb" toml:"hard_max_cache_size_mb"`
}

type RedisConfig struct {
	Addrs    []string `yaml:"addrs" toml:"addrs"`
	Password string   `yaml:"password" toml:"password"`
	DB       int      `yaml:"db" toml:"db"`
	Prefix   string   `yaml:"prefix" toml:"prefix"` // provider keys only
}

type BadgerConfig struct {
	Dir        string `yaml:"dir" toml:"dir"`
	InMemory   bool   `yaml:"in_memory" toml:"in_memory"`
	SyncWrites bool   `yaml:"sync_writes" toml:"sync_writes"`
}

type SeqStoreConfig struct {
	Kind  string        `yaml:"kind" toml:"kind"` // local | redis
	TTL   time.Duration `yaml:"ttl" toml:"ttl"`
	Redis RedisConfig   `yaml:"redis" toml:"redis"`
}

type HooksConfig struct {
	Metrics       bool   `yaml:"metrics" toml:"metrics"`
	LogEvents     bool   `yaml:"log_events" toml:"log_events"`
	SelfHealEvery uint64 `yaml:"self_heal_every" toml:"self_heal_every"`
	AsyncWorkers  int    `yaml:"async_workers" toml:"async_workers"` // 0 => synchronous
	AsyncQueue    int    `yaml:"async_queue" toml:"async_queue"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers" toml:"brokers"`
	Topic   string   `yaml:"topic" toml:"topic"`
	GroupID string   `yaml:"group_id" toml:"group_id"`
}

// Default returns an in-memory, single-process setup.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads path, picking the format from its extension.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	cfg, err := Parse(data, formatOf(path))
	if err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return cfg, nil
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return "toml"
	default:
		return "yaml"
	}
}

// Parse decodes data as "yaml" or "toml", applies defaults and validates.
// Unknown keys are rejected.
func Parse(data []byte, format string) (Config, error) {
	var cfg Config
	switch format {
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, err
		}
	case "toml":
		meta, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return Config{}, err
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("unknown keys: %v", undecoded)
		}
	default:
		return Config{}, fmt.Errorf("unsupported config format %q", format)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Namespace == "" {
		cfg.Namespace = "radio"
	}
	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
	if cfg.RecordCodec == "" {
		cfg.RecordCodec = "json"
	}
	if cfg.Log.Backend == "" {
		cfg.Log.Backend = "zap"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Provider.Kind == "" {
		cfg.Provider.Kind = "ristretto"
	}
	r := &cfg.Provider.Ristretto
	if r.NumCounters == 0 {
		r.NumCounters = 1e5
	}
	if r.MaxCost == 0 {
		r.MaxCost = 64 << 20
	}
	if r.BufferItems == 0 {
		r.BufferItems = 64
	}
	if cfg.Provider.Bigcache.LifeWindow == 0 {
		cfg.Provider.Bigcache.LifeWindow = 24 * time.Hour
	}
	if cfg.SeqStore.Kind == "" {
		cfg.SeqStore.Kind = "local"
	}
	if len(cfg.SeqStore.Redis.Addrs) == 0 {
		cfg.SeqStore.Redis = cfg.Provider.Redis
	}
}

func (cfg Config) Validate() error {
	if strings.TrimSpace(cfg.Namespace) == "" {
		return errors.New("config missing namespace")
	}
	if cfg.MaxFrameBytes < 0 {
		return errors.New("max_frame_bytes must not be negative")
	}
	if _, err := recordCodec(cfg.RecordCodec); err != nil {
		return err
	}
	switch cfg.Log.Backend {
	case "zap", "logrus", "slog", "zerolog":
	default:
		return fmt.Errorf("unknown log backend %q", cfg.Log.Backend)
	}
	switch cfg.Provider.Kind {
	case "ristretto", "bigcache":
	case "redis":
		if len(cfg.Provider.Redis.Addrs) == 0 {
			return errors.New("provider.redis.addrs is required")
		}
	case "badger":
		if cfg.Provider.Badger.Dir == "" && !cfg.Provider.Badger.InMemory {
			return errors.New("provider.badger.dir is required unless in_memory")
		}
	default:
		return fmt.Errorf("unknown provider kind %q", cfg.Provider.Kind)
	}
	switch cfg.SeqStore.Kind {
	case "local":
	case "redis":
		if len(cfg.SeqStore.Redis.Addrs) == 0 {
			return errors.New("seq_store.redis.addrs is required")
		}
	default:
		return fmt.Errorf("unknown seq store kind %q", cfg.SeqStore.Kind)
	}
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Topic == "" {
		return errors.New("kafka.topic is required when brokers are set")
	}
	return nil
}
