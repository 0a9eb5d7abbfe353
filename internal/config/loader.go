// Package config provides configuration loading, defaults, and validation for
// listing-sentinel.
package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all service settings.
const envPrefix = "SENTINEL"

// newViper builds a pre-configured Viper instance with the service's standard
// settings: YAML file type, SENTINEL_ env prefix, automatic env binding, and a
// key replacer that maps "." → "_" so that nested keys like "database.host"
// resolve to "SENTINEL_DATABASE_HOST".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	registerKeys(v)
	return v
}

// registerKeys declares every leaf key to viper with a zero default so that
// AutomaticEnv can resolve SENTINEL_* variables during Unmarshal even when no
// config file mentions the key.  Real defaults are filled later by
// ApplyDefaults, which treats these zero values as unset.
func registerKeys(v *viper.Viper) {
	for _, key := range []string{
		"server.port", "server.mode", "server.read_timeout", "server.write_timeout",
		"server.max_body_size", "server.shutdown_timeout",
		"database.host", "database.port", "database.user", "database.password",
		"database.db_name", "database.ssl_mode", "database.max_conns", "database.min_conns",
		"database.conn_max_lifetime", "database.conn_max_idle_time", "database.migration_path",
		"redis.addr", "redis.password", "redis.db", "redis.pool_size", "redis.min_idle_conns",
		"redis.dial_timeout", "redis.read_timeout", "redis.write_timeout",
		"redis.result_ttl", "redis.history_limit", "redis.key_prefix",
		"kafka.brokers", "kafka.group_id", "kafka.topic", "kafka.auto_offset_reset",
		"kafka.min_bytes", "kafka.max_bytes",
		"milvus.enabled", "milvus.addr", "milvus.db_name", "milvus.collection",
		"milvus.hnsw_m", "milvus.hnsw_ef_construction", "milvus.search_ef",
		"embedding.provider", "embedding.dimension", "embedding.model",
		"embedding.base_url", "embedding.api_key", "embedding.timeout",
		"explain.enabled", "explain.model", "explain.base_url", "explain.api_key",
		"explain.temperature", "explain.timeout",
		"engine.top_k", "engine.price_weight", "engine.brand_weight",
		"engine.description_weight", "engine.divergence_weight",
		"engine.price_floor_fraction", "engine.price_deviation_ratio",
		"engine.similarity_floor", "engine.min_description_length",
		"engine.known_brands", "engine.expected_prices",
		"log.level", "log.format", "log.output", "log.enable_caller", "log.enable_stacktrace",
		"metrics.enabled", "metrics.path",
	} {
		v.SetDefault(key, nil)
	}
}

// Load reads the YAML file at configPath, merges any SENTINEL_* environment
// variable overrides, applies defaults for unset fields, and validates the
// result.  It returns a fully-populated *Config or a descriptive error.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from SENTINEL_* environment variables,
// with no config file required.  This is the preferred loading strategy for
// containerised (12-factor) deployments.
//
// Environment variable naming convention:
//
//	SENTINEL_<SECTION>_<FIELD>   e.g.  SENTINEL_DATABASE_HOST, SENTINEL_REDIS_ADDR
func LoadFromEnv() (*Config, error) {
	v := newViper()
	// No config file — rely solely on env vars and defaults.
	return unmarshalAndFinalize(v)
}

// unmarshalAndFinalize unmarshals viper state into a Config struct, applies
// defaults, and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath for changes and invokes onChange with the newly
// parsed Config whenever the file is modified on disk.  It is intended for
// hot-reloading non-critical settings such as log level and engine weights;
// callers are responsible for applying only the safe subset of changes at
// runtime.
//
// Watch is non-blocking; it starts a background goroutine managed by viper.
// If the changed file fails to parse or validate, onChange is NOT called.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)

	// Initial read — errors are ignored here; callers should call Load first.
	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			// Config change produced an invalid config; skip the callback to
			// prevent the application from entering a broken state.
			return
		}
		onChange(cfg)
	})
}

// MustLoad is a convenience wrapper around Load that panics on any error.
// It is intended for use in main() where a config-load failure is always fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
