// Package config defines all configuration structures for listing-sentinel.
// No I/O or parsing logic lives here — only plain data types and validation.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	ResultTTL    time.Duration `mapstructure:"result_ttl"`
	HistoryLimit int           `mapstructure:"history_limit"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds Apache Kafka consumer parameters for the import worker.
type KafkaConfig struct {
	Brokers         []string `mapstructure:"brokers"`
	GroupID         string   `mapstructure:"group_id"`
	Topic           string   `mapstructure:"topic"`
	AutoOffsetReset string   `mapstructure:"auto_offset_reset"` // "earliest" | "latest"
	MinBytes        int      `mapstructure:"min_bytes"`
	MaxBytes        int      `mapstructure:"max_bytes"`
}

// MilvusConfig holds Milvus vector-store connection parameters.  Milvus is an
// optional backend for neighbor search; when disabled, the in-memory index
// hydrated from PostgreSQL serves all queries.
type MilvusConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	Addr               string `mapstructure:"addr"`
	DBName             string `mapstructure:"db_name"`
	Collection         string `mapstructure:"collection"`
	HNSWM              int    `mapstructure:"hnsw_m"`
	HNSWEfConstruction int    `mapstructure:"hnsw_ef_construction"`
	SearchEf           int    `mapstructure:"search_ef"`
}

// Embedding provider names accepted by EmbeddingConfig.Provider.
const (
	EmbeddingProviderHash   = "hash"
	EmbeddingProviderOpenAI = "openai"
)

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	// Provider is "hash" for the deterministic local embedder or "openai" for
	// an OpenAI-compatible embedding endpoint.
	Provider  string        `mapstructure:"provider"`
	Dimension int           `mapstructure:"dimension"`
	Model     string        `mapstructure:"model"`
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// ExplainConfig tunes the optional LLM explanation layer.  The generated text
// never influences the deterministic risk score.
type ExplainConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// EngineConfig holds the risk engine tunables: aggregation weights, heuristic
// thresholds, and the reference dictionaries used by the brand and price
// extractors.
type EngineConfig struct {
	// TopK is the number of nearest neighbors retrieved per analysis.
	TopK int `mapstructure:"top_k"`

	// Aggregation weights per signal category.  They intentionally sum to
	// less than or equal to 1 and are never renormalized: absent evidence
	// lowers the score.
	PriceWeight       float64 `mapstructure:"price_weight"`
	BrandWeight       float64 `mapstructure:"brand_weight"`
	DescriptionWeight float64 `mapstructure:"description_weight"`
	DivergenceWeight  float64 `mapstructure:"divergence_weight"`

	// PriceFloorFraction flags listings priced below this fraction of the
	// expected price for their brand.
	PriceFloorFraction float64 `mapstructure:"price_floor_fraction"`

	// PriceDeviationRatio flags listings priced below this fraction of the
	// median price of their retrieved neighbors.
	PriceDeviationRatio float64 `mapstructure:"price_deviation_ratio"`

	// SimilarityFloor is the minimum top-neighbor similarity below which a
	// semantic-divergence signal is emitted.
	SimilarityFloor float64 `mapstructure:"similarity_floor"`

	// MinDescriptionLength is the length below which a description is treated
	// as suspiciously thin.
	MinDescriptionLength int `mapstructure:"min_description_length"`

	// KnownBrands is the dictionary checked by the brand-distortion extractor.
	KnownBrands []string `mapstructure:"known_brands"`

	// ExpectedPrices maps a lowercase brand name to its typical price point,
	// used by the heuristic price-plausibility extractor.
	ExpectedPrices map[string]float64 `mapstructure:"expected_prices"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level            string `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format           string `mapstructure:"format"` // "json" | "console"
	Output           string `mapstructure:"output"`
	EnableCaller     bool   `mapstructure:"enable_caller"`
	EnableStacktrace bool   `mapstructure:"enable_stacktrace"`
}

// MetricsConfig holds Prometheus exposition parameters.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure for the entire service.
// Every infrastructure component and engine layer reads its settings from the
// relevant sub-struct.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Milvus    MilvusConfig    `mapstructure:"milvus"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Explain   ExplainConfig   `mapstructure:"explain"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start the application.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	// Database
	if c.Database.Host == "" {
		return fmt.Errorf("config: database.host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
	}
	if c.Database.User == "" {
		return fmt.Errorf("config: database.user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("config: database.db_name is required")
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("config: database.max_conns must be >= 1, got %d", c.Database.MaxConns)
	}

	// Redis
	if c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be >= 0, got %d", c.Redis.DB)
	}

	// Kafka
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
	}
	if c.Kafka.GroupID == "" {
		return fmt.Errorf("config: kafka.group_id is required")
	}

	// Milvus
	if c.Milvus.Enabled && c.Milvus.Addr == "" {
		return fmt.Errorf("config: milvus.addr is required when milvus is enabled")
	}

	// Embedding
	switch c.Embedding.Provider {
	case EmbeddingProviderHash, EmbeddingProviderOpenAI:
	default:
		return fmt.Errorf("config: embedding.provider %q is invalid; expected hash|openai", c.Embedding.Provider)
	}
	if c.Embedding.Dimension < 1 {
		return fmt.Errorf("config: embedding.dimension must be >= 1, got %d", c.Embedding.Dimension)
	}
	if c.Embedding.Provider == EmbeddingProviderOpenAI && c.Embedding.APIKey == "" {
		return fmt.Errorf("config: embedding.api_key is required when provider is openai")
	}

	// Engine
	if err := c.Engine.validate(); err != nil {
		return err
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}

func (e *EngineConfig) validate() error {
	if e.TopK < 1 {
		return fmt.Errorf("config: engine.top_k must be >= 1, got %d", e.TopK)
	}
	for name, w := range map[string]float64{
		"engine.price_weight":       e.PriceWeight,
		"engine.brand_weight":       e.BrandWeight,
		"engine.description_weight": e.DescriptionWeight,
		"engine.divergence_weight":  e.DivergenceWeight,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("config: %s %.3f is out of range [0, 1]", name, w)
		}
	}
	for name, f := range map[string]float64{
		"engine.price_floor_fraction":  e.PriceFloorFraction,
		"engine.price_deviation_ratio": e.PriceDeviationRatio,
		"engine.similarity_floor":      e.SimilarityFloor,
	} {
		if f <= 0 || f >= 1 {
			return fmt.Errorf("config: %s %.3f is out of range (0, 1)", name, f)
		}
	}
	return nil
}
