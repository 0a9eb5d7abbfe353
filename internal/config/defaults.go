package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort = 8080
	DefaultServerMode = "debug"

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "sentinel"
	DefaultDBMaxConns = 25

	DefaultRedisAddr    = "localhost:6379"
	DefaultHistoryLimit = 100
	DefaultResultTTL    = time.Hour

	DefaultKafkaBroker  = "localhost:9092"
	DefaultKafkaGroupID = "sentinel-import"
	DefaultKafkaTopic   = "reference-listings"

	DefaultMilvusAddr       = "localhost:19530"
	DefaultMilvusCollection = "reference_listings"

	DefaultEmbeddingProvider  = "hash"
	DefaultEmbeddingDimension = 384

	DefaultTopK                 = 5
	DefaultPriceWeight          = 0.35
	DefaultBrandWeight          = 0.30
	DefaultDescriptionWeight    = 0.15
	DefaultDivergenceWeight     = 0.20
	DefaultPriceFloorFraction   = 0.3
	DefaultPriceDeviationRatio  = 0.5
	DefaultSimilarityFloor      = 0.5
	DefaultMinDescriptionLength = 40

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsPath = "/metrics"
)

// defaultKnownBrands seeds the brand-distortion dictionary.  Deployments are
// expected to override this list with their own catalog.
var defaultKnownBrands = []string{
	"Apple", "Samsung", "Sony", "Nike", "Adidas", "Rolex", "Gucci",
	"Louis Vuitton", "Dyson", "Bose", "Lego", "Canon", "Nintendo",
}

// ApplyDefaults fills every zero-value field in cfg with the service default.
// Fields that have already been set by the caller (non-zero values) are left
// unchanged so that explicit configuration always wins.  It must be called
// after unmarshalling raw config data and before Validate().
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.HistoryLimit == 0 {
		cfg.Redis.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.Redis.ResultTTL == 0 {
		cfg.Redis.ResultTTL = DefaultResultTTL
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "sentinel"
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}
	if cfg.Kafka.MinBytes == 0 {
		cfg.Kafka.MinBytes = 1
	}
	if cfg.Kafka.MaxBytes == 0 {
		cfg.Kafka.MaxBytes = 10 << 20
	}

	// ── Milvus ────────────────────────────────────────────────────────────────
	if cfg.Milvus.Addr == "" {
		cfg.Milvus.Addr = DefaultMilvusAddr
	}
	if cfg.Milvus.Collection == "" {
		cfg.Milvus.Collection = DefaultMilvusCollection
	}
	if cfg.Milvus.HNSWM == 0 {
		cfg.Milvus.HNSWM = 16
	}
	if cfg.Milvus.HNSWEfConstruction == 0 {
		cfg.Milvus.HNSWEfConstruction = 200
	}
	if cfg.Milvus.SearchEf == 0 {
		cfg.Milvus.SearchEf = 64
	}

	// ── Embedding ─────────────────────────────────────────────────────────────
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = DefaultEmbeddingProvider
	}
	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = DefaultEmbeddingDimension
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 15 * time.Second
	}

	// ── Explain ───────────────────────────────────────────────────────────────
	if cfg.Explain.Model == "" {
		cfg.Explain.Model = "gpt-4o-mini"
	}
	if cfg.Explain.Timeout == 0 {
		cfg.Explain.Timeout = 30 * time.Second
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	applyEngineDefaults(&cfg.Engine)

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
}

func applyEngineDefaults(e *EngineConfig) {
	if e.TopK == 0 {
		e.TopK = DefaultTopK
	}
	if e.PriceWeight == 0 {
		e.PriceWeight = DefaultPriceWeight
	}
	if e.BrandWeight == 0 {
		e.BrandWeight = DefaultBrandWeight
	}
	if e.DescriptionWeight == 0 {
		e.DescriptionWeight = DefaultDescriptionWeight
	}
	if e.DivergenceWeight == 0 {
		e.DivergenceWeight = DefaultDivergenceWeight
	}
	if e.PriceFloorFraction == 0 {
		e.PriceFloorFraction = DefaultPriceFloorFraction
	}
	if e.PriceDeviationRatio == 0 {
		e.PriceDeviationRatio = DefaultPriceDeviationRatio
	}
	if e.SimilarityFloor == 0 {
		e.SimilarityFloor = DefaultSimilarityFloor
	}
	if e.MinDescriptionLength == 0 {
		e.MinDescriptionLength = DefaultMinDescriptionLength
	}
	if len(e.KnownBrands) == 0 {
		e.KnownBrands = append([]string(nil), defaultKnownBrands...)
	}
}
