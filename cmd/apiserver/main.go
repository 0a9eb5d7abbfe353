// Command apiserver runs the listing-sentinel REST API: analysis, reference
// imports, history, health, and Prometheus metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/trustside/listing-sentinel/internal/config"
	"github.com/trustside/listing-sentinel/internal/engine"
	"github.com/trustside/listing-sentinel/internal/engine/aggregate"
	"github.com/trustside/listing-sentinel/internal/engine/index"
	"github.com/trustside/listing-sentinel/internal/infrastructure/database/postgres"
	redisdb "github.com/trustside/listing-sentinel/internal/infrastructure/database/redis"
	"github.com/trustside/listing-sentinel/internal/infrastructure/embedding"
	"github.com/trustside/listing-sentinel/internal/infrastructure/explain"
	"github.com/trustside/listing-sentinel/internal/infrastructure/monitoring/logging"
	"github.com/trustside/listing-sentinel/internal/infrastructure/monitoring/prometheus"
	"github.com/trustside/listing-sentinel/internal/infrastructure/search/milvus"
	httpserver "github.com/trustside/listing-sentinel/internal/interfaces/http"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	log, err := logging.NewLogger(logging.LogConfig{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPaths: outputPaths(cfg.Log.Output),
	})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	logging.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting listing-sentinel api server",
		logging.Int("port", cfg.Server.Port),
		logging.String("embedding_provider", cfg.Embedding.Provider),
		logging.Bool("milvus", cfg.Milvus.Enabled),
	)

	// PostgreSQL holds the verified reference corpus.
	pg, err := postgres.NewConnection(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer pg.Close()
	if err := pg.RunMigrations(); err != nil {
		return err
	}
	repo := postgres.NewListingRepository(pg.Pool())

	// Redis caches analysis results and keeps the rolling history.
	rdb, err := redisdb.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		return err
	}
	defer rdb.Close()
	results := redisdb.NewResultStore(rdb, cfg.Redis.KeyPrefix, cfg.Redis.ResultTTL, cfg.Redis.HistoryLimit)

	embedder, err := embedding.FromConfig(&cfg.Embedding)
	if err != nil {
		return err
	}

	components := map[string]httpserver.HealthChecker{
		"postgres": pg,
		"redis":    rdb,
	}

	// Neighbor search backend: Milvus when enabled, otherwise the in-memory
	// cosine index hydrated from PostgreSQL at startup.
	var (
		searcher index.Searcher
		sink     engine.ReferenceSink
	)
	if cfg.Milvus.Enabled {
		store, merr := milvus.NewStore(ctx, cfg.Milvus, embedder.Dimension(), repo, log)
		if merr != nil {
			return merr
		}
		defer store.Close()
		components["milvus"] = store
		searcher, sink = store, store
	} else {
		mem, merr := index.New(embedder.Dimension())
		if merr != nil {
			return merr
		}
		searcher, sink = mem, mem
	}

	var metrics *prometheus.Metrics
	if cfg.Metrics.Enabled {
		metrics = prometheus.New()
	}

	explainer, err := explain.New(&cfg.Explain, log)
	if err != nil {
		return err
	}

	analyzer, err := buildAnalyzer(cfg, embedder, searcher, explainer, metrics, log)
	if err != nil {
		return err
	}

	engOpts := []engine.EngineOption{
		engine.WithRepository(repo),
		engine.WithEngineLogger(log),
	}
	if metrics != nil {
		engOpts = append(engOpts, engine.WithEngineMetrics(metrics))
	}
	eng, err := engine.NewEngine(analyzer, embedder, sink, engOpts...)
	if err != nil {
		return err
	}

	loaded, err := eng.Bootstrap(ctx)
	if err != nil {
		return err
	}
	log.Info("reference corpus loaded", logging.Int("references", loaded))

	server := httpserver.NewServer(cfg.Server, httpserver.ServerDeps{
		Engine:      eng,
		ResultStore: results,
		Metrics:     metrics,
		Components:  components,
		Logger:      log,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func buildAnalyzer(
	cfg *config.Config,
	embedder engine.Embedder,
	searcher index.Searcher,
	explainer *explain.Explainer,
	metrics *prometheus.Metrics,
	log logging.Logger,
) (*engine.Analyzer, error) {
	heuristics, comparatives := engine.DefaultExtractors(&cfg.Engine)
	aggregator := aggregate.New(engine.WeightsFromConfig(&cfg.Engine))

	opts := []engine.AnalyzerOption{
		engine.WithTopK(cfg.Engine.TopK),
		engine.WithLogger(log),
	}
	if explainer != nil {
		opts = append(opts, engine.WithExplainer(explainer))
	}
	if metrics != nil {
		opts = append(opts, engine.WithMetrics(metrics))
	}
	return engine.NewAnalyzer(embedder, searcher, heuristics, comparatives, aggregator, opts...)
}

// loadConfig prefers the config file and falls back to SENTINEL_* environment
// variables when the file does not exist, which is the usual container setup.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}

func outputPaths(output string) []string {
	if output == "" {
		return nil
	}
	return []string{output}
}
