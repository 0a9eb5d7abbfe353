// Command worker consumes reference listings from Kafka and imports them
// into the reference corpus: embedding, vector index, and PostgreSQL.
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
	"github.com/trustside/listing-sentinel/internal/infrastructure/embedding"
	"github.com/trustside/listing-sentinel/internal/infrastructure/messaging/kafka"
	"github.com/trustside/listing-sentinel/internal/infrastructure/monitoring/logging"
	"github.com/trustside/listing-sentinel/internal/infrastructure/search/milvus"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
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

	log.Info("starting listing-sentinel import worker",
		logging.Any("brokers", cfg.Kafka.Brokers),
		logging.String("topic", cfg.Kafka.Topic),
		logging.String("group_id", cfg.Kafka.GroupID),
	)

	pg, err := postgres.NewConnection(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer pg.Close()
	if err := pg.RunMigrations(); err != nil {
		return err
	}
	repo := postgres.NewListingRepository(pg.Pool())

	embedder, err := embedding.FromConfig(&cfg.Embedding)
	if err != nil {
		return err
	}

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
		searcher, sink = store, store
	} else {
		mem, merr := index.New(embedder.Dimension())
		if merr != nil {
			return merr
		}
		searcher, sink = mem, mem
	}

	heuristics, comparatives := engine.DefaultExtractors(&cfg.Engine)
	analyzer, err := engine.NewAnalyzer(
		embedder,
		searcher,
		heuristics,
		comparatives,
		aggregate.New(engine.WeightsFromConfig(&cfg.Engine)),
		engine.WithTopK(cfg.Engine.TopK),
		engine.WithLogger(log),
	)
	if err != nil {
		return err
	}

	eng, err := engine.NewEngine(analyzer, embedder, sink,
		engine.WithRepository(repo),
		engine.WithEngineLogger(log),
	)
	if err != nil {
		return err
	}

	consumer, err := kafka.NewConsumer(cfg.Kafka, eng, log)
	if err != nil {
		return err
	}

	err = consumer.Run(ctx)
	stats := consumer.Stats()
	log.Info("worker stopped",
		logging.Int64("consumed", stats.Consumed.Load()),
		logging.Int64("imported", stats.Imported.Load()),
		logging.Int64("skipped", stats.Skipped.Load()),
	)
	return err
}

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
