// Package milvus adapts a Milvus collection to the engine's neighbor-search
// and reference-sink ports.  Vectors live in Milvus; full listings are
// hydrated from the repository by ID, so Milvus never stores listing fields
// beyond the primary key.
package milvus

import (
	"context"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/trustside/listing-sentinel/internal/config"
	"github.com/trustside/listing-sentinel/internal/domain/listing"
	"github.com/trustside/listing-sentinel/internal/engine/index"
	"github.com/trustside/listing-sentinel/internal/infrastructure/monitoring/logging"
	"github.com/trustside/listing-sentinel/pkg/errors"
)

const (
	idField     = "listing_id"
	vectorField = "embedding"
	maxIDLength = "64"
)

// Store backs the similarity index with a Milvus collection.
type Store struct {
	mc   client.Client
	repo listing.Repository
	cfg  config.MilvusConfig
	dim  int
	log  logging.Logger
}

// NewStore connects to Milvus and ensures the collection exists, indexed and
// loaded.  The repository is used to hydrate search hits into full listings.
func NewStore(ctx context.Context, cfg config.MilvusConfig, dim int, repo listing.Repository, log logging.Logger) (*Store, error) {
	if repo == nil {
		return nil, errors.InvalidParam("listing repository is required for milvus store")
	}
	if dim < 1 {
		return nil, errors.InvalidParam("embedding dimension must be >= 1")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	mc, err := client.NewClient(connectCtx, client.Config{
		Address: cfg.Addr,
		DBName:  cfg.DBName,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeIndexUnavailable, "failed to connect to milvus")
	}

	s := &Store{mc: mc, repo: repo, cfg: cfg, dim: dim, log: log.Named("milvus")}
	if err := s.ensureCollection(ctx); err != nil {
		mc.Close()
		return nil, err
	}

	log.Info("milvus store ready",
		logging.String("addr", cfg.Addr),
		logging.String("collection", cfg.Collection),
		logging.Int("dimension", dim))
	return s, nil
}

// ensureCollection creates, indexes, and loads the collection when missing.
func (s *Store) ensureCollection(ctx context.Context) error {
	has, err := s.mc.HasCollection(ctx, s.cfg.Collection)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeIndexUnavailable, "failed to check collection")
	}

	if !has {
		schema := &entity.Schema{
			CollectionName: s.cfg.Collection,
			Description:    "verified reference listing embeddings",
			Fields: []*entity.Field{
				{
					Name:       idField,
					DataType:   entity.FieldTypeVarChar,
					PrimaryKey: true,
					TypeParams: map[string]string{entity.TypeParamMaxLength: maxIDLength},
				},
				{
					Name:       vectorField,
					DataType:   entity.FieldTypeFloatVector,
					TypeParams: map[string]string{entity.TypeParamDim: fmt.Sprintf("%d", s.dim)},
				},
			},
		}
		if err := s.mc.CreateCollection(ctx, schema, 1); err != nil {
			return errors.Wrap(err, errors.ErrCodeIndexUnavailable, "failed to create collection")
		}

		idx, err := entity.NewIndexHNSW(entity.COSINE, s.cfg.HNSWM, s.cfg.HNSWEfConstruction)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeIndexUnavailable, "failed to build index definition")
		}
		if err := s.mc.CreateIndex(ctx, s.cfg.Collection, vectorField, idx, false); err != nil {
			return errors.Wrap(err, errors.ErrCodeIndexUnavailable, "failed to create index")
		}
	}

	if err := s.mc.LoadCollection(ctx, s.cfg.Collection, false); err != nil {
		return errors.Wrap(err, errors.ErrCodeIndexUnavailable, "failed to load collection")
	}
	return nil
}

// Upsert writes the listing's embedding under its ID.
func (s *Store) Upsert(ctx context.Context, l *listing.Listing) error {
	if l == nil || l.ID == "" {
		return errors.InvalidEmbedding("listing with ID required")
	}
	if len(l.Embedding) != s.dim {
		return errors.InvalidEmbedding(
			fmt.Sprintf("embedding dimension %d does not match collection dimension %d", len(l.Embedding), s.dim))
	}

	ids := entity.NewColumnVarChar(idField, []string{l.ID})
	vectors := entity.NewColumnFloatVector(vectorField, s.dim, [][]float32{l.Embedding})
	if _, err := s.mc.Upsert(ctx, s.cfg.Collection, "", ids, vectors); err != nil {
		return errors.Wrap(err, errors.ErrCodeIndexUnavailable, "failed to upsert embedding")
	}
	return nil
}

// Query returns the k nearest reference listings by cosine similarity,
// hydrated from the repository.  Hits whose listing has been deleted from
// storage are skipped.
func (s *Store) Query(ctx context.Context, vector []float32, k int) ([]index.NeighborMatch, error) {
	if len(vector) != s.dim {
		return nil, errors.InvalidEmbedding(
			fmt.Sprintf("query dimension %d does not match collection dimension %d", len(vector), s.dim))
	}
	if k < 1 {
		return nil, errors.InvalidEmbedding("neighbor count must be >= 1")
	}

	sp, err := entity.NewIndexHNSWSearchParam(s.cfg.SearchEf)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeIndexQueryFailed, "failed to build search params")
	}

	results, err := s.mc.Search(ctx, s.cfg.Collection, nil, "", []string{idField},
		[]entity.Vector{entity.FloatVector(vector)}, vectorField, entity.COSINE, k, sp)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeIndexQueryFailed, "vector search failed")
	}
	if len(results) == 0 {
		return nil, nil
	}

	hit := results[0]
	idCol, ok := hit.IDs.(*entity.ColumnVarChar)
	if !ok {
		return nil, errors.New(errors.ErrCodeIndexQueryFailed, "unexpected primary key column type")
	}

	matches := make([]index.NeighborMatch, 0, len(idCol.Data()))
	for i, id := range idCol.Data() {
		l, err := s.repo.FindByID(ctx, id)
		if err != nil {
			if errors.IsNotFound(err) {
				s.log.Warn("search hit missing from storage", logging.String("listing_id", id))
				continue
			}
			return nil, err
		}
		matches = append(matches, index.NeighborMatch{
			Listing:    l,
			Similarity: float64(hit.Scores[i]),
			Rank:       len(matches) + 1,
		})
	}
	return matches, nil
}

// HealthCheck verifies the Milvus connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	if _, err := s.mc.CheckHealth(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeIndexUnavailable, "milvus health check failed")
	}
	return nil
}

// Close releases the Milvus connection.
func (s *Store) Close() error {
	return s.mc.Close()
}

var (
	_ index.Searcher = (*Store)(nil)
)
