package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trustside/listing-sentinel/internal/engine/aggregate"
	"github.com/trustside/listing-sentinel/pkg/errors"
)

// ResultStore caches analysis results per listing and keeps a capped,
// time-ordered history of all analyses.  The history is a sorted set scored
// by analysis time; the cache is a plain key with TTL.
type ResultStore struct {
	rdb          *redis.Client
	keyPrefix    string
	resultTTL    time.Duration
	historyLimit int
}

// NewResultStore builds the store over an established client.
func NewResultStore(client *Client, keyPrefix string, resultTTL time.Duration, historyLimit int) *ResultStore {
	if keyPrefix == "" {
		keyPrefix = "sentinel"
	}
	if historyLimit < 1 {
		historyLimit = 100
	}
	return &ResultStore{
		rdb:          client.Raw(),
		keyPrefix:    keyPrefix,
		resultTTL:    resultTTL,
		historyLimit: historyLimit,
	}
}

func (s *ResultStore) resultKey(listingID string) string {
	return s.keyPrefix + ":result:" + listingID
}

func (s *ResultStore) historyKey() string {
	return s.keyPrefix + ":history"
}

// SaveResult caches the result under its listing ID and appends it to the
// history, trimming the history to the configured limit.
func (s *ResultStore) SaveResult(ctx context.Context, res *aggregate.AnalysisResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode analysis result")
	}

	pipe := s.rdb.TxPipeline()
	if s.resultTTL > 0 {
		pipe.Set(ctx, s.resultKey(res.ListingID), payload, s.resultTTL)
	}
	pipe.ZAdd(ctx, s.historyKey(), redis.Z{
		Score:  float64(res.AnalyzedAt.UnixMilli()),
		Member: payload,
	})
	// keep only the newest historyLimit entries
	pipe.ZRemRangeByRank(ctx, s.historyKey(), 0, int64(-s.historyLimit-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to store analysis result")
	}
	return nil
}

// CachedResult returns the cached result for a listing, or (nil, nil) on a
// cache miss.
func (s *ResultStore) CachedResult(ctx context.Context, listingID string) (*aggregate.AnalysisResult, error) {
	raw, err := s.rdb.Get(ctx, s.resultKey(listingID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to read cached result")
	}

	var res aggregate.AnalysisResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode cached result")
	}
	return &res, nil
}

// History returns up to limit past analyses, newest first.
func (s *ResultStore) History(ctx context.Context, limit int) ([]*aggregate.AnalysisResult, error) {
	if limit < 1 || limit > s.historyLimit {
		limit = s.historyLimit
	}

	raw, err := s.rdb.ZRevRange(ctx, s.historyKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to read analysis history")
	}

	out := make([]*aggregate.AnalysisResult, 0, len(raw))
	for _, entry := range raw {
		var res aggregate.AnalysisResult
		if err := json.Unmarshal([]byte(entry), &res); err != nil {
			// Skip entries written by incompatible older versions.
			continue
		}
		out = append(out, &res)
	}
	return out, nil
}
