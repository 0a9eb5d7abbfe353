// Package index provides cosine-similarity neighbor search over reference
// listings.  The default implementation is an exhaustive in-memory index
// hydrated from the corpus at startup; a Milvus-backed implementation of the
// same Searcher contract lives in internal/infrastructure/search/milvus for
// corpora that outgrow a single process.
package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/trustside/listing-sentinel/internal/domain/listing"
	"github.com/trustside/listing-sentinel/pkg/errors"
)

// NeighborMatch is a reference listing returned from a similarity query,
// carrying the cosine similarity to the query vector and its rank.
type NeighborMatch struct {
	Listing    *listing.Listing `json:"listing"`
	Similarity float64          `json:"similarity"`
	Rank       int              `json:"rank"`
}

// Searcher is the neighbor-search contract consumed by the analyzer.
type Searcher interface {
	// Query returns up to k reference listings ordered by descending cosine
	// similarity to vector.  Ties preserve corpus insertion order.
	Query(ctx context.Context, vector []float32, k int) ([]NeighborMatch, error)
}

// entry pairs a stored listing with precomputed vector magnitude.  A zero
// magnitude marks a degenerate vector whose similarity to anything is 0.
type entry struct {
	listing   *listing.Listing
	magnitude float64
	seq       int
}

// Index is the exhaustive in-memory similarity index.  Safe for concurrent
// use: upserts and queries may interleave freely.
type Index struct {
	mu      sync.RWMutex
	dim     int
	entries []*entry
	byID    map[string]int // listing ID → position in entries
	nextSeq int
}

// New constructs an empty Index for vectors of the given dimensionality.
func New(dim int) (*Index, error) {
	if dim < 1 {
		return nil, errors.InvalidParam(fmt.Sprintf("index dimension must be >= 1, got %d", dim))
	}
	return &Index{
		dim:  dim,
		byID: make(map[string]int),
	}, nil
}

// Dim returns the vector dimensionality the index was built for.
func (x *Index) Dim() int { return x.dim }

// Len returns the number of stored references.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Upsert stores the listing's embedding under its ID, replacing any previous
// vector for the same ID.  The listing must carry an embedding of the index
// dimensionality.  Replacement keeps the original insertion position so that
// tie-break ordering stays stable.
func (x *Index) Upsert(_ context.Context, l *listing.Listing) error {
	if l == nil {
		return errors.InvalidInput("listing must not be nil")
	}
	if len(l.Embedding) == 0 {
		return errors.InvalidEmbedding("listing carries no embedding").
			WithDetail("id=" + l.ID)
	}
	if len(l.Embedding) != x.dim {
		return errors.InvalidEmbedding(
			fmt.Sprintf("embedding dimension %d does not match index dimension %d", len(l.Embedding), x.dim)).
			WithDetail("id=" + l.ID)
	}

	mag := magnitude(l.Embedding)

	x.mu.Lock()
	defer x.mu.Unlock()

	if pos, ok := x.byID[l.ID]; ok {
		x.entries[pos].listing = l
		x.entries[pos].magnitude = mag
		return nil
	}

	x.entries = append(x.entries, &entry{listing: l, magnitude: mag, seq: x.nextSeq})
	x.byID[l.ID] = len(x.entries) - 1
	x.nextSeq++
	return nil
}

// Query returns up to k neighbors ordered by descending cosine similarity.
// Candidates with equal similarity keep insertion order.  Degenerate
// (zero-magnitude) candidates always score 0 and sort after every
// non-degenerate candidate, regardless of sign.
func (x *Index) Query(_ context.Context, vector []float32, k int) ([]NeighborMatch, error) {
	if len(vector) != x.dim {
		return nil, errors.InvalidEmbedding(
			fmt.Sprintf("query dimension %d does not match index dimension %d", len(vector), x.dim))
	}
	if k < 1 {
		return nil, errors.InvalidParam(fmt.Sprintf("k must be >= 1, got %d", k))
	}

	queryMag := magnitude(vector)

	x.mu.RLock()
	scored := make([]scoredEntry, len(x.entries))
	for i, e := range x.entries {
		sim := 0.0
		degenerate := e.magnitude == 0 || queryMag == 0
		if !degenerate {
			sim = dot(vector, e.listing.Embedding) / (queryMag * e.magnitude)
			// Guard against float drift pushing the ratio past the bounds.
			sim = math.Max(-1, math.Min(1, sim))
		}
		scored[i] = scoredEntry{
			listing:    e.listing,
			similarity: sim,
			degenerate: degenerate,
			seq:        e.seq,
		}
	}
	x.mu.RUnlock()

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.degenerate != b.degenerate {
			return !a.degenerate
		}
		if a.similarity != b.similarity {
			return a.similarity > b.similarity
		}
		return a.seq < b.seq
	})

	if k > len(scored) {
		k = len(scored)
	}
	out := make([]NeighborMatch, k)
	for i := 0; i < k; i++ {
		out[i] = NeighborMatch{
			Listing:    scored[i].listing,
			Similarity: scored[i].similarity,
			Rank:       i + 1,
		}
	}
	return out, nil
}

type scoredEntry struct {
	listing    *listing.Listing
	similarity float64
	degenerate bool
	seq        int
}

// CosineSimilarity computes the cosine of the angle between a and b.
// Mismatched lengths and zero-magnitude operands yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	magA, magB := magnitude(a), magnitude(b)
	if magA == 0 || magB == 0 {
		return 0
	}
	return math.Max(-1, math.Min(1, dot(a, b)/(magA*magB)))
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func magnitude(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
