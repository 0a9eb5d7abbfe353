package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustside/listing-sentinel/internal/domain/listing"
	"github.com/trustside/listing-sentinel/internal/engine/index"
	"github.com/trustside/listing-sentinel/pkg/errors"
)

type mockRepository struct {
	saveFn           func(ctx context.Context, l *listing.Listing) error
	findByIDFn       func(ctx context.Context, id string) (*listing.Listing, error)
	listAllFn        func(ctx context.Context) ([]*listing.Listing, error)
	recentVerifiedFn func(ctx context.Context, limit int) ([]*listing.Listing, error)
	countFn          func(ctx context.Context) (int64, error)
}

func (m *mockRepository) Save(ctx context.Context, l *listing.Listing) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, l)
	}
	return nil
}

func (m *mockRepository) FindByID(ctx context.Context, id string) (*listing.Listing, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, errors.NotFound("listing not found")
}

func (m *mockRepository) ListAll(ctx context.Context) ([]*listing.Listing, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx)
	}
	return nil, nil
}

func (m *mockRepository) RecentVerified(ctx context.Context, limit int) ([]*listing.Listing, error) {
	if m.recentVerifiedFn != nil {
		return m.recentVerifiedFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockRepository) Count(ctx context.Context) (int64, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

type failingSink struct{ err error }

func (f *failingSink) Upsert(context.Context, *listing.Listing) error { return f.err }

func newTestEngine(t *testing.T, opts ...EngineOption) (*Engine, *index.Index) {
	t.Helper()
	idx := mustIndex(t)
	a, err := NewAnalyzer(&staticEmbedder{}, idx, nil, nil, nil)
	require.NoError(t, err)
	eng, err := NewEngine(a, &staticEmbedder{}, idx, opts...)
	require.NoError(t, err)
	return eng, idx
}

func TestImportReference_EmbedsAndIndexes(t *testing.T) {
	t.Parallel()

	eng, idx := newTestEngine(t)

	ref := listing.New("Apple iPhone 15 Pro Max", "Latest flagship", "Apple", price(1199))
	ref.Embedding = nil

	stored, err := eng.ImportReference(context.Background(), ref)
	require.NoError(t, err)
	assert.True(t, stored.Verified)
	assert.Len(t, stored.Embedding, 3)
	assert.Equal(t, 1, idx.Len())

	// Self-similarity after import: querying with the stored vector returns
	// the listing with similarity 1.
	matches, err := idx.Query(context.Background(), stored.Embedding, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, stored.ID, matches[0].Listing.ID)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-9)
}

func TestImportReference_KeepsProvidedEmbedding(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t)

	ref := listing.New("Apple iPhone 15 Pro Max", "", "Apple", price(1199))
	ref.Embedding = []float32{0, 1, 0}

	stored, err := eng.ImportReference(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 0}, stored.Embedding)
}

func TestImportReference_GeneratesID(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t)
	stored, err := eng.ImportReference(context.Background(), &listing.Listing{Title: "Apple iPhone 15"})
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)
}

func TestImportReference_RejectsInvalid(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t)
	_, err := eng.ImportReference(context.Background(), &listing.Listing{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeListingInvalid))

	_, err = eng.ImportReference(context.Background(), nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeListingInvalid))
}

func TestImportReference_SinkFailure(t *testing.T) {
	t.Parallel()

	idx := mustIndex(t)
	a, err := NewAnalyzer(&staticEmbedder{}, idx, nil, nil, nil)
	require.NoError(t, err)
	eng, err := NewEngine(a, &staticEmbedder{}, &failingSink{err: fmt.Errorf("collection dropped")})
	require.NoError(t, err)

	_, err = eng.ImportReference(context.Background(), listing.New("Apple iPhone 15", "", "Apple", price(999)))
	assert.True(t, errors.IsCode(err, errors.ErrCodeListingImportFailed))
}

func TestImportReference_PersistsToRepository(t *testing.T) {
	t.Parallel()

	var saved *listing.Listing
	repo := &mockRepository{
		saveFn: func(_ context.Context, l *listing.Listing) error {
			saved = l
			return nil
		},
	}
	eng, _ := newTestEngine(t, WithRepository(repo))

	stored, err := eng.ImportReference(context.Background(), listing.New("Apple iPhone 15", "", "Apple", price(999)))
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, stored.ID, saved.ID)
}

func TestImportReference_EmbeddingProviderDown(t *testing.T) {
	t.Parallel()

	idx := mustIndex(t)
	a, err := NewAnalyzer(&staticEmbedder{}, idx, nil, nil, nil)
	require.NoError(t, err)
	down := &mockEmbedder{
		embedFn: func(context.Context, string) ([]float32, error) {
			return nil, fmt.Errorf("connection refused")
		},
	}
	eng, err := NewEngine(a, down, idx)
	require.NoError(t, err)

	_, err = eng.ImportReference(context.Background(), listing.New("Apple iPhone 15", "", "Apple", price(999)))
	assert.True(t, errors.IsCode(err, errors.ErrCodeEmbeddingUnavailable))
}

func TestBootstrap_LoadsCorpus(t *testing.T) {
	t.Parallel()

	refs := []*listing.Listing{
		reference("lst-1", "Apple iPhone 15", "Apple", 999, []float32{1, 0, 0}),
		reference("lst-2", "Samsung Galaxy S24", "Samsung", 899, []float32{0, 1, 0}),
	}
	repo := &mockRepository{
		listAllFn: func(context.Context) ([]*listing.Listing, error) { return refs, nil },
	}
	eng, idx := newTestEngine(t, WithRepository(repo))

	loaded, err := eng.Bootstrap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, loaded)
	assert.Equal(t, 2, idx.Len())
}

func TestBootstrap_ReembedsWrongDimension(t *testing.T) {
	t.Parallel()

	stale := reference("lst-1", "Apple iPhone 15", "Apple", 999, []float32{1, 0})
	repo := &mockRepository{
		listAllFn: func(context.Context) ([]*listing.Listing, error) {
			return []*listing.Listing{stale}, nil
		},
	}
	eng, idx := newTestEngine(t, WithRepository(repo))

	loaded, err := eng.Bootstrap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, loaded)
	assert.Equal(t, 1, idx.Len())
	assert.Len(t, stale.Embedding, 3)
}

func TestBootstrap_NoRepository(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t)
	loaded, err := eng.Bootstrap(context.Background())
	require.NoError(t, err)
	assert.Zero(t, loaded)
}

func TestBootstrap_RepositoryDown(t *testing.T) {
	t.Parallel()

	repo := &mockRepository{
		listAllFn: func(context.Context) ([]*listing.Listing, error) {
			return nil, fmt.Errorf("connection reset")
		},
	}
	eng, _ := newTestEngine(t, WithRepository(repo))

	_, err := eng.Bootstrap(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
}

func TestRecentReferences_DefaultsLimit(t *testing.T) {
	t.Parallel()

	var gotLimit int
	repo := &mockRepository{
		recentVerifiedFn: func(_ context.Context, limit int) ([]*listing.Listing, error) {
			gotLimit = limit
			return nil, nil
		},
	}
	eng, _ := newTestEngine(t, WithRepository(repo))

	_, err := eng.RecentReferences(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 20, gotLimit)
}
