package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trustside/listing-sentinel/internal/domain/listing"
	"github.com/trustside/listing-sentinel/pkg/errors"
)

// ListingRepository persists reference listings in PostgreSQL.  The embedding
// column is float4[], matching the engine's []float32 vectors without
// conversion.
type ListingRepository struct {
	pool *pgxpool.Pool
}

// NewListingRepository builds a repository over the given pool.
func NewListingRepository(pool *pgxpool.Pool) *ListingRepository {
	return &ListingRepository{pool: pool}
}

const listingColumns = `id, title, description, brand, price, source_url, verified, embedding, created_at, updated_at`

// Save inserts the listing or updates it when the ID already exists.
func (r *ListingRepository) Save(ctx context.Context, l *listing.Listing) error {
	const query = `
		INSERT INTO listings (id, title, description, brand, price, source_url, verified, embedding, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			title       = EXCLUDED.title,
			description = EXCLUDED.description,
			brand       = EXCLUDED.brand,
			price       = EXCLUDED.price,
			source_url  = EXCLUDED.source_url,
			verified    = EXCLUDED.verified,
			embedding   = EXCLUDED.embedding,
			updated_at  = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query,
		l.ID, l.Title, l.Description, l.Brand, l.Price, l.SourceURL,
		l.Verified, l.Embedding, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save listing")
	}
	return nil
}

// FindByID returns the listing with the given ID.
func (r *ListingRepository) FindByID(ctx context.Context, id string) (*listing.Listing, error) {
	const query = `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, id)
	l, err := scanListing(row)
	if err == pgx.ErrNoRows {
		return nil, errors.New(errors.ErrCodeListingNotFound, "listing not found: "+id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load listing")
	}
	return l, nil
}

// ListAll returns every listing in insertion order.
func (r *ListingRepository) ListAll(ctx context.Context) ([]*listing.Listing, error) {
	const query = `SELECT ` + listingColumns + ` FROM listings ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list listings")
	}
	defer rows.Close()
	return collectListings(rows)
}

// RecentVerified returns up to limit verified listings, newest first.
func (r *ListingRepository) RecentVerified(ctx context.Context, limit int) ([]*listing.Listing, error) {
	const query = `SELECT ` + listingColumns + ` FROM listings
		WHERE verified ORDER BY created_at DESC, id DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list recent listings")
	}
	defer rows.Close()
	return collectListings(rows)
}

// Count returns the number of stored listings.
func (r *ListingRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM listings`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count listings")
	}
	return n, nil
}

func scanListing(row pgx.Row) (*listing.Listing, error) {
	var l listing.Listing
	err := row.Scan(
		&l.ID, &l.Title, &l.Description, &l.Brand, &l.Price, &l.SourceURL,
		&l.Verified, &l.Embedding, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func collectListings(rows pgx.Rows) ([]*listing.Listing, error) {
	var out []*listing.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan listing row")
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate listing rows")
	}
	return out, nil
}

var _ listing.Repository = (*ListingRepository)(nil)
