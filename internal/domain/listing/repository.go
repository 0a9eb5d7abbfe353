package listing

import "context"

// Repository is the persistence contract for the reference corpus.  The
// canonical implementation is backed by PostgreSQL; tests use in-memory fakes.
type Repository interface {
	// Save inserts the listing or updates it when the ID already exists.
	Save(ctx context.Context, l *Listing) error

	// FindByID returns the listing with the given ID, or an
	// ErrCodeListingNotFound error when absent.
	FindByID(ctx context.Context, id string) (*Listing, error)

	// ListAll returns every reference listing in insertion order.  Used to
	// hydrate the similarity index at startup.
	ListAll(ctx context.Context) ([]*Listing, error)

	// RecentVerified returns up to limit verified listings, newest first.
	RecentVerified(ctx context.Context, limit int) ([]*Listing, error)

	// Count returns the number of stored reference listings.
	Count(ctx context.Context) (int64, error)
}
