package storage

import (
	"context"
	"errors"
	"fmt"

	"rightmove-ingest/models"
)

// ErrNotFound is returned by read accessors when no row matches.
var ErrNotFound = errors.New("storage: not found")

// PersistenceError wraps any storage failure other than the expected
// uniqueness collapse.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ListingStore is the persistence surface used by ingestion and the read API.
// Implementations must be safe for concurrent use.
type ListingStore interface {
	// Exists reports whether a listing with the normalized URL is committed.
	Exists(ctx context.Context, url string) (bool, error)
	// InsertListing writes the listing and its images atomically. An existing
	// listing row is never overwritten, but new images are still attached to it.
	InsertListing(ctx context.Context, l *models.Listing, images []string) (models.InsertResult, error)
	GetByID(ctx context.Context, id int64) (*models.Listing, error)
	GetRecent(ctx context.Context, limit int) ([]*models.Listing, error)
	GetImages(ctx context.Context, listingID int64) ([]string, error)
	Close() error
}

// OutcomeWriter persists a batch report.
type OutcomeWriter interface {
	WriteOutcomes(outcomes []models.Outcome) error
	Close() error
}
