package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"rightmove-ingest/models"
	"rightmove-ingest/utils"
)

const listingColumns = `id, url, price, address, description, first_image_url, scraped_at, status, error`

// PostgresStore persists listings and their images to PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an existing connection. The schema is assumed to exist.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgresStore connects to PostgreSQL, waits for it to accept
// connections, runs schema migrations, and returns a ready-to-use store.
func OpenPostgresStore(ctx context.Context, dsn string, retry *utils.RetryConfig) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := retry.Do(ctx, "postgres-ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	if err := Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return NewPostgresStore(db), nil
}

func (s *PostgresStore) Exists(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM listings WHERE url = $1)`, url)
	if err != nil {
		return false, &PersistenceError{Op: "exists", Err: err}
	}
	return exists, nil
}

func (s *PostgresStore) InsertListing(ctx context.Context, l *models.Listing, images []string) (models.InsertResult, error) {
	var res models.InsertResult

	if l.ScrapedAt.IsZero() {
		l.ScrapedAt = time.Now().UTC()
	}
	if l.Status == "" {
		l.Status = models.StatusOK
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return res, &PersistenceError{Op: "begin", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.GetContext(ctx, &res.ListingID, `
		INSERT INTO listings (url, price, address, description, first_image_url, scraped_at, status, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (url) DO NOTHING
		RETURNING id`,
		l.URL, l.Price, l.Address, l.Description, l.FirstImageURL, l.ScrapedAt, string(l.Status), l.Error)
	switch {
	case err == nil:
		res.Created = true
	case errors.Is(err, sql.ErrNoRows):
		// Row already present: keep its fields, attach images to its id.
		if err := tx.GetContext(ctx, &res.ListingID, `SELECT id FROM listings WHERE url = $1`, l.URL); err != nil {
			return res, &PersistenceError{Op: "lookup existing listing", Err: err}
		}
	default:
		return res, &PersistenceError{Op: "insert listing", Err: describe(err)}
	}

	if urls := uniqueNonEmpty(images); len(urls) > 0 {
		r, err := tx.ExecContext(ctx, `
			INSERT INTO listing_images (listing_id, image_url)
			SELECT $1, unnest($2::text[])
			ON CONFLICT (listing_id, image_url) DO NOTHING`,
			res.ListingID, pq.Array(urls))
		if err != nil {
			return res, &PersistenceError{Op: "insert images", Err: describe(err)}
		}
		res.ImagesAdded, _ = r.RowsAffected()
	}

	if err := tx.Commit(); err != nil {
		return res, &PersistenceError{Op: "commit", Err: err}
	}

	l.ID = res.ListingID
	return res, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*models.Listing, error) {
	l := &models.Listing{}
	err := s.db.GetContext(ctx, l, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &PersistenceError{Op: "get listing", Err: err}
	}
	return l, nil
}

func (s *PostgresStore) GetRecent(ctx context.Context, limit int) ([]*models.Listing, error) {
	listings := []*models.Listing{}
	err := s.db.SelectContext(ctx, &listings,
		`SELECT `+listingColumns+` FROM listings ORDER BY scraped_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, &PersistenceError{Op: "get recent", Err: err}
	}
	return listings, nil
}

func (s *PostgresStore) GetImages(ctx context.Context, listingID int64) ([]string, error) {
	urls := []string{}
	err := s.db.SelectContext(ctx, &urls,
		`SELECT image_url FROM listing_images WHERE listing_id = $1 ORDER BY id`, listingID)
	if err != nil {
		return nil, &PersistenceError{Op: "get images", Err: err}
	}
	return urls, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// describe adds the Postgres error code and constraint to driver errors.
func describe(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%s (code %s, constraint %q): %w", pqErr.Message, pqErr.Code, pqErr.Constraint, err)
	}
	return err
}

func uniqueNonEmpty(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
