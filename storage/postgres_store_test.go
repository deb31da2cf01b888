package storage_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rightmove-ingest/models"
	"rightmove-ingest/storage"
)

var listingCols = []string{"id", "url", "price", "address", "description", "first_image_url", "scraped_at", "status", "error"}

func newStore(t *testing.T) (*storage.PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })

	return storage.NewPostgresStore(sqlx.NewDb(mockDB, "postgres")), mock
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func strPtr(s string) *string { return &s }

func TestExists(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("https://www.rightmove.co.uk/properties/1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := store.Exists(context.Background(), "https://www.rightmove.co.uk/properties/1")
	require.NoError(t, err)
	assert.True(t, ok)
	expectationsMet(t, mock)
}

func TestExistsWrapsDriverError(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectQuery("SELECT EXISTS").WillReturnError(errors.New("connection reset"))

	_, err := store.Exists(context.Background(), "u")
	var pe *storage.PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "exists", pe.Op)
}

func TestInsertListingNewRowWithImages(t *testing.T) {
	store, mock := newStore(t)
	url := "https://www.rightmove.co.uk/properties/1"

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO listings").
		WithArgs(url, "£250,000", "Leeds", nil, "https://img/first.jpg", sqlmock.AnyArg(), "ok", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec("INSERT INTO listing_images").
		WithArgs(int64(42), pq.Array([]string{"https://img/a.jpg", "https://img/b.jpg"})).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	l := &models.Listing{
		URL:           url,
		Price:         strPtr("£250,000"),
		Address:       strPtr("Leeds"),
		FirstImageURL: strPtr("https://img/first.jpg"),
		Status:        models.StatusOK,
	}
	res, err := store.InsertListing(context.Background(), l,
		[]string{"https://img/a.jpg", "https://img/b.jpg", "https://img/a.jpg", ""})
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.Equal(t, int64(42), res.ListingID)
	assert.Equal(t, int64(2), res.ImagesAdded)
	assert.Equal(t, int64(42), l.ID)
	assert.False(t, l.ScrapedAt.IsZero())
	expectationsMet(t, mock)
}

func TestInsertListingExistingRowIsNoOpButAddsImages(t *testing.T) {
	store, mock := newStore(t)
	url := "https://www.rightmove.co.uk/properties/1"

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO listings").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("SELECT id FROM listings WHERE url").
		WithArgs(url).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec("INSERT INTO listing_images").
		WithArgs(int64(7), pq.Array([]string{"https://img/c.jpg"})).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := store.InsertListing(context.Background(),
		&models.Listing{URL: url, Status: models.StatusOK}, []string{"https://img/c.jpg"})
	require.NoError(t, err)

	assert.False(t, res.Created)
	assert.Equal(t, int64(7), res.ListingID)
	assert.Equal(t, int64(1), res.ImagesAdded)
	expectationsMet(t, mock)
}

func TestInsertListingErrorRowWithoutImages(t *testing.T) {
	store, mock := newStore(t)
	url := "https://www.rightmove.co.uk/properties/404"
	msg := "fetch " + url + ": HTTP 404 Not Found"

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO listings").
		WithArgs(url, nil, nil, nil, nil, sqlmock.AnyArg(), "error", msg).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectCommit()

	res, err := store.InsertListing(context.Background(),
		&models.Listing{URL: url, Status: models.StatusError, Error: &msg}, nil)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Zero(t, res.ImagesAdded)
	expectationsMet(t, mock)
}

func TestInsertListingRollsBackOnImageFailure(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO listings").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))
	mock.ExpectExec("INSERT INTO listing_images").
		WillReturnError(&pq.Error{Code: "23503", Message: "violates foreign key", Constraint: "listing_images_listing_id_fkey"})
	mock.ExpectRollback()

	_, err := store.InsertListing(context.Background(),
		&models.Listing{URL: "u"}, []string{"https://img/a.jpg"})

	var pe *storage.PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "insert images", pe.Op)
	assert.Contains(t, err.Error(), "23503")
	expectationsMet(t, mock)
}

func TestGetByID(t *testing.T) {
	store, mock := newStore(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM listings WHERE id").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(listingCols).
			AddRow(int64(5), "https://www.rightmove.co.uk/properties/5", "£1", nil, "desc", nil, now, "ok", nil))

	l, err := store.GetByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), l.ID)
	require.NotNil(t, l.Price)
	assert.Equal(t, "£1", *l.Price)
	assert.Nil(t, l.Address)
	assert.Equal(t, models.StatusOK, l.Status)
	assert.Equal(t, now, l.ScrapedAt)
	expectationsMet(t, mock)
}

func TestGetByIDNotFound(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectQuery("SELECT (.+) FROM listings WHERE id").
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetRecentOrdersByRecency(t *testing.T) {
	store, mock := newStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("ORDER BY scraped_at DESC").
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(listingCols).
			AddRow(int64(2), "u2", nil, nil, nil, nil, now, "ok", nil).
			AddRow(int64(1), "u1", nil, nil, nil, nil, now.Add(-time.Minute), "error", "boom"))

	got, err := store.GetRecent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "u2", got[0].URL)
	assert.Equal(t, models.StatusError, got[1].Status)
	require.NotNil(t, got[1].Error)
	assert.Equal(t, "boom", *got[1].Error)
	expectationsMet(t, mock)
}

func TestGetImages(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectQuery("SELECT image_url FROM listing_images").
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"image_url"}).AddRow("https://img/a.jpg").AddRow("https://img/b.jpg"))

	got, err := store.GetImages(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://img/a.jpg", "https://img/b.jpg"}, got)
	expectationsMet(t, mock)
}

func TestGetImagesEmpty(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectQuery("SELECT image_url FROM listing_images").
		WillReturnRows(sqlmock.NewRows([]string{"image_url"}))

	got, err := store.GetImages(context.Background(), 1)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
