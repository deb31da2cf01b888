package models

import "time"

// Status is the persisted state of a Listing row.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Listing is one row per distinct normalized URL. Optional extracted fields
// are nil when the corresponding rule found nothing.
type Listing struct {
	ID            int64     `db:"id" json:"id"`
	URL           string    `db:"url" json:"url"`
	Price         *string   `db:"price" json:"price"`
	Address       *string   `db:"address" json:"address"`
	Description   *string   `db:"description" json:"description"`
	FirstImageURL *string   `db:"first_image_url" json:"first_image_url"`
	ScrapedAt     time.Time `db:"scraped_at" json:"scraped_at"`
	Status        Status    `db:"status" json:"status"`
	Error         *string   `db:"error" json:"error"`
}

// ListingImage is one discovered image URL owned by a Listing.
type ListingImage struct {
	ID        int64  `db:"id" json:"id"`
	ListingID int64  `db:"listing_id" json:"listing_id"`
	ImageURL  string `db:"image_url" json:"image_url"`
}

// InsertResult reports what a store write did for a listing URL.
type InsertResult struct {
	ListingID int64
	// Created is false when a row for the URL already existed.
	Created bool
	// ImagesAdded counts image rows that did not exist before the write.
	ImagesAdded int64
}
