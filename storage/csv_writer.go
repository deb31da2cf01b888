package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"rightmove-ingest/models"
)

var _ OutcomeWriter = (*CSVWriter)(nil)

// CSVWriter writes batch outcomes to a CSV report.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"url", "status", "listing_id", "error"}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteOutcomes appends one row per outcome, in the given order.
func (c *CSVWriter) WriteOutcomes(outcomes []models.Outcome) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, o := range outcomes {
		id := ""
		if o.ListingID > 0 {
			id = strconv.FormatInt(o.ListingID, 10)
		}
		msg := ""
		if o.Error != nil {
			msg = *o.Error
		}
		if err := c.writer.Write([]string{o.URL, string(o.Status), id, msg}); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
