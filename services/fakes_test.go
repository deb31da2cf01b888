package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"rightmove-ingest/models"
	"rightmove-ingest/scraper"
	"rightmove-ingest/storage"
)

// memStore is an in-memory ListingStore enforcing the url and
// (listing_id, image_url) uniqueness constraints.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	byURL    map[string]*models.Listing
	images   map[int64][]string
	failURLs map[string]error
	existErr error
}

func newMemStore() *memStore {
	return &memStore{
		byURL:    make(map[string]*models.Listing),
		images:   make(map[int64][]string),
		failURLs: make(map[string]error),
	}
}

func (s *memStore) Exists(_ context.Context, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existErr != nil {
		return false, s.existErr
	}
	_, ok := s.byURL[url]
	return ok, nil
}

func (s *memStore) InsertListing(ctx context.Context, l *models.Listing, images []string) (models.InsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return models.InsertResult{}, &storage.PersistenceError{Op: "begin tx", Err: err}
	}

	if err, ok := s.failURLs[l.URL]; ok {
		return models.InsertResult{}, &storage.PersistenceError{Op: "insert listing", Err: err}
	}

	var res models.InsertResult
	existing, ok := s.byURL[l.URL]
	if ok {
		res.ListingID = existing.ID
	} else {
		s.nextID++
		row := *l
		row.ID = s.nextID
		row.ScrapedAt = time.Now()
		s.byURL[l.URL] = &row
		res.ListingID = row.ID
		res.Created = true
	}

	for _, img := range images {
		dup := false
		for _, have := range s.images[res.ListingID] {
			if have == img {
				dup = true
				break
			}
		}
		if !dup {
			s.images[res.ListingID] = append(s.images[res.ListingID], img)
			res.ImagesAdded++
		}
	}
	return res, nil
}

func (s *memStore) GetByID(_ context.Context, id int64) (*models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.byURL {
		if l.ID == id {
			cp := *l
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *memStore) GetRecent(_ context.Context, limit int) ([]*models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.Listing{}
	for _, l := range s.byURL {
		if len(out) >= limit {
			break
		}
		cp := *l
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memStore) GetImages(_ context.Context, id int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.images[id]...), nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) rows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byURL)
}

func (s *memStore) get(url string) *models.Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byURL[url]
}

// stubFetcher serves canned bodies and records call counts and peak concurrency.
type stubFetcher struct {
	mu     sync.Mutex
	bodies map[string]string
	errs   map[string]error
	delay  func(url string) time.Duration
	calls  map[string]int

	inFlight int64
	peak     int64
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		bodies: make(map[string]string),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) (*scraper.Document, error) {
	n := atomic.AddInt64(&f.inFlight, 1)
	defer atomic.AddInt64(&f.inFlight, -1)
	for {
		p := atomic.LoadInt64(&f.peak)
		if n <= p || atomic.CompareAndSwapInt64(&f.peak, p, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls[url]++
	body, ok := f.bodies[url]
	err := f.errs[url]
	delay := f.delay
	f.mu.Unlock()

	if delay != nil {
		select {
		case <-time.After(delay(url)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &scraper.FetchError{URL: url, StatusCode: 404, Class: scraper.ClassHTTP}
	}
	return scraper.NewDocument(url, url, 200, body), nil
}

func (f *stubFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func (f *stubFetcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

var errDiskFull = errors.New("disk full")
