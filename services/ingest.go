package services

import (
	"context"
	"errors"
	"fmt"

	"rightmove-ingest/models"
	"rightmove-ingest/scraper"
	"rightmove-ingest/scraper/rightmove"
	"rightmove-ingest/storage"
	"rightmove-ingest/utils"
)

var (
	// ErrNoURLs is returned when submitted text contains no http(s) URL.
	ErrNoURLs = errors.New("no valid URLs found")
	// ErrNotTargetSite marks a URL outside the target domain.
	ErrNotTargetSite = errors.New("not a Rightmove URL")
)

// IngesterConfig controls batch behaviour.
type IngesterConfig struct {
	Concurrency  int
	RateLimitMs  int
	TargetDomain string
	// SkipKnown consults the store before fetching. When false, known URLs are
	// fetched again and only new images are added to the existing listing.
	SkipKnown bool
}

// Ingester runs the per-URL pipeline (dedup gate, fetch, extract, store)
// over a batch under a concurrency cap.
type Ingester struct {
	cfg       IngesterConfig
	store     storage.ListingStore
	fetcher   scraper.Fetcher
	extractor *rightmove.Extractor
	collector *URLCollector
	logger    *utils.Logger
}

// NewIngester creates a ready-to-use Ingester.
func NewIngester(
	cfg IngesterConfig,
	store storage.ListingStore,
	fetcher scraper.Fetcher,
	extractor *rightmove.Extractor,
	collector *URLCollector,
	logger *utils.Logger,
) *Ingester {
	if cfg.TargetDomain == "" {
		cfg.TargetDomain = rightmove.DefaultDomain
	}
	return &Ingester{
		cfg:       cfg,
		store:     store,
		fetcher:   fetcher,
		extractor: extractor,
		collector: collector,
		logger:    logger,
	}
}

// IngestText collects URLs from free-form text and runs them as one batch.
func (in *Ingester) IngestText(ctx context.Context, text string) ([]models.Outcome, error) {
	urls := in.collector.Collect(text)
	if len(urls) == 0 {
		return nil, ErrNoURLs
	}
	return in.Run(ctx, urls), nil
}

// Run ingests urls and returns one outcome per URL in input order.
// URLs are expected to be normalized already.
func (in *Ingester) Run(ctx context.Context, urls []string) []models.Outcome {
	outcomes := make([]models.Outcome, len(urls))
	pool := utils.NewWorkerPool(in.cfg.Concurrency, in.cfg.RateLimitMs)

	in.logger.Info("[ingest] Batch of %d URLs, concurrency %d", len(urls), pool.Size())

	for i, u := range urls {
		if !rightmove.IsTargetURL(u, in.cfg.TargetDomain) {
			msg := ErrNotTargetSite.Error()
			outcomes[i] = models.Outcome{URL: u, Status: models.OutcomeInvalid, Error: &msg, Stage: models.StageInvalid}
			in.logger.Debug("[ingest] %s: invalid host", u)
			continue
		}
		pool.Submit(func() {
			outcomes[i] = in.ingestOne(ctx, u)
		})
	}
	pool.Wait()

	return outcomes
}

func (in *Ingester) ingestOne(ctx context.Context, url string) (out models.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			in.logger.Error("[ingest] %s: pipeline panic: %v", url, r)
			out = errorOutcome(url, models.StageStoreFailed, fmt.Errorf("pipeline panic: %v", r))
		}
	}()

	if in.cfg.SkipKnown {
		exists, err := in.store.Exists(ctx, url)
		if err != nil {
			in.logger.Error("[ingest] %s: dedup lookup failed: %v", url, err)
			return errorOutcome(url, models.StageLookupFailed, err)
		}
		if exists {
			in.logger.Debug("[ingest] %s: already stored, skipping", url)
			return models.Outcome{URL: url, Status: models.OutcomeExists, Stage: models.StageSkipped}
		}
	}

	listing := &models.Listing{URL: url, Status: models.StatusOK}
	var images []string

	doc, fetchErr := in.fetcher.Fetch(ctx, url)
	if fetchErr != nil {
		in.logger.Warn("[ingest] %s: %v", url, fetchErr)
		msg := fetchErr.Error()
		listing.Status = models.StatusError
		listing.Error = &msg
	} else {
		fields := in.extractor.Extract(doc)
		listing.Price = fields.Price
		listing.Address = fields.Address
		listing.Description = fields.Description
		listing.FirstImageURL = fields.FirstImageURL
		images = fields.Images
		in.logger.Debug("[ingest] %s: extracted %d images", url, len(images))
	}

	// The write outlives caller cancellation so a started pipeline always records its row.
	res, err := in.store.InsertListing(context.WithoutCancel(ctx), listing, images)
	if err != nil {
		in.logger.Error("[ingest] %s: store failed: %v", url, err)
		return errorOutcome(url, models.StageStoreFailed, err)
	}

	if fetchErr != nil {
		return models.Outcome{
			URL:       url,
			Status:    models.OutcomeError,
			Error:     listing.Error,
			Stage:     models.StageFetchFailed,
			ListingID: res.ListingID,
		}
	}

	if !res.Created {
		in.logger.Debug("[ingest] %s: listing %d already present, %d new images", url, res.ListingID, res.ImagesAdded)
		return models.Outcome{URL: url, Status: models.OutcomeExists, Stage: models.StageStored, ListingID: res.ListingID}
	}

	in.logger.Info("[ingest] %s: stored listing %d", url, res.ListingID)
	return models.Outcome{URL: url, Status: models.OutcomeInserted, Stage: models.StageStored, ListingID: res.ListingID}
}

func errorOutcome(url string, stage models.Stage, err error) models.Outcome {
	msg := err.Error()
	return models.Outcome{URL: url, Status: models.OutcomeError, Error: &msg, Stage: stage}
}
