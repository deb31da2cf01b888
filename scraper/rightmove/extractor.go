package rightmove

import (
	"golang.org/x/sync/errgroup"

	"rightmove-ingest/scraper"
	"rightmove-ingest/utils"
)

// Fields is what the Extractor derives from one document.
type Fields struct {
	Price         *string
	Address       *string
	Description   *string
	FirstImageURL *string
	Images        []string
}

// Extractor runs one rule per field concurrently against a single document.
// Any rule can be swapped without touching the others.
type Extractor struct {
	Price       TextRule
	Address     TextRule
	Description TextRule
	FirstImage  TextRule
	Images      ListRule

	logger *utils.Logger
}

// NewExtractor returns an Extractor wired with the default rules.
func NewExtractor(logger *utils.Logger) *Extractor {
	return &Extractor{
		Price:       PriceRule,
		Address:     AddressRule,
		Description: DescriptionRule,
		FirstImage:  FirstImageRule,
		Images:      ImagesRule,
		logger:      logger,
	}
}

// Extract joins all rules before returning. A rule that panics leaves its
// field nil and does not affect its siblings.
func (e *Extractor) Extract(doc *scraper.Document) Fields {
	var out Fields
	var g errgroup.Group

	g.Go(func() error { out.Price = e.runText("price", e.Price, doc); return nil })
	g.Go(func() error { out.Address = e.runText("address", e.Address, doc); return nil })
	g.Go(func() error { out.Description = e.runText("description", e.Description, doc); return nil })
	g.Go(func() error { out.FirstImageURL = e.runText("first_image", e.FirstImage, doc); return nil })
	g.Go(func() error {
		defer e.recoverRule("images", doc)
		if e.Images != nil {
			out.Images = e.Images(doc)
		}
		return nil
	})
	_ = g.Wait()

	if out.Images == nil {
		out.Images = []string{}
	}
	return out
}

func (e *Extractor) runText(name string, rule TextRule, doc *scraper.Document) (v *string) {
	defer e.recoverRule(name, doc)
	if rule == nil {
		return nil
	}
	return rule(doc)
}

func (e *Extractor) recoverRule(name string, doc *scraper.Document) {
	if r := recover(); r != nil && e.logger != nil {
		e.logger.Warn("[extract] rule %s panicked on %s: %v", name, doc.URL, r)
	}
}
