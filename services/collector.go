package services

import (
	"regexp"
	"strings"

	"rightmove-ingest/scraper/rightmove"
	"rightmove-ingest/utils"
)

// urlRegexp matches every http(s) token up to the next whitespace.
var urlRegexp = regexp.MustCompile(`https?://\S+`)

// URLCollector turns free-form submitted text into a normalized, de-duplicated
// URL batch.
type URLCollector struct {
	maxURLs int
	logger  *utils.Logger
}

// NewURLCollector creates a URLCollector that keeps at most maxURLs URLs.
// A non-positive maxURLs disables the cap.
func NewURLCollector(maxURLs int, logger *utils.Logger) *URLCollector {
	return &URLCollector{maxURLs: maxURLs, logger: logger}
}

// Collect returns the URLs found in text, normalized, in first-seen order.
func (c *URLCollector) Collect(text string) []string {
	seen := utils.NewURLSet()

	for _, raw := range urlRegexp.FindAllString(text, -1) {
		u := rightmove.Normalize(strings.TrimSpace(raw))
		if u == "" {
			continue
		}
		if !seen.Add(u) {
			c.logger.Debug("[collect] Duplicate URL skipped: %s", u)
		}
	}

	urls := seen.Items()
	if c.maxURLs > 0 && len(urls) > c.maxURLs {
		c.logger.Warn("[collect] %d URLs submitted, keeping the first %d", len(urls), c.maxURLs)
		urls = urls[:c.maxURLs]
	}
	return urls
}
