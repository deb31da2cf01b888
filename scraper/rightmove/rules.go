package rightmove

import (
	"encoding/json"
	"regexp"
	"strings"

	"rightmove-ingest/scraper"
)

const (
	previewDescriptionMeta = "twitter:description"
	previewImageMeta       = "twitter:image:src"
)

var (
	// priceRegexp matches a pound amount such as "£250,000".
	priceRegexp = regexp.MustCompile(`£\s*\d{1,3}(?:,\d{3})*`)
	// addressRegexp captures the span from the first "in" to the "for £" that follows it.
	addressRegexp = regexp.MustCompile(`\bin\s+(.*?)\s+for\s+£`)
	// descriptionRegexp captures a JSON string value up to the next unescaped quote.
	descriptionRegexp = regexp.MustCompile(`"description"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	// imagesRegexp matches the first "images" array, stopping at its first closing bracket.
	imagesRegexp = regexp.MustCompile(`(?s)"images"\s*:\s*(\[.*?\])`)
)

// TextRule derives one optional string field from a document.
type TextRule func(doc *scraper.Document) *string

// ListRule derives a list field from a document. It never returns an error;
// absence yields an empty list.
type ListRule func(doc *scraper.Document) []string

func previewDescription(doc *scraper.Document) string {
	content, _ := doc.FirstMeta(previewDescriptionMeta)
	return content
}

// PriceRule returns the first currency-prefixed amount in the preview description.
func PriceRule(doc *scraper.Document) *string {
	m := priceRegexp.FindString(previewDescription(doc))
	if m == "" {
		return nil
	}
	return &m
}

// AddressRule returns the trimmed span between "in" and "for £" in the preview description.
func AddressRule(doc *scraper.Document) *string {
	m := addressRegexp.FindStringSubmatch(previewDescription(doc))
	if len(m) < 2 {
		return nil
	}
	addr := strings.TrimSpace(m[1])
	if addr == "" {
		return nil
	}
	return &addr
}

// FirstImageRule returns the first preview image meta value.
func FirstImageRule(doc *scraper.Document) *string {
	for _, v := range doc.Meta(previewImageMeta) {
		if v = strings.TrimSpace(v); v != "" {
			return &v
		}
	}
	return nil
}

// DescriptionRule returns the first embedded "description" value, JSON-unescaped
// when possible and verbatim otherwise.
func DescriptionRule(doc *scraper.Document) *string {
	m := descriptionRegexp.FindStringSubmatch(doc.Body)
	if len(m) < 2 {
		return nil
	}
	value := m[1]
	var decoded string
	if err := json.Unmarshal([]byte(`"`+value+`"`), &decoded); err == nil {
		value = decoded
	}
	return &value
}

// ImagesRule collects the "url" property of every object in the first
// embedded "images" array. Entries without a string url are skipped.
func ImagesRule(doc *scraper.Document) []string {
	m := imagesRegexp.FindStringSubmatch(doc.Body)
	if len(m) < 2 {
		return []string{}
	}

	var entries []map[string]any
	if err := json.Unmarshal([]byte(m[1]), &entries); err != nil {
		return []string{}
	}

	urls := make([]string, 0, len(entries))
	for _, e := range entries {
		if u, ok := e["url"].(string); ok && u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
