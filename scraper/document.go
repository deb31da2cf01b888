package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document is the immutable result of one fetch. It is safe to share across
// goroutines: the meta index is built once in NewDocument and never written again.
type Document struct {
	URL        string
	FinalURL   string
	StatusCode int
	Body       string

	meta map[string][]string
}

// NewDocument wraps a fetched body and indexes its <meta> tags by name and property.
// Unparseable markup leaves the index empty; the raw Body is still available.
func NewDocument(url, finalURL string, status int, body string) *Document {
	d := &Document{
		URL:        url,
		FinalURL:   finalURL,
		StatusCode: status,
		Body:       body,
		meta:       make(map[string][]string),
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return d
	}

	doc.Find("meta[content]").Each(func(_ int, sel *goquery.Selection) {
		content, _ := sel.Attr("content")
		for _, attr := range []string{"name", "property"} {
			key, ok := sel.Attr(attr)
			key = strings.ToLower(strings.TrimSpace(key))
			if !ok || key == "" {
				continue
			}
			d.meta[key] = append(d.meta[key], content)
		}
	})

	return d
}

// Meta returns every content value of the meta tags whose name or property
// equals key (case-insensitive), in document order.
func (d *Document) Meta(key string) []string {
	return d.meta[strings.ToLower(key)]
}

// FirstMeta returns the first content value for key, if any.
func (d *Document) FirstMeta(key string) (string, bool) {
	vals := d.Meta(key)
	if len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}
