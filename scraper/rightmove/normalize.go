// Package rightmove holds the site-specific parts of ingestion: URL
// canonicalization, the host filter and the field extraction rules.
package rightmove

import (
	"net/url"
	"strings"
)

// DefaultDomain is the registrable domain of the target site.
const DefaultDomain = "rightmove.co.uk"

// Normalize strips everything from the first '#' onward. It accepts any
// string and is idempotent.
func Normalize(raw string) string {
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		return raw[:i]
	}
	return raw
}

// IsTargetURL reports whether raw is an http(s) URL whose host is domain or
// one of its subdomains.
func IsTargetURL(raw, domain string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	domain = strings.ToLower(domain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}
