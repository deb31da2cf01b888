package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const maxBodyBytes = 10 << 20

// ErrBodyTooLarge is returned when a response body exceeds the read limit.
var ErrBodyTooLarge = fmt.Errorf("response body exceeds %d bytes", maxBodyBytes)

// Failure classes carried by FetchError.
const (
	ClassHTTP    = "http"
	ClassTimeout = "timeout"
	ClassNetwork = "network"
	ClassRead    = "read"
)

// FetchError is the terminal failure of one document fetch.
type FetchError struct {
	URL        string
	StatusCode int
	Class      string
	Err        error
}

func (e *FetchError) Error() string {
	if e.Class == ClassHTTP {
		return fmt.Sprintf("fetch %s: HTTP %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Class, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher retrieves one document per call. Implementations make exactly one
// outbound request and never retry.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Document, error)
}

// DefaultHeaders is the browser-like header set sent with every request.
func DefaultHeaders(userAgent string) http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", "en-GB,en;q=0.9")
	h.Set("Cache-Control", "no-cache")
	h.Set("Upgrade-Insecure-Requests", "1")
	return h
}

// HTTPFetcher fetches documents with net/http. Redirects are followed by the client.
type HTTPFetcher struct {
	client  *http.Client
	headers http.Header
}

// NewHTTPFetcher creates an HTTPFetcher with the given per-request timeout.
func NewHTTPFetcher(timeout time.Duration, userAgent string) *HTTPFetcher {
	return &HTTPFetcher{
		client:  &http.Client{Timeout: timeout},
		headers: DefaultHeaders(userAgent),
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Class: ClassNetwork, Err: err}
	}
	for k, v := range f.headers {
		req.Header[k] = v
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Class: classify(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Class: ClassHTTP}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Class: ClassRead, Err: err}
	}
	if len(body) > maxBodyBytes {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Class: ClassRead, Err: ErrBodyTooLarge}
	}

	return NewDocument(url, resp.Request.URL.String(), resp.StatusCode, string(body)), nil
}

func classify(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ClassTimeout
	}
	return ClassNetwork
}
