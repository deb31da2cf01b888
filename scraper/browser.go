package scraper

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"
)

// BrowserFetcher renders the page in headless Chrome before reading its markup.
// Use it when the target rejects plain HTTP clients.
type BrowserFetcher struct {
	timeout   time.Duration
	userAgent string
	chromeBin string
}

// NewBrowserFetcher creates a BrowserFetcher. An empty chromeBin triggers a
// lookup of common Chrome/Chromium install locations.
func NewBrowserFetcher(timeout time.Duration, userAgent, chromeBin string) *BrowserFetcher {
	if chromeBin == "" {
		chromeBin = FindChromeBinary()
	}
	return &BrowserFetcher{timeout: timeout, userAgent: userAgent, chromeBin: chromeBin}
}

func (b *BrowserFetcher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(b.userAgent),
	)
	if b.chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(b.chromeBin))
	}
	return opts
}

func (b *BrowserFetcher) Fetch(ctx context.Context, url string) (*Document, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, b.allocatorOptions()...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.timeout)
	defer cancelTimeout()

	resp, err := chromedp.RunResponse(tabCtx, chromedp.Navigate(url))
	if err != nil {
		return nil, &FetchError{URL: url, Class: classify(err), Err: fmt.Errorf("chromedp navigate: %w", err)}
	}
	status := 0
	if resp != nil {
		status = int(resp.Status)
	}
	if status != 0 && (status < 200 || status > 299) {
		return nil, &FetchError{URL: url, StatusCode: status, Class: ClassHTTP}
	}

	var html, finalURL string
	if err := chromedp.Run(tabCtx,
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return nil, &FetchError{URL: url, StatusCode: status, Class: ClassRead, Err: fmt.Errorf("chromedp read: %w", err)}
	}

	return NewDocument(url, finalURL, status, html), nil
}

// FindChromeBinary locates a Chrome/Chromium binary, honouring CHROME_BIN.
func FindChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
