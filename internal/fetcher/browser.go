package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"github.com/Pjroelofsen/gradharvest/internal/config"
	"github.com/Pjroelofsen/gradharvest/internal/types"
)

// BrowserFetcher implements Fetcher using a headless browser via Rod. It is
// the fallback for deployments where the listing sits behind a JS wall; the
// retry contract is identical to HTTPFetcher.
type BrowserFetcher struct {
	browser  *rod.Browser
	cfg      *config.FetcherConfig
	policy   RetryPolicy
	logger   *slog.Logger
	pagePool chan *rod.Page
	maxPages int
}

// NewBrowserFetcher launches a headless browser and prepares a page pool
// sized to the worker count.
func NewBrowserFetcher(cfg *config.Config, logger *slog.Logger) (*BrowserFetcher, error) {
	l := launcher.New().
		Headless(true).
		Set("disable-blink-features", "AutomationControlled")

	launchURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	bf := &BrowserFetcher{
		browser: browser,
		cfg:     &cfg.Fetcher,
		policy: RetryPolicy{
			MaxAttempts: cfg.Fetcher.MaxAttempts,
			BaseDelay:   cfg.Fetcher.RetryBaseDelay,
			MaxDelay:    cfg.Fetcher.RetryMaxDelay,
		},
		logger:   logger.With("component", "browser_fetcher"),
		maxPages: cfg.Run.Workers,
	}
	bf.pagePool = make(chan *rod.Page, bf.maxPages)

	bf.logger.Info("browser fetcher ready", "max_pages", bf.maxPages)
	return bf, nil
}

// Fetch navigates to a URL and returns the rendered HTML.
func (f *BrowserFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	return fetchWithRetry(ctx, url, f.policy, func(ctx context.Context) (*Page, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, f.cfg.RequestTimeout)
		defer cancel()
		return f.fetchOnce(attemptCtx, url)
	})
}

func (f *BrowserFetcher) fetchOnce(ctx context.Context, url string) (*Page, error) {
	page, err := f.acquirePage()
	if err != nil {
		return nil, &types.FetchError{URL: url, Err: err, Retryable: true}
	}
	defer f.releasePage(page)

	page = page.Context(ctx)

	start := time.Now()
	if err := page.Navigate(url); err != nil {
		return nil, &types.FetchError{URL: url, Err: fmt.Errorf("navigate: %w", err), Retryable: true}
	}
	if err := page.WaitLoad(); err != nil {
		return nil, &types.FetchError{URL: url, Err: fmt.Errorf("wait load: %w", err), Retryable: true}
	}

	html, err := page.HTML()
	if err != nil {
		return nil, &types.FetchError{URL: url, Err: fmt.Errorf("read html: %w", err), Retryable: true}
	}
	duration := time.Since(start)

	info, err := page.Info()
	finalURL := url
	if err == nil && info.URL != "" {
		finalURL = info.URL
	}

	f.logger.Debug("browser fetch complete", "url", url, "size", len(html), "duration", duration)

	return &Page{
		URL:           url,
		StatusCode:    200,
		Body:          []byte(html),
		FinalURL:      finalURL,
		FetchDuration: duration,
		FetchedAt:     time.Now(),
	}, nil
}

// acquirePage takes a page from the pool, creating one if the pool is not
// yet full. Pages are created with the stealth script applied.
func (f *BrowserFetcher) acquirePage() (*rod.Page, error) {
	select {
	case page := <-f.pagePool:
		return page, nil
	default:
		return stealth.Page(f.browser)
	}
}

func (f *BrowserFetcher) releasePage(page *rod.Page) {
	// Reset to a blank page so state does not leak between fetches.
	_ = page.Navigate("about:blank")
	select {
	case f.pagePool <- page:
	default:
		_ = page.Close()
	}
}

// Close shuts down the browser and all pooled pages.
func (f *BrowserFetcher) Close() error {
	close(f.pagePool)
	for page := range f.pagePool {
		_ = page.Close()
	}
	if f.browser != nil {
		return f.browser.Close()
	}
	return nil
}
