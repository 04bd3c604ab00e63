// Package headless implements a page source that drives a real browser via
// chromedp, for sites that render listings client-side or fingerprint plain
// HTTP clients.
package headless

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"rentalwatch/internal/source/static"
	"rentalwatch/internal/watch"
)

// Config controls the headless source. Selectors are shared with the static
// source; here they feed querySelector calls evaluated in the page.
type Config struct {
	BaseURL   string
	SearchURL string
	PageParam string
	UserAgent string
	// UserDataDir persists the browser profile (cookies, consent state)
	// across runs, standing in for a saved login session.
	UserDataDir       string
	NavigationTimeout time.Duration
	Selectors         static.Selectors
}

// Source implements watch.PageSource with headless Chrome.
type Source struct {
	cfg         Config
	clock       watch.Clock
	logger      *zap.Logger
	allocator   context.Context
	allocCancel context.CancelFunc
}

type pageEntryDTO struct {
	Link    string `json:"link"`
	Recency string `json:"recency"`
}

type featureDTO struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// New creates a headless source backed by a shared browser allocator.
func New(cfg Config, clock watch.Clock, logger *zap.Logger) (*Source, error) {
	if cfg.BaseURL == "" || cfg.SearchURL == "" {
		return nil, fmt.Errorf("headless source: base and search URLs are required")
	}
	if cfg.PageParam == "" {
		cfg.PageParam = "page"
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Source{
		cfg:         cfg,
		clock:       clock,
		logger:      logger,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// ListPage navigates to one search-result page and extracts its entries in
// the page context.
func (s *Source) ListPage(ctx context.Context, pageNo int) (watch.PageListing, error) {
	sel := s.cfg.Selectors

	entriesJS := fmt.Sprintf(`(() => {
		const items = Array.from(document.querySelectorAll(%q));
		return items.map((item) => {
			const link = item.querySelector(%q);
			const recency = item.querySelector(%q);
			return {
				link: link ? (link.getAttribute('href') || '') : '',
				recency: recency ? recency.textContent.trim() : '',
			};
		}).filter((e) => e.link !== '');
	})()`, sel.Item, sel.Link, sel.Recency)
	hasNextJS := fmt.Sprintf(`document.querySelector(%q) !== null`, sel.NextPage)

	var (
		entries []pageEntryDTO
		hasNext bool
	)
	url := s.pagedURL(pageNo)
	err := s.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500*time.Millisecond),
		chromedp.Evaluate(entriesJS, &entries),
		chromedp.Evaluate(hasNextJS, &hasNext),
	)
	if err != nil {
		return watch.PageListing{}, fmt.Errorf("list page %s: %w", url, err)
	}

	listing := watch.PageListing{HasNext: hasNext}
	for _, e := range entries {
		listing.Entries = append(listing.Entries, watch.PageEntry{Link: e.Link, Recency: e.Recency})
	}
	return listing, nil
}

// FetchDetail navigates to one listing page and extracts its fields.
func (s *Source) FetchDetail(ctx context.Context, link string) (watch.ListingRecord, error) {
	sel := s.cfg.Selectors

	textJS := func(selector string) string {
		return fmt.Sprintf(`(() => {
			const el = document.querySelector(%q);
			return el ? el.textContent.trim() : '';
		})()`, selector)
	}
	featuresJS := fmt.Sprintf(`(() => {
		const rows = Array.from(document.querySelectorAll(%q));
		return rows.map((row) => {
			const label = row.querySelector(%q);
			const value = row.querySelector(%q);
			return {
				label: label ? label.textContent.trim() : '',
				value: value ? value.textContent.trim() : '',
			};
		}).filter((f) => f.label !== '' && f.value !== '');
	})()`, sel.FeatureRow, sel.FeatureLabel, sel.FeatureValue)

	var (
		title       string
		description string
		features    []featureDTO
	)
	url := s.cfg.BaseURL + link
	s.logger.Info("scraping from link", zap.String("url", url))
	err := s.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500*time.Millisecond),
		chromedp.Evaluate(textJS(sel.Title), &title),
		chromedp.Evaluate(textJS(sel.Description), &description),
		chromedp.Evaluate(featuresJS, &features),
	)
	if err != nil {
		return watch.ListingRecord{}, fmt.Errorf("fetch detail %s: %w", url, err)
	}

	record := watch.ListingRecord{
		Link:        link,
		Title:       title,
		Description: description,
		Timestamp:   s.clock.Now().UTC(),
	}
	for _, f := range features {
		record.Features = append(record.Features, watch.Feature{Label: f.Label, Value: f.Value})
	}
	return record, nil
}

// Close tears down the browser allocator.
func (s *Source) Close() error {
	s.allocCancel()
	return nil
}

// run executes actions in a fresh tab with the navigation timeout applied.
func (s *Source) run(ctx context.Context, actions ...chromedp.Action) error {
	taskCtx, taskCancel := chromedp.NewContext(s.allocator)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, s.cfg.NavigationTimeout)
	defer cancel()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	all := append([]chromedp.Action{s.headerAction()}, actions...)
	if err := chromedp.Run(taskCtx, all...); err != nil {
		return fmt.Errorf("chromedp run: %w", err)
	}
	return nil
}

func (s *Source) headerAction() chromedp.Action {
	headers := network.Headers{"accept-language": "en-US,en;q=0.9"}
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return err
		}
		return network.SetExtraHTTPHeaders(headers).Do(ctx)
	})
}

func (s *Source) pagedURL(pageNo int) string {
	sep := "?"
	for _, r := range s.cfg.SearchURL {
		if r == '?' {
			sep = "&"
			break
		}
	}
	return fmt.Sprintf("%s%s%s=%d", s.cfg.SearchURL, sep, s.cfg.PageParam, pageNo)
}
