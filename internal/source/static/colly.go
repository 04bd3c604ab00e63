// Package static implements a page source for server-rendered sites using
// the Colly collector.
package static

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"rentalwatch/internal/watch"
)

// Aggregators cut descriptions for anonymous visitors mid-sentence; the
// dangling fragment before the ellipsis carries no signal.
var truncatedTailRe = regexp.MustCompile(`(\.\s)?[^.]*\s\.\.\.$`)

// Selectors are the CSS selectors driving extraction for one site.
type Selectors struct {
	// Item matches one result card on a search page.
	Item string `mapstructure:"item"`
	// Link matches the anchor inside an item; its href is the listing link.
	Link string `mapstructure:"link"`
	// Recency matches the element carrying the recency signal inside an item.
	Recency string `mapstructure:"recency"`
	// NextPage matches the next-page affordance.
	NextPage string `mapstructure:"next_page"`
	// Title, Description and the Feature selectors drive detail extraction.
	Title        string `mapstructure:"title"`
	Description  string `mapstructure:"description"`
	FeatureRow   string `mapstructure:"feature_row"`
	FeatureLabel string `mapstructure:"feature_label"`
	FeatureValue string `mapstructure:"feature_value"`
}

// Config controls one static source.
type Config struct {
	BaseURL   string
	SearchURL string
	// PageParam is the query parameter carrying the page number.
	PageParam string
	UserAgent string
	Timeout   time.Duration
	Selectors Selectors
}

// Source implements watch.PageSource over plain HTTP.
type Source struct {
	cfg    Config
	clock  watch.Clock
	logger *zap.Logger
	base   *colly.Collector
}

// New builds a Source.
func New(cfg Config, clock watch.Clock, logger *zap.Logger) (*Source, error) {
	if cfg.BaseURL == "" || cfg.SearchURL == "" {
		return nil, fmt.Errorf("static source: base and search URLs are required")
	}
	if cfg.PageParam == "" {
		cfg.PageParam = "page"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	base := colly.NewCollector(colly.Async(false))
	if cfg.UserAgent != "" {
		base.UserAgent = cfg.UserAgent
	}
	base.IgnoreRobotsTxt = true

	return &Source{
		cfg:    cfg,
		clock:  clock,
		logger: logger,
		base:   base,
	}, nil
}

// ListPage fetches one search-result page and extracts its entries.
func (s *Source) ListPage(ctx context.Context, pageNo int) (watch.PageListing, error) {
	collector, visitErr := s.collector(ctx)

	var listing watch.PageListing
	collector.OnHTML(s.cfg.Selectors.Item, func(e *colly.HTMLElement) {
		link := e.ChildAttr(s.cfg.Selectors.Link, "href")
		if link == "" {
			return
		}
		listing.Entries = append(listing.Entries, watch.PageEntry{
			Link:    link,
			Recency: strings.TrimSpace(e.ChildText(s.cfg.Selectors.Recency)),
		})
	})
	collector.OnHTML(s.cfg.Selectors.NextPage, func(*colly.HTMLElement) {
		listing.HasNext = true
	})

	url := s.pagedURL(pageNo)
	if err := collector.Visit(url); err != nil {
		return watch.PageListing{}, fmt.Errorf("visit %s: %w", url, err)
	}
	if *visitErr != nil {
		return watch.PageListing{}, fmt.Errorf("visit %s: %w", url, *visitErr)
	}
	return listing, nil
}

// FetchDetail fetches one listing page and extracts its structured fields.
func (s *Source) FetchDetail(ctx context.Context, link string) (watch.ListingRecord, error) {
	collector, visitErr := s.collector(ctx)

	record := watch.ListingRecord{
		Link:      link,
		Timestamp: s.clock.Now().UTC(),
	}
	collector.OnHTML(s.cfg.Selectors.Title, func(e *colly.HTMLElement) {
		if record.Title == "" {
			record.Title = strings.TrimSpace(e.Text)
		}
	})
	collector.OnHTML(s.cfg.Selectors.Description, func(e *colly.HTMLElement) {
		if record.Description != "" {
			return
		}
		text := strings.TrimSpace(e.Text)
		record.Description = truncatedTailRe.ReplaceAllString(text, "")
	})
	collector.OnHTML(s.cfg.Selectors.FeatureRow, func(e *colly.HTMLElement) {
		label := strings.TrimSpace(e.ChildText(s.cfg.Selectors.FeatureLabel))
		value := strings.TrimSpace(e.ChildText(s.cfg.Selectors.FeatureValue))
		if label == "" || value == "" {
			return
		}
		record.Features = append(record.Features, watch.Feature{Label: label, Value: value})
	})

	url := s.cfg.BaseURL + link
	s.logger.Info("scraping from link", zap.String("url", url))
	if err := collector.Visit(url); err != nil {
		return watch.ListingRecord{}, fmt.Errorf("visit %s: %w", url, err)
	}
	if *visitErr != nil {
		return watch.ListingRecord{}, fmt.Errorf("visit %s: %w", url, *visitErr)
	}
	return record, nil
}

// Close satisfies watch.PageSource; the collector holds no resources.
func (s *Source) Close() error {
	return nil
}

// collector clones the base collector for one fetch. The returned error
// pointer is populated by the OnError hook.
func (s *Source) collector(ctx context.Context) (*colly.Collector, *error) {
	collector := s.base.Clone()
	collector.SetRequestTimeout(s.cfg.Timeout)

	var visitErr error
	collector.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
		r.Headers.Set("Referer", s.cfg.BaseURL+"/en")
	})
	collector.OnError(func(_ *colly.Response, err error) {
		visitErr = err
	})
	return collector, &visitErr
}

func (s *Source) pagedURL(pageNo int) string {
	sep := "?"
	if strings.Contains(s.cfg.SearchURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s%s=%d", s.cfg.SearchURL, sep, s.cfg.PageParam, pageNo)
}
