// Package crawler implements per-site paginated discovery of new listings.
package crawler

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"rentalwatch/internal/errbuf"
	"rentalwatch/internal/metrics"
	"rentalwatch/internal/store"
	"rentalwatch/internal/watch"
)

// Config controls discovery pacing.
type Config struct {
	// PageDelayMin/Max bound the randomized delay between result pages.
	PageDelayMin time.Duration
	PageDelayMax time.Duration
	// DetailDelayMin/Max bound the randomized delay between detail fetches.
	DetailDelayMin time.Duration
	DetailDelayMax time.Duration
}

func (c *Config) applyDefaults() {
	if c.PageDelayMin <= 0 {
		c.PageDelayMin = 2 * time.Second
	}
	if c.PageDelayMax < c.PageDelayMin {
		c.PageDelayMax = 5 * time.Second
	}
	if c.DetailDelayMin <= 0 {
		c.DetailDelayMin = 3 * time.Second
	}
	if c.DetailDelayMax < c.DetailDelayMin {
		c.DetailDelayMax = 5 * time.Second
	}
}

// Crawler walks one site's search results newest-first, queueing listings not
// seen before.
type Crawler struct {
	site   string
	source watch.PageSource
	queue  *store.Queue
	viewed *store.Viewed
	errs   *errbuf.Buffer
	pauser watch.Pauser
	rng    *rand.Rand
	cfg    Config
	logger *zap.Logger
}

// New constructs a Crawler.
func New(
	site string,
	source watch.PageSource,
	queue *store.Queue,
	viewed *store.Viewed,
	errs *errbuf.Buffer,
	pauser watch.Pauser,
	rng *rand.Rand,
	cfg Config,
	logger *zap.Logger,
) *Crawler {
	cfg.applyDefaults()
	if pauser == nil {
		pauser = watch.TimerPauser{}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Crawler{
		site:   site,
		source: source,
		queue:  queue,
		viewed: viewed,
		errs:   errs,
		pauser: pauser,
		rng:    rng,
		cfg:    cfg,
		logger: logger.With(zap.String("site", site)),
	}
}

// Site returns the site key this crawler serves.
func (c *Crawler) Site() string {
	return c.site
}

// Run performs one full discovery pass: find links not yet viewed or queued,
// fetch their details and append them to the queue. Individual detail-fetch
// failures are buffered and do not abort the pass.
func (c *Crawler) Run(ctx context.Context) error {
	newLinks, err := c.findNewLinks(ctx)
	if err != nil {
		return fmt.Errorf("crawl %s: %w", c.site, err)
	}

	for _, link := range newLinks {
		record, err := c.source.FetchDetail(ctx, link)
		c.pauser.Pause(ctx, watch.RandomDelay(c.rng, c.cfg.DetailDelayMin, c.cfg.DetailDelayMax))
		if err != nil {
			errbuf.Capture(c.logger, c.errs, "Crawler."+c.site, err, fmt.Sprintf("Error scraping link: %s", link))
			continue
		}
		record.Site = c.site
		if err := record.Validate(); err != nil {
			errbuf.Capture(c.logger, c.errs, "Crawler."+c.site, err, fmt.Sprintf("Rejected malformed record: %s", link))
			continue
		}
		if err := c.queue.Append(record); err != nil {
			errbuf.Capture(c.logger, c.errs, "Crawler."+c.site, err, "")
			continue
		}
		metrics.RecordQueued(c.site)
	}
	return nil
}

// findNewLinks pages through search results and returns the ordered list of
// new, recency-qualifying links. Afterwards the viewed set is pruned to the
// links observed anywhere in this run.
func (c *Crawler) findNewLinks(ctx context.Context) ([]string, error) {
	c.logger.Info("scraping links started")

	seen, err := c.loadSeenLinks()
	if err != nil {
		return nil, err
	}

	var newLinks []string
	seenNow := make(map[string]struct{})

	for pageNo := 1; ; pageNo++ {
		listing, err := c.source.ListPage(ctx, pageNo)
		if err != nil {
			return nil, fmt.Errorf("list page %d: %w", pageNo, err)
		}
		c.logger.Info("scraping page", zap.Int("page", pageNo), zap.Int("entries", len(listing.Entries)))

		if len(listing.Entries) == 0 {
			c.logger.Info("no results found, stopping")
			break
		}

		stale := false
		for _, entry := range listing.Entries {
			if entry.Link == "" {
				continue
			}
			// Every link on the page counts toward the pruning universe,
			// recent or not.
			seenNow[entry.Link] = struct{}{}
			if !WithinLookback(entry.Recency) {
				stale = true
				continue
			}
			if _, ok := seen[entry.Link]; ok {
				continue
			}
			newLinks = append(newLinks, entry.Link)
			seen[entry.Link] = struct{}{}
			metrics.RecordDiscovered(c.site)
		}

		// Listings are ordered newest-first: one entry beyond the lookback
		// window means the rest of the result set is beyond it too.
		if stale {
			c.logger.Info("reached listings older than the lookback window, stopping", zap.Int("page", pageNo))
			break
		}
		if !listing.HasNext {
			c.logger.Info("last page reached, stopping", zap.Int("page", pageNo))
			break
		}

		c.pauser.Pause(ctx, watch.RandomDelay(c.rng, c.cfg.PageDelayMin, c.cfg.PageDelayMax))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	c.logger.Info("scraping finished", zap.Int("new_links", len(newLinks)))

	if err := c.viewed.Prune(seenNow); err != nil {
		errbuf.Capture(c.logger, c.errs, "Crawler."+c.site, err, "Error pruning viewed links")
	}
	return newLinks, nil
}

// loadSeenLinks unions the viewed set with the current queue contents so a
// listing is never queued twice.
func (c *Crawler) loadSeenLinks() (map[string]struct{}, error) {
	seen, err := c.viewed.Links()
	if err != nil {
		return nil, fmt.Errorf("load viewed links: %w", err)
	}
	queued, err := c.queue.Links()
	if err != nil {
		return nil, fmt.Errorf("load queued links: %w", err)
	}
	for link := range queued {
		seen[link] = struct{}{}
	}
	c.logger.Info("loaded previously viewed links", zap.Int("count", len(seen)))
	return seen, nil
}
