// Package classifier drains queued listings through the classification
// oracle and promotes them into the ranked notification digest.
package classifier

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"rentalwatch/internal/errbuf"
	"rentalwatch/internal/metrics"
	"rentalwatch/internal/store"
	"rentalwatch/internal/watch"
)

// Classifier processes one site's queue. A classifier missing its prompt or
// oracle credential stays dormant instead of failing the process.
type Classifier struct {
	site         string
	baseURL      string
	queue        *store.Queue
	viewed       *store.Viewed
	digest       *store.Digest
	oracle       watch.Oracle
	systemPrompt string
	errs         *errbuf.Buffer
	logger       *zap.Logger
}

// New constructs a Classifier, loading the system prompt from promptPath once
// at startup.
func New(
	site string,
	baseURL string,
	promptPath string,
	queue *store.Queue,
	viewed *store.Viewed,
	digest *store.Digest,
	oracle watch.Oracle,
	errs *errbuf.Buffer,
	logger *zap.Logger,
) *Classifier {
	c := &Classifier{
		site:    site,
		baseURL: baseURL,
		queue:   queue,
		viewed:  viewed,
		digest:  digest,
		oracle:  oracle,
		errs:    errs,
		logger:  logger.With(zap.String("site", site)),
	}

	prompt, err := os.ReadFile(promptPath)
	if err != nil {
		c.logger.Warn("classification prompt file not found, classifier will stay dormant",
			zap.String("path", promptPath), zap.Error(err))
		return c
	}
	c.systemPrompt = strings.TrimSpace(string(prompt))
	if c.systemPrompt == "" {
		c.logger.Warn("classification prompt file is empty, classifier will stay dormant",
			zap.String("path", promptPath))
	}
	return c
}

// Site returns the site key this classifier serves.
func (c *Classifier) Site() string {
	return c.site
}

// Ready reports whether the classifier can run.
func (c *Classifier) Ready() bool {
	return c.systemPrompt != "" && c.oracle != nil
}

// Run classifies every queued record independently. A reply with content
// yields a digest entry (inserted before the record is retired, so a crash
// cannot lose a classified record without its output) followed by promotion
// to the viewed set. Any per-record failure leaves the record queued for the
// next cycle.
func (c *Classifier) Run(ctx context.Context) error {
	if !c.Ready() {
		c.logger.Warn("classifier is dormant, skipping")
		return nil
	}

	records, err := c.queue.Load()
	if err != nil {
		return fmt.Errorf("classify %s: load queue: %w", c.site, err)
	}
	if len(records) == 0 {
		c.logger.Info("no queued listings to classify")
		return nil
	}

	for _, record := range records {
		if err := c.classifyRecord(ctx, record); err != nil {
			errbuf.Capture(c.logger, c.errs, "Classifier."+c.site, err,
				fmt.Sprintf("Error classifying record: %s", record.Link))
			continue
		}
	}
	return nil
}

func (c *Classifier) classifyRecord(ctx context.Context, record watch.ListingRecord) error {
	reply, err := c.oracle.Complete(ctx, c.systemPrompt, BuildPrompt(record))
	if err != nil {
		return fmt.Errorf("oracle: %w", err)
	}
	if strings.TrimSpace(reply) == "" {
		c.logger.Warn("oracle returned an empty reply, record stays queued", zap.String("link", record.Link))
		return nil
	}

	verdict := ParseVerdict(reply)
	c.logger.Info("classification result",
		zap.String("link", record.Link),
		zap.Int("score", verdict.ScoreOrZero()),
	)

	entry, err := RenderEntry(c.baseURL, record, verdict)
	if err != nil {
		return err
	}
	if err := c.digest.Insert(entry); err != nil {
		return fmt.Errorf("insert digest entry: %w", err)
	}
	if err := c.queue.ConsumeAndPromote(record.Link, c.viewed); err != nil {
		return fmt.Errorf("promote record: %w", err)
	}
	metrics.RecordClassified(c.site)
	return nil
}
