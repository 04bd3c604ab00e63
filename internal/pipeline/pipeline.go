// Package pipeline composes the per-site crawlers, classifiers and the
// mailer into the cycle the scheduler drives.
package pipeline

import (
	"context"

	"go.uber.org/zap"

	"rentalwatch/internal/classifier"
	"rentalwatch/internal/crawler"
	"rentalwatch/internal/errbuf"
	"rentalwatch/internal/mailer"
	"rentalwatch/internal/metrics"
)

// Pipeline runs one crawl-classify-notify pass over all configured sites,
// sequentially. Stage failures are captured per site and never escalate past
// the cycle.
type Pipeline struct {
	crawlers    []*crawler.Crawler
	classifiers []*classifier.Classifier
	mailer      *mailer.Mailer
	errs        *errbuf.Buffer
	logger      *zap.Logger
}

// New constructs a Pipeline.
func New(
	crawlers []*crawler.Crawler,
	classifiers []*classifier.Classifier,
	m *mailer.Mailer,
	errs *errbuf.Buffer,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		crawlers:    crawlers,
		classifiers: classifiers,
		mailer:      m,
		errs:        errs,
		logger:      logger,
	}
}

// RunCycle crawls every site, then classifies every site, then attempts a
// best-effort notification send.
func (p *Pipeline) RunCycle(ctx context.Context) error {
	for _, c := range p.crawlers {
		if err := c.Run(ctx); err != nil {
			errbuf.Capture(p.logger, p.errs, "Pipeline.crawl."+c.Site(), err, "")
		}
	}
	for _, c := range p.classifiers {
		if err := c.Run(ctx); err != nil {
			errbuf.Capture(p.logger, p.errs, "Pipeline.classify."+c.Site(), err, "")
		}
	}
	if err := p.mailer.SendNotification(ctx); err != nil {
		errbuf.Capture(p.logger, p.errs, "Pipeline.notify", err, "")
	}
	metrics.RecordCycle()
	return nil
}

// FlushErrors drains the error buffer into the error-digest email. This is
// the only place buffered failures are surfaced to the operator.
func (p *Pipeline) FlushErrors(ctx context.Context) {
	p.mailer.SendErrorDigest(ctx)
}
