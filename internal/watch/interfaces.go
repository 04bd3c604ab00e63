package watch

import (
	"context"
	"time"
)

// PageSource abstracts the page-automation layer for one site: list a
// search-result page, fetch structured fields for one listing.
type PageSource interface {
	ListPage(ctx context.Context, pageNo int) (PageListing, error)
	FetchDetail(ctx context.Context, link string) (ListingRecord, error)
	Close() error
}

// Oracle is the external text-classification capability: prompt in,
// free-text verdict out.
type Oracle interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Transport delivers a rendered email and returns a delivery id.
type Transport interface {
	Send(ctx context.Context, subject, html string) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Pauser abstracts deliberate delays so loops stay testable.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration)
}
