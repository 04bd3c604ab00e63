// Package watch defines core types shared across subsystems.
package watch

import (
	"fmt"
	"time"
)

// Feature is one labeled attribute scraped from a listing detail page.
type Feature struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ListingRecord is one discovered listing. Identity is Link; two records with
// the same Link are the same listing.
type ListingRecord struct {
	Site        string            `json:"site,omitempty"`
	Link        string            `json:"link"`
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description"`
	Features    []Feature         `json:"features"`
	Extra       map[string]string `json:"extra,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Validate checks the required schema at the store boundary. Records missing
// required fields are rejected before they reach persistence or rendering.
func (r ListingRecord) Validate() error {
	if r.Link == "" {
		return fmt.Errorf("listing record is missing required 'link' field")
	}
	if r.Description == "" {
		return fmt.Errorf("listing record %s is missing required 'description' field", r.Link)
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("listing record %s is missing capture timestamp", r.Link)
	}
	return nil
}

// FeatureValue returns the value of the feature with the given label, or
// fallback when absent.
func (r ListingRecord) FeatureValue(label, fallback string) string {
	for _, f := range r.Features {
		if f.Label == label {
			return f.Value
		}
	}
	return fallback
}

// PageEntry is one listing stub on a search-result page: a relative link plus
// the recency signal shown next to it (for example "3 hours ago").
type PageEntry struct {
	Link    string
	Recency string
}

// PageListing is the result of extracting one search-result page.
type PageListing struct {
	Entries []PageEntry
	HasNext bool
}

// Verdict is the parsed reply of the classification oracle. Score is nil when
// the reply carried no trailing match percentage.
type Verdict struct {
	Score      *int
	Assessment string
}

// ScoreOrZero returns the score, with scoreless verdicts sorting as zero.
func (v Verdict) ScoreOrZero() int {
	if v.Score == nil {
		return 0
	}
	return *v.Score
}

// ErrorEntry is one buffered failure awaiting the error-digest email.
type ErrorEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
	Method    string    `json:"method"`
	Message   string    `json:"message"`
	Stack     string    `json:"stack,omitempty"`
}
