package crawler

import "regexp"

// Aggregators label fresh listings in hours or days; anything older (weeks,
// months) is outside the lookback window.
var recencyRe = regexp.MustCompile(`(?i)\b(hour|hours|day|days)\b`)

// WithinLookback reports whether a recency signal such as "3 hours ago" or
// "posted 2 days ago" falls inside the lookback window.
func WithinLookback(signal string) bool {
	return recencyRe.MatchString(signal)
}
