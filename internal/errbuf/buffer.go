// Package errbuf collects failures from every pipeline stage for the
// periodic error-digest email.
package errbuf

import (
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"rentalwatch/internal/metrics"
	"rentalwatch/internal/watch"
)

// Buffer is an in-memory, process-lifetime ordered sequence of error entries.
// Flush is at-most-once per entry: once drained for a digest, an entry is gone
// even if the send subsequently fails.
type Buffer struct {
	mu      sync.Mutex
	entries []watch.ErrorEntry
}

// New creates an empty Buffer.
func New() *Buffer {
	return &Buffer{}
}

// Add appends an entry.
func (b *Buffer) Add(entry watch.ErrorEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, entry)
}

// Flush returns all buffered entries and clears the buffer.
func (b *Buffer) Flush() []watch.ErrorEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]watch.ErrorEntry, len(b.entries))
	copy(out, b.entries)
	b.entries = b.entries[:0]
	return out
}

// HasPending reports whether any entries await flushing. Used to avoid
// sending empty digest emails.
func (b *Buffer) HasPending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries) > 0
}

// Capture logs err under scope and records it in the buffer. msg, when
// non-empty, is prepended to the buffered message.
func Capture(logger *zap.Logger, buf *Buffer, scope string, err error, msg string) {
	message := err.Error()
	if msg != "" {
		message = fmt.Sprintf("%s\n%s", msg, message)
	}

	logger.Error("error captured",
		zap.String("scope", scope),
		zap.Error(err),
	)

	metrics.RecordError(scope)
	buf.Add(watch.ErrorEntry{
		Timestamp: time.Now().UTC(),
		Path:      "/" + scope,
		Method:    "SYSTEM",
		Message:   message,
		Stack:     string(debug.Stack()),
	})
}
