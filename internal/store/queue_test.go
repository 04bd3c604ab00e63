package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"rentalwatch/internal/watch"
)

func testRecord(link string) watch.ListingRecord {
	return watch.ListingRecord{
		Site:        "example",
		Link:        link,
		Title:       "Nice apartment",
		Description: "Bright two-room apartment near the station.",
		Features:    []watch.Feature{{Label: "Rental price", Value: "€1200"}},
		Timestamp:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestQueueAppendAndLoad(t *testing.T) {
	t.Parallel()

	q := NewQueue(filepath.Join(t.TempDir(), "queue.ndjson"), zap.NewNop())

	if err := q.Append(testRecord("/listing/1")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := q.Append(testRecord("/listing/2")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	records, err := q.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Link != "/listing/1" || records[1].Link != "/listing/2" {
		t.Fatalf("records out of order: %+v", records)
	}
	if records[0].Features[0].Value != "€1200" {
		t.Fatalf("features not round-tripped: %+v", records[0].Features)
	}
}

func TestQueueAppendDeduplicatesByLink(t *testing.T) {
	t.Parallel()

	q := NewQueue(filepath.Join(t.TempDir(), "queue.ndjson"), zap.NewNop())

	if err := q.Append(testRecord("/listing/1")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	dup := testRecord("/listing/1")
	dup.Title = "Same place, different scrape"
	if err := q.Append(dup); err != nil {
		t.Fatalf("Append() duplicate error = %v", err)
	}

	records, err := q.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record after duplicate append, got %d", len(records))
	}
	if records[0].Title != "Nice apartment" {
		t.Fatalf("duplicate append replaced original record: %+v", records[0])
	}
}

func TestQueueAppendRejectsMissingLink(t *testing.T) {
	t.Parallel()

	q := NewQueue(filepath.Join(t.TempDir(), "queue.ndjson"), zap.NewNop())

	rec := testRecord("")
	if err := q.Append(rec); err == nil {
		t.Fatal("expected error for record without link")
	}
}

func TestQueueMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	q := NewQueue(filepath.Join(t.TempDir(), "nope.ndjson"), zap.NewNop())

	records, err := q.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty queue, got %d records", len(records))
	}
	links, err := q.Links()
	if err != nil {
		t.Fatalf("Links() error = %v", err)
	}
	if len(links) != 0 {
		t.Fatalf("expected no links, got %v", links)
	}
}

func TestQueueLoadSkipsMalformedLines(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "queue.ndjson")
	q := NewQueue(path, zap.NewNop())
	if err := q.Append(testRecord("/listing/1")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString("{not valid json\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	f.Close()
	if err := q.Append(testRecord("/listing/2")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	records, err := q.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected malformed line skipped, got %d records", len(records))
	}
}

func TestQueueConsumeAndPromote(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	q := NewQueue(filepath.Join(dir, "queue.ndjson"), zap.NewNop())
	v := NewViewed(filepath.Join(dir, "viewed.ndjson"), zap.NewNop())

	for _, link := range []string{"/listing/1", "/listing/2", "/listing/3"} {
		if err := q.Append(testRecord(link)); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	if err := q.ConsumeAndPromote("/listing/2", v); err != nil {
		t.Fatalf("ConsumeAndPromote() error = %v", err)
	}

	records, err := q.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records left, got %d", len(records))
	}
	if records[0].Link != "/listing/1" || records[1].Link != "/listing/3" {
		t.Fatalf("wrong records survived: %+v", records)
	}

	viewed, err := v.Links()
	if err != nil {
		t.Fatalf("Links() error = %v", err)
	}
	if _, ok := viewed["/listing/2"]; !ok {
		t.Fatalf("consumed link not promoted to viewed set: %v", viewed)
	}
}

func TestQueueConsumePreservesMalformedLines(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "queue.ndjson")
	q := NewQueue(path, zap.NewNop())
	v := NewViewed(filepath.Join(dir, "viewed.ndjson"), zap.NewNop())

	if err := q.Append(testRecord("/listing/1")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	garbage := `{"link": "/listing/broken", "features": [truncated`
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString(garbage + "\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	f.Close()

	if err := q.ConsumeAndPromote("/listing/1", v); err != nil {
		t.Fatalf("ConsumeAndPromote() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read queue: %v", err)
	}
	if !strings.Contains(string(data), garbage) {
		t.Fatalf("malformed line dropped during consume:\n%s", data)
	}
	if strings.Contains(string(data), "/listing/1\"") {
		t.Fatalf("consumed record still present:\n%s", data)
	}
}

func TestQueueConsumeAbortBeforeRenameLeavesQueueIntact(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "queue.ndjson")
	q := NewQueue(path, zap.NewNop())
	v := NewViewed(filepath.Join(dir, "viewed.ndjson"), zap.NewNop())

	for _, link := range []string{"/a", "/b"} {
		if err := q.Append(testRecord(link)); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read queue: %v", err)
	}

	// Occupying the temp path with a directory makes the rewrite fail before
	// the final rename can happen.
	if err := os.Mkdir(path+".tmp", 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if err := q.ConsumeAndPromote("/a", v); err == nil {
		t.Fatal("expected error when the rewrite cannot start")
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read queue: %v", err)
	}
	if string(before) != string(after) {
		t.Fatalf("aborted consume mutated the queue:\nbefore: %s\nafter: %s", before, after)
	}

	viewed, err := v.Links()
	if err != nil {
		t.Fatalf("Links() error = %v", err)
	}
	if _, ok := viewed["/a"]; ok {
		t.Fatal("aborted consume must not promote the link")
	}
}

func TestQueueConsumeUnknownLinkKeepsQueue(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	q := NewQueue(filepath.Join(dir, "queue.ndjson"), zap.NewNop())
	v := NewViewed(filepath.Join(dir, "viewed.ndjson"), zap.NewNop())

	if err := q.Append(testRecord("/listing/1")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := q.ConsumeAndPromote("/listing/unknown", v); err != nil {
		t.Fatalf("ConsumeAndPromote() error = %v", err)
	}

	records, err := q.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("queue mutated by unknown-link consume: %+v", records)
	}
}
