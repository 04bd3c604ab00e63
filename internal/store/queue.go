// Package store implements the per-site durable state files: the append-only
// listing queue, the viewed-link set, and the ranked notification digest.
// Each file has exactly one writer (the pipeline worker) and is mutated by
// read-all, rewrite-all and atomic rename.
package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"rentalwatch/internal/watch"
)

// maxLineBytes bounds a single persisted record line.
const maxLineBytes = 4 * 1024 * 1024

// Queue is the durable store of discovered-but-not-yet-classified listings,
// persisted as one JSON record per line. Invariant: at most one record per
// distinct link value.
type Queue struct {
	path   string
	logger *zap.Logger
}

// NewQueue creates a Queue backed by the file at path.
func NewQueue(path string, logger *zap.Logger) *Queue {
	return &Queue{path: path, logger: logger}
}

// Path returns the backing file path.
func (q *Queue) Path() string {
	return q.path
}

// Append persists a new record unless one with the same link already exists.
// A record without a link is malformed collaborator output and is an error.
func (q *Queue) Append(record watch.ListingRecord) error {
	if record.Link == "" {
		return fmt.Errorf("queue append: record is missing required 'link' field")
	}

	exists, err := q.Contains(record.Link)
	if err != nil {
		return fmt.Errorf("queue append: %w", err)
	}
	if exists {
		q.logger.Info("link already queued, skipping", zap.String("link", record.Link))
		return nil
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("queue append: marshal record: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(q.path), 0o750); err != nil {
		return fmt.Errorf("queue append: create data dir: %w", err)
	}
	f, err := os.OpenFile(q.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("queue append: open: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("queue append: write: %w", err)
	}
	return nil
}

// Contains reports whether a record with the given link is queued.
func (q *Queue) Contains(link string) (bool, error) {
	found := false
	err := q.scanLines(func(line string) {
		var rec struct {
			Link string `json:"link"`
		}
		if json.Unmarshal([]byte(line), &rec) == nil && rec.Link == link {
			found = true
		}
	})
	return found, err
}

// Links returns the set of queued link values.
func (q *Queue) Links() (map[string]struct{}, error) {
	links := make(map[string]struct{})
	err := q.scanLines(func(line string) {
		var rec struct {
			Link string `json:"link"`
		}
		if json.Unmarshal([]byte(line), &rec) == nil && rec.Link != "" {
			links[rec.Link] = struct{}{}
		}
	})
	if err != nil {
		return nil, err
	}
	return links, nil
}

// Load returns all parseable queued records in file order. Malformed lines are
// logged and skipped here; they stay in the file untouched.
func (q *Queue) Load() ([]watch.ListingRecord, error) {
	var records []watch.ListingRecord
	err := q.scanLines(func(line string) {
		var rec watch.ListingRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			q.logger.Warn("failed to parse queued line", zap.String("line", line), zap.Error(err))
			return
		}
		records = append(records, rec)
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ConsumeAndPromote removes the record with the given link from the queue and
// appends the link to the viewed set, atomically from an external observer's
// perspective: a crash before the final rename leaves the queue file intact.
// Unparsable lines are rewritten verbatim, never dropped. The caller must have
// already recorded the rendered notification in the digest before calling.
func (q *Queue) ConsumeAndPromote(link string, viewed *Viewed) error {
	tmpPath := q.path + ".tmp"
	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("consume %s: open temp: %w", link, err)
	}
	defer tmp.Close()

	found := false
	writeErr := q.scanLines(func(line string) {
		var rec struct {
			Link string `json:"link"`
		}
		if err := json.Unmarshal([]byte(line), &rec); err != nil || rec.Link != link {
			// Keep in queue; malformed lines are preserved unchanged.
			if _, err := tmp.WriteString(line + "\n"); err != nil {
				q.logger.Error("failed writing temp queue line", zap.Error(err))
			}
			return
		}
		found = true
	})
	if writeErr != nil {
		return fmt.Errorf("consume %s: rewrite queue: %w", link, writeErr)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("consume %s: sync temp: %w", link, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("consume %s: close temp: %w", link, err)
	}

	if !found {
		q.logger.Warn("link not found in queue", zap.String("link", link))
	}

	if err := viewed.Add(link); err != nil {
		return fmt.Errorf("consume %s: promote to viewed: %w", link, err)
	}

	if err := os.Rename(tmpPath, q.path); err != nil {
		return fmt.Errorf("consume %s: rename queue: %w", link, err)
	}
	return nil
}

// scanLines invokes fn for each non-blank line. A missing file is an empty
// store.
func (q *Queue) scanLines(fn func(line string)) error {
	f, err := os.Open(q.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", q.path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fn(line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", q.path, err)
	}
	return nil
}
