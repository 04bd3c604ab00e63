package store

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// entryDelimiter closes one digest entry. Entries must be single top-level
// divs with no nested divs so the file can be parsed back apart.
const entryDelimiter = "</div>"

var digestScoreRe = regexp.MustCompile(`<strong>Matching:</strong>\s*(\d{1,3})%`)

// Digest accumulates rendered notification entries in a single HTML file,
// always stored sorted descending by match score, ties broken by insertion
// order. Entries build up across cycles until a send succeeds.
type Digest struct {
	path   string
	logger *zap.Logger
}

// NewDigest creates a Digest backed by the file at path.
func NewDigest(path string, logger *zap.Logger) *Digest {
	return &Digest{path: path, logger: logger}
}

// Path returns the backing file path.
func (d *Digest) Path() string {
	return d.path
}

// Insert adds a rendered entry and rewrites the digest atomically, re-sorted
// by score. Entries without a score sort as zero, i.e. last.
func (d *Digest) Insert(entry string) error {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return fmt.Errorf("digest insert: empty entry")
	}

	existing, err := os.ReadFile(d.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("digest insert: read: %w", err)
	}

	parts := splitEntries(string(existing))
	parts = append(parts, entry)
	sort.SliceStable(parts, func(i, j int) bool {
		return entryScore(parts[i]) > entryScore(parts[j])
	})

	final := strings.Join(parts, "\n\n") + "\n"

	if err := os.MkdirAll(filepath.Dir(d.path), 0o750); err != nil {
		return fmt.Errorf("digest insert: create data dir: %w", err)
	}
	tmpPath := d.path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(final), 0o600); err != nil {
		return fmt.Errorf("digest insert: write temp: %w", err)
	}
	if err := os.Rename(tmpPath, d.path); err != nil {
		return fmt.Errorf("digest insert: rename: %w", err)
	}
	return nil
}

// Content returns the accumulated digest fragments, or "" when there is
// nothing pending.
func (d *Digest) Content() (string, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("digest read: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Entries returns the individually delimited entries in stored order.
func (d *Digest) Entries() ([]string, error) {
	content, err := d.Content()
	if err != nil {
		return nil, err
	}
	return splitEntries(content), nil
}

// Clear deletes the digest file after a successful send so entries are not
// resent. A missing file is fine.
func (d *Digest) Clear() error {
	if err := os.Remove(d.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("digest clear: %w", err)
	}
	return nil
}

func splitEntries(content string) []string {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	var parts []string
	for _, part := range strings.Split(content, entryDelimiter) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		parts = append(parts, part+entryDelimiter)
	}
	return parts
}

// entryScore extracts the embedded match score of one rendered entry.
// Scoreless entries score zero.
func entryScore(entry string) int {
	m := digestScoreRe.FindStringSubmatch(entry)
	if m == nil {
		return 0
	}
	score, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return score
}
