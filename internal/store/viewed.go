package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// viewedEntry is the persisted shape of one viewed link.
type viewedEntry struct {
	Link string `json:"link"`
}

// Viewed is the durable set of links the system will not reconsider. It grows
// by promotion from the queue and shrinks by pruning against the links still
// visible on the site, which bounds file growth.
type Viewed struct {
	path   string
	logger *zap.Logger
}

// NewViewed creates a Viewed set backed by the file at path.
func NewViewed(path string, logger *zap.Logger) *Viewed {
	return &Viewed{path: path, logger: logger}
}

// Path returns the backing file path.
func (v *Viewed) Path() string {
	return v.path
}

// Links loads the set of viewed link values. A missing file is an empty set;
// malformed lines are logged and skipped.
func (v *Viewed) Links() (map[string]struct{}, error) {
	links := make(map[string]struct{})

	f, err := os.Open(v.path)
	if err != nil {
		if os.IsNotExist(err) {
			v.logger.Info("viewed file does not exist yet", zap.String("path", v.path))
			return links, nil
		}
		return nil, fmt.Errorf("open viewed file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		var entry viewedEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil || entry.Link == "" {
			v.logger.Warn("failed to parse viewed line", zap.String("line", line))
			continue
		}
		links[entry.Link] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan viewed file: %w", err)
	}
	return links, nil
}

// Add appends a single link to the viewed log.
func (v *Viewed) Add(link string) error {
	if err := os.MkdirAll(filepath.Dir(v.path), 0o750); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	f, err := os.OpenFile(v.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open viewed file: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(viewedEntry{Link: link})
	if err != nil {
		return fmt.Errorf("marshal viewed entry: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append viewed entry: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync viewed file: %w", err)
	}
	return nil
}

// Prune rewrites the set keeping only links present in seen, the universe of
// links observed during the latest crawl. Links that have scrolled out of the
// site's visible window are forgotten. Unparsable lines are preserved
// verbatim.
func (v *Viewed) Prune(seen map[string]struct{}) error {
	f, err := os.Open(v.path)
	if err != nil {
		if os.IsNotExist(err) {
			v.logger.Info("viewed file does not exist yet, nothing to prune", zap.String("path", v.path))
			return nil
		}
		return fmt.Errorf("open viewed file: %w", err)
	}
	defer f.Close()

	tmpPath := v.path + ".tmp"
	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("open temp viewed file: %w", err)
	}
	defer tmp.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		var entry viewedEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil || entry.Link == "" {
			// Preserve malformed lines rather than silently dropping data.
			if _, werr := tmp.WriteString(line + "\n"); werr != nil {
				return fmt.Errorf("write temp viewed file: %w", werr)
			}
			continue
		}
		if _, ok := seen[entry.Link]; !ok {
			continue
		}
		if _, werr := tmp.WriteString(line + "\n"); werr != nil {
			return fmt.Errorf("write temp viewed file: %w", werr)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan viewed file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp viewed file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp viewed file: %w", err)
	}
	if err := os.Rename(tmpPath, v.path); err != nil {
		return fmt.Errorf("rename viewed file: %w", err)
	}
	return nil
}
