package store

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func scoredEntry(name string, score int) string {
	return fmt.Sprintf(`<div><h3>%s</h3><p><strong>Matching:</strong> %d%%</p></div>`, name, score)
}

func TestDigestInsertKeepsEntriesSortedByScore(t *testing.T) {
	t.Parallel()

	d := NewDigest(filepath.Join(t.TempDir(), "digest.html"), zap.NewNop())

	for _, e := range []string{
		scoredEntry("middling", 55),
		scoredEntry("great", 92),
		scoredEntry("poor", 10),
	} {
		if err := d.Insert(e); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	entries, err := d.Entries()
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0] != scoredEntry("great", 92) ||
		entries[1] != scoredEntry("middling", 55) ||
		entries[2] != scoredEntry("poor", 10) {
		t.Fatalf("entries not sorted by score: %v", entries)
	}
}

func TestDigestScorelessEntriesSortLast(t *testing.T) {
	t.Parallel()

	d := NewDigest(filepath.Join(t.TempDir(), "digest.html"), zap.NewNop())

	scoreless := `<div><h3>mystery</h3></div>`
	if err := d.Insert(scoreless); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := d.Insert(scoredEntry("scored", 40)); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	entries, err := d.Entries()
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if entries[0] != scoredEntry("scored", 40) || entries[1] != scoreless {
		t.Fatalf("scoreless entry must sort last: %v", entries)
	}
}

func TestDigestTiesKeepInsertionOrder(t *testing.T) {
	t.Parallel()

	d := NewDigest(filepath.Join(t.TempDir(), "digest.html"), zap.NewNop())

	first := `<div><h3>first</h3><p><strong>Matching:</strong> 70%</p></div>`
	second := `<div><h3>second</h3><p><strong>Matching:</strong> 70%</p></div>`
	if err := d.Insert(first); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := d.Insert(second); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	entries, err := d.Entries()
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if entries[0] != first || entries[1] != second {
		t.Fatalf("tie broke insertion order: %v", entries)
	}
}

func TestDigestContentAndClear(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "digest.html")
	d := NewDigest(path, zap.NewNop())

	content, err := d.Content()
	if err != nil {
		t.Fatalf("Content() error = %v", err)
	}
	if content != "" {
		t.Fatalf("missing digest must read empty, got %q", content)
	}

	if err := d.Insert(scoredEntry("only", 80)); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	content, err = d.Content()
	if err != nil {
		t.Fatalf("Content() error = %v", err)
	}
	if content == "" {
		t.Fatal("expected digest content after insert")
	}

	if err := d.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected digest file removed, stat err = %v", err)
	}
	// Clearing an already-missing file is fine.
	if err := d.Clear(); err != nil {
		t.Fatalf("Clear() on missing file error = %v", err)
	}
}

func TestDigestInsertRejectsEmptyEntry(t *testing.T) {
	t.Parallel()

	d := NewDigest(filepath.Join(t.TempDir(), "digest.html"), zap.NewNop())
	if err := d.Insert("   \n"); err == nil {
		t.Fatal("expected error for empty entry")
	}
}
