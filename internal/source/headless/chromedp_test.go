package headless

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"rentalwatch/internal/source/static"
)

type fixedClock struct{}

func (fixedClock) Now() time.Time { return time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC) }

func TestNewValidatesURLs(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}, fixedClock{}, zap.NewNop()); err == nil {
		t.Fatal("expected error for missing URLs")
	}
	if _, err := New(Config{BaseURL: "https://a.test"}, fixedClock{}, zap.NewNop()); err == nil {
		t.Fatal("expected error for missing search URL")
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	t.Parallel()

	src, err := New(Config{
		BaseURL:   "https://a.test",
		SearchURL: "https://a.test/search",
		Selectors: static.Selectors{},
	}, fixedClock{}, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer src.Close()

	if src.cfg.PageParam != "page" {
		t.Fatalf("page param default = %q", src.cfg.PageParam)
	}
	if src.cfg.NavigationTimeout != 45*time.Second {
		t.Fatalf("nav timeout default = %v", src.cfg.NavigationTimeout)
	}
}

func TestPagedURL(t *testing.T) {
	t.Parallel()

	src, err := New(Config{
		BaseURL:   "https://a.test",
		SearchURL: "https://a.test/search?city=utrecht",
		PageParam: "p",
	}, fixedClock{}, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer src.Close()

	if got := src.pagedURL(3); got != "https://a.test/search?city=utrecht&p=3" {
		t.Fatalf("pagedURL = %q", got)
	}

	plain, err := New(Config{
		BaseURL:   "https://a.test",
		SearchURL: "https://a.test/search",
	}, fixedClock{}, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer plain.Close()

	if got := plain.pagedURL(1); got != "https://a.test/search?page=1" {
		t.Fatalf("pagedURL = %q", got)
	}
}
