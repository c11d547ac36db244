package analysis

import (
	"testing"

	"github.com/guregu/null/v6"

	"MarketResearch/internal/model"
)

func urls(articles []model.Article) []string {
	out := make([]string, len(articles))
	for i, a := range articles {
		out[i] = a.Title + "@" + a.URL
	}
	return out
}

func TestDedupe_FirstSeenWins(t *testing.T) {
	in := []model.Article{
		{Ticker: "AAPL", Title: "A", URL: "u1"},
		{Ticker: "AAPL", Title: "B", URL: "u1", Summary: null.StringFrom("richer")},
		{Ticker: "MSFT", Title: "C", URL: "u2"},
	}
	got := Dedupe(in)
	if len(got) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(got))
	}
	if got[0].Title != "A" || got[1].Title != "C" {
		t.Errorf("expected [A C], got %v", urls(got))
	}
	if got[0].Summary.Valid {
		t.Error("later duplicate must not replace the first article")
	}
}

func TestDedupe_Idempotent(t *testing.T) {
	in := []model.Article{
		{Title: "1", URL: "a"}, {Title: "2", URL: "b"}, {Title: "3", URL: "a"},
		{Title: "4", URL: "c"}, {Title: "5", URL: "b"},
	}
	once := Dedupe(in)
	twice := Dedupe(once)
	if len(once) != len(twice) {
		t.Fatalf("dedupe not idempotent: %v vs %v", urls(once), urls(twice))
	}
	for i := range once {
		if once[i].Title != twice[i].Title {
			t.Errorf("position %d: %q vs %q", i, once[i].Title, twice[i].Title)
		}
	}
}

func TestDedupe_Empty(t *testing.T) {
	if got := Dedupe(nil); len(got) != 0 {
		t.Errorf("expected empty output, got %d", len(got))
	}
}

func TestURLKey_Stable(t *testing.T) {
	if URLKey("https://x/1") != URLKey("https://x/1") {
		t.Error("key must be stable")
	}
	if URLKey("https://x/1") == URLKey("https://x/2") {
		t.Error("different URLs should produce different keys")
	}
}
