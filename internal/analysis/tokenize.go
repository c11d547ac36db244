package analysis

import (
	"regexp"
	"strings"

	"MarketResearch/internal/model"
)

// tokenPattern matches runs of letters/digits, keeping single '.' or '-' joins so
// tickers like "brk.b" stay whole.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:[.\-][\p{L}\p{N}]+)*`)

// tokenize splits already-lowercased text into tokens.
func tokenize(text string) []string {
	return tokenPattern.FindAllString(text, -1)
}

func lowerText(a *model.Article) string {
	return strings.ToLower(a.Text())
}

func clone(articles []model.Article) []model.Article {
	out := make([]model.Article, len(articles))
	copy(out, articles)
	return out
}
