package analysis

import (
	"crypto/md5"
	"encoding/hex"

	"MarketResearch/internal/model"
)

// URLKey is the identity key of an article: the hex MD5 of its URL.
func URLKey(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}

// Dedupe drops articles whose URL was already seen, keeping the first occurrence
// even when a later duplicate carries richer data.
func Dedupe(articles []model.Article) []model.Article {
	seen := make(map[string]struct{}, len(articles))
	unique := make([]model.Article, 0, len(articles))
	for _, a := range articles {
		key := URLKey(a.URL)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, a)
	}
	return unique
}
