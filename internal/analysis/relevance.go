package analysis

import (
	"math"
	"strings"

	"github.com/guregu/null/v6"

	"MarketResearch/internal/model"
)

// RelevanceMethod names the scoring path ScoreRelevance took for a batch.
type RelevanceMethod string

const (
	MethodNone    RelevanceMethod = "none"
	MethodTFIDF   RelevanceMethod = "tfidf"
	MethodKeyword RelevanceMethod = "keyword"
)

// DomainTerms are added to the ticker symbols to form the relevance vocabulary.
var DomainTerms = []string{"stock", "shares", "earnings", "revenue", "growth", "price", "market"}

// Vocabulary returns the lowercase tickers followed by the domain terms, without
// blanks or repeats.
func Vocabulary(tickers []string) []string {
	vocab := make([]string, 0, len(tickers)+len(DomainTerms))
	seen := make(map[string]bool)
	add := func(term string) {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" || seen[term] {
			return
		}
		seen[term] = true
		vocab = append(vocab, term)
	}
	for _, t := range tickers {
		add(t)
	}
	for _, t := range DomainTerms {
		add(t)
	}
	return vocab
}

// ScoreRelevance assigns each article the sum of its L2-normalised TF-IDF weights
// over the vocabulary. Document frequencies come from this batch only, so scores
// are relative to the batch they were computed in.
//
// When the batch has no text at all, or no vocabulary term appears as a token in
// any article, it falls back to the share of vocabulary terms found as substrings.
// The input slice is not modified.
func ScoreRelevance(articles []model.Article, tickers []string) ([]model.Article, RelevanceMethod) {
	if len(articles) == 0 {
		return articles, MethodNone
	}

	out := clone(articles)
	vocab := Vocabulary(tickers)
	texts := make([]string, len(out))
	for i := range out {
		texts[i] = lowerText(&out[i])
	}

	if scores, ok := tfidfScores(texts, vocab); ok {
		for i := range out {
			out[i].Relevance = null.FloatFrom(scores[i])
		}
		return out, MethodTFIDF
	}

	for i, text := range texts {
		out[i].Relevance = null.FloatFrom(keywordScore(text, vocab))
	}
	return out, MethodKeyword
}

// tfidfScores follows the smoothed-idf, l2-normalised weighting of common
// text vectorizers: idf = ln((1+n)/(1+df)) + 1.
func tfidfScores(texts []string, vocab []string) ([]float64, bool) {
	index := make(map[string]int, len(vocab))
	for i, term := range vocab {
		index[term] = i
	}

	n := len(texts)
	counts := make([][]float64, n)
	df := make([]int, len(vocab))
	hasText := false
	for i, text := range texts {
		if strings.TrimSpace(text) != "" {
			hasText = true
		}
		row := make([]float64, len(vocab))
		for _, tok := range tokenize(text) {
			if j, ok := index[tok]; ok {
				row[j]++
			}
		}
		for j, c := range row {
			if c > 0 {
				df[j]++
			}
		}
		counts[i] = row
	}
	if !hasText {
		return nil, false
	}

	idf := make([]float64, len(vocab))
	matched := false
	for j, d := range df {
		if d > 0 {
			matched = true
		}
		idf[j] = math.Log(float64(1+n)/float64(1+d)) + 1
	}
	if !matched {
		return nil, false
	}

	scores := make([]float64, n)
	for i, row := range counts {
		var norm, sum float64
		for j, c := range row {
			w := c * idf[j]
			norm += w * w
			sum += w
		}
		if norm > 0 {
			scores[i] = sum / math.Sqrt(norm)
		}
	}
	return scores, true
}

func keywordScore(text string, vocab []string) float64 {
	if len(vocab) == 0 {
		return 0
	}
	count := 0
	for _, term := range vocab {
		if strings.Contains(text, term) {
			count++
		}
	}
	return float64(count) / float64(len(vocab))
}
