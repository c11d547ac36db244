package analysis

import (
	"strings"

	"github.com/guregu/null/v6"

	"MarketResearch/internal/model"
)

var (
	PositiveWords = []string{"up", "gain", "rise", "growth", "beat", "strong", "bullish", "positive"}
	NegativeWords = []string{"down", "fall", "drop", "loss", "miss", "weak", "bearish", "negative", "decline"}

	positiveSet = wordSet(PositiveWords)
	negativeSet = wordSet(NegativeWords)
)

func wordSet(words []string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// Sentiment counts whole-word hits of the positive and negative lists in text
// and returns (pos-neg)/(pos+neg+1), which stays inside (-1, 1) and leans toward
// zero when evidence is sparse.
func Sentiment(text string) float64 {
	var pos, neg int
	for _, tok := range tokenize(strings.ToLower(text)) {
		switch {
		case positiveSet[tok]:
			pos++
		case negativeSet[tok]:
			neg++
		}
	}
	return polarity(pos, neg)
}

// LegacySentiment reproduces the first-generation scorer, which counted the word lists
// themselves instead of the text and so always returns -1/18.
func LegacySentiment(_ string) float64 {
	return polarity(len(PositiveWords), len(NegativeWords))
}

func polarity(pos, neg int) float64 {
	if pos+neg == 0 {
		return 0.0
	}
	return float64(pos-neg) / float64(pos+neg+1)
}

// ScoreSentiment sets Sentiment on a copy of every article.
func ScoreSentiment(articles []model.Article, legacy bool) []model.Article {
	score := Sentiment
	if legacy {
		score = LegacySentiment
	}
	out := clone(articles)
	for i := range out {
		out[i].Sentiment = null.FloatFrom(score(out[i].Text()))
	}
	return out
}
