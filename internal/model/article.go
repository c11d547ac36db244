package model

import "github.com/guregu/null/v6"

// Article is a candidate news item for one ticker.
// Scores stay null until the analysis stages fill them.
type Article struct {
	Ticker      string         `json:"ticker"`
	Title       string         `json:"title"`
	URL         string         `json:"url"`
	Source      null.String    `json:"source"`
	Summary     null.String    `json:"summary"`
	PublishedAt null.Time      `json:"published_at"`
	Sentiment   null.Float     `json:"sentiment"`
	Relevance   null.Float     `json:"relevance"`
	Impact      null.Float     `json:"impact"`
	Raw         map[string]any `json:"raw,omitempty"`
}

// Text is the title and summary joined by a space, the input of every scorer.
func (a *Article) Text() string {
	return a.Title + " " + a.Summary.ValueOrZero()
}

// Embedding is the vector of one article's text, keyed by the article URL.
type Embedding struct {
	URL    string    `json:"url"`
	Ticker string    `json:"ticker"`
	Model  string    `json:"model"`
	Vector []float32 `json:"vector"`
}
