package embedding

import (
	"context"
	"errors"
	"strings"

	"MarketResearch/internal/model"
)

// Defaults shared by the providers.
const (
	DefaultBatchSize = 64
	MaxTextRunes     = 8000
)

// ErrDisabled is returned by NoopEmbedder so callers can skip the step quietly.
var ErrDisabled = errors.New("embedding disabled")

// Embedder turns texts into vectors, one per input and in input order.
type Embedder interface {
	Name() string
	Model() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// NoopEmbedder is used when no embedding provider is configured.
type NoopEmbedder struct{}

func (NoopEmbedder) Name() string  { return "none" }
func (NoopEmbedder) Model() string { return "" }

func (NoopEmbedder) Embed(_ context.Context, _ []string) ([][]float32, error) {
	return nil, ErrDisabled
}

// ArticleText is the text embedded for an article: title and summary on
// separate lines, capped at MaxTextRunes. Blank articles return "".
func ArticleText(a model.Article) string {
	text := a.Title + "\n" + a.Summary.ValueOrZero()
	if strings.TrimSpace(text) == "" {
		return ""
	}
	r := []rune(text)
	if len(r) > MaxTextRunes {
		return string(r[:MaxTextRunes])
	}
	return text
}

// EmbedArticles embeds every non-blank article and pairs each vector with its
// article. An error means nothing should be stored.
func EmbedArticles(ctx context.Context, e Embedder, articles []model.Article) ([]model.Embedding, error) {
	var (
		texts []string
		keep  []model.Article
	)
	for _, a := range articles {
		if text := ArticleText(a); text != "" {
			texts = append(texts, text)
			keep = append(keep, a)
		}
	}
	if len(texts) == 0 {
		return nil, nil
	}

	vectors, err := e.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, errors.New("embedding count does not match input count")
	}

	out := make([]model.Embedding, len(keep))
	for i, a := range keep {
		out[i] = model.Embedding{URL: a.URL, Ticker: a.Ticker, Model: e.Model(), Vector: vectors[i]}
	}
	return out, nil
}

// batches splits texts into chunks of at most size.
func batches(texts []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]string
	for start := 0; start < len(texts); start += size {
		out = append(out, texts[start:min(start+size, len(texts))])
	}
	return out
}
