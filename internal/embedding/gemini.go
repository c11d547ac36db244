package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/phuslu/log"
	"google.golang.org/genai"
)

const (
	DefaultGeminiModel     = "gemini-embedding-001"
	DefaultGeminiDimension = 768
)

// GeminiEmbedder embeds through the Gemini API.
type GeminiEmbedder struct {
	ModelName string
	Dimension int
	BatchSize int
	Timeout   time.Duration
	client    *genai.Client
}

// NewGeminiEmbedder creates the genai client. It does not contact the API.
func NewGeminiEmbedder(ctx context.Context, apiKey, model string, dim int, timeout time.Duration) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	if dim <= 0 {
		dim = DefaultGeminiDimension
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("init genai client: %w", err)
	}
	return &GeminiEmbedder{
		ModelName: model,
		Dimension: dim,
		BatchSize: DefaultBatchSize,
		Timeout:   timeout,
		client:    client,
	}, nil
}

func (g *GeminiEmbedder) Name() string  { return "gemini" }
func (g *GeminiEmbedder) Model() string { return g.ModelName }

func (g *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	outputDim := int32(g.Dimension)
	cfg := &genai.EmbedContentConfig{OutputDimensionality: &outputDim}

	start := time.Now()
	out := make([][]float32, 0, len(texts))
	for _, batch := range batches(texts, g.BatchSize) {
		contents := make([]*genai.Content, len(batch))
		for i, text := range batch {
			contents[i] = genai.NewContentFromText(text, genai.RoleUser)
		}
		result, err := g.client.Models.EmbedContent(ctx, g.ModelName, contents, cfg)
		if err != nil {
			return nil, fmt.Errorf("gemini embeddings: %w", err)
		}
		if result == nil || len(result.Embeddings) != len(batch) {
			return nil, fmt.Errorf("gemini embeddings: expected %d vectors", len(batch))
		}
		for _, e := range result.Embeddings {
			if e == nil {
				return nil, fmt.Errorf("gemini embeddings: empty vector")
			}
			if len(e.Values) != g.Dimension {
				return nil, fmt.Errorf("gemini embeddings: dimension mismatch: expected %d, got %d", g.Dimension, len(e.Values))
			}
			out = append(out, e.Values)
		}
	}
	log.Debug().Str("model", g.ModelName).Int("texts", len(texts)).Dur("duration", time.Since(start)).Msg("gemini embeddings done")
	return out, nil
}
