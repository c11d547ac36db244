package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/phuslu/log"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "text-embedding-3-small"
)

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	BaseURL   string
	APIKey    string
	ModelName string
	BatchSize int
	Client    *resty.Client
}

type openAIRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewOpenAIEmbedder(baseURL, apiKey, model string, timeout time.Duration) *OpenAIEmbedder {
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second).
		SetRetryMaxWaitTime(8 * time.Second)
	return &OpenAIEmbedder{
		BaseURL:   baseURL,
		APIKey:    apiKey,
		ModelName: model,
		BatchSize: DefaultBatchSize,
		Client:    client,
	}
}

func (o *OpenAIEmbedder) Name() string  { return "openai" }
func (o *OpenAIEmbedder) Model() string { return o.ModelName }

func (o *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, batch := range batches(texts, o.BatchSize) {
		vectors, err := o.embedBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	log.Debug().Str("model", o.ModelName).Int("texts", len(texts)).Msg("openai embeddings done")
	return out, nil
}

func (o *OpenAIEmbedder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	var result openAIResponse
	resp, err := o.Client.R().
		SetContext(ctx).
		SetAuthToken(o.APIKey).
		SetBody(openAIRequest{Model: o.ModelName, Input: batch}).
		SetResult(&result).
		SetError(&result).
		Post(o.BaseURL + "/embeddings")
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if resp.IsError() {
		if result.Error != nil && result.Error.Message != "" {
			return nil, fmt.Errorf("openai embeddings: %s: %s", resp.Status(), result.Error.Message)
		}
		return nil, fmt.Errorf("openai embeddings: %s", resp.Status())
	}

	vectors := make([][]float32, len(batch))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(batch) {
			return nil, fmt.Errorf("openai embeddings: index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("openai embeddings: no vector for input %d", i)
		}
	}
	return vectors, nil
}
