package embedding

import (
	"context"
	"errors"
	"fmt"
	"sort"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "text-embedding-3-small"

type openAIClient interface {
	CreateEmbeddings(ctx context.Context, request openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// OpenAIEmbedder calls the OpenAI embeddings endpoint.
type OpenAIEmbedder struct {
	client openAIClient
	model  string
}

// NewOpenAIClient builds a go-openai client, honoring an optional base URL for
// compatible gateways.
func NewOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// NewOpenAIEmbedder wraps an OpenAI client.
func NewOpenAIEmbedder(client openAIClient, model string) *OpenAIEmbedder {
	if client == nil {
		panic("embedding: openai client cannot be nil")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIEmbedder{client: client, model: model}
}

func (e *OpenAIEmbedder) Model() string { return e.model }

// Embed requests float-encoded embeddings and returns them in input order.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.CreateEmbeddings(ctx, &openai.EmbeddingRequest{
		Model:          openai.EmbeddingModel(e.model),
		Input:          texts,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	})
	if err != nil {
		return nil, providerError("openai", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, providerError("openai", errors.New("embedding response size mismatch"))
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	out := make([][]float32, len(data))
	for i, item := range data {
		if len(item.Embedding) == 0 {
			return nil, providerError("openai", fmt.Errorf("empty embedding at index %d", i))
		}
		out[i] = item.Embedding
	}
	return out, nil
}
