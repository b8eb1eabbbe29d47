package openai

import (
	"context"
	"errors"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from ada-002
	DefaultEmbeddingDimensions = 1536
	// DefaultMaxBatchSize is the largest input batch sent in one API call
	DefaultMaxBatchSize = 64
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when an embedding has wrong dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoAPIKey is returned when OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
	// ErrCountMismatch is returned when the API returns fewer vectors than inputs
	ErrCountMismatch = errors.New("embedding count does not match input count")
)

// EmbeddingAPI defines the interface for embedding generation. The returned
// vectors are positionally aligned with the inputs; tokens is the prompt
// token count the provider billed for the call.
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, int64, error)
}

// Client wraps the OpenAI API client
type Client struct {
	api        EmbeddingAPI
	dimensions int
	maxBatch   int
}

type OpenAIAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewOpenAIAdapter(apiKey string, model openai.EmbeddingModel) *OpenAIAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &OpenAIAdapter{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// CreateEmbeddings calls the OpenAI API to create embeddings for a batch
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, int64, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: a.model,
	})
	if err != nil {
		return nil, 0, err
	}

	if len(resp.Data) != len(texts) {
		return nil, 0, ErrCountMismatch
	}

	// The API may return data out of order; Index restores input order.
	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, 0, ErrCountMismatch
		}
		vectors[d.Index] = d.Embedding
	}

	return vectors, int64(resp.Usage.PromptTokens), nil
}

type Config struct {
	APIKey              string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	MaxBatchSize        int
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	maxBatch := cfg.MaxBatchSize
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatchSize
	}
	return &Client{
		api:        NewOpenAIAdapter(cfg.APIKey, cfg.EmbeddingModel),
		dimensions: dimensions,
		maxBatch:   maxBatch,
	}
}

// NewClientFromEnv creates a new OpenAI client using OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// Dimensions reports the expected vector width.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// MaxBatchSize reports the largest batch a single API call will carry.
func (c *Client) MaxBatchSize() int {
	return c.maxBatch
}

// GenerateEmbedding generates an embedding for a single text.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, int64, error) {
	if text == "" {
		return nil, 0, ErrEmptyText
	}

	vectors, tokens, err := c.GenerateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, tokens, err
	}
	return vectors[0], tokens, nil
}

// GenerateEmbeddings generates embeddings for a batch of texts in input
// order. Batches larger than MaxBatchSize are split into sequential calls;
// token counts are summed across calls. When a later chunk fails, the
// returned token count covers the chunks the provider already billed, so
// callers can account for the partial spend.
func (c *Client) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, int64, error) {
	if len(texts) == 0 {
		return nil, 0, nil
	}
	for _, text := range texts {
		if text == "" {
			return nil, 0, ErrEmptyText
		}
	}

	vectors := make([][]float32, 0, len(texts))
	var tokens int64
	for start := 0; start < len(texts); start += c.maxBatch {
		end := start + c.maxBatch
		if end > len(texts) {
			end = len(texts)
		}

		batch, batchTokens, err := c.api.CreateEmbeddings(ctx, texts[start:end])
		if err != nil {
			return nil, tokens, fmt.Errorf("failed to create embeddings: %w", err)
		}
		// The chunk was billed even if its payload turns out malformed.
		tokens += batchTokens
		if len(batch) != end-start {
			return nil, tokens, ErrCountMismatch
		}
		for _, v := range batch {
			if len(v) != c.dimensions {
				return nil, tokens, fmt.Errorf("%w: got %d, expected %d", ErrWrongDimensions, len(v), c.dimensions)
			}
		}

		vectors = append(vectors, batch...)
	}

	return vectors, tokens, nil
}
