package service

import (
	"context"
	"strings"

	"github.com/echolens/echolens/internal/domain"
	"github.com/echolens/echolens/internal/ledger"
	"github.com/echolens/echolens/internal/telemetry"
)

const (
	// DefaultMaxInputTokens is the largest input a single embedding accepts.
	DefaultMaxInputTokens = 8192
	// charsPerToken is the estimation heuristic for English-ish text.
	charsPerToken = 4
)

// EmbeddingClientInterface defines the embedding provider used by services.
// Vectors are positionally aligned with inputs; tokens is the billed prompt
// token count.
type EmbeddingClientInterface interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, int64, error)
	Dimensions() int
}

// EmbeddingService generates embeddings under rate and budget control. Every
// call reserves its estimated cost before touching the provider and settles
// the actual cost afterwards, so concurrent callers cannot jointly exceed
// the configured budget.
type EmbeddingService struct {
	client        EmbeddingClientInterface
	costs         *ledger.CostLedger
	rateMicros    int64
	maxTokens     int
	truncateInput bool
}

// EmbeddingConfig configures budget accounting and input limits.
type EmbeddingConfig struct {
	// RatePerThousandMicros is the provider price in micro-USD per 1000 tokens.
	RatePerThousandMicros int64
	// MaxInputTokens caps a single input; zero means DefaultMaxInputTokens.
	MaxInputTokens int
	// TruncateOversized trims oversized inputs to the token cap instead of
	// rejecting them.
	TruncateOversized bool
}

// NewEmbeddingService creates an EmbeddingService.
func NewEmbeddingService(client EmbeddingClientInterface, costs *ledger.CostLedger, cfg EmbeddingConfig) *EmbeddingService {
	maxTokens := cfg.MaxInputTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxInputTokens
	}
	return &EmbeddingService{
		client:        client,
		costs:         costs,
		rateMicros:    cfg.RatePerThousandMicros,
		maxTokens:     maxTokens,
		truncateInput: cfg.TruncateOversized,
	}
}

// EstimateTokens approximates the token count of a text. The heuristic is
// deliberately coarse; reservations made from it are corrected at settle
// time with the provider's billed count.
func EstimateTokens(text string) int64 {
	runes := len([]rune(text))
	return int64((runes + charsPerToken - 1) / charsPerToken)
}

// EmbedResult carries the vectors for a batch plus what the batch cost.
type EmbedResult struct {
	Vectors    [][]float32
	Tokens     int64
	CostMicros int64
}

// EmbedOne embeds a single text.
func (s *EmbeddingService) EmbedOne(ctx context.Context, text string) ([]float32, int64, int64, error) {
	result, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, 0, 0, err
	}
	return result.Vectors[0], result.Tokens, result.CostMicros, nil
}

// EmbedBatch embeds a batch of texts in input order. An empty batch costs
// nothing and returns an empty result.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) (*EmbedResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "EmbeddingService.EmbedBatch", telemetry.SpanAttributes{
		Operation: "embed",
	})
	defer span.End()

	if len(texts) == 0 {
		return &EmbedResult{}, nil
	}

	prepared := make([]string, len(texts))
	var estimate int64
	for i, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, domain.NewDomainError(domain.ErrCodeValidation, "cannot embed empty text")
		}
		tokens := EstimateTokens(text)
		if tokens > int64(s.maxTokens) {
			if !s.truncateInput {
				return nil, domain.ErrTokenLimitExceeded
			}
			text = truncateToTokens(text, s.maxTokens)
			tokens = EstimateTokens(text)
		}
		prepared[i] = text
		estimate += tokens
	}

	reservation, err := s.costs.Reserve(ledger.CostMicros(estimate, s.rateMicros))
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	vectors, tokens, err := s.client.GenerateEmbeddings(ctx, prepared)
	if err != nil {
		// Chunks completed before the failure were already billed by the
		// provider; record that spend instead of dropping it.
		if tokens > 0 {
			reservation.Settle(tokens, ledger.CostMicros(tokens, s.rateMicros))
		} else {
			reservation.Cancel()
		}
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "embedding generation failed", err)
	}

	cost := ledger.CostMicros(tokens, s.rateMicros)
	reservation.Settle(tokens, cost)

	return &EmbedResult{Vectors: vectors, Tokens: tokens, CostMicros: cost}, nil
}

// Dimensions reports the provider's vector width.
func (s *EmbeddingService) Dimensions() int {
	return s.client.Dimensions()
}

// truncateToTokens trims text to the estimated character budget of maxTokens,
// cutting on a rune boundary so the result stays valid UTF-8.
func truncateToTokens(text string, maxTokens int) string {
	budget := maxTokens * charsPerToken
	runes := []rune(text)
	if len(runes) <= budget {
		return text
	}
	return string(runes[:budget])
}
