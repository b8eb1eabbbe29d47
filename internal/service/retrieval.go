package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/echolens/echolens/internal/domain"
	"github.com/echolens/echolens/internal/pagination"
	"github.com/echolens/echolens/internal/telemetry"
)

const (
	// DefaultQueryResults is the result count when the caller does not ask
	// for a specific number.
	DefaultQueryResults = 5
	// MaxQueryResults bounds a single similarity search.
	MaxQueryResults = 50
	// ingestChunkSize bounds how many items are embedded in one provider
	// call before being stored. Embedding and storing chunk by chunk keeps
	// spend paired with stored results when a batch is cancelled midway.
	ingestChunkSize = 20
)

// ContentRepositoryInterface defines the repository interface for content
// persistence and similarity search.
type ContentRepositoryInterface interface {
	Upsert(ctx context.Context, item *domain.ContentItem) (string, error)
	GetByID(ctx context.Context, id string) (*domain.ContentItem, error)
	Delete(ctx context.Context, id string) (bool, error)
	Search(ctx context.Context, vector []float32, filters domain.SearchFilters, limit int) ([]domain.SearchResult, error)
	ListWithCursor(ctx context.Context, filters domain.SearchFilters, cursor *pagination.Cursor, limit int) (*ContentPageResult, error)
}

// ContentPageResult is one page of a cursor listing.
type ContentPageResult struct {
	Items      []*domain.ContentItem
	NextCursor string
	HasMore    bool
}

// EmbedderInterface is the embedding surface retrieval depends on.
type EmbedderInterface interface {
	EmbedOne(ctx context.Context, text string) ([]float32, int64, int64, error)
	EmbedBatch(ctx context.Context, texts []string) (*EmbedResult, error)
}

// RetrievalService ingests normalized content into the vector index and
// serves similarity queries over it.
type RetrievalService struct {
	repo     ContentRepositoryInterface
	embedder EmbedderInterface
}

// NewRetrievalService creates a RetrievalService.
func NewRetrievalService(repo ContentRepositoryInterface, embedder EmbedderInterface) *RetrievalService {
	return &RetrievalService{repo: repo, embedder: embedder}
}

// Ingest embeds and stores a batch of content items, one chunk at a time so
// every embedded chunk is stored before the next one is paid for. Items that
// fail to embed or store are reported as per-item failures; one bad item
// never discards the rest of the batch. Budget refusal on the first chunk
// aborts the batch since nothing was embedded yet.
func (s *RetrievalService) Ingest(ctx context.Context, items []*domain.ContentItem) (*domain.IngestionResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.Ingest", telemetry.SpanAttributes{
		Operation: "ingest",
	})
	defer span.End()

	result := &domain.IngestionResult{}
	if len(items) == 0 {
		return result, nil
	}

	valid := make([]*domain.ContentItem, 0, len(items))
	texts := make([]string, 0, len(items))
	for _, item := range items {
		if err := domain.ValidateContentItem(item); err != nil {
			result.Failures = append(result.Failures, domain.ItemFailure{
				SourceURL: item.SourceURL,
				Reason:    err.Error(),
			})
			continue
		}
		valid = append(valid, item)
		texts = append(texts, embeddingText(item))
	}
	if len(valid) == 0 {
		return result, nil
	}

	for start := 0; start < len(valid); start += ingestChunkSize {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		end := start + ingestChunkSize
		if end > len(valid) {
			end = len(valid)
		}

		embedded, err := s.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			span.SetError(err)
			return result, err
		}
		result.Tokens += embedded.Tokens
		result.CostMicros += embedded.CostMicros

		if len(embedded.Vectors) != end-start {
			return result, domain.ErrBatchLengthMismatch
		}

		for i, item := range valid[start:end] {
			item.Embedding = embedded.Vectors[i]
			id, err := s.repo.Upsert(ctx, item)
			if err != nil {
				result.Failures = append(result.Failures, domain.ItemFailure{
					SourceURL: item.SourceURL,
					Reason:    err.Error(),
				})
				continue
			}
			result.Processed++
			result.IDs = append(result.IDs, id)
		}
	}

	return result, nil
}

// Query embeds the query text and returns the most similar stored items
// plus an assembled context block ordered by descending similarity.
func (s *RetrievalService) Query(ctx context.Context, q domain.RAGQuery) (*domain.RAGResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.Query", telemetry.SpanAttributes{
		Platform:  string(q.Platform),
		AuthorID:  q.AuthorID,
		Operation: "query",
	})
	defer span.End()

	if strings.TrimSpace(q.Text) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if q.Platform != "" && !domain.IsValidPlatform(q.Platform) {
		return nil, domain.ErrInvalidPlatform
	}

	limit := q.NResults
	if limit <= 0 {
		limit = DefaultQueryResults
	}
	if limit > MaxQueryResults {
		limit = MaxQueryResults
	}

	vector, tokens, cost, err := s.embedder.EmbedOne(ctx, q.Text)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	filters := domain.SearchFilters{Platform: q.Platform, AuthorID: q.AuthorID}
	results, err := s.repo.Search(ctx, vector, filters, limit)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	if q.MinSimilarity > 0 {
		kept := results[:0]
		for _, r := range results {
			if r.Similarity >= q.MinSimilarity {
				kept = append(kept, r)
			}
		}
		results = kept
	}

	return &domain.RAGResult{
		Results:          results,
		AssembledContext: assembleContext(results),
		Tokens:           tokens,
		CostMicros:       cost,
	}, nil
}

// GetContent retrieves a single stored item.
func (s *RetrievalService) GetContent(ctx context.Context, id string) (*domain.ContentItem, error) {
	return s.repo.GetByID(ctx, id)
}

// DeleteContent removes a stored item and its vector.
func (s *RetrievalService) DeleteContent(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.DeleteContent", telemetry.SpanAttributes{
		ContentID: id,
		Operation: "delete",
	})
	defer span.End()

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrContentNotFound
	}
	return nil
}

// ListContentInput selects a page of stored content.
type ListContentInput struct {
	Platform domain.Platform
	AuthorID string
	Cursor   string
	Limit    int
}

// ListContent returns a page of stored items in insertion order.
func (s *RetrievalService) ListContent(ctx context.Context, input ListContentInput) (*ContentPageResult, error) {
	if input.Platform != "" && !domain.IsValidPlatform(input.Platform) {
		return nil, domain.ErrInvalidPlatform
	}

	cursor, _ := pagination.DecodeCursor(input.Cursor)
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	filters := domain.SearchFilters{Platform: input.Platform, AuthorID: input.AuthorID}
	return s.repo.ListWithCursor(ctx, filters, cursor, limit)
}

// embeddingText is the canonical text an item is embedded from. Title and
// body together, so short posts still carry their subject.
func embeddingText(item *domain.ContentItem) string {
	if item.Title == "" {
		return item.Body
	}
	return item.Title + "\n\n" + item.Body
}

// assembleContext renders search results into a plain-text block suitable
// for prompt stuffing, most similar first.
func assembleContext(results []domain.SearchResult) string {
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		fmt.Fprintf(&b, "[%s] %s (similarity %.2f)\n", r.Platform, r.AuthorName, r.Similarity)
		if r.Title != "" {
			b.WriteString(r.Title)
			b.WriteString("\n")
		}
		b.WriteString(r.Snippet)
	}
	return b.String()
}
