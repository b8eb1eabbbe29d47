package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/echolens/echolens/internal/domain"
	"github.com/echolens/echolens/internal/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockContentRepository is a mock for content persistence
type MockContentRepository struct {
	mock.Mock
}

func (m *MockContentRepository) Upsert(ctx context.Context, item *domain.ContentItem) (string, error) {
	args := m.Called(ctx, item)
	return args.String(0), args.Error(1)
}

func (m *MockContentRepository) GetByID(ctx context.Context, id string) (*domain.ContentItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContentItem), args.Error(1)
}

func (m *MockContentRepository) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockContentRepository) Search(ctx context.Context, vector []float32, filters domain.SearchFilters, limit int) ([]domain.SearchResult, error) {
	args := m.Called(ctx, vector, filters, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SearchResult), args.Error(1)
}

func (m *MockContentRepository) ListWithCursor(ctx context.Context, filters domain.SearchFilters, cursor *pagination.Cursor, limit int) (*ContentPageResult, error) {
	args := m.Called(ctx, filters, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ContentPageResult), args.Error(1)
}

// MockEmbedder is a mock for the embedding service surface
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, int64, int64, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, 0, 0, args.Error(3)
	}
	return args.Get(0).([]float32), args.Get(1).(int64), args.Get(2).(int64), args.Error(3)
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) (*EmbedResult, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*EmbedResult), args.Error(1)
}

func testItem(id, body string) *domain.ContentItem {
	return &domain.ContentItem{
		ID:        id,
		Platform:  domain.PlatformReddit,
		SourceURL: "https://reddit.example/" + id,
		Author:    domain.Author{ID: "author-1", DisplayName: "gopher"},
		Title:     "Post " + id,
		Body:      body,
		WordCount: 2,
		CharCount: len(body),
		ScrapedAt: time.Now().UTC(),
	}
}

func TestRetrievalService_Ingest(t *testing.T) {
	repo := new(MockContentRepository)
	embedder := new(MockEmbedder)
	svc := NewRetrievalService(repo, embedder)

	ctx := context.Background()
	a := testItem("a", "first body")
	b := testItem("b", "second body")

	embedder.On("EmbedBatch", mock.Anything, []string{"Post a\n\nfirst body", "Post b\n\nsecond body"}).
		Return(&EmbedResult{
			Vectors:    [][]float32{testVector(1), testVector(2)},
			Tokens:     12,
			CostMicros: 2,
		}, nil)
	repo.On("Upsert", mock.Anything, a).Return("a", nil)
	repo.On("Upsert", mock.Anything, b).Return("b", nil)

	result, err := svc.Ingest(ctx, []*domain.ContentItem{a, b})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, []string{"a", "b"}, result.IDs)
	assert.Equal(t, int64(12), result.Tokens)
	assert.Empty(t, result.Failures)
	assert.Equal(t, testVector(1), a.Embedding)
	repo.AssertExpectations(t)
	embedder.AssertExpectations(t)
}

func TestRetrievalService_IngestPartialFailure(t *testing.T) {
	repo := new(MockContentRepository)
	embedder := new(MockEmbedder)
	svc := NewRetrievalService(repo, embedder)

	ctx := context.Background()
	good := testItem("a", "valid body")
	invalid := testItem("b", "") // fails validation before embedding
	storeFails := testItem("c", "store fails")

	embedder.On("EmbedBatch", mock.Anything, []string{"Post a\n\nvalid body", "Post c\n\nstore fails"}).
		Return(&EmbedResult{Vectors: [][]float32{testVector(1), testVector(3)}, Tokens: 8}, nil)
	repo.On("Upsert", mock.Anything, good).Return("a", nil)
	repo.On("Upsert", mock.Anything, storeFails).Return("", errors.New("connection reset"))

	result, err := svc.Ingest(ctx, []*domain.ContentItem{good, invalid, storeFails})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, []string{"a"}, result.IDs)
	require.Len(t, result.Failures, 2)
	assert.Equal(t, invalid.SourceURL, result.Failures[0].SourceURL)
	assert.Equal(t, storeFails.SourceURL, result.Failures[1].SourceURL)
}

func TestRetrievalService_IngestBudgetRefusalAbortsBatch(t *testing.T) {
	repo := new(MockContentRepository)
	embedder := new(MockEmbedder)
	svc := NewRetrievalService(repo, embedder)

	ctx := context.Background()
	embedder.On("EmbedBatch", mock.Anything, mock.Anything).Return(nil, domain.ErrBudgetExceeded)

	_, err := svc.Ingest(ctx, []*domain.ContentItem{testItem("a", "body text")})

	assert.ErrorIs(t, err, domain.ErrBudgetExceeded)
	repo.AssertNotCalled(t, "Upsert")
}

func TestRetrievalService_IngestCancellationStopsAfterStoredChunk(t *testing.T) {
	repo := new(MockContentRepository)
	embedder := new(MockEmbedder)
	svc := NewRetrievalService(repo, embedder)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	items := make([]*domain.ContentItem, ingestChunkSize+5)
	for i := range items {
		items[i] = testItem(fmt.Sprintf("item-%02d", i), "body text")
	}

	firstChunk := make([][]float32, ingestChunkSize)
	for i := range firstChunk {
		firstChunk[i] = testVector(float32(i))
	}
	// Cancel while the first chunk is in flight; the second chunk must
	// never be embedded, so its cost is never incurred.
	embedder.On("EmbedBatch", mock.Anything, mock.MatchedBy(func(texts []string) bool {
		return len(texts) == ingestChunkSize
	})).Run(func(mock.Arguments) { cancel() }).
		Return(&EmbedResult{Vectors: firstChunk, Tokens: 40, CostMicros: 4}, nil).Once()
	repo.On("Upsert", mock.Anything, mock.Anything).Return("stored", nil)

	result, err := svc.Ingest(ctx, items)

	assert.ErrorIs(t, err, context.Canceled)
	// Every vector that was paid for is stored; nothing beyond it is billed.
	assert.Equal(t, ingestChunkSize, result.Processed)
	assert.Equal(t, int64(40), result.Tokens)
	assert.Equal(t, int64(4), result.CostMicros)
	embedder.AssertNumberOfCalls(t, "EmbedBatch", 1)
	repo.AssertNumberOfCalls(t, "Upsert", ingestChunkSize)
}

func TestRetrievalService_IngestEmptyBatch(t *testing.T) {
	svc := NewRetrievalService(new(MockContentRepository), new(MockEmbedder))

	result, err := svc.Ingest(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, result.Processed)
}

func TestRetrievalService_Query(t *testing.T) {
	repo := new(MockContentRepository)
	embedder := new(MockEmbedder)
	svc := NewRetrievalService(repo, embedder)

	ctx := context.Background()
	queryVec := testVector(9)
	embedder.On("EmbedOne", mock.Anything, "go generics").Return(queryVec, int64(3), int64(1), nil)

	results := []domain.SearchResult{
		{ID: "a", Similarity: 0.92, Platform: domain.PlatformReddit, AuthorName: "gopher", Title: "Post a", Snippet: "most similar"},
		{ID: "b", Similarity: 0.64, Platform: domain.PlatformYouTube, AuthorName: "gopher", Snippet: "less similar"},
	}
	repo.On("Search", mock.Anything, queryVec, domain.SearchFilters{AuthorID: "author-1"}, 5).Return(results, nil)

	out, err := svc.Query(ctx, domain.RAGQuery{Text: "go generics", AuthorID: "author-1"})
	require.NoError(t, err)

	assert.Len(t, out.Results, 2)
	assert.Equal(t, int64(3), out.Tokens)
	assert.Contains(t, out.AssembledContext, "[reddit] gopher (similarity 0.92)")
	assert.Contains(t, out.AssembledContext, "most similar")
	// Most similar first.
	assert.Less(t, strings.Index(out.AssembledContext, "most similar"), strings.Index(out.AssembledContext, "less similar"))
}

func TestRetrievalService_QueryMinSimilarityCut(t *testing.T) {
	repo := new(MockContentRepository)
	embedder := new(MockEmbedder)
	svc := NewRetrievalService(repo, embedder)

	ctx := context.Background()
	embedder.On("EmbedOne", mock.Anything, "query").Return(testVector(1), int64(1), int64(1), nil)
	repo.On("Search", mock.Anything, mock.Anything, mock.Anything, 5).Return([]domain.SearchResult{
		{ID: "a", Similarity: 0.9},
		{ID: "b", Similarity: 0.5},
	}, nil)

	out, err := svc.Query(ctx, domain.RAGQuery{Text: "query", MinSimilarity: 0.8})
	require.NoError(t, err)

	require.Len(t, out.Results, 1)
	assert.Equal(t, "a", out.Results[0].ID)
}

func TestRetrievalService_QueryValidation(t *testing.T) {
	svc := NewRetrievalService(new(MockContentRepository), new(MockEmbedder))

	_, err := svc.Query(context.Background(), domain.RAGQuery{Text: "  "})
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)

	_, err = svc.Query(context.Background(), domain.RAGQuery{Text: "q", Platform: "myspace"})
	assert.ErrorIs(t, err, domain.ErrInvalidPlatform)
}

func TestRetrievalService_DeleteContent(t *testing.T) {
	repo := new(MockContentRepository)
	svc := NewRetrievalService(repo, new(MockEmbedder))

	ctx := context.Background()
	repo.On("Delete", mock.Anything, "exists").Return(true, nil)
	repo.On("Delete", mock.Anything, "missing").Return(false, nil)

	assert.NoError(t, svc.DeleteContent(ctx, "exists"))
	assert.ErrorIs(t, svc.DeleteContent(ctx, "missing"), domain.ErrContentNotFound)
}
