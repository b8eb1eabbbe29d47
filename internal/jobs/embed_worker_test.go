package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/echolens/echolens/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockBacklogRepository is a mock for the backlog repository
type MockBacklogRepository struct {
	mock.Mock
}

func (m *MockBacklogRepository) ListPendingEmbedding(ctx context.Context, limit int) ([]*domain.ContentItem, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ContentItem), args.Error(1)
}

func (m *MockBacklogRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	args := m.Called(ctx, id, embedding)
	return args.Error(0)
}

// MockBacklogEmbedder is a mock for the embedder
type MockBacklogEmbedder struct {
	mock.Mock
}

func (m *MockBacklogEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, int64, int64, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, 0, 0, args.Error(3)
	}
	return args.Get(0).([]float32), args.Get(1).(int64), args.Get(2).(int64), args.Error(3)
}

func pendingItem(id string) *domain.ContentItem {
	return &domain.ContentItem{
		ID:        id,
		Platform:  domain.PlatformWeb,
		SourceURL: "https://site.example/" + id,
		Title:     "Title " + id,
		Body:      "body " + id,
	}
}

func TestEmbedBacklogWorker_ProcessJobs(t *testing.T) {
	repo := new(MockBacklogRepository)
	embedder := new(MockBacklogEmbedder)
	worker := NewEmbedBacklogWorker(repo, embedder)

	ctx := context.Background()
	vec := []float32{1, 2, 3}
	repo.On("ListPendingEmbedding", ctx, BacklogBatchSize).
		Return([]*domain.ContentItem{pendingItem("a")}, nil)
	embedder.On("EmbedOne", ctx, "Title a\n\nbody a").Return(vec, int64(3), int64(1), nil)
	repo.On("UpdateEmbedding", ctx, "a", vec).Return(nil)

	require.NoError(t, worker.ProcessJobs(ctx))
	repo.AssertExpectations(t)
	embedder.AssertExpectations(t)
}

func TestEmbedBacklogWorker_EmptyBacklog(t *testing.T) {
	repo := new(MockBacklogRepository)
	embedder := new(MockBacklogEmbedder)
	worker := NewEmbedBacklogWorker(repo, embedder)

	ctx := context.Background()
	repo.On("ListPendingEmbedding", ctx, BacklogBatchSize).Return([]*domain.ContentItem{}, nil)

	require.NoError(t, worker.ProcessJobs(ctx))
	embedder.AssertNotCalled(t, "EmbedOne")
}

func TestEmbedBacklogWorker_ParksItemAfterMaxAttempts(t *testing.T) {
	repo := new(MockBacklogRepository)
	embedder := new(MockBacklogEmbedder)
	worker := NewEmbedBacklogWorker(repo, embedder)

	ctx := context.Background()
	repo.On("ListPendingEmbedding", ctx, BacklogBatchSize).
		Return([]*domain.ContentItem{pendingItem("bad")}, nil)
	embedder.On("EmbedOne", ctx, mock.Anything).Return(nil, int64(0), int64(0), errors.New("boom"))

	for i := 0; i < MaxAttempts+2; i++ {
		require.NoError(t, worker.ProcessJobs(ctx))
	}

	// The item is only attempted MaxAttempts times, then skipped.
	embedder.AssertNumberOfCalls(t, "EmbedOne", MaxAttempts)
	repo.AssertNotCalled(t, "UpdateEmbedding")
}

func TestEmbedBacklogWorker_PausesOnBudgetExhaustion(t *testing.T) {
	repo := new(MockBacklogRepository)
	embedder := new(MockBacklogEmbedder)
	worker := NewEmbedBacklogWorker(repo, embedder)

	ctx := context.Background()
	repo.On("ListPendingEmbedding", ctx, BacklogBatchSize).
		Return([]*domain.ContentItem{pendingItem("a"), pendingItem("b")}, nil)
	embedder.On("EmbedOne", ctx, mock.Anything).
		Return(nil, int64(0), int64(0), domain.ErrBudgetExceeded).Once()

	require.NoError(t, worker.ProcessJobs(ctx))

	// The second item is not attempted once the budget is gone.
	embedder.AssertNumberOfCalls(t, "EmbedOne", 1)
}

func TestWorker_KeepsPollingAfterProcessorError(t *testing.T) {
	repo := new(MockBacklogRepository)
	embedder := new(MockBacklogEmbedder)
	processor := NewEmbedBacklogWorker(repo, embedder)

	var mu sync.Mutex
	polls := 0
	repo.On("ListPendingEmbedding", mock.Anything, BacklogBatchSize).
		Run(func(mock.Arguments) {
			mu.Lock()
			polls++
			mu.Unlock()
		}).
		Return(nil, errors.New("database restarting"))

	worker := NewWorker(processor, 5*time.Millisecond)
	go worker.Start(context.Background())

	time.Sleep(40 * time.Millisecond)
	worker.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Greater(t, polls, 1)
}

func TestWorker_StartStop(t *testing.T) {
	repo := new(MockBacklogRepository)
	embedder := new(MockBacklogEmbedder)
	processor := NewEmbedBacklogWorker(repo, embedder)

	var mu sync.Mutex
	polls := 0
	repo.On("ListPendingEmbedding", mock.Anything, BacklogBatchSize).
		Run(func(args mock.Arguments) {
			mu.Lock()
			polls++
			mu.Unlock()
		}).
		Return([]*domain.ContentItem{}, nil)

	worker := NewWorker(processor, 10*time.Millisecond)
	go worker.Start(context.Background())

	time.Sleep(50 * time.Millisecond)
	worker.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Greater(t, polls, 0)
}
