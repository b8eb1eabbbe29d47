package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/echolens/echolens/internal/domain"
)

const (
	// MaxAttempts is the maximum number of embedding attempts per item
	MaxAttempts = 3
	// BacklogBatchSize is how many pending items one poll picks up
	BacklogBatchSize = 20
)

// BacklogRepository defines the persistence interface for the embed backlog
type BacklogRepository interface {
	// ListPendingEmbedding retrieves stored items that have no vector yet
	ListPendingEmbedding(ctx context.Context, limit int) ([]*domain.ContentItem, error)

	// UpdateEmbedding attaches a vector to a stored item
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

// BacklogEmbedder generates one embedding per item text
type BacklogEmbedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, int64, int64, error)
}

// EmbedBacklogWorker embeds items that were stored without a vector, for
// example when ingestion was interrupted or the embedding provider was
// down. Items that keep failing are parked after MaxAttempts so one
// poisoned row cannot monopolize the poll loop.
type EmbedBacklogWorker struct {
	repo     BacklogRepository
	embedder BacklogEmbedder
	attempts map[string]int
}

// NewEmbedBacklogWorker creates a new EmbedBacklogWorker instance
func NewEmbedBacklogWorker(repo BacklogRepository, embedder BacklogEmbedder) *EmbedBacklogWorker {
	return &EmbedBacklogWorker{
		repo:     repo,
		embedder: embedder,
		attempts: make(map[string]int),
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *EmbedBacklogWorker) ProcessJobs(ctx context.Context) error {
	items, err := w.repo.ListPendingEmbedding(ctx, BacklogBatchSize)
	if err != nil {
		return fmt.Errorf("failed to list pending items: %w", err)
	}

	if len(items) == 0 {
		return nil
	}

	log.Printf("Processing %d items from the embed backlog", len(items))

	for _, item := range items {
		if w.attempts[item.ID] >= MaxAttempts {
			continue
		}
		if err := w.processItem(ctx, item); err != nil {
			// Budget exhaustion will not clear by retrying this poll.
			if errors.Is(err, domain.ErrBudgetExceeded) {
				log.Printf("Embed backlog paused: %v", err)
				return nil
			}
			log.Printf("Error embedding item %s: %v", item.ID, err)
		}
	}

	return nil
}

func (w *EmbedBacklogWorker) processItem(ctx context.Context, item *domain.ContentItem) error {
	text := item.Body
	if item.Title != "" {
		text = item.Title + "\n\n" + item.Body
	}

	vector, _, _, err := w.embedder.EmbedOne(ctx, text)
	if err != nil {
		w.attempts[item.ID]++
		if w.attempts[item.ID] >= MaxAttempts {
			log.Printf("Item %s exceeded max embed attempts (%d), parking it", item.ID, MaxAttempts)
		}
		return err
	}

	if err := w.repo.UpdateEmbedding(ctx, item.ID, vector); err != nil {
		return fmt.Errorf("failed to store embedding for %s: %w", item.ID, err)
	}

	delete(w.attempts, item.ID)
	return nil
}
