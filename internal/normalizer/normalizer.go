// Package normalizer maps adapter payloads into the canonical content
// record. Normalization is pure: no network, no storage, and identical input
// yields identical output except for the scrape timestamp.
package normalizer

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/echolens/echolens/internal/domain"
)

// Normalizer converts raw records into ContentItems.
type Normalizer struct {
	newID func() string
	now   func() time.Time
}

// New creates a Normalizer with UUID ids and wall-clock timestamps.
func New() *Normalizer {
	return &Normalizer{
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// NewDeterministic creates a Normalizer with injected id and clock sources.
// Used by tests and by replay tooling that needs reproducible ids.
func NewDeterministic(newID func() string, now func() time.Time) *Normalizer {
	return &Normalizer{newID: newID, now: now}
}

// Normalize maps one raw record into a canonical ContentItem.
func (n *Normalizer) Normalize(raw *domain.RawRecord) (*domain.ContentItem, error) {
	if raw == nil {
		return nil, domain.ErrMissingRequiredField
	}
	if !domain.IsValidPlatform(raw.Platform) {
		return nil, domain.ErrInvalidPlatform
	}
	if strings.TrimSpace(raw.SourceURL) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "raw record has no source url")
	}

	body := strings.TrimSpace(raw.Body)
	if body == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "raw record has no body text")
	}

	authorName := strings.TrimSpace(raw.AuthorName)
	if authorName == "" {
		authorName = domain.UnknownAuthor
	}
	authorID := strings.TrimSpace(raw.AuthorID)
	if authorID == "" {
		authorID = authorName
	}

	words := strings.Fields(body)

	metadata := make(map[string]string, len(raw.Extra))
	for k, v := range raw.Extra {
		metadata[k] = v
	}
	if raw.Source != "" {
		metadata["source"] = string(raw.Source)
	}

	item := &domain.ContentItem{
		ID:        n.newID(),
		Platform:  raw.Platform,
		SourceURL: raw.SourceURL,
		Author: domain.Author{
			ID:          authorID,
			DisplayName: authorName,
		},
		Title:     strings.TrimSpace(raw.Title),
		Body:      body,
		WordCount: len(words),
		CharCount: len(body),
		Metrics: domain.Metrics{
			Views:          nonNegative(raw.Views),
			Likes:          nonNegative(raw.Likes),
			Comments:       nonNegative(raw.Comments),
			Shares:         nonNegative(raw.Shares),
			EngagementRate: engagementRate(raw),
		},
		PublishedAt: raw.PublishedAt,
		ScrapedAt:   n.now().UTC(),
		Metadata:    metadata,
	}

	return item, nil
}

// NormalizeBatch maps a batch, skipping invalid records and reporting them
// as per-item failures.
func (n *Normalizer) NormalizeBatch(raws []domain.RawRecord) ([]*domain.ContentItem, []domain.ItemFailure) {
	items := make([]*domain.ContentItem, 0, len(raws))
	var failures []domain.ItemFailure
	for i := range raws {
		item, err := n.Normalize(&raws[i])
		if err != nil {
			failures = append(failures, domain.ItemFailure{
				SourceURL: raws[i].SourceURL,
				Reason:    err.Error(),
			})
			continue
		}
		items = append(items, item)
	}
	return items, failures
}

// engagementRate is sum(interactions) / max(reach, 1) * 100, with absent
// counters contributing zero. Views are the reach metric.
func engagementRate(raw *domain.RawRecord) float64 {
	interactions := nonNegative(raw.Likes) + nonNegative(raw.Comments) + nonNegative(raw.Shares)
	reach := nonNegative(raw.Views)
	if reach < 1 {
		reach = 1
	}
	return float64(interactions) / float64(reach) * 100
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
