package service

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/echolens/echolens/internal/domain"
	"github.com/echolens/echolens/internal/telemetry"
)

// DefaultClusterThreshold is the cosine similarity above which two items on
// different platforms count as elaborations of the same idea.
const DefaultClusterThreshold = 0.85

// PatternRepositoryInterface is the persistence surface pattern detection
// depends on.
type PatternRepositoryInterface interface {
	ListEmbeddedByAuthor(ctx context.Context, authorID string) ([]*domain.ContentItem, error)
}

// PatternService finds elaboration clusters: groups of an author's items
// where the same idea shows up on more than one platform.
type PatternService struct {
	repo PatternRepositoryInterface
}

// NewPatternService creates a PatternService.
func NewPatternService(repo PatternRepositoryInterface) *PatternService {
	return &PatternService{repo: repo}
}

// DetectPatterns clusters an author's embedded items. The scan is a single
// greedy pass in ascending id order: each unvisited item seeds a cluster of
// the unvisited items on other platforms whose similarity clears the
// threshold, and clustered items are never reused as seeds. A threshold of
// zero means DefaultClusterThreshold.
func (s *PatternService) DetectPatterns(ctx context.Context, authorID string, threshold float64) ([]domain.Cluster, error) {
	ctx, span := telemetry.StartSpan(ctx, "PatternService.DetectPatterns", telemetry.SpanAttributes{
		AuthorID:  authorID,
		Operation: "patterns",
	})
	defer span.End()

	if strings.TrimSpace(authorID) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "author id is required")
	}
	if threshold < 0 || threshold > 1 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "threshold must be between 0 and 1")
	}
	if threshold == 0 {
		threshold = DefaultClusterThreshold
	}

	items, err := s.repo.ListEmbeddedByAuthor(ctx, authorID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	embedded := items[:0]
	for _, item := range items {
		if item.HasEmbedding() {
			embedded = append(embedded, item)
		}
	}
	sort.Slice(embedded, func(i, j int) bool { return embedded[i].ID < embedded[j].ID })

	visited := make(map[string]bool, len(embedded))
	var clusters []domain.Cluster

	for _, seed := range embedded {
		if visited[seed.ID] {
			continue
		}

		var members []*domain.ContentItem
		for _, candidate := range embedded {
			if candidate.ID == seed.ID || visited[candidate.ID] {
				continue
			}
			if candidate.Platform == seed.Platform {
				continue
			}
			if cosineSimilarity(seed.Embedding, candidate.Embedding) >= threshold {
				members = append(members, candidate)
			}
		}
		if len(members) == 0 {
			continue
		}

		cluster := domain.Cluster{
			SeedID:    seed.ID,
			MemberIDs: []string{seed.ID},
			Platforms: []domain.Platform{seed.Platform},
		}
		visited[seed.ID] = true
		seen := map[domain.Platform]bool{seed.Platform: true}
		for _, m := range members {
			visited[m.ID] = true
			cluster.MemberIDs = append(cluster.MemberIDs, m.ID)
			if !seen[m.Platform] {
				seen[m.Platform] = true
				cluster.Platforms = append(cluster.Platforms, m.Platform)
			}
		}
		clusters = append(clusters, cluster)
	}

	return clusters, nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched or zero vectors yield zero rather than an error so one bad row
// cannot poison a whole detection run.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
