package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"strings"

	"github.com/echolens/echolens/internal/adapter"
	"github.com/echolens/echolens/internal/domain"
	"github.com/echolens/echolens/internal/telemetry"
)

// AdapterSourceInterface resolves platform adapters and reports their health.
type AdapterSourceInterface interface {
	Get(platform domain.Platform) (adapter.Adapter, error)
	HealthAll() []domain.AdapterHealth
}

// RawArchiveInterface archives raw platform payloads before normalization.
type RawArchiveInterface interface {
	PutRawRecord(ctx context.Context, platform domain.Platform, id string, record *domain.RawRecord) error
}

// NormalizerInterface maps raw records into canonical content items.
type NormalizerInterface interface {
	NormalizeBatch(raws []domain.RawRecord) ([]*domain.ContentItem, []domain.ItemFailure)
}

// IngestorInterface embeds and stores normalized items.
type IngestorInterface interface {
	Ingest(ctx context.Context, items []*domain.ContentItem) (*domain.IngestionResult, error)
}

// CollectService runs the full pipeline for one target: fetch through the
// platform adapter, archive the raw payloads, normalize, embed, and store.
type CollectService struct {
	adapters   AdapterSourceInterface
	archive    RawArchiveInterface // nil disables archiving
	normalizer NormalizerInterface
	ingestor   IngestorInterface
}

// NewCollectService creates a CollectService. archive may be nil when no
// object storage is configured.
func NewCollectService(
	adapters AdapterSourceInterface,
	archive RawArchiveInterface,
	normalizer NormalizerInterface,
	ingestor IngestorInterface,
) *CollectService {
	return &CollectService{
		adapters:   adapters,
		archive:    archive,
		normalizer: normalizer,
		ingestor:   ingestor,
	}
}

// CollectInput names what to fetch: a channel, subreddit, or site for the
// given platform.
type CollectInput struct {
	Platform domain.Platform
	Target   string
	Limit    int
}

// CollectOutput reports what one collection run did.
type CollectOutput struct {
	Fetched    int
	Processed  int
	Tokens     int64
	CostMicros int64
	IDs        []string
	Failures   []domain.ItemFailure
}

// Collect fetches a target and pushes everything it got through the
// pipeline. Raw archiving is best-effort: an archive failure is logged and
// never blocks ingestion.
func (s *CollectService) Collect(ctx context.Context, input CollectInput) (*CollectOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "CollectService.Collect", telemetry.SpanAttributes{
		Platform:  string(input.Platform),
		Operation: "collect",
	})
	defer span.End()

	if !domain.IsValidPlatform(input.Platform) {
		return nil, domain.ErrInvalidPlatform
	}
	if strings.TrimSpace(input.Target) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "collect target is required")
	}

	a, err := s.adapters.Get(input.Platform)
	if err != nil {
		return nil, err
	}

	records, err := a.Fetch(ctx, input.Target, input.Limit)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	if s.archive != nil {
		for i := range records {
			id := archiveID(&records[i])
			if err := s.archive.PutRawRecord(ctx, input.Platform, id, &records[i]); err != nil {
				log.Printf("collect: failed to archive raw record %s/%s: %v", input.Platform, id, err)
			}
		}
	}

	items, normFailures := s.normalizer.NormalizeBatch(records)

	result, err := s.ingestor.Ingest(ctx, items)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	return &CollectOutput{
		Fetched:    len(records),
		Processed:  result.Processed,
		Tokens:     result.Tokens,
		CostMicros: result.CostMicros,
		IDs:        result.IDs,
		Failures:   append(normFailures, result.Failures...),
	}, nil
}

// AdapterHealth reports the health of every registered adapter.
func (s *CollectService) AdapterHealth() []domain.AdapterHealth {
	return s.adapters.HealthAll()
}

// archiveID derives a stable object id from the record's source URL, so
// re-collecting the same item overwrites its archive entry instead of
// accumulating duplicates.
func archiveID(record *domain.RawRecord) string {
	sum := sha256.Sum256([]byte(record.SourceURL))
	return hex.EncodeToString(sum[:16])
}
