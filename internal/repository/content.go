// Package repository persists content items and serves vector similarity
// queries against Postgres with the pgvector extension.
package repository

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/echolens/echolens/internal/domain"
	"github.com/echolens/echolens/internal/pagination"
	"github.com/echolens/echolens/internal/service"
)

// snippetLength bounds the body excerpt returned with search results.
const snippetLength = 300

// indexError classifies a storage failure. Connection-level failures become
// the typed index-unavailable error so callers answer with a
// service-unavailable status; query-level failures pass through untouched.
func indexError(err error) error {
	if err == nil || errors.Is(err, pgx.ErrNoRows) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// SQLSTATE class 08 is connection exceptions, 53 resource
		// exhaustion, 57 operator shutdown, 58 system errors.
		if len(pgErr.Code) >= 2 {
			switch pgErr.Code[:2] {
			case "08", "53", "57", "58":
				return domain.NewDomainErrorWithCause(domain.ErrCodeIndexUnavailable, "vector index unavailable", err)
			}
		}
		return err
	}

	// Dial failures and timeouts never reach the server; they surface as
	// plain network errors rather than SQLSTATE-tagged ones.
	var netErr net.Error
	if errors.As(err, &netErr) || pgconn.SafeToRetry(err) {
		return domain.NewDomainErrorWithCause(domain.ErrCodeIndexUnavailable, "vector index unavailable", err)
	}
	return err
}

// dbtx is the subset of pgx satisfied by both a pool and a transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ContentRepository handles persistence of content items and their vectors.
type ContentRepository struct {
	db dbtx
}

func NewContentRepository(pool *pgxpool.Pool) *ContentRepository {
	return &ContentRepository{db: pool}
}

func NewContentRepositoryWithTx(tx pgx.Tx) *ContentRepository {
	return &ContentRepository{db: tx}
}

// Upsert inserts an item or, when the (platform, source_url) pair already
// exists, refreshes the stored row in place. The canonical id is returned:
// on conflict it is the existing row's id, not the incoming one.
func (r *ContentRepository) Upsert(ctx context.Context, item *domain.ContentItem) (string, error) {
	var id string
	err := r.db.QueryRow(ctx,
		`INSERT INTO content_items
			(id, platform, source_url, author_id, author_name, title, body,
			 word_count, char_count, views, likes, comments, shares, engagement_rate,
			 published_at, scraped_at, embedding, metadata, created_at, updated_at)
		 VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $19)
		 ON CONFLICT (platform, source_url) DO UPDATE SET
			author_id = EXCLUDED.author_id,
			author_name = EXCLUDED.author_name,
			title = EXCLUDED.title,
			body = EXCLUDED.body,
			word_count = EXCLUDED.word_count,
			char_count = EXCLUDED.char_count,
			views = EXCLUDED.views,
			likes = EXCLUDED.likes,
			comments = EXCLUDED.comments,
			shares = EXCLUDED.shares,
			engagement_rate = EXCLUDED.engagement_rate,
			published_at = EXCLUDED.published_at,
			scraped_at = EXCLUDED.scraped_at,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
		 RETURNING id`,
		item.ID, item.Platform, item.SourceURL,
		nullableString(item.Author.ID), nullableString(item.Author.DisplayName),
		item.Title, item.Body, item.WordCount, item.CharCount,
		item.Metrics.Views, item.Metrics.Likes, item.Metrics.Comments, item.Metrics.Shares,
		item.Metrics.EngagementRate,
		nullableTime(item.PublishedAt), item.ScrapedAt,
		vectorOrNil(item.Embedding), item.Metadata, time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return "", indexError(err)
	}
	return id, nil
}

func (r *ContentRepository) GetByID(ctx context.Context, id string) (*domain.ContentItem, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+contentColumns+` FROM content_items WHERE id = $1`, id)
	item, err := scanContentItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrContentNotFound
		}
		return nil, indexError(err)
	}
	return item, nil
}

// Delete removes an item and its vector. Returns false when the id was not
// stored.
func (r *ContentRepository) Delete(ctx context.Context, id string) (bool, error) {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM content_items WHERE id = $1`, id)
	if err != nil {
		return false, indexError(err)
	}
	return cmdTag.RowsAffected() > 0, nil
}

// Search returns the stored items nearest to the query vector, most similar
// first. Similarity is cosine: 1 - (embedding <=> query), clamped to [0, 1].
func (r *ContentRepository) Search(ctx context.Context, vector []float32, filters domain.SearchFilters, limit int) ([]domain.SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, GREATEST(0.0, 1.0 - (embedding <=> $1)) AS similarity,
		       platform, author_id, author_name, title, source_url,
		       LEFT(body, $2) AS snippet, metadata
		FROM content_items
		WHERE embedding IS NOT NULL`
	args := []any{pgvector.NewVector(vector), snippetLength}

	if filters.Platform != "" {
		args = append(args, filters.Platform)
		query += ` AND platform = $` + strconv.Itoa(len(args))
	}
	if filters.AuthorID != "" {
		args = append(args, filters.AuthorID)
		query += ` AND author_id = $` + strconv.Itoa(len(args))
	}

	args = append(args, limit)
	query += ` ORDER BY embedding <=> $1 LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, indexError(err)
	}
	defer rows.Close()

	results := make([]domain.SearchResult, 0, limit)
	for rows.Next() {
		var res domain.SearchResult
		var authorID, authorName *string
		if err := rows.Scan(&res.ID, &res.Similarity, &res.Platform, &authorID, &authorName,
			&res.Title, &res.SourceURL, &res.Snippet, &res.Metadata); err != nil {
			return nil, err
		}
		if authorID != nil {
			res.AuthorID = *authorID
		}
		if authorName != nil {
			res.AuthorName = *authorName
		}
		results = append(results, res)
	}
	return results, indexError(rows.Err())
}

// ListWithCursor returns a page of items in reverse scrape order.
func (r *ContentRepository) ListWithCursor(ctx context.Context, filters domain.SearchFilters, cursor *pagination.Cursor, limit int) (*service.ContentPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + contentColumns + ` FROM content_items WHERE 1=1`
	var args []any

	if filters.Platform != "" {
		args = append(args, filters.Platform)
		query += ` AND platform = $` + strconv.Itoa(len(args))
	}
	if filters.AuthorID != "" {
		args = append(args, filters.AuthorID)
		query += ` AND author_id = $` + strconv.Itoa(len(args))
	}
	if cursor != nil {
		args = append(args, cursor.Timestamp, cursor.LastID)
		query += ` AND (scraped_at, id) < ($` + strconv.Itoa(len(args)-1) + `, $` + strconv.Itoa(len(args)) + `)`
	}

	args = append(args, limit+1)
	query += ` ORDER BY scraped_at DESC, id DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, indexError(err)
	}
	defer rows.Close()

	items, err := scanContentRows(rows)
	if err != nil {
		return nil, indexError(err)
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.ScrapedAt)
	}

	return &service.ContentPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// ListEmbeddedByAuthor returns an author's embedded items in ascending id
// order, the order pattern detection scans in.
func (r *ContentRepository) ListEmbeddedByAuthor(ctx context.Context, authorID string) ([]*domain.ContentItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+contentColumns+`
		 FROM content_items
		 WHERE author_id = $1 AND embedding IS NOT NULL
		 ORDER BY id ASC`,
		authorID,
	)
	if err != nil {
		return nil, indexError(err)
	}
	defer rows.Close()

	items, err := scanContentRows(rows)
	if err != nil {
		return nil, indexError(err)
	}
	return items, nil
}

// ListPendingEmbedding returns items stored without a vector, oldest first.
// Used by the backlog worker.
func (r *ContentRepository) ListPendingEmbedding(ctx context.Context, limit int) ([]*domain.ContentItem, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+contentColumns+`
		 FROM content_items
		 WHERE embedding IS NULL
		 ORDER BY scraped_at ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, indexError(err)
	}
	defer rows.Close()

	items, err := scanContentRows(rows)
	if err != nil {
		return nil, indexError(err)
	}
	return items, nil
}

// UpdateEmbedding attaches a vector to a stored item.
func (r *ContentRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE content_items SET embedding = $1, updated_at = $2 WHERE id = $3`,
		pgvector.NewVector(embedding), time.Now().UTC(), id,
	)
	if err != nil {
		return indexError(err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrContentNotFound
	}
	return nil
}

const contentColumns = `id, platform, source_url, author_id, author_name, title, body,
	word_count, char_count, views, likes, comments, shares, engagement_rate,
	published_at, scraped_at, embedding, metadata`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContentItem(row rowScanner) (*domain.ContentItem, error) {
	var item domain.ContentItem
	var authorID, authorName *string
	var publishedAt *time.Time
	var embedding *pgvector.Vector

	err := row.Scan(
		&item.ID, &item.Platform, &item.SourceURL, &authorID, &authorName,
		&item.Title, &item.Body, &item.WordCount, &item.CharCount,
		&item.Metrics.Views, &item.Metrics.Likes, &item.Metrics.Comments, &item.Metrics.Shares,
		&item.Metrics.EngagementRate,
		&publishedAt, &item.ScrapedAt, &embedding, &item.Metadata,
	)
	if err != nil {
		return nil, err
	}

	if authorID != nil {
		item.Author.ID = *authorID
	}
	if authorName != nil {
		item.Author.DisplayName = *authorName
	}
	if publishedAt != nil {
		item.PublishedAt = *publishedAt
	}
	if embedding != nil {
		item.Embedding = embedding.Slice()
	}
	return &item, nil
}

func scanContentRows(rows pgx.Rows) ([]*domain.ContentItem, error) {
	var results []*domain.ContentItem
	for rows.Next() {
		item, err := scanContentItem(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

func vectorOrNil(embedding []float32) any {
	if len(embedding) == 0 {
		return nil
	}
	return pgvector.NewVector(embedding)
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

