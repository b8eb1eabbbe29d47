package repository

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echolens/echolens/internal/domain"
)

// failingDB fails every call with a fixed error, standing in for a pool
// whose backend is unreachable.
type failingDB struct {
	err error
}

func (f failingDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, f.err
}

func (f failingDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, f.err
}

func (f failingDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return failingRow{err: f.err}
}

type failingRow struct {
	err error
}

func (r failingRow) Scan(dest ...any) error {
	return r.err
}

func assertIndexUnavailable(t *testing.T, err error) {
	t.Helper()
	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrCodeIndexUnavailable, derr.Code)
}

func TestContentRepository_ConnectionFailuresAreTyped(t *testing.T) {
	connDown := &pgconn.PgError{Code: "57P03", Message: "the database system is starting up"}
	repo := &ContentRepository{db: failingDB{err: connDown}}
	ctx := context.Background()

	_, err := repo.Upsert(ctx, &domain.ContentItem{ID: "a"})
	assertIndexUnavailable(t, err)

	_, err = repo.GetByID(ctx, "a")
	assertIndexUnavailable(t, err)

	_, err = repo.Delete(ctx, "a")
	assertIndexUnavailable(t, err)

	_, err = repo.Search(ctx, []float32{0.1}, domain.SearchFilters{}, 5)
	assertIndexUnavailable(t, err)

	_, err = repo.ListWithCursor(ctx, domain.SearchFilters{}, nil, 5)
	assertIndexUnavailable(t, err)

	err = repo.UpdateEmbedding(ctx, "a", []float32{0.1})
	assertIndexUnavailable(t, err)
}

func TestContentRepository_DialFailureIsTyped(t *testing.T) {
	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	repo := &ContentRepository{db: failingDB{err: dialErr}}

	_, err := repo.Search(context.Background(), []float32{0.1}, domain.SearchFilters{}, 5)

	assertIndexUnavailable(t, err)
	assert.ErrorIs(t, err, dialErr)
}

func TestContentRepository_QueryLevelFailurePassesThrough(t *testing.T) {
	uniqueViolation := &pgconn.PgError{Code: "23505", Message: "duplicate key value"}
	repo := &ContentRepository{db: failingDB{err: uniqueViolation}}

	_, err := repo.Upsert(context.Background(), &domain.ContentItem{ID: "a"})

	var derr *domain.DomainError
	assert.False(t, errors.As(err, &derr))
	assert.ErrorIs(t, err, uniqueViolation)
}

func TestContentRepository_NoRowsStaysNotFound(t *testing.T) {
	repo := &ContentRepository{db: failingDB{err: pgx.ErrNoRows}}

	_, err := repo.GetByID(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrContentNotFound)
}
