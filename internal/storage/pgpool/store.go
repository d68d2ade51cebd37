// Package pgpool implements the row store on a pgx connection pool.
package pgpool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sheikh-saqib/records-ledger/internal/apperr"
	interfaces "github.com/sheikh-saqib/records-ledger/internal/interfaces"
	"github.com/sheikh-saqib/records-ledger/internal/models"
	"github.com/sheikh-saqib/records-ledger/internal/storage"
)

// Connect opens a pool sized for request-scoped collection updates.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pgx: parse dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, classify(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, classify(err)
	}
	return pool, nil
}

// Querier is the part of *pgxpool.Pool the row store uses.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// RowStore implements interfaces.RowStore with pgx.
type RowStore struct {
	db    Querier // usually a *pgxpool.Pool
	table models.Table
}

func NewRowStore(db Querier, table models.Table) *RowStore {
	return &RowStore{db: db, table: table}
}

func (s *RowStore) Table() models.Table { return s.table }

func (s *RowStore) ReadRow(ctx context.Context, parentID int64) (models.Row, bool, error) {
	var doc []byte
	err := s.db.QueryRow(ctx, storage.SelectRowSQL(quote, s.table), parentID).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		// Missing parent is not an error at this layer
		return models.Row{}, false, nil
	}
	if err != nil {
		return models.Row{}, false, classify(err)
	}

	row, err := storage.DecodeRow(doc)
	if err != nil {
		return models.Row{}, false, fmt.Errorf("%s %d: %w: %w", s.table.Name, parentID, apperr.ErrCorruptData, err)
	}
	return row, true, nil
}

func (s *RowStore) ReplaceColumns(ctx context.Context, parentID, expectedVersion int64, cols map[string]any) (models.Row, int64, error) {
	query, args := storage.ReplaceColumnsSQL(quote, s.table, parentID, expectedVersion, cols)

	var doc []byte
	err := s.db.QueryRow(ctx, query, args...).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		// Row gone or version moved on; the caller re-reads to tell which
		return models.Row{}, 0, nil
	}
	if err != nil {
		return models.Row{}, 0, classify(err)
	}

	row, err := storage.DecodeRow(doc)
	if err != nil {
		return models.Row{}, 1, fmt.Errorf("%s %d: %w: %w", s.table.Name, parentID, apperr.ErrCorruptData, err)
	}
	return row, 1, nil
}

func quote(ident string) string {
	return pgx.Identifier{ident}.Sanitize()
}

func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%w: postgres %s: %w", apperr.ErrStorageUnavailable, pgErr.Code, err)
	}
	return apperr.Storage(err)
}

var _ interfaces.RowStore = (*RowStore)(nil)
