package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/sheikh-saqib/records-ledger/internal/apperr"
	interfaces "github.com/sheikh-saqib/records-ledger/internal/interfaces" // interface RowStore
	"github.com/sheikh-saqib/records-ledger/internal/models"
	"github.com/sheikh-saqib/records-ledger/internal/storage"
)

// PostgresRowStore implements interfaces.RowStore over database/sql and lib/pq.
type PostgresRowStore struct {
	db    *sql.DB
	table models.Table
}

// Open connects to Postgres with the lib/pq driver and checks the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, classify(err)
	}
	return db, nil
}

func NewPostgresRowStore(db *sql.DB, table models.Table) *PostgresRowStore {
	return &PostgresRowStore{
		db:    db,
		table: table,
	}
}

func (p *PostgresRowStore) Table() models.Table { return p.table }

func (p *PostgresRowStore) ReadRow(ctx context.Context, parentID int64) (models.Row, bool, error) {
	query := storage.SelectRowSQL(pq.QuoteIdentifier, p.table)

	var doc []byte
	err := p.db.QueryRowContext(ctx, query, parentID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Row{}, false, nil
	}
	if err != nil {
		return models.Row{}, false, classify(err)
	}

	row, err := storage.DecodeRow(doc)
	if err != nil {
		return models.Row{}, false, fmt.Errorf("%s %d: %w: %w", p.table.Name, parentID, apperr.ErrCorruptData, err)
	}
	return row, true, nil
}

func (p *PostgresRowStore) ReplaceColumns(ctx context.Context, parentID, expectedVersion int64, cols map[string]any) (models.Row, int64, error) {
	query, args := storage.ReplaceColumnsSQL(pq.QuoteIdentifier, p.table, parentID, expectedVersion, cols)

	var doc []byte
	err := p.db.QueryRowContext(ctx, query, args...).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Row{}, 0, nil
	}
	if err != nil {
		return models.Row{}, 0, classify(err)
	}

	row, err := storage.DecodeRow(doc)
	if err != nil {
		return models.Row{}, 1, fmt.Errorf("%s %d: %w: %w", p.table.Name, parentID, apperr.ErrCorruptData, err)
	}
	return row, 1, nil
}

// classify tags driver failures as apperr.ErrStorageUnavailable, keeping the
// Postgres error code in the message.
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%w: postgres %s (%s): %w", apperr.ErrStorageUnavailable, pqErr.Code, pqErr.Code.Name(), err)
	}
	return apperr.Storage(err)
}

var _ interfaces.RowStore = (*PostgresRowStore)(nil)
