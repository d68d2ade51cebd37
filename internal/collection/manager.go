// Package collection manages ordered sub-records embedded as a JSON array in
// one column of a parent row.
//
// The store only replaces whole columns, so every mutation is a
// read-decode-modify-encode-write cycle. Cycles on the same row are
// serialized in process by a per-row lock and across processes by the row
// version: a write only lands if the version read at the start is still
// current.
package collection

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/records-ledger/internal/apperr"
	"github.com/sheikh-saqib/records-ledger/internal/codec"
	interfaces "github.com/sheikh-saqib/records-ledger/internal/interfaces"
	"github.com/sheikh-saqib/records-ledger/internal/models"
	"github.com/sheikh-saqib/records-ledger/internal/models/events"
)

// DefaultTimeout bounds every store call.
const DefaultTimeout = 5 * time.Second

// Mutation edits a decoded collection. It returns the new list and any extra
// columns to write in the same statement. A returned error aborts the write.
type Mutation func(row models.Row, records []models.Record) ([]models.Record, map[string]any, error)

// Manager runs CRUD operations on the collection of one table.
type Manager struct {
	store     interfaces.RowStore
	table     models.Table
	locks     *rowLocks
	timeout   time.Duration
	now       func() time.Time
	newID     func() string
	publisher interfaces.EventPublisher
	topic     string
	logger    *slog.Logger
}

type Option func(*Manager)

// WithTimeout sets the deadline applied to each store call.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) { m.newID = newID }
}

// WithPublisher emits a CollectionChanged event on topic after each
// committed mutation.
func WithPublisher(p interfaces.EventPublisher, topic string) Option {
	return func(m *Manager) {
		m.publisher = p
		m.topic = topic
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager binds a manager to the table behind store.
func NewManager(store interfaces.RowStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		table:   store.Table(),
		locks:   newRowLocks(),
		timeout: DefaultTimeout,
		now:     time.Now,
		newID:   uuid.NewString,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Table describes the table the manager writes to.
func (m *Manager) Table() models.Table { return m.table }

// Append stamps fields with a fresh id and createdAt, overwriting any values
// the caller supplied for them, and adds the record at the end of the
// collection.
func (m *Manager) Append(ctx context.Context, parentID int64, fields models.Record) (models.Row, models.Record, error) {
	var added models.Record
	row, err := m.Mutate(ctx, parentID, func(_ models.Row, records []models.Record) ([]models.Record, map[string]any, error) {
		added = m.Stamp(fields)
		return append(records, added), nil, nil
	})
	if err != nil {
		return models.Row{}, nil, err
	}

	m.Notify(ctx, events.OpAppended, row, added.ID(), nil)
	return row, added.Clone(), nil
}

// Find returns the record with id subID. It takes no lock.
func (m *Manager) Find(ctx context.Context, parentID int64, subID string) (models.Record, error) {
	_, records, err := m.Load(ctx, parentID)
	if err != nil {
		return nil, err
	}
	i := IndexOf(records, subID)
	if i < 0 {
		return nil, m.recordNotFound(parentID, subID)
	}
	return records[i], nil
}

// List returns the whole collection in insertion order.
func (m *Manager) List(ctx context.Context, parentID int64) ([]models.Record, error) {
	_, records, err := m.Load(ctx, parentID)
	return records, err
}

// Update merges patch into the record with id subID. Keys absent from patch
// are kept; id and createdAt never change. A missing subID is ErrNotFound and
// nothing is written.
func (m *Manager) Update(ctx context.Context, parentID int64, subID string, patch models.Record) (models.Row, error) {
	row, err := m.Mutate(ctx, parentID, func(_ models.Row, records []models.Record) ([]models.Record, map[string]any, error) {
		i := IndexOf(records, subID)
		if i < 0 {
			return nil, nil, m.recordNotFound(parentID, subID)
		}
		records[i] = records[i].Merge(patch)
		return records, nil, nil
	})
	if err != nil {
		return models.Row{}, err
	}

	m.Notify(ctx, events.OpUpdated, row, subID, nil)
	return row, nil
}

// Delete removes the record with id subID, keeping the others in order.
func (m *Manager) Delete(ctx context.Context, parentID int64, subID string) (models.Row, error) {
	row, err := m.Mutate(ctx, parentID, func(_ models.Row, records []models.Record) ([]models.Record, map[string]any, error) {
		i := IndexOf(records, subID)
		if i < 0 {
			return nil, nil, m.recordNotFound(parentID, subID)
		}
		return slices.Delete(records, i, i+1), nil, nil
	})
	if err != nil {
		return models.Row{}, err
	}

	m.Notify(ctx, events.OpDeleted, row, subID, nil)
	return row, nil
}

// Mutate runs one read-modify-write cycle on the row under its lock.
func (m *Manager) Mutate(ctx context.Context, parentID int64, fn Mutation) (models.Row, error) {
	unlock, err := m.locks.acquire(ctx, parentID)
	if err != nil {
		return models.Row{}, fmt.Errorf("%s %d: waiting for row lock: %w", m.table.Name, parentID, apperr.Storage(err))
	}
	defer unlock()

	row, records, err := m.Load(ctx, parentID)
	if err != nil {
		return models.Row{}, err
	}

	next, extra, err := fn(row, records)
	if err != nil {
		return models.Row{}, err
	}

	text, err := codec.Encode(next)
	if err != nil {
		return models.Row{}, fmt.Errorf("%s %d: %w: %w", m.table.Name, parentID, apperr.ErrInvalidInput, err)
	}
	cols := map[string]any{m.table.CollectionColumn: text}
	for k, v := range extra {
		cols[k] = v
	}
	return m.write(ctx, row, cols)
}

// Load reads the row and decodes its collection.
func (m *Manager) Load(ctx context.Context, parentID int64) (models.Row, []models.Record, error) {
	sctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	row, exists, err := m.store.ReadRow(sctx, parentID)
	if err != nil {
		return models.Row{}, nil, fmt.Errorf("%s %d: read: %w", m.table.Name, parentID, apperr.Storage(err))
	}
	if !exists {
		return models.Row{}, nil, m.rowNotFound(parentID)
	}

	records, err := codec.Decode(row.Column(m.table.CollectionColumn))
	if err != nil {
		return models.Row{}, nil, fmt.Errorf("%s %d: column %s: %w", m.table.Name, parentID, m.table.CollectionColumn, err)
	}
	return row, records, nil
}

// Stamp returns a copy of fields carrying a new id and the creation stamp.
func (m *Manager) Stamp(fields models.Record) models.Record {
	rec := fields.Clone()
	if rec == nil {
		rec = models.Record{}
	}
	rec[models.FieldID] = m.newID()
	rec[models.FieldCreatedAt] = m.now().UTC().Format(m.table.StampLayout)
	return rec
}

// Notify publishes a CollectionChanged event. The row is already committed,
// so a publish failure is logged and not returned.
func (m *Manager) Notify(ctx context.Context, op events.Op, row models.Row, recordID string, balance *decimal.Decimal) {
	if m.publisher == nil {
		return
	}
	event := events.CollectionChanged{
		Table:      m.table.Name,
		ParentID:   row.ID,
		RecordID:   recordID,
		Op:         op,
		Balance:    balance,
		OccurredAt: m.now().UTC(),
	}
	key := fmt.Sprintf("%s/%d", m.table.Name, row.ID)

	// The row is already committed, publishing gets its own deadline
	pctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := m.publisher.Publish(pctx, m.topic, key, event); err != nil {
		m.logger.WarnContext(ctx, "Failed to publish collection event",
			"table", m.table.Name, "parent_id", row.ID, "record_id", recordID, "op", op, "error", err)
	}
}

func (m *Manager) write(ctx context.Context, row models.Row, cols map[string]any) (models.Row, error) {
	sctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	updated, affected, err := m.store.ReplaceColumns(sctx, row.ID, row.Version, cols)
	if err != nil {
		return models.Row{}, fmt.Errorf("%s %d: write: %w", m.table.Name, row.ID, apperr.Storage(err))
	}
	if affected > 0 {
		return updated, nil
	}

	// Nothing matched: either the row is gone or another writer bumped the version.
	_, exists, err := m.store.ReadRow(sctx, row.ID)
	if err != nil {
		return models.Row{}, fmt.Errorf("%s %d: write: %w", m.table.Name, row.ID, apperr.Storage(err))
	}
	if !exists {
		return models.Row{}, m.rowNotFound(row.ID)
	}
	return models.Row{}, fmt.Errorf("%s %d: version %d is stale: %w", m.table.Name, row.ID, row.Version, apperr.ErrConflict)
}

func (m *Manager) rowNotFound(parentID int64) error {
	return fmt.Errorf("%s %d: %w", m.table.Name, parentID, apperr.ErrNotFound)
}

func (m *Manager) recordNotFound(parentID int64, subID string) error {
	return fmt.Errorf("%s %d: %s %q: %w", m.table.Name, parentID, m.table.CollectionColumn, subID, apperr.ErrNotFound)
}

// IndexOf returns the position of the first record with the given id, or -1.
func IndexOf(records []models.Record, id string) int {
	return slices.IndexFunc(records, func(r models.Record) bool { return r.ID() == id })
}
