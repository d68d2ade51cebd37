package memory

import (
	"context" // request-scoped deadlines are honoured even in memory
	"sync"    // protects the rows map from concurrent access

	interfaces "github.com/sheikh-saqib/records-ledger/internal/interfaces"
	"github.com/sheikh-saqib/records-ledger/internal/models"
)

type memoryRow struct {
	version int64          // bumped on every successful ReplaceColumns
	columns map[string]any // every column except id and version
}

// MemoryRowStore is an in-memory implementation of interfaces.RowStore.
// Columns are deep-copied on the way in and out, so callers never share
// state with the store.
type MemoryRowStore struct {
	mu     sync.Mutex           // guards rows and nextID
	table  models.Table         // table this store stands in for
	rows   map[int64]*memoryRow // rows by id
	nextID int64                // last id handed out, like a BIGSERIAL
}

// NewMemoryRowStore creates an empty store bound to table.
func NewMemoryRowStore(table models.Table) *MemoryRowStore {
	return &MemoryRowStore{
		table: table,
		rows:  make(map[int64]*memoryRow), // initialize an empty row map
	}
}

func (m *MemoryRowStore) Table() models.Table { return m.table }

// Insert adds a new row and returns it with its assigned id.
func (m *MemoryRowStore) Insert(columns map[string]any) models.Row {
	m.mu.Lock()         // lock the mutex to prevent concurrent inserts
	defer m.mu.Unlock() // unlock automatically when function exits

	m.nextID++
	r := &memoryRow{columns: models.CloneColumns(columns)}
	if r.columns == nil {
		r.columns = make(map[string]any)
	}
	m.rows[m.nextID] = r
	return m.snapshot(m.nextID, r)
}

// Delete removes a row. It reports whether the row existed.
func (m *MemoryRowStore) Delete(parentID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.rows[parentID]
	delete(m.rows, parentID)
	return ok
}

func (m *MemoryRowStore) ReadRow(ctx context.Context, parentID int64) (models.Row, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Row{}, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rows[parentID]
	if !ok {
		return models.Row{}, false, nil // absent is not an error
	}
	return m.snapshot(parentID, r), true, nil // copy so callers can't modify internal state
}

func (m *MemoryRowStore) ReplaceColumns(ctx context.Context, parentID, expectedVersion int64, cols map[string]any) (models.Row, int64, error) {
	if err := ctx.Err(); err != nil {
		return models.Row{}, 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rows[parentID]
	if !ok || r.version != expectedVersion {
		return models.Row{}, 0, nil // same as an UPDATE matching no rows
	}
	// all columns change together with the version
	for k, v := range models.CloneColumns(cols) {
		r.columns[k] = v
	}
	r.version++
	return m.snapshot(parentID, r), 1, nil
}

// snapshot copies a row out of the store. Callers must hold m.mu.
func (m *MemoryRowStore) snapshot(id int64, r *memoryRow) models.Row {
	return models.Row{
		ID:      id,
		Version: r.version,
		Columns: models.CloneColumns(r.columns),
	}
}

// Compile-time check: ensure MemoryRowStore implements RowStore interface
var _ interfaces.RowStore = (*MemoryRowStore)(nil)
