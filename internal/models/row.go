package models

// VersionColumn holds the optimistic concurrency token of every parent row.
const VersionColumn = "version"

// Row is a parent row as returned by the row store.
type Row struct {
	ID      int64          `json:"id"`
	Version int64          `json:"version"`
	Columns map[string]any `json:"columns"`
}

// Column returns the raw value of a column, nil when it is absent.
func (r Row) Column(name string) any {
	if r.Columns == nil {
		return nil
	}
	return r.Columns[name]
}
