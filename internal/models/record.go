package models

// Reserved keys stamped by the collection manager. Callers never control them.
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
)

// Record is one element of an embedded collection: a free-form JSON object
// plus the system-assigned id and createdAt fields.
type Record map[string]any

// ID returns the record's system-assigned identifier, or "" if it has none.
func (r Record) ID() string {
	id, _ := r[FieldID].(string)
	return id
}

// CreatedAt returns the creation stamp as it was written.
func (r Record) CreatedAt() string {
	s, _ := r[FieldCreatedAt].(string)
	return s
}

// Clone returns a deep copy, so nested maps and slices can be mutated
// without touching the original.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

// Merge returns a copy of r where every key of patch overwrites the existing
// value. id and createdAt are never taken from the patch.
func (r Record) Merge(patch Record) Record {
	out := r.Clone()
	if out == nil {
		out = Record{}
	}
	for k, v := range patch {
		if k == FieldID || k == FieldCreatedAt {
			continue
		}
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Record:
		return t.Clone()
	case map[string]any:
		return map[string]any(Record(t).Clone())
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// CloneColumns deep-copies a column map.
func CloneColumns(cols map[string]any) map[string]any {
	if cols == nil {
		return nil
	}
	return map[string]any(Record(cols).Clone())
}
