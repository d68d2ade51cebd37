package events

import (
	"time"

	"github.com/shopspring/decimal"
)

type Op string

const (
	OpAppended Op = "appended"
	OpUpdated  Op = "updated"
	OpDeleted  Op = "deleted"
)

// CollectionChanged is emitted after a sub-record mutation has been committed.
type CollectionChanged struct {
	Table      string           `json:"table"`
	ParentID   int64            `json:"parent_id"`
	RecordID   string           `json:"record_id"`
	Op         Op               `json:"op"`
	Balance    *decimal.Decimal `json:"balance,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}
