package interfaces

import (
	"context"

	"github.com/sheikh-saqib/records-ledger/internal/models"
)

// RowStore is the relational table holding parent rows. It only understands
// whole-row reads and whole-column replacement.
type RowStore interface {
	// Table describes the table the store is bound to.
	Table() models.Table
	// ReadRow fetches a row; exists is false when no row has that id.
	ReadRow(ctx context.Context, parentID int64) (row models.Row, exists bool, err error)
	// ReplaceColumns overwrites cols and bumps the version, but only if the
	// row still exists with expectedVersion. rowsAffected is 0 otherwise.
	ReplaceColumns(ctx context.Context, parentID, expectedVersion int64, cols map[string]any) (row models.Row, rowsAffected int64, err error)
}
