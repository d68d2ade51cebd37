package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/records-ledger/internal/apperr"
	"github.com/sheikh-saqib/records-ledger/internal/collection"
	"github.com/sheikh-saqib/records-ledger/internal/models"
	"github.com/sheikh-saqib/records-ledger/internal/models/events"
)

// FieldTotal is the voucher amount debited from the balance.
const FieldTotal = "total"

// TotalScale is the number of decimal places a total may carry. It matches
// the NUMERIC(18, 2) balance column, so the store never rounds a balance.
const TotalScale = 2

var errMissing = errors.New("missing")

// Reconciler keeps a parent row's balance equal to its initial balance minus
// the totals of the vouchers currently in its collection.
//
// The voucher list and the balance are written by the same ReplaceColumns
// call, so a row never shows one change without the other.
type Reconciler struct {
	vouchers *collection.Manager // embedded voucher list of the parent table
	table    models.Table        // must carry a balance column
}

// NewReconciler wraps a collection manager whose table has a balance column.
func NewReconciler(vouchers *collection.Manager) (*Reconciler, error) {
	table := vouchers.Table()
	if !table.HasLedger() {
		return nil, fmt.Errorf("ledger: table %s has no balance column", table.Name)
	}
	return &Reconciler{
		vouchers: vouchers,
		table:    table,
	}, nil
}

// AppendVoucher stamps the voucher, appends it and debits its total.
func (r *Reconciler) AppendVoucher(ctx context.Context, parentID int64, voucher models.Record) (models.Row, models.Record, error) {
	total, err := Total(voucher)
	if err != nil {
		return models.Row{}, nil, err
	}

	var (
		added   models.Record
		balance decimal.Decimal
	)
	row, err := r.vouchers.Mutate(ctx, parentID, func(row models.Row, vouchers []models.Record) ([]models.Record, map[string]any, error) {
		// Read the balance from the same row version the list came from
		current, err := r.balanceOf(row)
		if err != nil {
			return nil, nil, err
		}
		// Server-side id and timestamp, then debit
		added = r.vouchers.Stamp(voucher)
		balance = current.Sub(total)
		return append(vouchers, added), r.balanceColumn(balance), nil
	})
	if err != nil {
		return models.Row{}, nil, err
	}

	r.vouchers.Notify(ctx, events.OpAppended, row, added.ID(), &balance)
	return row, added.Clone(), nil
}

// RemoveVoucher deletes the voucher and credits its total back.
func (r *Reconciler) RemoveVoucher(ctx context.Context, parentID int64, voucherID string) (models.Row, error) {
	var balance decimal.Decimal
	row, err := r.vouchers.Mutate(ctx, parentID, func(row models.Row, vouchers []models.Record) ([]models.Record, map[string]any, error) {
		i := collection.IndexOf(vouchers, voucherID)
		if i < 0 {
			return nil, nil, r.voucherNotFound(parentID, voucherID)
		}
		current, err := r.balanceOf(row)
		if err != nil {
			return nil, nil, err
		}
		total, err := r.storedTotal(parentID, vouchers[i])
		if err != nil {
			return nil, nil, err
		}
		// Credit back exactly what was debited
		balance = current.Add(total)
		return append(vouchers[:i:i], vouchers[i+1:]...), r.balanceColumn(balance), nil
	})
	if err != nil {
		return models.Row{}, err
	}

	r.vouchers.Notify(ctx, events.OpDeleted, row, voucherID, &balance)
	return row, nil
}

// UpdateVoucher merges patch into a voucher. When the patch changes the
// total, the balance moves by the difference, so the balance stays equal to
// the initial balance minus the current totals.
func (r *Reconciler) UpdateVoucher(ctx context.Context, parentID int64, voucherID string, patch models.Record) (models.Row, error) {
	_, changesTotal := patch[FieldTotal]
	var newTotal decimal.Decimal
	if changesTotal {
		var err error
		if newTotal, err = Total(patch); err != nil {
			return models.Row{}, err
		}
	}

	var balance decimal.Decimal
	row, err := r.vouchers.Mutate(ctx, parentID, func(row models.Row, vouchers []models.Record) ([]models.Record, map[string]any, error) {
		i := collection.IndexOf(vouchers, voucherID)
		if i < 0 {
			return nil, nil, r.voucherNotFound(parentID, voucherID)
		}
		current, err := r.balanceOf(row)
		if err != nil {
			return nil, nil, err
		}
		balance = current
		var extra map[string]any
		if changesTotal {
			oldTotal, err := r.storedTotal(parentID, vouchers[i])
			if err != nil {
				return nil, nil, err
			}
			// Undo the old debit, apply the new one
			balance = current.Add(oldTotal).Sub(newTotal)
			extra = r.balanceColumn(balance)
		}
		vouchers[i] = vouchers[i].Merge(patch)
		return vouchers, extra, nil
	})
	if err != nil {
		return models.Row{}, err
	}

	r.vouchers.Notify(ctx, events.OpUpdated, row, voucherID, &balance)
	return row, nil
}

// Table describes the supplier table the reconciler writes to.
func (r *Reconciler) Table() models.Table { return r.table }

func (r *Reconciler) FindVoucher(ctx context.Context, parentID int64, voucherID string) (models.Record, error) {
	return r.vouchers.Find(ctx, parentID, voucherID)
}

func (r *Reconciler) Vouchers(ctx context.Context, parentID int64) ([]models.Record, error) {
	return r.vouchers.List(ctx, parentID)
}

// Balance reads the current balance of the parent row.
func (r *Reconciler) Balance(ctx context.Context, parentID int64) (decimal.Decimal, error) {
	row, _, err := r.vouchers.Load(ctx, parentID)
	if err != nil {
		return decimal.Zero, err
	}
	return r.balanceOf(row)
}

// BalanceOf extracts the balance column of a row returned by this reconciler.
func (r *Reconciler) BalanceOf(row models.Row) (decimal.Decimal, error) {
	return r.balanceOf(row)
}

func (r *Reconciler) balanceOf(row models.Row) (decimal.Decimal, error) {
	d, err := toDecimal(row.Column(r.table.BalanceColumn))
	if errors.Is(err, errMissing) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s %d: column %s: %w: %w", r.table.Name, row.ID, r.table.BalanceColumn, apperr.ErrCorruptData, err)
	}
	return d, nil
}

func (r *Reconciler) balanceColumn(d decimal.Decimal) map[string]any {
	return map[string]any{r.table.BalanceColumn: d}
}

// storedTotal parses the total of a voucher already in the collection. A bad
// value there is corruption, not caller error.
func (r *Reconciler) storedTotal(parentID int64, voucher models.Record) (decimal.Decimal, error) {
	d, err := toDecimal(voucher[FieldTotal])
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s %d: voucher %q total: %w: %w", r.table.Name, parentID, voucher.ID(), apperr.ErrCorruptData, err)
	}
	return d, nil
}

func (r *Reconciler) voucherNotFound(parentID int64, voucherID string) error {
	return fmt.Errorf("%s %d: voucher %q: %w", r.table.Name, parentID, voucherID, apperr.ErrNotFound)
}

// Total parses a voucher's total as a decimal. A missing or non-numeric total,
// or one finer than TotalScale places, is apperr.ErrInvalidInput.
func Total(voucher models.Record) (decimal.Decimal, error) {
	d, err := toDecimal(voucher[FieldTotal])
	if err != nil {
		return decimal.Zero, fmt.Errorf("voucher total: %w: %w", apperr.ErrInvalidInput, err)
	}
	// 1.500 is fine, 1.505 is not
	if !d.Equal(d.Truncate(TotalScale)) {
		return decimal.Zero, fmt.Errorf("voucher total: %w: %s has more than %d decimal places", apperr.ErrInvalidInput, d, TotalScale)
	}
	return d, nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, errMissing
	case decimal.Decimal:
		return t, nil
	case json.Number: // request bodies and to_jsonb rows
		return decimal.NewFromString(string(t))
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return decimal.Zero, errMissing
		}
		return decimal.NewFromString(s)
	case int:
		return decimal.NewFromInt(int64(t)), nil
	case int32:
		return decimal.NewFromInt32(t), nil
	case int64:
		return decimal.NewFromInt(t), nil
	case float32:
		if math.IsNaN(float64(t)) || math.IsInf(float64(t), 0) {
			return decimal.Zero, fmt.Errorf("%v is not a number", t)
		}
		return decimal.NewFromFloat32(t), nil
	case float64: // callers that decoded without UseNumber
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Zero, fmt.Errorf("%v is not a number", t)
		}
		return decimal.NewFromFloat(t), nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported type %T", v)
	}
}
