package models

import "time"

// DateLayout stamps records with calendar-day granularity.
const DateLayout = time.DateOnly

// TimestampLayout stamps records with a full UTC timestamp.
const TimestampLayout = time.RFC3339Nano

// Table describes a parent table that owns an embedded collection.
type Table struct {
	Name             string
	CollectionColumn string
	BalanceColumn    string // empty when the collection is not a ledger
	StampLayout      string
}

// HasLedger reports whether the table carries a balance reconciled against
// the collection.
func (t Table) HasLedger() bool { return t.BalanceColumn != "" }

// Reports holds contract snapshots attached to a report.
var Reports = Table{
	Name:             "informes",
	CollectionColumn: "contratos",
	StampLayout:      DateLayout,
}

// Suppliers holds payment vouchers reconciled against the supplier balance.
var Suppliers = Table{
	Name:             "proveedores",
	CollectionColumn: "comprobantes",
	BalanceColumn:    "saldo",
	StampLayout:      TimestampLayout,
}
