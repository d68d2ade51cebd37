// Package storage holds the SQL shared by the Postgres row stores.
//
// Every parent table is expected to look like:
//
//	CREATE TABLE proveedores (
//		id           BIGSERIAL PRIMARY KEY,
//		comprobantes TEXT,
//		saldo        NUMERIC(18, 2) NOT NULL DEFAULT 0,
//		version      BIGINT NOT NULL DEFAULT 0,
//		...
//	);
//
// The collection column may also be JSONB; rows are read through to_jsonb so
// both come back as JSON.
package storage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sheikh-saqib/records-ledger/internal/codec"
	"github.com/sheikh-saqib/records-ledger/internal/models"
)

// QuoteFunc quotes an SQL identifier for the target driver.
type QuoteFunc func(ident string) string

// SelectRowSQL reads a whole row as a single JSON document.
func SelectRowSQL(quote QuoteFunc, table models.Table) string {
	return fmt.Sprintf(`SELECT to_jsonb(t) FROM %s AS t WHERE t.id = $1`, quote(table.Name))
}

// ReplaceColumnsSQL builds the compare-and-swap update that writes cols and
// bumps the version in one statement. Columns are sorted so the statement is
// stable for a given column set.
func ReplaceColumnsSQL(quote QuoteFunc, table models.Table, parentID, expectedVersion int64, cols map[string]any) (string, []any) {
	names := make([]string, 0, len(cols))
	for name := range cols {
		if name == "id" || name == models.VersionColumn {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]string, 0, len(names)+1)
	args := make([]any, 0, len(names)+2)
	for _, name := range names {
		args = append(args, cols[name])
		sets = append(sets, fmt.Sprintf("%s = $%d", quote(name), len(args)))
	}
	v := quote(models.VersionColumn)
	sets = append(sets, fmt.Sprintf("%s = t.%s + 1", v, v))
	args = append(args, parentID, expectedVersion)

	query := fmt.Sprintf(`UPDATE %s AS t SET %s WHERE t.id = $%d AND t.%s = $%d RETURNING to_jsonb(t)`,
		quote(table.Name), strings.Join(sets, ", "), len(args)-1, v, len(args))
	return query, args
}

// DecodeRow turns the to_jsonb document of a row into a models.Row. id and
// version are lifted out of the column map.
func DecodeRow(data []byte) (models.Row, error) {
	var cols map[string]any
	if err := codec.Unmarshal(data, &cols); err != nil {
		return models.Row{}, fmt.Errorf("decode row: %w", err)
	}
	id, err := int64Column(cols, "id")
	if err != nil {
		return models.Row{}, err
	}
	version, err := int64Column(cols, models.VersionColumn)
	if err != nil {
		return models.Row{}, err
	}
	delete(cols, "id")
	delete(cols, models.VersionColumn)
	return models.Row{ID: id, Version: version, Columns: cols}, nil
}

func int64Column(cols map[string]any, name string) (int64, error) {
	switch v := cols[name].(type) {
	case nil:
		return 0, nil
	case interface{ Int64() (int64, error) }:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("decode row: column %s: %w", name, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("decode row: column %s has type %T", name, v)
	}
}
