package memory

import (
	"fmt"
	"os"

	"github.com/sheikh-saqib/records-ledger/internal/codec"
	"github.com/sheikh-saqib/records-ledger/internal/models"
)

// LoadSeed inserts fixture rows into the given stores. The file is a JSON
// object keyed by table name, each holding an array of column maps:
//
//	{"proveedores": [{"proveedor": "ACME", "saldo": 1000.00, "comprobantes": "[]"}]}
//
// Tables in the file without a matching store are rejected. Ids are
// assigned by the store in file order.
func LoadSeed(path string, stores ...*MemoryRowStore) (map[string][]models.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("memory: read seed: %w", err)
	}

	var fixture map[string][]map[string]any
	if err := codec.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("memory: seed %s: %w", path, err)
	}

	byName := make(map[string]*MemoryRowStore, len(stores))
	for _, s := range stores {
		byName[s.Table().Name] = s
	}
	for name := range fixture {
		if _, ok := byName[name]; !ok {
			return nil, fmt.Errorf("memory: seed %s: no store for table %q", path, name)
		}
	}

	inserted := make(map[string][]models.Row, len(fixture))
	for _, s := range stores {
		name := s.Table().Name
		for _, cols := range fixture[name] {
			// id and version belong to the store
			delete(cols, "id")
			delete(cols, models.VersionColumn)
			inserted[name] = append(inserted[name], s.Insert(cols))
		}
	}
	return inserted, nil
}
