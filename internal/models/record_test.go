package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecord_Merge(t *testing.T) {
	base := Record{"id": "a", "createdAt": "2024-05-01", "estado": "abierto", "kilos": "10"}
	merged := base.Merge(Record{"estado": "cerrado", "id": "b", "createdAt": "x", "nuevo": true})

	assert.Equal(t, Record{"id": "a", "createdAt": "2024-05-01", "estado": "cerrado", "kilos": "10", "nuevo": true}, merged)
	assert.Equal(t, "abierto", base["estado"], "merge must not modify the receiver")
}

func TestRecord_CloneIsDeep(t *testing.T) {
	r := Record{"nested": map[string]any{"list": []any{"x"}}}
	c := r.Clone()
	c["nested"].(map[string]any)["list"].([]any)[0] = "y"

	assert.Equal(t, "x", r["nested"].(map[string]any)["list"].([]any)[0])
	assert.Nil(t, Record(nil).Clone())
}

func TestTable_HasLedger(t *testing.T) {
	assert.True(t, Suppliers.HasLedger())
	assert.False(t, Reports.HasLedger())
}
