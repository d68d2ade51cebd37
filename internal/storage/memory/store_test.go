package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/records-ledger/internal/models"
)

func TestMemoryRowStore_ReplaceColumns(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRowStore(models.Reports)
	row := store.Insert(map[string]any{"contratos": "[]", "fabrica": "Norte"})

	t.Run("matching version replaces and bumps", func(t *testing.T) {
		updated, n, err := store.ReplaceColumns(ctx, row.ID, 0, map[string]any{"contratos": `[{"id":"a"}]`})
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
		assert.EqualValues(t, 1, updated.Version)
		assert.Equal(t, `[{"id":"a"}]`, updated.Column("contratos"))
		assert.Equal(t, "Norte", updated.Column("fabrica"))
	})

	t.Run("stale version affects nothing", func(t *testing.T) {
		_, n, err := store.ReplaceColumns(ctx, row.ID, 0, map[string]any{"contratos": "[]"})
		require.NoError(t, err)
		assert.Zero(t, n)

		current, ok, err := store.ReadRow(ctx, row.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, `[{"id":"a"}]`, current.Column("contratos"))
	})

	t.Run("missing row affects nothing", func(t *testing.T) {
		_, n, err := store.ReplaceColumns(ctx, 999, 0, map[string]any{"contratos": "[]"})
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestMemoryRowStore_ReadRowIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRowStore(models.Reports)
	row := store.Insert(map[string]any{"meta": map[string]any{"k": "v"}})

	got, ok, err := store.ReadRow(ctx, row.ID)
	require.NoError(t, err)
	require.True(t, ok)
	got.Columns["meta"].(map[string]any)["k"] = "changed"

	again, _, err := store.ReadRow(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, "v", again.Columns["meta"].(map[string]any)["k"])
}

func TestMemoryRowStore_CancelledContext(t *testing.T) {
	store := NewMemoryRowStore(models.Reports)
	row := store.Insert(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := store.ReadRow(ctx, row.ID)
	assert.ErrorIs(t, err, context.Canceled)
	_, _, err = store.ReplaceColumns(ctx, row.ID, 0, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryRowStore_Delete(t *testing.T) {
	store := NewMemoryRowStore(models.Reports)
	row := store.Insert(nil)

	assert.True(t, store.Delete(row.ID))
	assert.False(t, store.Delete(row.ID))

	_, ok, err := store.ReadRow(context.Background(), row.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
