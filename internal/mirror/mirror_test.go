package mirror

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alltech-shop/internal/models"
	"alltech-shop/internal/search"
	"alltech-shop/internal/store"
	"alltech-shop/pkg/logger"
)

func newWriter(t *testing.T) (*Writer, *store.Memory, *search.MemoryIndex) {
	t.Helper()
	st := store.NewMemory()
	sc := search.NewMemoryClient()
	log := logger.New(logger.DefaultConfig())
	w := NewWriter(st, sc, models.Screens, log)
	return w, st, sc.MemoryIndex(models.Screens.IndexUID)
}

func item(name string, qty int, price int64) models.InventoryItem {
	return models.InventoryItem{
		ProductName: name,
		Quantity:    qty,
		Price:       decimal.NewFromInt(price),
	}
}

func TestCreateWritesStoreThenIndex(t *testing.T) {
	w, st, idx := newWriter(t)
	ctx := context.Background()

	id, err := w.Create(ctx, item("Galaxy S10", 5, 1200))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	var stored models.InventoryItem
	ok, err := st.Get(ctx, models.Path("LCD", id), &stored)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Galaxy S10", stored.ProductName)
	assert.NotZero(t, stored.Timestamp, "store copy carries the server timestamp")

	doc, ok := idx.Document(id)
	require.True(t, ok)
	assert.Equal(t, "Galaxy S10", doc.ProductName)
	assert.Equal(t, 5, doc.Quantity)
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	w, st, idx := newWriter(t)
	ctx := context.Background()

	_, err := w.Create(ctx, item("Galaxy S10", 5, 1200))
	require.NoError(t, err)

	_, err = w.Create(ctx, item("Galaxy S10", 3, 900))
	assert.ErrorIs(t, err, ErrDuplicateName)

	entries, err := st.QueryByKey(ctx, models.Path("LCD"), "", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "rejected create must not write the store")
	assert.Equal(t, 1, idx.Len(), "rejected create must not write the index")
}

func TestCreateIndexFailureKeepsStoreWrite(t *testing.T) {
	w, st, idx := newWriter(t)
	ctx := context.Background()

	idx.FailWith(errors.New("meili down"))

	id, err := w.Create(ctx, item("Galaxy S10", 5, 1200))
	assert.ErrorIs(t, err, ErrIndexWrite)
	require.NotEmpty(t, id, "the store key is still reported")

	// No rollback: the store keeps the item, the index stays behind.
	ok, err := st.Get(ctx, models.Path("LCD", id), nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, idx.Len())
}

func TestPutUpdatesBothSides(t *testing.T) {
	w, _, idx := newWriter(t)
	ctx := context.Background()

	id, err := w.Create(ctx, item("Galaxy S10", 5, 1200))
	require.NoError(t, err)

	require.NoError(t, w.Put(ctx, id, item("Galaxy S10e", 4, 1100)))

	got, err := w.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Galaxy S10e", got.ProductName)
	assert.Equal(t, 4, got.Quantity)

	doc, ok := idx.Document(id)
	require.True(t, ok)
	assert.Equal(t, "Galaxy S10e", doc.ProductName)

	assert.Equal(t, []string{"add", "update"}, idx.Calls, "store writes precede index writes")
}

func TestPutMissingItem(t *testing.T) {
	w, _, idx := newWriter(t)

	err := w.Put(context.Background(), "missing", item("X", 1, 1))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, idx.Calls, "nothing touches the index")
}

func TestDeleteRemovesBothSides(t *testing.T) {
	w, st, idx := newWriter(t)
	ctx := context.Background()

	id, err := w.Create(ctx, item("Galaxy S10", 5, 1200))
	require.NoError(t, err)

	require.NoError(t, w.Delete(ctx, id))

	ok, err := st.Get(ctx, models.Path("LCD", id), nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, idx.Len())
}

func TestSyncIndexReportsFailure(t *testing.T) {
	w, _, idx := newWriter(t)
	ctx := context.Background()

	idx.FailWith(errors.New("meili down"))
	err := w.SyncIndex(ctx, models.IndexDocument{ID: "a", ProductName: "X"})
	assert.ErrorIs(t, err, ErrIndexWrite)
}
