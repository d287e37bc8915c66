package orders

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alltech-shop/internal/mirror"
	"alltech-shop/internal/models"
	"alltech-shop/internal/search"
	"alltech-shop/internal/store"
	"alltech-shop/pkg/logger"
)

type fixture struct {
	svc     *Service
	st      *store.Memory
	screens *mirror.Writer
	accs    *mirror.Writer
	lcdIdx  *search.MemoryIndex
	accIdx  *search.MemoryIndex
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemory()
	sc := search.NewMemoryClient()
	log := logger.New(logger.DefaultConfig())

	screens := mirror.NewWriter(st, sc, models.Screens, log)
	accs := mirror.NewWriter(st, sc, models.Accessories, log)
	return &fixture{
		svc:     NewService(st, screens, accs, log),
		st:      st,
		screens: screens,
		accs:    accs,
		lcdIdx:  sc.MemoryIndex(models.Screens.IndexUID),
		accIdx:  sc.MemoryIndex(models.Accessories.IndexUID),
	}
}

func (f *fixture) addScreen(t *testing.T, name string, qty int, price int64) string {
	t.Helper()
	id, err := f.screens.Create(context.Background(), models.InventoryItem{
		ProductName: name,
		Quantity:    qty,
		Price:       decimal.NewFromInt(price),
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) addAccessory(t *testing.T, name string, qty int, price int64) string {
	t.Helper()
	id, err := f.accs.Create(context.Background(), models.InventoryItem{
		ProductName: name,
		Quantity:    qty,
		Price:       decimal.NewFromInt(price),
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) collection(t *testing.T, path string) []store.Entry {
	t.Helper()
	entries, err := f.st.QueryByKey(context.Background(), models.Path(path), "", 0)
	require.NoError(t, err)
	return entries
}

func TestSellScreenComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.addScreen(t, "X1", 5, 100)

	order, err := f.svc.SellScreen(ctx, SellScreenRequest{
		ID:       id,
		Price:    decimal.NewFromInt(90),
		Customer: "Jane Doe",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, order.Quantity)
	assert.Equal(t, "Jane Doe", order.CustomerName)
	assert.Equal(t, id, order.ProductID)
	assert.True(t, order.Price.Equal(decimal.NewFromInt(90)))

	item, err := f.screens.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 4, item.Quantity)
	assert.True(t, item.Price.Equal(decimal.NewFromInt(90)), "the sale price sticks on the item")

	assert.Len(t, f.collection(t, models.Screens.CompletePath), 1)
	assert.Len(t, f.collection(t, models.Screens.ReceiptPath), 1)
	assert.Empty(t, f.collection(t, models.PathSaved))

	doc, ok := f.lcdIdx.Document(id)
	require.True(t, ok)
	assert.Equal(t, 4, doc.Quantity, "index mirrors the new stock")
}

func TestSellScreenSave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.addScreen(t, "X1", 5, 100)

	order, err := f.svc.SellScreen(ctx, SellScreenRequest{
		ID:       id,
		Price:    decimal.NewFromInt(90),
		Customer: "Jane Doe",
		Save:     true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, order.ID)

	// Stock is reserved at save time; the ledgers stay empty.
	item, err := f.screens.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 4, item.Quantity)
	assert.Len(t, f.collection(t, models.PathSaved), 1)
	assert.Empty(t, f.collection(t, models.Screens.CompletePath))
	assert.Empty(t, f.collection(t, models.Screens.ReceiptPath))
}

func TestSellScreenOutOfStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.addScreen(t, "X1", 0, 100)

	before := f.collection(t, models.Screens.StorePath)

	_, err := f.svc.SellScreen(ctx, SellScreenRequest{
		ID:       id,
		Price:    decimal.NewFromInt(90),
		Customer: "Jane Doe",
	})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	assert.Equal(t, before, f.collection(t, models.Screens.StorePath), "a rejected sale writes nothing")
	assert.Empty(t, f.collection(t, models.Screens.CompletePath))
	assert.Empty(t, f.collection(t, models.PathSaved))
}

func TestSellScreenInvalidCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.addScreen(t, "X1", 5, 100)

	for _, name := range []string{"", "Jane123", "Jane!", "O'Brien"} {
		_, err := f.svc.SellScreen(ctx, SellScreenRequest{
			ID:       id,
			Price:    decimal.NewFromInt(90),
			Customer: name,
		})
		assert.ErrorIs(t, err, ErrInvalidInput, "customer %q", name)
	}

	item, err := f.screens.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)
}

func TestSellScreenMissingItem(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SellScreen(context.Background(), SellScreenRequest{
		ID:       "missing",
		Price:    decimal.NewFromInt(90),
		Customer: "Jane",
	})
	assert.ErrorIs(t, err, mirror.ErrNotFound)
}

func TestSellAccessory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.addAccessory(t, "USB Cable", 5, 10)

	order, err := f.svc.SellAccessory(ctx, SellAccessoryRequest{
		ID:       id,
		Quantity: 3,
		Price:    decimal.NewFromInt(12),
		Customer: "John Smith",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, order.Quantity)
	assert.True(t, order.Price.Equal(decimal.NewFromInt(36)), "order total is unit price times quantity")

	item, err := f.accs.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity)
	assert.True(t, item.Price.Equal(decimal.NewFromInt(10)), "the stored unit price is untouched")

	assert.Len(t, f.collection(t, models.Accessories.CompletePath), 1)
	assert.Len(t, f.collection(t, models.Accessories.ReceiptPath), 1)

	doc, ok := f.accIdx.Document(id)
	require.True(t, ok)
	assert.Equal(t, 2, doc.Quantity)
}

func TestSellAccessoryInvalidQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.addAccessory(t, "USB Cable", 5, 10)

	_, err := f.svc.SellAccessory(ctx, SellAccessoryRequest{
		ID: id, Quantity: 0, Price: decimal.NewFromInt(10), Customer: "John",
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.SellAccessory(ctx, SellAccessoryRequest{
		ID: id, Quantity: 6, Price: decimal.NewFromInt(10), Customer: "John",
	})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	item, err := f.accs.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)
}

func TestListSavedNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	now := time.UnixMilli(1700000000000)
	f.st.SetClock(func() time.Time { return now })
	first := f.addScreen(t, "X1", 5, 100)
	second := f.addScreen(t, "X2", 5, 100)

	_, err := f.svc.SellScreen(ctx, SellScreenRequest{
		ID: first, Price: decimal.NewFromInt(90), Customer: "Jane", Save: true,
	})
	require.NoError(t, err)

	f.st.SetClock(func() time.Time { return now.Add(time.Minute) })
	_, err = f.svc.SellScreen(ctx, SellScreenRequest{
		ID: second, Price: decimal.NewFromInt(80), Customer: "John", Save: true,
	})
	require.NoError(t, err)

	saved, err := f.svc.ListSaved(ctx)
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, "X2", saved[0].ProductName, "newest first")
	assert.Equal(t, "X1", saved[1].ProductName)
}

func TestCompleteSaved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.addScreen(t, "X1", 5, 100)

	order, err := f.svc.SellScreen(ctx, SellScreenRequest{
		ID: id, Price: decimal.NewFromInt(90), Customer: "Jane", Save: true,
	})
	require.NoError(t, err)

	callsBefore := len(f.lcdIdx.Calls)

	completed, err := f.svc.Complete(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "X1", completed.ProductName)

	assert.Empty(t, f.collection(t, models.PathSaved))
	assert.Len(t, f.collection(t, models.Screens.CompletePath), 1)
	assert.Len(t, f.collection(t, models.Screens.ReceiptPath), 1)

	// Stock moved at save time; completion must not touch the index.
	assert.Len(t, f.lcdIdx.Calls, callsBefore)
}

func TestCompleteMissingOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Complete(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestRefundRestoresStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Add X1 with five in stock, sell one to Jane, then refund.
	id := f.addScreen(t, "X1", 5, 100)
	order, err := f.svc.SellScreen(ctx, SellScreenRequest{
		ID: id, Price: decimal.NewFromInt(90), Customer: "Jane", Save: true,
	})
	require.NoError(t, err)

	item, err := f.screens.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 4, item.Quantity)

	require.NoError(t, f.svc.Refund(ctx, order.ID))

	item, err = f.screens.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity, "refund returns the quantity to stock")
	assert.Empty(t, f.collection(t, models.PathSaved), "the saved order is gone")
	assert.Empty(t, f.collection(t, models.Screens.CompletePath))

	doc, ok := f.lcdIdx.Document(id)
	require.True(t, ok)
	assert.Equal(t, 5, doc.Quantity, "index mirrors the restored stock")
}

func TestRefundMissingProductWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.addScreen(t, "X1", 5, 100)
	order, err := f.svc.SellScreen(ctx, SellScreenRequest{
		ID: id, Price: decimal.NewFromInt(90), Customer: "Jane", Save: true,
	})
	require.NoError(t, err)

	// The product disappears before the refund.
	require.NoError(t, f.st.Delete(ctx, models.Path(models.Screens.StorePath, id)))

	err = f.svc.Refund(ctx, order.ID)
	assert.ErrorIs(t, err, mirror.ErrNotFound)
	assert.Len(t, f.collection(t, models.PathSaved), 1, "the saved order survives a failed refund")
}
