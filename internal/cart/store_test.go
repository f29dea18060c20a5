package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teashop/storefront/internal/domain"
	"github.com/teashop/storefront/internal/storage"
	"go.uber.org/zap"
)

// failingStorage rejects every write so storage-failure handling can be
// exercised.
type failingStorage struct {
	err error
}

func (f *failingStorage) Get(context.Context, string) ([]byte, error) {
	return nil, storage.ErrNotFound
}

func (f *failingStorage) Set(context.Context, string, []byte) error {
	return f.err
}

func (f *failingStorage) Delete(context.Context, string) error {
	return f.err
}

func newTestStore(t *testing.T) (*Store, *storage.MemoryStorage) {
	t.Helper()
	mem := storage.NewMemoryStorage()
	return NewStore("client-1", mem, DefaultPricing(), zap.NewNop()), mem
}

func greenTea() domain.Product {
	return domain.Product{
		ID:        "tea-1",
		Name:      "Dragon Well Green",
		Price:     domain.Price(14.99),
		Origin:    "Hangzhou",
		Qualities: []string{"grassy", "sweet"},
	}
}

func blackTea() domain.Product {
	return domain.Product{ID: "tea-2", Name: "Assam Black", Price: domain.Price(5.00)}
}

func TestAddItem_MergesSameProduct(t *testing.T) {
	sut, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, sut.AddItem(ctx, greenTea(), 1))
	require.NoError(t, sut.AddItem(ctx, greenTea(), 2))

	snapshot := sut.Snapshot()
	require.Len(t, snapshot.Items, 1)
	assert.Equal(t, "tea-1", snapshot.Items[0].ProductID)
	assert.Equal(t, 3, snapshot.Items[0].Quantity)
	assert.Equal(t, 3, snapshot.ItemCount)
}

func TestAddItem_NegativeDeltaRemovesLine(t *testing.T) {
	sut, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, sut.AddItem(ctx, greenTea(), 2))
	require.NoError(t, sut.AddItem(ctx, greenTea(), -2))

	assert.Empty(t, sut.Snapshot().Items)
	assert.Equal(t, StateEmpty, sut.State())
}

func TestAddItem_NegativeDeltaSkipsCreation(t *testing.T) {
	sut, _ := newTestStore(t)

	require.NoError(t, sut.AddItem(context.Background(), greenTea(), -1))

	assert.Empty(t, sut.Snapshot().Items)
}

func TestAddItem_MissingIDRejected(t *testing.T) {
	sut, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, sut.AddItem(ctx, greenTea(), 1))

	err := sut.AddItem(ctx, domain.Product{Name: "no id"}, 1)
	require.ErrorIs(t, err, ErrInvalidProduct)

	// prior state unchanged
	assert.Len(t, sut.Snapshot().Items, 1)
}

func TestAddItem_NegativePriceRejected(t *testing.T) {
	sut, _ := newTestStore(t)

	err := sut.AddItem(context.Background(), domain.Product{ID: "bad", Price: domain.Price(-1)}, 1)
	require.ErrorIs(t, err, domain.ErrInvalidPrice)
	assert.Empty(t, sut.Snapshot().Items)
}

func TestIncrementDecrement(t *testing.T) {
	sut, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, sut.Increment(ctx, greenTea(), 2))
	require.NoError(t, sut.Decrement(ctx, "tea-1", 1))
	assert.Equal(t, 1, sut.Snapshot().ItemCount)

	require.NoError(t, sut.Decrement(ctx, "tea-1", 1))
	assert.Equal(t, StateEmpty, sut.State())

	require.ErrorIs(t, sut.Increment(ctx, greenTea(), 0), ErrInvalidQuantity)
	require.ErrorIs(t, sut.Decrement(ctx, "tea-1", -1), ErrInvalidQuantity)
}

func TestSetQuantity_Idempotent(t *testing.T) {
	sut, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, sut.AddItem(ctx, greenTea(), 1))

	require.NoError(t, sut.SetQuantity(ctx, "tea-1", 3))
	first := sut.Snapshot()
	require.NoError(t, sut.SetQuantity(ctx, "tea-1", 3))
	second := sut.Snapshot()

	assert.Equal(t, first.Items, second.Items)
	assert.Equal(t, first.Total, second.Total)
}

func TestSetQuantity_ZeroRemoves(t *testing.T) {
	sut, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, sut.AddItem(ctx, greenTea(), 2))

	require.NoError(t, sut.SetQuantity(ctx, "tea-1", 0))
	assert.Equal(t, StateEmpty, sut.State())
}

func TestSetQuantity_AbsentIsNoop(t *testing.T) {
	sut, _ := newTestStore(t)

	require.NoError(t, sut.SetQuantity(context.Background(), "missing", 5))
	assert.Empty(t, sut.Snapshot().Items)
}

func TestRemoveItem_AbsentIsNoop(t *testing.T) {
	sut, _ := newTestStore(t)

	require.NoError(t, sut.RemoveItem(context.Background(), "missing"))
}

func TestSnapshot_DerivedTotals(t *testing.T) {
	sut, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, sut.AddItem(ctx, greenTea(), 2)) // 14.99 x 2
	require.NoError(t, sut.AddItem(ctx, blackTea(), 1)) // 5.00 x 1

	snapshot := sut.Snapshot()
	assert.Equal(t, 3, snapshot.ItemCount)
	assert.InDelta(t, 34.98, snapshot.Subtotal, 1e-9)
	assert.InDelta(t, 10.00, snapshot.Shipping, 1e-9)
	assert.InDelta(t, 5.25, snapshot.Tax, 1e-9) // 34.98 * 0.15 = 5.247
	assert.InDelta(t, 50.23, snapshot.Total, 1e-9)
}

func TestSnapshot_FreeShippingAboveThreshold(t *testing.T) {
	sut, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, sut.AddItem(ctx, domain.Product{ID: "tea-3", Name: "Aged Puerh", Price: domain.Price(60)}, 2))

	snapshot := sut.Snapshot()
	assert.InDelta(t, 120.00, snapshot.Subtotal, 1e-9)
	assert.Zero(t, snapshot.Shipping)
}

func TestSnapshot_FeeAppliesAtExactThreshold(t *testing.T) {
	sut, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, sut.AddItem(ctx, domain.Product{ID: "tea-3", Name: "Aged Puerh", Price: domain.Price(50)}, 2))

	snapshot := sut.Snapshot()
	assert.InDelta(t, 100.00, snapshot.Subtotal, 1e-9)
	assert.InDelta(t, 10.00, snapshot.Shipping, 1e-9)
}

func TestAddItem_StringPriceNormalization(t *testing.T) {
	var fromString domain.Product
	require.NoError(t, json.Unmarshal([]byte(`{"id":"tea-1","name":"Dragon Well Green","price":"$14.99"}`), &fromString))

	numeric, _ := newTestStore(t)
	require.NoError(t, numeric.AddItem(context.Background(), greenTea(), 1))

	parsed := NewStore("client-2", storage.NewMemoryStorage(), DefaultPricing(), zap.NewNop())
	require.NoError(t, parsed.AddItem(context.Background(), fromString, 1))

	assert.Equal(t, numeric.Snapshot().Subtotal, parsed.Snapshot().Subtotal)
}

func TestClear_ResetsFully(t *testing.T) {
	sut, mem := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, sut.AddItem(ctx, greenTea(), 2))

	require.NoError(t, sut.Clear(ctx))

	snapshot := sut.Snapshot()
	assert.Empty(t, snapshot.Items)
	assert.Zero(t, snapshot.ItemCount)
	assert.Zero(t, snapshot.Subtotal)
	assert.Zero(t, snapshot.Shipping)
	assert.Zero(t, snapshot.Tax)
	assert.Zero(t, snapshot.Total)

	_, err := mem.Get(ctx, "cart:client-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPersistence_SurvivesReload(t *testing.T) {
	sut, mem := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, sut.AddItem(ctx, greenTea(), 2))
	require.NoError(t, sut.SaveShippingAddress(ctx, domain.ShippingAddress{
		FullName: "A Tester", Address: "1 Leaf Rd", City: "Portland", PostalCode: "97201", Country: "US",
	}))
	require.NoError(t, sut.SavePaymentMethod(ctx, domain.PaymentCard))

	reloaded := NewStore("client-1", mem, DefaultPricing(), zap.NewNop())
	require.NoError(t, reloaded.Load(ctx))

	snapshot := reloaded.Snapshot()
	require.Len(t, snapshot.Items, 1)
	assert.Equal(t, 2, snapshot.Items[0].Quantity)
	assert.InDelta(t, 14.99, snapshot.Items[0].UnitPrice, 1e-9)

	address, ok := reloaded.ShippingAddress()
	require.True(t, ok)
	assert.Equal(t, "Portland", address.City)
	assert.Equal(t, domain.PaymentCard, reloaded.PaymentMethod())
}

func TestStorageFailure_MutationStillApplies(t *testing.T) {
	failing := &failingStorage{err: fmt.Errorf("quota exceeded")}
	sut := NewStore("client-1", failing, DefaultPricing(), zap.NewNop())

	err := sut.AddItem(context.Background(), greenTea(), 1)

	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "set", storageErr.Op)
	require.ErrorContains(t, err, "quota exceeded")

	// cart remains usable for the current session
	assert.Len(t, sut.Snapshot().Items, 1)
	assert.True(t, sut.Checkoutable())
}

func TestStorageFailure_ClearStillEmpties(t *testing.T) {
	failing := &failingStorage{err: errors.New("storage down")}
	sut := NewStore("client-1", failing, DefaultPricing(), zap.NewNop())
	_ = sut.AddItem(context.Background(), greenTea(), 1)

	err := sut.Clear(context.Background())

	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, StateEmpty, sut.State())
}

func TestCheckoutable_EmptyCart(t *testing.T) {
	sut, _ := newTestStore(t)
	assert.False(t, sut.Checkoutable())

	require.NoError(t, sut.AddItem(context.Background(), greenTea(), 1))
	assert.True(t, sut.Checkoutable())
}
