package engine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/AlwanWZ/shophub/internal/domain"
	apperrors "github.com/AlwanWZ/shophub/pkg/errors"
)

// ============================================================================
// Test doubles
// ============================================================================

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Load(ctx context.Context) (*domain.Cart, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockStore) Save(ctx context.Context, cart *domain.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

// memoryStore keeps the JSON snapshot the way a real backend would, so tests
// exercise the encoding as well.
type memoryStore struct {
	data  []byte
	saves int
}

func (s *memoryStore) Load(_ context.Context) (*domain.Cart, error) {
	if s.data == nil {
		return nil, apperrors.NotFound("cart", "test")
	}
	var c domain.Cart
	if err := json.Unmarshal(s.data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *memoryStore) Save(_ context.Context, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	s.data = data
	s.saves++
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCatalog() *domain.Catalog {
	return domain.NewCatalog([]domain.Product{
		{ID: 1, Title: "Product A", Price: decimal.RequireFromString("10.00"), Stock: 3},
		{ID: 2, Title: "Product B", Price: decimal.RequireFromString("22.30"), Stock: 20},
		{ID: 3, Title: "Sold Out", Price: decimal.RequireFromString("5.00"), Stock: 0},
	})
}

func newTestEngine() (*Engine, *memoryStore) {
	store := &memoryStore{}
	return New(testCatalog(), store, testLogger()), store
}

// ============================================================================
// AddOne
// ============================================================================

func TestAddOne_CreatesLineAtEnd(t *testing.T) {
	e, store := newTestEngine()
	ctx := context.Background()

	_, err := e.AddOne(ctx, 2)
	require.NoError(t, err)
	line, err := e.AddOne(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, line.ProductID)
	assert.Equal(t, 1, line.Quantity)
	assert.Equal(t, "Product A", line.Title)

	cart := e.Cart()
	require.Len(t, cart.Lines, 2)
	assert.Equal(t, 2, cart.Lines[0].ProductID)
	assert.Equal(t, 1, cart.Lines[1].ProductID)
	assert.Equal(t, 2, store.saves)
}

func TestAddOne_UpToQuotaThenStockExceeded(t *testing.T) {
	e, store := newTestEngine()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		line, err := e.AddOne(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, i, line.Quantity)
	}

	_, err := e.AddOne(ctx, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStockExceeded)

	var cerr *domain.CartError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 3, cerr.Quota)

	assert.Equal(t, 3, e.Quantity(1))
	assert.Equal(t, 3, store.saves, "failed add must not persist")
}

func TestAddOne_UnknownProduct(t *testing.T) {
	e, store := newTestEngine()

	_, err := e.AddOne(context.Background(), 99)

	assert.ErrorIs(t, err, domain.ErrUnknownProduct)
	assert.True(t, e.Cart().IsEmpty())
	assert.Equal(t, 0, store.saves)
}

func TestAddOne_ZeroStockProduct(t *testing.T) {
	e, _ := newTestEngine()

	_, err := e.AddOne(context.Background(), 3)

	assert.ErrorIs(t, err, domain.ErrStockExceeded)
	assert.Equal(t, 0, e.Quantity(3))
}

func TestAddOne_PersistFailureIsSwallowed(t *testing.T) {
	store := new(mockStore)
	e := New(testCatalog(), store, testLogger())
	ctx := context.Background()

	store.On("Save", ctx, mock.AnythingOfType("*domain.Cart")).Return(errors.New("redis down"))

	line, err := e.AddOne(ctx, 1)

	require.NoError(t, err)
	assert.Equal(t, 1, line.Quantity)
	assert.Equal(t, 1, e.Quantity(1))
	store.AssertExpectations(t)
}

// ============================================================================
// SetQuantity
// ============================================================================

func TestSetQuantity_WithinRange(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()
	_, _ = e.AddOne(ctx, 2)

	res, err := e.SetQuantity(ctx, 2, 7)

	require.NoError(t, err)
	assert.Equal(t, 7, res.Line.Quantity)
	assert.Empty(t, res.Notices)
	assert.Equal(t, 7, e.Quantity(2))
}

func TestSetQuantity_ZeroClampsToOneWithBelowMinimum(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()
	_, _ = e.AddOne(ctx, 1)
	_, _ = e.AddOne(ctx, 1)

	res, err := e.SetQuantity(ctx, 1, 0)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Line.Quantity)
	require.Len(t, res.Notices, 1)
	assert.ErrorIs(t, res.Notices[0], domain.ErrBelowMinimum)
}

func TestSetQuantity_AboveQuotaClampsWithStockExceeded(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()
	_, _ = e.AddOne(ctx, 1)

	res, err := e.SetQuantity(ctx, 1, 3+5)

	require.NoError(t, err)
	assert.Equal(t, 3, res.Line.Quantity)
	require.Len(t, res.Notices, 1)
	assert.ErrorIs(t, res.Notices[0], domain.ErrStockExceeded)
	assert.Equal(t, 3, res.Notices[0].Quota)
}

func TestSetQuantity_NoLineIsUnknownProduct(t *testing.T) {
	e, store := newTestEngine()

	_, err := e.SetQuantity(context.Background(), 2, 4)

	assert.ErrorIs(t, err, domain.ErrUnknownProduct)
	assert.Equal(t, 0, store.saves)
}

func TestSetQuantity_LineWithoutProductIsUnknownProduct(t *testing.T) {
	store := &memoryStore{}
	require.NoError(t, store.Save(context.Background(), &domain.Cart{
		Lines: []domain.CartLine{{ProductID: 50, Quantity: 2, Price: decimal.NewFromInt(1)}},
	}))
	e := Restore(context.Background(), testCatalog(), store, testLogger())

	_, err := e.SetQuantity(context.Background(), 50, 1)

	assert.ErrorIs(t, err, domain.ErrUnknownProduct)
	assert.Equal(t, 2, e.Quantity(50))
}

// ============================================================================
// Remove
// ============================================================================

func TestRemove_DeletesLine(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()
	_, _ = e.AddOne(ctx, 1)
	_, _ = e.AddOne(ctx, 2)

	e.Remove(ctx, 1)

	cart := e.Cart()
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2, cart.Lines[0].ProductID)
	assert.Equal(t, 0, e.Quantity(1))
}

func TestRemove_AbsentLineIsNoOp(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()
	_, _ = e.AddOne(ctx, 2)

	assert.NotPanics(t, func() {
		e.Remove(ctx, 1)
		e.Remove(ctx, 404)
	})
	assert.Equal(t, 1, e.Quantity(2))
}

// ============================================================================
// Queries
// ============================================================================

func TestAvailableStock(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()

	assert.Equal(t, 3, e.AvailableStock(1))
	_, _ = e.AddOne(ctx, 1)
	_, _ = e.AddOne(ctx, 1)
	assert.Equal(t, 1, e.AvailableStock(1))
	assert.Equal(t, 0, e.AvailableStock(3))
	assert.Equal(t, 0, e.AvailableStock(404))
}

func TestIsOutOfStock_IgnoresCartContents(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _ = e.AddOne(ctx, 1)
	}

	assert.False(t, e.IsOutOfStock(1), "fully consumed stock is not out of stock")
	assert.True(t, e.IsOutOfStock(3))
	assert.True(t, e.IsOutOfStock(404))
}

func TestCart_ReturnsCopy(t *testing.T) {
	e, _ := newTestEngine()
	_, _ = e.AddOne(context.Background(), 1)

	c := e.Cart()
	c.Lines[0].Quantity = 99

	assert.Equal(t, 1, e.Quantity(1))
}

// ============================================================================
// Invariants
// ============================================================================

func TestQuantityNeverExceedsQuota(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()
	catalog := e.Catalog()

	ops := []func(){
		func() { _, _ = e.AddOne(ctx, 1) },
		func() { _, _ = e.SetQuantity(ctx, 1, 100) },
		func() { _, _ = e.AddOne(ctx, 1) },
		func() { _, _ = e.AddOne(ctx, 2) },
		func() { _, _ = e.SetQuantity(ctx, 2, -4) },
		func() { e.Remove(ctx, 1) },
		func() { _, _ = e.AddOne(ctx, 3) },
		func() { _, _ = e.SetQuantity(ctx, 2, 21) },
		func() { _, _ = e.AddOne(ctx, 2) },
	}

	for i, op := range ops {
		op()
		for _, p := range catalog.Products() {
			q := e.Quantity(p.ID)
			assert.GreaterOrEqual(t, q, 0, "step %d product %d", i, p.ID)
			assert.LessOrEqual(t, q, p.Stock, "step %d product %d", i, p.ID)
		}
		for _, l := range e.Cart().Lines {
			assert.GreaterOrEqual(t, l.Quantity, 1, "step %d: zero-quantity line left behind", i)
		}
	}
}

func TestSubtotalMatchesLines(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()
	_, _ = e.AddOne(ctx, 1)
	_, _ = e.AddOne(ctx, 2)
	_, _ = e.SetQuantity(ctx, 2, 3)

	// 10.00 + 3 * 22.30
	assert.Equal(t, "76.90", e.Subtotal().StringFixed(2))
	assert.Equal(t, 4, e.ItemCount())
	assert.Equal(t, "7.69", e.Tax().StringFixed(2))
	assert.Equal(t, "84.59", e.Total().StringFixed(2))
}

// ============================================================================
// Scenario
// ============================================================================

func TestScenario_ProductA(t *testing.T) {
	e, store := newTestEngine()
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		line, err := e.AddOne(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, want, line.Quantity)
		assert.Equal(t, decimal.NewFromInt(int64(10*want)).StringFixed(2), e.Subtotal().StringFixed(2))
	}

	_, err := e.AddOne(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrStockExceeded)
	assert.Equal(t, 3, e.Quantity(1))

	res, err := e.SetQuantity(ctx, 1, 1)
	require.NoError(t, err)
	assert.Empty(t, res.Notices)
	assert.Equal(t, 1, res.Line.Quantity)
	assert.Equal(t, "10.00", e.Subtotal().StringFixed(2))
	assert.Equal(t, "11.00", e.Total().StringFixed(2))

	e.Remove(ctx, 1)
	assert.True(t, e.Cart().IsEmpty())
	assert.Equal(t, "0.00", e.Subtotal().StringFixed(2))

	assert.JSONEq(t, `[]`, string(store.data))
}

// ============================================================================
// Restore
// ============================================================================

func TestRestore_RoundTrip(t *testing.T) {
	e, store := newTestEngine()
	ctx := context.Background()
	_, _ = e.AddOne(ctx, 2)
	_, _ = e.AddOne(ctx, 1)
	_, _ = e.AddOne(ctx, 2)

	restored := Restore(ctx, testCatalog(), store, testLogger())

	want, got := e.Cart().Lines, restored.Cart().Lines
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ProductID, got[i].ProductID)
		assert.Equal(t, want[i].Quantity, got[i].Quantity)
		assert.True(t, want[i].Price.Equal(got[i].Price))
	}
}

func TestRestore_MissingSnapshotIsEmpty(t *testing.T) {
	store := new(mockStore)
	ctx := context.Background()
	store.On("Load", ctx).Return(nil, apperrors.NotFound("cart", "s-1"))

	e := Restore(ctx, testCatalog(), store, testLogger())

	assert.True(t, e.Cart().IsEmpty())
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestRestore_MalformedSnapshotIsEmpty(t *testing.T) {
	store := &memoryStore{data: []byte(`{{garbage`)}

	e := Restore(context.Background(), testCatalog(), store, testLogger())

	assert.True(t, e.Cart().IsEmpty())
	assert.Equal(t, 0, store.saves)
}

func TestRestore_ReconcilesAgainstNewQuotas(t *testing.T) {
	store := &memoryStore{}
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, &domain.Cart{Lines: []domain.CartLine{
		{ProductID: 1, Quantity: 9, Price: decimal.NewFromInt(10)},
		{ProductID: 3, Quantity: 2, Price: decimal.NewFromInt(5)},
		{ProductID: 77, Quantity: 4, Price: decimal.NewFromInt(1)},
		{ProductID: 2, Quantity: 5, Price: decimal.NewFromInt(1)},
	}}))
	store.saves = 0

	e := Restore(ctx, testCatalog(), store, testLogger())

	lines := e.Cart().Lines
	require.Len(t, lines, 3)
	assert.Equal(t, 1, lines[0].ProductID)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.Equal(t, 77, lines[1].ProductID)
	assert.Equal(t, 4, lines[1].Quantity)
	assert.Equal(t, 2, lines[2].ProductID)
	assert.Equal(t, 5, lines[2].Quantity)
	assert.Equal(t, 1, store.saves, "reconciled cart is persisted once")
	assert.Equal(t, 0, e.AvailableStock(1))
}

func TestRestore_UnchangedCartIsNotRewritten(t *testing.T) {
	store := &memoryStore{}
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, &domain.Cart{Lines: []domain.CartLine{
		{ProductID: 2, Quantity: 5, Price: decimal.NewFromInt(1)},
	}}))
	store.saves = 0

	e := Restore(ctx, testCatalog(), store, testLogger())

	assert.Equal(t, 5, e.Quantity(2))
	assert.Equal(t, 0, store.saves)
}
