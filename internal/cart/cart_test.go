package cart_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"StoreFront/internal/backend"
	"StoreFront/internal/cart"
)

type fakeBackend struct {
	items []backend.CartItem
	err   error
}

func (f *fakeBackend) GetCart(context.Context, string, string) ([]backend.CartItem, error) {
	return f.items, f.err
}

func TestLoad_DerivesSubtotalAndCount(t *testing.T) {
	b := &fakeBackend{items: []backend.CartItem{
		{ProductID: "p1", Title: "Tea", UnitPrice: 500, Quantity: 1},
		{ProductID: "p2", Title: "Mugs", UnitPrice: 300, Quantity: 2},
	}}
	counts := cart.NewMemCountStore()
	l := cart.NewLoader(b, counts, zap.NewNop())

	snap, err := l.Load(context.Background(), "sess", "cust")
	require.NoError(t, err)
	require.EqualValues(t, 1100, snap.Subtotal)
	require.Equal(t, 3, snap.Count)
	require.Len(t, snap.Items, 2)

	n, ok := l.CachedCount(context.Background(), "cust")
	require.True(t, ok, "count mirror persisted")
	require.Equal(t, 3, n)
}

func TestLoad_RejectsBadLines(t *testing.T) {
	b := &fakeBackend{items: []backend.CartItem{
		{ProductID: "p1", UnitPrice: 500, Quantity: 0},
	}}
	l := cart.NewLoader(b, cart.NewMemCountStore(), zap.NewNop())

	_, err := l.Load(context.Background(), "sess", "cust")
	require.ErrorIs(t, err, cart.ErrBadLine)
}

func TestCachedCount_UnknownCustomer(t *testing.T) {
	l := cart.NewLoader(&fakeBackend{}, cart.NewMemCountStore(), zap.NewNop())

	_, ok := l.CachedCount(context.Background(), "nobody")
	require.False(t, ok)
}
