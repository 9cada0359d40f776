package catalog

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/pos-core/internal/apperr"
	"github.com/Spok95/pos-core/internal/domain/inventory"
	"github.com/Spok95/pos-core/internal/domain/products"
	"github.com/Spok95/pos-core/internal/infra/logger"
	"github.com/Spok95/pos-core/internal/ledger"
	"github.com/Spok95/pos-core/internal/storage/memory"
)

func TestCreate(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	log := logger.NewWithWriter("test", io.Discard)
	svc := New(store, log)

	p, err := svc.Create(ctx, NewProduct{
		Code: " cof-01 ", Barcode: "7591234", Name: "Coffee 500g",
		Cost: 3, RetailPrice: 5, WholesalePrice: 4.2, TaxRate: 16, InitialStock: 12, MinStock: 3,
	}, 7)
	require.NoError(t, err)
	assert.Equal(t, "COF-01", p.Code)
	require.NotNil(t, p.Barcode)
	assert.Equal(t, "7591234", *p.Barcode)
	assert.Equal(t, 12.0, p.Stock)
	assert.True(t, p.Active)

	ms, err := ledger.New(store, log).Movements(ctx, inventory.Filter{ProductID: p.ID})
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, inventory.ReasonInitialStock, ms[0].Reason)
	assert.Equal(t, int64(7), ms[0].OperatorID)

	bare, err := svc.Create(ctx, NewProduct{Code: "BAG", Name: "Bag"}, 1)
	require.NoError(t, err)
	assert.Nil(t, bare.Barcode)
	assert.Zero(t, bare.Stock)

	_, err = svc.Create(ctx, NewProduct{Code: "cof-01", Name: "Duplicate"}, 1)
	assert.ErrorIs(t, err, apperr.ErrDuplicateProduct)
	_, err = svc.Create(ctx, NewProduct{Code: "X", Barcode: "7591234", Name: "Same barcode"}, 1)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestCreateValidation(t *testing.T) {
	svc := New(memory.New(), logger.NewWithWriter("test", io.Discard))

	for name, n := range map[string]NewProduct{
		"no code":        {Name: "A"},
		"no name":        {Code: "A"},
		"negative price": {Code: "A", Name: "A", RetailPrice: -1},
		"tax over 100":   {Code: "A", Name: "A", TaxRate: 101},
		"negative stock": {Code: "A", Name: "A", InitialStock: -1},
		"min above max":  {Code: "A", Name: "A", MinStock: 10, MaxStock: 5},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), n, 1)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestListAndDeactivate(t *testing.T) {
	ctx := context.Background()
	svc := New(memory.New(), logger.NewWithWriter("test", io.Discard))

	tea, err := svc.Create(ctx, NewProduct{Code: "TEA", Name: "Tea", InitialStock: 1, MinStock: 2}, 1)
	require.NoError(t, err)
	_, err = svc.Create(ctx, NewProduct{Code: "SUGAR", Name: "Sugar", InitialStock: 50, MinStock: 2}, 1)
	require.NoError(t, err)

	low, err := svc.List(ctx, products.Filter{OnlyLow: true})
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, tea.ID, low[0].ID)

	found, err := svc.List(ctx, products.Filter{Search: "sug"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "SUGAR", found[0].Code)

	off, err := svc.Deactivate(ctx, tea.ID)
	require.NoError(t, err)
	assert.False(t, off.Active)

	active, err := svc.List(ctx, products.Filter{OnlyActive: true})
	require.NoError(t, err)
	assert.Len(t, active, 1)

	_, err = svc.Get(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrProductNotFound)
	_, err = svc.Deactivate(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
