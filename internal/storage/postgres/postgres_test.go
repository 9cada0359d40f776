package postgres

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/pos-core/internal/apperr"
	"github.com/Spok95/pos-core/internal/catalog"
	"github.com/Spok95/pos-core/internal/checkout"
	"github.com/Spok95/pos-core/internal/domain/cash"
	"github.com/Spok95/pos-core/internal/domain/inventory"
	"github.com/Spok95/pos-core/internal/domain/sales"
	"github.com/Spok95/pos-core/internal/infra/db"
	"github.com/Spok95/pos-core/internal/infra/logger"
	"github.com/Spok95/pos-core/internal/ledger"
	"github.com/Spok95/pos-core/internal/storage"
	"github.com/Spok95/pos-core/internal/till"
	"github.com/Spok95/pos-core/migrations"
)

// newStore needs a disposable database in POS_TEST_DSN; its tables are
// truncated.
func newStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("POS_TEST_DSN")
	if dsn == "" {
		t.Skip("POS_TEST_DSN not set")
	}
	require.NoError(t, migrations.Up(dsn))

	ctx := context.Background()
	pool, err := db.Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE sale_items, stock_movements, sales, cash_sessions, products RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return New(pool)
}

func TestPostgresSaleFlow(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	log := logger.NewWithWriter("test", io.Discard)
	cat := catalog.New(store, log)
	co := checkout.New(store, log, checkout.Options{Location: time.UTC})

	p, err := cat.Create(ctx, catalog.NewProduct{Code: "P", Name: "Widget", RetailPrice: 100, TaxRate: 16, InitialStock: 10}, 1)
	require.NoError(t, err)

	_, err = cat.Create(ctx, catalog.NewProduct{Code: "p", Name: "Again"}, 1)
	require.ErrorIs(t, err, apperr.ErrDuplicateProduct)

	sale, err := co.CreateSale(ctx, checkout.Cart{
		Items:      []checkout.CartItem{{ProductID: p.ID, Qty: 3}},
		Payment:    checkout.Payment{Method: sales.MethodCash},
		OperatorID: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 348.0, sale.Total)

	_, err = co.CreateSale(ctx, checkout.Cart{
		Items:      []checkout.CartItem{{ProductID: p.ID, Qty: 8}},
		Payment:    checkout.Payment{Method: sales.MethodCash},
		OperatorID: 1,
	})
	require.ErrorIs(t, err, apperr.ErrInsufficientStock)

	_, err = co.CancelSale(ctx, sale.ID, "customer return", 1)
	require.NoError(t, err)
	_, err = co.CancelSale(ctx, sale.ID, "again", 1)
	require.ErrorIs(t, err, apperr.ErrAlreadyCancelled)

	a, err := ledger.New(store, log).Audit(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, a.Consistent)
	assert.Equal(t, 10.0, a.Cached)
}

func TestPostgresConcurrentLastUnit(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	log := logger.NewWithWriter("test", io.Discard)
	co := checkout.New(store, log, checkout.Options{Location: time.UTC})

	p, err := catalog.New(store, log).Create(ctx, catalog.NewProduct{Code: "LAST", Name: "Last", RetailPrice: 1, InitialStock: 1}, 1)
	require.NoError(t, err)

	const buyers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ok   int
		errs []error
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := co.CreateSale(ctx, checkout.Cart{
				Items:      []checkout.CartItem{{ProductID: p.ID, Qty: 1}},
				Payment:    checkout.Payment{Method: sales.MethodCash},
				OperatorID: 1,
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
				return
			}
			errs = append(errs, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	for _, err := range errs {
		assert.True(t, errors.Is(err, apperr.ErrInsufficientStock), "unexpected error: %v", err)
	}

	var stock float64
	require.NoError(t, store.View(ctx, func(tx storage.Tx) error {
		got, err := tx.GetProduct(ctx, p.ID)
		stock = got.Stock
		return err
	}))
	assert.Equal(t, 0.0, stock)
}

func TestPostgresSingleOpenSession(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	insert := func() error {
		return store.InTx(ctx, func(tx storage.Tx) error {
			_, err := tx.InsertSession(ctx, cash.Session{OperatorID: 1, BusinessDay: day, OpenedAt: time.Now()})
			return err
		})
	}
	require.NoError(t, insert())
	require.ErrorIs(t, insert(), apperr.ErrSessionAlreadyOpen)

	require.NoError(t, store.View(ctx, func(tx storage.Tx) error {
		n, err := tx.CountOpenSessions(ctx)
		assert.Equal(t, 1, n)
		return err
	}))

	tl := till.New(store, logger.NewWithWriter("test", io.Discard), till.Options{Location: time.UTC})
	sess, err := tl.Open(ctx, 1, 50, "")
	if errors.Is(err, apperr.ErrSessionAlreadyOpen) {
		return // the wall clock business day is the seeded one
	}
	require.NoError(t, err)
	closed, err := tl.Close(ctx, sess.ID, 50, "")
	require.NoError(t, err)
	v, ok := closed.Variance()
	require.True(t, ok)
	assert.Equal(t, 0.0, v)
}

func TestPostgresPaymentsAndBatch(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	log := logger.NewWithWriter("test", io.Discard)
	cat := catalog.New(store, log)
	led := ledger.New(store, log)
	co := checkout.New(store, log, checkout.Options{Location: time.UTC})

	p, err := cat.Create(ctx, catalog.NewProduct{Code: "BULK", Name: "Rice", RetailPrice: 10, InitialStock: 0.3}, 1)
	require.NoError(t, err)
	q, err := cat.Create(ctx, catalog.NewProduct{Code: "Q", Name: "Beans", RetailPrice: 10, InitialStock: 5}, 1)
	require.NoError(t, err)

	sale, err := co.CreateSale(ctx, checkout.Cart{
		Items:      []checkout.CartItem{{ProductID: p.ID, Qty: 0.1}, {ProductID: p.ID, Qty: 0.2}},
		Payment:    checkout.Payment{Method: sales.MethodCredit},
		OperatorID: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, sales.PaymentPending, sale.PaymentStatus)

	paid, err := co.AddPayment(ctx, sale.ID, 3, sales.MethodCash)
	require.NoError(t, err)
	assert.Equal(t, sales.PaymentPaid, paid.PaymentStatus)
	got, err := co.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.0, got.PaidAmount)
	assert.Equal(t, sales.MethodCash, got.PaymentMethod)

	batch, err := led.RecordBatch(ctx, []ledger.Request{
		{ProductID: q.ID, Type: inventory.MoveAdjustment, Qty: 4.25, Reason: inventory.ReasonAdjustment, OperatorID: 1},
		{ProductID: p.ID, Type: inventory.MoveAdjustment, Qty: 1, Reason: inventory.ReasonAdjustment, OperatorID: 1},
	})
	require.NoError(t, err)
	require.Len(t, batch.Applied, 2)
	assert.Equal(t, 4.25, batch.Applied[0].Stock)

	a, err := led.Audit(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, a.Consistent)
	assert.Equal(t, 1.0, a.Cached)
}
