// Package postgres implements storage.Store on a pgx pool. Row locks are
// SELECT ... FOR UPDATE inside READ COMMITTED transactions.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/pos-core/internal/domain/cash"
	"github.com/Spok95/pos-core/internal/domain/inventory"
	"github.com/Spok95/pos-core/internal/domain/products"
	"github.com/Spok95/pos-core/internal/domain/sales"
	"github.com/Spok95/pos-core/internal/storage"
)

type Store struct{ pool *pgxpool.Pool }

func New(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

func (s *Store) InTx(ctx context.Context, fn func(storage.Tx) error) error {
	return s.run(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

func (s *Store) View(ctx context.Context, fn func(storage.Tx) error) error {
	return s.run(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, fn)
}

func (s *Store) run(ctx context.Context, opts pgx.TxOptions, fn func(storage.Tx) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, opts, func(tx pgx.Tx) error {
		return fn(newTx(tx))
	})
}

type txn struct {
	products  *products.Repo
	movements *inventory.Repo
	sales     *sales.Repo
	sessions  *cash.Repo
}

func newTx(tx pgx.Tx) *txn {
	return &txn{
		products:  products.NewRepo(tx),
		movements: inventory.NewRepo(tx),
		sales:     sales.NewRepo(tx),
		sessions:  cash.NewRepo(tx),
	}
}

func (t *txn) CreateProduct(ctx context.Context, p products.Product) (products.Product, error) {
	return t.products.Create(ctx, p)
}

func (t *txn) GetProduct(ctx context.Context, id int64) (products.Product, error) {
	return t.products.GetByID(ctx, id)
}

func (t *txn) ListProducts(ctx context.Context, f products.Filter) ([]products.Product, error) {
	return t.products.List(ctx, f)
}

func (t *txn) SetProductActive(ctx context.Context, id int64, active bool) (products.Product, error) {
	return t.products.SetActive(ctx, id, active)
}

func (t *txn) LockProducts(ctx context.Context, ids []int64) (map[int64]products.Product, error) {
	return t.products.LockForUpdate(ctx, ids)
}

func (t *txn) SetProductStock(ctx context.Context, id int64, stock float64) error {
	return t.products.SetStock(ctx, id, stock)
}

func (t *txn) InsertMovement(ctx context.Context, m inventory.Movement) (inventory.Movement, error) {
	return t.movements.Insert(ctx, m)
}

func (t *txn) ListMovements(ctx context.Context, f inventory.Filter) ([]inventory.Movement, error) {
	return t.movements.List(ctx, f)
}

func (t *txn) NextSaleSeq(ctx context.Context, period string) (int, error) {
	return t.sales.NextSeq(ctx, period)
}

func (t *txn) InsertSale(ctx context.Context, s sales.Sale) (sales.Sale, error) {
	return t.sales.Insert(ctx, s)
}

func (t *txn) InsertSaleItem(ctx context.Context, it sales.Item) (sales.Item, error) {
	return t.sales.InsertItem(ctx, it)
}

func (t *txn) GetSale(ctx context.Context, id int64, forUpdate bool) (sales.Sale, error) {
	return t.sales.Get(ctx, id, forUpdate)
}

func (t *txn) ListSales(ctx context.Context, f sales.Filter) ([]sales.Sale, error) {
	return t.sales.List(ctx, f)
}

func (t *txn) MarkSaleCancelled(ctx context.Context, id int64, notes string, at time.Time) error {
	return t.sales.MarkCancelled(ctx, id, notes, at)
}

func (t *txn) UpdateSalePayment(ctx context.Context, s sales.Sale) error {
	return t.sales.UpdatePayment(ctx, s)
}

func (t *txn) InsertSession(ctx context.Context, s cash.Session) (cash.Session, error) {
	return t.sessions.Insert(ctx, s)
}

func (t *txn) GetSession(ctx context.Context, id int64, forUpdate bool) (cash.Session, error) {
	return t.sessions.Get(ctx, id, forUpdate)
}

func (t *txn) FindOpenSession(ctx context.Context, businessDay time.Time) (cash.Session, error) {
	return t.sessions.FindOpen(ctx, businessDay)
}

func (t *txn) CloseSession(ctx context.Context, s cash.Session) error {
	return t.sessions.Close(ctx, s)
}

func (t *txn) ListClosedSessions(ctx context.Context, from, to time.Time) ([]cash.Session, error) {
	return t.sessions.ListClosed(ctx, from, to)
}

func (t *txn) CountOpenSessions(ctx context.Context) (int, error) {
	return t.sessions.CountOpen(ctx)
}

var _ storage.Store = (*Store)(nil)
