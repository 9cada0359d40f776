// Package storage is the persistence port of the POS core. Every multi-step
// operation runs inside Store.InTx; a returned error rolls back everything
// the callback wrote.
package storage

import (
	"context"
	"time"

	"github.com/Spok95/pos-core/internal/domain/cash"
	"github.com/Spok95/pos-core/internal/domain/inventory"
	"github.com/Spok95/pos-core/internal/domain/products"
	"github.com/Spok95/pos-core/internal/domain/sales"
)

type Store interface {
	// InTx runs fn in a read-write transaction and commits if fn returns nil.
	InTx(ctx context.Context, fn func(Tx) error) error
	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(Tx) error) error
}

type Tx interface {
	CreateProduct(ctx context.Context, p products.Product) (products.Product, error)
	GetProduct(ctx context.Context, id int64) (products.Product, error)
	ListProducts(ctx context.Context, f products.Filter) ([]products.Product, error)
	SetProductActive(ctx context.Context, id int64, active bool) (products.Product, error)
	// LockProducts takes exclusive row locks held until the transaction ends.
	LockProducts(ctx context.Context, ids []int64) (map[int64]products.Product, error)
	SetProductStock(ctx context.Context, id int64, stock float64) error

	InsertMovement(ctx context.Context, m inventory.Movement) (inventory.Movement, error)
	ListMovements(ctx context.Context, f inventory.Filter) ([]inventory.Movement, error)

	NextSaleSeq(ctx context.Context, period string) (int, error)
	InsertSale(ctx context.Context, s sales.Sale) (sales.Sale, error)
	InsertSaleItem(ctx context.Context, it sales.Item) (sales.Item, error)
	GetSale(ctx context.Context, id int64, forUpdate bool) (sales.Sale, error)
	ListSales(ctx context.Context, f sales.Filter) ([]sales.Sale, error)
	MarkSaleCancelled(ctx context.Context, id int64, notes string, at time.Time) error
	// UpdateSalePayment stores the payment fields of a completed sale.
	UpdateSalePayment(ctx context.Context, s sales.Sale) error

	InsertSession(ctx context.Context, s cash.Session) (cash.Session, error)
	GetSession(ctx context.Context, id int64, forUpdate bool) (cash.Session, error)
	FindOpenSession(ctx context.Context, businessDay time.Time) (cash.Session, error)
	CloseSession(ctx context.Context, s cash.Session) error
	ListClosedSessions(ctx context.Context, from, to time.Time) ([]cash.Session, error)
	CountOpenSessions(ctx context.Context) (int, error)
}
