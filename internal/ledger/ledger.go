// Package ledger is the only writer of product stock. Every change is a
// movement appended to the log together with the new cached stock value.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Spok95/pos-core/internal/apperr"
	"github.com/Spok95/pos-core/internal/domain/inventory"
	"github.com/Spok95/pos-core/internal/domain/products"
	"github.com/Spok95/pos-core/internal/infra/metrics"
	"github.com/Spok95/pos-core/internal/storage"
)

type Request struct {
	ProductID  int64
	Type       inventory.MoveType
	Qty        float64 // magnitude; counted level for adjustments
	Reason     inventory.Reason
	SaleID     *int64
	OperatorID int64
	Note       string
}

type Result struct {
	Movement inventory.Movement `json:"movement"`
	Stock    float64            `json:"stock"`
}

type Ledger struct {
	store storage.Store
	log   *slog.Logger
}

func New(store storage.Store, log *slog.Logger) *Ledger {
	return &Ledger{store: store, log: log}
}

func validate(req Request) error {
	if req.ProductID <= 0 {
		return apperr.Invalid("product id must be > 0")
	}
	if !req.Type.Valid() {
		return apperr.Invalid("unknown movement type %q", req.Type)
	}
	if !req.Reason.Valid() {
		return apperr.Invalid("unknown movement reason %q", req.Reason)
	}
	if req.Type == inventory.MoveAdjustment {
		if req.Qty < 0 {
			return apperr.Invalid("counted stock must be >= 0")
		}
	} else if req.Qty <= 0 {
		return apperr.Invalid("quantity must be > 0")
	}
	if !inventory.ExactQty(req.Qty) {
		return apperr.Invalid("quantity %g has more than %d decimals", req.Qty, inventory.QtyPlaces)
	}
	return nil
}

// Apply locks the product inside tx, computes the new stock and writes the
// product row and one movement. On error nothing has been written by Apply.
func Apply(ctx context.Context, tx storage.Tx, req Request) (Result, error) {
	if err := validate(req); err != nil {
		return Result{}, err
	}
	locked, err := tx.LockProducts(ctx, []int64{req.ProductID})
	if err != nil {
		return Result{}, err
	}
	p := locked[req.ProductID]
	return apply(ctx, tx, p, req)
}

func apply(ctx context.Context, tx storage.Tx, p products.Product, req Request) (Result, error) {
	next, err := inventory.NextStock(p.Stock, req.Type, req.Qty)
	if err != nil {
		return Result{}, apperr.Invalid("%v", err)
	}
	if next < 0 {
		return Result{}, &apperr.InsufficientStockError{ProductID: p.ID, Available: p.Stock, Requested: req.Qty}
	}

	qty := req.Qty
	if req.Type == inventory.MoveAdjustment {
		diff := inventory.Qty(next).Sub(inventory.Qty(p.Stock)).Abs()
		if diff.IsZero() {
			return Result{}, apperr.Invalid("adjustment does not change stock of product %d", p.ID)
		}
		qty = inventory.StoredQty(diff)
	}
	totalCost := decimal.NewFromFloat(p.Cost).Mul(inventory.Qty(qty)).Round(2).InexactFloat64()

	if err := tx.SetProductStock(ctx, p.ID, next); err != nil {
		return Result{}, fmt.Errorf("set stock: %w", err)
	}
	m, err := tx.InsertMovement(ctx, inventory.Movement{
		ProductID:     p.ID,
		OperatorID:    req.OperatorID,
		Type:          req.Type,
		Reason:        req.Reason,
		Qty:           qty,
		PreviousStock: p.Stock,
		NewStock:      next,
		UnitCost:      p.Cost,
		TotalCost:     totalCost,
		SaleID:        req.SaleID,
		Note:          req.Note,
	})
	if err != nil {
		return Result{}, fmt.Errorf("insert movement: %w", err)
	}
	return Result{Movement: m, Stock: next}, nil
}

// Record applies a single movement in its own transaction.
func (l *Ledger) Record(ctx context.Context, req Request) (Result, error) {
	var res Result
	err := l.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		res, err = Apply(ctx, tx, req)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	metrics.StockMovements.WithLabelValues(string(req.Type)).Inc()
	l.log.Info("stock movement recorded",
		"product_id", req.ProductID,
		"type", req.Type,
		"reason", req.Reason,
		"qty", res.Movement.Qty,
		"stock", res.Stock,
	)
	return res, nil
}

// Batch is the outcome of RecordBatch. Adjustments whose counted level
// already matched the stock are listed in Unchanged and write nothing.
type Batch struct {
	Applied   []Result `json:"applied"`
	Unchanged []int64  `json:"unchanged,omitempty"`
}

// RecordBatch applies every request in one transaction, so either all the
// movements are written or none is. Each product may appear once; the rows
// are locked in ascending id order before the first write.
func (l *Ledger) RecordBatch(ctx context.Context, reqs []Request) (Batch, error) {
	if len(reqs) == 0 {
		return Batch{}, apperr.Invalid("batch is empty")
	}
	ids := make([]int64, 0, len(reqs))
	seen := make(map[int64]bool, len(reqs))
	for i, req := range reqs {
		if err := validate(req); err != nil {
			return Batch{}, fmt.Errorf("line %d: %w", i+1, err)
		}
		if seen[req.ProductID] {
			return Batch{}, apperr.Invalid("line %d: product %d appears more than once", i+1, req.ProductID)
		}
		seen[req.ProductID] = true
		ids = append(ids, req.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out Batch
	err := l.store.InTx(ctx, func(tx storage.Tx) error {
		out = Batch{}
		locked, err := tx.LockProducts(ctx, ids)
		if err != nil {
			return err
		}
		for i, req := range reqs {
			p := locked[req.ProductID]
			if req.Type == inventory.MoveAdjustment && inventory.Qty(req.Qty).Equal(inventory.Qty(p.Stock)) {
				out.Unchanged = append(out.Unchanged, p.ID)
				continue
			}
			res, err := apply(ctx, tx, p, req)
			if err != nil {
				return fmt.Errorf("line %d: %w", i+1, err)
			}
			out.Applied = append(out.Applied, res)
		}
		return nil
	})
	if err != nil {
		return Batch{}, err
	}
	for _, res := range out.Applied {
		metrics.StockMovements.WithLabelValues(string(res.Movement.Type)).Inc()
	}
	l.log.Info("stock batch recorded", "applied", len(out.Applied), "unchanged", len(out.Unchanged))
	return out, nil
}

func (l *Ledger) Movements(ctx context.Context, f inventory.Filter) ([]inventory.Movement, error) {
	var out []inventory.Movement
	err := l.store.View(ctx, func(tx storage.Tx) error {
		var err error
		out, err = tx.ListMovements(ctx, f)
		return err
	})
	return out, err
}

type Audit struct {
	ProductID  int64            `json:"product_id"`
	Cached     float64          `json:"cached_stock"`
	Replayed   float64          `json:"replayed_stock"`
	Movements  int              `json:"movements"`
	Consistent bool             `json:"consistent"`
	Break      *inventory.Break `json:"break,omitempty"`
}

// Audit replays the product's movement log and compares the result with the
// cached stock column.
func (l *Ledger) Audit(ctx context.Context, productID int64) (Audit, error) {
	var a Audit
	err := l.store.View(ctx, func(tx storage.Tx) error {
		p, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		ms, err := tx.ListMovements(ctx, inventory.Filter{ProductID: productID})
		if err != nil {
			return err
		}
		replayed, brk := inventory.Replay(ms)
		a = Audit{
			ProductID: productID,
			Cached:    p.Stock,
			Replayed:  replayed,
			Movements: len(ms),
			Break:     brk,
		}
		a.Consistent = brk == nil && inventory.Qty(replayed).Equal(inventory.Qty(p.Stock))
		return nil
	})
	return a, err
}
