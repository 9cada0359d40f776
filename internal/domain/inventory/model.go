package inventory

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type MoveType string

const (
	MoveEntry      MoveType = "entry"
	MoveExit       MoveType = "exit"
	MoveAdjustment MoveType = "adjustment"
	MoveReturn     MoveType = "return"
)

func (t MoveType) Valid() bool {
	switch t {
	case MoveEntry, MoveExit, MoveAdjustment, MoveReturn:
		return true
	}
	return false
}

type Reason string

const (
	ReasonPurchase         Reason = "purchase"
	ReasonSale             Reason = "sale"
	ReasonSaleCancellation Reason = "sale_cancellation"
	ReasonAdjustment       Reason = "inventory_adjustment"
	ReasonCustomerReturn   Reason = "customer_return"
	ReasonSupplierReturn   Reason = "supplier_return"
	ReasonShrinkage        Reason = "shrinkage"
	ReasonTheft            Reason = "theft"
	ReasonInitialStock     Reason = "initial_stock"
)

func (r Reason) Valid() bool {
	switch r {
	case ReasonPurchase, ReasonSale, ReasonSaleCancellation, ReasonAdjustment,
		ReasonCustomerReturn, ReasonSupplierReturn, ReasonShrinkage, ReasonTheft, ReasonInitialStock:
		return true
	}
	return false
}

// Movement is one immutable row of the stock ledger.
type Movement struct {
	ID            int64     `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	ProductID     int64     `json:"product_id"`
	OperatorID    int64     `json:"operator_id"`
	Type          MoveType  `json:"type"`
	Reason        Reason    `json:"reason"`
	Qty           float64   `json:"quantity"`
	PreviousStock float64   `json:"previous_stock"`
	NewStock      float64   `json:"new_stock"`
	UnitCost      float64   `json:"unit_cost"`
	TotalCost     float64   `json:"total_cost"`
	SaleID        *int64    `json:"sale_id,omitempty"`
	Note          string    `json:"notes,omitempty"`
}

// Delta is the signed stock change the movement caused.
func (m Movement) Delta() float64 {
	return decimal.NewFromFloat(m.NewStock).Sub(decimal.NewFromFloat(m.PreviousStock)).InexactFloat64()
}

type Filter struct {
	ProductID int64
	Type      MoveType
	SaleID    int64
	From, To  time.Time
	Limit     int
}

// QtyPlaces is the scale of every stored quantity (NUMERIC(12,3)).
const QtyPlaces = 3

// Qty lifts a stored quantity into decimal arithmetic.
func Qty(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// StoredQty rounds d to the stored scale.
func StoredQty(d decimal.Decimal) float64 { return d.Round(QtyPlaces).InexactFloat64() }

// ExactQty reports whether v fits the stored scale without rounding.
func ExactQty(v float64) bool {
	d := Qty(v)
	return d.Equal(d.Round(QtyPlaces))
}

// NextStock computes the stock after applying a movement of type t with
// magnitude qty to current. For adjustments qty is the counted level.
func NextStock(current float64, t MoveType, qty float64) (float64, error) {
	cur, q := Qty(current), Qty(qty)
	switch t {
	case MoveEntry, MoveReturn:
		return StoredQty(cur.Add(q)), nil
	case MoveExit:
		return StoredQty(cur.Sub(q)), nil
	case MoveAdjustment:
		return StoredQty(q), nil
	}
	return 0, fmt.Errorf("unknown movement type %q", t)
}

// Break describes the first movement whose previous stock does not match
// the running total of the log before it.
type Break struct {
	MovementID int64   `json:"movement_id"`
	Expected   float64 `json:"expected"`
	Recorded   float64 `json:"recorded"`
}

// Replay folds a product's movements (oldest first) into a stock level.
func Replay(ms []Movement) (float64, *Break) {
	var stock float64
	var brk *Break
	for _, m := range ms {
		if brk == nil && !sameQty(m.PreviousStock, stock) {
			brk = &Break{MovementID: m.ID, Expected: stock, Recorded: m.PreviousStock}
		}
		next, err := NextStock(stock, m.Type, m.Qty)
		if err != nil || m.Type == MoveAdjustment {
			next = m.NewStock
		}
		if brk == nil && !sameQty(next, m.NewStock) {
			brk = &Break{MovementID: m.ID, Expected: next, Recorded: m.NewStock}
		}
		stock = m.NewStock
	}
	return stock, brk
}

func sameQty(a, b float64) bool { return Qty(a).Equal(Qty(b)) }
