// Package checkout turns a cart into a completed sale and reverses sales on
// cancellation. Both run as one storage transaction each.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"

	"github.com/Spok95/pos-core/internal/apperr"
	"github.com/Spok95/pos-core/internal/domain/inventory"
	"github.com/Spok95/pos-core/internal/domain/products"
	"github.com/Spok95/pos-core/internal/domain/sales"
	"github.com/Spok95/pos-core/internal/infra/metrics"
	"github.com/Spok95/pos-core/internal/ledger"
	"github.com/Spok95/pos-core/internal/storage"
)

// Cart and its parts decode the create-sale request body.
type CartItem struct {
	ProductID int64    `json:"productId"`
	Qty       float64  `json:"quantity"`
	UnitPrice *float64 `json:"unitPrice,omitempty"`
	Discount  float64  `json:"discount,omitempty"`
}

type Payment struct {
	Method     sales.PaymentMethod `json:"method"`
	PaidAmount *float64            `json:"paidAmount,omitempty"`
	Notes      string              `json:"notes,omitempty"`
}

type Cart struct {
	Items      []CartItem `json:"items"`
	Payment    Payment    `json:"payment"`
	CustomerID *int64     `json:"customerId,omitempty"`
	SaleType   sales.Type `json:"saleType,omitempty"`
	OperatorID int64      `json:"-"`
}

// Notifier receives products that reached their minimum stock after a sale.
type Notifier interface {
	LowStock(ctx context.Context, p products.Product)
}

type Options struct {
	NumberPrefix string
	Location     *time.Location
	Now          func() time.Time
	Notifier     Notifier
}

type Service struct {
	store    storage.Store
	log      *slog.Logger
	prefix   string
	loc      *time.Location
	now      func() time.Time
	notifier Notifier
}

func New(store storage.Store, log *slog.Logger, opts Options) *Service {
	s := &Service{
		store:    store,
		log:      log,
		prefix:   opts.NumberPrefix,
		loc:      opts.Location,
		now:      opts.Now,
		notifier: opts.Notifier,
	}
	if s.prefix == "" {
		s.prefix = "POS"
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func validateCart(c Cart) error {
	if len(c.Items) == 0 {
		return apperr.ErrEmptyCart
	}
	for i, it := range c.Items {
		if it.ProductID <= 0 {
			return apperr.Invalid("item %d: product id must be > 0", i+1)
		}
		if it.Qty <= 0 {
			return apperr.Invalid("item %d: quantity must be > 0", i+1)
		}
		if !inventory.ExactQty(it.Qty) {
			return apperr.Invalid("item %d: quantity %g has more than %d decimals", i+1, it.Qty, inventory.QtyPlaces)
		}
		if it.UnitPrice != nil && *it.UnitPrice < 0 {
			return apperr.Invalid("item %d: unit price must be >= 0", i+1)
		}
		if it.Discount < 0 {
			return apperr.Invalid("item %d: discount must be >= 0", i+1)
		}
	}
	if !c.Payment.Method.Valid() {
		return apperr.Invalid("unknown payment method %q", c.Payment.Method)
	}
	if c.Payment.PaidAmount != nil && *c.Payment.PaidAmount < 0 {
		return apperr.Invalid("paid amount must be >= 0")
	}
	switch c.SaleType {
	case "", sales.TypeRetail, sales.TypeWholesale:
	default:
		return apperr.Invalid("unknown sale type %q", c.SaleType)
	}
	if c.OperatorID <= 0 {
		return apperr.Invalid("operator id must be > 0")
	}
	return nil
}

// lockOrder returns the distinct product ids of the cart, ascending, and the
// requested quantity per product.
func lockOrder(items []CartItem) ([]int64, map[int64]decimal.Decimal) {
	want := make(map[int64]decimal.Decimal, len(items))
	for _, it := range items {
		want[it.ProductID] = want[it.ProductID].Add(inventory.Qty(it.Qty))
	}
	ids := make([]int64, 0, len(want))
	for id := range want {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, want
}

func (s *Service) CreateSale(ctx context.Context, c Cart) (sales.Sale, error) {
	if err := validateCart(c); err != nil {
		return sales.Sale{}, err
	}
	if c.SaleType == "" {
		c.SaleType = sales.TypeRetail
	}

	var (
		out sales.Sale
		low []products.Product
	)
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		low = low[:0]
		ids, want := lockOrder(c.Items)
		locked, err := tx.LockProducts(ctx, ids)
		if err != nil {
			return err
		}
		for _, id := range ids {
			p := locked[id]
			if !p.Active {
				return apperr.Invalid("product %d is inactive", id)
			}
			if want[id].GreaterThan(inventory.Qty(p.Stock)) {
				return &apperr.InsufficientStockError{ProductID: id, Available: p.Stock, Requested: inventory.StoredQty(want[id])}
			}
		}

		lines := make([]sales.Line, 0, len(c.Items))
		for i, it := range c.Items {
			p := locked[it.ProductID]
			price := p.RetailPrice
			if c.SaleType == sales.TypeWholesale && p.WholesalePrice > 0 {
				price = p.WholesalePrice
			}
			if it.UnitPrice != nil {
				price = *it.UnitPrice
			}
			lineSub := decimal.NewFromFloat(price).Mul(inventory.Qty(it.Qty)).Round(2)
			if decimal.NewFromFloat(it.Discount).GreaterThan(lineSub) {
				return apperr.Invalid("item %d: discount exceeds line subtotal", i+1)
			}
			lines = append(lines, sales.Line{
				ProductID: it.ProductID,
				Qty:       it.Qty,
				UnitPrice: price,
				Discount:  it.Discount,
				TaxRate:   p.TaxRate,
			})
		}
		totals := sales.ComputeTotals(lines)

		paid := totals.Total
		if c.Payment.Method == sales.MethodCredit {
			paid = 0
		}
		if c.Payment.PaidAmount != nil {
			paid = *c.Payment.PaidAmount
		}
		change, status := sales.Settle(totals.Total, paid)

		header, err := s.insertHeader(ctx, tx, sales.Sale{
			CustomerID:     c.CustomerID,
			OperatorID:     c.OperatorID,
			Type:           c.SaleType,
			Subtotal:       totals.Subtotal,
			TaxAmount:      totals.Tax,
			DiscountAmount: totals.Discount,
			Total:          totals.Total,
			PaymentMethod:  c.Payment.Method,
			PaymentStatus:  status,
			PaidAmount:     paid,
			ChangeAmount:   change,
			Status:         sales.StatusCompleted,
			Notes:          strings.TrimSpace(c.Payment.Notes),
			CreatedAt:      s.now(),
		})
		if err != nil {
			return err
		}

		for _, it := range totals.Items {
			it.SaleID = header.ID
			saved, err := tx.InsertSaleItem(ctx, it)
			if err != nil {
				return fmt.Errorf("insert sale item: %w", err)
			}
			header.Items = append(header.Items, saved)
		}

		saleID := header.ID
		for _, it := range header.Items {
			res, err := ledger.Apply(ctx, tx, ledger.Request{
				ProductID:  it.ProductID,
				Type:       inventory.MoveExit,
				Qty:        it.Qty,
				Reason:     inventory.ReasonSale,
				SaleID:     &saleID,
				OperatorID: c.OperatorID,
				Note:       "Sale " + header.Number,
			})
			if err != nil {
				return err
			}
			p := locked[it.ProductID]
			p.Stock = res.Stock
			locked[it.ProductID] = p
		}
		for _, id := range ids {
			if p := locked[id]; p.LowStock() {
				low = append(low, p)
			}
		}
		out = header
		return nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrInsufficientStock) {
			metrics.StockRejections.Inc()
		}
		return sales.Sale{}, err
	}

	metrics.SalesCreated.WithLabelValues(string(out.PaymentMethod)).Inc()
	metrics.SaleAmount.Observe(out.Total)
	metrics.StockMovements.WithLabelValues(string(inventory.MoveExit)).Add(float64(len(out.Items)))
	s.log.Info("sale created",
		"sale_id", out.ID,
		"number", out.Number,
		"total", out.Total,
		"items", len(out.Items),
		"operator_id", out.OperatorID,
	)
	if s.notifier != nil {
		for _, p := range low {
			s.notifier.LowStock(ctx, p)
		}
	}
	return out, nil
}

// insertHeader numbers the sale from the per-day sequence. A collision with
// a concurrent sale is retried once with the following number.
func (s *Service) insertHeader(ctx context.Context, tx storage.Tx, h sales.Sale) (sales.Sale, error) {
	period := h.CreatedAt.In(s.loc).Format("20060102")
	seq, err := tx.NextSaleSeq(ctx, period)
	if err != nil {
		return sales.Sale{}, fmt.Errorf("next sale number: %w", err)
	}

	var out sales.Sale
	backoff := retry.WithMaxRetries(1, retry.NewConstant(5*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		h.Period, h.Seq = period, seq
		h.Number = fmt.Sprintf("%s-%s-%04d", s.prefix, period, seq)
		saved, err := tx.InsertSale(ctx, h)
		if errors.Is(err, apperr.ErrSaleNumberTaken) {
			s.log.Warn("sale number taken, retrying", "number", h.Number)
			metrics.SaleNumberRetries.Inc()
			seq++
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		out = saved
		return nil
	})
	if err != nil {
		return sales.Sale{}, err
	}
	return out, nil
}

// CancelSale moves a completed sale to cancelled and returns every item to
// stock with a return movement. A cancelled sale cannot be cancelled again.
func (s *Service) CancelSale(ctx context.Context, saleID int64, reason string, operatorID int64) (sales.Sale, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return sales.Sale{}, apperr.Invalid("cancellation reason is required")
	}
	if operatorID <= 0 {
		return sales.Sale{}, apperr.Invalid("operator id must be > 0")
	}

	var out sales.Sale
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		sale, err := tx.GetSale(ctx, saleID, true)
		if err != nil {
			return err
		}
		if sale.Status == sales.StatusCancelled {
			return fmt.Errorf("sale %s: %w", sale.Number, apperr.ErrAlreadyCancelled)
		}

		ids, _ := lockOrder(itemsToCart(sale.Items))
		if _, err := tx.LockProducts(ctx, ids); err != nil {
			return err
		}

		for _, it := range sale.Items {
			if _, err := ledger.Apply(ctx, tx, ledger.Request{
				ProductID:  it.ProductID,
				Type:       inventory.MoveReturn,
				Qty:        it.Qty,
				Reason:     inventory.ReasonSaleCancellation,
				SaleID:     &saleID,
				OperatorID: operatorID,
				Note:       fmt.Sprintf("Cancellation of sale %s: %s", sale.Number, reason),
			}); err != nil {
				return err
			}
		}

		at := s.now()
		notes := strings.TrimSpace(sale.Notes + "\nCancelled: " + reason)
		if err := tx.MarkSaleCancelled(ctx, saleID, notes, at); err != nil {
			return err
		}
		sale.Status = sales.StatusCancelled
		sale.Notes = notes
		sale.CancelledAt = &at
		sale.UpdatedAt = at
		out = sale
		return nil
	})
	if err != nil {
		return sales.Sale{}, err
	}

	metrics.SalesCancelled.Inc()
	metrics.StockMovements.WithLabelValues(string(inventory.MoveReturn)).Add(float64(len(out.Items)))
	s.log.Info("sale cancelled", "sale_id", out.ID, "number", out.Number, "reason", reason, "operator_id", operatorID)
	return out, nil
}

// AddPayment records a later payment against a pending or partial sale and
// settles its status. A non-empty method replaces the sale's payment method.
func (s *Service) AddPayment(ctx context.Context, saleID int64, amount float64, method sales.PaymentMethod) (sales.Sale, error) {
	if amount <= 0 {
		return sales.Sale{}, apperr.Invalid("payment amount must be > 0")
	}
	if method != "" && !method.Valid() {
		return sales.Sale{}, apperr.Invalid("unknown payment method %q", method)
	}

	var out sales.Sale
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		sale, err := tx.GetSale(ctx, saleID, true)
		if err != nil {
			return err
		}
		if sale.Status == sales.StatusCancelled {
			return fmt.Errorf("sale %s: %w", sale.Number, apperr.ErrAlreadyCancelled)
		}
		if sale.PaymentStatus == sales.PaymentPaid {
			return fmt.Errorf("sale %s: %w", sale.Number, apperr.ErrSaleAlreadyPaid)
		}

		paid := decimal.NewFromFloat(sale.PaidAmount).Add(decimal.NewFromFloat(amount)).Round(2).InexactFloat64()
		sale.ChangeAmount, sale.PaymentStatus = sales.Settle(sale.Total, paid)
		sale.PaidAmount = paid
		if method != "" {
			sale.PaymentMethod = method
		}
		sale.UpdatedAt = s.now()
		if err := tx.UpdateSalePayment(ctx, sale); err != nil {
			return err
		}
		out = sale
		return nil
	})
	if err != nil {
		return sales.Sale{}, err
	}

	metrics.SalePayments.WithLabelValues(string(out.PaymentMethod)).Inc()
	s.log.Info("sale payment added",
		"sale_id", out.ID,
		"number", out.Number,
		"amount", amount,
		"payment_status", out.PaymentStatus,
	)
	return out, nil
}

func itemsToCart(items []sales.Item) []CartItem {
	out := make([]CartItem, len(items))
	for i, it := range items {
		out[i] = CartItem{ProductID: it.ProductID, Qty: it.Qty}
	}
	return out
}

func (s *Service) GetSale(ctx context.Context, id int64) (sales.Sale, error) {
	var out sales.Sale
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		out, err = tx.GetSale(ctx, id, false)
		return err
	})
	return out, err
}

func (s *Service) ListSales(ctx context.Context, f sales.Filter) ([]sales.Sale, error) {
	var out []sales.Sale
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		out, err = tx.ListSales(ctx, f)
		return err
	})
	return out, err
}
