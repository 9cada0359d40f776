// Package memory is an in-process storage.Store. Transactions are fully
// serialized by one mutex and work on a copy of the state that replaces the
// committed state only when the callback succeeds.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Spok95/pos-core/internal/apperr"
	"github.com/Spok95/pos-core/internal/domain/cash"
	"github.com/Spok95/pos-core/internal/domain/inventory"
	"github.com/Spok95/pos-core/internal/domain/products"
	"github.com/Spok95/pos-core/internal/domain/sales"
	"github.com/Spok95/pos-core/internal/storage"
)

// Fault lets tests fail a named operation ("InsertMovement", "InsertSale",
// ...) inside a transaction. Returning nil lets the operation proceed.
type Fault func(op string) error

type Store struct {
	mu    sync.Mutex
	st    *state
	now   func() time.Time
	fault Fault
}

type Option func(*Store)

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }
func WithFault(f Fault) Option              { return func(s *Store) { s.fault = f } }

func New(opts ...Option) *Store {
	s := &Store{st: newState(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetFault replaces the fault hook; nil disables it.
func (s *Store) SetFault(f Fault) {
	s.mu.Lock()
	s.fault = f
	s.mu.Unlock()
}

func (s *Store) InTx(ctx context.Context, fn func(storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.st.clone()
	if err := fn(&txn{st: work, now: s.now, fault: s.fault}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = work
	return nil
}

// View runs fn against a throwaway copy, so writes from a read path are
// discarded.
func (s *Store) View(ctx context.Context, fn func(storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&txn{st: s.st.clone(), now: s.now})
}

type state struct {
	products  map[int64]products.Product
	movements []inventory.Movement
	sales     map[int64]sales.Sale
	sessions  map[int64]cash.Session

	lastProductID, lastMovementID, lastSaleID, lastItemID, lastSessionID int64
}

func newState() *state {
	return &state{
		products: map[int64]products.Product{},
		sales:    map[int64]sales.Sale{},
		sessions: map[int64]cash.Session{},
	}
}

func (st *state) clone() *state {
	cp := *st
	cp.products = make(map[int64]products.Product, len(st.products))
	for k, v := range st.products {
		cp.products[k] = v
	}
	cp.movements = append([]inventory.Movement(nil), st.movements...)
	cp.sales = make(map[int64]sales.Sale, len(st.sales))
	for k, v := range st.sales {
		v.Items = append([]sales.Item(nil), v.Items...)
		cp.sales[k] = v
	}
	cp.sessions = make(map[int64]cash.Session, len(st.sessions))
	for k, v := range st.sessions {
		cp.sessions[k] = v
	}
	return &cp
}

type txn struct {
	st    *state
	now   func() time.Time
	fault Fault
}

func (t *txn) check(op string) error {
	if t.fault == nil {
		return nil
	}
	return t.fault(op)
}

func (t *txn) CreateProduct(_ context.Context, p products.Product) (products.Product, error) {
	if err := t.check("CreateProduct"); err != nil {
		return products.Product{}, err
	}
	for _, ex := range t.st.products {
		if ex.Code == p.Code || (p.Barcode != nil && ex.Barcode != nil && *ex.Barcode == *p.Barcode) {
			return products.Product{}, fmt.Errorf("product %q: %w", p.Code, apperr.ErrDuplicateProduct)
		}
	}
	t.st.lastProductID++
	now := t.now()
	p.ID = t.st.lastProductID
	p.Stock = 0
	p.Active = true
	p.CreatedAt, p.UpdatedAt = now, now
	t.st.products[p.ID] = p
	return p, nil
}

func (t *txn) GetProduct(_ context.Context, id int64) (products.Product, error) {
	p, ok := t.st.products[id]
	if !ok {
		return products.Product{}, fmt.Errorf("product %d: %w", id, apperr.ErrProductNotFound)
	}
	return p, nil
}

func (t *txn) ListProducts(_ context.Context, f products.Filter) ([]products.Product, error) {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var out []products.Product
	for _, p := range t.st.products {
		if f.OnlyActive && !p.Active {
			continue
		}
		if f.OnlyLow && !p.LowStock() {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Code), search) &&
			(p.Barcode == nil || !strings.Contains(*p.Barcode, search)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *txn) SetProductActive(_ context.Context, id int64, active bool) (products.Product, error) {
	p, ok := t.st.products[id]
	if !ok {
		return products.Product{}, fmt.Errorf("product %d: %w", id, apperr.ErrProductNotFound)
	}
	p.Active = active
	p.UpdatedAt = t.now()
	t.st.products[id] = p
	return p, nil
}

// LockProducts only resolves ids: the store mutex already serializes
// transactions.
func (t *txn) LockProducts(_ context.Context, ids []int64) (map[int64]products.Product, error) {
	if err := t.check("LockProducts"); err != nil {
		return nil, err
	}
	out := make(map[int64]products.Product, len(ids))
	for _, id := range ids {
		p, ok := t.st.products[id]
		if !ok {
			return nil, fmt.Errorf("product %d: %w", id, apperr.ErrProductNotFound)
		}
		out[id] = p
	}
	return out, nil
}

func (t *txn) SetProductStock(_ context.Context, id int64, stock float64) error {
	if err := t.check("SetProductStock"); err != nil {
		return err
	}
	p, ok := t.st.products[id]
	if !ok {
		return fmt.Errorf("product %d: %w", id, apperr.ErrProductNotFound)
	}
	p.Stock = stock
	p.UpdatedAt = t.now()
	t.st.products[id] = p
	return nil
}

func (t *txn) InsertMovement(_ context.Context, m inventory.Movement) (inventory.Movement, error) {
	if err := t.check("InsertMovement"); err != nil {
		return inventory.Movement{}, err
	}
	t.st.lastMovementID++
	m.ID = t.st.lastMovementID
	m.CreatedAt = t.now()
	t.st.movements = append(t.st.movements, m)
	return m, nil
}

func (t *txn) ListMovements(_ context.Context, f inventory.Filter) ([]inventory.Movement, error) {
	var out []inventory.Movement
	for _, m := range t.st.movements {
		if f.ProductID > 0 && m.ProductID != f.ProductID {
			continue
		}
		if f.Type != "" && m.Type != f.Type {
			continue
		}
		if f.SaleID > 0 && (m.SaleID == nil || *m.SaleID != f.SaleID) {
			continue
		}
		if !f.From.IsZero() && m.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !m.CreatedAt.Before(f.To) {
			continue
		}
		out = append(out, m)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (t *txn) NextSaleSeq(_ context.Context, period string) (int, error) {
	n := 0
	for _, s := range t.st.sales {
		if s.Period == period && s.Seq > n {
			n = s.Seq
		}
	}
	return n + 1, nil
}

func (t *txn) InsertSale(_ context.Context, s sales.Sale) (sales.Sale, error) {
	if err := t.check("InsertSale"); err != nil {
		return sales.Sale{}, err
	}
	for _, ex := range t.st.sales {
		if ex.Number == s.Number {
			return sales.Sale{}, fmt.Errorf("sale number %s: %w", s.Number, apperr.ErrSaleNumberTaken)
		}
	}
	t.st.lastSaleID++
	s.ID = t.st.lastSaleID
	s.UpdatedAt = s.CreatedAt
	s.Items = nil
	t.st.sales[s.ID] = s
	return s, nil
}

func (t *txn) InsertSaleItem(_ context.Context, it sales.Item) (sales.Item, error) {
	if err := t.check("InsertSaleItem"); err != nil {
		return sales.Item{}, err
	}
	s, ok := t.st.sales[it.SaleID]
	if !ok {
		return sales.Item{}, fmt.Errorf("sale %d: %w", it.SaleID, apperr.ErrSaleNotFound)
	}
	t.st.lastItemID++
	it.ID = t.st.lastItemID
	s.Items = append(s.Items, it)
	t.st.sales[s.ID] = s
	return it, nil
}

func (t *txn) GetSale(_ context.Context, id int64, _ bool) (sales.Sale, error) {
	s, ok := t.st.sales[id]
	if !ok {
		return sales.Sale{}, fmt.Errorf("sale %d: %w", id, apperr.ErrSaleNotFound)
	}
	s.Items = append([]sales.Item(nil), s.Items...)
	return s, nil
}

func (t *txn) ListSales(_ context.Context, f sales.Filter) ([]sales.Sale, error) {
	var out []sales.Sale
	for _, s := range t.st.sales {
		if !f.From.IsZero() && s.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !s.CreatedAt.Before(f.To) {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		if f.OperatorID > 0 && s.OperatorID != f.OperatorID {
			continue
		}
		if f.WithItems {
			s.Items = append([]sales.Item(nil), s.Items...)
		} else {
			s.Items = nil
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (t *txn) MarkSaleCancelled(_ context.Context, id int64, notes string, at time.Time) error {
	if err := t.check("MarkSaleCancelled"); err != nil {
		return err
	}
	s, ok := t.st.sales[id]
	if !ok {
		return fmt.Errorf("sale %d: %w", id, apperr.ErrSaleNotFound)
	}
	if s.Status != sales.StatusCompleted {
		return fmt.Errorf("sale %d: %w", id, apperr.ErrAlreadyCancelled)
	}
	s.Status = sales.StatusCancelled
	s.Notes = notes
	s.CancelledAt = &at
	s.UpdatedAt = at
	t.st.sales[id] = s
	return nil
}

func (t *txn) UpdateSalePayment(_ context.Context, s sales.Sale) error {
	if err := t.check("UpdateSalePayment"); err != nil {
		return err
	}
	ex, ok := t.st.sales[s.ID]
	if !ok {
		return fmt.Errorf("sale %d: %w", s.ID, apperr.ErrSaleNotFound)
	}
	if ex.Status != sales.StatusCompleted {
		return fmt.Errorf("sale %d: %w", s.ID, apperr.ErrAlreadyCancelled)
	}
	ex.PaymentMethod = s.PaymentMethod
	ex.PaymentStatus = s.PaymentStatus
	ex.PaidAmount = s.PaidAmount
	ex.ChangeAmount = s.ChangeAmount
	ex.UpdatedAt = s.UpdatedAt
	t.st.sales[s.ID] = ex
	return nil
}

func (t *txn) InsertSession(_ context.Context, s cash.Session) (cash.Session, error) {
	if err := t.check("InsertSession"); err != nil {
		return cash.Session{}, err
	}
	for _, ex := range t.st.sessions {
		if ex.IsOpen() && ex.BusinessDay.Equal(s.BusinessDay) {
			return cash.Session{}, apperr.ErrSessionAlreadyOpen
		}
	}
	t.st.lastSessionID++
	s.ID = t.st.lastSessionID
	t.st.sessions[s.ID] = s
	return s, nil
}

func (t *txn) GetSession(_ context.Context, id int64, _ bool) (cash.Session, error) {
	s, ok := t.st.sessions[id]
	if !ok {
		return cash.Session{}, fmt.Errorf("cash session %d: %w", id, apperr.ErrSessionNotFound)
	}
	return s, nil
}

func (t *txn) FindOpenSession(_ context.Context, businessDay time.Time) (cash.Session, error) {
	var (
		found cash.Session
		ok    bool
	)
	for _, s := range t.st.sessions {
		if s.IsOpen() && s.BusinessDay.Equal(businessDay) && (!ok || s.OpenedAt.After(found.OpenedAt)) {
			found, ok = s, true
		}
	}
	if !ok {
		return cash.Session{}, apperr.ErrSessionNotFound
	}
	return found, nil
}

func (t *txn) CloseSession(_ context.Context, s cash.Session) error {
	if err := t.check("CloseSession"); err != nil {
		return err
	}
	ex, ok := t.st.sessions[s.ID]
	if !ok {
		return fmt.Errorf("cash session %d: %w", s.ID, apperr.ErrSessionNotFound)
	}
	if !ex.IsOpen() {
		return fmt.Errorf("cash session %d: %w", s.ID, apperr.ErrSessionAlreadyClosed)
	}
	ex.ClosedAt = s.ClosedAt
	ex.ClosingBalance = s.ClosingBalance
	ex.TotalSales = s.TotalSales
	ex.Notes = s.Notes
	t.st.sessions[s.ID] = ex
	return nil
}

func (t *txn) ListClosedSessions(_ context.Context, from, to time.Time) ([]cash.Session, error) {
	var out []cash.Session
	for _, s := range t.st.sessions {
		if s.ClosedAt == nil || s.ClosedAt.Before(from) || !s.ClosedAt.Before(to) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClosedAt.After(*out[j].ClosedAt) })
	return out, nil
}

func (t *txn) CountOpenSessions(context.Context) (int, error) {
	n := 0
	for _, s := range t.st.sessions {
		if s.IsOpen() {
			n++
		}
	}
	return n, nil
}

var _ storage.Store = (*Store)(nil)
