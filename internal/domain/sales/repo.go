package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Spok95/pos-core/internal/apperr"
	"github.com/Spok95/pos-core/internal/infra/db"
)

type Repo struct{ db db.Querier }

func NewRepo(q db.Querier) *Repo { return &Repo{db: q} }

const saleColumns = `id, sale_number, number_period, number_seq, customer_id, operator_id, sale_type,
	subtotal, tax_amount, discount_amount, total, payment_method, payment_status,
	paid_amount, change_amount, status, notes, created_at, updated_at, cancelled_at`

const itemColumns = `id, sale_id, product_id, qty, unit_price, discount, tax_rate, tax_amount, subtotal, total`

func scanSale(row pgx.Row) (Sale, error) {
	var s Sale
	err := row.Scan(
		&s.ID, &s.Number, &s.Period, &s.Seq, &s.CustomerID, &s.OperatorID, &s.Type,
		&s.Subtotal, &s.TaxAmount, &s.DiscountAmount, &s.Total, &s.PaymentMethod, &s.PaymentStatus,
		&s.PaidAmount, &s.ChangeAmount, &s.Status, &s.Notes, &s.CreatedAt, &s.UpdatedAt, &s.CancelledAt,
	)
	return s, err
}

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.Qty, &it.UnitPrice,
		&it.Discount, &it.TaxRate, &it.TaxAmount, &it.Subtotal, &it.Total)
	return it, err
}

// NextSeq returns the next free sequence number for a numbering period.
func (r *Repo) NextSeq(ctx context.Context, period string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(number_seq), 0) + 1 FROM sales WHERE number_period = $1`, period).
		Scan(&n)
	return n, err
}

type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Insert writes the sale header. The insert runs under a savepoint so a
// sale number collision leaves the enclosing transaction usable for a retry.
func (r *Repo) Insert(ctx context.Context, s Sale) (Sale, error) {
	q := r.db
	var sp pgx.Tx
	if b, ok := r.db.(beginner); ok {
		var err error
		if sp, err = b.Begin(ctx); err != nil {
			return Sale{}, err
		}
		defer func() { _ = sp.Rollback(ctx) }()
		q = sp
	}

	out, err := scanSale(q.QueryRow(ctx, `
		INSERT INTO sales (sale_number, number_period, number_seq, customer_id, operator_id, sale_type,
		                   subtotal, tax_amount, discount_amount, total, payment_method, payment_status,
		                   paid_amount, change_amount, status, notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$17)
		RETURNING `+saleColumns,
		s.Number, s.Period, s.Seq, s.CustomerID, s.OperatorID, string(s.Type),
		s.Subtotal, s.TaxAmount, s.DiscountAmount, s.Total, string(s.PaymentMethod), string(s.PaymentStatus),
		s.PaidAmount, s.ChangeAmount, string(s.Status), s.Notes, s.CreatedAt))
	if err != nil {
		if _, ok := db.UniqueViolation(err); ok {
			return Sale{}, fmt.Errorf("sale number %s: %w", s.Number, apperr.ErrSaleNumberTaken)
		}
		return Sale{}, err
	}
	if sp != nil {
		if err := sp.Commit(ctx); err != nil {
			return Sale{}, err
		}
	}
	return out, nil
}

func (r *Repo) InsertItem(ctx context.Context, it Item) (Item, error) {
	return scanItem(r.db.QueryRow(ctx, `
		INSERT INTO sale_items (sale_id, product_id, qty, unit_price, discount, tax_rate, tax_amount, subtotal, total)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING `+itemColumns,
		it.SaleID, it.ProductID, it.Qty, it.UnitPrice, it.Discount, it.TaxRate, it.TaxAmount, it.Subtotal, it.Total))
}

// Get loads a sale with its items. forUpdate locks the header row.
func (r *Repo) Get(ctx context.Context, id int64, forUpdate bool) (Sale, error) {
	q := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	s, err := scanSale(r.db.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Sale{}, fmt.Errorf("sale %d: %w", id, apperr.ErrSaleNotFound)
	}
	if err != nil {
		return Sale{}, err
	}
	items, err := r.items(ctx, []int64{id})
	if err != nil {
		return Sale{}, err
	}
	s.Items = items[id]
	return s, nil
}

func (r *Repo) items(ctx context.Context, saleIDs []int64) (map[int64][]Item, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+itemColumns+` FROM sale_items WHERE sale_id = ANY($1) ORDER BY sale_id, id`, saleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]Item, len(saleIDs))
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out[it.SaleID] = append(out[it.SaleID], it)
	}
	return out, rows.Err()
}

// List returns sales oldest first within [From, To).
func (r *Repo) List(ctx context.Context, f Filter) ([]Sale, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if !f.From.IsZero() {
		add("created_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("created_at < $%d", f.To)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.OperatorID > 0 {
		add("operator_id = $%d", f.OperatorID)
	}

	q := `SELECT ` + saleColumns + ` FROM sales`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at, id"
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	var out []Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if f.WithItems && len(out) > 0 {
		ids := make([]int64, len(out))
		for i := range out {
			ids[i] = out[i].ID
		}
		items, err := r.items(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i := range out {
			out[i].Items = items[out[i].ID]
		}
	}
	return out, nil
}

func (r *Repo) UpdatePayment(ctx context.Context, s Sale) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE sales
		SET payment_method = $2, payment_status = $3, paid_amount = $4, change_amount = $5, updated_at = $6
		WHERE id = $1 AND status = 'completed'
	`, s.ID, string(s.PaymentMethod), string(s.PaymentStatus), s.PaidAmount, s.ChangeAmount, s.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("sale %d: %w", s.ID, apperr.ErrAlreadyCancelled)
	}
	return nil
}

func (r *Repo) MarkCancelled(ctx context.Context, id int64, notes string, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE sales
		SET status = 'cancelled', notes = $2, cancelled_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'completed'
	`, id, notes, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("sale %d: %w", id, apperr.ErrAlreadyCancelled)
	}
	return nil
}
