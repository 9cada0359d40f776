package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Spok95/pos-core/internal/infra/db"
)

type Repo struct{ db db.Querier }

func NewRepo(q db.Querier) *Repo { return &Repo{db: q} }

const columns = `id, created_at, product_id, operator_id, type, reason, qty,
	previous_stock, new_stock, unit_cost, total_cost, sale_id, note`

func scan(row pgx.Row) (Movement, error) {
	var m Movement
	err := row.Scan(
		&m.ID,
		&m.CreatedAt,
		&m.ProductID,
		&m.OperatorID,
		&m.Type,
		&m.Reason,
		&m.Qty,
		&m.PreviousStock,
		&m.NewStock,
		&m.UnitCost,
		&m.TotalCost,
		&m.SaleID,
		&m.Note,
	)
	return m, err
}

// Insert appends a movement. There is no update or delete: the table is an
// audit trail.
func (r *Repo) Insert(ctx context.Context, m Movement) (Movement, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO stock_movements (product_id, operator_id, type, reason, qty,
		                             previous_stock, new_stock, unit_cost, total_cost, sale_id, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING `+columns,
		m.ProductID, m.OperatorID, string(m.Type), string(m.Reason), m.Qty,
		m.PreviousStock, m.NewStock, m.UnitCost, m.TotalCost, m.SaleID, m.Note)
	return scan(row)
}

// List returns movements oldest first.
func (r *Repo) List(ctx context.Context, f Filter) ([]Movement, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.ProductID > 0 {
		add("product_id = $%d", f.ProductID)
	}
	if f.Type != "" {
		add("type = $%d", string(f.Type))
	}
	if f.SaleID > 0 {
		add("sale_id = $%d", f.SaleID)
	}
	if !f.From.IsZero() {
		add("created_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("created_at < $%d", f.To)
	}

	q := `SELECT ` + columns + ` FROM stock_movements`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id"
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Movement
	for rows.Next() {
		m, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
