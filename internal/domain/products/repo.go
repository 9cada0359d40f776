package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Spok95/pos-core/internal/apperr"
	"github.com/Spok95/pos-core/internal/infra/db"
)

type Repo struct{ db db.Querier }

func NewRepo(q db.Querier) *Repo { return &Repo{db: q} }

const columns = `id, code, barcode, name, cost, retail_price, wholesale_price, tax_rate,
	stock, min_stock, max_stock, active, created_at, updated_at`

func scan(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID,
		&p.Code,
		&p.Barcode,
		&p.Name,
		&p.Cost,
		&p.RetailPrice,
		&p.WholesalePrice,
		&p.TaxRate,
		&p.Stock,
		&p.MinStock,
		&p.MaxStock,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

// Create inserts a product with zero stock; stock arrives through the ledger.
func (r *Repo) Create(ctx context.Context, p Product) (Product, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO products (code, barcode, name, cost, retail_price, wholesale_price, tax_rate,
		                      stock, min_stock, max_stock, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,0,$8,$9,TRUE)
		RETURNING `+columns,
		p.Code, p.Barcode, p.Name, p.Cost, p.RetailPrice, p.WholesalePrice, p.TaxRate, p.MinStock, p.MaxStock)
	out, err := scan(row)
	if err != nil {
		if _, ok := db.UniqueViolation(err); ok {
			return Product{}, fmt.Errorf("product %q: %w", p.Code, apperr.ErrDuplicateProduct)
		}
		return Product{}, err
	}
	return out, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (Product, error) {
	p, err := scan(r.db.QueryRow(ctx, `SELECT `+columns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("product %d: %w", id, apperr.ErrProductNotFound)
	}
	return p, err
}

func (r *Repo) List(ctx context.Context, f Filter) ([]Product, error) {
	var (
		where []string
		args  []any
	)
	if f.OnlyActive {
		where = append(where, "active = TRUE")
	}
	if f.OnlyLow {
		where = append(where, "min_stock > 0 AND stock <= min_stock")
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+strings.ToLower(s)+"%")
		where = append(where, fmt.Sprintf("(LOWER(name) LIKE $%[1]d OR LOWER(code) LIKE $%[1]d OR barcode LIKE $%[1]d)", len(args)))
	}
	q := `SELECT ` + columns + ` FROM products`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY name, id"

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) SetActive(ctx context.Context, id int64, active bool) (Product, error) {
	p, err := scan(r.db.QueryRow(ctx, `
		UPDATE products SET active = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+columns, id, active))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("product %d: %w", id, apperr.ErrProductNotFound)
	}
	return p, err
}

// LockForUpdate takes row locks on all ids in ascending id order, so two
// transactions over overlapping carts always queue instead of deadlocking.
func (r *Repo) LockForUpdate(ctx context.Context, ids []int64) (map[int64]Product, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+columns+`
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]Product, len(ids))
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			return nil, fmt.Errorf("product %d: %w", id, apperr.ErrProductNotFound)
		}
	}
	return out, nil
}

// SetStock writes the cached stock column. Only the stock ledger calls it.
func (r *Repo) SetStock(ctx context.Context, id int64, stock float64) error {
	tag, err := r.db.Exec(ctx, `UPDATE products SET stock = $2, updated_at = now() WHERE id = $1`, id, stock)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %d: %w", id, apperr.ErrProductNotFound)
	}
	return nil
}
