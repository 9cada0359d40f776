package cash

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Spok95/pos-core/internal/apperr"
	"github.com/Spok95/pos-core/internal/infra/db"
)

type Repo struct{ db db.Querier }

func NewRepo(q db.Querier) *Repo { return &Repo{db: q} }

const columns = `id, operator_id, business_day, opened_at, opening_balance,
	closed_at, closing_balance, total_sales, notes`

func scan(row pgx.Row) (Session, error) {
	var s Session
	err := row.Scan(
		&s.ID,
		&s.OperatorID,
		&s.BusinessDay,
		&s.OpenedAt,
		&s.OpeningBalance,
		&s.ClosedAt,
		&s.ClosingBalance,
		&s.TotalSales,
		&s.Notes,
	)
	return s, err
}

// Insert opens a session. The partial unique index on business_day for open
// rows turns a concurrent second open into ErrSessionAlreadyOpen.
func (r *Repo) Insert(ctx context.Context, s Session) (Session, error) {
	out, err := scan(r.db.QueryRow(ctx, `
		INSERT INTO cash_sessions (operator_id, business_day, opened_at, opening_balance, notes)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING `+columns,
		s.OperatorID, s.BusinessDay, s.OpenedAt, s.OpeningBalance, s.Notes))
	if err != nil {
		if _, ok := db.UniqueViolation(err); ok {
			return Session{}, apperr.ErrSessionAlreadyOpen
		}
		return Session{}, err
	}
	return out, nil
}

func (r *Repo) Get(ctx context.Context, id int64, forUpdate bool) (Session, error) {
	q := `SELECT ` + columns + ` FROM cash_sessions WHERE id = $1`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	s, err := scan(r.db.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, fmt.Errorf("cash session %d: %w", id, apperr.ErrSessionNotFound)
	}
	return s, err
}

// FindOpen returns the open session of a business day.
func (r *Repo) FindOpen(ctx context.Context, businessDay time.Time) (Session, error) {
	s, err := scan(r.db.QueryRow(ctx, `
		SELECT `+columns+`
		FROM cash_sessions
		WHERE business_day = $1 AND closed_at IS NULL
		ORDER BY opened_at DESC
		LIMIT 1
	`, businessDay))
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, apperr.ErrSessionNotFound
	}
	return s, err
}

// Close records the count. The closed_at IS NULL guard makes closing
// happen at most once even without the row lock.
func (r *Repo) Close(ctx context.Context, s Session) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE cash_sessions
		SET closed_at = $2, closing_balance = $3, total_sales = $4, notes = $5
		WHERE id = $1 AND closed_at IS NULL
	`, s.ID, s.ClosedAt, s.ClosingBalance, s.TotalSales, s.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cash session %d: %w", s.ID, apperr.ErrSessionAlreadyClosed)
	}
	return nil
}

// ListClosed returns sessions closed within [from, to), newest first.
func (r *Repo) ListClosed(ctx context.Context, from, to time.Time) ([]Session, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+columns+`
		FROM cash_sessions
		WHERE closed_at >= $1 AND closed_at < $2
		ORDER BY closed_at DESC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repo) CountOpen(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM cash_sessions WHERE closed_at IS NULL`).Scan(&n)
	return n, err
}
