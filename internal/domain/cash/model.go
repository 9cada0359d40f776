package cash

import (
	"time"

	"github.com/Spok95/pos-core/internal/domain/sales"
)

// Session is one till count: opened with a declared balance, closed once
// with a counted balance.
type Session struct {
	ID             int64      `json:"id"`
	OperatorID     int64      `json:"operator_id"`
	BusinessDay    time.Time  `json:"business_day"`
	OpenedAt       time.Time  `json:"opened_at"`
	OpeningBalance float64    `json:"opening_balance"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
	ClosingBalance *float64   `json:"closing_balance,omitempty"`
	TotalSales     *float64   `json:"total_sales,omitempty"`
	Notes          string     `json:"notes"`
}

func (s Session) IsOpen() bool { return s.ClosedAt == nil }

// Variance is closing - (opening + total sales); ok is false while open.
func (s Session) Variance() (v float64, ok bool) {
	if s.ClosingBalance == nil || s.TotalSales == nil {
		return 0, false
	}
	return round2(*s.ClosingBalance - (s.OpeningBalance + *s.TotalSales)), true
}

// Report aggregates the completed sales of a session window.
type Report struct {
	Session      Session       `json:"session"`
	From         time.Time     `json:"from"`
	To           time.Time     `json:"to"`
	Summary      sales.Summary `json:"summary"`
	ExpectedCash float64       `json:"expected_cash"`
	Variance     *float64      `json:"variance,omitempty"`
	Sales        []sales.Sale  `json:"sales,omitempty"`
}
