package sales

import (
	"math"

	"github.com/shopspring/decimal"
)

// Line is the priced input of one cart line.
type Line struct {
	ProductID int64
	Qty       float64
	UnitPrice float64
	Discount  float64
	TaxRate   float64 // percent
}

type Totals struct {
	Items    []Item
	Subtotal float64
	Tax      float64
	Discount float64
	Total    float64
}

var hundred = decimal.NewFromInt(100)

// ComputeTotals prices the lines: subtotal = price*qty, the discount is taken
// before tax, tax is rounded to cents per line. Sale level amounts are sums
// of the rounded line amounts, so Total == Subtotal + Tax - Discount exactly.
func ComputeTotals(lines []Line) Totals {
	var sub, tax, disc, total decimal.Decimal
	items := make([]Item, 0, len(lines))
	for _, l := range lines {
		lineSub := decimal.NewFromFloat(l.UnitPrice).Mul(decimal.NewFromFloat(l.Qty)).Round(2)
		lineDisc := decimal.NewFromFloat(l.Discount).Round(2)
		taxable := lineSub.Sub(lineDisc)
		lineTax := taxable.Mul(decimal.NewFromFloat(l.TaxRate)).Div(hundred).Round(2)
		lineTotal := taxable.Add(lineTax)

		sub = sub.Add(lineSub)
		disc = disc.Add(lineDisc)
		tax = tax.Add(lineTax)
		total = total.Add(lineTotal)

		items = append(items, Item{
			ProductID: l.ProductID,
			Qty:       l.Qty,
			UnitPrice: l.UnitPrice,
			Discount:  lineDisc.InexactFloat64(),
			TaxRate:   l.TaxRate,
			TaxAmount: lineTax.InexactFloat64(),
			Subtotal:  lineSub.InexactFloat64(),
			Total:     lineTotal.InexactFloat64(),
		})
	}
	return Totals{
		Items:    items,
		Subtotal: sub.InexactFloat64(),
		Tax:      tax.InexactFloat64(),
		Discount: disc.InexactFloat64(),
		Total:    total.InexactFloat64(),
	}
}

// Settle derives change and payment status from the paid amount.
func Settle(total, paid float64) (change float64, status PaymentStatus) {
	change = math.Max(0, round2(paid-total))
	switch {
	case paid >= total:
		status = PaymentPaid
	case paid > 0:
		status = PaymentPartial
	default:
		status = PaymentPending
	}
	return change, status
}

// Summary is the canonical aggregation over completed sales.
type Summary struct {
	Count    int                       `json:"sales_count"`
	Total    float64                   `json:"total_sales"`
	ByMethod map[PaymentMethod]float64 `json:"payment_method_breakdown"`
}

// Summarize sums Total over completed sales only; cancelled sales are
// ignored whatever the caller passed in.
func Summarize(list []Sale) Summary {
	total := decimal.Zero
	by := map[PaymentMethod]decimal.Decimal{}
	n := 0
	for _, s := range list {
		if s.Status != StatusCompleted {
			continue
		}
		t := decimal.NewFromFloat(s.Total)
		total = total.Add(t)
		by[s.PaymentMethod] = by[s.PaymentMethod].Add(t)
		n++
	}
	out := Summary{Count: n, Total: total.InexactFloat64(), ByMethod: make(map[PaymentMethod]float64, len(by))}
	for m, v := range by {
		out.ByMethod[m] = v.InexactFloat64()
	}
	return out
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
