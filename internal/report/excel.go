// Package report renders cash session reports and the stock ledger as xlsx.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/pos-core/internal/domain/cash"
	"github.com/Spok95/pos-core/internal/domain/inventory"
	"github.com/Spok95/pos-core/internal/domain/sales"
)

const (
	SummarySheet = "Summary"
	SalesSheet   = "Sales"
)

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	return nil
}

func finish(f *excelize.File) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func ts(t time.Time) string { return t.Format("2006-01-02 15:04:05") }

// SessionReport writes a summary sheet (balances, totals per payment method)
// and a sheet with one row per completed sale of the window.
func SessionReport(rep cash.Report) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	first := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetName(first, SummarySheet); err != nil {
		return nil, err
	}

	s := rep.Session
	rows := [][]interface{}{
		{"session_id", s.ID},
		{"business_day", s.BusinessDay.Format(time.DateOnly)},
		{"operator_id", s.OperatorID},
		{"opened_at", ts(rep.From)},
		{"to", ts(rep.To)},
		{"opening_balance", s.OpeningBalance},
		{"sales_count", rep.Summary.Count},
		{"total_sales", rep.Summary.Total},
		{"expected_cash", rep.ExpectedCash},
	}
	if s.ClosingBalance != nil {
		rows = append(rows, []interface{}{"closing_balance", *s.ClosingBalance})
	}
	if rep.Variance != nil {
		rows = append(rows, []interface{}{"variance", *rep.Variance})
	}
	rows = append(rows, []interface{}{}, []interface{}{"payment_method", "total"})

	methods := make([]string, 0, len(rep.Summary.ByMethod))
	for m := range rep.Summary.ByMethod {
		methods = append(methods, string(m))
	}
	sort.Strings(methods)
	for _, m := range methods {
		rows = append(rows, []interface{}{m, rep.Summary.ByMethod[sales.PaymentMethod(m)]})
	}
	if err := writeRows(f, SummarySheet, rows); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(SalesSheet); err != nil {
		return nil, err
	}
	saleRows := [][]interface{}{{
		"sale_number", "created_at", "operator_id", "payment_method",
		"subtotal", "tax", "discount", "total", "paid", "change",
	}}
	for _, sl := range rep.Sales {
		saleRows = append(saleRows, []interface{}{
			sl.Number, ts(sl.CreatedAt), sl.OperatorID, string(sl.PaymentMethod),
			sl.Subtotal, sl.TaxAmount, sl.DiscountAmount, sl.Total, sl.PaidAmount, sl.ChangeAmount,
		})
	}
	if err := writeRows(f, SalesSheet, saleRows); err != nil {
		return nil, err
	}
	return finish(f)
}

// Movements writes the ledger rows in the order given.
func Movements(ms []inventory.Movement) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows := [][]interface{}{{
		"id", "created_at", "product_id", "type", "reason", "quantity",
		"previous_stock", "new_stock", "unit_cost", "total_cost", "sale_id", "notes",
	}}
	for _, m := range ms {
		var saleID interface{} = ""
		if m.SaleID != nil {
			saleID = *m.SaleID
		}
		rows = append(rows, []interface{}{
			m.ID, ts(m.CreatedAt), m.ProductID, string(m.Type), string(m.Reason), m.Qty,
			m.PreviousStock, m.NewStock, m.UnitCost, m.TotalCost, saleID, m.Note,
		})
	}
	if err := writeRows(f, sheet, rows); err != nil {
		return nil, err
	}
	return finish(f)
}
