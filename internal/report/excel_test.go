package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Spok95/pos-core/internal/domain/cash"
	"github.com/Spok95/pos-core/internal/domain/inventory"
	"github.com/Spok95/pos-core/internal/domain/sales"
)

func open(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func keyValues(t *testing.T, f *excelize.File, sheet string) map[string]string {
	t.Helper()
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	out := map[string]string{}
	for _, r := range rows {
		if len(r) >= 2 {
			out[r[0]] = r[1]
		}
	}
	return out
}

func TestSessionReport(t *testing.T) {
	opened := time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)
	closedAt := opened.Add(8 * time.Hour)
	closing, total, variance := 590.0, 500.0, -10.0

	data, err := SessionReport(cash.Report{
		Session: cash.Session{
			ID: 3, OperatorID: 1, BusinessDay: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
			OpenedAt: opened, OpeningBalance: 100, ClosedAt: &closedAt, ClosingBalance: &closing, TotalSales: &total,
		},
		From: opened,
		To:   closedAt,
		Summary: sales.Summary{
			Count:    2,
			Total:    500,
			ByMethod: map[sales.PaymentMethod]float64{sales.MethodCash: 200, sales.MethodCard: 300},
		},
		ExpectedCash: 600,
		Variance:     &variance,
		Sales: []sales.Sale{
			{Number: "POS-20240305-0001", CreatedAt: opened.Add(time.Hour), PaymentMethod: sales.MethodCash, Total: 200},
			{Number: "POS-20240305-0002", CreatedAt: opened.Add(2 * time.Hour), PaymentMethod: sales.MethodCard, Total: 300},
		},
	})
	require.NoError(t, err)

	f := open(t, data)
	assert.Equal(t, []string{SummarySheet, SalesSheet}, f.GetSheetList())

	kv := keyValues(t, f, SummarySheet)
	assert.Equal(t, "3", kv["session_id"])
	assert.Equal(t, "2024-03-05", kv["business_day"])
	assert.Equal(t, "500", kv["total_sales"])
	assert.Equal(t, "600", kv["expected_cash"])
	assert.Equal(t, "590", kv["closing_balance"])
	assert.Equal(t, "-10", kv["variance"])
	assert.Equal(t, "200", kv["cash"])
	assert.Equal(t, "300", kv["card"])

	rows, err := f.GetRows(SalesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "sale_number", rows[0][0])
	assert.Equal(t, "POS-20240305-0002", rows[2][0])
	assert.Equal(t, "card", rows[2][3])
}

func TestSessionReportWhileOpen(t *testing.T) {
	data, err := SessionReport(cash.Report{Session: cash.Session{ID: 1}})
	require.NoError(t, err)

	kv := keyValues(t, open(t, data), SummarySheet)
	assert.NotContains(t, kv, "closing_balance")
	assert.NotContains(t, kv, "variance")
}

func TestMovements(t *testing.T) {
	saleID := int64(9)
	data, err := Movements([]inventory.Movement{
		{ID: 1, ProductID: 4, Type: inventory.MoveEntry, Reason: inventory.ReasonInitialStock, Qty: 10, NewStock: 10},
		{ID: 2, ProductID: 4, Type: inventory.MoveExit, Reason: inventory.ReasonSale, Qty: 3, PreviousStock: 10, NewStock: 7, SaleID: &saleID},
	})
	require.NoError(t, err)

	f := open(t, data)
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "previous_stock", rows[0][6])
	assert.Equal(t, []string{"exit", "sale", "3", "10", "7"}, rows[2][3:8])
	assert.Equal(t, "9", rows[2][10])
}
