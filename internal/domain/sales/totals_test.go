package sales

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTotals(t *testing.T) {
	t.Parallel()

	t.Run("single line with tax", func(t *testing.T) {
		t.Parallel()

		got := ComputeTotals([]Line{{ProductID: 1, Qty: 3, UnitPrice: 100, TaxRate: 16}})
		assert.Equal(t, 300.0, got.Subtotal)
		assert.Equal(t, 48.0, got.Tax)
		assert.Equal(t, 0.0, got.Discount)
		assert.Equal(t, 348.0, got.Total)
		require.Len(t, got.Items, 1)
		assert.Equal(t, 348.0, got.Items[0].Total)
	})

	t.Run("discount taken before tax", func(t *testing.T) {
		t.Parallel()

		got := ComputeTotals([]Line{{ProductID: 1, Qty: 2, UnitPrice: 50, Discount: 10, TaxRate: 10}})
		assert.Equal(t, 100.0, got.Subtotal)
		assert.Equal(t, 10.0, got.Discount)
		assert.Equal(t, 9.0, got.Tax)
		assert.Equal(t, 99.0, got.Total)
	})

	t.Run("per line rounding keeps identity", func(t *testing.T) {
		t.Parallel()

		got := ComputeTotals([]Line{
			{ProductID: 1, Qty: 3, UnitPrice: 0.333, TaxRate: 16},
			{ProductID: 2, Qty: 1.5, UnitPrice: 19.99, Discount: 0.07, TaxRate: 8},
			{ProductID: 3, Qty: 7, UnitPrice: 1.01, TaxRate: 0},
		})
		assert.Less(t, math.Abs(got.Total-(got.Subtotal+got.Tax-got.Discount)), 0.01)
		var sum float64
		for _, it := range got.Items {
			sum += it.Total
		}
		assert.InDelta(t, got.Total, sum, 1e-9)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		got := ComputeTotals(nil)
		assert.Zero(t, got.Total)
		assert.Empty(t, got.Items)
	})
}

func TestSettle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		total      float64
		paid       float64
		wantChange float64
		wantStatus PaymentStatus
	}{
		{"exact", 348, 348, 0, PaymentPaid},
		{"overpaid", 348, 400, 52, PaymentPaid},
		{"partial", 348, 100, 0, PaymentPartial},
		{"nothing paid", 348, 0, 0, PaymentPending},
		{"cent rounding", 10.1, 20, 9.9, PaymentPaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change, status := Settle(tt.total, tt.paid)
			assert.Equal(t, tt.wantChange, change)
			assert.Equal(t, tt.wantStatus, status)
		})
	}
}

func TestSummarizeIgnoresCancelled(t *testing.T) {
	t.Parallel()

	got := Summarize([]Sale{
		{Total: 300, PaymentMethod: MethodCash, Status: StatusCompleted},
		{Total: 200, PaymentMethod: MethodCard, Status: StatusCompleted},
		{Total: 0.1, PaymentMethod: MethodCash, Status: StatusCompleted},
		{Total: 999, PaymentMethod: MethodCash, Status: StatusCancelled},
	})
	assert.Equal(t, 3, got.Count)
	assert.Equal(t, 500.1, got.Total)
	assert.Equal(t, map[PaymentMethod]float64{MethodCash: 300.1, MethodCard: 200}, got.ByMethod)
}
