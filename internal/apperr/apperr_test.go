package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		kind Kind
		code string
	}{
		{"invalid", Invalid("quantity must be > 0"), KindValidation, "validation_error"},
		{"empty cart", ErrEmptyCart, KindValidation, "empty_cart"},
		{"wrapped not found", fmt.Errorf("sale 7: %w", ErrSaleNotFound), KindNotFound, "sale_not_found"},
		{"stock", &InsufficientStockError{ProductID: 1, Available: 2, Requested: 5}, KindInsufficientStock, "insufficient_stock"},
		{"wrapped stock", fmt.Errorf("apply: %w", &InsufficientStockError{ProductID: 1}), KindInsufficientStock, "insufficient_stock"},
		{"conflict", ErrSessionAlreadyOpen, KindConflict, "session_already_open"},
		{"storage", errors.New("connection reset"), KindInternal, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
			assert.Equal(t, tt.code, CodeOf(tt.err))
		})
	}
}

func TestClassSentinels(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, ErrAlreadyCancelled, ErrConflict)
	assert.ErrorIs(t, fmt.Errorf("x: %w", ErrProductNotFound), ErrNotFound)
	assert.ErrorIs(t, ErrEmptyCart, ErrValidation)
	assert.NotErrorIs(t, ErrEmptyCart, ErrNotFound)
	assert.NotErrorIs(t, ErrSessionAlreadyOpen, ErrSessionAlreadyClosed)
	assert.ErrorIs(t, &InsufficientStockError{}, ErrInsufficientStock)
}

func TestInsufficientStockMessage(t *testing.T) {
	t.Parallel()

	err := &InsufficientStockError{ProductID: 4, Available: 2, Requested: 5}
	assert.Equal(t, "insufficient stock for product 4: available 2, requested 5", err.Error())
}
