// Package apperr defines the error kinds shared by the ledger, checkout and
// till services and the HTTP layer that reports them.
package apperr

import (
	"errors"
	"fmt"
)

type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindInsufficientStock
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a sentinel with a kind and a stable code. Class sentinels
// (ErrValidation, ErrNotFound, ErrConflict) match every error of their kind.
type Error struct {
	kind  Kind
	code  string
	msg   string
	class bool
}

func (e *Error) Error() string { return e.msg }
func (e *Error) Kind() Kind    { return e.kind }
func (e *Error) Code() string  { return e.code }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t == e || (t.class && t.kind == e.kind)
}

var (
	ErrValidation = &Error{kind: KindValidation, code: "validation_error", msg: "validation failed", class: true}
	ErrNotFound   = &Error{kind: KindNotFound, code: "not_found", msg: "not found", class: true}
	ErrConflict   = &Error{kind: KindConflict, code: "conflict", msg: "conflict", class: true}

	ErrInsufficientStock = &Error{kind: KindInsufficientStock, code: "insufficient_stock", msg: "insufficient stock"}

	ErrEmptyCart            = &Error{kind: KindValidation, code: "empty_cart", msg: "cart is empty"}
	ErrProductNotFound      = &Error{kind: KindNotFound, code: "product_not_found", msg: "product not found"}
	ErrSaleNotFound         = &Error{kind: KindNotFound, code: "sale_not_found", msg: "sale not found"}
	ErrSaleAlreadyPaid      = &Error{kind: KindConflict, code: "sale_already_paid", msg: "sale already paid"}
	ErrSessionNotFound      = &Error{kind: KindNotFound, code: "session_not_found", msg: "cash session not found"}
	ErrAlreadyCancelled     = &Error{kind: KindConflict, code: "already_cancelled", msg: "sale already cancelled"}
	ErrSessionAlreadyOpen   = &Error{kind: KindConflict, code: "session_already_open", msg: "cash session already open for this business day"}
	ErrSessionAlreadyClosed = &Error{kind: KindConflict, code: "session_already_closed", msg: "cash session already closed"}
	ErrSaleNumberTaken      = &Error{kind: KindConflict, code: "sale_number_taken", msg: "sale number already taken"}
	ErrDuplicateProduct     = &Error{kind: KindConflict, code: "duplicate_product", msg: "product code or barcode already exists"}
)

// Invalid wraps ErrValidation with a human readable reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// InsufficientStockError is returned when a requested quantity exceeds the
// stock observed under the row lock.
type InsufficientStockError struct {
	ProductID int64
	Available float64
	Requested float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: available %g, requested %g",
		e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// KindOf classifies err. Unknown errors are internal (storage failures).
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var ise *InsufficientStockError
	if errors.As(err, &ise) {
		return KindInsufficientStock
	}
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindInternal
}

// CodeOf returns the most specific code found in the chain.
func CodeOf(err error) string {
	var ise *InsufficientStockError
	if errors.As(err, &ise) {
		return ErrInsufficientStock.code
	}
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return "internal_error"
}
