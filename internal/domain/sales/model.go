package sales

import "time"

type Status string

const (
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
)

type PaymentMethod string

const (
	MethodCash          PaymentMethod = "cash"
	MethodCashUSD       PaymentMethod = "cash_usd"
	MethodTransfer      PaymentMethod = "transfer"
	MethodCard          PaymentMethod = "card"
	MethodMobilePayment PaymentMethod = "mobile_payment"
	MethodCredit        PaymentMethod = "credit"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCashUSD, MethodTransfer, MethodCard, MethodMobilePayment, MethodCredit:
		return true
	}
	return false
}

type Type string

const (
	TypeRetail    Type = "retail"
	TypeWholesale Type = "wholesale"
)

type Sale struct {
	ID             int64         `json:"id"`
	Number         string        `json:"sale_number"`
	Period         string        `json:"-"`
	Seq            int           `json:"-"`
	CustomerID     *int64        `json:"customer_id,omitempty"`
	OperatorID     int64         `json:"operator_id"`
	Type           Type          `json:"sale_type"`
	Subtotal       float64       `json:"subtotal"`
	TaxAmount      float64       `json:"tax_amount"`
	DiscountAmount float64       `json:"discount_amount"`
	Total          float64       `json:"total"`
	PaymentMethod  PaymentMethod `json:"payment_method"`
	PaymentStatus  PaymentStatus `json:"payment_status"`
	PaidAmount     float64       `json:"paid_amount"`
	ChangeAmount   float64       `json:"change_amount"`
	Status         Status        `json:"status"`
	Notes          string        `json:"notes"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	CancelledAt    *time.Time    `json:"cancelled_at,omitempty"`
	Items          []Item        `json:"items,omitempty"`
}

type Item struct {
	ID        int64   `json:"id"`
	SaleID    int64   `json:"sale_id"`
	ProductID int64   `json:"product_id"`
	Qty       float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Discount  float64 `json:"discount"`
	TaxRate   float64 `json:"tax_rate"`
	TaxAmount float64 `json:"tax_amount"`
	Subtotal  float64 `json:"subtotal"`
	Total     float64 `json:"total"`
}

type Filter struct {
	From, To   time.Time // [From, To)
	Status     Status
	WithItems  bool
	Limit      int
	OperatorID int64
}
