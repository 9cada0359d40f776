package products

import "time"

type Product struct {
	ID             int64     `json:"id"`
	Code           string    `json:"code"`
	Barcode        *string   `json:"barcode,omitempty"`
	Name           string    `json:"name"`
	Cost           float64   `json:"cost"`
	RetailPrice    float64   `json:"retail_price"`
	WholesalePrice float64   `json:"wholesale_price"`
	TaxRate        float64   `json:"tax_rate"` // percent
	Stock          float64   `json:"stock"`
	MinStock       float64   `json:"min_stock"`
	MaxStock       float64   `json:"max_stock"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// LowStock reports whether stock has reached the minimum threshold.
// Products without a threshold never alert.
func (p Product) LowStock() bool {
	return p.MinStock > 0 && p.Stock <= p.MinStock
}

type Filter struct {
	OnlyActive bool
	OnlyLow    bool
	Search     string
}
