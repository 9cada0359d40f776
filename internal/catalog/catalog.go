package catalog

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Spok95/pos-core/internal/apperr"
	"github.com/Spok95/pos-core/internal/domain/inventory"
	"github.com/Spok95/pos-core/internal/domain/products"
	"github.com/Spok95/pos-core/internal/ledger"
	"github.com/Spok95/pos-core/internal/storage"
)

type NewProduct struct {
	Code           string  `json:"code"`
	Barcode        string  `json:"barcode,omitempty"`
	Name           string  `json:"name"`
	Cost           float64 `json:"cost"`
	RetailPrice    float64 `json:"retailPrice"`
	WholesalePrice float64 `json:"wholesalePrice"`
	TaxRate        float64 `json:"taxRate"`
	InitialStock   float64 `json:"initialStock"`
	MinStock       float64 `json:"minStock"`
	MaxStock       float64 `json:"maxStock"`
}

type Service struct {
	store storage.Store
	log   *slog.Logger
}

func New(store storage.Store, log *slog.Logger) *Service {
	return &Service{store: store, log: log}
}

func (n NewProduct) validate() error {
	switch {
	case n.Code == "" || n.Name == "":
		return apperr.Invalid("code and name are required")
	case n.Cost < 0 || n.RetailPrice < 0 || n.WholesalePrice < 0:
		return apperr.Invalid("prices must be >= 0")
	case n.TaxRate < 0 || n.TaxRate > 100:
		return apperr.Invalid("tax rate must be within 0..100")
	case n.InitialStock < 0 || n.MinStock < 0 || n.MaxStock < 0:
		return apperr.Invalid("stock values must be >= 0")
	case n.MaxStock > 0 && n.MinStock > n.MaxStock:
		return apperr.Invalid("min stock exceeds max stock")
	}
	return nil
}

// Create registers a product. Initial stock is booked as a ledger entry in
// the same transaction so the movement log accounts for every unit.
func (s *Service) Create(ctx context.Context, n NewProduct, operatorID int64) (products.Product, error) {
	n.Code = strings.ToUpper(strings.TrimSpace(n.Code))
	n.Name = strings.TrimSpace(n.Name)
	n.Barcode = strings.TrimSpace(n.Barcode)
	if err := n.validate(); err != nil {
		return products.Product{}, err
	}

	p := products.Product{
		Code:           n.Code,
		Name:           n.Name,
		Cost:           n.Cost,
		RetailPrice:    n.RetailPrice,
		WholesalePrice: n.WholesalePrice,
		TaxRate:        n.TaxRate,
		MinStock:       n.MinStock,
		MaxStock:       n.MaxStock,
	}
	if n.Barcode != "" {
		p.Barcode = &n.Barcode
	}

	var out products.Product
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		out, err = tx.CreateProduct(ctx, p)
		if err != nil {
			return err
		}
		if n.InitialStock > 0 {
			res, err := ledger.Apply(ctx, tx, ledger.Request{
				ProductID:  out.ID,
				Type:       inventory.MoveEntry,
				Qty:        n.InitialStock,
				Reason:     inventory.ReasonInitialStock,
				OperatorID: operatorID,
			})
			if err != nil {
				return err
			}
			out.Stock = res.Stock
		}
		return nil
	})
	if err != nil {
		return products.Product{}, err
	}
	s.log.Info("product created", "product_id", out.ID, "code", out.Code, "stock", out.Stock)
	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (products.Product, error) {
	var out products.Product
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		out, err = tx.GetProduct(ctx, id)
		return err
	})
	return out, err
}

func (s *Service) List(ctx context.Context, f products.Filter) ([]products.Product, error) {
	var out []products.Product
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		out, err = tx.ListProducts(ctx, f)
		return err
	})
	return out, err
}

// Deactivate hides a product from sale. Products are never deleted because
// sale items and movements keep referencing them.
func (s *Service) Deactivate(ctx context.Context, id int64) (products.Product, error) {
	var out products.Product
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		out, err = tx.SetProductActive(ctx, id, false)
		return err
	})
	if err != nil {
		return products.Product{}, err
	}
	s.log.Info("product deactivated", "product_id", id)
	return out, nil
}
