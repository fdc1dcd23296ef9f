package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/supply-ledger/internal/core/domain"
	"github.com/rl1809/supply-ledger/internal/port"
)

const (
	MsgStockSufficient = "All stock levels are sufficient"
	MsgLowStock        = "Low stock alert"
)

type AddInventoryInput struct {
	ProductName string           `json:"product_name" validate:"required,max=255"`
	Description *string          `json:"description"`
	StockLevel  *int             `json:"stock_level" validate:"required,gte=0,max=2147483647"`
	Price       *decimal.Decimal `json:"price" validate:"-"`
}

// UpdateInventoryInput lists the only fields an update may touch. Stock level
// moves through delivered transactions only.
type UpdateInventoryInput struct {
	ProductName *string          `json:"product_name" validate:"omitnil,min=1,max=255"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price" validate:"-"`
}

type LowStockReport struct {
	Message string                 `json:"message"`
	Items   []domain.InventoryItem `json:"items,omitempty"`
}

type InventoryService struct {
	store  port.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewInventoryService(store port.Store, logger *zap.Logger) *InventoryService {
	return &InventoryService{store: store, logger: logger, now: time.Now}
}

func checkPrice(verr *domain.ValidationError, price *decimal.Decimal, required bool) {
	switch {
	case price == nil && required:
		verr.Add("price", "The price field is required.")
	case price != nil && price.IsNegative():
		verr.Add("price", "The price must be at least 0.")
	case price != nil && price.Round(2).GreaterThan(domain.MaxPrice):
		verr.Add("price", "The price must not be greater than "+domain.MaxPrice.StringFixed(2)+".")
	}
}

func (s *InventoryService) List(ctx context.Context) ([]domain.InventoryItem, error) {
	return s.store.ListInventory(ctx)
}

// Add creates the item with zero stock and raises one pending restock order
// per supplier for the requested quantity, all in one unit of work.
func (s *InventoryService) Add(ctx context.Context, in AddInventoryInput) (*domain.InventoryItem, error) {
	verr := check(in)
	checkPrice(verr, in.Price, true)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	suppliers, err := s.store.ListUsersByRole(ctx, domain.RoleSupplier)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	orders := make([]domain.Transaction, 0, len(suppliers))
	for _, sup := range suppliers {
		orders = append(orders, domain.Transaction{
			UserID:    sup.ID,
			Type:      domain.TypeInventoryManagement,
			Status:    domain.StatusPending,
			InValue:   *in.StockLevel,
			OrderDate: now,
		})
	}

	item := &domain.InventoryItem{
		ProductName: in.ProductName,
		Description: in.Description,
		StockLevel:  0,
		Price:       in.Price.Round(2),
	}
	if err := s.store.CreateInventory(ctx, item, orders); err != nil {
		return nil, err
	}

	s.logger.Info("inventory added",
		zap.Int64("inventory_id", item.ID),
		zap.Int("requested", *in.StockLevel),
		zap.Int("supplier_orders", len(orders)),
	)
	return item, nil
}

func (s *InventoryService) Update(ctx context.Context, id int64, in UpdateInventoryInput) (*domain.InventoryItem, error) {
	item, err := s.store.GetInventory(ctx, id)
	if err != nil {
		return nil, err
	}

	verr := check(in)
	checkPrice(verr, in.Price, false)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if in.ProductName != nil {
		item.ProductName = *in.ProductName
	}
	if in.Description != nil {
		item.Description = in.Description
	}
	if in.Price != nil {
		item.Price = in.Price.Round(2)
	}
	if err := s.store.UpdateInventoryDetails(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Delete removes the item and cascades to its transactions.
func (s *InventoryService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteInventory(ctx, id); err != nil {
		return err
	}
	s.logger.Info("inventory deleted", zap.Int64("inventory_id", id))
	return nil
}

func (s *InventoryService) LowStock(ctx context.Context) (*LowStockReport, error) {
	items, err := s.store.ListInventoryBelow(ctx, domain.LowStockThreshold)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return &LowStockReport{Message: MsgStockSufficient}, nil
	}
	return &LowStockReport{Message: MsgLowStock, Items: items}, nil
}
