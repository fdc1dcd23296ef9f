package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/supply-ledger/internal/core/domain"
	"github.com/rl1809/supply-ledger/internal/core/policy"
	"github.com/rl1809/supply-ledger/internal/metrics"
	"github.com/rl1809/supply-ledger/internal/port"
)

type CreateOrderInput struct {
	InventoryID     int64                  `json:"inventory_id" validate:"required"`
	UserID          int64                  `json:"user_id" validate:"required"`
	TransactionType domain.TransactionType `json:"transaction_type" validate:"omitempty,oneof=inventory_management delivery"`
	Status          domain.Status          `json:"status" validate:"omitempty,oneof=pending en_route"`
	InValue         int                    `json:"in_value"`
	OutValue        int                    `json:"out_value"`
	OrderDate       *time.Time             `json:"order_date"`
}

// UpdateOrderInput lists the only fields an order update may touch. Nil means unchanged.
type UpdateOrderInput struct {
	Status    *domain.Status `json:"status" validate:"omitnil,oneof=pending en_route delivered"`
	InValue   *int           `json:"in_value" validate:"omitnil,gt=0,max=2147483647"`
	OutValue  *int           `json:"out_value" validate:"omitnil,gt=0,max=2147483647"`
	OrderDate *time.Time     `json:"order_date"`
}

type DeliveryStatusInput struct {
	Status domain.Status `json:"status" validate:"required,oneof=pending en_route delivered"`
}

// LedgerService owns the transaction lifecycle and the stock adjustment made
// when a transaction is delivered.
type LedgerService struct {
	store         port.Store
	events        port.EventPublisher
	metrics       *metrics.Collector
	logger        *zap.Logger
	allowNegative bool
	now           func() time.Time
}

func NewLedgerService(store port.Store, events port.EventPublisher, collector *metrics.Collector, logger *zap.Logger, allowNegativeStock bool) *LedgerService {
	return &LedgerService{
		store:         store,
		events:        events,
		metrics:       collector,
		logger:        logger,
		allowNegative: allowNegativeStock,
		now:           time.Now,
	}
}

func (s *LedgerService) ListOrders(ctx context.Context) ([]domain.Transaction, error) {
	return s.store.ListTransactions(ctx, domain.TransactionFilter{})
}

func (s *LedgerService) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Transaction, error) {
	if in.TransactionType == "" {
		in.TransactionType = domain.TypeDelivery
	}
	if in.Status == "" {
		in.Status = domain.StatusPending
	}

	verr := check(in)
	if verr.Empty() {
		s.checkOrderRefs(ctx, verr, in)
	}
	t := domain.Transaction{
		UserID:      in.UserID,
		InventoryID: in.InventoryID,
		Type:        in.TransactionType,
		Status:      in.Status,
	}
	if in.TransactionType == domain.TypeDelivery {
		t.SetQuantity(in.OutValue)
		checkQuantity(verr, "out_value", in.OutValue)
		if in.InValue != 0 {
			verr.Add("in_value", "The in value field is prohibited for delivery transactions.")
		}
	} else {
		t.SetQuantity(in.InValue)
		checkQuantity(verr, "in_value", in.InValue)
		if in.OutValue != 0 {
			verr.Add("out_value", "The out value field is prohibited for inventory management transactions.")
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	t.OrderDate = s.now().UTC()
	if in.OrderDate != nil {
		t.OrderDate = in.OrderDate.UTC()
	}
	if err := s.store.CreateTransaction(ctx, &t); err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		zap.Int64("transaction_id", t.ID),
		zap.String("type", string(t.Type)),
		zap.Int("quantity", t.Quantity()),
	)
	return &t, nil
}

func checkQuantity(verr *domain.ValidationError, field string, qty int) {
	switch {
	case qty <= 0:
		verr.Add(field, fmt.Sprintf("The %s must be greater than 0.", label(field)))
	case qty > domain.MaxQuantity:
		verr.Add(field, fmt.Sprintf("The %s must not be greater than %d.", label(field), domain.MaxQuantity))
	}
}

// checkOrderRefs reports unknown ids and an owner whose role does not match
// the transaction type.
func (s *LedgerService) checkOrderRefs(ctx context.Context, verr *domain.ValidationError, in CreateOrderInput) {
	if _, err := s.store.GetInventory(ctx, in.InventoryID); err != nil {
		verr.Add("inventory_id", "The selected inventory id is invalid.")
	}
	u, err := s.store.GetUser(ctx, in.UserID)
	if err != nil {
		verr.Add("user_id", "The selected user id is invalid.")
		return
	}
	if u.Role != in.TransactionType.OwnerRole() {
		verr.Add("user_id", fmt.Sprintf("The selected user id must be a %s.", label(string(in.TransactionType.OwnerRole()))))
	}
}

func (s *LedgerService) UpdateOrder(ctx context.Context, id int64, in UpdateOrderInput) (*domain.Transaction, error) {
	if err := check(in).OrNil(); err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, func(t *domain.Transaction, item *domain.InventoryItem, now time.Time) (int, error) {
		if in.InValue != nil || in.OutValue != nil {
			qty, err := orderQuantity(t, in)
			if err != nil {
				return 0, err
			}
			t.SetQuantity(qty)
		}
		if in.OrderDate != nil {
			t.OrderDate = in.OrderDate.UTC()
		}
		t.UpdatedAt = now
		if in.Status == nil {
			return 0, nil
		}
		return domain.ApplyStatus(t, item, *in.Status, now, s.allowNegative)
	})
}

func orderQuantity(t *domain.Transaction, in UpdateOrderInput) (int, error) {
	if t.Status == domain.StatusDelivered {
		return 0, fmt.Errorf("%w: quantity of delivered transaction %d is final", domain.ErrInvalidTransition, t.ID)
	}
	verr := domain.NewValidationError()
	if t.Type == domain.TypeDelivery {
		if in.InValue != nil {
			verr.Add("in_value", "The in value field is prohibited for delivery transactions.")
		}
		if in.OutValue != nil {
			return *in.OutValue, verr.OrNil()
		}
		return t.OutValue, verr.OrNil()
	}
	if in.OutValue != nil {
		verr.Add("out_value", "The out value field is prohibited for inventory management transactions.")
	}
	if in.InValue != nil {
		return *in.InValue, verr.OrNil()
	}
	return t.InValue, verr.OrNil()
}

// Deliveries lists the transactions actor may see: all of them for managers and
// administrators, otherwise only the caller's own.
func (s *LedgerService) Deliveries(ctx context.Context, actor domain.User) ([]domain.Transaction, error) {
	if err := policy.Authorize(actor, policy.ListDeliveries); err != nil {
		return nil, err
	}
	return s.store.ListTransactions(ctx, policy.Scope(actor))
}

// GroupByType splits txns into one list per transaction type. Both keys are
// always present.
func GroupByType(txns []domain.Transaction) map[domain.TransactionType][]domain.Transaction {
	grouped := map[domain.TransactionType][]domain.Transaction{
		domain.TypeDelivery:            {},
		domain.TypeInventoryManagement: {},
	}
	for _, t := range txns {
		grouped[t.Type] = append(grouped[t.Type], t)
	}
	return grouped
}

// SupplierOrders lists the restock orders still waiting on actor.
func (s *LedgerService) SupplierOrders(ctx context.Context, actor domain.User) ([]domain.Transaction, error) {
	return s.store.ListTransactions(ctx, domain.TransactionFilter{
		UserID: actor.ID,
		Type:   domain.TypeInventoryManagement,
		Status: domain.StatusPending,
	})
}

// UpdateDeliveryStatus moves a transaction to a new status on behalf of actor.
// Ownership is checked against the locked row, so a denied caller leaves no trace.
func (s *LedgerService) UpdateDeliveryStatus(ctx context.Context, actor domain.User, id int64, in DeliveryStatusInput) (*domain.Transaction, error) {
	if err := check(in).OrNil(); err != nil {
		return nil, err
	}

	t, err := s.mutate(ctx, id, func(t *domain.Transaction, item *domain.InventoryItem, now time.Time) (int, error) {
		if err := policy.AuthorizeOn(actor, policy.UpdateDelivery, *t); err != nil {
			return 0, err
		}
		return domain.ApplyStatus(t, item, in.Status, now, s.allowNegative)
	})
	if errors.Is(err, domain.ErrForbidden) {
		s.metrics.ObserveDenied(string(policy.UpdateDelivery))
		s.logger.Info("request denied",
			zap.String("operation", string(policy.UpdateDelivery)),
			zap.Int64("user_id", actor.ID),
			zap.Int64("transaction_id", id),
		)
	}
	return t, err
}

type ledgerMutation func(t *domain.Transaction, item *domain.InventoryItem, now time.Time) (int, error)

// mutate runs fn inside the store's locked unit of work and, once committed,
// records metrics and publishes the stock event for any applied delta.
func (s *LedgerService) mutate(ctx context.Context, id int64, fn ledgerMutation) (*domain.Transaction, error) {
	var (
		from  domain.Status
		delta int
	)
	now := s.now().UTC()

	t, item, err := s.store.UpdateTransaction(ctx, id, func(t *domain.Transaction, item *domain.InventoryItem) error {
		from = t.Status
		d, err := fn(t, item, now)
		delta = d
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInsufficientStock), errors.Is(err, domain.ErrInvalidTransition),
			errors.Is(err, domain.ErrStockOverflow):
			s.logger.Warn("transition rejected", zap.Int64("transaction_id", id), zap.Error(err))
		}
		return nil, err
	}

	if from != t.Status {
		s.metrics.ObserveTransition(string(from), string(t.Status))
	}
	if delta != 0 {
		s.metrics.ObserveStock(string(t.Type), delta)
		s.logger.Info("stock adjusted",
			zap.Int64("transaction_id", t.ID),
			zap.Int64("inventory_id", item.ID),
			zap.Int("delta", delta),
			zap.Int("stock_level", item.StockLevel),
		)
		s.publish(ctx, domain.StockEvent{
			TransactionID:   t.ID,
			InventoryID:     item.ID,
			TransactionType: t.Type,
			Delta:           delta,
			StockLevel:      item.StockLevel,
			Timestamp:       now,
		})
	}
	return t, nil
}

func (s *LedgerService) publish(ctx context.Context, event domain.StockEvent) {
	if err := s.events.PublishStockAdjusted(ctx, event); err != nil {
		s.metrics.ObserveEventFailure()
		s.logger.Error("failed to publish stock event",
			zap.Int64("transaction_id", event.TransactionID),
			zap.Error(err),
		)
	}
}
