package domain

import (
	"fmt"
	"time"
)

type TransactionType string

const (
	// TypeInventoryManagement is an inbound restock fulfilled by a supplier.
	TypeInventoryManagement TransactionType = "inventory_management"
	// TypeDelivery is an outbound shipment carried by a delivery driver.
	TypeDelivery TransactionType = "delivery"
)

func (t TransactionType) Valid() bool {
	return t == TypeInventoryManagement || t == TypeDelivery
}

// OwnerRole is the role a transaction owner must have for this type.
func (t TransactionType) OwnerRole() Role {
	if t == TypeDelivery {
		return RoleDeliveryDriver
	}
	return RoleSupplier
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusEnRoute   Status = "en_route"
	StatusDelivered Status = "delivered"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusEnRoute, StatusDelivered:
		return true
	}
	return false
}

type Transaction struct {
	ID              int64           `db:"id" json:"id"`
	UserID          int64           `db:"user_id" json:"user_id"`
	InventoryID     int64           `db:"inventory_id" json:"inventory_id"`
	Type            TransactionType `db:"transaction_type" json:"transaction_type"`
	Status          Status          `db:"status" json:"status"`
	InValue         int             `db:"in_value" json:"in_value"`
	OutValue        int             `db:"out_value" json:"out_value"`
	OrderDate       time.Time       `db:"order_date" json:"order_date"`
	TransactionDate *time.Time      `db:"transaction_date" json:"transaction_date"`
	DeliveryDate    *time.Time      `db:"delivery_date" json:"delivery_date"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// StockDelta is the change applied to the inventory item when the transaction is delivered.
func (t Transaction) StockDelta() int {
	if t.Type == TypeDelivery {
		return -t.OutValue
	}
	return t.InValue
}

// Quantity returns whichever of in_value/out_value is meaningful for the type.
func (t Transaction) Quantity() int {
	if t.Type == TypeDelivery {
		return t.OutValue
	}
	return t.InValue
}

// SetQuantity writes qty into the field that is meaningful for the type.
func (t *Transaction) SetQuantity(qty int) {
	if t.Type == TypeDelivery {
		t.OutValue = qty
		t.InValue = 0
		return
	}
	t.InValue = qty
	t.OutValue = 0
}

// TransactionFilter narrows a transaction listing. Zero values match everything.
type TransactionFilter struct {
	UserID    int64
	Type      TransactionType
	Status    Status
	NotStatus Status
}

func (f TransactionFilter) Match(t Transaction) bool {
	if f.UserID != 0 && t.UserID != f.UserID {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.NotStatus != "" && t.Status == f.NotStatus {
		return false
	}
	return true
}

// ApplyStatus moves t to next and adjusts item's stock on the edge into delivered.
// It returns the stock delta that was applied. Leaving delivered is rejected, and
// a delivered resubmission only restamps transaction_date.
func ApplyStatus(t *Transaction, item *InventoryItem, next Status, now time.Time, allowNegative bool) (int, error) {
	if !next.Valid() {
		return 0, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next)
	}
	if t.Status == StatusDelivered && next != StatusDelivered {
		return 0, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, next)
	}

	delta := 0
	if t.Status != StatusDelivered && next == StatusDelivered {
		delta = t.StockDelta()
		level := item.StockLevel + delta
		if level > MaxQuantity || level < MinStockLevel {
			return 0, fmt.Errorf("%w: item %d has %d, delta %d", ErrStockOverflow, item.ID, item.StockLevel, delta)
		}
		if level < 0 && !allowNegative {
			return 0, fmt.Errorf("%w: item %d has %d, delivery needs %d",
				ErrInsufficientStock, item.ID, item.StockLevel, -delta)
		}
		item.StockLevel = level
		item.UpdatedAt = now
		t.DeliveryDate = &now
	}

	t.Status = next
	t.TransactionDate = &now
	t.UpdatedAt = now
	return delta, nil
}
