package domain

import (
	"errors"
	"testing"
	"time"
)

func TestApplyStatus_InboundDelivered(t *testing.T) {
	now := time.Now()
	txn := &Transaction{Type: TypeInventoryManagement, Status: StatusPending, InValue: 50}
	item := &InventoryItem{ID: 1, StockLevel: 0}

	delta, err := ApplyStatus(txn, item, StatusDelivered, now, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delta != 50 {
		t.Errorf("expected delta 50, got %d", delta)
	}
	if item.StockLevel != 50 {
		t.Errorf("expected stock 50, got %d", item.StockLevel)
	}
	if txn.Status != StatusDelivered {
		t.Errorf("expected delivered, got %s", txn.Status)
	}
	if txn.DeliveryDate == nil || !txn.DeliveryDate.Equal(now) {
		t.Error("expected delivery_date to be stamped")
	}
}

func TestApplyStatus_OutboundDelivered(t *testing.T) {
	txn := &Transaction{Type: TypeDelivery, Status: StatusEnRoute, OutValue: 20}
	item := &InventoryItem{ID: 1, StockLevel: 50}

	if _, err := ApplyStatus(txn, item, StatusDelivered, time.Now(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.StockLevel != 30 {
		t.Errorf("expected stock 30, got %d", item.StockLevel)
	}
}

func TestApplyStatus_DeliveredTwiceAppliesOnce(t *testing.T) {
	txn := &Transaction{Type: TypeInventoryManagement, Status: StatusPending, InValue: 50}
	item := &InventoryItem{ID: 1}

	if _, err := ApplyStatus(txn, item, StatusDelivered, time.Now(), false); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	later := time.Now().Add(time.Minute)
	delta, err := ApplyStatus(txn, item, StatusDelivered, later, false)
	if err != nil {
		t.Fatalf("resubmission failed: %v", err)
	}
	if delta != 0 {
		t.Errorf("expected no delta on resubmission, got %d", delta)
	}
	if item.StockLevel != 50 {
		t.Errorf("expected stock 50, got %d", item.StockLevel)
	}
	if !txn.TransactionDate.Equal(later) {
		t.Error("expected transaction_date to be restamped")
	}
}

func TestApplyStatus_NonTerminalStampsDate(t *testing.T) {
	txn := &Transaction{Type: TypeDelivery, Status: StatusPending, OutValue: 5}
	item := &InventoryItem{ID: 1, StockLevel: 10}
	now := time.Now()

	delta, err := ApplyStatus(txn, item, StatusEnRoute, now, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delta != 0 || item.StockLevel != 10 {
		t.Errorf("expected untouched stock, got delta %d stock %d", delta, item.StockLevel)
	}
	if txn.TransactionDate == nil || !txn.TransactionDate.Equal(now) {
		t.Error("expected transaction_date to be stamped")
	}
	if txn.DeliveryDate != nil {
		t.Error("delivery_date must stay empty before delivery")
	}

	if _, err := ApplyStatus(txn, item, StatusPending, now, false); err != nil {
		t.Errorf("en_route -> pending should be allowed: %v", err)
	}
}

func TestApplyStatus_LeavingDeliveredRejected(t *testing.T) {
	txn := &Transaction{Type: TypeInventoryManagement, Status: StatusDelivered, InValue: 10}
	item := &InventoryItem{ID: 1, StockLevel: 10}

	for _, next := range []Status{StatusPending, StatusEnRoute} {
		_, err := ApplyStatus(txn, item, next, time.Now(), false)
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s: expected ErrInvalidTransition, got %v", next, err)
		}
	}
	if txn.Status != StatusDelivered || item.StockLevel != 10 {
		t.Error("rejected transition must not mutate")
	}
}

func TestApplyStatus_UnknownStatus(t *testing.T) {
	txn := &Transaction{Type: TypeDelivery, Status: StatusPending}
	_, err := ApplyStatus(txn, &InventoryItem{}, Status("completed"), time.Now(), false)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestApplyStatus_NegativeStockGuard(t *testing.T) {
	txn := &Transaction{Type: TypeDelivery, Status: StatusPending, OutValue: 20}
	item := &InventoryItem{ID: 7, StockLevel: 5}

	_, err := ApplyStatus(txn, item, StatusDelivered, time.Now(), false)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if item.StockLevel != 5 || txn.Status != StatusPending {
		t.Error("rejected delivery must not mutate")
	}

	if _, err := ApplyStatus(txn, item, StatusDelivered, time.Now(), true); err != nil {
		t.Fatalf("negative stock allowed by policy, got %v", err)
	}
	if item.StockLevel != -15 {
		t.Errorf("expected stock -15, got %d", item.StockLevel)
	}
}

func TestTransactionFilter_Match(t *testing.T) {
	txn := Transaction{UserID: 3, Type: TypeDelivery, Status: StatusEnRoute}

	cases := []struct {
		name   string
		filter TransactionFilter
		want   bool
	}{
		{"empty", TransactionFilter{}, true},
		{"owner", TransactionFilter{UserID: 3}, true},
		{"other owner", TransactionFilter{UserID: 4}, false},
		{"type", TransactionFilter{Type: TypeInventoryManagement}, false},
		{"status", TransactionFilter{Status: StatusEnRoute}, true},
		{"not status", TransactionFilter{NotStatus: StatusEnRoute}, false},
	}
	for _, tc := range cases {
		if got := tc.filter.Match(txn); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestApplyStatus_StockOverflow(t *testing.T) {
	inbound := &Transaction{Type: TypeInventoryManagement, Status: StatusPending, InValue: 1}
	full := &InventoryItem{ID: 3, StockLevel: MaxQuantity}

	if _, err := ApplyStatus(inbound, full, StatusDelivered, time.Now(), false); !errors.Is(err, ErrStockOverflow) {
		t.Fatalf("expected ErrStockOverflow, got %v", err)
	}
	if full.StockLevel != MaxQuantity || inbound.Status != StatusPending {
		t.Error("rejected delivery must not mutate")
	}

	outbound := &Transaction{Type: TypeDelivery, Status: StatusPending, OutValue: 1}
	empty := &InventoryItem{ID: 4, StockLevel: MinStockLevel}
	if _, err := ApplyStatus(outbound, empty, StatusDelivered, time.Now(), true); !errors.Is(err, ErrStockOverflow) {
		t.Fatalf("expected ErrStockOverflow with negative stock allowed, got %v", err)
	}
	if empty.StockLevel != MinStockLevel {
		t.Errorf("expected stock untouched, got %d", empty.StockLevel)
	}
}
