package storage

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rl1809/supply-ledger/internal/core/domain"
)

func seedMemory(t *testing.T, s *MemoryStore) (*domain.User, *domain.InventoryItem) {
	t.Helper()
	ctx := context.Background()
	driver := &domain.User{Name: "Dee", Email: "dee@test.local", Role: domain.RoleDeliveryDriver}
	if err := s.CreateUser(ctx, driver); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	item := &domain.InventoryItem{ProductName: "Crate", StockLevel: 100}
	if err := s.CreateInventory(ctx, item, nil); err != nil {
		t.Fatalf("CreateInventory failed: %v", err)
	}
	return driver, item
}

func TestMemoryCreateUser_DuplicateEmailIgnoresCase(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.CreateUser(ctx, &domain.User{Email: "a@b.c"}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if err := s.CreateUser(ctx, &domain.User{Email: "A@B.C"}); !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestMemoryUpdateTransaction_ConcurrentDeliveredAppliesOnce(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	driver, item := seedMemory(t, s)

	txn := &domain.Transaction{
		UserID: driver.ID, InventoryID: item.ID, Type: domain.TypeDelivery,
		Status: domain.StatusEnRoute, OutValue: 30,
	}
	if err := s.CreateTransaction(ctx, txn); err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}

	var (
		wg      sync.WaitGroup
		applied atomic.Int32
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.UpdateTransaction(ctx, txn.ID, func(tr *domain.Transaction, it *domain.InventoryItem) error {
				delta, err := domain.ApplyStatus(tr, it, domain.StatusDelivered, time.Now(), false)
				if delta != 0 {
					applied.Add(1)
				}
				return err
			})
			if err != nil {
				t.Errorf("UpdateTransaction failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if applied.Load() != 1 {
		t.Errorf("expected the delta to be applied once, got %d", applied.Load())
	}
	got, _ := s.GetInventory(ctx, item.ID)
	if got.StockLevel != 70 {
		t.Errorf("expected stock 70, got %d", got.StockLevel)
	}
}

func TestMemoryUpdateTransaction_MutationErrorLeavesState(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	driver, item := seedMemory(t, s)

	txn := &domain.Transaction{UserID: driver.ID, InventoryID: item.ID, Type: domain.TypeDelivery, Status: domain.StatusPending}
	if err := s.CreateTransaction(ctx, txn); err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}

	boom := errors.New("boom")
	_, _, err := s.UpdateTransaction(ctx, txn.ID, func(tr *domain.Transaction, it *domain.InventoryItem) error {
		it.StockLevel = 0
		tr.Status = domain.StatusDelivered
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected mutation error, got %v", err)
	}

	gotTxn, _ := s.GetTransaction(ctx, txn.ID)
	gotItem, _ := s.GetInventory(ctx, item.ID)
	if gotTxn.Status != domain.StatusPending || gotItem.StockLevel != 100 {
		t.Errorf("state changed after failed mutation: %s %d", gotTxn.Status, gotItem.StockLevel)
	}
}

func TestMemoryCreateTransaction_UnknownReferences(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	driver, item := seedMemory(t, s)

	err := s.CreateTransaction(ctx, &domain.Transaction{UserID: 999, InventoryID: item.ID})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown user, got %v", err)
	}
	err = s.CreateTransaction(ctx, &domain.Transaction{UserID: driver.ID, InventoryID: 999})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown item, got %v", err)
	}
}

func TestMemoryDelete_Cascades(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	driver, item := seedMemory(t, s)

	txn := &domain.Transaction{UserID: driver.ID, InventoryID: item.ID, Type: domain.TypeDelivery}
	if err := s.CreateTransaction(ctx, txn); err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}

	if err := s.DeleteUser(ctx, driver.ID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if _, err := s.GetTransaction(ctx, txn.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected transaction removed with its owner, got %v", err)
	}

	if err := s.DeleteInventory(ctx, item.ID); err != nil {
		t.Fatalf("DeleteInventory failed: %v", err)
	}
	if err := s.DeleteInventory(ctx, item.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryListInventoryBelow(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for _, level := range []int{12, 3, 10, 0, 9} {
		if err := s.CreateInventory(ctx, &domain.InventoryItem{StockLevel: level}, nil); err != nil {
			t.Fatalf("CreateInventory failed: %v", err)
		}
	}

	items, err := s.ListInventoryBelow(ctx, domain.LowStockThreshold)
	if err != nil {
		t.Fatalf("ListInventoryBelow failed: %v", err)
	}
	want := []int{0, 3, 9}
	if len(items) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(items))
	}
	for i, level := range want {
		if items[i].StockLevel != level {
			t.Errorf("item %d: expected level %d, got %d", i, level, items[i].StockLevel)
		}
	}
}

func TestMemoryRevoke_Expires(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	clock := time.Now()
	s.now = func() time.Time { return clock }

	if err := s.Revoke(ctx, "jti", time.Minute); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if revoked, _ := s.IsRevoked(ctx, "jti"); !revoked {
		t.Error("expected revoked")
	}

	clock = clock.Add(2 * time.Minute)
	if revoked, _ := s.IsRevoked(ctx, "jti"); revoked {
		t.Error("revocation should lapse with the token")
	}
}
