package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rl1809/supply-ledger/internal/adapter/storage"
	"github.com/rl1809/supply-ledger/internal/core/domain"
	"github.com/rl1809/supply-ledger/internal/metrics"
)

// mockPublisher records published events and can be told to fail.
type mockPublisher struct {
	mu     sync.Mutex
	events []domain.StockEvent
	err    error
}

func (m *mockPublisher) PublishStockAdjusted(_ context.Context, e domain.StockEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

func (m *mockPublisher) published() []domain.StockEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.StockEvent(nil), m.events...)
}

type testEnv struct {
	store     *storage.MemoryStore
	events    *mockPublisher
	collector *metrics.Collector
	users     *UserService
	inventory *InventoryService
	ledger    *LedgerService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := storage.NewMemoryStore()
	events := &mockPublisher{}
	collector := metrics.NewCollector(prometheus.NewRegistry())
	log := zap.NewNop()

	users := NewUserService(store, log)
	users.bcryptCost = bcrypt.MinCost

	return &testEnv{
		store:     store,
		events:    events,
		collector: collector,
		users:     users,
		inventory: NewInventoryService(store, log),
		ledger:    NewLedgerService(store, events, collector, log, false),
	}
}

func (e *testEnv) user(t *testing.T, name string, role domain.Role) domain.User {
	t.Helper()
	u, err := e.users.Register(context.Background(), RegisterInput{
		Name:                 name,
		Email:                name + "@test.local",
		Password:             "password123",
		PasswordConfirmation: "password123",
		UserType:             role,
	})
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return *u
}

func (e *testEnv) item(t *testing.T, stock int) domain.InventoryItem {
	t.Helper()
	item := &domain.InventoryItem{ProductName: "Widget", StockLevel: stock}
	if err := e.store.CreateInventory(context.Background(), item, nil); err != nil {
		t.Fatalf("create item: %v", err)
	}
	return *item
}

func (e *testEnv) txn(t *testing.T, owner domain.User, item domain.InventoryItem, typ domain.TransactionType, qty int) domain.Transaction {
	t.Helper()
	txn := domain.Transaction{UserID: owner.ID, InventoryID: item.ID, Type: typ, Status: domain.StatusPending}
	txn.SetQuantity(qty)
	if err := e.store.CreateTransaction(context.Background(), &txn); err != nil {
		t.Fatalf("create txn: %v", err)
	}
	return txn
}

func (e *testEnv) stock(t *testing.T, id int64) int {
	t.Helper()
	item, err := e.store.GetInventory(context.Background(), id)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	return item.StockLevel
}

func validationFields(t *testing.T, err error) map[string][]string {
	t.Helper()
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *domain.ValidationError, got %v", err)
	}
	return verr.Fields
}
