package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rl1809/supply-ledger/internal/core/domain"
	"github.com/rl1809/supply-ledger/internal/port"
)

// MemoryStore is a process-local Store and TokenBlocklist. A single mutex
// serializes writers, which gives UpdateTransaction the same isolation as the
// row locks taken by MySQLAdapter.
type MemoryStore struct {
	mu sync.Mutex

	nextUser, nextItem, nextTxn int64

	users        map[int64]domain.User
	items        map[int64]domain.InventoryItem
	transactions map[int64]domain.Transaction
	revoked      map[string]time.Time

	now func() time.Time
}

var (
	_ port.Store          = (*MemoryStore)(nil)
	_ port.TokenBlocklist = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[int64]domain.User),
		items:        make(map[int64]domain.InventoryItem),
		transactions: make(map[int64]domain.Transaction),
		revoked:      make(map[string]time.Time),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) emailTaken(email string, except int64) bool {
	for id, u := range s.users {
		if id != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (s *MemoryStore) CreateUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emailTaken(u.Email, 0) {
		return domain.ErrDuplicateEmail
	}
	s.nextUser++
	now := s.now()
	u.ID = s.nextUser
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	return &u, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", email, domain.ErrNotFound)
}

func (s *MemoryStore) UpdateUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; !ok {
		return fmt.Errorf("user %d: %w", u.ID, domain.ErrNotFound)
	}
	if s.emailTaken(u.Email, u.ID) {
		return domain.ErrDuplicateEmail
	}
	u.UpdatedAt = s.now()
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryStore) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	delete(s.users, id)
	for tid, t := range s.transactions {
		if t.UserID == id {
			delete(s.transactions, tid)
		}
	}
	return nil
}

func (s *MemoryStore) ListUsersByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := []domain.User{}
	for _, u := range s.users {
		if u.Role == role {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func (s *MemoryStore) CreateInventory(_ context.Context, item *domain.InventoryItem, orders []domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range orders {
		if _, ok := s.users[o.UserID]; !ok {
			return fmt.Errorf("order owner %d: %w", o.UserID, domain.ErrNotFound)
		}
	}

	now := s.now()
	s.nextItem++
	item.ID = s.nextItem
	item.CreatedAt = now
	item.UpdatedAt = now
	s.items[item.ID] = *item

	for i := range orders {
		orders[i].InventoryID = item.ID
		s.insertTransaction(&orders[i], now)
	}
	return nil
}

func (s *MemoryStore) GetInventory(_ context.Context, id int64) (*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("inventory %d: %w", id, domain.ErrNotFound)
	}
	return &item, nil
}

func (s *MemoryStore) ListInventory(_ context.Context) ([]domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]domain.InventoryItem, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (s *MemoryStore) ListInventoryBelow(_ context.Context, threshold int) ([]domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := []domain.InventoryItem{}
	for _, item := range s.items {
		if item.StockLevel < threshold {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].StockLevel != items[j].StockLevel {
			return items[i].StockLevel < items[j].StockLevel
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (s *MemoryStore) UpdateInventoryDetails(_ context.Context, item *domain.InventoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.items[item.ID]
	if !ok {
		return fmt.Errorf("inventory %d: %w", item.ID, domain.ErrNotFound)
	}
	stored.ProductName = item.ProductName
	stored.Description = item.Description
	stored.Price = item.Price
	stored.UpdatedAt = s.now()
	s.items[item.ID] = stored

	item.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *MemoryStore) DeleteInventory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("inventory %d: %w", id, domain.ErrNotFound)
	}
	delete(s.items, id)
	for tid, t := range s.transactions {
		if t.InventoryID == id {
			delete(s.transactions, tid)
		}
	}
	return nil
}

func (s *MemoryStore) insertTransaction(t *domain.Transaction, now time.Time) {
	s.nextTxn++
	t.ID = s.nextTxn
	t.CreatedAt = now
	t.UpdatedAt = now
	s.transactions[t.ID] = *t
}

func (s *MemoryStore) CreateTransaction(_ context.Context, t *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[t.UserID]; !ok {
		return fmt.Errorf("user %d: %w", t.UserID, domain.ErrNotFound)
	}
	if _, ok := s.items[t.InventoryID]; !ok {
		return fmt.Errorf("inventory %d: %w", t.InventoryID, domain.ErrNotFound)
	}
	s.insertTransaction(t, s.now())
	return nil
}

func (s *MemoryStore) GetTransaction(_ context.Context, id int64) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[id]
	if !ok {
		return nil, fmt.Errorf("transaction %d: %w", id, domain.ErrNotFound)
	}
	return &t, nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txns := []domain.Transaction{}
	for _, t := range s.transactions {
		if filter.Match(t) {
			txns = append(txns, t)
		}
	}
	sort.Slice(txns, func(i, j int) bool { return txns[i].ID < txns[j].ID })
	return txns, nil
}

func (s *MemoryStore) UpdateTransaction(_ context.Context, id int64, mutate port.TransactionMutation) (*domain.Transaction, *domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[id]
	if !ok {
		return nil, nil, fmt.Errorf("transaction %d: %w", id, domain.ErrNotFound)
	}
	item, ok := s.items[t.InventoryID]
	if !ok {
		return nil, nil, fmt.Errorf("inventory %d: %w", t.InventoryID, domain.ErrNotFound)
	}

	// mutate works on copies so a failed mutation leaves the maps untouched.
	if err := mutate(&t, &item); err != nil {
		return nil, nil, err
	}
	s.transactions[id] = t
	s.items[item.ID] = item
	return &t, &item, nil
}

func (s *MemoryStore) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.revoked[tokenID]; !ok {
		s.revoked[tokenID] = s.now().Add(ttl)
	}
	return nil
}

func (s *MemoryStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	until, ok := s.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if !s.now().Before(until) {
		delete(s.revoked, tokenID)
		return false, nil
	}
	return true, nil
}
