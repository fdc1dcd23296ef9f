package port

import (
	"context"

	"github.com/rl1809/supply-ledger/internal/core/domain"
)

type UserRepository interface {
	// CreateUser inserts u and fills its ID. Returns domain.ErrDuplicateEmail on a taken email.
	CreateUser(ctx context.Context, u *domain.User) error

	// GetUser returns domain.ErrNotFound when no user has id.
	GetUser(ctx context.Context, id int64) (*domain.User, error)

	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// UpdateUser persists name, email, role and password hash of u.
	UpdateUser(ctx context.Context, u *domain.User) error

	// DeleteUser removes the user and every transaction they own.
	DeleteUser(ctx context.Context, id int64) error

	ListUsersByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
}

type InventoryRepository interface {
	// CreateInventory inserts item and its initial orders in one unit of work,
	// filling IDs and pointing every order at the new item.
	CreateInventory(ctx context.Context, item *domain.InventoryItem, orders []domain.Transaction) error

	GetInventory(ctx context.Context, id int64) (*domain.InventoryItem, error)

	ListInventory(ctx context.Context) ([]domain.InventoryItem, error)

	// ListInventoryBelow returns items whose stock level is strictly below threshold.
	ListInventoryBelow(ctx context.Context, threshold int) ([]domain.InventoryItem, error)

	// UpdateInventoryDetails persists product name, description and price. Stock level is untouched.
	UpdateInventoryDetails(ctx context.Context, item *domain.InventoryItem) error

	// DeleteInventory removes the item and cascades to its transactions.
	DeleteInventory(ctx context.Context, id int64) error
}

// TransactionMutation edits a locked transaction and its inventory item.
// Returning an error aborts the unit of work without persisting anything.
type TransactionMutation func(t *domain.Transaction, item *domain.InventoryItem) error

type TransactionRepository interface {
	CreateTransaction(ctx context.Context, t *domain.Transaction) error

	GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error)

	ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error)

	// UpdateTransaction locks the transaction row and then its inventory row, runs
	// mutate and persists both atomically. Concurrent callers on the same id are serialized.
	UpdateTransaction(ctx context.Context, id int64, mutate TransactionMutation) (*domain.Transaction, *domain.InventoryItem, error)
}

// Store is the full persistence surface the services depend on.
type Store interface {
	UserRepository
	InventoryRepository
	TransactionRepository
}
