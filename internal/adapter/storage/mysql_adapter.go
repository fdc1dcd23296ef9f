package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/rl1809/supply-ledger/internal/core/domain"
	"github.com/rl1809/supply-ledger/internal/port"
)

const errDuplicateEntry = 1062

const (
	userColumns        = `id, name, email, password_hash, user_type, created_at, updated_at`
	inventoryColumns   = `id, product_name, description, stock_level, price, created_at, updated_at`
	transactionColumns = `id, user_id, inventory_id, transaction_type, status, in_value, out_value,
		order_date, transaction_date, delivery_date, created_at, updated_at`
)

type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// OpenMySQL connects to dsn with time parsing and found-rows semantics forced on,
// so that RowsAffected reports matched rows rather than changed rows.
func OpenMySQL(ctx context.Context, dsn string, opts PoolOptions) (*sqlx.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	cfg.Loc = time.UTC

	db, err := sqlx.ConnectContext(ctx, "mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	return db, nil
}

type MySQLAdapter struct {
	db *sqlx.DB
}

var _ port.Store = (*MySQLAdapter)(nil)

func NewMySQLAdapter(db *sqlx.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errDuplicateEntry
}

func notFound(err error, what string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", what, id, domain.ErrNotFound)
	}
	return fmt.Errorf("query %s %d: %w", what, id, err)
}

func expectRow(result sql.Result, what string, id int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %d: %w", what, id, domain.ErrNotFound)
	}
	return nil
}

func (m *MySQLAdapter) CreateUser(ctx context.Context, u *domain.User) error {
	now := time.Now().UTC()
	result, err := m.db.ExecContext(ctx, `
		INSERT INTO users (name, email, password_hash, user_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.Name, u.Email, u.PasswordHash, u.Role, now, now,
	)
	if isDuplicate(err) {
		return domain.ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	u.ID = id
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

func (m *MySQLAdapter) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	err := m.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return &u, nil
}

func (m *MySQLAdapter) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := m.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", email, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	return &u, nil
}

func (m *MySQLAdapter) UpdateUser(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now().UTC()
	result, err := m.db.ExecContext(ctx, `
		UPDATE users
		SET name = ?, email = ?, password_hash = ?, user_type = ?, updated_at = ?
		WHERE id = ?`,
		u.Name, u.Email, u.PasswordHash, u.Role, u.UpdatedAt, u.ID,
	)
	if isDuplicate(err) {
		return domain.ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return expectRow(result, "user", u.ID)
}

// DeleteUser removes the user and, through the foreign key, every transaction
// they own. See deleteParent for the lock order.
func (m *MySQLAdapter) DeleteUser(ctx context.Context, id int64) error {
	return m.deleteParent(ctx, "user", `DELETE FROM users WHERE id = ?`,
		`SELECT id FROM transactions WHERE user_id = ? ORDER BY id FOR UPDATE`, id)
}

func (m *MySQLAdapter) ListUsersByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	users := []domain.User{}
	err := m.db.SelectContext(ctx, &users,
		`SELECT `+userColumns+` FROM users WHERE user_type = ? ORDER BY name, id`, role)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (m *MySQLAdapter) CreateInventory(ctx context.Context, item *domain.InventoryItem, orders []domain.Transaction) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, `
		INSERT INTO inventories (product_name, description, stock_level, price, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		item.ProductName, item.Description, item.StockLevel, item.Price, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert inventory: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}

	for i := range orders {
		orders[i].InventoryID = id
		if err := insertTransaction(ctx, tx, &orders[i], now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	item.ID = id
	item.CreatedAt = now
	item.UpdatedAt = now
	return nil
}

func (m *MySQLAdapter) GetInventory(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := m.db.GetContext(ctx, &item, `SELECT `+inventoryColumns+` FROM inventories WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err, "inventory", id)
	}
	return &item, nil
}

func (m *MySQLAdapter) ListInventory(ctx context.Context) ([]domain.InventoryItem, error) {
	items := []domain.InventoryItem{}
	if err := m.db.SelectContext(ctx, &items, `SELECT `+inventoryColumns+` FROM inventories ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	return items, nil
}

func (m *MySQLAdapter) ListInventoryBelow(ctx context.Context, threshold int) ([]domain.InventoryItem, error) {
	items := []domain.InventoryItem{}
	err := m.db.SelectContext(ctx, &items,
		`SELECT `+inventoryColumns+` FROM inventories WHERE stock_level < ? ORDER BY stock_level, id`, threshold)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	return items, nil
}

func (m *MySQLAdapter) UpdateInventoryDetails(ctx context.Context, item *domain.InventoryItem) error {
	item.UpdatedAt = time.Now().UTC()
	result, err := m.db.ExecContext(ctx, `
		UPDATE inventories
		SET product_name = ?, description = ?, price = ?, updated_at = ?
		WHERE id = ?`,
		item.ProductName, item.Description, item.Price, item.UpdatedAt, item.ID,
	)
	if err != nil {
		return fmt.Errorf("update inventory: %w", err)
	}
	return expectRow(result, "inventory", item.ID)
}

func (m *MySQLAdapter) DeleteInventory(ctx context.Context, id int64) error {
	return m.deleteParent(ctx, "inventory", `DELETE FROM inventories WHERE id = ?`,
		`SELECT id FROM transactions WHERE inventory_id = ? ORDER BY id FOR UPDATE`, id)
}

// deleteParent locks the child transaction rows in id order before deleting
// the parent row, so the cascade never holds a parent lock while waiting on a
// transaction row that UpdateTransaction has already locked.
func (m *MySQLAdapter) deleteParent(ctx context.Context, what, deleteQuery, lockChildren string, id int64) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var locked []int64
	if err := tx.SelectContext(ctx, &locked, lockChildren, id); err != nil {
		return fmt.Errorf("lock %s transactions: %w", what, err)
	}

	result, err := tx.ExecContext(ctx, deleteQuery, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", what, err)
	}
	if err := expectRow(result, what, id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertTransaction(ctx context.Context, ex sqlx.ExecerContext, t *domain.Transaction, now time.Time) error {
	result, err := ex.ExecContext(ctx, `
		INSERT INTO transactions (user_id, inventory_id, transaction_type, status, in_value, out_value,
			order_date, transaction_date, delivery_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.InventoryID, t.Type, t.Status, t.InValue, t.OutValue,
		t.OrderDate, t.TransactionDate, t.DeliveryDate, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	t.ID = id
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

func (m *MySQLAdapter) CreateTransaction(ctx context.Context, t *domain.Transaction) error {
	return insertTransaction(ctx, m.db, t, time.Now().UTC())
}

func (m *MySQLAdapter) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	var t domain.Transaction
	err := m.db.GetContext(ctx, &t, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err, "transaction", id)
	}
	return &t, nil
}

func (m *MySQLAdapter) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != 0 {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Type != "" {
		where = append(where, "transaction_type = ?")
		args = append(args, filter.Type)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.NotStatus != "" {
		where = append(where, "status <> ?")
		args = append(args, filter.NotStatus)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id`

	txns := []domain.Transaction{}
	if err := m.db.SelectContext(ctx, &txns, query, args...); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txns, nil
}

// UpdateTransaction locks the transaction row before the inventory row. The
// delete paths lock transaction rows before their parent as well, so no writer
// takes these locks in the opposite order.
func (m *MySQLAdapter) UpdateTransaction(ctx context.Context, id int64, mutate port.TransactionMutation) (*domain.Transaction, *domain.InventoryItem, error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var t domain.Transaction
	err = tx.GetContext(ctx, &t, `SELECT `+transactionColumns+` FROM transactions WHERE id = ? FOR UPDATE`, id)
	if err != nil {
		return nil, nil, notFound(err, "transaction", id)
	}

	var item domain.InventoryItem
	err = tx.GetContext(ctx, &item, `SELECT `+inventoryColumns+` FROM inventories WHERE id = ? FOR UPDATE`, t.InventoryID)
	if err != nil {
		return nil, nil, notFound(err, "inventory", t.InventoryID)
	}

	stockBefore := item.StockLevel
	if err := mutate(&t, &item); err != nil {
		return nil, nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE transactions
		SET status = ?, in_value = ?, out_value = ?, order_date = ?,
			transaction_date = ?, delivery_date = ?, updated_at = ?
		WHERE id = ?`,
		t.Status, t.InValue, t.OutValue, t.OrderDate,
		t.TransactionDate, t.DeliveryDate, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("update transaction: %w", err)
	}

	if item.StockLevel != stockBefore {
		_, err = tx.ExecContext(ctx, `
			UPDATE inventories SET stock_level = ?, updated_at = ? WHERE id = ?`,
			item.StockLevel, item.UpdatedAt, item.ID,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("update stock: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}
	return &t, &item, nil
}
