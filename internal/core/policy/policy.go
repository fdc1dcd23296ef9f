// Package policy is the single table of which role may perform which operation.
package policy

import (
	"fmt"

	"github.com/rl1809/supply-ledger/internal/core/domain"
)

type Operation string

const (
	RegisterUser    Operation = "register_user"
	UpdateUser      Operation = "update_user"
	DeleteUser      Operation = "delete_user"
	ListInventory   Operation = "list_inventory"
	AddInventory    Operation = "add_inventory"
	UpdateInventory Operation = "update_inventory"
	DeleteInventory Operation = "delete_inventory"
	ExportInventory Operation = "export_inventory"
	ListOrders      Operation = "list_orders"
	CreateOrder     Operation = "create_order"
	UpdateOrder     Operation = "update_order"
	SupplierOrders  Operation = "supplier_orders"
	ListDeliveries  Operation = "list_deliveries"
	UpdateDelivery  Operation = "update_delivery"
	LowStockAlert   Operation = "low_stock_alert"
	Logout          Operation = "logout"
)

var everyone = []domain.Role{
	domain.RoleSystemAdministrator,
	domain.RoleWarehouseManager,
	domain.RoleSupplier,
	domain.RoleDeliveryDriver,
}

type rule struct {
	roles []domain.Role
	// scoped operations are further restricted to transactions the caller owns,
	// unless the caller is unrestricted (manager or administrator).
	scoped bool
}

var table = map[Operation]rule{
	RegisterUser:    {roles: []domain.Role{domain.RoleSystemAdministrator}},
	UpdateUser:      {roles: []domain.Role{domain.RoleSystemAdministrator}},
	DeleteUser:      {roles: []domain.Role{domain.RoleSystemAdministrator}},
	ListInventory:   {roles: everyone},
	AddInventory:    {roles: []domain.Role{domain.RoleWarehouseManager}},
	UpdateInventory: {roles: []domain.Role{domain.RoleWarehouseManager}},
	DeleteInventory: {roles: []domain.Role{domain.RoleWarehouseManager}},
	ExportInventory: {roles: []domain.Role{domain.RoleWarehouseManager}},
	ListOrders:      {roles: []domain.Role{domain.RoleWarehouseManager}},
	CreateOrder:     {roles: []domain.Role{domain.RoleWarehouseManager}},
	UpdateOrder:     {roles: []domain.Role{domain.RoleWarehouseManager}},
	SupplierOrders:  {roles: []domain.Role{domain.RoleSupplier}},
	ListDeliveries:  {roles: everyone, scoped: true},
	UpdateDelivery:  {roles: everyone, scoped: true},
	LowStockAlert:   {roles: []domain.Role{domain.RoleWarehouseManager}},
	Logout:          {roles: everyone},
}

// Allows reports whether role may invoke op at all. Unknown operations are denied.
func Allows(role domain.Role, op Operation) bool {
	r, ok := table[op]
	if !ok {
		return false
	}
	for _, allowed := range r.roles {
		if allowed == role {
			return true
		}
	}
	return false
}

// Authorize is Allows returning domain.ErrForbidden on denial.
func Authorize(user domain.User, op Operation) error {
	if !Allows(user.Role, op) {
		return fmt.Errorf("%w: %s may not %s", domain.ErrForbidden, user.Role, op)
	}
	return nil
}

// Unrestricted reports whether role bypasses ownership scoping.
func Unrestricted(role domain.Role) bool {
	return role == domain.RoleWarehouseManager || role == domain.RoleSystemAdministrator
}

// Scope returns the filter limiting a scoped listing to what user may see.
func Scope(user domain.User) domain.TransactionFilter {
	switch user.Role {
	case domain.RoleDeliveryDriver:
		return domain.TransactionFilter{UserID: user.ID, Type: domain.TypeDelivery}
	case domain.RoleSupplier:
		return domain.TransactionFilter{UserID: user.ID, Type: domain.TypeInventoryManagement}
	}
	return domain.TransactionFilter{}
}

// AuthorizeOn checks op against a specific transaction, applying ownership scope.
func AuthorizeOn(user domain.User, op Operation, t domain.Transaction) error {
	if err := Authorize(user, op); err != nil {
		return err
	}
	r := table[op]
	if !r.scoped || Unrestricted(user.Role) {
		return nil
	}
	if Scope(user).Match(t) {
		return nil
	}
	return fmt.Errorf("%w: user %d does not own transaction %d", domain.ErrForbidden, user.ID, t.ID)
}
