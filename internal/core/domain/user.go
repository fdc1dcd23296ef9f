package domain

import "time"

type Role string

const (
	RoleSystemAdministrator Role = "system_administrator"
	RoleWarehouseManager    Role = "warehouse_manager"
	RoleSupplier            Role = "supplier"
	RoleDeliveryDriver      Role = "delivery_driver"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSystemAdministrator, RoleWarehouseManager, RoleSupplier, RoleDeliveryDriver:
		return true
	}
	return false
}

type User struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"user_type" json:"user_type"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Claims is the authenticated identity carried by an access token.
type Claims struct {
	TokenID   string
	UserID    int64
	Role      Role
	ExpiresAt time.Time
}
