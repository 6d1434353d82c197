package models

import (
	"time"
)

// Role определяет класс пользователя магазина.
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleWholesale  Role = "wholesale"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// IsAdmin сообщает, обладает ли роль административными правами.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// User представляет пользователя системы.
type User struct {
	ID                int64     `db:"id"`
	Email             string    `db:"email"`
	PasswordHash      string    `db:"password_hash"`
	Name              string    `db:"name"`
	Role              Role      `db:"role"`
	WholesaleApproved bool      `db:"wholesale_approved"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// CartItem - строка корзины пользователя.
type CartItem struct {
	ID        int64 `db:"id"`
	UserID    int64 `db:"user_id"`
	ProductID int64 `db:"product_id"`
	Quantity  int   `db:"quantity"`
}
