package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Roles known to the storefront.
const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
	RoleCustomer = "customer"
)

// User is an account holder. Checkout may create one on the fly for guests.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64     `bun:",pk,autoincrement"`
	Name         string    `bun:"name"`
	Email        string    `bun:"email"`
	Phone        string    `bun:"phone"`
	PasswordHash string    `bun:"password_hash"`
	Role         string    `bun:"role"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero"`
}

// IsStaff reports whether the user may act on other customers' orders.
func (u *User) IsStaff() bool {
	return u != nil && (u.Role == RoleAdmin || u.Role == RoleEmployee)
}

// StaffRole reports whether a role string carries staff privileges.
func StaffRole(role string) bool {
	return role == RoleAdmin || role == RoleEmployee
}
