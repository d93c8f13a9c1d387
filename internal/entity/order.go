package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Order statuses. New orders always start out pending; cancelled is reachable
// from any non-terminal status.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

// ValidStatus reports whether s is a member of the order status enumeration.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Order represents a purchase stored in the relational database. UserID is
// resolved before the row is written and is never null; guest contact fields
// from the request are staging data only and are not persisted here.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID              int64           `bun:",pk,autoincrement"`
	Number          string          `bun:"number"`
	UserID          int64           `bun:"user_id"`
	Phone           string          `bun:"phone"`
	Governorate     string          `bun:"governorate"`
	City            string          `bun:"city"`
	ShippingAddress string          `bun:"shipping_address"`
	PaymentMethod   string          `bun:"payment_method"`
	Notes           string          `bun:"notes"`
	Total           decimal.Decimal `bun:"total"`
	Status          string          `bun:"status"`
	CreatedAt       time.Time       `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time       `bun:"updated_at,nullzero"`

	Items []*OrderItem `bun:"rel:has-many,join:id=order_id"`
}

// OrderItem is one line of an order. Price is a snapshot taken at purchase
// time and does not follow later catalog price changes.
type OrderItem struct {
	bun.BaseModel `bun:"table:order_items,alias:oi"`

	ID        int64           `bun:",pk,autoincrement"`
	OrderID   int64           `bun:"order_id"`
	ProductID int64           `bun:"product_id"`
	Quantity  int             `bun:"quantity"`
	Price     decimal.Decimal `bun:"price"`
}
