package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Product is a sellable catalog item. Stock is decremented by checkout and
// never drops below zero.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID          int64           `bun:",pk,autoincrement"`
	Name        string          `bun:"name"`
	Slug        string          `bun:"slug"`
	Description string          `bun:"description"`
	Price       decimal.Decimal `bun:"price"`
	Stock       int             `bun:"stock"`
	Active      bool            `bun:"active"`
	CreatedAt   time.Time       `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time       `bun:"updated_at,nullzero"`
}
