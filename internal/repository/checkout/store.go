package checkout

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/Additional-Code/nutra/internal/database"
	"github.com/Additional-Code/nutra/internal/entity"
)

var storeTracer = otel.Tracer("github.com/Additional-Code/nutra/repository/checkout")

// Sentinel errors surfaced to the checkout service for translation into
// caller-facing failures.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Tx is the set of data operations available inside one checkout
// transaction. Every method runs on the same underlying database
// transaction; a returned error aborts and rolls back the whole unit.
type Tx interface {
	UserByEmail(ctx context.Context, email string) (*entity.User, error)
	InsertUser(ctx context.Context, user *entity.User) error
	ProductForUpdate(ctx context.Context, id int64) (*entity.Product, error)
	InsertOrder(ctx context.Context, order *entity.Order) error
	InsertOrderItems(ctx context.Context, items []*entity.OrderItem) error
	DecrementStock(ctx context.Context, productID int64, quantity int) error
}

// Store opens checkout transactions. The connection backing a transaction is
// acquired once per call and released on every exit path by RunInTx.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type bunStore struct {
	db *bun.DB
}

// NewStore wires a Store on the writer connection; checkout never reads from
// a replica because stock validation must see committed truth under lock.
func NewStore(conns *database.Connections) Store {
	return &bunStore{db: conns.Writer}
}

func (s *bunStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	ctx, span := storeTracer.Start(ctx, "CheckoutStore.InTx")
	defer span.End()

	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &bunTx{tx: tx})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction aborted")
	}
	return err
}

type bunTx struct {
	tx bun.Tx
}

func (t *bunTx) UserByEmail(ctx context.Context, email string) (*entity.User, error) {
	user := new(entity.User)
	err := t.tx.NewSelect().Model(user).Where("email = ?", email).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (t *bunTx) InsertUser(ctx context.Context, user *entity.User) error {
	_, err := t.tx.NewInsert().Model(user).Exec(ctx)
	return err
}

// ProductForUpdate locks the product row for the duration of the
// transaction so concurrent decrements on the same product serialize.
func (t *bunTx) ProductForUpdate(ctx context.Context, id int64) (*entity.Product, error) {
	product := new(entity.Product)
	err := t.tx.NewSelect().Model(product).
		Where("p.id = ?", id).
		For("UPDATE").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (t *bunTx) InsertOrder(ctx context.Context, order *entity.Order) error {
	_, err := t.tx.NewInsert().Model(order).Exec(ctx)
	return err
}

func (t *bunTx) InsertOrderItems(ctx context.Context, items []*entity.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	_, err := t.tx.NewInsert().Model(&items).Exec(ctx)
	return err
}

// DecrementStock subtracts quantity from a product's stock. The predicate
// keeps stock non-negative even if a caller skipped the row lock.
func (t *bunTx) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	res, err := t.tx.NewUpdate().Model((*entity.Product)(nil)).
		Set("stock = stock - ?", quantity).
		Where("id = ? AND stock >= ?", productID, quantity).
		Exec(ctx)
	if err != nil {
		return err
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrInsufficientStock
	}
	return nil
}
