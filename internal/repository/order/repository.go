package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/nutra/internal/database"
	"github.com/Additional-Code/nutra/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/nutra/repository/order")

// ErrNotFound is returned when an order is missing.
var ErrNotFound = errors.New("order not found")

// Patch names the order fields a status-update caller wants changed; nil
// fields are left untouched.
type Patch struct {
	Status *string
	Notes  *string
}

// Empty reports whether the patch would touch no columns.
func (p Patch) Empty() bool {
	return p.Status == nil && p.Notes == nil
}

func (p Patch) apply(q *bun.UpdateQuery) *bun.UpdateQuery {
	if p.Status != nil {
		q = q.Set("status = ?", *p.Status)
	}
	if p.Notes != nil {
		q = q.Set("notes = ?", *p.Notes)
	}
	return q.Set("updated_at = ?", time.Now().UTC())
}

// Repository encapsulates read/write access for persisted orders. Order rows
// are only ever created by the checkout transaction; this repository serves
// reads and the status-update path.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// GetByID fetches an order with its line items.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).
		Relation("Items").
		Where("o.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// ListByUser returns a user's orders, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListByUser", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	var orders []*entity.Order
	q := r.reader.NewSelect().Model(&orders).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// List returns orders across all users, newest first. Staff only.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.List")
	defer span.End()

	var orders []*entity.Order
	q := r.reader.NewSelect().Model(&orders).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// Update applies a patch to one order, touching only supplied fields.
func (r *Repository) Update(ctx context.Context, id int64, patch Patch) error {
	if patch.Empty() {
		return nil
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Update", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	res, err := patch.apply(r.writer.NewUpdate().Model((*entity.Order)(nil))).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		span.SetStatus(codes.Error, "not found")
		return ErrNotFound
	}
	return nil
}
