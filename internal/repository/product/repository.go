package product

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/nutra/internal/database"
	"github.com/Additional-Code/nutra/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/nutra/repository/product")

// ErrNotFound is returned when a product is missing.
var ErrNotFound = errors.New("product not found")

// Patch names the product fields a caller wants changed; nil fields are left
// untouched. A single builder translates it into the UPDATE statement.
type Patch struct {
	Name        *string
	Slug        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	Active      *bool
}

// Empty reports whether the patch would touch no columns.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Slug == nil && p.Description == nil &&
		p.Price == nil && p.Stock == nil && p.Active == nil
}

func (p Patch) apply(q *bun.UpdateQuery) *bun.UpdateQuery {
	if p.Name != nil {
		q = q.Set("name = ?", *p.Name)
	}
	if p.Slug != nil {
		q = q.Set("slug = ?", *p.Slug)
	}
	if p.Description != nil {
		q = q.Set("description = ?", *p.Description)
	}
	if p.Price != nil {
		q = q.Set("price = ?", *p.Price)
	}
	if p.Stock != nil {
		q = q.Set("stock = ?", *p.Stock)
	}
	if p.Active != nil {
		q = q.Set("active = ?", *p.Active)
	}
	return q.Set("updated_at = ?", time.Now().UTC())
}

// Repository encapsulates read/write access for products.
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

// Create persists a new product using the write connection.
func (r *Repository) Create(ctx context.Context, product *entity.Product) error {
	if product == nil {
		return errors.New("nil product")
	}
	ctx, span := repoTracer.Start(ctx, "ProductRepository.Create", trace.WithAttributes(attribute.String("product.slug", product.Slug)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(product).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches a product by primary key using the read replica when available.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Product, error) {
	ctx, span := repoTracer.Start(ctx, "ProductRepository.GetByID", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	product := new(entity.Product)
	err := r.reader.NewSelect().Model(product).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return product, nil
}

// List returns catalog products, optionally restricted to active ones.
func (r *Repository) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*entity.Product, error) {
	ctx, span := repoTracer.Start(ctx, "ProductRepository.List")
	defer span.End()

	var products []*entity.Product
	q := r.reader.NewSelect().Model(&products).Order("id ASC")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
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
	return products, nil
}

// Update applies a patch to one product, touching only supplied fields.
func (r *Repository) Update(ctx context.Context, id int64, patch Patch) error {
	if patch.Empty() {
		return nil
	}
	ctx, span := repoTracer.Start(ctx, "ProductRepository.Update", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	res, err := patch.apply(r.writer.NewUpdate().Model((*entity.Product)(nil))).
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
