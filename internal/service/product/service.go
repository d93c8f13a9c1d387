package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/nutra/internal/cache"
	"github.com/Additional-Code/nutra/internal/config"
	"github.com/Additional-Code/nutra/internal/entity"
	repo "github.com/Additional-Code/nutra/internal/repository/product"
	"github.com/Additional-Code/nutra/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/nutra/service/product")

// CacheKey returns the cache key for a single product. Checkout invalidates
// these after stock decrements.
func CacheKey(id int64) string {
	return fmt.Sprintf("products:%d", id)
}

// ListCacheKey returns the cache key for the active catalog listing.
func ListCacheKey() string {
	return "products:active"
}

// Service encapsulates catalog business logic.
type Service struct {
	repo     *repo.Repository
	cache    cache.Store
	cacheTTL time.Duration
	logger   *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Cache      cache.Store
	Config     config.Config
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:     p.Repository,
		cache:    p.Cache,
		cacheTTL: p.Config.Cache.DefaultTTL,
		logger:   p.Logger,
	}
}

// Get retrieves a product by id, consulting cache when available.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Product, error) {
	ctx, span := serviceTracer.Start(ctx, "ProductService.Get", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	if product, err := s.getFromCache(ctx, id); err == nil {
		return product, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("products cache read failed", zap.Int64("id", id), zap.Error(err))
	}

	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("product not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load product", errorbank.WithCause(err))
	}

	if err := s.storeInCache(ctx, product); err != nil {
		s.logger.Warn("products cache write failed", zap.Int64("id", id), zap.Error(err))
	}

	return product, nil
}

// List returns catalog products, active ones only for storefront callers.
func (s *Service) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*entity.Product, error) {
	ctx, span := serviceTracer.Start(ctx, "ProductService.List")
	defer span.End()

	products, err := s.repo.List(ctx, activeOnly, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list products", errorbank.WithCause(err))
	}
	return products, nil
}

// Create persists a new catalog product.
func (s *Service) Create(ctx context.Context, product *entity.Product) error {
	if product == nil {
		return errorbank.BadRequest("product payload is required")
	}
	if product.Name == "" || product.Slug == "" {
		return errorbank.BadRequest("name and slug are required")
	}
	if product.Price.IsNegative() {
		return errorbank.BadRequest("price must not be negative")
	}
	if product.Stock < 0 {
		return errorbank.BadRequest("stock must not be negative")
	}
	if product.CreatedAt.IsZero() {
		now := time.Now().UTC()
		product.CreatedAt = now
		product.UpdatedAt = now
	}

	ctx, span := serviceTracer.Start(ctx, "ProductService.Create", trace.WithAttributes(attribute.String("product.slug", product.Slug)))
	defer span.End()

	if err := s.repo.Create(ctx, product); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to create product", errorbank.WithCause(err))
	}

	s.invalidate(ctx, product.ID)
	return nil
}

// Update applies a patch, touching only the fields the caller supplied.
func (s *Service) Update(ctx context.Context, id int64, patch repo.Patch) error {
	if patch.Empty() {
		return errorbank.BadRequest("no fields to update")
	}
	if patch.Price != nil && patch.Price.IsNegative() {
		return errorbank.BadRequest("price must not be negative")
	}
	if patch.Stock != nil && *patch.Stock < 0 {
		return errorbank.BadRequest("stock must not be negative")
	}

	ctx, span := serviceTracer.Start(ctx, "ProductService.Update", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	if err := s.repo.Update(ctx, id, patch); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return errorbank.NotFound("product not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to update product", errorbank.WithCause(err))
	}

	s.invalidate(ctx, id)
	return nil
}

func (s *Service) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, CacheKey(id)); err != nil {
		s.logger.Warn("products cache invalidation failed", zap.Int64("id", id), zap.Error(err))
	}
	if err := s.cache.Delete(ctx, ListCacheKey()); err != nil {
		s.logger.Warn("products list cache invalidation failed", zap.Error(err))
	}
}

func (s *Service) getFromCache(ctx context.Context, id int64) (*entity.Product, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, CacheKey(id))
	if err != nil {
		return nil, err
	}
	var product entity.Product
	if err := json.Unmarshal(bytes, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *Service) storeInCache(ctx context.Context, product *entity.Product) error {
	if s.cache == nil || product == nil {
		return nil
	}
	bytes, err := json.Marshal(product)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, CacheKey(product.ID), bytes, s.cacheTTL)
}
