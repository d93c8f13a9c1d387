package order

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/nutra/internal/entity"
	repo "github.com/Additional-Code/nutra/internal/repository/order"
	"github.com/Additional-Code/nutra/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/nutra/service/order")

// Service serves order reads and the staff status-update path. Orders are
// only ever created by the checkout service.
type Service struct {
	repo   *repo.Repository
	logger *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{repo: p.Repository, logger: p.Logger}
}

// Get retrieves an order with its line items.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}
	return order, nil
}

// ListByUser returns one user's orders, newest first.
func (s *Service) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ListByUser", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	orders, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list orders", errorbank.WithCause(err))
	}
	return orders, nil
}

// List returns orders across all users. Staff only; the transport layer
// performs the capability check.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.List")
	defer span.End()

	orders, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list orders", errorbank.WithCause(err))
	}
	return orders, nil
}

// UpdateStatus moves an order to a new status. Validation is membership in
// the status enumeration; no transition graph is enforced beyond that.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) error {
	if !entity.ValidStatus(status) {
		return errorbank.BadRequest(fmt.Sprintf("unknown order status %q", status))
	}

	ctx, span := serviceTracer.Start(ctx, "OrderService.UpdateStatus", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.status", status),
	))
	defer span.End()

	if err := s.repo.Update(ctx, id, repo.Patch{Status: &status}); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to update order", errorbank.WithCause(err))
	}

	s.logger.Info("order status updated", zap.Int64("id", id), zap.String("status", status))
	return nil
}
