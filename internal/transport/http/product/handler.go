package product

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/nutra/internal/auth"
	"github.com/Additional-Code/nutra/internal/config"
	"github.com/Additional-Code/nutra/internal/dto"
	"github.com/Additional-Code/nutra/internal/entity"
	"github.com/Additional-Code/nutra/internal/presentation/http/response"
	repo "github.com/Additional-Code/nutra/internal/repository/product"
	service "github.com/Additional-Code/nutra/internal/service/product"
	"github.com/Additional-Code/nutra/internal/transport/http/middleware"
	"github.com/Additional-Code/nutra/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/nutra/transport/http/product")

// Handler exposes catalog endpoints over HTTP.
type Handler struct {
	svc   *service.Service
	debug bool
}

// NewHandler constructs a product Handler.
func NewHandler(svc *service.Service, cfg config.Config) *Handler {
	return &Handler{svc: svc, debug: !cfg.App.Production()}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/products")
	g.GET("", h.list)
	g.GET("/:id", h.getByID)
	g.POST("", h.create, middleware.Require(auth.ActionManageProducts))
	g.PATCH("/:id", h.update, middleware.Require(auth.ActionManageProducts))
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c).WithDebug(h.debug)

	// Staff see the full catalog; storefront callers only active items.
	activeOnly := true
	if claims := middleware.ClaimsFrom(c); claims != nil && auth.Allowed(claims.Role, auth.ActionManageProducts) {
		activeOnly = false
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "products.list")
	defer span.End()

	products, err := h.svc.List(ctx, activeOnly, limit, offset)
	if err != nil {
		return b.WithError(err).Build()
	}

	out := make([]dto.ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toDTO(p))
	}
	return b.WithData(out).WithMeta("count", len(out)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c).WithDebug(h.debug)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "products.getByID", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	product, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toDTO(product)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c).WithDebug(h.debug)

	var payload dto.CreateProductRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	active := true
	if payload.Active != nil {
		active = *payload.Active
	}
	product := &entity.Product{
		Name:        payload.Name,
		Slug:        payload.Slug,
		Description: payload.Description,
		Price:       decimal.NewFromFloat(payload.Price),
		Stock:       payload.Stock,
		Active:      active,
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "products.create", trace.WithAttributes(attribute.String("product.slug", product.Slug)))
	defer span.End()

	if err := h.svc.Create(ctx, product); err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).
		WithMessage("product created").
		WithData(toDTO(product)).
		Build()
}

func (h *Handler) update(c echo.Context) error {
	b := response.New(c).WithDebug(h.debug)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	var payload dto.PatchProductRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	patch := repo.Patch{
		Name:        payload.Name,
		Slug:        payload.Slug,
		Description: payload.Description,
		Stock:       payload.Stock,
		Active:      payload.Active,
	}
	if payload.Price != nil {
		price := decimal.NewFromFloat(*payload.Price)
		patch.Price = &price
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "products.update", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	if err := h.svc.Update(ctx, id, patch); err != nil {
		return b.WithError(err).Build()
	}

	return b.WithMessage("product updated").Build()
}

func toDTO(p *entity.Product) dto.ProductResponse {
	return dto.ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Price:       p.Price.InexactFloat64(),
		Stock:       p.Stock,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
