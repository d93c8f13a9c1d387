package order

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
	checkoutsvc "github.com/Additional-Code/nutra/internal/service/checkout"
	ordersvc "github.com/Additional-Code/nutra/internal/service/order"
	"github.com/Additional-Code/nutra/internal/transport/http/middleware"
	"github.com/Additional-Code/nutra/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/nutra/transport/http/order")

// Handler exposes order endpoints over HTTP.
type Handler struct {
	checkout *checkoutsvc.Service
	orders   *ordersvc.Service
	debug    bool
}

// NewHandler constructs an order Handler.
func NewHandler(checkout *checkoutsvc.Service, orders *ordersvc.Service, cfg config.Config) *Handler {
	return &Handler{
		checkout: checkout,
		orders:   orders,
		debug:    !cfg.App.Production(),
	}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/orders")
	g.POST("", h.place)
	g.GET("/:id", h.getByID)
	g.GET("", h.list, middleware.Require(auth.ActionListOrders))
	g.PATCH("/:id/status", h.updateStatus, middleware.Require(auth.ActionUpdateOrder))

	e.GET("/users/me/orders", h.listMine, middleware.Require(auth.ActionReadOwnOrders))
}

func (h *Handler) place(c echo.Context) error {
	b := response.New(c).WithDebug(h.debug)

	var payload dto.PlaceOrderRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	input := &checkoutsvc.PlaceOrderInput{
		Total:           decimal.NewFromFloat(payload.TotalAmount),
		GuestName:       payload.GuestName,
		GuestEmail:      payload.GuestEmail,
		Phone:           payload.Phone,
		Governorate:     payload.Governorate,
		City:            payload.City,
		ShippingAddress: payload.ShippingAddress,
		PaymentMethod:   payload.PaymentMethod,
		Notes:           payload.Notes,
	}
	for _, item := range payload.Items {
		input.Items = append(input.Items, checkoutsvc.LineItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     decimal.NewFromFloat(item.Price),
		})
	}
	if claims := middleware.ClaimsFrom(c); claims != nil {
		input.UserID = claims.UserID
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.place", trace.WithAttributes(
		attribute.Int("order.items", len(input.Items)),
	))
	defer span.End()

	receipt, err := h.checkout.PlaceOrder(ctx, input)
	if err != nil {
		return b.WithError(err).Build()
	}

	data := dto.PlaceOrderResponse{
		Order:             toDTO(receipt.Order),
		OrderID:           receipt.Order.ID,
		UserID:            receipt.UserID,
		AccountCreated:    receipt.AccountCreated,
		TemporaryPassword: receipt.TemporaryPassword,
	}

	return b.WithStatus(http.StatusCreated).
		WithMessage("order placed successfully").
		WithData(data).
		Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c).WithDebug(h.debug)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		return b.WithError(errorbank.Unauthorized("authentication required")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.orders.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	if order.UserID != claims.UserID && !auth.Allowed(claims.Role, auth.ActionListOrders) {
		return b.WithError(errorbank.Forbidden("not your order")).Build()
	}

	return b.WithData(toDTO(order)).Build()
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c).WithDebug(h.debug)

	limit, offset := pagination(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.list")
	defer span.End()

	orders, err := h.orders.List(ctx, limit, offset)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toDTOs(orders)).WithMeta("count", len(orders)).Build()
}

func (h *Handler) listMine(c echo.Context) error {
	b := response.New(c).WithDebug(h.debug)

	claims := middleware.ClaimsFrom(c)
	limit, offset := pagination(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.listMine", trace.WithAttributes(attribute.Int64("user.id", claims.UserID)))
	defer span.End()

	orders, err := h.orders.ListByUser(ctx, claims.UserID, limit, offset)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toDTOs(orders)).WithMeta("count", len(orders)).Build()
}

func (h *Handler) updateStatus(c echo.Context) error {
	b := response.New(c).WithDebug(h.debug)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	var payload dto.UpdateOrderStatusRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.updateStatus", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.status", payload.Status),
	))
	defer span.End()

	if err := h.orders.UpdateStatus(ctx, id, payload.Status); err != nil {
		return b.WithError(err).Build()
	}

	return b.WithMessage("order status updated").Build()
}

func pagination(c echo.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	offset, _ = strconv.Atoi(c.QueryParam("offset"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func toDTO(order *entity.Order) dto.OrderResponse {
	resp := dto.OrderResponse{
		ID:              order.ID,
		Number:          order.Number,
		UserID:          order.UserID,
		Phone:           order.Phone,
		Governorate:     order.Governorate,
		City:            order.City,
		ShippingAddress: order.ShippingAddress,
		PaymentMethod:   order.PaymentMethod,
		Notes:           order.Notes,
		Total:           order.Total.InexactFloat64(),
		Status:          order.Status,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, dto.OrderItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price.InexactFloat64(),
		})
	}
	return resp
}

func toDTOs(orders []*entity.Order) []dto.OrderResponse {
	out := make([]dto.OrderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, toDTO(order))
	}
	return out
}
