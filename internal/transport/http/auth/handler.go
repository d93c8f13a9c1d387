package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"

	"github.com/Additional-Code/nutra/internal/config"
	"github.com/Additional-Code/nutra/internal/dto"
	"github.com/Additional-Code/nutra/internal/entity"
	"github.com/Additional-Code/nutra/internal/presentation/http/response"
	service "github.com/Additional-Code/nutra/internal/service/auth"
	"github.com/Additional-Code/nutra/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/nutra/transport/http/auth")

// Handler exposes authentication endpoints over HTTP.
type Handler struct {
	svc   *service.Service
	debug bool
}

// NewHandler constructs an auth Handler.
func NewHandler(svc *service.Service, cfg config.Config) *Handler {
	return &Handler{svc: svc, debug: !cfg.App.Production()}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/auth")
	g.POST("/register", h.register)
	g.POST("/login", h.login)
}

func (h *Handler) register(c echo.Context) error {
	b := response.New(c).WithDebug(h.debug)

	var payload dto.RegisterRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "auth.register")
	defer span.End()

	user, token, err := h.svc.Register(ctx, payload.Name, payload.Email, payload.Phone, payload.Password)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).
		WithMessage("account created").
		WithData(dto.AuthResponse{Token: token, User: toDTO(user)}).
		Build()
}

func (h *Handler) login(c echo.Context) error {
	b := response.New(c).WithDebug(h.debug)

	var payload dto.LoginRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "auth.login")
	defer span.End()

	user, token, err := h.svc.Login(ctx, payload.Email, payload.Password)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithMessage("logged in").
		WithData(dto.AuthResponse{Token: token, User: toDTO(user)}).
		Build()
}

func toDTO(user *entity.User) dto.UserResponse {
	return dto.UserResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Phone: user.Phone,
		Role:  user.Role,
	}
}
