package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/nutra/internal/auth"
	"github.com/Additional-Code/nutra/internal/config"
	"github.com/Additional-Code/nutra/internal/presentation/http/response"
	"github.com/Additional-Code/nutra/pkg/errorbank"
)

const claimsContextKey = "auth.claims"

// Bearer parses an Authorization header when present and attaches the
// verified claims to the request context. Requests without a token pass
// through anonymously; checkout decides per-request whether guest fields
// substitute for identity.
func Bearer(cfg config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return next(c)
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return response.New(c).WithError(errorbank.Unauthorized("malformed authorization header")).Build()
			}

			claims, err := auth.ParseToken(cfg.Auth, parts[1])
			if err != nil {
				return response.New(c).WithError(errorbank.Unauthorized("invalid token", errorbank.WithCause(err))).Build()
			}

			c.Set(claimsContextKey, claims)
			return next(c)
		}
	}
}

// Require gates a route behind one capability check.
func Require(action auth.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := ClaimsFrom(c)
			if claims == nil {
				return response.New(c).WithError(errorbank.Unauthorized("authentication required")).Build()
			}
			if !auth.Allowed(claims.Role, action) {
				return response.New(c).WithError(errorbank.Forbidden("insufficient permissions")).Build()
			}
			return next(c)
		}
	}
}

// ClaimsFrom returns the verified claims attached by Bearer, or nil for
// anonymous requests.
func ClaimsFrom(c echo.Context) *auth.Claims {
	claims, _ := c.Get(claimsContextKey).(*auth.Claims)
	return claims
}
