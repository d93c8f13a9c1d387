package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/nutra/pkg/errorbank"
)

func record(t *testing.T, build func(c echo.Context) error) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, build(c))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestBuilderSuccess(t *testing.T) {
	rec, body := record(t, func(c echo.Context) error {
		return New(c).
			WithStatus(http.StatusCreated).
			WithMessage("order placed successfully").
			WithData(map[string]any{"id": 7}).
			Build()
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "order placed successfully", body["message"])
	require.NotNil(t, body["data"])
}

func TestBuilderErrorStatusFromKind(t *testing.T) {
	rec, body := record(t, func(c echo.Context) error {
		return New(c).
			WithError(errorbank.BadRequest("insufficient stock for product 3",
				errorbank.WithDetail("product_id", 3))).
			Build()
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])

	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "bad_request", errObj["kind"])
	assert.Equal(t, "insufficient stock for product 3", errObj["message"])
	details, ok := errObj["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(3), details["product_id"])
}

func TestBuilderErrorCauseOnlyInDebug(t *testing.T) {
	appErr := errorbank.Internal("failed to place order",
		errorbank.WithCause(errors.New("connection reset")))

	_, body := record(t, func(c echo.Context) error {
		return New(c).WithError(appErr).Build()
	})
	errObj := body["error"].(map[string]any)
	assert.NotContains(t, errObj, "cause")

	_, body = record(t, func(c echo.Context) error {
		return New(c).WithError(appErr).WithDebug(true).Build()
	})
	errObj = body["error"].(map[string]any)
	assert.Equal(t, "connection reset", errObj["cause"])
}

func TestBuilderWrapsPlainError(t *testing.T) {
	rec, body := record(t, func(c echo.Context) error {
		return New(c).WithError(errors.New("boom")).Build()
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "internal", errObj["kind"])
}
