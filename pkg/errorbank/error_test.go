package errorbank

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestKindStatusMapping(t *testing.T) {
	cases := []struct {
		err    *AppError
		status int
		code   codes.Code
	}{
		{BadRequest("bad"), http.StatusBadRequest, codes.InvalidArgument},
		{Unauthorized("no token"), http.StatusUnauthorized, codes.Unauthenticated},
		{Forbidden("nope"), http.StatusForbidden, codes.PermissionDenied},
		{NotFound("missing"), http.StatusNotFound, codes.NotFound},
		{Conflict("dup"), http.StatusConflict, codes.AlreadyExists},
		{Internal("boom"), http.StatusInternalServerError, codes.Internal},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.err.StatusCode(), tc.err.Message())
		assert.Equal(t, tc.code, tc.err.GRPCCode(), tc.err.Message())
	}
}

func TestWithDetailAndCause(t *testing.T) {
	cause := errors.New("row lock timeout")
	err := BadRequest("insufficient stock for product 3",
		WithDetail("product_id", int64(3)),
		WithDetail("available", 1),
		WithCause(cause),
	)

	assert.Equal(t, int64(3), err.Details()["product_id"])
	assert.Equal(t, 1, err.Details()["available"])
	assert.Equal(t, cause, err.Cause())
	assert.ErrorIs(t, err, cause)
}

func TestFrom(t *testing.T) {
	assert.Nil(t, From(nil))

	app := NotFound("order not found")
	assert.Same(t, app, From(app))
	assert.Same(t, app, From(fmt.Errorf("wrap: %w", app)))

	plain := From(errors.New("boom"))
	require.NotNil(t, plain)
	assert.Equal(t, KindInternal, plain.Kind())
	assert.EqualError(t, plain.Cause(), "boom")
}
