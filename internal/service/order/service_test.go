package order

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/nutra/pkg/errorbank"
)

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	svc := NewService(Params{Logger: zap.NewNop()})

	err := svc.UpdateStatus(context.Background(), 1, "returned")
	require.Error(t, err)

	var appErr *errorbank.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errorbank.KindBadRequest, appErr.Kind())
}
