package order

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/nutra/internal/config"
	"github.com/Additional-Code/nutra/internal/messaging"
	checkoutsvc "github.com/Additional-Code/nutra/internal/service/checkout"
	"github.com/Additional-Code/nutra/internal/worker"
)

var workerTracer = otel.Tracer("github.com/Additional-Code/nutra/worker/order")

// Module registers order-related worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewOrderPlacedHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewOrderPlacedHandler processes order-placed events for confirmation
// handling. The event never carries the temporary password; downstream
// notification channels work from the order id alone.
func NewOrderPlacedHandler(logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event checkoutsvc.OrderPlacedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode order placed", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}
		logger.Info("order placed event processed",
			zap.Int64("order_id", event.OrderID),
			zap.String("number", event.Number),
			zap.Int64("user_id", event.UserID),
			zap.String("total", event.Total),
			zap.Bool("account_created", event.AccountCreated),
		)

		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
