package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/nutra/internal/auth"
	"github.com/Additional-Code/nutra/internal/cache"
	"github.com/Additional-Code/nutra/internal/config"
	"github.com/Additional-Code/nutra/internal/entity"
	"github.com/Additional-Code/nutra/internal/messaging"
	store "github.com/Additional-Code/nutra/internal/repository/checkout"
	productsvc "github.com/Additional-Code/nutra/internal/service/product"
	"github.com/Additional-Code/nutra/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/nutra/service/checkout")

const tempPasswordLength = 10

// LineItem is one (product, quantity, price) tuple of a submitted cart. The
// price is the client's snapshot and is persisted verbatim.
type LineItem struct {
	ProductID int64
	Quantity  int
	Price     decimal.Decimal
}

// PlaceOrderInput is a cart plus contact and shipping details. UserID is
// non-zero only when the request carried a valid bearer identity; guest
// fields are staging data consumed during identity resolution and never
// stored on the order row.
type PlaceOrderInput struct {
	Items           []LineItem
	Total           decimal.Decimal
	UserID          int64
	GuestName       string
	GuestEmail      string
	Phone           string
	Governorate     string
	City            string
	ShippingAddress string
	PaymentMethod   string
	Notes           string
}

// Receipt confirms a placed order. TemporaryPassword is set exactly when
// AccountCreated is true; the service returns the plaintext to the caller
// once and persists only its hash.
type Receipt struct {
	Order             *entity.Order
	UserID            int64
	AccountCreated    bool
	TemporaryPassword string
}

// OrderPlacedEvent is emitted after a checkout transaction commits. It never
// carries the temporary password.
type OrderPlacedEvent struct {
	OrderID        int64     `json:"order_id"`
	Number         string    `json:"number"`
	UserID         int64     `json:"user_id"`
	Total          string    `json:"total"`
	Status         string    `json:"status"`
	AccountCreated bool      `json:"account_created"`
	CreatedAt      time.Time `json:"created_at"`
}

// Service turns submitted carts into durable orders: it resolves or creates
// the owning account, validates availability under row locks, and persists
// order, items, and stock decrements in one transaction.
type Service struct {
	store     store.Store
	cache     cache.Store
	logger    *zap.Logger
	publisher messaging.Client
	messaging messagingConfig
}

type messagingConfig struct {
	enabled bool
	topic   string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Store     store.Store
	Cache     cache.Store
	Config    config.Config
	Logger    *zap.Logger
	Publisher messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		store:     p.Store,
		cache:     p.Cache,
		logger:    p.Logger,
		publisher: p.Publisher,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
			topic:   p.Config.Messaging.Kafka.Topic,
		},
	}
}

// PlaceOrder executes the full checkout workflow. On any failure nothing is
// persisted: no order, no items, no user, no stock change.
func (s *Service) PlaceOrder(ctx context.Context, in *PlaceOrderInput) (*Receipt, error) {
	if in == nil {
		return nil, errorbank.BadRequest("order payload is required")
	}

	ctx, span := serviceTracer.Start(ctx, "CheckoutService.PlaceOrder", trace.WithAttributes(
		attribute.Int("order.items", len(in.Items)),
	))
	defer span.End()

	if err := validateInput(in); err != nil {
		return nil, err
	}

	receipt := &Receipt{}

	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		userID, created, tempPassword, err := s.resolveUser(ctx, tx, in)
		if err != nil {
			return err
		}
		receipt.UserID = userID
		receipt.AccountCreated = created
		receipt.TemporaryPassword = tempPassword

		// Lock and validate every product before any write; a single
		// violation aborts the whole batch.
		for _, item := range in.Items {
			product, err := tx.ProductForUpdate(ctx, item.ProductID)
			if errors.Is(err, store.ErrProductNotFound) {
				return errorbank.BadRequest(
					fmt.Sprintf("product %d does not exist", item.ProductID),
					errorbank.WithDetail("product_id", item.ProductID),
				)
			}
			if err != nil {
				return err
			}
			if !product.Active {
				return errorbank.BadRequest(
					fmt.Sprintf("product %d is not available", item.ProductID),
					errorbank.WithDetail("product_id", item.ProductID),
				)
			}
			if product.Stock < item.Quantity {
				return errorbank.BadRequest(
					fmt.Sprintf("insufficient stock for product %d", item.ProductID),
					errorbank.WithDetail("product_id", item.ProductID),
					errorbank.WithDetail("available", product.Stock),
				)
			}
		}

		now := time.Now().UTC()
		order := &entity.Order{
			Number:          uuid.NewString(),
			UserID:          userID,
			Phone:           in.Phone,
			Governorate:     in.Governorate,
			City:            in.City,
			ShippingAddress: in.ShippingAddress,
			PaymentMethod:   in.PaymentMethod,
			Notes:           in.Notes,
			Total:           in.Total,
			Status:          entity.StatusPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}

		items := make([]*entity.OrderItem, 0, len(in.Items))
		for _, item := range in.Items {
			items = append(items, &entity.OrderItem{
				OrderID:   order.ID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Price:     item.Price,
			})
		}
		if err := tx.InsertOrderItems(ctx, items); err != nil {
			return err
		}

		for _, item := range in.Items {
			if err := tx.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				if errors.Is(err, store.ErrInsufficientStock) {
					return errorbank.BadRequest(
						fmt.Sprintf("insufficient stock for product %d", item.ProductID),
						errorbank.WithDetail("product_id", item.ProductID),
					)
				}
				return err
			}
		}

		order.Items = items
		receipt.Order = order
		return nil
	})
	if err != nil {
		var appErr *errorbank.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "checkout transaction failed")
		return nil, errorbank.Internal("failed to place order", errorbank.WithCause(err))
	}

	s.invalidateProducts(ctx, in.Items)
	s.publishOrderPlaced(ctx, receipt)

	return receipt, nil
}

func validateInput(in *PlaceOrderInput) error {
	if len(in.Items) == 0 {
		return errorbank.BadRequest("order must contain at least one item")
	}
	for _, item := range in.Items {
		if item.ProductID <= 0 {
			return errorbank.BadRequest("invalid product id")
		}
		if item.Quantity <= 0 {
			return errorbank.BadRequest(
				fmt.Sprintf("quantity for product %d must be positive", item.ProductID),
				errorbank.WithDetail("product_id", item.ProductID),
			)
		}
		if item.Price.IsNegative() {
			return errorbank.BadRequest(
				fmt.Sprintf("price for product %d must not be negative", item.ProductID),
				errorbank.WithDetail("product_id", item.ProductID),
			)
		}
	}
	if !in.Total.IsPositive() {
		return errorbank.BadRequest("total amount must be positive")
	}
	if in.UserID == 0 {
		if strings.TrimSpace(in.GuestName) == "" ||
			strings.TrimSpace(in.Phone) == "" ||
			strings.TrimSpace(in.GuestEmail) == "" {
			return errorbank.BadRequest("guest checkout requires name, phone, and email")
		}
	}
	return nil
}

// resolveUser applies the identity rules in order: bearer identity, then an
// existing account matched by guest email, then a freshly created customer
// account with a one-time password.
func (s *Service) resolveUser(ctx context.Context, tx store.Tx, in *PlaceOrderInput) (int64, bool, string, error) {
	if in.UserID != 0 {
		return in.UserID, false, "", nil
	}

	email := strings.ToLower(strings.TrimSpace(in.GuestEmail))
	existing, err := tx.UserByEmail(ctx, email)
	if err == nil {
		return existing.ID, false, "", nil
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return 0, false, "", err
	}

	plain, err := auth.TemporaryPassword(tempPasswordLength)
	if err != nil {
		return 0, false, "", err
	}
	hash, err := auth.HashPassword(plain)
	if err != nil {
		return 0, false, "", err
	}

	now := time.Now().UTC()
	user := &entity.User{
		Name:         in.GuestName,
		Email:        email,
		Phone:        in.Phone,
		PasswordHash: hash,
		Role:         entity.RoleCustomer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.InsertUser(ctx, user); err != nil {
		return 0, false, "", err
	}
	return user.ID, true, plain, nil
}

func (s *Service) invalidateProducts(ctx context.Context, items []LineItem) {
	if s.cache == nil {
		return
	}
	for _, item := range items {
		if err := s.cache.Delete(ctx, productsvc.CacheKey(item.ProductID)); err != nil {
			s.logger.Warn("product cache invalidation failed",
				zap.Int64("product_id", item.ProductID), zap.Error(err))
		}
	}
	if err := s.cache.Delete(ctx, productsvc.ListCacheKey()); err != nil {
		s.logger.Warn("product list cache invalidation failed", zap.Error(err))
	}
}

func (s *Service) publishOrderPlaced(ctx context.Context, receipt *Receipt) {
	if !s.messaging.enabled || s.publisher == nil || receipt.Order == nil {
		return
	}
	event := OrderPlacedEvent{
		OrderID:        receipt.Order.ID,
		Number:         receipt.Order.Number,
		UserID:         receipt.UserID,
		Total:          receipt.Order.Total.String(),
		Status:         receipt.Order.Status,
		AccountCreated: receipt.AccountCreated,
		CreatedAt:      receipt.Order.CreatedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal order placed", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, []byte(fmt.Sprintf("order-%d", event.OrderID)), payload); err != nil {
		s.logger.Error("publish order placed", zap.Error(err))
	}
}
