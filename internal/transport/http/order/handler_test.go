package order

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/nutra/internal/cache"
	"github.com/Additional-Code/nutra/internal/config"
	"github.com/Additional-Code/nutra/internal/entity"
	store "github.com/Additional-Code/nutra/internal/repository/checkout"
	checkoutsvc "github.com/Additional-Code/nutra/internal/service/checkout"
	ordersvc "github.com/Additional-Code/nutra/internal/service/order"
)

// stubStore backs the checkout service with a single in-memory product.
type stubStore struct {
	product entity.Product
	users   map[string]*entity.User
}

func (s *stubStore) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	staged := *s
	stagedUsers := make(map[string]*entity.User, len(s.users))
	for k, v := range s.users {
		u := *v
		stagedUsers[k] = &u
	}
	staged.users = stagedUsers

	if err := fn(ctx, &stubTx{state: &staged}); err != nil {
		return err
	}
	*s = staged
	return nil
}

type stubTx struct {
	state *stubStore
}

func (t *stubTx) UserByEmail(ctx context.Context, email string) (*entity.User, error) {
	if u, ok := t.state.users[email]; ok {
		return u, nil
	}
	return nil, store.ErrUserNotFound
}

func (t *stubTx) InsertUser(ctx context.Context, user *entity.User) error {
	user.ID = int64(len(t.state.users) + 1)
	t.state.users[user.Email] = user
	return nil
}

func (t *stubTx) ProductForUpdate(ctx context.Context, id int64) (*entity.Product, error) {
	if id != t.state.product.ID {
		return nil, store.ErrProductNotFound
	}
	p := t.state.product
	return &p, nil
}

func (t *stubTx) InsertOrder(ctx context.Context, order *entity.Order) error {
	order.ID = 1
	return nil
}

func (t *stubTx) InsertOrderItems(ctx context.Context, items []*entity.OrderItem) error {
	return nil
}

func (t *stubTx) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	if t.state.product.Stock < quantity {
		return store.ErrInsufficientStock
	}
	t.state.product.Stock -= quantity
	return nil
}

type nopCache struct{}

func (nopCache) Get(context.Context, string) ([]byte, error) { return nil, cache.ErrCacheMiss }
func (nopCache) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}
func (nopCache) Delete(context.Context, string) error { return nil }

func newTestServer(t *testing.T, s store.Store) *echo.Echo {
	t.Helper()

	checkout := checkoutsvc.NewService(checkoutsvc.Params{
		Store:  s,
		Cache:  nopCache{},
		Config: config.Config{},
		Logger: zap.NewNop(),
	})
	orders := ordersvc.NewService(ordersvc.Params{Logger: zap.NewNop()})

	e := echo.New()
	Register(e, NewHandler(checkout, orders, config.Config{}))
	return e
}

func postOrder(t *testing.T, e *echo.Echo, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return rec, payload
}

func TestPlaceOrderEndpoint(t *testing.T) {
	s := &stubStore{
		product: entity.Product{ID: 1, Name: "Whey Protein", Stock: 10, Active: true},
		users:   map[string]*entity.User{},
	}
	e := newTestServer(t, s)

	rec, payload := postOrder(t, e, `{
		"items": [{"product_id": 1, "quantity": 2, "price": 29.99}],
		"total_amount": 59.98,
		"guest_name": "Sara Adel",
		"guest_email": "sara@example.com",
		"phone": "01000000000",
		"governorate": "Cairo",
		"city": "Nasr City",
		"shipping_address": "12 Abbas El Akkad",
		"payment_method": "cod"
	}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, "order placed successfully", payload["message"])

	data, ok := payload["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, data["account_created"])
	assert.NotEmpty(t, data["temporary_password"])
	assert.Equal(t, 8, s.product.Stock)

	order, ok := data["order"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "pending", order["status"])
}

func TestPlaceOrderEndpointInsufficientStock(t *testing.T) {
	s := &stubStore{
		product: entity.Product{ID: 1, Name: "Whey Protein", Stock: 1, Active: true},
		users:   map[string]*entity.User{},
	}
	e := newTestServer(t, s)

	rec, payload := postOrder(t, e, `{
		"items": [{"product_id": 1, "quantity": 5, "price": 29.99}],
		"total_amount": 149.95,
		"guest_name": "Sara Adel",
		"guest_email": "sara@example.com",
		"phone": "01000000000"
	}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, payload["success"])
	assert.Equal(t, 1, s.product.Stock)
	assert.Empty(t, s.users)
}

func TestPlaceOrderEndpointRejectsEmptyCart(t *testing.T) {
	s := &stubStore{
		product: entity.Product{ID: 1, Stock: 1, Active: true},
		users:   map[string]*entity.User{},
	}
	e := newTestServer(t, s)

	rec, payload := postOrder(t, e, `{"items": [], "total_amount": 0, "phone": "01000000000"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, payload["success"])
}

func TestPagination(t *testing.T) {
	e := echo.New()

	cases := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", 20, 0},
		{"limit=50&offset=10", 50, 10},
		{"limit=500", 20, 0},
		{"limit=-1&offset=-2", 20, 0},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/orders?"+tc.query, nil)
		c := e.NewContext(req, httptest.NewRecorder())
		limit, offset := pagination(c)
		assert.Equal(t, tc.wantLimit, limit, tc.query)
		assert.Equal(t, tc.wantOffset, offset, tc.query)
	}
}
