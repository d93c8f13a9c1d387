package checkout

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/nutra/internal/cache"
	"github.com/Additional-Code/nutra/internal/config"
	"github.com/Additional-Code/nutra/internal/entity"
	"github.com/Additional-Code/nutra/internal/messaging"
	store "github.com/Additional-Code/nutra/internal/repository/checkout"
	"github.com/Additional-Code/nutra/pkg/errorbank"
)

// memStore is an in-memory store.Store with real transaction semantics:
// each InTx works on a deep copy of the state and publishes it only on
// success, while the mutex serializes transactions the way row locks do.
type memStore struct {
	mu    sync.Mutex
	state memState
}

type memState struct {
	users     map[int64]*entity.User
	emails    map[string]int64
	products  map[int64]*entity.Product
	orders    map[int64]*entity.Order
	items     []*entity.OrderItem
	nextUser  int64
	nextOrder int64
	nextItem  int64
}

func newMemStore(products ...*entity.Product) *memStore {
	s := &memStore{state: memState{
		users:     map[int64]*entity.User{},
		emails:    map[string]int64{},
		products:  map[int64]*entity.Product{},
		orders:    map[int64]*entity.Order{},
		nextUser:  1,
		nextOrder: 1,
		nextItem:  1,
	}}
	for _, p := range products {
		cp := *p
		s.state.products[cp.ID] = &cp
	}
	return s
}

func (s *memStore) addUser(u entity.User) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.state.nextUser
	s.state.nextUser++
	s.state.users[u.ID] = &u
	s.state.emails[u.Email] = u.ID
	return u.ID
}

func (s *memStore) product(id int64) entity.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.state.products[id]
}

func (s *memStore) counts() (users, orders, items int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.users), len(s.state.orders), len(s.state.items)
}

func (s *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.state.clone()
	if err := fn(ctx, &memTx{state: staged}); err != nil {
		return err
	}
	s.state = *staged
	return nil
}

func (st *memState) clone() *memState {
	cp := &memState{
		users:     make(map[int64]*entity.User, len(st.users)),
		emails:    make(map[string]int64, len(st.emails)),
		products:  make(map[int64]*entity.Product, len(st.products)),
		orders:    make(map[int64]*entity.Order, len(st.orders)),
		items:     make([]*entity.OrderItem, len(st.items)),
		nextUser:  st.nextUser,
		nextOrder: st.nextOrder,
		nextItem:  st.nextItem,
	}
	for id, u := range st.users {
		v := *u
		cp.users[id] = &v
	}
	for email, id := range st.emails {
		cp.emails[email] = id
	}
	for id, p := range st.products {
		v := *p
		cp.products[id] = &v
	}
	for id, o := range st.orders {
		v := *o
		cp.orders[id] = &v
	}
	for i, it := range st.items {
		v := *it
		cp.items[i] = &v
	}
	return cp
}

type memTx struct {
	state *memState
}

func (t *memTx) UserByEmail(ctx context.Context, email string) (*entity.User, error) {
	id, ok := t.state.emails[email]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	u := *t.state.users[id]
	return &u, nil
}

func (t *memTx) InsertUser(ctx context.Context, user *entity.User) error {
	user.ID = t.state.nextUser
	t.state.nextUser++
	cp := *user
	t.state.users[cp.ID] = &cp
	t.state.emails[cp.Email] = cp.ID
	return nil
}

func (t *memTx) ProductForUpdate(ctx context.Context, id int64) (*entity.Product, error) {
	p, ok := t.state.products[id]
	if !ok {
		return nil, store.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (t *memTx) InsertOrder(ctx context.Context, order *entity.Order) error {
	order.ID = t.state.nextOrder
	t.state.nextOrder++
	cp := *order
	t.state.orders[cp.ID] = &cp
	return nil
}

func (t *memTx) InsertOrderItems(ctx context.Context, items []*entity.OrderItem) error {
	for _, item := range items {
		item.ID = t.state.nextItem
		t.state.nextItem++
		cp := *item
		t.state.items = append(t.state.items, &cp)
	}
	return nil
}

func (t *memTx) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	p, ok := t.state.products[productID]
	if !ok || p.Stock < quantity {
		return store.ErrInsufficientStock
	}
	p.Stock -= quantity
	return nil
}

type memCache struct {
	mu      sync.Mutex
	deleted []string
}

func (c *memCache) Get(context.Context, string) ([]byte, error) { return nil, cache.ErrCacheMiss }
func (c *memCache) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}
func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, key)
	return nil
}

type memPublisher struct {
	mu       sync.Mutex
	messages [][]byte
}

func (p *memPublisher) Publish(ctx context.Context, key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, append([]byte(nil), value...))
	return nil
}

func (p *memPublisher) Consume(ctx context.Context, handler messaging.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (p *memPublisher) Topic() string { return "orders.placed" }

func newTestService(s store.Store) (*Service, *memCache, *memPublisher) {
	mc := &memCache{}
	pub := &memPublisher{}
	cfg := config.Config{}
	cfg.Messaging.Enabled = true
	cfg.Messaging.Kafka.Topic = "orders.placed"
	svc := NewService(Params{
		Store:     s,
		Cache:     mc,
		Config:    cfg,
		Logger:    zap.NewNop(),
		Publisher: pub,
	})
	return svc, mc, pub
}

func activeProduct(id int64, stock int, price float64) *entity.Product {
	return &entity.Product{
		ID:     id,
		Name:   "product",
		Price:  decimal.NewFromFloat(price),
		Stock:  stock,
		Active: true,
	}
}

func guestInput(items ...LineItem) *PlaceOrderInput {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return &PlaceOrderInput{
		Items:           items,
		Total:           total,
		GuestName:       "Sara Adel",
		GuestEmail:      "sara@example.com",
		Phone:           "01000000000",
		Governorate:     "Cairo",
		City:            "Nasr City",
		ShippingAddress: "12 Abbas El Akkad",
		PaymentMethod:   "cod",
	}
}

func TestPlaceOrderGuestCreatesAccount(t *testing.T) {
	s := newMemStore(activeProduct(1, 10, 29.99))
	svc, _, _ := newTestService(s)

	receipt, err := svc.PlaceOrder(context.Background(), guestInput(
		LineItem{ProductID: 1, Quantity: 2, Price: decimal.NewFromFloat(29.99)},
	))
	require.NoError(t, err)

	assert.True(t, receipt.AccountCreated)
	assert.NotEmpty(t, receipt.TemporaryPassword)
	assert.NotZero(t, receipt.UserID)
	require.NotNil(t, receipt.Order)
	assert.Equal(t, entity.StatusPending, receipt.Order.Status)
	assert.Equal(t, receipt.UserID, receipt.Order.UserID)
	assert.NotEmpty(t, receipt.Order.Number)
	require.Len(t, receipt.Order.Items, 1)
	assert.Equal(t, 2, receipt.Order.Items[0].Quantity)

	assert.Equal(t, 8, s.product(1).Stock)

	users, orders, items := s.counts()
	assert.Equal(t, 1, users)
	assert.Equal(t, 1, orders)
	assert.Equal(t, 1, items)
}

func TestPlaceOrderAuthenticatedUser(t *testing.T) {
	s := newMemStore(activeProduct(1, 5, 10))
	userID := s.addUser(entity.User{Name: "Omar", Email: "omar@example.com", Role: entity.RoleCustomer})
	svc, _, _ := newTestService(s)

	in := guestInput(LineItem{ProductID: 1, Quantity: 1, Price: decimal.NewFromInt(10)})
	in.UserID = userID
	in.GuestName = ""
	in.GuestEmail = ""

	receipt, err := svc.PlaceOrder(context.Background(), in)
	require.NoError(t, err)

	assert.False(t, receipt.AccountCreated)
	assert.Empty(t, receipt.TemporaryPassword)
	assert.Equal(t, userID, receipt.UserID)

	users, _, _ := s.counts()
	assert.Equal(t, 1, users)
}

func TestPlaceOrderAttachesExistingAccountByEmail(t *testing.T) {
	s := newMemStore(activeProduct(1, 5, 10))
	userID := s.addUser(entity.User{Name: "Sara", Email: "sara@example.com", Role: entity.RoleCustomer})
	svc, _, _ := newTestService(s)

	receipt, err := svc.PlaceOrder(context.Background(), guestInput(
		LineItem{ProductID: 1, Quantity: 1, Price: decimal.NewFromInt(10)},
	))
	require.NoError(t, err)

	assert.False(t, receipt.AccountCreated)
	assert.Empty(t, receipt.TemporaryPassword)
	assert.Equal(t, userID, receipt.UserID)

	users, _, _ := s.counts()
	assert.Equal(t, 1, users)
}

func TestPlaceOrderNormalizesGuestEmail(t *testing.T) {
	s := newMemStore(activeProduct(1, 5, 10))
	userID := s.addUser(entity.User{Name: "Sara", Email: "sara@example.com", Role: entity.RoleCustomer})
	svc, _, _ := newTestService(s)

	in := guestInput(LineItem{ProductID: 1, Quantity: 1, Price: decimal.NewFromInt(10)})
	in.GuestEmail = "  SARA@Example.com "

	receipt, err := svc.PlaceOrder(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, userID, receipt.UserID)
	assert.False(t, receipt.AccountCreated)
}

func TestPlaceOrderInsufficientStockRollsBack(t *testing.T) {
	s := newMemStore(activeProduct(1, 5, 10), activeProduct(2, 1, 20))
	svc, _, pub := newTestService(s)

	_, err := svc.PlaceOrder(context.Background(), guestInput(
		LineItem{ProductID: 1, Quantity: 2, Price: decimal.NewFromInt(10)},
		LineItem{ProductID: 2, Quantity: 3, Price: decimal.NewFromInt(20)},
	))
	require.Error(t, err)

	var appErr *errorbank.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errorbank.KindBadRequest, appErr.Kind())
	assert.Equal(t, int64(2), appErr.Details()["product_id"])

	// No partial writes: all stock intact, no user, no order, no event.
	assert.Equal(t, 5, s.product(1).Stock)
	assert.Equal(t, 1, s.product(2).Stock)
	users, orders, items := s.counts()
	assert.Zero(t, users)
	assert.Zero(t, orders)
	assert.Zero(t, items)
	assert.Empty(t, pub.messages)
}

func TestPlaceOrderUnknownProduct(t *testing.T) {
	s := newMemStore(activeProduct(1, 5, 10))
	svc, _, _ := newTestService(s)

	_, err := svc.PlaceOrder(context.Background(), guestInput(
		LineItem{ProductID: 99, Quantity: 1, Price: decimal.NewFromInt(10)},
	))
	require.Error(t, err)

	var appErr *errorbank.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errorbank.KindBadRequest, appErr.Kind())
	assert.Equal(t, int64(99), appErr.Details()["product_id"])
}

func TestPlaceOrderInactiveProduct(t *testing.T) {
	p := activeProduct(1, 5, 10)
	p.Active = false
	s := newMemStore(p)
	svc, _, _ := newTestService(s)

	_, err := svc.PlaceOrder(context.Background(), guestInput(
		LineItem{ProductID: 1, Quantity: 1, Price: decimal.NewFromInt(10)},
	))
	require.Error(t, err)

	var appErr *errorbank.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errorbank.KindBadRequest, appErr.Kind())
	assert.Equal(t, 5, s.product(1).Stock)
}

func TestPlaceOrderExactStockToZero(t *testing.T) {
	s := newMemStore(activeProduct(1, 3, 10))
	svc, _, _ := newTestService(s)

	_, err := svc.PlaceOrder(context.Background(), guestInput(
		LineItem{ProductID: 1, Quantity: 3, Price: decimal.NewFromInt(10)},
	))
	require.NoError(t, err)
	assert.Equal(t, 0, s.product(1).Stock)
}

func TestPlaceOrderValidation(t *testing.T) {
	s := newMemStore(activeProduct(1, 5, 10))
	svc, _, _ := newTestService(s)
	ctx := context.Background()

	cases := []struct {
		name  string
		input *PlaceOrderInput
	}{
		{"nil payload", nil},
		{"empty items", guestInput()},
		{"zero quantity", guestInput(LineItem{ProductID: 1, Quantity: 0, Price: decimal.NewFromInt(10)})},
		{"negative price", func() *PlaceOrderInput {
			in := guestInput(LineItem{ProductID: 1, Quantity: 1, Price: decimal.NewFromInt(-5)})
			in.Total = decimal.NewFromInt(10)
			return in
		}()},
		{"zero total", func() *PlaceOrderInput {
			in := guestInput(LineItem{ProductID: 1, Quantity: 1, Price: decimal.Zero})
			return in
		}()},
		{"guest without email", func() *PlaceOrderInput {
			in := guestInput(LineItem{ProductID: 1, Quantity: 1, Price: decimal.NewFromInt(10)})
			in.GuestEmail = "   "
			return in
		}()},
		{"guest without name", func() *PlaceOrderInput {
			in := guestInput(LineItem{ProductID: 1, Quantity: 1, Price: decimal.NewFromInt(10)})
			in.GuestName = ""
			return in
		}()},
		{"guest without phone", func() *PlaceOrderInput {
			in := guestInput(LineItem{ProductID: 1, Quantity: 1, Price: decimal.NewFromInt(10)})
			in.Phone = ""
			return in
		}()},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.PlaceOrder(ctx, tc.input)
			require.Error(t, err)
			var appErr *errorbank.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, errorbank.KindBadRequest, appErr.Kind())

			users, orders, _ := s.counts()
			assert.Zero(t, users)
			assert.Zero(t, orders)
		})
	}
}

func TestPlaceOrderConcurrentBuyersOneWins(t *testing.T) {
	// Stock 5, two buyers of 3 each: exactly one order can commit.
	s := newMemStore(activeProduct(1, 5, 10))
	svc, _, _ := newTestService(s)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := guestInput(LineItem{ProductID: 1, Quantity: 3, Price: decimal.NewFromInt(10)})
			in.GuestEmail = []string{"first@example.com", "second@example.com"}[i]
			_, errs[i] = svc.PlaceOrder(context.Background(), in)
		}(i)
	}
	wg.Wait()

	var failures int
	for _, err := range errs {
		if err != nil {
			failures++
			var appErr *errorbank.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, errorbank.KindBadRequest, appErr.Kind())
		}
	}
	assert.Equal(t, 1, failures)
	assert.Equal(t, 2, s.product(1).Stock)

	_, orders, _ := s.counts()
	assert.Equal(t, 1, orders)
}

func TestPlaceOrderPublishesEventWithoutPassword(t *testing.T) {
	s := newMemStore(activeProduct(1, 5, 10))
	svc, _, pub := newTestService(s)

	receipt, err := svc.PlaceOrder(context.Background(), guestInput(
		LineItem{ProductID: 1, Quantity: 1, Price: decimal.NewFromInt(10)},
	))
	require.NoError(t, err)
	require.Len(t, pub.messages, 1)

	var event OrderPlacedEvent
	require.NoError(t, json.Unmarshal(pub.messages[0], &event))
	assert.Equal(t, receipt.Order.ID, event.OrderID)
	assert.Equal(t, receipt.UserID, event.UserID)
	assert.True(t, event.AccountCreated)
	assert.NotContains(t, string(pub.messages[0]), receipt.TemporaryPassword)
}

func TestPlaceOrderInvalidatesProductCache(t *testing.T) {
	s := newMemStore(activeProduct(1, 5, 10), activeProduct(2, 5, 20))
	svc, mc, _ := newTestService(s)

	_, err := svc.PlaceOrder(context.Background(), guestInput(
		LineItem{ProductID: 1, Quantity: 1, Price: decimal.NewFromInt(10)},
		LineItem{ProductID: 2, Quantity: 1, Price: decimal.NewFromInt(20)},
	))
	require.NoError(t, err)

	assert.Contains(t, mc.deleted, "products:1")
	assert.Contains(t, mc.deleted, "products:2")
	assert.Contains(t, mc.deleted, "products:active")
}
