package product

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/nutra/internal/cache"
	"github.com/Additional-Code/nutra/internal/config"
	"github.com/Additional-Code/nutra/internal/entity"
	repo "github.com/Additional-Code/nutra/internal/repository/product"
	"github.com/Additional-Code/nutra/pkg/errorbank"
)

type mapCache struct {
	values map[string][]byte
}

func (c *mapCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := c.values[key]; ok {
		return v, nil
	}
	return nil, cache.ErrCacheMiss
}

func (c *mapCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.values[key] = value
	return nil
}

func (c *mapCache) Delete(ctx context.Context, key string) error {
	delete(c.values, key)
	return nil
}

func newService(store cache.Store) *Service {
	return NewService(Params{
		Cache:  store,
		Config: config.Config{},
		Logger: zap.NewNop(),
	})
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "products:7", CacheKey(7))
	assert.Equal(t, "products:active", ListCacheKey())
}

func TestGetServesFromCache(t *testing.T) {
	cached := &entity.Product{ID: 7, Name: "Whey Protein", Active: true, Stock: 3}
	payload, err := json.Marshal(cached)
	require.NoError(t, err)

	mc := &mapCache{values: map[string][]byte{CacheKey(7): payload}}
	svc := newService(mc)

	got, err := svc.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, cached.Name, got.Name)
	assert.Equal(t, cached.Stock, got.Stock)
}

func TestCreateValidation(t *testing.T) {
	svc := newService(&mapCache{values: map[string][]byte{}})
	ctx := context.Background()

	cases := []struct {
		name    string
		product *entity.Product
	}{
		{"nil payload", nil},
		{"missing name", &entity.Product{Slug: "x"}},
		{"missing slug", &entity.Product{Name: "x"}},
		{"negative price", &entity.Product{Name: "x", Slug: "x", Price: decimal.NewFromInt(-1)}},
		{"negative stock", &entity.Product{Name: "x", Slug: "x", Stock: -1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Create(ctx, tc.product)
			require.Error(t, err)
			var appErr *errorbank.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, errorbank.KindBadRequest, appErr.Kind())
		})
	}
}

func TestUpdateValidation(t *testing.T) {
	svc := newService(&mapCache{values: map[string][]byte{}})
	ctx := context.Background()

	err := svc.Update(ctx, 1, repo.Patch{})
	require.Error(t, err)

	negative := decimal.NewFromInt(-1)
	err = svc.Update(ctx, 1, repo.Patch{Price: &negative})
	require.Error(t, err)

	stock := -1
	err = svc.Update(ctx, 1, repo.Patch{Stock: &stock})
	require.Error(t, err)
}
