package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shopmicro/shopmicro/internal/product/domain"
	"github.com/shopmicro/shopmicro/internal/product/repository"
	apperrors "github.com/shopmicro/shopmicro/pkg/errors"
)

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) UpdateStock(ctx context.Context, id int64, quantity int) (*domain.Product, error) {
	args := m.Called(ctx, id, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func setupTestCache(t *testing.T) (*CachedProductRepository, *mockProductRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	next := new(mockProductRepository)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	repo := NewCachedProductRepository(next, client, 5*time.Minute, logger)
	return repo, next, mr
}

func sampleProduct() *domain.Product {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.Product{
		ID:            1,
		Name:          "Widget",
		Description:   "A fine widget",
		Price:         1999,
		StockQuantity: 10,
		Category:      "gadgets",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestGetByID_CacheMiss_PopulatesCache(t *testing.T) {
	repo, next, mr := setupTestCache(t)
	ctx := context.Background()

	expected := sampleProduct()
	next.On("GetByID", ctx, int64(1)).Return(expected, nil).Once()

	got, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, expected.Name, got.Name)

	// The entry is now cached.
	assert.True(t, mr.Exists("product:1"))

	raw, err := mr.Get("product:1")
	require.NoError(t, err)

	var cached domain.Product
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	assert.Equal(t, expected.ID, cached.ID)
	assert.Equal(t, expected.Price, cached.Price)

	next.AssertExpectations(t)
}

func TestGetByID_CacheHit_SkipsRepository(t *testing.T) {
	repo, next, mr := setupTestCache(t)
	ctx := context.Background()

	p := sampleProduct()
	data, err := json.Marshal(p)
	require.NoError(t, err)
	require.NoError(t, mr.Set("product:1", string(data)))

	got, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.StockQuantity, got.StockQuantity)

	next.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestGetByID_CorruptEntry_FallsThrough(t *testing.T) {
	repo, next, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("product:1", "{{not-valid-json"))

	expected := sampleProduct()
	next.On("GetByID", ctx, int64(1)).Return(expected, nil).Once()

	got, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, expected.Name, got.Name)

	// The corrupt entry was replaced with a fresh one.
	raw, err := mr.Get("product:1")
	require.NoError(t, err)
	var cached domain.Product
	assert.NoError(t, json.Unmarshal([]byte(raw), &cached))

	next.AssertExpectations(t)
}

func TestGetByID_NotFoundNotCached(t *testing.T) {
	repo, next, mr := setupTestCache(t)
	ctx := context.Background()

	next.On("GetByID", ctx, int64(99)).Return(nil, apperrors.ErrNotFound)

	got, err := repo.GetByID(ctx, 99)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.False(t, mr.Exists("product:99"))
}

func TestUpdate_InvalidatesCache(t *testing.T) {
	repo, next, mr := setupTestCache(t)
	ctx := context.Background()

	p := sampleProduct()
	data, err := json.Marshal(p)
	require.NoError(t, err)
	require.NoError(t, mr.Set("product:1", string(data)))

	next.On("Update", ctx, p).Return(nil)

	require.NoError(t, repo.Update(ctx, p))
	assert.False(t, mr.Exists("product:1"))

	next.AssertExpectations(t)
}

func TestUpdate_ErrorKeepsCache(t *testing.T) {
	repo, next, mr := setupTestCache(t)
	ctx := context.Background()

	p := sampleProduct()
	data, err := json.Marshal(p)
	require.NoError(t, err)
	require.NoError(t, mr.Set("product:1", string(data)))

	next.On("Update", ctx, p).Return(apperrors.ErrNotFound)

	err = repo.Update(ctx, p)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.True(t, mr.Exists("product:1"))
}

func TestUpdateStock_InvalidatesCache(t *testing.T) {
	repo, next, mr := setupTestCache(t)
	ctx := context.Background()

	stale := sampleProduct()
	data, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, mr.Set("product:1", string(data)))

	updated := sampleProduct()
	updated.StockQuantity = 3
	next.On("UpdateStock", ctx, int64(1), 3).Return(updated, nil)

	got, err := repo.UpdateStock(ctx, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, got.StockQuantity)
	assert.False(t, mr.Exists("product:1"))

	next.AssertExpectations(t)
}

func TestDelete_InvalidatesCache(t *testing.T) {
	repo, next, mr := setupTestCache(t)
	ctx := context.Background()

	p := sampleProduct()
	data, err := json.Marshal(p)
	require.NoError(t, err)
	require.NoError(t, mr.Set("product:1", string(data)))

	next.On("Delete", ctx, int64(1)).Return(nil)

	require.NoError(t, repo.Delete(ctx, 1))
	assert.False(t, mr.Exists("product:1"))
}

func TestCreateAndList_PassThrough(t *testing.T) {
	repo, next, _ := setupTestCache(t)
	ctx := context.Background()

	p := sampleProduct()
	next.On("Create", ctx, p).Return(nil)

	filter := repository.ProductFilter{Page: 1, PerPage: 20}
	next.On("List", ctx, filter).Return([]domain.Product{*p}, 1, nil)

	require.NoError(t, repo.Create(ctx, p))

	products, total, err := repo.List(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, products, 1)

	next.AssertExpectations(t)
}

func TestGetByID_RedisDown_FallsThrough(t *testing.T) {
	repo, next, mr := setupTestCache(t)
	ctx := context.Background()

	// Stop miniredis so cache reads fail with a transport error.
	mr.Close()

	expected := sampleProduct()
	next.On("GetByID", ctx, int64(1)).Return(expected, nil)

	got, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, expected.Name, got.Name)

	next.AssertExpectations(t)
}
