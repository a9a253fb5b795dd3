package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shopmicro/shopmicro/internal/product/domain"
	"github.com/shopmicro/shopmicro/internal/product/repository"
)

const keyPrefix = "product:"

// CachedProductRepository is a read-through cache decorator around another
// ProductRepository. GetByID is served from Redis when possible; writes go
// to the underlying repository and invalidate the cached entry. Cache
// failures are logged and never fail the operation.
type CachedProductRepository struct {
	next   repository.ProductRepository
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedProductRepository wraps the given repository with a Redis cache.
func NewCachedProductRepository(next repository.ProductRepository, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedProductRepository {
	return &CachedProductRepository{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func cacheKey(id int64) string {
	return keyPrefix + strconv.FormatInt(id, 10)
}

// Create inserts a product through the underlying repository.
func (r *CachedProductRepository) Create(ctx context.Context, p *domain.Product) error {
	return r.next.Create(ctx, p)
}

// GetByID returns the cached product if present, otherwise loads it from the
// underlying repository and populates the cache.
func (r *CachedProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	key := cacheKey(id)

	data, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		var p domain.Product
		if err := json.Unmarshal(data, &p); err == nil {
			return &p, nil
		}
		// Corrupt entry: drop it and fall through to the source of truth.
		_ = r.client.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) {
		r.logger.WarnContext(ctx, "product cache read failed",
			slog.Int64("product_id", id),
			slog.String("error", err.Error()),
		)
	}

	p, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.set(ctx, p)
	return p, nil
}

// List bypasses the cache and queries the underlying repository.
func (r *CachedProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	return r.next.List(ctx, filter)
}

// Update writes through to the underlying repository and invalidates the
// cached entry.
func (r *CachedProductRepository) Update(ctx context.Context, p *domain.Product) error {
	if err := r.next.Update(ctx, p); err != nil {
		return err
	}
	r.invalidate(ctx, p.ID)
	return nil
}

// UpdateStock writes through to the underlying repository and invalidates the
// cached entry.
func (r *CachedProductRepository) UpdateStock(ctx context.Context, id int64, quantity int) (*domain.Product, error) {
	p, err := r.next.UpdateStock(ctx, id, quantity)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, id)
	return p, nil
}

// Delete removes the product and its cached entry.
func (r *CachedProductRepository) Delete(ctx context.Context, id int64) error {
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *CachedProductRepository) set(ctx context.Context, p *domain.Product) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, cacheKey(p.ID), data, r.ttl).Err(); err != nil {
		r.logger.WarnContext(ctx, "product cache write failed",
			slog.Int64("product_id", p.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (r *CachedProductRepository) invalidate(ctx context.Context, id int64) {
	if err := r.client.Del(ctx, cacheKey(id)).Err(); err != nil {
		r.logger.WarnContext(ctx, "product cache invalidation failed",
			slog.Int64("product_id", id),
			slog.String("error", fmt.Sprintf("%v", err)),
		)
	}
}
