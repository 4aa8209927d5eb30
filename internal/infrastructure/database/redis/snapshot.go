package redis

import (
	"context"
	"time"

	"github.com/turtacn/reagent-match/internal/domain/catalog"
	"github.com/turtacn/reagent-match/internal/infrastructure/monitoring/logging"
)

const (
	productsKey = "catalog:products"
	synonymsKey = "catalog:synonyms"
)

// CachedProductRepository serves ListProducts from the cache and falls back
// to the wrapped repository on a miss.
type CachedProductRepository struct {
	next   catalog.ProductRepository
	cache  Cache
	ttl    time.Duration
	logger logging.Logger
}

func NewCachedProductRepository(next catalog.ProductRepository, cache Cache, ttl time.Duration, log logging.Logger) *CachedProductRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &CachedProductRepository{next: next, cache: cache, ttl: ttl, logger: log}
}

func (r *CachedProductRepository) ListProducts(ctx context.Context) ([]*catalog.Product, error) {
	var products []*catalog.Product
	err := r.cache.GetOrSet(ctx, productsKey, &products, r.ttl, func(ctx context.Context) (interface{}, error) {
		r.logger.Debug("product cache miss")
		return r.next.ListProducts(ctx)
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

// Invalidate drops the cached product list so the next read hits the source.
func (r *CachedProductRepository) Invalidate(ctx context.Context) error {
	return r.cache.Delete(ctx, productsKey)
}

// CachedSynonymRepository is the synonym counterpart of CachedProductRepository.
type CachedSynonymRepository struct {
	next   catalog.SynonymRepository
	cache  Cache
	ttl    time.Duration
	logger logging.Logger
}

func NewCachedSynonymRepository(next catalog.SynonymRepository, cache Cache, ttl time.Duration, log logging.Logger) *CachedSynonymRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &CachedSynonymRepository{next: next, cache: cache, ttl: ttl, logger: log}
}

func (r *CachedSynonymRepository) ListSynonyms(ctx context.Context) ([]catalog.SynonymRow, error) {
	var rows []catalog.SynonymRow
	err := r.cache.GetOrSet(ctx, synonymsKey, &rows, r.ttl, func(ctx context.Context) (interface{}, error) {
		r.logger.Debug("synonym cache miss")
		return r.next.ListSynonyms(ctx)
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *CachedSynonymRepository) Invalidate(ctx context.Context) error {
	return r.cache.Delete(ctx, synonymsKey)
}

var (
	_ catalog.ProductRepository = (*CachedProductRepository)(nil)
	_ catalog.SynonymRepository = (*CachedSynonymRepository)(nil)
)
