package cache

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/erp/tradedesk/internal/domain/catalog"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Stats reports cache effectiveness
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// readThrough caches reference rows that change rarely. Cache failures
// never fail a lookup: the repository answer is returned and the error
// logged.
type readThrough struct {
	store  Store
	prefix string
	ttl    time.Duration
	logger *zap.Logger
	hits   int64
	misses int64
}

func (c *readThrough) key(kind, id string) string {
	return c.prefix + kind + ":" + id
}

func (c *readThrough) get(ctx context.Context, key string, dst any) bool {
	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn("Dropping corrupt cache entry", zap.String("key", key), zap.Error(err))
		_ = c.store.Delete(ctx, key)
		atomic.AddInt64(&c.misses, 1)
		return false
	}
	atomic.AddInt64(&c.hits, 1)
	return true
}

func (c *readThrough) put(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("Cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *readThrough) stats() Stats {
	return Stats{Hits: atomic.LoadInt64(&c.hits), Misses: atomic.LoadInt64(&c.misses)}
}

// CachedProductRepository decorates a catalog.ProductRepository with a
// read-through cache keyed by product id
type CachedProductRepository struct {
	next  catalog.ProductRepository
	cache *readThrough
}

// NewCachedProductRepository creates a new CachedProductRepository
func NewCachedProductRepository(next catalog.ProductRepository, store Store, prefix string, ttl time.Duration, logger *zap.Logger) *CachedProductRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProductRepository{
		next:  next,
		cache: &readThrough{store: store, prefix: prefix, ttl: ttl, logger: logger},
	}
}

// FindByID finds a product with its packaging specs
func (r *CachedProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	key := r.cache.key("product", id.String())
	var cached catalog.Product
	if r.cache.get(ctx, key, &cached) {
		return &cached, nil
	}
	p, err := r.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.put(ctx, key, p)
	return p, nil
}

// FindByIDs serves cached products and loads the rest in one query
func (r *CachedProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	products := make([]catalog.Product, 0, len(ids))
	missing := make([]uuid.UUID, 0)
	for _, id := range ids {
		var cached catalog.Product
		if r.cache.get(ctx, r.cache.key("product", id.String()), &cached) {
			products = append(products, cached)
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return products, nil
	}

	loaded, err := r.next.FindByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for i := range loaded {
		r.cache.put(ctx, r.cache.key("product", loaded[i].ID.String()), &loaded[i])
	}
	return append(products, loaded...), nil
}

// Stats returns hit and miss counts
func (r *CachedProductRepository) Stats() Stats {
	return r.cache.stats()
}

// CachedFormulaRepository decorates a catalog.DeductionFormulaRepository
// with a read-through cache
type CachedFormulaRepository struct {
	next  catalog.DeductionFormulaRepository
	cache *readThrough
}

// NewCachedFormulaRepository creates a new CachedFormulaRepository
func NewCachedFormulaRepository(next catalog.DeductionFormulaRepository, store Store, prefix string, ttl time.Duration, logger *zap.Logger) *CachedFormulaRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedFormulaRepository{
		next:  next,
		cache: &readThrough{store: store, prefix: prefix, ttl: ttl, logger: logger},
	}
}

// FindByID finds a formula by its ID
func (r *CachedFormulaRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.DeductionFormula, error) {
	key := r.cache.key("formula", id.String())
	var cached catalog.DeductionFormula
	if r.cache.get(ctx, key, &cached) {
		return &cached, nil
	}
	f, err := r.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.put(ctx, key, f)
	return f, nil
}

// FindActive lists active formulas ordered by sort order
func (r *CachedFormulaRepository) FindActive(ctx context.Context) ([]catalog.DeductionFormula, error) {
	key := r.cache.key("formula", "active")
	var cached []catalog.DeductionFormula
	if r.cache.get(ctx, key, &cached) {
		return cached, nil
	}
	formulas, err := r.next.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	r.cache.put(ctx, key, formulas)
	return formulas, nil
}

// Stats returns hit and miss counts
func (r *CachedFormulaRepository) Stats() Stats {
	return r.cache.stats()
}
