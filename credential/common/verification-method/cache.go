package verificationmethod

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/anam145/go-credential-sdk/credential/common/model"
	"github.com/anam145/go-credential-sdk/internal/logger"
)

// Cache stores resolved DID documents. Misses and backend errors look the
// same to the resolver, which then asks the ledger.
type Cache interface {
	Get(ctx context.Context, did string) (*model.DIDDocument, bool)
	Set(ctx context.Context, did string, doc *model.DIDDocument)
}

// MemoryCache keeps documents in process memory.
type MemoryCache struct {
	c *gocache.Cache
}

// NewMemoryCache returns a cache whose entries expire after ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{c: gocache.New(ttl, 2*ttl)}
}

func (m *MemoryCache) Get(_ context.Context, did string) (*model.DIDDocument, bool) {
	v, ok := m.c.Get(did)
	if !ok {
		return nil, false
	}
	doc, ok := v.(*model.DIDDocument)
	return doc, ok
}

func (m *MemoryCache) Set(_ context.Context, did string, doc *model.DIDDocument) {
	m.c.SetDefault(did, doc)
}

// RedisCache shares documents between verifier instances. Backend failures
// are logged and then treated as misses.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
	log    *zap.Logger
}

// RedisCacheOpt configures a RedisCache.
type RedisCacheOpt func(*RedisCache)

// WithCacheLogger sets the logger backend failures are reported to.
func WithCacheLogger(log *zap.Logger) RedisCacheOpt {
	return func(r *RedisCache) {
		if log != nil {
			r.log = log
		}
	}
}

// NewRedisCache returns a cache storing JSON documents under "did:doc:" keys.
func NewRedisCache(client redis.UniversalClient, ttl time.Duration, opts ...RedisCacheOpt) *RedisCache {
	r := &RedisCache{client: client, ttl: ttl, prefix: "did:doc:", log: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisCache) Get(ctx context.Context, did string) (*model.DIDDocument, bool) {
	data, err := r.client.Get(ctx, r.prefix+did).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn("DID cache read failed", logger.DID(did), zap.Error(err))
		}
		return nil, false
	}
	var doc model.DIDDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		r.log.Warn("DID cache entry is corrupt", logger.DID(did), zap.Error(err))
		return nil, false
	}
	return &doc, true
}

func (r *RedisCache) Set(ctx context.Context, did string, doc *model.DIDDocument) {
	data, err := json.Marshal(doc)
	if err != nil {
		r.log.Warn("DID cache write failed", logger.DID(did), zap.Error(err))
		return
	}
	if err := r.client.Set(ctx, r.prefix+did, data, r.ttl).Err(); err != nil {
		r.log.Warn("DID cache write failed", logger.DID(did), zap.Error(err))
	}
}
