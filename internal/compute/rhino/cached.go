package rhino

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/turtacn/Massing-Sim/internal/compute/datatree"
	"github.com/turtacn/Massing-Sim/internal/infrastructure/monitoring/logging"
)

// ResultCache is the subset of the redis cache used to memoise evaluations.
type ResultCache interface {
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration,
		loader func(ctx context.Context) (interface{}, error)) error
}

// CacheRecorder is told whether a lookup was served from cache.
type CacheRecorder interface {
	RecordCacheAccess(cache string, hit bool)
}

// CachedClient memoises evaluations of identical definition and inputs.
// Simulation definitions write heatmap files and must bypass it.
type CachedClient struct {
	next     Client
	cache    ResultCache
	ttl      time.Duration
	logger   logging.Logger
	recorder CacheRecorder
}

// NewCachedClient wraps next.  A zero ttl uses the cache default.
func NewCachedClient(next Client, cache ResultCache, ttl time.Duration, logger logging.Logger, recorder CacheRecorder) *CachedClient {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &CachedClient{next: next, cache: cache, ttl: ttl, logger: logger, recorder: recorder}
}

// CacheKey derives a stable key from the definition name and encoded trees.
func CacheKey(definition string, trees []datatree.Tree) (string, error) {
	if trees == nil {
		trees = []datatree.Tree{}
	}
	payload, err := json.Marshal(trees)
	if err != nil {
		return "", fmt.Errorf("rhino: cache key: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(definition))
	h.Write([]byte{0})
	h.Write(payload)
	return "eval:" + hex.EncodeToString(h.Sum(nil)), nil
}

// Evaluate serves from cache or evaluates and stores the result.  Cache
// failures fall back to a direct evaluation.
func (c *CachedClient) Evaluate(ctx context.Context, definition string, trees []datatree.Tree) (*datatree.Result, error) {
	key, err := CacheKey(definition, trees)
	if err != nil {
		return c.next.Evaluate(ctx, definition, trees)
	}

	loaded := false
	var res datatree.Result
	err = c.cache.GetOrSet(ctx, key, &res, c.ttl, func(ctx context.Context) (interface{}, error) {
		loaded = true
		return c.next.Evaluate(ctx, definition, trees)
	})
	if err != nil {
		if loaded {
			// evaluation itself failed; do not evaluate twice
			return nil, err
		}
		c.logger.Warn("evaluation cache unavailable, evaluating directly",
			logging.String("definition", definition), logging.Err(err))
		return c.next.Evaluate(ctx, definition, trees)
	}
	if c.recorder != nil {
		c.recorder.RecordCacheAccess("evaluation", !loaded)
	}
	return &res, nil
}

func (c *CachedClient) Healthy(ctx context.Context) error { return c.next.Healthy(ctx) }

func (c *CachedClient) Close() error { return c.next.Close() }

//Personal.AI order the ending
