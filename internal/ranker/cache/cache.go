// Package cache keeps finished rankings in Redis so repeated queries for the
// same root skip the full corpus scan.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	gojson "github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/wordvec/internal/ranker"
	"github.com/Adithya-Monish-Kumar-K/wordvec/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/wordvec/pkg/redis"
)

const keyPrefix = "rank:"

// Client is the subset of pkg/redis.Client the cache uses.
type Client interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// ComputeFunc produces the ranking on a miss.
type ComputeFunc func(ctx context.Context) ([]ranker.Neighbor, error)

// cachedNeighbor is the stored form of a Neighbor. JSON has no infinity, so
// the degenerate sentinel is stored as a null distance.
type cachedNeighbor struct {
	Word     string   `json:"w"`
	Distance *float64 `json:"d"`
}

// RankCache is safe for concurrent use. A nil *RankCache is valid and always
// computes. Keys are scoped to one data directory, so stores sharing a Redis
// instance never see each other's rankings.
type RankCache struct {
	client  Client
	scope   string
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New returns a cache for rankings computed over the store in dataDir.
func New(client Client, dataDir string, ttl time.Duration, m *metrics.Metrics) *RankCache {
	return &RankCache{
		client:  client,
		scope:   scopeOf(dataDir),
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "rank-cache"),
	}
}

// GetOrCompute returns the cached ranking for root, or runs compute and
// caches its result. Concurrent calls for the same root share one compute.
// Cache failures are logged and fall through to compute; only compute
// errors are returned. cached reports whether the result came from Redis.
func (c *RankCache) GetOrCompute(ctx context.Context, root string, compute ComputeFunc) (result []ranker.Neighbor, cached bool, err error) {
	if c == nil {
		result, err = compute(ctx)
		return result, false, err
	}
	if result, ok := c.get(ctx, root); ok {
		return result, true, nil
	}
	key := c.key(root)
	val, err, _ := c.group.Do(key, func() (any, error) {
		if result, ok := c.get(ctx, root); ok {
			return result, nil
		}
		result, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.set(ctx, root, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]ranker.Neighbor), false, nil
}

// Invalidate drops every cached ranking of this data directory. Any write to
// the store makes all of them stale, since each ranking covers the whole
// corpus.
func (c *RankCache) Invalidate(ctx context.Context) error {
	if c == nil {
		return nil
	}
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+c.scope+":*")
	if err != nil {
		return fmt.Errorf("invalidating rank cache: %w", err)
	}
	c.logger.Info("rank cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *RankCache) get(ctx context.Context, root string) ([]ranker.Neighbor, bool) {
	key := c.key(root)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.metrics.CacheLookup(false)
		return nil, false
	}
	var stored []cachedNeighbor
	if err := gojson.Unmarshal(data, &stored); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.metrics.CacheLookup(false)
		return nil, false
	}
	c.metrics.CacheLookup(true)
	c.logger.Debug("cache hit", "root", root, "key", key)
	return fromCached(stored), true
}

func (c *RankCache) set(ctx context.Context, root string, result []ranker.Neighbor) {
	key := c.key(root)
	data, err := gojson.Marshal(toCached(result))
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

func (c *RankCache) key(root string) string {
	return fmt.Sprintf("%s%s:%x", keyPrefix, c.scope, sha256.Sum256([]byte(root)))
}

// scopeOf identifies a data directory by its absolute path.
func scopeOf(dataDir string) string {
	dir, err := filepath.Abs(dataDir)
	if err != nil {
		dir = filepath.Clean(dataDir)
	}
	sum := sha256.Sum256([]byte(dir))
	return fmt.Sprintf("%x", sum[:8])
}

func toCached(ns []ranker.Neighbor) []cachedNeighbor {
	out := make([]cachedNeighbor, len(ns))
	for i, n := range ns {
		out[i].Word = n.Word
		if !n.Degenerate() {
			d := n.Distance
			out[i].Distance = &d
		}
	}
	return out
}

func fromCached(cs []cachedNeighbor) []ranker.Neighbor {
	out := make([]ranker.Neighbor, len(cs))
	for i, c := range cs {
		out[i].Word = c.Word
		if c.Distance == nil {
			out[i].Distance = ranker.DegenerateDistance
		} else {
			out[i].Distance = *c.Distance
		}
	}
	return out
}
