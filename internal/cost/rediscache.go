package cost

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"qroute/internal/model"
)

// MatrixCache memoizes a cost function in Redis, keyed by the exact
// coordinate list and unit. Cache failures are non-fatal: a miss or a Redis
// error just falls through to the wrapped function.
type MatrixCache struct {
	rdb  *redis.Client
	next model.CostFunc
	ttl  time.Duration
}

func NewMatrixCache(redisURL string, next model.CostFunc, ttl time.Duration) (*MatrixCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &MatrixCache{rdb: redis.NewClient(opt), next: next, ttl: ttl}, nil
}

// Compute satisfies model.CostFunc.
func (c *MatrixCache) Compute(locs []model.Coord, unit model.DistanceUnit) ([][]float64, error) {
	key, err := cacheKey(locs, unit)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if data, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var m [][]float64
		if json.Unmarshal(data, &m) == nil {
			return m, nil
		}
	}
	m, err := c.next(locs, unit)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(m); err == nil {
		c.rdb.Set(ctx, key, data, c.ttl)
	}
	return m, nil
}

// Close releases the underlying Redis connection.
func (c *MatrixCache) Close() error { return c.rdb.Close() }

func cacheKey(locs []model.Coord, unit model.DistanceUnit) (string, error) {
	payload, err := json.Marshal(struct {
		Locs []model.Coord      `json:"locs"`
		Unit model.DistanceUnit `json:"unit"`
	}{locs, unit})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("qroute:matrix:%x", sha256.Sum256(payload)), nil
}
