package cache

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ahmad9059/sehatscan/internal/domain/analysis"
)

// Redis-backed TTL cache. Every operation is best effort: a cache
// problem degrades to a miss (forcing a recompute), never to an error.
type Redis struct {
	rdb *goredis.Client
	log *zap.Logger
}

func New(ctx context.Context, addr, password string, db int, log *zap.Logger) (*Redis, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	if log == nil {
		log = zap.NewNop()
	}
	return &Redis{rdb: rdb, log: log}, nil
}

var _ analysis.Cache = (*Redis)(nil)

func (c *Redis) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	return val, true
}

func (c *Redis) SetWithTTL(ctx context.Context, key, value string, ttlSeconds int) {
	if err := c.rdb.Set(ctx, key, value, time.Duration(ttlSeconds)*time.Second).Err(); err != nil {
		c.log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *Redis) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("cache delete failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func (c *Redis) Close() error { return c.rdb.Close() }

// Ping lets the health endpoint check the connection.
func (c *Redis) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
