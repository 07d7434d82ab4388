package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iOSSergey/wireguard-telegram-bot/config"
)

// Redis key for the cached peer summary list.
const peerCacheKey = "cache:active_peers"

// PeerCache stores a serialized peer summary list in Redis so the admin
// API can answer list requests without hitting the primary database. The
// cache has no TTL; the background refresher keeps it current.
type PeerCache struct {
	rdb *redis.Client
}

// ConnectRedis opens the Redis connection and verifies it with a ping.
func ConnectRedis(cfg config.RedisConfig) (*PeerCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &PeerCache{rdb: rdb}, nil
}

func (c *PeerCache) Set(ctx context.Context, data []byte) error {
	return c.rdb.Set(ctx, peerCacheKey, data, 0).Err()
}

// Get returns the cached list, or nil when the key has not been written.
func (c *PeerCache) Get(ctx context.Context) ([]byte, error) {
	data, err := c.rdb.Get(ctx, peerCacheKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return data, err
}

func (c *PeerCache) Close() error {
	return c.rdb.Close()
}
