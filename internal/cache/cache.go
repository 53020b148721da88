// Package cache stores lookup directory dumps between requests.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/supermon-ng/supermon-ng/internal/config"
)

// Cache is a byte-value store with per-entry expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	Close() error
}

// New creates the cache configured in cfg.
func New(cfg config.CacheConfig) (Cache, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "memory":
		return NewMemory(cfg.Cleanup), nil
	case "redis":
		return NewRedis(RedisOptions{
			URL:      cfg.URL,
			Prefix:   cfg.Prefix,
			Compress: cfg.Compress,
		})
	default:
		return nil, fmt.Errorf("unsupported cache type: %s (supported: memory, redis)", cfg.Type)
	}
}
