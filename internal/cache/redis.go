package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang/snappy"
	"github.com/redis/go-redis/v9"
)

// RedisOptions configures a Redis cache.
type RedisOptions struct {
	URL      string
	Prefix   string
	Compress bool
}

// Redis stores entries in Redis, optionally snappy-compressed, so several
// console instances share one copy of the directory dumps.
type Redis struct {
	client   *redis.Client
	prefix   string
	compress bool
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(opts RedisOptions) (*Redis, error) {
	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		redisOpts = &redis.Options{Addr: opts.URL}
	}
	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Redis{client: client, prefix: opts.Prefix, compress: opts.Compress}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if r.compress && len(data) > 0 {
		data, err = snappy.Decode(nil, data)
		if err != nil {
			return nil, false, fmt.Errorf("snappy decompress failed: %w", err)
		}
	}
	return data, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if r.compress && len(value) > 0 {
		value = snappy.Encode(nil, value)
	}
	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

func (r *Redis) DeletePrefix(ctx context.Context, prefix string) error {
	iter := r.client.Scan(ctx, 0, r.prefix+prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
