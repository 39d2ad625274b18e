package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// checkpointTTL bounds how long an abandoned checkpoint lingers in Redis.
const checkpointTTL = 7 * 24 * time.Hour

// blobStore is the part of the Redis client a checkpoint needs.
type blobStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// RedisCheckpoint keeps the checkpoint under a single Redis key, for runners
// whose filesystem does not survive a killed job.
type RedisCheckpoint struct {
	client blobStore
	key    string
}

// NewRedisCheckpoint connects to Redis and checks the connection.
func NewRedisCheckpoint(ctx context.Context, addr, password string, db int, key string) (*RedisCheckpoint, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}
	return &RedisCheckpoint{client: rdb, key: key}, nil
}

func (c *RedisCheckpoint) Load(ctx context.Context) (*Checkpoint, bool, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &PersistenceError{Op: "redis get", Path: c.key, Err: err}
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, false, &PersistenceError{Op: "decode checkpoint", Path: c.key, Err: err}
	}
	return &cp, true, nil
}

func (c *RedisCheckpoint) Save(ctx context.Context, cp *Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return &PersistenceError{Op: "encode checkpoint", Path: c.key, Err: err}
	}
	// SET replaces the whole blob in one step.
	if err := c.client.Set(ctx, c.key, data, checkpointTTL).Err(); err != nil {
		return &PersistenceError{Op: "redis set", Path: c.key, Err: err}
	}
	return nil
}

func (c *RedisCheckpoint) Delete(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return &PersistenceError{Op: "redis del", Path: c.key, Err: err}
	}
	return nil
}

// Close releases the connection pool.
func (c *RedisCheckpoint) Close() error {
	return c.client.Close()
}
