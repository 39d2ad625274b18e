package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"airbnb-harvester/models"
)

// memBlobs answers like a Redis server holding plain string keys.
type memBlobs struct {
	data map[string]string
	ttl  time.Duration
	err  error
}

func (m *memBlobs) Get(_ context.Context, key string) *redis.StringCmd {
	if m.err != nil {
		return redis.NewStringResult("", m.err)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memBlobs) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if m.err != nil {
		return redis.NewStatusResult("", m.err)
	}
	b, _ := value.([]byte)
	m.data[key] = string(b)
	m.ttl = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *memBlobs) Del(_ context.Context, keys ...string) *redis.IntCmd {
	if m.err != nil {
		return redis.NewIntResult(0, m.err)
	}
	n := 0
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	return redis.NewIntResult(int64(n), nil)
}

func (m *memBlobs) Close() error { return nil }

func TestRedisCheckpointMissingKey(t *testing.T) {
	c := &RedisCheckpoint{client: &memBlobs{data: map[string]string{}}, key: "harvester:checkpoint"}

	cp, ok, err := c.Load(context.Background())
	if err != nil || ok || cp != nil {
		t.Errorf("Load on empty redis = %v, %v, %v; want nil, false, nil", cp, ok, err)
	}
}

func TestRedisCheckpointLifecycle(t *testing.T) {
	ctx := context.Background()
	blobs := &memBlobs{data: map[string]string{}}
	c := &RedisCheckpoint{client: blobs, key: "harvester:checkpoint"}

	want := &Checkpoint{
		RunID:          "run-1",
		SeenURLs:       []string{"https://www.airbnb.com/rooms/1"},
		ScrapedRecords: []models.ListingRecord{{URL: "https://www.airbnb.com/rooms/1", Title: "One"}},
		ProcessedCount: 1,
		PendingURLs:    []string{"https://www.airbnb.com/rooms/2"},
	}
	if err := c.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if blobs.ttl != checkpointTTL {
		t.Errorf("TTL = %v; want %v", blobs.ttl, checkpointTTL)
	}

	got, ok, err := c.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("Load = %v, %v", ok, err)
	}
	if got.RunID != want.RunID || got.ProcessedCount != 1 || len(got.ScrapedRecords) != 1 ||
		got.ScrapedRecords[0] != want.ScrapedRecords[0] || len(got.PendingURLs) != 1 {
		t.Errorf("Load = %+v; want %+v", got, want)
	}

	if err := c.Delete(ctx); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := c.Load(ctx); ok {
		t.Error("checkpoint still present after Delete")
	}
}

func TestRedisCheckpointErrors(t *testing.T) {
	ctx := context.Background()
	down := errors.New("connection refused")
	c := &RedisCheckpoint{client: &memBlobs{data: map[string]string{}, err: down}, key: "k"}

	var pe *PersistenceError
	if _, _, err := c.Load(ctx); !errors.As(err, &pe) || !errors.Is(err, down) {
		t.Errorf("Load err = %v; want PersistenceError wrapping the cause", err)
	}
	if err := c.Save(ctx, &Checkpoint{}); !errors.As(err, &pe) || pe.Op != "redis set" {
		t.Errorf("Save err = %v", err)
	}
	if err := c.Delete(ctx); !errors.As(err, &pe) || pe.Op != "redis del" {
		t.Errorf("Delete err = %v", err)
	}

	corrupt := &RedisCheckpoint{client: &memBlobs{data: map[string]string{"k": "{not json"}}, key: "k"}
	if _, ok, err := corrupt.Load(ctx); ok || !errors.As(err, &pe) || pe.Op != "decode checkpoint" {
		t.Errorf("Load corrupt = %v, %v", ok, err)
	}
}
