package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestJobQueue_EnqueueAndLen(t *testing.T) {
	rdb := setupRedis(t)
	q := NewJobQueue(rdb, "test:jobs")
	ctx := context.Background()

	type payload struct {
		ID string `json:"id"`
	}
	require.NoError(t, q.Enqueue(ctx, payload{ID: "a"}))
	require.NoError(t, q.Enqueue(ctx, payload{ID: "b"}))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// LPush means the consumer pops with RPop; the oldest job sits at the tail.
	raw, err := rdb.RPop(ctx, "test:jobs").Result()
	require.NoError(t, err)
	var got payload
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	assert.Equal(t, "a", got.ID)
}

func TestJobQueue_NilRedisIsNoop(t *testing.T) {
	q := NewJobQueue(nil, "test:jobs")
	assert.NoError(t, q.Enqueue(context.Background(), "x"))
	n, err := q.Len(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestScheduler_ScheduleAt(t *testing.T) {
	rdb := setupRedis(t)
	s := NewScheduler(rdb, "test:schedule")
	ctx := context.Background()

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.ScheduleAt(ctx, "poll-expiry", "note1", at))

	score, err := rdb.ZScore(ctx, "test:schedule", "poll-expiry:note1").Result()
	require.NoError(t, err)
	assert.Equal(t, float64(at.UnixMilli()), score)
}

func TestScheduler_RescheduleReplacesTimestamp(t *testing.T) {
	rdb := setupRedis(t)
	s := NewScheduler(rdb, "test:schedule")
	ctx := context.Background()

	first := time.Now().Add(time.Hour)
	second := first.Add(time.Hour)
	require.NoError(t, s.ScheduleAt(ctx, "poll-expiry", "note1", first))
	require.NoError(t, s.ScheduleAt(ctx, "poll-expiry", "note1", second))

	n, err := rdb.ZCard(ctx, "test:schedule").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	score, err := rdb.ZScore(ctx, "test:schedule", "poll-expiry:note1").Result()
	require.NoError(t, err)
	assert.Equal(t, float64(second.UnixMilli()), score)
}
