package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"quill/internal/observability"
)

// JobQueue is a redis-list-backed queue. The pipeline only enqueues; delivery
// semantics (retries, acks) belong to the consumer side.
type JobQueue struct {
	rdb *redis.Client
	key string
}

// NewJobQueue creates a queue on the given redis list key.
func NewJobQueue(rdb *redis.Client, key string) *JobQueue {
	return &JobQueue{rdb: rdb, key: key}
}

// Enqueue marshals payload and pushes it onto the queue.
func (q *JobQueue) Enqueue(ctx context.Context, payload any) error {
	if q.rdb == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal job for %s: %w", q.key, err)
	}
	if err := q.rdb.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("enqueue to %s: %w", q.key, err)
	}
	observability.QueueEnqueuesTotal.WithLabelValues(q.key).Inc()
	return nil
}

// Len returns the current queue depth.
func (q *JobQueue) Len(ctx context.Context) (int64, error) {
	if q.rdb == nil {
		return 0, nil
	}
	return q.rdb.LLen(ctx, q.key).Result()
}

// Scheduler is a sorted-set-backed one-shot scheduler. Members fire when the
// consumer pops entries whose score has passed.
type Scheduler struct {
	rdb *redis.Client
	key string
}

// NewScheduler creates a scheduler on the given redis sorted-set key.
func NewScheduler(rdb *redis.Client, key string) *Scheduler {
	return &Scheduler{rdb: rdb, key: key}
}

// ScheduleAt registers a one-shot job of the given kind for the given moment.
// Re-scheduling the same (kind, id) pair replaces the previous timestamp.
func (s *Scheduler) ScheduleAt(ctx context.Context, kind, id string, at time.Time) error {
	if s.rdb == nil {
		return nil
	}
	member := kind + ":" + id
	err := s.rdb.ZAdd(ctx, s.key, redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: member,
	}).Err()
	if err != nil {
		return fmt.Errorf("schedule %s: %w", member, err)
	}
	return nil
}
