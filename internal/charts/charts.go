// Package charts maintains per-day analytics counters in redis hashes.
package charts

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"quill/internal/cache"
)

// chartTTL keeps daily hashes around long enough for aggregation jobs.
const chartTTL = 90 * 24 * time.Hour

// Charts increments the daily note counters.
type Charts struct {
	rdb *redis.Client
}

// New creates a Charts instance on the given redis client.
func New(rdb *redis.Client) *Charts {
	return &Charts{rdb: rdb}
}

// IncNote bumps the counters for one note mutation: the instance-wide total,
// the per-user count, and (for remote authors, when instance charting is
// enabled) the per-instance count.
func (c *Charts) IncNote(ctx context.Context, userID, userHost string, instanceChartsEnabled bool) error {
	if c.rdb == nil {
		return nil
	}
	now := time.Now()

	pipe := c.rdb.Pipeline()
	notesKey := cache.ChartKey("notes", now)
	pipe.HIncrBy(ctx, notesKey, "total", 1)
	pipe.Expire(ctx, notesKey, chartTTL)

	userKey := cache.ChartKey("user:"+userID, now)
	pipe.HIncrBy(ctx, userKey, "notes", 1)
	pipe.Expire(ctx, userKey, chartTTL)

	if userHost != "" && instanceChartsEnabled {
		instKey := cache.ChartKey("instance:"+userHost, now)
		pipe.HIncrBy(ctx, instKey, "notes", 1)
		pipe.Expire(ctx, instKey, chartTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("charts pipeline: %w", err)
	}
	return nil
}

// BumpHashtag raises a tag's score in the user's hashtag index.
func (c *Charts) BumpHashtag(ctx context.Context, userID, tag string) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.ZIncrBy(ctx, cache.HashtagKey(userID), 1, tag).Err()
}

// PushRoleTimeline prepends a note onto a role-scoped timeline, trimmed to a
// fixed cap.
func (c *Charts) PushRoleTimeline(ctx context.Context, roleID, noteID string) error {
	if c.rdb == nil {
		return nil
	}
	key := cache.RoleTimelineKey(roleID)
	pipe := c.rdb.Pipeline()
	pipe.LPush(ctx, key, noteID)
	pipe.LTrim(ctx, key, 0, cache.RoleTimelineCap-1)
	_, err := pipe.Exec(ctx)
	return err
}
