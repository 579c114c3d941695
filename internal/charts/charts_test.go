package charts

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quill/internal/cache"
)

func setupCharts(t *testing.T) (*Charts, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb), rdb
}

func TestIncNote_LocalAuthor(t *testing.T) {
	c, rdb := setupCharts(t)
	ctx := context.Background()

	require.NoError(t, c.IncNote(ctx, "u1", "", true))
	require.NoError(t, c.IncNote(ctx, "u1", "", true))

	now := time.Now()
	total, err := rdb.HGet(ctx, cache.ChartKey("notes", now), "total").Result()
	require.NoError(t, err)
	assert.Equal(t, "2", total)

	user, err := rdb.HGet(ctx, cache.ChartKey("user:u1", now), "notes").Result()
	require.NoError(t, err)
	assert.Equal(t, "2", user)

	exists, err := rdb.Exists(ctx, cache.ChartKey("instance:", now)).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

func TestIncNote_RemoteAuthorInstanceCounter(t *testing.T) {
	c, rdb := setupCharts(t)
	ctx := context.Background()

	require.NoError(t, c.IncNote(ctx, "u1", "remote.example", true))

	count, err := rdb.HGet(ctx, cache.ChartKey("instance:remote.example", time.Now()), "notes").Result()
	require.NoError(t, err)
	assert.Equal(t, "1", count)
}

func TestIncNote_InstanceChartsDisabled(t *testing.T) {
	c, rdb := setupCharts(t)
	ctx := context.Background()

	require.NoError(t, c.IncNote(ctx, "u1", "remote.example", false))

	exists, err := rdb.Exists(ctx, cache.ChartKey("instance:remote.example", time.Now())).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

func TestBumpHashtag(t *testing.T) {
	c, rdb := setupCharts(t)
	ctx := context.Background()

	require.NoError(t, c.BumpHashtag(ctx, "u1", "golang"))
	require.NoError(t, c.BumpHashtag(ctx, "u1", "golang"))
	require.NoError(t, c.BumpHashtag(ctx, "u1", "redis"))

	score, err := rdb.ZScore(ctx, cache.HashtagKey("u1"), "golang").Result()
	require.NoError(t, err)
	assert.Equal(t, float64(2), score)
}

func TestPushRoleTimeline_Trims(t *testing.T) {
	c, rdb := setupCharts(t)
	ctx := context.Background()

	for i := 0; i < cache.RoleTimelineCap+10; i++ {
		require.NoError(t, c.PushRoleTimeline(ctx, "r1", "note"))
	}

	n, err := rdb.LLen(ctx, cache.RoleTimelineKey("r1")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(cache.RoleTimelineCap), n)
}

func TestNilRedisIsNoop(t *testing.T) {
	c := New(nil)
	ctx := context.Background()
	assert.NoError(t, c.IncNote(ctx, "u1", "", true))
	assert.NoError(t, c.BumpHashtag(ctx, "u1", "tag"))
	assert.NoError(t, c.PushRoleTimeline(ctx, "r1", "note1"))
}
