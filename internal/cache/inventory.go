package cache

import (
	"fmt"
	"time"
)

// Queue and key names shared by producers and (external) consumers.
const (
	QueueNotifications = "queue:notifications"
	QueueWebhooks      = "queue:webhooks"
	QueueDeliver       = "queue:deliver"
	QueueSearchIndex   = "queue:search-index"
	ScheduleKey        = "schedule:oneshot"
)

const (
	hashtagKeyPrefix      = "hashtags:user:%s"
	roleTimelineKeyPrefix = "timeline:role:%s"
	chartDayKeyPrefix     = "charts:%s:%s" // scope, yyyymmdd
)

// RoleTimelineCap bounds the length of each role-scoped timeline list.
const RoleTimelineCap = 1000

func HashtagKey(userID string) string {
	return fmt.Sprintf(hashtagKeyPrefix, userID)
}

func RoleTimelineKey(roleID string) string {
	return fmt.Sprintf(roleTimelineKeyPrefix, roleID)
}

func ChartKey(scope string, day time.Time) string {
	return fmt.Sprintf(chartDayKeyPrefix, scope, day.UTC().Format("20060102"))
}
