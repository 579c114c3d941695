package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// idEpoch is subtracted from timestamps so ids stay short for decades.
// 2020-01-01T00:00:00Z.
const idEpoch = int64(1577836800000)

// NewID returns an opaque note/entity id. The first ten characters encode the
// creation time in base36, so lexicographic order matches creation order; the
// tail is random.
func NewID(t time.Time) string {
	ms := t.UnixMilli() - idEpoch
	if ms < 0 {
		ms = 0
	}
	ts := strconv.FormatInt(ms, 36)
	if len(ts) < 10 {
		ts = strings.Repeat("0", 10-len(ts)) + ts
	}
	entropy := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return ts + entropy
}

// IDTime recovers the creation time encoded in an id. Returns the zero time
// for malformed ids.
func IDTime(id string) time.Time {
	if len(id) < 10 {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(id[:10], 36, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms + idEpoch).UTC()
}
