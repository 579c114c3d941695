package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID_Length(t *testing.T) {
	id := NewID(time.Now())
	assert.Len(t, id, 18)
}

func TestNewID_LexicographicOrderFollowsTime(t *testing.T) {
	earlier := NewID(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	later := NewID(time.Date(2024, 3, 1, 12, 0, 1, 0, time.UTC))
	assert.Less(t, earlier, later)
}

func TestNewID_Unique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := NewID(now)
		_, dup := seen[id]
		require.False(t, dup, id)
		seen[id] = struct{}{}
	}
}

func TestIDTime_RoundTrip(t *testing.T) {
	at := time.Date(2025, 6, 15, 8, 30, 45, 0, time.UTC)
	got := IDTime(NewID(at))
	assert.Equal(t, at, got)
}

func TestIDTime_Malformed(t *testing.T) {
	assert.True(t, IDTime("short").IsZero())
	assert.True(t, IDTime("!!!!!!!!!!abcdef01").IsZero())
}

func TestNewID_ClampsBeforeEpoch(t *testing.T) {
	id := NewID(time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "0000000000", id[:10])
}
