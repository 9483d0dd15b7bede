package rank

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func durationHours(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}

func TestRecencyBucket(t *testing.T) {
	cases := []struct {
		hours float64
		want  float64
	}{
		{hours: 1, want: 1.0},
		{hours: 24, want: 1.0},
		{hours: 48, want: 0.8},
		{hours: 24 * 7, want: 0.8},
		{hours: 24 * 8, want: 0.5},
		{hours: 24 * 30, want: 0.5},
		{hours: 24 * 60, want: 0.2},
	}
	for _, tc := range cases {
		got := recencyBucket(durationHours(tc.hours))
		assert.Equal(t, tc.want, got, "hours=%v", tc.hours)
	}
}

func TestClip(t *testing.T) {
	assert.Equal(t, 0.0, clip(-0.5, 0, 1))
	assert.Equal(t, 1.0, clip(1.5, 0, 1))
	assert.Equal(t, 0.5, clip(0.5, 0, 1))
}

func TestNormalizeLog_ZeroMaxYieldsZero(t *testing.T) {
	assert.Equal(t, 0.0, normalizeLog(5, 0))
}

func TestCacheKey_OrderIndependent(t *testing.T) {
	a := cacheKey("hash", []uint{1, 2, 3})
	b := cacheKey("hash", []uint{3, 1, 2})
	assert.Equal(t, a, b)
}

func TestFeedbackCache_InvalidateDropsAffectedEntries(t *testing.T) {
	c := newFeedbackCache(1 * time.Hour)
	c.put("hash", []uint{1, 2}, map[uint]float64{1: 0.5, 2: 0.2})

	_, ok := c.get("hash", []uint{1, 2})
	assert.True(t, ok)

	c.invalidate([]uint{1})
	_, ok = c.get("hash", []uint{1, 2})
	assert.False(t, ok)
}
