package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseIntervalDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"30s", 30 * time.Second, true},
		{"15m", 15 * time.Minute, true},
		{"1h", time.Hour, true},
		{"4H", 4 * time.Hour, true},
		{"1d", 24 * time.Hour, true},
		{"1w", 7 * 24 * time.Hour, true},
		{"", 0, false},
		{"m", 0, false},
		{"0m", 0, false},
		{"-5m", 0, false},
		{"10x", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseIntervalDuration(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestNextTimesAlignment(t *testing.T) {
	s := &AlignedScheduler{Interval: time.Minute, Offset: 5 * time.Second}
	now := time.Date(2025, 1, 1, 12, 0, 30, 0, time.UTC)
	nextClose, wakeAt, wait := s.nextTimes(now)
	assert.Equal(t, time.Date(2025, 1, 1, 12, 1, 0, 0, time.UTC), nextClose)
	assert.Equal(t, time.Date(2025, 1, 1, 12, 1, 5, 0, time.UTC), wakeAt)
	assert.Equal(t, 35*time.Second, wait)
}
