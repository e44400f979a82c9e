package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerTripsAfterThreshold(t *testing.T) {
	b := NewBreaker("test", 3, time.Minute)
	for i := 0; i < 3; i++ {
		assert.True(t, b.Allow())
		b.Failure()
	}
	assert.False(t, b.Allow())
}

func TestBreakerProbesAfterCooldown(t *testing.T) {
	now := time.Unix(1000, 0)
	b := NewBreaker("test", 1, time.Minute)
	b.nowFn = func() time.Time { return now }

	b.Failure()
	assert.False(t, b.Allow())

	now = now.Add(2 * time.Minute)
	// cooldown over: exactly one probe is allowed
	assert.True(t, b.Allow())

	// failed probe reopens for another full cooldown
	b.Failure()
	assert.False(t, b.Allow())

	now = now.Add(2 * time.Minute)
	assert.True(t, b.Allow())
	b.Success()
	assert.True(t, b.Allow())
}

func TestSuccessResetsFailures(t *testing.T) {
	b := NewBreaker("test", 2, time.Minute)
	b.Failure()
	b.Success()
	b.Failure()
	assert.True(t, b.Allow())
}
