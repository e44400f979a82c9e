// Package circuit guards repeated calls against an endpoint that has gone
// quiet. A polling loop asks Allow before each cycle; after enough
// consecutive failures the breaker opens and polls are skipped until the
// cooldown passes, then a single probe decides whether it closes again.
package circuit

import (
	"sync"
	"time"

	"mt4bridge/internal/logger"
)

type state int

const (
	closed state = iota
	open
	probing
)

func (s state) String() string {
	switch s {
	case closed:
		return "closed"
	case open:
		return "open"
	case probing:
		return "probing"
	default:
		return "unknown"
	}
}

type Breaker struct {
	name      string
	tripAfter int
	cooldown  time.Duration

	mu       sync.Mutex
	state    state
	failures int
	openedAt time.Time
	nowFn    func() time.Time
}

func NewBreaker(name string, tripAfter int, cooldown time.Duration) *Breaker {
	if tripAfter <= 0 {
		tripAfter = 5
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &Breaker{name: name, tripAfter: tripAfter, cooldown: cooldown, nowFn: time.Now}
}

// Allow reports whether the caller should attempt the next call.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case open:
		if b.nowFn().Sub(b.openedAt) >= b.cooldown {
			b.setState(probing)
			return true
		}
		return false
	default:
		return true
	}
}

// Success resets the failure count and closes the breaker.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != closed {
		b.setState(closed)
	}
	b.failures = 0
}

// Failure counts one failed call and may open the breaker.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	switch b.state {
	case probing:
		b.openedAt = b.nowFn()
		b.setState(open)
	case closed:
		if b.failures >= b.tripAfter {
			b.openedAt = b.nowFn()
			b.setState(open)
		}
	}
}

func (b *Breaker) setState(to state) {
	from := b.state
	b.state = to
	logger.Warnf("breaker %s: %s -> %s (failures=%d, cooldown=%s)",
		b.name, from, to, b.failures, b.cooldown)
}
