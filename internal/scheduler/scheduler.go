package scheduler

import (
	"context"
	"time"

	"mt4bridge/internal/logger"
)

// AlignedScheduler runs a task at wall-clock aligned interval boundaries,
// optionally shifted by Offset so a poll lands just after the bar close.
type AlignedScheduler struct {
	Interval       time.Duration
	Offset         time.Duration
	RunImmediately bool

	ctx   context.Context
	nowFn func() time.Time
}

func NewAlignedScheduler(ctx context.Context, interval, offset time.Duration) *AlignedScheduler {
	if ctx == nil {
		ctx = context.Background()
	}
	return &AlignedScheduler{
		Interval: interval,
		Offset:   offset,
		ctx:      ctx,
		nowFn:    time.Now,
	}
}

// Start blocks, running task until the context is done.
func (s *AlignedScheduler) Start(task func()) {
	if s == nil {
		return
	}
	if task == nil {
		logger.Warnf("AlignedScheduler: task is nil, exit")
		return
	}
	if s.Interval <= 0 {
		logger.Warnf("AlignedScheduler: invalid interval=%s, exit", s.Interval)
		return
	}
	if s.Offset < 0 {
		logger.Warnf("AlignedScheduler: negative offset=%s, clamp to 0", s.Offset)
		s.Offset = 0
	}
	if s.ctx == nil {
		s.ctx = context.Background()
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}

	logger.Infof("AlignedScheduler: started interval=%s offset=%s run_immediately=%v",
		s.Interval, s.Offset, s.RunImmediately)

	if s.RunImmediately {
		task()
	}

	for {
		now := s.nowFn().UTC()
		_, wakeAt, wait := s.nextTimes(now)

		logger.Debugf("AlignedScheduler: next run at %s (in %s)",
			wakeAt.Format(time.RFC3339), wait.Truncate(time.Second))

		if wait <= 0 {
			task()
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			logger.Infof("AlignedScheduler: ctx done, exit")
			return
		case <-timer.C:
		}
		task()
	}
}

func (s *AlignedScheduler) nextTimes(now time.Time) (nextClose, wakeAt time.Time, wait time.Duration) {
	now = now.UTC()
	nextClose = now.Truncate(s.Interval).Add(s.Interval)
	wakeAt = nextClose.Add(s.Offset)
	wait = wakeAt.Sub(now)
	return nextClose, wakeAt, wait
}
