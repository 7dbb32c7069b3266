package game

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Scheduler drives a step function on a fixed interval.
// At most one loop is active: Start cancels and waits for the previous loop first.
type Scheduler struct {
	logger *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	running atomic.Bool
	ticks   atomic.Uint64
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Start launches a loop calling step every interval. The loop ends when step
// returns false or when Stop/Start is called.
func (s *Scheduler) Start(interval time.Duration, step func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// 先停掉旧循环，保证同时只有一个循环
	s.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.running.Store(true)
	go s.loop(ctx, done, interval, step)
}

// Stop cancels the active loop and waits until it has returned.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	// 等旧循环真正退出
	<-s.done
	s.cancel = nil
	s.done = nil
}

func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Ticks counts steps executed over the scheduler lifetime.
func (s *Scheduler) Ticks() uint64 {
	return s.ticks.Load()
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}, interval time.Duration, step func() bool) {
	defer close(done)
	defer s.running.Store(false)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.logger.Debug("scheduler loop started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("scheduler loop cancelled")
			return
		case <-ticker.C:
			s.ticks.Inc()
			// step 返回 false 表示游戏结束，循环自己退出
			if !step() {
				s.logger.Debug("scheduler loop finished")
				return
			}
		}
	}
}
