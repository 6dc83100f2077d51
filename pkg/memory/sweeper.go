package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/logger"
)

// SweepFunc removes expired sessions and reports which ones went away.
type SweepFunc func(ctx context.Context) ([]string, error)

// Sweeper runs a SweepFunc on a cron schedule.
type Sweeper struct {
	expr  string
	sweep SweepFunc
	now   func() time.Time

	stopCh    chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
}

func NewSweeper(expr string, sweep SweepFunc) (*Sweeper, error) {
	if sweep == nil {
		return nil, fmt.Errorf("sweeper: sweep func is required")
	}
	if !gronx.New().IsValid(expr) {
		return nil, fmt.Errorf("sweeper: invalid cron expression %q", expr)
	}
	return &Sweeper{
		expr:   expr,
		sweep:  sweep,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}, nil
}

// NextRun reports when the schedule fires next after t.
func (s *Sweeper) NextRun(t time.Time) (time.Time, error) {
	return gronx.NextTickAfter(s.expr, t, false)
}

// Start runs the schedule in the background until Stop or ctx is done.
func (s *Sweeper) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			_ = s.Run(ctx)
		}()
	})
}

func (s *Sweeper) Stop() {
	s.closeOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
}

// Run blocks, sweeping at every tick, until ctx is done or Stop is called.
func (s *Sweeper) Run(ctx context.Context) error {
	logger.InfoCF("sweeper", "Expiry sweeper started", map[string]interface{}{"schedule": s.expr})
	for {
		next, err := s.NextRun(s.now())
		if err != nil {
			return fmt.Errorf("sweeper: next tick: %w", err)
		}
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-s.stopCh:
			timer.Stop()
			return nil
		case <-timer.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep immediately.
func (s *Sweeper) RunOnce(ctx context.Context) []string {
	removed, err := s.sweep(ctx)
	if err != nil {
		logger.WarnCF("sweeper", "Expiry sweep incomplete", map[string]interface{}{"error": err.Error()})
	}
	if len(removed) > 0 {
		logger.DebugCF("sweeper", "Expiry sweep removed sessions", map[string]interface{}{"sessions": removed})
	}
	return removed
}
