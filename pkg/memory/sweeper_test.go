package memory

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/interview"
)

func TestNewSweeperRejectsBadSchedule(t *testing.T) {
	_, err := NewSweeper("every so often", func(context.Context) ([]string, error) { return nil, nil })
	assert.Error(t, err)

	_, err = NewSweeper("*/30 * * * *", nil)
	assert.Error(t, err)
}

func TestSweeperNextRun(t *testing.T) {
	sw, err := NewSweeper("*/30 * * * *", func(context.Context) ([]string, error) { return nil, nil })
	require.NoError(t, err)

	next, err := sw.NextRun(time.Date(2026, 3, 1, 9, 10, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, next.Equal(time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)), next)
}

func TestSweeperRunOnceDelegatesToStore(t *testing.T) {
	s, clock := newTestStore(t, Config{MaxMemoryHours: 1})
	require.NoError(t, s.InitializeSession("s1", "chat_system", interview.Beginner))
	clock.Advance(2 * time.Hour)

	sw, err := NewSweeper("*/30 * * * *", s.CleanupExpiredSessions)
	require.NoError(t, err)

	assert.Equal(t, []string{"s1"}, sw.RunOnce(context.Background()))
	assert.Equal(t, 0, s.Len())
}

func TestSweeperStopsOnStopAndCancel(t *testing.T) {
	var calls atomic.Int32
	sw, err := NewSweeper("* * * * *", func(context.Context) ([]string, error) {
		calls.Add(1)
		return nil, nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sw.Start(ctx)

	done := make(chan struct{})
	go func() {
		sw.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}

	sw2, err := NewSweeper("* * * * *", func(context.Context) ([]string, error) { return nil, nil })
	require.NoError(t, err)
	runCtx, runCancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- sw2.Run(runCtx) }()
	runCancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
