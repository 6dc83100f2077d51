package agent

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/bus"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/coach"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/interview"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/memory"
)

func chat(content string) bus.InboundMessage {
	return bus.InboundMessage{Channel: "discord", SenderID: "42|ada", ChatID: "room-1", Content: content}
}

func newTestRouter(t *testing.T, port coach.Port, cfg RouterConfig) (*Router, *Orchestrator) {
	t.Helper()
	o, _, _ := newTestOrchestrator(t, port)
	return NewRouter(bus.NewMessageBus(), o, cfg), o
}

func TestRouterInterviewLifecycle(t *testing.T) {
	r, o := newTestRouter(t, &fakePort{}, RouterConfig{})
	ctx := context.Background()

	assert.Equal(t, noInterview, r.Handle(ctx, chat("my answer")))

	reply := r.Handle(ctx, chat("!start chat_system beginner"))
	assert.Contains(t, reply, "Starting a beginner interview on chat system.")
	assert.Contains(t, reply, "question 1")
	require.Len(t, o.ActiveSessions(), 1)

	assert.Contains(t, r.Handle(ctx, chat("!start url_shortener")), "already running")

	assert.Equal(t, "question 3", r.Handle(ctx, chat("Use websockets for delivery.")))

	insights := r.Handle(ctx, chat("!insights"))
	assert.Contains(t, insights, "Topic: chat system (beginner)")
	assert.Contains(t, insights, "Scores over 1 answers")

	history := r.Handle(ctx, chat("!history"))
	assert.Contains(t, history, "A: Use websockets for delivery.")
	assert.Contains(t, history, "Score: 6.5/10")

	assert.Contains(t, r.Handle(ctx, chat("!end")), "Interview ended.")
	assert.Empty(t, o.ActiveSessions())
	assert.Equal(t, noInterview, r.Handle(ctx, chat("!insights")))
}

func TestRouterRejectsBadStart(t *testing.T) {
	r, _ := newTestRouter(t, &fakePort{}, RouterConfig{})
	ctx := context.Background()

	assert.Contains(t, r.Handle(ctx, chat("!start")), "Usage: !start")
	assert.Contains(t, r.Handle(ctx, chat("!start chat_system expert")), "couldn't start")
	assert.Contains(t, r.Handle(ctx, chat("!dance")), "Unknown command !dance")
	assert.Equal(t, helpText, r.Handle(ctx, chat("!help")))
	assert.Empty(t, r.Handle(ctx, chat("   ")))
}

func TestRouterForgetsExpiredSessions(t *testing.T) {
	r, o := newTestRouter(t, &fakePort{}, RouterConfig{})
	ctx := context.Background()

	r.Handle(ctx, chat("!start chat_system"))
	for _, id := range o.ActiveSessions() {
		require.NoError(t, o.CleanupSession(ctx, id))
	}

	assert.Contains(t, r.Handle(ctx, chat("an answer")), "expired")
	assert.Equal(t, noInterview, r.Handle(ctx, chat("an answer")))
}

func TestRouterRateLimitsPerSender(t *testing.T) {
	r, _ := newTestRouter(t, &fakePort{}, RouterConfig{RateLimitPerMinute: 1, RateLimitBurst: 2})
	ctx := context.Background()

	assert.Equal(t, helpText, r.Handle(ctx, chat("!help")))
	assert.Equal(t, helpText, r.Handle(ctx, chat("!help")))
	assert.Contains(t, r.Handle(ctx, chat("!help")), "faster than I can review")

	other := chat("!help")
	other.SenderID = "7|grace"
	assert.Equal(t, helpText, r.Handle(ctx, other))
}

func TestRouterCompletedInterview(t *testing.T) {
	port := &fakePort{}
	o, _, _ := newTestOrchestrator(t, port, func(c *Config) {
		c.Policy.WrapUpQuestionThreshold = 1
		c.Policy.MinTopicCoverage = 1
	})
	r := NewRouter(bus.NewMessageBus(), o, RouterConfig{})
	ctx := context.Background()

	r.Handle(ctx, chat("!start chat_system"))
	r.Handle(ctx, chat("first"))
	r.Handle(ctx, chat("second"))
	done := r.Handle(ctx, chat("third"))
	assert.Contains(t, done, "That concludes the interview.")
	assert.Contains(t, r.Handle(ctx, chat("fourth")), "This interview is complete.")
}

func TestRouterRunPublishesReplies(t *testing.T) {
	msgBus := bus.NewMessageBus()
	o, _, _ := newTestOrchestrator(t, &fakePort{})
	r := NewRouter(msgBus, o, RouterConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	msgBus.PublishInbound(chat("!help"))
	out, ok := msgBus.SubscribeOutbound(ctx)
	require.True(t, ok)
	assert.Equal(t, "discord", out.Channel)
	assert.Equal(t, "room-1", out.ChatID)
	assert.Equal(t, helpText, out.Content)

	cancel()
	require.NoError(t, <-errCh)
}

func TestRouterRunKeepsConversationsIndependent(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	port := &fakePort{evaluate: func(context.Context, coach.EvaluationRequest) (interview.Evaluation, error) {
		close(entered)
		<-release
		return scoredEval(6.5, 0.7), nil
	}}
	msgBus := bus.NewMessageBus()
	o, _, _ := newTestOrchestrator(t, port)
	r := NewRouter(msgBus, o, RouterConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.Handle(ctx, chat("!start chat_system"))

	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	msgBus.PublishInbound(chat("A slow, thoughtful answer."))
	select {
	case <-entered:
	case <-ctx.Done():
		t.Fatal("answer never reached the evaluator")
	}

	other := chat("!help")
	other.ChatID = "room-2"
	msgBus.PublishInbound(other)
	out, ok := msgBus.SubscribeOutbound(ctx)
	require.True(t, ok)
	assert.Equal(t, "room-2", out.ChatID)
	assert.Equal(t, helpText, out.Content)

	close(release)
	out, ok = msgBus.SubscribeOutbound(ctx)
	require.True(t, ok)
	assert.Equal(t, "room-1", out.ChatID)
	assert.Equal(t, "question 3", out.Content)

	cancel()
	require.NoError(t, <-errCh)
}

func TestLanesPreserveOrderPerKey(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[string][]string)
	l := newLanes(func(msg bus.InboundMessage) {
		mu.Lock()
		seen[msg.ChatID] = append(seen[msg.ChatID], msg.Content)
		mu.Unlock()
	})
	for i := 0; i < 20; i++ {
		for _, room := range []string{"a", "b"} {
			l.dispatch(room, bus.InboundMessage{ChatID: room, Content: fmt.Sprint(i)})
		}
	}
	l.wait()

	want := make([]string, 20)
	for i := range want {
		want[i] = fmt.Sprint(i)
	}
	assert.Equal(t, want, seen["a"])
	assert.Equal(t, want, seen["b"])
}

func TestFoldAverages(t *testing.T) {
	avg, n := foldAverages(memoryPerf(4, 1), scoredEval(8, 1))
	assert.Equal(t, 2, n)
	assert.InDelta(t, 6.0, avg.Clarity, 1e-9)
	assert.Equal(t, interview.EvaluationScores{Clarity: 6, TechnicalDepth: 6, ScalabilityAwareness: 6, TradeOffs: 6}, avg)
}

func memoryPerf(avg float64, n int) memory.PerformanceSummary {
	return memory.PerformanceSummary{
		TotalEvaluations: n,
		Averages:         scoredEval(avg, 1).Scores,
	}
}
