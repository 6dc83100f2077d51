package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/bus"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/interview"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/logger"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/metrics"
)

const (
	historyCommandLimit = 5

	helpText = "Commands:\n" +
		"!start <topic> [beginner|intermediate|advanced]  begin an interview\n" +
		"!insights  show progress for the current interview\n" +
		"!history   show the last few exchanges\n" +
		"!end       finish and forget the current interview\n" +
		"!help      show this message\n" +
		"Anything else is treated as your answer to the open question."
)

type RouterConfig struct {
	// RateLimitPerMinute is per sender; zero disables limiting.
	RateLimitPerMinute int
	RateLimitBurst     int
}

// Router connects chat conversations on the bus to interview sessions.
// Each candidate has at most one live session per conversation.
type Router struct {
	bus     *bus.MessageBus
	orch    *Orchestrator
	limiter *senderLimiter

	mu       sync.Mutex
	sessions map[string]string
}

func NewRouter(msgBus *bus.MessageBus, orch *Orchestrator, cfg RouterConfig) *Router {
	r := &Router{
		bus:      msgBus,
		orch:     orch,
		sessions: make(map[string]string),
	}
	if cfg.RateLimitPerMinute > 0 {
		r.limiter = newSenderLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	}
	return r
}

// Run consumes inbound messages until ctx is done or the bus closes. Messages
// of one conversation are handled in order; conversations run concurrently.
func (r *Router) Run(ctx context.Context) error {
	logger.InfoC("router", "Chat router started")
	l := newLanes(func(msg bus.InboundMessage) { r.reply(ctx, msg) })
	for {
		msg, ok := r.bus.ConsumeInbound(ctx)
		if !ok {
			l.wait()
			logger.InfoC("router", "Chat router stopped")
			return nil
		}
		l.dispatch(sessionKey(msg), msg)
	}
}

func (r *Router) reply(ctx context.Context, msg bus.InboundMessage) {
	text := r.Handle(ctx, msg)
	if text == "" {
		return
	}
	r.bus.PublishOutbound(bus.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Content: text,
	})
}

// lanes runs at most one worker per key. A worker drains its key's queue and
// exits once the queue is empty.
type lanes struct {
	handle func(bus.InboundMessage)

	wg      sync.WaitGroup
	mu      sync.Mutex
	pending map[string][]bus.InboundMessage
}

func newLanes(handle func(bus.InboundMessage)) *lanes {
	return &lanes{handle: handle, pending: make(map[string][]bus.InboundMessage)}
}

func (l *lanes) dispatch(key string, msg bus.InboundMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	q, running := l.pending[key]
	l.pending[key] = append(q, msg)
	if running {
		return
	}
	l.wg.Add(1)
	go l.drain(key)
}

func (l *lanes) drain(key string) {
	defer l.wg.Done()
	for {
		l.mu.Lock()
		q := l.pending[key]
		if len(q) == 0 {
			delete(l.pending, key)
			l.mu.Unlock()
			return
		}
		msg := q[0]
		l.pending[key] = q[1:]
		l.mu.Unlock()
		l.handle(msg)
	}
}

func (l *lanes) wait() { l.wg.Wait() }

// Handle processes one message and returns the reply text.
func (r *Router) Handle(ctx context.Context, msg bus.InboundMessage) string {
	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return ""
	}
	if r.limiter != nil && !r.limiter.allow(msg.Channel+":"+msg.SenderID) {
		metrics.RateLimitedTotal.WithLabelValues(msg.Channel).Inc()
		logger.DebugCF("router", "Message rate limited", map[string]interface{}{
			"channel":   msg.Channel,
			"sender_id": msg.SenderID,
		})
		return "You're sending messages faster than I can review them. Please wait a moment and try again."
	}

	key := sessionKey(msg)
	if strings.HasPrefix(content, "!") {
		return r.handleCommand(ctx, key, content)
	}
	return r.handleAnswer(ctx, key, content)
}

func (r *Router) handleCommand(ctx context.Context, key, content string) string {
	parts := strings.Fields(content)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "!start":
		return r.start(ctx, key, args)
	case "!insights":
		id, ok := r.session(key)
		if !ok {
			return noInterview
		}
		in, err := r.orch.SessionInsights(ctx, id)
		if err != nil {
			return r.explain(key, err)
		}
		return formatInsights(in)
	case "!history":
		id, ok := r.session(key)
		if !ok {
			return noInterview
		}
		logs, err := r.orch.History(id, historyCommandLimit)
		if err != nil {
			return r.explain(key, err)
		}
		return formatHistory(logs)
	case "!end":
		id, ok := r.session(key)
		if !ok {
			return noInterview
		}
		var recap string
		if in, err := r.orch.SessionInsights(ctx, id); err == nil {
			recap = fmt.Sprintf(" We covered %d questions in %.0f minutes.", in.QuestionsAsked, in.DurationMinutes)
		}
		if err := r.orch.CleanupSession(ctx, id); err != nil {
			return "I couldn't close the interview cleanly: " + err.Error()
		}
		r.drop(key)
		return "Interview ended." + recap + " Start another one with !start <topic>."
	case "!help":
		return helpText
	}
	return fmt.Sprintf("Unknown command %s.\n\n%s", cmd, helpText)
}

const noInterview = "No interview in progress. Start one with !start <topic> [difficulty]."

func (r *Router) start(ctx context.Context, key string, args []string) string {
	if len(args) == 0 {
		return "Usage: !start <topic> [beginner|intermediate|advanced]"
	}
	if _, ok := r.session(key); ok {
		return "An interview is already running here. Use !end to finish it first."
	}

	req := StartRequest{Topic: args[0]}
	if len(args) > 1 {
		req.Difficulty = args[1]
	}
	resp, err := r.orch.StartInterview(ctx, req)
	if err != nil {
		if errors.Is(err, interview.ErrValidation) {
			return "I couldn't start that interview: " + err.Error()
		}
		logger.ErrorCF("router", "Failed to start interview", map[string]interface{}{
			"session_key": key,
			"error":       err.Error(),
		})
		return "Something went wrong starting the interview. Please try again."
	}

	r.mu.Lock()
	r.sessions[key] = resp.SessionID
	r.mu.Unlock()

	return fmt.Sprintf("Starting a %s interview on %s.\n\n%s",
		resp.Difficulty, strings.ReplaceAll(resp.Topic, "_", " "), resp.Question.Question)
}

func (r *Router) handleAnswer(ctx context.Context, key, answer string) string {
	id, ok := r.session(key)
	if !ok {
		return noInterview
	}
	resp, err := r.orch.ProcessUserAnswer(ctx, id, answer)
	if err != nil {
		return r.explain(key, err)
	}
	if resp.Completed {
		return resp.Message + "\n\nUse !insights for a recap or !end to close the session."
	}
	return resp.Message
}

// explain maps orchestrator errors to chat replies.
func (r *Router) explain(key string, err error) string {
	switch {
	case errors.Is(err, interview.ErrNotFound):
		r.drop(key)
		return "That interview has expired. Start a new one with !start <topic>."
	case errors.Is(err, interview.ErrTurnInProgress):
		return "Still reviewing your previous answer, one moment."
	case errors.Is(err, interview.ErrValidation):
		if strings.Contains(err.Error(), "already complete") {
			return "This interview is complete. Use !insights for a recap or !end to close it."
		}
		return "I couldn't use that: " + err.Error()
	}
	logger.ErrorCF("router", "Interview turn failed", map[string]interface{}{
		"session_key": key,
		"error":       err.Error(),
	})
	return "Something went wrong. Please try again."
}

func (r *Router) session(key string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.sessions[key]
	return id, ok
}

func (r *Router) drop(key string) {
	r.mu.Lock()
	delete(r.sessions, key)
	r.mu.Unlock()
}

// senderLimiter keeps one token bucket per sender.
type senderLimiter struct {
	mu     sync.Mutex
	every  rate.Limit
	burst  int
	limits map[string]*rate.Limiter
}

func newSenderLimiter(perMinute, burst int) *senderLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &senderLimiter{
		every:  rate.Every(time.Minute / time.Duration(perMinute)),
		burst:  burst,
		limits: make(map[string]*rate.Limiter),
	}
}

func (l *senderLimiter) allow(key string) bool {
	l.mu.Lock()
	lim, ok := l.limits[key]
	if !ok {
		lim = rate.NewLimiter(l.every, l.burst)
		l.limits[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
