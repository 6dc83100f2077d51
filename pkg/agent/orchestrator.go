package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/coach"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/config"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/interview"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/logger"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/memory"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/metrics"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/policy"
)

const (
	defaultAgentTimeout  = 30 * time.Second
	defaultHistoryWindow = 5
)

type Config struct {
	// AgentTimeout bounds every single agent call.
	AgentTimeout time.Duration
	Policy       policy.Config
	// HistoryWindow is the number of prior exchanges shown to the agents.
	HistoryWindow int
}

func DefaultConfig() Config {
	return Config{
		AgentTimeout:  defaultAgentTimeout,
		Policy:        policy.DefaultConfig(),
		HistoryWindow: defaultHistoryWindow,
	}
}

// ConfigFrom maps the file configuration onto orchestrator settings.
func ConfigFrom(cfg *config.Config) Config {
	p := cfg.Policy
	return Config{
		AgentTimeout: cfg.AgentTimeout(),
		Policy: policy.Config{
			WrapUpQuestionThreshold: p.WrapUpQuestionThreshold,
			MinTopicCoverage:        p.MinTopicCoverage,
			PhaseAdvanceQuestions:   p.PhaseAdvanceQuestions,
			HintScoreFloor:          p.HintScoreFloor,
			ClarificationScoreFloor: p.ClarificationScoreFloor,
			MaxSessionDuration:      time.Duration(p.MaxSessionMinutes) * time.Minute,
			PerformanceWindow:       p.PerformanceWindow,
			DifficultyMinSamples:    p.DifficultyMinSamples,
			AdjustConfidenceFloor:   p.AdjustConfidenceFloor,
		},
		HistoryWindow: defaultHistoryWindow,
	}
}

type Option func(*Orchestrator)

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

func WithCatalog(c *interview.Catalog) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.catalog = c
		}
	}
}

// Orchestrator runs interview turns: it evaluates each answer, lets the
// policy pick one action, performs it through the coach port and records the
// exchange in memory.
type Orchestrator struct {
	store   *memory.Store
	port    coach.Port
	policy  *policy.Policy
	catalog *interview.Catalog
	cfg     Config
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionState
}

// progress is the per-session orchestration state that memory does not keep.
type progress struct {
	Phase        interview.Phase
	Questions    int
	OpenKind     interview.QuestionKind
	OpenTopics   []string
	SummaryGiven bool
	Completed    bool
}

type sessionState struct {
	// turn is held for a whole turn; a second turn fails TryLock.
	turn sync.Mutex

	mu sync.Mutex
	p  progress
}

func (s *sessionState) load() progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.p
	p.OpenTopics = append([]string(nil), s.p.OpenTopics...)
	return p
}

func (s *sessionState) save(p progress) {
	s.mu.Lock()
	s.p = p
	s.mu.Unlock()
}

func NewOrchestrator(store *memory.Store, port coach.Port, cfg Config, opts ...Option) *Orchestrator {
	if cfg.AgentTimeout <= 0 {
		cfg.AgentTimeout = defaultAgentTimeout
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = defaultHistoryWindow
	}
	o := &Orchestrator{
		store:    store,
		port:     port,
		policy:   policy.New(cfg.Policy),
		catalog:  interview.DefaultCatalog(),
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*sessionState),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type StartRequest struct {
	// SessionID is generated when empty.
	SessionID  string `json:"session_id,omitempty" validate:"omitempty,session_id"`
	Topic      string `json:"topic" validate:"required,max=100"`
	Difficulty string `json:"difficulty,omitempty" validate:"omitempty,difficulty"`
}

type StartResponse struct {
	SessionID  string                   `json:"session_id"`
	Topic      string                   `json:"topic"`
	Difficulty interview.Difficulty     `json:"difficulty"`
	Phase      interview.Phase          `json:"phase"`
	Question   interview.QuestionResult `json:"question"`
	StartedAt  time.Time                `json:"started_at"`
	Fallback   bool                     `json:"fallback,omitempty"`
}

type TurnResponse struct {
	SessionID string           `json:"session_id"`
	Action    interview.Action `json:"action"`
	Message   string           `json:"message"`
	// Question is the question now open, empty once the interview is over.
	Question   string                    `json:"question,omitempty"`
	Evaluation *interview.Evaluation     `json:"evaluation,omitempty"`
	Decision   *interview.ActionDecision `json:"decision,omitempty"`
	Feedback   *interview.FeedbackResult `json:"feedback,omitempty"`
	Hint       *interview.HintResult     `json:"hint,omitempty"`
	Summary    *interview.SessionSummary `json:"summary,omitempty"`
	Difficulty interview.Difficulty      `json:"difficulty"`
	Phase      interview.Phase           `json:"phase"`
	Completed  bool                      `json:"completed,omitempty"`
	Fallback   bool                      `json:"fallback,omitempty"`
}

// StartInterview creates the session and asks the opening question. An
// unavailable agent yields the canned opening with Fallback set.
func (o *Orchestrator) StartInterview(ctx context.Context, req StartRequest) (StartResponse, error) {
	if err := interview.Validate(req); err != nil {
		return StartResponse{}, err
	}
	difficulty := interview.Intermediate
	if strings.TrimSpace(req.Difficulty) != "" {
		d, err := interview.ParseDifficulty(req.Difficulty)
		if err != nil {
			return StartResponse{}, err
		}
		difficulty = d
	}
	topic := interview.NormalizeTopic(req.Topic)
	if topic == "" {
		return StartResponse{}, fmt.Errorf("%w: topic is required", interview.ErrValidation)
	}
	id := strings.TrimSpace(req.SessionID)
	if id == "" {
		id = uuid.NewString()
	}

	// The turn guard is claimed before the session becomes visible in the
	// store, so no answer can be processed until the opening is recorded.
	st, err := o.claim(id)
	if err != nil {
		return StartResponse{}, err
	}
	defer st.turn.Unlock()

	if err := o.store.InitializeSession(id, topic, difficulty); err != nil {
		if !errors.Is(err, interview.ErrAlreadyExists) {
			o.forget(id)
		}
		return StartResponse{}, err
	}
	st.save(progress{Phase: interview.PhaseOpening, OpenKind: interview.KindOpening})

	q, err := callAgent(ctx, o.cfg.AgentTimeout, "opening_question", func(actx context.Context) (interview.QuestionResult, error) {
		return o.port.GenerateQuestion(actx, coach.QuestionRequest{
			Kind:       interview.KindOpening,
			Topic:      topic,
			Difficulty: difficulty,
			Phase:      interview.PhaseOpening,
		})
	})
	if err != nil {
		o.noteFallback(id, err)
		q = coach.FallbackOpening(o.catalog, topic, difficulty)
	}
	q.Kind = interview.KindOpening
	topics := q.TopicsTargeted
	if len(topics) == 0 {
		topics = o.openingTopics(topic)
	}

	// Targeted topics count as covered only once the question is answered.
	entryCtx := map[string]any{
		"phase":   string(interview.PhaseOpening),
		"targets": append([]string(nil), topics...),
	}
	if q.Fallback {
		entryCtx["fallback"] = true
	}
	if err := o.store.AddInteraction(id, memory.NewInteraction{
		Question: q.Question,
		Kind:     interview.KindOpening,
		Context:  entryCtx,
	}); err != nil {
		o.forget(id)
		_ = o.store.CleanupSession(context.WithoutCancel(ctx), id)
		return StartResponse{}, fmt.Errorf("record opening question: %w", err)
	}

	st.save(progress{
		Phase:      interview.PhaseOpening,
		Questions:  1,
		OpenKind:   interview.KindOpening,
		OpenTopics: append([]string(nil), topics...),
	})

	logger.InfoCF("orchestrator", "Interview started", map[string]interface{}{
		"session_id": id,
		"topic":      topic,
		"difficulty": string(difficulty),
		"fallback":   q.Fallback,
	})

	return StartResponse{
		SessionID:  id,
		Topic:      topic,
		Difficulty: difficulty,
		Phase:      interview.PhaseOpening,
		Question:   q,
		StartedAt:  o.now(),
		Fallback:   q.Fallback,
	}, nil
}

func (o *Orchestrator) openingTopics(topic string) []string {
	if t, ok := o.catalog.Topic(topic); ok && len(t.KeyAreas) > 0 {
		n := min(3, len(t.KeyAreas))
		return append([]string(nil), t.KeyAreas[:n]...)
	}
	return []string{topic}
}

// claim registers the orchestration state for a new session and holds its
// turn guard. An id already tracked is either live or mid-start.
func (o *Orchestrator) claim(id string) (*sessionState, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if st, ok := o.sessions[id]; ok {
		if !st.turn.TryLock() {
			return nil, fmt.Errorf("%w: %s", interview.ErrAlreadyExists, id)
		}
		// Left behind by a turn that raced a cleanup; the store decides.
		return st, nil
	}
	st := &sessionState{p: progress{Phase: interview.PhaseOpening, OpenKind: interview.KindOpening}}
	st.turn.Lock()
	o.sessions[id] = st
	return st, nil
}

// state returns the orchestration state for id, creating it for sessions
// that reached the store some other way (for example Restore).
func (o *Orchestrator) state(id string, sctx memory.SessionContext) *sessionState {
	o.mu.Lock()
	defer o.mu.Unlock()
	if st, ok := o.sessions[id]; ok {
		return st
	}
	st := &sessionState{p: progress{
		Phase:     interview.PhaseOpening,
		Questions: max(1, sctx.InteractionCount),
		OpenKind:  interview.KindGeneral,
	}}
	o.sessions[id] = st
	return st
}

// turn is the input of one answer turn, read before any agent is called.
type turn struct {
	id       string
	question string
	answer   string
	ctx      memory.SessionContext
	prog     progress
	history  []coach.Exchange
	window   []interview.Evaluation
	now      time.Time
}

// ProcessUserAnswer runs one turn. Agent failures never escape: the turn is
// answered with the fallback question and recorded without an evaluation.
func (o *Orchestrator) ProcessUserAnswer(ctx context.Context, sessionID, answer string) (TurnResponse, error) {
	sctx, err := o.store.SessionContext(sessionID)
	if err != nil {
		return TurnResponse{}, err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return TurnResponse{}, fmt.Errorf("%w: answer is empty", interview.ErrValidation)
	}

	st := o.state(sessionID, sctx)
	if !st.turn.TryLock() {
		return TurnResponse{}, fmt.Errorf("%w: %s", interview.ErrTurnInProgress, sessionID)
	}
	defer st.turn.Unlock()

	prog := st.load()
	if prog.Completed {
		return TurnResponse{}, fmt.Errorf("%w: interview %s is already complete", interview.ErrValidation, sessionID)
	}

	// Re-read under the turn guard so the turn sees the latest committed state.
	if sctx, err = o.store.SessionContext(sessionID); err != nil {
		return TurnResponse{}, err
	}
	if strings.TrimSpace(sctx.CurrentQuestion) == "" {
		return TurnResponse{}, fmt.Errorf("%w: session %s has no open question", interview.ErrValidation, sessionID)
	}
	logs, err := o.store.ConversationHistory(sessionID, o.cfg.HistoryWindow, false)
	if err != nil {
		return TurnResponse{}, err
	}
	samples, err := o.store.PerformanceTrends(sessionID, o.policy.Config().PerformanceWindow)
	if err != nil {
		return TurnResponse{}, err
	}

	t := &turn{
		id:       sessionID,
		question: sctx.CurrentQuestion,
		answer:   answer,
		ctx:      sctx,
		prog:     prog,
		history:  exchanges(logs),
		window:   atLevel(samples, sctx.Difficulty),
		now:      o.now(),
	}

	resp, err := o.runTurn(ctx, st, t)
	if err == nil {
		return resp, nil
	}
	if !interview.IsAgentFailure(err) {
		return TurnResponse{}, err
	}
	return o.fallbackTurn(st, t, err)
}

// outcome is what the chosen action produced.
type outcome struct {
	message    string
	next       *interview.QuestionResult
	feedback   *interview.FeedbackResult
	hint       *interview.HintResult
	summary    *interview.SessionSummary
	logNote    string
	difficulty interview.Difficulty
	degraded   bool
}

func (o *Orchestrator) runTurn(ctx context.Context, st *sessionState, t *turn) (TurnResponse, error) {
	ev, err := callAgent(ctx, o.cfg.AgentTimeout, "evaluation", func(actx context.Context) (interview.Evaluation, error) {
		return o.port.EvaluateAnswer(actx, coach.EvaluationRequest{
			Question:   t.question,
			Answer:     t.answer,
			Topic:      t.ctx.Topic,
			Difficulty: t.ctx.Difficulty,
			History:    t.history,
		})
	})
	if err != nil {
		return TurnResponse{}, err
	}

	topics := answeredTopics(t.prog.OpenTopics, ev)
	covered := len(unionStrings(t.ctx.CoveredTopics, topics))
	recent := append(append([]interview.Evaluation(nil), t.window...), ev)
	decision := o.policy.Decide(policy.State{
		QuestionsAsked: t.prog.Questions,
		TopicsCovered:  covered,
		Elapsed:        t.now.Sub(t.ctx.StartTime),
		Difficulty:     t.ctx.Difficulty,
		Phase:          t.prog.Phase,
		Latest:         &ev,
		Recent:         recent,
		SummaryGiven:   t.prog.SummaryGiven,
	})

	out, err := o.execute(ctx, t, decision, ev, recent)
	if err != nil {
		return TurnResponse{}, err
	}

	entry := memory.NewInteraction{
		Question:   t.question,
		Answer:     t.answer,
		Evaluation: &ev,
		Feedback:   out.logNote,
		Context:    decisionContext(decision, t.prog.Phase, out.degraded),
		Kind:       t.prog.OpenKind,
		Topics:     topics,
	}
	if out.next != nil {
		entry.OpenQuestion = out.next.Question
	}
	if err := o.store.AddInteraction(t.id, entry); err != nil {
		return TurnResponse{}, fmt.Errorf("record turn: %w", err)
	}

	// The level changes only once the turn that justified it is on record.
	difficulty := t.ctx.Difficulty
	if out.difficulty.Valid() && out.difficulty != difficulty {
		if err := o.store.SetDifficulty(t.id, out.difficulty); err != nil {
			return TurnResponse{}, fmt.Errorf("record difficulty: %w", err)
		}
		difficulty = out.difficulty
	}

	prog := t.prog
	if out.next != nil {
		prog.Questions++
		prog.OpenKind = out.next.Kind
		prog.OpenTopics = append([]string(nil), out.next.TopicsTargeted...)
	}
	switch decision.Action {
	case interview.ActionSummary:
		prog.SummaryGiven = true
	case interview.ActionCompletion:
		prog.Completed = true
	}
	prog.Phase = o.policy.NextPhase(prog.Phase, prog.Questions, covered)
	st.save(prog)

	metrics.TurnsTotal.WithLabelValues(string(decision.Action)).Inc()
	logger.InfoCF("orchestrator", "Turn processed", map[string]interface{}{
		"session_id": t.id,
		"action":     string(decision.Action),
		"average":    ev.Scores.Average(),
		"phase":      string(prog.Phase),
		"degraded":   out.degraded,
	})

	resp := TurnResponse{
		SessionID:  t.id,
		Action:     decision.Action,
		Message:    out.message,
		Evaluation: &ev,
		Decision:   &decision,
		Feedback:   out.feedback,
		Hint:       out.hint,
		Summary:    out.summary,
		Difficulty: difficulty,
		Phase:      prog.Phase,
		Completed:  prog.Completed,
		Fallback:   out.degraded,
	}
	switch {
	case out.next != nil:
		resp.Question = out.next.Question
	case !prog.Completed:
		resp.Question = t.question
	}
	return resp, nil
}

// execute performs exactly one agent operation for the chosen action.
func (o *Orchestrator) execute(ctx context.Context, t *turn, decision interview.ActionDecision, ev interview.Evaluation, recent []interview.Evaluation) (outcome, error) {
	switch decision.Action {
	case interview.ActionFollowUp, interview.ActionClarification, interview.ActionTopicTransition:
		kind, _ := decision.Action.QuestionKind()
		q, err := callAgent(ctx, o.cfg.AgentTimeout, "question", func(actx context.Context) (interview.QuestionResult, error) {
			return o.port.GenerateQuestion(actx, coach.QuestionRequest{
				Kind:             kind,
				Topic:            t.ctx.Topic,
				Difficulty:       t.ctx.Difficulty,
				Phase:            t.prog.Phase,
				PreviousQuestion: t.question,
				PreviousAnswer:   t.answer,
				Evaluation:       &ev,
				CoveredTopics:    t.ctx.CoveredTopics,
				FocusAreas:       focusAreas(ev),
				History:          t.history,
			})
		})
		if err != nil {
			return outcome{}, err
		}
		if q.Kind == "" || q.Kind == interview.KindGeneral {
			q.Kind = kind
		}
		return outcome{message: q.Question, next: &q, degraded: q.Fallback}, nil

	case interview.ActionFeedback:
		fb, err := callAgent(ctx, o.cfg.AgentTimeout, "feedback", func(actx context.Context) (interview.FeedbackResult, error) {
			return o.port.GenerateFeedback(actx, coach.FeedbackRequest{
				Question:      t.question,
				Answer:        t.answer,
				Topic:         t.ctx.Topic,
				Difficulty:    t.ctx.Difficulty,
				Evaluation:    ev,
				Style:         policy.FeedbackStyle(ev, t.prog.Questions),
				QuestionCount: t.prog.Questions,
				CoveredTopics: t.ctx.CoveredTopics,
			})
		})
		if err != nil {
			return outcome{}, err
		}
		text := fb.Text()
		return outcome{message: text, feedback: &fb, logNote: text, degraded: fb.Fallback}, nil

	case interview.ActionHint:
		h, err := callAgent(ctx, o.cfg.AgentTimeout, "hint", func(actx context.Context) (interview.HintResult, error) {
			return o.port.GenerateHint(actx, coach.HintRequest{
				Question:   t.question,
				Answer:     t.answer,
				Topic:      t.ctx.Topic,
				Difficulty: t.ctx.Difficulty,
				Evaluation: &ev,
				Struggles:  struggles(ev, o.policy.Config().HintScoreFloor),
			})
		})
		if err != nil {
			return outcome{}, err
		}
		return outcome{message: hintMessage(h), hint: &h, logNote: h.Content, degraded: h.Fallback}, nil

	case interview.ActionAdjustDiff:
		window := tail(recent, o.policy.Config().PerformanceWindow)
		baseline := o.policy.AssessDifficulty(window, t.ctx.Difficulty)
		res, err := callAgent(ctx, o.cfg.AgentTimeout, "difficulty", func(actx context.Context) (interview.DifficultyResult, error) {
			return o.port.AssessDifficulty(actx, coach.DifficultyRequest{
				Current:       t.ctx.Difficulty,
				Topic:         t.ctx.Topic,
				Recent:        window,
				QuestionCount: t.prog.Questions,
				Baseline:      baseline,
			})
		})
		if err != nil {
			return outcome{}, err
		}
		level := t.ctx.Difficulty
		if res.AdjustmentNeeded && res.Recommended.Valid() {
			level = res.Recommended
		}
		// The follow-up at the new level is templated; the agent call was the assessment.
		q := coach.FallbackFollowUp(level, first(ev.NextSteps.SpecificAreasToExplore), "")
		q.Fallback = false
		return outcome{
			message:    adjustMessage(t.ctx.Difficulty, level, res.Reason) + "\n\n" + q.Question,
			next:       &q,
			logNote:    res.Reason,
			difficulty: level,
			degraded:   res.Fallback,
		}, nil

	case interview.ActionSummary, interview.ActionCompletion:
		final := decision.Action == interview.ActionCompletion
		averages, evaluated := foldAverages(t.ctx.Performance, ev)
		sum, err := callAgent(ctx, o.cfg.AgentTimeout, "summary", func(actx context.Context) (interview.SessionSummary, error) {
			return o.port.SummarizeSession(actx, coach.SummaryRequest{
				Topic:          t.ctx.Topic,
				Difficulty:     t.ctx.Difficulty,
				QuestionsAsked: t.prog.Questions,
				CoveredTopics:  t.ctx.CoveredTopics,
				Averages:       averages,
				Evaluated:      evaluated,
				Duration:       t.now.Sub(t.ctx.StartTime),
				Final:          final,
			})
		})
		if err != nil {
			return outcome{}, err
		}
		return outcome{message: summaryMessage(sum, final), summary: &sum, logNote: sum.Message, degraded: sum.Fallback}, nil
	}
	return outcome{}, fmt.Errorf("unsupported action %q", decision.Action)
}

// fallbackTurn records the answer without an evaluation and asks the fixed
// fallback question.
func (o *Orchestrator) fallbackTurn(st *sessionState, t *turn, cause error) (TurnResponse, error) {
	o.noteFallback(t.id, cause)

	// An unevaluated answer earns no topic coverage.
	q := coach.FallbackTurn(t.ctx.Difficulty)
	if err := o.store.AddInteraction(t.id, memory.NewInteraction{
		Question:     t.question,
		Answer:       t.answer,
		Context:      map[string]any{"fallback": true},
		Kind:         t.prog.OpenKind,
		OpenQuestion: q.Question,
	}); err != nil {
		return TurnResponse{}, fmt.Errorf("record fallback turn: %w", err)
	}

	prog := t.prog
	prog.Questions++
	prog.OpenKind = q.Kind
	prog.OpenTopics = append([]string(nil), q.TopicsTargeted...)
	prog.Phase = o.policy.NextPhase(prog.Phase, prog.Questions, len(t.ctx.CoveredTopics))
	st.save(prog)

	metrics.TurnsTotal.WithLabelValues("fallback").Inc()
	return TurnResponse{
		SessionID:  t.id,
		Action:     interview.ActionFollowUp,
		Message:    q.Question,
		Question:   q.Question,
		Difficulty: t.ctx.Difficulty,
		Phase:      prog.Phase,
		Fallback:   true,
	}, nil
}

func (o *Orchestrator) noteFallback(sessionID string, err error) {
	op := "agent"
	var ae *agentError
	if errors.As(err, &ae) {
		op = ae.op
	}
	metrics.FallbacksTotal.WithLabelValues(op).Inc()
	logger.WarnCF("orchestrator", "Agent call failed, serving fallback", map[string]interface{}{
		"session_id": sessionID,
		"operation":  op,
		"error":      err.Error(),
	})
}

// agentError tags a failed agent call with its operation.
type agentError struct {
	op  string
	err error
}

func (e *agentError) Error() string { return e.op + ": " + e.err.Error() }
func (e *agentError) Unwrap() error { return e.err }

// callAgent runs fn under the agent timeout. Any failure, including a port
// that returns a bare context error, is reported as an agent failure.
func callAgent[T any](ctx context.Context, timeout time.Duration, op string, fn func(context.Context) (T, error)) (T, error) {
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	v, err := fn(actx)
	if err != nil {
		var zero T
		if !interview.IsAgentFailure(err) {
			err = fmt.Errorf("%w: %w", interview.ErrAgentUnavailable, err)
		}
		return zero, &agentError{op: op, err: err}
	}
	return v, nil
}

type PhaseProgression struct {
	Current           interview.Phase `json:"current_phase"`
	QuestionsAsked    int             `json:"questions_asked"`
	ReadyForNextPhase bool            `json:"ready_for_next_phase"`
}

// Insights is the read-only view of a running session.
type Insights struct {
	SessionID       string                `json:"session_id"`
	Memory          memory.SessionContext `json:"memory_context"`
	Duration        time.Duration         `json:"-"`
	DurationMinutes float64               `json:"session_duration_minutes"`
	Phase           interview.Phase       `json:"current_phase"`
	Progression     PhaseProgression      `json:"phase_progression"`
	QuestionsAsked  int                   `json:"questions_asked"`
	Coverage        memory.TopicCoverage  `json:"topic_coverage"`
	Recommendations []string              `json:"recommendations"`
	Completed       bool                  `json:"completed"`
}

func (o *Orchestrator) SessionInsights(ctx context.Context, sessionID string) (Insights, error) {
	if err := ctx.Err(); err != nil {
		return Insights{}, err
	}
	sctx, err := o.store.SessionContext(sessionID)
	if err != nil {
		return Insights{}, err
	}
	coverage, err := o.store.TopicCoverage(sessionID)
	if err != nil {
		return Insights{}, err
	}
	prog := o.state(sessionID, sctx).load()
	elapsed := o.now().Sub(sctx.StartTime)

	return Insights{
		SessionID:       sessionID,
		Memory:          sctx,
		Duration:        elapsed,
		DurationMinutes: elapsed.Minutes(),
		Phase:           prog.Phase,
		Progression: PhaseProgression{
			Current:           prog.Phase,
			QuestionsAsked:    prog.Questions,
			ReadyForNextPhase: policy.ReadyForNextPhase(prog.Questions),
		},
		QuestionsAsked: prog.Questions,
		Coverage:       coverage,
		Recommendations: o.policy.Recommendations(
			sctx.Performance.Averages,
			sctx.Performance.TotalEvaluations,
			prog.Questions,
			len(sctx.CoveredTopics),
		),
		Completed: prog.Completed,
	}, nil
}

// History returns the most recent exchanges with their evaluations.
func (o *Orchestrator) History(sessionID string, limit int) ([]memory.InteractionLog, error) {
	return o.store.ConversationHistory(sessionID, limit, true)
}

// CleanupSession forgets the session. Unknown ids are not an error.
func (o *Orchestrator) CleanupSession(ctx context.Context, sessionID string) error {
	o.forget(sessionID)
	if err := o.store.CleanupSession(ctx, sessionID); err != nil && !errors.Is(err, interview.ErrNotFound) {
		return err
	}
	return nil
}

// CleanupExpired runs the store's expiry sweep and drops the matching
// orchestration state. It is the Sweeper's job function.
func (o *Orchestrator) CleanupExpired(ctx context.Context) ([]string, error) {
	ids, err := o.store.CleanupExpiredSessions(ctx)
	o.forget(ids...)
	return ids, err
}

func (o *Orchestrator) forget(ids ...string) {
	o.mu.Lock()
	for _, id := range ids {
		delete(o.sessions, id)
	}
	o.mu.Unlock()
}

// ActiveSessions lists the ids currently held in memory.
func (o *Orchestrator) ActiveSessions() []string {
	return o.store.SessionIDs()
}
