package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/coach"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/interview"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/memory"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// fakePort serves canned results; any hook left nil uses a sensible default.
type fakePort struct {
	mu    sync.Mutex
	calls []string

	question   func(coach.QuestionRequest) (interview.QuestionResult, error)
	evaluate   func(context.Context, coach.EvaluationRequest) (interview.Evaluation, error)
	feedback   func(coach.FeedbackRequest) (interview.FeedbackResult, error)
	difficulty func(coach.DifficultyRequest) (interview.DifficultyResult, error)
	hint       func(coach.HintRequest) (interview.HintResult, error)
	summary    func(coach.SummaryRequest) (interview.SessionSummary, error)
}

func (p *fakePort) record(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, op)
	return len(p.calls)
}

func (p *fakePort) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *fakePort) GenerateQuestion(_ context.Context, req coach.QuestionRequest) (interview.QuestionResult, error) {
	n := p.record("question")
	if p.question != nil {
		return p.question(req)
	}
	return interview.QuestionResult{
		Question:       fmt.Sprintf("question %d", n),
		Kind:           req.Kind,
		TopicsTargeted: []string{fmt.Sprintf("area-%d", n)},
		Difficulty:     req.Difficulty,
	}, nil
}

func (p *fakePort) EvaluateAnswer(ctx context.Context, req coach.EvaluationRequest) (interview.Evaluation, error) {
	p.record("evaluate")
	if p.evaluate != nil {
		return p.evaluate(ctx, req)
	}
	return scoredEval(6.5, 0.7), nil
}

func (p *fakePort) GenerateFeedback(_ context.Context, req coach.FeedbackRequest) (interview.FeedbackResult, error) {
	p.record("feedback")
	if p.feedback != nil {
		return p.feedback(req)
	}
	return interview.FeedbackResult{Summary: "Solid answer."}, nil
}

func (p *fakePort) AssessDifficulty(_ context.Context, req coach.DifficultyRequest) (interview.DifficultyResult, error) {
	p.record("difficulty")
	if p.difficulty != nil {
		return p.difficulty(req)
	}
	return req.Baseline, nil
}

func (p *fakePort) GenerateHint(_ context.Context, req coach.HintRequest) (interview.HintResult, error) {
	p.record("hint")
	if p.hint != nil {
		return p.hint(req)
	}
	return interview.HintResult{Type: "approach", Content: "Start from the write path."}, nil
}

func (p *fakePort) SummarizeSession(_ context.Context, req coach.SummaryRequest) (interview.SessionSummary, error) {
	p.record("summary")
	if p.summary != nil {
		return p.summary(req)
	}
	return interview.SessionSummary{Averages: req.Averages, Message: fmt.Sprintf("summary final=%v", req.Final)}, nil
}

func scoredEval(avg, confidence float64) interview.Evaluation {
	return interview.Evaluation{
		Scores: interview.EvaluationScores{
			Clarity:              avg,
			TechnicalDepth:       avg,
			ScalabilityAwareness: avg,
			TradeOffs:            avg,
		},
		Confidence: confidence,
	}
}

func newTestOrchestrator(t *testing.T, port coach.Port, mutate ...func(*Config)) (*Orchestrator, *memory.Store, *testClock) {
	t.Helper()
	clock := newTestClock()
	store := memory.NewStore(memory.DefaultConfig(), memory.WithClock(clock.Now))
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	return NewOrchestrator(store, port, cfg, WithClock(clock.Now)), store, clock
}

func startChat(t *testing.T, o *Orchestrator, difficulty string) StartResponse {
	t.Helper()
	resp, err := o.StartInterview(context.Background(), StartRequest{Topic: "Chat System", Difficulty: difficulty})
	require.NoError(t, err)
	return resp
}

func TestStartInterviewRejectsBadInputBeforeAnyMutation(t *testing.T) {
	port := &fakePort{}
	o, store, _ := newTestOrchestrator(t, port)
	ctx := context.Background()

	_, err := o.StartInterview(ctx, StartRequest{Topic: "chat_system", Difficulty: "expert"})
	assert.ErrorIs(t, err, interview.ErrValidation)
	_, err = o.StartInterview(ctx, StartRequest{Topic: ""})
	assert.ErrorIs(t, err, interview.ErrValidation)
	_, err = o.StartInterview(ctx, StartRequest{Topic: "chat_system", SessionID: "not-a-uuid"})
	assert.ErrorIs(t, err, interview.ErrValidation)

	assert.Equal(t, 0, store.Len())
	assert.Empty(t, port.Calls())
}

func TestStartInterviewRecordsOpeningQuestion(t *testing.T) {
	port := &fakePort{}
	o, store, _ := newTestOrchestrator(t, port)

	resp := startChat(t, o, "")
	require.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "chat_system", resp.Topic)
	assert.Equal(t, interview.Intermediate, resp.Difficulty)
	assert.Equal(t, interview.KindOpening, resp.Question.Kind)
	assert.False(t, resp.Fallback)

	sctx, err := store.SessionContext(resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "question 1", sctx.CurrentQuestion)
	assert.Equal(t, 1, sctx.InteractionCount)
	assert.Empty(t, sctx.CoveredTopics)

	_, err = o.StartInterview(context.Background(), StartRequest{SessionID: resp.SessionID, Topic: "chat_system"})
	assert.ErrorIs(t, err, interview.ErrAlreadyExists)
}

func TestStartInterviewFallsBackToCannedOpening(t *testing.T) {
	port := &fakePort{question: func(coach.QuestionRequest) (interview.QuestionResult, error) {
		return interview.QuestionResult{}, fmt.Errorf("%w: boom", interview.ErrAgentUnavailable)
	}}
	o, store, _ := newTestOrchestrator(t, port)

	resp := startChat(t, o, "beginner")
	want := coach.FallbackOpening(interview.DefaultCatalog(), "chat_system", interview.Beginner)
	assert.True(t, resp.Fallback)
	assert.Equal(t, want.Question, resp.Question.Question)

	logs, err := store.ConversationHistory(resp.SessionID, 0, true)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, true, logs[0].Context["fallback"])
}

func TestProcessUserAnswerRunsOneAgentOperation(t *testing.T) {
	port := &fakePort{evaluate: func(context.Context, coach.EvaluationRequest) (interview.Evaluation, error) {
		ev := scoredEval(6.5, 0.7)
		ev.NextSteps.NeedsDeeperDive = true
		ev.NextSteps.SpecificAreasToExplore = []string{"fan-out"}
		return ev, nil
	}}
	o, store, _ := newTestOrchestrator(t, port)
	start := startChat(t, o, "intermediate")
	var seen coach.QuestionRequest
	port.question = func(req coach.QuestionRequest) (interview.QuestionResult, error) {
		seen = req
		return interview.QuestionResult{Question: "How would you fan out messages?", Kind: req.Kind, TopicsTargeted: []string{"fan-out"}}, nil
	}

	resp, err := o.ProcessUserAnswer(context.Background(), start.SessionID, "I'd use websockets and a message queue.")
	require.NoError(t, err)

	assert.Equal(t, interview.ActionFollowUp, resp.Action)
	assert.Equal(t, "How would you fan out messages?", resp.Question)
	assert.False(t, resp.Fallback)
	require.NotNil(t, resp.Evaluation)
	assert.Equal(t, []string{"question", "evaluate", "question"}, port.Calls())
	assert.Equal(t, []string{"fan-out"}, seen.FocusAreas)
	assert.Equal(t, "I'd use websockets and a message queue.", seen.PreviousAnswer)

	logs, err := store.ConversationHistory(start.SessionID, 0, true)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, start.Question.Question, logs[1].Question)
	assert.NotNil(t, logs[1].Evaluation)
	assert.Equal(t, "generate_follow_up", logs[1].Context["action"])

	sctx, err := store.SessionContext(start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "How would you fan out messages?", sctx.CurrentQuestion)
	assert.Equal(t, []string{"area-1"}, sctx.CoveredTopics)
}

func TestProcessUserAnswerInputErrors(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, &fakePort{})
	start := startChat(t, o, "")

	_, err := o.ProcessUserAnswer(context.Background(), "missing", "answer")
	assert.ErrorIs(t, err, interview.ErrNotFound)
	_, err = o.ProcessUserAnswer(context.Background(), start.SessionID, "   ")
	assert.ErrorIs(t, err, interview.ErrValidation)
}

func TestFailedEvaluationLeavesNoEvaluationBehind(t *testing.T) {
	port := &fakePort{evaluate: func(context.Context, coach.EvaluationRequest) (interview.Evaluation, error) {
		return interview.Evaluation{}, fmt.Errorf("%w: unexpected reply", interview.ErrParse)
	}}
	o, store, _ := newTestOrchestrator(t, port)
	start := startChat(t, o, "")

	resp, err := o.ProcessUserAnswer(context.Background(), start.SessionID, "Use a load balancer.")
	require.NoError(t, err)
	assert.True(t, resp.Fallback)
	assert.Equal(t, coach.TurnFallbackQuestion, resp.Message)
	assert.Nil(t, resp.Evaluation)

	logs, err := store.ConversationHistory(start.SessionID, 0, true)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Nil(t, logs[1].Evaluation)
	assert.Equal(t, map[string]any{"fallback": true}, logs[1].Context)
	assert.Equal(t, "Use a load balancer.", logs[1].Answer)

	samples, err := store.PerformanceTrends(start.SessionID, 0)
	require.NoError(t, err)
	assert.Empty(t, samples)

	sctx, err := store.SessionContext(start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, coach.TurnFallbackQuestion, sctx.CurrentQuestion)
}

func TestFailedActionStepDiscardsEvaluation(t *testing.T) {
	port := &fakePort{}
	o, store, _ := newTestOrchestrator(t, port)
	start := startChat(t, o, "")
	port.question = func(coach.QuestionRequest) (interview.QuestionResult, error) {
		return interview.QuestionResult{}, errors.New("connection reset")
	}

	resp, err := o.ProcessUserAnswer(context.Background(), start.SessionID, "Shard by user id.")
	require.NoError(t, err)
	assert.True(t, resp.Fallback)

	logs, err := store.ConversationHistory(start.SessionID, 0, true)
	require.NoError(t, err)
	assert.Nil(t, logs[len(logs)-1].Evaluation)
	samples, err := store.PerformanceTrends(start.SessionID, 0)
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestAgentTimeoutBecomesFallback(t *testing.T) {
	port := &fakePort{evaluate: func(ctx context.Context, _ coach.EvaluationRequest) (interview.Evaluation, error) {
		<-ctx.Done()
		return interview.Evaluation{}, ctx.Err()
	}}
	o, _, _ := newTestOrchestrator(t, port, func(c *Config) { c.AgentTimeout = 20 * time.Millisecond })
	start := startChat(t, o, "")

	resp, err := o.ProcessUserAnswer(context.Background(), start.SessionID, "Cache hot conversations.")
	require.NoError(t, err)
	assert.True(t, resp.Fallback)
}

func TestConcurrentTurnIsRejected(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	port := &fakePort{evaluate: func(context.Context, coach.EvaluationRequest) (interview.Evaluation, error) {
		close(entered)
		<-release
		return scoredEval(6.5, 0.7), nil
	}}
	o, _, _ := newTestOrchestrator(t, port)
	start := startChat(t, o, "")

	errCh := make(chan error, 1)
	go func() {
		_, err := o.ProcessUserAnswer(context.Background(), start.SessionID, "first answer")
		errCh <- err
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first turn never reached the evaluator")
	}
	_, err := o.ProcessUserAnswer(context.Background(), start.SessionID, "second answer")
	assert.ErrorIs(t, err, interview.ErrTurnInProgress)

	close(release)
	require.NoError(t, <-errCh)
}

func TestAnswerDuringOpeningIsRejected(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	port := &fakePort{}
	port.question = func(req coach.QuestionRequest) (interview.QuestionResult, error) {
		if req.Kind == interview.KindOpening {
			close(entered)
			<-release
		}
		return interview.QuestionResult{Question: "Design the chat backend.", Kind: req.Kind, TopicsTargeted: []string{"delivery"}}, nil
	}
	var evaluated []string
	var evalMu sync.Mutex
	port.evaluate = func(_ context.Context, req coach.EvaluationRequest) (interview.Evaluation, error) {
		evalMu.Lock()
		evaluated = append(evaluated, req.Question)
		evalMu.Unlock()
		return scoredEval(6.5, 0.7), nil
	}
	o, _, _ := newTestOrchestrator(t, port)
	ctx := context.Background()
	id := uuid.NewString()

	startErr := make(chan error, 1)
	go func() {
		_, err := o.StartInterview(ctx, StartRequest{SessionID: id, Topic: "chat_system"})
		startErr <- err
	}()
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("opening question was never requested")
	}

	_, err := o.ProcessUserAnswer(ctx, id, "too early")
	assert.ErrorIs(t, err, interview.ErrTurnInProgress)
	_, err = o.StartInterview(ctx, StartRequest{SessionID: id, Topic: "chat_system"})
	assert.ErrorIs(t, err, interview.ErrAlreadyExists)

	close(release)
	require.NoError(t, <-startErr)

	_, err = o.ProcessUserAnswer(ctx, id, "Websockets with a fan-out service.")
	require.NoError(t, err)
	evalMu.Lock()
	assert.Equal(t, []string{"Design the chat backend."}, evaluated)
	evalMu.Unlock()
}

func TestAnswerWithoutOpenQuestionIsRejected(t *testing.T) {
	port := &fakePort{}
	o, store, _ := newTestOrchestrator(t, port)
	id := uuid.NewString()
	require.NoError(t, store.InitializeSession(id, "chat_system", interview.Intermediate))

	_, err := o.ProcessUserAnswer(context.Background(), id, "an answer")
	assert.ErrorIs(t, err, interview.ErrValidation)
	assert.Empty(t, port.Calls())
}

func TestCoverageStartsEmptyUntilAnswered(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, coach.Offline{})
	start := startChat(t, o, "")
	ctx := context.Background()

	in, err := o.SessionInsights(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Empty(t, in.Memory.CoveredTopics)
	assert.Less(t, len(in.Memory.CoveredTopics), o.policy.Config().MinTopicCoverage)
	assert.Contains(t, in.Recommendations, "Explore more topic areas")
}

func TestMissingTopicsAreNotCovered(t *testing.T) {
	port := &fakePort{evaluate: func(context.Context, coach.EvaluationRequest) (interview.Evaluation, error) {
		ev := scoredEval(6.5, 0.7)
		ev.Analysis.MissingTopics = []string{"Storage"}
		return ev, nil
	}}
	port.question = func(req coach.QuestionRequest) (interview.QuestionResult, error) {
		return interview.QuestionResult{Question: "Design the chat backend.", Kind: req.Kind, TopicsTargeted: []string{"delivery", "storage"}}, nil
	}
	o, store, _ := newTestOrchestrator(t, port)
	start := startChat(t, o, "")

	_, err := o.ProcessUserAnswer(context.Background(), start.SessionID, "Push over websockets.")
	require.NoError(t, err)

	sctx, err := store.SessionContext(start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, []string{"delivery"}, sctx.CoveredTopics)
}

func TestHintKeepsQuestionOpen(t *testing.T) {
	port := &fakePort{evaluate: func(context.Context, coach.EvaluationRequest) (interview.Evaluation, error) {
		return scoredEval(2, 0.8), nil
	}}
	var hintReq coach.HintRequest
	port.hint = func(req coach.HintRequest) (interview.HintResult, error) {
		hintReq = req
		return interview.HintResult{Type: "approach", Content: "Think about the write path.", FollowUpQuestions: []string{"Where do messages land first?"}}, nil
	}
	o, _, _ := newTestOrchestrator(t, port)
	start := startChat(t, o, "")

	resp, err := o.ProcessUserAnswer(context.Background(), start.SessionID, "not sure")
	require.NoError(t, err)
	assert.Equal(t, interview.ActionHint, resp.Action)
	assert.Contains(t, resp.Message, "Think about the write path.")
	assert.Contains(t, resp.Message, "Where do messages land first?")
	assert.Equal(t, start.Question.Question, resp.Question)
	assert.Len(t, hintReq.Struggles, 4)
}

func TestFeedbackDegradedButComplete(t *testing.T) {
	port := &fakePort{evaluate: func(context.Context, coach.EvaluationRequest) (interview.Evaluation, error) {
		ev := scoredEval(6.5, 0.7)
		ev.NextSteps.SuggestedFollowUp = "feedback"
		return ev, nil
	}}
	port.feedback = func(req coach.FeedbackRequest) (interview.FeedbackResult, error) {
		assert.Equal(t, interview.StyleConstructive, req.Style)
		return interview.FeedbackResult{Summary: "Good structure.", DegradedStages: []string{"compare"}, Fallback: true}, nil
	}
	o, store, _ := newTestOrchestrator(t, port)
	start := startChat(t, o, "")

	resp, err := o.ProcessUserAnswer(context.Background(), start.SessionID, "Partition by chat id.")
	require.NoError(t, err)
	assert.Equal(t, interview.ActionFeedback, resp.Action)
	assert.True(t, resp.Fallback)
	require.NotNil(t, resp.Feedback)
	assert.Equal(t, "Good structure.", resp.Message)

	samples, err := store.PerformanceTrends(start.SessionID, 0)
	require.NoError(t, err)
	assert.Len(t, samples, 1)
}

func TestDifficultyAdjustsAfterStrongStreak(t *testing.T) {
	port := &fakePort{evaluate: func(context.Context, coach.EvaluationRequest) (interview.Evaluation, error) {
		return scoredEval(9, 0.9), nil
	}}
	o, store, _ := newTestOrchestrator(t, port)
	start := startChat(t, o, "beginner")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		resp, err := o.ProcessUserAnswer(ctx, start.SessionID, "detailed answer")
		require.NoError(t, err)
		require.Equal(t, interview.ActionFollowUp, resp.Action)
	}
	resp, err := o.ProcessUserAnswer(ctx, start.SessionID, "another detailed answer")
	require.NoError(t, err)
	assert.Equal(t, interview.ActionAdjustDiff, resp.Action)
	assert.Equal(t, interview.Intermediate, resp.Difficulty)
	assert.Contains(t, resp.Question, "Interesting approach")

	sctx, err := store.SessionContext(start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, interview.Intermediate, sctx.Difficulty)
}

func TestDifficultyWindowRestartsAfterAdjustment(t *testing.T) {
	port := &fakePort{evaluate: func(context.Context, coach.EvaluationRequest) (interview.Evaluation, error) {
		// Above the hint floor, below the decrease ceiling.
		return scoredEval(3.5, 0.7), nil
	}}
	o, store, _ := newTestOrchestrator(t, port)
	start := startChat(t, o, "advanced")
	ctx := context.Background()

	var actions []interview.Action
	var levels []interview.Difficulty
	for i := 0; i < 4; i++ {
		resp, err := o.ProcessUserAnswer(ctx, start.SessionID, fmt.Sprintf("thin answer %d", i))
		require.NoError(t, err)
		actions = append(actions, resp.Action)
		levels = append(levels, resp.Difficulty)
	}
	assert.Equal(t, interview.ActionAdjustDiff, actions[2])
	assert.Equal(t, []interview.Difficulty{
		interview.Advanced,
		interview.Advanced,
		interview.Intermediate,
		interview.Intermediate,
	}, levels)
	assert.NotEqual(t, interview.ActionAdjustDiff, actions[3])

	// The adjusting answer is on record at the level it was given at.
	samples, err := store.PerformanceTrends(start.SessionID, 0)
	require.NoError(t, err)
	require.Len(t, samples, 4)
	assert.Equal(t, interview.Advanced, samples[2].Difficulty)
	assert.Equal(t, interview.Intermediate, samples[3].Difficulty)
}

func TestSummaryThenCompletion(t *testing.T) {
	port := &fakePort{}
	o, _, _ := newTestOrchestrator(t, port, func(c *Config) {
		c.Policy.WrapUpQuestionThreshold = 2
		c.Policy.MinTopicCoverage = 1
	})
	start := startChat(t, o, "")
	ctx := context.Background()

	var actions []interview.Action
	var last TurnResponse
	for i := 0; i < 4; i++ {
		resp, err := o.ProcessUserAnswer(ctx, start.SessionID, fmt.Sprintf("answer %d", i))
		require.NoError(t, err)
		actions = append(actions, resp.Action)
		last = resp
	}
	assert.Equal(t, []interview.Action{
		interview.ActionFollowUp,
		interview.ActionFollowUp,
		interview.ActionSummary,
		interview.ActionCompletion,
	}, actions)
	assert.True(t, last.Completed)
	assert.Empty(t, last.Question)
	require.NotNil(t, last.Summary)
	assert.Equal(t, "summary final=true", last.Summary.Message)

	_, err := o.ProcessUserAnswer(ctx, start.SessionID, "one more")
	assert.ErrorIs(t, err, interview.ErrValidation)

	in, err := o.SessionInsights(ctx, start.SessionID)
	require.NoError(t, err)
	assert.True(t, in.Completed)
	assert.Equal(t, interview.PhaseWrapUp, in.Phase)
}

func TestSessionInsights(t *testing.T) {
	o, _, clock := newTestOrchestrator(t, &fakePort{})
	start := startChat(t, o, "")
	ctx := context.Background()

	clock.Advance(10 * time.Minute)
	_, err := o.ProcessUserAnswer(ctx, start.SessionID, "first answer")
	require.NoError(t, err)

	in, err := o.SessionInsights(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 2, in.QuestionsAsked)
	assert.False(t, in.Progression.ReadyForNextPhase)
	assert.InDelta(t, 10.0, in.DurationMinutes, 1e-9)
	assert.Equal(t, 1, in.Memory.Performance.TotalEvaluations)
	assert.Contains(t, in.Recommendations, "Explore more topic areas")
	assert.Equal(t, 1, in.Coverage.TotalTopicsMentioned)

	_, err = o.SessionInsights(ctx, "missing")
	assert.ErrorIs(t, err, interview.ErrNotFound)
}

func TestCleanupIsIdempotentAndSweepDropsState(t *testing.T) {
	o, store, clock := newTestOrchestrator(t, &fakePort{})
	ctx := context.Background()

	a := startChat(t, o, "")
	require.NoError(t, o.CleanupSession(ctx, a.SessionID))
	require.NoError(t, o.CleanupSession(ctx, a.SessionID))
	_, err := o.ProcessUserAnswer(ctx, a.SessionID, "late answer")
	assert.ErrorIs(t, err, interview.ErrNotFound)

	b := startChat(t, o, "")
	clock.Advance(25 * time.Hour)
	ids, err := o.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{b.SessionID}, ids)
	assert.Equal(t, 0, store.Len())

	o.mu.Lock()
	assert.Empty(t, o.sessions)
	o.mu.Unlock()
}
