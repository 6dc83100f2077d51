// Package coach is the boundary between the interview core and the language
// model. Port lists the typed operations the orchestrator may request; LLMPort
// implements them on top of a chat-completions provider.
package coach

import (
	"context"
	"time"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/interview"
)

// Port is stateless: every call carries all the context it needs. Errors wrap
// interview.ErrAgentUnavailable or interview.ErrParse.
type Port interface {
	GenerateQuestion(ctx context.Context, req QuestionRequest) (interview.QuestionResult, error)
	EvaluateAnswer(ctx context.Context, req EvaluationRequest) (interview.Evaluation, error)
	GenerateFeedback(ctx context.Context, req FeedbackRequest) (interview.FeedbackResult, error)
	AssessDifficulty(ctx context.Context, req DifficultyRequest) (interview.DifficultyResult, error)
	GenerateHint(ctx context.Context, req HintRequest) (interview.HintResult, error)
	SummarizeSession(ctx context.Context, req SummaryRequest) (interview.SessionSummary, error)
}

// Exchange is one prior question and answer shown to the model as history.
type Exchange struct {
	Question string
	Answer   string
	Kind     interview.QuestionKind
}

type QuestionRequest struct {
	Kind       interview.QuestionKind
	Topic      string
	Difficulty interview.Difficulty
	Phase      interview.Phase

	// Set for everything but the opening question.
	PreviousQuestion string
	PreviousAnswer   string
	Evaluation       *interview.Evaluation

	CoveredTopics []string
	FocusAreas    []string
	History       []Exchange
}

type EvaluationRequest struct {
	Question   string
	Answer     string
	Topic      string
	Difficulty interview.Difficulty
	History    []Exchange
}

type FeedbackRequest struct {
	Question      string
	Answer        string
	Topic         string
	Difficulty    interview.Difficulty
	Evaluation    interview.Evaluation
	Style         interview.FeedbackStyle
	QuestionCount int
	CoveredTopics []string
}

type DifficultyRequest struct {
	Current       interview.Difficulty
	Topic         string
	Recent        []interview.Evaluation
	QuestionCount int
	// Baseline is the deterministic assessment the model may refine.
	Baseline interview.DifficultyResult
}

type HintRequest struct {
	Question   string
	Answer     string
	Topic      string
	Difficulty interview.Difficulty
	Evaluation *interview.Evaluation
	// Struggles lists the dimensions scored below the hint threshold.
	Struggles []string
}

type SummaryRequest struct {
	Topic          string
	Difficulty     interview.Difficulty
	QuestionsAsked int
	CoveredTopics  []string
	Averages       interview.EvaluationScores
	Evaluated      int
	Duration       time.Duration
	Final          bool
}
