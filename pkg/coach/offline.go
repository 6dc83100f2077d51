package coach

import (
	"context"
	"fmt"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/interview"
)

// Offline is a Port with no model behind it. Every call fails with
// ErrAgentUnavailable so the orchestrator serves its deterministic fallbacks;
// used when no provider credentials are configured.
type Offline struct{}

var _ Port = Offline{}

func offline(op string) error {
	return fmt.Errorf("%w: %s: running offline", interview.ErrAgentUnavailable, op)
}

func (Offline) GenerateQuestion(context.Context, QuestionRequest) (interview.QuestionResult, error) {
	return interview.QuestionResult{}, offline("generate_question")
}

func (Offline) EvaluateAnswer(context.Context, EvaluationRequest) (interview.Evaluation, error) {
	return interview.Evaluation{}, offline("evaluate_answer")
}

func (Offline) GenerateFeedback(context.Context, FeedbackRequest) (interview.FeedbackResult, error) {
	return interview.FeedbackResult{}, offline("generate_feedback")
}

func (Offline) AssessDifficulty(context.Context, DifficultyRequest) (interview.DifficultyResult, error) {
	return interview.DifficultyResult{}, offline("assess_difficulty")
}

func (Offline) GenerateHint(context.Context, HintRequest) (interview.HintResult, error) {
	return interview.HintResult{}, offline("generate_hint")
}

func (Offline) SummarizeSession(context.Context, SummaryRequest) (interview.SessionSummary, error) {
	return interview.SessionSummary{}, offline("summarize_session")
}
