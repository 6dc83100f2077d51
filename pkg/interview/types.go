// Package interview holds the shared vocabulary of an interview session:
// levels, question kinds, phases, actions and the structured agent results.
package interview

import (
	"fmt"
	"strings"
	"time"
)

type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

var difficultyOrder = []Difficulty{Beginner, Intermediate, Advanced}

func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("%w: unknown difficulty %q (want beginner, intermediate or advanced)", ErrValidation, s)
	}
	return d, nil
}

func (d Difficulty) Valid() bool {
	return d.Rank() >= 0
}

// Rank orders levels from 0 (beginner); -1 if unknown.
func (d Difficulty) Rank() int {
	for i, level := range difficultyOrder {
		if level == d {
			return i
		}
	}
	return -1
}

// Harder returns the next level up, or d itself at the top.
func (d Difficulty) Harder() Difficulty {
	r := d.Rank()
	if r < 0 || r == len(difficultyOrder)-1 {
		return d
	}
	return difficultyOrder[r+1]
}

// Easier returns the next level down, or d itself at the bottom.
func (d Difficulty) Easier() Difficulty {
	r := d.Rank()
	if r <= 0 {
		return d
	}
	return difficultyOrder[r-1]
}

type QuestionKind string

const (
	KindOpening         QuestionKind = "opening"
	KindFollowUp        QuestionKind = "follow_up"
	KindClarification   QuestionKind = "clarification"
	KindTopicTransition QuestionKind = "topic_transition"
	KindGeneral         QuestionKind = "general"
)

// ParseQuestionKind maps an empty string to KindGeneral.
func ParseQuestionKind(s string) (QuestionKind, error) {
	k := QuestionKind(strings.ToLower(strings.TrimSpace(s)))
	if k == "" {
		return KindGeneral, nil
	}
	if !k.Valid() {
		return "", fmt.Errorf("%w: unknown question kind %q", ErrValidation, s)
	}
	return k, nil
}

func (k QuestionKind) Valid() bool {
	switch k {
	case KindOpening, KindFollowUp, KindClarification, KindTopicTransition, KindGeneral:
		return true
	}
	return false
}

type Phase string

const (
	PhaseOpening      Phase = "opening"
	PhaseArchitecture Phase = "architecture"
	PhaseDeepDive     Phase = "deep_dive"
	PhaseOptimization Phase = "optimization"
	PhaseWrapUp       Phase = "wrap_up"
)

var phaseOrder = []Phase{PhaseOpening, PhaseArchitecture, PhaseDeepDive, PhaseOptimization, PhaseWrapUp}

// Rank is the position of p in the interview progression, -1 if unknown.
func (p Phase) Rank() int {
	for i, ph := range phaseOrder {
		if ph == p {
			return i
		}
	}
	return -1
}

type Action string

const (
	ActionFollowUp        Action = "generate_follow_up"
	ActionClarification   Action = "generate_clarification"
	ActionTopicTransition Action = "generate_topic_transition"
	ActionFeedback        Action = "provide_feedback"
	ActionHint            Action = "provide_hint"
	ActionAdjustDiff      Action = "adjust_difficulty"
	ActionSummary         Action = "generate_summary"
	ActionCompletion      Action = "session_completion"
)

type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	default:
		return "low"
	}
}

// Priority returns the tier used to break ties between plausible actions.
func (a Action) Priority() Priority {
	switch a {
	case ActionClarification, ActionAdjustDiff, ActionHint:
		return PriorityHigh
	case ActionFollowUp, ActionTopicTransition, ActionFeedback:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// QuestionKind maps question-producing actions to the kind of question they ask.
func (a Action) QuestionKind() (QuestionKind, bool) {
	switch a {
	case ActionFollowUp:
		return KindFollowUp, true
	case ActionClarification:
		return KindClarification, true
	case ActionTopicTransition:
		return KindTopicTransition, true
	}
	return "", false
}

type FeedbackStyle string

const (
	StyleChallenging  FeedbackStyle = "challenging"
	StyleConstructive FeedbackStyle = "constructive"
	StyleEncouraging  FeedbackStyle = "encouraging"
	StyleSupportive   FeedbackStyle = "supportive"
)

type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// EvaluationScores are the four 0-10 dimensions an answer is graded on.
type EvaluationScores struct {
	Clarity              float64 `json:"clarity" validate:"gte=0,lte=10"`
	TechnicalDepth       float64 `json:"technical_depth" validate:"gte=0,lte=10"`
	ScalabilityAwareness float64 `json:"scalability_awareness" validate:"gte=0,lte=10"`
	TradeOffs            float64 `json:"trade_offs_understanding" validate:"gte=0,lte=10"`
}

func (s EvaluationScores) Average() float64 {
	return (s.Clarity + s.TechnicalDepth + s.ScalabilityAwareness + s.TradeOffs) / 4
}

// Dimensions returns the scores keyed by their wire names.
func (s EvaluationScores) Dimensions() map[string]float64 {
	return map[string]float64{
		"clarity":                  s.Clarity,
		"technical_depth":          s.TechnicalDepth,
		"scalability_awareness":    s.ScalabilityAwareness,
		"trade_offs_understanding": s.TradeOffs,
	}
}

type AnswerAnalysis struct {
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	MissingTopics   []string `json:"missing_topics"`
	TechnicalErrors []string `json:"technical_errors"`
}

type NextSteps struct {
	NeedsClarification     bool     `json:"needs_clarification"`
	NeedsDeeperDive        bool     `json:"needs_deeper_dive"`
	ReadyForNextTopic      bool     `json:"ready_for_next_topic"`
	SuggestedFollowUp      string   `json:"suggested_follow_up" validate:"omitempty,oneof=clarification deeper_dive next_topic feedback"`
	SpecificAreasToExplore []string `json:"specific_areas_to_explore"`
}

type Evaluation struct {
	Scores      EvaluationScores `json:"scores"`
	Analysis    AnswerAnalysis   `json:"analysis"`
	NextSteps   NextSteps        `json:"next_steps"`
	Confidence  float64          `json:"confidence_level" validate:"gte=0,lte=1"`
	EvaluatedAt time.Time        `json:"evaluation_timestamp"`
	Fallback    bool             `json:"fallback,omitempty"`
}

type QuestionResult struct {
	Question         string       `json:"question" validate:"required"`
	Kind             QuestionKind `json:"question_type"`
	TopicsTargeted   []string     `json:"topics_targeted"`
	Difficulty       Difficulty   `json:"difficulty_level"`
	ExpectedConcepts []string     `json:"expected_concepts"`
	GuidanceHints    []string     `json:"guidance_hints"`
	Fallback         bool         `json:"fallback,omitempty"`
}

type FeedbackResult struct {
	Summary          string        `json:"executive_summary" validate:"required"`
	Recognition      string        `json:"recognition"`
	Insight          string        `json:"insight"`
	Guidance         string        `json:"guidance"`
	Encouragement    string        `json:"encouragement"`
	KeyStrengths     []string      `json:"key_strengths"`
	ImprovementAreas []string      `json:"improvement_areas"`
	ComplianceScore  float64       `json:"compliance_score" validate:"gte=0,lte=100"`
	Style            FeedbackStyle `json:"feedback_style_used"`
	DegradedStages   []string      `json:"degraded_stages,omitempty"`
	Fallback         bool          `json:"fallback,omitempty"`
}

// Text renders the feedback as a single message for chat surfaces.
func (f FeedbackResult) Text() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{f.Summary, f.Recognition, f.Insight, f.Guidance, f.Encouragement} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

type DifficultyResult struct {
	Current          Difficulty `json:"current_difficulty" validate:"required"`
	Recommended      Difficulty `json:"recommended_difficulty" validate:"required"`
	Reason           string     `json:"adjustment_reason"`
	Trend            Trend      `json:"performance_trend"`
	Confidence       float64    `json:"confidence_in_recommendation" validate:"gte=0,lte=1"`
	AdjustmentNeeded bool       `json:"adjustment_needed"`
	Fallback         bool       `json:"fallback,omitempty"`
}

type HintResult struct {
	Type              string   `json:"hint_type" validate:"omitempty,oneof=conceptual technical approach example"`
	Content           string   `json:"hint_content" validate:"required"`
	Reasoning         string   `json:"reasoning"`
	FollowUpQuestions []string `json:"follow_up_questions"`
	Fallback          bool     `json:"fallback,omitempty"`
}

type SessionSummary struct {
	Averages     EvaluationScores `json:"overall_performance"`
	KeyStrengths []string         `json:"key_strengths"`
	GrowthAreas  []string         `json:"primary_growth_areas"`
	NextSteps    []string         `json:"recommended_next_steps"`
	Message      string           `json:"message" validate:"required"`
	Fallback     bool             `json:"fallback,omitempty"`
}

// ActionDecision is the policy's choice for the next orchestration step.
type ActionDecision struct {
	Action       Action         `json:"recommended_action"`
	Confidence   float64        `json:"confidence_level"`
	Alternatives []Action       `json:"alternative_actions"`
	Reason       string         `json:"reasoning"`
	Context      map[string]any `json:"specific_context,omitempty"`
}
