package memory

import (
	"time"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/interview"
)

// InteractionLog is one question/answer exchange. Logs are never mutated after
// they are appended; every reader receives a copy.
type InteractionLog struct {
	Timestamp  time.Time              `json:"timestamp"`
	Question   string                 `json:"question,omitempty"`
	Answer     string                 `json:"answer,omitempty"`
	Evaluation *interview.Evaluation  `json:"evaluation,omitempty"`
	Feedback   string                 `json:"feedback,omitempty"`
	Context    map[string]any         `json:"context,omitempty"`
	Kind       interview.QuestionKind `json:"question_type"`
	Topics     []string               `json:"topics_covered"`
}

// NewInteraction is the input to Store.AddInteraction.
type NewInteraction struct {
	Timestamp  time.Time
	Question   string
	Answer     string
	Evaluation *interview.Evaluation
	Feedback   string
	Context    map[string]any
	Kind       interview.QuestionKind
	Topics     []string

	// OpenQuestion becomes the session's current question. When empty the
	// interaction's Question is used instead, if any.
	OpenQuestion string
}

type PerformanceSample struct {
	Timestamp  time.Time              `json:"timestamp"`
	Evaluation interview.Evaluation   `json:"evaluation"`
	Kind       interview.QuestionKind `json:"question_type"`
	// Difficulty is the session level the answer was given at.
	Difficulty interview.Difficulty   `json:"difficulty,omitempty"`
}

type TimePeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ContextSummary condenses interactions dropped by eviction. Rounds accumulate.
type ContextSummary struct {
	SummarizedInteractions int                      `json:"summarized_interactions"`
	TimePeriod             TimePeriod               `json:"time_period"`
	TopicsDiscussed        []string                 `json:"topics_discussed"`
	QuestionKinds          []interview.QuestionKind `json:"question_types"`
	EvaluationCount        int                      `json:"evaluation_count"`
	EvictionRounds         int                      `json:"eviction_rounds"`
}

// TrendSnapshot records the score average of one evaluated answer.
type TrendSnapshot struct {
	Timestamp time.Time                  `json:"timestamp"`
	Average   float64                    `json:"average"`
	Scores    interview.EvaluationScores `json:"scores"`
	Kind      interview.QuestionKind     `json:"question_type"`
}

type InteractionBrief struct {
	Question  string                 `json:"question,omitempty"`
	Answer    string                 `json:"answer,omitempty"`
	Kind      interview.QuestionKind `json:"question_type"`
	Timestamp time.Time              `json:"timestamp"`
}

type PerformanceSummary struct {
	TotalEvaluations int                        `json:"total_evaluations"`
	Averages         interview.EvaluationScores `json:"average_scores"`
	Trend            string                     `json:"recent_trend"`
}

type ConversationFlow struct {
	TotalInteractions int                            `json:"total_interactions"`
	KindsUsed         map[interview.QuestionKind]int `json:"question_types_used,omitempty"`
	Diversity         int                            `json:"flow_diversity"`
	Progression       []interview.QuestionKind       `json:"progression,omitempty"`
	Quality           string                         `json:"flow_quality,omitempty"`
}

// SessionContext is the read model handed to agents and insights.
type SessionContext struct {
	SessionID          string               `json:"session_id"`
	Topic              string               `json:"topic"`
	Difficulty         interview.Difficulty `json:"difficulty"`
	StartTime          time.Time            `json:"start_time"`
	CurrentQuestion    string               `json:"current_question"`
	CoveredTopics      []string             `json:"covered_topics"`
	InteractionCount   int                  `json:"interaction_count"`
	RecentInteractions []InteractionBrief   `json:"recent_interactions"`
	Performance        PerformanceSummary   `json:"performance_summary"`
	Flow               ConversationFlow     `json:"conversation_flow"`
	Summary            *ContextSummary      `json:"context_summary,omitempty"`
}

type TopicCoverage struct {
	TotalTopicsMentioned int            `json:"total_topics_mentioned"`
	CoveredTopics        []string       `json:"covered_topics"`
	TopicFrequency       map[string]int `json:"topic_frequency"`
	MostDiscussed        string         `json:"most_discussed,omitempty"`
	CoverageDepth        float64        `json:"coverage_depth"`
}

// Snapshot is the persisted shape of a session.
type Snapshot struct {
	SessionID          string               `json:"session_id"`
	Topic              string               `json:"topic"`
	Difficulty         interview.Difficulty `json:"difficulty"`
	StartTime          time.Time            `json:"start_time"`
	CurrentQuestion    string               `json:"current_question,omitempty"`
	CoveredTopics      []string             `json:"covered_topics"`
	Interactions       []InteractionLog     `json:"interactions"`
	Summary            *ContextSummary      `json:"context_summary,omitempty"`
	TrendSnapshots     []TrendSnapshot      `json:"trend_snapshots,omitempty"`
	PerformanceSamples []PerformanceSample  `json:"performance_samples,omitempty"`
	TakenAt            time.Time            `json:"taken_at"`
}

// ArchivedSession is a row of the archive listing.
type ArchivedSession struct {
	SessionID        string               `json:"session_id"`
	Topic            string               `json:"topic"`
	Difficulty       interview.Difficulty `json:"difficulty"`
	StartTime        time.Time            `json:"start_time"`
	ArchivedAt       time.Time            `json:"archived_at"`
	Reason           string               `json:"reason"`
	InteractionCount int                  `json:"interaction_count"`
	AverageScore     float64              `json:"average_score"`
}
