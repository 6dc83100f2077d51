package coach

import (
	"fmt"
	"strings"
	"time"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/interview"
)

// Deterministic stand-ins used whenever the model cannot be reached or its
// reply cannot be used. Every value returned here has Fallback set.

const (
	TurnFallbackQuestion = "Thank you for your response. Can you elaborate on your approach to handling scalability?"

	fallbackHint = "Consider breaking down the problem into smaller components and think about how they interact."

	fallbackFeedbackSummary       = "Thank you for your thoughtful response to this system design question."
	fallbackFeedbackEncouragement = "Keep practicing system design problems. Each attempt helps build your skills and confidence."
)

var (
	turnFallbackFocus    = []string{"scalability", "architecture"}
	openingExpected      = []string{"requirements", "architecture", "scalability"}
	openingGuidanceHints = []string{"Think about the main components", "Consider the data flow", "Think about scalability requirements"}
	hintFollowUps        = []string{
		"What are the main components of your system?",
		"How do these components communicate?",
		"What are the data flows between components?",
	}
)

// followUpTemplates are keyed by difficulty; %[1]s is the aspect and %[2]s the concern.
var followUpTemplates = map[interview.Difficulty]string{
	interview.Beginner:     "That's a good start! Can you tell me more about how you would handle %[1]s?",
	interview.Intermediate: "Interesting approach. How would you ensure %[1]s while maintaining %[2]s?",
	interview.Advanced:     "Given your design, what trade-offs would you consider for %[1]s in a large-scale deployment?",
}

// FallbackOpening uses the catalog opening when the topic has one and a
// generic requirements question otherwise.
func FallbackOpening(catalog *interview.Catalog, topic string, d interview.Difficulty) interview.QuestionResult {
	q, ok := "", false
	if catalog != nil {
		q, ok = catalog.OpeningQuestion(topic, d)
	}
	if !ok {
		q = fmt.Sprintf("Let's design a %s system. What would you say are the key requirements we should consider?", displayTopic(topic))
	}
	return interview.QuestionResult{
		Question:         q,
		Kind:             interview.KindOpening,
		TopicsTargeted:   append([]string(nil), openingExpected...),
		Difficulty:       d,
		ExpectedConcepts: append([]string(nil), openingExpected...),
		GuidanceHints:    append([]string(nil), openingGuidanceHints...),
		Fallback:         true,
	}
}

// FallbackTurn is the single safe action served when a turn fails.
func FallbackTurn(d interview.Difficulty) interview.QuestionResult {
	return interview.QuestionResult{
		Question:       TurnFallbackQuestion,
		Kind:           interview.KindFollowUp,
		TopicsTargeted: append([]string(nil), turnFallbackFocus...),
		Difficulty:     d,
		Fallback:       true,
	}
}

// FallbackFollowUp fills the per-difficulty template. Empty aspect and
// concern default to data storage and performance.
func FallbackFollowUp(d interview.Difficulty, aspect, concern string) interview.QuestionResult {
	if aspect == "" {
		aspect = "data storage"
	}
	if concern == "" {
		concern = "performance"
	}
	tmpl, ok := followUpTemplates[d]
	if !ok {
		tmpl = followUpTemplates[interview.Intermediate]
	}
	return interview.QuestionResult{
		Question:       fmt.Sprintf(tmpl, aspect, concern),
		Kind:           interview.KindFollowUp,
		TopicsTargeted: []string{aspect},
		Difficulty:     d,
		Fallback:       true,
	}
}

func FallbackEvaluation(at time.Time) interview.Evaluation {
	return interview.Evaluation{
		Scores: interview.EvaluationScores{
			Clarity:              5,
			TechnicalDepth:       5,
			ScalabilityAwareness: 5,
			TradeOffs:            5,
		},
		Analysis: interview.AnswerAnalysis{
			Strengths:       []string{},
			Weaknesses:      []string{},
			MissingTopics:   []string{},
			TechnicalErrors: []string{},
		},
		NextSteps: interview.NextSteps{
			NeedsClarification:     true,
			SuggestedFollowUp:      "clarification",
			SpecificAreasToExplore: []string{},
		},
		Confidence:  0.3,
		EvaluatedAt: at,
		Fallback:    true,
	}
}

func FallbackDifficulty(current interview.Difficulty) interview.DifficultyResult {
	return interview.DifficultyResult{
		Current:     current,
		Recommended: current,
		Reason:      "not enough signal to change the level",
		Trend:       interview.TrendStable,
		Confidence:  0.3,
		Fallback:    true,
	}
}

func FallbackHint() interview.HintResult {
	return interview.HintResult{
		Type:              "approach",
		Content:           fallbackHint,
		Reasoning:         "general decomposition guidance",
		FollowUpQuestions: append([]string(nil), hintFollowUps...),
		Fallback:          true,
	}
}

// FallbackFeedback is the short four-part feedback used when synthesis fails.
func FallbackFeedback(style interview.FeedbackStyle) interview.FeedbackResult {
	return interview.FeedbackResult{
		Summary:          fallbackFeedbackSummary,
		Recognition:      "Thank you for your thoughtful response.",
		Insight:          "Let's explore this topic further together.",
		Guidance:         "Think about the key components and their relationships.",
		Encouragement:    "You're making good progress. Keep thinking systematically!",
		KeyStrengths:     []string{},
		ImprovementAreas: []string{},
		Style:            style,
		Fallback:         true,
	}
}

// FallbackSummary builds a session summary from locally computed averages.
func FallbackSummary(req SummaryRequest) interview.SessionSummary {
	var strengths, growth []string
	if req.Evaluated > 0 {
		for _, d := range []struct {
			name  string
			score float64
		}{
			{"clarity", req.Averages.Clarity},
			{"technical depth", req.Averages.TechnicalDepth},
			{"scalability awareness", req.Averages.ScalabilityAwareness},
			{"trade-off analysis", req.Averages.TradeOffs},
		} {
			switch {
			case d.score >= 7:
				strengths = append(strengths, d.name)
			case d.score < 6:
				growth = append(growth, d.name)
			}
		}
	}

	msg := fmt.Sprintf("We covered %d questions on %s", req.QuestionsAsked, displayTopic(req.Topic))
	if len(req.CoveredTopics) > 0 {
		msg += fmt.Sprintf(", touching on %s", strings.Join(req.CoveredTopics, ", "))
	}
	msg += ". " + fallbackFeedbackEncouragement

	return interview.SessionSummary{
		Averages:     req.Averages,
		KeyStrengths: nonNil(strengths),
		GrowthAreas:  nonNil(growth),
		NextSteps:    []string{"Review the areas above and practice another design end to end"},
		Message:      msg,
		Fallback:     true,
	}
}

func displayTopic(topic string) string {
	t := strings.TrimSpace(strings.ReplaceAll(topic, "_", " "))
	if t == "" {
		return "distributed"
	}
	return t
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
