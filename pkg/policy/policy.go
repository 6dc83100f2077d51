// Package policy decides what the interviewer does next. Every function is
// pure: inputs come from the caller and nothing is remembered between turns.
package policy

import (
	"fmt"
	"sort"
	"time"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/interview"
)

type Config struct {
	WrapUpQuestionThreshold int
	MinTopicCoverage        int
	PhaseAdvanceQuestions   int
	HintScoreFloor          float64
	ClarificationScoreFloor float64
	MaxSessionDuration      time.Duration
	PerformanceWindow       int
	DifficultyMinSamples    int
	AdjustConfidenceFloor   float64
}

func DefaultConfig() Config {
	return Config{
		WrapUpQuestionThreshold: 8,
		MinTopicCoverage:        3,
		PhaseAdvanceQuestions:   3,
		HintScoreFloor:          3.0,
		ClarificationScoreFloor: 4.0,
		MaxSessionDuration:      45 * time.Minute,
		PerformanceWindow:       5,
		DifficultyMinSamples:    3,
		AdjustConfidenceFloor:   0.6,
	}
}

// State is everything Decide looks at for one turn.
type State struct {
	QuestionsAsked int
	TopicsCovered  int
	Elapsed        time.Duration
	Difficulty     interview.Difficulty
	Phase          interview.Phase

	// Latest is nil when the answer could not be evaluated.
	Latest *interview.Evaluation
	// Recent is the performance window, oldest first, including Latest.
	Recent []interview.Evaluation

	SummaryGiven bool
}

type Policy struct {
	cfg Config
}

func New(cfg Config) *Policy {
	def := DefaultConfig()
	if cfg.WrapUpQuestionThreshold <= 0 {
		cfg.WrapUpQuestionThreshold = def.WrapUpQuestionThreshold
	}
	if cfg.MinTopicCoverage <= 0 {
		cfg.MinTopicCoverage = def.MinTopicCoverage
	}
	if cfg.PhaseAdvanceQuestions <= 0 {
		cfg.PhaseAdvanceQuestions = def.PhaseAdvanceQuestions
	}
	if cfg.HintScoreFloor <= 0 {
		cfg.HintScoreFloor = def.HintScoreFloor
	}
	if cfg.ClarificationScoreFloor <= 0 {
		cfg.ClarificationScoreFloor = def.ClarificationScoreFloor
	}
	if cfg.MaxSessionDuration <= 0 {
		cfg.MaxSessionDuration = def.MaxSessionDuration
	}
	if cfg.PerformanceWindow <= 0 {
		cfg.PerformanceWindow = def.PerformanceWindow
	}
	if cfg.DifficultyMinSamples <= 0 {
		cfg.DifficultyMinSamples = def.DifficultyMinSamples
	}
	if cfg.AdjustConfidenceFloor <= 0 {
		cfg.AdjustConfidenceFloor = def.AdjustConfidenceFloor
	}
	return &Policy{cfg: cfg}
}

func (p *Policy) Config() Config { return p.cfg }

type candidate struct {
	action     interview.Action
	confidence float64
	reason     string
	context    map[string]any
}

// Decide picks the next action. Candidates are collected from the turn's
// signals and the highest priority tier wins; ties keep collection order.
func (p *Policy) Decide(st State) interview.ActionDecision {
	var cands []candidate
	add := func(a interview.Action, conf float64, reason string, ctx map[string]any) {
		for _, c := range cands {
			if c.action == a {
				return
			}
		}
		cands = append(cands, candidate{action: a, confidence: conf, reason: reason, context: ctx})
	}

	wrapGate := st.QuestionsAsked > p.cfg.WrapUpQuestionThreshold && st.TopicsCovered >= p.cfg.MinTopicCoverage

	if ev := st.Latest; ev != nil {
		avg := ev.Scores.Average()
		next := ev.NextSteps

		if next.NeedsClarification || next.SuggestedFollowUp == "clarification" {
			add(interview.ActionClarification, 0.9, "evaluator flagged the answer as unclear", nil)
		}
		if avg < p.cfg.HintScoreFloor {
			add(interview.ActionHint, 0.8, fmt.Sprintf("average score %.1f is below %.1f, candidate looks stuck", avg, p.cfg.HintScoreFloor), map[string]any{"average_score": avg})
		}
		if assessed := p.AssessDifficulty(window(st.Recent, p.cfg.PerformanceWindow), st.Difficulty); assessed.AdjustmentNeeded && assessed.Confidence >= p.cfg.AdjustConfidenceFloor {
			add(interview.ActionAdjustDiff, assessed.Confidence, assessed.Reason, map[string]any{
				"recommended_difficulty": string(assessed.Recommended),
				"performance_trend":      string(assessed.Trend),
			})
		}
		if ev.Scores.Clarity < p.cfg.ClarificationScoreFloor {
			add(interview.ActionClarification, 0.75, fmt.Sprintf("clarity %.1f is below %.1f", ev.Scores.Clarity, p.cfg.ClarificationScoreFloor), nil)
		}

		if next.NeedsDeeperDive || next.SuggestedFollowUp == "deeper_dive" {
			add(interview.ActionFollowUp, 0.8, "answer warrants a deeper dive", map[string]any{"areas": next.SpecificAreasToExplore})
		}
		if next.ReadyForNextTopic || next.SuggestedFollowUp == "next_topic" {
			add(interview.ActionTopicTransition, 0.8, "candidate is ready for the next topic", nil)
		}
		if next.SuggestedFollowUp == "feedback" {
			add(interview.ActionFeedback, 0.7, "evaluator suggested feedback", nil)
		}
	}

	if st.TopicsCovered < p.cfg.MinTopicCoverage && st.QuestionsAsked >= p.cfg.PhaseAdvanceQuestions {
		add(interview.ActionTopicTransition, 0.7, fmt.Sprintf("only %d of %d topics covered", st.TopicsCovered, p.cfg.MinTopicCoverage), nil)
	}

	if wrapGate {
		if st.SummaryGiven || st.Elapsed >= p.cfg.MaxSessionDuration {
			add(interview.ActionCompletion, 0.8, "interview has reached its end", nil)
		}
		add(interview.ActionSummary, 0.75, fmt.Sprintf("%d questions asked across %d topics", st.QuestionsAsked, st.TopicsCovered), nil)
	} else {
		add(interview.ActionFollowUp, 0.6, "continue exploring the current topic", nil)
	}

	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].action.Priority() > cands[j].action.Priority()
	})

	chosen := cands[0]
	alts := make([]interview.Action, 0, len(cands)-1)
	for _, c := range cands[1:] {
		alts = append(alts, c.action)
	}
	ctx := map[string]any{
		"questions_asked": st.QuestionsAsked,
		"topics_covered":  st.TopicsCovered,
		"priority":        chosen.action.Priority().String(),
	}
	for k, v := range chosen.context {
		ctx[k] = v
	}
	return interview.ActionDecision{
		Action:       chosen.action,
		Confidence:   chosen.confidence,
		Alternatives: alts,
		Reason:       chosen.reason,
		Context:      ctx,
	}
}

// NextPhase is advisory and never moves backwards.
func (p *Policy) NextPhase(current interview.Phase, questionsAsked, topicsCovered int) interview.Phase {
	step := p.cfg.PhaseAdvanceQuestions
	target := interview.PhaseOpening
	switch {
	case questionsAsked > p.cfg.WrapUpQuestionThreshold && topicsCovered >= p.cfg.MinTopicCoverage:
		target = interview.PhaseWrapUp
	case questionsAsked >= 3*step:
		target = interview.PhaseOptimization
	case questionsAsked >= 2*step:
		target = interview.PhaseDeepDive
	case questionsAsked >= step:
		target = interview.PhaseArchitecture
	}
	if current.Rank() >= target.Rank() {
		return current
	}
	return target
}

// ReadyForNextPhase mirrors the coarse readiness flag shown in insights.
func ReadyForNextPhase(questionsAsked int) bool {
	return questionsAsked > 3
}

var dimensionTips = []struct {
	name string
	get  func(interview.EvaluationScores) float64
	tip  string
}{
	{"clarity", func(s interview.EvaluationScores) float64 { return s.Clarity }, "Structure answers as requirements, high-level design, then details"},
	{"technical_depth", func(s interview.EvaluationScores) float64 { return s.TechnicalDepth }, "Go one level deeper on component internals and technology choices"},
	{"scalability_awareness", func(s interview.EvaluationScores) float64 { return s.ScalabilityAwareness }, "Estimate load and explain how each component scales out"},
	{"trade_offs_understanding", func(s interview.EvaluationScores) float64 { return s.TradeOffs }, "Name the alternatives you rejected and why"},
}

// Recommendations turns session averages into short coaching tips.
// evaluated is the number of scored answers behind averages.
func (p *Policy) Recommendations(averages interview.EvaluationScores, evaluated, questionsAsked, topicsCovered int) []string {
	recs := make([]string, 0, 6)
	if evaluated > 0 {
		for _, d := range dimensionTips {
			if d.get(averages) < 6 {
				recs = append(recs, d.tip)
			}
		}
	}
	if questionsAsked > p.cfg.WrapUpQuestionThreshold {
		recs = append(recs, "Consider moving to wrap-up phase")
	}
	if topicsCovered < p.cfg.MinTopicCoverage {
		recs = append(recs, "Explore more topic areas")
	}
	return recs
}

func window(evals []interview.Evaluation, n int) []interview.Evaluation {
	if n <= 0 || len(evals) <= n {
		return evals
	}
	return evals[len(evals)-n:]
}
