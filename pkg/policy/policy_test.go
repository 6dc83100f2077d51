package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/interview"
)

func scored(avg, confidence float64) interview.Evaluation {
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

func repeat(ev interview.Evaluation, n int) []interview.Evaluation {
	out := make([]interview.Evaluation, n)
	for i := range out {
		out[i] = ev
	}
	return out
}

func TestAssessDifficultyClampsAtAdvanced(t *testing.T) {
	p := New(DefaultConfig())

	res := p.AssessDifficulty(repeat(scored(9.5, 0.9), 5), interview.Advanced)
	assert.Equal(t, interview.Advanced, res.Recommended)
	assert.False(t, res.AdjustmentNeeded)
	assert.Contains(t, res.Reason, "already at advanced")
}

func TestAssessDifficultyClampsAtBeginner(t *testing.T) {
	p := New(DefaultConfig())

	res := p.AssessDifficulty(repeat(scored(2, 0.9), 4), interview.Beginner)
	assert.Equal(t, interview.Beginner, res.Recommended)
	assert.False(t, res.AdjustmentNeeded)
}

func TestAssessDifficultyDirections(t *testing.T) {
	p := New(DefaultConfig())

	cases := []struct {
		name    string
		window  []interview.Evaluation
		current interview.Difficulty
		want    interview.Difficulty
	}{
		{"consistently strong", repeat(scored(8.5, 0.85), 3), interview.Beginner, interview.Intermediate},
		{"strong but unsure", repeat(scored(8.5, 0.7), 3), interview.Beginner, interview.Beginner},
		{"consistently weak", repeat(scored(3.5, 0.9), 3), interview.Advanced, interview.Intermediate},
		{"low confidence", repeat(scored(6, 0.4), 3), interview.Intermediate, interview.Beginner},
		{"middling", repeat(scored(6.5, 0.7), 5), interview.Intermediate, interview.Intermediate},
		{"too few samples", repeat(scored(9.5, 0.95), 2), interview.Beginner, interview.Beginner},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := p.AssessDifficulty(tc.window, tc.current)
			assert.Equal(t, tc.want, res.Recommended)
			assert.Equal(t, tc.want != tc.current, res.AdjustmentNeeded)
			assert.True(t, res.Recommended.Valid())
			assert.GreaterOrEqual(t, res.Confidence, 0.0)
			assert.LessOrEqual(t, res.Confidence, 1.0)
		})
	}
}

func TestAssessDifficultyFrequentClarification(t *testing.T) {
	p := New(DefaultConfig())
	window := repeat(scored(6, 0.7), 4)
	window[1].NextSteps.NeedsClarification = true
	window[3].NextSteps.NeedsClarification = true

	res := p.AssessDifficulty(window, interview.Intermediate)
	assert.Equal(t, interview.Beginner, res.Recommended)
	assert.Contains(t, res.Reason, "clarification")
}

func TestTrend(t *testing.T) {
	assert.Equal(t, interview.TrendImproving, trendOf([]interview.Evaluation{scored(4, 1), scored(5, 1), scored(7, 1), scored(8, 1)}))
	assert.Equal(t, interview.TrendDeclining, trendOf([]interview.Evaluation{scored(8, 1), scored(5, 1)}))
	assert.Equal(t, interview.TrendStable, trendOf([]interview.Evaluation{scored(6, 1)}))
}

func TestFeedbackStyle(t *testing.T) {
	assert.Equal(t, interview.StyleChallenging, FeedbackStyle(scored(8.5, 0.85), 5))
	assert.Equal(t, interview.StyleConstructive, FeedbackStyle(scored(6.5, 0.7), 5))
	assert.Equal(t, interview.StyleEncouraging, FeedbackStyle(scored(4, 0.3), 2))
	assert.Equal(t, interview.StyleSupportive, FeedbackStyle(scored(4, 0.3), 3))
}

func TestDecidePrefersClarificationOverFollowUp(t *testing.T) {
	p := New(DefaultConfig())
	ev := scored(6, 0.7)
	ev.NextSteps.NeedsClarification = true
	ev.NextSteps.NeedsDeeperDive = true

	d := p.Decide(State{QuestionsAsked: 2, TopicsCovered: 1, Difficulty: interview.Intermediate, Latest: &ev, Recent: []interview.Evaluation{ev}})
	assert.Equal(t, interview.ActionClarification, d.Action)
	assert.Contains(t, d.Alternatives, interview.ActionFollowUp)
	assert.Equal(t, "high", d.Context["priority"])
}

func TestDecideHintWhenStuck(t *testing.T) {
	p := New(DefaultConfig())
	ev := scored(2, 0.8)

	d := p.Decide(State{QuestionsAsked: 1, TopicsCovered: 1, Difficulty: interview.Intermediate, Latest: &ev, Recent: []interview.Evaluation{ev}})
	assert.Equal(t, interview.ActionHint, d.Action)
	// low clarity also makes clarification plausible
	assert.Contains(t, d.Alternatives, interview.ActionClarification)
}

func TestDecideAdjustsDifficulty(t *testing.T) {
	p := New(DefaultConfig())
	recent := repeat(scored(9, 0.9), 3)

	d := p.Decide(State{QuestionsAsked: 3, TopicsCovered: 3, Difficulty: interview.Beginner, Latest: &recent[2], Recent: recent})
	assert.Equal(t, interview.ActionAdjustDiff, d.Action)
	assert.Equal(t, "intermediate", d.Context["recommended_difficulty"])
}

func TestDecideNoAdjustAtCeiling(t *testing.T) {
	p := New(DefaultConfig())
	recent := repeat(scored(9.5, 0.9), 5)

	d := p.Decide(State{QuestionsAsked: 5, TopicsCovered: 3, Difficulty: interview.Advanced, Latest: &recent[4], Recent: recent})
	assert.Equal(t, interview.ActionFollowUp, d.Action)
	assert.NotContains(t, d.Alternatives, interview.ActionAdjustDiff)
}

func TestDecideKeepsExploringUntilCoverage(t *testing.T) {
	p := New(DefaultConfig())
	ev := scored(6.5, 0.7)

	d := p.Decide(State{QuestionsAsked: 12, TopicsCovered: 2, Difficulty: interview.Intermediate, Latest: &ev, Recent: []interview.Evaluation{ev}})
	assert.Equal(t, interview.ActionTopicTransition, d.Action)
	assert.NotContains(t, d.Alternatives, interview.ActionSummary)
	assert.NotContains(t, d.Alternatives, interview.ActionCompletion)
}

func TestDecideWrapUpThenComplete(t *testing.T) {
	p := New(DefaultConfig())
	ev := scored(6.5, 0.7)
	st := State{QuestionsAsked: 9, TopicsCovered: 4, Difficulty: interview.Intermediate, Latest: &ev, Recent: []interview.Evaluation{ev}}

	d := p.Decide(st)
	assert.Equal(t, interview.ActionSummary, d.Action)

	st.SummaryGiven = true
	d = p.Decide(st)
	assert.Equal(t, interview.ActionCompletion, d.Action)
	assert.Contains(t, d.Alternatives, interview.ActionSummary)

	st.SummaryGiven = false
	st.Elapsed = 50 * time.Minute
	d = p.Decide(st)
	assert.Equal(t, interview.ActionCompletion, d.Action)
}

func TestDecideWithoutThresholdsNeverSummarizes(t *testing.T) {
	p := New(DefaultConfig())
	ev := scored(6.5, 0.7)

	d := p.Decide(State{QuestionsAsked: 8, TopicsCovered: 5, Difficulty: interview.Intermediate, Latest: &ev, Recent: []interview.Evaluation{ev}})
	assert.Equal(t, interview.ActionFollowUp, d.Action)
	assert.Empty(t, d.Alternatives)
}

func TestDecideWithoutEvaluation(t *testing.T) {
	p := New(DefaultConfig())

	d := p.Decide(State{QuestionsAsked: 1, TopicsCovered: 1, Difficulty: interview.Beginner})
	require.Equal(t, interview.ActionFollowUp, d.Action)
	assert.InDelta(t, 0.6, d.Confidence, 1e-9)
}

func TestNextPhaseIsMonotone(t *testing.T) {
	p := New(DefaultConfig())

	assert.Equal(t, interview.PhaseOpening, p.NextPhase(interview.PhaseOpening, 1, 1))
	assert.Equal(t, interview.PhaseArchitecture, p.NextPhase(interview.PhaseOpening, 3, 1))
	assert.Equal(t, interview.PhaseDeepDive, p.NextPhase(interview.PhaseArchitecture, 6, 2))
	assert.Equal(t, interview.PhaseOptimization, p.NextPhase(interview.PhaseDeepDive, 9, 2))
	assert.Equal(t, interview.PhaseWrapUp, p.NextPhase(interview.PhaseOptimization, 9, 3))
	// never moves backwards
	assert.Equal(t, interview.PhaseDeepDive, p.NextPhase(interview.PhaseDeepDive, 1, 0))
}

func TestRecommendations(t *testing.T) {
	p := New(DefaultConfig())
	avg := interview.EvaluationScores{Clarity: 5, TechnicalDepth: 7, ScalabilityAwareness: 5.5, TradeOffs: 8}

	recs := p.Recommendations(avg, 3, 9, 2)
	assert.Len(t, recs, 4)
	assert.Contains(t, recs, "Consider moving to wrap-up phase")
	assert.Contains(t, recs, "Explore more topic areas")

	assert.Empty(t, p.Recommendations(interview.EvaluationScores{}, 0, 2, 3))
	assert.True(t, ReadyForNextPhase(4))
	assert.False(t, ReadyForNextPhase(3))
}
