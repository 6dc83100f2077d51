package interview

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDifficulty(t *testing.T) {
	d, err := ParseDifficulty(" Advanced ")
	require.NoError(t, err)
	assert.Equal(t, Advanced, d)

	_, err = ParseDifficulty("expert")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestDifficultyClampsAtBoundaries(t *testing.T) {
	assert.Equal(t, Advanced, Advanced.Harder())
	assert.Equal(t, Beginner, Beginner.Easier())
	assert.Equal(t, Intermediate, Beginner.Harder())
	assert.Equal(t, Intermediate, Advanced.Easier())
}

func TestParseQuestionKind(t *testing.T) {
	k, err := ParseQuestionKind("")
	require.NoError(t, err)
	assert.Equal(t, KindGeneral, k)

	k, err = ParseQuestionKind("topic_transition")
	require.NoError(t, err)
	assert.Equal(t, KindTopicTransition, k)

	_, err = ParseQuestionKind("riddle")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestActionPriorityTiers(t *testing.T) {
	high := []Action{ActionClarification, ActionAdjustDiff, ActionHint}
	medium := []Action{ActionFollowUp, ActionTopicTransition, ActionFeedback}
	low := []Action{ActionSummary, ActionCompletion}

	for _, a := range high {
		assert.Equal(t, PriorityHigh, a.Priority(), a)
	}
	for _, a := range medium {
		assert.Equal(t, PriorityMedium, a.Priority(), a)
	}
	for _, a := range low {
		assert.Equal(t, PriorityLow, a.Priority(), a)
	}
}

func TestAverageIsIdempotent(t *testing.T) {
	s := EvaluationScores{Clarity: 7, TechnicalDepth: 6, ScalabilityAwareness: 8, TradeOffs: 5}
	first := s.Average()
	assert.InDelta(t, 6.5, first, 1e-9)
	assert.Equal(t, first, s.Average())
}

func TestValidateResultRejectsOutOfRangeScores(t *testing.T) {
	ev := Evaluation{
		Scores:      EvaluationScores{Clarity: 11, TechnicalDepth: 5, ScalabilityAwareness: 5, TradeOffs: 5},
		Confidence:  0.5,
		EvaluatedAt: time.Now(),
	}
	err := ValidateResult(ev)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParse)
	assert.Contains(t, err.Error(), "Clarity")

	ev.Scores.Clarity = 9
	assert.NoError(t, ValidateResult(ev))
}

func TestValidateResultRequiresQuestionText(t *testing.T) {
	assert.ErrorIs(t, ValidateResult(QuestionResult{Kind: KindFollowUp}), ErrParse)
	assert.NoError(t, ValidateResult(QuestionResult{Question: "How would you shard?", Kind: KindFollowUp}))
}

func TestValidateCustomTags(t *testing.T) {
	type req struct {
		ID         string `validate:"omitempty,session_id"`
		Difficulty string `validate:"required,difficulty"`
	}
	assert.NoError(t, Validate(req{Difficulty: "beginner"}))
	assert.NoError(t, Validate(req{ID: "6f1c1f84-8a55-4b8b-9d0e-0d4b7f8cf0a1", Difficulty: "Advanced"}))
	assert.ErrorIs(t, Validate(req{ID: "nope", Difficulty: "beginner"}), ErrValidation)
	assert.ErrorIs(t, Validate(req{Difficulty: "expert"}), ErrValidation)
}

func TestIsAgentFailure(t *testing.T) {
	assert.True(t, IsAgentFailure(errors.Join(errors.New("timeout"), ErrAgentUnavailable)))
	assert.True(t, IsAgentFailure(ErrParse))
	assert.False(t, IsAgentFailure(ErrNotFound))
}

func TestFeedbackText(t *testing.T) {
	f := FeedbackResult{Summary: "Solid answer.", Guidance: "  ", Encouragement: "Keep going."}
	assert.Equal(t, "Solid answer.\n\nKeep going.", f.Text())
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	assert.Equal(t, []string{"chat_system", "ride_sharing", "social_media_feed", "url_shortener"}, c.TopicKeys())

	q, ok := c.OpeningQuestion("Chat System", Beginner)
	require.True(t, ok)
	assert.Contains(t, q, "WhatsApp")

	_, ok = c.OpeningQuestion("search_engine", Beginner)
	assert.False(t, ok)

	for _, p := range phaseOrder {
		g, ok := c.PhaseGuide(p)
		require.True(t, ok, p)
		assert.NotEmpty(t, g.Objectives, p)
	}
}

func TestCatalogStandardsFallback(t *testing.T) {
	c := DefaultCatalog()

	chat := c.StandardsFor("chat_system")
	assert.Contains(t, chat.CoreComponents, "Message Service")

	general := c.StandardsFor("search_engine")
	assert.Contains(t, general.PreferredPatterns, "CQRS for read/write separation")
	assert.Contains(t, general.Terms(), "PostgreSQL, MongoDB, Redis")

	// ride_sharing has no standards of its own
	assert.Equal(t, general.PreferredPatterns, c.StandardsFor("ride_sharing").PreferredPatterns)
}

func TestParseCatalogRejectsUnknownDifficulty(t *testing.T) {
	doc := []byte(`
topics:
  x:
    opening:
      expert: "?"
standards:
  general: {}
`)
	_, err := ParseCatalog(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expert")

	_, err = ParseCatalog([]byte("topics: {}\n"))
	assert.Error(t, err)
}
