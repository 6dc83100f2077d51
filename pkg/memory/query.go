package memory

import (
	"strings"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/interview"
)

const (
	recentInteractionLimit = 5
	defaultTrendWindow     = 10
	defaultSearchLimit     = 5
)

func (s *Store) SessionContext(id string) (SessionContext, error) {
	sess, err := s.get(id)
	if err != nil {
		return SessionContext{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	recent := tail(sess.interactions, recentInteractionLimit)
	briefs := make([]InteractionBrief, 0, len(recent))
	for _, l := range recent {
		briefs = append(briefs, InteractionBrief{
			Question:  l.Question,
			Answer:    l.Answer,
			Kind:      l.Kind,
			Timestamp: l.Timestamp,
		})
	}

	return SessionContext{
		SessionID:          sess.id,
		Topic:              sess.topic,
		Difficulty:         sess.difficulty,
		StartTime:          sess.startTime,
		CurrentQuestion:    sess.currentQuestion,
		CoveredTopics:      cloneStrings(sess.covered),
		InteractionCount:   len(sess.interactions),
		RecentInteractions: briefs,
		Performance:        performanceSummary(sess.samples),
		Flow:               conversationFlow(sess.interactions),
		Summary:            cloneSummary(sess.summary),
	}, nil
}

func performanceSummary(samples []PerformanceSample) PerformanceSummary {
	out := PerformanceSummary{TotalEvaluations: len(samples), Trend: "initial"}
	if len(samples) == 0 {
		return out
	}
	var sum interview.EvaluationScores
	for _, p := range samples {
		sum.Clarity += p.Evaluation.Scores.Clarity
		sum.TechnicalDepth += p.Evaluation.Scores.TechnicalDepth
		sum.ScalabilityAwareness += p.Evaluation.Scores.ScalabilityAwareness
		sum.TradeOffs += p.Evaluation.Scores.TradeOffs
	}
	n := float64(len(samples))
	out.Averages = interview.EvaluationScores{
		Clarity:              sum.Clarity / n,
		TechnicalDepth:       sum.TechnicalDepth / n,
		ScalabilityAwareness: sum.ScalabilityAwareness / n,
		TradeOffs:            sum.TradeOffs / n,
	}
	if len(samples) >= 2 {
		out.Trend = "improving"
	}
	return out
}

func conversationFlow(logs []InteractionLog) ConversationFlow {
	if len(logs) == 0 {
		return ConversationFlow{Quality: "no_data"}
	}
	flow := ConversationFlow{
		TotalInteractions: len(logs),
		KindsUsed:         make(map[interview.QuestionKind]int),
	}
	kinds := make([]interview.QuestionKind, 0, len(logs))
	for _, l := range logs {
		if l.Kind == "" {
			continue
		}
		kinds = append(kinds, l.Kind)
		flow.KindsUsed[l.Kind]++
	}
	flow.Diversity = len(flow.KindsUsed)
	flow.Progression = append([]interview.QuestionKind(nil), tail(kinds, recentInteractionLimit)...)
	return flow
}

// ConversationHistory returns up to limit of the most recent interactions in
// chronological order. limit <= 0 returns everything.
func (s *Store) ConversationHistory(id string, limit int, includeEvaluations bool) ([]InteractionLog, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	logs := sess.interactions
	if limit > 0 {
		logs = tail(logs, limit)
	}
	out := make([]InteractionLog, 0, len(logs))
	for _, l := range logs {
		out = append(out, cloneLog(l, includeEvaluations))
	}
	return out, nil
}

// PerformanceTrends returns the newest window samples, oldest first.
func (s *Store) PerformanceTrends(id string, window int) ([]PerformanceSample, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if window <= 0 {
		window = defaultTrendWindow
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	recent := tail(sess.samples, window)
	out := make([]PerformanceSample, 0, len(recent))
	for _, p := range recent {
		cp := p
		cp.Evaluation = *cloneEvaluation(&p.Evaluation)
		out = append(out, cp)
	}
	return out, nil
}

// TrendSnapshots returns the bounded per-evaluation average history.
func (s *Store) TrendSnapshots(id string) ([]TrendSnapshot, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return append([]TrendSnapshot(nil), sess.trends...), nil
}

// SearchSimilarInteractions matches queryTopic as a case-insensitive substring
// of any topic label. An empty kind matches every kind.
func (s *Store) SearchSimilarInteractions(id, queryTopic string, kind interview.QuestionKind, limit int) ([]InteractionLog, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	q := strings.ToLower(queryTopic)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	var matches []InteractionLog
	for _, l := range sess.interactions {
		if kind != "" && l.Kind != kind {
			continue
		}
		for _, t := range l.Topics {
			if strings.Contains(strings.ToLower(t), q) {
				matches = append(matches, cloneLog(l, false))
				break
			}
		}
	}
	return tail(matches, limit), nil
}

func (s *Store) TopicCoverage(id string) (TopicCoverage, error) {
	sess, err := s.get(id)
	if err != nil {
		return TopicCoverage{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	freq := make(map[string]int)
	var order []string
	mentions := 0
	for _, l := range sess.interactions {
		for _, t := range l.Topics {
			if _, ok := freq[t]; !ok {
				order = append(order, t)
			}
			freq[t]++
			mentions++
		}
	}

	most := ""
	best := 0
	for _, t := range order {
		if freq[t] > best {
			most, best = t, freq[t]
		}
	}

	denom := len(sess.interactions)
	if denom < 1 {
		denom = 1
	}
	return TopicCoverage{
		TotalTopicsMentioned: len(freq),
		CoveredTopics:        cloneStrings(sess.covered),
		TopicFrequency:       freq,
		MostDiscussed:        most,
		CoverageDepth:        float64(mentions) / float64(denom),
	}, nil
}

func tail[T any](items []T, n int) []T {
	if n <= 0 || len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}
