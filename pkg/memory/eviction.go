package memory

import (
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/interview"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/logger"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/metrics"
)

// enforceBound keeps the newest max/2 interactions once the window overflows
// and folds the dropped prefix into the session summary. Caller holds sess.mu.
func (s *Store) enforceBound(sess *session) {
	limit := s.cfg.MaxInteractionsPerSession
	if len(sess.interactions) <= limit {
		return
	}
	keep := limit / 2
	cut := len(sess.interactions) - keep
	dropped := sess.interactions[:cut]

	sess.summary = mergeSummary(sess.summary, summarize(dropped))
	sess.interactions = append([]InteractionLog(nil), sess.interactions[cut:]...)
	metrics.EvictionsTotal.Inc()

	logger.InfoCF("memory", "Evicted old interactions", map[string]interface{}{
		"session_id": sess.id,
		"kept":       keep,
		"summarized": len(dropped),
		"rounds":     sess.summary.EvictionRounds,
	})
}

func summarize(logs []InteractionLog) ContextSummary {
	sum := ContextSummary{
		SummarizedInteractions: len(logs),
		EvictionRounds:         1,
	}
	if len(logs) == 0 {
		return sum
	}
	sum.TimePeriod = TimePeriod{Start: logs[0].Timestamp, End: logs[len(logs)-1].Timestamp}

	seenTopic := make(map[string]struct{})
	seenKind := make(map[interview.QuestionKind]struct{})
	for _, l := range logs {
		for _, t := range l.Topics {
			if _, ok := seenTopic[t]; !ok {
				seenTopic[t] = struct{}{}
				sum.TopicsDiscussed = append(sum.TopicsDiscussed, t)
			}
		}
		if l.Kind != "" {
			if _, ok := seenKind[l.Kind]; !ok {
				seenKind[l.Kind] = struct{}{}
				sum.QuestionKinds = append(sum.QuestionKinds, l.Kind)
			}
		}
		if l.Evaluation != nil {
			sum.EvaluationCount++
		}
	}
	return sum
}

// mergeSummary folds a new eviction round into an existing summary.
func mergeSummary(prev *ContextSummary, next ContextSummary) *ContextSummary {
	if prev == nil {
		return &next
	}
	out := *prev
	out.SummarizedInteractions += next.SummarizedInteractions
	out.EvaluationCount += next.EvaluationCount
	out.EvictionRounds += next.EvictionRounds

	if out.TimePeriod.Start.IsZero() || (!next.TimePeriod.Start.IsZero() && next.TimePeriod.Start.Before(out.TimePeriod.Start)) {
		out.TimePeriod.Start = next.TimePeriod.Start
	}
	if next.TimePeriod.End.After(out.TimePeriod.End) {
		out.TimePeriod.End = next.TimePeriod.End
	}

	out.TopicsDiscussed = unionStrings(prev.TopicsDiscussed, next.TopicsDiscussed)
	kinds := append([]interview.QuestionKind(nil), prev.QuestionKinds...)
	for _, k := range next.QuestionKinds {
		found := false
		for _, have := range kinds {
			if have == k {
				found = true
				break
			}
		}
		if !found {
			kinds = append(kinds, k)
		}
	}
	out.QuestionKinds = kinds
	return &out
}

func unionStrings(a, b []string) []string {
	out := append([]string(nil), a...)
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, s := range a {
		seen[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func cloneSummary(in *ContextSummary) *ContextSummary {
	if in == nil {
		return nil
	}
	cp := *in
	cp.TopicsDiscussed = cloneStrings(in.TopicsDiscussed)
	cp.QuestionKinds = append([]interview.QuestionKind(nil), in.QuestionKinds...)
	return &cp
}
