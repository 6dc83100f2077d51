package agent

import (
	"fmt"
	"strings"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/coach"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/interview"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/memory"
)

// exchanges turns answered log entries into agent history.
func exchanges(logs []memory.InteractionLog) []coach.Exchange {
	out := make([]coach.Exchange, 0, len(logs))
	for _, l := range logs {
		if l.Answer == "" {
			continue
		}
		out = append(out, coach.Exchange{Question: l.Question, Answer: l.Answer, Kind: l.Kind})
	}
	return out
}

// atLevel returns the evaluations of the newest run of samples taken at
// level, oldest first. Samples without a recorded level count as matching.
func atLevel(samples []memory.PerformanceSample, level interview.Difficulty) []interview.Evaluation {
	start := len(samples)
	for start > 0 {
		d := samples[start-1].Difficulty
		if d != "" && d != level {
			break
		}
		start--
	}
	out := make([]interview.Evaluation, 0, len(samples)-start)
	for _, s := range samples[start:] {
		out = append(out, s.Evaluation)
	}
	return out
}

// answeredTopics is what an evaluated answer covered: the question's targets
// minus the topics the evaluator found missing.
func answeredTopics(targets []string, ev interview.Evaluation) []string {
	missing := make(map[string]struct{}, len(ev.Analysis.MissingTopics))
	for _, m := range ev.Analysis.MissingTopics {
		missing[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		if _, ok := missing[strings.ToLower(strings.TrimSpace(t))]; ok {
			continue
		}
		out = append(out, t)
	}
	return out
}

func decisionContext(d interview.ActionDecision, phase interview.Phase, degraded bool) map[string]any {
	alts := make([]string, len(d.Alternatives))
	for i, a := range d.Alternatives {
		alts[i] = string(a)
	}
	ctx := map[string]any{
		"action":       string(d.Action),
		"reason":       d.Reason,
		"confidence":   d.Confidence,
		"alternatives": alts,
		"phase":        string(phase),
	}
	if degraded {
		ctx["degraded"] = true
	}
	return ctx
}

// focusAreas prefers what the evaluator wants explored, then what was missing.
func focusAreas(ev interview.Evaluation) []string {
	if len(ev.NextSteps.SpecificAreasToExplore) > 0 {
		return ev.NextSteps.SpecificAreasToExplore
	}
	return ev.Analysis.MissingTopics
}

var dimensionLabels = []struct {
	name string
	get  func(interview.EvaluationScores) float64
}{
	{"clarity", func(s interview.EvaluationScores) float64 { return s.Clarity }},
	{"technical depth", func(s interview.EvaluationScores) float64 { return s.TechnicalDepth }},
	{"scalability", func(s interview.EvaluationScores) float64 { return s.ScalabilityAwareness }},
	{"trade-offs", func(s interview.EvaluationScores) float64 { return s.TradeOffs }},
}

// struggles lists the dimensions scored below floor.
func struggles(ev interview.Evaluation, floor float64) []string {
	var out []string
	for _, d := range dimensionLabels {
		if d.get(ev.Scores) < floor {
			out = append(out, d.name)
		}
	}
	return out
}

func hintMessage(h interview.HintResult) string {
	var sb strings.Builder
	sb.WriteString("Hint: ")
	sb.WriteString(h.Content)
	if len(h.FollowUpQuestions) > 0 {
		sb.WriteString("\n\nThings to think about:")
		for _, q := range h.FollowUpQuestions {
			sb.WriteString("\n- ")
			sb.WriteString(q)
		}
	}
	return sb.String()
}

func adjustMessage(from, to interview.Difficulty, reason string) string {
	var msg string
	switch {
	case to.Rank() > from.Rank():
		msg = fmt.Sprintf("You're doing well, so let's raise the bar to %s.", to)
	case to.Rank() < from.Rank():
		msg = fmt.Sprintf("Let's step back to %s and build up from there.", to)
	default:
		msg = fmt.Sprintf("We'll stay at %s for now.", to)
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		msg += " (" + reason + ")"
	}
	return msg
}

func summaryMessage(s interview.SessionSummary, final bool) string {
	var sb strings.Builder
	sb.WriteString(s.Message)
	writeList := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		sb.WriteString("\n\n")
		sb.WriteString(title)
		for _, it := range items {
			sb.WriteString("\n- ")
			sb.WriteString(it)
		}
	}
	writeList("Strengths:", s.KeyStrengths)
	writeList("Areas to grow:", s.GrowthAreas)
	writeList("Next steps:", s.NextSteps)
	if final {
		sb.WriteString("\n\nThat concludes the interview. Thanks for your time!")
	} else {
		sb.WriteString("\n\nWhenever you're ready, continue with the current question or add anything you'd like to revisit.")
	}
	return sb.String()
}

// foldAverages adds ev to the session averages that predate this turn.
func foldAverages(perf memory.PerformanceSummary, ev interview.Evaluation) (interview.EvaluationScores, int) {
	n := float64(perf.TotalEvaluations)
	fold := func(avg, v float64) float64 { return (avg*n + v) / (n + 1) }
	a := perf.Averages
	return interview.EvaluationScores{
		Clarity:              fold(a.Clarity, ev.Scores.Clarity),
		TechnicalDepth:       fold(a.TechnicalDepth, ev.Scores.TechnicalDepth),
		ScalabilityAwareness: fold(a.ScalabilityAwareness, ev.Scores.ScalabilityAwareness),
		TradeOffs:            fold(a.TradeOffs, ev.Scores.TradeOffs),
	}, perf.TotalEvaluations + 1
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string(nil), a...), b...) {
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func tail[T any](items []T, n int) []T {
	if n <= 0 || len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}

func first(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return items[0]
}
