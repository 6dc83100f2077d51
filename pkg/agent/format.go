package agent

import (
	"fmt"
	"strings"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/memory"
)

func formatInsights(in Insights) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Topic: %s (%s)\n", strings.ReplaceAll(in.Memory.Topic, "_", " "), in.Memory.Difficulty)
	fmt.Fprintf(&sb, "Phase: %s, %d questions in %.0f minutes\n", in.Phase, in.QuestionsAsked, in.DurationMinutes)

	perf := in.Memory.Performance
	if perf.TotalEvaluations > 0 {
		a := perf.Averages
		fmt.Fprintf(&sb, "Scores over %d answers: clarity %.1f, depth %.1f, scalability %.1f, trade-offs %.1f\n",
			perf.TotalEvaluations, a.Clarity, a.TechnicalDepth, a.ScalabilityAwareness, a.TradeOffs)
	}
	if len(in.Coverage.CoveredTopics) > 0 {
		fmt.Fprintf(&sb, "Covered: %s\n", strings.Join(in.Coverage.CoveredTopics, ", "))
	}
	if len(in.Recommendations) > 0 {
		sb.WriteString("Recommendations:\n")
		for _, r := range in.Recommendations {
			sb.WriteString("- ")
			sb.WriteString(r)
			sb.WriteString("\n")
		}
	}
	if in.Completed {
		sb.WriteString("This interview is complete.\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatHistory(logs []memory.InteractionLog) string {
	var sb strings.Builder
	n := 0
	for _, l := range logs {
		if l.Answer == "" {
			continue
		}
		n++
		fmt.Fprintf(&sb, "Q: %s\nA: %s\n", l.Question, truncate(l.Answer, 300))
		if l.Evaluation != nil {
			fmt.Fprintf(&sb, "Score: %.1f/10\n", l.Evaluation.Scores.Average())
		}
		sb.WriteString("\n")
	}
	if n == 0 {
		return "No answers yet."
	}
	return strings.TrimRight(sb.String(), "\n")
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
