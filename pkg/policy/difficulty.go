package policy

import (
	"fmt"
	"math"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/interview"
)

const (
	increaseScore      = 8.0
	increaseConfidence = 0.8
	decreaseScore      = 4.0
	decreaseConfidence = 0.5
)

// AssessDifficulty classifies the window (oldest first) into increase,
// decrease or maintain. The recommendation never leaves the three levels.
func (p *Policy) AssessDifficulty(window []interview.Evaluation, current interview.Difficulty) interview.DifficultyResult {
	res := interview.DifficultyResult{
		Current:     current,
		Recommended: current,
		Trend:       trendOf(window),
	}
	if !current.Valid() {
		res.Current = interview.Intermediate
		res.Recommended = interview.Intermediate
	}

	n := len(window)
	if n < p.cfg.DifficultyMinSamples {
		res.Reason = fmt.Sprintf("only %d evaluated answers, keeping %s", n, res.Current)
		res.Confidence = 0.3
		return res
	}

	allHigh, allLow := true, true
	confSum := 0.0
	clarifications := 0
	for _, ev := range window {
		avg := ev.Scores.Average()
		if avg < increaseScore {
			allHigh = false
		}
		if avg > decreaseScore {
			allLow = false
		}
		confSum += ev.Confidence
		if ev.NextSteps.NeedsClarification {
			clarifications++
		}
	}
	meanConf := confSum / float64(n)
	certainty := math.Min(0.95, 0.5+0.1*float64(n))

	switch {
	case allHigh && meanConf >= increaseConfidence:
		res.Recommended = res.Current.Harder()
		res.Reason = fmt.Sprintf("last %d answers all averaged %.0f+ with confidence %.2f", n, increaseScore, meanConf)
		res.Confidence = certainty
	case allLow:
		res.Recommended = res.Current.Easier()
		res.Reason = fmt.Sprintf("last %d answers all averaged %.0f or below", n, decreaseScore)
		res.Confidence = certainty
	case meanConf < decreaseConfidence:
		res.Recommended = res.Current.Easier()
		res.Reason = fmt.Sprintf("evaluation confidence is low (%.2f)", meanConf)
		res.Confidence = certainty - 0.1
	case clarifications*2 >= n:
		res.Recommended = res.Current.Easier()
		res.Reason = fmt.Sprintf("clarification was needed in %d of the last %d answers", clarifications, n)
		res.Confidence = certainty - 0.1
	default:
		res.Reason = "performance matches the current level"
		res.Confidence = 0.7
		return res
	}

	res.AdjustmentNeeded = res.Recommended != res.Current
	if !res.AdjustmentNeeded {
		res.Reason += fmt.Sprintf(", already at %s", res.Current)
	}
	return res
}

// trendOf compares the mean of the older half of the window with the newer half.
func trendOf(window []interview.Evaluation) interview.Trend {
	if len(window) < 2 {
		return interview.TrendStable
	}
	mid := len(window) / 2
	older := meanAverage(window[:mid])
	newer := meanAverage(window[mid:])
	switch {
	case newer-older > 0.5:
		return interview.TrendImproving
	case older-newer > 0.5:
		return interview.TrendDeclining
	}
	return interview.TrendStable
}

func meanAverage(evals []interview.Evaluation) float64 {
	if len(evals) == 0 {
		return 0
	}
	total := 0.0
	for _, ev := range evals {
		total += ev.Scores.Average()
	}
	return total / float64(len(evals))
}

// FeedbackStyle chooses the register of feedback for an evaluated answer.
func FeedbackStyle(ev interview.Evaluation, questionCount int) interview.FeedbackStyle {
	avg := ev.Scores.Average()
	switch {
	case avg >= 8 && ev.Confidence >= 0.8:
		return interview.StyleChallenging
	case avg >= 6 && ev.Confidence >= 0.6:
		return interview.StyleConstructive
	case questionCount <= 2:
		return interview.StyleEncouraging
	default:
		return interview.StyleSupportive
	}
}
