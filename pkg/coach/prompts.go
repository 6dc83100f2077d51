package coach

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/interview"
)

const jsonOnly = "Reply with a single JSON object matching the schema below and nothing else."

const interviewerIdentity = `You are a senior system design interviewer at a large technology company.
You run realistic, fair interviews and you adapt to the candidate's level.`

var levelExpectations = map[interview.Difficulty]string{
	interview.Beginner: `The candidate is a BEGINNER. Favour conceptual understanding over implementation
detail, accept high-level designs, and reward a logical thought process.`,
	interview.Intermediate: `The candidate is INTERMEDIATE. Expect common patterns, concrete scalability
reasoning, named technologies and discussion of more than one approach.`,
	interview.Advanced: `The candidate is ADVANCED. Expect production experience: consistency models,
partition tolerance, failure scenarios, monitoring and nuanced trade-offs.`,
}

func systemPrompt(role string, d interview.Difficulty) string {
	var sb strings.Builder
	sb.WriteString(interviewerIdentity)
	sb.WriteString("\n\n")
	sb.WriteString(role)
	if exp, ok := levelExpectations[d]; ok {
		sb.WriteString("\n\n")
		sb.WriteString(exp)
	}
	sb.WriteString("\n\n")
	sb.WriteString(jsonOnly)
	return sb.String()
}

const (
	roleQuestion   = "Your task is to ask the next interview question."
	roleEvaluation = "Your task is to grade one answer objectively on a 0-10 scale per dimension."
	roleFeedback   = "Your task is to turn an assessment into specific, constructive coaching feedback."
	roleDifficulty = "Your task is to decide whether the interview level should change."
	roleHint       = "Your task is to unblock a struggling candidate without giving the answer away."
	roleSummary    = "Your task is to summarise the candidate's interview performance."
)

const questionSchema = `{
  "question": "string",
  "question_type": "opening | follow_up | clarification | topic_transition | general",
  "topics_targeted": ["string"],
  "difficulty_level": "beginner | intermediate | advanced",
  "expected_concepts": ["string"],
  "guidance_hints": ["string"]
}`

const evaluationSchema = `{
  "scores": {"clarity": 0-10, "technical_depth": 0-10, "scalability_awareness": 0-10, "trade_offs_understanding": 0-10},
  "analysis": {"strengths": ["string"], "weaknesses": ["string"], "missing_topics": ["string"], "technical_errors": ["string"]},
  "next_steps": {
    "needs_clarification": bool, "needs_deeper_dive": bool, "ready_for_next_topic": bool,
    "suggested_follow_up": "clarification | deeper_dive | next_topic | feedback",
    "specific_areas_to_explore": ["string"]
  },
  "confidence_level": 0-1
}`

const difficultySchema = `{
  "current_difficulty": "beginner | intermediate | advanced",
  "recommended_difficulty": "beginner | intermediate | advanced",
  "adjustment_reason": "string",
  "performance_trend": "improving | stable | declining",
  "confidence_in_recommendation": 0-1
}`

const hintSchema = `{
  "hint_type": "conceptual | technical | approach | example",
  "hint_content": "string",
  "reasoning": "string",
  "follow_up_questions": ["string"]
}`

const summarySchema = `{
  "key_strengths": ["string"],
  "primary_growth_areas": ["string"],
  "recommended_next_steps": ["string"],
  "message": "string"
}`

var questionKindGuide = map[interview.QuestionKind]string{
	interview.KindOpening:         "Open the interview: ask for requirements and scope of the system.",
	interview.KindFollowUp:        "Dig deeper into what the candidate just said.",
	interview.KindClarification:   "Ask the candidate to clarify the unclear or ambiguous parts of the last answer.",
	interview.KindTopicTransition: "Move to an area of the design not yet covered.",
	interview.KindGeneral:         "Ask the next natural question for this stage of the interview.",
}

func questionPrompt(req QuestionRequest, catalog *interview.Catalog) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Interview\nTopic: %s\nLevel: %s\n", req.Topic, req.Difficulty)
	if req.Phase != "" {
		fmt.Fprintf(&sb, "Phase: %s\n", req.Phase)
		if catalog != nil {
			if g, ok := catalog.PhaseGuide(req.Phase); ok {
				fmt.Fprintf(&sb, "Phase goal: %s\n", g.Description)
			}
		}
	}
	if catalog != nil {
		if t, ok := catalog.Topic(req.Topic); ok && len(t.KeyAreas) > 0 {
			fmt.Fprintf(&sb, "Key areas for this system: %s\n", strings.Join(t.KeyAreas, ", "))
		}
	}
	if len(req.CoveredTopics) > 0 {
		fmt.Fprintf(&sb, "Already covered: %s\n", strings.Join(req.CoveredTopics, ", "))
	}

	writeHistory(&sb, req.History)

	if req.PreviousQuestion != "" || req.PreviousAnswer != "" {
		fmt.Fprintf(&sb, "\n## Last exchange\nQuestion: %s\nAnswer: %s\n", req.PreviousQuestion, req.PreviousAnswer)
	}
	if req.Evaluation != nil {
		fmt.Fprintf(&sb, "Average score: %.1f/10\n", req.Evaluation.Scores.Average())
		if len(req.Evaluation.Analysis.Weaknesses) > 0 {
			fmt.Fprintf(&sb, "Weaknesses: %s\n", strings.Join(req.Evaluation.Analysis.Weaknesses, "; "))
		}
	}
	if len(req.FocusAreas) > 0 {
		fmt.Fprintf(&sb, "Focus on: %s\n", strings.Join(req.FocusAreas, ", "))
	}

	kind := req.Kind
	if kind == "" {
		kind = interview.KindGeneral
	}
	fmt.Fprintf(&sb, "\n## Task\n%s\nUse question_type %q.\n\n## Schema\n%s\n", questionKindGuide[kind], kind, questionSchema)
	return sb.String()
}

func evaluationPrompt(req EvaluationRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Interview\nTopic: %s\nLevel: %s\n", req.Topic, req.Difficulty)
	writeHistory(&sb, req.History)
	fmt.Fprintf(&sb, "\n## Question\n%s\n\n## Answer\n%s\n", req.Question, req.Answer)
	sb.WriteString(`
## Task
Score clarity, technical depth, scalability awareness and trade-off understanding.
List concrete strengths and weaknesses from the answer, topics it missed and any
technical errors. Then say what should happen next and how confident you are.

## Schema
`)
	sb.WriteString(evaluationSchema)
	return sb.String()
}

func difficultyPrompt(req DifficultyRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Interview\nTopic: %s\nCurrent level: %s\nQuestions asked: %d\n", req.Topic, req.Current, req.QuestionCount)
	sb.WriteString("\n## Recent scores (oldest first)\n")
	for i, ev := range req.Recent {
		fmt.Fprintf(&sb, "%d. average %.1f, confidence %.2f, needs clarification %t\n", i+1, ev.Scores.Average(), ev.Confidence, ev.NextSteps.NeedsClarification)
	}
	if req.Baseline.Reason != "" {
		fmt.Fprintf(&sb, "\nRule-based assessment: %s -> %s (%s)\n", req.Baseline.Current, req.Baseline.Recommended, req.Baseline.Reason)
	}
	sb.WriteString(`
## Task
Recommend at most one level of change. Levels are beginner, intermediate and
advanced; never go beyond them.

## Schema
`)
	sb.WriteString(difficultySchema)
	return sb.String()
}

func hintPrompt(req HintRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Interview\nTopic: %s\nLevel: %s\n\n## Question\n%s\n\n## Answer so far\n%s\n", req.Topic, req.Difficulty, req.Question, req.Answer)
	if len(req.Struggles) > 0 {
		fmt.Fprintf(&sb, "\nThe candidate is weakest on: %s\n", strings.Join(req.Struggles, ", "))
	}
	if req.Evaluation != nil && len(req.Evaluation.Analysis.MissingTopics) > 0 {
		fmt.Fprintf(&sb, "Missing so far: %s\n", strings.Join(req.Evaluation.Analysis.MissingTopics, ", "))
	}
	sb.WriteString(`
## Task
Give one hint that points in the right direction. Pick the hint type that fits:
conceptual, technical, approach or example.

## Schema
`)
	sb.WriteString(hintSchema)
	return sb.String()
}

func summaryPrompt(req SummaryRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Interview\nTopic: %s\nLevel: %s\nQuestions asked: %d\nDuration: %s\n", req.Topic, req.Difficulty, req.QuestionsAsked, req.Duration.Round(time.Second))
	if len(req.CoveredTopics) > 0 {
		fmt.Fprintf(&sb, "Topics covered: %s\n", strings.Join(req.CoveredTopics, ", "))
	}
	if req.Evaluated > 0 {
		fmt.Fprintf(&sb, "\n## Average scores over %d answers\n%s\n", req.Evaluated, mustJSON(req.Averages.Dimensions()))
	}
	if req.Final {
		sb.WriteString("\nThis is the end of the interview. Close it warmly.\n")
	} else {
		sb.WriteString("\nThe interview is wrapping up; one or two questions remain.\n")
	}
	sb.WriteString("\n## Schema\n")
	sb.WriteString(summarySchema)
	return sb.String()
}

func writeHistory(sb *strings.Builder, history []Exchange) {
	if len(history) == 0 {
		return
	}
	sb.WriteString("\n## Conversation so far\n")
	for _, ex := range history {
		if ex.Question != "" {
			fmt.Fprintf(sb, "Q: %s\n", ex.Question)
		}
		if ex.Answer != "" {
			fmt.Fprintf(sb, "A: %s\n", ex.Answer)
		}
	}
}

func mustJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
