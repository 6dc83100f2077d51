package coach

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/interview"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/logger"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/metrics"
)

// jsonCaller is the single model capability the pipeline needs.
type jsonCaller interface {
	callJSON(ctx context.Context, op string, temperature float64, system, user string, out any) error
}

const (
	StageAnalyze    = "analyze"
	StageReport     = "report"
	StageCompare    = "compare"
	StageSynthesize = "synthesize"
)

// answerBreakdown is what the candidate actually proposed.
type answerBreakdown struct {
	Components     []string `json:"components"`
	Patterns       []string `json:"patterns"`
	Technologies   []string `json:"technologies"`
	Scalability    []string `json:"scalability_considerations"`
	TradeOffs      []string `json:"trade_offs"`
	Missing        []string `json:"missing_elements"`
	Strengths      []string `json:"strengths"`
	ProblemSolving string   `json:"problem_solving_method"`
}

type performanceReport struct {
	Dimensions   map[string]float64 `json:"dimensions" validate:"dive,gte=0,lte=10"`
	Strengths    []string           `json:"strengths"`
	Improvements []string           `json:"improvements"`
	Summary      string             `json:"summary" validate:"required"`
}

type architectureComparison struct {
	MissingComponents []string `json:"missing_components"`
	Gaps              []string `json:"gaps"`
	Recommendations   []string `json:"recommendations"`
	ComplianceScore   float64  `json:"compliance_score" validate:"gte=0,lte=100"`
}

// feedbackState is threaded through every stage; each stage reads what the
// earlier ones produced and fills its own field.
type feedbackState struct {
	req        FeedbackRequest
	standards  interview.Standards
	analysis   answerBreakdown
	report     performanceReport
	comparison architectureComparison
	result     interview.FeedbackResult
	degraded   []string
}

type feedbackStage struct {
	name     string
	run      func(ctx context.Context, st *feedbackState) error
	fallback func(st *feedbackState)
}

// FeedbackPipeline turns one evaluated answer into coaching feedback in four
// ordered stages. A failing stage is replaced by its local fallback and the
// pipeline carries on.
type FeedbackPipeline struct {
	llm     jsonCaller
	temp    float64
	catalog *interview.Catalog
	stages  []feedbackStage
}

func NewFeedbackPipeline(llm jsonCaller, catalog *interview.Catalog) *FeedbackPipeline {
	fp := &FeedbackPipeline{llm: llm, catalog: catalog, temp: 0.6}
	if p, ok := llm.(*LLMPort); ok && p.cfg.Temperatures.Feedback > 0 {
		fp.temp = p.cfg.Temperatures.Feedback
	}
	fp.stages = []feedbackStage{
		{name: StageAnalyze, run: fp.analyze, fallback: analyzeFallback},
		{name: StageReport, run: fp.buildReport, fallback: reportFallback},
		{name: StageCompare, run: fp.compare, fallback: compareFallback},
		{name: StageSynthesize, run: fp.synthesize, fallback: synthesizeFallback},
	}
	return fp
}

// Run only fails when ctx is done.
func (fp *FeedbackPipeline) Run(ctx context.Context, req FeedbackRequest) (interview.FeedbackResult, error) {
	st := &feedbackState{req: req}
	if fp.catalog != nil {
		st.standards = fp.catalog.StandardsFor(req.Topic)
	}

	for _, stage := range fp.stages {
		if err := ctx.Err(); err != nil {
			return interview.FeedbackResult{}, fmt.Errorf("%w: feedback %s: %w", interview.ErrAgentUnavailable, stage.name, err)
		}
		if err := stage.run(ctx, st); err != nil {
			logger.WarnCF("coach", "Feedback stage degraded", map[string]interface{}{
				"stage": stage.name,
				"error": err.Error(),
			})
			metrics.FallbacksTotal.WithLabelValues("feedback_" + stage.name).Inc()
			stage.fallback(st)
			st.degraded = append(st.degraded, stage.name)
		}
	}

	st.result.Style = req.Style
	if len(st.degraded) > 0 {
		st.result.DegradedStages = append([]string(nil), st.degraded...)
	}
	return st.result, nil
}

func (fp *FeedbackPipeline) analyze(ctx context.Context, st *feedbackState) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Interview\nTopic: %s\nLevel: %s\n\n## Question\n%s\n\n## Answer\n%s\n", st.req.Topic, st.req.Difficulty, st.req.Question, st.req.Answer)
	fmt.Fprintf(&sb, "\n## Evaluation\n%s\n", mustJSON(st.req.Evaluation))
	sb.WriteString(`
## Task
Break the answer down: components, design patterns, technologies, scalability
considerations, trade-offs discussed, missing elements, strengths and the
problem-solving method. Quote the answer where possible.

## Schema
{"components": [], "patterns": [], "technologies": [], "scalability_considerations": [],
 "trade_offs": [], "missing_elements": [], "strengths": [], "problem_solving_method": "string"}`)

	var out answerBreakdown
	if err := fp.llm.callJSON(ctx, "feedback_analyze", fp.temp, systemPrompt(roleFeedback, st.req.Difficulty), sb.String(), &out); err != nil {
		return err
	}
	st.analysis = out
	return nil
}

func (fp *FeedbackPipeline) buildReport(ctx context.Context, st *feedbackState) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Interview\nTopic: %s\nLevel: %s\n", st.req.Topic, st.req.Difficulty)
	fmt.Fprintf(&sb, "\n## Answer breakdown\n%s\n\n## Scores\n%s\n", mustJSON(st.analysis), mustJSON(st.req.Evaluation.Scores.Dimensions()))
	sb.WriteString(`
## Task
Rate technical understanding, problem solving, communication, architecture design
and trade-off analysis from 0 to 10, with the strongest points, the improvements
that matter most, and a two sentence summary.

## Schema
{"dimensions": {"technical_understanding": 0-10, "problem_solving": 0-10, "communication": 0-10,
 "architecture_design": 0-10, "trade_off_analysis": 0-10},
 "strengths": [], "improvements": [], "summary": "string"}`)

	var out performanceReport
	if err := fp.llm.callJSON(ctx, "feedback_report", fp.temp, systemPrompt(roleFeedback, st.req.Difficulty), sb.String(), &out); err != nil {
		return err
	}
	if err := interview.ValidateResult(out); err != nil {
		return err
	}
	st.report = out
	return nil
}

func (fp *FeedbackPipeline) compare(ctx context.Context, st *feedbackState) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Interview\nTopic: %s\nLevel: %s\n", st.req.Topic, st.req.Difficulty)
	fmt.Fprintf(&sb, "\n## Candidate's approach\n%s\n\n## Organisational standards\n%s\n", mustJSON(st.analysis), mustJSON(st.standards))
	sb.WriteString(`
## Task
Compare the candidate's architecture with the standards: missing components,
design gaps, concrete recommendations, and a compliance score from 0 to 100.

## Schema
{"missing_components": [], "gaps": [], "recommendations": [], "compliance_score": 0-100}`)

	var out architectureComparison
	if err := fp.llm.callJSON(ctx, "feedback_compare", fp.temp, systemPrompt(roleFeedback, st.req.Difficulty), sb.String(), &out); err != nil {
		return err
	}
	if err := interview.ValidateResult(out); err != nil {
		return err
	}
	st.comparison = out
	return nil
}

func (fp *FeedbackPipeline) synthesize(ctx context.Context, st *feedbackState) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Interview\nTopic: %s\nLevel: %s\nQuestions so far: %d\nFeedback style: %s\n", st.req.Topic, st.req.Difficulty, st.req.QuestionCount, st.req.Style)
	fmt.Fprintf(&sb, "\n## Answer breakdown\n%s\n\n## Performance report\n%s\n\n## Architecture comparison\n%s\n",
		mustJSON(st.analysis), mustJSON(st.report), mustJSON(st.comparison))
	sb.WriteString(`
## Task
Write the feedback the candidate will read, in the requested style: a short
executive summary, recognition of what went well, one insight, concrete
guidance for the next answer and a line of encouragement.

## Schema
{"executive_summary": "string", "recognition": "string", "insight": "string", "guidance": "string",
 "encouragement": "string", "key_strengths": [], "improvement_areas": [], "compliance_score": 0-100}`)

	var out interview.FeedbackResult
	if err := fp.llm.callJSON(ctx, "feedback_synthesize", fp.temp, systemPrompt(roleFeedback, st.req.Difficulty), sb.String(), &out); err != nil {
		return err
	}
	if out.ComplianceScore == 0 {
		out.ComplianceScore = st.comparison.ComplianceScore
	}
	out.KeyStrengths = nonNil(out.KeyStrengths)
	out.ImprovementAreas = nonNil(out.ImprovementAreas)
	out.Fallback = false
	if err := interview.ValidateResult(out); err != nil {
		return err
	}
	st.result = out
	return nil
}

func analyzeFallback(st *feedbackState) {
	a := st.req.Evaluation.Analysis
	st.analysis = answerBreakdown{
		Strengths: nonNil(append([]string(nil), a.Strengths...)),
		Missing:   nonNil(append(append([]string(nil), a.MissingTopics...), a.Weaknesses...)),
	}
}

var reportDimensions = []struct {
	key   string
	label string
	get   func(interview.EvaluationScores) float64
}{
	{"communication", "clear communication", func(s interview.EvaluationScores) float64 { return s.Clarity }},
	{"technical_understanding", "technical depth", func(s interview.EvaluationScores) float64 { return s.TechnicalDepth }},
	{"architecture_design", "scalability thinking", func(s interview.EvaluationScores) float64 { return s.ScalabilityAwareness }},
	{"trade_off_analysis", "trade-off analysis", func(s interview.EvaluationScores) float64 { return s.TradeOffs }},
}

func reportFallback(st *feedbackState) {
	scores := st.req.Evaluation.Scores
	r := performanceReport{
		Dimensions:   make(map[string]float64, len(reportDimensions)),
		Strengths:    []string{},
		Improvements: []string{},
		Summary:      fmt.Sprintf("Average score %.1f out of 10.", scores.Average()),
	}
	for _, d := range reportDimensions {
		v := d.get(scores)
		r.Dimensions[d.key] = v
		switch {
		case v >= 7:
			r.Strengths = append(r.Strengths, d.label)
		case v < 6:
			r.Improvements = append(r.Improvements, d.label)
		}
	}
	st.report = r
}

// compareFallback scores compliance by keyword overlap between the answer and
// the standards for the topic.
func compareFallback(st *feedbackState) {
	answer := strings.ToLower(st.req.Answer)
	terms := st.standards.Terms()
	matched := 0
	for _, t := range terms {
		if mentions(answer, t) {
			matched++
		}
	}
	cmp := architectureComparison{
		MissingComponents: []string{},
		Gaps:              []string{},
		Recommendations:   []string{},
	}
	if len(terms) > 0 {
		cmp.ComplianceScore = math.Round(float64(matched) / float64(len(terms)) * 100)
	}
	for _, c := range st.standards.CoreComponents {
		if !mentions(answer, c) {
			cmp.MissingComponents = append(cmp.MissingComponents, c)
		}
	}
	for _, p := range st.standards.ScalabilityPatterns {
		if !mentions(answer, p) {
			cmp.Recommendations = append(cmp.Recommendations, p)
		}
	}
	st.comparison = cmp
}

func synthesizeFallback(st *feedbackState) {
	res := FallbackFeedback(st.req.Style)
	res.KeyStrengths = nonNil(append([]string(nil), st.report.Strengths...))
	res.ImprovementAreas = nonNil(append([]string(nil), st.report.Improvements...))
	res.ComplianceScore = st.comparison.ComplianceScore
	st.result = res
}

var stopWords = map[string]bool{
	"with": true, "over": true, "across": true, "from": true, "that": true, "into": true,
	"data": true, "layers": true, "strategies": true, "mechanisms": true, "planning": true,
	"minimum": true, "multiple": true, "instances": true, "operations": true,
}

// mentions reports whether more than half of the significant words in term
// appear in text, comparing five-letter stems so that "balancing" matches
// "balancer".
func mentions(text, term string) bool {
	words := strings.FieldsFunc(strings.ToLower(term), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	significant, hits := 0, 0
	for _, w := range words {
		if len(w) < 4 || stopWords[w] {
			continue
		}
		significant++
		stem := w
		if len(stem) > 5 {
			stem = stem[:5]
		}
		if strings.Contains(text, stem) {
			hits++
		}
	}
	if significant == 0 {
		return false
	}
	return hits*2 > significant
}
