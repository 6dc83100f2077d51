package coach

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/config"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/interview"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/logger"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/metrics"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/providers"
)

type Config struct {
	Model        string
	MaxTokens    int
	Temperatures config.Temperatures
}

func ConfigFrom(cfg *config.Config) Config {
	d := cfg.Agents.Defaults
	return Config{
		Model:        d.Model,
		MaxTokens:    d.MaxTokens,
		Temperatures: d.Temperatures,
	}
}

// LLMPort implements Port with one JSON-mode completion per operation,
// except feedback which runs the staged FeedbackPipeline.
type LLMPort struct {
	provider providers.LLMProvider
	cfg      Config
	catalog  *interview.Catalog
	now      func() time.Time
	feedback *FeedbackPipeline
}

type Option func(*LLMPort)

func WithCatalog(c *interview.Catalog) Option {
	return func(p *LLMPort) { p.catalog = c }
}

func WithClock(now func() time.Time) Option {
	return func(p *LLMPort) { p.now = now }
}

func NewLLMPort(provider providers.LLMProvider, cfg Config, opts ...Option) *LLMPort {
	p := &LLMPort{
		provider: provider,
		cfg:      cfg,
		catalog:  interview.DefaultCatalog(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.feedback = NewFeedbackPipeline(p, p.catalog)
	return p
}

var _ Port = (*LLMPort)(nil)

func (p *LLMPort) GenerateQuestion(ctx context.Context, req QuestionRequest) (interview.QuestionResult, error) {
	var out interview.QuestionResult
	system := systemPrompt(roleQuestion, req.Difficulty)
	if err := p.callJSON(ctx, "generate_question", p.cfg.Temperatures.Question, system, questionPrompt(req, p.catalog), &out); err != nil {
		return interview.QuestionResult{}, err
	}

	out.Question = strings.TrimSpace(out.Question)
	if k, err := interview.ParseQuestionKind(string(out.Kind)); err != nil || k == interview.KindGeneral {
		out.Kind = req.Kind
	} else {
		out.Kind = k
	}
	if out.Kind == "" {
		out.Kind = interview.KindGeneral
	}
	if d, err := interview.ParseDifficulty(string(out.Difficulty)); err == nil {
		out.Difficulty = d
	} else {
		out.Difficulty = req.Difficulty
	}
	out.TopicsTargeted = nonNil(out.TopicsTargeted)
	out.ExpectedConcepts = nonNil(out.ExpectedConcepts)
	out.GuidanceHints = nonNil(out.GuidanceHints)
	out.Fallback = false
	if err := interview.ValidateResult(out); err != nil {
		return interview.QuestionResult{}, err
	}
	return out, nil
}

func (p *LLMPort) EvaluateAnswer(ctx context.Context, req EvaluationRequest) (interview.Evaluation, error) {
	var out interview.Evaluation
	system := systemPrompt(roleEvaluation, req.Difficulty)
	if err := p.callJSON(ctx, "evaluate_answer", p.cfg.Temperatures.Evaluation, system, evaluationPrompt(req), &out); err != nil {
		return interview.Evaluation{}, err
	}

	out.EvaluatedAt = p.now()
	out.NextSteps.SuggestedFollowUp = strings.ToLower(strings.TrimSpace(out.NextSteps.SuggestedFollowUp))
	out.Analysis.Strengths = nonNil(out.Analysis.Strengths)
	out.Analysis.Weaknesses = nonNil(out.Analysis.Weaknesses)
	out.Analysis.MissingTopics = nonNil(out.Analysis.MissingTopics)
	out.Analysis.TechnicalErrors = nonNil(out.Analysis.TechnicalErrors)
	out.NextSteps.SpecificAreasToExplore = nonNil(out.NextSteps.SpecificAreasToExplore)
	out.Fallback = false
	if err := interview.ValidateResult(out); err != nil {
		return interview.Evaluation{}, err
	}
	return out, nil
}

func (p *LLMPort) GenerateFeedback(ctx context.Context, req FeedbackRequest) (interview.FeedbackResult, error) {
	return p.feedback.Run(ctx, req)
}

func (p *LLMPort) AssessDifficulty(ctx context.Context, req DifficultyRequest) (interview.DifficultyResult, error) {
	var out interview.DifficultyResult
	system := systemPrompt(roleDifficulty, req.Current)
	if err := p.callJSON(ctx, "assess_difficulty", p.cfg.Temperatures.Evaluation, system, difficultyPrompt(req), &out); err != nil {
		return interview.DifficultyResult{}, err
	}

	rec, err := interview.ParseDifficulty(string(out.Recommended))
	if err != nil {
		return interview.DifficultyResult{}, fmt.Errorf("%w: recommended_difficulty %q", interview.ErrParse, out.Recommended)
	}
	// Only one step at a time, and never past either end.
	switch {
	case rec.Rank() > req.Current.Rank():
		rec = req.Current.Harder()
	case rec.Rank() < req.Current.Rank():
		rec = req.Current.Easier()
	}
	out.Current = req.Current
	out.Recommended = rec
	out.AdjustmentNeeded = rec != req.Current
	switch out.Trend {
	case interview.TrendImproving, interview.TrendStable, interview.TrendDeclining:
	default:
		out.Trend = req.Baseline.Trend
	}
	out.Fallback = false
	if err := interview.ValidateResult(out); err != nil {
		return interview.DifficultyResult{}, err
	}
	return out, nil
}

func (p *LLMPort) GenerateHint(ctx context.Context, req HintRequest) (interview.HintResult, error) {
	var out interview.HintResult
	system := systemPrompt(roleHint, req.Difficulty)
	if err := p.callJSON(ctx, "generate_hint", p.cfg.Temperatures.Hint, system, hintPrompt(req), &out); err != nil {
		return interview.HintResult{}, err
	}
	out.Type = strings.ToLower(strings.TrimSpace(out.Type))
	out.Content = strings.TrimSpace(out.Content)
	out.FollowUpQuestions = nonNil(out.FollowUpQuestions)
	out.Fallback = false
	if err := interview.ValidateResult(out); err != nil {
		return interview.HintResult{}, err
	}
	return out, nil
}

func (p *LLMPort) SummarizeSession(ctx context.Context, req SummaryRequest) (interview.SessionSummary, error) {
	var out interview.SessionSummary
	system := systemPrompt(roleSummary, req.Difficulty)
	if err := p.callJSON(ctx, "summarize_session", p.cfg.Temperatures.Feedback, system, summaryPrompt(req), &out); err != nil {
		return interview.SessionSummary{}, err
	}
	// averages come from memory, not from the model
	out.Averages = req.Averages
	out.KeyStrengths = nonNil(out.KeyStrengths)
	out.GrowthAreas = nonNil(out.GrowthAreas)
	out.NextSteps = nonNil(out.NextSteps)
	out.Fallback = false
	if err := interview.ValidateResult(out); err != nil {
		return interview.SessionSummary{}, err
	}
	return out, nil
}

// callJSON sends one system+user exchange in JSON mode and decodes the reply
// into out.
func (p *LLMPort) callJSON(ctx context.Context, op string, temperature float64, system, user string, out any) error {
	if p.provider == nil {
		return fmt.Errorf("%w: %s: no provider configured", interview.ErrAgentUnavailable, op)
	}
	start := time.Now()
	opts := providers.ChatOptions{
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: providers.Temperature(temperature),
		JSONMode:    true,
	}
	msgs := []providers.Message{providers.SystemMessage(system), providers.UserMessage(user)}

	resp, err := p.provider.Chat(ctx, msgs, p.cfg.Model, opts)
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", interview.ErrAgentUnavailable, op, err)
	} else {
		err = decodeJSON(resp.Content, out)
		if err != nil {
			err = fmt.Errorf("%s: %w", op, err)
		}
	}
	metrics.ObserveAgentCall(op, start, err)

	fields := map[string]interface{}{
		"operation":   op,
		"provider":    p.provider.Name(),
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		fields["error"] = err.Error()
		logger.WarnCF("coach", "Agent call failed", fields)
		return err
	}
	if resp.Usage != nil {
		fields["total_tokens"] = resp.Usage.TotalTokens
	}
	logger.DebugCF("coach", "Agent call completed", fields)
	return nil
}

// decodeJSON tolerates code fences and chatter around the object.
func decodeJSON(content string, out any) error {
	raw, ok := extractJSONObject(content)
	if !ok {
		return fmt.Errorf("%w: reply contains no JSON object", interview.ErrParse)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("%w: %v", interview.ErrParse, err)
	}
	return nil
}

func extractJSONObject(content string) (string, bool) {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return "", false
	}
	return s[start : end+1], true
}
