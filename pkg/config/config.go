package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"github.com/caarlos0/env/v11"
)

// FlexibleStringSlice is a []string that also accepts JSON numbers,
// so allow_from can contain both "123" and 123.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

type Config struct {
	Agents    AgentsConfig    `json:"agents"`
	Channels  ChannelsConfig  `json:"channels"`
	Providers ProvidersConfig `json:"providers"`
	Gateway   GatewayConfig   `json:"gateway"`
	Memory    MemoryConfig    `json:"memory"`
	Policy    PolicyConfig    `json:"policy"`
	mu        sync.RWMutex
}

type AgentsConfig struct {
	Defaults AgentDefaults `json:"defaults"`
}

type AgentDefaults struct {
	Workspace           string       `json:"workspace" env:"INTERVIEWCOACH_AGENTS_DEFAULTS_WORKSPACE"`
	Provider            string       `json:"provider" env:"INTERVIEWCOACH_AGENTS_DEFAULTS_PROVIDER"`
	Model               string       `json:"model" env:"INTERVIEWCOACH_AGENTS_DEFAULTS_MODEL"`
	MaxTokens           int          `json:"max_tokens" env:"INTERVIEWCOACH_AGENTS_DEFAULTS_MAX_TOKENS"`
	AgentTimeoutSeconds int          `json:"agent_timeout_seconds" env:"INTERVIEWCOACH_AGENTS_DEFAULTS_AGENT_TIMEOUT_SECONDS"`
	Temperatures        Temperatures `json:"temperatures"`
}

// Temperatures holds the sampling temperature per agent role.
type Temperatures struct {
	Question   float64 `json:"question" env:"INTERVIEWCOACH_TEMPERATURE_QUESTION"`
	Evaluation float64 `json:"evaluation" env:"INTERVIEWCOACH_TEMPERATURE_EVALUATION"`
	Feedback   float64 `json:"feedback" env:"INTERVIEWCOACH_TEMPERATURE_FEEDBACK"`
	Hint       float64 `json:"hint" env:"INTERVIEWCOACH_TEMPERATURE_HINT"`
}

type ChannelsConfig struct {
	Discord DiscordConfig `json:"discord"`
}

type DiscordConfig struct {
	Token     string              `json:"token" env:"INTERVIEWCOACH_CHANNELS_DISCORD_TOKEN"`
	AllowFrom FlexibleStringSlice `json:"allow_from" env:"INTERVIEWCOACH_CHANNELS_DISCORD_ALLOW_FROM"`
	// Messages per minute accepted from a single sender. Zero disables limiting.
	RateLimitPerMinute int `json:"rate_limit_per_minute" env:"INTERVIEWCOACH_CHANNELS_DISCORD_RATE_LIMIT_PER_MINUTE"`
	RateLimitBurst     int `json:"rate_limit_burst" env:"INTERVIEWCOACH_CHANNELS_DISCORD_RATE_LIMIT_BURST"`
}

type ProvidersConfig struct {
	OpenRouter OpenRouterProviderConfig `json:"openrouter"`
	OpenAI     OpenAIProviderConfig     `json:"openai"`
}

type OpenRouterProviderConfig struct {
	APIKey  string `json:"api_key" env:"INTERVIEWCOACH_PROVIDERS_OPENROUTER_API_KEY"`
	APIBase string `json:"api_base" env:"INTERVIEWCOACH_PROVIDERS_OPENROUTER_API_BASE"`
	Proxy   string `json:"proxy,omitempty" env:"INTERVIEWCOACH_PROVIDERS_OPENROUTER_PROXY"`
}

type OpenAIProviderConfig struct {
	APIKey       string `json:"api_key" env:"INTERVIEWCOACH_PROVIDERS_OPENAI_API_KEY"`
	TokenFile    string `json:"token_file,omitempty" env:"INTERVIEWCOACH_PROVIDERS_OPENAI_TOKEN_FILE"`
	APIBase      string `json:"api_base" env:"INTERVIEWCOACH_PROVIDERS_OPENAI_API_BASE"`
	Organization string `json:"organization,omitempty" env:"INTERVIEWCOACH_PROVIDERS_OPENAI_ORGANIZATION"`
	Project      string `json:"project,omitempty" env:"INTERVIEWCOACH_PROVIDERS_OPENAI_PROJECT"`
	Proxy        string `json:"proxy,omitempty" env:"INTERVIEWCOACH_PROVIDERS_OPENAI_PROXY"`
}

type GatewayConfig struct {
	Host string `json:"host" env:"INTERVIEWCOACH_GATEWAY_HOST"`
	Port int    `json:"port" env:"INTERVIEWCOACH_GATEWAY_PORT"`
}

type MemoryConfig struct {
	MaxMemoryHours            int    `json:"max_memory_hours" env:"INTERVIEWCOACH_MEMORY_MAX_MEMORY_HOURS"`
	MaxInteractionsPerSession int    `json:"max_interactions_per_session" env:"INTERVIEWCOACH_MEMORY_MAX_INTERACTIONS_PER_SESSION"`
	TrendSnapshotLimit        int    `json:"trend_snapshot_limit" env:"INTERVIEWCOACH_MEMORY_TREND_SNAPSHOT_LIMIT"`
	CleanupSchedule           string `json:"cleanup_schedule" env:"INTERVIEWCOACH_MEMORY_CLEANUP_SCHEDULE"`
	ArchiveEnabled            bool   `json:"archive_enabled" env:"INTERVIEWCOACH_MEMORY_ARCHIVE_ENABLED"`
	// Relative paths resolve against the workspace.
	ArchivePath string `json:"archive_path" env:"INTERVIEWCOACH_MEMORY_ARCHIVE_PATH"`
}

type PolicyConfig struct {
	WrapUpQuestionThreshold int     `json:"wrap_up_question_threshold" env:"INTERVIEWCOACH_POLICY_WRAP_UP_QUESTION_THRESHOLD"`
	MinTopicCoverage        int     `json:"min_topic_coverage" env:"INTERVIEWCOACH_POLICY_MIN_TOPIC_COVERAGE"`
	PhaseAdvanceQuestions   int     `json:"phase_advance_questions" env:"INTERVIEWCOACH_POLICY_PHASE_ADVANCE_QUESTIONS"`
	HintScoreFloor          float64 `json:"hint_score_floor" env:"INTERVIEWCOACH_POLICY_HINT_SCORE_FLOOR"`
	ClarificationScoreFloor float64 `json:"clarification_score_floor" env:"INTERVIEWCOACH_POLICY_CLARIFICATION_SCORE_FLOOR"`
	MaxSessionMinutes       int     `json:"max_session_minutes" env:"INTERVIEWCOACH_POLICY_MAX_SESSION_MINUTES"`
	PerformanceWindow       int     `json:"performance_window" env:"INTERVIEWCOACH_POLICY_PERFORMANCE_WINDOW"`
	DifficultyMinSamples    int     `json:"difficulty_min_samples" env:"INTERVIEWCOACH_POLICY_DIFFICULTY_MIN_SAMPLES"`
	AdjustConfidenceFloor   float64 `json:"adjust_confidence_floor" env:"INTERVIEWCOACH_POLICY_ADJUST_CONFIDENCE_FLOOR"`
}

func DefaultConfig() *Config {
	return &Config{
		Agents: AgentsConfig{
			Defaults: AgentDefaults{
				Workspace:           "~/.interviewcoach/workspace",
				Provider:            "openrouter",
				Model:               "openai/gpt-4o",
				MaxTokens:           2000,
				AgentTimeoutSeconds: 30,
				Temperatures: Temperatures{
					Question:   0.7,
					Evaluation: 0.3,
					Feedback:   0.6,
					Hint:       0.8,
				},
			},
		},
		Channels: ChannelsConfig{
			Discord: DiscordConfig{
				Token:              "",
				AllowFrom:          FlexibleStringSlice{},
				RateLimitPerMinute: 20,
				RateLimitBurst:     5,
			},
		},
		Providers: ProvidersConfig{
			OpenRouter: OpenRouterProviderConfig{},
			OpenAI:     OpenAIProviderConfig{},
		},
		Gateway: GatewayConfig{
			Host: "0.0.0.0",
			Port: 18790,
		},
		Memory: MemoryConfig{
			MaxMemoryHours:            24,
			MaxInteractionsPerSession: 100,
			TrendSnapshotLimit:        20,
			CleanupSchedule:           "*/30 * * * *",
			ArchiveEnabled:            true,
			ArchivePath:               "state/archive.db",
		},
		Policy: PolicyConfig{
			WrapUpQuestionThreshold: 8,
			MinTopicCoverage:        3,
			PhaseAdvanceQuestions:   3,
			HintScoreFloor:          3.0,
			ClarificationScoreFloor: 4.0,
			MaxSessionMinutes:       45,
			PerformanceWindow:       5,
			DifficultyMinSamples:    3,
			AdjustConfidenceFloor:   0.6,
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Validate rejects values the runtime cannot work with.
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.Memory.MaxInteractionsPerSession < 2 {
		return fmt.Errorf("memory.max_interactions_per_session must be at least 2, got %d", c.Memory.MaxInteractionsPerSession)
	}
	if c.Memory.MaxMemoryHours <= 0 {
		return fmt.Errorf("memory.max_memory_hours must be positive, got %d", c.Memory.MaxMemoryHours)
	}
	if expr := strings.TrimSpace(c.Memory.CleanupSchedule); expr != "" && !gronx.New().IsValid(expr) {
		return fmt.Errorf("memory.cleanup_schedule %q is not a valid cron expression", expr)
	}
	if c.Agents.Defaults.AgentTimeoutSeconds <= 0 {
		return fmt.Errorf("agents.defaults.agent_timeout_seconds must be positive, got %d", c.Agents.Defaults.AgentTimeoutSeconds)
	}
	if c.Policy.WrapUpQuestionThreshold <= 0 || c.Policy.MinTopicCoverage <= 0 {
		return fmt.Errorf("policy thresholds must be positive")
	}
	return nil
}

func (c *Config) WorkspacePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return expandHome(c.Agents.Defaults.Workspace)
}

// ArchivePath resolves memory.archive_path against the workspace.
func (c *Config) ArchivePath() string {
	c.mu.RLock()
	path := strings.TrimSpace(c.Memory.ArchivePath)
	c.mu.RUnlock()
	if path == "" {
		return ""
	}
	path = expandHome(path)
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.WorkspacePath(), path)
}

func (c *Config) AgentTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.Agents.Defaults.AgentTimeoutSeconds) * time.Second
}

func (c *Config) MemoryRetention() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.Memory.MaxMemoryHours) * time.Hour
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
