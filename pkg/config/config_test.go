package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

// TestDefaultConfig_Memory verifies the memory window defaults
func TestDefaultConfig_Memory(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Memory.MaxMemoryHours != 24 {
		t.Errorf("MaxMemoryHours = %d, want 24", cfg.Memory.MaxMemoryHours)
	}
	if cfg.Memory.MaxInteractionsPerSession != 100 {
		t.Errorf("MaxInteractionsPerSession = %d, want 100", cfg.Memory.MaxInteractionsPerSession)
	}
	if cfg.Memory.CleanupSchedule == "" {
		t.Error("CleanupSchedule should have a default")
	}
}

// TestDefaultConfig_Model verifies model is set
func TestDefaultConfig_Model(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Agents.Defaults.Model != "openai/gpt-4o" {
		t.Errorf("Model = %q, want %q", cfg.Agents.Defaults.Model, "openai/gpt-4o")
	}
	if cfg.Agents.Defaults.MaxTokens == 0 {
		t.Error("MaxTokens should not be zero")
	}
}

func TestDefaultConfig_Temperatures(t *testing.T) {
	temps := DefaultConfig().Agents.Defaults.Temperatures

	if temps.Evaluation >= temps.Question {
		t.Errorf("evaluation temperature %.2f should be lower than question temperature %.2f", temps.Evaluation, temps.Question)
	}
	if temps.Hint == 0 || temps.Feedback == 0 {
		t.Error("hint and feedback temperatures should have defaults")
	}
}

func TestDefaultConfig_Policy(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Policy.WrapUpQuestionThreshold != 8 {
		t.Errorf("WrapUpQuestionThreshold = %d, want 8", cfg.Policy.WrapUpQuestionThreshold)
	}
	if cfg.Policy.MinTopicCoverage != 3 {
		t.Errorf("MinTopicCoverage = %d, want 3", cfg.Policy.MinTopicCoverage)
	}
}

// TestDefaultConfig_Gateway verifies gateway defaults
func TestDefaultConfig_Gateway(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Gateway.Host != "0.0.0.0" {
		t.Error("Gateway host should have default value")
	}
	if cfg.Gateway.Port == 0 {
		t.Error("Gateway port should have default value")
	}
}

func TestDefaultConfig_ProvidersEmpty(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Providers.OpenRouter.APIKey != "" {
		t.Error("OpenRouter API key should be empty by default")
	}
	if cfg.Providers.OpenAI.APIKey != "" || cfg.Providers.OpenAI.TokenFile != "" {
		t.Error("OpenAI credentials should be empty by default")
	}
	if cfg.Channels.Discord.Token != "" {
		t.Error("Discord token should be empty by default")
	}
}

func TestSaveConfig_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file permission bits are not enforced on Windows")
	}

	path := filepath.Join(t.TempDir(), "config.json")

	if err := SaveConfig(path, DefaultConfig()); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file has permission %04o, want 0600", perm)
	}
}

func TestLoadConfig_RoundTripsSavedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := DefaultConfig()
	cfg.Memory.MaxInteractionsPerSession = 40
	cfg.Policy.MinTopicCoverage = 4
	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Memory.MaxInteractionsPerSession != 40 {
		t.Fatalf("expected 40 interactions, got %d", loaded.Memory.MaxInteractionsPerSession)
	}
	if loaded.Policy.MinTopicCoverage != 4 {
		t.Fatalf("expected coverage 4, got %d", loaded.Policy.MinTopicCoverage)
	}
}

func TestLoadConfig_EnvOverridesWithoutFile(t *testing.T) {
	t.Setenv("INTERVIEWCOACH_AGENTS_DEFAULTS_MODEL", "env/model")
	t.Setenv("INTERVIEWCOACH_MEMORY_MAX_MEMORY_HOURS", "6")
	t.Setenv("INTERVIEWCOACH_TEMPERATURE_EVALUATION", "0.1")
	path := filepath.Join(t.TempDir(), "missing-config.json")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if got := cfg.Agents.Defaults.Model; got != "env/model" {
		t.Fatalf("expected env override model, got %q", got)
	}
	if got := cfg.MemoryRetention(); got != 6*time.Hour {
		t.Fatalf("expected 6h retention, got %s", got)
	}
	if got := cfg.Agents.Defaults.Temperatures.Evaluation; got != 0.1 {
		t.Fatalf("expected evaluation temperature 0.1, got %v", got)
	}
}

func TestLoadConfig_OpenAIEnvOverrides(t *testing.T) {
	t.Setenv("INTERVIEWCOACH_AGENTS_DEFAULTS_PROVIDER", "openai")
	t.Setenv("INTERVIEWCOACH_PROVIDERS_OPENAI_API_KEY", "sk-openai")
	t.Setenv("INTERVIEWCOACH_PROVIDERS_OPENAI_PROJECT", "proj_test")
	path := filepath.Join(t.TempDir(), "missing-config.json")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if got := cfg.Agents.Defaults.Provider; got != "openai" {
		t.Fatalf("expected provider openai, got %q", got)
	}
	if got := cfg.Providers.OpenAI.APIKey; got != "sk-openai" {
		t.Fatalf("expected openai api key from env, got %q", got)
	}
	if got := cfg.Providers.OpenAI.Project; got != "proj_test" {
		t.Fatalf("expected openai project from env, got %q", got)
	}
}

func TestLoadConfig_RejectsInvalidCleanupSchedule(t *testing.T) {
	t.Setenv("INTERVIEWCOACH_MEMORY_CLEANUP_SCHEDULE", "every half hour")
	path := filepath.Join(t.TempDir(), "missing-config.json")

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected invalid cron expression to be rejected")
	}
}

func TestArchivePath_ResolvesAgainstWorkspace(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Agents.Defaults.Workspace = "/srv/coach"
	cfg.Memory.ArchivePath = "state/archive.db"

	if got := cfg.ArchivePath(); got != filepath.Join("/srv/coach", "state", "archive.db") {
		t.Fatalf("unexpected archive path %q", got)
	}

	cfg.Memory.ArchivePath = "/var/lib/coach.db"
	if got := cfg.ArchivePath(); got != "/var/lib/coach.db" {
		t.Fatalf("absolute archive path should be kept, got %q", got)
	}
}
