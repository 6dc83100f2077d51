package providers

import (
	"fmt"
	"strings"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/config"
)

const (
	defaultOpenRouterAPIBase = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel   = "openai/gpt-4o"
)

func init() {
	Register(ProviderOpenRouter, Backend{
		Build:    newOpenRouterProviderFromConfig,
		Validate: validateOpenRouterConfig,
		AuthMode: func(*config.Config) string { return authModeAPIKey },
	})
}

func validateOpenRouterConfig(cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if strings.TrimSpace(cfg.Providers.OpenRouter.APIKey) == "" {
		return fmt.Errorf("OpenRouter API key is required (set providers.openrouter.api_key or INTERVIEWCOACH_PROVIDERS_OPENROUTER_API_KEY)")
	}
	return nil
}

func newOpenRouterProviderFromConfig(cfg *config.Config) (LLMProvider, error) {
	if err := validateOpenRouterConfig(cfg); err != nil {
		return nil, err
	}

	apiBase := strings.TrimSpace(cfg.Providers.OpenRouter.APIBase)
	if apiBase == "" {
		apiBase = defaultOpenRouterAPIBase
	}
	model := strings.TrimSpace(cfg.Agents.Defaults.Model)
	if model == "" {
		model = defaultOpenRouterModel
	}
	auth := NewAPIKeyAuth(NewStaticTokenSource(cfg.Providers.OpenRouter.APIKey, "providers.openrouter.api_key"))
	// OpenRouter attributes traffic by these headers.
	headers := map[string]string{
		"HTTP-Referer": "https://github.com/chaharhimanshu/system-design-interviewer-coach",
		"X-Title":      "System Design Interview Coach",
	}
	return newChatCompletionsProvider(ProviderOpenRouter, apiBase, model, cfg.Providers.OpenRouter.Proxy, auth, headers)
}
