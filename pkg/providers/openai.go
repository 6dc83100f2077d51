package providers

import (
	"fmt"
	"strings"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/config"
)

const (
	defaultOpenAIAPIBase = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o"
)

func init() {
	Register(ProviderOpenAI, Backend{
		Build:    newOpenAIProviderFromConfig,
		Validate: validateOpenAIConfig,
		AuthMode: func(cfg *config.Config) string {
			mode, _, _ := resolveOpenAIAuthConfig(cfg)
			return mode
		},
	})
}

func validateOpenAIConfig(cfg *config.Config) error {
	mode, source, err := resolveOpenAIAuthConfig(cfg)
	if err != nil {
		return err
	}
	return validateTokenFileSource(mode, source, "OpenAI")
}

func newOpenAIProviderFromConfig(cfg *config.Config) (LLMProvider, error) {
	if err := validateOpenAIConfig(cfg); err != nil {
		return nil, err
	}
	mode, source, _ := resolveOpenAIAuthConfig(cfg)

	var auth AuthStrategy
	switch mode {
	case authModeAPIKey:
		auth = NewAPIKeyAuth(NewStaticTokenSource(source, "providers.openai.api_key"))
	case authModeTokenFile:
		auth = NewBearerTokenAuth(NewFileTokenSource(source))
	default:
		return nil, fmt.Errorf("unsupported OpenAI auth mode %q", mode)
	}

	apiBase := strings.TrimSpace(cfg.Providers.OpenAI.APIBase)
	if apiBase == "" {
		apiBase = defaultOpenAIAPIBase
	}
	model := strings.TrimSpace(cfg.Agents.Defaults.Model)
	if model == "" || strings.Contains(model, "/") {
		// OpenRouter style ids like openai/gpt-4o are not valid here.
		model = defaultOpenAIModel
	}
	headers := map[string]string{}
	if org := strings.TrimSpace(cfg.Providers.OpenAI.Organization); org != "" {
		headers["OpenAI-Organization"] = org
	}
	if project := strings.TrimSpace(cfg.Providers.OpenAI.Project); project != "" {
		headers["OpenAI-Project"] = project
	}

	return newChatCompletionsProvider(ProviderOpenAI, apiBase, model, cfg.Providers.OpenAI.Proxy, auth, headers)
}

func resolveOpenAIAuthConfig(cfg *config.Config) (mode string, source string, err error) {
	if cfg == nil {
		return "", "", fmt.Errorf("config is required")
	}

	var candidates []credentialCandidate
	if apiKey := strings.TrimSpace(cfg.Providers.OpenAI.APIKey); apiKey != "" {
		candidates = append(candidates, credentialCandidate{mode: authModeAPIKey, source: apiKey, field: "providers.openai.api_key"})
	}
	if tokenFile := strings.TrimSpace(cfg.Providers.OpenAI.TokenFile); tokenFile != "" {
		candidates = append(candidates, credentialCandidate{mode: authModeTokenFile, source: tokenFile, field: "providers.openai.token_file"})
	}

	return selectSingleCredential(
		candidates,
		"OpenAI credentials are required (set providers.openai.api_key or providers.openai.token_file)",
		"multiple OpenAI credential sources configured",
	)
}
