package providers

import (
	"net/http"
	"strings"
)

// augmentProviderError appends an operator hint to common misconfigurations
// so the status line in the CLI says what to change.
func augmentProviderError(providerName string, status int, message string) string {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return msg
	}
	lower := strings.ToLower(msg)

	switch {
	case status == http.StatusUnauthorized || strings.Contains(lower, "incorrect api key"):
		return msg + " Hint: check providers." + NormalizeProviderName(providerName) + ".api_key or the matching INTERVIEWCOACH_PROVIDERS_* variable."
	case status == http.StatusNotFound && strings.Contains(lower, "model"):
		return msg + " Hint: agents.defaults.model is not available on " + NormalizeProviderName(providerName) + "."
	case status == http.StatusTooManyRequests:
		return msg + " Hint: the provider is rate limiting; turns fall back to canned questions until it recovers."
	case NormalizeProviderName(providerName) == ProviderOpenAI && strings.Contains(lower, "response_format"):
		return msg + " Hint: the configured model does not support JSON mode."
	}
	return msg
}
