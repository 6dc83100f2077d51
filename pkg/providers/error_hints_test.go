package providers

import (
	"net/http"
	"strings"
	"testing"
)

func TestAugmentProviderError_Unauthorized(t *testing.T) {
	msg := augmentProviderError(ProviderOpenRouter, http.StatusUnauthorized, "No auth credentials found")
	if !strings.Contains(msg, "providers.openrouter.api_key") {
		t.Fatalf("expected api key hint, got %q", msg)
	}
}

func TestAugmentProviderError_UnknownModel(t *testing.T) {
	msg := augmentProviderError(ProviderOpenAI, http.StatusNotFound, "The model `gpt-9` does not exist")
	if !strings.Contains(msg, "agents.defaults.model") {
		t.Fatalf("expected model hint, got %q", msg)
	}
}

func TestAugmentProviderError_PassThrough(t *testing.T) {
	if got := augmentProviderError(ProviderOpenAI, http.StatusBadRequest, "bad things"); got != "bad things" {
		t.Fatalf("expected message unchanged, got %q", got)
	}
	if got := augmentProviderError(ProviderOpenAI, http.StatusBadRequest, "  "); got != "" {
		t.Fatalf("expected empty message, got %q", got)
	}
}
