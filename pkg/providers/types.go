package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func SystemMessage(content string) Message { return Message{Role: "system", Content: content} }
func UserMessage(content string) Message   { return Message{Role: "user", Content: content} }

// ChatOptions tunes one completion call. A nil Temperature leaves the
// provider default in place.
type ChatOptions struct {
	MaxTokens   int
	Temperature *float64
	// JSONMode asks the backend for a single JSON object as the reply.
	JSONMode bool
}

func Temperature(v float64) *float64 { return &v }

type UsageInfo struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type LLMResponse struct {
	Content      string
	FinishReason string
	Usage        *UsageInfo
}

type LLMProvider interface {
	Chat(ctx context.Context, messages []Message, model string, opts ChatOptions) (*LLMResponse, error)
	GetDefaultModel() string
	Name() string
}

// APIError is a non-2xx reply from a provider endpoint.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API request failed: status=%d error=%s", e.Provider, e.StatusCode, e.Message)
}

// Retryable reports whether the same request may succeed later.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// IsRetryable is true for rate limits, server errors and transport failures
// that carry no API status.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return !errors.Is(err, context.DeadlineExceeded)
}
