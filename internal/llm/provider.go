// Package llm defines the boundary to the external LLM collaborator. The
// pipeline depends on this interface, never on a vendor SDK directly.
package llm

import "context"

// Request describes one generation call.
type Request struct {
	// Model overrides the provider's default model when non-empty.
	Model string
	// Prompt is the full prompt text; prompt wording is product policy and
	// lives with the call sites.
	Prompt string
	// JSONOutput asks the provider for a structured JSON response.
	JSONOutput bool
	// UseSearch enables the provider's search grounding tool.
	UseSearch bool
	// ThinkingBudget hints at a reasoning-token budget; zero keeps the
	// provider default.
	ThinkingBudget int32
}

// Provider is the interface all LLM backends implement.
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

// ProviderError represents an error from an LLM provider.
type ProviderError struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Provider + " error: " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Provider + " error: " + e.Message
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Common error codes across providers.
const (
	ErrCodeAPIKey       = "invalid_api_key"
	ErrCodeRateLimit    = "rate_limit_exceeded"
	ErrCodeServiceDown  = "service_unavailable"
	ErrCodeInvalidInput = "invalid_input"
	ErrCodeEmptyOutput  = "empty_output"
)
