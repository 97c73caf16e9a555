package interfaces

import (
	"context"
)

// GenerateRequest is a single structured-output generation request.
// When OutputSchema is set, providers constrain the response to valid JSON
// matching the schema.
type GenerateRequest struct {
	SystemPrompt string
	UserPrompt   string
	OutputSchema map[string]interface{}
	MaxTokens    int
}

// LLMService defines the interface for language model operations. The
// pipeline uses it for traffic gating and intent extraction; every call site
// must have a deterministic fallback because providers fail routinely.
type LLMService interface {
	// Generate produces a completion for the given request. When the request
	// carries an output schema, the returned string is a JSON document.
	Generate(ctx context.Context, req *GenerateRequest) (string, error)

	// ProviderName returns the provider identifier ("gemini", "claude").
	ProviderName() string

	// HealthCheck verifies the provider is reachable and authenticated.
	HealthCheck(ctx context.Context) error

	// Close releases provider resources.
	Close() error
}
