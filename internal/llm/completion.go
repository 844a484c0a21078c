// Package llm provides LLM-backed text completion for the Research Assistant Service.
//
// This package defines the provider abstraction used by the workflow engine's
// synthesis and extension stages and by the standalone assistant operations
// (concept explanation, paper checks). Implementations wrap provider APIs
// (OpenAI Chat Completions, Anthropic Messages) and handle retry logic for
// transient API errors.
//
// Example usage:
//
//	provider, err := llm.NewCompletionProvider(cfg)
//	req := llm.CompletionRequest{
//		System:      "You are a research paper summarizer. Be concise.",
//		Prompt:      prompt,
//		MaxTokens:   1000,
//		Temperature: 0.5,
//	}
//	result, err := provider.Complete(ctx, req)
package llm

import (
	"context"
)

// CompletionRequest contains parameters for a single text completion.
type CompletionRequest struct {
	// System is the system-role instruction for the model.
	System string

	// Prompt is the user-role prompt text.
	Prompt string

	// MaxTokens limits the length of the generated response.
	// Zero means the provider default.
	MaxTokens int

	// Temperature controls sampling randomness. Zero means the
	// provider's configured default.
	Temperature float64
}

// CompletionResult contains the generated text and usage metadata.
type CompletionResult struct {
	// Content is the generated text.
	Content string

	// Model is the model that produced the completion.
	Model string

	// InputTokens is the number of input tokens used.
	InputTokens int

	// OutputTokens is the number of output tokens used.
	OutputTokens int
}

// CompletionProvider defines the interface for LLM-based text completion.
//
// Implementations should handle provider-specific API calls, response parsing,
// and error handling while conforming to this unified interface.
type CompletionProvider interface {
	// Complete generates text for the given request.
	// The context should be used for cancellation and deadline propagation.
	//
	// Implementations should:
	//   - Respect context cancellation
	//   - Retry transient API errors up to their configured limit
	//   - Return wrapped errors with provider context
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error)

	// Provider returns the name of the LLM provider (e.g., "openai", "anthropic").
	Provider() string

	// Model returns the model identifier being used.
	Model() string
}
