// Package llm defines the Provider interface for Large Language Model backends.
//
// The pipeline only needs single-shot completions: the reconciler sends both
// transcripts in one request and parses one JSON reply. Streaming and tool
// calling are therefore not part of the contract.
//
// Implementors must be safe for concurrent use.
package llm

import "context"

// Message is a single entry in the prompt sent to a model.
type Message struct {
	// Role is one of "system", "user" or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// Usage holds token accounting information returned by the LLM backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionRequest carries everything the LLM needs to produce a response.
// At minimum Messages must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered prompt. The last message drives the response.
	Messages []Message

	// SystemPrompt is an optional instruction injected before Messages.
	// Providers without a dedicated system field prepend it as a "system"
	// message.
	SystemPrompt string

	// Temperature controls output randomness. Zero requests the provider
	// default, which for reconciliation should be close to greedy decoding.
	Temperature float64

	// MaxTokens caps the number of completion tokens. Zero means provider
	// default.
	MaxTokens int

	// JSONMode asks the backend to constrain the reply to a single JSON
	// object when it supports that natively. Callers must still validate the
	// reply.
	JSONMode bool
}

// CompletionResponse is the result of a completion.
type CompletionResponse struct {
	Content string
	Usage   Usage
}

// ModelCapabilities describes the limits of the underlying model.
type ModelCapabilities struct {
	// ContextWindow is the maximum token count for input + output.
	ContextWindow int

	// MaxOutputTokens is the maximum tokens the model can generate in one
	// completion.
	MaxOutputTokens int
}

// Provider is the abstraction over any LLM backend.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	// It returns promptly with ctx.Err() when ctx is cancelled.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// CountTokens estimates the number of tokens the messages would consume.
	// The estimate need not be exact but should not undercount.
	CountTokens(messages []Message) (int, error)

	// Capabilities returns static metadata about the model.
	Capabilities() ModelCapabilities
}

// EstimateTokens is the shared rough token estimate (about four characters
// per token plus per-message framing) used by providers that have no
// tokeniser endpoint.
func EstimateTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += (len(m.Content)+3)/4 + 4
	}
	return total
}
