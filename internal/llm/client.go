// Package llm abstracts the natural-language model used for end-of-call
// summarization. The real-time dialogue LLM lives outside this process; only
// the summarization call crosses this boundary.
package llm

import "context"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of input to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single completion request.
type Request struct {
	System      string
	Messages    []Message
	MaxTokens   int32
	Temperature float32
}

// Response is the model's completion.
type Response struct {
	Text       string
	StopReason string
}

// Client is an opaque natural-language completion function.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}
