// Package providers wraps OpenAI-compatible chat completion APIs. The
// classification agent uses it for the secondary intent classifier and for
// response generation; everything else in the system is model-free.
package providers

import "context"

// Message is one turn of a chat completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a non-streaming completion request.
type ChatRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// ChatResponse carries the assistant's reply text.
type ChatResponse struct {
	Content string
}

// Provider is a chat completion backend.
type Provider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}
