package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shanmukhchodagam/workhub/internal/providers"
)

// LLMClassifier implements Secondary on top of a chat provider. Every call
// carries a bounded timeout; errors are returned to the caller, which falls
// back to the rule-based result.
type LLMClassifier struct {
	provider providers.Provider
	model    string
	timeout  time.Duration
}

func NewLLMClassifier(p providers.Provider, model string, timeout time.Duration) *LLMClassifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &LLMClassifier{provider: p, model: model, timeout: timeout}
}

const classifyPrompt = `You classify messages from field workers. ` +
	`Pick exactly one category from this list: %s. ` +
	`Respond with only a JSON object: {"intent": "<category>", "confidence": <0.0-1.0>}.`

type classifyReply struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

func (c *LLMClassifier) Classify(ctx context.Context, text string, menu []string) (string, float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.provider.Chat(ctx, providers.ChatRequest{
		Model: c.model,
		Messages: []providers.Message{
			{Role: "system", Content: fmt.Sprintf(classifyPrompt, strings.Join(menu, ", "))},
			{Role: "user", Content: text},
		},
		MaxTokens:   100,
		Temperature: 0,
	})
	if err != nil {
		return "", 0, err
	}

	var reply classifyReply
	raw := extractJSON(resp.Content)
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return "", 0, fmt.Errorf("parse classifier reply: %w", err)
	}
	if reply.Intent == "" {
		return "", 0, fmt.Errorf("classifier reply missing intent")
	}
	return reply.Intent, reply.Confidence, nil
}

// LLMResponder implements Responder on top of a chat provider.
type LLMResponder struct {
	provider providers.Provider
	model    string
	timeout  time.Duration
}

func NewLLMResponder(p providers.Provider, model string, timeout time.Duration) *LLMResponder {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &LLMResponder{provider: p, model: model, timeout: timeout}
}

const respondPrompt = `You are the assistant for a field workforce chat system. ` +
	`A worker sent a message that was classified as "%s" (confidence %.2f, extracted details: %s). ` +
	`Write a short, friendly confirmation reply (one or two sentences). Do not ask follow-up questions.`

func (r *LLMResponder) Respond(ctx context.Context, intent string, confidence float64, entities map[string][]string, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	details := "none"
	if hits := flattenEntities(entities); len(hits) > 0 {
		details = strings.Join(hits, ", ")
	}
	resp, err := r.provider.Chat(ctx, providers.ChatRequest{
		Model: r.model,
		Messages: []providers.Message{
			{Role: "system", Content: fmt.Sprintf(respondPrompt, intent, confidence, details)},
			{Role: "user", Content: text},
		},
		MaxTokens:   150,
		Temperature: 0.7,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

// extractJSON pulls the first JSON object out of a model reply that may wrap
// it in prose or code fences.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
