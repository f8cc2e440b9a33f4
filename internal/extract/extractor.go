package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Extractor proposes candidate patterns for a conversation batch. A failed
// call aborts the surrounding compaction run; nothing is written.
type Extractor interface {
	Extract(ctx context.Context, batch Batch, priorContext string) ([]Candidate, error)
}

// maxCandidates caps one extraction call. The LLM occasionally over-produces;
// anything past the cap is noise.
const maxCandidates = 12

const systemPrompt = `You analyze personal journal conversations and extract durable patterns about the user: behaviors, emotions, beliefs, goals, preferences, temporal habits, causal links, facts, and time-bound events. Respond with a JSON array only.`

// AnthropicExtractor calls the Anthropic Messages API for extraction.
type AnthropicExtractor struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicExtractor builds an extractor from the environment. Requires
// ANTHROPIC_API_KEY; the model can be overridden with DRIFTLOG_EXTRACT_MODEL.
func NewAnthropicExtractor() (*AnthropicExtractor, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
	}
	model := os.Getenv("DRIFTLOG_EXTRACT_MODEL")
	if model == "" {
		model = "claude-sonnet-4-5"
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicExtractor{client: &client, model: model}, nil
}

// Extract sends the batch transcript and parses the JSON candidate array out
// of the response.
func (e *AnthropicExtractor) Extract(ctx context.Context, batch Batch, priorContext string) ([]Candidate, error) {
	prompt := buildPrompt(batch, priorContext)

	resp, err := e.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(e.model),
		MaxTokens: 2048,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("extraction call: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	candidates, err := ParseCandidates(text)
	if err != nil {
		return nil, fmt.Errorf("parse extraction response: %w", err)
	}
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	return candidates, nil
}

func buildPrompt(batch Batch, priorContext string) string {
	var b strings.Builder
	if priorContext != "" {
		b.WriteString("Known patterns so far:\n")
		b.WriteString(priorContext)
		b.WriteString("\n\n")
	}
	b.WriteString("Conversation:\n")
	for _, m := range batch.Messages {
		fmt.Fprintf(&b, "[%s] %s: %s\n", m.ID, m.Role, m.Content)
	}
	b.WriteString(`
Extract patterns as a JSON array. Each element:
{"content": "...", "kind": "behavior|emotion|belief|goal|preference|temporal|causal|fact|event",
 "confidence": 0.0-1.0, "evidence": "verbatim excerpt", "source_message_ids": ["..."],
 "role": "user|tool", "entry_id": "", "temporal": "", "expires_at": "",
 "contradicts": false, "supersedes": false}
Set expires_at (RFC 3339) only for time-bound events. Set contradicts when the
statement conflicts with a known pattern; set supersedes only when the user
explicitly replaced the old statement.`)
	return b.String()
}
