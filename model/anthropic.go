package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/pellucidlabs/sage/core"
)

// AnthropicModel adapts the Anthropic messages API to the Model interface.
// System-role messages are folded into the request's system prompt; user and
// assistant turns map directly onto message params.
type AnthropicModel struct {
	client    anthropic.Client
	modelName string
	maxTokens int64
}

// AnthropicOption configures the adapter.
type AnthropicOption func(*AnthropicModel)

// WithMaxTokens sets the maximum response tokens per generation.
func WithMaxTokens(n int64) AnthropicOption {
	return func(m *AnthropicModel) {
		m.maxTokens = n
	}
}

// NewAnthropicModel creates the adapter. The API key and model name are
// required; an empty key is a construction-time configuration error.
func NewAnthropicModel(apiKey, modelName string, opts ...AnthropicOption) (*AnthropicModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic model: missing API key")
	}
	if modelName == "" {
		return nil, fmt.Errorf("anthropic model: missing model name")
	}

	m := &AnthropicModel{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		modelName: modelName,
		maxTokens: 4096,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Generate sends the conversation to the messages API and returns the
// concatenated text blocks of the response.
func (m *AnthropicModel) Generate(ctx context.Context, messages []core.Message) (string, error) {
	var systemParts []string
	var params []anthropic.MessageParam

	for _, msg := range messages {
		switch msg.Role {
		case core.RoleSystem:
			systemParts = append(systemParts, msg.Content)
		case core.RoleAssistant:
			params = append(params, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			params = append(params, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	// The API requires at least one message.
	if len(params) == 0 {
		params = append(params, anthropic.NewUserMessage(anthropic.NewTextBlock("")))
	}

	req := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.modelName),
		MaxTokens: m.maxTokens,
		Messages:  params,
	}
	if len(systemParts) > 0 {
		req.System = []anthropic.TextBlockParam{
			{Text: strings.Join(systemParts, "\n\n")},
		}
	}

	resp, err := m.client.Messages.New(ctx, req)
	if err != nil {
		return "", fmt.Errorf("anthropic generate: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

// Info returns the adapter description.
func (m *AnthropicModel) Info() Info {
	return Info{Provider: "anthropic", Name: m.modelName}
}
