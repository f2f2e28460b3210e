// Package anthropic provides a core.Responder backed by the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/responder"
)

// Options configures the Anthropic responder (model id, temperature, max
// tokens, API key, system prompt, retrieval hook). Extend via functional
// options to preserve stability.
type Options struct {
	Model        anthropic.Model
	Temperature  float64
	MaxTokens    int64
	APIKey       string
	SystemPrompt string
	Context      core.ContextProvider
}

// Responder wraps the Anthropic Messages API behind core.Responder.
type Responder struct {
	client *anthropic.Client
	opts   Options
}

// NewResponder creates a new Anthropic responder using the official client.
func NewResponder(optFns ...func(o *Options)) *Responder {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Responder{client: &client, opts: opts}
}

// NewResponderFromClient creates a responder from an existing client.
func NewResponderFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Responder {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Responder{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.3,
		MaxTokens:   1024,
	}
}

// Generate retrieves knowledge-base context for the message, calls the
// Messages API and parses the structured verdict.
func (r *Responder) Generate(ctx context.Context, message string, history []core.Message) (*core.Verdict, error) {
	passages := responder.Retrieve(ctx, r.opts.Context, message)

	params := anthropic.MessageNewParams{
		Model:       r.opts.Model,
		Messages:    buildMessages(message, history),
		MaxTokens:   r.opts.MaxTokens,
		Temperature: anthropic.Float(r.opts.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: responder.BuildSystemPrompt(r.opts.SystemPrompt, passages)},
		},
	}

	resp, err := r.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.AsText().Text
		}
	}
	if text == "" {
		return nil, fmt.Errorf("anthropic api returned no text content")
	}

	return responder.ParseVerdict(text, responder.Sources(passages)), nil
}

// buildMessages converts the transcript to Anthropic message format.
// Customer turns map to user messages; assistant and human-agent turns map
// to assistant messages; system notices are dropped.
func buildMessages(message string, history []core.Message) []anthropic.MessageParam {
	var messages []anthropic.MessageParam
	for _, m := range core.ConversationHistory(history) {
		switch m.Role {
		case core.RoleCustomer:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Text)))
		case core.RoleAssistant, core.RoleAgent:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Text)))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(message)))
	return messages
}

// Info returns metadata describing this responder implementation.
func (r *Responder) Info() responder.Info {
	return responder.Info{Name: string(r.opts.Model), Provider: "anthropic"}
}
