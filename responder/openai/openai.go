// Package openai provides a core.Responder backed by the OpenAI Chat
// Completions API.
package openai

import (
	"context"
	"fmt"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/responder"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Options configures the OpenAI responder. Fields mirror a subset of Chat
// Completion parameters intentionally kept minimal; extend via functional
// options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	APIKey              string
	SystemPrompt        string
	Context             core.ContextProvider
}

// Responder wraps the OpenAI Chat Completions API behind core.Responder.
type Responder struct {
	client *openai.Client
	opts   Options
}

// NewResponder creates a new OpenAI responder using the official client.
// Without an explicit APIKey the client falls back to OPENAI_API_KEY.
func NewResponder(optFns ...func(o *Options)) *Responder {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := openai.NewClient(clientOpts...)

	return &Responder{client: &client, opts: opts}
}

// NewResponderFromClient creates a responder from an existing client.
func NewResponderFromClient(client *openai.Client, optFns ...func(o *Options)) *Responder {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Responder{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.3,
		MaxCompletionTokens: 1024,
	}
}

// Generate retrieves knowledge-base context for the message, calls the Chat
// Completions API and parses the structured verdict.
func (r *Responder) Generate(ctx context.Context, message string, history []core.Message) (*core.Verdict, error) {
	passages := responder.Retrieve(ctx, r.opts.Context, message)

	params := openai.ChatCompletionNewParams{
		Model:               r.opts.Model,
		Messages:            buildMessages(r.opts.SystemPrompt, passages, message, history),
		Temperature:         openai.Float(r.opts.Temperature),
		MaxCompletionTokens: openai.Int(r.opts.MaxCompletionTokens),
	}

	resp, err := r.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("openai api returned no choices")
	}

	return responder.ParseVerdict(resp.Choices[0].Message.Content, responder.Sources(passages)), nil
}

// buildMessages converts the transcript into OpenAI chat messages with the
// grounded system prompt first.
func buildMessages(systemPrompt string, passages []core.Passage, message string, history []core.Message) []openai.ChatCompletionMessageParamUnion {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(responder.BuildSystemPrompt(systemPrompt, passages)),
	}
	for _, m := range core.ConversationHistory(history) {
		switch m.Role {
		case core.RoleCustomer:
			messages = append(messages, openai.UserMessage(m.Text))
		case core.RoleAssistant, core.RoleAgent:
			messages = append(messages, openai.AssistantMessage(m.Text))
		}
	}
	return append(messages, openai.UserMessage(message))
}

// Info returns metadata describing this responder implementation.
func (r *Responder) Info() responder.Info {
	return responder.Info{Name: r.opts.Model, Provider: "openai"}
}
