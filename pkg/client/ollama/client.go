// Package ollama provides an llm.Responder backed by a local Ollama server.
package ollama

import (
	"context"

	"github.com/ollama/ollama/api"
	"github.com/pkg/errors"

	"github.com/fpt/simforge/pkg/llm"
	"github.com/fpt/simforge/pkg/message"
)

const (
	defaultMaxTokens = 4096
	temperature      = 0.1
)

// Client handles communication with a local Ollama instance.
type Client struct {
	client    *api.Client
	model     string
	maxTokens int
}

// NewClient creates a new Ollama client from OLLAMA_HOST or the default endpoint.
func NewClient(model string, maxTokens int) (*Client, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Ollama client")
	}

	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Client{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Respond sends the conversation to Ollama and returns the reply. When a
// response format is given, the schema is enforced server-side via Format.
func (c *Client) Respond(ctx context.Context, messages []message.Message, format *llm.ResponseFormat) (message.Message, error) {
	ollamaMessages := make([]api.Message, 0, len(messages))
	for _, msg := range messages {
		ollamaMessages = append(ollamaMessages, api.Message{
			Role:    msg.Role().String(),
			Content: msg.Content(),
		})
	}

	req := &api.ChatRequest{
		Model:    c.model,
		Messages: ollamaMessages,
		Options: map[string]any{
			"temperature": temperature,
			"num_predict": c.maxTokens,
		},
		Stream: &[]bool{false}[0],
	}

	if format != nil {
		schema, err := format.SchemaJSON()
		if err != nil {
			return message.Message{}, err
		}
		req.Format = schema
	}

	var content string
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content += resp.Message.Content
		return nil
	})
	if err != nil {
		return message.Message{}, errors.Wrap(err, "Ollama API call failed")
	}

	if content == "" {
		return message.Message{}, llm.ErrEmptyResponse
	}

	return message.New(message.RoleAssistant, content), nil
}

// ModelID returns the configured model identifier.
func (c *Client) ModelID() string { return c.model }

var _ llm.Responder = (*Client)(nil)
