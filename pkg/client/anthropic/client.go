// Package anthropic provides an llm.Responder backed by Claude models.
package anthropic

import (
	"context"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/pkg/errors"

	"github.com/fpt/simforge/pkg/llm"
	"github.com/fpt/simforge/pkg/message"
)

// NOTE: Anthropic requires a minimum max_tokens value.
const defaultMaxTokens = 8192

// Client handles communication with Claude models.
type Client struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

// NewClient creates a new Anthropic client. maxTokens below the default is raised to it.
func NewClient(model string, maxTokens int) (*Client, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY environment variable not set")
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	if maxTokens < defaultMaxTokens {
		maxTokens = defaultMaxTokens
	}

	return &Client{
		client:    &client,
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Respond sends the conversation to the Messages API and returns the reply.
func (c *Client) Respond(ctx context.Context, messages []message.Message, format *llm.ResponseFormat) (message.Message, error) {
	anthropicMessages := make([]anthropic.MessageParam, 0, len(messages)+1)

	if format != nil {
		instruction, err := format.Instruction()
		if err != nil {
			return message.Message{}, err
		}
		anthropicMessages = append(anthropicMessages,
			anthropic.NewUserMessage(anthropic.NewTextBlock(fmt.Sprintf("System: %s", instruction))))
	}

	for _, msg := range messages {
		switch msg.Role() {
		case message.RoleAssistant:
			anthropicMessages = append(anthropicMessages,
				anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content())))
		case message.RoleSystem:
			// The Messages API takes system content as user turns here to keep
			// alternation simple across multi-party transcripts.
			anthropicMessages = append(anthropicMessages,
				anthropic.NewUserMessage(anthropic.NewTextBlock(fmt.Sprintf("System: %s", msg.Content()))))
		default:
			anthropicMessages = append(anthropicMessages,
				anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content())))
		}
	}

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		MaxTokens: int64(c.maxTokens),
		Messages:  anthropicMessages,
		Model:     anthropic.Model(c.model),
	})
	if err != nil {
		return message.Message{}, errors.Wrap(err, "Anthropic API call failed")
	}

	var content string
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			content += text.Text
		}
	}
	if content == "" {
		return message.Message{}, llm.ErrEmptyResponse
	}

	return message.New(message.RoleAssistant, content), nil
}

// ModelID returns the configured model identifier.
func (c *Client) ModelID() string { return c.model }

var _ llm.Responder = (*Client)(nil)
