// Package openai provides an llm.Responder backed by the OpenAI Responses API.
package openai

import (
	"context"
	"os"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/responses"
	"github.com/openai/openai-go/v2/shared"
	"github.com/pkg/errors"

	"github.com/fpt/simforge/pkg/llm"
	"github.com/fpt/simforge/pkg/message"
)

const defaultMaxTokens = 4096

// Client handles communication with OpenAI models.
type Client struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewClient creates a new OpenAI client. maxTokens <= 0 means default.
func NewClient(model string, maxTokens int) (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}

	// Support custom base URL (for Azure OpenAI, etc.)
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(opts...)

	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Client{
		client:    &client,
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Respond sends the conversation to the Responses API and returns the reply.
func (c *Client) Respond(ctx context.Context, messages []message.Message, format *llm.ResponseFormat) (message.Message, error) {
	input := make(responses.ResponseInputParam, 0, len(messages)+1)

	if format != nil {
		instruction, err := format.Instruction()
		if err != nil {
			return message.Message{}, err
		}
		input = append(input, responses.ResponseInputItemParamOfMessage(
			instruction, responses.EasyInputMessageRoleSystem))
	}

	for _, msg := range messages {
		var role responses.EasyInputMessageRole
		switch msg.Role() {
		case message.RoleSystem:
			role = responses.EasyInputMessageRoleSystem
		case message.RoleAssistant:
			role = responses.EasyInputMessageRoleAssistant
		default:
			role = responses.EasyInputMessageRoleUser
		}
		input = append(input, responses.ResponseInputItemParamOfMessage(msg.Content(), role))
	}

	params := responses.ResponseNewParams{
		Model:           shared.ChatModel(c.model),
		Input:           responses.ResponseNewParamsInputUnion{OfInputItemList: input},
		MaxOutputTokens: openai.Int(int64(c.maxTokens)),
	}

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return message.Message{}, errors.Wrap(err, "OpenAI API call failed")
	}

	text := resp.OutputText()
	if text == "" {
		return message.Message{}, llm.ErrEmptyResponse
	}

	return message.New(message.RoleAssistant, text), nil
}

// ModelID returns the configured model identifier.
func (c *Client) ModelID() string { return c.model }

var _ llm.Responder = (*Client)(nil)
