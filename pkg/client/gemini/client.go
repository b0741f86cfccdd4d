// Package gemini provides an llm.Responder backed by Google Gemini models.
package gemini

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"google.golang.org/genai"

	"github.com/fpt/simforge/pkg/llm"
	"github.com/fpt/simforge/pkg/message"
)

const defaultMaxTokens = 8192

// Client handles communication with Gemini models.
type Client struct {
	client    *genai.Client
	model     string
	maxTokens int
}

// NewClient creates a new Gemini client. maxTokens <= 0 means default.
func NewClient(model string, maxTokens int) (*Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable not set")
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Gemini client")
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

// Respond sends the conversation to Gemini and returns the reply. When a
// response format is given, JSON output is requested natively and the schema
// travels as a system instruction.
func (c *Client) Respond(ctx context.Context, messages []message.Message, format *llm.ResponseFormat) (message.Message, error) {
	var systemInstruction *genai.Content
	geminiContents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role() {
		case message.RoleAssistant:
			geminiContents = append(geminiContents, genai.NewContentFromText(msg.Content(), genai.RoleModel))
		case message.RoleSystem:
			// The last system message wins as the system instruction.
			systemInstruction = genai.NewContentFromText(msg.Content(), genai.RoleUser)
		default:
			geminiContents = append(geminiContents, genai.NewContentFromText(msg.Content(), genai.RoleUser))
		}
	}

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(c.maxTokens),
	}
	if systemInstruction != nil {
		config.SystemInstruction = systemInstruction
	}

	if format != nil {
		config.ResponseMIMEType = "application/json"
		instruction, err := format.Instruction()
		if err != nil {
			return message.Message{}, err
		}
		geminiContents = append(geminiContents, genai.NewContentFromText(instruction, genai.RoleUser))
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, geminiContents, config)
	if err != nil {
		return message.Message{}, errors.Wrap(err, "Gemini API call failed")
	}

	text := resp.Text()
	if text == "" {
		return message.Message{}, llm.ErrEmptyResponse
	}

	return message.New(message.RoleAssistant, text), nil
}

// ModelID returns the configured model identifier.
func (c *Client) ModelID() string { return c.model }

var _ llm.Responder = (*Client)(nil)
