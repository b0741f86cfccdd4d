// Package llm defines the contract through which the engine obtains
// participant actions and judgments from external text-generation backends.
package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	"github.com/fpt/simforge/pkg/message"
)

var (
	// ErrUnsupportedBackend is returned by the client factory for unknown backends
	ErrUnsupportedBackend = errors.New("unsupported LLM backend")
	// ErrEmptyResponse is returned when a backend produces no text
	ErrEmptyResponse = errors.New("empty response from LLM backend")
)

// ResponseFormat asks a backend for structured output. Backends with native
// schema support (Ollama, Gemini) enforce the schema server-side; the rest
// receive it as an instruction. The judge validates the result either way.
type ResponseFormat struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema
}

// SchemaJSON marshals the schema for backends with native JSON Schema support.
func (f *ResponseFormat) SchemaJSON() (json.RawMessage, error) {
	raw, err := json.Marshal(f.Schema)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal response schema")
	}
	return raw, nil
}

// Instruction renders the format as a system instruction for backends
// without native schema enforcement.
func (f *ResponseFormat) Instruction() (string, error) {
	raw, err := f.SchemaJSON()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"You must respond with a single valid JSON object and nothing else. "+
			"The object must conform to this JSON Schema:\n%s", string(raw)), nil
}

// Responder is the agent-response contract: a blocking, possibly stateful
// call that turns a conversation into one assistant reply.
type Responder interface {
	// Respond sends the conversation to the backend and returns the reply
	Respond(ctx context.Context, messages []message.Message, format *ResponseFormat) (message.Message, error)
	// ModelID returns a stable identifier for the underlying model
	ModelID() string
}
