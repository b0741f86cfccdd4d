// Package client constructs llm.Responder implementations for the supported backends.
package client

import (
	"github.com/pkg/errors"

	"github.com/fpt/simforge/internal/config"
	"github.com/fpt/simforge/pkg/client/anthropic"
	"github.com/fpt/simforge/pkg/client/gemini"
	"github.com/fpt/simforge/pkg/client/ollama"
	"github.com/fpt/simforge/pkg/client/openai"
	"github.com/fpt/simforge/pkg/llm"
)

// NewResponder creates an LLM responder based on settings. The model argument
// overrides the configured one when non-empty, so scenarios can pin a model
// per participant.
func NewResponder(settings config.LLMSettings, model string) (llm.Responder, error) {
	if model == "" {
		model = settings.Model
	}

	switch settings.Backend {
	case "anthropic", "claude":
		return anthropic.NewClient(model, settings.MaxTokens)
	case "openai":
		return openai.NewClient(model, settings.MaxTokens)
	case "gemini":
		return gemini.NewClient(model, settings.MaxTokens)
	case "ollama", "":
		return ollama.NewClient(model, settings.MaxTokens)
	default:
		return nil, errors.Wrapf(llm.ErrUnsupportedBackend, "backend %q", settings.Backend)
	}
}
