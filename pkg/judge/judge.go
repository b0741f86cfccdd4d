// Package judge wraps the external judgment capability in a bounded
// validate-and-retry protocol, guaranteeing callers either a parseable
// structured judgment or a terminal error. There is no partial success.
package judge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/fpt/simforge/pkg/llm"
	pkgLogger "github.com/fpt/simforge/pkg/logger"
	"github.com/fpt/simforge/pkg/message"
)

var logger = pkgLogger.NewComponentLogger("judge")

// ErrRetriesExhausted is returned when the judgment backend never produced
// valid structured output within the retry budget.
var ErrRetriesExhausted = errors.New("exhausted retries without a valid structured judgment")

// maxRetries bounds the validate/retry loop: up to 3 retries after the
// initial attempt, 4 attempts total.
const maxRetries = 3

const retryPreamble = "The previous response was not valid JSON. Please try again, ensuring your output is a single, valid JSON object.\n\n"

// Judgment is the structured result of one scoring pass: per-participant
// metric values plus the judge's free-text reasoning.
type Judgment struct {
	Scores    map[string]map[string]any `json:"scores"`
	Reasoning string                    `json:"reasoning,omitempty"`
}

// state models the validator's finite control loop.
type state int

const (
	stateRequest state = iota
	stateValidate
	stateRetry
	stateDone
)

// Validator runs the request → validate → retry loop against one Responder
type Validator struct {
	responder llm.Responder
}

// NewValidator creates a validator for the given judgment backend
func NewValidator(responder llm.Responder) *Validator {
	return &Validator{responder: responder}
}

// GetValidScores requests a judgment for prompt and validates the response.
// Invalid responses trigger a rewritten prompt demanding strictly valid
// JSON; after maxRetries failed revalidations it returns
// ErrRetriesExhausted. Transport errors from the backend are returned
// immediately without consuming the retry budget.
func (v *Validator) GetValidScores(ctx context.Context, prompt string, format *llm.ResponseFormat) (*Judgment, error) {
	currentPrompt := prompt
	retries := 0

	var raw string
	var judgment *Judgment

	current := stateRequest
	for {
		switch current {
		case stateRequest:
			response, err := v.responder.Respond(ctx, []message.Message{message.New(message.RoleUser, currentPrompt)}, format)
			if err != nil {
				return nil, fmt.Errorf("judgment request failed: %w", err)
			}
			raw = response.Content()
			current = stateValidate

		case stateValidate:
			parsed, err := parseJudgment(raw)
			if err != nil {
				logger.Warn("Judgment response is not valid structured output",
					"attempt", retries+1, "error", err)
				current = stateRetry
				continue
			}
			judgment = parsed
			current = stateDone

		case stateRetry:
			retries++
			if retries > maxRetries {
				return nil, fmt.Errorf("%w after %d attempts", ErrRetriesExhausted, retries)
			}
			currentPrompt = retryPreamble + prompt
			current = stateRequest

		case stateDone:
			return judgment, nil
		}
	}
}

// parseJudgment decodes judgment text. The canonical shape is
// {"scores": {...}, "reasoning": "..."}; a bare {participant: {metric:
// value}} object is accepted for backends that flatten the wrapper.
func parseJudgment(raw string) (*Judgment, error) {
	var judgment Judgment
	if err := json.Unmarshal([]byte(raw), &judgment); err == nil && judgment.Scores != nil {
		return &judgment, nil
	}

	var bare map[string]map[string]any
	if err := json.Unmarshal([]byte(raw), &bare); err != nil {
		return nil, fmt.Errorf("judgment is not a JSON object: %w", err)
	}
	if len(bare) == 0 {
		return nil, errors.New("judgment contains no scores")
	}
	return &Judgment{Scores: bare}, nil
}
