package judge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fpt/simforge/pkg/llm"
	"github.com/fpt/simforge/pkg/message"
	"github.com/fpt/simforge/pkg/scenario"
)

// scriptedResponder returns canned responses in order, repeating the last
// one once the script is exhausted.
type scriptedResponder struct {
	responses []string
	calls     int
	prompts   []string
}

func (s *scriptedResponder) Respond(_ context.Context, messages []message.Message, _ *llm.ResponseFormat) (message.Message, error) {
	s.calls++
	s.prompts = append(s.prompts, messages[len(messages)-1].Content())
	idx := s.calls - 1
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return message.New(message.RoleAssistant, s.responses[idx]), nil
}

func (s *scriptedResponder) ModelID() string { return "scripted" }

func TestGetValidScoresFirstAttempt(t *testing.T) {
	responder := &scriptedResponder{responses: []string{
		`{"scores": {"Plato": {"coherence": 8}}, "reasoning": "solid argument"}`,
	}}
	v := NewValidator(responder)

	judgment, err := v.GetValidScores(context.Background(), "score this turn", nil)
	if err != nil {
		t.Fatalf("GetValidScores failed: %v", err)
	}
	if responder.calls != 1 {
		t.Errorf("Expected 1 attempt, got %d", responder.calls)
	}
	if judgment.Scores["Plato"]["coherence"] != 8.0 {
		t.Errorf("Unexpected scores: %v", judgment.Scores)
	}
	if judgment.Reasoning != "solid argument" {
		t.Errorf("Unexpected reasoning: %q", judgment.Reasoning)
	}
}

func TestGetValidScoresSecondAttempt(t *testing.T) {
	responder := &scriptedResponder{responses: []string{
		"this is not json",
		`{"scores": {"Plato": {"coherence": 5}}, "reasoning": "ok"}`,
	}}
	v := NewValidator(responder)

	judgment, err := v.GetValidScores(context.Background(), "score this turn", nil)
	if err != nil {
		t.Fatalf("GetValidScores failed: %v", err)
	}
	if responder.calls != 2 {
		t.Errorf("Expected exactly 2 attempts, got %d", responder.calls)
	}
	if judgment.Scores["Plato"]["coherence"] != 5.0 {
		t.Errorf("Unexpected scores: %v", judgment.Scores)
	}

	// The retry prompt must explicitly demand valid JSON
	if !strings.Contains(responder.prompts[1], "valid JSON") {
		t.Errorf("Retry prompt not rewritten: %q", responder.prompts[1])
	}
	if !strings.Contains(responder.prompts[1], "score this turn") {
		t.Errorf("Retry prompt lost the original request: %q", responder.prompts[1])
	}
}

func TestGetValidScoresExhaustsRetries(t *testing.T) {
	responder := &scriptedResponder{responses: []string{"still not json"}}
	v := NewValidator(responder)

	_, err := v.GetValidScores(context.Background(), "score this turn", nil)
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("Expected ErrRetriesExhausted, got %v", err)
	}
	// 1 initial attempt + 3 retries
	if responder.calls != 4 {
		t.Errorf("Expected 4 total attempts, got %d", responder.calls)
	}
}

type failingResponder struct{}

func (f *failingResponder) Respond(_ context.Context, _ []message.Message, _ *llm.ResponseFormat) (message.Message, error) {
	return message.Message{}, errors.New("connection refused")
}

func (f *failingResponder) ModelID() string { return "failing" }

func TestGetValidScoresTransportErrorIsImmediate(t *testing.T) {
	v := NewValidator(&failingResponder{})

	_, err := v.GetValidScores(context.Background(), "score this turn", nil)
	if err == nil {
		t.Fatal("Expected an error")
	}
	if errors.Is(err, ErrRetriesExhausted) {
		t.Errorf("Transport failures must not be reported as retry exhaustion: %v", err)
	}
}

func TestParseJudgmentBareShape(t *testing.T) {
	judgment, err := parseJudgment(`{"Einstein": {"eloquence": 1, "logic": 2}, "Jobs": {"eloquence": 2}}`)
	if err != nil {
		t.Fatalf("parseJudgment failed: %v", err)
	}
	if judgment.Scores["Einstein"]["logic"] != 2.0 {
		t.Errorf("Unexpected scores: %v", judgment.Scores)
	}
}

func TestParseJudgmentRejectsNonObjects(t *testing.T) {
	for _, raw := range []string{`"a string"`, `42`, `[1, 2]`, `{}`, `not json at all`} {
		if _, err := parseJudgment(raw); err == nil {
			t.Errorf("parseJudgment(%q) should have failed", raw)
		}
	}
}

func TestBuildResponseFormat(t *testing.T) {
	rules := map[string]scenario.ScoringRule{
		"coherence": {
			Kind:       scenario.RuleCalculated,
			ToolSchema: map[string]any{"type": "integer", "description": "1-10"},
		},
	}

	format := BuildResponseFormat(rules, []string{"Plato", "Aristotle"})
	if format.Name != "record_scores" {
		t.Errorf("Unexpected format name %q", format.Name)
	}

	scores, ok := format.Schema.Properties.Get("scores")
	if !ok {
		t.Fatal("Schema missing scores property")
	}
	plato, ok := scores.Properties.Get("Plato")
	if !ok {
		t.Fatal("Schema missing Plato scores")
	}
	coherence, ok := plato.Properties.Get("coherence")
	if !ok {
		t.Fatal("Schema missing coherence metric")
	}
	if coherence.Type != "integer" || coherence.Description != "1-10" {
		t.Errorf("Metric schema fragment not honored: %+v", coherence)
	}
	if _, ok := format.Schema.Properties.Get("reasoning"); !ok {
		t.Error("Schema missing reasoning property")
	}
}
