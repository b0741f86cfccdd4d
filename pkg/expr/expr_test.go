package expr

import (
	"errors"
	"strings"
	"testing"
)

func TestEvalLeftToRightNoPrecedence(t *testing.T) {
	ctx := map[string]any{
		"current_value": 1.0,
		"llm_judgement": 2.0,
	}

	// ((1 + 2) * 2) = 6, not 1 + (2 * 2) = 5
	got, err := EvalNumber("current_value + llm_judgement * 2", ctx)
	if err != nil {
		t.Fatalf("EvalNumber failed: %v", err)
	}
	if got != 6 {
		t.Errorf("Expected left-to-right result 6, got %v", got)
	}
}

func TestEvalArithmetic(t *testing.T) {
	tests := []struct {
		expr string
		ctx  map[string]any
		want float64
	}{
		{"1 + 2", nil, 3},
		{"10 - 4", nil, 6},
		{"3 * 4", nil, 12},
		{"8 / 2", nil, 4},
		{"(2 + 3) * 4", nil, 20},
		{"2 + (3 * 4)", nil, 14},
		{"-5 + 10", nil, 5},
		{"current_value + llm_judgement", map[string]any{"current_value": 10.0, "llm_judgement": 5.0}, 15},
		{"current_value + llm_judgement", map[string]any{"current_value": 13.0, "llm_judgement": -2.0}, 11},
	}

	for _, tt := range tests {
		got, err := EvalNumber(tt.expr, tt.ctx)
		if err != nil {
			t.Errorf("EvalNumber(%q) failed: %v", tt.expr, err)
			continue
		}
		if got != tt.want {
			t.Errorf("EvalNumber(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestEvalRejectsDisallowedCharacters(t *testing.T) {
	for _, expression := range []string{
		"1 % 2",
		"2 ^ 3",
		"a > b",
		"x; y",
		"__import__('os')!",
	} {
		_, err := Eval(expression, nil)
		if err == nil {
			t.Errorf("Eval(%q) should have failed", expression)
			continue
		}
		if !errors.Is(err, ErrSyntax) && !errors.Is(err, ErrValue) {
			t.Errorf("Eval(%q) returned unexpected error class: %v", expression, err)
		}
	}

	// The character filter specifically must trip before evaluation
	if _, err := Eval("1 % 2", nil); !errors.Is(err, ErrSyntax) {
		t.Errorf("Expected ErrSyntax for disallowed character, got %v", err)
	}
}

func TestEvalUnknownIdentifier(t *testing.T) {
	_, err := Eval("missing + 1", map[string]any{"present": 1.0})
	if !errors.Is(err, ErrValue) {
		t.Fatalf("Expected ErrValue, got %v", err)
	}
	if got := err.Error(); !strings.Contains(got, "missing") {
		t.Errorf("Error should name the offending token, got %q", got)
	}
}

func TestEvalDottedLookup(t *testing.T) {
	ctx := map[string]any{
		"USA": map[string]any{"influence": 42.0},
	}

	got, err := EvalNumber("USA.influence", ctx)
	if err != nil {
		t.Fatalf("EvalNumber failed: %v", err)
	}
	if got != 42 {
		t.Errorf("Expected 42, got %v", got)
	}

	if _, err := Eval("USA.gdp", ctx); !errors.Is(err, ErrValue) {
		t.Errorf("Expected ErrValue for missing nested key, got %v", err)
	}
}

func TestEvalConditional(t *testing.T) {
	ctx := map[string]any{"score": 5.0}

	got, err := Eval("'high' if score else 'low'", ctx)
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if got != "high" {
		t.Errorf("Expected 'high', got %v", got)
	}

	got, err = Eval("'yes' if score == 7 else 'no'", ctx)
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if got != "no" {
		t.Errorf("Expected 'no', got %v", got)
	}
}

func TestEvalStringLiterals(t *testing.T) {
	got, err := Eval(`"hello" + ' ' + 'world'`, nil)
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if got != "hello world" {
		t.Errorf("Expected concatenation, got %v", got)
	}
}

func TestEvalDivisionByZero(t *testing.T) {
	if _, err := Eval("1 / 0", nil); !errors.Is(err, ErrValue) {
		t.Errorf("Expected ErrValue for division by zero, got %v", err)
	}
}

func TestEvalEmptyExpression(t *testing.T) {
	if _, err := Eval("   ", nil); !errors.Is(err, ErrSyntax) {
		t.Errorf("Expected ErrSyntax for empty expression, got %v", err)
	}
}
