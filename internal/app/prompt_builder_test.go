package app

import (
	"strings"
	"testing"

	"github.com/fpt/simforge/pkg/scenario"
)

func TestBuildTurnPrompt(t *testing.T) {
	scn := parseEngineScenario(t)
	player := scn.Players[0]

	prompt := BuildTurnPrompt(scn, player, 5)

	if !strings.Contains(prompt, "It is now Turn 5.") {
		t.Error("Expected turn number in prompt")
	}
	if !strings.Contains(prompt, "Global Context:") || !strings.Contains(prompt, "Global Tension: low") {
		t.Errorf("Expected titled global parameters, got:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Your Current Status:") {
		t.Error("Expected own status section")
	}
	// Own entity shows every attribute
	for _, attr := range []string{"Influence: 10", "Economy: 100", "Stability: 7"} {
		if !strings.Contains(prompt, attr) {
			t.Errorf("Expected own attribute %q, got:\n%s", attr, prompt)
		}
	}
	if !strings.Contains(prompt, "Status of Other Participants:") || !strings.Contains(prompt, "- China:") {
		t.Error("Expected other participants section")
	}
	if strings.Contains(prompt, "- USA:\n") {
		t.Error("Own entity should not appear among other participants")
	}
	if !strings.Contains(prompt, "what is your next move or statement?") {
		t.Error("Expected closing question")
	}
}

func TestBuildTurnPromptLimitsOtherEntityPreview(t *testing.T) {
	scn := parseEngineScenario(t)
	prompt := BuildTurnPrompt(scn, scn.Players[0], 1)

	// China has three attributes, only two may leak into the preview
	section := prompt[strings.Index(prompt, "Status of Other Participants:"):]
	shown := strings.Count(section, "    - ")
	if shown != entityPreviewLimit {
		t.Errorf("Expected %d preview attributes, got %d:\n%s", entityPreviewLimit, shown, section)
	}
}

func TestBuildScoringPromptFiltersByTurn(t *testing.T) {
	scn := parseEngineScenario(t)
	history := []HistoryEntry{
		{Turn: 1, Player: "Player1", Action: "old move"},
		{Turn: 2, Player: "Player1", Action: "fresh move"},
		{Turn: 2, Player: "Player2", Action: "counter move"},
	}

	prompt := BuildScoringPrompt(scn, history, 2)

	if !strings.Contains(prompt, "impartial judge") {
		t.Error("Expected judge preamble")
	}
	if !strings.Contains(prompt, "influence: Rate the influence gained this turn.") {
		t.Errorf("Expected scoring criterion, got:\n%s", prompt)
	}
	if strings.Contains(prompt, "old move") {
		t.Error("History from earlier turns must not appear")
	}
	if !strings.Contains(prompt, "Turn 2, Player1: fresh move") ||
		!strings.Contains(prompt, "Turn 2, Player2: counter move") {
		t.Errorf("Expected current-turn history, got:\n%s", prompt)
	}
}

func TestBuildScoringPromptEmptyWithoutRules(t *testing.T) {
	scn, err := scenario.Parse([]byte(`{"name": "No Scoring"}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := BuildScoringPrompt(scn, nil, 1); got != "" {
		t.Errorf("Expected empty prompt, got %q", got)
	}
}

func TestTitleKey(t *testing.T) {
	cases := map[string]string{
		"global_tension":  "Global Tension",
		"influence":       "Influence",
		"gdp_growth_rate": "Gdp Growth Rate",
	}
	for in, want := range cases {
		if got := titleKey(in); got != want {
			t.Errorf("titleKey(%q) = %q, want %q", in, got, want)
		}
	}
}
