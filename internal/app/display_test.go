package app

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fpt/simforge/pkg/scorecard"
)

func TestDisplayShowWelcome(t *testing.T) {
	var buf bytes.Buffer
	d := NewDisplayWithWriter(&buf, "")

	d.ShowWelcome("Trade Summit")

	out := buf.String()
	if !strings.Contains(out, "Welcome to simforge!") {
		t.Errorf("Expected welcome banner, got:\n%s", out)
	}
	if !strings.Contains(out, "Trade Summit") {
		t.Errorf("Expected scenario name, got:\n%s", out)
	}
}

func TestDisplayShowScenarioDetails(t *testing.T) {
	var buf bytes.Buffer
	d := NewDisplayWithWriter(&buf, "")
	scn := parseEngineScenario(t)

	d.ShowScenarioDetails(scn)

	out := buf.String()
	for _, want := range []string{"Scenario Details", "Trade Summit", "Player1 (ai)", "China, USA", "global_tension"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in details, got:\n%s", want, out)
		}
	}
}

func TestDisplayShowScores(t *testing.T) {
	var buf bytes.Buffer
	d := NewDisplayWithWriter(&buf, "")
	scn := parseEngineScenario(t)

	card := scorecard.New(scn)
	card.Seed(scn.Entities)
	d.ShowScores(card)

	out := buf.String()
	if !strings.Contains(out, "Scorecard") {
		t.Errorf("Expected scorecard title, got:\n%s", out)
	}
	if !strings.Contains(out, "USA influence: 10") {
		t.Errorf("Expected rendered template, got:\n%s", out)
	}

	// Nil card renders nothing
	buf.Reset()
	d.ShowScores(nil)
	if buf.Len() != 0 {
		t.Errorf("Expected no output for nil scorecard, got:\n%s", buf.String())
	}
}

func TestDisplayShowHistoryGroupsByTurn(t *testing.T) {
	var buf bytes.Buffer
	d := NewDisplayWithWriter(&buf, "")

	d.ShowHistory([]HistoryEntry{
		{Turn: 1, Player: "Player1", Action: "open"},
		{Turn: 1, Player: "Player2", Action: "respond"},
		{Turn: 2, Player: "Player1", Action: "press"},
	})

	out := buf.String()
	if strings.Count(out, "--- Turn 1 ---") != 1 {
		t.Errorf("Expected a single turn 1 header, got:\n%s", out)
	}
	if !strings.Contains(out, "--- Turn 2 ---") {
		t.Errorf("Expected turn 2 header, got:\n%s", out)
	}
	if !strings.Contains(out, "open") || !strings.Contains(out, "press") {
		t.Errorf("Expected actions in history, got:\n%s", out)
	}
}

func TestReplayRendersSavedRun(t *testing.T) {
	var buf bytes.Buffer
	d := NewDisplayWithWriter(&buf, "")
	scn := parseEngineScenario(t)

	state := &GameState{
		Turn:     2,
		Scenario: scn,
		History: []HistoryEntry{
			{Turn: 1, Player: "Player1", Action: "negotiate"},
		},
		Scorecard: scorecard.ScoreTable{"USA": {"influence": 14.0}},
	}

	Replay(state, d)

	out := buf.String()
	for _, want := range []string{"Trade Summit", "--- Turn 1 ---", "negotiate", "USA influence: 14"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in replay output, got:\n%s", want, out)
		}
	}
}
