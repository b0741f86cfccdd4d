package app

import (
	"context"
	"testing"

	"github.com/fpt/simforge/internal/config"
	"github.com/fpt/simforge/internal/infra"
	"github.com/fpt/simforge/pkg/llm"
	"github.com/fpt/simforge/pkg/message"
	"github.com/fpt/simforge/pkg/scenario"
)

// fakeResponder replays canned replies and counts calls.
type fakeResponder struct {
	replies []string
	calls   int
	err     error
}

func (f *fakeResponder) Respond(_ context.Context, _ []message.Message, _ *llm.ResponseFormat) (message.Message, error) {
	if f.err != nil {
		return message.Message{}, f.err
	}
	idx := f.calls
	if idx >= len(f.replies) {
		idx = len(f.replies) - 1
	}
	f.calls++
	return message.New(message.RoleAssistant, f.replies[idx]), nil
}

func (f *fakeResponder) ModelID() string { return "fake-model" }

const engineScenarioJSON = `{
	"name": "Trade Summit",
	"start_date": "2024-01-01",
	"player_entity_key": "countries",
	"countries": {
		"USA": {"influence": 10, "economy": 100, "stability": 7},
		"China": {"influence": 12, "economy": 90, "stability": 8}
	},
	"parameters": {"global_tension": "low"},
	"players": [
		{"name": "Player1", "type": "ai", "controls": "USA", "system_prompt": "You lead the USA."},
		{"name": "Player2", "type": "ai", "controls": "China", "system_prompt": "You lead China."}
	],
	"scoring_parameters": {
		"influence": {
			"type": "calculated",
			"calculation": "current_value + llm_judgement",
			"prompt": "Rate the influence gained this turn.",
			"tool_schema": {"type": "number"}
		}
	},
	"scorecard": {
		"render_type": "text",
		"template": "USA influence: {USA.influence}"
	}
}`

func parseEngineScenario(t *testing.T) *scenario.Scenario {
	t.Helper()
	scn, err := scenario.Parse([]byte(engineScenarioJSON))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return scn
}

func TestEngineRunsToMaxTurns(t *testing.T) {
	scn := parseEngineScenario(t)

	actor1 := &fakeResponder{replies: []string{"Expand trade routes."}}
	actor2 := &fakeResponder{replies: []string{"Invest in manufacturing."}}
	scorer := &fakeResponder{replies: []string{
		`{"scores": {"USA": {"influence": 2}, "China": {"influence": 1}}, "reasoning": "steady"}`,
	}}

	engine := NewEngine(scn, map[string]llm.Responder{
		"Player1": actor1,
		"Player2": actor2,
	}, scorer, nil, config.EngineSettings{MaxTurns: 3, MaxHistoryLength: 100}, nil)

	if err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if engine.Turn() != 3 {
		t.Errorf("Expected 3 turns, got %d", engine.Turn())
	}
	if len(engine.History()) != 6 {
		t.Errorf("Expected 6 history entries, got %d", len(engine.History()))
	}
	if scorer.calls != 3 {
		t.Errorf("Expected 3 scoring calls, got %d", scorer.calls)
	}

	// Seeded 10, three turns at +2 each
	influence := engine.Scorecard().Data()["USA"]["influence"]
	if got, ok := influence.(float64); !ok || got != 16 {
		t.Errorf("Expected USA influence 16, got %v", influence)
	}
}

func TestEngineSkipsParticipantWithoutResponder(t *testing.T) {
	scn := parseEngineScenario(t)
	actor := &fakeResponder{replies: []string{"Hold position."}}

	engine := NewEngine(scn, map[string]llm.Responder{"Player1": actor},
		nil, nil, config.EngineSettings{MaxTurns: 2}, nil)

	if err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(engine.History()) != 2 {
		t.Fatalf("Expected 2 history entries, got %d", len(engine.History()))
	}
	for _, event := range engine.History() {
		if event.Player != "Player1" {
			t.Errorf("Unexpected history entry for %s", event.Player)
		}
	}
}

func TestEngineContinuesWhenJudgmentInvalid(t *testing.T) {
	scn := parseEngineScenario(t)
	actor1 := &fakeResponder{replies: []string{"Act."}}
	actor2 := &fakeResponder{replies: []string{"React."}}
	scorer := &fakeResponder{replies: []string{"this is not json"}}

	engine := NewEngine(scn, map[string]llm.Responder{
		"Player1": actor1,
		"Player2": actor2,
	}, scorer, nil, config.EngineSettings{MaxTurns: 2}, nil)

	if err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if engine.Turn() != 2 {
		t.Errorf("Expected run to continue past scoring failures, got turn %d", engine.Turn())
	}
	// Score table keeps its seeded values
	influence := engine.Scorecard().Data()["USA"]["influence"]
	if got, ok := influence.(float64); !ok || got != 10 {
		t.Errorf("Expected seeded influence 10, got %v", influence)
	}
}

func TestEngineNoAIPlayers(t *testing.T) {
	scn, err := scenario.Parse([]byte(`{
		"name": "Observers Only",
		"players": [{"name": "Human", "type": "human", "controls": "HQ"}]
	}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	engine := NewEngine(scn, nil, nil, nil, config.EngineSettings{MaxTurns: 2}, nil)
	if err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if engine.Turn() != 2 {
		t.Errorf("Expected 2 turns, got %d", engine.Turn())
	}
	if len(engine.History()) != 0 {
		t.Errorf("Expected empty history, got %d entries", len(engine.History()))
	}
}

func TestEngineAutosavesEveryTurn(t *testing.T) {
	scn := parseEngineScenario(t)
	actor := &fakeResponder{replies: []string{"Negotiate."}}
	saves := infra.NewFileSaveRepository(t.TempDir())

	engine := NewEngine(scn, map[string]llm.Responder{"Player1": actor},
		nil, saves, config.EngineSettings{MaxTurns: 2}, nil)

	if err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	data, err := saves.Load(autosaveName)
	if err != nil {
		t.Fatalf("Expected autosave to exist: %v", err)
	}
	state, err := ParseGameState(data)
	if err != nil {
		t.Fatalf("ParseGameState failed: %v", err)
	}
	if state.Turn != 2 {
		t.Errorf("Expected autosave at turn 2, got %d", state.Turn)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	scn := parseEngineScenario(t)
	actor1 := &fakeResponder{replies: []string{"Open markets."}}
	actor2 := &fakeResponder{replies: []string{"Raise tariffs."}}
	scorer := &fakeResponder{replies: []string{
		`{"scores": {"USA": {"influence": 3}}, "reasoning": "bold"}`,
	}}

	engine := NewEngine(scn, map[string]llm.Responder{
		"Player1": actor1,
		"Player2": actor2,
	}, scorer, nil, config.EngineSettings{MaxTurns: 1}, nil)
	if err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	data, err := engine.Snapshot().Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	state, err := ParseGameState(data)
	if err != nil {
		t.Fatalf("ParseGameState failed: %v", err)
	}

	restored := NewEngine(state.Scenario, nil, nil, nil, config.EngineSettings{}, nil)
	restored.Restore(state)

	if restored.Turn() != 1 {
		t.Errorf("Expected restored turn 1, got %d", restored.Turn())
	}
	if len(restored.History()) != 2 {
		t.Errorf("Expected 2 restored history entries, got %d", len(restored.History()))
	}
	if restored.Scenario().Name != "Trade Summit" {
		t.Errorf("Expected restored scenario name, got %q", restored.Scenario().Name)
	}
	influence := restored.Scorecard().Data()["USA"]["influence"]
	if got, ok := influence.(float64); !ok || got != 13 {
		t.Errorf("Expected restored influence 13, got %v", influence)
	}
}

func TestRestoreWithoutScorecard(t *testing.T) {
	scn, err := scenario.Parse([]byte(`{"name": "Bare"}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	engine := NewEngine(scn, nil, nil, nil, config.EngineSettings{}, nil)

	engine.Restore(&GameState{Turn: 4, Scenario: scn, History: nil})
	if engine.Scorecard() != nil {
		t.Error("Expected nil scorecard for scenario without a template")
	}
	if engine.Turn() != 4 {
		t.Errorf("Expected turn 4, got %d", engine.Turn())
	}
}
