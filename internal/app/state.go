package app

import (
	"encoding/json"
	"fmt"

	"github.com/fpt/simforge/pkg/scenario"
	"github.com/fpt/simforge/pkg/scorecard"
)

// HistoryEntry records one participant action taken on one turn
type HistoryEntry struct {
	Turn   int    `json:"turn"`
	Player string `json:"player"`
	Action string `json:"action"`
}

// GameState is the persisted snapshot of a run. It embeds the full scenario
// so a save file is self-contained and loadable without the original
// scenario file.
type GameState struct {
	Turn      int                  `json:"turn"`
	Scenario  *scenario.Scenario   `json:"scenario"`
	History   []HistoryEntry       `json:"history"`
	Scorecard scorecard.ScoreTable `json:"scorecard"`
}

// Marshal encodes the state as indented JSON for save files
func (s *GameState) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal game state: %w", err)
	}
	return data, nil
}

// ParseGameState decodes a save file payload
func ParseGameState(data []byte) (*GameState, error) {
	var state GameState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse game state: %w", err)
	}
	if state.Scenario == nil {
		return nil, fmt.Errorf("game state is missing its scenario")
	}
	return &state, nil
}
