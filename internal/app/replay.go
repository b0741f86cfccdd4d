package app

import (
	"github.com/fpt/simforge/pkg/scorecard"
)

// Replay renders a saved run to the terminal without invoking any backend:
// scenario details, the full action history, and the final scorecard.
func Replay(state *GameState, d *Display) {
	d.ShowWelcome(state.Scenario.Name)
	d.ShowScenarioDetails(state.Scenario)
	d.ShowHistory(state.History)

	if state.Scenario.Scorecard == nil {
		return
	}
	card := scorecard.New(state.Scenario)
	card.SetData(state.Scorecard)
	card.SetTurnDate(state.Scenario.TurnDate(state.Turn))
	d.ShowScores(card)
}
