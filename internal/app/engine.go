// Package app wires scenarios, sessions, the judge, and the scorecard into
// the turn loop, and carries the terminal front end around it.
package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fpt/simforge/internal/config"
	"github.com/fpt/simforge/internal/repository"
	"github.com/fpt/simforge/pkg/judge"
	"github.com/fpt/simforge/pkg/llm"
	pkgLogger "github.com/fpt/simforge/pkg/logger"
	"github.com/fpt/simforge/pkg/message"
	"github.com/fpt/simforge/pkg/scenario"
	"github.com/fpt/simforge/pkg/scorecard"
	"github.com/fpt/simforge/pkg/session"
)

var logger = pkgLogger.NewComponentLogger("engine")

// autosaveName is the save slot written after every completed turn
const autosaveName = "autosave"

// UI is the engine's view of the terminal front end. A nil UI runs headless.
type UI interface {
	ShowScores(card *scorecard.Scorecard)
	WaitForTurn()
}

// Engine drives the turn loop: it collects one action per AI participant,
// has the judge score the turn, applies the scores, and snapshots the run.
type Engine struct {
	scenario   *scenario.Scenario
	turn       int
	history    []HistoryEntry
	responders map[string]llm.Responder
	sessions   *session.Manager
	validator  *judge.Validator
	card       *scorecard.Scorecard
	saves      repository.SaveRepository
	settings   config.EngineSettings
	ui         UI
}

// NewEngine creates an engine for one scenario. responders maps participant
// names to their backends; scorer judges turns and summarizes long sessions.
// saves and ui may be nil for headless runs without persistence.
func NewEngine(scn *scenario.Scenario, responders map[string]llm.Responder, scorer llm.Responder, saves repository.SaveRepository, settings config.EngineSettings, ui UI) *Engine {
	if settings.MaxHistoryLength <= 0 {
		settings.MaxHistoryLength = session.DefaultMaxHistory
	}

	e := &Engine{
		scenario:   scn,
		responders: responders,
		sessions:   session.NewManager(scorer, settings.MaxHistoryLength),
		saves:      saves,
		settings:   settings,
		ui:         ui,
	}

	if scn.Scorecard != nil {
		e.card = scorecard.New(scn)
		e.card.Seed(scn.Entities)
	}
	if scorer != nil {
		e.validator = judge.NewValidator(scorer)
	}

	e.initializeSystemPrompts()
	return e
}

// initializeSystemPrompts seeds each AI participant's session with its
// system prompt before the first turn.
func (e *Engine) initializeSystemPrompts() {
	for _, player := range e.scenario.AIPlayers() {
		if _, ok := e.responders[player.Name]; !ok {
			continue
		}
		if player.SystemPrompt != "" {
			e.sessions.GetOrCreate(player.Name, player.SystemPrompt)
		}
	}
}

// Turn returns the last completed turn number
func (e *Engine) Turn() int { return e.turn }

// History returns the recorded actions so far
func (e *Engine) History() []HistoryEntry { return e.history }

// Scorecard returns the live scorecard, or nil when the scenario has none
func (e *Engine) Scorecard() *scorecard.Scorecard { return e.card }

// Scenario returns the scenario driving this run
func (e *Engine) Scenario() *scenario.Scenario { return e.scenario }

// Run executes turns until maxTurns is reached or ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	maxTurns := e.settings.MaxTurns
	if maxTurns <= 0 {
		maxTurns = config.DefaultMaxTurns
	}

	logger.Info("Engine is running", "scenario", e.scenario.Name, "max_turns", maxTurns)

	aiPlayers := e.scenario.AIPlayers()
	if len(aiPlayers) == 0 {
		logger.Warn("No AI players found in the scenario. The simulation will run without AI actions.")
	}

	for e.turn < maxTurns {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.turn++
		logger.Info("Starting turn", "turn", e.turn)

		for _, player := range aiPlayers {
			e.collectAction(ctx, player)
		}

		e.scoreTurn(ctx)

		if e.card != nil {
			e.card.SetTurnDate(e.scenario.TurnDate(e.turn))
			if e.ui != nil {
				e.ui.ShowScores(e.card)
			}
		}

		if err := e.autosave(); err != nil {
			logger.Warn("Autosave failed", "error", err)
		}

		if e.settings.StepThroughTurns && e.ui != nil && e.turn < maxTurns {
			e.ui.WaitForTurn()
		}
	}

	logger.Info("Simulation finished", "turns", e.turn)
	return nil
}

// collectAction asks one participant for its move and records it. A missing
// responder or a backend failure skips the participant for this turn.
func (e *Engine) collectAction(ctx context.Context, player scenario.Participant) {
	responder, ok := e.responders[player.Name]
	if !ok {
		logger.Warn("No LLM responder found for player. Skipping turn.", "player", player.Name)
		return
	}

	prompt := BuildTurnPrompt(e.scenario, player, e.turn)
	sess := e.sessions.GetOrCreate(player.Name, player.SystemPrompt)
	e.sessions.Record(player.Name, message.RoleUser, prompt)

	logger.Info("Getting action", "player", player.Name)
	reply, err := responder.Respond(ctx, sess.Messages(), nil)
	if err != nil {
		logger.Error("Failed to get action", "player", player.Name, "error", err)
		return
	}

	action := reply.Content()
	e.sessions.Record(player.Name, message.RoleAssistant, action)
	if err := e.sessions.MaybeSummarize(ctx, player.Name); err != nil {
		logger.Warn("Session summarization failed", "player", player.Name, "error", err)
	}

	logger.Info("AI action received", "player", player.Name, "action", action)
	e.history = append(e.history, HistoryEntry{
		Turn:   e.turn,
		Player: player.Name,
		Action: action,
	})
}

// scoreTurn asks the judge to score the actions of the current turn and
// applies the result. Judgment failures skip scoring for this turn only.
func (e *Engine) scoreTurn(ctx context.Context) {
	if e.card == nil || e.validator == nil {
		return
	}

	prompt := BuildScoringPrompt(e.scenario, e.history, e.turn)
	if prompt == "" {
		logger.Info("No scoring parameters found in the scenario. Skipping scoring.")
		return
	}

	participants := make([]string, 0, len(e.scenario.Players))
	for _, p := range e.scenario.Players {
		participants = append(participants, p.Controls)
	}
	format := judge.BuildResponseFormat(e.scenario.ScoringRules, participants)

	if e.settings.DebugMode {
		schemaJSON, _ := json.MarshalIndent(format.Schema, "", "  ")
		logger.Debug("Scoring LLM call", "prompt", prompt, "schema", string(schemaJSON))
	}

	judgment, err := e.validator.GetValidScores(ctx, prompt, format)
	if err != nil {
		logger.Warn("Could not obtain valid scores. Skipping scoring for this turn.",
			"turn", e.turn, "error", err)
		return
	}

	if e.settings.DebugMode {
		logger.Debug("Judge reasoning", "reasoning", judgment.Reasoning)
	}
	e.card.Update(judgment.Scores)
}

// Snapshot captures the current run state for persistence
func (e *Engine) Snapshot() *GameState {
	state := &GameState{
		Turn:     e.turn,
		Scenario: e.scenario,
		History:  e.history,
	}
	if e.card != nil {
		state.Scorecard = e.card.Data()
	} else {
		state.Scorecard = scorecard.ScoreTable{}
	}
	return state
}

// Restore resumes a run from a snapshot, rebuilding the scorecard from the
// embedded scenario and overlaying the saved score table.
func (e *Engine) Restore(state *GameState) {
	e.turn = state.Turn
	e.scenario = state.Scenario
	e.history = state.History

	if state.Scenario.Scorecard != nil {
		e.card = scorecard.New(state.Scenario)
		e.card.SetData(state.Scorecard)
	} else {
		e.card = nil
	}
}

func (e *Engine) autosave() error {
	if e.saves == nil {
		return nil
	}
	data, err := e.Snapshot().Marshal()
	if err != nil {
		return err
	}
	if err := e.saves.Save(autosaveName, data); err != nil {
		return fmt.Errorf("failed to autosave: %w", err)
	}
	logger.Info("Game auto-saved", "turn", e.turn)
	return nil
}
