// Package scenario holds the declarative configuration for one simulation
// run: participants, entity attribute bags, global parameters, scoring
// rules, and the scorecard template. A loaded scenario is read-only for the
// duration of a run.
package scenario

import (
	"encoding/json"
	"fmt"
	"time"
)

// Participant kinds
const (
	KindAI    = "ai"
	KindHuman = "human"
)

// Scoring rule kinds
const (
	RuleAbsolute   = "absolute"
	RuleCalculated = "calculated"
)

// Scorecard render modes
const (
	RenderText = "text"
	RenderJSON = "json"
)

const defaultStartDate = "2024-01-01"

// Attributes is a schema-less attribute bag. Scenario authors can add
// arbitrary fields, so entities and parameters stay untyped key-value data.
type Attributes = map[string]any

// Participant is a named actor in the simulation
type Participant struct {
	Name         string `json:"name"`
	Kind         string `json:"type"`
	Controls     string `json:"controls,omitempty"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	// Model optionally routes this participant to a specific backend model
	Model string `json:"model,omitempty"`
}

// ScoringRule declares how one metric is updated from a judgment value
type ScoringRule struct {
	Kind        string         `json:"type"`
	Calculation string         `json:"calculation,omitempty"`
	Prompt      string         `json:"prompt,omitempty"`
	ToolSchema  map[string]any `json:"tool_schema,omitempty"`
}

// Template is the scorecard presentation template. For RenderJSON the
// Template value is an arbitrarily nested structure of strings, lists, and
// mappings; for RenderText it is a single string.
type Template struct {
	RenderType string `json:"render_type,omitempty"`
	Template   any    `json:"template,omitempty"`
}

// Scenario is the immutable-for-the-run configuration of a simulation
type Scenario struct {
	Name            string
	Description     string
	StartDate       string
	PlayerEntityKey string
	// Entities is the attribute bag group keyed by PlayerEntityKey in the
	// scenario file (e.g. "countries", "philosophers").
	Entities     map[string]Attributes
	Parameters   Attributes
	Players      []Participant
	ScoringRules map[string]ScoringRule
	Scorecard    *Template
}

// scenarioFixedFields covers the statically-keyed part of a scenario file;
// the entity group lives under the dynamic key named by player_entity_key.
type scenarioFixedFields struct {
	Name            string                 `json:"name"`
	Description     string                 `json:"description,omitempty"`
	StartDate       string                 `json:"start_date,omitempty"`
	PlayerEntityKey string                 `json:"player_entity_key,omitempty"`
	Parameters      Attributes             `json:"parameters,omitempty"`
	Players         []Participant          `json:"players,omitempty"`
	ScoringRules    map[string]ScoringRule `json:"scoring_parameters,omitempty"`
	Scorecard       *Template              `json:"scorecard,omitempty"`
}

// UnmarshalJSON decodes a scenario file, resolving the entity group through
// the player_entity_key indirection.
func (s *Scenario) UnmarshalJSON(data []byte) error {
	var fixed scenarioFixedFields
	if err := json.Unmarshal(data, &fixed); err != nil {
		return err
	}

	s.Name = fixed.Name
	s.Description = fixed.Description
	s.StartDate = fixed.StartDate
	s.PlayerEntityKey = fixed.PlayerEntityKey
	s.Parameters = fixed.Parameters
	s.Players = fixed.Players
	s.ScoringRules = fixed.ScoringRules
	s.Scorecard = fixed.Scorecard
	s.Entities = nil

	if fixed.PlayerEntityKey == "" {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	group, ok := raw[fixed.PlayerEntityKey]
	if !ok {
		return nil
	}
	entities := make(map[string]Attributes)
	if err := json.Unmarshal(group, &entities); err != nil {
		return fmt.Errorf("entity group %q is malformed: %w", fixed.PlayerEntityKey, err)
	}
	s.Entities = entities
	return nil
}

// MarshalJSON writes the scenario back in file form, with the entity group
// under its dynamic key. Needed so persisted game state embeds a loadable
// scenario copy.
func (s Scenario) MarshalJSON() ([]byte, error) {
	fixed := scenarioFixedFields{
		Name:            s.Name,
		Description:     s.Description,
		StartDate:       s.StartDate,
		PlayerEntityKey: s.PlayerEntityKey,
		Parameters:      s.Parameters,
		Players:         s.Players,
		ScoringRules:    s.ScoringRules,
		Scorecard:       s.Scorecard,
	}

	data, err := json.Marshal(fixed)
	if err != nil {
		return nil, err
	}
	if s.PlayerEntityKey == "" || s.Entities == nil {
		return data, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	group, err := json.Marshal(s.Entities)
	if err != nil {
		return nil, err
	}
	raw[s.PlayerEntityKey] = group
	return json.Marshal(raw)
}

// Parse decodes and validates scenario file contents
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("scenario is missing required field %q", "name")
	}
	return &s, nil
}

// AIPlayers returns the AI-driven participants in scenario-declared order
func (s *Scenario) AIPlayers() []Participant {
	var players []Participant
	for _, p := range s.Players {
		if p.Kind == KindAI {
			players = append(players, p)
		}
	}
	return players
}

// Entity returns the attribute bag for one named entity
func (s *Scenario) Entity(name string) Attributes {
	if s.Entities == nil {
		return nil
	}
	return s.Entities[name]
}

// HasScoring reports whether the scenario declares any scoring rules
func (s *Scenario) HasScoring() bool {
	return len(s.ScoringRules) > 0
}

// TurnDate derives a display date for a turn from the scenario start date,
// advancing 30 days per turn.
func (s *Scenario) TurnDate(turn int) string {
	startDate := s.StartDate
	if startDate == "" {
		startDate = defaultStartDate
	}
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return startDate
	}
	return start.AddDate(0, 0, 30*turn).Format("2006-01-02")
}
