package app

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fpt/simforge/pkg/scenario"
)

// entityPreviewLimit bounds how many attributes of other entities appear
// in a turn prompt, to keep prompts short.
const entityPreviewLimit = 2

// BuildTurnPrompt assembles the turn-specific context for one participant:
// global parameters, the full status of the entity it controls, and a brief
// preview of the other entities.
func BuildTurnPrompt(scn *scenario.Scenario, participant scenario.Participant, turn int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "It is now Turn %d.\n", turn)

	if len(scn.Parameters) > 0 {
		b.WriteString("\nGlobal Context:\n")
		for _, key := range sortedKeys(scn.Parameters) {
			fmt.Fprintf(&b, "  - %s: %v\n", titleKey(key), scn.Parameters[key])
		}
	}

	own := scn.Entity(participant.Controls)
	if len(own) > 0 {
		b.WriteString("\nYour Current Status:\n")
		for _, key := range sortedKeys(own) {
			fmt.Fprintf(&b, "  - %s: %v\n", titleKey(key), own[key])
		}
	}

	if len(scn.Entities) > 0 {
		b.WriteString("\nStatus of Other Participants:\n")
		for _, name := range sortedKeys(scn.Entities) {
			if name == participant.Controls {
				continue
			}
			fmt.Fprintf(&b, "  - %s:\n", name)
			attrs := scn.Entities[name]
			for i, key := range sortedKeys(attrs) {
				if i >= entityPreviewLimit {
					break
				}
				fmt.Fprintf(&b, "    - %s: %v\n", titleKey(key), attrs[key])
			}
		}
	}

	b.WriteString("\nBased on the current situation, what is your next move or statement?")
	return b.String()
}

// BuildScoringPrompt assembles the judge request: the scoring criteria plus
// the actions taken on the given turn only. Returns "" when the scenario has
// no scoring rules.
func BuildScoringPrompt(scn *scenario.Scenario, history []HistoryEntry, turn int) string {
	if !scn.HasScoring() {
		return ""
	}

	var b strings.Builder
	b.WriteString("You are an impartial judge. Based on the history of actions below, " +
		"please provide a brief reasoning for your scoring decisions and then score " +
		"each player on the following criteria:\n")
	for _, name := range sortedKeys(scn.ScoringRules) {
		fmt.Fprintf(&b, "  - %s: %s\n", name, scn.ScoringRules[name].Prompt)
	}

	b.WriteString("\n--- History of Actions ---\n")
	for _, event := range history {
		if event.Turn != turn {
			continue
		}
		fmt.Fprintf(&b, "Turn %d, %s: %s\n", event.Turn, event.Player, event.Action)
	}
	return b.String()
}

// titleKey turns an attribute key like "public_approval" into "Public Approval".
func titleKey(key string) string {
	words := strings.Split(strings.ReplaceAll(key, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
