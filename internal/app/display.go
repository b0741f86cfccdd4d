package app

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/chzyer/readline"
	"github.com/manifoldco/promptui"

	"github.com/fpt/simforge/pkg/scenario"
	"github.com/fpt/simforge/pkg/scorecard"
)

var (
	welcomeStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#2196F3")).
			Padding(0, 1)

	scorecardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#8BC34A")).
			Padding(0, 1)

	detailKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4db6ac")).
			Bold(true)

	historyPlayerStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFC107")).
				Bold(true)

	panelTitleStyle = lipgloss.NewStyle().Bold(true)
)

// Display renders simulation state to the terminal.
type Display struct {
	out         io.Writer
	historyFile string
}

// NewDisplay creates a terminal display. historyFile backs the step-through
// readline prompt and may be empty.
func NewDisplay(historyFile string) *Display {
	return NewDisplayWithWriter(os.Stdout, historyFile)
}

// NewDisplayWithWriter builds a display that renders to the given writer
func NewDisplayWithWriter(out io.Writer, historyFile string) *Display {
	return &Display{out: out, historyFile: historyFile}
}

// ShowWelcome prints the welcome panel for a loaded scenario.
func (d *Display) ShowWelcome(scenarioName string) {
	body := fmt.Sprintf("Welcome to simforge!\nLoaded scenario: %s", scenarioName)
	fmt.Fprintln(d.out, welcomeStyle.Render(body))
}

// ShowScenarioDetails prints a key/value table of the scenario fields.
func (d *Display) ShowScenarioDetails(scn *scenario.Scenario) {
	var b strings.Builder
	b.WriteString(panelTitleStyle.Render("Scenario Details"))
	b.WriteString("\n")

	writeRow := func(key, value string) {
		fmt.Fprintf(&b, "%s  %s\n", detailKeyStyle.Render(fmt.Sprintf("%-16s", key)), value)
	}

	writeRow("name", scn.Name)
	if scn.Description != "" {
		writeRow("description", scn.Description)
	}
	if scn.StartDate != "" {
		writeRow("start_date", scn.StartDate)
	}
	if len(scn.Players) > 0 {
		names := make([]string, 0, len(scn.Players))
		for _, p := range scn.Players {
			names = append(names, fmt.Sprintf("%s (%s)", p.Name, p.Kind))
		}
		writeRow("players", strings.Join(names, ", "))
	}
	if len(scn.Entities) > 0 {
		names := make([]string, 0, len(scn.Entities))
		for name := range scn.Entities {
			names = append(names, name)
		}
		sort.Strings(names)
		writeRow(scn.PlayerEntityKey, strings.Join(names, ", "))
	}
	for _, key := range sortedKeys(scn.Parameters) {
		writeRow(key, fmt.Sprintf("%v", scn.Parameters[key]))
	}

	fmt.Fprintln(d.out, b.String())
}

// ShowScores prints the rendered scorecard panel.
func (d *Display) ShowScores(card *scorecard.Scorecard) {
	if card == nil {
		return
	}
	content := panelTitleStyle.Render("Scorecard") + "\n" + card.Render()
	fmt.Fprintln(d.out, scorecardStyle.Render(content))
}

// ShowHistory prints the recorded actions, used by replay mode.
func (d *Display) ShowHistory(history []HistoryEntry) {
	currentTurn := 0
	for _, event := range history {
		if event.Turn != currentTurn {
			currentTurn = event.Turn
			fmt.Fprintln(d.out, panelTitleStyle.Render(fmt.Sprintf("--- Turn %d ---", currentTurn)))
		}
		fmt.Fprintf(d.out, "%s: %s\n", historyPlayerStyle.Render(event.Player), event.Action)
	}
}

// WaitForTurn blocks until the user presses Enter.
func (d *Display) WaitForTurn() {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "Press Enter to continue to the next turn...",
		HistoryFile: d.historyFile,
	})
	if err != nil {
		// Terminal unavailable, don't stall the run
		return
	}
	defer rl.Close()
	_, _ = rl.Readline()
}

// SelectFromList shows an interactive picker and returns the chosen item.
func SelectFromList(label string, items []string) (string, error) {
	prompt := promptui.Select{
		Label: label,
		Items: items,
		Size:  10,
		Searcher: func(input string, index int) bool {
			item := strings.ToLower(items[index])
			return strings.Contains(item, strings.ToLower(input))
		},
	}
	_, result, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("selection cancelled: %w", err)
	}
	return result, nil
}

var _ UI = (*Display)(nil)
