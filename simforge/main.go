package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/fpt/simforge/internal/app"
	"github.com/fpt/simforge/internal/config"
	"github.com/fpt/simforge/internal/infra"
	"github.com/fpt/simforge/internal/repository"
	"github.com/fpt/simforge/pkg/client"
	"github.com/fpt/simforge/pkg/llm"
	pkgLogger "github.com/fpt/simforge/pkg/logger"
	"github.com/fpt/simforge/pkg/scenario"
)

const defaultScenariosDir = "scenarios"

// resolveStringFlag returns the non-empty value, preferring short flag over long flag
func resolveStringFlag(shortVal, longVal string) string {
	if shortVal != "" {
		return shortVal
	}
	return longVal
}

func printUsage() {
	fmt.Println("simforge - turn-based multi-agent LLM simulation engine")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  simforge                                  # Pick a scenario interactively")
	fmt.Println("  simforge -scenario modern_day_usa         # Run a named scenario")
	fmt.Println("  simforge -scenario modern_day_usa -turns 5")
	fmt.Println("  simforge -b anthropic -m claude-sonnet-4-5-20250929")
	fmt.Println("  simforge -load autosave                   # Resume a saved run")
	fmt.Println("  simforge -replay -load autosave           # Replay a save without any LLM")
	fmt.Println("  simforge -step                            # Pause for Enter between turns")
	fmt.Println()
}

func main() {
	ctx := context.Background()

	var scenarioName = flag.String("scenario", "", "Scenario name to run (from the scenarios directory)")
	var loadName = flag.String("load", "", "Save name to resume from")
	var replay = flag.Bool("replay", false, "Replay a save without invoking any LLM")
	var turns = flag.Int("turns", 0, "Maximum number of turns (overrides settings)")
	var backend = flag.String("b", "", "LLM backend (ollama, anthropic, openai, or gemini)")
	var backendLong = flag.String("backend", "", "LLM backend (ollama, anthropic, openai, or gemini)")
	var model = flag.String("m", "", "Model name to use")
	var modelLong = flag.String("model", "", "Model name to use")
	var settingsPath = flag.String("settings", "", "Path to settings file")
	var step = flag.Bool("step", false, "Pause for Enter between turns")
	var verbose = flag.Bool("v", false, "Enable verbose logging (debug level)")
	var verboseLong = flag.Bool("verbose", false, "Enable verbose logging (debug level)")
	var help = flag.Bool("h", false, "Show this help message")
	var helpLong = flag.Bool("help", false, "Show this help message")

	flag.Usage = func() {
		printUsage()
		fmt.Println("Flags:")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *help || *helpLong {
		flag.Usage()
		return
	}

	// Provider API keys may live in a local .env
	_ = godotenv.Load()

	resolvedBackend := resolveStringFlag(*backend, *backendLong)
	resolvedModel := resolveStringFlag(*model, *modelLong)
	resolvedVerbose := *verbose || *verboseLong

	settings, err := config.LoadSettings(*settingsPath)
	if err != nil {
		fmt.Printf("Warning: failed to load settings: %v\n", err)
		settings = config.GetDefaultSettings()
	}

	// Override settings with command line arguments
	if resolvedBackend != "" {
		settings.LLM = config.GetDefaultLLMSettingsForBackend(resolvedBackend)
		if resolvedModel != "" {
			settings.LLM.Model = resolvedModel
		}
	} else if resolvedModel != "" {
		settings.LLM.Model = resolvedModel
	}
	if *turns > 0 {
		settings.Engine.MaxTurns = *turns
	}
	if *step {
		settings.Engine.StepThroughTurns = true
	}

	logLevel := settings.Engine.LogLevel
	if resolvedVerbose {
		logLevel = "debug"
		settings.Engine.DebugMode = true
	}
	pkgLogger.SetGlobalLogLevel(pkgLogger.LogLevel(logLevel))
	logger := pkgLogger.NewComponentLogger("main")

	userCfg, err := config.DefaultUserConfig()
	if err != nil {
		logger.Error("Failed to prepare user directories", "error", err)
		os.Exit(1)
	}

	savesDir := settings.Engine.SavesDir
	if savesDir == "" {
		savesDir = userCfg.SavesDir
	}
	scenariosDir := settings.Engine.ScenariosDir
	if scenariosDir == "" {
		scenariosDir = defaultScenariosDir
	}

	saveRepo := infra.NewFileSaveRepository(savesDir)
	scenarioRepo := infra.NewFileScenarioRepository(scenariosDir)
	display := app.NewDisplay(userCfg.HistoryFile)

	if *replay {
		if err := runReplay(saveRepo, *loadName, display); err != nil {
			logger.Error("Replay failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := config.ValidateSettings(settings); err != nil {
		logger.Error("Settings validation failed", "error", err)
		os.Exit(1)
	}

	var state *app.GameState
	var scn *scenario.Scenario

	if *loadName != "" {
		state, err = loadGameState(saveRepo, *loadName)
		if err != nil {
			logger.Error("Failed to load save", "save", *loadName, "error", err)
			os.Exit(1)
		}
		scn = state.Scenario
	} else {
		scn, err = loadScenario(scenarioRepo, *scenarioName)
		if err != nil {
			logger.Error("Failed to load scenario", "error", err)
			os.Exit(1)
		}
	}

	responders, scorer, err := buildResponders(settings.LLM, scn)
	if err != nil {
		logger.Error("Failed to create LLM clients", "error", err)
		os.Exit(1)
	}

	engine := app.NewEngine(scn, responders, scorer, saveRepo, settings.Engine, display)
	if state != nil {
		engine.Restore(state)
		logger.Info("Resumed saved run", "save", *loadName, "turn", state.Turn)
	}

	display.ShowWelcome(scn.Name)
	display.ShowScenarioDetails(scn)

	if err := engine.Run(ctx); err != nil {
		logger.Error("Simulation aborted", "error", err)
		os.Exit(1)
	}
}

// buildResponders creates one backend client per AI participant, honoring
// per-participant model overrides, plus the scorer/summarizer client.
func buildResponders(llmSettings config.LLMSettings, scn *scenario.Scenario) (map[string]llm.Responder, llm.Responder, error) {
	responders := make(map[string]llm.Responder)
	for _, player := range scn.AIPlayers() {
		responder, err := client.NewResponder(llmSettings, player.Model)
		if err != nil {
			return nil, nil, fmt.Errorf("client for %s: %w", player.Name, err)
		}
		responders[player.Name] = responder
	}

	scorer, err := client.NewResponder(llmSettings, "")
	if err != nil {
		return nil, nil, fmt.Errorf("scorer client: %w", err)
	}
	return responders, scorer, nil
}

// loadScenario loads the named scenario, or lets the user pick one when no
// name was given.
func loadScenario(repo repository.ScenarioRepository, name string) (*scenario.Scenario, error) {
	if name == "" {
		names, err := repo.List()
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("no scenarios found")
		}
		name, err = app.SelectFromList("Choose a scenario", names)
		if err != nil {
			return nil, err
		}
	}

	data, err := repo.Load(name)
	if err != nil {
		return nil, err
	}
	return scenario.Parse(data)
}

// loadGameState loads the named save, or lets the user pick one.
func loadGameState(repo repository.SaveRepository, name string) (*app.GameState, error) {
	if name == "" {
		names, err := repo.List()
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("no saves found")
		}
		name, err = app.SelectFromList("Choose a save", names)
		if err != nil {
			return nil, err
		}
	}

	data, err := repo.Load(name)
	if err != nil {
		return nil, err
	}
	return app.ParseGameState(data)
}

func runReplay(repo repository.SaveRepository, name string, display *app.Display) error {
	state, err := loadGameState(repo, name)
	if err != nil {
		return err
	}
	app.Replay(state, display)
	return nil
}
