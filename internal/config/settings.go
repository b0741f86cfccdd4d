package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fpt/simforge/internal/infra"
	"github.com/fpt/simforge/internal/repository"
)

const (
	// DefaultMaxTurns bounds a run when the scenario does not say otherwise
	DefaultMaxTurns = 10
	// DefaultMaxHistoryLength is the per-participant message count that triggers summarization
	DefaultMaxHistoryLength = 40
)

// Settings represents the main application settings
type Settings struct {
	LLM    LLMSettings    `json:"llm"`
	Engine EngineSettings `json:"engine"`

	// Repository for persistence (nil for in-memory only)
	settingsRepository repository.SettingsRepository `json:"-"`
}

// LLMSettings contains LLM client configuration
type LLMSettings struct {
	Backend   string `json:"backend"`              // "ollama", "anthropic", "openai", or "gemini"
	Model     string `json:"model"`                // model name
	BaseURL   string `json:"base_url,omitempty"`   // for ollama or openai (Azure)
	MaxTokens int    `json:"max_tokens,omitempty"` // maximum tokens for model responses (0 = use model default)
}

// EngineSettings contains simulation engine configuration
type EngineSettings struct {
	MaxTurns         int    `json:"max_turns"`
	MaxHistoryLength int    `json:"max_history_length"`
	StepThroughTurns bool   `json:"step_through_turns,omitempty"`
	DebugMode        bool   `json:"debug_mode,omitempty"`
	SavesDir         string `json:"saves_dir,omitempty"`
	ScenariosDir     string `json:"scenarios_dir,omitempty"`
	LogLevel         string `json:"log_level"`
}

// NewSettings creates new settings with in-memory repository
func NewSettings() *Settings {
	return NewSettingsWithRepository(infra.NewInMemorySettingsRepository())
}

// NewSettingsWithRepository creates new settings with injected repository
func NewSettingsWithRepository(settingsRepository repository.SettingsRepository) *Settings {
	settings := GetDefaultSettings()
	settings.settingsRepository = settingsRepository
	return settings
}

// NewSettingsWithPath creates new settings with file-based repository
func NewSettingsWithPath(configPath string) *Settings {
	repo := infra.NewFileSettingsRepository(configPath)
	return NewSettingsWithRepository(repo)
}

// Load loads settings from the repository
func (s *Settings) Load() error {
	if s.settingsRepository == nil {
		return fmt.Errorf("no settings repository configured")
	}

	data, err := s.settingsRepository.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if err := json.Unmarshal(data, s); err != nil {
		return fmt.Errorf("failed to parse settings: %w", err)
	}

	applyDefaults(s)
	return nil
}

// Save saves settings to the repository
func (s *Settings) Save() error {
	if s.settingsRepository == nil {
		return fmt.Errorf("no settings repository configured")
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	return s.settingsRepository.Save(data)
}

// LoadSettings loads application settings from a JSON file
func LoadSettings(configPath string) (*Settings, error) {
	settings := NewSettingsWithPath(configPath)

	// If config path is empty, search for existing settings file
	if configPath == "" {
		foundPath, _ := settings.settingsRepository.FindSettingsFile()
		if foundPath == "" {
			// No settings file found, create default one and return defaults
			return createDefaultSettingsFile()
		}
	}

	err := settings.Load()
	if err != nil {
		// If file doesn't exist and a specific path was provided, create it
		if configPath != "" {
			createdSettings, _ := createSettingsFileAtPath(configPath)
			return createdSettings, nil
		}
		return GetDefaultSettings(), nil
	}

	return settings, nil
}

// GetDefaultSettings returns default application settings
func GetDefaultSettings() *Settings {
	return &Settings{
		LLM: LLMSettings{
			Backend:   "ollama",
			Model:     "gpt-oss:latest",
			BaseURL:   "http://localhost:11434",
			MaxTokens: 0, // 0 = use model-specific defaults
		},
		Engine: EngineSettings{
			MaxTurns:         DefaultMaxTurns,
			MaxHistoryLength: DefaultMaxHistoryLength,
			LogLevel:         "info",
		},
	}
}

// GetDefaultLLMSettingsForBackend returns default LLM settings for a specific backend
func GetDefaultLLMSettingsForBackend(backend string) LLMSettings {
	switch backend {
	case "ollama":
		return LLMSettings{
			Backend: "ollama",
			Model:   "gpt-oss:latest",
			BaseURL: "http://localhost:11434",
		}
	case "anthropic", "claude":
		return LLMSettings{
			Backend: "anthropic",
			Model:   "claude-sonnet-4-5-20250929",
		}
	case "openai":
		return LLMSettings{
			Backend: "openai",
			Model:   "gpt-5-mini",
		}
	case "gemini":
		return LLMSettings{
			Backend: "gemini",
			Model:   "gemini-2.5-flash-lite",
		}
	default:
		return GetDefaultLLMSettingsForBackend("ollama")
	}
}

// applyDefaults fills in missing fields with default values
func applyDefaults(settings *Settings) {
	defaults := GetDefaultSettings()

	if settings.LLM.Backend == "" {
		settings.LLM.Backend = defaults.LLM.Backend
	}
	if settings.LLM.Model == "" {
		settings.LLM.Model = defaults.LLM.Model
	}
	if settings.LLM.BaseURL == "" && settings.LLM.Backend == "ollama" {
		settings.LLM.BaseURL = defaults.LLM.BaseURL
	}

	if settings.Engine.MaxTurns == 0 {
		settings.Engine.MaxTurns = defaults.Engine.MaxTurns
	}
	if settings.Engine.MaxHistoryLength == 0 {
		settings.Engine.MaxHistoryLength = defaults.Engine.MaxHistoryLength
	}
	if settings.Engine.LogLevel == "" {
		settings.Engine.LogLevel = defaults.Engine.LogLevel
	}
}

// ValidateSettings validates the settings configuration
func ValidateSettings(settings *Settings) error {
	if settings.LLM.Backend != "ollama" && settings.LLM.Backend != "anthropic" && settings.LLM.Backend != "claude" && settings.LLM.Backend != "openai" && settings.LLM.Backend != "gemini" {
		return fmt.Errorf("unsupported LLM backend: %s (must be 'ollama', 'anthropic', 'openai', or 'gemini')", settings.LLM.Backend)
	}

	if settings.LLM.Model == "" {
		return fmt.Errorf("LLM model is required")
	}

	switch settings.LLM.Backend {
	case "anthropic", "claude":
		if os.Getenv("ANTHROPIC_API_KEY") == "" {
			return fmt.Errorf("Anthropic API key is required (set ANTHROPIC_API_KEY environment variable)")
		}
	case "openai":
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("OpenAI API key is required (set OPENAI_API_KEY environment variable)")
		}
	case "gemini":
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY environment variable)")
		}
	}

	if settings.Engine.MaxTurns <= 0 {
		return fmt.Errorf("max_turns must be positive")
	}
	if settings.Engine.MaxHistoryLength <= 0 {
		return fmt.Errorf("max_history_length must be positive")
	}

	return nil
}

// createDefaultSettingsFile creates a default settings.json file in ~/.simforge/
func createDefaultSettingsFile() (*Settings, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return GetDefaultSettings(), nil // Fall back to defaults without file creation
	}

	settingsPath := filepath.Join(homeDir, ".simforge", "settings.json")
	return createSettingsFileAtPath(settingsPath)
}

// createSettingsFileAtPath creates a default settings file at the given path
func createSettingsFileAtPath(settingsPath string) (*Settings, error) {
	settings := NewSettingsWithPath(settingsPath)

	if err := settings.Save(); err != nil {
		// Creation failure is not fatal, the defaults still work in memory
		return GetDefaultSettings(), nil
	}

	return settings, nil
}
