package repository

// ScenarioRepository abstracts access to scenario definition files
type ScenarioRepository interface {
	// List returns the names of available scenarios, without extension
	List() ([]string, error)
	// Load returns the raw scenario definition for the given name
	Load(name string) ([]byte, error)
}
