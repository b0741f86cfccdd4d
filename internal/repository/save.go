package repository

// SaveRepository abstracts persistence of simulation run snapshots
type SaveRepository interface {
	// List returns the names of existing saves, most recent first
	List() ([]string, error)
	// Load returns the raw snapshot for the given save name
	Load(name string) ([]byte, error)
	// Save writes a snapshot under the given name, overwriting any previous one
	Save(name string, data []byte) error
}
