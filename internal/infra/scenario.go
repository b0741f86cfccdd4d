package infra

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// FileScenarioRepository reads scenario definitions from a directory of JSON files.
type FileScenarioRepository struct {
	dir string
}

// NewFileScenarioRepository creates a scenario repository rooted at dir.
func NewFileScenarioRepository(dir string) *FileScenarioRepository {
	return &FileScenarioRepository{dir: dir}
}

// List returns the scenario names found in the directory, sorted.
func (r *FileScenarioRepository) List() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, errors.Wrap(err, "failed to read scenarios directory")
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// Load returns the raw scenario definition for the given name.
// The name is reduced to its base to keep lookups inside the directory.
func (r *FileScenarioRepository) Load(name string) ([]byte, error) {
	name = filepath.Base(strings.TrimSuffix(name, ".json"))
	path := filepath.Join(r.dir, name+".json")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read scenario %q", name)
	}
	return data, nil
}
