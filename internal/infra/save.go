package infra

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// FileSaveRepository persists run snapshots as JSON files in a directory.
type FileSaveRepository struct {
	dir string
}

// NewFileSaveRepository creates a save repository rooted at dir.
func NewFileSaveRepository(dir string) *FileSaveRepository {
	return &FileSaveRepository{dir: dir}
}

// List returns save names ordered by modification time, most recent first.
func (r *FileSaveRepository) List() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, errors.Wrap(err, "failed to read saves directory")
	}

	type saveEntry struct {
		name  string
		mtime int64
	}
	var saves []saveEntry
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		saves = append(saves, saveEntry{
			name:  strings.TrimSuffix(entry.Name(), ".json"),
			mtime: info.ModTime().UnixNano(),
		})
	}

	sort.Slice(saves, func(i, j int) bool { return saves[i].mtime > saves[j].mtime })

	names := make([]string, 0, len(saves))
	for _, s := range saves {
		names = append(names, s.name)
	}
	return names, nil
}

// Load returns the raw snapshot for the given save name.
func (r *FileSaveRepository) Load(name string) ([]byte, error) {
	name = filepath.Base(strings.TrimSuffix(name, ".json"))
	path := filepath.Join(r.dir, name+".json")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read save %q", name)
	}
	return data, nil
}

// Save writes a snapshot under the given name, creating the directory if needed.
func (r *FileSaveRepository) Save(name string, data []byte) error {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return errors.Wrap(err, "failed to create saves directory")
	}

	name = filepath.Base(strings.TrimSuffix(name, ".json"))
	path := filepath.Join(r.dir, name+".json")

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write save %q", name)
	}
	return nil
}
