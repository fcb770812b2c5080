package backup

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/mrsinham/importctx/internal/model"
)

// snapshotVersion is bumped when the file layout changes.
const snapshotVersion = 1

// SnapshotFile is the YAML layout of a backed-up context.
type SnapshotFile struct {
	Version int                 `yaml:"version"`
	SavedAt time.Time           `yaml:"saved_at"`
	Context model.ImportContext `yaml:"context"`
}

// SaveFile writes the in-progress context of the store to path.
func (s *Store) SaveFile(path string) error {
	c, ok := s.ReadInProgress()
	if !ok {
		return eris.New("backup: nothing to save")
	}
	return SaveFile(path, c)
}

// SaveFile writes c to path as YAML, creating parent directories.
func SaveFile(path string, c model.ImportContext) error {
	data, err := yaml.Marshal(SnapshotFile{
		Version: snapshotVersion,
		SavedAt: time.Now().UTC(),
		Context: c,
	})
	if err != nil {
		return eris.Wrap(err, "marshal snapshot")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "create directory for %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "write snapshot %s", path)
	}
	return nil
}

// LoadFile reads a context saved by SaveFile.
func LoadFile(path string) (model.ImportContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.ImportContext{}, eris.Wrapf(err, "read snapshot %s", path)
	}
	var f SnapshotFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return model.ImportContext{}, eris.Wrapf(err, "parse snapshot %s", path)
	}
	if f.Version != snapshotVersion {
		return model.ImportContext{}, eris.Errorf("snapshot %s: unsupported version %d", path, f.Version)
	}
	return f.Context, nil
}
