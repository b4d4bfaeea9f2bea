package selection

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFile is the file name used when none is configured
const DefaultFile = "last_instance.txt"

// Store persists the last selected instance name as a single line of text
type Store struct {
	path string
}

// NewStore creates a store backed by the file at path
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultFile
	}
	return &Store{path: path}
}

// Path returns the backing file
func (s *Store) Path() string {
	return s.path
}

// Save writes name to the store, replacing the previous selection
func (s *Store) Save(name string) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(s.path, []byte(name+"\n"), 0644)
}

// Load returns the saved name if it is still one of known.
// A missing file is not an error; a stale name is silently dropped.
func (s *Store) Load(known []string) (string, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}

	name := strings.TrimSpace(string(data))
	if name == "" {
		return "", false, nil
	}

	for _, k := range known {
		if k == name {
			return name, true, nil
		}
	}
	return "", false, nil
}
