package include

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Lock records the SHA-256 checksum of every fetched remote include.
// It lives alongside hostforge.yaml and should be committed, so every host
// applying the manifest gets byte-identical step bundles.
type Lock struct {
	Includes map[string]LockEntry `yaml:"includes,omitempty"`
}

// LockEntry pins a single remote include.
type LockEntry struct {
	SHA256    string    `yaml:"sha256"`
	FetchedAt time.Time `yaml:"fetched_at"`
	URL       string    `yaml:"url"`
}

// LockPath returns the lockfile path derived from the manifest path.
func LockPath(manifestPath string) string {
	return filepath.Join(filepath.Dir(manifestPath), "hostforge.lock.yaml")
}

// LoadLock reads the lockfile, returning an empty Lock when absent.
func LoadLock(path string) (*Lock, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Lock{Includes: make(map[string]LockEntry)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read lockfile: %w", err)
	}
	var l Lock
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parse lockfile: %w", err)
	}
	if l.Includes == nil {
		l.Includes = make(map[string]LockEntry)
	}
	return &l, nil
}

// SaveLock writes the lockfile atomically.
func SaveLock(path string, l *Lock) error {
	data, err := yaml.Marshal(l)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write lockfile: %w", err)
	}
	return os.Rename(tmp, path)
}
