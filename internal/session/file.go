package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// fileDocument is the on-disk layout of a FileStore.
type fileDocument struct {
	Values    map[string]string `yaml:"values"`
	UpdatedAt string            `yaml:"updated_at,omitempty"`
}

// FileStore persists tokens in a small YAML document on local disk.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a FileStore writing to path. The file is created on the
// first Save.
func NewFileStore(path string) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("session: file path must not be empty")
	}
	return &FileStore{path: path}, nil
}

// DefaultFilePath is $XDG_CONFIG_HOME/medai-intake/session.yaml (or the
// platform equivalent).
func DefaultFilePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "medai-intake", "session.yaml")
}

func (f *FileStore) Load(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return "", err
	}
	return doc.Values[key], nil
}

func (f *FileStore) Save(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return err
	}
	doc.Values[key] = value
	doc.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	raw, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("session: encode %s: %w", f.path, err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("session: create dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("session: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("session: replace %s: %w", f.path, err)
	}
	return nil
}

func (f *FileStore) read() (fileDocument, error) {
	doc := fileDocument{Values: map[string]string{}}
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("session: read %s: %w", f.path, err)
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("session: decode %s: %w", f.path, err)
	}
	if doc.Values == nil {
		doc.Values = map[string]string{}
	}
	return doc, nil
}
