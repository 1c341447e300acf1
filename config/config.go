// Package config persists the server's known document directories and the
// currently active one.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const appName = "docu-mcp"

// ErrNoActiveDirectory reports that no active document directory has been
// configured yet. Callers decide whether that is fatal: resource listing
// degrades to an empty result, tools surface it to the client.
var ErrNoActiveDirectory = errors.New("no active directory set, use the set_document_directory tool first")

// Config holds the persisted server state.
type Config struct {
	// Directories are the known document directories, canonical absolute
	// paths, insertion-ordered and deduplicated.
	Directories []string `json:"directories"`
	// ActiveDirectory is the directory resources are served from. Empty
	// means not configured.
	ActiveDirectory string `json:"active_directory,omitempty"`
}

// Store abstracts config persistence so the tool handlers can be tested
// without touching the real config path.
type Store interface {
	Load() (Config, error)
	Save(Config) error
}

// FileStore persists the config as JSON at a platform-conventional location.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore at the standard per-user config path,
// e.g. ~/.config/docu-mcp/config.json on Linux.
func NewFileStore() *FileStore {
	return &FileStore{
		path: filepath.Join(xdg.ConfigHome, appName, "config.json"),
	}
}

// NewFileStoreAt creates a FileStore at an explicit path.
func NewFileStoreAt(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the config file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the config file. A missing file yields the default empty
// config; a present but unreadable or corrupt file is an error.
func (s *FileStore) Load() (Config, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config file %s: %w", s.path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", s.path, err)
	}

	return cfg, nil
}

// Save writes the config file, creating parent directories on first save.
// The file is user-only readable since it lists local paths.
func (s *FileStore) Save(cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize config: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("write config file %s: %w", s.path, err)
	}

	return nil
}

// MemoryStore is an in-memory Store for tests. LoadErr and SaveErr, when
// set, are returned instead of touching the stored config.
type MemoryStore struct {
	Config  Config
	LoadErr error
	SaveErr error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the stored config.
func (s *MemoryStore) Load() (Config, error) {
	if s.LoadErr != nil {
		return Config{}, s.LoadErr
	}
	return s.Config, nil
}

// Save replaces the stored config.
func (s *MemoryStore) Save(cfg Config) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.Config = cfg
	return nil
}
