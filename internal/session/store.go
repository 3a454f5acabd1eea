package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	// TokenKey is the fixed key the access token is persisted under.
	TokenKey = "access_token"

	envSessionFile = "HR_PILOT_SESSION_FILE"
	appDir         = "hr-pilot"
	sessionFile    = "session.json"
)

// Store persists a single token value.
type Store interface {
	Load() (string, error)
	Save(token string) error
	Delete() error
}

// FileStore keeps the token in a JSON file readable only by the owner.
type FileStore struct {
	Path string
}

// NewFileStore returns a FileStore at path, or at DefaultPath when path is empty.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultPath()
	}

	return &FileStore{Path: path}
}

// DefaultPath returns the session file location.
// HR_PILOT_SESSION_FILE wins, then $XDG_CONFIG_HOME/hr-pilot/session.json,
// then ~/.config/hr-pilot/session.json.
func DefaultPath() string {
	if envPath := os.Getenv(envSessionFile); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), appDir+"-"+sessionFile)
		}
		configDir = filepath.Join(home, ".config")
	}

	return filepath.Join(configDir, appDir, sessionFile)
}

func (s *FileStore) Load() (string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading session file %s: %w", s.Path, err)
	}

	if len(data) == 0 {
		return "", nil
	}

	var stored map[string]string
	if err := json.Unmarshal(data, &stored); err != nil {
		return "", fmt.Errorf("parsing session file %s: %w", s.Path, err)
	}

	return stored[TokenKey], nil
}

// Save replaces the session file via a temporary file and rename, so readers
// never observe a partially written token.
func (s *FileStore) Save(token string) error {
	data, err := json.MarshalIndent(map[string]string{TokenKey: token}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating session directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("creating temporary session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing session file: %w", err)
	}

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("restricting session file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing session file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("replacing session file %s: %w", s.Path, err)
	}

	return nil
}

func (s *FileStore) Delete() error {
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing session file %s: %w", s.Path, err)
	}

	return nil
}

// MemoryStore keeps the token for the lifetime of the process only.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

func (m *MemoryStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryStore) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
