package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// FileStore persists credentials as a flat JSON object on disk so they
// survive process restarts. Writes rewrite the whole file; the last writer
// wins. Secrets are stored in plaintext, matching the single-user desktop
// deployment this store is designed for.
type FileStore struct {
	path string
	mu   sync.Mutex
	data map[string]string
}

// NewFileStore loads (or initializes) the credential file at path.
func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{path: path, data: map[string]string{}}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}
	if err := json.Unmarshal(raw, &fs.data); err != nil {
		// A corrupt file should not brick the app; start fresh and overwrite on next Set.
		log.Warn().Err(err).Str("path", path).Msg("Credential file unreadable, starting empty")
		fs.data = map[string]string{}
	}
	return fs, nil
}

// Get returns the stored value and whether it was present. Empty stored
// values count as absent so adapters can treat "" uniformly.
func (f *FileStore) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Set stores the value and flushes the file.
func (f *FileStore) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return f.flush()
}

// Delete removes the entry and flushes the file.
func (f *FileStore) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; !ok {
		return nil
	}
	delete(f.data, key)
	return f.flush()
}

func (f *FileStore) flush() error {
	raw, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create credential dir: %w", err)
	}
	if err := os.WriteFile(f.path, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	return nil
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu   sync.Mutex
	data map[string]string
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{data: map[string]string{}}
}

func (m *MemStore) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (m *MemStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
