package creds

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	credentialsDir  = ".config/spamrelay"
	credentialsFile = ".credentials.json"
)

// FileStore stores the credential pair in a JSON file under the user's
// config directory.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

// NewFileStore creates a file-based credential store at the default path.
func NewFileStore() (*FileStore, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}
	return &FileStore{path: filepath.Join(home, credentialsDir, credentialsFile)}, nil
}

// NewFileStoreAt creates a file store at a specific path (for testing).
func NewFileStoreAt(path string) *FileStore {
	return &FileStore{path: path}
}

// Get retrieves the stored credential pair.
func (s *FileStore) Get() (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return &cred, nil
}

// Put stores the credential pair atomically (temp file + rename).
func (s *FileStore) Put(cred *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := cred.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}

	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}

	tmpFile := s.path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0600); err != nil {
		return fmt.Errorf("write temp credentials: %w", err)
	}
	if err := os.Rename(tmpFile, s.path); err != nil {
		_ = os.Remove(tmpFile)
		return fmt.Errorf("rename credentials: %w", err)
	}
	return nil
}

// Delete removes the stored credential pair.
func (s *FileStore) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}
