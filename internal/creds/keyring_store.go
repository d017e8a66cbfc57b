package creds

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	// keyringService is the service name used in the system keychain.
	keyringService = "spamrelay"

	// keyringKey is the single entry holding the credential pair.
	keyringKey = "lookup-credentials"
)

// KeyringStore stores the credential pair in the system keychain.
type KeyringStore struct {
	mu sync.RWMutex
}

// NewKeyringStore creates a keyring-based credential store.
// Returns an error if the keyring is not available.
func NewKeyringStore() (*KeyringStore, error) {
	// Probe availability by reading a key that does not exist.
	_, err := keyring.Get(keyringService, "_test_availability")
	if err != nil && err != keyring.ErrNotFound {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	return &KeyringStore{}, nil
}

// Get retrieves the stored credential pair.
func (s *KeyringStore) Get() (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := keyring.Get(keyringService, keyringKey)
	if err != nil {
		if err == keyring.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("keyring get: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal([]byte(data), &cred); err != nil {
		return nil, fmt.Errorf("parse credential: %w", err)
	}
	return &cred, nil
}

// Put stores the credential pair.
func (s *KeyringStore) Put(cred *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := cred.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}
	if err := keyring.Set(keyringService, keyringKey, string(data)); err != nil {
		return fmt.Errorf("keyring set: %w", err)
	}
	return nil
}

// Delete removes the stored credential pair.
func (s *KeyringStore) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := keyring.Delete(keyringService, keyringKey); err != nil && err != keyring.ErrNotFound {
		return fmt.Errorf("keyring delete: %w", err)
	}
	return nil
}
