// Package creds provides storage for the upstream lookup API credential
// pair. Credentials can come from the environment, a JSON file, or the
// system keychain.
package creds

import (
	"errors"
	"strings"
)

// Credential is the account/token pair used to authenticate against the
// upstream carrier-lookup API.
type Credential struct {
	AccountSID string `json:"account_sid"`
	AuthToken  string `json:"auth_token"`
}

// Validate checks that both halves of the pair are present.
func (c *Credential) Validate() error {
	if strings.TrimSpace(c.AccountSID) == "" {
		return errors.New("credential: AccountSID is required")
	}
	if strings.TrimSpace(c.AuthToken) == "" {
		return errors.New("credential: AuthToken is required")
	}
	return nil
}

// IsZero reports whether the credential pair is entirely absent.
func (c *Credential) IsZero() bool {
	return c == nil || (c.AccountSID == "" && c.AuthToken == "")
}

// Store is the interface for credential persistence backends.
type Store interface {
	// Get retrieves the stored credential pair. Returns (nil, nil) when
	// no credential is stored.
	Get() (*Credential, error)
	// Put stores the credential pair.
	Put(cred *Credential) error
	// Delete removes the stored credential pair.
	Delete() error
}

// StoreMode selects the credential storage backend.
type StoreMode string

const (
	StoreModeEnv     StoreMode = "env"
	StoreModeFile    StoreMode = "file"
	StoreModeKeyring StoreMode = "keyring"
)

// Open creates a credential store for the given mode. An empty mode
// defaults to the environment store. The keyring mode falls back to the
// file store when no system keychain is available (headless hosts).
func Open(mode StoreMode) (Store, error) {
	switch mode {
	case "", StoreModeEnv:
		return NewEnvStore(), nil
	case StoreModeFile:
		return NewFileStore()
	case StoreModeKeyring:
		ks, err := NewKeyringStore()
		if err != nil {
			return NewFileStore()
		}
		return ks, nil
	default:
		return nil, errors.New("creds: unknown store mode " + string(mode))
	}
}
