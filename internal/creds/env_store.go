package creds

import (
	"errors"
	"os"
)

// Environment variable names for the credential pair. These match what
// the upstream vendor's own tooling expects.
const (
	EnvAccountSID = "TWILIO_ACCOUNT_SID"
	EnvAuthToken  = "TWILIO_AUTH_TOKEN"
)

// EnvStore reads the credential pair from the process environment.
// It is read-only; Put and Delete fail.
type EnvStore struct{}

// NewEnvStore creates an environment-backed credential store.
func NewEnvStore() *EnvStore {
	return &EnvStore{}
}

// Get reads the credential pair from the environment. Returns (nil, nil)
// when neither variable is set.
func (s *EnvStore) Get() (*Credential, error) {
	sid := os.Getenv(EnvAccountSID)
	token := os.Getenv(EnvAuthToken)
	if sid == "" && token == "" {
		return nil, nil
	}
	return &Credential{AccountSID: sid, AuthToken: token}, nil
}

// Put is not supported for the environment store.
func (s *EnvStore) Put(cred *Credential) error {
	return errors.New("creds: env store is read-only")
}

// Delete is not supported for the environment store.
func (s *EnvStore) Delete() error {
	return errors.New("creds: env store is read-only")
}
