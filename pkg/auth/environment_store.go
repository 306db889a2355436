package auth

import (
	"os"
	"time"
)

// EnvironmentStore reads a single identity's secret from the environment.
// Write operations are not supported.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-backed store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func (e *EnvironmentStore) Store(secret *Secret) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Retrieve(identityID string) (*Secret, error) {
	sessionSecret := os.Getenv("FOLLOWSCOUT_SESSION_SECRET")
	if sessionSecret == "" {
		return nil, ErrSecretNotFound
	}

	if identityID == "" {
		identityID = "default"
	}

	return &Secret{
		IdentityID:    identityID,
		SessionSecret: sessionSecret,
		Proxy:         os.Getenv("FOLLOWSCOUT_PROXY"),
		LastModified:  time.Now(),
	}, nil
}

func (e *EnvironmentStore) List() ([]*Secret, error) {
	secret, err := e.Retrieve("")
	if err != nil {
		return []*Secret{}, nil
	}
	return []*Secret{secret}, nil
}

func (e *EnvironmentStore) Delete(identityID string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(identityID string) bool {
	return os.Getenv("FOLLOWSCOUT_SESSION_SECRET") != ""
}
