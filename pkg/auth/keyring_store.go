package auth

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "followscout"
	keyringPrefix  = "identity_"
)

// KeyringStore keeps identity secrets in the system keychain
type KeyringStore struct{}

// NewKeyringStore verifies the keychain is usable before returning a store
func NewKeyringStore() (*KeyringStore, error) {
	testKey := "availability_probe"
	if err := keyring.Set(keyringService, testKey, "ok"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{}, nil
}

func (k *KeyringStore) Store(secret *Secret) error {
	if secret == nil || secret.IdentityID == "" {
		return ErrInvalidSecret
	}

	data, err := json.Marshal(secret)
	if err != nil {
		return fmt.Errorf("failed to marshal secret: %w", err)
	}

	if err := keyring.Set(keyringService, keyringPrefix+secret.IdentityID, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

func (k *KeyringStore) Retrieve(identityID string) (*Secret, error) {
	if identityID == "" {
		return nil, ErrInvalidSecret
	}

	data, err := keyring.Get(keyringService, keyringPrefix+identityID)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrSecretNotFound
		}
		return nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}

	var secret Secret
	if err := json.Unmarshal([]byte(data), &secret); err != nil {
		return nil, fmt.Errorf("failed to unmarshal secret: %w", err)
	}
	return &secret, nil
}

// List is not supported: the keyring API has no enumeration
func (k *KeyringStore) List() ([]*Secret, error) {
	return []*Secret{}, nil
}

func (k *KeyringStore) Delete(identityID string) error {
	if identityID == "" {
		return ErrInvalidSecret
	}

	if err := keyring.Delete(keyringService, keyringPrefix+identityID); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrSecretNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}

func (k *KeyringStore) Exists(identityID string) bool {
	if identityID == "" {
		return false
	}
	_, err := keyring.Get(keyringService, keyringPrefix+identityID)
	return err == nil
}
