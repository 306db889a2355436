package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Secret holds one scanning identity's session material
type Secret struct {
	IdentityID    string    `json:"identity_id"`
	SessionSecret string    `json:"session_secret"`
	Proxy         string    `json:"proxy,omitempty"`
	LastModified  time.Time `json:"last_modified"`
}

// SecretStore stores and retrieves identity secrets
type SecretStore interface {
	Store(secret *Secret) error
	Retrieve(identityID string) (*Secret, error)
	List() ([]*Secret, error)
	Delete(identityID string) error
	Exists(identityID string) bool
}

var (
	ErrSecretNotFound   = errors.New("secret not found")
	ErrInvalidSecret    = errors.New("invalid secret")
	ErrStoreUnavailable = errors.New("secret store unavailable")
)

// Manager resolves secrets through a chain of stores: system keychain
// when available, encrypted file otherwise, environment as last resort.
type Manager struct {
	stores []SecretStore
}

// NewManager creates a manager with every store that is usable on this
// system.
func NewManager() (*Manager, error) {
	var stores []SecretStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "secrets.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)
	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a manager over an explicit store chain
func NewManagerWithStores(stores ...SecretStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves a secret using the first store that accepts it
func (m *Manager) Store(secret *Secret) error {
	if secret == nil || secret.IdentityID == "" {
		return ErrInvalidSecret
	}
	if secret.SessionSecret == "" {
		return fmt.Errorf("%w: session secret is required", ErrInvalidSecret)
	}

	secret.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(secret); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store secret: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve gets a secret from the first store that has it
func (m *Manager) Retrieve(identityID string) (*Secret, error) {
	for _, store := range m.stores {
		if secret, err := store.Retrieve(identityID); err == nil && secret != nil {
			return secret, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, identityID)
}

// List returns all stored secrets across stores, most recent version per
// identity.
func (m *Manager) List() ([]*Secret, error) {
	byID := make(map[string]*Secret)

	for _, store := range m.stores {
		secrets, err := store.List()
		if err != nil {
			continue
		}
		for _, secret := range secrets {
			if existing, ok := byID[secret.IdentityID]; !ok || secret.LastModified.After(existing.LastModified) {
				byID[secret.IdentityID] = secret
			}
		}
	}

	var result []*Secret
	for _, secret := range byID {
		result = append(result, secret)
	}
	return result, nil
}

// Delete removes a secret from every store that has it
func (m *Manager) Delete(identityID string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(identityID); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete secret: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrSecretNotFound, identityID)
	}
	return nil
}

// ResolveSecret turns a configured secret value into the real session
// secret. Supported forms:
//
//	keyring:<identity-id>  look up the manager's store chain
//	env:<VAR>              read an environment variable
//	anything else          used literally
//
// An empty value falls back to a store lookup under the identity's own ID.
func (m *Manager) ResolveSecret(identityID, value string) (string, error) {
	switch {
	case value == "":
		secret, err := m.Retrieve(identityID)
		if err != nil {
			return "", err
		}
		return secret.SessionSecret, nil
	case strings.HasPrefix(value, "keyring:"):
		ref := strings.TrimPrefix(value, "keyring:")
		secret, err := m.Retrieve(ref)
		if err != nil {
			return "", err
		}
		return secret.SessionSecret, nil
	case strings.HasPrefix(value, "env:"):
		name := strings.TrimPrefix(value, "env:")
		resolved := os.Getenv(name)
		if resolved == "" {
			return "", fmt.Errorf("%w: environment variable %s is empty", ErrSecretNotFound, name)
		}
		return resolved, nil
	default:
		return value, nil
	}
}

// getConfigDir returns the platform config directory for the scout
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "followscout")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "followscout")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "followscout")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "followscout")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

// MaskSecret masks all but the first and last 4 characters for display
func MaskSecret(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
