package auth

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore is an in-memory SecretStore for tests
type memoryStore struct {
	secrets  map[string]Secret
	readOnly bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{secrets: make(map[string]Secret)}
}

func (m *memoryStore) Store(secret *Secret) error {
	if m.readOnly {
		return ErrStoreUnavailable
	}
	if secret == nil || secret.IdentityID == "" {
		return ErrInvalidSecret
	}
	m.secrets[secret.IdentityID] = *secret
	return nil
}

func (m *memoryStore) Retrieve(identityID string) (*Secret, error) {
	secret, ok := m.secrets[identityID]
	if !ok {
		return nil, ErrSecretNotFound
	}
	return &secret, nil
}

func (m *memoryStore) List() ([]*Secret, error) {
	var out []*Secret
	for _, secret := range m.secrets {
		s := secret
		out = append(out, &s)
	}
	return out, nil
}

func (m *memoryStore) Delete(identityID string) error {
	if _, ok := m.secrets[identityID]; !ok {
		return ErrSecretNotFound
	}
	delete(m.secrets, identityID)
	return nil
}

func (m *memoryStore) Exists(identityID string) bool {
	_, ok := m.secrets[identityID]
	return ok
}

func TestManagerStoreAndRetrieve(t *testing.T) {
	manager := NewManagerWithStores(newMemoryStore())

	require.NoError(t, manager.Store(&Secret{
		IdentityID:    "scout1",
		SessionSecret: "abc123",
		Proxy:         "http://proxy:8080",
	}))

	secret, err := manager.Retrieve("scout1")
	require.NoError(t, err)
	assert.Equal(t, "abc123", secret.SessionSecret)
	assert.Equal(t, "http://proxy:8080", secret.Proxy)
	assert.False(t, secret.LastModified.IsZero())
}

func TestManagerFallsBackToNextStore(t *testing.T) {
	unavailable := newMemoryStore()
	unavailable.readOnly = true
	working := newMemoryStore()

	manager := NewManagerWithStores(unavailable, working)

	require.NoError(t, manager.Store(&Secret{IdentityID: "scout1", SessionSecret: "abc"}))
	assert.True(t, working.Exists("scout1"))

	secret, err := manager.Retrieve("scout1")
	require.NoError(t, err)
	assert.Equal(t, "abc", secret.SessionSecret)
}

func TestManagerRejectsIncompleteSecrets(t *testing.T) {
	manager := NewManagerWithStores(newMemoryStore())

	assert.Error(t, manager.Store(nil))
	assert.Error(t, manager.Store(&Secret{SessionSecret: "abc"}))
	assert.Error(t, manager.Store(&Secret{IdentityID: "scout1"}))
}

func TestManagerRetrieveMissing(t *testing.T) {
	manager := NewManagerWithStores(newMemoryStore())

	_, err := manager.Retrieve("nobody")
	assert.True(t, errors.Is(err, ErrSecretNotFound))
}

func TestManagerDelete(t *testing.T) {
	store := newMemoryStore()
	manager := NewManagerWithStores(store)

	require.NoError(t, manager.Store(&Secret{IdentityID: "scout1", SessionSecret: "abc"}))
	require.NoError(t, manager.Delete("scout1"))
	assert.False(t, store.Exists("scout1"))

	assert.Error(t, manager.Delete("scout1"))
}

func TestResolveSecretLiteral(t *testing.T) {
	manager := NewManagerWithStores(newMemoryStore())

	got, err := manager.ResolveSecret("scout1", "literal-session-value")
	require.NoError(t, err)
	assert.Equal(t, "literal-session-value", got)
}

func TestResolveSecretKeyringRef(t *testing.T) {
	store := newMemoryStore()
	store.secrets["scout1"] = Secret{IdentityID: "scout1", SessionSecret: "stored-value"}
	manager := NewManagerWithStores(store)

	got, err := manager.ResolveSecret("whatever", "keyring:scout1")
	require.NoError(t, err)
	assert.Equal(t, "stored-value", got)
}

func TestResolveSecretEnvRef(t *testing.T) {
	t.Setenv("SCOUT_TEST_SECRET", "from-env")
	manager := NewManagerWithStores(newMemoryStore())

	got, err := manager.ResolveSecret("scout1", "env:SCOUT_TEST_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)

	_, err = manager.ResolveSecret("scout1", "env:SCOUT_TEST_SECRET_UNSET")
	assert.Error(t, err)
}

func TestResolveSecretEmptyFallsBackToStore(t *testing.T) {
	store := newMemoryStore()
	store.secrets["scout1"] = Secret{IdentityID: "scout1", SessionSecret: "stored-value"}
	manager := NewManagerWithStores(store)

	got, err := manager.ResolveSecret("scout1", "")
	require.NoError(t, err)
	assert.Equal(t, "stored-value", got)
}

func TestEncryptedFileStoreRoundTrip(t *testing.T) {
	t.Setenv("FOLLOWSCOUT_PASSPHRASE", "test-passphrase")

	store, err := NewEncryptedFileStore(filepath.Join(t.TempDir(), "secrets.enc"))
	require.NoError(t, err)

	require.NoError(t, store.Store(&Secret{IdentityID: "scout1", SessionSecret: "abc123"}))
	require.NoError(t, store.Store(&Secret{IdentityID: "scout2", SessionSecret: "def456", Proxy: "socks5://p:1080"}))

	secret, err := store.Retrieve("scout2")
	require.NoError(t, err)
	assert.Equal(t, "def456", secret.SessionSecret)
	assert.Equal(t, "socks5://p:1080", secret.Proxy)

	secrets, err := store.List()
	require.NoError(t, err)
	assert.Len(t, secrets, 2)
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets.enc")

	t.Setenv("FOLLOWSCOUT_PASSPHRASE", "correct")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Secret{IdentityID: "scout1", SessionSecret: "abc"}))

	t.Setenv("FOLLOWSCOUT_PASSPHRASE", "wrong")
	tampered, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	_, err = tampered.Retrieve("scout1")
	assert.Error(t, err, "wrong passphrase must not decrypt")
}

func TestEncryptedFileStoreDeleteLastRemovesFile(t *testing.T) {
	t.Setenv("FOLLOWSCOUT_PASSPHRASE", "test-passphrase")

	store, err := NewEncryptedFileStore(filepath.Join(t.TempDir(), "secrets.enc"))
	require.NoError(t, err)

	require.NoError(t, store.Store(&Secret{IdentityID: "scout1", SessionSecret: "abc"}))
	require.NoError(t, store.Delete("scout1"))

	_, err = store.Retrieve("scout1")
	assert.True(t, errors.Is(err, ErrSecretNotFound))
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv("FOLLOWSCOUT_SESSION_SECRET", "env-secret")
	t.Setenv("FOLLOWSCOUT_PROXY", "http://proxy:8080")

	store := NewEnvironmentStore()

	secret, err := store.Retrieve("scout1")
	require.NoError(t, err)
	assert.Equal(t, "scout1", secret.IdentityID)
	assert.Equal(t, "env-secret", secret.SessionSecret)
	assert.Equal(t, "http://proxy:8080", secret.Proxy)

	assert.Error(t, store.Store(&Secret{IdentityID: "x", SessionSecret: "y"}))
	assert.Error(t, store.Delete("scout1"))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "********", MaskSecret("short"))
	assert.Equal(t, "1234...cdef", MaskSecret("1234567890abcdef"))
}
