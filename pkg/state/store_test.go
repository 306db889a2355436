package state

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"followscout/pkg/identity"
	"followscout/pkg/logger"
)

func TestMemoryKVRoundTrip(t *testing.T) {
	kv := NewMemoryKV()

	_, err := kv.Get("missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, kv.Set("key", []byte("value")))
	got, err := kv.Get("key")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), got)

	require.NoError(t, kv.Delete("key"))
	_, err = kv.Get("key")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryKVCopiesValues(t *testing.T) {
	kv := NewMemoryKV()

	value := []byte("original")
	require.NoError(t, kv.Set("key", value))
	value[0] = 'X'

	got, err := kv.Get("key")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got, "stored value must not alias caller's slice")
}

func TestFileKVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	kv, err := NewFileKV(dir)
	require.NoError(t, err)

	require.NoError(t, kv.Set("snapshot:alice", []byte(`{"a":1}`)))
	got, err := kv.Get("snapshot:alice")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), got)

	require.NoError(t, kv.Delete("snapshot:alice"))
	_, err = kv.Get("snapshot:alice")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFileKVLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	kv, err := NewFileKV(dir)
	require.NoError(t, err)

	require.NoError(t, kv.Set("key", []byte("value")))

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestFileKVKeysStayInDirectory(t *testing.T) {
	dir := t.TempDir()
	kv, err := NewFileKV(dir)
	require.NoError(t, err)

	require.NoError(t, kv.Set("../escape", []byte("value")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "key with separators must be stored inside the directory")
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := NewStore(NewMemoryKV(), logger.NewNopLogger())

	missing, err := store.LoadSnapshot("alice")
	require.NoError(t, err)
	assert.Nil(t, missing, "never-scanned target has no snapshot")

	snapshot := &FollowSnapshot{
		Target:     "alice",
		Follows:    []string{"bob", "carol"},
		CapturedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveSnapshot(snapshot))

	got, err := store.LoadSnapshot("alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, snapshot.Follows, got.Follows)
	assert.True(t, snapshot.CapturedAt.Equal(got.CapturedAt))
}

func TestSnapshotReplacedWhole(t *testing.T) {
	store := NewStore(NewMemoryKV(), logger.NewNopLogger())

	require.NoError(t, store.SaveSnapshot(&FollowSnapshot{
		Target:  "alice",
		Follows: []string{"bob", "carol", "dave"},
	}))
	require.NoError(t, store.SaveSnapshot(&FollowSnapshot{
		Target:  "alice",
		Follows: []string{"erin"},
	}))

	got, err := store.LoadSnapshot("alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"erin"}, got.Follows)
}

func TestCorruptSnapshotReported(t *testing.T) {
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(snapshotKey("alice"), []byte("{not json")))

	store := NewStore(kv, logger.NewNopLogger())
	_, err := store.LoadSnapshot("alice")
	assert.Error(t, err)
}

func TestIdentityHealthRoundTrip(t *testing.T) {
	store := NewStore(NewMemoryKV(), logger.NewNopLogger())

	none, err := store.LoadIdentityHealth()
	require.NoError(t, err)
	assert.Nil(t, none)

	records := []identity.HealthRecord{
		{ID: "a", Health: identity.Healthy},
		{ID: "b", Health: identity.Expired, FailureCount: 1},
	}
	require.NoError(t, store.SaveIdentityHealth(records))

	got, err := store.LoadIdentityHealth()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, identity.Expired, got[1].Health)
}

func TestRunSummaryPersisted(t *testing.T) {
	store := NewStore(NewMemoryKV(), logger.NewNopLogger())

	type summary struct {
		RunID   string `json:"run_id"`
		Scanned int    `json:"scanned"`
	}

	var missing summary
	err := store.LoadLastRunSummary(&missing)
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, store.SaveRunSummary("run-1", summary{RunID: "run-1", Scanned: 3}))

	var got summary
	require.NoError(t, store.LoadLastRunSummary(&got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 3, got.Scanned)
}

func TestStoreOverFileKV(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	require.NoError(t, err)
	store := NewStore(kv, logger.NewNopLogger())

	require.NoError(t, store.SaveSnapshot(&FollowSnapshot{
		Target:  "alice",
		Follows: []string{"bob"},
	}))

	got, err := store.LoadSnapshot("alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, got.Follows)
}
