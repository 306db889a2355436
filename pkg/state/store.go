package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"followscout/pkg/identity"
	"followscout/pkg/logger"
)

// FollowSnapshot is the persisted follow list of one target at one point
// in time.
type FollowSnapshot struct {
	Target     string    `json:"target"`
	Follows    []string  `json:"follows"`
	CapturedAt time.Time `json:"captured_at"`
}

// Store wraps a KV with the typed reads and writes the run controller
// needs. A target's snapshot is only ever replaced whole; a failed scan
// leaves the previous snapshot untouched.
type Store struct {
	kv     KV
	logger logger.Logger
}

// NewStore creates a store over the given KV backend
func NewStore(kv KV, log logger.Logger) *Store {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Store{kv: kv, logger: log}
}

// LoadSnapshot returns the target's previous snapshot, or nil when the
// target has never been scanned successfully.
func (s *Store) LoadSnapshot(target string) (*FollowSnapshot, error) {
	data, err := s.kv.Get(snapshotKey(target))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load snapshot for %s: %w", target, err)
	}

	var snapshot FollowSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("corrupt snapshot for %s: %w", target, err)
	}
	return &snapshot, nil
}

// SaveSnapshot replaces the target's stored snapshot
func (s *Store) SaveSnapshot(snapshot *FollowSnapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot for %s: %w", snapshot.Target, err)
	}
	if err := s.kv.Set(snapshotKey(snapshot.Target), data); err != nil {
		return fmt.Errorf("failed to save snapshot for %s: %w", snapshot.Target, err)
	}

	s.logger.DebugWithFields("snapshot saved", map[string]interface{}{
		"target":  snapshot.Target,
		"follows": len(snapshot.Follows),
	})
	return nil
}

// DeleteSnapshot removes the target's snapshot, forcing the next scan to
// establish a fresh baseline.
func (s *Store) DeleteSnapshot(target string) error {
	return s.kv.Delete(snapshotKey(target))
}

// LoadIdentityHealth returns the persisted health records, or nil when no
// run has saved any yet.
func (s *Store) LoadIdentityHealth() ([]identity.HealthRecord, error) {
	data, err := s.kv.Get(identityHealthKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load identity health: %w", err)
	}

	var records []identity.HealthRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("corrupt identity health state: %w", err)
	}
	return records, nil
}

// SaveIdentityHealth persists the pool's current health records
func (s *Store) SaveIdentityHealth(records []identity.HealthRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode identity health: %w", err)
	}
	if err := s.kv.Set(identityHealthKey, data); err != nil {
		return fmt.Errorf("failed to save identity health: %w", err)
	}
	return nil
}

// SaveRunSummary persists a run's report under its run ID and as the
// latest run.
func (s *Store) SaveRunSummary(runID string, summary interface{}) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run summary: %w", err)
	}
	if err := s.kv.Set("run:"+runID, data); err != nil {
		return fmt.Errorf("failed to save run summary: %w", err)
	}
	if err := s.kv.Set(lastRunKey, data); err != nil {
		return fmt.Errorf("failed to save last run summary: %w", err)
	}
	return nil
}

// LoadLastRunSummary decodes the most recent run summary into out.
// Returns ErrNotFound when no run has completed yet.
func (s *Store) LoadLastRunSummary(out interface{}) error {
	data, err := s.kv.Get(lastRunKey)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("corrupt run summary: %w", err)
	}
	return nil
}

const (
	identityHealthKey = "identity_health"
	lastRunKey        = "last_run"
)

func snapshotKey(target string) string {
	return "snapshot:" + target
}
