package runner

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"followscout/internal/worker"
	"followscout/pkg/classify"
	"followscout/pkg/config"
	"followscout/pkg/diff"
	"followscout/pkg/identity"
	"followscout/pkg/logger"
	"followscout/pkg/state"
)

// Notifier receives the outcomes a pass produces. The log-backed notifier
// satisfies it; so would any chat delivery sink.
type Notifier interface {
	FollowEvents(ctx context.Context, events []diff.Event) error
	ScanFailure(ctx context.Context, target string, kind classify.Kind, err error) error
	SuspiciousDiff(ctx context.Context, target, warning string) error
}

// Target statuses as recorded in the run report.
const (
	StatusBaseline   = "baseline"
	StatusUnchanged  = "unchanged"
	StatusChanged    = "changed"
	StatusSuspicious = "suspicious"
	StatusFailed     = "failed"
)

// TargetResult is one target's line in the run report
type TargetResult struct {
	Target      string `json:"target"`
	Status      string `json:"status"`
	Events      int    `json:"events,omitempty"`
	Attempts    int    `json:"attempts,omitempty"`
	FailureKind string `json:"failure_kind,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Report summarizes one complete pass over the configured targets
type Report struct {
	RunID         string         `json:"run_id"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at"`
	Scanned       int            `json:"scanned"`
	Succeeded     int            `json:"succeeded"`
	Failed        int            `json:"failed"`
	Events        int            `json:"events"`
	Targets       []TargetResult `json:"targets"`
	IdentityStats identity.Stats `json:"identity_stats"`
	Warnings      []string       `json:"warnings,omitempty"`
}

// Controller drives one pass: scan every target, diff against stored
// snapshots, persist new state, and hand results to the notifier. One
// failed target never aborts the pass.
type Controller struct {
	cfg      *config.Config
	scanner  worker.TargetScanner
	pool     *identity.Pool
	store    *state.Store
	notifier Notifier
	guard    diff.Guard
	now      func() time.Time
	logger   logger.Logger
}

// New creates a run controller
func New(cfg *config.Config, sc worker.TargetScanner, pool *identity.Pool, store *state.Store, notifier Notifier, log logger.Logger) *Controller {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Controller{
		cfg:      cfg,
		scanner:  sc,
		pool:     pool,
		store:    store,
		notifier: notifier,
		guard: diff.Guard{
			MinFollowCount:  cfg.Diff.MinFollowCount,
			MaxRemovalRatio: cfg.Diff.MaxRemovalRatio,
		},
		now:    time.Now,
		logger: log,
	}
}

// SetClock overrides the controller's time source (used by tests)
func (c *Controller) SetClock(now func() time.Time) { c.now = now }

// Run executes one pass over all configured targets. The returned report
// covers every target; the error is nil even when some targets failed,
// since partial results are still results.
func (c *Controller) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: c.now(),
	}

	log := c.logger.WithField("run_id", report.RunID)
	log.InfoWithFields("pass starting", map[string]interface{}{
		"targets": len(c.cfg.Targets),
	})

	if records, err := c.store.LoadIdentityHealth(); err != nil {
		log.WithError(err).Warn("could not restore identity health, starting fresh")
	} else if records != nil {
		c.pool.Restore(records)
	}

	pool := worker.NewPool(ctx, c.cfg.Scan.Concurrency, c.scanner, c.logger)
	pool.Start()

	go func() {
		// Stop runs even when a cancelled context rejects a Submit, so
		// the result channel always closes and the pass can finish.
		defer pool.Stop()
		for _, target := range c.cfg.Targets {
			if pool.Submit(worker.Job{Target: target}) != nil {
				return
			}
		}
	}()

	scanned := make(map[string]bool, len(c.cfg.Targets))
	for result := range pool.Results() {
		report.Targets = append(report.Targets, c.processResult(ctx, result, report))
		report.Scanned++
		scanned[result.Outcome.Target] = true
	}

	// Targets whose jobs were dropped by the shutdown still belong in the
	// report, as failures.
	for _, target := range c.cfg.Targets {
		if scanned[target] {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		report.Scanned++
		report.Failed++
		report.Targets = append(report.Targets, TargetResult{
			Target:      target,
			Status:      StatusFailed,
			FailureKind: classify.KindTransientBug.String(),
			Error:       "pass ended before target was scanned: " + err.Error(),
		})
		log.WarnWithFields("target not scanned before pass ended", map[string]interface{}{
			"target": target,
		})
	}

	sort.Slice(report.Targets, func(i, j int) bool {
		return report.Targets[i].Target < report.Targets[j].Target
	})

	report.FinishedAt = c.now()
	report.IdentityStats = c.pool.Stats()

	if err := c.store.SaveIdentityHealth(c.pool.HealthRecords()); err != nil {
		log.WithError(err).Error("failed to persist identity health")
		report.Warnings = append(report.Warnings, "identity health not persisted: "+err.Error())
	}
	if err := c.store.SaveRunSummary(report.RunID, report); err != nil {
		log.WithError(err).Error("failed to persist run summary")
	}

	logger.LogRunSummary(report.Scanned, report.Succeeded, report.Failed, report.Events)
	return report, nil
}

// processResult applies one scan result: diff, persist, notify
func (c *Controller) processResult(ctx context.Context, result worker.Result, report *Report) TargetResult {
	outcome := result.Outcome
	tr := TargetResult{
		Target:   outcome.Target,
		Attempts: outcome.Attempts,
	}

	if !outcome.Succeeded() {
		report.Failed++
		tr.Status = StatusFailed
		tr.FailureKind = outcome.Kind.String()
		tr.Error = outcome.Err.Error()

		c.logger.ErrorWithFields("target scan failed", map[string]interface{}{
			"target": outcome.Target,
			"kind":   outcome.Kind.String(),
			"error":  outcome.Err.Error(),
		})
		if err := c.notifier.ScanFailure(ctx, outcome.Target, outcome.Kind, outcome.Err); err != nil {
			c.logger.WithError(err).Warn("failure notification not delivered")
		}
		return tr
	}

	report.Succeeded++

	previous, err := c.store.LoadSnapshot(outcome.Target)
	if err != nil {
		// A corrupt snapshot is not the scan's fault. Treat the pass as a
		// fresh baseline and overwrite it.
		c.logger.WithError(err).WithField("target", outcome.Target).
			Warn("previous snapshot unreadable, re-establishing baseline")
		previous = nil
	}

	var previousFollows []string
	if previous != nil {
		previousFollows = previous.Follows
		if previousFollows == nil {
			previousFollows = []string{}
		}
	}

	detected := c.now()
	diffResult := diff.Compute(outcome.Target, previousFollows, outcome.Follows, detected, c.guard)

	if diffResult.Suspicious {
		// The fetch is not trusted: keep the previous snapshot so a real
		// later diff is still computed against good data.
		tr.Status = StatusSuspicious
		report.Warnings = append(report.Warnings, diffResult.Warning)

		c.logger.WarnWithFields("suspicious diff, snapshot not replaced", map[string]interface{}{
			"target":  outcome.Target,
			"warning": diffResult.Warning,
		})
		if err := c.notifier.SuspiciousDiff(ctx, outcome.Target, diffResult.Warning); err != nil {
			c.logger.WithError(err).Warn("suspicious diff notification not delivered")
		}
		return tr
	}

	if err := c.store.SaveSnapshot(&state.FollowSnapshot{
		Target:     outcome.Target,
		Follows:    outcome.Follows,
		CapturedAt: detected,
	}); err != nil {
		c.logger.WithError(err).WithField("target", outcome.Target).
			Error("failed to persist snapshot")
		report.Warnings = append(report.Warnings, "snapshot not persisted for "+outcome.Target)
	}

	switch {
	case diffResult.FirstScan:
		tr.Status = StatusBaseline
	case len(diffResult.Events) == 0:
		tr.Status = StatusUnchanged
	default:
		tr.Status = StatusChanged
		tr.Events = len(diffResult.Events)
		report.Events += len(diffResult.Events)

		added, removed := 0, 0
		for _, event := range diffResult.Events {
			if event.Kind == diff.Added {
				added++
			} else {
				removed++
			}
		}
		logger.LogDiffSummary(outcome.Target, added, removed)

		if err := c.notifier.FollowEvents(ctx, diffResult.Events); err != nil {
			c.logger.WithError(err).Warn("follow events notification not delivered")
		}
	}

	return tr
}
