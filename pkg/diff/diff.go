package diff

import (
	"fmt"
	"sort"
	"time"
)

// EventKind distinguishes a new follow from a removed one.
type EventKind string

const (
	Added   EventKind = "added"
	Removed EventKind = "removed"
)

// Event is one observed change in a target's follow list
type Event struct {
	Target       string    `json:"target"`
	Kind         EventKind `json:"kind"`
	FollowHandle string    `json:"follow_handle"`
	DetectedAt   time.Time `json:"detected_at"`
}

// Result carries the events of one comparison plus the suspicious-change
// verdict. A first scan produces no events; it only establishes the
// baseline.
type Result struct {
	Events     []Event
	FirstScan  bool
	Suspicious bool
	Warning    string
}

// Guard holds the thresholds that separate a plausible mass unfollow from
// a truncated or glitched fetch.
type Guard struct {
	// MinFollowCount is the smallest follow-set considered trustworthy.
	// A current fetch below it is suspicious outright, and the removal
	// ratio check only applies to previous snapshots at least this
	// large, since tiny lists churn legitimately.
	MinFollowCount int
	// MaxRemovalRatio is the fraction of the previous list that may
	// disappear in one scan before the result is considered suspicious.
	MaxRemovalRatio float64
}

// DefaultGuard mirrors the thresholds the scout has always shipped with
func DefaultGuard() Guard {
	return Guard{MinFollowCount: 10, MaxRemovalRatio: 0.5}
}

// Compute compares a target's previous snapshot against the current fetch.
// previous == nil means first scan: no events, baseline only. Events list
// additions before removals, each group sorted by handle, so reports read
// the same way regardless of fetch order.
func Compute(target string, previous []string, current []string, detectedAt time.Time, guard Guard) Result {
	if previous == nil {
		return Result{FirstScan: true}
	}

	before := toSet(previous)
	after := toSet(current)

	var added, removed []string
	for handle := range after {
		if !before[handle] {
			added = append(added, handle)
		}
	}
	for handle := range before {
		if !after[handle] {
			removed = append(removed, handle)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)

	result := Result{}
	for _, handle := range added {
		result.Events = append(result.Events, Event{
			Target:       target,
			Kind:         Added,
			FollowHandle: handle,
			DetectedAt:   detectedAt,
		})
	}
	for _, handle := range removed {
		result.Events = append(result.Events, Event{
			Target:       target,
			Kind:         Removed,
			FollowHandle: handle,
			DetectedAt:   detectedAt,
		})
	}

	if guard.MinFollowCount > 0 && len(after) < guard.MinFollowCount {
		result.Suspicious = true
		result.Warning = fmt.Sprintf(
			"%s: fetch returned only %d follows (minimum %d), likely truncated",
			target, len(after), guard.MinFollowCount)
		return result
	}

	if len(before) >= guard.MinFollowCount && guard.MaxRemovalRatio > 0 {
		ratio := float64(len(removed)) / float64(len(before))
		if ratio > guard.MaxRemovalRatio {
			result.Suspicious = true
			result.Warning = fmt.Sprintf(
				"%s: %d of %d follows gone in one scan, likely a bad fetch",
				target, len(removed), len(before))
		}
	}

	return result
}

func toSet(handles []string) map[string]bool {
	set := make(map[string]bool, len(handles))
	for _, h := range handles {
		set[h] = true
	}
	return set
}
