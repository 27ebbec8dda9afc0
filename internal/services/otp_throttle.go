package services

import (
	"fmt"
	"time"

	"shopsite/internal/models"
)

// Session-level throttle, layered over the per-code attempt counter. The
// per-code counter limits guessing one issued code; this one limits bursts of
// submissions across issuances, with escalating cooldowns.

const throttleThreshold = 3

// Delay applied once failures reach the threshold, indexed by
// attempts - threshold and clamped to the last entry.
var throttleBackoff = []time.Duration{
	30 * time.Second,
	time.Minute,
	5 * time.Minute,
	time.Hour,
	8 * time.Hour,
}

// ThrottleStatus describes a rejected attempt.
type ThrottleStatus struct {
	Disabled         bool   `json:"is_disabled"`
	RemainingMessage string `json:"remaining_message"`
	RemainingSeconds int    `json:"next_attempt_time_seconds"`
}

// CheckThrottle returns a non-nil status while the client must wait, nil when
// the attempt may proceed. It never mutates state.
func CheckThrottle(state models.ThrottleState, now time.Time) *ThrottleStatus {
	if state.Attempts < throttleThreshold || state.NextAttemptAt.IsZero() {
		return nil
	}
	if !now.Before(state.NextAttemptAt) {
		return nil
	}
	remaining := int(state.NextAttemptAt.Sub(now).Seconds())
	return &ThrottleStatus{
		Disabled:         true,
		RemainingMessage: formatRemaining(remaining),
		RemainingSeconds: remaining,
	}
}

// RegisterThrottleFailure increments the counter and, once it crosses the
// threshold, schedules the next allowed attempt. Returns the updated state
// and the imposed delay (zero below the threshold).
func RegisterThrottleFailure(state models.ThrottleState, now time.Time) (models.ThrottleState, time.Duration) {
	state.Attempts++
	if state.Attempts < throttleThreshold {
		return state, 0
	}
	idx := state.Attempts - throttleThreshold
	if idx >= len(throttleBackoff) {
		idx = len(throttleBackoff) - 1
	}
	delay := throttleBackoff[idx]
	state.NextAttemptAt = now.Add(delay)
	return state, delay
}

func formatRemaining(seconds int) string {
	minutes := seconds / 60
	if minutes > 0 {
		return fmt.Sprintf("%d minute(s) %d second(s)", minutes, seconds%60)
	}
	return fmt.Sprintf("%d seconds", seconds)
}
