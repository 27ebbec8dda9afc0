package models

import "time"

// ThrottleState is the per-client verification counter. It lives in the
// ephemeral session store and is passed through the verify call explicitly.
type ThrottleState struct {
	Attempts      int       `json:"attempts"`
	NextAttemptAt time.Time `json:"next_attempt_at"`
}
