package models

import "time"

// PasswordOTP is the single outstanding reset code for an email.
// Reissuing overwrites code, token, expiry and resets attempts.
type PasswordOTP struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Code      string    `json:"-"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
}
