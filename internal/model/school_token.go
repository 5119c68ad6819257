package model

import "time"

// SchoolExamToken is the single shared classroom entry token for a school.
// Rotated by an administrator; this system only ever reads it. ExpiresAt is
// a naive timestamp in the school's local timezone, like the exam window;
// nil means the token never expires.
type SchoolExamToken struct {
	SchoolID  int        `json:"school_id"`
	Token     string     `json:"token"`
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}
