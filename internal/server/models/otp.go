package models

import "time"

// OneTimeCode is a numeric passcode issued to a user on registration or login.
type OneTimeCode struct {
	ID        string
	UserID    string
	Code      string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// IsValidAt reports whether the code can still be redeemed at t.
func (c *OneTimeCode) IsValidAt(t time.Time) bool {
	return !c.Used && c.ExpiresAt.After(t)
}
