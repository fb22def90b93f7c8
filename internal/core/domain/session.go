package domain

import "time"

// RefreshToken is the single persisted refresh credential of a user.
// UserID and Token are both unique across the store.
type RefreshToken struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Principal is the identity recovered from a verified credential. It is
// passed explicitly to whoever needs it and never stored.
type Principal struct {
	UserID   int64
	Subject  string
	Username string
	Roles    []string
}

// LoginResult is what a successful login hands back to the caller.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	UserID       int64
	Role         string
}
