package domain

import (
	"sort"
	"time"
)

const (
	RoleAdmin = "ROLE_ADMIN"
	RoleUser  = "ROLE_USER"
)

// Role is static reference data; it is looked up by name, never created by
// the authentication flows.
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// User models an authenticated actor in the system.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Roles        []Role    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RoleNames returns the names of the user's roles sorted lexicographically.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	sort.Strings(names)
	return names
}

// PrimaryRole returns the lexicographically smallest role name, or "" when
// the user has no roles.
func (u *User) PrimaryRole() string {
	names := u.RoleNames()
	if len(names) == 0 {
		return ""
	}
	return names[0]
}
