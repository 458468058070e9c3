// Package model defines the data structures shared by the service and the
// client core. The json tags are the wire format between the two.
package model

import "time"

// User represents a registered account on the server.
//
// An account is created either by email/password sign-up or by the first
// GitHub OAuth login. Internal IDs are xid strings; they are the "owner"
// value stored on every subject and note.
//
// PasswordHash is never serialised (json:"-"). GitHubID is nil for accounts
// that never logged in through GitHub.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	GitHubID     *int64    `json:"githubId,omitempty"` // GitHub's numeric user ID
	Login        string    `json:"login,omitempty"`    // GitHub username, e.g. "sakif"
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Identity returns the public face of the account: what getCurrentUser reports.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Email: u.Email}
}
