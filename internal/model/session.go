package model

import "time"

// Identity is the current user as reported by the identity provider.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is an authenticated identity context issued by the identity provider.
//
// The AccessToken is opaque to the client; only the server can read it.
// A nil *Session means "signed out", which is a valid state and not an error.
type Session struct {
	AccessToken string    `json:"accessToken"`
	User        Identity  `json:"user"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// SameSession reports whether a and b describe the same session value.
// Two nil sessions are the same; a nil and a non-nil session are not.
func SameSession(a, b *Session) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.AccessToken == b.AccessToken && a.User == b.User
}
