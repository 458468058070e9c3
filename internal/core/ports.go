// Package core is the session-gated data-access layer of the notes client.
//
// COMPONENTS (leaves first):
//
//	SessionStore    → the single source of truth for "is a user signed in"
//	SubjectRegistry → the user's subjects and the current selection
//	NoteRepository  → note listing (filtered by selection), create, delete
//	Composer        → combines the three into a View and re-renders on change
//
// The SessionStore gates everything: no subject or note operation reaches a
// store while the session is absent. Each component owns its state behind its
// own mutex and hands out copies. None of them holds a lock while talking to
// a store or calling a listener.
//
// LAST REQUEST WINS:
// Every list request takes a sequence number. A response is applied only if
// no newer request (or Reset) happened while it was in flight; otherwise it
// is discarded, so a slow response for an old filter cannot overwrite a newer
// one. A discarded response, success or failure, is reported as ErrStale.
//
// The stores and the identity provider are ports. internal/client implements
// them over HTTP; tests use in-memory fakes.
package core

import (
	"context"

	"github.com/google/uuid"

	"github.com/sakif/ud-notes/internal/model"
)

// IdentityProvider supplies the session lifecycle.
type IdentityProvider interface {
	// GetSession returns an already valid session, or nil.
	GetSession(ctx context.Context) (*model.Session, error)
	// OnAuthStateChange registers fn for every session transition and
	// returns a function that removes it.
	OnAuthStateChange(fn func(*model.Session)) (unsubscribe func())
	// GetCurrentUser returns the identity behind the session, or nil.
	GetCurrentUser(ctx context.Context) (*model.Identity, error)
	SignOut(ctx context.Context) error
}

// SubjectStore is the remote subject table. Visibility is the store's policy.
type SubjectStore interface {
	// ListSubjects returns subjects ordered by name ascending.
	ListSubjects(ctx context.Context) ([]model.Subject, error)
	InsertSubject(ctx context.Context, subject model.Subject) (*model.Subject, error)
}

// NoteStore is the remote note table. Visibility is the store's policy.
type NoteStore interface {
	// ListNotes returns notes newest first with their subject resolved.
	// A nil subjectID lists across all subjects.
	ListNotes(ctx context.Context, subjectID *uuid.UUID) ([]model.Note, error)
	InsertNote(ctx context.Context, note model.Note) (*model.Note, error)
	DeleteNote(ctx context.Context, id uuid.UUID) error
}
