// Package repository declares the server-side storage interfaces.
// The service layer depends on these, never on a concrete database.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/sakif/ud-notes/internal/model"
)

// NoteFilter narrows a note listing.
type NoteFilter struct {
	// SubjectID restricts the listing to one subject; nil lists all subjects.
	SubjectID *uuid.UUID
	// ViewerID applies the visibility policy: the viewer's own notes plus
	// everyone's public notes. Empty means no policy (trusted callers only).
	ViewerID string
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	UpsertGitHubUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

type SubjectRepository interface {
	CreateSubject(ctx context.Context, subject *model.Subject) error
	GetSubject(ctx context.Context, id uuid.UUID) (*model.Subject, error)
	// ListSubjects returns the owner's subjects ordered by name ascending.
	ListSubjects(ctx context.Context, ownerID string) ([]model.Subject, error)
}

type NoteRepository interface {
	CreateNote(ctx context.Context, note *model.Note) error
	// ListNotes returns notes newest first, each with its subject resolved
	// through an outer join.
	ListNotes(ctx context.Context, filter NoteFilter) ([]model.Note, error)
	// DeleteNote removes the note with id owned by ownerID.
	DeleteNote(ctx context.Context, id uuid.UUID, ownerID string) error
}
