package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/sakif/ud-notes/internal/apperror"
	"github.com/sakif/ud-notes/internal/model"
	"github.com/sakif/ud-notes/internal/repository"
)

const (
	MaxNoteTitleLength   = 200
	MaxNoteContentLength = 20000
)

// NoteService owns the note rules.
//
// Visibility: a viewer sees their own notes plus every public note. Notes
// are created for the caller only, may reference only the caller's own
// subjects, and may be deleted only by their owner.
type NoteService struct {
	notes    repository.NoteRepository
	subjects repository.SubjectRepository
	logger   *slog.Logger
}

func NewNoteService(notes repository.NoteRepository, subjects repository.SubjectRepository, logger *slog.Logger) *NoteService {
	return &NoteService{notes: notes, subjects: subjects, logger: logger}
}

// NoteInput is a create request as received from the client.
type NoteInput struct {
	Title     string
	Content   string
	IsPublic  bool
	SubjectID *uuid.UUID
	// OwnerID is what the client claims; it must be empty or the viewer.
	OwnerID string
}

// List returns the notes visible to viewerID, newest first, optionally
// restricted to one subject.
func (s *NoteService) List(ctx context.Context, viewerID string, subjectID *uuid.UUID) ([]model.Note, error) {
	notes, err := s.notes.ListNotes(ctx, repository.NoteFilter{
		SubjectID: subjectID,
		ViewerID:  viewerID,
	})
	if err != nil {
		s.logger.Error("failed to list notes", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	return notes, nil
}

// Create validates and stores a note owned by viewerID. The returned note
// has its subject summary resolved.
func (s *NoteService) Create(ctx context.Context, viewerID string, in NoteInput) (*model.Note, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "note title is required")
	}
	if utf8.RuneCountInString(title) > MaxNoteTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("note title must be %d characters or less", MaxNoteTitleLength))
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, apperror.ValidationFailed("content", "note content is required")
	}
	if utf8.RuneCountInString(in.Content) > MaxNoteContentLength {
		return nil, apperror.ValidationFailed("content",
			fmt.Sprintf("note content must be %d characters or less", MaxNoteContentLength))
	}
	if in.OwnerID != "" && in.OwnerID != viewerID {
		return nil, apperror.Forbidden("notes can only be created for the signed-in user")
	}

	note := &model.Note{
		Title:    title,
		Content:  in.Content,
		IsPublic: in.IsPublic,
		OwnerID:  viewerID,
	}

	if in.SubjectID != nil {
		subject, err := s.subjects.GetSubject(ctx, *in.SubjectID)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return nil, apperror.ValidationFailed("subjectId", "subject does not exist")
			}
			return nil, fmt.Errorf("resolving subject: %w", err)
		}
		if subject.OwnerID != viewerID {
			// Reported like a missing subject: other users' subjects are invisible.
			return nil, apperror.ValidationFailed("subjectId", "subject does not exist")
		}
		id := subject.ID
		note.SubjectID = &id
		note.Subject = subject.Summary()
	}

	if err := s.notes.CreateNote(ctx, note); err != nil {
		s.logger.Error("failed to create note",
			slog.String("title", title),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating note: %w", err)
	}

	s.logger.Info("note created",
		slog.String("id", note.ID.String()),
		slog.Bool("public", note.IsPublic),
	)
	return note, nil
}

// Delete removes the viewer's note. Missing notes and notes owned by others
// both return apperror.ErrNotFound.
func (s *NoteService) Delete(ctx context.Context, viewerID string, id uuid.UUID) error {
	if err := s.notes.DeleteNote(ctx, id, viewerID); err != nil {
		return err
	}
	s.logger.Info("note deleted", slog.String("id", id.String()))
	return nil
}
