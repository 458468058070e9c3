package core

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/sakif/ud-notes/internal/apperror"
	"github.com/sakif/ud-notes/internal/model"
)

// ListState is the loading state of the note list.
type ListState int

const (
	StateIdle ListState = iota
	StateLoading
	StateLoaded
	StateError
)

func (s ListState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// NoteForm holds the fields of a note being written.
type NoteForm struct {
	Title    string
	Content  string
	IsPublic bool
}

// Reset clears the form after a successful create.
func (f *NoteForm) Reset() {
	*f = NoteForm{}
}

// NoteRepository holds the listed notes. There is no update operation:
// notes are immutable once created.
type NoteRepository struct {
	store   NoteStore
	session *SessionStore
	logger  *slog.Logger

	mu    sync.Mutex
	notes []model.Note
	state ListState
	err   error
	seq   uint64
	// deleted holds ids removed while the current list request was in
	// flight, so its response cannot bring them back.
	deleted map[uuid.UUID]struct{}

	changed listeners[struct{}]
}

func NewNoteRepository(store NoteStore, session *SessionStore, logger *slog.Logger) *NoteRepository {
	return &NoteRepository{store: store, session: session, logger: logger}
}

// Reload lists notes newest first, restricted to filter when it is non-nil.
// The state is loading until the response arrives and then loaded or error;
// on error the previous list is kept. A response overtaken by a newer Reload
// or a Reset changes nothing and returns ErrStale.
func (r *NoteRepository) Reload(ctx context.Context, filter *model.Subject) ([]model.Note, error) {
	if _, err := r.session.Require(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.seq++
	seq := r.seq
	r.state = StateLoading
	r.err = nil
	r.deleted = make(map[uuid.UUID]struct{})
	r.mu.Unlock()
	r.changed.emit(struct{}{})

	var subjectID *uuid.UUID
	if filter != nil {
		id := filter.ID
		subjectID = &id
	}

	notes, err := r.store.ListNotes(ctx, subjectID)

	r.mu.Lock()
	if seq != r.seq {
		r.mu.Unlock()
		r.logger.Debug("discarding stale note list", slog.Uint64("seq", seq))
		return nil, ErrStale
	}
	if err != nil {
		err = repositoryError("listing notes", err)
		r.state = StateError
		r.err = err
		r.mu.Unlock()
		r.logger.Warn("listing notes failed", slog.String("error", err.Error()))
		r.changed.emit(struct{}{})
		return nil, err
	}
	notes = slices.DeleteFunc(slices.Clone(notes), func(n model.Note) bool {
		_, gone := r.deleted[n.ID]
		return gone
	})
	r.notes = notes
	r.state = StateLoaded
	r.mu.Unlock()

	r.changed.emit(struct{}{})
	return slices.Clone(notes), nil
}

// Create stores a note owned by the signed-in user under subject (nil for
// none). On success the form is reset; on failure it is left intact. The
// list is not refreshed; callers re-list when they want fresh data.
func (r *NoteRepository) Create(ctx context.Context, form *NoteForm, subject *model.Subject) (*model.Note, error) {
	sess, err := r.session.Require()
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(form.Title) == "" {
		return nil, apperror.ValidationFailed("title", "note title is required")
	}
	if strings.TrimSpace(form.Content) == "" {
		return nil, apperror.ValidationFailed("content", "note content is required")
	}

	note := model.Note{
		Title:    form.Title,
		Content:  form.Content,
		IsPublic: form.IsPublic,
		OwnerID:  sess.User.ID,
	}
	if subject != nil {
		id := subject.ID
		note.SubjectID = &id
	}

	created, err := r.store.InsertNote(ctx, note)
	if err != nil {
		r.logger.Warn("creating note failed", slog.String("error", err.Error()))
		return nil, repositoryError("creating note", err)
	}

	form.Reset()
	return created, nil
}

// Delete removes the note from the store and then exactly that id from the
// local list. On failure the list is unchanged.
func (r *NoteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.session.Require(); err != nil {
		return err
	}

	if err := r.store.DeleteNote(ctx, id); err != nil {
		r.logger.Warn("deleting note failed",
			slog.String("id", id.String()),
			slog.String("error", err.Error()),
		)
		return repositoryError("deleting note", err)
	}

	r.mu.Lock()
	r.notes = slices.DeleteFunc(r.notes, func(n model.Note) bool { return n.ID == id })
	if r.deleted != nil {
		r.deleted[id] = struct{}{}
	}
	r.mu.Unlock()

	r.changed.emit(struct{}{})
	return nil
}

func (r *NoteRepository) Notes() []model.Note {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.notes)
}

func (r *NoteRepository) State() ListState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Err returns the error of the last list request, if it failed.
func (r *NoteRepository) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Reset drops all notes and invalidates requests in flight.
func (r *NoteRepository) Reset() {
	r.mu.Lock()
	r.notes = nil
	r.state = StateIdle
	r.err = nil
	r.deleted = nil
	r.seq++
	r.mu.Unlock()

	r.changed.emit(struct{}{})
}

func (r *NoteRepository) OnChange(fn func()) (unsubscribe func()) {
	return r.changed.add(func(struct{}) { fn() })
}
