package core

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/sakif/ud-notes/internal/apperror"
	"github.com/sakif/ud-notes/internal/model"
)

// SubjectRegistry holds the user's subjects and the current selection.
// A nil selection means "all notes".
type SubjectRegistry struct {
	store   SubjectStore
	session *SessionStore
	logger  *slog.Logger

	mu       sync.Mutex
	subjects []model.Subject
	selected *model.Subject
	seq      uint64

	changed listeners[struct{}]
}

func NewSubjectRegistry(store SubjectStore, session *SessionStore, logger *slog.Logger) *SubjectRegistry {
	return &SubjectRegistry{store: store, session: session, logger: logger}
}

// Reload fetches the subjects in the store's order (name ascending). On
// failure the previous list is kept. A response overtaken by a newer Reload
// or a Reset is dropped with ErrStale.
func (r *SubjectRegistry) Reload(ctx context.Context) ([]model.Subject, error) {
	if _, err := r.session.Require(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.seq++
	seq := r.seq
	r.mu.Unlock()

	subjects, err := r.store.ListSubjects(ctx)

	r.mu.Lock()
	if seq != r.seq {
		r.mu.Unlock()
		r.logger.Debug("discarding stale subject list", slog.Uint64("seq", seq))
		return nil, ErrStale
	}
	if err != nil {
		r.mu.Unlock()
		r.logger.Warn("listing subjects failed", slog.String("error", err.Error()))
		return nil, repositoryError("listing subjects", err)
	}
	r.subjects = slices.Clone(subjects)
	r.mu.Unlock()

	r.changed.emit(struct{}{})
	return subjects, nil
}

// Create stores a subject owned by the signed-in user and reloads the list
// before returning, so the next Subjects call includes it. Nothing is kept
// locally when the insert fails. If the insert succeeds but the reload
// fails, the new subject is returned together with the reload error.
func (r *SubjectRegistry) Create(ctx context.Context, name, description string) (*model.Subject, error) {
	sess, err := r.session.Require()
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "subject name is required")
	}

	created, err := r.store.InsertSubject(ctx, model.Subject{
		Name:        name,
		Description: strings.TrimSpace(description),
		OwnerID:     sess.User.ID,
	})
	if err != nil {
		r.logger.Warn("creating subject failed", slog.String("error", err.Error()))
		return nil, repositoryError("creating subject", err)
	}

	if _, err := r.Reload(ctx); err != nil && !errors.Is(err, ErrStale) {
		return created, err
	}
	return created, nil
}

// Select sets the selection; nil selects all notes. It reports whether the
// selection actually changed.
func (r *SubjectRegistry) Select(subject *model.Subject) bool {
	r.mu.Lock()
	if sameSubject(r.selected, subject) {
		r.mu.Unlock()
		return false
	}
	r.selected = cloneSubject(subject)
	r.mu.Unlock()

	r.changed.emit(struct{}{})
	return true
}

// Selected returns a copy of the selection, or nil.
func (r *SubjectRegistry) Selected() *model.Subject {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneSubject(r.selected)
}

func (r *SubjectRegistry) Subjects() []model.Subject {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.subjects)
}

// Find returns the loaded subject with the given name.
func (r *SubjectRegistry) Find(name string) (*model.Subject, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subjects {
		if s.Name == name {
			return cloneSubject(&s), true
		}
	}
	return nil, false
}

// Reset drops the list and the selection and invalidates requests in flight.
func (r *SubjectRegistry) Reset() {
	r.mu.Lock()
	r.subjects = nil
	r.selected = nil
	r.seq++
	r.mu.Unlock()

	r.changed.emit(struct{}{})
}

// OnChange registers fn for any change of list or selection.
func (r *SubjectRegistry) OnChange(fn func()) (unsubscribe func()) {
	return r.changed.add(func(struct{}) { fn() })
}

func sameSubject(a, b *model.Subject) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}

func cloneSubject(s *model.Subject) *model.Subject {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
