package core

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/sakif/ud-notes/internal/model"
)

// View is everything the screen shows. It is computed from the component
// snapshots and never stored.
type View struct {
	SignedIn bool
	Email    string

	Subjects []model.Subject
	Selected *model.Subject

	Notes     []model.Note
	NoteState ListState

	// ListHeading is "All Notes" or "Notes in <subject>".
	ListHeading string
	// FormHeading is "Create New Note" or "Create Note in <subject>".
	FormHeading string

	// Err is the last failed operation, cleared by the next success.
	Err error
}

// Compose builds the View. A nil session yields an empty signed-out view
// whatever the other arguments hold.
func Compose(sess *model.Session, selected *model.Subject, subjects []model.Subject, notes []model.Note, state ListState, err error) View {
	if sess == nil {
		return View{ListHeading: "All Notes", FormHeading: "Create New Note", Err: err}
	}

	v := View{
		SignedIn:    true,
		Email:       sess.User.Email,
		Subjects:    slices.Clone(subjects),
		Selected:    cloneSubject(selected),
		Notes:       slices.Clone(notes),
		NoteState:   state,
		ListHeading: "All Notes",
		FormHeading: "Create New Note",
		Err:         err,
	}
	if selected != nil {
		v.ListHeading = "Notes in " + selected.Name
		v.FormHeading = "Create Note in " + selected.Name
	}
	return v
}

// Composer wires the SessionStore, SubjectRegistry and NoteRepository
// together and publishes a fresh View after every change.
//
//   - session absent → present: fetch subjects and notes
//   - session present → absent: reset subjects (with selection) and notes
//   - identity switch: reset, then fetch for the new identity
//   - selection change: exactly one note reload with the new filter
type Composer struct {
	session  *SessionStore
	subjects *SubjectRegistry
	notes    *NoteRepository
	logger   *slog.Logger

	mu sync.Mutex
	// ctx is the Start context; loads triggered by session changes use it.
	ctx     context.Context
	userID  string
	lastErr error
	unsubs  []func()

	views listeners[View]
}

func NewComposer(session *SessionStore, subjects *SubjectRegistry, notes *NoteRepository, logger *slog.Logger) *Composer {
	return &Composer{
		session:  session,
		subjects: subjects,
		notes:    notes,
		logger:   logger,
		ctx:      context.Background(),
	}
}

// Start subscribes to the components and resolves the initial session. When
// a session is present, subjects and notes are loaded before Start returns.
func (c *Composer) Start(ctx context.Context) error {
	c.mu.Lock()
	c.ctx = ctx
	c.unsubs = append(c.unsubs,
		c.session.OnSessionChange(c.handleSession),
		c.subjects.OnChange(c.publish),
		c.notes.OnChange(c.publish),
	)
	c.mu.Unlock()

	if _, err := c.session.Init(ctx); err != nil {
		c.record(err)
		return err
	}
	c.publish()
	return nil
}

// Close removes every subscription made by Start.
func (c *Composer) Close() {
	c.mu.Lock()
	unsubs := c.unsubs
	c.unsubs = nil
	c.mu.Unlock()
	for _, u := range unsubs {
		u()
	}
}

func (c *Composer) handleSession(sess *model.Session) {
	next := ""
	if sess != nil {
		next = sess.User.ID
	}

	c.mu.Lock()
	prev := c.userID
	c.userID = next
	ctx := c.ctx
	c.mu.Unlock()

	if prev == next {
		// Token refresh for the same identity.
		c.publish()
		return
	}

	if prev != "" {
		c.logger.Debug("discarding state of previous identity", slog.String("userID", prev))
		c.subjects.Reset()
		c.notes.Reset()
		c.mu.Lock()
		c.lastErr = nil
		c.mu.Unlock()
	}
	if next != "" {
		c.load(ctx)
	}
	c.publish()
}

// load fetches subjects and then notes for the current selection. The two
// lists are independent: a subject failure does not skip the note fetch.
func (c *Composer) load(ctx context.Context) error {
	_, subjectsErr := c.subjects.Reload(ctx)
	_, notesErr := c.notes.Reload(ctx, c.subjects.Selected())
	return c.settle(subjectsErr, notesErr)
}

// Refresh reloads subjects and notes.
func (c *Composer) Refresh(ctx context.Context) error {
	if _, err := c.session.Require(); err != nil {
		c.record(err)
		return err
	}
	return c.load(ctx)
}

// Select changes the subject filter (nil for all notes) and reloads the
// notes once if the selection changed.
func (c *Composer) Select(ctx context.Context, subject *model.Subject) error {
	if _, err := c.session.Require(); err != nil {
		c.record(err)
		return err
	}
	if !c.subjects.Select(subject) {
		return nil
	}
	_, err := c.notes.Reload(ctx, c.subjects.Selected())
	return c.settle(err)
}

func (c *Composer) CreateSubject(ctx context.Context, name, description string) (*model.Subject, error) {
	s, err := c.subjects.Create(ctx, name, description)
	c.record(err)
	return s, err
}

// CreateNote creates a note under the current selection and then re-lists.
func (c *Composer) CreateNote(ctx context.Context, form *NoteForm) (*model.Note, error) {
	selected := c.subjects.Selected()
	n, err := c.notes.Create(ctx, form, selected)
	if err != nil {
		c.record(err)
		return nil, err
	}
	_, err = c.notes.Reload(ctx, c.subjects.Selected())
	return n, c.settle(err)
}

func (c *Composer) DeleteNote(ctx context.Context, id uuid.UUID) error {
	err := c.notes.Delete(ctx, id)
	c.record(err)
	return err
}

// SignOut ends the session. State is cleared even when the provider call
// fails.
func (c *Composer) SignOut(ctx context.Context) error {
	err := c.session.SignOut(ctx)
	c.record(err)
	return err
}

// View returns the current view.
func (c *Composer) View() View {
	c.mu.Lock()
	lastErr := c.lastErr
	c.mu.Unlock()

	return Compose(
		c.session.Current(),
		c.subjects.Selected(),
		c.subjects.Subjects(),
		c.notes.Notes(),
		c.notes.State(),
		lastErr,
	)
}

// Subscribe registers fn to receive a fresh View after every change.
func (c *Composer) Subscribe(fn func(View)) (unsubscribe func()) {
	return c.views.add(fn)
}

// record stores err as the last error; nil clears it.
func (c *Composer) record(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
	c.publish()
}

// settle records the outcome of list requests. Stale results are dropped:
// they neither report an error nor clear the current one.
func (c *Composer) settle(errs ...error) error {
	var live []error
	stale := false
	for _, err := range errs {
		switch {
		case errors.Is(err, ErrStale):
			stale = true
		case err != nil:
			live = append(live, err)
		}
	}
	if len(live) == 0 && stale {
		return nil
	}
	var err error
	switch len(live) {
	case 0:
	case 1:
		err = live[0]
	default:
		err = errors.Join(live...)
	}
	c.record(err)
	return err
}

func (c *Composer) publish() {
	c.views.emit(c.View())
}
