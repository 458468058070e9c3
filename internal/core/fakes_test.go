package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/ud-notes/internal/apperror"
	"github.com/sakif/ud-notes/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sessionFor(id, email string) *model.Session {
	return &model.Session{
		AccessToken: "token-" + id,
		User:        model.Identity{ID: id, Email: email},
		ExpiresAt:   time.Now().Add(time.Hour),
	}
}

// fakeProvider is an in-memory IdentityProvider. emit simulates a provider
// notification.
type fakeProvider struct {
	mu         sync.Mutex
	session    *model.Session
	getErr     error
	signOutErr error
	// block, when set, makes GetSession wait for ctx to end.
	block     bool
	listeners listeners[*model.Session]
	signOuts  int
}

func (p *fakeProvider) GetSession(ctx context.Context) (*model.Session, error) {
	p.mu.Lock()
	block, err, sess := p.block, p.getErr, p.session
	p.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (p *fakeProvider) OnAuthStateChange(fn func(*model.Session)) func() {
	return p.listeners.add(fn)
}

func (p *fakeProvider) GetCurrentUser(context.Context) (*model.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return nil, nil
	}
	id := p.session.User
	return &id, nil
}

func (p *fakeProvider) SignOut(context.Context) error {
	p.mu.Lock()
	p.signOuts++
	err := p.signOutErr
	if err == nil {
		p.session = nil
	}
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.listeners.emit(nil)
	return nil
}

// signIn replaces the provider session and notifies, like a real sign-in.
func (p *fakeProvider) signIn(sess *model.Session) {
	p.mu.Lock()
	p.session = sess
	p.mu.Unlock()
	p.listeners.emit(sess)
}

// fakeStore is an in-memory SubjectStore and NoteStore. Its visibility
// policy is "everything".
type fakeStore struct {
	mu       sync.Mutex
	subjects []model.Subject
	notes    []model.Note // insertion order

	listSubjectsErr error
	insertErr       error
	listNotesErr    error

	// beforeListNotes runs at the start of ListNotes, outside the lock.
	beforeListNotes func(subjectID *uuid.UUID)
	listNotesCalls  int
	clock           time.Time
}

var (
	_ SubjectStore = (*fakeStore)(nil)
	_ NoteStore    = (*fakeStore)(nil)
)

func newFakeStore() *fakeStore {
	return &fakeStore{clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (s *fakeStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *fakeStore) ListSubjects(context.Context) ([]model.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listSubjectsErr != nil {
		return nil, s.listSubjectsErr
	}
	out := slices.Clone(s.subjects)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *fakeStore) InsertSubject(_ context.Context, subject model.Subject) (*model.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	subject.ID = uuid.New()
	subject.CreatedAt = s.tick()
	s.subjects = append(s.subjects, subject)
	return &subject, nil
}

func (s *fakeStore) ListNotes(_ context.Context, subjectID *uuid.UUID) ([]model.Note, error) {
	s.mu.Lock()
	s.listNotesCalls++
	hook := s.beforeListNotes
	s.mu.Unlock()
	if hook != nil {
		hook(subjectID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listNotesErr != nil {
		return nil, s.listNotesErr
	}
	out := []model.Note{}
	for i := len(s.notes) - 1; i >= 0; i-- {
		n := s.notes[i]
		if subjectID != nil && (n.SubjectID == nil || *n.SubjectID != *subjectID) {
			continue
		}
		n.Subject = nil
		if n.SubjectID != nil {
			for _, sub := range s.subjects {
				if sub.ID == *n.SubjectID {
					n.Subject = sub.Summary()
				}
			}
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *fakeStore) InsertNote(_ context.Context, note model.Note) (*model.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	note.ID = uuid.New()
	note.CreatedAt = s.tick()
	s.notes = append(s.notes, note)
	return &note, nil
}

func (s *fakeStore) DeleteNote(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.notes {
		if n.ID == id {
			s.notes = append(s.notes[:i], s.notes[i+1:]...)
			return nil
		}
	}
	return apperror.Repository("deleting note", apperror.NotFound("note", id.String()))
}

func (s *fakeStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listNotesCalls
}

var errBoom = errors.New("connection reset")

// harness is a full CORE over fakes, signed in as ada unless stated.
type harness struct {
	provider *fakeProvider
	store    *fakeStore
	session  *SessionStore
	subjects *SubjectRegistry
	notes    *NoteRepository
}

func newHarness(signedIn bool) *harness {
	logger := discardLogger()
	p := &fakeProvider{}
	if signedIn {
		p.session = sessionFor("ada", "ada@example.com")
	}
	store := newFakeStore()
	session := NewSessionStore(p, logger)
	return &harness{
		provider: p,
		store:    store,
		session:  session,
		subjects: NewSubjectRegistry(store, session, logger),
		notes:    NewNoteRepository(store, session, logger),
	}
}
