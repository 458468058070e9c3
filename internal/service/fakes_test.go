package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/ud-notes/internal/apperror"
	"github.com/sakif/ud-notes/internal/model"
	"github.com/sakif/ud-notes/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeUserRepo is an in-memory repository.UserRepository.
type fakeUserRepo struct {
	byID   map[string]*model.User
	nextID int
	// set to simulate a database failure
	err error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[string]*model.User)}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, u *model.User) error {
	if f.err != nil {
		return f.err
	}
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return apperror.Conflict("user", u.Email)
		}
	}
	f.nextID++
	u.ID = fmt.Sprintf("user-%d", f.nextID)
	u.CreatedAt = time.Now()
	stored := *u
	f.byID[u.ID] = &stored
	return nil
}

func (f *fakeUserRepo) UpsertGitHubUser(ctx context.Context, u *model.User) error {
	if f.err != nil {
		return f.err
	}
	for _, existing := range f.byID {
		if (existing.GitHubID != nil && *existing.GitHubID == *u.GitHubID) || existing.Email == u.Email {
			existing.GitHubID = u.GitHubID
			existing.Login = u.Login
			*u = *existing
			return nil
		}
	}
	return f.CreateUser(ctx, u)
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

// fakeStore is an in-memory SubjectRepository and NoteRepository.
type fakeStore struct {
	subjects map[uuid.UUID]model.Subject
	notes    []model.Note // insertion order
	err      error
}

var (
	_ repository.SubjectRepository = (*fakeStore)(nil)
	_ repository.NoteRepository    = (*fakeStore)(nil)
)

func newFakeStore() *fakeStore {
	return &fakeStore{subjects: make(map[uuid.UUID]model.Subject)}
}

func (f *fakeStore) CreateSubject(_ context.Context, s *model.Subject) error {
	if f.err != nil {
		return f.err
	}
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	f.subjects[s.ID] = *s
	return nil
}

func (f *fakeStore) GetSubject(_ context.Context, id uuid.UUID) (*model.Subject, error) {
	s, ok := f.subjects[id]
	if !ok {
		return nil, apperror.NotFound("subject", id.String())
	}
	return &s, nil
}

func (f *fakeStore) ListSubjects(_ context.Context, ownerID string) ([]model.Subject, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []model.Subject{}
	for _, s := range f.subjects {
		if s.OwnerID == ownerID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) CreateNote(_ context.Context, n *model.Note) error {
	if f.err != nil {
		return f.err
	}
	n.ID = uuid.New()
	n.CreatedAt = time.Now()
	f.notes = append(f.notes, *n)
	return nil
}

func (f *fakeStore) ListNotes(_ context.Context, filter repository.NoteFilter) ([]model.Note, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []model.Note{}
	for i := len(f.notes) - 1; i >= 0; i-- {
		n := f.notes[i]
		if filter.SubjectID != nil && (n.SubjectID == nil || *n.SubjectID != *filter.SubjectID) {
			continue
		}
		if filter.ViewerID != "" && n.OwnerID != filter.ViewerID && !n.IsPublic {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (f *fakeStore) DeleteNote(_ context.Context, id uuid.UUID, ownerID string) error {
	for i, n := range f.notes {
		if n.ID == id && n.OwnerID == ownerID {
			f.notes = append(f.notes[:i], f.notes[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("note", id.String())
}
