package core_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/ud-notes/internal/apperror"
	"github.com/sakif/ud-notes/internal/client"
	"github.com/sakif/ud-notes/internal/config"
	"github.com/sakif/ud-notes/internal/core"
	"github.com/sakif/ud-notes/internal/model"
	"github.com/sakif/ud-notes/internal/server"
)

type app struct {
	client   *client.Client
	composer *core.Composer
	notes    *core.NoteRepository
	subjects *core.SubjectRegistry
}

func newService(t *testing.T) *httptest.Server {
	t.Helper()
	s, err := server.New(config.Config{
		Port:      8080,
		DBPath:    ":memory:",
		JWTSecret: "e2e-test-secret-0123456789",
		TokenTTL:  time.Hour,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return ts
}

// newApp wires the CORE to a fresh HTTP client and starts it signed out.
func newApp(t *testing.T, baseURL string) *app {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := client.New(baseURL, client.WithLogger(logger))
	session := core.NewSessionStore(c, logger)
	subjects := core.NewSubjectRegistry(c, session, logger)
	notes := core.NewNoteRepository(c, session, logger)
	composer := core.NewComposer(session, subjects, notes, logger)
	require.NoError(t, composer.Start(context.Background()))
	t.Cleanup(composer.Close)
	t.Cleanup(session.Close)
	return &app{client: c, composer: composer, notes: notes, subjects: subjects}
}

func noteTitles(notes []model.Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.Title
	}
	return out
}

func TestEndToEnd_MathDerivatives(t *testing.T) {
	ts := newService(t)
	a := newApp(t, ts.URL)
	ctx := context.Background()

	_, err := a.client.SignUp(ctx, "ada@example.com", "correct-horse")
	require.NoError(t, err)
	require.True(t, a.composer.View().SignedIn)

	math, err := a.composer.CreateSubject(ctx, "Math", "")
	require.NoError(t, err)
	require.NoError(t, a.composer.Select(ctx, math))

	form := &core.NoteForm{Title: "Derivatives", Content: "d/dx x^2 = 2x"}
	_, err = a.composer.CreateNote(ctx, form)
	require.NoError(t, err)
	assert.Equal(t, core.NoteForm{}, *form)

	notes, err := a.notes.Reload(ctx, math)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Derivatives", notes[0].Title)
	require.NotNil(t, notes[0].Subject)
	assert.Equal(t, "Math", notes[0].Subject.Name)
	assert.False(t, notes[0].IsPublic)

	v := a.composer.View()
	assert.Equal(t, "Notes in Math", v.ListHeading)
	assert.Equal(t, "Create Note in Math", v.FormHeading)
}

func TestEndToEnd_NewestFirst(t *testing.T) {
	ts := newService(t)
	a := newApp(t, ts.URL)
	ctx := context.Background()

	_, err := a.client.SignUp(ctx, "ada@example.com", "correct-horse")
	require.NoError(t, err)

	for _, title := range []string{"A", "B"} {
		_, err := a.composer.CreateNote(ctx, &core.NoteForm{Title: title, Content: "x"})
		require.NoError(t, err)
	}

	notes, err := a.notes.Reload(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, noteTitles(notes))
}

func TestEndToEnd_DeleteNonexistent(t *testing.T) {
	ts := newService(t)
	a := newApp(t, ts.URL)
	ctx := context.Background()

	_, err := a.client.SignUp(ctx, "ada@example.com", "correct-horse")
	require.NoError(t, err)
	_, err = a.composer.CreateNote(ctx, &core.NoteForm{Title: "A", Content: "x"})
	require.NoError(t, err)

	err = a.composer.DeleteNote(ctx, uuid.New())
	assert.True(t, errors.Is(err, apperror.ErrRepository))
	assert.Equal(t, []string{"A"}, noteTitles(a.composer.View().Notes))
}

func TestEndToEnd_VisibilityAndSignOut(t *testing.T) {
	ts := newService(t)
	ctx := context.Background()

	bob := newApp(t, ts.URL)
	_, err := bob.client.SignUp(ctx, "bob@example.com", "correct-horse")
	require.NoError(t, err)
	_, err = bob.composer.CreateSubject(ctx, "Bob's", "")
	require.NoError(t, err)
	_, err = bob.composer.CreateNote(ctx, &core.NoteForm{Title: "shared", Content: "x", IsPublic: true})
	require.NoError(t, err)
	_, err = bob.composer.CreateNote(ctx, &core.NoteForm{Title: "diary", Content: "x"})
	require.NoError(t, err)

	ada := newApp(t, ts.URL)
	_, err = ada.client.SignUp(ctx, "ada@example.com", "correct-horse")
	require.NoError(t, err)

	v := ada.composer.View()
	assert.Empty(t, v.Subjects, "subjects are private to their owner")
	assert.Equal(t, []string{"shared"}, noteTitles(v.Notes))

	require.NoError(t, bob.composer.SignOut(ctx))
	v = bob.composer.View()
	assert.False(t, v.SignedIn)
	assert.Empty(t, v.Subjects)
	assert.Empty(t, v.Notes)

	_, err = bob.composer.CreateNote(ctx, &core.NoteForm{Title: "late", Content: "x"})
	assert.True(t, errors.Is(err, apperror.ErrAuth))
}

func TestEndToEnd_SwitchAccount(t *testing.T) {
	ts := newService(t)
	ctx := context.Background()
	a := newApp(t, ts.URL)

	_, err := a.client.SignUp(ctx, "ada@example.com", "correct-horse")
	require.NoError(t, err)
	math, err := a.composer.CreateSubject(ctx, "Math", "")
	require.NoError(t, err)
	require.NoError(t, a.composer.Select(ctx, math))

	// Signing in as someone else without signing out first.
	_, err = a.client.SignUp(ctx, "bob@example.com", "correct-horse")
	require.NoError(t, err)

	v := a.composer.View()
	assert.Equal(t, "bob@example.com", v.Email)
	assert.Empty(t, v.Subjects)
	assert.Nil(t, v.Selected)
}
