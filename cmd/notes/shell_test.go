package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/ud-notes/internal/apperror"
	"github.com/sakif/ud-notes/internal/config"
	"github.com/sakif/ud-notes/internal/core"
	"github.com/sakif/ud-notes/internal/model"
	"github.com/sakif/ud-notes/internal/server"
)

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    []string
		wantErr bool
	}{
		{name: "plain words", line: "subject Math calculus\n", want: []string{"subject", "Math", "calculus"}},
		{name: "double quotes", line: `subject "Linear Algebra" vectors`, want: []string{"subject", "Linear Algebra", "vectors"}},
		{name: "single quotes", line: `note 'It''s fine'`, want: []string{"note", "Its fine"}},
		{name: "empty quotes", line: `subject ""`, want: []string{"subject", ""}},
		{name: "extra whitespace", line: "  notes \t ", want: []string{"notes"}},
		{name: "blank", line: "   ", want: nil},
		{name: "unterminated", line: `subject "Math`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := splitArgs(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderView_SignedOut(t *testing.T) {
	var buf bytes.Buffer
	renderView(&buf, core.View{}, time.Now())
	assert.Contains(t, buf.String(), "Not signed in")
	assert.Contains(t, buf.String(), "signup")
}

func TestRenderView_Notes(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	id := uuid.MustParse("0123abcd-0000-4000-8000-000000000000")
	v := core.View{
		SignedIn:    true,
		Email:       "ada@example.com",
		ListHeading: "Notes in Math",
		NoteState:   core.StateLoaded,
		Notes: []model.Note{{
			ID:        id,
			Title:     "Derivatives",
			Content:   "d/dx x^2 = 2x",
			IsPublic:  true,
			CreatedAt: now.Add(-3 * time.Minute),
			Subject:   &model.SubjectSummary{Name: "Math"},
		}},
	}

	var buf bytes.Buffer
	renderView(&buf, v, now)
	out := buf.String()

	assert.Contains(t, out, "Signed in as ada@example.com")
	assert.Contains(t, out, "Notes in Math")
	assert.Contains(t, out, "[0123abcd] Derivatives (Math) · public · 3 minutes ago")
	assert.Contains(t, out, "d/dx x^2 = 2x")
}

func TestRenderView_States(t *testing.T) {
	var buf bytes.Buffer
	renderView(&buf, core.View{SignedIn: true, ListHeading: "All Notes", NoteState: core.StateLoading}, time.Now())
	assert.Contains(t, buf.String(), "loading")

	buf.Reset()
	renderView(&buf, core.View{
		SignedIn:    true,
		ListHeading: "All Notes",
		NoteState:   core.StateError,
		Err:         apperror.Forbidden("not yours"),
	}, time.Now())
	assert.Contains(t, buf.String(), "error: not yours")
	assert.Contains(t, buf.String(), "refresh")
}

func TestResolveNoteID(t *testing.T) {
	a := model.Note{ID: uuid.MustParse("aaaa1111-0000-4000-8000-000000000000")}
	b := model.Note{ID: uuid.MustParse("aaaa2222-0000-4000-8000-000000000000")}
	notes := []model.Note{a, b}

	got, err := resolveNoteID(notes, "aaaa1")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got)

	got, err = resolveNoteID(notes, b.ID.String())
	require.NoError(t, err)
	assert.Equal(t, b.ID, got)

	_, err = resolveNoteID(notes, "aaaa")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = resolveNoteID(notes, "ffff")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestRun_ScriptedSession(t *testing.T) {
	s, err := server.New(config.Config{
		Port:      8080,
		DBPath:    ":memory:",
		JWTSecret: "shell-test-secret-0123456789",
		TokenTTL:  time.Hour,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})

	serverURL, token = ts.URL, ""
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	script := strings.Join([]string{
		"signup ada@example.com",
		"correct-horse",
		`subject Math "limits and slopes"`,
		"subjects",
		"select Math",
		"note --public Derivatives",
		"d/dx x^2 = 2x",
		".",
		"select Nope",
		"bogus",
		"signout",
		"quit",
		"notes",
	}, "\n") + "\n"

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), strings.NewReader(script), &out))

	got := out.String()
	assert.Contains(t, got, "Signed in as ada@example.com")
	assert.Contains(t, got, `Created subject "Math".`)
	assert.Contains(t, got, "Math: limits and slopes")
	assert.Contains(t, got, "Notes in Math")
	assert.Contains(t, got, "Derivatives (Math) · public")
	assert.Contains(t, got, `error: no subject named "Nope"`)
	assert.Contains(t, got, `error: unknown command "bogus"`)
	// Nothing after quit is executed.
	assert.Equal(t, 2, strings.Count(got, "Not signed in"))
}
