package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/ud-notes/internal/auth"
	"github.com/sakif/ud-notes/internal/handler"
	sqliteRepo "github.com/sakif/ud-notes/internal/repository/sqlite"
	"github.com/sakif/ud-notes/internal/service"
)

// testEnv is a router over real services backed by an in-memory database.
// Requests carrying an "X-Test-User" header are treated as authenticated.
type testEnv struct {
	router *chi.Mux
	auth   *service.AuthService
}

func newTestEnv(t *testing.T, github *auth.GitHubProvider) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", time.Hour)
	require.NoError(t, err)

	authSvc := service.NewAuthService(db, tokens, auth.NewPasswordServiceForTest(bcrypt.MinCost), auth.NewMemoryRevoker(), logger)
	authH := handler.NewAuthHandler(authSvc, github, logger)
	subjectH := handler.NewSubjectHandler(service.NewSubjectService(db, logger), logger)
	noteH := handler.NewNoteHandler(service.NewNoteService(db, db, logger), logger)

	r := chi.NewRouter()
	r.Post("/auth/signup", authH.HandleSignUp)
	r.Post("/auth/signin", authH.HandleSignIn)
	r.Get("/auth/github/login", authH.HandleGitHubLogin)
	r.Get("/auth/github/callback", authH.HandleGitHubCallback)
	r.Group(func(r chi.Router) {
		r.Use(testUser)
		r.Post("/auth/logout", authH.HandleLogout)
		r.Get("/api/me", authH.HandleMe)
		r.Get("/api/subjects", subjectH.HandleList)
		r.Post("/api/subjects", subjectH.HandleCreate)
		r.Get("/api/notes", noteH.HandleList)
		r.Post("/api/notes", noteH.HandleCreate)
		r.Delete("/api/notes/{id}", noteH.HandleDelete)
	})

	return &testEnv{router: r, auth: authSvc}
}

func testUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get("X-Test-User"); id != "" {
			r = r.WithContext(auth.WithClaims(r.Context(), &auth.Claims{
				UserID:    id,
				TokenID:   "jti-" + id,
				ExpiresAt: time.Now().Add(time.Hour),
			}))
		}
		next.ServeHTTP(w, r)
	})
}

// do sends a request as userID ("" for anonymous) and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-Test-User", userID)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), "body: %s", rr.Body.String())
	return v
}
