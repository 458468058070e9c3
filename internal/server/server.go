// Package server is the composition root of the notes service: it opens the
// database, builds the auth stack, services and handlers, and mounts them on
// a chi router.
//
// DEPENDENCY FLOW:
//
//	config.Config → sqlite.DB ─┬→ AuthService    → AuthHandler
//	                           ├→ SubjectService → SubjectHandler
//	                           └→ NoteService    → NoteHandler
//	TokenService + Revoker → Authenticator (RequireAuth / OptionalAuth)
//
// Each layer receives interfaces or services, never the router.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/ud-notes/internal/auth"
	"github.com/sakif/ud-notes/internal/config"
	"github.com/sakif/ud-notes/internal/handler"
	"github.com/sakif/ud-notes/internal/middleware"
	sqliteRepo "github.com/sakif/ud-notes/internal/repository/sqlite"
	"github.com/sakif/ud-notes/internal/service"
)

// Server owns the router and the resources that must be released on
// shutdown: the database and, when configured, the Redis connection.
type Server struct {
	router  *chi.Mux
	config  config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	revoker auth.Revoker
	closers []io.Closer
}

// New opens every dependency and wires the routes. On error, anything
// already opened is closed again.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	if cfg.DBPath != ":memory:" {
		dir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		closers: []io.Closer{db},
	}

	if err := s.setupRevoker(); err != nil {
		s.Close()
		return nil, err
	}

	if err := s.setupRoutes(); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRevoker picks the revocation list. Redis shares sign-outs across
// instances; the in-memory list only covers this process.
func (s *Server) setupRevoker() error {
	if s.config.RedisURL == "" {
		s.logger.Warn("REDIS_URL not set, token revocations are kept in memory")
		s.revoker = auth.NewMemoryRevoker()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rr, err := auth.NewRedisRevoker(ctx, s.config.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	s.revoker = rr
	s.closers = append(s.closers, rr)
	return nil
}

// setupRoutes mounts all handlers.
//
// ROUTES:
//
//	GET    /healthz                → liveness + database ping
//	POST   /auth/signup            → create account, issue session
//	POST   /auth/signin            → issue session
//	GET    /auth/github/login      → OAuth redirect (when configured)
//	GET    /auth/github/callback   → OAuth completion
//	POST   /auth/logout            → revoke token
//	GET    /api/me                 → current identity
//	GET    /api/subjects           → caller's subjects by name
//	POST   /api/subjects           → create subject
//	GET    /api/notes?subject=     → visible notes, newest first
//	POST   /api/notes              → create note
//	DELETE /api/notes/{id}         → delete own note
//
// Middleware order: RequestID must precede Logger so log lines carry the ID.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	authn := auth.NewAuthenticator(tokens, s.revoker, s.logger)

	var github *auth.GitHubProvider
	if s.config.GitHub.Enabled() {
		github = auth.NewGitHubProvider(s.config.GitHub.ClientID, s.config.GitHub.ClientSecret, s.config.GitHub.CallbackURL)
	} else {
		s.logger.Info("GitHub OAuth not configured, /auth/github routes disabled")
	}

	authService := service.NewAuthService(s.db, tokens, auth.NewPasswordService(), s.revoker, s.logger)
	subjectService := service.NewSubjectService(s.db, s.logger)
	noteService := service.NewNoteService(s.db, s.db, s.logger)

	authHandler := handler.NewAuthHandler(authService, github, s.logger)
	subjectHandler := handler.NewSubjectHandler(subjectService, s.logger)
	noteHandler := handler.NewNoteHandler(noteService, s.logger)

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.HandleSignUp)
		r.Post("/signin", authHandler.HandleSignIn)
		r.Get("/github/login", authHandler.HandleGitHubLogin)
		r.Get("/github/callback", authHandler.HandleGitHubCallback)
		r.With(authn.OptionalAuth).Post("/logout", authHandler.HandleLogout)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(authn.RequireAuth)

		r.Get("/me", authHandler.HandleMe)

		r.Get("/subjects", subjectHandler.HandleList)
		r.Post("/subjects", subjectHandler.HandleCreate)

		r.Get("/notes", noteHandler.HandleList)
		r.Post("/notes", noteHandler.HandleCreate)
		r.Delete("/notes/{id}", noteHandler.HandleDelete)
	})

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.Ping(); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.Write([]byte(`{"status":"ok"}`))
}

// Handler exposes the router, e.g. for httptest.NewServer.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database and Redis connections.
func (s *Server) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up
// to 30 seconds and closes all resources.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
