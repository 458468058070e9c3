// Package service contains the server's business rules.
//
//	Handler (HTTP) → Service (validation, ownership, visibility) → Repository (SQL)
//
// Services take primitives and return domain errors from apperror; they know
// nothing about HTTP. The handler translates those errors to status codes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/ud-notes/internal/apperror"
	"github.com/sakif/ud-notes/internal/auth"
	"github.com/sakif/ud-notes/internal/model"
	"github.com/sakif/ud-notes/internal/repository"
)

// AuthService is the identity provider: it creates accounts, verifies
// credentials, issues sessions and revokes them on sign-out.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	revoker   auth.Revoker
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	revoker auth.Revoker,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		revoker:   revoker,
		logger:    logger,
	}
}

// normalizeEmail lowercases and validates an address.
func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", apperror.ValidationFailed("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperror.ValidationFailed("email", "email is not a valid address")
	}
	return email, nil
}

// SignUp creates an email/password account and signs it in.
func (s *AuthService) SignUp(ctx context.Context, email, password string) (*model.Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := auth.CheckStrength(password); err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{Email: email, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user signed up", slog.String("userID", user.ID))
	return s.issue(user)
}

// SignIn verifies email/password credentials. Unknown emails and wrong
// passwords produce the same AuthError.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	invalid := apperror.Unauthorized("invalid email or password")

	email, err := normalizeEmail(email)
	if err != nil {
		return nil, invalid
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}
	if user.PasswordHash == "" {
		// GitHub-only account.
		return nil, invalid
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			s.logger.Warn("failed sign-in", slog.String("userID", user.ID))
			return nil, invalid
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	s.logger.Info("user signed in", slog.String("userID", user.ID))
	return s.issue(user)
}

// LoginOrRegisterGitHub finishes the OAuth callback: it links or creates the
// account for the GitHub profile and issues a session.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*model.Session, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	email, err := normalizeEmail(ghUser.Email)
	if err != nil {
		return nil, err
	}
	ghID := ghUser.ID
	user := &model.User{
		Email:     email,
		GitHubID:  &ghID,
		Login:     ghUser.Login,
		AvatarURL: ghUser.AvatarURL,
	}
	if err := s.users.UpsertGitHubUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghUser.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", user.Login),
	)
	return s.issue(user)
}

// CurrentUser returns the identity behind an authenticated request.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*model.Identity, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("no authenticated user")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// Token outlived its account.
			return nil, apperror.Unauthorized("account no longer exists")
		}
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", userID, err)
	}

	id := user.Identity()
	return &id, nil
}

// SignOut revokes the token described by c. Revoking an already revoked
// token is harmless.
func (s *AuthService) SignOut(ctx context.Context, c *auth.Claims) error {
	if c == nil {
		return nil
	}
	if err := s.revoker.Revoke(ctx, c.TokenID, c.ExpiresAt); err != nil {
		return fmt.Errorf("service/auth: revoking token: %w", err)
	}
	s.logger.Info("user signed out", slog.String("userID", c.UserID))
	return nil
}

func (s *AuthService) issue(user *model.User) (*model.Session, error) {
	sess, err := s.tokens.Issue(user.Identity())
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return sess, nil
}
