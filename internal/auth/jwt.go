// Package auth implements the identity provider's server side: session tokens,
// password hashing, GitHub OAuth and the middleware that gates the API.
//
// SESSION FLOW:
//  1. The user signs up / signs in (email+password) or completes GitHub OAuth.
//  2. The server issues a signed JWT carrying the user ID (sub), email and a
//     unique token ID (jti).
//  3. The client sends it back as "Authorization: Bearer <jwt>" (or the
//     HttpOnly "token" cookie for browsers).
//  4. RequireAuth validates the signature and expiry, then asks the Revoker
//     whether the jti was signed out.
//
// JWTs are stateless, so sign-out needs a revocation list keyed by jti. The
// list only has to remember a jti until the token would have expired anyway.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"

	"github.com/sakif/ud-notes/internal/model"
)

const (
	issuer = "ud-notes"

	// DefaultTokenTTL is the session lifetime when the config does not set one.
	DefaultTokenTTL = 24 * time.Hour
)

// TokenService handles JWT creation and validation with an HMAC secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret and lifetime.
// A non-positive ttl falls back to DefaultTokenTTL.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// claims is the JWT payload: the registered claims plus the user's email, so
// a session can be rebuilt from the token without a database lookup.
type claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Claims is what a validated token tells us about its holder.
type Claims struct {
	UserID    string
	Email     string
	TokenID   string
	ExpiresAt time.Time
}

// Issue signs a new session token for the given identity and returns it as a
// model.Session ready to hand to the client.
func (s *TokenService) Issue(id model.Identity) (*model.Session, error) {
	return s.issue(id, s.ttl)
}

// IssueWithDuration is Issue with a custom lifetime. Tests use a negative
// duration to mint already-expired tokens.
func (s *TokenService) IssueWithDuration(id model.Identity, d time.Duration) (*model.Session, error) {
	return s.issue(id, d)
}

func (s *TokenService) issue(id model.Identity, d time.Duration) (*model.Session, error) {
	if id.ID == "" {
		return nil, errors.New("auth: cannot issue a token without a user ID")
	}

	now := time.Now()
	expires := now.Add(d)

	c := claims{
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        xid.New().String(),
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("auth: signing token: %w", err)
	}

	return &model.Session{
		AccessToken: signed,
		User:        id,
		ExpiresAt:   expires.UTC().Truncate(time.Second),
	}, nil
}

// Validate parses and verifies a JWT string.
//
// The jwt library checks the signature, expiry and issuer. WithValidMethods
// pins HS256 so a token claiming "alg: none" is rejected.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}
	if c.ID == "" {
		return nil, fmt.Errorf("auth: token has no id")
	}

	return &Claims{
		UserID:    c.Subject,
		Email:     c.Email,
		TokenID:   c.ID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}
