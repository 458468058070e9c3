package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// contextKey is package-private so no other package can read or shadow the
// values stored here.
type contextKey string

const claimsKey contextKey = "claims"

// TokenCookie is the HttpOnly cookie browsers carry the session token in.
const TokenCookie = "token"

var errNoToken = errors.New("auth: no token presented")

// Authenticator validates request tokens against the signature, expiry and
// the revocation list.
type Authenticator struct {
	tokens  *TokenService
	revoker Revoker
	logger  *slog.Logger
}

func NewAuthenticator(tokens *TokenService, revoker Revoker, logger *slog.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, revoker: revoker, logger: logger}
}

// Authenticate returns the claims of the token carried by r.
func (a *Authenticator) Authenticate(r *http.Request) (*Claims, error) {
	raw := TokenFromRequest(r)
	if raw == "" {
		return nil, errNoToken
	}

	c, err := a.tokens.Validate(raw)
	if err != nil {
		return nil, err
	}

	revoked, err := a.revoker.IsRevoked(r.Context(), c.TokenID)
	if err != nil {
		// Fail closed: an unreachable revocation list must not let a
		// signed-out token back in.
		a.logger.Error("revocation check failed",
			slog.String("tokenID", c.TokenID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	if revoked {
		return nil, errors.New("auth: token revoked")
	}

	return c, nil
}

// RequireAuth rejects requests without a valid session with 401 and stores
// the claims in the request context otherwise.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := a.Authenticate(r)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), c)))
	})
}

// OptionalAuth attaches claims when a valid token is present and never blocks.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := a.Authenticate(r); err == nil {
			r = r.WithContext(WithClaims(r.Context(), c))
		}
		next.ServeHTTP(w, r)
	})
}

// WithClaims returns a copy of ctx carrying c.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFromContext returns the authenticated caller, or (nil, false) for
// anonymous requests.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok && c != nil && c.UserID != ""
}

// UserIDFromContext is a shorthand for ClaimsFromContext(ctx).UserID.
func UserIDFromContext(ctx context.Context) (string, bool) {
	c, ok := ClaimsFromContext(ctx)
	if !ok {
		return "", false
	}
	return c.UserID, true
}

// TokenFromRequest reads the bearer token, falling back to the cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if after, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(after)
		}
	}
	if cookie, err := r.Cookie(TokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}
