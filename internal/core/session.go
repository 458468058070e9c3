package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/ud-notes/internal/apperror"
	"github.com/sakif/ud-notes/internal/model"
)

// DefaultInitTimeout bounds the initial session lookup when the caller's
// context has no deadline.
const DefaultInitTimeout = 10 * time.Second

// SessionStore tracks the current session. A nil session means signed out,
// which is a valid state and not an error.
type SessionStore struct {
	provider IdentityProvider
	logger   *slog.Logger

	mu      sync.Mutex
	session *model.Session
	// changes counts provider notifications; Init uses it to detect that a
	// notification overtook its lookup.
	changes     uint64
	unsubscribe func()
	// pending holds stored values not yet delivered; delivering is set while
	// one caller drains it, so listeners see values in the order stored.
	pending    []*model.Session
	delivering bool

	listeners listeners[*model.Session]
}

func NewSessionStore(provider IdentityProvider, logger *slog.Logger) *SessionStore {
	return &SessionStore{provider: provider, logger: logger}
}

// Init subscribes to the provider and resolves the initial session, nil when
// there is none. Calling it again re-reads the provider.
func (s *SessionStore) Init(ctx context.Context) (*model.Session, error) {
	s.mu.Lock()
	if s.unsubscribe == nil {
		s.unsubscribe = s.provider.OnAuthStateChange(s.handleAuthStateChange)
	}
	before := s.changes
	s.mu.Unlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultInitTimeout)
		defer cancel()
	}

	sess, err := s.provider.GetSession(ctx)
	if err != nil {
		s.logger.Warn("initial session lookup failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", apperror.Unauthorized("could not restore session"), err)
	}

	s.mu.Lock()
	if s.changes != before {
		// A notification arrived while we were asking; it is newer.
		current := cloneSession(s.session)
		s.mu.Unlock()
		return current, nil
	}
	s.storeLocked(sess)
	s.mu.Unlock()

	s.deliver()
	return cloneSession(sess), nil
}

func (s *SessionStore) handleAuthStateChange(sess *model.Session) {
	s.mu.Lock()
	s.changes++
	s.storeLocked(sess)
	s.mu.Unlock()
	s.deliver()
}

// set stores sess and notifies listeners unless it equals the current value.
func (s *SessionStore) set(sess *model.Session) {
	s.mu.Lock()
	s.storeLocked(sess)
	s.mu.Unlock()
	s.deliver()
}

// storeLocked replaces the session and queues it for delivery. s.mu must be
// held.
func (s *SessionStore) storeLocked(sess *model.Session) {
	if model.SameSession(s.session, sess) {
		return
	}
	s.session = cloneSession(sess)
	s.pending = append(s.pending, cloneSession(sess))
}

// deliver hands queued values to the listeners, oldest first. A call made
// while another caller is delivering (including from inside a listener)
// leaves its value to that caller and returns at once.
func (s *SessionStore) deliver() {
	s.mu.Lock()
	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true
	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()

		if next == nil {
			s.logger.Info("session ended")
		} else {
			s.logger.Info("session started", slog.String("userID", next.User.ID))
		}
		s.listeners.emit(next)

		s.mu.Lock()
	}
	s.delivering = false
	s.mu.Unlock()
}

// OnSessionChange registers fn for every session transition. fn runs
// synchronously with the provider's notification, except that a change made
// while listeners are already running is delivered after they return.
func (s *SessionStore) OnSessionChange(fn func(*model.Session)) (unsubscribe func()) {
	return s.listeners.add(fn)
}

// SignOut asks the provider to end the session. The local session is cleared
// whatever the outcome; a provider failure is returned as an AuthError.
func (s *SessionStore) SignOut(ctx context.Context) error {
	err := s.provider.SignOut(ctx)
	s.set(nil)
	if err != nil {
		return fmt.Errorf("%w: %w", apperror.Unauthorized("sign-out failed"), err)
	}
	return nil
}

// Current returns a copy of the session, or nil.
func (s *SessionStore) Current() *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSession(s.session)
}

// Require returns the session or an AuthError when signed out.
func (s *SessionStore) Require() (*model.Session, error) {
	if sess := s.Current(); sess != nil {
		return sess, nil
	}
	return nil, apperror.Unauthorized("sign in required")
}

// CurrentUser asks the provider who is signed in.
func (s *SessionStore) CurrentUser(ctx context.Context) (*model.Identity, error) {
	if _, err := s.Require(); err != nil {
		return nil, err
	}
	id, err := s.provider.GetCurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if id == nil {
		return nil, apperror.Unauthorized("no current user")
	}
	return id, nil
}

// Close stops listening to the provider.
func (s *SessionStore) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func cloneSession(sess *model.Session) *model.Session {
	if sess == nil {
		return nil
	}
	c := *sess
	return &c
}
