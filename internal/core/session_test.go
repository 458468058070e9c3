package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/ud-notes/internal/apperror"
	"github.com/sakif/ud-notes/internal/model"
)

func TestSessionStore_InitWithoutSession(t *testing.T) {
	h := newHarness(false)

	sess, err := h.session.Init(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Nil(t, h.session.Current())

	_, err = h.session.Require()
	assert.True(t, errors.Is(err, apperror.ErrAuth))
}

func TestSessionStore_InitRestoresSession(t *testing.T) {
	h := newHarness(true)

	var got []*model.Session
	h.session.OnSessionChange(func(s *model.Session) { got = append(got, s) })

	sess, err := h.session.Init(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "ada", sess.User.ID)
	require.Len(t, got, 1)
	assert.Equal(t, "ada@example.com", got[0].User.Email)
}

func TestSessionStore_InitIsBounded(t *testing.T) {
	h := newHarness(false)
	h.provider.block = true

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := h.session.Init(ctx)
	assert.True(t, errors.Is(err, apperror.ErrAuth))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Nil(t, h.session.Current())
}

func TestSessionStore_CollapsesDuplicateNotifications(t *testing.T) {
	h := newHarness(false)
	_, err := h.session.Init(context.Background())
	require.NoError(t, err)

	var got []*model.Session
	h.session.OnSessionChange(func(s *model.Session) { got = append(got, s) })

	ada := sessionFor("ada", "ada@example.com")
	h.provider.signIn(ada)
	h.provider.signIn(sessionFor("ada", "ada@example.com"))
	h.provider.listeners.emit(nil)
	h.provider.listeners.emit(nil)

	require.Len(t, got, 2)
	assert.Equal(t, "ada", got[0].User.ID)
	assert.Nil(t, got[1])
}

func TestSessionStore_NotificationDuringInitWins(t *testing.T) {
	h := newHarness(false)
	h.provider.session = sessionFor("old", "old@example.com")

	// The lookup returns "old", but "new" is announced before Init applies it.
	p := &racingProvider{fakeProvider: h.provider, during: sessionFor("new", "new@example.com")}
	store := NewSessionStore(p, discardLogger())

	sess, err := store.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new", sess.User.ID)
	assert.Equal(t, "new", store.Current().User.ID)
}

type racingProvider struct {
	*fakeProvider
	during *model.Session
}

func (p *racingProvider) GetSession(ctx context.Context) (*model.Session, error) {
	sess, err := p.fakeProvider.GetSession(ctx)
	p.fakeProvider.listeners.emit(p.during)
	return sess, err
}

func TestSessionStore_SignOut(t *testing.T) {
	h := newHarness(true)
	_, err := h.session.Init(context.Background())
	require.NoError(t, err)

	var got []*model.Session
	h.session.OnSessionChange(func(s *model.Session) { got = append(got, s) })

	require.NoError(t, h.session.SignOut(context.Background()))
	assert.Nil(t, h.session.Current())
	require.Len(t, got, 1, "provider notification and local clear collapse into one")
	assert.Nil(t, got[0])
}

func TestSessionStore_SignOutFailureStillClears(t *testing.T) {
	h := newHarness(true)
	_, err := h.session.Init(context.Background())
	require.NoError(t, err)
	h.provider.signOutErr = errBoom

	err = h.session.SignOut(context.Background())
	assert.True(t, errors.Is(err, apperror.ErrAuth))
	assert.True(t, errors.Is(err, errBoom))
	assert.Nil(t, h.session.Current())
}

func TestSessionStore_CurrentUser(t *testing.T) {
	h := newHarness(false)
	_, err := h.session.Init(context.Background())
	require.NoError(t, err)

	_, err = h.session.CurrentUser(context.Background())
	assert.True(t, errors.Is(err, apperror.ErrAuth))

	h.provider.signIn(sessionFor("ada", "ada@example.com"))
	id, err := h.session.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Identity{ID: "ada", Email: "ada@example.com"}, *id)
}

func TestSessionStore_Unsubscribe(t *testing.T) {
	h := newHarness(false)
	_, err := h.session.Init(context.Background())
	require.NoError(t, err)

	calls := 0
	unsubscribe := h.session.OnSessionChange(func(*model.Session) { calls++ })
	unsubscribe()
	unsubscribe()

	h.provider.signIn(sessionFor("ada", "ada@example.com"))
	assert.Zero(t, calls)

	h.session.Close()
	h.provider.signIn(sessionFor("bob", "bob@example.com"))
	assert.Equal(t, "ada", h.session.Current().User.ID, "closed store ignores the provider")
}

func TestSessionStore_CurrentIsACopy(t *testing.T) {
	h := newHarness(true)
	_, err := h.session.Init(context.Background())
	require.NoError(t, err)

	h.session.Current().User.Email = "mallory@example.com"
	assert.Equal(t, "ada@example.com", h.session.Current().User.Email)
}

func TestSessionStore_ListenersSeeStoredOrder(t *testing.T) {
	h := newHarness(false)
	_, err := h.session.Init(context.Background())
	require.NoError(t, err)

	var (
		mu   sync.Mutex
		last *model.Session
	)
	h.session.OnSessionChange(func(s *model.Session) {
		mu.Lock()
		last = s
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.provider.listeners.emit(sessionFor(fmt.Sprint(i), fmt.Sprintf("u%d@example.com", i)))
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, last)
	assert.Equal(t, h.session.Current().User.ID, last.User.ID,
		"the last value delivered is the value stored")
}

func TestSessionStore_ChangeFromListenerIsDeliveredAfter(t *testing.T) {
	h := newHarness(false)
	_, err := h.session.Init(context.Background())
	require.NoError(t, err)

	var got []*model.Session
	h.session.OnSessionChange(func(s *model.Session) {
		got = append(got, s)
		if s != nil {
			// Like a client dropping a rejected token mid-load.
			h.provider.listeners.emit(nil)
			assert.Len(t, got, 1, "nested change waits for the running listener")
		}
	})

	h.provider.signIn(sessionFor("ada", "ada@example.com"))

	require.Len(t, got, 2)
	assert.Equal(t, "ada", got[0].User.ID)
	assert.Nil(t, got[1])
	assert.Nil(t, h.session.Current())
}
