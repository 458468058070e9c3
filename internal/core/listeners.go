package core

import (
	"errors"
	"slices"
	"sync"

	"github.com/sakif/ud-notes/internal/apperror"
)

// listeners is a set of callbacks. emit calls them outside the lock, in
// registration order, so a callback may register or remove listeners.
type listeners[T any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(T)
}

func (l *listeners[T]) add(fn func(T)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func(T))
	}
	id := l.next
	l.next++
	l.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

func (l *listeners[T]) emit(v T) {
	l.mu.Lock()
	ids := make([]int, 0, len(l.fns))
	for id := range l.fns {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(T), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, l.fns[id])
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// ErrStale is returned by a list request whose response was discarded
// because a newer request or a Reset overtook it.
var ErrStale = errors.New("core: stale response discarded")

// repositoryError classifies a store failure. Auth and repository errors
// pass through; anything else becomes a RepositoryError for op.
func repositoryError(op string, err error) error {
	if errors.Is(err, apperror.ErrAuth) || errors.Is(err, apperror.ErrRepository) {
		return err
	}
	return apperror.Repository(op, err)
}
