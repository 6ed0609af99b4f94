// Package storage provides the per-browser key/value store that stands in for
// the browser's local storage. Values are plain strings; callers decide the
// encoding.
package storage

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Common store errors.
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrStoreClosed = errors.New("store is closed")
)

// Store is the interface for key/value storage backends.
type Store interface {
	// Get retrieves a value by key. Missing keys return ErrKeyNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value, replacing any previous one.
	Set(ctx context.Context, key, value string) error

	// Remove deletes a key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

// Registry hands out one Store per browser session.
// Two tabs sharing a session share the store with last-writer-wins semantics.
// A session's backing store is only built by its first Set, so sessions that
// never write cost nothing.
type Registry struct {
	sessions map[string]*session
	factory  func() Store
	now      func() time.Time
	closed   bool
	mu       sync.Mutex
}

type session struct {
	store    Store
	lastUsed time.Time
}

// NewRegistry creates a registry that builds stores with factory.
// A nil factory uses NewMemoryStore.
func NewRegistry(factory func() Store) *Registry {
	if factory == nil {
		factory = func() Store { return NewMemoryStore() }
	}
	return &Registry{
		sessions: make(map[string]*session),
		factory:  factory,
		now:      time.Now,
	}
}

// For returns the store of a session.
func (r *Registry) For(sessionID string) Store {
	return sessionStore{registry: r, id: sessionID}
}

// NewSessionID returns a fresh random session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// lookup returns the session's store, building it when create is set. A nil
// store with a nil error means the session has never written.
func (r *Registry) lookup(id string, create bool) (Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrStoreClosed
	}
	s, ok := r.sessions[id]
	if !ok {
		if !create {
			return nil, nil
		}
		s = &session{store: r.factory()}
		r.sessions[id] = s
	}
	s.lastUsed = r.now()
	return s.store, nil
}

// Len returns the number of sessions holding a store.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Prune drops stores unused for longer than idle and returns how many.
func (r *Registry) Prune(idle time.Duration) int {
	r.mu.Lock()
	now := r.now()
	var dropped []Store
	for id, s := range r.sessions {
		if now.Sub(s.lastUsed) > idle {
			delete(r.sessions, id)
			dropped = append(dropped, s.store)
		}
	}
	r.mu.Unlock()

	closeAll(dropped)
	return len(dropped)
}

// Janitor prunes stores idle for longer than idle every interval until ctx
// ends.
func (r *Registry) Janitor(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Prune(idle)
		case <-ctx.Done():
			return
		}
	}
}

// Close closes every store that can be closed and forgets all sessions.
// Later calls through any handle fail with ErrStoreClosed.
func (r *Registry) Close() error {
	r.mu.Lock()
	stores := make([]Store, 0, len(r.sessions))
	for _, s := range r.sessions {
		stores = append(stores, s.store)
	}
	r.sessions = make(map[string]*session)
	r.closed = true
	r.mu.Unlock()

	return closeAll(stores)
}

func closeAll(stores []Store) error {
	var errs []error
	for _, s := range stores {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// sessionStore resolves its session on every call.
type sessionStore struct {
	registry *Registry
	id       string
}

func (s sessionStore) Get(ctx context.Context, key string) (string, error) {
	store, err := s.registry.lookup(s.id, false)
	if err != nil {
		return "", err
	}
	if store == nil {
		return "", ErrKeyNotFound
	}
	return store.Get(ctx, key)
}

func (s sessionStore) Set(ctx context.Context, key, value string) error {
	store, err := s.registry.lookup(s.id, true)
	if err != nil {
		return err
	}
	return store.Set(ctx, key, value)
}

func (s sessionStore) Remove(ctx context.Context, key string) error {
	store, err := s.registry.lookup(s.id, false)
	if err != nil || store == nil {
		return err
	}
	return store.Remove(ctx, key)
}
