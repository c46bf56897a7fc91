// Package session keeps per-client viewport state for the preview server.
//
// A [Session] owns a viewport controller and a renderer attached to it, so
// every client pans and zooms independently over the same published layout.
// Sessions expire after a period without use; [Store.Cleanup] removes them.
//
//	store := session.NewStore(session.DefaultTTL, func() session.Viewport {
//	    c := viewport.New(viewport.Options{})
//	    return session.Viewport{Controller: c, Renderer: render.New(render.Options{})}
//	})
//	sess, _ := store.Create(ctx)
//	sess.Controller.PanBy(10, 0)
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/kinview/pkg/errors"
	"github.com/matzehuels/kinview/pkg/render"
	"github.com/matzehuels/kinview/pkg/viewport"
)

// DefaultTTL is how long an idle session lives.
const DefaultTTL = 30 * time.Minute

// Viewport is the per-session rendering state built by a Factory.
type Viewport struct {
	Controller *viewport.Controller
	Renderer   *render.Renderer
}

// Factory builds the viewport state of a new session.
type Factory func() Viewport

// Session is one client's viewport.
type Session struct {
	ID        string
	CreatedAt time.Time
	Viewport

	detach func()

	mu       sync.Mutex
	lastUsed time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

// LastUsed returns the time of the last Get.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Session) close() {
	s.detach()
	s.Controller.Cancel()
	s.Renderer.Buckets().Close()
}

// Store is an in-memory session store. It is safe for concurrent use.
type Store struct {
	ttl     time.Duration
	factory Factory
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore returns an empty store. A ttl <= 0 selects DefaultTTL.
func NewStore(ttl time.Duration, factory Factory) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		ttl:      ttl,
		factory:  factory,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create builds and registers a new session with a random UUID.
func (s *Store) Create(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vp := s.factory()
	now := s.now()
	sess := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		Viewport:  vp,
		detach:    vp.Renderer.Attach(vp.Controller),
		lastUsed:  now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess, nil
}

// Get returns the session and marks it used. Unknown, malformed and expired
// ids yield a SESSION_NOT_FOUND error.
func (s *Store) Get(_ context.Context, id string) (*Session, error) {
	if err := errors.ValidateSessionID(id); err != nil {
		return nil, errors.Wrap(errors.ErrCodeSessionNotFound, err, "session %q", id)
	}
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.ErrCodeSessionNotFound, "session %s not found", id)
	}
	now := s.now()
	if now.Sub(sess.LastUsed()) > s.ttl {
		s.remove(id)
		return nil, errors.New(errors.ErrCodeSessionNotFound, "session %s expired", id)
	}
	sess.touch(now)
	return sess, nil
}

// Delete removes a session. Deleting an unknown id is not an error.
func (s *Store) Delete(_ context.Context, id string) error {
	s.remove(id)
	return nil
}

func (s *Store) remove(id string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		sess.close()
	}
	return ok
}

// Cleanup removes expired sessions and returns how many were removed.
func (s *Store) Cleanup(_ context.Context) int {
	now := s.now()
	var expired []string
	s.mu.RLock()
	for id, sess := range s.sessions {
		if now.Sub(sess.LastUsed()) > s.ttl {
			expired = append(expired, id)
		}
	}
	s.mu.RUnlock()

	n := 0
	for _, id := range expired {
		if s.remove(id) {
			n++
		}
	}
	return n
}

// Run calls Cleanup every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Cleanup(ctx)
		}
	}
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Each calls fn for every live session.
func (s *Store) Each(fn func(*Session)) {
	s.mu.RLock()
	list := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		list = append(list, sess)
	}
	s.mu.RUnlock()
	for _, sess := range list {
		fn(sess)
	}
}

// Close removes every session.
func (s *Store) Close() error {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()
	for _, sess := range all {
		sess.close()
	}
	return nil
}
