package handler

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"cart-management/notify"
	"cart-management/service"
)

const (
	SessionHeader = "X-Session-ID"
	SessionCookie = "cart_session"

	DefaultIdleTimeout = 30 * time.Minute
	DefaultLoadTimeout = 5 * time.Second
)

// Session is one shopper's cart plus the hub that streams its events.
type Session struct {
	ID   string
	Cart service.CartService
	Hub  *notify.Hub

	lastSeen time.Time // guarded by Sessions.mu
}

// SessionFactory builds and initializes the cart of a new session. The
// notifier it receives must be part of the cart's notifier chain so the HTTP
// layer can report messages and stream them to subscribers. An error means the
// persisted cart could not be read and the session must not be used.
type SessionFactory func(ctx context.Context, id string, n notify.Notifier) (service.CartService, error)

type SessionOption func(*Sessions)

// WithIdleTimeout sets how long an unused session stays in memory.
func WithIdleTimeout(d time.Duration) SessionOption {
	return func(s *Sessions) {
		if d > 0 {
			s.idle = d
		}
	}
}

// WithLoadTimeout bounds how long loading a session's cart may take.
func WithLoadTimeout(d time.Duration) SessionOption {
	return func(s *Sessions) {
		if d > 0 {
			s.loadTimeout = d
		}
	}
}

// Sessions keeps the carts of recently active sessions in memory. Carts are
// persisted on every change, so an evicted session is simply reloaded on its
// next request.
type Sessions struct {
	factory     SessionFactory
	idle        time.Duration
	loadTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessions(factory SessionFactory, opts ...SessionOption) *Sessions {
	s := &Sessions{
		factory:     factory,
		idle:        DefaultIdleTimeout,
		loadTimeout: DefaultLoadTimeout,
		now:         time.Now,
		sessions:    make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the session for id, loading it on first use. The load is not
// tied to the caller's cancellation and is not cached when it fails.
func (s *Sessions) Get(ctx context.Context, id string) (*Session, error) {
	if sess, ok := s.lookup(id); ok {
		return sess, nil
	}

	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
	defer cancel()

	hub := notify.NewHub(16)
	cart, err := s.factory(loadCtx, id, notify.Multi{notify.Scoped{}, hub})
	if err != nil {
		return nil, fmt.Errorf("open session %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// another request may have loaded the same session meanwhile
	if sess, ok := s.sessions[id]; ok {
		sess.lastSeen = s.now()
		return sess, nil
	}

	cart.Subscribe(hub.PublishCart)
	sess := &Session{ID: id, Cart: cart, Hub: hub, lastSeen: s.now()}
	s.sessions[id] = sess
	return sess, nil
}

func (s *Sessions) lookup(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if ok {
		sess.lastSeen = s.now()
	}
	return sess, ok
}

// Len reports how many sessions are held in memory.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops sessions idle for longer than the idle timeout and returns how
// many were dropped. Sessions with a live subscriber are kept.
func (s *Sessions) Sweep() int {
	cutoff := s.now().Add(-s.idle)

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) && sess.Hub.Subscribers() == 0 {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// sessionID reads the session from the header or cookie. A missing or
// malformed ID is replaced with a fresh one, which is sent back to the client;
// fresh reports that case.
func sessionID(w http.ResponseWriter, r *http.Request) (id string, fresh bool) {
	id = r.Header.Get(SessionHeader)
	if id == "" {
		if c, err := r.Cookie(SessionCookie); err == nil {
			id = c.Value
		}
	}
	if _, err := uuid.Parse(id); err == nil {
		w.Header().Set(SessionHeader, id)
		return id, false
	}

	id = uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set(SessionHeader, id)
	return id, true
}
