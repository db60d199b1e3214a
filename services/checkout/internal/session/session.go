package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/aquamarinepk/aqm"
)

const CookieName = "dineflow_checkout"

// Session remembers which checkout a browser started, so the gateway's
// error and cancel redirects, which carry no order id, can be correlated.
type Session struct {
	ID        string
	Reference string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type Store struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	ttl      time.Duration
	done     chan struct{}
	once     sync.Once
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		done:     make(chan struct{}),
	}
}

// Start launches the expiry sweep. Stop ends it.
func (s *Store) Start(ctx context.Context) error {
	go s.cleanup()
	return nil
}

func (s *Store) Stop(ctx context.Context) error {
	s.once.Do(func() { close(s.done) })
	return nil
}

// Remember stores reference under a new session id and sets the cookie.
func (s *Store) Remember(w http.ResponseWriter, reference string) (*Session, error) {
	if reference == "" {
		return nil, errors.New("reference is empty")
	}

	now := time.Now()
	session := &Session{
		ID:        aqm.GenerateNewID().String(),
		Reference: reference,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.Save(session); err != nil {
		return nil, err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return session, nil
}

// Recall returns the reference stored for the request's cookie and forgets it.
func (s *Store) Recall(w http.ResponseWriter, r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	session, err := s.Get(cookie.Value)
	if err != nil {
		return "", false
	}

	s.Delete(session.ID)
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	return session.Reference, true
}

func (s *Store) Save(session *Session) error {
	if session == nil {
		return errors.New("session is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = session
	return nil
}

func (s *Store) Get(sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, errors.New("session not found")
	}

	if time.Now().After(session.ExpiresAt) {
		return nil, errors.New("session expired")
	}

	return session, nil
}

func (s *Store) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
}

func (s *Store) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.purgeExpired(time.Now())
		}
	}
}

func (s *Store) purgeExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, id)
		}
	}
}
