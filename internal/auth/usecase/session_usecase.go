package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"mailscope-backend/internal/auth/domain"
	"mailscope-backend/pkg/errs"
)

// TokenRefresher exchanges a refresh token for a fresh credential at the
// mailbox provider. Implemented by pkg/gmail.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*domain.Credential, error)
}

// SessionStore maps opaque session identifiers to credentials and owns the
// whole credential lifecycle, including refresh.
type SessionStore interface {
	Create() *domain.Session
	Get(sessionID string) (*domain.Session, error)
	GetCredential(sessionID string) (*domain.Credential, error)
	StoreCredential(sessionID string, cred *domain.Credential) error
	EnsureFresh(ctx context.Context, sessionID string) (*domain.Credential, error)
	Invalidate(sessionID string)
}

type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session

	refresher TokenRefresher
	skew      time.Duration
	timeout   time.Duration

	// refreshes deduplicates concurrent refresh attempts per session so one
	// expiry window causes exactly one upstream call.
	refreshes singleflight.Group

	now func() time.Time
}

func NewSessionStore(refresher TokenRefresher, skew, timeout time.Duration) SessionStore {
	return &sessionStore{
		sessions:  make(map[string]*domain.Session),
		refresher: refresher,
		skew:      skew,
		timeout:   timeout,
		now:       time.Now,
	}
}

func (s *sessionStore) Create() *domain.Session {
	session := &domain.Session{
		ID:        uuid.NewString(),
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	log.Printf("[SessionStore] created session %s", session.ID)
	return session
}

func (s *sessionStore) Get(sessionID string) (*domain.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if !ok {
		return nil, errs.NotFound("session.Get", fmt.Errorf("unknown session %q", sessionID))
	}
	return session, nil
}

func (s *sessionStore) GetCredential(sessionID string) (*domain.Credential, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	cred := session.Credential
	s.mu.RUnlock()

	if cred == nil {
		return nil, errs.Auth("session.GetCredential", errs.ReasonNotAuthenticated,
			fmt.Errorf("session %q has no credential", sessionID))
	}
	return cred, nil
}

func (s *sessionStore) StoreCredential(sessionID string, cred *domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return errs.NotFound("session.StoreCredential", fmt.Errorf("unknown session %q", sessionID))
	}
	session.Credential = cred
	log.Printf("[SessionStore] stored credential for session %s (account %s)", sessionID, cred.AccountEmail)
	return nil
}

// EnsureFresh returns a credential that is valid at the time of the call,
// refreshing it first when expired. Concurrent callers over one expiry
// window share a single upstream refresh; a failed refresh marks the session
// unauthenticated and is reported to every waiter.
func (s *sessionStore) EnsureFresh(ctx context.Context, sessionID string) (*domain.Credential, error) {
	cred, err := s.GetCredential(sessionID)
	if err != nil {
		return nil, err
	}
	if !cred.ExpiredAt(s.now(), s.skew) {
		return cred, nil
	}

	fresh, err, _ := s.refreshes.Do(sessionID, func() (interface{}, error) {
		// Re-read under the flight: an earlier flight may have refreshed
		// between our expiry check and this point.
		current, err := s.GetCredential(sessionID)
		if err != nil {
			return nil, err
		}
		if !current.ExpiredAt(s.now(), s.skew) {
			return current, nil
		}
		return s.refresh(ctx, sessionID, current)
	})
	if err != nil {
		return nil, err
	}
	return fresh.(*domain.Credential), nil
}

func (s *sessionStore) refresh(ctx context.Context, sessionID string, expired *domain.Credential) (*domain.Credential, error) {
	log.Printf("[SessionStore] refreshing credential for session %s", sessionID)

	// The token endpoint is an external call like any other: a bounded
	// deadline, never left to hang.
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	renewed, err := s.refresher.Refresh(callCtx, expired.RefreshToken)
	if err != nil {
		// A hung or unreachable token endpoint says nothing about the
		// refresh token itself; keep the credential so a later attempt can
		// still succeed.
		if errors.Is(err, context.DeadlineExceeded) {
			log.Printf("[SessionStore] refresh timed out for session %s", sessionID)
			return nil, errs.Upstream("session.EnsureFresh", errs.ReasonTimeout, err)
		}

		// Revoked or invalid refresh token: the session cannot recover on
		// its own, so drop the credential and force re-authentication.
		s.mu.Lock()
		if session, ok := s.sessions[sessionID]; ok {
			session.Credential = nil
		}
		s.mu.Unlock()
		log.Printf("[SessionStore] refresh failed for session %s: %v", sessionID, err)
		return nil, errs.Auth("session.EnsureFresh", errs.ReasonRefreshFailed, err)
	}

	// Providers often omit these fields from a refresh response; carry the
	// previous values forward.
	if renewed.RefreshToken == "" {
		renewed.RefreshToken = expired.RefreshToken
	}
	if renewed.AccountEmail == "" {
		renewed.AccountEmail = expired.AccountEmail
	}

	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	if ok {
		session.Credential = renewed
	}
	s.mu.Unlock()

	if !ok {
		return nil, errs.NotFound("session.EnsureFresh", fmt.Errorf("session %q invalidated during refresh", sessionID))
	}
	return renewed, nil
}

// Invalidate destroys the session. Unknown ids are a no-op so logout is
// idempotent.
func (s *sessionStore) Invalidate(sessionID string) {
	s.mu.Lock()
	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	s.refreshes.Forget(sessionID)
	if ok {
		log.Printf("[SessionStore] invalidated session %s", sessionID)
	}
}
