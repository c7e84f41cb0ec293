package usecase

import (
	"context"
	"errors"
	"log"
	"time"

	"mailscope-backend/internal/auth/domain"
	"mailscope-backend/pkg/errs"
)

// OAuthProvider is the consent-flow side of the mailbox provider.
// Implemented by pkg/gmail.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*domain.Credential, error)
}

// AuthUsecase drives the per-tab OAuth flow on top of the session store.
type AuthUsecase interface {
	BeginAuth(sessionID string) (id, authURL string)
	CompleteAuth(ctx context.Context, state, code string) error
	Status(sessionID string) (authenticated bool, accountEmail string)
	Logout(sessionID string)
}

type authUsecase struct {
	sessions SessionStore
	provider OAuthProvider
	timeout  time.Duration
}

func NewAuthUsecase(sessions SessionStore, provider OAuthProvider, timeout time.Duration) AuthUsecase {
	return &authUsecase{sessions: sessions, provider: provider, timeout: timeout}
}

// BeginAuth reuses the caller's session when it still exists and creates a
// fresh one otherwise. The session id rides along as the OAuth state so the
// callback can bind the credential to the right tab.
func (u *authUsecase) BeginAuth(sessionID string) (string, string) {
	if sessionID != "" {
		if _, err := u.sessions.Get(sessionID); err == nil {
			return sessionID, u.provider.AuthCodeURL(sessionID)
		}
	}
	session := u.sessions.Create()
	return session.ID, u.provider.AuthCodeURL(session.ID)
}

// CompleteAuth exchanges the authorization code and stores the credential on
// the session named by the state parameter.
func (u *authUsecase) CompleteAuth(ctx context.Context, state, code string) error {
	if state == "" || code == "" {
		return errs.Validation("auth.CompleteAuth", "", errors.New("state and code are required"))
	}
	if _, err := u.sessions.Get(state); err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	cred, err := u.provider.Exchange(callCtx, code)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return errs.Upstream("auth.CompleteAuth", errs.ReasonTimeout, err)
		}
		return err
	}
	if err := u.sessions.StoreCredential(state, cred); err != nil {
		return err
	}

	log.Printf("[Auth] session %s authenticated as %s", state, cred.AccountEmail)
	return nil
}

// Status reports whether the session holds a credential. Unknown sessions
// and unauthenticated ones both read as not authenticated.
func (u *authUsecase) Status(sessionID string) (bool, string) {
	cred, err := u.sessions.GetCredential(sessionID)
	if err != nil {
		return false, ""
	}
	return true, cred.AccountEmail
}

func (u *authUsecase) Logout(sessionID string) {
	u.sessions.Invalidate(sessionID)
}
