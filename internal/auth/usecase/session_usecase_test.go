package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailscope-backend/internal/auth/domain"
	"mailscope-backend/pkg/errs"
)

type fakeRefresher struct {
	mu    sync.Mutex
	calls int32
	delay time.Duration
	err   error
	cred  *domain.Credential
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (*domain.Credential, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	cred := *f.cred
	return &cred, nil
}

func (f *fakeRefresher) callCount() int {
	return int(atomic.LoadInt32(&f.calls))
}

// blockingRefresher never answers until the call's context expires.
type blockingRefresher struct{}

func (b *blockingRefresher) Refresh(ctx context.Context, refreshToken string) (*domain.Credential, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func expiredCredential() *domain.Credential {
	return &domain.Credential{
		AccessToken:  "stale-access",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(-time.Minute),
		AccountEmail: "user@example.com",
	}
}

func TestSessionStore_Lifecycle(t *testing.T) {
	store := NewSessionStore(&fakeRefresher{}, 30*time.Second, 5*time.Second)

	t.Run("unknown session is not found", func(t *testing.T) {
		_, err := store.Get("nope")
		assert.True(t, errs.IsKind(err, errs.KindNotFound))

		_, err = store.GetCredential("nope")
		assert.True(t, errs.IsKind(err, errs.KindNotFound))
	})

	t.Run("fresh session has no credential", func(t *testing.T) {
		session := store.Create()
		require.NotEmpty(t, session.ID)

		_, err := store.GetCredential(session.ID)
		assert.True(t, errs.IsKind(err, errs.KindAuth))
		assert.Equal(t, errs.ReasonNotAuthenticated, errs.ReasonOf(err))
	})

	t.Run("stored credential round-trips", func(t *testing.T) {
		session := store.Create()
		cred := &domain.Credential{
			AccessToken:  "access",
			ExpiresAt:    time.Now().Add(time.Hour),
			AccountEmail: "user@example.com",
		}
		require.NoError(t, store.StoreCredential(session.ID, cred))

		got, err := store.GetCredential(session.ID)
		require.NoError(t, err)
		assert.Equal(t, "access", got.AccessToken)
	})

	t.Run("invalidate is idempotent", func(t *testing.T) {
		session := store.Create()
		store.Invalidate(session.ID)
		store.Invalidate(session.ID)

		_, err := store.Get(session.ID)
		assert.True(t, errs.IsKind(err, errs.KindNotFound))
	})
}

func TestSessionStore_EnsureFresh(t *testing.T) {
	t.Run("valid credential skips refresh", func(t *testing.T) {
		refresher := &fakeRefresher{}
		store := NewSessionStore(refresher, 30*time.Second, 5*time.Second)
		session := store.Create()
		require.NoError(t, store.StoreCredential(session.ID, &domain.Credential{
			AccessToken: "access",
			ExpiresAt:   time.Now().Add(time.Hour),
		}))

		cred, err := store.EnsureFresh(context.Background(), session.ID)
		require.NoError(t, err)
		assert.Equal(t, "access", cred.AccessToken)
		assert.Equal(t, 0, refresher.callCount())
	})

	t.Run("expired credential triggers exactly one refresh", func(t *testing.T) {
		refresher := &fakeRefresher{cred: &domain.Credential{
			AccessToken: "new-access",
			ExpiresAt:   time.Now().Add(time.Hour),
		}}
		store := NewSessionStore(refresher, 30*time.Second, 5*time.Second)
		session := store.Create()
		require.NoError(t, store.StoreCredential(session.ID, expiredCredential()))

		cred, err := store.EnsureFresh(context.Background(), session.ID)
		require.NoError(t, err)
		assert.Equal(t, "new-access", cred.AccessToken)
		assert.Equal(t, 1, refresher.callCount())

		// Refresh responses without these fields keep the previous values.
		assert.Equal(t, "refresh-token", cred.RefreshToken)
		assert.Equal(t, "user@example.com", cred.AccountEmail)

		// Follow-up calls see the renewed credential and stay off upstream.
		_, err = store.EnsureFresh(context.Background(), session.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, refresher.callCount())
	})

	t.Run("concurrent callers share one refresh", func(t *testing.T) {
		refresher := &fakeRefresher{
			delay: 50 * time.Millisecond,
			cred: &domain.Credential{
				AccessToken: "new-access",
				ExpiresAt:   time.Now().Add(time.Hour),
			},
		}
		store := NewSessionStore(refresher, 30*time.Second, 5*time.Second)
		session := store.Create()
		require.NoError(t, store.StoreCredential(session.ID, expiredCredential()))

		const callers = 20
		var wg sync.WaitGroup
		errCh := make(chan error, callers)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.EnsureFresh(context.Background(), session.ID)
				errCh <- err
			}()
		}
		wg.Wait()
		close(errCh)

		for err := range errCh {
			require.NoError(t, err)
		}
		assert.Equal(t, 1, refresher.callCount())
	})

	t.Run("hung refresh endpoint times out as upstream and keeps the credential", func(t *testing.T) {
		store := NewSessionStore(&blockingRefresher{}, 30*time.Second, 50*time.Millisecond)
		session := store.Create()
		require.NoError(t, store.StoreCredential(session.ID, expiredCredential()))

		start := time.Now()
		_, err := store.EnsureFresh(context.Background(), session.ID)
		require.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.KindUpstream))
		assert.Equal(t, errs.ReasonTimeout, errs.ReasonOf(err))
		assert.Less(t, time.Since(start), 2*time.Second)

		// A timeout says nothing about the refresh token; the session stays
		// authenticated and a later refresh may still succeed.
		cred, err := store.GetCredential(session.ID)
		require.NoError(t, err)
		assert.Equal(t, "refresh-token", cred.RefreshToken)
	})

	t.Run("failed refresh unauthenticates the session for all waiters", func(t *testing.T) {
		refresher := &fakeRefresher{
			delay: 20 * time.Millisecond,
			err:   errors.New("invalid_grant"),
		}
		store := NewSessionStore(refresher, 30*time.Second, 5*time.Second)
		session := store.Create()
		require.NoError(t, store.StoreCredential(session.ID, expiredCredential()))

		const callers = 8
		var wg sync.WaitGroup
		errCh := make(chan error, callers)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.EnsureFresh(context.Background(), session.ID)
				errCh <- err
			}()
		}
		wg.Wait()
		close(errCh)

		refreshFailures := 0
		for err := range errCh {
			require.Error(t, err)
			assert.True(t, errs.IsKind(err, errs.KindAuth))
			if errs.ReasonOf(err) == errs.ReasonRefreshFailed {
				refreshFailures++
			}
		}
		// At least the flight leader observes the refresh failure; callers
		// arriving after the credential was dropped see NotAuthenticated.
		assert.GreaterOrEqual(t, refreshFailures, 1)
		assert.Equal(t, 1, refresher.callCount())

		_, err := store.GetCredential(session.ID)
		assert.True(t, errs.IsKind(err, errs.KindAuth))
		assert.Equal(t, errs.ReasonNotAuthenticated, errs.ReasonOf(err))
	})
}
