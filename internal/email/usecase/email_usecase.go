package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	authUsecase "mailscope-backend/internal/auth/usecase"
	"mailscope-backend/internal/email/domain"
	"mailscope-backend/pkg/errs"
)

const (
	defaultMessageLimit = 20
	maxMessageLimit     = 100

	upstreamMaxRetries     = 3
	upstreamRetryBaseDelay = 500 * time.Millisecond
)

// MailboxProvider is the outbound mailbox contract. Credentials are passed
// as plain access tokens: the Session Store owns refresh, so the provider
// never refreshes behind the aggregator's back. Implemented by pkg/gmail.
type MailboxProvider interface {
	ListEnvelopes(ctx context.Context, accessToken, pageToken string, maxResults int64) ([]*domain.EmailMessage, string, error)
	ListMessages(ctx context.Context, accessToken, senderDomain string, limit, offset int) ([]*domain.EmailMessage, error)
	GetMessage(ctx context.Context, accessToken, id string) (*domain.EmailMessage, error)
	SendReply(ctx context.Context, accessToken string, original *domain.EmailMessage, body string) error
}

// EmailUsecase groups mailbox reads by sender domain and ranks the domains.
type EmailUsecase interface {
	ListDomains(ctx context.Context, sessionID string) ([]*domain.DomainStat, error)
	ListMessages(ctx context.Context, sessionID, senderDomain string, limit, offset int) ([]*domain.EmailMessage, error)
	GetMessage(ctx context.Context, sessionID, id string) (*domain.EmailMessage, error)
	SendReply(ctx context.Context, sessionID, messageID, body string) error
}

type emailUsecase struct {
	sessions authUsecase.SessionStore
	provider MailboxProvider

	pageSize int64
	timeout  time.Duration
	score    ScoreConfig

	now func() time.Time
}

func NewEmailUsecase(sessions authUsecase.SessionStore, provider MailboxProvider, pageSize int64, timeout time.Duration, score ScoreConfig) EmailUsecase {
	return &emailUsecase{
		sessions: sessions,
		provider: provider,
		pageSize: pageSize,
		timeout:  timeout,
		score:    score,
		now:      time.Now,
	}
}

func (u *emailUsecase) ListDomains(ctx context.Context, sessionID string) ([]*domain.DomainStat, error) {
	cred, err := u.sessions.EnsureFresh(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var envelopes []*domain.EmailMessage
	err = u.withRetry(ctx, "email.ListDomains", func(callCtx context.Context) error {
		var callErr error
		envelopes, _, callErr = u.provider.ListEnvelopes(callCtx, cred.AccessToken, "", u.pageSize)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	type accumulator struct {
		count      int
		last       time.Time
		bodyLenSum float64
	}
	byDomain := make(map[string]*accumulator)

	skipped := 0
	for _, msg := range envelopes {
		if !msg.Valid() {
			skipped++
			continue
		}
		acc, ok := byDomain[msg.Domain]
		if !ok {
			acc = &accumulator{}
			byDomain[msg.Domain] = acc
		}
		acc.count++
		acc.bodyLenSum += msg.BodyLength()
		if msg.ReceivedAt.After(acc.last) {
			acc.last = msg.ReceivedAt
		}
	}
	if skipped > 0 {
		log.Printf("[MailAggregator] skipped %d malformed messages of %d", skipped, len(envelopes))
	}

	stats := make([]*domain.DomainStat, 0, len(byDomain))
	for name, acc := range byDomain {
		stats = append(stats, &domain.DomainStat{
			Name:           name,
			MessageCount:   acc.count,
			LastReceivedAt: acc.last,
			AvgBodyLength:  acc.bodyLenSum / float64(acc.count),
		})
	}

	return ScoreDomains(stats, u.now(), u.score), nil
}

func (u *emailUsecase) ListMessages(ctx context.Context, sessionID, senderDomain string, limit, offset int) ([]*domain.EmailMessage, error) {
	senderDomain = strings.ToLower(strings.TrimSpace(senderDomain))
	if senderDomain == "" {
		return nil, errs.Validation("email.ListMessages", "", errors.New("domain is required"))
	}
	if limit <= 0 {
		limit = defaultMessageLimit
	}
	if limit > maxMessageLimit {
		limit = maxMessageLimit
	}
	if offset < 0 {
		offset = 0
	}

	cred, err := u.sessions.EnsureFresh(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var fetched []*domain.EmailMessage
	err = u.withRetry(ctx, "email.ListMessages", func(callCtx context.Context) error {
		var callErr error
		fetched, callErr = u.provider.ListMessages(callCtx, cred.AccessToken, senderDomain, limit, offset)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	messages := make([]*domain.EmailMessage, 0, len(fetched))
	skipped := 0
	for _, msg := range fetched {
		if !msg.Valid() {
			skipped++
			continue
		}
		messages = append(messages, msg)
	}
	if skipped > 0 {
		log.Printf("[MailAggregator] skipped %d malformed messages for domain %s", skipped, senderDomain)
	}

	return messages, nil
}

func (u *emailUsecase) GetMessage(ctx context.Context, sessionID, id string) (*domain.EmailMessage, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errs.Validation("email.GetMessage", "", errors.New("message id is required"))
	}

	cred, err := u.sessions.EnsureFresh(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var msg *domain.EmailMessage
	err = u.withRetry(ctx, "email.GetMessage", func(callCtx context.Context) error {
		var callErr error
		msg, callErr = u.provider.GetMessage(callCtx, cred.AccessToken, id)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (u *emailUsecase) SendReply(ctx context.Context, sessionID, messageID, body string) error {
	if strings.TrimSpace(body) == "" {
		return errs.Validation("email.SendReply", "", errors.New("reply body cannot be empty"))
	}

	original, err := u.GetMessage(ctx, sessionID, messageID)
	if err != nil {
		return err
	}

	cred, err := u.sessions.EnsureFresh(ctx, sessionID)
	if err != nil {
		return err
	}

	return u.withRetry(ctx, "email.SendReply", func(callCtx context.Context) error {
		return u.provider.SendReply(callCtx, cred.AccessToken, original, body)
	})
}

// withRetry runs one provider call under the aggregator's retry policy:
// exponential backoff from 500ms, at most 3 retries, a bounded per-call
// timeout, and no retry at all for auth/not-found/validation errors.
func (u *emailUsecase) withRetry(ctx context.Context, op string, call func(ctx context.Context) error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = upstreamRetryBaseDelay

	err := backoff.Retry(func() error {
		callCtx, cancel := context.WithTimeout(ctx, u.timeout)
		defer cancel()

		err := call(callCtx)
		if err == nil {
			return nil
		}
		switch errs.KindOf(err) {
		case errs.KindAuth, errs.KindNotFound, errs.KindValidation:
			return backoff.Permanent(err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return errs.Upstream(op, errs.ReasonTimeout, err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, upstreamMaxRetries), ctx))

	if err == nil {
		return nil
	}
	if errs.KindOf(err) == errs.KindUnknown {
		err = errs.Upstream(op, "", fmt.Errorf("retries exhausted: %w", err))
	}
	return err
}
