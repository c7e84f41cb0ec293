package usecase

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"mailscope-backend/internal/ai/domain"
	emailDomain "mailscope-backend/internal/email/domain"
	"mailscope-backend/pkg/ai"
	"mailscope-backend/pkg/errs"
	"mailscope-backend/pkg/prompts"
	"mailscope-backend/pkg/signature"
)

const (
	defaultTone = "professional"

	completionMaxRetries     = 2
	completionRetryBaseDelay = 500 * time.Millisecond
)

// ProviderInfo describes the active AI setup for clients: which provider
// answers, which template versions are live, and whether the client should
// auto-apply the tone a summary suggests.
type ProviderInfo struct {
	Provider               string            `json:"provider"`
	PromptVersions         map[string]string `json:"prompt_versions"`
	AutoApplySuggestedTone bool              `json:"auto_apply_suggested_tone"`
}

// AIUsecase turns emails into typed artifacts via prompt templates and an
// external completion provider.
type AIUsecase interface {
	Summarize(ctx context.Context, email *emailDomain.EmailMessage) (*domain.SummaryArtifact, error)
	GenerateResponse(ctx context.Context, original *emailDomain.EmailMessage, userInput, tone, accountEmail string) (*domain.ResponseArtifact, error)
	ProviderInfo() ProviderInfo
}

type aiUsecase struct {
	completer ai.Completer
	registry  *prompts.Registry

	timeout       time.Duration
	autoApplyTone bool
}

func NewAIUsecase(completer ai.Completer, registry *prompts.Registry, timeout time.Duration, autoApplyTone bool) AIUsecase {
	return &aiUsecase{
		completer:     completer,
		registry:      registry,
		timeout:       timeout,
		autoApplyTone: autoApplyTone,
	}
}

func (u *aiUsecase) Summarize(ctx context.Context, email *emailDomain.EmailMessage) (*domain.SummaryArtifact, error) {
	const op = "ai.Summarize"

	if email == nil || strings.TrimSpace(email.Body) == "" {
		return nil, errs.Validation(op, "", errors.New("email body is required"))
	}

	prompt, err := u.registry.Render(prompts.TemplateSummarization, map[string]string{
		"subject":       email.Subject,
		"sender":        senderDisplay(email),
		"received_date": email.ReceivedAt.Format("2006-01-02 15:04"),
		"body":          email.Body,
	})
	if err != nil {
		return nil, err
	}

	reply, err := u.complete(ctx, op, prompts.TemplateSummarization, prompt, u.registry.MaxSummaryTokens())
	if err != nil {
		return nil, err
	}
	return parseSummary(reply)
}

func (u *aiUsecase) GenerateResponse(ctx context.Context, original *emailDomain.EmailMessage, userInput, tone, accountEmail string) (*domain.ResponseArtifact, error) {
	const op = "ai.GenerateResponse"

	if original == nil || strings.TrimSpace(original.Body) == "" {
		return nil, errs.Validation(op, "", errors.New("original email body is required"))
	}

	tone = strings.ToLower(strings.TrimSpace(tone))
	if tone == "" {
		tone = defaultTone
	}
	templateID := u.toneTemplateID(tone)

	prompt, err := u.registry.Render(templateID, map[string]string{
		"subject":              original.Subject,
		"sender":               senderDisplay(original),
		"body":                 original.Body,
		"user_input":           userInput,
		"tone":                 tone,
		"original_sender_name": signature.Extract(original.SenderAddress),
		"reply_sender_name":    replySenderName(accountEmail),
	})
	if err != nil {
		return nil, err
	}

	reply, err := u.complete(ctx, op, templateID, prompt, u.registry.MaxResponseTokens())
	if err != nil {
		return nil, err
	}
	return parseResponse(reply)
}

func (u *aiUsecase) ProviderInfo() ProviderInfo {
	return ProviderInfo{
		Provider:               u.completer.Name(),
		PromptVersions:         u.registry.Versions(),
		AutoApplySuggestedTone: u.autoApplyTone,
	}
}

// toneTemplateID resolves the tone-specific template, falling back to the
// default response template for tones without one.
func (u *aiUsecase) toneTemplateID(tone string) string {
	id := prompts.TemplateResponse + "_" + tone
	if u.registry.Has(id) {
		return id
	}
	return prompts.TemplateResponse
}

// complete runs one provider invocation under the completion retry policy:
// transient upstream failures retry up to 2 times, while malformed output
// and validation failures are contract breaches and never retried.
func (u *aiUsecase) complete(ctx context.Context, op, templateID, prompt string, maxTokens int) (string, error) {
	version, err := u.registry.VersionOf(templateID)
	if err != nil {
		return "", err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = completionRetryBaseDelay

	var reply string
	err = backoff.Retry(func() error {
		log.Printf("[AIOrchestrator] invoking provider %s with template %s (version %s)",
			u.completer.Name(), templateID, version)

		callCtx, cancel := context.WithTimeout(ctx, u.timeout)
		defer cancel()

		result, callErr := u.completer.Complete(callCtx, prompt, maxTokens)
		if callErr != nil {
			switch errs.KindOf(callErr) {
			case errs.KindAuth, errs.KindNotFound, errs.KindValidation, errs.KindAI:
				return backoff.Permanent(callErr)
			}
			if errors.Is(callErr, context.DeadlineExceeded) {
				return errs.Upstream(op, errs.ReasonTimeout, callErr)
			}
			return callErr
		}
		reply = result
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(policy, completionMaxRetries), ctx))

	if err != nil {
		if errs.KindOf(err) == errs.KindUnknown {
			err = errs.Upstream(op, "", err)
		}
		return "", err
	}
	return reply, nil
}

func senderDisplay(email *emailDomain.EmailMessage) string {
	if email.SenderName != "" {
		return email.SenderName + " <" + email.SenderAddress + ">"
	}
	return email.SenderAddress
}

// replySenderName derives the signature name for the authenticated account,
// defaulting to a neutral name when the account email yields nothing usable.
func replySenderName(accountEmail string) string {
	if strings.TrimSpace(accountEmail) == "" {
		return "User"
	}
	name := signature.Extract(accountEmail)
	if name == signature.Fallback {
		return "User"
	}
	return name
}
