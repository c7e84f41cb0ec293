package delivery

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	aidto "mailscope-backend/internal/ai/dto"
	aiUsecase "mailscope-backend/internal/ai/usecase"
	authUsecase "mailscope-backend/internal/auth/usecase"
	emailDomain "mailscope-backend/internal/email/domain"
	emailUsecase "mailscope-backend/internal/email/usecase"
	"mailscope-backend/pkg/errs"
)

type AIHandler struct {
	aiUsecase    aiUsecase.AIUsecase
	emailUsecase emailUsecase.EmailUsecase
	sessions     authUsecase.SessionStore
}

func NewAIHandler(ai aiUsecase.AIUsecase, emails emailUsecase.EmailUsecase, sessions authUsecase.SessionStore) *AIHandler {
	return &AIHandler{
		aiUsecase:    ai,
		emailUsecase: emails,
		sessions:     sessions,
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(errs.HTTPStatus(err), gin.H{
		"error": err.Error(),
		"kind":  errs.KindOf(err).String(),
	})
}

// resolveEmail turns a request into an email entity: by id through the
// aggregator, or directly from inline content.
func (h *AIHandler) resolveEmail(c *gin.Context, emailID string, inline *aidto.InlineEmail) (*emailDomain.EmailMessage, bool) {
	if emailID != "" {
		email, err := h.emailUsecase.GetMessage(c.Request.Context(), c.GetString("sessionID"), emailID)
		if err != nil {
			respondError(c, err)
			return nil, false
		}
		return email, true
	}

	if inline == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email_id or email is required", "kind": errs.KindValidation.String()})
		return nil, false
	}

	receivedAt := inline.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}
	return &emailDomain.EmailMessage{
		ID:            "inline",
		Subject:       inline.Subject,
		SenderAddress: inline.SenderAddress,
		SenderName:    inline.SenderName,
		Body:          inline.Body,
		ReceivedAt:    receivedAt,
		Domain:        emailDomain.ExtractDomain(inline.SenderAddress),
	}, true
}

// Summarize produces a structured summary artifact for one email.
func (h *AIHandler) Summarize(c *gin.Context) {
	var req aidto.SummarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "kind": errs.KindValidation.String()})
		return
	}

	email, ok := h.resolveEmail(c, req.EmailID, req.Email)
	if !ok {
		return
	}

	artifact, err := h.aiUsecase.Summarize(c.Request.Context(), email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, artifact)
}

// GenerateResponse drafts a reply to one email in the requested tone.
func (h *AIHandler) GenerateResponse(c *gin.Context) {
	var req aidto.GenerateResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "kind": errs.KindValidation.String()})
		return
	}

	email, ok := h.resolveEmail(c, req.EmailID, req.Email)
	if !ok {
		return
	}

	// The account email signs the reply; a session mid-logout just falls
	// back to a neutral signature.
	accountEmail := ""
	if cred, err := h.sessions.GetCredential(c.GetString("sessionID")); err == nil {
		accountEmail = cred.AccountEmail
	}

	artifact, err := h.aiUsecase.GenerateResponse(c.Request.Context(), email, req.UserInput, req.Tone, accountEmail)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, artifact)
}

// Provider reports the active AI provider and live template versions.
func (h *AIHandler) Provider(c *gin.Context) {
	c.JSON(http.StatusOK, h.aiUsecase.ProviderInfo())
}

// Health answers liveness probes for the AI subsystem without requiring a
// session. A wired provider means the handler can take traffic.
func (h *AIHandler) Health(c *gin.Context) {
	info := h.aiUsecase.ProviderInfo()
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"provider": info.Provider,
	})
}
