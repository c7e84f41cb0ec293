package delivery

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	emaildto "mailscope-backend/internal/email/dto"
	"mailscope-backend/internal/email/usecase"
	"mailscope-backend/pkg/errs"
)

type EmailHandler struct {
	emailUsecase usecase.EmailUsecase
}

func NewEmailHandler(emailUsecase usecase.EmailUsecase) *EmailHandler {
	return &EmailHandler{
		emailUsecase: emailUsecase,
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(errs.HTTPStatus(err), gin.H{
		"error": err.Error(),
		"kind":  errs.KindOf(err).String(),
	})
}

// GetDomains returns the sender domains of the inbox ranked by importance.
func (h *EmailHandler) GetDomains(c *gin.Context) {
	domains, err := h.emailUsecase.ListDomains(c.Request.Context(), c.GetString("sessionID"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, emaildto.DomainsResponse{
		Domains: domains,
		Total:   len(domains),
	})
}

// GetEmailsByDomain returns messages from one sender domain.
func (h *EmailHandler) GetEmailsByDomain(c *gin.Context) {
	senderDomain := c.Param("domain")

	limit := 0
	offset := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	emails, err := h.emailUsecase.ListMessages(c.Request.Context(), c.GetString("sessionID"), senderDomain, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, emaildto.EmailsResponse{
		Emails: emails,
		Domain: senderDomain,
		Limit:  limit,
		Offset: offset,
	})
}

// GetEmailByID returns one full message.
func (h *EmailHandler) GetEmailByID(c *gin.Context) {
	email, err := h.emailUsecase.GetMessage(c.Request.Context(), c.GetString("sessionID"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, email)
}

// SendReply sends a reply threaded onto an existing message.
func (h *EmailHandler) SendReply(c *gin.Context) {
	var req emaildto.SendReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email_id and reply_body are required", "kind": errs.KindValidation.String()})
		return
	}

	if err := h.emailUsecase.SendReply(c.Request.Context(), c.GetString("sessionID"), req.EmailID, req.ReplyBody); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, emaildto.SendReplyResponse{
		Message: "reply sent",
		EmailID: req.EmailID,
	})
}
