package dto

import "mailscope-backend/internal/email/domain"

type DomainsResponse struct {
	Domains []*domain.DomainStat `json:"domains"`
	Total   int                  `json:"total"`
}

type EmailsResponse struct {
	Emails []*domain.EmailMessage `json:"emails"`
	Domain string                 `json:"domain"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
}

type SendReplyRequest struct {
	EmailID   string `json:"email_id" binding:"required"`
	ReplyBody string `json:"reply_body" binding:"required"`
}

type SendReplyResponse struct {
	Message string `json:"message"`
	EmailID string `json:"email_id"`
}
