package dto

import "time"

// InlineEmail lets a caller submit email content directly instead of a
// message id, e.g. for drafts that never touched the mailbox.
type InlineEmail struct {
	Subject       string    `json:"subject"`
	SenderAddress string    `json:"sender_address"`
	SenderName    string    `json:"sender_name"`
	Body          string    `json:"body"`
	ReceivedAt    time.Time `json:"received_at"`
}

type SummarizeRequest struct {
	EmailID string       `json:"email_id"`
	Email   *InlineEmail `json:"email"`
}

type GenerateResponseRequest struct {
	EmailID   string       `json:"email_id"`
	Email     *InlineEmail `json:"email"`
	UserInput string       `json:"user_input"`
	Tone      string       `json:"tone"`
}
