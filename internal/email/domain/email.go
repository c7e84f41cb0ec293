package domain

import (
	"strings"
	"time"
)

// EmailMessage is one message as fetched from the mailbox provider.
// Immutable once constructed.
type EmailMessage struct {
	ID            string    `json:"id"`
	ThreadID      string    `json:"thread_id,omitempty"`
	Subject       string    `json:"subject"`
	SenderAddress string    `json:"sender_address"`
	SenderName    string    `json:"sender_name,omitempty"`
	Body          string    `json:"body"`
	ReceivedAt    time.Time `json:"received_at"`
	Domain        string    `json:"domain"`

	// SizeEstimate is the provider's byte-size estimate, used as the body
	// length signal on envelope listings where bodies are not fetched.
	SizeEstimate int64 `json:"-"`
}

// BodyLength is the engagement signal for this message: the actual body
// length when a body was fetched, the provider's size estimate otherwise.
func (m *EmailMessage) BodyLength() float64 {
	if m.Body != "" {
		return float64(len(m.Body))
	}
	return float64(m.SizeEstimate)
}

// Valid reports whether the message carries every field the aggregator
// requires. Invalid messages are skipped, not fatal.
func (m *EmailMessage) Valid() bool {
	return m.ID != "" && m.SenderAddress != "" && !m.ReceivedAt.IsZero() && m.Domain != ""
}

// DomainStat is one sender domain with its aggregates and importance score.
// Recomputed on every listing request, never persisted.
type DomainStat struct {
	Name            string    `json:"domain"`
	MessageCount    int       `json:"message_count"`
	LastReceivedAt  time.Time `json:"last_received_at"`
	AvgBodyLength   float64   `json:"avg_body_length"`
	ImportanceScore float64   `json:"importance_score"`
}

// ExtractDomain returns the lower-cased part after '@' of an address,
// accepting both bare addresses and the "Name <addr>" form. Empty when the
// address carries no domain.
func ExtractDomain(senderAddress string) string {
	addr := senderAddress
	if start := strings.Index(addr, "<"); start >= 0 {
		addr = addr[start+1:]
		if end := strings.Index(addr, ">"); end >= 0 {
			addr = addr[:end]
		}
	}
	at := strings.LastIndex(addr, "@")
	if at < 0 || at == len(addr)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(addr[at+1:]))
}
