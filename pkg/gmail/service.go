package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	authdomain "mailscope-backend/internal/auth/domain"
	emaildomain "mailscope-backend/internal/email/domain"
	"mailscope-backend/pkg/errs"
)

// Max concurrent per-message fetches against the Gmail API.
const fetchConcurrency = 10

type Service struct {
	oauth *oauth2.Config
}

func NewService(clientID, clientSecret, redirectURL string) *Service {
	return &Service{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes: []string{
				gmail.GmailReadonlyScope,
				gmail.GmailSendScope,
			},
		},
	}
}

// AuthCodeURL builds the consent page URL. The state value carries the
// session id so the callback can bind the credential to the right tab.
func (s *Service) AuthCodeURL(state string) string {
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a credential, resolving the
// account email in the same step.
func (s *Service) Exchange(ctx context.Context, code string) (*authdomain.Credential, error) {
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, errs.Auth("gmail.Exchange", "", fmt.Errorf("code exchange failed: %w", err))
	}

	cred := credentialFromToken(token)
	email, err := s.Profile(ctx, cred.AccessToken)
	if err != nil {
		return nil, err
	}
	cred.AccountEmail = email
	return cred, nil
}

// Refresh implements the session store's TokenRefresher contract. The
// returned credential may omit refresh token and account email; the caller
// carries those forward.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*authdomain.Credential, error) {
	source := s.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	return credentialFromToken(token), nil
}

// Profile returns the email address of the authenticated account.
func (s *Service) Profile(ctx context.Context, accessToken string) (string, error) {
	srv, err := s.service(ctx, accessToken)
	if err != nil {
		return "", err
	}

	profile, err := srv.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return "", mapError("gmail.Profile", err)
	}
	return profile.EmailAddress, nil
}

// ListEnvelopes fetches one page of inbox envelopes in metadata format: the
// headers needed for grouping plus the size estimate, never the body.
func (s *Service) ListEnvelopes(ctx context.Context, accessToken, pageToken string, maxResults int64) ([]*emaildomain.EmailMessage, string, error) {
	srv, err := s.service(ctx, accessToken)
	if err != nil {
		return nil, "", err
	}

	call := srv.Users.Messages.List("me").Q("in:inbox").MaxResults(maxResults).Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, "", mapError("gmail.ListEnvelopes", err)
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, msg := range resp.Messages {
		ids = append(ids, msg.Id)
	}

	envelopes, err := s.fetchAll(ctx, srv, ids, "metadata")
	if err != nil {
		return nil, "", err
	}
	return envelopes, resp.NextPageToken, nil
}

// ListMessages fetches full messages from one sender domain, newest first.
func (s *Service) ListMessages(ctx context.Context, accessToken, senderDomain string, limit, offset int) ([]*emaildomain.EmailMessage, error) {
	srv, err := s.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("from:%s in:inbox", senderDomain)
	resp, err := srv.Users.Messages.List("me").
		Q(query).
		MaxResults(int64(offset + limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, mapError("gmail.ListMessages", err)
	}

	if offset >= len(resp.Messages) {
		return []*emaildomain.EmailMessage{}, nil
	}

	ids := make([]string, 0, limit)
	for _, msg := range resp.Messages[offset:] {
		ids = append(ids, msg.Id)
	}

	messages, err := s.fetchAll(ctx, srv, ids, "full")
	if err != nil {
		return nil, err
	}

	sort.Slice(messages, func(i, j int) bool {
		return messages[i].ReceivedAt.After(messages[j].ReceivedAt)
	})
	return messages, nil
}

// GetMessage fetches one full message by id.
func (s *Service) GetMessage(ctx context.Context, accessToken, id string) (*emaildomain.EmailMessage, error) {
	srv, err := s.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	msg, err := srv.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, mapError("gmail.GetMessage", err)
	}
	return convertMessage(msg), nil
}

// SendReply sends a plain-text reply threaded onto the original message.
func (s *Service) SendReply(ctx context.Context, accessToken string, original *emaildomain.EmailMessage, body string) error {
	srv, err := s.service(ctx, accessToken)
	if err != nil {
		return err
	}

	subject := original.Subject
	if !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = "Re: " + subject
	}
	encodedSubject := fmt.Sprintf("=?utf-8?B?%s?=", base64.StdEncoding.EncodeToString([]byte(subject)))

	var raw strings.Builder
	raw.WriteString(fmt.Sprintf("To: %s\r\n", original.SenderAddress))
	raw.WriteString(fmt.Sprintf("Subject: %s\r\n", encodedSubject))
	raw.WriteString("MIME-Version: 1.0\r\n")
	raw.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	raw.WriteString(body)

	msg := &gmail.Message{
		Raw:      base64.URLEncoding.EncodeToString([]byte(raw.String())),
		ThreadId: original.ThreadID,
	}

	if _, err := srv.Users.Messages.Send("me", msg).Context(ctx).Do(); err != nil {
		return mapError("gmail.SendReply", err)
	}
	return nil
}

// service builds a Gmail client around a static access token. Refresh is
// owned by the session store, so the client must never refresh on its own.
func (s *Service) service(ctx context.Context, accessToken string) (*gmail.Service, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	srv, err := gmail.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return srv, nil
}

// fetchAll retrieves messages by id in parallel under a concurrency cap.
// Messages that fail to fetch are dropped; the page is best-effort.
func (s *Service) fetchAll(ctx context.Context, srv *gmail.Service, ids []string, format string) ([]*emaildomain.EmailMessage, error) {
	type result struct {
		msg *emaildomain.EmailMessage
		err error
	}

	results := make(chan result, len(ids))
	semaphore := make(chan struct{}, fetchConcurrency)

	for _, id := range ids {
		go func(msgID string) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			call := srv.Users.Messages.Get("me", msgID).Format(format).Context(ctx)
			if format == "metadata" {
				call = call.MetadataHeaders("From", "Subject", "Date")
			}
			msg, err := call.Do()
			if err != nil {
				results <- result{nil, mapError("gmail.fetchAll", err)}
				return
			}
			results <- result{convertMessage(msg), nil}
		}(id)
	}

	messages := make([]*emaildomain.EmailMessage, 0, len(ids))
	for range ids {
		r := <-results
		if r.err != nil {
			// Auth failures poison every remaining fetch; surface them.
			if errs.IsKind(r.err, errs.KindAuth) {
				return nil, r.err
			}
			continue
		}
		messages = append(messages, r.msg)
	}
	return messages, nil
}

func credentialFromToken(token *oauth2.Token) *authdomain.Credential {
	return &authdomain.Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
}

func convertMessage(msg *gmail.Message) *emaildomain.EmailMessage {
	var headers []*gmail.MessagePartHeader
	var body string
	if msg.Payload != nil {
		headers = msg.Payload.Headers
		body = extractBody(msg.Payload)
	}

	from := getHeader(headers, "From")
	name, address := splitAddress(from)

	return &emaildomain.EmailMessage{
		ID:            msg.Id,
		ThreadID:      msg.ThreadId,
		Subject:       getHeader(headers, "Subject"),
		SenderAddress: address,
		SenderName:    name,
		Body:          body,
		ReceivedAt:    time.Unix(msg.InternalDate/1000, 0),
		Domain:        emaildomain.ExtractDomain(address),
		SizeEstimate:  msg.SizeEstimate,
	}
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if header.Name == name {
			return header.Value
		}
	}
	return ""
}

// splitAddress splits a From header into display name and bare address,
// accepting both "Name <addr>" and bare-address forms.
func splitAddress(from string) (name, address string) {
	if idx := strings.Index(from, "<"); idx >= 0 {
		name = strings.Trim(strings.TrimSpace(from[:idx]), `"`)
		address = strings.TrimSpace(from[idx+1:])
		if end := strings.Index(address, ">"); end >= 0 {
			address = address[:end]
		}
		return name, address
	}
	return "", strings.TrimSpace(from)
}

var htmlTag = regexp.MustCompile(`<[^>]*>`)

// extractBody returns the message body, preferring text/plain parts and
// falling back to tag-stripped HTML.
func extractBody(payload *gmail.MessagePart) string {
	if payload.Body != nil && payload.Body.Data != "" {
		if data, err := base64.URLEncoding.DecodeString(payload.Body.Data); err == nil {
			if payload.MimeType == "text/html" {
				return stripHTML(string(data))
			}
			return string(data)
		}
	}

	var plainBody, htmlBody string
	var findBody func(parts []*gmail.MessagePart)
	findBody = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			if part.Body != nil && part.Body.Data != "" {
				data, err := base64.URLEncoding.DecodeString(part.Body.Data)
				if err == nil {
					switch part.MimeType {
					case "text/plain":
						if plainBody == "" {
							plainBody = string(data)
						}
					case "text/html":
						if htmlBody == "" {
							htmlBody = string(data)
						}
					}
				}
			}
			if len(part.Parts) > 0 {
				findBody(part.Parts)
			}
		}
	}
	findBody(payload.Parts)

	if plainBody != "" {
		return plainBody
	}
	return stripHTML(htmlBody)
}

func stripHTML(html string) string {
	text := htmlTag.ReplaceAllString(html, " ")
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&quot;", "\"")
	return strings.Join(strings.Fields(text), " ")
}

// mapError classifies Gmail API failures so the retry layer can tell
// recoverable upstream trouble from terminal auth and lookup failures.
func mapError(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized:
			return errs.Auth(op, errs.ReasonNotAuthenticated, err)
		case http.StatusNotFound:
			return errs.NotFound(op, err)
		}
	}
	return err
}
