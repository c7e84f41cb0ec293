package domain

import "time"

// Credential is an OAuth token pair bound to one mailbox account. It is
// owned by exactly one session and mutated only by the refresh path.
type Credential struct {
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	AccountEmail string    `json:"account_email"`
}

// ExpiredAt reports whether the credential must be refreshed before use at
// the given instant. skew widens the window so a token on the edge of expiry
// is never sent upstream.
func (c *Credential) ExpiredAt(now time.Time, skew time.Duration) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(skew).Before(c.ExpiresAt)
}

// Session identifies one authenticated browser tab. Sessions live in memory
// for the process lifetime only.
type Session struct {
	ID         string
	CreatedAt  time.Time
	Credential *Credential // nil until the OAuth flow completes
}
