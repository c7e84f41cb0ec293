package dto

type AuthURLResponse struct {
	AuthURL   string `json:"auth_url"`
	SessionID string `json:"session_id"`
}

type AuthStatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	AccountEmail  string `json:"account_email,omitempty"`
}

type LogoutResponse struct {
	Message string `json:"message"`
}
