package delivery

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authdto "mailscope-backend/internal/auth/dto"
	"mailscope-backend/internal/auth/usecase"
	"mailscope-backend/pkg/errs"
)

type AuthHandler struct {
	authUsecase usecase.AuthUsecase
	frontendURL string
}

func NewAuthHandler(authUsecase usecase.AuthUsecase, frontendURL string) *AuthHandler {
	return &AuthHandler{
		authUsecase: authUsecase,
		frontendURL: frontendURL,
	}
}

// GetAuthURL starts the consent flow. A caller with a live session keeps it;
// anyone else gets a fresh session id to hold on to.
func (h *AuthHandler) GetAuthURL(c *gin.Context) {
	sessionID, authURL := h.authUsecase.BeginAuth(c.GetHeader(SessionIDHeader))

	c.JSON(http.StatusOK, authdto.AuthURLResponse{
		AuthURL:   authURL,
		SessionID: sessionID,
	})
}

// Callback receives the provider redirect. The state parameter is the
// session id handed out by GetAuthURL.
func (h *AuthHandler) Callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")

	if err := h.authUsecase.CompleteAuth(c.Request.Context(), state, code); err != nil {
		c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"?auth=error")
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"?auth=success")
}

// Status reports authentication state without requiring one: a missing or
// unknown session simply reads as unauthenticated.
func (h *AuthHandler) Status(c *gin.Context) {
	authenticated, accountEmail := h.authUsecase.Status(c.GetHeader(SessionIDHeader))

	c.JSON(http.StatusOK, authdto.AuthStatusResponse{
		Authenticated: authenticated,
		AccountEmail:  accountEmail,
	})
}

// Logout invalidates the session. Idempotent: logging out twice is fine.
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID := c.GetHeader(SessionIDHeader)
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session id header required", "kind": errs.KindValidation.String()})
		return
	}

	h.authUsecase.Logout(sessionID)
	c.JSON(http.StatusOK, authdto.LogoutResponse{Message: "logged out"})
}
