package delivery

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mailscope-backend/internal/auth/usecase"
	"mailscope-backend/pkg/errs"
)

// SessionIDHeader carries the opaque per-tab session identifier.
const SessionIDHeader = "X-Session-ID"

// SessionMiddleware resolves the session id header and rejects requests for
// absent or unknown sessions before any usecase runs.
func SessionMiddleware(sessions usecase.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader(SessionIDHeader)
		if sessionID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "session id header required", "kind": errs.KindAuth.String()})
			c.Abort()
			return
		}

		// An unknown session id reads as unauthenticated, not as a missing
		// resource: the tab must restart the consent flow.
		if _, err := sessions.Get(sessionID); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown session", "kind": errs.KindAuth.String()})
			c.Abort()
			return
		}

		c.Set("sessionID", sessionID)
		c.Next()
	}
}
