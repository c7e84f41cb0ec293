package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	aiDelivery "mailscope-backend/internal/ai/delivery"
	aiUsecase "mailscope-backend/internal/ai/usecase"
	"mailscope-backend/internal/auth/delivery"
	authUsecase "mailscope-backend/internal/auth/usecase"
	emailDelivery "mailscope-backend/internal/email/delivery"
	emailUsecase "mailscope-backend/internal/email/usecase"
	"mailscope-backend/pkg/config"
)

func SetupRoutes(r *gin.Engine, sessions authUsecase.SessionStore, authUc authUsecase.AuthUsecase, emailUc emailUsecase.EmailUsecase, aiUc aiUsecase.AIUsecase, cfg *config.Config) {
	authHandler := delivery.NewAuthHandler(authUc, cfg.FrontendURL)
	emailHandler := emailDelivery.NewEmailHandler(emailUc)
	aiHandler := aiDelivery.NewAIHandler(aiUc, emailUc, sessions)

	api := r.Group("/api")
	{
		// Health check (no session required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Auth routes: no session middleware, the flow itself hands out
		// session ids and status must answer for unknown ones.
		auth := api.Group("/auth/gmail")
		{
			auth.GET("/url", authHandler.GetAuthURL)
			auth.GET("/callback", authHandler.Callback)
			auth.GET("/status", authHandler.Status)
			auth.POST("/logout", authHandler.Logout)
		}

		// Email routes (session required)
		emails := api.Group("/emails")
		emails.Use(delivery.SessionMiddleware(sessions))
		{
			emails.GET("/domains", emailHandler.GetDomains)
			emails.GET("/domains/:domain/emails", emailHandler.GetEmailsByDomain)
			emails.GET("/:id", emailHandler.GetEmailByID)
			emails.POST("/send-reply", emailHandler.SendReply)
		}

		// AI subsystem liveness (no session required)
		api.GET("/ai/health", aiHandler.Health)

		// AI routes (session required)
		aiGroup := api.Group("/ai")
		aiGroup.Use(delivery.SessionMiddleware(sessions))
		{
			aiGroup.POST("/summarize", aiHandler.Summarize)
			aiGroup.POST("/generate-response", aiHandler.GenerateResponse)
			aiGroup.GET("/provider", aiHandler.Provider)
		}
	}
}
