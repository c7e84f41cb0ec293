package main

import (
	"log"

	api "mailscope-backend/cmd/api"
	authUsecase "mailscope-backend/internal/auth/usecase"
	emailUsecase "mailscope-backend/internal/email/usecase"
	"mailscope-backend/pkg/config"
	"mailscope-backend/pkg/gmail"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration:", err)
	}

	// Initialize Gmail service (OAuth flow, token refresh, mailbox access)
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI)

	// Initialize use cases (dependency injection)
	sessions := authUsecase.NewSessionStore(gmailService, cfg.RefreshSkew, cfg.UpstreamTimeout)
	authUsecaseInstance := authUsecase.NewAuthUsecase(sessions, gmailService, cfg.UpstreamTimeout)
	emailUsecaseInstance := emailUsecase.NewEmailUsecase(sessions, gmailService, cfg.DomainPageSize, cfg.UpstreamTimeout, emailUsecase.ScoreConfig{
		FrequencyWeight:     cfg.FrequencyWeight,
		RecencyWeight:       cfg.RecencyWeight,
		EngagementWeight:    cfg.EngagementWeight,
		HalfLifeDays:        cfg.RecencyHalfLifeDays,
		ReferenceBodyLength: cfg.ReferenceBodyLength,
	})

	// Initialize HTTP handler (loads prompts, selects AI provider)
	handler, err := api.NewHandler(sessions, authUsecaseInstance, emailUsecaseInstance, cfg)
	if err != nil {
		log.Fatal("Failed to initialize API handler:", err)
	}

	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
