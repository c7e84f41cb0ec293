package api

import (
	"log"

	"github.com/gin-gonic/gin"

	aiUsecase "mailscope-backend/internal/ai/usecase"
	authUsecase "mailscope-backend/internal/auth/usecase"
	emailUsecase "mailscope-backend/internal/email/usecase"
	"mailscope-backend/pkg/ai"
	"mailscope-backend/pkg/config"
	"mailscope-backend/pkg/prompts"
)

type Handler struct {
	sessions     authUsecase.SessionStore
	authUsecase  authUsecase.AuthUsecase
	emailUsecase emailUsecase.EmailUsecase
	aiUsecase    aiUsecase.AIUsecase
	config       *config.Config
}

func NewHandler(sessions authUsecase.SessionStore, authUc authUsecase.AuthUsecase, emailUc emailUsecase.EmailUsecase, cfg *config.Config) (*Handler, error) {
	registry, err := prompts.Load(cfg.PromptsFile)
	if err != nil {
		return nil, err
	}
	log.Printf("[API] loaded %d prompt templates from %s", len(registry.Versions()), cfg.PromptsFile)

	completer, err := ai.NewCompleter(ai.Config{
		Provider:      ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey:  cfg.GeminiAPIKey,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OllamaModel:   cfg.OllamaModel,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[API] AI provider: %s", completer.Name())

	aiUc := aiUsecase.NewAIUsecase(completer, registry, cfg.UpstreamTimeout, cfg.AutoApplySuggestedTone)

	return &Handler{
		sessions:     sessions,
		authUsecase:  authUc,
		emailUsecase: emailUc,
		aiUsecase:    aiUc,
		config:       cfg,
	}, nil
}

func (h *Handler) Start(addr string) error {
	return h.engine().Run(addr)
}

func (h *Handler) engine() *gin.Engine {
	// Mode must be set before the engine is built; gin.Default reads it.
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Session-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.sessions, h.authUsecase, h.emailUsecase, h.aiUsecase, h.config)

	return r
}
