package session

import (
	"github.com/oraharon2020/tavati-sub001/internal/domain/session/handler"
	"github.com/oraharon2020/tavati-sub001/internal/domain/session/repository"
	"github.com/oraharon2020/tavati-sub001/internal/domain/session/service"
	"github.com/oraharon2020/tavati-sub001/internal/pkg/middleware"
	"github.com/oraharon2020/tavati-sub001/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// SessionModule owns the claim-session lifecycle.
type SessionModule struct{}

func init() {
	registry.Register(&SessionModule{})
}

func (m *SessionModule) Name() string {
	return "session"
}

func (m *SessionModule) Priority() int {
	// Sessions first; payment and reminder build on this repository.
	return 1
}

func (m *SessionModule) Init(ctx *registry.ModuleContext) error {
	sRepo := repository.NewSessionRepository(ctx.DB)
	sService := service.NewSessionService(sRepo)
	sHandler := handler.NewSessionHandler(sService)

	setupRoutes(ctx.Router, sHandler)
	return nil
}

func setupRoutes(r *gin.Engine, h *handler.SessionHandler) {
	g := r.Group("/sessions")
	g.Use(middleware.RateLimitMiddleware())
	{
		g.POST("", h.CreateSession)
		g.GET("", h.ListSessions)
		g.GET("/:id", h.GetSession)
		g.PUT("/:id", h.UpdateSession)
		g.DELETE("", h.DeleteSession)
	}
}
