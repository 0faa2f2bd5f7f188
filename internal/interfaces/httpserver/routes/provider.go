package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/janhq/dialogue-bot/internal/interfaces/httpserver/handlers"
	v1 "github.com/janhq/dialogue-bot/internal/interfaces/httpserver/routes/v1"
)

// Provider coordinates all route registrations.
type Provider struct {
	handlers *handlers.Provider
	V1       *v1.Routes
}

// NewProvider constructs the route provider. adminKey guards the /v1 routes.
func NewProvider(handlerProvider *handlers.Provider, adminKey string) *Provider {
	return &Provider{
		handlers: handlerProvider,
		V1:       v1.NewRoutes(handlerProvider, adminKey),
	}
}

// Register attaches all available routes to the gin engine.
func (p *Provider) Register(engine *gin.Engine) {
	engine.GET("/webhook", p.handlers.Webhook.Verify)
	engine.POST("/webhook", p.handlers.Webhook.Receive)
	p.V1.Register(engine)
}
