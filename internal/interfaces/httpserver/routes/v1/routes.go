package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/janhq/dialogue-bot/internal/interfaces/httpserver/handlers"
	"github.com/janhq/dialogue-bot/internal/interfaces/httpserver/middlewares"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
	adminKey string
}

// NewRoutes builds the v1 route registrar.
func NewRoutes(handlerProvider *handlers.Provider, adminKey string) *Routes {
	return &Routes{handlers: handlerProvider, adminKey: adminKey}
}

// Register attaches all v1 routes under /v1 prefix.
func (r *Routes) Register(engine *gin.Engine) {
	group := engine.Group("/v1", middlewares.BearerKey(r.adminKey))
	registerAdminRoutes(group, r.handlers.Admin)
}

func registerAdminRoutes(router gin.IRoutes, handler *handlers.AdminHandler) {
	router.GET("/users/:id/profile", handler.Profile)
	router.POST("/users/archive", handler.Archive)
	router.POST("/push/updates", handler.PushUpdates)
	router.POST("/push/study", handler.PushStudy)
}
