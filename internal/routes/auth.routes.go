package routes

import (
	"statboard/internal/controllers"

	"github.com/gin-gonic/gin"
)

// RegisterAuthRoutes registers the live feed and token status routes.
// Tokens are issued from the CLI only, there is no HTTP endpoint for it.
func RegisterAuthRoutes(r *gin.Engine, ctl *controllers.Controller) {
	r.GET("/ws", ctl.HandleWebSocket)
	r.GET("/auth/status", ctl.HandleTokenStatus)
}
