package routes

import (
	"statboard/internal/controllers"

	"github.com/gin-gonic/gin"
)

// RegisterDashboardRoutes registers the page and the JSON API. refresh guards
// the endpoints that hit the store on demand.
func RegisterDashboardRoutes(r *gin.Engine, ctl *controllers.Controller, refresh gin.HandlerFunc) {
	r.GET("/", ctl.GetPage)

	api := r.Group("/api")
	{
		api.GET("/dashboard", ctl.GetDashboard)
		api.GET("/history", ctl.GetHistory)
		api.POST("/refresh", refresh, ctl.TriggerRefresh)
		api.GET("/connection", ctl.GetConnection)
		api.POST("/connection/check", refresh, ctl.CheckConnection)
	}
}
