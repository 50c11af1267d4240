package routes

import (
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"

	"statboard/internal/config"
	"statboard/internal/controllers"
	"statboard/internal/middleware"
	"statboard/web"
)

// NewRouter builds the gin engine with the security middleware chain and
// every route registered
func NewRouter(cfg config.ServerConfig, ctl *controllers.Controller) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(slog.Default().With("component", "http")))
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.IPWhitelistMiddleware(middleware.NewIPWhitelist(cfg.AllowedIPs), ctl.Security))
	r.Use(middleware.RateLimitMiddleware(middleware.NewRateLimiter(), ctl.Security))

	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("routes: load templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)

	refresh := middleware.RateLimitMiddleware(middleware.NewRefreshRateLimiter(), ctl.Security)
	RegisterDashboardRoutes(r, ctl, refresh)
	RegisterAuthRoutes(r, ctl)
	return r, nil
}
