package controllers

import (
	"statboard/internal/middleware"
	"statboard/internal/services"
)

// Controller holds the services behind the HTTP handlers
type Controller struct {
	Poller         *services.Poller
	Probe          *services.ConnectionProbe
	Auth           *services.AuthService
	Hub            *services.WebSocketHub
	Security       *middleware.SecurityLogger
	AllowedOrigins []string
	Title          string
}
