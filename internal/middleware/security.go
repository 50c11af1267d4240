package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter implements token bucket rate limiting per IP
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	mu       sync.Mutex
}

// NewRateLimiter creates the general API limiter: 100 requests per second
// per IP, burst of 200
func NewRateLimiter() *RateLimiter {
	return newRateLimiter(rate.Limit(100), 200)
}

// NewRefreshRateLimiter creates the stricter limiter for manual refresh and
// connection checks: one every 2 seconds per IP, burst of 5
func NewRefreshRateLimiter() *RateLimiter {
	return newRateLimiter(rate.Every(2*time.Second), 5)
}

func newRateLimiter(limit rate.Limit, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

// GetLimiter gets or creates a limiter for an IP address
func (rl *RateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, exists := rl.limiters[ip]; exists {
		return limiter
	}
	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.limiters[ip] = limiter
	return limiter
}

// RateLimitMiddleware enforces limiter per client IP
func RateLimitMiddleware(limiter *RateLimiter, sl *SecurityLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiter.GetLimiter(ip).Allow() {
			sl.LogRateLimited(ip, c.FullPath())
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": 60,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// SecurityHeadersMiddleware adds security headers to all responses
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Content-Security-Policy", "default-src 'self'; connect-src 'self' ws: wss:; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		c.Next()
	}
}

// OriginAllowed reports whether origin matches allowedOrigins. An empty list
// admits any non-empty origin. Entries without a scheme match on host.
func OriginAllowed(origin string, allowedOrigins []string) bool {
	origin = strings.TrimRight(origin, "/")
	if len(allowedOrigins) == 0 {
		return origin != ""
	}
	for _, o := range allowedOrigins {
		trimmed := strings.TrimRight(strings.TrimSpace(o), "/")
		if trimmed == "" {
			continue
		}
		if trimmed == "*" || origin == trimmed {
			return true
		}
		if !strings.Contains(trimmed, "://") {
			if parsed, err := url.Parse(origin); err == nil && parsed.Host == trimmed {
				return true
			}
		}
	}
	return false
}

// CORSMiddleware configures CORS with security restrictions
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := strings.TrimRight(c.GetHeader("Origin"), "/")

		if OriginAllowed(origin, allowedOrigins) {
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// IPWhitelist restricts access to a fixed set of client IPs
type IPWhitelist struct {
	ips map[string]bool
	mu  sync.RWMutex
}

// NewIPWhitelist creates a new IP whitelist
func NewIPWhitelist(ips []string) *IPWhitelist {
	wl := &IPWhitelist{ips: make(map[string]bool)}
	for _, ip := range ips {
		if ip = strings.TrimSpace(ip); ip != "" {
			wl.ips[ip] = true
		}
	}
	return wl
}

// IsAllowed checks if an IP is whitelisted. Loopback is always allowed and an
// empty whitelist allows everyone.
func (wl *IPWhitelist) IsAllowed(ip string) bool {
	wl.mu.RLock()
	defer wl.mu.RUnlock()

	if ip == "127.0.0.1" || ip == "::1" || ip == "localhost" {
		return true
	}
	if len(wl.ips) == 0 {
		return true
	}

	ipOnly, _, err := net.SplitHostPort(ip)
	if err != nil || ipOnly == "" {
		ipOnly = ip
	}
	return wl.ips[ipOnly]
}

// IPWhitelistMiddleware enforces IP whitelisting
func IPWhitelistMiddleware(whitelist *IPWhitelist, sl *SecurityLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !whitelist.IsAllowed(ip) {
			sl.LogAccessDenied(ip)
			c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequestLogger logs every request through slog, replacing gin.Logger
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		level := slog.LevelDebug
		switch status := c.Writer.Status(); {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		logger.Log(c.Request.Context(), level, "HTTP request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"ip", c.ClientIP(),
		)
	}
}

// SecurityLogger logs security events
type SecurityLogger struct {
	logger *slog.Logger
}

// NewSecurityLogger creates a security logger writing to logger
func NewSecurityLogger(logger *slog.Logger) *SecurityLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SecurityLogger{logger: logger.With("component", "security")}
}

// LogFailedAuth logs failed authentication attempts
func (sl *SecurityLogger) LogFailedAuth(ip string, reason string) {
	sl.logger.Warn("Failed authentication", "ip", ip, "reason", reason)
}

// LogRateLimited logs a request rejected by a rate limiter
func (sl *SecurityLogger) LogRateLimited(ip string, path string) {
	sl.logger.Warn("Rate limit exceeded", "ip", ip, "path", path)
}

// LogAccessDenied logs a request from a non-whitelisted IP
func (sl *SecurityLogger) LogAccessDenied(ip string) {
	sl.logger.Warn("Access denied for non-whitelisted IP", "ip", ip)
}

// LogWebSocketConnected logs successful WebSocket connections
func (sl *SecurityLogger) LogWebSocketConnected(ip string, viewer string) {
	sl.logger.Info("WebSocket connected", "viewer", viewer, "ip", ip)
}

// LogWebSocketDisconnected logs WebSocket disconnections
func (sl *SecurityLogger) LogWebSocketDisconnected(ip string, clientID string) {
	sl.logger.Info("WebSocket disconnected", "id", clientID, "ip", ip)
}

// InputValidator validates and sanitizes user input
type InputValidator struct{}

// NewInputValidator creates a new input validator
func NewInputValidator() *InputValidator {
	return &InputValidator{}
}

// ValidateToken checks that token has the header.payload.signature shape
func (iv *InputValidator) ValidateToken(token string) bool {
	if len(token) < 20 || len(token) > 4096 {
		return false
	}
	return strings.Count(token, ".") == 2
}

// ValidateViewerName allows 1 to 255 alphanumerics, hyphens, underscores and dots
func (iv *InputValidator) ValidateViewerName(name string) bool {
	if len(name) < 1 || len(name) > 255 {
		return false
	}
	for _, c := range name {
		if !((c >= 'a' && c <= 'z') ||
			(c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') ||
			c == '-' || c == '_' || c == '.') {
			return false
		}
	}
	return true
}
