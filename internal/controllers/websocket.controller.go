package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"statboard/internal/middleware"
	"statboard/internal/services"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// clientMessage is what a live client may send. Only "refresh" is acted on.
type clientMessage struct {
	Type string `json:"type"`
}

func (ctl *Controller) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || strings.HasSuffix(origin, "://"+r.Host) {
				return true
			}
			return len(ctl.AllowedOrigins) > 0 && middleware.OriginAllowed(origin, ctl.AllowedOrigins)
		},
	}
}

// HandleWebSocket upgrades an authenticated viewer to the live feed. The
// client gets the current dashboard and connection state immediately and
// then every update as it happens.
func (ctl *Controller) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		ctl.Security.LogFailedAuth(c.ClientIP(), "missing token")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	claims, err := ctl.Auth.ValidateToken(token)
	if err != nil {
		ctl.Security.LogFailedAuth(c.ClientIP(), err.Error())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	upgrader := ctl.upgrader()
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "component", "ws", "ip", c.ClientIP(), "err", err)
		return
	}

	client := services.NewClientConnection(ws, claims.Viewer)
	ctl.Security.LogWebSocketConnected(c.ClientIP(), claims.Viewer)

	// initial state goes in before the hub can touch Send
	state := ctl.Poller.Snapshot()
	client.Send <- services.WebSocketMessage{Type: services.MessageDashboard, Timestamp: state.Timestamp, Data: state}
	status := ctl.Probe.Status()
	client.Send <- services.WebSocketMessage{Type: services.MessageConnection, Timestamp: status.CheckedAt, Data: status}

	ctl.Hub.Register(client)

	ip := c.ClientIP()
	go ctl.readPump(client, ip)
	go writePump(client)
}

// readPump consumes client messages until the connection fails
func (ctl *Controller) readPump(client *services.ClientConnection, ip string) {
	defer func() {
		ctl.Hub.Unregister(client.ID)
		client.Conn.Close()
		ctl.Security.LogWebSocketDisconnected(ip, client.ID)
	}()

	client.Conn.SetReadLimit(4096)
	_ = client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg clientMessage
		if err := client.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("WebSocket read error", "component", "ws", "id", client.ID, "err", err)
			}
			return
		}

		switch msg.Type {
		case "refresh":
			ctl.Poller.TriggerRefresh()
		default:
			slog.Debug("Unknown message type", "component", "ws", "type", msg.Type)
		}
	}
}

// writePump writes queued messages and keepalive pings until Send closes
func writePump(client *services.ClientConnection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.Send:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteJSON(msg); err != nil {
				slog.Debug("WebSocket write error", "component", "ws", "id", client.ID, "err", err)
				return
			}

		case <-ticker.C:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HandleTokenStatus validates a viewer token given as a Bearer header or a
// token query parameter
func (ctl *Controller) HandleTokenStatus(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if token == c.GetHeader("Authorization") {
		token = ""
	}
	if token == "" {
		token = c.Query("token")
	}

	if token == "" {
		ctl.Security.LogFailedAuth(c.ClientIP(), "missing token in header or query")
		c.JSON(http.StatusBadRequest, gin.H{"error": "token required in Authorization header or query parameter"})
		return
	}
	if !middleware.NewInputValidator().ValidateToken(token) {
		ctl.Security.LogFailedAuth(c.ClientIP(), "malformed token")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	claims, err := ctl.Auth.ValidateToken(token)
	if err != nil {
		ctl.Security.LogFailedAuth(c.ClientIP(), err.Error())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":      true,
		"viewer":     claims.Viewer,
		"expires_at": claims.ExpiresAt.Time,
		"issued_at":  claims.IssuedAt.Time,
	})
}
