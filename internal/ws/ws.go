// Package ws pushes live status updates to connected dashboards. Clients
// are grouped per workspace; a broadcast only reaches connections that
// authenticated for that workspace.
package ws

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/openstatus-dev/openstatus/internal/models"
	"github.com/openstatus-dev/openstatus/internal/types"
)

var (
	workspaceClients   = make(map[uint]map[*websocket.Conn]bool)
	workspaceClientsMu sync.RWMutex
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// StatusChange is the wire shape of a live update.
type StatusChange struct {
	Type      string `json:"type"`
	MonitorID uint   `json:"monitorId"`
	Status    string `json:"status"`
	Event     string `json:"event,omitempty"`
}

// BroadcastStatusChange notifies every dashboard connected to the
// workspace. Dead connections are dropped along the way.
func BroadcastStatusChange(workspaceID uint, change StatusChange) {
	workspaceClientsMu.RLock()
	clients, exists := workspaceClients[workspaceID]
	if !exists || len(clients) == 0 {
		workspaceClientsMu.RUnlock()
		return
	}

	clientsCopy := make([]*websocket.Conn, 0, len(clients))
	for conn := range clients {
		clientsCopy = append(clientsCopy, conn)
	}
	workspaceClientsMu.RUnlock()

	for _, conn := range clientsCopy {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			slog.Warn("failed to set write deadline for broadcast", slog.Any("error", err))
			continue
		}

		if err := conn.WriteJSON(change); err != nil {
			slog.Warn("failed to broadcast status change",
				slog.Uint64("workspace_id", uint64(workspaceID)),
				slog.Any("error", err),
			)
			unregister(workspaceID, conn)
			conn.Close()
		}
	}
}

// pingWriter is the slice of the websocket connection the pinger needs.
type pingWriter interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
}

// ping keeps the connection alive until done is closed or a write fails.
// Stopping the ticker alone would strand the goroutine on the channel
// receive, so the done channel is what ends it.
func ping(conn pingWriter, period time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func register(workspaceID uint, conn *websocket.Conn) {
	workspaceClientsMu.Lock()
	if workspaceClients[workspaceID] == nil {
		workspaceClients[workspaceID] = make(map[*websocket.Conn]bool)
	}
	workspaceClients[workspaceID][conn] = true
	workspaceClientsMu.Unlock()
}

func unregister(workspaceID uint, conn *websocket.Conn) {
	workspaceClientsMu.Lock()
	if clients, exists := workspaceClients[workspaceID]; exists {
		delete(clients, conn)
		if len(clients) == 0 {
			delete(workspaceClients, workspaceID)
		}
	}
	workspaceClientsMu.Unlock()
}

// Serve upgrades an authenticated request to a websocket and keeps it
// alive with pings until the client goes away.
func Serve(c *gin.Context) {
	value, exists := c.Get(types.ContextWorkspaceKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	workspace, ok := value.(models.Workspace)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			for _, allowed := range types.AllowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		slog.Warn("failed to set initial read deadline", slog.Any("error", err))
		conn.Close()
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	register(workspace.ID, conn)

	done := make(chan struct{})
	defer func() {
		close(done)
		unregister(workspace.ID, conn)
		conn.Close()
	}()

	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return
	}
	if err := conn.WriteJSON(map[string]string{"type": "connected"}); err != nil {
		return
	}

	go ping(conn, pingPeriod, done)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			break
		}

		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("websocket read error",
					slog.Uint64("workspace_id", uint64(workspace.ID)),
					slog.Any("error", err),
				)
			}
			break
		}
	}
}
