package handler

import (
	"log"
	"net/http"

	"github.com/GooseOb/pai2024/internal/middleware"
	"github.com/GooseOb/pai2024/internal/notify"
	"github.com/GooseOb/pai2024/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WSHandler upgrades /ws to a WebSocket that receives change events.
type WSHandler struct {
	Hub            *notify.Hub
	RequireSession bool
	upgrader       websocket.Upgrader
}

// NewWSHandler accepts upgrades from allowedOrigins; "*" allows any origin.
func NewWSHandler(hub *notify.Hub, requireSession bool, allowedOrigins []string) *WSHandler {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}
	return &WSHandler{
		Hub:            hub,
		RequireSession: requireSession,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || allowed[origin]
			},
		},
	}
}

func (h *WSHandler) Serve(c *gin.Context) {
	p := middleware.CurrentUser(c)
	if h.RequireSession && p == nil {
		util.Error(c, http.StatusUnauthorized, "not logged in")
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already written the error response
		log.Printf("ws upgrade: %v", err)
		return
	}
	who := "anonymous"
	if p != nil {
		who = p.Login
	}
	h.Hub.Serve(conn, who)
}
