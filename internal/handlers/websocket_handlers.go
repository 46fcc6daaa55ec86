package handlers

import (
	"net/http"

	"checkin-app/internal/auth"
	"checkin-app/internal/models"
	ws "checkin-app/internal/websocket"
	"checkin-app/pkg/logger"

	"github.com/gorilla/websocket"
)

type WebSocketHandlers struct {
	authService *auth.Service
	service     *ws.Service
	upgrader    websocket.Upgrader
}

func NewWebSocketHandlers(authService *auth.Service, service *ws.Service) *WebSocketHandlers {
	return &WebSocketHandlers{
		authService: authService,
		service:     service,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Configure for production
		},
	}
}

func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// A token resolves identity up front. Without one the channel still
	// opens and the client announces identity with a setUsername frame.
	var user *models.User
	if tokenStr := r.URL.Query().Get("token"); tokenStr != "" {
		u, err := h.authService.GetUserFromToken(r.Context(), tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		user = u
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}

	h.service.HandleConnection(conn, user)
}
